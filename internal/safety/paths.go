// Package safety confines artifact writes to a single output root.
package safety

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Error codes carried by ToolError.
const (
	CodeOutsideRoot  = "ERR_PATH_OUTSIDE_ROOT"
	CodeDeniedWrite  = "ERR_DENIED_WRITE"
	CodeInvalidInput = "ERR_INVALID_INPUT"
	CodeToolNotFound = "ERR_TOOL_NOT_FOUND"
)

// ToolError is a machine-readable error body surfaced to the hosting service
// as the output of a failed tool call.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error returns a compact, single-line JSON string.
func (e ToolError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// deniedDirs are never written to, at any depth below the root.
var deniedDirs = []string{".git", ".agent"}

// ResolveRoot makes dir absolute and resolves symlinks where possible.
// An empty dir means the current working directory.
func ResolveRoot(dir string) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = cwd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs(%s): %w", dir, err)
	}
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		abs = r
	}
	return abs, nil
}

// ValidateWritePath resolves name against absRoot and returns the absolute
// target. Absolute names, parent traversal, symlinked parents that leave the
// root and targets under .git/ or .agent/ are rejected with a ToolError.
func ValidateWritePath(absRoot, name string) (string, error) {
	if name == "" {
		return "", ToolError{Code: CodeInvalidInput, Message: "empty file name"}
	}
	if filepath.IsAbs(name) {
		return "", ToolError{Code: CodeOutsideRoot, Message: "absolute paths are not allowed"}
	}

	candidate := filepath.Join(absRoot, filepath.Clean(name))

	// The leaf usually does not exist yet; resolve its parent so a symlinked
	// directory cannot carry the write outside the root.
	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		candidate = resolved
	} else if parent, err := filepath.EvalSymlinks(filepath.Dir(candidate)); err == nil {
		candidate = filepath.Join(parent, filepath.Base(candidate))
	}

	rel, err := filepath.Rel(absRoot, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", ToolError{Code: CodeOutsideRoot, Message: "path resolves outside the output root"}
	}

	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, d := range deniedDirs {
			if part == d {
				return "", ToolError{Code: CodeDeniedWrite, Message: "writes under " + d + "/ are not allowed"}
			}
		}
	}
	return candidate, nil
}

// Package fsops writes side-effect artifacts under a validated output root.
package fsops

import (
	"os"
	"path/filepath"

	"github.com/petasbytes/expense-agent/internal/safety"
)

// Root is an output directory that artifact files are written into.
// The zero value is not usable; construct with NewRoot.
type Root struct {
	dir string
}

// NewRoot resolves dir (empty means the working directory) once, so later
// boundary checks compare against a stable absolute path.
func NewRoot(dir string) (*Root, error) {
	abs, err := safety.ResolveRoot(dir)
	if err != nil {
		return nil, err
	}
	return &Root{dir: abs}, nil
}

// Dir returns the absolute output directory.
func (r *Root) Dir() string { return r.dir }

// WriteFile writes content to name, relative to the root, creating parent
// directories as needed. It returns the absolute path written.
// Policy violations come back as safety.ToolError; I/O failures unchanged.
func (r *Root) WriteFile(name, content string) (string, error) {
	abs, err := safety.ValidateWritePath(r.dir, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return "", err
	}
	return abs, nil
}

package tools_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/petasbytes/expense-agent/internal/fsops"
	"github.com/petasbytes/expense-agent/tools"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.Local)

// newEnv returns an Env rooted in a fresh temp dir with a fixed clock.
func newEnv(t *testing.T) *tools.Env {
	t.Helper()
	root, err := fsops.NewRoot(t.TempDir())
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}
	env := tools.NewEnv(root)
	env.Now = func() time.Time { return fixedNow }
	return env
}

func readArtifact(t *testing.T, env *tools.Env, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(env.Root.Dir(), name))
	if err != nil {
		t.Fatalf("read artifact %s: %v", name, err)
	}
	return string(b)
}

func listArtifacts(t *testing.T, env *tools.Env, pattern string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(env.Root.Dir(), pattern))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	return names
}

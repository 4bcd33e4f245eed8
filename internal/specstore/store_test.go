package specstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/synapse-sh/synapse/internal/specmodel"
)

func TestLookupBuiltin(t *testing.T) {
	s := New(Options{})
	spec, ok := s.Lookup("git", t.TempDir())
	if !ok || spec.Name != "git" {
		t.Fatalf("expected builtin git spec, got %+v ok=%v", spec, ok)
	}
}

func TestLookupAlias(t *testing.T) {
	s := New(Options{})
	spec, ok := s.Lookup("g", t.TempDir())
	if !ok || spec.Name != "git" {
		t.Fatalf("alias lookup failed: %+v ok=%v", spec, ok)
	}
}

func TestLookupProjectUserBeatsBuiltin(t *testing.T) {
	dir := t.TempDir()
	if err := writeFile(filepath.Join(dir, ".git", "HEAD"), "ref: refs/heads/main\n"); err != nil {
		t.Fatal(err)
	}
	specDir := filepath.Join(dir, ".synapse", "specs")
	if err := writeFile(filepath.Join(specDir, "git.toml"), `
[[command]]
name = "git"
description = "overridden"
`); err != nil {
		t.Fatal(err)
	}

	s := New(Options{})
	spec, ok := s.Lookup("git", dir)
	if !ok || spec.Description != "overridden" || spec.Source != specmodel.SourceProjectUser {
		t.Fatalf("expected ProjectUser override to win, got %+v ok=%v", spec, ok)
	}
}

func TestAllCommandNamesDeduped(t *testing.T) {
	s := New(Options{})
	names := s.AllCommandNames(t.TempDir())
	seen := map[string]int{}
	for _, n := range names {
		seen[n]++
	}
	for n, c := range seen {
		if c > 1 {
			t.Fatalf("command %q listed %d times", n, c)
		}
	}
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

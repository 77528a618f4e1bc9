package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunCleanEntryExitsZero(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "Main.flx")
	writeFile(t, entry, "let x = 1 + 2")

	if got := run([]string{entry}); got != 0 {
		t.Fatalf("got exit code %d, want 0", got)
	}
}

func TestRunWithErrorsExitsOne(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "Main.flx")
	writeFile(t, entry, "fn add(x, y) { x + y }")

	if got := run([]string{entry}); got != 1 {
		t.Fatalf("got exit code %d, want 1", got)
	}
}

func TestRunWithNoArgsExitsTwo(t *testing.T) {
	if got := run([]string{}); got != 2 {
		t.Fatalf("got exit code %d, want 2", got)
	}
}

func TestRunMissingImportExitsOne(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "Main.flx")
	writeFile(t, entry, "import Missing.Thing")

	if got := run([]string{entry}); got != 1 {
		t.Fatalf("got exit code %d, want 1", got)
	}
}

func TestRunRespectsMaxErrorsFlag(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "Main.flx")
	writeFile(t, entry, "import Missing.A\nimport Missing.B\nimport Missing.C")

	if got := run([]string{"--max-errors", "1", entry}); got != 1 {
		t.Fatalf("got exit code %d, want 1", got)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileIsZeroValue(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "flux.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Roots) != 0 || cfg.MaxErrors != 0 {
		t.Fatalf("expected a zero-value config, got %+v", cfg)
	}
}

func TestLoadParsesRootsAndMaxErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	content := "roots:\n  - src\n  - vendor/flux\nmax_errors: 20\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Roots) != 2 || cfg.Roots[0] != "src" || cfg.Roots[1] != "vendor/flux" {
		t.Fatalf("got roots %v", cfg.Roots)
	}
	if cfg.MaxErrors != 20 {
		t.Fatalf("got max_errors %d, want 20", cfg.MaxErrors)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte("roots: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected a parse error for malformed YAML")
	}
}

func TestFindProjectRootStopsAtNearestMarker(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "flux.yaml"), []byte("roots: [src]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	got := FindProjectRoot(nested)
	want, _ := filepath.Abs(root)
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFindProjectRootFallsBackToStart(t *testing.T) {
	start := t.TempDir()
	got := FindProjectRoot(start)
	want, _ := filepath.Abs(start)
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLoadFromProjectRootCombinesBoth(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "flux.yaml"), []byte("max_errors: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "x")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg, foundRoot, err := LoadFromProjectRoot(nested)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := filepath.Abs(root)
	if foundRoot != want {
		t.Fatalf("got root %q, want %q", foundRoot, want)
	}
	if cfg.MaxErrors != 5 {
		t.Fatalf("got max_errors %d, want 5", cfg.MaxErrors)
	}
}

package loader

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadSearchesRootsInOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, second, "A/B.flx", "module A.B { }")

	fl := New([]string{first, second}, "", true)
	abs, b, err := fl.Load("A/B.flx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Dir(filepath.Dir(abs)) != second {
		t.Fatalf("expected to load from second root, got %s", abs)
	}
	if string(b) != "module A.B { }" {
		t.Fatalf("got %q", b)
	}
}

func TestLoadPrefersEarlierRoot(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, first, "A.flx", "from first")
	writeFile(t, second, "A.flx", "from second")

	fl := New([]string{first, second}, "", true)
	_, b, err := fl.Load("A.flx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != "from first" {
		t.Fatalf("got %q, want 'from first'", b)
	}
}

func TestRootsOnlySkipsImplicitRoot(t *testing.T) {
	implicit := t.TempDir()
	writeFile(t, implicit, "A.flx", "implicit")

	fl := New(nil, implicit, true)
	if fl.Exists("A.flx") {
		t.Fatalf("expected --roots-only to skip the implicit root")
	}

	fl2 := New(nil, implicit, false)
	if !fl2.Exists("A.flx") {
		t.Fatalf("expected implicit root to be searched when not roots-only")
	}
}

func TestLoadNotFound(t *testing.T) {
	fl := New([]string{t.TempDir()}, "", true)
	if _, _, err := fl.Load("Missing.flx"); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

package checkrepl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/flux-lang/flux/internal/loader"
)

func newChecker(t *testing.T) *Checker {
	t.Helper()
	ld := loader.New([]string{t.TempDir()}, "", true)
	return New(ld, -1)
}

func TestCheckFragmentCleanExpressionReportsNoDiagnostics(t *testing.T) {
	c := newChecker(t)
	var buf bytes.Buffer
	c.checkFragment("let x = 1 + 2", &buf)
	if !strings.Contains(buf.String(), "no diagnostics") {
		t.Fatalf("got %q", buf.String())
	}
}

func TestCheckFragmentReportsParseError(t *testing.T) {
	c := newChecker(t)
	var buf bytes.Buffer
	c.checkFragment("fn add(x, y) { x + y }", &buf)
	if !strings.Contains(buf.String(), "UNKNOWN KEYWORD") {
		t.Fatalf("expected an unknown-keyword diagnostic, got %q", buf.String())
	}
}

func TestCheckFragmentReportsMissingImport(t *testing.T) {
	c := newChecker(t)
	var buf bytes.Buffer
	c.checkFragment("import Missing.Thing", &buf)
	if !strings.Contains(buf.String(), "IMPORT NOT FOUND") {
		t.Fatalf("expected an import-not-found diagnostic, got %q", buf.String())
	}
}

func TestCheckFragmentAssignsDistinctSyntheticPaths(t *testing.T) {
	c := newChecker(t)
	var buf bytes.Buffer
	c.checkFragment("let a = 1", &buf)
	c.checkFragment("let b = 2", &buf)
	if c.count != 2 {
		t.Fatalf("expected fragment count 2, got %d", c.count)
	}
	if c.sources.Get("<check-1>") == nil || c.sources.Get("<check-2>") == nil {
		t.Fatalf("expected fragments registered as <check-1> and <check-2>")
	}
}

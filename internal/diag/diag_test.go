package diag

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/flux-lang/flux/internal/source"
)

func newTestMap(t *testing.T, path, contents string) *source.Map {
	t.Helper()
	m := source.New()
	m.Add(path, source.Normalize([]byte(contents)))
	return m
}

func TestRenderDeterministicAcrossPermutations(t *testing.T) {
	sources := newTestMap(t, "a.flx", "let x = 1\nlet y = 2\n")

	d1 := New(Error, EImportNotFound, "IMPORT NOT FOUND", "module Foo.Bar not found", Span{File: "a.flx", Start: 4, End: 5})
	d2 := New(Warning, "", "IMPORT AFTER STATEMENT", "import placed after a top-level statement", Span{File: "a.flx", Start: 14, End: 15})

	agg1 := NewAggregator(sources)
	agg1.Submit(d1)
	agg1.Submit(d2)
	out1 := Render(agg1.Flush(-1), sources, -1)

	agg2 := NewAggregator(sources)
	agg2.Submit(d2)
	agg2.Submit(d1)
	out2 := Render(agg2.Flush(-1), sources, -1)

	if diff := cmp.Diff(out1, out2); diff != "" {
		t.Errorf("render not permutation-invariant (-first +second):\n%s", diff)
	}
}

func TestDedupeIdempotent(t *testing.T) {
	sources := newTestMap(t, "a.flx", "let x = 1\n")
	d := New(Error, EImportNotFound, "IMPORT NOT FOUND", "module Foo not found", Span{File: "a.flx", Start: 4, End: 5})

	agg := NewAggregator(sources)
	agg.Submit(d)
	agg.Submit(d)
	agg.Submit(d)

	deduped := agg.Dedupe()
	if len(deduped) != 1 {
		t.Fatalf("expected dedupe to collapse 3 identical diagnostics to 1, got %d", len(deduped))
	}
}

func TestDifferingRelatedAreDistinct(t *testing.T) {
	sources := newTestMap(t, "a.flx", "let x = 1\n")
	base := New(Error, EPrivateMember, "PRIVATE MEMBER", "cannot access _private", Span{File: "a.flx", Start: 4, End: 5})
	d1 := base.WithRelated(Related{Severity: RelatedNote, Message: "declared here"})
	d2 := base.WithRelated(Related{Severity: RelatedNote, Message: "declared elsewhere"})

	agg := NewAggregator(sources)
	agg.Submit(d1)
	agg.Submit(d2)

	if len(agg.Dedupe()) != 2 {
		t.Fatalf("diagnostics differing only in related entries must not dedupe together")
	}
}

func TestSortOrderFilePathThenLineThenColumn(t *testing.T) {
	sources := source.New()
	sources.Add("b.flx", source.Normalize([]byte("let x = 1\n")))
	sources.Add("a.flx", source.Normalize([]byte("let y = 1\nlet z = 2\n")))

	agg := NewAggregator(sources)
	agg.Submit(New(Error, EImportNotFound, "IMPORT NOT FOUND", "m1", Span{File: "b.flx", Start: 0, End: 1}))
	agg.Submit(New(Error, EImportNotFound, "IMPORT NOT FOUND", "m2", Span{File: "a.flx", Start: 11, End: 12}))
	agg.Submit(New(Error, EImportNotFound, "IMPORT NOT FOUND", "m3", Span{File: "a.flx", Start: 0, End: 1}))

	res := agg.Flush(-1)
	want := []string{"a.flx", "a.flx", "b.flx"}
	for i, d := range res.Diagnostics {
		if d.PrimarySpan.File != want[i] {
			t.Fatalf("position %d: got file %s, want %s", i, d.PrimarySpan.File, want[i])
		}
	}
	if res.Diagnostics[0].Message != "m3" || res.Diagnostics[1].Message != "m2" {
		t.Fatalf("within a.flx, expected line order m3 then m2, got %s then %s",
			res.Diagnostics[0].Message, res.Diagnostics[1].Message)
	}
}

func TestMaxErrorsTruncation(t *testing.T) {
	sources := newTestMap(t, "a.flx", "let a = 1\nlet b = 1\nlet c = 1\nlet d = 1\nlet e = 1\n")

	agg := NewAggregator(sources)
	for i := 0; i < 5; i++ {
		agg.Submit(New(Error, EImportNotFound, "IMPORT NOT FOUND", "err", Span{File: "a.flx", Start: i * 10, End: i*10 + 1}))
	}
	agg.Submit(New(Warning, "", "WARN A", "w1", Span{File: "a.flx", Start: 1, End: 2}))
	agg.Submit(New(Warning, "", "WARN B", "w2", Span{File: "a.flx", Start: 2, End: 3}))

	res := agg.Flush(2)
	if res.ErrorCount != 5 {
		t.Fatalf("ErrorCount = %d, want 5", res.ErrorCount)
	}
	if res.Shown != 2 {
		t.Fatalf("Shown = %d, want 2", res.Shown)
	}

	out := Render(res, sources, 2)
	if !contains(out, "... and 3 more errors not shown (use --max-errors to increase).") {
		t.Fatalf("missing truncation footer, got:\n%s", out)
	}

	warnCount := 0
	for _, d := range res.Diagnostics {
		if d.Severity == Warning {
			warnCount++
		}
	}
	if warnCount != 2 {
		t.Fatalf("expected both warnings to survive truncation, got %d", warnCount)
	}
}

func TestMaxErrorsZeroStillShowsWarnings(t *testing.T) {
	sources := newTestMap(t, "a.flx", "let a = 1\n")
	agg := NewAggregator(sources)
	agg.Submit(New(Error, EImportNotFound, "IMPORT NOT FOUND", "err", Span{File: "a.flx", Start: 0, End: 1}))
	agg.Submit(New(Warning, "", "WARN", "w", Span{File: "a.flx", Start: 1, End: 2}))

	res := agg.Flush(0)
	if res.Shown != 0 {
		t.Fatalf("Shown = %d, want 0", res.Shown)
	}
	out := Render(res, sources, 0)
	if !contains(out, "... and 1 more errors not shown") {
		t.Fatalf("expected truncation footer for all-hidden errors, got:\n%s", out)
	}
	if !contains(out, "WARN") {
		t.Fatalf("expected warning to still render, got:\n%s", out)
	}
}

func TestCaretAlignsUnderMultibyteSpan(t *testing.T) {
	// "café " is 5 runes but 6 bytes ('é' is 2 bytes); the span covers the
	// identifier "err" which starts at rune column 6.
	src := "café err"
	sources := newTestMap(t, "a.flx", src)

	start := strings.Index(src, "err")
	d := New(Error, EUnexpectedToken, "UNEXPECTED TOKEN", "bad token", Span{File: "a.flx", Start: start, End: start + 3})

	out := RenderOne(d, sources)
	lines := strings.Split(out, "\n")
	var text, carets string
	for _, l := range lines {
		if strings.HasPrefix(l, "1 | ") {
			text = strings.TrimPrefix(l, "1 | ")
		}
		if text != "" && strings.Contains(l, "^") {
			carets = l
			break
		}
	}
	caretCol := strings.Index(carets, "^")
	gutterWidth := strings.Index(carets, "|") + 2 // "   | " prefix before the aligned region
	wantCol := gutterWidth + len([]rune("café "))
	if caretCol != wantCol {
		t.Fatalf("caret at column %d, want %d (text: %q, carets: %q)", caretCol, wantCol, text, carets)
	}
}

func TestSummaryLineCountsAllShownDiagnostics(t *testing.T) {
	sources := newTestMap(t, "a.flx", "let a = 1\nlet b = 1\n")
	agg := NewAggregator(sources)
	agg.Submit(New(Note, "", "NOTE A", "n1", Span{File: "a.flx", Start: 0, End: 1}))
	agg.Submit(New(Note, "", "NOTE B", "n2", Span{File: "a.flx", Start: 10, End: 11}))

	res := agg.Flush(-1)
	if res.ErrorCount != 0 || res.WarningCount != 0 {
		t.Fatalf("expected no errors or warnings, got %d/%d", res.ErrorCount, res.WarningCount)
	}
	out := Render(res, sources, -1)
	if !contains(out, "Found 0 errors and 0 warnings.") {
		t.Fatalf("expected a summary line for two shown notes, got:\n%s", out)
	}
}

func contains(haystack, needle string) bool {
	return len(needle) == 0 || (len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0)
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

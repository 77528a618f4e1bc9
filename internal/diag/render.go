package diag

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/flux-lang/flux/internal/source"
)

// Render produces the full grouped, summarized output for a Flush Result:
// an optional summary line, then each file's diagnostics under a
// "--> path" header, in the order Flush already sorted them, followed by
// the max-errors truncation footer when applicable (spec.md §4.4).
func Render(res Result, sources *source.Map, maxErrors int) string {
	var b strings.Builder

	if len(res.Diagnostics) > 1 || (res.ErrorCount > 0 && res.WarningCount > 0) {
		fmt.Fprintf(&b, "Found %d errors and %d warnings.\n\n", res.ErrorCount, res.WarningCount)
	}

	for _, group := range GroupByFile(res.Diagnostics) {
		fmt.Fprintf(&b, "--> %s\n", group.Path)
		for _, d := range group.Diagnostics {
			b.WriteString(RenderOne(d, sources))
			b.WriteString("\n")
		}
	}

	if maxErrors >= 0 && res.ErrorCount > res.Shown {
		fmt.Fprintf(&b, "... and %d more errors not shown (use --max-errors to increase).\n", res.ErrorCount-res.Shown)
	}

	return b.String()
}

// RenderOne renders a single diagnostic without file grouping or a
// summary line: the plain rendering mode used by unit tests (spec.md §4.4).
func RenderOne(d Diagnostic, sources *source.Map) string {
	var b strings.Builder

	sevCap := strings.ToUpper(d.Severity.String()[:1]) + d.Severity.String()[1:]
	category := Category(d.Code)
	if d.Code != "" {
		fmt.Fprintf(&b, "-- %s %s: %s [%s]\n", sevCap, category, d.Title, d.Code)
	} else {
		fmt.Fprintf(&b, "-- %s %s: %s\n", sevCap, category, d.Title)
	}
	b.WriteString("\n")

	if d.Message != "" {
		b.WriteString(d.Message)
		b.WriteString("\n\n")
	}

	entry := sources.Get(d.PrimarySpan.File)
	if entry != nil {
		renderSpanBlock(&b, entry, d.PrimarySpan)
	}

	for _, s := range d.Suggestions {
		renderSuggestion(&b, sources, s)
	}

	for _, r := range d.Related {
		renderRelated(&b, sources, r)
	}

	return b.String()
}

func renderSpanBlock(b *strings.Builder, entry *source.Entry, span Span) {
	start := entry.Position(span.Start)
	end := entry.Position(span.End)

	lineNoStr := strconv.Itoa(start.Line)
	gutter := strings.Repeat(" ", len(lineNoStr))

	fmt.Fprintf(b, "  --> %s:%d:%d\n", entry.Path, start.Line, start.Column)
	fmt.Fprintf(b, "  %s|\n", gutter)

	lineText := entry.Line(start.Line)
	fmt.Fprintf(b, "%s | %s\n", lineNoStr, lineText)

	carets := caretLine(lineText, start.Column, end.Line, end.Column, start.Line)
	fmt.Fprintf(b, "  %s| %s\n", gutter, carets)
}

// caretLine builds the caret underline for a span starting at startCol on
// its own line. Multi-line spans render only the first line, with carets
// extending to end-of-line followed by an ellipsis (spec.md §4.4).
func caretLine(lineText string, startCol, endLine, endCol, startLine int) string {
	lineLen := len([]rune(lineText))
	if endLine > startLine {
		width := lineLen - (startCol - 1)
		if width < 1 {
			width = 1
		}
		return strings.Repeat(" ", startCol-1) + strings.Repeat("^", width) + "…"
	}
	width := endCol - startCol
	if width < 1 {
		width = 1
	}
	return strings.Repeat(" ", startCol-1) + strings.Repeat("^", width)
}

func renderSuggestion(b *strings.Builder, sources *source.Map, s Suggestion) {
	fmt.Fprintf(b, "help: %s\n", s.Label)
	entry := sources.Get(s.Span.File)
	if entry == nil {
		return
	}
	start := entry.Position(s.Span.Start)
	end := entry.Position(s.Span.End)

	lineText := entry.Line(start.Line)
	replaced := applyReplacement(lineText, start.Column, end.Column, s.ReplacementText)

	lineNoStr := strconv.Itoa(start.Line)
	gutter := strings.Repeat(" ", len(lineNoStr))

	fmt.Fprintf(b, "   %s|\n", gutter)
	fmt.Fprintf(b, "%s | %s\n", lineNoStr, replaced)

	tildeWidth := len([]rune(s.ReplacementText))
	if tildeWidth < 1 {
		tildeWidth = 1
	}
	tildes := strings.Repeat(" ", start.Column-1) + strings.Repeat("~", tildeWidth)
	fmt.Fprintf(b, "  %s| %s\n", gutter, tildes)
}

// applyReplacement renders replacement in place of [startCol,endCol) on
// lineText, for display purposes only — it never mutates source (spec.md §9).
func applyReplacement(lineText string, startCol, endCol int, replacement string) string {
	r := []rune(lineText)
	s := startCol - 1
	e := endCol - 1
	if s < 0 {
		s = 0
	}
	if e > len(r) {
		e = len(r)
	}
	if e < s {
		e = s
	}
	return string(r[:s]) + replacement + string(r[e:])
}

func renderRelated(b *strings.Builder, sources *source.Map, r Related) {
	fmt.Fprintf(b, "%s: %s\n", r.Severity.String(), r.Message)
	if r.Span == nil {
		return
	}
	entry := sources.Get(r.Span.File)
	if entry == nil {
		return
	}
	pos := entry.Position(r.Span.Start)
	fmt.Fprintf(b, "  --> %s:%d:%d\n", entry.Path, pos.Line, pos.Column)
}

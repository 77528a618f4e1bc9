package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flux-lang/flux/internal/source"
)

// Aggregator is the single process-local sink every compiler stage submits
// diagnostics into. It is not safe for concurrent submission — spec.md §5
// specifies a single-threaded cooperative core — but is single-consumer
// safe: only the driver calls Flush, once, at the end of a run.
type Aggregator struct {
	sources *source.Map
	diags   []Diagnostic
}

// NewAggregator creates an Aggregator backed by the given source map, used
// to resolve spans to (line, col) for sorting, deduping, and rendering.
func NewAggregator(sources *source.Map) *Aggregator {
	return &Aggregator{sources: sources}
}

// Submit records d. Submission order never affects the final rendered
// output (spec.md §5) — sort+dedupe at Flush is the only thing that does.
func (a *Aggregator) Submit(d Diagnostic) {
	a.diags = append(a.diags, d)
}

// Len reports how many diagnostics have been submitted so far.
func (a *Aggregator) Len() int {
	return len(a.diags)
}

// HasErrors reports whether any submitted diagnostic is Severity Error.
func (a *Aggregator) HasErrors() bool {
	for _, d := range a.diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// dedupeKey is the full structural identity from spec.md §4.4. Two
// diagnostics with equal keys are the same diagnostic for dedupe
// purposes; Suggestions are deliberately excluded.
type dedupeKey struct {
	path                         string
	startLine, startCol          int
	endLine, endCol              int
	severity                     Severity
	code, title, message         string
	related                      string
}

func (a *Aggregator) keyOf(d Diagnostic) dedupeKey {
	path := d.PrimarySpan.File
	var startLine, startCol, endLine, endCol int
	if e := a.sources.Get(path); e != nil {
		sp := e.Position(d.PrimarySpan.Start)
		ep := e.Position(d.PrimarySpan.End)
		startLine, startCol = sp.Line, sp.Column
		endLine, endCol = ep.Line, ep.Column
	}
	return dedupeKey{
		path:      path,
		startLine: startLine, startCol: startCol,
		endLine: endLine, endCol: endCol,
		severity: d.Severity,
		code:     d.Code,
		title:    d.Title,
		message:  d.Message,
		related:  relatedTuple(d.Related),
	}
}

func relatedTuple(related []Related) string {
	var b strings.Builder
	for _, r := range related {
		b.WriteString(r.Severity.String())
		b.WriteByte('\x00')
		b.WriteString(r.Message)
		b.WriteByte('\x00')
		if r.Span != nil {
			fmt.Fprintf(&b, "%s\x00%d\x00%d", r.Span.File, r.Span.Start, r.Span.End)
		}
		b.WriteByte('\x1f')
	}
	return b.String()
}

// Dedupe returns a new slice with structurally-duplicate diagnostics
// collapsed to their first occurrence. dedupe(Δ ∪ Δ) == dedupe(Δ).
func (a *Aggregator) Dedupe() []Diagnostic {
	seen := make(map[dedupeKey]bool, len(a.diags))
	out := make([]Diagnostic, 0, len(a.diags))
	for _, d := range a.diags {
		k := a.keyOf(d)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, d)
	}
	return out
}

// Sort returns diags ordered by the total order of spec.md §4.4: file path,
// then line, then column, then severity, then message (for stability).
func (a *Aggregator) Sort(diags []Diagnostic) []Diagnostic {
	out := make([]Diagnostic, len(diags))
	copy(out, diags)
	type keyed struct {
		d Diagnostic
		k dedupeKey
	}
	ks := make([]keyed, len(out))
	for i, d := range out {
		ks[i] = keyed{d, a.keyOf(d)}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		a, b := ks[i].k, ks[j].k
		if a.path != b.path {
			return a.path < b.path
		}
		if a.startLine != b.startLine {
			return a.startLine < b.startLine
		}
		if a.startCol != b.startCol {
			return a.startCol < b.startCol
		}
		if a.severity != b.severity {
			return a.severity < b.severity
		}
		return a.message < b.message
	})
	for i := range ks {
		out[i] = ks[i].d
	}
	return out
}

// Result is the outcome of a Flush: the diagnostics selected for display
// (sorted, deduped, truncated) and counts needed for the summary line.
type Result struct {
	Diagnostics  []Diagnostic
	ErrorCount   int // total distinct errors before truncation
	WarningCount int
	Shown        int // errors actually shown after --max-errors truncation
}

// Flush dedupes and sorts all submitted diagnostics, then truncates the
// error stream to maxErrors (a value < 0 means unlimited). Warnings,
// notes, and help are never truncated.
func (a *Aggregator) Flush(maxErrors int) Result {
	deduped := a.Dedupe()
	sorted := a.Sort(deduped)

	errorCount, warningCount := 0, 0
	for _, d := range sorted {
		switch d.Severity {
		case Error:
			errorCount++
		case Warning:
			warningCount++
		}
	}

	if maxErrors < 0 {
		return Result{Diagnostics: sorted, ErrorCount: errorCount, WarningCount: warningCount, Shown: errorCount}
	}

	out := make([]Diagnostic, 0, len(sorted))
	shown := 0
	for _, d := range sorted {
		if d.Severity == Error {
			if shown >= maxErrors {
				continue
			}
			shown++
		}
		out = append(out, d)
	}
	return Result{Diagnostics: out, ErrorCount: errorCount, WarningCount: warningCount, Shown: shown}
}

// GroupByFile groups diags by file path, preserving the overall sorted
// order both across and within groups (spec.md §4.4 "Grouping").
func GroupByFile(diags []Diagnostic) []FileGroup {
	var groups []FileGroup
	var current *FileGroup
	for _, d := range diags {
		path := d.PrimarySpan.File
		if current == nil || current.Path != path {
			groups = append(groups, FileGroup{Path: path})
			current = &groups[len(groups)-1]
		}
		current.Diagnostics = append(current.Diagnostics, d)
	}
	return groups
}

// FileGroup is one file's worth of diagnostics, in rendering order.
type FileGroup struct {
	Path        string
	Diagnostics []Diagnostic
}

// Package diag implements the diagnostics aggregator: collection,
// deduplication, sorting, truncation, and bit-exact rendering of compiler
// diagnostics (spec.md §4.4).
package diag

import "github.com/flux-lang/flux/internal/token"

// Severity orders diagnostics for both sorting and summary counting.
type Severity int

const (
	Error Severity = iota
	Warning
	Note
	Help
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	case Help:
		return "help"
	default:
		return "unknown"
	}
}

// Span is a half-open byte interval in one source file, shared with the
// token package so AST/token spans can be reported directly.
type Span = token.Span

// Suggestion is a span-based replacement hint, rendered with `~`
// underlines. It never mutates the original source — application is a
// matter for the caller, not this package (spec.md §9).
type Suggestion struct {
	Span            Span
	ReplacementText string
	Label           string
}

// RelatedSeverity is the restricted severity set allowed on a Related entry.
type RelatedSeverity int

const (
	RelatedNote RelatedSeverity = iota
	RelatedHelp
	RelatedRelated
)

func (s RelatedSeverity) String() string {
	switch s {
	case RelatedNote:
		return "note"
	case RelatedHelp:
		return "help"
	case RelatedRelated:
		return "related"
	default:
		return "unknown"
	}
}

// Related is a secondary note/help/related entry attached to a primary
// diagnostic, with an optional sub-location.
type Related struct {
	Severity RelatedSeverity
	Message  string
	Span     *Span
}

// Diagnostic is a structured compiler/linter report. It is a value type:
// equality is structural over every field (spec.md §3).
type Diagnostic struct {
	Severity    Severity
	Code        string // E-code, or "" for an unstable, codeless warning (spec.md §9)
	Title       string
	Message     string
	PrimarySpan Span
	Suggestions []Suggestion
	Related     []Related
}

// New constructs a Diagnostic with no suggestions or related entries.
func New(sev Severity, code, title, message string, span Span) Diagnostic {
	return Diagnostic{
		Severity:    sev,
		Code:        code,
		Title:       title,
		Message:     message,
		PrimarySpan: span,
	}
}

// WithSuggestion returns a copy of d with suggestion appended.
func (d Diagnostic) WithSuggestion(s Suggestion) Diagnostic {
	d.Suggestions = append(append([]Suggestion{}, d.Suggestions...), s)
	return d
}

// WithRelated returns a copy of d with r appended.
func (d Diagnostic) WithRelated(r Related) Diagnostic {
	d.Related = append(append([]Related{}, d.Related...), r)
	return d
}

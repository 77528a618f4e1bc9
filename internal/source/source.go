// Package source owns loaded file contents and implements span -> (line,
// col, snippet) lookups for the lexer and diagnostic renderer.
package source

import (
	"bytes"
	"fmt"
	"sort"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// Normalize strips a UTF-8 BOM, folds CRLF/CR line endings to LF, and
// applies Unicode NFC normalization, so that lexically equivalent source
// produces an identical token stream regardless of encoding or platform
// line-ending choices (spec.md §6.2).
func Normalize(src []byte) []byte {
	src = bytes.TrimPrefix(src, bomUTF8)
	src = bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))
	src = bytes.ReplaceAll(src, []byte("\r"), []byte("\n"))
	if !norm.NFC.IsNormal(src) {
		src = norm.NFC.Bytes(src)
	}
	return src
}

// Entry is one loaded file: its path, normalized bytes, and the sorted
// byte offsets of every line start (line_starts in spec.md §3).
type Entry struct {
	ID         int
	Path       string
	Bytes      []byte
	LineStarts []int
}

// Map owns all loaded source files for one compilation run. It is
// append-only during compilation and read-only once flushed (spec.md §5).
type Map struct {
	entries []*Entry
	byPath  map[string]*Entry
}

// New creates an empty Map.
func New() *Map {
	return &Map{byPath: make(map[string]*Entry)}
}

// Add registers a file's already-normalized contents and returns its Entry.
// Re-adding the same path returns the existing Entry unchanged.
func (m *Map) Add(path string, contents []byte) *Entry {
	if e, ok := m.byPath[path]; ok {
		return e
	}
	e := &Entry{
		ID:         len(m.entries),
		Path:       path,
		Bytes:      contents,
		LineStarts: computeLineStarts(contents),
	}
	m.entries = append(m.entries, e)
	m.byPath[path] = e
	return e
}

// Get returns the Entry for path, or nil if it was never added.
func (m *Map) Get(path string) *Entry {
	return m.byPath[path]
}

func computeLineStarts(b []byte) []int {
	starts := []int{0}
	for i, c := range b {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// Position is a 1-based (line, column) derived from a byte offset.
type Position struct {
	Line   int
	Column int
}

// Position converts a byte offset in this file into a 1-based line/column.
// Column counts runes, not bytes, from the line start, so carets stay
// aligned under multibyte text (spec.md §4.4 "carets aligned under span").
// Offsets past the end of the file clamp to the last valid position.
func (e *Entry) Position(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(e.Bytes) {
		offset = len(e.Bytes)
	}
	// Largest line index whose start is <= offset.
	i := sort.Search(len(e.LineStarts), func(i int) bool {
		return e.LineStarts[i] > offset
	}) - 1
	if i < 0 {
		i = 0
	}
	line := i + 1
	col := utf8.RuneCount(e.Bytes[e.LineStarts[i]:offset]) + 1
	return Position{Line: line, Column: col}
}

// Line returns the raw text of the given 1-based line number, without its
// trailing newline. Out-of-range line numbers return "".
func (e *Entry) Line(n int) string {
	if n < 1 || n > len(e.LineStarts) {
		return ""
	}
	start := e.LineStarts[n-1]
	end := len(e.Bytes)
	if n < len(e.LineStarts) {
		end = e.LineStarts[n] - 1 // exclude the newline itself
	}
	if end < start {
		end = start
	}
	return string(e.Bytes[start:end])
}

// LineCount returns the number of lines recorded for this file.
func (e *Entry) LineCount() int {
	return len(e.LineStarts)
}

// Snippet formats "path:line:col" for error messages and logs.
func (e *Entry) Snippet(offset int) string {
	p := e.Position(offset)
	return fmt.Sprintf("%s:%d:%d", e.Path, p.Line, p.Column)
}

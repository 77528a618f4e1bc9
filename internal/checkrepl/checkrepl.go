// Package checkrepl is an interactive front end over the lex/parse/resolve
// pipeline: it reads one fragment at a time, runs it through the same
// checks `flux check` runs on a whole file, and prints whatever
// diagnostics come out. It never evaluates anything.
package checkrepl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/flux-lang/flux/internal/diag"
	"github.com/flux-lang/flux/internal/lexer"
	"github.com/flux-lang/flux/internal/loader"
	"github.com/flux-lang/flux/internal/module"
	"github.com/flux-lang/flux/internal/parser"
	"github.com/flux-lang/flux/internal/source"
)

var (
	bold = color.New(color.Bold).SprintFunc()
	dim  = color.New(color.Faint).SprintFunc()
	ok   = color.New(color.FgGreen).SprintFunc()
)

// Checker holds the state shared across fragments in one interactive
// session: a source map whose entries accumulate (so earlier fragments
// stay available to the source map's span rendering) and the loader whose
// module roots each fragment's fresh resolver searches.
type Checker struct {
	loader    *loader.FileLoader
	sources   *source.Map
	maxErrors int
	count     int
}

// New creates a Checker over the given module roots.
func New(ld *loader.FileLoader, maxErrors int) *Checker {
	return &Checker{loader: ld, sources: source.New(), maxErrors: maxErrors}
}

// Start runs the interactive loop until EOF or `:quit`, writing the banner
// and each fragment's output to out. liner reads input and draws prompts on
// the terminal directly, as the teacher's REPL does; history is kept in a
// file under os.TempDir().
func (c *Checker) Start(out io.Writer) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(true)

	historyFile := filepath.Join(os.TempDir(), ".flux_check_history")
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	fmt.Fprintln(out, bold("flux check"), dim("— type an expression or declaration, :quit to exit"))

	for {
		input, err := line.Prompt("flux> ")
		if err == io.EOF {
			fmt.Fprintln(out, dim("\nbye"))
			break
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == ":quit" || input == ":q" || input == ":exit" {
			break
		}
		line.AppendHistory(input)
		c.checkFragment(input, out)
	}

	if f, err := os.Create(historyFile); err == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}

// checkFragment lexes, parses, and resolves one fragment, printing its
// diagnostics (or a clean confirmation) to out.
func (c *Checker) checkFragment(input string, out io.Writer) {
	c.count++
	path := fmt.Sprintf("<check-%d>", c.count)
	entry := c.sources.Add(path, source.Normalize([]byte(input)))

	diags := diag.NewAggregator(c.sources)
	toks := lexer.Tokenize(entry.Bytes, path, diags)
	file := parser.ParseFile(path, toks, diags)

	resolver := module.NewResolver(c.loader, c.sources, diags)
	bindings := resolver.ResolveImports(file)
	resolver.CheckQualifiedAccess(file, bindings)

	res := diags.Flush(c.maxErrors)
	if len(res.Diagnostics) == 0 {
		fmt.Fprintln(out, ok("no diagnostics"))
		return
	}
	fmt.Fprint(out, diag.Render(res, c.sources, c.maxErrors))
}

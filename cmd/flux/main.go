package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/flux-lang/flux/internal/checkrepl"
	"github.com/flux-lang/flux/internal/config"
	"github.com/flux-lang/flux/internal/diag"
	"github.com/flux-lang/flux/internal/loader"
	"github.com/flux-lang/flux/internal/module"
	"github.com/flux-lang/flux/internal/source"
)

var (
	red  = color.New(color.FgRed).SprintFunc()
	bold = color.New(color.Bold).SprintFunc()
	dim  = color.New(color.Faint).SprintFunc()
)

// rootList collects repeated --root flags in the order given.
type rootList []string

func (r *rootList) String() string { return strings.Join(*r, ",") }
func (r *rootList) Set(v string) error {
	*r = append(*r, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) > 0 && args[0] == "check" {
		return runCheck(args[1:])
	}
	return runOnce(args)
}

// runOnce implements the one-shot `flux [OPTIONS] <entry.flx>` surface
// (spec.md §6.1).
func runOnce(args []string) int {
	fs := flag.NewFlagSet("flux", flag.ContinueOnError)
	var roots rootList
	fs.Var(&roots, "root", "add a module root (repeatable)")
	rootsOnly := fs.Bool("roots-only", false, "disable the implicit project root")
	maxErrors := fs.Int("max-errors", -1, "truncate error output to N (-1 for unlimited)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "%s: expected exactly one entry file\n", red("Error"))
		fmt.Fprintln(os.Stderr, "Usage: flux [OPTIONS] <entry.flx>")
		return 2
	}
	entry := fs.Arg(0)

	cfg, projectRoot, _ := config.LoadFromProjectRoot(filepath.Dir(entry))
	effectiveRoots := append([]string{}, []string(roots)...)
	if len(effectiveRoots) == 0 {
		effectiveRoots = cfg.Roots
	}
	if cfg.MaxErrors != 0 && !flagPassed(fs, "max-errors") {
		*maxErrors = cfg.MaxErrors
	}

	implicit := ""
	if !*rootsOnly {
		implicit = projectRoot
	}
	ld := loader.New(effectiveRoots, implicit, *rootsOnly)

	sources := source.New()
	diags := diag.NewAggregator(sources)
	resolver := module.NewResolver(ld, sources, diags)

	relEntry, err := filepath.Rel(projectRoot, entry)
	if err != nil || strings.HasPrefix(relEntry, "..") {
		relEntry = filepath.Base(entry)
	}
	file, err := resolver.ParseEntryFile(relEntry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", red("Error"), entry, err)
		return 2
	}

	bindings := resolver.ResolveImports(file)
	resolver.CheckQualifiedAccess(file, bindings)

	res := diags.Flush(*maxErrors)
	if len(res.Diagnostics) > 0 {
		fmt.Fprint(os.Stderr, diag.Render(res, sources, *maxErrors))
	}
	if res.ErrorCount > 0 {
		return 1
	}
	return 0
}

// runCheck implements `flux check [-i] [<entry.flx>]`.
func runCheck(args []string) int {
	fs := flag.NewFlagSet("flux check", flag.ContinueOnError)
	var roots rootList
	fs.Var(&roots, "root", "add a module root (repeatable)")
	rootsOnly := fs.Bool("roots-only", false, "disable the implicit cwd root")
	maxErrors := fs.Int("max-errors", -1, "truncate error output to N (-1 for unlimited)")
	interactive := fs.Bool("i", false, "start an interactive check session")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *interactive {
		cwd, _ := os.Getwd()
		implicit := ""
		if !*rootsOnly {
			implicit = cwd
		}
		ld := loader.New(roots, implicit, *rootsOnly)
		fmt.Println(bold("flux"), dim("interactive check mode"))
		checkrepl.New(ld, *maxErrors).Start(os.Stdout)
		return 0
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "%s: expected exactly one entry file\n", red("Error"))
		fmt.Fprintln(os.Stderr, "Usage: flux check [-i] <entry.flx>")
		return 2
	}
	return runOnce(args)
}

func flagPassed(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

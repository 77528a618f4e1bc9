// Package module implements name/module resolution (spec.md §4.3): dotted
// name <-> file path mapping, module-decl validation, import scope and
// privacy checks, and cycle-safe resolution across module imports.
package module

import (
	"fmt"
	"strings"

	"github.com/flux-lang/flux/internal/ast"
	"github.com/flux-lang/flux/internal/diag"
	"github.com/flux-lang/flux/internal/lexer"
	"github.com/flux-lang/flux/internal/loader"
	"github.com/flux-lang/flux/internal/parser"
	"github.com/flux-lang/flux/internal/source"
)

// Descriptor is the immutable-once-built record for one resolved module
// file (spec.md §3 "Module descriptor"). A descriptor is created exactly
// once per logical name; reentrant resolution during a cycle returns the
// same (possibly still-empty) descriptor rather than recursing forever.
type Descriptor struct {
	Name    string // dotted segments joined by "."
	Path    string // absolute/loader path this was read from, "" if unresolved
	File    *ast.File
	Imports []*ast.ImportDecl
	Decls   []ast.Decl
	Exports map[string]ast.Decl // public (non "_"-prefixed) top-level decls, by name

	found       bool // a readable file was found at all
	hasModule   bool // file.Module != nil
	resolveDone bool // resolution (parse + export extraction) has completed
}

// Resolver resolves dotted module names to descriptors, tracks per-file
// import bindings for alias-use checking, and reports N's diagnostics
// (E008, E011, E013, E018, E022, E024) into the shared aggregator.
type Resolver struct {
	loader  *loader.FileLoader
	sources *source.Map
	diags   *diag.Aggregator

	cache map[string]*Descriptor // logical name -> descriptor (may be partial)
}

// NewResolver creates a Resolver backed by ld for file access, sources for
// byte/line bookkeeping, and diags as the sink for every diagnostic it
// raises.
func NewResolver(ld *loader.FileLoader, sources *source.Map, diags *diag.Aggregator) *Resolver {
	return &Resolver{
		loader:  ld,
		sources: sources,
		diags:   diags,
		cache:   make(map[string]*Descriptor),
	}
}

// DottedToPath maps a dotted module name to its expected relative file
// path: `A.B.C` -> `A/B/C.flx` (spec.md §4.3, §6.2).
func DottedToPath(dotted string) string {
	segs := strings.Split(dotted, ".")
	return strings.Join(segs, "/") + ".flx"
}

// PathToDotted maps a relative `.flx` path back to its dotted name: the
// inverse of DottedToPath, used to validate a module-decl against the
// file it was found in (E024).
func PathToDotted(relPath string) string {
	trimmed := strings.TrimSuffix(relPath, ".flx")
	trimmed = strings.ReplaceAll(trimmed, "\\", "/")
	return strings.Join(strings.Split(trimmed, "/"), ".")
}

// segmentNameValid checks every dot-separated segment of name against the
// segment naming rule `^[A-Z][A-Za-z0-9]*$` (spec.md §6.2). Duplicated from
// internal/parser's unexported helper of the same shape since the rule
// applies in both the syntactic (module-decl, alias) and resolution
// (path-mapping) contexts.
func segmentNameValid(name string) bool {
	if name == "" {
		return false
	}
	for _, seg := range strings.Split(name, ".") {
		if !segmentValid(seg) {
			return false
		}
	}
	return true
}

func segmentValid(seg string) bool {
	if seg == "" {
		return false
	}
	if seg[0] < 'A' || seg[0] > 'Z' {
		return false
	}
	for i := 1; i < len(seg); i++ {
		c := seg[i]
		alnum := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
		if !alnum {
			return false
		}
	}
	return true
}

// Resolve resolves dotted to a Descriptor, loading and parsing its file on
// first encounter. The (possibly still-empty) Descriptor is registered in
// the cache before its own imports are recursed into, so a cyclic import
// graph re-enters Resolve, hits the cache, and gets back the
// partially-built Descriptor instead of recursing forever — cycles are
// permitted for name resolution (spec.md §4.3 "Resolution algorithm").
func (r *Resolver) Resolve(dotted string) *Descriptor {
	if d, ok := r.cache[dotted]; ok {
		return d
	}

	d := &Descriptor{Name: dotted, Exports: make(map[string]ast.Decl)}
	r.cache[dotted] = d

	relPath := DottedToPath(dotted)
	absPath, contents, err := r.loader.Load(relPath)
	if err != nil {
		return d // not found; caller (ResolveImport) reports E018
	}
	d.found = true
	d.Path = absPath

	entry := r.sources.Add(absPath, source.Normalize(contents))
	toks := lexer.Tokenize(entry.Bytes, absPath, r.diags)
	file := parser.ParseFile(absPath, toks, r.diags)
	d.File = file
	d.hasModule = file.Module != nil
	d.Decls = declsOf(file)
	d.Imports = importsOf(file)

	if d.hasModule {
		r.validateModulePath(file.Module, dotted, relPath)
	}

	for _, decl := range d.Decls {
		if name, ok := declName(decl); ok && !strings.HasPrefix(name, "_") {
			d.Exports[name] = decl
		}
	}

	// Recurse into this file's own imports so a transitive cycle is
	// discovered (and partially resolved) before any caller asks for it by
	// name.
	for _, imp := range d.Imports {
		r.Resolve(strings.Join(imp.Target, "."))
	}

	d.resolveDone = true
	return d
}

// ParseEntryFile loads, lexes, and parses relPath as the driver's entry
// file, independent of any dotted module name (the entry file is commonly
// a script with no module-decl, per spec.md §1's `flux <entry.flx>` CLI
// surface). It is not cached under a dotted name the way Resolve's targets
// are, since an entry file is identified by path, not by import.
func (r *Resolver) ParseEntryFile(relPath string) (*ast.File, error) {
	absPath, contents, err := r.loader.Load(relPath)
	if err != nil {
		return nil, err
	}
	entry := r.sources.Add(absPath, source.Normalize(contents))
	toks := lexer.Tokenize(entry.Bytes, absPath, r.diags)
	return parser.ParseFile(absPath, toks, r.diags), nil
}

// declsOf returns a file's non-import declarations: the module body's, if
// it is a module file (decls there are nested under Module.Body, not
// File.Decls), or the top-level ones otherwise.
func declsOf(file *ast.File) []ast.Decl {
	if file.Module == nil {
		return file.Decls
	}
	var out []ast.Decl
	for _, d := range file.Module.Body {
		if _, isImport := d.(*ast.ImportDecl); !isImport {
			out = append(out, d)
		}
	}
	return out
}

// importsOf returns every import declaration reachable from file: its
// top-level imports (script files) plus its module body's (module files).
func importsOf(file *ast.File) []*ast.ImportDecl {
	out := append([]*ast.ImportDecl{}, file.Imports...)
	if file.Module != nil {
		for _, d := range file.Module.Body {
			if imp, ok := d.(*ast.ImportDecl); ok {
				out = append(out, imp)
			}
		}
	}
	return out
}

func declName(d ast.Decl) (string, bool) {
	switch v := d.(type) {
	case *ast.LetDecl:
		return v.Name, true
	case *ast.FunDecl:
		return v.Name, true
	default:
		return "", false
	}
}

// validateModulePath enforces E024 MODULE PATH MISMATCH: the declared
// dotted name of a module file must equal the dotted form of its path
// relative to the root it was found under (spec.md §4.3).
func (r *Resolver) validateModulePath(m *ast.ModuleDecl, expectedDotted, relPath string) {
	if m.Name == expectedDotted {
		return
	}
	expected := PathToDotted(relPath)
	r.diags.Submit(diag.New(diag.Error, diag.EModulePathMismatch, "MODULE PATH MISMATCH",
		fmt.Sprintf("module declares %q but its file path requires %q", m.Name, expected), m.Span()))
}

// ImportBinding records one resolved import in the importing file: its
// dotted target, optional alias, and the descriptor it resolved to.
type ImportBinding struct {
	Target []string
	Alias  string
	Span   ast.Span
	Desc   *Descriptor
}

// ResolveImports validates and resolves every import in file (one per
// ast.ImportDecl), reporting E008 (bad target segment), E018 (not found),
// and E022 (script target) as it goes, and returns the resulting bindings
// for later use by CheckQualifiedAccess.
func (r *Resolver) ResolveImports(file *ast.File) []ImportBinding {
	r.warnLateImports(file)

	var bindings []ImportBinding
	for _, imp := range importsOf(file) {
		dotted := strings.Join(imp.Target, ".")
		if !segmentNameValid(dotted) {
			r.diags.Submit(diag.New(diag.Error, diag.EInvalidModuleName, "INVALID MODULE NAME",
				fmt.Sprintf("%q is not a valid module name: each segment must match ^[A-Z][A-Za-z0-9]*$", dotted), imp.Span()))
			continue
		}

		desc := r.Resolve(dotted)
		if !desc.found {
			r.diags.Submit(diag.New(diag.Error, diag.EImportNotFound, "IMPORT NOT FOUND",
				fmt.Sprintf("module %q not found under any configured root", dotted), imp.Span()))
			continue
		}
		if !desc.hasModule {
			r.diags.Submit(diag.New(diag.Error, diag.EScriptNotImportable, "SCRIPT NOT IMPORTABLE",
				fmt.Sprintf("%q has no module declaration and cannot be imported", dotted), imp.Span()))
			continue
		}

		bindings = append(bindings, ImportBinding{Target: imp.Target, Alias: imp.Alias, Span: imp.Span(), Desc: desc})
	}
	return bindings
}

// warnLateImports flags a script file's top-level import that follows some
// other top-level item: spec.md §9 notes this "may compile" but warns
// against relying on it, and explicitly says not to invent a stable code
// for it, so this is emitted as an uncoded warning.
func (r *Resolver) warnLateImports(file *ast.File) {
	if file.Module != nil {
		return
	}
	sawOther := false
	for _, item := range file.Items {
		switch v := item.(type) {
		case *ast.ImportDecl:
			if sawOther {
				r.diags.Submit(diag.New(diag.Warning, "", "IMPORT AFTER TOP-LEVEL STATEMENT",
					"this import follows another top-level item; placement here is accepted but not guaranteed to remain stable", v.Span()))
			}
		default:
			sawOther = true
		}
	}
}

// CheckQualifiedAccess walks file for dotted member-access chains
// (`Alias.name`, or the unaliased `A.B.name`) and validates each against
// bindings: E013 MODULE NOT IMPORTED when an aliased module is referenced
// by its original dotted name instead of its alias, and E011 PRIVATE
// MEMBER (with a related note at the declaration) when the first segment
// after the module names a "_"-prefixed, non-exported symbol (spec.md §4.3).
func (r *Resolver) CheckQualifiedAccess(file *ast.File, bindings []ImportBinding) {
	walkFile(file, func(n ast.Node) {
		m, ok := n.(*ast.Member)
		if !ok {
			return
		}
		segs, ok := flattenQualified(m)
		if !ok || len(segs) < 2 {
			return
		}
		r.checkChain(segs, m.Span(), bindings)
	})
}

// checkChain inspects one flattened dotted chain (e.g. ["P", "_private"]
// or ["Demo", "PrivateTest", "_private"]) against the file's import
// bindings.
func (r *Resolver) checkChain(segs []string, span ast.Span, bindings []ImportBinding) {
	root := segs[0]

	for _, b := range bindings {
		if b.Alias != "" && b.Alias == root {
			r.checkPrivacy(b.Desc, segs[1:], span)
			return
		}
	}
	for _, b := range bindings {
		if len(b.Target) > 0 && b.Target[0] == root {
			if b.Alias != "" {
				r.diags.Submit(diag.New(diag.Error, diag.EModuleNotImported, "MODULE NOT IMPORTED",
					fmt.Sprintf("%q was imported as %q; use the alias instead of the original name", strings.Join(b.Target, "."), b.Alias), span))
				return
			}
			rest := segs[len(b.Target):]
			r.checkPrivacy(b.Desc, rest, span)
			return
		}
	}
}

func (r *Resolver) checkPrivacy(desc *Descriptor, memberSegs []string, span ast.Span) {
	if len(memberSegs) == 0 {
		return
	}
	name := memberSegs[0]
	if !strings.HasPrefix(name, "_") {
		return
	}
	d := diag.New(diag.Error, diag.EPrivateMember, "PRIVATE MEMBER",
		fmt.Sprintf("%q is private to module %q", name, desc.Name), span)
	if decl, ok := findDecl(desc, name); ok {
		d = d.WithRelated(diag.Related{Severity: diag.RelatedNote, Message: "declared here", Span: declSpan(decl)})
	}
	r.diags.Submit(d)
}

func findDecl(desc *Descriptor, name string) (ast.Decl, bool) {
	for _, decl := range desc.Decls {
		if n, ok := declName(decl); ok && n == name {
			return decl, true
		}
	}
	return nil, false
}

func declSpan(d ast.Decl) *ast.Span {
	sp := d.Span()
	return &sp
}

// flattenQualified reduces a chain of nested Member/Identifier nodes into
// its dotted segments in left-to-right order, e.g. `A.B.c` ->
// ["A", "B", "c"]. Returns ok=false if the chain's root is not a bare
// identifier (e.g. it starts with a call or literal).
func flattenQualified(expr ast.Expr) ([]string, bool) {
	var segs []string
	for {
		switch v := expr.(type) {
		case *ast.Member:
			segs = append([]string{v.Name}, segs...)
			expr = v.Target
		case *ast.Identifier:
			segs = append([]string{v.Name}, segs...)
			return segs, true
		default:
			return nil, false
		}
	}
}

// walkFile visits every expression-bearing node reachable from file,
// calling visit on each. It is a plain recursive descent, not a general
// visitor interface, since N only needs to find Member chains.
func walkFile(file *ast.File, visit func(ast.Node)) {
	for _, d := range declsOf(file) {
		walkNode(d, visit)
	}
	for _, e := range file.Exprs {
		walkNode(e, visit)
	}
}

func walkNode(n ast.Node, visit func(ast.Node)) {
	if n == nil {
		return
	}
	visit(n)
	switch v := n.(type) {
	case *ast.LetDecl:
		walkNode(v.Value, visit)
	case *ast.FunDecl:
		walkNode(v.Body, visit)
	case *ast.Block:
		for _, s := range v.Stmts {
			walkNode(s, visit)
		}
		walkNode(v.Value, visit)
	case *ast.ReturnStmt:
		walkNode(v.Value, visit)
	case *ast.Call:
		walkNode(v.Callee, visit)
		for _, a := range v.Args {
			walkNode(a, visit)
		}
	case *ast.Member:
		walkNode(v.Target, visit)
	case *ast.Binary:
		walkNode(v.Left, visit)
		walkNode(v.Right, visit)
	case *ast.Unary:
		walkNode(v.Expr, visit)
	case *ast.If:
		walkNode(v.Cond, visit)
		walkNode(v.Then, visit)
		walkNode(v.Else, visit)
	case *ast.Match:
		walkNode(v.Subject, visit)
		for _, arm := range v.Arms {
			walkNode(arm.Body, visit)
		}
	}
}

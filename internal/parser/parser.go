// Package parser turns a token stream into an AST, applying Flux's
// semicolon-insertion and module-file rules as it goes (spec.md §4.2).
// Parsing never aborts: on an unexpected token the parser submits a
// diagnostic, skips to the next recovery point, and resumes so later
// stages can surface further distinct issues.
package parser

import (
	"fmt"
	"strconv"

	"github.com/flux-lang/flux/internal/ast"
	"github.com/flux-lang/flux/internal/diag"
	"github.com/flux-lang/flux/internal/token"
)

// Precedence levels for the Pratt expression parser, lowest to highest.
const (
	lowest int = iota
	precPipe
	precOr
	precAnd
	precEquality
	precCompare
	precSum
	precProduct
	precPrefix
	precCall
	precMember
)

var precedences = map[token.Kind]int{
	token.PIPE_GT: precPipe,
	token.OR:      precOr,
	token.AND:     precAnd,
	token.EQ:      precEquality,
	token.NEQ:     precEquality,
	token.LT:      precCompare,
	token.GT:      precCompare,
	token.LTE:     precCompare,
	token.GTE:     precCompare,
	token.PLUS:    precSum,
	token.MINUS:   precSum,
	token.STAR:    precProduct,
	token.SLASH:   precProduct,
	token.PERCENT: precProduct,
	token.LPAREN:  precCall,
	token.DOT:     precMember,
}

// confusable maps a commonly mistyped keyword-shaped identifier to the
// keyword the author almost certainly meant.
var confusable = map[string]string{
	"fn":       "fun",
	"function": "fun",
	"def":      "fun",
}

type prefixFn func() ast.Expr
type infixFn func(ast.Expr) ast.Expr

// Parser consumes a pre-lexed token slice for one file.
type Parser struct {
	file  string
	toks  []token.Token
	pos   int
	diags *diag.Aggregator
	ids   ast.IDGen

	// lastDottedSegments holds the segments most recently parsed by
	// parseDottedNameRaw, consumed immediately by its caller.
	lastDottedSegments []string

	// nestDepth counts how many paren nestings (grouped expressions, call
	// argument lists) the Pratt loop is currently inside. A newline only
	// establishes a statement boundary at depth 0 (spec.md §4.2); inside
	// nesting it is just whitespace.
	nestDepth int

	prefixFns map[token.Kind]prefixFn
	infixFns  map[token.Kind]infixFn
}

// New creates a Parser over toks (as produced by internal/lexer.Tokenize),
// submitting diagnostics to diags.
func New(file string, toks []token.Token, diags *diag.Aggregator) *Parser {
	p := &Parser{file: file, toks: toks, diags: diags}

	p.prefixFns = map[token.Kind]prefixFn{
		token.IDENT:  p.parseIdentifier,
		token.INT:    p.parseIntLiteral,
		token.STRING: p.parseStringLiteral,
		token.TRUE:   p.parseBoolLiteral,
		token.FALSE:  p.parseBoolLiteral,
		token.MINUS:  p.parseUnary,
		token.LPAREN: p.parseGrouped,
		token.IF:     p.parseIf,
		token.MATCH:  p.parseMatch,
	}
	p.infixFns = map[token.Kind]infixFn{
		token.PLUS:    p.parseBinary,
		token.MINUS:   p.parseBinary,
		token.STAR:    p.parseBinary,
		token.SLASH:   p.parseBinary,
		token.PERCENT: p.parseBinary,
		token.EQ:      p.parseBinary,
		token.NEQ:     p.parseBinary,
		token.LT:      p.parseBinary,
		token.GT:      p.parseBinary,
		token.LTE:     p.parseBinary,
		token.GTE:     p.parseBinary,
		token.AND:     p.parseBinary,
		token.OR:      p.parseBinary,
		token.PIPE_GT: p.parseBinary,
		token.LPAREN:  p.parseCall,
		token.DOT:     p.parseMember,
	}
	return p
}

// ParseFile parses one entire file and validates its module-file shape
// (spec.md §4.2 "Module-file validation"). It never returns an error;
// failures are reported through the Aggregator passed to New.
func ParseFile(file string, toks []token.Token, diags *diag.Aggregator) *ast.File {
	p := New(file, toks, diags)
	return p.parseFile()
}

func (p *Parser) cur() token.Token  { return p.toks[p.pos] }
func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

// skipNewlines discards any NEWLINE tokens at the current position; used
// inside nested parens/brackets and inside blocks, where a line break
// carries no statement-boundary meaning (spec.md §4.2).
func (p *Parser) skipNewlines() {
	for p.at(token.NEWLINE) {
		p.advance()
	}
}

func (p *Parser) newNode(span token.Span) ast.NodeID {
	return p.ids.Next()
}

func (p *Parser) emit(code, title, message string, sp token.Span) {
	p.diags.Submit(diag.New(diag.Error, code, title, message, sp))
}

func (p *Parser) emitWithSuggestion(code, title, message string, sp token.Span, sug diag.Suggestion) {
	p.diags.Submit(diag.New(diag.Error, code, title, message, sp).WithSuggestion(sug))
}

// parseFile implements `file := { top_item }` plus the module-file
// validation rules: at most one module-decl, which (if present at all)
// must be the file's only top-level item.
func (p *Parser) parseFile() *ast.File {
	f := &ast.File{Path: p.file}
	moduleCount := 0

	for !p.at(token.EOF) {
		p.skipLeadingSeparators()
		if p.at(token.EOF) {
			break
		}

		item := p.parseTopItem()
		if item == nil {
			p.recoverStatement()
			if p.at(token.RBRACE) {
				p.advance() // a stray `}` has no enclosing body to close
			}
			continue
		}

		switch v := item.(type) {
		case *ast.ModuleDecl:
			moduleCount++
			if moduleCount > 1 {
				p.emit(diag.EMultipleModules, "MULTIPLE MODULES",
					fmt.Sprintf("a second module declaration %q was found; a file may declare at most one module", v.Name), v.Span())
			} else if len(f.Items) > 0 {
				p.emit(diag.EInvalidModuleFile, "INVALID MODULE FILE",
					"a module declaration must be the file's only top-level item", v.Span())
			}
			f.Module = v
		case *ast.ImportDecl:
			if moduleCount > 0 {
				p.emit(diag.EInvalidModuleFile, "INVALID MODULE FILE",
					"top-level items are not allowed alongside a module declaration", v.Span())
			}
			f.Imports = append(f.Imports, v)
		default:
			if moduleCount > 0 {
				p.emit(diag.EInvalidModuleFile, "INVALID MODULE FILE",
					"top-level items are not allowed alongside a module declaration", item.Span())
			}
			switch d := item.(type) {
			case ast.Decl:
				f.Decls = append(f.Decls, d)
			case ast.Expr:
				f.Exprs = append(f.Exprs, d)
			}
		}
		f.Items = append(f.Items, item)

		p.checkLetLetAmbiguity(f.Items)
		p.expectTopLevelTerminator()
	}
	return f
}

// skipLeadingSeparators consumes stray NEWLINE/SEMICOLON tokens between
// top-level items.
func (p *Parser) skipLeadingSeparators() {
	for p.at(token.NEWLINE) || p.at(token.SEMICOLON) {
		p.advance()
	}
}

// checkLetLetAmbiguity honors the documented quirk: two consecutive
// top-level let-decls separated only by a blank line (no explicit `;`)
// are flagged as ambiguous even though they parse successfully as two
// declarations (spec.md §4.2 "Parser quirk honored").
func (p *Parser) checkLetLetAmbiguity(items []ast.Node) {
	if len(items) < 2 {
		return
	}
	prev, ok1 := items[len(items)-2].(*ast.LetDecl)
	cur, ok2 := items[len(items)-1].(*ast.LetDecl)
	if !ok1 || !ok2 {
		return
	}
	// The separator between them was already consumed as part of
	// expectTopLevelTerminator for items[len-2]; inspect the token just
	// before cur's span to see whether it was a blank-line newline.
	sepIdx := p.tokenBefore(cur.Span().Start)
	if sepIdx < 0 || p.toks[sepIdx].Kind != token.NEWLINE {
		return
	}
	if n, err := strconv.Atoi(p.toks[sepIdx].Literal); err != nil || n < 2 {
		return
	}
	for i := sepIdx; i >= 0 && p.toks[i].Span.Start >= prev.Span().End; i-- {
		if p.toks[i].Kind == token.SEMICOLON {
			return
		}
	}
	p.emitWithSuggestion(diag.EUnexpectedToken, "UNEXPECTED TOKEN",
		"consecutive `let` declarations separated only by a blank line are ambiguous; "+
			"separate them with an explicit `;` or an intervening statement",
		cur.Span(),
		diag.Suggestion{Span: token.Span{File: p.file, Start: prev.Span().End, End: prev.Span().End}, ReplacementText: ";", Label: "insert `;` after the previous `let`"})
}

// tokenBefore finds the index of the last token whose span ends at or
// before offset, scanning from the current parse position backward.
func (p *Parser) tokenBefore(offset int) int {
	for i := p.pos; i >= 0; i-- {
		if p.toks[i].Span.End <= offset {
			return i
		}
	}
	return -1
}

// expectTopLevelTerminator enforces top-level mode's semicolon rule: a
// boundary is an explicit `;`, a newline outside nesting, or EOF.
// Anything else is an unexpected token glued onto the same line.
func (p *Parser) expectTopLevelTerminator() {
	if p.at(token.SEMICOLON) {
		p.advance()
		p.skipLeadingSeparators()
		return
	}
	if p.at(token.NEWLINE) {
		p.advance()
		return
	}
	if p.at(token.EOF) {
		return
	}
	p.emitWithSuggestion(diag.EUnexpectedToken, "UNEXPECTED TOKEN",
		fmt.Sprintf("expected `;` or a newline before %q", p.cur().Literal), p.cur().Span,
		diag.Suggestion{Span: token.Span{File: p.file, Start: p.cur().Span.Start, End: p.cur().Span.Start}, ReplacementText: ";\n", Label: "insert `;` to separate statements"})
	p.recoverStatement()
}

// recoverStatement skips tokens until the next plausible statement
// boundary: `;`, NEWLINE, a closing brace, or EOF (spec.md §4.2
// "Error recovery").
func (p *Parser) recoverStatement() {
	for !p.at(token.EOF) && !p.at(token.SEMICOLON) && !p.at(token.NEWLINE) && !p.at(token.RBRACE) {
		p.advance()
	}
	if p.at(token.SEMICOLON) || p.at(token.NEWLINE) {
		p.advance()
	}
}

func (p *Parser) parseTopItem() ast.Node {
	switch p.cur().Kind {
	case token.IMPORT:
		return p.parseImportDecl()
	case token.MODULE:
		return p.parseModuleDecl()
	case token.LET:
		return p.parseLetDecl()
	case token.FUN:
		return p.parseFunDecl()
	case token.IDENT:
		if kw, ok := confusable[p.cur().Literal]; ok {
			return p.recoverFromUnknownKeyword(diag.EUnknownKeyword, kw)
		}
		return p.parseExpr(lowest)
	default:
		return p.parseExpr(lowest)
	}
}

func (p *Parser) reportUnknownKeyword(code, suggestedKeyword string) {
	t := p.cur()
	p.emitWithSuggestion(code, "UNKNOWN KEYWORD",
		fmt.Sprintf("%q is not a keyword; did you mean %q?", t.Literal, suggestedKeyword), t.Span,
		diag.Suggestion{Span: t.Span, ReplacementText: suggestedKeyword, Label: fmt.Sprintf("replace %q with %q", t.Literal, suggestedKeyword)})
}

// recoverFromUnknownKeyword reports the mistyped keyword and, when it
// stands for `fun`, keeps parsing the rest of the construct as a normal
// function declaration instead of discarding it — the only keyword
// confusable with a following parameter list and block (spec.md §4.1
// "unknown keyword-shaped identifier").
func (p *Parser) recoverFromUnknownKeyword(code, suggestedKeyword string) ast.Node {
	p.reportUnknownKeyword(code, suggestedKeyword)
	if suggestedKeyword != "fun" {
		p.recoverStatement()
		return nil
	}
	start := p.cur().Span.Start
	p.advance() // the mistyped keyword
	return p.finishFunDecl(start)
}

// parseModuleDecl parses `module A.B.C { module_item* }`.
func (p *Parser) parseModuleDecl() *ast.ModuleDecl {
	start := p.cur().Span.Start
	p.advance() // 'module'

	name, nameSpan, ok := p.parseDottedName()
	if !ok {
		p.emit(diag.EInvalidModuleName, "INVALID MODULE NAME", "expected a dotted module name after `module`", p.cur().Span)
	}
	if ok && !segmentNameValid(name) {
		p.emit(diag.EInvalidModuleName, "INVALID MODULE NAME",
			fmt.Sprintf("module name %q: every segment must start with an uppercase letter and contain only letters and digits", name), nameSpan)
	}

	p.skipNewlines()
	if !p.at(token.LBRACE) {
		p.emit(diag.EMissingDelimiter, "MISSING DELIMITER", "expected `{` to open the module body", p.cur().Span)
		end := p.toks[p.pos].Span
		sp := token.Span{File: p.file, Start: start, End: end.End}
		return &ast.ModuleDecl{Base: ast.NewBase(p.newNode(sp), sp), Name: name}
	}
	p.advance() // '{'
	p.skipNewlines()

	var body []ast.Decl
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		p.skipNewlines()
		if p.at(token.RBRACE) {
			break
		}
		item := p.parseModuleItem()
		if item != nil {
			body = append(body, item)
		} else {
			p.recoverStatement()
		}
		p.expectBlockSeparatorOrClose(token.RBRACE)
	}
	end := p.cur().Span
	if p.at(token.RBRACE) {
		p.advance()
	} else {
		p.emit(diag.EMissingDelimiter, "MISSING DELIMITER", "expected `}` to close the module body", end)
	}

	sp := token.Span{File: p.file, Start: start, End: end.End}
	return &ast.ModuleDecl{Base: ast.NewBase(p.newNode(sp), sp), Name: name, Body: body}
}

func (p *Parser) parseModuleItem() ast.Decl {
	switch p.cur().Kind {
	case token.IMPORT:
		return p.parseImportDecl()
	case token.LET:
		return p.parseLetDecl()
	case token.FUN:
		return p.parseFunDecl()
	default:
		p.emit(diag.EInvalidFunction, "INVALID FUNCTION DECLARATION",
			fmt.Sprintf("expected `import`, `let`, or `fun` inside a module body, found %q", p.cur().Literal), p.cur().Span)
		return nil
	}
}

// expectBlockSeparatorOrClose consumes `;`/NEWLINE separators between
// items inside a brace-delimited body, or leaves the position at close.
func (p *Parser) expectBlockSeparatorOrClose(close token.Kind) {
	if p.at(close) || p.at(token.EOF) {
		return
	}
	if p.at(token.SEMICOLON) {
		p.advance()
		p.skipNewlines()
		return
	}
	if p.at(token.NEWLINE) {
		p.advance()
		return
	}
}

// parseImportDecl parses `import A.B.C [as Alias]`.
func (p *Parser) parseImportDecl() *ast.ImportDecl {
	start := p.cur().Span.Start
	p.advance() // 'import'

	_, nameSpan, ok := p.parseDottedNameRaw()
	if !ok {
		p.emit(diag.EInvalidImport, "INVALID IMPORT", "expected a dotted module name after `import`", p.cur().Span)
	}

	alias := ""
	end := nameSpan.End
	if p.at(token.AS) {
		p.advance()
		if p.at(token.IDENT) {
			alias = p.cur().Literal
			end = p.cur().Span.End
			if !segmentNameValid(alias) {
				p.emit(diag.EInvalidModuleAlias, "INVALID MODULE ALIAS",
					fmt.Sprintf("alias %q must start with an uppercase letter and contain only letters and digits", alias), p.cur().Span)
			}
			p.advance()
		} else {
			p.emit(diag.EInvalidModuleAlias, "INVALID MODULE ALIAS", "expected an identifier after `as`", p.cur().Span)
		}
	}

	sp := token.Span{File: p.file, Start: start, End: end}
	return &ast.ImportDecl{Base: ast.NewBase(p.newNode(sp), sp), Target: p.lastDottedSegments, Alias: alias}
}

// lastDottedSegments is set by parseDottedName/parseDottedNameRaw as a
// convenience so callers needn't thread the segment slice separately.
func (p *Parser) setLastDottedSegments(segs []string) { p.lastDottedSegments = segs }

// parseDottedName parses `Ident ('.' Ident)*` and returns the joined
// dotted string, its overall span, and whether parsing succeeded.
func (p *Parser) parseDottedName() (string, token.Span, bool) {
	segs, sp, ok := p.parseDottedNameRaw()
	if !ok {
		return "", sp, false
	}
	joined := segs[0]
	for _, s := range segs[1:] {
		joined += "." + s
	}
	return joined, sp, true
}

func (p *Parser) parseDottedNameRaw() ([]string, token.Span, bool) {
	if !p.at(token.IDENT) {
		return nil, p.cur().Span, false
	}
	start := p.cur().Span.Start
	var segs []string
	segs = append(segs, p.cur().Literal)
	end := p.cur().Span.End
	p.advance()
	for p.at(token.DOT) && p.peek().Kind == token.IDENT {
		p.advance() // '.'
		segs = append(segs, p.cur().Literal)
		end = p.cur().Span.End
		p.advance()
	}
	p.setLastDottedSegments(segs)
	return segs, token.Span{File: p.file, Start: start, End: end}, true
}

// parseLetDecl parses `let name = expr`.
func (p *Parser) parseLetDecl() *ast.LetDecl {
	start := p.cur().Span.Start
	p.advance() // 'let'

	name := ""
	if p.at(token.IDENT) {
		name = p.cur().Literal
		p.advance()
	} else {
		p.emit(diag.EUnexpectedToken, "UNEXPECTED TOKEN", "expected an identifier after `let`", p.cur().Span)
	}

	if !p.at(token.ASSIGN) {
		p.emit(diag.EUnexpectedToken, "UNEXPECTED TOKEN", "expected `=` after the `let` binding name", p.cur().Span)
	} else {
		p.advance()
	}

	value := p.parseExpr(lowest)
	end := start
	if value != nil {
		end = value.Span().End
	}
	sp := token.Span{File: p.file, Start: start, End: end}
	return &ast.LetDecl{Base: ast.NewBase(p.newNode(sp), sp), Name: name, Value: value}
}

// parseFunDecl parses `fun name(params) block`.
func (p *Parser) parseFunDecl() *ast.FunDecl {
	start := p.cur().Span.Start
	p.advance() // 'fun'
	return p.finishFunDecl(start)
}

// finishFunDecl parses `name(params) block` given the byte offset of the
// construct's leading keyword (real `fun` or a recovered confusable like
// `fn`). Split out of parseFunDecl so the unknown-keyword recovery path can
// keep parsing the rest of the declaration instead of discarding it.
func (p *Parser) finishFunDecl(start int) *ast.FunDecl {
	name := ""
	if p.at(token.IDENT) {
		name = p.cur().Literal
		p.advance()
	} else {
		p.emit(diag.EInvalidFunction, "INVALID FUNCTION DECLARATION", "expected a function name after `fun`", p.cur().Span)
	}

	var params []string
	if !p.at(token.LPAREN) {
		p.emit(diag.EInvalidFunction, "INVALID FUNCTION DECLARATION", "expected `(` after the function name", p.cur().Span)
	} else {
		p.advance()
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			if p.at(token.IDENT) {
				params = append(params, p.cur().Literal)
				p.advance()
			} else {
				p.emit(diag.EInvalidFunction, "INVALID FUNCTION DECLARATION", "expected a parameter name", p.cur().Span)
				break
			}
			if p.at(token.COMMA) {
				p.advance()
			} else {
				break
			}
		}
		if p.at(token.RPAREN) {
			p.advance()
		} else {
			p.emit(diag.EMissingDelimiter, "MISSING DELIMITER", "expected `)` to close the parameter list", p.cur().Span)
		}
	}

	p.skipNewlines()
	body := p.parseBlock()
	end := start
	if body != nil {
		end = body.Span().End
	}
	sp := token.Span{File: p.file, Start: start, End: end}
	return &ast.FunDecl{Base: ast.NewBase(p.newNode(sp), sp), Name: name, Params: params, Body: body}
}

// parseBlock parses `{ stmt ';' ... [stmt] }` (spec.md §4.2). Inside a
// block, newlines carry no statement-boundary meaning; only `;` (and the
// closing `}`) separate statements.
func (p *Parser) parseBlock() *ast.Block {
	start := p.cur().Span.Start
	if !p.at(token.LBRACE) {
		p.emit(diag.EMissingDelimiter, "MISSING DELIMITER", "expected `{` to open a block", p.cur().Span)
		sp := p.cur().Span
		return &ast.Block{Base: ast.NewBase(p.newNode(sp), sp)}
	}
	p.advance() // '{'
	p.skipNewlines()

	var stmts []ast.Node
	var trailing ast.Expr
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		p.skipNewlines()
		if p.at(token.RBRACE) {
			break
		}
		before := p.pos
		stmt := p.parseStmt()
		if stmt == nil {
			// parseStmt already reported its own diagnostic. An `import`
			// inside a function body was already skipped through the next
			// separator; an expression that failed on its first token was
			// not, so skip it here.
			if p.pos == before {
				p.recoverStatement()
			}
			continue
		}
		p.skipNewlines()
		if p.at(token.SEMICOLON) {
			p.advance()
			p.skipNewlines()
			if stmt != nil {
				stmts = append(stmts, stmt)
			}
			continue
		}
		// No explicit `;`: this is (or should be) the block's final
		// statement. If more tokens follow before `}`, that is a missing
		// separator between two statements (scenario 5).
		if stmt != nil {
			if ex, ok := stmt.(ast.Expr); ok {
				trailing = ex
			} else {
				stmts = append(stmts, stmt)
			}
		}
		if !p.at(token.RBRACE) && !p.at(token.EOF) {
			p.emitWithSuggestion(diag.EUnexpectedToken, "UNEXPECTED TOKEN",
				fmt.Sprintf("expected `;` before %q", p.cur().Literal), p.cur().Span,
				diag.Suggestion{Span: token.Span{File: p.file, Start: stmt.Span().End, End: stmt.Span().End}, ReplacementText: ";", Label: "insert `;` to separate statements"})
			if trailing != nil {
				stmts = append(stmts, trailing)
				trailing = nil
			}
			p.recoverStatement()
			continue
		}
		break
	}

	end := p.cur().Span
	if p.at(token.RBRACE) {
		p.advance()
	} else {
		p.emit(diag.EMissingDelimiter, "MISSING DELIMITER", "expected `}` to close the block", end)
	}

	sp := token.Span{File: p.file, Start: start, End: end.End}
	return &ast.Block{Base: ast.NewBase(p.newNode(sp), sp), Stmts: stmts, Value: trailing}
}

func (p *Parser) parseStmt() ast.Node {
	switch p.cur().Kind {
	case token.LET:
		return p.parseLetDecl()
	case token.RETURN:
		return p.parseReturnStmt()
	case token.IMPORT:
		sp := p.cur().Span
		p.emit(diag.EImportScope, "IMPORT SCOPE", "`import` is not allowed inside a function body", sp)
		p.recoverStatement()
		return nil
	case token.IDENT:
		if kw, ok := confusable[p.cur().Literal]; ok {
			return p.recoverFromUnknownKeyword(diag.EUnknownKeyword2, kw)
		}
		return p.parseExpr(lowest)
	default:
		return p.parseExpr(lowest)
	}
}

func (p *Parser) parseReturnStmt() *ast.ReturnStmt {
	start := p.cur().Span.Start
	p.advance() // 'return'
	end := start + len("return")

	var value ast.Expr
	if !p.at(token.SEMICOLON) && !p.at(token.NEWLINE) && !p.at(token.RBRACE) && !p.at(token.EOF) {
		value = p.parseExpr(lowest)
		if value != nil {
			end = value.Span().End
		}
	}
	sp := token.Span{File: p.file, Start: start, End: end}
	return &ast.ReturnStmt{Base: ast.NewBase(p.newNode(sp), sp), Value: value}
}

// parseExpr is the Pratt-parser entry point: parse a prefix expression
// then fold in infix/postfix operators binding tighter than minPrec.
func (p *Parser) parseExpr(minPrec int) ast.Expr {
	prefix, ok := p.prefixFns[p.cur().Kind]
	if !ok {
		p.emit(diag.EUnexpectedToken, "UNEXPECTED TOKEN",
			fmt.Sprintf("unexpected %q in expression position", p.cur().Literal), p.cur().Span)
		return nil
	}
	left := prefix()
	if left == nil {
		return nil
	}

	for {
		if p.nestDepth > 0 {
			p.skipNewlines()
		}
		kind := p.cur().Kind
		prec, ok := precedences[kind]
		if !ok || prec <= minPrec {
			break
		}
		infix, ok := p.infixFns[kind]
		if !ok {
			break
		}
		left = infix(left)
		if left == nil {
			return nil
		}
	}
	return left
}

func (p *Parser) parseIdentifier() ast.Expr {
	t := p.cur()
	p.advance()
	return &ast.Identifier{Base: ast.NewBase(p.newNode(t.Span), t.Span), Name: t.Literal}
}

func (p *Parser) parseIntLiteral() ast.Expr {
	t := p.cur()
	p.advance()
	n, err := strconv.Atoi(t.Literal)
	if err != nil {
		p.emit(diag.EUnexpectedToken, "UNEXPECTED TOKEN", fmt.Sprintf("invalid integer literal %q", t.Literal), t.Span)
	}
	return &ast.Literal{Base: ast.NewBase(p.newNode(t.Span), t.Span), Kind: ast.IntLit, Value: n}
}

func (p *Parser) parseStringLiteral() ast.Expr {
	t := p.cur()
	p.advance()
	return &ast.Literal{Base: ast.NewBase(p.newNode(t.Span), t.Span), Kind: ast.StringLit, Value: t.Literal}
}

func (p *Parser) parseBoolLiteral() ast.Expr {
	t := p.cur()
	p.advance()
	return &ast.Literal{Base: ast.NewBase(p.newNode(t.Span), t.Span), Kind: ast.BoolLit, Value: t.Kind == token.TRUE}
}

func (p *Parser) parseUnary() ast.Expr {
	t := p.advance()
	operand := p.parseExpr(precPrefix)
	if operand == nil {
		return nil
	}
	sp := token.Span{File: p.file, Start: t.Span.Start, End: operand.Span().End}
	return &ast.Unary{Base: ast.NewBase(p.newNode(sp), sp), Op: t.Literal, Expr: operand}
}

func (p *Parser) parseGrouped() ast.Expr {
	p.advance() // '('
	p.nestDepth++
	defer func() { p.nestDepth-- }()
	p.skipNewlines()
	inner := p.parseExpr(lowest)
	p.skipNewlines()
	if p.at(token.RPAREN) {
		p.advance()
	} else {
		p.emit(diag.EMissingDelimiter, "MISSING DELIMITER", "expected `)` to close the grouped expression", p.cur().Span)
	}
	return inner
}

func (p *Parser) parseBinary(left ast.Expr) ast.Expr {
	opTok := p.advance()
	prec := precedences[opTok.Kind]
	p.skipNewlines()
	right := p.parseExpr(prec)
	if right == nil {
		return nil
	}
	sp := token.Span{File: p.file, Start: left.Span().Start, End: right.Span().End}
	return &ast.Binary{Base: ast.NewBase(p.newNode(sp), sp), Op: opTok.Literal, Left: left, Right: right}
}

func (p *Parser) parseCall(callee ast.Expr) ast.Expr {
	p.advance() // '('
	p.nestDepth++
	defer func() { p.nestDepth-- }()
	p.skipNewlines()
	var args []ast.Expr
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		arg := p.parseExpr(lowest)
		if arg != nil {
			args = append(args, arg)
		}
		p.skipNewlines()
		if p.at(token.COMMA) {
			p.advance()
			p.skipNewlines()
			continue
		}
		break
	}
	end := p.cur().Span.End
	if p.at(token.RPAREN) {
		p.advance()
	} else {
		p.emit(diag.EMissingDelimiter, "MISSING DELIMITER", "expected `)` to close the argument list", p.cur().Span)
	}
	sp := token.Span{File: p.file, Start: callee.Span().Start, End: end}
	return &ast.Call{Base: ast.NewBase(p.newNode(sp), sp), Callee: callee, Args: args}
}

func (p *Parser) parseMember(target ast.Expr) ast.Expr {
	p.advance() // '.'
	if p.at(token.INT) {
		p.emit(diag.EReservedRange, "UNSUPPORTED CONSTRUCT",
			"member access expects an identifier after `.`; floating-point literal syntax is not supported", p.cur().Span)
		p.advance()
		return target
	}
	if !p.at(token.IDENT) {
		p.emit(diag.EUnexpectedToken, "UNEXPECTED TOKEN", "expected an identifier after `.`", p.cur().Span)
		return target
	}
	name := p.cur().Literal
	sp := token.Span{File: p.file, Start: target.Span().Start, End: p.cur().Span.End}
	p.advance()
	return &ast.Member{Base: ast.NewBase(p.newNode(sp), sp), Target: target, Name: name}
}

func (p *Parser) parseIf() ast.Expr {
	start := p.cur().Span.Start
	p.advance() // 'if'
	cond := p.parseExpr(lowest)
	p.skipNewlines()
	then := p.parseBlock()
	var els *ast.Block
	save := p.pos
	p.skipNewlines()
	if p.at(token.ELSE) {
		p.advance()
		p.skipNewlines()
		els = p.parseBlock()
	} else {
		p.pos = save
	}
	end := start
	if then != nil {
		end = then.Span().End
	}
	if els != nil {
		end = els.Span().End
	}
	sp := token.Span{File: p.file, Start: start, End: end}
	return &ast.If{Base: ast.NewBase(p.newNode(sp), sp), Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseMatch() ast.Expr {
	start := p.cur().Span.Start
	p.advance() // 'match'
	subject := p.parseExpr(lowest)
	p.skipNewlines()

	if !p.at(token.LBRACE) {
		p.emit(diag.EMissingDelimiter, "MISSING DELIMITER", "expected `{` to open the match arms", p.cur().Span)
		sp := p.cur().Span
		return &ast.Match{Base: ast.NewBase(p.newNode(sp), sp), Subject: subject}
	}
	p.advance()
	p.skipNewlines()

	var arms []*ast.MatchArm
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		p.skipNewlines()
		if p.at(token.RBRACE) {
			break
		}
		arm := p.parseMatchArm()
		if arm != nil {
			arms = append(arms, arm)
		}
		p.skipNewlines()
		if p.at(token.COMMA) || p.at(token.SEMICOLON) {
			p.advance()
			p.skipNewlines()
		}
	}
	end := p.cur().Span
	if p.at(token.RBRACE) {
		p.advance()
	} else {
		p.emit(diag.EMissingDelimiter, "MISSING DELIMITER", "expected `}` to close the match expression", end)
	}
	sp := token.Span{File: p.file, Start: start, End: end.End}
	return &ast.Match{Base: ast.NewBase(p.newNode(sp), sp), Subject: subject, Arms: arms}
}

func (p *Parser) parseMatchArm() *ast.MatchArm {
	start := p.cur().Span.Start
	pat := p.parsePattern()
	p.skipNewlines()
	if p.at(token.MINUS) && p.peek().Kind == token.GT {
		p.advance()
		p.advance()
	} else {
		p.emit(diag.EUnexpectedToken, "UNEXPECTED TOKEN", "expected `->` after a match pattern", p.cur().Span)
	}
	p.skipNewlines()
	body := p.parseExpr(lowest)
	end := start
	if body != nil {
		end = body.Span().End
	}
	sp := token.Span{File: p.file, Start: start, End: end}
	return &ast.MatchArm{Base: ast.NewBase(p.newNode(sp), sp), Pattern: pat, Body: body}
}

func (p *Parser) parsePattern() ast.Pattern {
	t := p.cur()
	if t.Kind == token.IDENT && t.Literal == "_" {
		p.advance()
		return &ast.WildcardPattern{Base: ast.NewBase(p.newNode(t.Span), t.Span)}
	}
	if t.Kind == token.IDENT {
		name := t.Literal
		p.advance()
		if !p.at(token.LPAREN) {
			return &ast.ConstructorPattern{Base: ast.NewBase(p.newNode(t.Span), t.Span), Name: name}
		}
		p.advance() // '('
		var sub []ast.Pattern
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			sub = append(sub, p.parsePattern())
			if p.at(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
		end := p.cur().Span.End
		if p.at(token.RPAREN) {
			p.advance()
		} else {
			p.emit(diag.EMissingDelimiter, "MISSING DELIMITER", "expected `)` to close the constructor pattern", p.cur().Span)
		}
		sp := token.Span{File: p.file, Start: t.Span.Start, End: end}
		return &ast.ConstructorPattern{Base: ast.NewBase(p.newNode(sp), sp), Name: name, Patterns: sub}
	}
	p.emit(diag.EUnexpectedToken, "UNEXPECTED TOKEN", "expected a pattern", t.Span)
	p.advance()
	return &ast.WildcardPattern{Base: ast.NewBase(p.newNode(t.Span), t.Span)}
}

// segmentNameValid checks every dot-separated segment of name against
// the segment naming rule: `^[A-Z][A-Za-z0-9]*$` (spec.md §6.2).
func segmentNameValid(name string) bool {
	if name == "" {
		return false
	}
	seg := ""
	for i := 0; i <= len(name); i++ {
		if i == len(name) || name[i] == '.' {
			if !segmentValid(seg) {
				return false
			}
			seg = ""
			continue
		}
		seg += string(name[i])
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

// Package ast defines Flux's tagged-variant AST nodes (spec.md §3): no
// inheritance, a closed set of node kinds distinguished by Go's own type
// switch, each carrying its span and a stable node id assigned by the
// parser.
package ast

import (
	"fmt"
	"strings"

	"github.com/flux-lang/flux/internal/token"
)

// Span is a half-open byte interval in one source file.
type Span = token.Span

// Node is satisfied by every AST node.
type Node interface {
	Span() Span
	ID() NodeID
}

// NodeID is a stable identifier assigned once per node by the parser.
type NodeID int

// IDGen issues monotonically increasing NodeIDs for one parse.
type IDGen struct{ next NodeID }

// Next returns the next unused NodeID.
func (g *IDGen) Next() NodeID {
	g.next++
	return g.next
}

// Base is embedded by every concrete node type to supply its NodeID and
// Span; construct it with NewBase.
type Base struct {
	NID   NodeID
	Span_ Span
}

func (b Base) ID() NodeID { return b.NID }
func (b Base) Span() Span { return b.Span_ }

// Expr is satisfied by every expression-position node.
type Expr interface {
	Node
	exprNode()
}

// Pattern is satisfied by every match-pattern node.
type Pattern interface {
	Node
	patternNode()
}

// Decl is satisfied by top-level and module-body declarations.
type Decl interface {
	Node
	declNode()
}

// File is one parsed source file: at most one ModuleDecl (a module file)
// or none (a script file), plus its top-level items in source order
// (spec.md §3 "Invariants": a module file has exactly one module-decl; a
// script file has zero).
type File struct {
	Base
	Path    string
	Module  *ModuleDecl // nil for a script file
	Imports []*ImportDecl
	Decls   []Decl // let/fun decls, in source order
	Exprs   []Expr // bare top-level expression statements, in source order
	Items   []Node // every top-level item in original source order (for diagnostics/validation)
}

// ModuleDecl declares the dotted name of a module file: `module A.B.C { ... }`.
type ModuleDecl struct {
	Base
	Name string // dotted segments joined by "."
	Body []Decl
}

func (m *ModuleDecl) declNode() {}

// ImportDecl is `import A.B.C [as Alias]`.
type ImportDecl struct {
	Base
	Target []string // dotted segments
	Alias  string   // "" if no alias given
}

func (i *ImportDecl) declNode() {}

// LetDecl is `let name = expr`.
type LetDecl struct {
	Base
	Name  string
	Value Expr
}

func (l *LetDecl) declNode() {}
func (l *LetDecl) exprNode() {} // a let may appear in statement/expr position inside a block

// FunDecl is `fun name(params) block`.
type FunDecl struct {
	Base
	Name   string
	Params []string
	Body   *Block
}

func (f *FunDecl) declNode() {}

// Block is `{ stmt; stmt; ...; lastExpr }`. Value is the block's last
// statement when no `;` follows it; since LetDecl and ReturnStmt also
// satisfy Expr, a trailing `let` or `return` becomes Value as well.
type Block struct {
	Base
	Stmts []Node // LetDecl, ReturnStmt, or Expr, in source order, excluding the trailing value
	Value Expr   // nil if the block is empty or its last statement ends in `;`
}

func (b *Block) exprNode() {}

// ReturnStmt is `return [expr]`.
type ReturnStmt struct {
	Base
	Value Expr // nil for a bare `return`
}

func (r *ReturnStmt) exprNode() {}

// Identifier is a bare name reference, optionally module-qualified via Member.
type Identifier struct {
	Base
	Name string
}

func (i *Identifier) exprNode()    {}
func (i *Identifier) patternNode() {}

// Literal is an integer, string, or boolean literal.
type Literal struct {
	Base
	Kind  LiteralKind
	Value interface{}
}

// LiteralKind distinguishes the literal's underlying Go value type.
type LiteralKind int

const (
	IntLit LiteralKind = iota
	StringLit
	BoolLit
)

func (l *Literal) exprNode()    {}
func (l *Literal) patternNode() {}

// Call is `callee(args...)`.
type Call struct {
	Base
	Callee Expr
	Args   []Expr
}

func (c *Call) exprNode() {}

// Member is `target.name` — used for both module-qualified references
// (`Alias.name`) and, generally, dotted member access.
type Member struct {
	Base
	Target Expr
	Name   string
}

func (m *Member) exprNode() {}

// Binary is a binary operator application.
type Binary struct {
	Base
	Op          string
	Left, Right Expr
}

func (b *Binary) exprNode() {}

// Unary is a prefix operator application (only `-` is specified, applied
// at parse time to numeric literals and arbitrary expressions alike).
type Unary struct {
	Base
	Op   string
	Expr Expr
}

func (u *Unary) exprNode() {}

// If is `if cond block else block`.
type If struct {
	Base
	Cond       Expr
	Then, Else *Block
}

func (i *If) exprNode() {}

// Match is `match subject { arm... }`.
type Match struct {
	Base
	Subject Expr
	Arms    []*MatchArm
}

func (m *Match) exprNode() {}

// MatchArm is one `pattern -> expr` arm of a Match.
type MatchArm struct {
	Base
	Pattern Pattern
	Body    Expr
}

// WildcardPattern (`_`) matches anything without binding.
type WildcardPattern struct{ Base }

func (w *WildcardPattern) patternNode() {}

// ConstructorPattern matches a variant constructor, e.g. `Some(x)`, `None`,
// `Left(e)`, `Right(v)`.
type ConstructorPattern struct {
	Base
	Name     string
	Patterns []Pattern
}

func (c *ConstructorPattern) patternNode() {}

// String renders a compact, stable textual form of a node for debugging
// and golden-file tests (not part of the language's surface syntax).
func String(n Node) string {
	switch v := n.(type) {
	case *File:
		var parts []string
		if v.Module != nil {
			parts = append(parts, String(v.Module))
		}
		for _, imp := range v.Imports {
			parts = append(parts, String(imp))
		}
		for _, item := range v.Items {
			if _, isImport := item.(*ImportDecl); isImport {
				continue
			}
			if _, isModule := item.(*ModuleDecl); isModule {
				continue
			}
			parts = append(parts, String(item))
		}
		return strings.Join(parts, "\n")
	case *ModuleDecl:
		return fmt.Sprintf("module %s", v.Name)
	case *ImportDecl:
		if v.Alias != "" {
			return fmt.Sprintf("import %s as %s", strings.Join(v.Target, "."), v.Alias)
		}
		return fmt.Sprintf("import %s", strings.Join(v.Target, "."))
	case *LetDecl:
		return fmt.Sprintf("let %s = %s", v.Name, String(v.Value))
	case *FunDecl:
		return fmt.Sprintf("fun %s(%s) %s", v.Name, strings.Join(v.Params, ", "), String(v.Body))
	case *Block:
		var lines []string
		for _, s := range v.Stmts {
			lines = append(lines, String(s))
		}
		if v.Value != nil {
			lines = append(lines, String(v.Value))
		}
		return "{ " + strings.Join(lines, "; ") + " }"
	case *ReturnStmt:
		if v.Value == nil {
			return "return"
		}
		return "return " + String(v.Value)
	case *Identifier:
		return v.Name
	case *Literal:
		return fmt.Sprintf("%v", v.Value)
	case *Call:
		var args []string
		for _, a := range v.Args {
			args = append(args, String(a))
		}
		return fmt.Sprintf("%s(%s)", String(v.Callee), strings.Join(args, ", "))
	case *Member:
		return fmt.Sprintf("%s.%s", String(v.Target), v.Name)
	case *Binary:
		return fmt.Sprintf("(%s %s %s)", String(v.Left), v.Op, String(v.Right))
	case *Unary:
		return fmt.Sprintf("(%s%s)", v.Op, String(v.Expr))
	case *If:
		s := fmt.Sprintf("if %s %s", String(v.Cond), String(v.Then))
		if v.Else != nil {
			s += " else " + String(v.Else)
		}
		return s
	case *Match:
		var arms []string
		for _, a := range v.Arms {
			arms = append(arms, fmt.Sprintf("%s -> %s", String(a.Pattern), String(a.Body)))
		}
		return fmt.Sprintf("match %s { %s }", String(v.Subject), strings.Join(arms, "; "))
	case *WildcardPattern:
		return "_"
	case *ConstructorPattern:
		if len(v.Patterns) == 0 {
			return v.Name
		}
		var ps []string
		for _, p := range v.Patterns {
			ps = append(ps, String(p))
		}
		return fmt.Sprintf("%s(%s)", v.Name, strings.Join(ps, ", "))
	default:
		return "<?>"
	}
}

// NewBase constructs the embeddable Base for a node with the given id and span.
func NewBase(id NodeID, span Span) Base {
	return Base{NID: id, Span_: span}
}

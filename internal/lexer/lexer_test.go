package lexer

import (
	"testing"

	"github.com/flux-lang/flux/internal/diag"
	"github.com/flux-lang/flux/internal/source"
	"github.com/flux-lang/flux/internal/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func assertKinds(t *testing.T, got []token.Token, want []token.Kind) {
	t.Helper()
	gk := kinds(got)
	if len(gk) != len(want) {
		t.Fatalf("got %v, want %v", gk, want)
	}
	for i := range want {
		if gk[i] != want[i] {
			t.Fatalf("position %d: got %s, want %s (full: %v)", i, gk[i], want[i], gk)
		}
	}
}

func TestKeywordsLexAsKeywordKinds(t *testing.T) {
	sources := source.New()
	sources.Add("t.flx", source.Normalize([]byte("module import as fun let if else match return true false")))
	d := diag.NewAggregator(sources)
	toks := Tokenize(sources.Get("t.flx").Bytes, "t.flx", d)

	assertKinds(t, toks, []token.Kind{
		token.MODULE, token.IMPORT, token.AS, token.FUN, token.LET,
		token.IF, token.ELSE, token.MATCH, token.RETURN, token.TRUE, token.FALSE, token.EOF,
	})
	if d.Len() != 0 {
		t.Fatalf("expected no diagnostics, got %d", d.Len())
	}
}

func TestUnknownKeywordShapeLexesAsIdent(t *testing.T) {
	sources := source.New()
	sources.Add("t.flx", source.Normalize([]byte("fn add(x, y) { x + y }")))
	d := diag.NewAggregator(sources)
	toks := Tokenize(sources.Get("t.flx").Bytes, "t.flx", d)

	if toks[0].Kind != token.IDENT || toks[0].Literal != "fn" {
		t.Fatalf("expected 'fn' to lex as IDENT, got %s %q", toks[0].Kind, toks[0].Literal)
	}
	if d.Len() != 0 {
		t.Fatalf("lexer must not itself diagnose unknown-keyword-shaped identifiers, got %d diagnostics", d.Len())
	}
}

func TestStringEscapes(t *testing.T) {
	sources := source.New()
	sources.Add("t.flx", source.Normalize([]byte(`"a\nb\tc\"d\\e"`)))
	d := diag.NewAggregator(sources)
	toks := Tokenize(sources.Get("t.flx").Bytes, "t.flx", d)

	want := "a\nb\tc\"d\\e"
	if toks[0].Kind != token.STRING || toks[0].Literal != want {
		t.Fatalf("got %q, want %q", toks[0].Literal, want)
	}
}

func TestUnterminatedStringEmitsE031(t *testing.T) {
	sources := source.New()
	sources.Add("t.flx", source.Normalize([]byte("\"abc\nlet x = 1")))
	d := diag.NewAggregator(sources)
	Tokenize(sources.Get("t.flx").Bytes, "t.flx", d)

	deduped := d.Dedupe()
	if len(deduped) != 1 || deduped[0].Code != diag.EUnterminatedString {
		t.Fatalf("expected exactly one E031, got %+v", deduped)
	}
}

func TestNewlineRunCollapsesToOneToken(t *testing.T) {
	sources := source.New()
	sources.Add("t.flx", source.Normalize([]byte("let x = 1\n\n\nlet y = 2")))
	d := diag.NewAggregator(sources)
	toks := Tokenize(sources.Get("t.flx").Bytes, "t.flx", d)

	var newlines int
	for _, tok := range toks {
		if tok.Kind == token.NEWLINE {
			newlines++
		}
	}
	if newlines != 1 {
		t.Fatalf("expected exactly 1 collapsed NEWLINE token, got %d", newlines)
	}
}

func TestLineCommentDiscarded(t *testing.T) {
	sources := source.New()
	sources.Add("t.flx", source.Normalize([]byte("let x = 1 // trailing comment\nlet y = 2")))
	d := diag.NewAggregator(sources)
	toks := Tokenize(sources.Get("t.flx").Bytes, "t.flx", d)

	for _, tok := range toks {
		if tok.Kind == token.ILLEGAL {
			t.Fatalf("comment must not produce a token, got ILLEGAL at %v", tok.Span)
		}
	}
}

func TestSpansAreMonotonicInStartByte(t *testing.T) {
	sources := source.New()
	sources.Add("t.flx", source.Normalize([]byte("let x = 1 + 2 * (3 - 4)")))
	d := diag.NewAggregator(sources)
	toks := Tokenize(sources.Get("t.flx").Bytes, "t.flx", d)

	for i := 1; i < len(toks); i++ {
		if toks[i].Span.Start < toks[i-1].Span.Start {
			t.Fatalf("token stream not monotonic in start_byte at index %d: %v then %v", i, toks[i-1], toks[i])
		}
	}
}

func TestPipeGreaterAndDoubleOperators(t *testing.T) {
	sources := source.New()
	sources.Add("t.flx", source.Normalize([]byte("a |> b == c != d <= e >= f && g || h")))
	d := diag.NewAggregator(sources)
	toks := Tokenize(sources.Get("t.flx").Bytes, "t.flx", d)

	assertKinds(t, toks, []token.Kind{
		token.IDENT, token.PIPE_GT, token.IDENT, token.EQ, token.IDENT, token.NEQ, token.IDENT,
		token.LTE, token.IDENT, token.GTE, token.IDENT, token.AND, token.IDENT, token.OR, token.IDENT, token.EOF,
	})
}

func TestIntLiteralDoesNotConsumeDot(t *testing.T) {
	sources := source.New()
	sources.Add("t.flx", source.Normalize([]byte("42.toString")))
	d := diag.NewAggregator(sources)
	toks := Tokenize(sources.Get("t.flx").Bytes, "t.flx", d)

	assertKinds(t, toks, []token.Kind{token.INT, token.DOT, token.IDENT, token.EOF})
	if toks[0].Literal != "42" {
		t.Fatalf("got %q, want 42", toks[0].Literal)
	}
}

package lexer_test

import (
	"testing"

	"github.com/quillscript/compiler/pkg/compiler/lexer"
	"github.com/quillscript/compiler/pkg/compiler/token"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	l := lexer.New([]byte(src))
	var toks []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("unexpected lex error: %v", err)
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks
}

func TestNext_Punctuation(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []token.Kind
	}{
		{"arrows", "-> =>", []token.Kind{token.ARROW_RETURN, token.ARROW_FN, token.EOF}},
		{"comparisons", "== != <= >= < >", []token.Kind{
			token.EQ, token.NEQ, token.LTE, token.GTE, token.LT, token.GT, token.EOF,
		}},
		{"logical", "&& || !", []token.Kind{token.AND, token.OR, token.NOT, token.EOF}},
		{"brackets", "(){}[]", []token.Kind{
			token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.LBRACKET, token.RBRACKET, token.EOF,
		}},
		{"union pipe", "number | string", []token.Kind{token.IDENT, token.PIPE, token.IDENT, token.EOF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := scanAll(t, tt.src)
			if len(toks) != len(tt.want) {
				t.Fatalf("got %d tokens, want %d: %v", len(toks), len(tt.want), toks)
			}
			for i, tok := range toks {
				if tok.Kind != tt.want[i] {
					t.Errorf("token %d: got %s, want %s", i, tok.Kind, tt.want[i])
				}
			}
		})
	}
}

func TestNext_Keywords(t *testing.T) {
	toks := scanAll(t, "let const fn async await if else for in return type interface true false null")
	want := []token.Kind{
		token.LET, token.CONST, token.FN, token.ASYNC, token.AWAIT, token.IF, token.ELSE,
		token.FOR, token.IN, token.RETURN, token.TYPE, token.INTERFACE, token.TRUE, token.FALSE, token.NULL, token.EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, tok := range toks {
		if tok.Kind != want[i] {
			t.Errorf("token %d: got %s, want %s", i, tok.Kind, want[i])
		}
	}
}

func TestNext_Numbers(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"42", "42"},
		{"3.14", "3.14"},
		{"-7", "-7"},
		{"0.5", "0.5"},
	}
	for _, tt := range tests {
		toks := scanAll(t, tt.src)
		if len(toks) != 2 || toks[0].Kind != token.NUMBER {
			t.Fatalf("%q: unexpected tokens %v", tt.src, toks)
		}
		if toks[0].Lexeme != tt.want {
			t.Errorf("%q: got lexeme %q, want %q", tt.src, toks[0].Lexeme, tt.want)
		}
	}
}

func TestNext_Strings(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`"hello"`, "hello"},
		{`'single'`, "single"},
		{`"line\nbreak"`, "line\nbreak"},
		{`"quote\"inside"`, `quote"inside`},
	}
	for _, tt := range tests {
		toks := scanAll(t, tt.src)
		if len(toks) != 2 || toks[0].Kind != token.STRING {
			t.Fatalf("%q: unexpected tokens %v", tt.src, toks)
		}
		if toks[0].Lexeme != tt.want {
			t.Errorf("%q: got %q, want %q", tt.src, toks[0].Lexeme, tt.want)
		}
	}
}

func TestNext_UnterminatedString(t *testing.T) {
	l := lexer.New([]byte(`"never closes`))
	if _, err := l.Next(); err == nil {
		t.Fatal("expected an error for unterminated string")
	}
}

func TestNext_UnexpectedCharacter(t *testing.T) {
	l := lexer.New([]byte("@"))
	if _, err := l.Next(); err == nil {
		t.Fatal("expected an error for unexpected character")
	}
}

func TestNext_LineComment(t *testing.T) {
	toks := scanAll(t, "let x = 1 // trailing comment\nlet y = 2")
	var kinds []token.Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	want := []token.Kind{
		token.LET, token.IDENT, token.ASSIGN, token.NUMBER,
		token.LET, token.IDENT, token.ASSIGN, token.NUMBER, token.EOF,
	}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestSaveRestore(t *testing.T) {
	l := lexer.New([]byte("a b c"))
	first, _ := l.Next()
	state := l.Save()
	second, _ := l.Next()
	l.Restore(state)
	replay, _ := l.Next()
	if second.Lexeme != replay.Lexeme {
		t.Fatalf("restore mismatch: got %q, want %q", replay.Lexeme, second.Lexeme)
	}
	_ = first
}

func TestClone_DoesNotAdvanceOriginal(t *testing.T) {
	l := lexer.New([]byte("a b c"))
	first, _ := l.Next()
	if first.Lexeme != "a" {
		t.Fatalf("got %q, want %q", first.Lexeme, "a")
	}
	clone := l.Clone()
	for i := 0; i < 3; i++ {
		if _, err := clone.Next(); err != nil {
			t.Fatalf("clone scan error: %v", err)
		}
	}
	second, _ := l.Next()
	if second.Lexeme != "b" {
		t.Fatalf("original lexer advanced: got %q, want %q", second.Lexeme, "b")
	}
}

package lexer

import (
	"testing"

	"github.com/Bintaryam/c4-go/pkg/token"
)

func TestNextToken(t *testing.T) {
	input := `int main(int argc, char **argv) {
	int x;
	x = argc + 1;
	if (x >= 2 && x != 5) return x << 1;
	while (x-- > 0) x = x % 3;
	return ~x ? x++ : -1;
}
`

	tests := []struct {
		expectedType    token.TokenType
		expectedLiteral string
	}{
		{token.INT, "int"},
		{token.IDENT, "main"},
		{token.LPAREN, "("},
		{token.INT, "int"},
		{token.IDENT, "argc"},
		{token.COMMA, ","},
		{token.CHAR, "char"},
		{token.ASTERISK, "*"},
		{token.ASTERISK, "*"},
		{token.IDENT, "argv"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.INT, "int"},
		{token.IDENT, "x"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "x"},
		{token.ASSIGN, "="},
		{token.IDENT, "argc"},
		{token.PLUS, "+"},
		{token.NUM, "1"},
		{token.SEMICOLON, ";"},
		{token.IF, "if"},
		{token.LPAREN, "("},
		{token.IDENT, "x"},
		{token.GTE, ">="},
		{token.NUM, "2"},
		{token.AND, "&&"},
		{token.IDENT, "x"},
		{token.NOT_EQ, "!="},
		{token.NUM, "5"},
		{token.RPAREN, ")"},
		{token.RETURN, "return"},
		{token.IDENT, "x"},
		{token.SHL, "<<"},
		{token.NUM, "1"},
		{token.SEMICOLON, ";"},
		{token.WHILE, "while"},
		{token.LPAREN, "("},
		{token.IDENT, "x"},
		{token.DEC, "--"},
		{token.GT, ">"},
		{token.NUM, "0"},
		{token.RPAREN, ")"},
		{token.IDENT, "x"},
		{token.ASSIGN, "="},
		{token.IDENT, "x"},
		{token.PERCENT, "%"},
		{token.NUM, "3"},
		{token.SEMICOLON, ";"},
		{token.RETURN, "return"},
		{token.TILDE, "~"},
		{token.IDENT, "x"},
		{token.QUESTION, "?"},
		{token.IDENT, "x"},
		{token.INC, "++"},
		{token.COLON, ":"},
		{token.MINUS, "-"},
		{token.NUM, "1"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("tests[%d] - unexpected error: %s", i, err)
		}

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q, literal=%q",
				i, tt.expectedType, tok.Type, tok.Literal)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNumberBases(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"0", 0},
		{"42", 42},
		{"0755", 493},
		{"0x1A3F", 6719},
		{"0XFF", 255},
		{"07", 7},
	}

	for i, tt := range tests {
		l := New(tt.input)
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("tests[%d] - unexpected error: %s", i, err)
		}
		if tok.Type != token.NUM {
			t.Fatalf("tests[%d] - tokentype wrong. expected=NUM, got=%q", i, tok.Type)
		}
		if tok.Value != tt.expected {
			t.Fatalf("tests[%d] - value wrong. expected=%d, got=%d", i, tt.expected, tok.Value)
		}
	}
}

func TestCharLiterals(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{`'a'`, 97},
		{`'0'`, 48},
		{`'\n'`, 10},
		{`'\\'`, 92},
		{`'\''`, 39},
	}

	for i, tt := range tests {
		l := New(tt.input)
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("tests[%d] - unexpected error: %s", i, err)
		}
		if tok.Type != token.NUM {
			t.Fatalf("tests[%d] - char literal should fold to NUM, got=%q", i, tok.Type)
		}
		if tok.Value != tt.expected {
			t.Fatalf("tests[%d] - value wrong. expected=%d, got=%d", i, tt.expected, tok.Value)
		}
	}
}

func TestUnterminatedCharLiteral(t *testing.T) {
	l := New("'")
	tok, err := l.NextToken()
	if err == nil {
		t.Fatal("expected error for unterminated character literal")
	}
	if tok.Type != token.ILLEGAL {
		t.Errorf("tokentype wrong. expected=ILLEGAL, got=%q", tok.Type)
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"hello"`, "hello"},
		{`"a\nb"`, "a\nb"},
		{`"say \"hi\""`, `say "hi"`},
		{`"tab\there"`, "tabthere"}, // only \n unescapes specially
		{`"unterminated`, "unterminated"},
	}

	for i, tt := range tests {
		l := New(tt.input)
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("tests[%d] - unexpected error: %s", i, err)
		}
		if tok.Type != token.STRING {
			t.Fatalf("tests[%d] - tokentype wrong. expected=STRING, got=%q", i, tok.Type)
		}
		if tok.Literal != tt.expected {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expected, tok.Literal)
		}
	}
}

func TestCommentsAndPreprocessorLines(t *testing.T) {
	input := `// leading comment
#include <stdio.h>
int x; // trailing
#define FOO 1
char y;
`
	expected := []token.TokenType{
		token.INT, token.IDENT, token.SEMICOLON,
		token.CHAR, token.IDENT, token.SEMICOLON,
		token.EOF,
	}

	l := New(input)
	for i, want := range expected {
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("tests[%d] - unexpected error: %s", i, err)
		}
		if tok.Type != want {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q", i, want, tok.Type)
		}
	}
}

func TestUnexpectedCharacter(t *testing.T) {
	l := New("int @ x")
	if _, err := l.NextToken(); err != nil { // int
		t.Fatalf("unexpected error: %s", err)
	}
	tok, err := l.NextToken()
	if err == nil {
		t.Fatal("expected error for '@'")
	}
	if tok.Type != token.ILLEGAL || tok.Literal != "@" {
		t.Errorf("got token %s, want ILLEGAL @", tok)
	}
	lexErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error has type %T, want *Error", err)
	}
	if lexErr.Line != 1 {
		t.Errorf("error line = %d, want 1", lexErr.Line)
	}
	// the lexer recovers past the bad character
	tok, err = l.NextToken()
	if err != nil || tok.Type != token.IDENT || tok.Literal != "x" {
		t.Errorf("after recovery got %s, %v", tok, err)
	}
}

func TestEOFIsSticky(t *testing.T) {
	l := New("x")
	if _, err := l.NextToken(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	for i := 0; i < 3; i++ {
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if tok.Type != token.EOF {
			t.Fatalf("call %d after end: expected=EOF, got=%q", i, tok.Type)
		}
	}
}

func TestLineAndColumnTracking(t *testing.T) {
	l := New("int\n  x;")
	tok, _ := l.NextToken()
	if tok.Line != 1 || tok.Column != 1 {
		t.Errorf("int at %d:%d, want 1:1", tok.Line, tok.Column)
	}
	tok, _ = l.NextToken()
	if tok.Line != 2 || tok.Column != 3 {
		t.Errorf("x at %d:%d, want 2:3", tok.Line, tok.Column)
	}
}

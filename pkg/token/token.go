package token

import "fmt"

type TokenType string

const (
	// Special
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	// Identifiers & Literals
	IDENT  = "IDENT"
	NUM    = "NUM"
	STRING = "STRING"

	// Operators
	ASSIGN   = "="
	PLUS     = "+"
	MINUS    = "-"
	ASTERISK = "*"
	SLASH    = "/"
	PERCENT  = "%"
	BANG     = "!"
	TILDE    = "~"

	EQ     = "=="
	NOT_EQ = "!="
	LT     = "<"
	GT     = ">"
	LTE    = "<="
	GTE    = ">="

	AMP   = "&"
	PIPE  = "|"
	CARET = "^"
	AND   = "&&"
	OR    = "||"
	SHL   = "<<"
	SHR   = ">>"
	INC   = "++"
	DEC   = "--"

	QUESTION = "?"
	COLON    = ":"

	// Delimiters
	COMMA     = ","
	SEMICOLON = ";"
	LPAREN    = "("
	RPAREN    = ")"
	LBRACE    = "{"
	RBRACE    = "}"
	LBRACKET  = "["
	RBRACKET  = "]"

	// Keywords
	VOID   = "VOID"
	INT    = "INT"
	CHAR   = "CHAR"
	ENUM   = "ENUM"
	IF     = "IF"
	ELSE   = "ELSE"
	WHILE  = "WHILE"
	RETURN = "RETURN"
	SIZEOF = "SIZEOF"
)

// Token is a single lexeme. Numeric literals (including folded character
// literals) carry their value in Value; other kinds leave it zero.
type Token struct {
	Type    TokenType
	Literal string
	Value   int64
	Line    int
	Column  int
}

func (t Token) String() string {
	if t.Type == NUM {
		return fmt.Sprintf("Token(%s, %d, %d:%d)", t.Type, t.Value, t.Line, t.Column)
	}
	return fmt.Sprintf("Token(%s, %q, %d:%d)", t.Type, t.Literal, t.Line, t.Column)
}

var keywords = map[string]TokenType{
	"void":   VOID,
	"int":    INT,
	"char":   CHAR,
	"enum":   ENUM,
	"if":     IF,
	"else":   ELSE,
	"while":  WHILE,
	"return": RETURN,
	"sizeof": SIZEOF,
}

func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsType reports whether tt starts a type name (void, int, char).
func IsType(tt TokenType) bool {
	return tt == VOID || tt == INT || tt == CHAR
}

package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Bintaryam/c4-go/pkg/token"
)

// Error is a lexical error. It carries the offending character when the
// lexer hit something outside the recognized set.
type Error struct {
	Message string
	Line    int
	Column  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("lexical error at %d:%d: %s", e.Line, e.Column, e.Message)
}

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int
	column       int
}

func New(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
	l.position = l.readPosition
	l.readPosition += 1
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// NextToken returns the next significant token. Once the end of input is
// reached it returns EOF on every subsequent call.
func (l *Lexer) NextToken() (token.Token, error) {
	l.skipWhitespaceAndComments()

	line, col := l.line, l.column

	switch l.ch {
	case 0:
		return token.Token{Type: token.EOF, Literal: "", Line: line, Column: col}, nil
	case '"':
		s := l.readString()
		return token.Token{Type: token.STRING, Literal: s, Line: line, Column: col}, nil
	case '\'':
		return l.readCharLiteral(line, col)
	}

	if isLetter(l.ch) {
		lit := l.readIdentifier()
		return token.Token{Type: token.LookupIdent(lit), Literal: lit, Line: line, Column: col}, nil
	}
	if isDigit(l.ch) {
		return l.readNumber(line, col)
	}

	// Two-character operators match greedily before single characters.
	if tt, ok := twoCharTokens[string(l.ch)+string(l.peekChar())]; ok {
		lit := string(l.ch) + string(l.peekChar())
		l.readChar()
		l.readChar()
		return token.Token{Type: tt, Literal: lit, Line: line, Column: col}, nil
	}

	if tt, ok := oneCharTokens[l.ch]; ok {
		lit := string(l.ch)
		l.readChar()
		return token.Token{Type: tt, Literal: lit, Line: line, Column: col}, nil
	}

	ch := l.ch
	l.readChar()
	return token.Token{Type: token.ILLEGAL, Literal: string(ch), Line: line, Column: col},
		&Error{Message: fmt.Sprintf("unexpected character %q", ch), Line: line, Column: col}
}

var twoCharTokens = map[string]token.TokenType{
	"==": token.EQ,
	"!=": token.NOT_EQ,
	"<=": token.LTE,
	">=": token.GTE,
	"&&": token.AND,
	"||": token.OR,
	"<<": token.SHL,
	">>": token.SHR,
	"++": token.INC,
	"--": token.DEC,
}

var oneCharTokens = map[byte]token.TokenType{
	'+': token.PLUS,
	'-': token.MINUS,
	'*': token.ASTERISK,
	'/': token.SLASH,
	'%': token.PERCENT,
	'=': token.ASSIGN,
	'!': token.BANG,
	'<': token.LT,
	'>': token.GT,
	'&': token.AMP,
	'|': token.PIPE,
	'^': token.CARET,
	'~': token.TILDE,
	'?': token.QUESTION,
	':': token.COLON,
	';': token.SEMICOLON,
	',': token.COMMA,
	'(': token.LPAREN,
	')': token.RPAREN,
	'{': token.LBRACE,
	'}': token.RBRACE,
	'[': token.LBRACKET,
	']': token.RBRACKET,
}

// skipWhitespaceAndComments consumes whitespace, // line comments, and
// preprocessor lines starting with '#' as one unit before each token.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '#':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber scans a decimal, hexadecimal (0x/0X) or octal (leading 0)
// integer literal with maximal munch.
func (l *Lexer) readNumber(line, col int) (token.Token, error) {
	position := l.position
	base := 10

	if l.ch == '0' {
		switch {
		case l.peekChar() == 'x' || l.peekChar() == 'X':
			base = 16
			l.readChar() // 0
			l.readChar() // x
			for isHexDigit(l.ch) {
				l.readChar()
			}
		case isOctalDigit(l.peekChar()):
			base = 8
			l.readChar() // 0
			for isOctalDigit(l.ch) {
				l.readChar()
			}
		default:
			// bare zero
			l.readChar()
		}
	} else {
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	lit := l.input[position:l.position]
	digits := lit
	switch base {
	case 16:
		digits = lit[2:]
	case 8:
		digits = lit[1:]
	}

	val, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		return token.Token{Type: token.ILLEGAL, Literal: lit, Line: line, Column: col},
			&Error{Message: fmt.Sprintf("bad integer literal %q", lit), Line: line, Column: col}
	}
	return token.Token{Type: token.NUM, Literal: lit, Value: val, Line: line, Column: col}, nil
}

// readString scans a double-quoted string. \n unescapes to a newline; any
// other escaped character passes through literally. A missing closing quote
// yields whatever was accumulated instead of failing.
func (l *Lexer) readString() string {
	var result strings.Builder
	l.readChar() // skip opening quote

	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
			if l.ch == 0 {
				break
			}
			if l.ch == 'n' {
				result.WriteByte('\n')
			} else {
				result.WriteByte(l.ch)
			}
		} else {
			result.WriteByte(l.ch)
		}
		l.readChar()
	}
	if l.ch == '"' {
		l.readChar() // closing quote
	}
	return result.String()
}

// readCharLiteral scans 'c' and folds it straight into a NUM token holding
// the character's ordinal value.
func (l *Lexer) readCharLiteral(line, col int) (token.Token, error) {
	l.readChar() // skip opening quote
	if l.ch == 0 {
		return token.Token{Type: token.ILLEGAL, Line: line, Column: col},
			&Error{Message: "unterminated character literal", Line: line, Column: col}
	}

	var c byte
	if l.ch == '\\' {
		l.readChar()
		if l.ch == 0 {
			return token.Token{Type: token.ILLEGAL, Line: line, Column: col},
				&Error{Message: "unterminated character literal", Line: line, Column: col}
		}
		if l.ch == 'n' {
			c = '\n'
		} else {
			c = l.ch
		}
	} else {
		c = l.ch
	}
	l.readChar()
	if l.ch == '\'' {
		l.readChar() // closing quote
	}
	return token.Token{Type: token.NUM, Literal: string(c), Value: int64(c), Line: line, Column: col}, nil
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isOctalDigit(ch byte) bool {
	return '0' <= ch && ch <= '7'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || 'a' <= ch && ch <= 'f' || 'A' <= ch && ch <= 'F'
}

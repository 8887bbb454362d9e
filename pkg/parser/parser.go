package parser

import (
	"fmt"

	"github.com/Bintaryam/c4-go/pkg/ast"
	"github.com/Bintaryam/c4-go/pkg/lexer"
	"github.com/Bintaryam/c4-go/pkg/token"
)

// Error is a syntax error. The first one aborts parsing; there is no
// partial-AST recovery.
type Error struct {
	Message string
	Line    int
	Column  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Line, e.Column, e.Message)
}

// Operator precedence, low to high. Assignment and ternary are
// right-associative; everything else is left-associative.
const (
	_ int = iota
	LOWEST
	ASSIGNMENT  // =
	TERNARY     // ?:
	LOGICOR     // ||
	LOGICAND    // &&
	BITOR       // |
	BITXOR      // ^
	BITAND      // &
	EQUALS      // == !=
	LESSGREATER // < <= > >=
	SHIFT       // << >>
	SUM         // + -
	PRODUCT     // * / %
	PREFIX      // !x -x *p &x ++x casts sizeof
	POSTFIX     // x++ x-- call() index[]
)

var precedences = map[token.TokenType]int{
	token.ASSIGN:   ASSIGNMENT,
	token.QUESTION: TERNARY,
	token.OR:       LOGICOR,
	token.AND:      LOGICAND,
	token.PIPE:     BITOR,
	token.CARET:    BITXOR,
	token.AMP:      BITAND,
	token.EQ:       EQUALS,
	token.NOT_EQ:   EQUALS,
	token.LT:       LESSGREATER,
	token.GT:       LESSGREATER,
	token.LTE:      LESSGREATER,
	token.GTE:      LESSGREATER,
	token.SHL:      SHIFT,
	token.SHR:      SHIFT,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.ASTERISK: PRODUCT,
	token.SLASH:    PRODUCT,
	token.PERCENT:  PRODUCT,
	token.LPAREN:   POSTFIX,
	token.LBRACKET: POSTFIX,
	token.INC:      POSTFIX,
	token.DEC:      POSTFIX,
}

type (
	prefixParseFn func() (ast.Expression, error)
	infixParseFn  func(ast.Expression) (ast.Expression, error)
)

type Parser struct {
	l *lexer.Lexer

	curToken  token.Token
	peekToken token.Token

	// locals of the function currently being parsed; leading declarator
	// lists in statement sequences land here
	fnLocals *[]ast.VarDecl

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

func New(l *lexer.Lexer) (*Parser, error) {
	p := &Parser{l: l}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.NUM, p.parseIntegerLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.BANG, p.parsePrefixExpression)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.PLUS, p.parsePrefixExpression)
	p.registerPrefix(token.TILDE, p.parsePrefixExpression)
	p.registerPrefix(token.ASTERISK, p.parsePrefixExpression)
	p.registerPrefix(token.AMP, p.parsePrefixExpression)
	p.registerPrefix(token.INC, p.parsePrefixExpression)
	p.registerPrefix(token.DEC, p.parsePrefixExpression)
	p.registerPrefix(token.SIZEOF, p.parseSizeofExpression)
	p.registerPrefix(token.LPAREN, p.parseGroupedOrCastExpression)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	for _, tt := range []token.TokenType{
		token.PLUS, token.MINUS, token.ASTERISK, token.SLASH, token.PERCENT,
		token.EQ, token.NOT_EQ, token.LT, token.GT, token.LTE, token.GTE,
		token.AMP, token.PIPE, token.CARET, token.SHL, token.SHR,
		token.AND, token.OR,
	} {
		p.registerInfix(tt, p.parseInfixExpression)
	}
	p.registerInfix(token.ASSIGN, p.parseAssignmentExpression)
	p.registerInfix(token.QUESTION, p.parseTernaryExpression)
	p.registerInfix(token.LPAREN, p.parseCallExpression)
	p.registerInfix(token.LBRACKET, p.parseIndexExpression)
	p.registerInfix(token.INC, p.parsePostfixExpression)
	p.registerInfix(token.DEC, p.parsePostfixExpression)

	// Read two tokens, so curToken and peekToken are both set
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) registerPrefix(tt token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tt] = fn
}

func (p *Parser) registerInfix(tt token.TokenType, fn infixParseFn) {
	p.infixParseFns[tt] = fn
}

func (p *Parser) nextToken() error {
	tok, err := p.l.NextToken()
	if err != nil {
		return err
	}
	p.curToken = p.peekToken
	p.peekToken = tok
	return nil
}

func (p *Parser) curTokenIs(tt token.TokenType) bool  { return p.curToken.Type == tt }
func (p *Parser) peekTokenIs(tt token.TokenType) bool { return p.peekToken.Type == tt }

func (p *Parser) expectPeek(tt token.TokenType) error {
	if !p.peekTokenIs(tt) {
		return p.errorf(p.peekToken, "expected %s, got %s", tt, describe(p.peekToken))
	}
	return p.nextToken()
}

func (p *Parser) errorf(at token.Token, format string, args ...interface{}) error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Line:    at.Line,
		Column:  at.Column,
	}
}

func describe(tok token.Token) string {
	if tok.Type == token.EOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", tok.Literal)
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

// ParseProgram consumes the entire token stream and returns the program.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	program := &ast.Program{}

	for !p.curTokenIs(token.EOF) {
		items, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		program.Items = append(program.Items, items...)
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
	return program, nil
}

// parseItem parses one top-level construct. A comma-separated global
// declarator list expands to multiple sibling items.
func (p *Parser) parseItem() ([]ast.Item, error) {
	if p.curTokenIs(token.ENUM) {
		decl, err := p.parseEnumDecl()
		if err != nil {
			return nil, err
		}
		return []ast.Item{decl}, nil
	}

	if !token.IsType(p.curToken.Type) {
		return nil, p.errorf(p.curToken, "expected type or enum, got %s", describe(p.curToken))
	}
	ty, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expectPeek(token.IDENT); err != nil {
		return nil, err
	}
	name := p.curToken.Literal

	if p.peekTokenIs(token.LPAREN) {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		fn, err := p.parseFunction(name, ty)
		if err != nil {
			return nil, err
		}
		return []ast.Item{fn}, nil
	}

	items := []ast.Item{&ast.Global{Decl: ast.VarDecl{Name: name, Type: ty}}}
	for p.peekTokenIs(token.COMMA) {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if err := p.expectPeek(token.IDENT); err != nil {
			return nil, err
		}
		items = append(items, &ast.Global{Decl: ast.VarDecl{Name: p.curToken.Literal, Type: ty}})
	}
	if err := p.expectPeek(token.SEMICOLON); err != nil {
		return nil, err
	}
	return items, nil
}

// parseType consumes a base type keyword and any number of '*'s.
func (p *Parser) parseType() (*ast.Type, error) {
	var ty *ast.Type
	switch p.curToken.Type {
	case token.VOID:
		ty = ast.VoidType
	case token.INT:
		ty = ast.IntType
	case token.CHAR:
		ty = ast.CharType
	default:
		return nil, p.errorf(p.curToken, "expected type, got %s", describe(p.curToken))
	}
	for p.peekTokenIs(token.ASTERISK) {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		ty = ast.PointerTo(ty)
	}
	return ty, nil
}

// parseEnumDecl parses `enum { A, B = 2, C };`. Initializers must be
// integer literals.
func (p *Parser) parseEnumDecl() (*ast.EnumDecl, error) {
	decl := &ast.EnumDecl{}
	if err := p.expectPeek(token.LBRACE); err != nil {
		return nil, err
	}
	for !p.peekTokenIs(token.RBRACE) {
		if err := p.expectPeek(token.IDENT); err != nil {
			return nil, err
		}
		variant := ast.EnumVariant{Name: p.curToken.Literal}
		if p.peekTokenIs(token.ASSIGN) {
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			if err := p.expectPeek(token.NUM); err != nil {
				return nil, p.errorf(p.peekToken, "enum initializer must be an integer literal")
			}
			v := p.curToken.Value
			variant.Value = &v
		}
		decl.Variants = append(decl.Variants, variant)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
	if err := p.expectPeek(token.RBRACE); err != nil {
		return nil, err
	}
	if err := p.expectPeek(token.SEMICOLON); err != nil {
		return nil, err
	}
	return decl, nil
}

// parseFunction parses the parameter list and body. curToken is '('.
func (p *Parser) parseFunction(name string, ret *ast.Type) (*ast.Function, error) {
	fn := &ast.Function{ReturnType: ret, Name: name}

	if !p.peekTokenIs(token.RPAREN) {
		for {
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			pty, err := p.parseType()
			if err != nil {
				return nil, err
			}
			if err := p.expectPeek(token.IDENT); err != nil {
				return nil, err
			}
			fn.Params = append(fn.Params, ast.VarDecl{Name: p.curToken.Literal, Type: pty})
			if !p.peekTokenIs(token.COMMA) {
				break
			}
			if err := p.nextToken(); err != nil {
				return nil, err
			}
		}
	}
	if err := p.expectPeek(token.RPAREN); err != nil {
		return nil, err
	}
	if err := p.expectPeek(token.LBRACE); err != nil {
		return nil, err
	}

	outer := p.fnLocals
	p.fnLocals = &fn.Locals
	defer func() { p.fnLocals = outer }()

	body, err := p.parseBlockBody()
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

// parseBlockBody parses statements up to the matching '}'. curToken is '{'.
// Leading int/char declarator lists are consumed into the enclosing
// function's locals, not kept as statements.
func (p *Parser) parseBlockBody() (*ast.BlockStatement, error) {
	block := &ast.BlockStatement{}

	for p.peekTokenIs(token.INT) || p.peekTokenIs(token.CHAR) {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if err := p.parseLocalDecl(); err != nil {
			return nil, err
		}
	}

	for !p.peekTokenIs(token.RBRACE) {
		if p.peekTokenIs(token.EOF) {
			return nil, p.errorf(p.peekToken, "expected }, got end of input")
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
	return block, p.expectPeek(token.RBRACE)
}

// parseLocalDecl parses one `int a, b;` declarator list. curToken is the
// type keyword.
func (p *Parser) parseLocalDecl() error {
	ty, err := p.parseType()
	if err != nil {
		return err
	}
	for {
		if err := p.expectPeek(token.IDENT); err != nil {
			return err
		}
		*p.fnLocals = append(*p.fnLocals, ast.VarDecl{Name: p.curToken.Literal, Type: ty})
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		if err := p.nextToken(); err != nil {
			return err
		}
	}
	return p.expectPeek(token.SEMICOLON)
}

// parseStatement is called with curToken on the statement's first token and
// returns with curToken on its last.
func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.curToken.Type {
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.LBRACE:
		return p.parseBlockBody()
	case token.SEMICOLON:
		return &ast.EmptyStatement{}, nil
	case token.INT, token.CHAR, token.VOID:
		return nil, p.errorf(p.curToken, "declarations must precede statements")
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseIfStatement() (ast.Statement, error) {
	stmt := &ast.IfStatement{}
	if err := p.expectPeek(token.LPAREN); err != nil {
		return nil, err
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	stmt.Condition = cond
	if err := p.expectPeek(token.RPAREN); err != nil {
		return nil, err
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt.Then = then
	if p.peekTokenIs(token.ELSE) {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		alt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmt.Else = alt
	}
	return stmt, nil
}

func (p *Parser) parseWhileStatement() (ast.Statement, error) {
	stmt := &ast.WhileStatement{}
	if err := p.expectPeek(token.LPAREN); err != nil {
		return nil, err
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	stmt.Condition = cond
	if err := p.expectPeek(token.RPAREN); err != nil {
		return nil, err
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt.Body = body
	return stmt, nil
}

func (p *Parser) parseReturnStatement() (ast.Statement, error) {
	stmt := &ast.ReturnStatement{}
	if p.peekTokenIs(token.SEMICOLON) {
		return stmt, p.nextToken()
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	value, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	stmt.Value = value
	return stmt, p.expectPeek(token.SEMICOLON)
}

func (p *Parser) parseExpressionStatement() (ast.Statement, error) {
	expr, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if err := p.expectPeek(token.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.ExpressionStatement{Expression: expr}, nil
}

// Expressions

func (p *Parser) parseExpression(precedence int) (ast.Expression, error) {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		return nil, p.errorf(p.curToken, "unexpected %s in expression", describe(p.curToken))
	}
	left, err := prefix()
	if err != nil {
		return nil, err
	}

	for !p.peekTokenIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left, nil
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		left, err = infix(left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parseIntegerLiteral() (ast.Expression, error) {
	return &ast.IntegerLiteral{Value: p.curToken.Value}, nil
}

func (p *Parser) parseStringLiteral() (ast.Expression, error) {
	return &ast.StringLiteral{Value: p.curToken.Literal}, nil
}

func (p *Parser) parseIdentifier() (ast.Expression, error) {
	return &ast.Identifier{Value: p.curToken.Literal}, nil
}

func (p *Parser) parsePrefixExpression() (ast.Expression, error) {
	expr := &ast.PrefixExpression{Operator: p.curToken.Literal}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	right, err := p.parseExpression(PREFIX)
	if err != nil {
		return nil, err
	}
	expr.Right = right
	return expr, nil
}

func (p *Parser) parsePostfixExpression(left ast.Expression) (ast.Expression, error) {
	return &ast.PostfixExpression{Left: left, Operator: p.curToken.Literal}, nil
}

func (p *Parser) parseInfixExpression(left ast.Expression) (ast.Expression, error) {
	expr := &ast.InfixExpression{Left: left, Operator: p.curToken.Literal}
	precedence := p.curPrecedence()
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	right, err := p.parseExpression(precedence)
	if err != nil {
		return nil, err
	}
	expr.Right = right
	return expr, nil
}

// parseAssignmentExpression parses the right side one level below '=' so
// that `a = b = c` nests to the right.
func (p *Parser) parseAssignmentExpression(left ast.Expression) (ast.Expression, error) {
	expr := &ast.InfixExpression{Left: left, Operator: p.curToken.Literal}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	right, err := p.parseExpression(ASSIGNMENT - 1)
	if err != nil {
		return nil, err
	}
	expr.Right = right
	return expr, nil
}

// parseTernaryExpression parses `cond ? a : b`; both arms parse at
// assignment level, so the construct nests to the right.
func (p *Parser) parseTernaryExpression(cond ast.Expression) (ast.Expression, error) {
	expr := &ast.TernaryExpression{Condition: cond}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	then, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	expr.Then = then
	if err := p.expectPeek(token.COLON); err != nil {
		return nil, err
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	alt, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	expr.Else = alt
	return expr, nil
}

func (p *Parser) parseCallExpression(fn ast.Expression) (ast.Expression, error) {
	call := &ast.CallExpression{Function: fn}
	if p.peekTokenIs(token.RPAREN) {
		return call, p.nextToken()
	}
	for {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		arg, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		call.Arguments = append(call.Arguments, arg)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}
	return call, p.expectPeek(token.RPAREN)
}

func (p *Parser) parseIndexExpression(left ast.Expression) (ast.Expression, error) {
	expr := &ast.IndexExpression{Left: left}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	idx, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	expr.Index = idx
	return expr, p.expectPeek(token.RBRACKET)
}

func (p *Parser) parseSizeofExpression() (ast.Expression, error) {
	if err := p.expectPeek(token.LPAREN); err != nil {
		return nil, err
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	ty, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expectPeek(token.RPAREN); err != nil {
		return nil, err
	}
	return &ast.SizeofExpression{Type: ty}, nil
}

// parseGroupedOrCastExpression disambiguates `(expr)` from `(type) expr`:
// a type keyword right after '(' makes it a cast.
func (p *Parser) parseGroupedOrCastExpression() (ast.Expression, error) {
	if token.IsType(p.peekToken.Type) {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		ty, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expectPeek(token.RPAREN); err != nil {
			return nil, err
		}
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		right, err := p.parseExpression(PREFIX)
		if err != nil {
			return nil, err
		}
		return &ast.CastExpression{Type: ty, Right: right}, nil
	}

	if err := p.nextToken(); err != nil {
		return nil, err
	}
	expr, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	return expr, p.expectPeek(token.RPAREN)
}

// Package parser turns the token stream into an AST by recursive descent
// with Pratt-style operator precedence. Only the first error is recorded:
// everything after it is usually cascading noise, and a lexical error is
// always terminal.
package parser

import (
	"github.com/chervil-lang/chervil/pkg/chervil/ast"
	cerrors "github.com/chervil-lang/chervil/pkg/chervil/errors"
	"github.com/chervil-lang/chervil/pkg/chervil/lexer"
)

// LOWEST is the entry precedence for expression parsing. Operator binding
// powers come from lexer.TokenType.Precedence; calls and indexing bind
// tighter than any operator.
const (
	LOWEST    = 0
	callBind  = 255
	indexBind = 255
)

// Parser represents the parser.
type Parser struct {
	l *lexer.Lexer

	errs []*cerrors.ChervilError

	prevToken lexer.Token
	curToken  lexer.Token
	peekToken lexer.Token
	curPos    lexer.Position
	peekPos   lexer.Position

	// Set when compiling a single expression: function and closure
	// definitions are rejected.
	expressionOnly bool

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// New creates a new parser over the given lexer.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l: l,
	}

	p.prefixParseFns = make(map[lexer.TokenType]prefixParseFn)
	p.registerPrefix(lexer.IDENT, p.parseIdentifier)
	p.registerPrefix(lexer.RESERVED, p.parseReserved)
	p.registerPrefix(lexer.CUSTOM, p.parseIdentifier)
	p.registerPrefix(lexer.INT, p.parseIntegerLiteral)
	p.registerPrefix(lexer.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(lexer.STRING, p.parseStringLiteral)
	p.registerPrefix(lexer.CHAR, p.parseCharLiteral)
	p.registerPrefix(lexer.TRUE, p.parseBooleanLiteral)
	p.registerPrefix(lexer.FALSE, p.parseBooleanLiteral)
	p.registerPrefix(lexer.BANG, p.parsePrefixExpression)
	p.registerPrefix(lexer.UNARY_MINUS, p.parsePrefixExpression)
	p.registerPrefix(lexer.UNARY_PLUS, p.parsePrefixExpression)
	p.registerPrefix(lexer.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(lexer.LBRACKET, p.parseArrayLiteral)
	p.registerPrefix(lexer.MAP_START, p.parseMapLiteral)
	p.registerPrefix(lexer.IF, p.parseIfExpression)
	p.registerPrefix(lexer.PIPE, p.parseClosureLiteral)
	p.registerPrefix(lexer.OR, p.parseEmptyClosureLiteral)

	p.infixParseFns = make(map[lexer.TokenType]infixParseFn)
	for _, tt := range []lexer.TokenType{
		lexer.PLUS, lexer.MINUS, lexer.ASTERISK, lexer.SLASH, lexer.PERCENT,
		lexer.POWER, lexer.LSHIFT, lexer.RSHIFT,
		lexer.EQ, lexer.NOT_EQ, lexer.LT, lexer.GT, lexer.LTE, lexer.GTE,
		lexer.AND, lexer.OR, lexer.AMPERSAND, lexer.PIPE, lexer.CARET,
		lexer.IN,
	} {
		p.registerInfix(tt, p.parseInfixExpression)
	}
	p.registerInfix(lexer.LPAREN, p.parseCallExpression)
	p.registerInfix(lexer.LBRACKET, p.parseIndexExpression)
	p.registerInfix(lexer.PERIOD, p.parseDotExpression)

	// Prime curToken and peekToken.
	p.nextToken()
	p.nextToken()

	return p
}

// NewExpression creates a parser restricted to a single expression, for
// expression-only compilation.
func NewExpression(l *lexer.Lexer) *Parser {
	p := New(l)
	p.expressionOnly = true
	return p
}

func (p *Parser) registerPrefix(tt lexer.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tt] = fn
}

func (p *Parser) registerInfix(tt lexer.TokenType, fn infixParseFn) {
	p.infixParseFns[tt] = fn
}

// Errors returns the recorded parse errors (at most one).
func (p *Parser) Errors() []*cerrors.ChervilError {
	return p.errs
}

func (p *Parser) addError(code string, pos lexer.Position, data map[string]any) {
	if len(p.errs) > 0 {
		return
	}
	p.errs = append(p.errs, cerrors.NewWithPosition(code, pos.Line(), pos.Column(), data))
}

func (p *Parser) nextToken() {
	p.prevToken = p.curToken
	p.curToken = p.peekToken
	p.curPos = p.peekPos

	tok, pos, ok := p.l.NextToken()
	if !ok {
		tok = lexer.Token{Type: lexer.EOF, Literal: "{EOF}"}
	}

	// A lexical error is terminal: record it and stop feeding tokens.
	if tok.Type == lexer.LEX_ERROR {
		if len(p.errs) == 0 {
			p.errs = append(p.errs, tok.Err.WithPosition(pos.Line(), pos.Column()))
		}
		tok = lexer.Token{Type: lexer.EOF, Literal: "{EOF}"}
	}

	p.peekToken = tok
	p.peekPos = pos
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t lexer.TokenType) {
	expected := "'" + lexer.Token{Type: t}.Syntax() + "'"
	if t == lexer.IDENT {
		expected = "identifier"
	}
	got := p.peekToken.Literal
	if got == "" {
		got = p.peekToken.Syntax()
	}
	p.addError("PARSE-0001", p.peekPos, map[string]any{
		"Expected": expected,
		"Got":      got,
	})
}

func (p *Parser) peekPrecedence() int {
	switch p.peekToken.Type {
	case lexer.LPAREN:
		return callBind
	case lexer.LBRACKET:
		return indexBind
	}
	return p.peekToken.Type.Precedence()
}

// ParseProgram parses the whole token stream. Script function definitions
// are hoisted out of the statement list into Program.Functions.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{
		Statements: []ast.Statement{},
	}

	for !p.curTokenIs(lexer.EOF) && len(p.errs) == 0 {
		stmt := p.parseStatement()
		if fn, ok := stmt.(*ast.FunctionStatement); ok {
			program.Functions = append(program.Functions, fn)
		} else if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.nextToken()
	}

	return program
}

// ParseExpression parses exactly one expression and requires the stream
// to be exhausted afterwards.
func (p *Parser) ParseExpression() ast.Expression {
	expr := p.parseExpression(LOWEST)

	if len(p.errs) == 0 {
		if p.peekTokenIs(lexer.SEMICOLON) {
			p.nextToken()
		}
		if !p.peekTokenIs(lexer.EOF) {
			p.addError("PARSE-0002", p.peekPos, map[string]any{"Token": p.peekToken.Syntax()})
		}
	}

	return expr
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case lexer.LET:
		return p.parseLetStatement()
	case lexer.CONST:
		return p.parseConstStatement()
	case lexer.RETURN:
		return p.parseReturnStatement()
	case lexer.THROW:
		return p.parseThrowStatement()
	case lexer.BREAK:
		stmt := &ast.BreakStatement{Token: p.curToken, Position: p.curPos}
		p.skipSemicolon()
		return stmt
	case lexer.CONTINUE:
		stmt := &ast.ContinueStatement{Token: p.curToken, Position: p.curPos}
		p.skipSemicolon()
		return stmt
	case lexer.WHILE:
		return p.parseWhileStatement()
	case lexer.LOOP:
		return p.parseLoopStatement()
	case lexer.FOR:
		return p.parseForStatement()
	case lexer.IMPORT:
		return p.parseImportStatement()
	case lexer.EXPORT:
		return p.parseExportStatement()
	case lexer.PRIVATE:
		if !p.expectPeek(lexer.FUNCTION) {
			return nil
		}
		return p.parseFunctionStatement(true)
	case lexer.FUNCTION:
		return p.parseFunctionStatement(false)
	case lexer.LBRACE:
		if block := p.parseBlockStatement(); block != nil {
			return block
		}
		return nil
	case lexer.SEMICOLON:
		return nil
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) skipSemicolon() {
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
}

func (p *Parser) parseLetStatement() ast.Statement {
	stmt := &ast.LetStatement{Token: p.curToken, Position: p.curPos}

	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.curToken, Position: p.curPos, Value: p.curToken.Literal}

	if p.peekTokenIs(lexer.ASSIGN) {
		p.nextToken()
		p.nextToken()
		stmt.Value = p.parseExpression(LOWEST)
	}

	p.skipSemicolon()
	return stmt
}

func (p *Parser) parseConstStatement() ast.Statement {
	stmt := &ast.ConstStatement{Token: p.curToken, Position: p.curPos}

	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.curToken, Position: p.curPos, Value: p.curToken.Literal}

	if !p.expectPeek(lexer.ASSIGN) {
		return nil
	}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)

	p.skipSemicolon()
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.curToken, Position: p.curPos}

	if !p.peekTokenIs(lexer.SEMICOLON) && !p.peekTokenIs(lexer.RBRACE) && !p.peekTokenIs(lexer.EOF) {
		p.nextToken()
		stmt.ReturnValue = p.parseExpression(LOWEST)
	}

	p.skipSemicolon()
	return stmt
}

func (p *Parser) parseThrowStatement() ast.Statement {
	stmt := &ast.ThrowStatement{Token: p.curToken, Position: p.curPos}

	if !p.peekTokenIs(lexer.SEMICOLON) && !p.peekTokenIs(lexer.RBRACE) && !p.peekTokenIs(lexer.EOF) {
		p.nextToken()
		stmt.Value = p.parseExpression(LOWEST)
	}

	p.skipSemicolon()
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{Token: p.curToken, Position: p.curPos}

	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)

	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()

	return stmt
}

func (p *Parser) parseLoopStatement() ast.Statement {
	stmt := &ast.LoopStatement{Token: p.curToken, Position: p.curPos}

	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()

	return stmt
}

func (p *Parser) parseForStatement() ast.Statement {
	stmt := &ast.ForStatement{Token: p.curToken, Position: p.curPos}

	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.curToken, Position: p.curPos, Value: p.curToken.Literal}

	if !p.expectPeek(lexer.IN) {
		return nil
	}

	p.nextToken()
	stmt.Iterable = p.parseExpression(LOWEST)

	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()

	return stmt
}

func (p *Parser) parseImportStatement() ast.Statement {
	stmt := &ast.ImportStatement{Token: p.curToken, Position: p.curPos}

	p.nextToken()
	stmt.Path = p.parseExpression(LOWEST)

	if p.peekTokenIs(lexer.AS) {
		p.nextToken()
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		stmt.Alias = p.curToken.Literal
	}

	p.skipSemicolon()
	return stmt
}

func (p *Parser) parseExportStatement() ast.Statement {
	stmt := &ast.ExportStatement{Token: p.curToken, Position: p.curPos}

	switch p.peekToken.Type {
	case lexer.LET:
		p.nextToken()
		stmt.Inner = p.parseLetStatement()
	case lexer.CONST:
		p.nextToken()
		stmt.Inner = p.parseConstStatement()
	case lexer.IDENT:
		p.nextToken()
		stmt.Name = p.curToken.Literal
		if p.peekTokenIs(lexer.AS) {
			p.nextToken()
			if !p.expectPeek(lexer.IDENT) {
				return nil
			}
			stmt.Alias = p.curToken.Literal
		}
		p.skipSemicolon()
	default:
		p.peekError(lexer.IDENT)
		return nil
	}

	return stmt
}

func (p *Parser) parseFunctionStatement(private bool) ast.Statement {
	if p.expressionOnly {
		p.addError("PARSE-0004", p.curPos, nil)
		return nil
	}

	stmt := &ast.FunctionStatement{Token: p.curToken, Position: p.curPos, Private: private}

	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.curToken, Position: p.curPos, Value: p.curToken.Literal}

	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	stmt.Params = p.parseFunctionParams(lexer.RPAREN, stmt.Name.Value)
	if stmt.Params == nil && len(p.errs) > 0 {
		return nil
	}

	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()

	return stmt
}

// parseFunctionParams parses a comma-separated identifier list up to the
// closing token, rejecting duplicate names.
func (p *Parser) parseFunctionParams(closing lexer.TokenType, fnName string) []*ast.Identifier {
	params := []*ast.Identifier{}
	seen := map[string]bool{}

	if p.peekTokenIs(closing) {
		p.nextToken()
		return params
	}

	for {
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		name := p.curToken.Literal
		if seen[name] {
			p.addError("PARSE-0003", p.curPos, map[string]any{
				"Param":    name,
				"Function": fnName,
			})
			return nil
		}
		seen[name] = true
		params = append(params, &ast.Identifier{Token: p.curToken, Position: p.curPos, Value: name})

		if !p.peekTokenIs(lexer.COMMA) {
			break
		}
		p.nextToken()
	}

	if !p.expectPeek(closing) {
		return nil
	}
	return params
}

func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken, Position: p.curPos}

	p.nextToken()
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) && len(p.errs) == 0 {
		if p.curTokenIs(lexer.FUNCTION) || p.curTokenIs(lexer.PRIVATE) {
			// Functions may only be defined at the top level of a script.
			p.addError("PARSE-0002", p.curPos, map[string]any{"Token": p.curToken.Syntax()})
			return nil
		}
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}

	if !p.curTokenIs(lexer.RBRACE) && len(p.errs) == 0 {
		p.addError("PARSE-0001", p.curPos, map[string]any{
			"Expected": "'}'",
			"Got":      p.curToken.Syntax(),
		})
		return nil
	}

	return block
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	firstToken := p.curToken
	firstPos := p.curPos

	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}

	if op := p.peekToken.Type; isAssignOperator(op) {
		if !isAssignable(expr) {
			p.addError("PARSE-0005", p.peekPos, nil)
			return nil
		}
		p.nextToken()
		opToken := p.curToken
		opPos := p.curPos
		p.nextToken()
		value := p.parseExpression(LOWEST)

		p.skipSemicolon()
		return &ast.AssignmentStatement{
			Token:    opToken,
			Position: opPos,
			Target:   expr,
			Operator: op,
			Value:    value,
		}
	}

	p.skipSemicolon()
	return &ast.ExpressionStatement{Token: firstToken, Position: firstPos, Expression: expr}
}

func isAssignOperator(t lexer.TokenType) bool {
	switch t {
	case lexer.ASSIGN,
		lexer.PLUS_ASSIGN, lexer.MINUS_ASSIGN, lexer.ASTERISK_ASSIGN,
		lexer.SLASH_ASSIGN, lexer.LSHIFT_ASSIGN, lexer.RSHIFT_ASSIGN,
		lexer.AND_ASSIGN, lexer.OR_ASSIGN, lexer.CARET_ASSIGN,
		lexer.PERCENT_ASSIGN, lexer.POWER_ASSIGN:
		return true
	}
	return false
}

func isAssignable(expr ast.Expression) bool {
	switch e := expr.(type) {
	case *ast.Identifier:
		return true
	case *ast.IndexExpression:
		return true
	case *ast.DotExpression:
		return e.Call == nil
	}
	return false
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError()
		return nil
	}

	leftExp := prefix()

	for leftExp != nil && !p.peekTokenIs(lexer.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}

		p.nextToken()
		leftExp = infix(leftExp)
	}

	return leftExp
}

func (p *Parser) noPrefixParseFnError() {
	if p.curTokenIs(lexer.EOF) && len(p.errs) > 0 {
		// A lexical error already ended the stream.
		return
	}
	p.addError("PARSE-0002", p.curPos, map[string]any{"Token": p.curToken.Syntax()})
}

func (p *Parser) parseIdentifier() ast.Expression {
	ident := &ast.Identifier{Token: p.curToken, Position: p.curPos, Value: p.curToken.Literal}

	if !p.peekTokenIs(lexer.DOUBLECOLON) {
		return ident
	}

	// A namespace-qualified path: a::b::c.
	path := &ast.PathExpression{
		Token:    p.curToken,
		Position: p.curPos,
		Segments: []string{ident.Value},
	}
	for p.peekTokenIs(lexer.DOUBLECOLON) {
		p.nextToken()
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		path.Segments = append(path.Segments, p.curToken.Literal)
	}
	return path
}

// parseReserved handles reserved words in expression position. The
// keyword functions (print, type_of, call, ...) act as plain identifiers
// so that calls to them parse normally; anything else is an error.
func (p *Parser) parseReserved() ast.Expression {
	if lexer.IsKeywordFunction(p.curToken.Literal) {
		return &ast.Identifier{Token: p.curToken, Position: p.curPos, Value: p.curToken.Literal}
	}
	p.addError("PARSE-0002", p.curPos, map[string]any{"Token": p.curToken.Literal})
	return nil
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	return &ast.IntegerLiteral{Token: p.curToken, Position: p.curPos, Value: p.curToken.Int}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	return &ast.FloatLiteral{Token: p.curToken, Position: p.curPos, Value: p.curToken.Float}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Position: p.curPos, Value: p.curToken.Literal}
}

func (p *Parser) parseCharLiteral() ast.Expression {
	return &ast.CharLiteral{Token: p.curToken, Position: p.curPos, Value: p.curToken.Char}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Position: p.curPos, Value: p.curTokenIs(lexer.TRUE)}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expr := &ast.PrefixExpression{
		Token:    p.curToken,
		Position: p.curPos,
		Operator: p.curToken.Literal,
	}

	p.nextToken()
	expr.Right = p.parseExpression(prefixBind)
	if expr.Right == nil {
		return nil
	}

	return expr
}

// prefixBind binds tighter than any binary operator but looser than calls
// and indexing, so -x.y parses as -(x.y).
const prefixBind = 230

func (p *Parser) parseGroupedExpression() ast.Expression {
	if p.peekTokenIs(lexer.RPAREN) {
		unit := &ast.UnitLiteral{Token: p.curToken, Position: p.curPos}
		p.nextToken()
		return unit
	}

	p.nextToken()
	expr := p.parseExpression(LOWEST)

	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	return expr
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	arr := &ast.ArrayLiteral{Token: p.curToken, Position: p.curPos}
	arr.Elements = p.parseExpressionList(lexer.RBRACKET)
	if arr.Elements == nil && len(p.errs) > 0 {
		return nil
	}
	return arr
}

func (p *Parser) parseExpressionList(closing lexer.TokenType) []ast.Expression {
	list := []ast.Expression{}

	if p.peekTokenIs(closing) {
		p.nextToken()
		return list
	}

	p.nextToken()
	list = append(list, p.parseExpression(LOWEST))

	for p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(LOWEST))
	}

	if !p.expectPeek(closing) {
		return nil
	}
	return list
}

func (p *Parser) parseMapLiteral() ast.Expression {
	m := &ast.MapLiteral{Token: p.curToken, Position: p.curPos}
	seen := map[string]bool{}

	for !p.peekTokenIs(lexer.RBRACE) {
		p.nextToken()

		var key string
		switch p.curToken.Type {
		case lexer.IDENT, lexer.STRING:
			key = p.curToken.Literal
		default:
			p.addError("PARSE-0002", p.curPos, map[string]any{"Token": p.curToken.Syntax()})
			return nil
		}
		if seen[key] {
			p.addError("PARSE-0005", p.curPos, nil)
			return nil
		}
		seen[key] = true

		if !p.expectPeek(lexer.COLON) {
			return nil
		}
		p.nextToken()
		value := p.parseExpression(LOWEST)
		if value == nil {
			return nil
		}

		m.Keys = append(m.Keys, key)
		m.Values = append(m.Values, value)

		if !p.peekTokenIs(lexer.RBRACE) && !p.expectPeek(lexer.COMMA) {
			return nil
		}
	}

	if !p.expectPeek(lexer.RBRACE) {
		return nil
	}
	return m
}

func (p *Parser) parseIfExpression() ast.Expression {
	expr := &ast.IfExpression{Token: p.curToken, Position: p.curPos}

	p.nextToken()
	expr.Condition = p.parseExpression(LOWEST)

	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	expr.Consequence = p.parseBlockStatement()
	if expr.Consequence == nil {
		return nil
	}

	if p.peekTokenIs(lexer.ELSE) {
		p.nextToken()

		if p.peekTokenIs(lexer.IF) {
			p.nextToken()
			expr.Alternative, _ = p.parseIfExpression().(*ast.IfExpression)
			return expr
		}

		if !p.expectPeek(lexer.LBRACE) {
			return nil
		}
		expr.Alternative = p.parseBlockStatement()
	}

	return expr
}

func (p *Parser) parseClosureLiteral() ast.Expression {
	if p.expressionOnly {
		p.addError("PARSE-0004", p.curPos, nil)
		return nil
	}

	cl := &ast.ClosureLiteral{Token: p.curToken, Position: p.curPos}
	cl.Params = p.parseFunctionParams(lexer.PIPE, "anonymous")
	if cl.Params == nil && len(p.errs) > 0 {
		return nil
	}

	return p.parseClosureBody(cl)
}

// parseEmptyClosureLiteral handles '|| expr': with no parameters the two
// pipes lex as a single OR token.
func (p *Parser) parseEmptyClosureLiteral() ast.Expression {
	if p.expressionOnly {
		p.addError("PARSE-0004", p.curPos, nil)
		return nil
	}

	cl := &ast.ClosureLiteral{Token: p.curToken, Position: p.curPos, Params: []*ast.Identifier{}}
	return p.parseClosureBody(cl)
}

func (p *Parser) parseClosureBody(cl *ast.ClosureLiteral) ast.Expression {
	if p.peekTokenIs(lexer.LBRACE) {
		p.nextToken()
		body := p.parseBlockStatement()
		if body == nil {
			return nil
		}
		cl.Body = body
		return cl
	}

	p.nextToken()
	cl.Body = p.parseExpression(LOWEST)
	if cl.Body == nil {
		return nil
	}
	return cl
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expr := &ast.InfixExpression{
		Token:    p.curToken,
		Position: p.curPos,
		Left:     left,
		Operator: p.curToken.Literal,
	}

	precedence := p.curToken.Type.Precedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	if expr.Right == nil {
		return nil
	}

	return expr
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	switch function.(type) {
	case *ast.Identifier, *ast.PathExpression:
	default:
		p.addError("PARSE-0005", p.curPos, nil)
		return nil
	}

	call := &ast.CallExpression{Token: p.curToken, Position: p.curPos, Function: function}
	call.Arguments = p.parseExpressionList(lexer.RPAREN)
	if call.Arguments == nil && len(p.errs) > 0 {
		return nil
	}
	return call
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	expr := &ast.IndexExpression{Token: p.curToken, Position: p.curPos, Left: left}

	p.nextToken()
	expr.Index = p.parseExpression(LOWEST)

	if !p.expectPeek(lexer.RBRACKET) {
		return nil
	}
	return expr
}

func (p *Parser) parseDotExpression(left ast.Expression) ast.Expression {
	dot := &ast.DotExpression{Token: p.curToken, Position: p.curPos, Left: left}

	switch p.peekToken.Type {
	case lexer.IDENT, lexer.RESERVED, lexer.CUSTOM:
		p.nextToken()
	default:
		p.peekError(lexer.IDENT)
		return nil
	}
	dot.Name = p.curToken.Literal
	namePos := p.curPos

	if p.peekTokenIs(lexer.LPAREN) {
		method := &ast.Identifier{Token: p.curToken, Position: namePos, Value: dot.Name}
		p.nextToken()
		call, _ := p.parseCallExpression(method).(*ast.CallExpression)
		if call == nil {
			return nil
		}
		dot.Call = call
	}

	return dot
}

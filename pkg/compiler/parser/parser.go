// Package parser implements Quill's recursive-descent parser with
// precedence-climbing expression parsing over a two-token (cur/peek)
// lookahead buffer.
package parser

import (
	"fmt"
	"math"
	"strconv"

	"github.com/quillscript/compiler/pkg/compiler/ast"
	"github.com/quillscript/compiler/pkg/compiler/lexer"
	"github.com/quillscript/compiler/pkg/compiler/token"
)

// Parser holds the two-token lookahead window over a Lexer.
type Parser struct {
	lex *lexer.Lexer
	cur  token.Token
	peek token.Token
}

// New creates a Parser over lex, priming the lookahead window.
func New(lex *lexer.Lexer) (*Parser, error) {
	p := &Parser{lex: lex}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

// Parse parses src into a Program. The first error encountered aborts
// the parse; there is no recovery (spec'd behavior).
func Parse(src []byte) (*ast.Program, error) {
	p, err := New(lexer.New(src))
	if err != nil {
		return nil, err
	}
	return p.ParseProgram()
}

func (p *Parser) advance() error {
	p.cur = p.peek
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.peek = t
	return nil
}

func (p *Parser) expect(k token.Kind) error {
	if p.cur.Kind != k {
		return fmt.Errorf("Expected %s, got %s at line %d", k, p.cur.Kind, p.cur.Line)
	}
	return nil
}

// consume checks the current token against k, then advances past it.
func (p *Parser) consume(k token.Kind) error {
	if err := p.expect(k); err != nil {
		return err
	}
	return p.advance()
}

// ParseProgram parses a full statement sequence up to EOF.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for p.cur.Kind != token.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
	}
	return prog, nil
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.cur.Kind {
	case token.TYPE:
		return p.parseTypeDecl()
	case token.INTERFACE:
		return p.parseInterfaceDecl()
	case token.LET, token.CONST:
		return p.parseVarDecl()
	case token.FN:
		return p.parseFuncDecl(false)
	case token.ASYNC:
		if p.peek.Kind == token.FN {
			return p.parseFuncDecl(true)
		}
		return p.parseExprStmt()
	case token.RETURN:
		return p.parseReturn()
	case token.IF:
		return p.parseIf()
	case token.FOR:
		return p.parseFor()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseTypeDecl() (ast.Statement, error) {
	tok := p.cur
	if err := p.consume(token.TYPE); err != nil {
		return nil, err
	}
	if err := p.expect(token.IDENT); err != nil {
		return nil, err
	}
	name := p.cur.Lexeme
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.consume(token.ASSIGN); err != nil {
		return nil, err
	}
	ann, err := p.parseTypeAnn()
	if err != nil {
		return nil, err
	}
	return &ast.TypeDecl{Token: tok, Name: name, Ann: ann}, nil
}

func (p *Parser) parseInterfaceDecl() (ast.Statement, error) {
	tok := p.cur
	if err := p.consume(token.INTERFACE); err != nil {
		return nil, err
	}
	if err := p.expect(token.IDENT); err != nil {
		return nil, err
	}
	name := p.cur.Lexeme
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.consume(token.LBRACE); err != nil {
		return nil, err
	}
	var fields []ast.InterfaceField
	for p.cur.Kind != token.RBRACE {
		if err := p.expect(token.IDENT); err != nil {
			return nil, err
		}
		fname := p.cur.Lexeme
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.consume(token.COLON); err != nil {
			return nil, err
		}
		ann, err := p.parseTypeAnn()
		if err != nil {
			return nil, err
		}
		fields = append(fields, ast.InterfaceField{Name: fname, Ann: ann})
		if p.cur.Kind == token.COMMA {
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else {
			break
		}
	}
	if err := p.consume(token.RBRACE); err != nil {
		return nil, err
	}
	return &ast.InterfaceDecl{Token: tok, Name: name, Fields: fields}, nil
}

func (p *Parser) parseVarDecl() (ast.Statement, error) {
	tok := p.cur
	isConst := p.cur.Kind == token.CONST
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect(token.IDENT); err != nil {
		return nil, err
	}
	name := p.cur.Lexeme
	if err := p.advance(); err != nil {
		return nil, err
	}
	var ann ast.TypeAnn
	if p.cur.Kind == token.COLON {
		if err := p.advance(); err != nil {
			return nil, err
		}
		a, err := p.parseTypeAnn()
		if err != nil {
			return nil, err
		}
		ann = a
	}
	if err := p.consume(token.ASSIGN); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.VarDecl{Token: tok, Name: name, Const: isConst, Ann: ann, Value: value}, nil
}

func (p *Parser) parseFuncDecl(isAsync bool) (ast.Statement, error) {
	startTok := p.cur
	if isAsync {
		if err := p.advance(); err != nil { // consume ASYNC, land on FN
			return nil, err
		}
	}
	if err := p.consume(token.FN); err != nil {
		return nil, err
	}
	if err := p.expect(token.IDENT); err != nil {
		return nil, err
	}
	name := p.cur.Lexeme
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.consume(token.LPAREN); err != nil {
		return nil, err
	}
	params, err := p.parseFuncParams()
	if err != nil {
		return nil, err
	}
	if err := p.consume(token.RPAREN); err != nil {
		return nil, err
	}
	var ret ast.TypeAnn
	if p.cur.Kind == token.ARROW_RETURN {
		if err := p.advance(); err != nil {
			return nil, err
		}
		ret, err = p.parseTypeAnn()
		if err != nil {
			return nil, err
		}
	}
	if err := p.consume(token.LBRACE); err != nil {
		return nil, err
	}
	body, err := p.parseBlock(token.RBRACE)
	if err != nil {
		return nil, err
	}
	if err := p.consume(token.RBRACE); err != nil {
		return nil, err
	}
	return &ast.FuncDecl{Token: startTok, Name: name, Params: params, Ret: ret, Body: body, Async: isAsync}, nil
}

func (p *Parser) parseFuncParams() ([]ast.Param, error) {
	var params []ast.Param
	for p.cur.Kind != token.RPAREN {
		if err := p.expect(token.IDENT); err != nil {
			return nil, err
		}
		name := p.cur.Lexeme
		if err := p.advance(); err != nil {
			return nil, err
		}
		var ann ast.TypeAnn
		if p.cur.Kind == token.COLON {
			if err := p.advance(); err != nil {
				return nil, err
			}
			a, err := p.parseTypeAnn()
			if err != nil {
				return nil, err
			}
			ann = a
		}
		params = append(params, ast.Param{Name: name, Ann: ann})
		if p.cur.Kind == token.COMMA {
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else {
			break
		}
	}
	return params, nil
}

func (p *Parser) parseReturn() (ast.Statement, error) {
	tok := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	if !canStartExpr(p.cur.Kind) {
		return &ast.Return{Token: tok}, nil
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.Return{Token: tok, Value: value}, nil
}

func (p *Parser) parseIf() (ast.Statement, error) {
	tok := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.consume(token.LBRACE); err != nil {
		return nil, err
	}
	thenBody, err := p.parseBlock(token.RBRACE)
	if err != nil {
		return nil, err
	}
	if err := p.consume(token.RBRACE); err != nil {
		return nil, err
	}
	var elseBody []ast.Statement
	if p.cur.Kind == token.ELSE {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.consume(token.LBRACE); err != nil {
			return nil, err
		}
		elseBody, err = p.parseBlock(token.RBRACE)
		if err != nil {
			return nil, err
		}
		if err := p.consume(token.RBRACE); err != nil {
			return nil, err
		}
	}
	return &ast.If{Token: tok, Condition: cond, Then: thenBody, Else: elseBody}, nil
}

func (p *Parser) parseFor() (ast.Statement, error) {
	tok := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	isAwait := false
	if p.cur.Kind == token.AWAIT {
		isAwait = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if err := p.expect(token.IDENT); err != nil {
		return nil, err
	}
	loopVar := p.cur.Lexeme
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.consume(token.IN); err != nil {
		return nil, err
	}
	iterable, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.consume(token.LBRACE); err != nil {
		return nil, err
	}
	body, err := p.parseBlock(token.RBRACE)
	if err != nil {
		return nil, err
	}
	if err := p.consume(token.RBRACE); err != nil {
		return nil, err
	}
	return &ast.For{Token: tok, Var: loopVar, Iterable: iterable, Body: body, Await: isAwait}, nil
}

func (p *Parser) parseExprStmt() (ast.Statement, error) {
	tok := p.cur
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Token: tok, Value: value}, nil
}

func (p *Parser) parseBlock(terminator token.Kind) ([]ast.Statement, error) {
	var stmts []ast.Statement
	for p.cur.Kind != terminator && p.cur.Kind != token.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func canStartExpr(k token.Kind) bool {
	switch k {
	case token.NUMBER, token.STRING, token.IDENT, token.TRUE, token.FALSE, token.NULL,
		token.LPAREN, token.LBRACKET, token.LBRACE, token.MINUS, token.NOT, token.AWAIT, token.ASYNC:
		return true
	}
	return false
}

// --- Expression grammar (precedence, low to high) ---
// assignment -> conditional -> logicalOr -> logicalAnd -> equality ->
// relational -> additive -> multiplicative -> unary -> call/member -> primary

func (p *Parser) parseExpression() (ast.Expr, error) {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() (ast.Expr, error) {
	left, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind == token.ASSIGN {
		tok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		return &ast.Assignment{Token: tok, Target: left, Value: right}, nil
	}
	return left, nil
}

func (p *Parser) parseConditional() (ast.Expr, error) {
	test, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind == token.QUESTION {
		tok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		thenE, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		if err := p.consume(token.COLON); err != nil {
			return nil, err
		}
		elseE, err := p.parseConditional()
		if err != nil {
			return nil, err
		}
		return &ast.Conditional{Token: tok, Test: test, Then: thenE, Else: elseE}, nil
	}
	return test, nil
}

func (p *Parser) parseLogicalOr() (ast.Expr, error) {
	left, err := p.parseLogicalAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.OR {
		tok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseLogicalAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Token: tok, Op: "||", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseLogicalAnd() (ast.Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.AND {
		tok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Token: tok, Op: "&&", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseEquality() (ast.Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.EQ || p.cur.Kind == token.NEQ {
		tok := p.cur
		op := tok.Lexeme
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Token: tok, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseRelational() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.LT || p.cur.Kind == token.LTE || p.cur.Kind == token.GT || p.cur.Kind == token.GTE {
		tok := p.cur
		op := tok.Lexeme
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Token: tok, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.PLUS || p.cur.Kind == token.MINUS {
		tok := p.cur
		op := tok.Lexeme
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Token: tok, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.STAR || p.cur.Kind == token.SLASH || p.cur.Kind == token.PERCENT {
		tok := p.cur
		op := tok.Lexeme
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Token: tok, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	switch p.cur.Kind {
	case token.NOT, token.MINUS:
		tok := p.cur
		op := tok.Lexeme
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Token: tok, Op: op, Operand: operand}, nil
	case token.AWAIT:
		tok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Await{Token: tok, Argument: arg}, nil
	default:
		return p.parseCallMember()
	}
}

func (p *Parser) parseCallMember() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur.Kind {
		case token.DOT:
			tok := p.cur
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expect(token.IDENT); err != nil {
				return nil, err
			}
			name := p.cur.Lexeme
			propTok := p.cur
			if err := p.advance(); err != nil {
				return nil, err
			}
			prop := &ast.Identifier{Token: propTok, Name: name}
			expr = &ast.Member{Token: tok, Object: expr, Property: prop, Computed: false}
		case token.LBRACKET:
			tok := p.cur
			if err := p.advance(); err != nil {
				return nil, err
			}
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.consume(token.RBRACKET); err != nil {
				return nil, err
			}
			lit, ok := index.(*ast.Literal)
			if !ok {
				return nil, fmt.Errorf("Complex computed member access not yet supported at line %d", tok.Line)
			}
			key, ok := literalKeyString(lit)
			if !ok {
				return nil, fmt.Errorf("Complex computed member access not yet supported at line %d", tok.Line)
			}
			prop := &ast.Literal{Token: lit.Token, Kind: ast.LitString, Str: key}
			expr = &ast.Member{Token: tok, Object: expr, Property: prop, Computed: true}
		case token.LPAREN:
			tok := p.cur
			if err := p.advance(); err != nil {
				return nil, err
			}
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			if err := p.consume(token.RPAREN); err != nil {
				return nil, err
			}
			expr = &ast.Call{Token: tok, Callee: expr, Args: args}
		default:
			return expr, nil
		}
	}
}

// literalKeyString lowers a literal used as a computed member index
// (`obj[lit]`) to its string key form: a string literal passes through
// unchanged, a number literal is stringified so `arr[0]` and `arr["0"]`
// resolve identically downstream.
func literalKeyString(lit *ast.Literal) (string, bool) {
	switch lit.Kind {
	case ast.LitString:
		return lit.Str, true
	case ast.LitNumber:
		if lit.Num == math.Trunc(lit.Num) {
			return strconv.FormatFloat(lit.Num, 'f', -1, 64), true
		}
		return strconv.FormatFloat(lit.Num, 'g', -1, 64), true
	default:
		return "", false
	}
}

func (p *Parser) parseArgs() ([]ast.Expr, error) {
	var args []ast.Expr
	for p.cur.Kind != token.RPAREN {
		arg, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.cur.Kind == token.COMMA {
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else {
			break
		}
	}
	return args, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	switch p.cur.Kind {
	case token.NUMBER:
		tok := p.cur
		val, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number literal %q at line %d", tok.Lexeme, tok.Line)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Literal{Token: tok, Kind: ast.LitNumber, Num: val}, nil
	case token.STRING:
		tok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Literal{Token: tok, Kind: ast.LitString, Str: tok.Lexeme}, nil
	case token.TRUE, token.FALSE:
		tok := p.cur
		b := tok.Kind == token.TRUE
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Literal{Token: tok, Kind: ast.LitBool, Bool: b}, nil
	case token.NULL:
		tok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Literal{Token: tok, Kind: ast.LitNull}, nil
	case token.IDENT:
		if p.peek.Kind == token.ARROW_FN {
			tok := p.cur
			name := p.cur.Lexeme
			if err := p.advance(); err != nil { // consume ident
				return nil, err
			}
			if err := p.advance(); err != nil { // consume =>
				return nil, err
			}
			body, err := p.parseAssignment()
			if err != nil {
				return nil, err
			}
			return &ast.Arrow{Token: tok, Params: []string{name}, Body: body}, nil
		}
		tok := p.cur
		name := p.cur.Lexeme
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Identifier{Token: tok, Name: name}, nil
	case token.ASYNC:
		return p.parseAsyncArrow()
	case token.LPAREN:
		return p.parseParenOrArrow()
	case token.LBRACKET:
		return p.parseArrayLiteral()
	case token.LBRACE:
		return p.parseObjectLiteral()
	default:
		return nil, fmt.Errorf("Unexpected token %s at line %d", p.cur.Kind, p.cur.Line)
	}
}

func (p *Parser) parseAsyncArrow() (ast.Expr, error) {
	tok := p.cur
	if err := p.advance(); err != nil { // consume async
		return nil, err
	}
	if p.cur.Kind == token.IDENT {
		name := p.cur.Lexeme
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.consume(token.ARROW_FN); err != nil {
			return nil, err
		}
		body, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		return &ast.Arrow{Token: tok, Params: []string{name}, Body: body, Async: true}, nil
	}
	if p.cur.Kind == token.LPAREN {
		params, err := p.parseArrowParenParams()
		if err != nil {
			return nil, err
		}
		if err := p.consume(token.ARROW_FN); err != nil {
			return nil, err
		}
		body, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		return &ast.Arrow{Token: tok, Params: params, Body: body, Async: true}, nil
	}
	return nil, fmt.Errorf("Expected identifier or '(' after 'async' at line %d", p.cur.Line)
}

// parseParenOrArrow resolves the arrow-vs-grouped-expression ambiguity
// via bounded lookahead: scan forward (on a cloned lexer, leaving the
// main token stream untouched) to the matching ')' and check whether
// '=>' follows.
func (p *Parser) parseParenOrArrow() (ast.Expr, error) {
	isArrow, err := p.lookaheadIsArrow()
	if err != nil {
		return nil, err
	}
	if isArrow {
		tok := p.cur
		params, err := p.parseArrowParenParams()
		if err != nil {
			return nil, err
		}
		if err := p.consume(token.ARROW_FN); err != nil {
			return nil, err
		}
		body, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		return &ast.Arrow{Token: tok, Params: params, Body: body}, nil
	}

	if err := p.advance(); err != nil { // consume '('
		return nil, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.consume(token.RPAREN); err != nil {
		return nil, err
	}
	return expr, nil
}

func (p *Parser) lookaheadIsArrow() (bool, error) {
	clone := p.lex.Clone()
	pending := []token.Token{p.cur, p.peek}
	idx := 0
	next := func() (token.Token, error) {
		if idx < len(pending) {
			t := pending[idx]
			idx++
			return t, nil
		}
		return clone.Next()
	}

	depth := 0
	for {
		t, err := next()
		if err != nil {
			return false, err
		}
		if t.Kind == token.EOF {
			return false, nil
		}
		switch t.Kind {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth == 0 {
				goal, err := next()
				if err != nil {
					return false, err
				}
				return goal.Kind == token.ARROW_FN, nil
			}
		}
	}
}

func (p *Parser) parseArrowParenParams() ([]string, error) {
	if err := p.consume(token.LPAREN); err != nil {
		return nil, err
	}
	var params []string
	for p.cur.Kind != token.RPAREN {
		if err := p.expect(token.IDENT); err != nil {
			return nil, err
		}
		params = append(params, p.cur.Lexeme)
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Kind == token.COMMA {
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else {
			break
		}
	}
	if err := p.consume(token.RPAREN); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseArrayLiteral() (ast.Expr, error) {
	tok := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	var elems []ast.Expr
	for p.cur.Kind != token.RBRACKET {
		el, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		elems = append(elems, el)
		if p.cur.Kind == token.COMMA {
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else {
			break
		}
	}
	if err := p.consume(token.RBRACKET); err != nil {
		return nil, err
	}
	return &ast.Array{Token: tok, Elements: elems}, nil
}

func (p *Parser) parseObjectLiteral() (ast.Expr, error) {
	tok := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	var fields []ast.ObjectField
	for p.cur.Kind != token.RBRACE {
		if p.cur.Kind != token.IDENT {
			return nil, fmt.Errorf("Expected object key, got %s at line %d", p.cur.Kind, p.cur.Line)
		}
		key := p.cur.Lexeme
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.consume(token.COLON); err != nil {
			return nil, err
		}
		value, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		fields = append(fields, ast.ObjectField{Key: key, Value: value})
		if p.cur.Kind == token.COMMA {
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else {
			break
		}
	}
	if err := p.consume(token.RBRACE); err != nil {
		return nil, err
	}
	return &ast.Object{Token: tok, Fields: fields}, nil
}

// --- Type annotation grammar ---

func (p *Parser) parseTypeAnn() (ast.TypeAnn, error) {
	return p.parseUnionAnn()
}

func (p *Parser) parseUnionAnn() (ast.TypeAnn, error) {
	first, err := p.parseArrayAnn()
	if err != nil {
		return nil, err
	}
	alts := []ast.TypeAnn{first}
	for p.cur.Kind == token.PIPE {
		if err := p.advance(); err != nil {
			return nil, err
		}
		next, err := p.parseArrayAnn()
		if err != nil {
			return nil, err
		}
		alts = append(alts, next)
	}
	if len(alts) == 1 {
		return alts[0], nil
	}
	return ast.UnionAnn{Alternatives: alts}, nil
}

func (p *Parser) parseArrayAnn() (ast.TypeAnn, error) {
	base, err := p.parseTypeAnnPrimary()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == token.LBRACKET && p.peek.Kind == token.RBRACKET {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		base = ast.ArrayAnn{Element: base}
	}
	return base, nil
}

func (p *Parser) parseTypeAnnPrimary() (ast.TypeAnn, error) {
	switch p.cur.Kind {
	case token.NULL:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.PrimitiveAnn{Name: "null"}, nil
	case token.LBRACE:
		return p.parseObjectAnn()
	case token.IDENT:
		name := p.cur.Lexeme
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch name {
		case "number", "string", "boolean":
			return ast.PrimitiveAnn{Name: name}, nil
		case "Promise":
			if err := p.consume(token.LT); err != nil {
				return nil, err
			}
			inner, err := p.parseUnionAnn()
			if err != nil {
				return nil, err
			}
			if err := p.consume(token.GT); err != nil {
				return nil, err
			}
			return ast.PromiseAnn{Resolve: inner}, nil
		default:
			return ast.ReferenceAnn{Name: name}, nil
		}
	default:
		return nil, fmt.Errorf("Unexpected token %s in type annotation at line %d", p.cur.Kind, p.cur.Line)
	}
}

func (p *Parser) parseObjectAnn() (ast.TypeAnn, error) {
	if err := p.consume(token.LBRACE); err != nil {
		return nil, err
	}
	var fields []ast.ObjectAnnField
	for p.cur.Kind != token.RBRACE {
		if err := p.expect(token.IDENT); err != nil {
			return nil, err
		}
		name := p.cur.Lexeme
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.consume(token.COLON); err != nil {
			return nil, err
		}
		ann, err := p.parseUnionAnn()
		if err != nil {
			return nil, err
		}
		fields = append(fields, ast.ObjectAnnField{Name: name, Ann: ann})
		if p.cur.Kind == token.COMMA {
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else {
			break
		}
	}
	if err := p.consume(token.RBRACE); err != nil {
		return nil, err
	}
	return ast.ObjectAnn{Fields: fields}, nil
}

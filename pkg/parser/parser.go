// Package parser implements a recursive-descent parser for MiniC,
// producing the ast package's tree
package parser

import (
	"fmt"
	"strconv"

	"github.com/minic-lang/minicc/pkg/ast"
	"github.com/minic-lang/minicc/pkg/lexer"
)

// Parser consumes tokens from a Lexer and builds the AST
type Parser struct {
	l *lexer.Lexer

	curToken  lexer.Token
	peekToken lexer.Token

	errors []string
}

// New creates a Parser reading from l
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	// Prime curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// Errors returns the parse errors collected so far
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors,
		fmt.Sprintf("line %d: %s", p.curToken.Line, fmt.Sprintf(format, args...)))
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curToken.Type != t {
		p.errorf("expected %q, got %q", t.String(), p.curToken.Literal)
		return false
	}
	p.nextToken()
	return true
}

// ParseCompUnit parses a whole translation unit
func (p *Parser) ParseCompUnit() *ast.CompUnit {
	unit := &ast.CompUnit{}
	for p.curToken.Type != lexer.TokenEOF {
		node := p.parseTopLevel()
		if node == nil {
			// Error recovery: skip one token and retry
			p.nextToken()
			continue
		}
		unit.Decls = append(unit.Decls, node)
	}
	return unit
}

// parseTopLevel parses either a function definition or a global
// declaration statement. Both start with a type keyword and a name;
// a following '(' selects the function form.
func (p *Parser) parseTopLevel() ast.Node {
	retVoid := false
	switch p.curToken.Type {
	case lexer.TokenInt_:
	case lexer.TokenVoid:
		retVoid = true
	default:
		p.errorf("expected declaration, got %q", p.curToken.Literal)
		return nil
	}
	p.nextToken()

	if p.curToken.Type != lexer.TokenIdent {
		p.errorf("expected identifier, got %q", p.curToken.Literal)
		return nil
	}
	name := p.curToken.Literal
	line := p.curToken.Line
	p.nextToken()

	if p.curToken.Type == lexer.TokenLParen {
		return p.parseFuncDef(name, retVoid, line)
	}

	if retVoid {
		p.errorf("variable %s declared void", name)
		return nil
	}
	return p.parseDeclRest(name, line)
}

func (p *Parser) parseFuncDef(name string, retVoid bool, line int) ast.Node {
	fn := &ast.FuncDef{Name: name, RetVoid: retVoid, Line: line}
	p.nextToken() // consume '('

	for p.curToken.Type != lexer.TokenRParen && p.curToken.Type != lexer.TokenEOF {
		param := p.parseParam()
		if param == nil {
			return nil
		}
		fn.Params = append(fn.Params, param)
		if p.curToken.Type == lexer.TokenComma {
			p.nextToken()
		}
	}
	if !p.expect(lexer.TokenRParen) {
		return nil
	}

	body := p.parseBlock()
	if body == nil {
		return nil
	}
	fn.Body = body
	return fn
}

func (p *Parser) parseParam() *ast.Param {
	if !p.expect(lexer.TokenInt_) {
		return nil
	}
	if p.curToken.Type != lexer.TokenIdent {
		p.errorf("expected parameter name, got %q", p.curToken.Literal)
		return nil
	}
	param := &ast.Param{Name: p.curToken.Literal, Line: p.curToken.Line}
	p.nextToken()

	// Array parameter: first dimension is empty, later ones constant
	if p.curToken.Type == lexer.TokenLBracket {
		param.IsArray = true
		param.Dims = append(param.Dims, 0)
		p.nextToken()
		if !p.expect(lexer.TokenRBracket) {
			return nil
		}
		for p.curToken.Type == lexer.TokenLBracket {
			p.nextToken()
			dim, ok := p.parseConstDim()
			if !ok {
				return nil
			}
			param.Dims = append(param.Dims, dim)
			if !p.expect(lexer.TokenRBracket) {
				return nil
			}
		}
	}
	return param
}

// parseConstDim parses a constant array dimension
func (p *Parser) parseConstDim() (int32, bool) {
	if p.curToken.Type != lexer.TokenInt {
		p.errorf("array dimension must be a constant, got %q", p.curToken.Literal)
		return 0, false
	}
	v, err := strconv.ParseInt(p.curToken.Literal, 0, 32)
	if err != nil || v < 0 {
		p.errorf("invalid array dimension %q", p.curToken.Literal)
		return 0, false
	}
	p.nextToken()
	return int32(v), true
}

// parseDeclRest parses the remainder of a declaration statement whose
// type keyword and first declarator name are already consumed
func (p *Parser) parseDeclRest(firstName string, line int) ast.Node {
	decl := &ast.DeclStmt{Line: line}
	item := p.parseDeclarator(firstName, line)
	if item == nil {
		return nil
	}
	decl.Items = append(decl.Items, item)

	for p.curToken.Type == lexer.TokenComma {
		p.nextToken()
		if p.curToken.Type != lexer.TokenIdent {
			p.errorf("expected identifier, got %q", p.curToken.Literal)
			return nil
		}
		name := p.curToken.Literal
		nline := p.curToken.Line
		p.nextToken()
		item := p.parseDeclarator(name, nline)
		if item == nil {
			return nil
		}
		decl.Items = append(decl.Items, item)
	}
	if !p.expect(lexer.TokenSemicolon) {
		return nil
	}
	return decl
}

// parseDeclarator parses optional array dimensions and initializer for
// one declared variable whose name is already consumed
func (p *Parser) parseDeclarator(name string, line int) *ast.VarDecl {
	v := &ast.VarDecl{Name: name, Line: line}
	for p.curToken.Type == lexer.TokenLBracket {
		p.nextToken()
		dim, ok := p.parseConstDim()
		if !ok {
			return nil
		}
		v.Dims = append(v.Dims, dim)
		if !p.expect(lexer.TokenRBracket) {
			return nil
		}
	}
	if p.curToken.Type == lexer.TokenAssign {
		if len(v.Dims) > 0 {
			p.errorf("array initializer lists are not supported")
			return nil
		}
		p.nextToken()
		v.Init = p.parseExpr()
		if v.Init == nil {
			return nil
		}
	}
	return v
}

func (p *Parser) parseBlock() *ast.Block {
	block := &ast.Block{NeedScope: true, Line: p.curToken.Line}
	if !p.expect(lexer.TokenLBrace) {
		return nil
	}
	for p.curToken.Type != lexer.TokenRBrace && p.curToken.Type != lexer.TokenEOF {
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		block.Items = append(block.Items, stmt)
	}
	if !p.expect(lexer.TokenRBrace) {
		return nil
	}
	return block
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.curToken.Type {
	case lexer.TokenLBrace:
		b := p.parseBlock()
		if b == nil {
			return nil
		}
		return b
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenWhile:
		return p.parseWhile()
	case lexer.TokenBreak:
		s := &ast.Break{Line: p.curToken.Line}
		p.nextToken()
		if !p.expect(lexer.TokenSemicolon) {
			return nil
		}
		return s
	case lexer.TokenContinue:
		s := &ast.Continue{Line: p.curToken.Line}
		p.nextToken()
		if !p.expect(lexer.TokenSemicolon) {
			return nil
		}
		return s
	case lexer.TokenReturn:
		s := &ast.Return{Line: p.curToken.Line}
		p.nextToken()
		if p.curToken.Type != lexer.TokenSemicolon {
			s.X = p.parseExpr()
			if s.X == nil {
				return nil
			}
		}
		if !p.expect(lexer.TokenSemicolon) {
			return nil
		}
		return s
	case lexer.TokenInt_:
		line := p.curToken.Line
		p.nextToken()
		if p.curToken.Type != lexer.TokenIdent {
			p.errorf("expected identifier, got %q", p.curToken.Literal)
			return nil
		}
		name := p.curToken.Literal
		p.nextToken()
		node := p.parseDeclRest(name, line)
		if node == nil {
			return nil
		}
		return node.(*ast.DeclStmt)
	case lexer.TokenSemicolon:
		// Empty statement
		s := &ast.ExprStmt{Line: p.curToken.Line}
		p.nextToken()
		return s
	default:
		return p.parseExprOrAssign()
	}
}

func (p *Parser) parseIf() ast.Stmt {
	s := &ast.If{Line: p.curToken.Line}
	p.nextToken()
	if !p.expect(lexer.TokenLParen) {
		return nil
	}
	s.Cond = p.parseExpr()
	if s.Cond == nil {
		return nil
	}
	if !p.expect(lexer.TokenRParen) {
		return nil
	}
	s.Then = p.parseStmt()
	if s.Then == nil {
		return nil
	}
	if p.curToken.Type == lexer.TokenElse {
		p.nextToken()
		s.Else = p.parseStmt()
		if s.Else == nil {
			return nil
		}
	}
	return s
}

func (p *Parser) parseWhile() ast.Stmt {
	s := &ast.While{Line: p.curToken.Line}
	p.nextToken()
	if !p.expect(lexer.TokenLParen) {
		return nil
	}
	s.Cond = p.parseExpr()
	if s.Cond == nil {
		return nil
	}
	if !p.expect(lexer.TokenRParen) {
		return nil
	}
	s.Body = p.parseStmt()
	if s.Body == nil {
		return nil
	}
	return s
}

// parseExprOrAssign parses an expression statement, turning it into an
// assignment when '=' follows an lvalue
func (p *Parser) parseExprOrAssign() ast.Stmt {
	line := p.curToken.Line
	lhs := p.parseExpr()
	if lhs == nil {
		return nil
	}
	if p.curToken.Type == lexer.TokenAssign {
		switch lhs.(type) {
		case *ast.Ident, *ast.ArrayAccess:
		default:
			p.errorf("invalid assignment target")
			return nil
		}
		p.nextToken()
		rhs := p.parseExpr()
		if rhs == nil {
			return nil
		}
		if !p.expect(lexer.TokenSemicolon) {
			return nil
		}
		return &ast.Assign{LHS: lhs, RHS: rhs, Line: line}
	}
	if !p.expect(lexer.TokenSemicolon) {
		return nil
	}
	return &ast.ExprStmt{X: lhs, Line: line}
}

// --- Expressions, precedence climbing ---

func (p *Parser) parseExpr() ast.Expr { return p.parseOr() }

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	if left == nil {
		return nil
	}
	for p.curToken.Type == lexer.TokenOr {
		line := p.curToken.Line
		p.nextToken()
		right := p.parseAnd()
		if right == nil {
			return nil
		}
		left = &ast.Binary{Op: ast.OpOr, L: left, R: right, Line: line}
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseEquality()
	if left == nil {
		return nil
	}
	for p.curToken.Type == lexer.TokenAnd {
		line := p.curToken.Line
		p.nextToken()
		right := p.parseEquality()
		if right == nil {
			return nil
		}
		left = &ast.Binary{Op: ast.OpAnd, L: left, R: right, Line: line}
	}
	return left
}

func (p *Parser) parseEquality() ast.Expr {
	left := p.parseRelational()
	if left == nil {
		return nil
	}
	for p.curToken.Type == lexer.TokenEq || p.curToken.Type == lexer.TokenNe {
		op := ast.OpEq
		if p.curToken.Type == lexer.TokenNe {
			op = ast.OpNe
		}
		line := p.curToken.Line
		p.nextToken()
		right := p.parseRelational()
		if right == nil {
			return nil
		}
		left = &ast.Binary{Op: op, L: left, R: right, Line: line}
	}
	return left
}

func (p *Parser) parseRelational() ast.Expr {
	left := p.parseAdditive()
	if left == nil {
		return nil
	}
	for {
		var op ast.BinaryOp
		switch p.curToken.Type {
		case lexer.TokenLt:
			op = ast.OpLt
		case lexer.TokenLe:
			op = ast.OpLe
		case lexer.TokenGt:
			op = ast.OpGt
		case lexer.TokenGe:
			op = ast.OpGe
		default:
			return left
		}
		line := p.curToken.Line
		p.nextToken()
		right := p.parseAdditive()
		if right == nil {
			return nil
		}
		left = &ast.Binary{Op: op, L: left, R: right, Line: line}
	}
}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	if left == nil {
		return nil
	}
	for p.curToken.Type == lexer.TokenPlus || p.curToken.Type == lexer.TokenMinus {
		op := ast.OpAdd
		if p.curToken.Type == lexer.TokenMinus {
			op = ast.OpSub
		}
		line := p.curToken.Line
		p.nextToken()
		right := p.parseMultiplicative()
		if right == nil {
			return nil
		}
		left = &ast.Binary{Op: op, L: left, R: right, Line: line}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	if left == nil {
		return nil
	}
	for {
		var op ast.BinaryOp
		switch p.curToken.Type {
		case lexer.TokenStar:
			op = ast.OpMul
		case lexer.TokenSlash:
			op = ast.OpDiv
		case lexer.TokenPercent:
			op = ast.OpMod
		default:
			return left
		}
		line := p.curToken.Line
		p.nextToken()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = &ast.Binary{Op: op, L: left, R: right, Line: line}
	}
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.curToken.Type {
	case lexer.TokenMinus:
		line := p.curToken.Line
		p.nextToken()
		x := p.parseUnary()
		if x == nil {
			return nil
		}
		return &ast.Unary{Op: ast.OpNeg, X: x, Line: line}
	case lexer.TokenNot:
		line := p.curToken.Line
		p.nextToken()
		x := p.parseUnary()
		if x == nil {
			return nil
		}
		return &ast.Unary{Op: ast.OpNot, X: x, Line: line}
	case lexer.TokenPlus:
		// Unary plus is the identity
		p.nextToken()
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.curToken.Type {
	case lexer.TokenInt:
		v, err := strconv.ParseInt(p.curToken.Literal, 0, 64)
		if err != nil {
			p.errorf("invalid integer literal %q", p.curToken.Literal)
			return nil
		}
		lit := &ast.IntLit{Value: int32(v), Line: p.curToken.Line}
		p.nextToken()
		return lit

	case lexer.TokenLParen:
		p.nextToken()
		x := p.parseExpr()
		if x == nil {
			return nil
		}
		if !p.expect(lexer.TokenRParen) {
			return nil
		}
		return x

	case lexer.TokenIdent:
		name := p.curToken.Literal
		line := p.curToken.Line
		p.nextToken()

		if p.curToken.Type == lexer.TokenLParen {
			return p.parseCallArgs(name, line)
		}

		if p.curToken.Type == lexer.TokenLBracket {
			access := &ast.ArrayAccess{Name: name, Line: line}
			for p.curToken.Type == lexer.TokenLBracket {
				p.nextToken()
				idx := p.parseExpr()
				if idx == nil {
					return nil
				}
				access.Indexes = append(access.Indexes, idx)
				if !p.expect(lexer.TokenRBracket) {
					return nil
				}
			}
			return access
		}

		return &ast.Ident{Name: name, Line: line}

	default:
		p.errorf("unexpected token %q", p.curToken.Literal)
		return nil
	}
}

func (p *Parser) parseCallArgs(name string, line int) ast.Expr {
	call := &ast.Call{Name: name, Line: line}
	p.nextToken() // consume '('
	for p.curToken.Type != lexer.TokenRParen && p.curToken.Type != lexer.TokenEOF {
		arg := p.parseExpr()
		if arg == nil {
			return nil
		}
		call.Args = append(call.Args, arg)
		if p.curToken.Type == lexer.TokenComma {
			p.nextToken()
		}
	}
	if !p.expect(lexer.TokenRParen) {
		return nil
	}
	return call
}

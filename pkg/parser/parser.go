// Package parser implements the recursive-descent, single-token-lookahead
// parser described in spec.md §4.2: source bytes in, one ast.File out, or a
// panic carrying a *toyc.FatalError.
//
// Grounded on the original parser.c's shape (next/expect/parse_* one
// function per construct, ported one-for-one where the original already
// handles a construct) and generalized where the original snapshot was
// incomplete: parse_expr here grows a full Binary/right-recursive operator
// chain, and Assign, If, For and Call — declared in ast.h but never reached
// by parser.c's parse_stmt/parse_expr — are parsed following the grammar
// table in spec.md §4.2 directly, in the same hand-written recursive style
// as everything the original does implement.
package parser

import (
	"toyc/pkg/ast"
	"toyc/pkg/scanner"
	"toyc/pkg/token"
	"toyc/pkg/toyc"
)

// Parser holds one token of lookahead over a Scanner.
type Parser struct {
	filename string
	src      []byte
	scan     *scanner.Scanner

	tok token.Kind
	lit string
	pos token.Pos
}

// ParseFile scans and parses src in one pass, returning the resulting File.
// It panics with a *toyc.FatalError on the first lexical or syntactic
// error; there is no recovery (spec.md §7).
func ParseFile(filename string, src []byte) *ast.File {
	p := &Parser{filename: filename, src: src, scan: scanner.New(filename, src)}
	p.next()

	var decls []ast.Decl
	for p.tok != token.EOF {
		decls = append(decls, p.parseDecl())
	}
	return &ast.File{Name: filename, Decls: decls}
}

// next advances the lookahead token by one.
func (p *Parser) next() {
	p.tok, p.lit, p.pos = p.scan.Scan()
}

// accept advances and returns true if the current token matches tok.
func (p *Parser) accept(tok token.Kind) bool {
	if p.tok != tok {
		return false
	}
	p.next()
	return true
}

// expect requires the current token to match tok, advancing past it, or
// panics with "expected X, got Y" at the current position.
func (p *Parser) expect(tok token.Kind) token.Pos {
	pos := p.pos
	if p.tok != tok {
		p.fatalf("expected %q, got %q", tok, p.describe())
	}
	p.next()
	return pos
}

func (p *Parser) describe() string {
	if p.lit != "" {
		return p.lit
	}
	return p.tok.String()
}

func (p *Parser) fatalf(format string, args ...any) {
	line, col := toyc.Position(p.src, int(p.pos))
	toyc.Fatalf(p.filename, line, col, format, args...)
}

// ----------------------------------------------------------------------------
// Declarations

func (p *Parser) parseDecl() ast.Decl {
	switch p.tok {
	case token.FUNC:
		return p.parseFuncDecl()
	case token.TYPE:
		return p.parseTypeDecl()
	case token.VAR:
		return p.parseVarDecl()
	default:
		p.fatalf("expected declaration, got %q", p.describe())
		panic("unreachable")
	}
}

func (p *Parser) parseIdent() *ast.Ident {
	pos, lit := p.pos, p.lit
	p.expect(token.IDENT)
	return ast.NewIdent(pos, lit)
}

func (p *Parser) parseFuncDecl() *ast.Func {
	pos := p.expect(token.FUNC)

	name := p.parseIdent()
	var recv *ast.Ident
	if p.accept(token.PERIOD) {
		recv = name
		name = p.parseIdent()
	}

	params := p.parseParams()
	retType := p.parseIdent()

	var body *ast.Block
	if p.tok == token.LBRACE {
		body = p.parseBlockStmt()
	} else {
		p.expect(token.SEMICOLON)
	}
	return ast.NewFunc(pos, recv, name, params, retType, body)
}

func (p *Parser) parseParams() []*ast.Field {
	p.expect(token.LPAREN)
	var fields []*ast.Field
	for p.tok != token.RPAREN {
		fields = append(fields, p.parseField())
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return fields
}

func (p *Parser) parseField() *ast.Field {
	pos := p.pos
	name := p.parseIdent()
	typ := p.parseIdent()
	f := ast.NewField(pos, name, typ)
	return f
}

func (p *Parser) parseTypeDecl() *ast.Type {
	pos := p.expect(token.TYPE)
	name := p.parseIdent()
	typ := p.parseTypeExpr()
	p.expect(token.SEMICOLON)
	return ast.NewType(pos, name, typ)
}

func (p *Parser) parseTypeExpr() ast.Expr {
	switch p.tok {
	case token.IDENT:
		return p.parseIdent()
	case token.STRUCT:
		return p.parseStructType()
	default:
		p.fatalf("invalid token for type expression: %q", p.describe())
		panic("unreachable")
	}
}

func (p *Parser) parseStructType() *ast.Struct {
	pos := p.expect(token.STRUCT)
	p.expect(token.LBRACE)
	var fields []*ast.Field
	for p.tok != token.RBRACE {
		fields = append(fields, p.parseField())
		p.expect(token.SEMICOLON)
	}
	p.expect(token.RBRACE)
	return ast.NewStruct(pos, fields)
}

func (p *Parser) parseVarDecl() *ast.Var {
	pos := p.expect(token.VAR)
	name := p.parseIdent()
	typ := p.parseIdent()
	var value ast.Expr
	if p.accept(token.ASSIGN) {
		value = p.parseExpr()
	}
	p.expect(token.SEMICOLON)
	return ast.NewVar(pos, name, typ, value)
}

// ----------------------------------------------------------------------------
// Statements

func (p *Parser) parseStmt() ast.Stmt {
	switch p.tok {
	case token.VAR, token.TYPE:
		pos := p.pos
		return ast.NewDeclStmt(pos, p.parseDecl())
	case token.RETURN:
		return p.parseReturnStmt()
	case token.BREAK, token.CONTINUE:
		pos, tok := p.pos, p.tok
		p.next()
		p.expect(token.SEMICOLON)
		return ast.NewBranch(pos, tok)
	case token.IF:
		return p.parseIfStmt()
	case token.FOR:
		return p.parseForStmt()
	case token.LBRACE:
		return p.parseBlockStmt()
	case token.SEMICOLON:
		pos := p.pos
		p.next()
		return ast.NewEmpty(pos)
	default:
		return p.parseSimpleStmt(true)
	}
}

// parseSimpleStmt parses `expr ('=' expr)?`. When requireSemi is true (every
// call site except the for-loop clauses) a trailing ';' is consumed.
func (p *Parser) parseSimpleStmt(requireSemi bool) ast.Stmt {
	pos := p.pos
	lhs := p.parseExpr()
	var stmt ast.Stmt
	if p.accept(token.ASSIGN) {
		rhs := p.parseExpr()
		stmt = ast.NewAssign(pos, lhs, token.ASSIGN, rhs)
	} else {
		stmt = ast.NewExprStmt(pos, lhs)
	}
	if requireSemi {
		p.expect(token.SEMICOLON)
	}
	return stmt
}

func (p *Parser) parseReturnStmt() *ast.Return {
	pos := p.expect(token.RETURN)
	var expr ast.Expr
	if p.tok != token.SEMICOLON {
		expr = p.parseExpr()
	}
	p.expect(token.SEMICOLON)
	return ast.NewReturn(pos, expr)
}

func (p *Parser) parseBlockStmt() *ast.Block {
	pos := p.expect(token.LBRACE)
	var stmts []ast.Stmt
	for p.tok != token.RBRACE {
		stmts = append(stmts, p.parseStmt())
	}
	p.expect(token.RBRACE)
	return ast.NewBlock(pos, stmts)
}

func (p *Parser) parseIfStmt() *ast.If {
	pos := p.expect(token.IF)
	cond := p.parseExpr()
	body := p.parseBlockStmt()
	var els ast.Stmt
	if p.accept(token.ELSE) {
		if p.tok == token.IF {
			els = p.parseIfStmt()
		} else {
			els = p.parseBlockStmt()
		}
	}
	return ast.NewIf(pos, cond, body, els)
}

// parseForStmt parses the three-clause C-style head. Each clause is
// optional; `init` reuses the simple-statement/decl grammar of stmt.
func (p *Parser) parseForStmt() *ast.For {
	pos := p.expect(token.FOR)

	var init ast.Stmt
	if p.tok != token.SEMICOLON {
		init = p.parseForClauseStmt()
	}
	p.expect(token.SEMICOLON)

	var cond ast.Expr
	if p.tok != token.SEMICOLON {
		cond = p.parseExpr()
	}
	p.expect(token.SEMICOLON)

	var post ast.Stmt
	if p.tok != token.LBRACE {
		post = p.parseForClauseStmt()
	}

	body := p.parseBlockStmt()
	return ast.NewFor(pos, init, cond, post, body)
}

// parseForClauseStmt parses the var-decl-or-simple-statement that may
// appear in a for-loop's init/post clause, without consuming the clause's
// terminating ';' (the caller — parseForStmt itself, between init and
// cond — or the loop body's opening '{' — after post — does that).
func (p *Parser) parseForClauseStmt() ast.Stmt {
	if p.tok == token.VAR {
		pos := p.pos
		return ast.NewDeclStmt(pos, p.parseVarDeclNoSemi())
	}
	return p.parseSimpleStmt(false)
}

// parseVarDeclNoSemi is parseVarDecl without the trailing expect(SEMICOLON),
// for use inside a for-loop clause where the grammar's own ';' delimits
// clauses rather than terminating the declaration.
func (p *Parser) parseVarDeclNoSemi() *ast.Var {
	pos := p.expect(token.VAR)
	name := p.parseIdent()
	typ := p.parseIdent()
	var value ast.Expr
	if p.accept(token.ASSIGN) {
		value = p.parseExpr()
	}
	return ast.NewVar(pos, name, typ, value)
}

// ----------------------------------------------------------------------------
// Expressions

// binaryOps is the operator set spec.md §4.2 lists as accepted, independent
// of the precedence table in §3 (this parser implements the source's
// right-associative, uniform-precedence scheme, not precedence climbing —
// see the package doc and DESIGN.md's Open Question decision).
var binaryOps = map[token.Kind]bool{
	token.ADD: true, token.SUB: true, token.MUL: true, token.QUO: true, token.REM: true,
	token.EQL: true, token.NEQ: true, token.LSS: true, token.LEQ: true, token.GTR: true, token.GEQ: true,
	token.LAND: true, token.LOR: true, token.AND: true, token.OR: true,
}

// parseExpr implements `expr := unary (binop expr)?`: after parsing one
// unary/primary operand, if the current token is a recognized binary
// operator the parser recurses directly into parseExpr for the right-hand
// side, producing a right-associative tree — matching the original source
// exactly (see spec.md §9's `1 - 2 - 3 == 2` example).
func (p *Parser) parseExpr() ast.Expr {
	x := p.parseUnary()
	if binaryOps[p.tok] {
		op, pos := p.tok, p.pos
		p.next()
		y := p.parseExpr()
		return ast.NewBinary(pos, op, x, y)
	}
	return x
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.tok {
	case token.NOT, token.ADD, token.SUB, token.NOT_BW:
		pos, op := p.pos, p.tok
		p.next()
		return ast.NewUnary(pos, op, p.parseExpr())
	default:
		return p.parsePrimary()
	}
}

// parsePrimary parses `operand ('(' call_args ')')?`.
func (p *Parser) parsePrimary() ast.Expr {
	x := p.parseOperand()
	if p.tok == token.LPAREN {
		return p.parseCall(x)
	}
	return x
}

func (p *Parser) parseOperand() ast.Expr {
	switch p.tok {
	case token.IDENT:
		return p.parseIdent()
	case token.INT:
		pos, lit := p.pos, p.lit
		p.next()
		return ast.NewBasic(pos, token.INT, lit)
	case token.LPAREN:
		pos := p.pos
		p.next()
		x := p.parseExpr()
		p.expect(token.RPAREN)
		return ast.NewParen(pos, x)
	default:
		p.fatalf("expected operand, got %q", p.describe())
		panic("unreachable")
	}
}

func (p *Parser) parseCall(fn ast.Expr) *ast.Call {
	pos := p.expect(token.LPAREN)
	var args []ast.Expr
	for p.tok != token.RPAREN {
		args = append(args, p.parseExpr())
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return ast.NewCall(pos, fn, args)
}

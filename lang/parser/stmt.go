package parser

import (
	"github.com/mna/luar/lang/ast"
	"github.com/mna/luar/lang/token"
)

func (p *parser) parseLabelStmt() *ast.LabelStmt {
	var stmt ast.LabelStmt
	stmt.Lcolon = p.expect(token.COLONCOLON)
	stmt.Name = p.parseIdentExpr()
	stmt.Rcolon = p.expect(token.COLONCOLON)
	return &stmt
}

func (p *parser) parseBreakStmt() *ast.BreakStmt {
	var stmt ast.BreakStmt
	stmt.Start = p.expect(token.BREAK)
	return &stmt
}

func (p *parser) parseGotoStmt() *ast.GotoStmt {
	var stmt ast.GotoStmt
	stmt.Goto = p.expect(token.GOTO)
	stmt.Label = p.parseIdentExpr()
	return &stmt
}

func (p *parser) parseDoStmt() *ast.DoStmt {
	var stmt ast.DoStmt
	stmt.Do = p.expect(token.DO)
	stmt.Body = p.parseBlock(token.END)
	stmt.End = p.expect(token.END)
	return &stmt
}

func (p *parser) parseWhileStmt() *ast.WhileStmt {
	var stmt ast.WhileStmt
	stmt.While = p.expect(token.WHILE)
	stmt.Cond = p.parseExpr()
	stmt.Do = p.expect(token.DO)
	stmt.Body = p.parseBlock(token.END)
	stmt.End = p.expect(token.END)
	return &stmt
}

func (p *parser) parseRepeatStmt() *ast.RepeatStmt {
	var stmt ast.RepeatStmt
	stmt.Repeat = p.expect(token.REPEAT)
	// cond is parsed in the scope of the body, so locals declared in Body
	// are visible to Cond; the resolver, not the parser, enforces that.
	stmt.Body = p.parseBlock(token.UNTIL)
	stmt.Until = p.expect(token.UNTIL)
	stmt.Cond = p.parseExpr()
	return &stmt
}

func (p *parser) parseIfStmt() *ast.IfStmt {
	var stmt ast.IfStmt
	stmt.If = p.expect(token.IF)
	stmt.Cond = p.parseExpr()
	stmt.Then = p.expect(token.THEN)
	stmt.Body = p.parseBlock(token.ELSEIF, token.ELSE, token.END)

	for p.tok == token.ELSEIF {
		var ei ast.ElseIfClause
		ei.ElseIf = p.expect(token.ELSEIF)
		ei.Cond = p.parseExpr()
		ei.Then = p.expect(token.THEN)
		ei.Body = p.parseBlock(token.ELSEIF, token.ELSE, token.END)
		stmt.ElseIfs = append(stmt.ElseIfs, &ei)
	}

	if p.tok == token.ELSE {
		stmt.Else = p.expect(token.ELSE)
		stmt.ElseBody = p.parseBlock(token.END)
	}
	stmt.End = p.expect(token.END)
	return &stmt
}

func (p *parser) parseForStmt() ast.Stmt {
	forPos := p.expect(token.FOR)
	firstName := p.parseIdentExpr()

	if p.tok == token.EQ {
		return p.parseForNumStmt(forPos, firstName)
	}
	return p.parseForInStmt(forPos, firstName)
}

func (p *parser) parseForNumStmt(forPos token.Pos, name *ast.IdentExpr) *ast.ForNumStmt {
	var stmt ast.ForNumStmt
	stmt.For = forPos
	stmt.Name = name
	stmt.Assign = p.expect(token.EQ)
	stmt.Start = p.parseExpr()
	p.expect(token.COMMA)
	stmt.Limit = p.parseExpr()
	if p.tok == token.COMMA {
		p.advance()
		stmt.Step = p.parseExpr()
	}
	stmt.Do = p.expect(token.DO)
	stmt.Body = p.parseBlock(token.END)
	stmt.End = p.expect(token.END)
	return &stmt
}

func (p *parser) parseForInStmt(forPos token.Pos, firstName *ast.IdentExpr) *ast.ForInStmt {
	var stmt ast.ForInStmt
	stmt.For = forPos

	names := []*ast.IdentExpr{firstName}
	var commas []token.Pos
	for p.tok == token.COMMA {
		commas = append(commas, p.expect(token.COMMA))
		names = append(names, p.parseIdentExpr())
	}
	stmt.Names = names

	stmt.In = p.expect(token.IN)
	stmt.Exprs, stmt.Commas = p.parseExprList()
	stmt.Do = p.expect(token.DO)
	stmt.Body = p.parseBlock(token.END)
	stmt.End = p.expect(token.END)
	return &stmt
}

func (p *parser) parseFuncDeclStmt() *ast.FuncDeclStmt {
	var stmt ast.FuncDeclStmt
	stmt.Function = p.expect(token.FUNCTION)

	var name ast.FuncName
	name.Path = append(name.Path, p.parseIdentExpr())
	for p.tok == token.DOT {
		p.advance()
		name.Path = append(name.Path, p.parseIdentExpr())
	}
	if p.tok == token.COLON {
		name.Colon = p.expect(token.COLON)
		name.Method = p.parseIdentExpr()
	}
	stmt.Name = &name

	stmt.Sig = p.parseFuncSignature()
	if name.Method != nil {
		self := &ast.IdentExpr{Start: stmt.Function, Lit: "self"}
		stmt.Sig.Params = append([]*ast.IdentExpr{self}, stmt.Sig.Params...)
	}
	stmt.Body = p.parseBlock(token.END)
	stmt.End = p.expect(token.END)
	return &stmt
}

func (p *parser) parseFuncSignature() *ast.FuncSignature {
	var sig ast.FuncSignature
	sig.Lparen = p.expect(token.LPAREN)

	for p.tok == token.IDENT || p.tok == token.DOTDOTDOT {
		if p.tok == token.DOTDOTDOT {
			sig.DotDotDot = p.expect(token.DOTDOTDOT)
			break
		}
		sig.Params = append(sig.Params, p.parseIdentExpr())
		if p.tok != token.COMMA {
			break
		}
		sig.Commas = append(sig.Commas, p.expect(token.COMMA))
	}

	sig.Rparen = p.expect(token.RPAREN)
	return &sig
}

func (p *parser) parseLocalStmt() ast.Stmt {
	local := p.expect(token.LOCAL)

	if p.tok == token.FUNCTION {
		return p.parseLocalFuncStmt(local)
	}

	var stmt ast.LocalStmt
	stmt.Local = local
	stmt.Names = append(stmt.Names, p.parseIdentExpr())
	for p.tok == token.COMMA {
		stmt.Commas = append(stmt.Commas, p.expect(token.COMMA))
		stmt.Names = append(stmt.Names, p.parseIdentExpr())
	}

	if p.tok == token.EQ {
		stmt.Assign = p.expect(token.EQ)
		stmt.Values, _ = p.parseExprList()
	}
	return &stmt
}

func (p *parser) parseLocalFuncStmt(local token.Pos) *ast.LocalFuncStmt {
	var stmt ast.LocalFuncStmt
	stmt.Local = local
	stmt.Function = p.expect(token.FUNCTION)
	stmt.Name = p.parseIdentExpr()
	stmt.Sig = p.parseFuncSignature()
	stmt.Body = p.parseBlock(token.END)
	stmt.End = p.expect(token.END)
	return &stmt
}

// blockEndToks are the tokens that terminate a block and so cannot start an
// expression; used to detect an empty "return" with no expression list.
var blockEndToks = map[token.Token]bool{
	token.SEMI:   true,
	token.END:    true,
	token.ELSE:   true,
	token.ELSEIF: true,
	token.UNTIL:  true,
	token.EOF:    true,
}

func (p *parser) parseReturnStmt() *ast.ReturnStmt {
	var stmt ast.ReturnStmt
	stmt.Return = p.expect(token.RETURN)

	if !blockEndToks[p.tok] {
		stmt.Values, stmt.Commas = p.parseExprList()
	}
	if p.tok == token.SEMI {
		p.advance()
	}
	return &stmt
}

// parseExprOrAssignStmt parses a statement that starts with an expression:
// either an assignment ("varlist = explist") or a standalone call used as a
// statement.
func (p *parser) parseExprOrAssignStmt() ast.Stmt {
	start := p.val.Pos
	expr := p.parseSuffixedExpr()

	if p.tok == token.COMMA || p.tok == token.EQ {
		return p.parseAssignStmt(expr)
	}

	switch expr.(type) {
	case *ast.CallExpr, *ast.MethodCallExpr:
		return &ast.CallStmt{Call: expr}
	default:
		end, _ := expr.Span()
		p.errorExpected(start, "statement")
		return &ast.BadStmt{Start: start, End: end}
	}
}

func (p *parser) parseAssignStmt(firstExpr ast.Expr) *ast.AssignStmt {
	var stmt ast.AssignStmt

	left := []ast.Expr{firstExpr}
	var commas []token.Pos
	for p.tok == token.COMMA {
		commas = append(commas, p.expect(token.COMMA))
		left = append(left, p.parseSuffixedExpr())
	}

	for _, e := range left {
		if !ast.IsAssignable(e) {
			start, _ := e.Span()
			p.errorExpected(start, "assignable expression")
		}
	}

	stmt.Left = left
	stmt.LeftCommas = commas
	stmt.Assign = p.expect(token.EQ)
	stmt.Right, stmt.RightCommas = p.parseExprList()
	return &stmt
}

func (p *parser) parseIdentExpr() *ast.IdentExpr {
	var exp ast.IdentExpr
	exp.Lit = p.val.Raw
	exp.Start = p.expect(token.IDENT)
	return &exp
}

func (p *parser) parseExprList() ([]ast.Expr, []token.Pos) {
	var exprs []ast.Expr
	var commas []token.Pos

	exprs = append(exprs, p.parseExpr())
	for p.tok == token.COMMA {
		commas = append(commas, p.expect(token.COMMA))
		exprs = append(exprs, p.parseExpr())
	}
	return exprs, commas
}

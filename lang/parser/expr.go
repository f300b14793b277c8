package parser

import (
	"github.com/mna/luar/lang/ast"
	"github.com/mna/luar/lang/token"
)

func (p *parser) parseExpr() ast.Expr {
	return p.parseSubExpr(0)
}

// binopPriority gives the left/right binding power of each binary
// operator, from spec.md's precedence table (lowest to highest): or, and,
// comparisons, |, ~, &, <<|>>, .. (right-assoc), +|-, *|/|//|%, unary,
// ^ (right-assoc). A right-associative operator has right < left so a
// recursive parseSubExpr call at that priority keeps consuming further
// operators of the same precedence; a left-associative one has right ==
// left so the outer loop, not the recursive call, picks up the next one.
var (
	binopPriority = [...]struct{ left, right int }{
		token.OR:  {1, 1},
		token.AND: {2, 2},
		token.LT:  {3, 3}, token.LE: {3, 3}, token.GT: {3, 3},
		token.GE: {3, 3}, token.EQEQ: {3, 3}, token.NEQ: {3, 3},
		token.PIPE:  {4, 4},
		token.TILDE: {5, 5},
		token.AMP:   {6, 6},
		token.LTLT:  {7, 7}, token.GTGT: {7, 7},
		token.DOTDOT: {9, 8}, // right associative
		token.PLUS:   {10, 10}, token.MINUS: {10, 10},
		token.STAR: {11, 11}, token.SLASH: {11, 11},
		token.PERCENT: {11, 11}, token.SLASHSLASH: {11, 11},
		token.CARET: {14, 13}, // right associative
	}
	unopPriority = 12
)

// parseSubExpr parses an expression where every binary operator has a
// priority strictly higher than priority (precedence climbing).
func (p *parser) parseSubExpr(priority int) ast.Expr {
	var left ast.Expr

	if p.tok.IsUnop() {
		var unop ast.UnOpExpr
		unop.Type = p.tok
		unop.Op = p.expect(p.tok)
		unop.Right = p.parseSubExpr(unopPriority)
		left = &unop
	} else {
		left = p.parseSimpleExpr()
	}

	for p.tok.IsBinop() && binopPriority[p.tok].left > priority {
		var bin ast.BinOpExpr
		bin.Left = left
		bin.Type = p.tok
		bin.Op = p.expect(p.tok)
		bin.Right = p.parseSubExpr(binopPriority[bin.Type].right)
		left = &bin
	}
	return left
}

func (p *parser) parseSimpleExpr() ast.Expr {
	switch {
	case p.tok == token.NIL:
		return &ast.NilExpr{Start: p.expect(token.NIL)}

	case p.tok == token.TRUE:
		return &ast.TrueExpr{Start: p.expect(token.TRUE)}

	case p.tok == token.FALSE:
		return &ast.FalseExpr{Start: p.expect(token.FALSE)}

	case p.tok == token.INT || p.tok == token.FLOAT:
		return p.parseNumberExpr()

	case p.tok == token.STRING:
		return p.parseStringExpr()

	case p.tok == token.DOTDOTDOT:
		return &ast.VarargExpr{Start: p.expect(token.DOTDOTDOT)}

	case p.tok == token.FUNCTION:
		return p.parseFuncExpr()

	case p.tok == token.LBRACE:
		return p.parseTableExpr()

	default:
		return p.parseSuffixedExpr()
	}
}

func (p *parser) parseNumberExpr() *ast.NumberExpr {
	var n ast.NumberExpr
	n.Type = p.tok
	n.Raw = p.val.Raw
	n.Int = p.val.Int
	n.Float = p.val.Float
	n.Start = p.expect(n.Type)
	return &n
}

func (p *parser) parseStringExpr() *ast.StringExpr {
	var s ast.StringExpr
	s.Raw = p.val.Raw
	s.Value = p.val.Str
	s.Start = p.expect(token.STRING)
	return &s
}

func (p *parser) parseFuncExpr() *ast.FuncExpr {
	var expr ast.FuncExpr
	expr.Function = p.expect(token.FUNCTION)
	expr.Sig = p.parseFuncSignature()
	expr.Body = p.parseBlock(token.END)
	expr.End = p.expect(token.END)
	return &expr
}

func (p *parser) parseTableExpr() *ast.TableExpr {
	var expr ast.TableExpr
	expr.Lbrace = p.expect(token.LBRACE)

	for !tokenIn(p.tok, token.RBRACE, token.EOF) {
		expr.Fields = append(expr.Fields, p.parseTableField())
		if tokenIn(p.tok, token.COMMA, token.SEMI) {
			// may or may not be the last, trailing separator is valid
			expr.Commas = append(expr.Commas, p.val.Pos)
			p.advance()
		} else {
			break
		}
	}

	expr.Rbrace = p.expect(token.RBRACE)
	return &expr
}

func (p *parser) parseTableField() *ast.TableField {
	var fl ast.TableField

	switch {
	case p.tok == token.LBRACK:
		p.advance()
		fl.Key = p.parseExpr()
		p.expect(token.RBRACK)
		fl.Eq = p.expect(token.EQ)
		fl.Value = p.parseExpr()

	case p.tok == token.IDENT:
		// "name = expr" (record field) and a bare expression starting with
		// an identifier (list field) are only disambiguated by a following
		// "=", since both start the same way.
		id := p.parseIdentExpr()
		if p.tok == token.EQ {
			fl.Key = &ast.StringExpr{Start: id.Start, Raw: id.Lit, Value: id.Lit}
			fl.Eq = p.expect(token.EQ)
			fl.Value = p.parseExpr()
		} else {
			fl.Value = p.parseSubExprFrom(p.finishSuffixedExpr(id))
		}

	default:
		fl.Value = p.parseExpr()
	}
	return &fl
}

// parseSubExprFrom continues precedence climbing from an already-parsed
// simple expression, so a table field like "{ a + 1 }" keeps working after
// the identifier "a" was consumed to check for a record field "=".
func (p *parser) parseSubExprFrom(left ast.Expr) ast.Expr {
	for p.tok.IsBinop() && binopPriority[p.tok].left > 0 {
		var bin ast.BinOpExpr
		bin.Left = left
		bin.Type = p.tok
		bin.Op = p.expect(p.tok)
		bin.Right = p.parseSubExpr(binopPriority[bin.Type].right)
		left = &bin
	}
	return left
}

// parseSuffixedExpr parses a prefixexpr (identifier or parenthesized
// expression) followed by any number of ".name", "[expr]", "(args)" or
// ":name(args)" suffixes.
func (p *parser) parseSuffixedExpr() ast.Expr {
	var primary ast.Expr
	if p.tok == token.IDENT {
		primary = p.parseIdentExpr()
	} else {
		primary = p.parseParenExpr()
	}
	return p.finishSuffixedExpr(primary)
}

func (p *parser) parseParenExpr() *ast.ParenExpr {
	var expr ast.ParenExpr
	expr.Lparen = p.expect(token.LPAREN)
	expr.Expr = p.parseExpr()
	expr.Rparen = p.expect(token.RPAREN)
	return &expr
}

func (p *parser) finishSuffixedExpr(primary ast.Expr) ast.Expr {
loop:
	for {
		switch p.tok {
		case token.DOT:
			primary = p.parsePropertyExpr(primary)
		case token.LBRACK:
			primary = p.parseIndexExpr(primary)
		case token.COLON:
			primary = p.parseMethodCallExpr(primary)
		case token.LPAREN, token.LBRACE, token.STRING:
			primary = p.parseCallExpr(primary)
		default:
			break loop
		}
	}
	return primary
}

func (p *parser) parsePropertyExpr(left ast.Expr) *ast.PropertyExpr {
	var expr ast.PropertyExpr
	expr.Left = left
	expr.Dot = p.expect(token.DOT)
	expr.Name = p.parseIdentExpr()
	return &expr
}

func (p *parser) parseIndexExpr(prefix ast.Expr) *ast.IndexExpr {
	var expr ast.IndexExpr
	expr.Prefix = prefix
	expr.Lbrack = p.expect(token.LBRACK)
	expr.Index = p.parseExpr()
	expr.Rbrack = p.expect(token.RBRACK)
	return &expr
}

func (p *parser) parseMethodCallExpr(obj ast.Expr) *ast.MethodCallExpr {
	var expr ast.MethodCallExpr
	expr.Obj = obj
	expr.Colon = p.expect(token.COLON)
	expr.Method = p.parseIdentExpr()

	switch p.tok {
	case token.LPAREN:
		expr.Lparen = p.expect(token.LPAREN)
		if p.tok != token.RPAREN {
			expr.Args, expr.Commas = p.parseExprList()
		}
		expr.Rparen = p.expect(token.RPAREN)
	case token.LBRACE:
		expr.Args = []ast.Expr{p.parseTableExpr()}
	case token.STRING:
		expr.Args = []ast.Expr{p.parseStringExpr()}
	default:
		p.expect(token.LPAREN, token.LBRACE, token.STRING)
		panic(errPanicMode)
	}
	return &expr
}

func (p *parser) parseCallExpr(fn ast.Expr) *ast.CallExpr {
	var expr ast.CallExpr
	expr.Fn = fn

	switch p.tok {
	case token.LPAREN:
		expr.Lparen = p.expect(token.LPAREN)
		if p.tok != token.RPAREN {
			expr.Args, expr.Commas = p.parseExprList()
		}
		expr.Rparen = p.expect(token.RPAREN)
	case token.LBRACE:
		expr.Args = []ast.Expr{p.parseTableExpr()}
	case token.STRING:
		expr.Args = []ast.Expr{p.parseStringExpr()}
	default:
		p.expect(token.LPAREN, token.LBRACE, token.STRING)
		panic(errPanicMode)
	}
	return &expr
}

package ast

import (
	"fmt"

	"github.com/mna/luar/lang/token"
)

// Unwrap strips any enclosing ParenExpr, recursively, returning the first
// non-parenthesized expression.
func Unwrap(e Expr) Expr {
	if pe, ok := e.(*ParenExpr); ok {
		return Unwrap(pe.Expr)
	}
	return e
}

// IsAssignable reports whether e is a valid assignment target: an
// identifier, a property access, or an index expression.
func IsAssignable(e Expr) bool {
	switch e.(type) {
	case *IdentExpr, *PropertyExpr, *IndexExpr:
		return true
	default:
		return false
	}
}

type (
	// BadExpr represents an expression that failed to parse.
	BadExpr struct {
		Start, End token.Pos
	}

	// NilExpr is the literal nil.
	NilExpr struct {
		Start token.Pos
	}

	// TrueExpr is the literal true.
	TrueExpr struct {
		Start token.Pos
	}

	// FalseExpr is the literal false.
	FalseExpr struct {
		Start token.Pos
	}

	// NumberExpr is an integer or float literal.
	NumberExpr struct {
		Type  token.Token // token.INT or token.FLOAT
		Start token.Pos
		Raw   string
		Int   int64
		Float float64
	}

	// StringExpr is a short or long string literal; Value holds the
	// already-unescaped bytes.
	StringExpr struct {
		Start token.Pos
		Raw   string
		Value string
	}

	// VarargExpr represents the "..." expression, valid only inside a
	// vararg function.
	VarargExpr struct {
		Start token.Pos
	}

	// IdentExpr represents an identifier used as a variable reference. The
	// resolver fills Ref with the variable's classification.
	IdentExpr struct {
		Start token.Pos
		Lit   string

		// Ref is filled by the resolver (a *resolver.Ref, kept as `any` to
		// avoid an import cycle between ast and resolver).
		Ref any
	}

	// BinOpExpr is a binary operator expression, e.g. x + y.
	BinOpExpr struct {
		Left  Expr
		Type  token.Token
		Op    token.Pos
		Right Expr
	}

	// UnOpExpr is a unary operator expression, e.g. -x, not x, #x, ~x.
	UnOpExpr struct {
		Type  token.Token
		Op    token.Pos
		Right Expr
	}

	// TableField is one field of a table constructor: either list-style
	// (Key == nil), record-style (Key is a *StringExpr standing for a bare
	// name), or computed (Key is any expression, parsed from "[expr]").
	TableField struct {
		Key   Expr // nil for a list-style field
		Eq    token.Pos
		Value Expr
	}

	// TableExpr is a table constructor "{ ... }".
	TableExpr struct {
		Lbrace token.Pos
		Fields []*TableField
		Commas []token.Pos // one less than len(Fields), or equal if trailing separator
		Rbrace token.Pos
	}

	// CallExpr is a function call, e.g. f(x, y).
	CallExpr struct {
		Fn     Expr
		Lparen token.Pos
		Args   []Expr
		Commas []token.Pos
		Rparen token.Pos
	}

	// MethodCallExpr is a method call, e.g. obj:m(x, y), which passes obj as
	// an implicit first argument.
	MethodCallExpr struct {
		Obj    Expr
		Colon  token.Pos
		Method *IdentExpr
		Lparen token.Pos
		Args   []Expr
		Commas []token.Pos
		Rparen token.Pos
	}

	// IndexExpr is a computed index, e.g. t[k].
	IndexExpr struct {
		Prefix Expr
		Lbrack token.Pos
		Index  Expr
		Rbrack token.Pos
	}

	// PropertyExpr is a dotted field access, e.g. t.k, sugar for t["k"].
	PropertyExpr struct {
		Left Expr
		Dot  token.Pos
		Name *IdentExpr
	}

	// FuncSignature is the parameter list of a function, shared by FuncExpr
	// and FuncDeclStmt/LocalFuncStmt.
	FuncSignature struct {
		Lparen    token.Pos
		Params    []*IdentExpr
		DotDotDot token.Pos // valid if the function is vararg, else NoPos
		Rparen    token.Pos
	}

	// FuncExpr is an anonymous function literal.
	FuncExpr struct {
		Function token.Pos
		Sig      *FuncSignature
		Body     *Block
		End      token.Pos

		// Resolved is filled by the resolver with a *resolver.Function, kept
		// as `any` to avoid an import cycle between ast and resolver.
		Resolved any
	}

	// ParenExpr is an expression wrapped in parentheses; it truncates a
	// multi-value expression (call, vararg) down to exactly one value.
	ParenExpr struct {
		Lparen token.Pos
		Expr   Expr
		Rparen token.Pos
	}
)

func (n *BadExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "!bad expr!", nil) }
func (n *BadExpr) Span() (start, end token.Pos)  { return n.Start, n.End }
func (n *BadExpr) Walk(v Visitor)                {}
func (n *BadExpr) expr()                         {}

func (n *NilExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "nil", nil) }
func (n *NilExpr) Span() (start, end token.Pos) {
	return n.Start, n.Start + token.Pos(len("nil"))
}
func (n *NilExpr) Walk(v Visitor) {}
func (n *NilExpr) expr()          {}

func (n *TrueExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "true", nil) }
func (n *TrueExpr) Span() (start, end token.Pos) {
	return n.Start, n.Start + token.Pos(len("true"))
}
func (n *TrueExpr) Walk(v Visitor) {}
func (n *TrueExpr) expr()          {}

func (n *FalseExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "false", nil) }
func (n *FalseExpr) Span() (start, end token.Pos) {
	return n.Start, n.Start + token.Pos(len("false"))
}
func (n *FalseExpr) Walk(v Visitor) {}
func (n *FalseExpr) expr()          {}

func (n *NumberExpr) Format(f fmt.State, verb rune) { format(f, verb, n, n.Type.String()+" "+n.Raw, nil) }
func (n *NumberExpr) Span() (start, end token.Pos) {
	return n.Start, n.Start + token.Pos(len(n.Raw))
}
func (n *NumberExpr) Walk(v Visitor) {}
func (n *NumberExpr) expr()          {}

func (n *StringExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "string "+n.Raw, nil) }
func (n *StringExpr) Span() (start, end token.Pos) {
	return n.Start, n.Start + token.Pos(len(n.Raw))
}
func (n *StringExpr) Walk(v Visitor) {}
func (n *StringExpr) expr()          {}

func (n *VarargExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "...", nil) }
func (n *VarargExpr) Span() (start, end token.Pos) {
	return n.Start, n.Start + token.Pos(len("..."))
}
func (n *VarargExpr) Walk(v Visitor) {}
func (n *VarargExpr) expr()          {}

func (n *IdentExpr) Format(f fmt.State, verb rune) { format(f, verb, n, n.Lit, nil) }
func (n *IdentExpr) Span() (start, end token.Pos) {
	return n.Start, n.Start + token.Pos(len(n.Lit))
}
func (n *IdentExpr) Walk(v Visitor) {}
func (n *IdentExpr) expr()          {}

func (n *BinOpExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "binary "+n.Type.GoString(), nil)
}
func (n *BinOpExpr) Span() (start, end token.Pos) {
	start, _ = n.Left.Span()
	_, end = n.Right.Span()
	return start, end
}
func (n *BinOpExpr) Walk(v Visitor) {
	Walk(v, n.Left)
	Walk(v, n.Right)
}
func (n *BinOpExpr) expr() {}

func (n *UnOpExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "unary "+n.Type.GoString(), nil)
}
func (n *UnOpExpr) Span() (start, end token.Pos) {
	_, end = n.Right.Span()
	return n.Op, end
}
func (n *UnOpExpr) Walk(v Visitor) {
	Walk(v, n.Right)
}
func (n *UnOpExpr) expr() {}

func (n *TableExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "table", map[string]int{"fields": len(n.Fields)})
}
func (n *TableExpr) Span() (start, end token.Pos) {
	return n.Lbrace, n.Rbrace + token.Pos(len(token.RBRACE.String()))
}
func (n *TableExpr) Walk(v Visitor) {
	for _, fl := range n.Fields {
		if fl.Key != nil {
			Walk(v, fl.Key)
		}
		Walk(v, fl.Value)
	}
}
func (n *TableExpr) expr() {}

func (n *CallExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "call", map[string]int{"args": len(n.Args)})
}
func (n *CallExpr) Span() (start, end token.Pos) {
	start, _ = n.Fn.Span()
	return start, n.Rparen + token.Pos(len(token.RPAREN.String()))
}
func (n *CallExpr) Walk(v Visitor) {
	Walk(v, n.Fn)
	for _, e := range n.Args {
		Walk(v, e)
	}
}
func (n *CallExpr) expr() {}

func (n *MethodCallExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "method call "+n.Method.Lit, map[string]int{"args": len(n.Args)})
}
func (n *MethodCallExpr) Span() (start, end token.Pos) {
	start, _ = n.Obj.Span()
	return start, n.Rparen + token.Pos(len(token.RPAREN.String()))
}
func (n *MethodCallExpr) Walk(v Visitor) {
	Walk(v, n.Obj)
	Walk(v, n.Method)
	for _, e := range n.Args {
		Walk(v, e)
	}
}
func (n *MethodCallExpr) expr() {}

func (n *IndexExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "expr[index]", nil) }
func (n *IndexExpr) Span() (start, end token.Pos) {
	start, _ = n.Prefix.Span()
	return start, n.Rbrack + token.Pos(len(token.RBRACK.String()))
}
func (n *IndexExpr) Walk(v Visitor) {
	Walk(v, n.Prefix)
	Walk(v, n.Index)
}
func (n *IndexExpr) expr() {}

func (n *PropertyExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "expr.ident", nil) }
func (n *PropertyExpr) Span() (start, end token.Pos) {
	start, _ = n.Left.Span()
	_, end = n.Name.Span()
	return start, end
}
func (n *PropertyExpr) Walk(v Visitor) {
	Walk(v, n.Left)
	Walk(v, n.Name)
}
func (n *PropertyExpr) expr() {}

func (n *FuncExpr) Format(f fmt.State, verb rune) {
	lbl := "function"
	if n.Sig.DotDotDot.IsValid() {
		lbl += " ..."
	}
	format(f, verb, n, lbl, map[string]int{"params": len(n.Sig.Params)})
}
func (n *FuncExpr) Span() (start, end token.Pos) {
	return n.Function, n.End + token.Pos(len(token.END.String()))
}
func (n *FuncExpr) Walk(v Visitor) {
	for _, p := range n.Sig.Params {
		Walk(v, p)
	}
	Walk(v, n.Body)
}
func (n *FuncExpr) expr() {}

func (n *ParenExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "(expr)", nil) }
func (n *ParenExpr) Span() (start, end token.Pos) {
	return n.Lparen, n.Rparen + token.Pos(len(token.RPAREN.String()))
}
func (n *ParenExpr) Walk(v Visitor) {
	Walk(v, n.Expr)
}
func (n *ParenExpr) expr() {}

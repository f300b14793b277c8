package ast

import (
	"fmt"

	"github.com/mna/luar/lang/token"
)

type (
	// BadStmt represents a statement that failed to parse.
	BadStmt struct {
		Start, End token.Pos
	}

	// LocalStmt is "local namelist [= explist]".
	LocalStmt struct {
		Local  token.Pos
		Names  []*IdentExpr
		Commas []token.Pos
		Assign token.Pos // NoPos if there is no "= explist" part
		Values []Expr
	}

	// LocalFuncStmt is "local function name(...) ... end". It is distinct
	// from LocalStmt because the function's own name is in scope inside its
	// body, enabling direct recursion.
	LocalFuncStmt struct {
		Local    token.Pos
		Function token.Pos
		Name     *IdentExpr
		Sig      *FuncSignature
		Body     *Block
		End      token.Pos

		// Resolved is filled by the resolver with a *resolver.Function, kept
		// as `any` to avoid an import cycle between ast and resolver.
		Resolved any
	}

	// AssignStmt is "varlist = explist".
	AssignStmt struct {
		Left        []Expr // each is *IdentExpr, *PropertyExpr or *IndexExpr
		LeftCommas  []token.Pos
		Assign      token.Pos
		Right       []Expr
		RightCommas []token.Pos
	}

	// FuncName is the (possibly dotted, possibly method) name target of a
	// FuncDeclStmt: "function a.b.c:d() end" has Path == [a, b, c] and
	// Method == d.
	FuncName struct {
		Path   []*IdentExpr
		Colon  token.Pos // NoPos unless Method != nil
		Method *IdentExpr
	}

	// FuncDeclStmt is "function name(...) ... end", where name may be
	// dotted and/or a method (in which case an implicit "self" parameter is
	// prepended to Sig.Params by the parser).
	FuncDeclStmt struct {
		Function token.Pos
		Name     *FuncName
		Sig      *FuncSignature
		Body     *Block
		End      token.Pos

		// Resolved is filled by the resolver with a *resolver.Function, kept
		// as `any` to avoid an import cycle between ast and resolver.
		Resolved any
	}

	// ElseIfClause is one "elseif cond then body" clause of an IfStmt.
	ElseIfClause struct {
		ElseIf token.Pos
		Cond   Expr
		Then   token.Pos
		Body   *Block
	}

	// IfStmt is "if cond then body {elseif cond then body} [else body] end".
	IfStmt struct {
		If       token.Pos
		Cond     Expr
		Then     token.Pos
		Body     *Block
		ElseIfs  []*ElseIfClause
		Else     token.Pos // NoPos if there is no else clause
		ElseBody *Block
		End      token.Pos
	}

	// WhileStmt is "while cond do body end".
	WhileStmt struct {
		While token.Pos
		Cond  Expr
		Do    token.Pos
		Body  *Block
		End   token.Pos
	}

	// RepeatStmt is "repeat body until cond". Cond is evaluated inside the
	// scope of Body, so it may reference locals the body declared.
	RepeatStmt struct {
		Repeat token.Pos
		Body   *Block
		Until  token.Pos
		Cond   Expr
	}

	// ForNumStmt is "for name = start, limit [, step] do body end".
	ForNumStmt struct {
		For    token.Pos
		Name   *IdentExpr
		Assign token.Pos
		Start  Expr
		Limit  Expr
		Step   Expr // nil if not specified
		Do     token.Pos
		Body   *Block
		End    token.Pos
	}

	// ForInStmt is "for namelist in explist do body end".
	ForInStmt struct {
		For    token.Pos
		Names  []*IdentExpr
		In     token.Pos
		Exprs  []Expr
		Commas []token.Pos
		Do     token.Pos
		Body   *Block
		End    token.Pos
	}

	// DoStmt is "do body end", an explicit nested scope.
	DoStmt struct {
		Do   token.Pos
		Body *Block
		End  token.Pos
	}

	// CallStmt is an expression statement; Call is either a *CallExpr or a
	// *MethodCallExpr, the only expression forms valid as a statement.
	CallStmt struct {
		Call Expr
	}

	// ReturnStmt is "return [explist]". It may only be the last statement
	// of a block.
	ReturnStmt struct {
		Return token.Pos
		Values []Expr
		Commas []token.Pos
	}

	// BreakStmt is "break". It may only be the last statement of a block.
	BreakStmt struct {
		Start token.Pos
	}

	// GotoStmt is "goto label". It may only be the last statement of a
	// block.
	GotoStmt struct {
		Goto  token.Pos
		Label *IdentExpr
	}

	// LabelStmt is "::name::".
	LabelStmt struct {
		Lcolon token.Pos
		Name   *IdentExpr
		Rcolon token.Pos
	}
)

func (n *BadStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "!bad stmt!", nil) }
func (n *BadStmt) Span() (start, end token.Pos)  { return n.Start, n.End }
func (n *BadStmt) Walk(v Visitor)                {}
func (n *BadStmt) BlockEnding() bool             { return false }

func (n *LocalStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "local", map[string]int{"names": len(n.Names), "values": len(n.Values)})
}
func (n *LocalStmt) Span() (start, end token.Pos) {
	_, end = n.Names[len(n.Names)-1].Span()
	if len(n.Values) > 0 {
		_, end = n.Values[len(n.Values)-1].Span()
	}
	return n.Local, end
}
func (n *LocalStmt) Walk(v Visitor) {
	for _, id := range n.Names {
		Walk(v, id)
	}
	for _, e := range n.Values {
		Walk(v, e)
	}
}
func (n *LocalStmt) BlockEnding() bool { return false }

func (n *LocalFuncStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "local function "+n.Name.Lit, map[string]int{"params": len(n.Sig.Params)})
}
func (n *LocalFuncStmt) Span() (start, end token.Pos) {
	return n.Local, n.End + token.Pos(len(token.END.String()))
}
func (n *LocalFuncStmt) Walk(v Visitor) {
	Walk(v, n.Name)
	for _, p := range n.Sig.Params {
		Walk(v, p)
	}
	Walk(v, n.Body)
}
func (n *LocalFuncStmt) BlockEnding() bool { return false }

func (n *AssignStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "assignment", map[string]int{"left": len(n.Left), "right": len(n.Right)})
}
func (n *AssignStmt) Span() (start, end token.Pos) {
	start, _ = n.Left[0].Span()
	_, end = n.Right[len(n.Right)-1].Span()
	return start, end
}
func (n *AssignStmt) Walk(v Visitor) {
	for _, e := range n.Left {
		Walk(v, e)
	}
	for _, e := range n.Right {
		Walk(v, e)
	}
}
func (n *AssignStmt) BlockEnding() bool { return false }

func (n *FuncDeclStmt) Format(f fmt.State, verb rune) {
	lbl := "function decl"
	if n.Name.Method != nil {
		lbl = "method decl " + n.Name.Method.Lit
	}
	format(f, verb, n, lbl, map[string]int{"params": len(n.Sig.Params)})
}
func (n *FuncDeclStmt) Span() (start, end token.Pos) {
	return n.Function, n.End + token.Pos(len(token.END.String()))
}
func (n *FuncDeclStmt) Walk(v Visitor) {
	for _, p := range n.Name.Path {
		Walk(v, p)
	}
	if n.Name.Method != nil {
		Walk(v, n.Name.Method)
	}
	for _, p := range n.Sig.Params {
		Walk(v, p)
	}
	Walk(v, n.Body)
}
func (n *FuncDeclStmt) BlockEnding() bool { return false }

func (n *IfStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "if", map[string]int{"elseifs": len(n.ElseIfs)})
}
func (n *IfStmt) Span() (start, end token.Pos) {
	end = n.End + token.Pos(len(token.END.String()))
	return n.If, end
}
func (n *IfStmt) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Body)
	for _, ei := range n.ElseIfs {
		Walk(v, ei.Cond)
		Walk(v, ei.Body)
	}
	if n.ElseBody != nil {
		Walk(v, n.ElseBody)
	}
}
func (n *IfStmt) BlockEnding() bool { return false }

func (n *WhileStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "while", nil) }
func (n *WhileStmt) Span() (start, end token.Pos) {
	return n.While, n.End + token.Pos(len(token.END.String()))
}
func (n *WhileStmt) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Body)
}
func (n *WhileStmt) BlockEnding() bool { return false }

func (n *RepeatStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "repeat", nil) }
func (n *RepeatStmt) Span() (start, end token.Pos) {
	_, end = n.Cond.Span()
	return n.Repeat, end
}
func (n *RepeatStmt) Walk(v Visitor) {
	Walk(v, n.Body)
	Walk(v, n.Cond)
}
func (n *RepeatStmt) BlockEnding() bool { return false }

func (n *ForNumStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "for", nil) }
func (n *ForNumStmt) Span() (start, end token.Pos) {
	return n.For, n.End + token.Pos(len(token.END.String()))
}
func (n *ForNumStmt) Walk(v Visitor) {
	Walk(v, n.Name)
	Walk(v, n.Start)
	Walk(v, n.Limit)
	if n.Step != nil {
		Walk(v, n.Step)
	}
	Walk(v, n.Body)
}
func (n *ForNumStmt) BlockEnding() bool { return false }

func (n *ForInStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "for in", map[string]int{"names": len(n.Names), "exprs": len(n.Exprs)})
}
func (n *ForInStmt) Span() (start, end token.Pos) {
	return n.For, n.End + token.Pos(len(token.END.String()))
}
func (n *ForInStmt) Walk(v Visitor) {
	for _, nm := range n.Names {
		Walk(v, nm)
	}
	for _, e := range n.Exprs {
		Walk(v, e)
	}
	Walk(v, n.Body)
}
func (n *ForInStmt) BlockEnding() bool { return false }

func (n *DoStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "do", nil) }
func (n *DoStmt) Span() (start, end token.Pos) {
	return n.Do, n.End + token.Pos(len(token.END.String()))
}
func (n *DoStmt) Walk(v Visitor) { Walk(v, n.Body) }
func (n *DoStmt) BlockEnding() bool { return false }

func (n *CallStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "call stmt", nil) }
func (n *CallStmt) Span() (start, end token.Pos)  { return n.Call.Span() }
func (n *CallStmt) Walk(v Visitor)                { Walk(v, n.Call) }
func (n *CallStmt) BlockEnding() bool             { return false }

func (n *ReturnStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "return", map[string]int{"values": len(n.Values)})
}
func (n *ReturnStmt) Span() (start, end token.Pos) {
	end = n.Return + token.Pos(len(token.RETURN.String()))
	if len(n.Values) > 0 {
		_, end = n.Values[len(n.Values)-1].Span()
	}
	return n.Return, end
}
func (n *ReturnStmt) Walk(v Visitor) {
	for _, e := range n.Values {
		Walk(v, e)
	}
}
func (n *ReturnStmt) BlockEnding() bool { return true }

func (n *BreakStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "break", nil) }
func (n *BreakStmt) Span() (start, end token.Pos) {
	return n.Start, n.Start + token.Pos(len(token.BREAK.String()))
}
func (n *BreakStmt) Walk(v Visitor)    {}
func (n *BreakStmt) BlockEnding() bool { return true }

func (n *GotoStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "goto "+n.Label.Lit, nil) }
func (n *GotoStmt) Span() (start, end token.Pos) {
	_, end = n.Label.Span()
	return n.Goto, end
}
func (n *GotoStmt) Walk(v Visitor)    { Walk(v, n.Label) }
func (n *GotoStmt) BlockEnding() bool { return true }

func (n *LabelStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "label "+n.Name.Lit, nil) }
func (n *LabelStmt) Span() (start, end token.Pos) {
	return n.Lcolon, n.Rcolon + token.Pos(len(token.COLONCOLON.String()))
}
func (n *LabelStmt) Walk(v Visitor)    { Walk(v, n.Name) }
func (n *LabelStmt) BlockEnding() bool { return false }

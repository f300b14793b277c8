// Package compiler takes a parsed and resolved AST and compiles it to a
// tree of register-machine bytecode: one Prototype per function, each
// holding a flat []Instruction for its straight-line statements and, for
// every control-flow construct, a nested []Instruction body rather than
// a jump target. Register allocation for locals and upvalues comes
// straight from the resolver; the compiler's own job is limited to
// allocating temporaries above the function's local registers and
// lowering expressions and statements into instructions.
package compiler

import (
	"context"
	"fmt"

	"github.com/mna/luar/lang/ast"
	"github.com/mna/luar/lang/resolver"
	"github.com/mna/luar/lang/token"
)

// CompileFiles takes the file set and corresponding list of chunks from a
// successful resolve result and compiles each chunk to a Prototype tree.
//
// An AST that resulted in errors in the resolve phase should never be
// passed to the compiler; the behavior is undefined.
//
// Compiling does not return an error: a validly resolved AST always
// generates a valid, executable Prototype.
func CompileFiles(ctx context.Context, fset *token.FileSet, chunks []*ast.Chunk) []*Prototype {
	if len(chunks) == 0 {
		return nil
	}

	protos := make([]*Prototype, len(chunks))
	for i, ch := range chunks {
		start, _ := ch.Span()
		file := fset.File(start)
		protos[i] = compileFunction(file, ch.Name, ch, ch.Resolved.(*resolver.Function), ch.Block)
	}
	return protos
}

// compileFunction compiles one function (the chunk's implicit top-level
// function, or a nested literal) into a self-contained Prototype.
func compileFunction(file *token.File, source string, node ast.Node, fn *resolver.Function, body *ast.Block) *Prototype {
	line := 0
	if start, _ := node.Span(); start.IsValid() {
		line = file.Position(start).Line
	}
	proto := &Prototype{
		Source:      source,
		File:        file,
		Line:        line,
		NumParams:   fn.ParamCount,
		IsVararg:    fn.IsVararg,
		MaxRegister: fn.MaxRegister,
	}
	for _, uv := range fn.Upvalues {
		proto.Upvalues = append(proto.Upvalues, *uv)
	}

	fc := &fcomp{
		file:     file,
		source:   source,
		proto:    proto,
		tempBase: fn.MaxRegister,
		nextTemp: fn.MaxRegister,
	}
	fc.stmts(body.Stmts)
	// a block only ever ends in an explicit return as its last statement
	// (Lua's grammar enforces this); anywhere else, fall off the end with
	// an implicit no-values return.
	if _, ok := lastStmt(body.Stmts).(*ast.ReturnStmt); !ok {
		fc.emit(&Return{Base: fc.tempBase, Count: 0})
	}
	proto.Code = fc.code
	return proto
}

// lastStmt returns the last statement of a block, or nil if it is empty.
func lastStmt(stmts []ast.Stmt) ast.Stmt {
	if len(stmts) == 0 {
		return nil
	}
	return stmts[len(stmts)-1]
}

// fcomp holds the compiler state for one Prototype under construction.
type fcomp struct {
	file   *token.File
	source string
	proto  *Prototype

	// code is the instruction sequence currently being appended to;
	// beginBody/endBody swap it out for a fresh one when compiling a nested
	// control-flow body, restoring the outer one afterward.
	code []Instruction

	// tempBase is the first register above every local this function's
	// resolver pass ever assigned; nextTemp grows from there as expressions
	// need scratch registers, and is reset to tempBase after every
	// statement (or fixed-width control-flow setup) so registers don't grow
	// without bound across a function body. NumericFor/GenericFor control
	// registers are the exception: they are allocated once and live for the
	// whole loop, so they push tempBase up for the duration of the loop.
	tempBase, nextTemp int

	line int // most recently emitted SourceLine, to avoid redundant markers
}

func (fc *fcomp) emit(i Instruction) { fc.code = append(fc.code, i) }

// beginBody starts a fresh nested instruction sequence, used for the
// bodies of Test/LogicalAnd/LogicalOr/loop constructs, returning the
// enclosing sequence so the matching endBody call can restore it.
func (fc *fcomp) beginBody() []Instruction {
	saved := fc.code
	fc.code = nil
	return saved
}

// endBody returns the instructions accumulated since the matching
// beginBody call and restores the enclosing sequence captured by it.
func (fc *fcomp) endBody(saved []Instruction) []Instruction {
	body := fc.code
	fc.code = saved
	return body
}

func (fc *fcomp) markLine(p token.Pos) {
	if !p.IsValid() {
		return
	}
	pos := fc.file.Position(p)
	if pos.Line == fc.line {
		return
	}
	fc.line = pos.Line
	fc.emit(&SourceLine{Line: pos.Line, Column: pos.Column})
}

// newTemp allocates the next free scratch register above the function's
// locals.
func (fc *fcomp) newTemp() int {
	r := fc.nextTemp
	fc.nextTemp++
	if fc.nextTemp > fc.proto.MaxRegister {
		fc.proto.MaxRegister = fc.nextTemp
	}
	return r
}

// resetTemps discards every temporary allocated since the current
// statement (or loop setup) began; called after each statement so
// registers don't accumulate across a function body.
func (fc *fcomp) resetTemps() { fc.nextTemp = fc.tempBase }

func (fc *fcomp) stmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		fc.stmt(s)
		fc.resetTemps()
	}
}

func (fc *fcomp) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.BadStmt:
		// nothing to compile; the parser already reported this

	case *ast.LocalStmt:
		fc.markLine(s.Local)
		targets := make([]int, len(s.Names))
		for i, id := range s.Names {
			targets[i] = id.Ref.(*resolver.Binding).Index
		}
		fc.assignToRegisters(s.Values, targets)

	case *ast.LocalFuncStmt:
		fc.markLine(s.Function)
		reg := s.Name.Ref.(*resolver.Binding).Index
		proto := compileFunction(fc.file, fc.source, s, s.Resolved.(*resolver.Function), s.Body)
		fc.proto.Protos = append(fc.proto.Protos, proto)
		fc.emit(&Closure{Dest: reg, Proto: proto})

	case *ast.AssignStmt:
		fc.markLine(s.Assign)
		fc.assignStmt(s)

	case *ast.FuncDeclStmt:
		fc.markLine(s.Function)
		fc.funcDeclStmt(s)

	case *ast.IfStmt:
		fc.markLine(s.If)
		fc.ifStmt(s)

	case *ast.WhileStmt:
		fc.markLine(s.While)
		condSaved := fc.beginBody()
		testReg := fc.expr(s.Cond)
		condBody := fc.endBody(condSaved)
		bodySaved := fc.beginBody()
		fc.stmts(s.Body.Stmts)
		loopBody := fc.endBody(bodySaved)
		fc.emit(&WhileLoop{Cond: condBody, TestReg: testReg, Body: loopBody})

	case *ast.RepeatStmt:
		fc.markLine(s.Repeat)
		saved := fc.beginBody()
		fc.stmts(s.Body.Stmts)
		testReg := fc.expr(s.Cond)
		body := fc.endBody(saved)
		fc.emit(&RepeatLoop{Body: body, TestReg: testReg})

	case *ast.ForNumStmt:
		fc.markLine(s.For)
		fc.forNumStmt(s)

	case *ast.ForInStmt:
		fc.markLine(s.For)
		fc.forInStmt(s)

	case *ast.DoStmt:
		fc.stmts(s.Body.Stmts)

	case *ast.CallStmt:
		start, _ := s.Call.Span()
		fc.markLine(start)
		fc.exprDiscard(s.Call)

	case *ast.ReturnStmt:
		fc.markLine(s.Return)
		base := fc.nextTemp
		count, open := fc.exprListOpen(s.Values, base)
		if open {
			count = -1
		}
		fc.emit(&Return{Base: base, Count: count})

	case *ast.BreakStmt:
		fc.markLine(s.Start)
		fc.emit(&Break{})

	case *ast.GotoStmt, *ast.LabelStmt:
		// goto/labels are a non-goal: not lowered to any instruction.

	default:
		panic(fmt.Sprintf("unexpected stmt %T", s))
	}
}

// ifStmt lowers "if/elseif*/else" into a right-nested tree of Test
// instructions: each elseif's condition is only ever evaluated inside
// the Else branch of the one before it, exactly like its run-time
// evaluation order.
func (fc *fcomp) ifStmt(s *ast.IfStmt) {
	type arm struct {
		cond token.Pos
		cv   ast.Expr
		body *ast.Block
	}
	arms := make([]arm, 0, 1+len(s.ElseIfs))
	arms = append(arms, arm{s.If, s.Cond, s.Body})
	for _, ei := range s.ElseIfs {
		arms = append(arms, arm{ei.ElseIf, ei.Cond, ei.Body})
	}

	var chain func(idx int) []Instruction
	chain = func(idx int) []Instruction {
		if idx == len(arms) {
			if s.ElseBody == nil {
				return nil
			}
			saved := fc.beginBody()
			fc.stmts(s.ElseBody.Stmts)
			return fc.endBody(saved)
		}

		a := arms[idx]
		saved := fc.beginBody()
		fc.markLine(a.cond)
		reg := fc.expr(a.cv)

		thenSaved := fc.beginBody()
		fc.stmts(a.body.Stmts)
		then := fc.endBody(thenSaved)

		els := chain(idx + 1)
		fc.emit(&Test{Reg: reg, Then: then, Else: els})
		return fc.endBody(saved)
	}

	for _, i := range chain(0) {
		fc.emit(i)
	}
}

// forNumStmt lowers "for name = start, limit[, step] do body end". The
// counter/limit/step registers are loop-owned temporaries that live for
// the whole statement, allocated above whatever the enclosing statement
// already used.
func (fc *fcomp) forNumStmt(s *ast.ForNumStmt) {
	counter := fc.newTemp()
	limit := fc.newTemp()
	step := fc.newTemp()
	fc.exprInto(counter, s.Start)
	fc.exprInto(limit, s.Limit)
	if s.Step != nil {
		fc.exprInto(step, s.Step)
	} else {
		fc.emit(&LoadConstant{Dest: step, Value: int64(1)})
	}

	varReg := s.Name.Ref.(*resolver.Binding).Index
	savedBase := fc.tempBase
	fc.tempBase = step + 1
	fc.nextTemp = fc.tempBase
	saved := fc.beginBody()
	fc.stmts(s.Body.Stmts)
	body := fc.endBody(saved)
	fc.tempBase = savedBase
	fc.nextTemp = savedBase
	fc.emit(&NumericFor{Counter: counter, Limit: limit, Step: step, Var: varReg, Body: body})
}

// forInStmt lowers "for names in exprs do body end": exprs are evaluated
// once, padded or truncated to exactly the three control values
// (iterator function, state, initial control), and the loop variables
// keep whatever registers the resolver already gave them.
func (fc *fcomp) forInStmt(s *ast.ForInStmt) {
	iterFunc := fc.newTemp()
	state := fc.newTemp()
	control := fc.newTemp()
	fc.exprListInto(s.Exprs, iterFunc, 3)

	vars := make([]int, len(s.Names))
	for i, id := range s.Names {
		vars[i] = id.Ref.(*resolver.Binding).Index
	}

	savedBase := fc.tempBase
	fc.tempBase = control + 1
	fc.nextTemp = fc.tempBase
	saved := fc.beginBody()
	fc.stmts(s.Body.Stmts)
	body := fc.endBody(saved)
	fc.tempBase = savedBase
	fc.nextTemp = savedBase
	fc.emit(&GenericFor{IterFunc: iterFunc, State: state, Control: control, Vars: vars, Body: body})
}

// funcDeclStmt lowers "function name(...) ... end", which assigns a new
// closure into an existing variable or table field rather than declaring
// one: only Name.Path[0] is a variable reference, the rest (and the
// method name, if any) are run-time field accesses.
func (fc *fcomp) funcDeclStmt(s *ast.FuncDeclStmt) {
	proto := compileFunction(fc.file, fc.source, s, s.Resolved.(*resolver.Function), s.Body)
	fc.proto.Protos = append(fc.proto.Protos, proto)

	dest := fc.newTemp()
	fc.emit(&Closure{Dest: dest, Proto: proto})

	path := s.Name.Path
	if len(path) == 1 && s.Name.Method == nil {
		fc.storeTarget(fc.identTarget(path[0]), dest)
		return
	}

	table := fc.identValue(path[0])
	rest := path[1:]
	var field string
	if s.Name.Method != nil {
		for _, seg := range rest {
			next := fc.newTemp()
			fc.emit(&GetField{Dest: next, Table: table, Name: seg.Lit})
			table = next
		}
		field = s.Name.Method.Lit
	} else {
		for _, seg := range rest[:len(rest)-1] {
			next := fc.newTemp()
			fc.emit(&GetField{Dest: next, Table: table, Name: seg.Lit})
			table = next
		}
		field = rest[len(rest)-1].Lit
	}
	fc.emit(&SetField{Table: table, Name: field, Value: dest})
}

// assignTarget describes one left-hand side of an assignment, resolved
// down to what storeTarget needs to know to write a value into it.
type assignTarget struct {
	ident   *resolver.Binding // non-nil for an *ast.IdentExpr target
	table   int               // the table register, for isField/isIndex
	key     int               // the key register, for isIndex only
	field   string            // the field name, for isField only
	isField bool              // *ast.PropertyExpr target
	isIndex bool              // *ast.IndexExpr target
}

// identTarget builds the target for a plain identifier, used both by
// ordinary assignment and by "function name() end" declarations.
func (fc *fcomp) identTarget(id *ast.IdentExpr) assignTarget {
	return assignTarget{ident: id.Ref.(*resolver.Binding)}
}

// identValue returns a register holding a plain identifier's current
// value, e.g. as the base of a field chain. Like expr, it returns a bare
// Register local's own register without copying it.
func (fc *fcomp) identValue(id *ast.IdentExpr) int {
	return fc.expr(id)
}

// prepareTarget evaluates whatever table/key subexpressions an
// assignment target needs, in left-to-right order, before any right-hand
// side is compiled.
func (fc *fcomp) prepareTarget(e ast.Expr) assignTarget {
	switch e := e.(type) {
	case *ast.IdentExpr:
		return fc.identTarget(e)
	case *ast.PropertyExpr:
		t := fc.expr(e.Left)
		return assignTarget{isField: true, table: t, field: e.Name.Lit}
	case *ast.IndexExpr:
		t := fc.expr(e.Prefix)
		k := fc.expr(e.Index)
		return assignTarget{isIndex: true, table: t, key: k}
	default:
		panic(fmt.Sprintf("unexpected assignment target %T", e))
	}
}

// storeTarget writes register src into target.
func (fc *fcomp) storeTarget(t assignTarget, src int) {
	switch {
	case t.isField:
		fc.emit(&SetField{Table: t.table, Name: t.field, Value: src})
	case t.isIndex:
		fc.emit(&SetTable{Table: t.table, Key: t.key, Value: src})
	default:
		switch t.ident.Scope {
		case resolver.Register:
			if t.ident.Index != src {
				fc.emit(&Move{Dest: t.ident.Index, Src: src})
			}
		case resolver.CapturedLocal:
			fc.emit(&SetOpenUpvalue{Reg: t.ident.Index, Src: src})
		case resolver.Upvalue:
			fc.emit(&SetUpvalue{Index: t.ident.Index, Src: src})
		case resolver.Global:
			fc.emit(&SetGlobal{Name: t.ident.Name, Src: src})
		}
	}
}

// assignStmt lowers "lhs1, lhs2, ... = rhs1, rhs2, ...": every target's
// table/key subexpressions are evaluated first, left to right, then the
// whole right-hand side is evaluated into a contiguous block of
// registers (the last expression expanding or truncating per the usual
// rule), and finally each value is stored into its target.
func (fc *fcomp) assignStmt(s *ast.AssignStmt) {
	targets := make([]assignTarget, len(s.Left))
	for i, e := range s.Left {
		targets[i] = fc.prepareTarget(e)
	}

	base := fc.nextTemp
	fc.exprListInto(s.Right, base, len(targets))
	for i, t := range targets {
		fc.storeTarget(t, base+i)
	}
}

// assignToRegisters lowers "local n1, n2, ... = v1, v2, ...": unlike
// assignStmt, the targets are always plain registers the resolver
// already assigned, so values can be compiled directly into them without
// an intermediate temp block.
func (fc *fcomp) assignToRegisters(values []ast.Expr, targets []int) {
	if len(targets) == 0 {
		for _, v := range values {
			fc.exprDiscard(v)
		}
		return
	}
	fc.exprListInto(values, targets[0], len(targets))
	// exprListInto above assumes a contiguous block starting at targets[0];
	// that holds for LocalStmt because the resolver hands out registers to
	// a statement's own names in order, immediately after binding them.
}

// exprListInto evaluates values into exactly want contiguous registers
// starting at base, Lua's rule for a fixed-arity destination (a local or
// assignment list, a numeric/generic for's control values): every value
// but the last is truncated to one result; the last expands to fill
// whatever targets remain if it is a call or "...", and is padded with
// nil past the end of values if there are more targets than values.
func (fc *fcomp) exprListInto(values []ast.Expr, base, want int) {
	for want > 0 && fc.nextTemp <= base+want-1 {
		fc.newTemp()
	}
	if len(values) == 0 {
		if want > 0 {
			fc.emit(&LoadNil{Base: base, Count: want})
		}
		return
	}
	for i := 0; i < len(values)-1; i++ {
		if i < want {
			fc.exprInto(base+i, values[i])
		} else {
			fc.exprDiscard(values[i])
		}
	}

	last := values[len(values)-1]
	lastPos := len(values) - 1
	if lastPos >= want {
		// every target already has a value; still evaluate the last
		// expression for its side effects.
		fc.exprDiscard(last)
		return
	}
	remain := want - lastPos
	if remain == 1 {
		fc.exprInto(base+lastPos, last)
		return
	}
	if !fc.compileOpenInto(last, base+lastPos, remain) {
		fc.exprInto(base+lastPos, last)
		if remain > 1 {
			fc.emit(&LoadNil{Base: base + lastPos + 1, Count: remain - 1})
		}
	}
}

// exprListOpen evaluates values starting at base, expanding the last
// expression to every result it produces if it is a call or "..."
// (reporting open=true, since the count is only known at run time), or
// to exactly one value otherwise. It is used where Lua itself leaves the
// arity open: call arguments, return values, and the last field of a
// table constructor.
func (fc *fcomp) exprListOpen(values []ast.Expr, base int) (count int, open bool) {
	if len(values) == 0 {
		return 0, false
	}
	for i := 0; i < len(values)-1; i++ {
		fc.exprInto(base+i, values[i])
	}
	last := values[len(values)-1]
	pos := base + len(values) - 1
	if fc.compileOpenAt(last, pos) {
		return len(values) - 1, true
	}
	fc.exprInto(pos, last)
	return len(values), false
}

// compileOpenInto tries to compile e directly into "remain" contiguous
// registers starting at dest, using a call's or vararg's native ability
// to produce a fixed number of results; it reports whether e was one of
// those forms.
func (fc *fcomp) compileOpenInto(e ast.Expr, dest, remain int) bool {
	switch e := ast.Unwrap(e).(type) {
	case *ast.CallExpr:
		fc.compileCall(e, dest, remain)
		return true
	case *ast.MethodCallExpr:
		fc.compileMethodCall(e, dest, remain)
		return true
	case *ast.VarargExpr:
		fc.emit(&Vararg{Base: dest, Count: remain})
		return true
	default:
		return false
	}
}

// compileOpenAt compiles e at register pos if it is a call or vararg,
// leaving every result it produced starting there, and reports whether
// it did so (the open, unknown-arity case).
func (fc *fcomp) compileOpenAt(e ast.Expr, pos int) bool {
	switch e := ast.Unwrap(e).(type) {
	case *ast.CallExpr:
		fc.compileCall(e, pos, -1)
		return true
	case *ast.MethodCallExpr:
		fc.compileMethodCall(e, pos, -1)
		return true
	case *ast.VarargExpr:
		fc.emit(&Vararg{Base: pos, Count: -1})
		return true
	default:
		return false
	}
}

// exprInto compiles e so that its single, truncated value ends up in
// register dest exactly, whatever dest's relationship to the current
// temp cursor. Any temps e itself needed above dest are reclaimed
// immediately afterward: exprInto is always safe to call back-to-back
// for consecutive slots of a contiguous register block.
func (fc *fcomp) exprInto(dest int, e ast.Expr) {
	fc.nextTemp = dest
	if fc.nextTemp+1 > fc.proto.MaxRegister {
		fc.proto.MaxRegister = fc.nextTemp + 1
	}
	r := fc.expr(e)
	if r != dest {
		fc.emit(&Move{Dest: dest, Src: r})
	}
	fc.nextTemp = dest + 1
}

// exprDiscard compiles e purely for its side effects (a call or method
// call used as a statement); anything else has none in Lua, but is
// still compiled so that, e.g., indexing a nil value still raises.
func (fc *fcomp) exprDiscard(e ast.Expr) {
	switch v := ast.Unwrap(e).(type) {
	case *ast.CallExpr:
		fc.compileCall(v, fc.nextTemp, 0)
	case *ast.MethodCallExpr:
		fc.compileMethodCall(v, fc.nextTemp, 0)
	default:
		fc.expr(e)
	}
}

// expr compiles e to a single, truncated value and returns the register
// holding it. For a plain local (Register-scope) reference this is the
// local's own register, with no copy; every other form allocates a
// fresh temp.
func (fc *fcomp) expr(e ast.Expr) int {
	switch e := e.(type) {
	case *ast.ParenExpr:
		return fc.expr(e.Expr)

	case *ast.BadExpr:
		d := fc.newTemp()
		fc.emit(&LoadNil{Base: d, Count: 1})
		return d

	case *ast.NilExpr:
		d := fc.newTemp()
		fc.emit(&LoadNil{Base: d, Count: 1})
		return d

	case *ast.TrueExpr:
		d := fc.newTemp()
		fc.emit(&LoadBool{Dest: d, Value: true})
		return d

	case *ast.FalseExpr:
		d := fc.newTemp()
		fc.emit(&LoadBool{Dest: d, Value: false})
		return d

	case *ast.NumberExpr:
		d := fc.newTemp()
		if e.Type == token.INT {
			fc.emit(&LoadConstant{Dest: d, Value: e.Int})
		} else {
			fc.emit(&LoadConstant{Dest: d, Value: e.Float})
		}
		return d

	case *ast.StringExpr:
		d := fc.newTemp()
		fc.emit(&LoadConstant{Dest: d, Value: e.Value})
		return d

	case *ast.VarargExpr:
		d := fc.newTemp()
		fc.emit(&Vararg{Base: d, Count: 1})
		return d

	case *ast.IdentExpr:
		b := e.Ref.(*resolver.Binding)
		switch b.Scope {
		case resolver.Register:
			return b.Index
		case resolver.CapturedLocal:
			d := fc.newTemp()
			fc.emit(&GetOpenUpvalue{Dest: d, Reg: b.Index})
			return d
		case resolver.Upvalue:
			d := fc.newTemp()
			fc.emit(&GetUpvalue{Dest: d, Index: b.Index})
			return d
		default: // Global
			d := fc.newTemp()
			fc.emit(&GetGlobal{Dest: d, Name: b.Name})
			return d
		}

	case *ast.BinOpExpr:
		return fc.binOp(e)

	case *ast.UnOpExpr:
		src := fc.expr(e.Right)
		d := fc.newTemp()
		fc.emit(&UnOp{Op: e.Type, Dest: d, Src: src})
		return d

	case *ast.TableExpr:
		return fc.tableExpr(e)

	case *ast.CallExpr:
		base := fc.nextTemp
		fc.compileCall(e, base, 1)
		return base

	case *ast.MethodCallExpr:
		base := fc.nextTemp
		fc.compileMethodCall(e, base, 1)
		return base

	case *ast.IndexExpr:
		t := fc.expr(e.Prefix)
		k := fc.expr(e.Index)
		d := fc.newTemp()
		fc.emit(&GetTable{Dest: d, Table: t, Key: k})
		return d

	case *ast.PropertyExpr:
		t := fc.expr(e.Left)
		d := fc.newTemp()
		fc.emit(&GetField{Dest: d, Table: t, Name: e.Name.Lit})
		return d

	case *ast.FuncExpr:
		proto := compileFunction(fc.file, fc.source, e, e.Resolved.(*resolver.Function), e.Body)
		fc.proto.Protos = append(fc.proto.Protos, proto)
		d := fc.newTemp()
		fc.emit(&Closure{Dest: d, Proto: proto})
		return d

	default:
		panic(fmt.Sprintf("unexpected expr %T", e))
	}
}

// binOp lowers a binary operator expression; "and"/"or" short-circuit
// and ".." concatenation chains get their own lowering, everything else
// is a plain two-operand BinOp instruction.
func (fc *fcomp) binOp(e *ast.BinOpExpr) int {
	switch e.Type {
	case token.AND:
		return fc.shortCircuit(e, true)
	case token.OR:
		return fc.shortCircuit(e, false)
	case token.DOTDOT:
		return fc.concat(e)
	default:
		left := fc.expr(e.Left)
		right := fc.expr(e.Right)
		dest := fc.newTemp()
		fc.emit(&BinOp{Op: e.Type, Dest: dest, Left: left, Right: right})
		return dest
	}
}

// shortCircuit lowers "left and right" / "left or right": left is
// always evaluated; right is compiled as a nested body that only runs,
// and only then overwrites dest, if left's truthiness doesn't already
// decide the result.
func (fc *fcomp) shortCircuit(e *ast.BinOpExpr, isAnd bool) int {
	dest := fc.newTemp()
	left := fc.expr(e.Left)
	fc.emit(&Move{Dest: dest, Src: left})

	saved := fc.beginBody()
	fc.exprInto(dest, e.Right)
	rhs := fc.endBody(saved)

	if isAnd {
		fc.emit(&LogicalAnd{Dest: dest, Left: dest, Rhs: rhs})
	} else {
		fc.emit(&LogicalOr{Dest: dest, Left: dest, Rhs: rhs})
	}
	return dest
}

// concat flattens a chain of ".." operators (right-associative in the
// grammar, but concatenation is associative) into a single Concat over
// contiguous registers, rather than compiling it as nested two-operand
// BinOps.
func (fc *fcomp) concat(e *ast.BinOpExpr) int {
	operands := fc.concatChain(e)
	base := fc.nextTemp
	for i, o := range operands {
		fc.exprInto(base+i, o)
	}
	dest := fc.newTemp()
	fc.emit(&Concat{Dest: dest, First: base, Last: base + len(operands) - 1})
	return dest
}

func (fc *fcomp) concatChain(e ast.Expr) []ast.Expr {
	var operands []ast.Expr
	var walk func(x ast.Expr)
	walk = func(x ast.Expr) {
		if b, ok := ast.Unwrap(x).(*ast.BinOpExpr); ok && b.Type == token.DOTDOT {
			walk(b.Left)
			walk(b.Right)
			return
		}
		operands = append(operands, x)
	}
	walk(e)
	return operands
}

// tableExpr lowers a table constructor: list-style fields are filled via
// SetList (bulk-copying the open tail of a trailing call or "..." when
// it is the constructor's last field), record-style bare names via
// SetField, and computed keys via SetTable.
func (fc *fcomp) tableExpr(e *ast.TableExpr) int {
	dest := fc.newTemp()
	fc.emit(&NewTable{Dest: dest})

	arrayIdx := 1
	for i, fl := range e.Fields {
		switch {
		case fl.Key == nil:
			if i == len(e.Fields)-1 {
				base := fc.nextTemp
				if fc.compileOpenAt(fl.Value, base) {
					fc.emit(&SetList{Table: dest, Base: base, Count: -1, Offset: arrayIdx})
					fc.nextTemp = dest + 1
					continue
				}
			}
			v := fc.expr(fl.Value)
			fc.emit(&SetList{Table: dest, Base: v, Count: 1, Offset: arrayIdx})
			arrayIdx++
			fc.nextTemp = dest + 1

		case isStringKey(fl.Key):
			v := fc.expr(fl.Value)
			fc.emit(&SetField{Table: dest, Name: fl.Key.(*ast.StringExpr).Value, Value: v})
			fc.nextTemp = dest + 1

		default:
			k := fc.expr(fl.Key)
			v := fc.expr(fl.Value)
			fc.emit(&SetTable{Table: dest, Key: k, Value: v})
			fc.nextTemp = dest + 1
		}
	}
	return dest
}

func isStringKey(e ast.Expr) bool {
	_, ok := e.(*ast.StringExpr)
	return ok
}

// compileCall lowers a function call, placing the callee at Base and its
// arguments at Base+1.., then emitting Call with up to nresults results
// landing back at Base (nresults < 0 keeps every result).
func (fc *fcomp) compileCall(e *ast.CallExpr, base, nresults int) {
	fc.exprInto(base, e.Fn)
	argBase := base + 1
	fc.nextTemp = argBase
	if fc.nextTemp > fc.proto.MaxRegister {
		fc.proto.MaxRegister = fc.nextTemp
	}
	count, open := fc.exprListOpen(e.Args, argBase)
	nargs := count
	if open {
		nargs = -1
	}
	start, _ := e.Span()
	fc.markLine(start)
	fc.emit(&Call{Base: base, NArgs: nargs, NResults: nresults})
}

// compileMethodCall lowers "obj:method(args)": the object expression may
// land anywhere (it doesn't need to be contiguous with Base), since Self
// reads it before writing the method/self pair at Base/Base+1.
func (fc *fcomp) compileMethodCall(e *ast.MethodCallExpr, base, nresults int) {
	obj := fc.expr(e.Obj)
	fc.nextTemp = base
	if fc.nextTemp > fc.proto.MaxRegister {
		fc.proto.MaxRegister = fc.nextTemp
	}
	fc.emit(&Self{Base: base, Obj: obj, Name: e.Method.Lit})
	fc.nextTemp = base + 2

	argBase := base + 2
	count, open := fc.exprListOpen(e.Args, argBase)
	nargs := count + 1 // +1 for the implicit self argument
	if open {
		nargs = -1
	}
	start, _ := e.Span()
	fc.markLine(start)
	fc.emit(&Call{Base: base, NArgs: nargs, NResults: nresults})
}

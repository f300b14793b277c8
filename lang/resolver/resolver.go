// Much of the resolver package's structure (the block/binding walk, the
// local-becomes-captured promotion on first closure reference) is adapted
// from the Starlark source code:
// https://github.com/google/starlark-go/tree/ee8ed142361c69d52fe8e9fb5e311d2a0a7c02de
//
// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resolver implements the scope resolver that takes a parsed
// abstract syntax tree and classifies every variable reference into one of
// four kinds the code generator needs: a register local to the current
// function, a register captured by a nested closure, an upvalue of the
// current function, or a global.
//
// # Registers
//
// Each function activation (the chunk itself, plus every nested function)
// has its own register file. Locals are assigned registers in declaration
// order, but a block's registers are released when the block ends, so
// sibling blocks (e.g. the two arms of an if, or successive loop bodies)
// reuse the same slots. Lua, unlike many languages the rest of this
// repository's lineage models, allows a local to redeclare a name already
// bound in the very same block ("local x = 1; local x = 2"): this is not
// an error, it simply shadows the earlier binding with a fresh register
// from that point on.
//
// # Upvalues
//
// A reference to a name declared in an enclosing function promotes that
// declaration's scope from Register to CapturedLocal, and threads an
// upvalue descriptor through every function between the declaration and
// the reference: the function immediately enclosing the declaration gets
// a "parent local" descriptor, and every function further out gets a
// "parent upvalue" descriptor pointing at the previous one. Descriptors
// are created on first use and cached per function, so repeated references
// to the same captured name share the same descriptor.
//
// # Globals
//
// Lua has no notion of an undefined name at resolve time: a name not found
// in any enclosing function's locals is simply a global, resolved by name
// at run time against the environment table. There is no predeclared or
// universal binding tier to consult, unlike the Starlark-derived resolver
// this package's shape is borrowed from.
//
// # Non-goals
//
// goto/labels are an explicit non-goal of this implementation; LabelStmt
// and GotoStmt carry no variable references and are walked as no-ops.
package resolver

import (
	"context"
	"fmt"

	"github.com/mna/luar/lang/ast"
	"github.com/mna/luar/lang/scanner"
	"github.com/mna/luar/lang/token"
)

// Mode is a set of bit flags that configures the resolving. By default (0),
// the symbols are resolved and all errors are reported.
type Mode uint

// List of supported resolver modes, which can be combined with bitwise or.
const (
	NameBlocks Mode = 1 << iota // give unique names to blocks, useful for printing the resolved AST.
)

// ResolveFiles takes the file set and corresponding list of chunks from a
// successful parse result and resolves the variable references used in the
// source code. On success, every *ast.IdentExpr used as a variable
// reference has its Ref field set to a *Binding, and the AST is ready to
// be compiled to bytecode.
//
// An AST that resulted in errors in the parse phase should never be passed
// to the resolver; the behavior is undefined.
//
// The returned error, if non-nil, is a scanner.ErrorList, or ctx's error if
// ctx is done before every chunk is resolved.
func ResolveFiles(ctx context.Context, fset *token.FileSet, chunks []*ast.Chunk, mode Mode) error {
	if len(chunks) == 0 {
		return nil
	}

	var r resolver
	for _, ch := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}

		start, _ := ch.Span()
		r.init(fset.File(start))
		r.chunk(ch)

		if mode&NameBlocks != 0 {
			r.nameBlocks()
		}
	}
	r.errors.Sort()
	return r.errors.Err()
}

type resolver struct {
	file   *token.File
	errors scanner.ErrorList

	// env is the current local environment, a linked list of blocks, with
	// the current innermost block first and the tail of the list the
	// chunk's top-level block.
	env *block
	// root keeps a reference to the root block, for the NameBlocks pass.
	root *block
}

// block is one lexical scope: either a function's top-level scope or a
// nested block (do/if/while/repeat/for body, or the synthetic wrapper
// around a for loop's control variables).
type block struct {
	parent   *block
	children []*block
	fn       *Function
	bindings map[string]*Binding

	// regMark is this function's nextRegister cursor at the time this block
	// was entered; popping the block restores it, releasing any registers
	// this block's locals claimed.
	regMark int

	// name is filled by nameBlocks, for debug printing only.
	name string
}

func (r *resolver) init(file *token.File) {
	r.file = file
	r.env = nil
	r.root = nil
}

func (r *resolver) push(b *block) {
	if r.env == nil {
		r.root = b
	} else {
		r.env.children = append(r.env.children, b)
		if b.fn == nil {
			b.fn = r.env.fn
		}
	}
	b.parent = r.env
	b.bindings = make(map[string]*Binding)
	b.regMark = b.fn.nextRegister
	r.env = b
}

func (r *resolver) pop() {
	b := r.env
	b.fn.nextRegister = b.regMark
	r.env = b.parent
}

func (r *resolver) errorf(p token.Pos, format string, args ...interface{}) {
	r.errors.Add(r.file, r.file.Position(p), scanner.KindCompile, fmt.Sprintf(format, args...))
}

// chunk resolves an entire chunk, the implicit top-level vararg function.
func (r *resolver) chunk(ch *ast.Chunk) {
	fn := &Function{Definition: ch, IsVararg: true}
	ch.Resolved = fn
	blk := &block{fn: fn}
	r.push(blk)
	for _, s := range ch.Block.Stmts {
		r.stmt(s)
	}
	r.pop()
}

// function resolves a nested function's parameters and body in their own
// scope, descending from whichever statement or expression defines it.
func (r *resolver) function(node ast.Node, sig *ast.FuncSignature, body *ast.Block) {
	fn := &Function{
		Definition: node,
		IsVararg:   sig.DotDotDot.IsValid(),
		ParamCount: len(sig.Params),
	}
	switch node := node.(type) {
	case *ast.FuncExpr:
		node.Resolved = fn
	case *ast.FuncDeclStmt:
		node.Resolved = fn
	case *ast.LocalFuncStmt:
		node.Resolved = fn
	}
	blk := &block{fn: fn}
	r.push(blk)
	for _, p := range sig.Params {
		r.bind(p)
	}
	fn.Params = append([]*Binding(nil), fn.Locals...)

	for _, s := range body.Stmts {
		r.stmt(s)
	}
	r.pop()
}

// block resolves a nested, non-function-starting block: do/if/while/repeat
// bodies and the like. Registers it allocates are released on exit.
func (r *resolver) block(b *ast.Block) {
	r.push(new(block))
	for _, s := range b.Stmts {
		r.stmt(s)
	}
	r.pop()
}

func (r *resolver) stmt(stmt ast.Stmt) {
	switch stmt := stmt.(type) {
	case *ast.BadStmt:
		// nothing to resolve

	case *ast.LocalStmt:
		// the rhs resolves in the enclosing scope, before the new names are
		// bound, so "local x = x" refers to the outer x.
		for _, e := range stmt.Values {
			r.expr(e)
		}
		for _, id := range stmt.Names {
			r.bind(id)
		}

	case *ast.LocalFuncStmt:
		// unlike LocalStmt, the function's own name is bound before its body
		// is resolved, so it can refer to itself for direct recursion.
		r.bind(stmt.Name)
		r.function(stmt, stmt.Sig, stmt.Body)

	case *ast.AssignStmt:
		for _, e := range stmt.Left {
			r.expr(e)
		}
		for _, e := range stmt.Right {
			r.expr(e)
		}

	case *ast.FuncDeclStmt:
		// "function a.b.c:d() end" is sugar for assigning into an existing
		// variable/table, not a declaration: only the leading name is a
		// variable reference, the rest of the path and the method name are
		// field accesses resolved at run time.
		r.use(stmt.Name.Path[0])
		r.function(stmt, stmt.Sig, stmt.Body)

	case *ast.IfStmt:
		r.expr(stmt.Cond)
		r.block(stmt.Body)
		for _, ei := range stmt.ElseIfs {
			r.expr(ei.Cond)
			r.block(ei.Body)
		}
		if stmt.ElseBody != nil {
			r.block(stmt.ElseBody)
		}

	case *ast.WhileStmt:
		r.expr(stmt.Cond)
		r.env.fn.loops++
		r.block(stmt.Body)
		r.env.fn.loops--

	case *ast.RepeatStmt:
		// the condition resolves inside the body's scope, so it may refer to
		// locals the body declared; this is why it can't just call r.block.
		r.env.fn.loops++
		r.push(new(block))
		for _, s := range stmt.Body.Stmts {
			r.stmt(s)
		}
		r.expr(stmt.Cond)
		r.pop()
		r.env.fn.loops--

	case *ast.ForNumStmt:
		r.expr(stmt.Start)
		r.expr(stmt.Limit)
		if stmt.Step != nil {
			r.expr(stmt.Step)
		}
		r.env.fn.loops++
		r.push(new(block))
		r.bind(stmt.Name)
		r.block(stmt.Body)
		r.pop()
		r.env.fn.loops--

	case *ast.ForInStmt:
		for _, e := range stmt.Exprs {
			r.expr(e)
		}
		r.env.fn.loops++
		r.push(new(block))
		for _, id := range stmt.Names {
			r.bind(id)
		}
		r.block(stmt.Body)
		r.pop()
		r.env.fn.loops--

	case *ast.DoStmt:
		r.block(stmt.Body)

	case *ast.CallStmt:
		r.expr(stmt.Call)

	case *ast.ReturnStmt:
		for _, e := range stmt.Values {
			r.expr(e)
		}

	case *ast.BreakStmt:
		if r.env.fn.loops == 0 {
			r.errorf(stmt.Start, "break outside a loop")
		}

	case *ast.GotoStmt, *ast.LabelStmt:
		// goto/labels are a non-goal: no scope-stack validation is performed.

	default:
		panic(fmt.Sprintf("unexpected stmt %T", stmt))
	}
}

func (r *resolver) expr(expr ast.Expr) {
	switch expr := expr.(type) {
	case *ast.BadExpr, *ast.NilExpr, *ast.TrueExpr, *ast.FalseExpr, *ast.NumberExpr, *ast.StringExpr:
		// no references to resolve

	case *ast.VarargExpr:
		if !r.env.fn.IsVararg {
			r.errorf(expr.Start, "cannot use '...' outside a vararg function")
		}

	case *ast.IdentExpr:
		r.use(expr)

	case *ast.BinOpExpr:
		r.expr(expr.Left)
		r.expr(expr.Right)

	case *ast.UnOpExpr:
		r.expr(expr.Right)

	case *ast.TableExpr:
		for _, fl := range expr.Fields {
			if fl.Key != nil {
				if _, ok := fl.Key.(*ast.StringExpr); !ok {
					r.expr(fl.Key)
				}
			}
			r.expr(fl.Value)
		}

	case *ast.CallExpr:
		r.expr(expr.Fn)
		for _, a := range expr.Args {
			r.expr(a)
		}

	case *ast.MethodCallExpr:
		r.expr(expr.Obj)
		for _, a := range expr.Args {
			r.expr(a)
		}

	case *ast.IndexExpr:
		r.expr(expr.Prefix)
		r.expr(expr.Index)

	case *ast.PropertyExpr:
		// ignore Name, a field access resolved at run time
		r.expr(expr.Left)

	case *ast.FuncExpr:
		r.function(expr, expr.Sig, expr.Body)

	case *ast.ParenExpr:
		r.expr(expr.Expr)

	default:
		panic(fmt.Sprintf("unexpected expr %T", expr))
	}
}

// bind creates a new Register binding for ident in the current block,
// allocating the next free register in the current function. It shadows
// (does not error on) an existing binding of the same name in this block,
// matching Lua's "local x = 1; local x = 2" redeclaration rule.
func (r *resolver) bind(ident *ast.IdentExpr) {
	fn := r.env.fn

	reg := fn.nextRegister
	fn.nextRegister++
	if fn.nextRegister > fn.MaxRegister {
		fn.MaxRegister = fn.nextRegister
	}

	bdg := &Binding{Scope: Register, Index: reg, Name: ident.Lit, Decl: ident}
	fn.Locals = append(fn.Locals, bdg)
	r.env.bindings[ident.Lit] = bdg
	ident.Ref = bdg
}

// use resolves a variable reference, classifying it as a register local to
// the current function, an upvalue chained through every intervening
// function, or a global.
func (r *resolver) use(ident *ast.IdentExpr) {
	name := ident.Lit
	startFn := r.env.fn

	// walk lexically outward, recording the distinct functions crossed so an
	// upvalue descriptor can be threaded through every one of them.
	var chain []*Function
	var last *Function
	for env := r.env; env != nil; env = env.parent {
		if env.fn != last {
			chain = append(chain, env.fn)
			last = env.fn
		}
		if bdg, ok := env.bindings[name]; ok {
			if env.fn == startFn {
				ident.Ref = bdg
				return
			}
			ident.Ref = r.capture(chain, name, bdg)
			return
		}
	}

	ident.Ref = &Binding{Scope: Global, Name: name}
}

// capture threads an upvalue descriptor for name through every function in
// chain, from the one owning decl inward to chain[0] (the function
// containing the reference), reusing any descriptor a function already
// created for this name.
func (r *resolver) capture(chain []*Function, name string, decl *Binding) *Binding {
	if decl.Scope == Register {
		decl.Scope = CapturedLocal
	}

	cur := decl
	for i := len(chain) - 2; i >= 0; i-- {
		fn := chain[i]
		if cached, ok := fn.upvalueCache[name]; ok {
			cur = cached
			continue
		}

		desc := &UpvalueDesc{Name: name, Index: cur.Index}
		if cur.Scope == Upvalue {
			desc.Kind = ParentUpvalue
		} else {
			desc.Kind = ParentLocal
		}

		idx := len(fn.Upvalues)
		fn.Upvalues = append(fn.Upvalues, desc)
		bdg := &Binding{Scope: Upvalue, Index: idx, Name: name}
		if fn.upvalueCache == nil {
			fn.upvalueCache = make(map[string]*Binding)
		}
		fn.upvalueCache[name] = bdg
		cur = bdg
	}
	return cur
}

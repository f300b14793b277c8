package resolver_test

import (
	"context"
	"testing"

	"github.com/mna/luar/lang/ast"
	"github.com/mna/luar/lang/parser"
	"github.com/mna/luar/lang/resolver"
	"github.com/mna/luar/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolveOne(t *testing.T, src string) *ast.Chunk {
	t.Helper()
	fs := token.NewFileSet()
	ch, err := parser.ParseChunk(context.Background(), 0, fs, "test.lua", []byte(src))
	require.NoError(t, err)
	require.NoError(t, resolver.ResolveFiles(context.Background(), fs, []*ast.Chunk{ch}, 0))
	return ch
}

func binding(t *testing.T, e ast.Expr) *resolver.Binding {
	t.Helper()
	id, ok := e.(*ast.IdentExpr)
	require.True(t, ok, "%T is not an *ast.IdentExpr", e)
	b, ok := id.Ref.(*resolver.Binding)
	require.True(t, ok, "Ref not resolved for %q", id.Lit)
	return b
}

func TestResolveLocalRegister(t *testing.T) {
	ch := resolveOne(t, `local x = 1
return x
`)
	ret := ch.Block.Stmts[1].(*ast.ReturnStmt)
	b := binding(t, ret.Values[0])
	assert.Equal(t, resolver.Register, b.Scope)
	assert.Equal(t, 0, b.Index)
}

func TestResolveGlobal(t *testing.T) {
	ch := resolveOne(t, `return unknown_name
`)
	ret := ch.Block.Stmts[0].(*ast.ReturnStmt)
	b := binding(t, ret.Values[0])
	assert.Equal(t, resolver.Global, b.Scope)
	assert.Equal(t, "unknown_name", b.Name)
}

func TestResolveRedeclarationShadows(t *testing.T) {
	// Lua allows redeclaring a local in the same block: it's not an error,
	// it shadows with a fresh register.
	ch := resolveOne(t, `local x = 1
local x = 2
return x
`)
	first := ch.Block.Stmts[0].(*ast.LocalStmt)
	second := ch.Block.Stmts[1].(*ast.LocalStmt)
	ret := ch.Block.Stmts[2].(*ast.ReturnStmt)

	firstRef := first.Names[0].Ref.(*resolver.Binding)
	secondRef := second.Names[0].Ref.(*resolver.Binding)
	usedRef := binding(t, ret.Values[0])

	assert.NotSame(t, firstRef, secondRef)
	assert.Same(t, secondRef, usedRef)
}

func TestResolveRegisterReuseAcrossSiblingBlocks(t *testing.T) {
	// registers released at the end of one "if" branch are reused by a
	// sibling branch's locals.
	ch := resolveOne(t, `if true then
  local a = 1
else
  local b = 2
end
`)
	ifs := ch.Block.Stmts[0].(*ast.IfStmt)
	a := ifs.Body.Stmts[0].(*ast.LocalStmt).Names[0].Ref.(*resolver.Binding)
	b := ifs.ElseBody.Stmts[0].(*ast.LocalStmt).Names[0].Ref.(*resolver.Binding)
	assert.Equal(t, a.Index, b.Index)
}

func TestResolveUpvalueSingleLevel(t *testing.T) {
	ch := resolveOne(t, `local x = 1
local function f()
  return x
end
`)
	local := ch.Block.Stmts[0].(*ast.LocalStmt)
	decl := local.Names[0].Ref.(*resolver.Binding)

	lf := ch.Block.Stmts[1].(*ast.LocalFuncStmt)
	ret := lf.Body.Stmts[0].(*ast.ReturnStmt)
	use := binding(t, ret.Values[0])

	assert.Equal(t, resolver.CapturedLocal, decl.Scope)
	assert.Equal(t, resolver.Upvalue, use.Scope)
	assert.Equal(t, 0, use.Index)
}

func TestResolveUpvalueChainsThroughIntermediateFunctions(t *testing.T) {
	ch := resolveOne(t, `local x = 1
local function outer()
  local function inner()
    return x
  end
  return inner
end
`)
	outer := ch.Block.Stmts[1].(*ast.LocalFuncStmt)
	inner := outer.Body.Stmts[0].(*ast.LocalFuncStmt)
	ret := inner.Body.Stmts[0].(*ast.ReturnStmt)
	innerUse := binding(t, ret.Values[0])

	assert.Equal(t, resolver.Upvalue, innerUse.Scope)
}

func TestResolveVarargOutsideVarargFunctionErrors(t *testing.T) {
	fs := token.NewFileSet()
	ch, err := parser.ParseChunk(context.Background(), 0, fs, "test.lua", []byte(`local function f()
  return ...
end
`))
	require.NoError(t, err)
	err = resolver.ResolveFiles(context.Background(), fs, []*ast.Chunk{ch}, 0)
	assert.Error(t, err)
}

func TestResolveBreakOutsideLoopErrors(t *testing.T) {
	fs := token.NewFileSet()
	ch, err := parser.ParseChunk(context.Background(), 0, fs, "test.lua", []byte("break\n"))
	require.NoError(t, err)
	err = resolver.ResolveFiles(context.Background(), fs, []*ast.Chunk{ch}, 0)
	assert.Error(t, err)
}

func TestResolveBreakInsideLoopOK(t *testing.T) {
	ch := resolveOne(t, `while true do
  break
end
`)
	assert.NotNil(t, ch)
}

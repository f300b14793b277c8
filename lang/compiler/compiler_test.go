package compiler_test

import (
	"context"
	"testing"

	"github.com/mna/luar/lang/ast"
	"github.com/mna/luar/lang/compiler"
	"github.com/mna/luar/lang/parser"
	"github.com/mna/luar/lang/resolver"
	"github.com/mna/luar/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileOne(t *testing.T, src string) *compiler.Prototype {
	t.Helper()
	fs := token.NewFileSet()
	ch, err := parser.ParseChunk(context.Background(), 0, fs, "test.lua", []byte(src))
	require.NoError(t, err)
	require.NoError(t, resolver.ResolveFiles(context.Background(), fs, []*ast.Chunk{ch}, 0))
	protos := compiler.CompileFiles(context.Background(), fs, []*ast.Chunk{ch})
	require.Len(t, protos, 1)
	return protos[0]
}

// codeWithoutLines strips SourceLine markers, recursing into every nested
// instruction body, which would otherwise make tests brittle against exact
// source line numbers.
func codeWithoutLines(code []compiler.Instruction) []compiler.Instruction {
	out := make([]compiler.Instruction, 0, len(code))
	for _, i := range code {
		switch v := i.(type) {
		case *compiler.SourceLine:
			continue
		case *compiler.Test:
			out = append(out, &compiler.Test{Reg: v.Reg, Then: codeWithoutLines(v.Then), Else: codeWithoutLines(v.Else)})
		case *compiler.WhileLoop:
			out = append(out, &compiler.WhileLoop{Cond: codeWithoutLines(v.Cond), TestReg: v.TestReg, Body: codeWithoutLines(v.Body)})
		case *compiler.RepeatLoop:
			out = append(out, &compiler.RepeatLoop{Body: codeWithoutLines(v.Body), TestReg: v.TestReg})
		case *compiler.NumericFor:
			out = append(out, &compiler.NumericFor{Counter: v.Counter, Limit: v.Limit, Step: v.Step, Var: v.Var, Body: codeWithoutLines(v.Body)})
		case *compiler.GenericFor:
			out = append(out, &compiler.GenericFor{IterFunc: v.IterFunc, State: v.State, Control: v.Control, Vars: v.Vars, Body: codeWithoutLines(v.Body)})
		case *compiler.LogicalAnd:
			out = append(out, &compiler.LogicalAnd{Dest: v.Dest, Left: v.Left, Rhs: codeWithoutLines(v.Rhs)})
		case *compiler.LogicalOr:
			out = append(out, &compiler.LogicalOr{Dest: v.Dest, Left: v.Left, Rhs: codeWithoutLines(v.Rhs)})
		default:
			out = append(out, i)
		}
	}
	return out
}

func TestCompileLocalConstant(t *testing.T) {
	proto := compileOne(t, `local x = 1
return x
`)
	code := codeWithoutLines(proto.Code)
	// the return value is copied from x's register (0) into the temp block
	// starting at register 1.
	require.Len(t, code, 3)
	lc, ok := code[0].(*compiler.LoadConstant)
	require.True(t, ok, "%T", code[0])
	assert.Equal(t, 0, lc.Dest)
	assert.Equal(t, int64(1), lc.Value)

	ret, ok := code[2].(*compiler.Return)
	require.True(t, ok, "%T", code[2])
	assert.Equal(t, 1, ret.Base)
	assert.Equal(t, 1, ret.Count)
}

func TestCompileGlobalAssignment(t *testing.T) {
	proto := compileOne(t, `x = 1
`)
	code := codeWithoutLines(proto.Code)
	// LoadConstant, SetGlobal, then the implicit final Return.
	require.Len(t, code, 3)
	require.IsType(t, &compiler.LoadConstant{}, code[0])
	sg, ok := code[1].(*compiler.SetGlobal)
	require.True(t, ok, "%T", code[1])
	assert.Equal(t, "x", sg.Name)
}

func TestCompileArithmeticChain(t *testing.T) {
	proto := compileOne(t, `local a = 1
local b = 2
return a + b * 2
`)
	code := codeWithoutLines(proto.Code)
	// a and b each get one LoadConstant; the multiplication needs one BinOp,
	// the addition another, then Return.
	var binOps []*compiler.BinOp
	for _, i := range code {
		if b, ok := i.(*compiler.BinOp); ok {
			binOps = append(binOps, b)
		}
	}
	require.Len(t, binOps, 2)
	assert.Equal(t, token.STAR, binOps[0].Op)
	assert.Equal(t, token.PLUS, binOps[1].Op)
	// the multiplication's result feeds the addition directly.
	assert.Equal(t, binOps[0].Dest, binOps[1].Right)
}

func TestCompileConcatChainFlattens(t *testing.T) {
	proto := compileOne(t, `local a, b, c = 1, 2, 3
return a .. b .. c
`)
	code := codeWithoutLines(proto.Code)
	var concats []*compiler.Concat
	for _, i := range code {
		if c, ok := i.(*compiler.Concat); ok {
			concats = append(concats, c)
		}
	}
	require.Len(t, concats, 1, "a..b..c must flatten into a single Concat")
	assert.Equal(t, concats[0].Last-concats[0].First, 2)
}

func TestCompileAndOrCopyLeftIntoFreshRegister(t *testing.T) {
	proto := compileOne(t, `local x = true
return x and 1
`)
	code := codeWithoutLines(proto.Code)
	var land *compiler.LogicalAnd
	for _, i := range code {
		if l, ok := i.(*compiler.LogicalAnd); ok {
			land = l
		}
	}
	require.NotNil(t, land)
	// x lives in register 0; the and's own dest must not alias it.
	assert.NotEqual(t, 0, land.Dest)
	assert.Equal(t, land.Dest, land.Left)
}

func TestCompileIfElseIfChain(t *testing.T) {
	proto := compileOne(t, `local x = 1
if x == 1 then
  x = 10
elseif x == 2 then
  x = 20
else
  x = 30
end
return x
`)
	code := codeWithoutLines(proto.Code)
	var outer *compiler.Test
	for _, i := range code {
		if tst, ok := i.(*compiler.Test); ok {
			outer = tst
			break
		}
	}
	require.NotNil(t, outer, "expected a Test instruction")

	// the outer Test's Else must contain the nested elseif's Test, not a
	// flat sibling: the elseif condition only ever runs if the if's
	// condition was false, so its LoadConstant and BinOp precede the nested
	// Test inside that Else.
	require.Len(t, outer.Else, 3)
	inner, ok := outer.Else[2].(*compiler.Test)
	require.True(t, ok, "%T", outer.Else[2])

	// the final else body sets x = 30.
	require.NotEmpty(t, inner.Else)
}

func TestCompileNumericForLoopRegisters(t *testing.T) {
	proto := compileOne(t, `local sum = 0
for i = 1, 10 do
  sum = sum + i
end
return sum
`)
	code := codeWithoutLines(proto.Code)
	var nf *compiler.NumericFor
	for _, i := range code {
		if f, ok := i.(*compiler.NumericFor); ok {
			nf = f
		}
	}
	require.NotNil(t, nf)
	// counter/limit/step must be distinct registers, all above sum's (0)
	// and i's (1) registers.
	assert.Greater(t, nf.Counter, 1)
	assert.Greater(t, nf.Limit, nf.Counter)
	assert.Greater(t, nf.Step, nf.Limit)

	// the loop body's own temporaries (for "sum + i") must not alias the
	// loop's control registers, since those must survive every iteration.
	var bodyBinOp *compiler.BinOp
	for _, i := range nf.Body {
		if b, ok := i.(*compiler.BinOp); ok {
			bodyBinOp = b
		}
	}
	require.NotNil(t, bodyBinOp)
	assert.NotEqual(t, nf.Counter, bodyBinOp.Dest)
	assert.NotEqual(t, nf.Limit, bodyBinOp.Dest)
	assert.NotEqual(t, nf.Step, bodyBinOp.Dest)
}

func TestCompileGenericForLoopRegisters(t *testing.T) {
	proto := compileOne(t, `for k, v in pairs({}) do
  print(k, v)
end
`)
	code := codeWithoutLines(proto.Code)
	var gf *compiler.GenericFor
	for _, i := range code {
		if f, ok := i.(*compiler.GenericFor); ok {
			gf = f
		}
	}
	require.NotNil(t, gf)
	require.Len(t, gf.Vars, 2)

	var call *compiler.Call
	for _, i := range gf.Body {
		if c, ok := i.(*compiler.Call); ok {
			call = c
		}
	}
	require.NotNil(t, call)
	assert.NotEqual(t, gf.IterFunc, call.Base)
	assert.NotEqual(t, gf.State, call.Base)
	assert.NotEqual(t, gf.Control, call.Base)
}

func TestCompileMethodCallUsesSelf(t *testing.T) {
	proto := compileOne(t, `local t = {}
t:method(1, 2)
`)
	code := codeWithoutLines(proto.Code)
	var self *compiler.Self
	for _, i := range code {
		if s, ok := i.(*compiler.Self); ok {
			self = s
		}
	}
	require.NotNil(t, self)
	assert.Equal(t, "method", self.Name)

	var call *compiler.Call
	for _, i := range code {
		if c, ok := i.(*compiler.Call); ok {
			call = c
		}
	}
	require.NotNil(t, call)
	assert.Equal(t, self.Base, call.Base)
	// the implicit self plus the two literal arguments.
	assert.Equal(t, 3, call.NArgs)
}

func TestCompileCallWithOpenTrailingArg(t *testing.T) {
	proto := compileOne(t, `f(1, g())
`)
	code := codeWithoutLines(proto.Code)
	var call *compiler.Call
	for _, i := range code {
		if c, ok := i.(*compiler.Call); ok {
			call = c
		}
	}
	require.NotNil(t, call)
	assert.Equal(t, -1, call.NArgs, "a trailing call argument leaves the arg count open")
}

func TestCompileReturnForwardsOpenCall(t *testing.T) {
	proto := compileOne(t, `local function f() end
return f()
`)
	code := codeWithoutLines(proto.Code)
	ret, ok := code[len(code)-1].(*compiler.Return)
	require.True(t, ok, "%T", code[len(code)-1])
	assert.Equal(t, -1, ret.Count, "returning a call forwards all of its results")
}

func TestCompileLocalFunctionClosureForRecursion(t *testing.T) {
	proto := compileOne(t, `local function fact(n)
  if n == 0 then return 1 end
  return n * fact(n - 1)
end
return fact
`)
	require.Len(t, proto.Protos, 1)

	var closure *compiler.Closure
	for _, i := range codeWithoutLines(proto.Code) {
		if c, ok := i.(*compiler.Closure); ok {
			closure = c
		}
	}
	require.NotNil(t, closure)
	assert.Same(t, proto.Protos[0], closure.Proto)

	// the closure must be bound into fact's register before its own body
	// is compiled, so the recursive call inside it resolves as an
	// upvalue onto the very register the Closure instruction targets.
	inner := proto.Protos[0]
	var getUp *compiler.GetUpvalue
	for _, i := range codeWithoutLines(inner.Code) {
		if u, ok := i.(*compiler.GetUpvalue); ok {
			getUp = u
		}
	}
	require.NotNil(t, getUp, "fact must read itself through an upvalue for the recursive call")
}

func TestCompileTableConstructorMixedFields(t *testing.T) {
	proto := compileOne(t, `return {1, 2, x = 3, [4] = 5}
`)
	code := codeWithoutLines(proto.Code)
	require.IsType(t, &compiler.NewTable{}, code[0])

	var lists, fields, sets int
	for _, i := range code {
		switch i.(type) {
		case *compiler.SetList:
			lists++
		case *compiler.SetField:
			fields++
		case *compiler.SetTable:
			sets++
		}
	}
	assert.Equal(t, 2, lists)
	assert.Equal(t, 1, fields)
	assert.Equal(t, 1, sets)
}

func TestCompileFuncDeclNestedPath(t *testing.T) {
	proto := compileOne(t, `function t.a.b:c() end
`)
	code := codeWithoutLines(proto.Code)
	require.IsType(t, &compiler.Closure{}, code[0])

	var gets []*compiler.GetField
	var set *compiler.SetField
	for _, i := range code {
		switch v := i.(type) {
		case *compiler.GetField:
			gets = append(gets, v)
		case *compiler.SetField:
			set = v
		}
	}
	// navigates t -> a -> b, then sets field "c" on b.
	require.Len(t, gets, 2)
	assert.Equal(t, "a", gets[0].Name)
	assert.Equal(t, "b", gets[1].Name)
	require.NotNil(t, set)
	assert.Equal(t, "c", set.Name)
}

func TestCompileBreakInsideLoop(t *testing.T) {
	proto := compileOne(t, `while true do
  break
end
`)
	code := codeWithoutLines(proto.Code)
	var loop *compiler.WhileLoop
	for _, i := range code {
		if w, ok := i.(*compiler.WhileLoop); ok {
			loop = w
		}
	}
	require.NotNil(t, loop)
	require.Len(t, loop.Body, 1)
	assert.IsType(t, &compiler.Break{}, loop.Body[0])
}

func TestCompileGotoIsNoop(t *testing.T) {
	proto := compileOne(t, `::top::
goto top
`)
	code := codeWithoutLines(proto.Code)
	// nothing but the implicit final Return should remain.
	require.Len(t, code, 1)
	assert.IsType(t, &compiler.Return{}, code[0])
}

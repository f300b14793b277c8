package machine_test

import (
	"context"
	"testing"

	"github.com/mna/luar/lang/ast"
	"github.com/mna/luar/lang/compiler"
	"github.com/mna/luar/lang/machine"
	"github.com/mna/luar/lang/parser"
	"github.com/mna/luar/lang/resolver"
	"github.com/mna/luar/lang/token"
	"github.com/stretchr/testify/require"
)

// run compiles and executes src as a chunk, with libs opened, and returns
// its top-level return values.
func run(t *testing.T, src string) []machine.Value {
	t.Helper()
	fs := token.NewFileSet()
	ch, err := parser.ParseChunk(context.Background(), 0, fs, "test.lua", []byte(src))
	require.NoError(t, err)
	require.NoError(t, resolver.ResolveFiles(context.Background(), fs, []*ast.Chunk{ch}, 0))
	protos := compiler.CompileFiles(context.Background(), fs, []*ast.Chunk{ch})
	require.Len(t, protos, 1)

	th := machine.NewThread()
	machine.OpenLibs(th)
	results, err := th.RunChunk(context.Background(), protos[0], nil)
	require.NoError(t, err)
	return results
}

func runErr(t *testing.T, src string) error {
	t.Helper()
	fs := token.NewFileSet()
	ch, err := parser.ParseChunk(context.Background(), 0, fs, "test.lua", []byte(src))
	require.NoError(t, err)
	require.NoError(t, resolver.ResolveFiles(context.Background(), fs, []*ast.Chunk{ch}, 0))
	protos := compiler.CompileFiles(context.Background(), fs, []*ast.Chunk{ch})
	require.Len(t, protos, 1)

	th := machine.NewThread()
	machine.OpenLibs(th)
	_, err = th.RunChunk(context.Background(), protos[0], nil)
	return err
}

func TestArithmetic(t *testing.T) {
	got := run(t, `return 1 + 2 * 3, 7 // 2, 7 % 2, 2 ^ 10`)
	require.Equal(t, []machine.Value{machine.Int(7), machine.Int(3), machine.Int(1), machine.Float(1024)}, got)
}

func TestStringCoercion(t *testing.T) {
	got := run(t, `return "10" + 5, "3.5" * 2`)
	require.Equal(t, []machine.Value{machine.Int(15), machine.Float(7)}, got)
}

func TestConcat(t *testing.T) {
	got := run(t, `return "a" .. "b" .. 1 .. 2.5`)
	require.Equal(t, []machine.Value{machine.String("ab12.5")}, got)
}

func TestLocalsAndClosures(t *testing.T) {
	got := run(t, `
local function counter()
  local n = 0
  return function()
    n = n + 1
    return n
  end
end
local c = counter()
c()
c()
return c()
`)
	require.Equal(t, []machine.Value{machine.Int(3)}, got)
}

func TestTableConstructorAndIndex(t *testing.T) {
	got := run(t, `
local t = {10, 20, 30, x = "y"}
return t[1], t[3], t.x, #t
`)
	require.Equal(t, []machine.Value{machine.Int(10), machine.Int(30), machine.String("y"), machine.Int(3)}, got)
}

func TestMetatableIndex(t *testing.T) {
	got := run(t, `
local base = {greet = function(self) return "hi " .. self.name end}
base.__index = base
local obj = setmetatable({name = "lua"}, base)
return obj:greet()
`)
	require.Equal(t, []machine.Value{machine.String("hi lua")}, got)
}

func TestNumericFor(t *testing.T) {
	got := run(t, `
local sum = 0
for i = 1, 10 do
  sum = sum + i
end
return sum
`)
	require.Equal(t, []machine.Value{machine.Int(55)}, got)
}

func TestGenericForIpairs(t *testing.T) {
	got := run(t, `
local t = {"a", "b", "c"}
local out = ""
for i, v in ipairs(t) do
  out = out .. i .. v
end
return out
`)
	require.Equal(t, []machine.Value{machine.String("1a2b3c")}, got)
}

func TestBreakAndReturnThroughNestedLoops(t *testing.T) {
	got := run(t, `
for i = 1, 5 do
  for j = 1, 5 do
    if j == 2 then
      break
    end
    if i == 3 then
      return i, j
    end
  end
end
return -1
`)
	require.Equal(t, []machine.Value{machine.Int(3), machine.Int(1)}, got)
}

func TestVarargsAndSelect(t *testing.T) {
	got := run(t, `
local function f(...)
  return select('#', ...), select(2, ...)
end
return f(1, 2, 3)
`)
	require.Equal(t, []machine.Value{machine.Int(3), machine.Int(2), machine.Int(3)}, got)
}

func TestPcallCatchesRuntimeError(t *testing.T) {
	got := run(t, `
local ok, err = pcall(function() error("boom") end)
return ok, err
`)
	require.Len(t, got, 2)
	require.Equal(t, machine.Bool(false), got[0])
	s, ok := got[1].(machine.String)
	require.True(t, ok)
	require.Contains(t, string(s), "boom")
}

func TestMultipleAssignmentAndTailCall(t *testing.T) {
	got := run(t, `
local function pair() return 1, 2 end
local function tail() return pair() end
local a, b, c = tail()
return a, b, c
`)
	require.Equal(t, []machine.Value{machine.Int(1), machine.Int(2), machine.Nil}, got)
}

func TestDivisionByZeroRaisesRuntimeError(t *testing.T) {
	err := runErr(t, `return 1 // 0`)
	require.Error(t, err)
	require.IsType(t, &machine.RuntimeError{}, err)
}

func TestCallingNilRaisesTypeError(t *testing.T) {
	err := runErr(t, `
local f = nil
f()
`)
	require.Error(t, err)
	require.IsType(t, &machine.TypeError{}, err)
}

package parser_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/mna/luar/lang/ast"
	"github.com/mna/luar/lang/parser"
	"github.com/mna/luar/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, src string, mode parser.Mode) (*ast.Chunk, *token.FileSet, error) {
	t.Helper()
	fs := token.NewFileSet()
	ch, err := parser.ParseChunk(context.Background(), mode, fs, "test.lua", []byte(src))
	return ch, fs, err
}

func TestParseEmptyChunk(t *testing.T) {
	ch, _, err := parseOne(t, "", 0)
	require.NoError(t, err)
	assert.Empty(t, ch.Block.Stmts)
}

func TestParseLocalAndAssign(t *testing.T) {
	ch, _, err := parseOne(t, `local x, y = 1, 2
x, y = y, x
`, 0)
	require.NoError(t, err)
	require.Len(t, ch.Block.Stmts, 2)

	local, ok := ch.Block.Stmts[0].(*ast.LocalStmt)
	require.True(t, ok)
	assert.Len(t, local.Names, 2)
	assert.Len(t, local.Values, 2)

	assign, ok := ch.Block.Stmts[1].(*ast.AssignStmt)
	require.True(t, ok)
	assert.Len(t, assign.Left, 2)
	assert.Len(t, assign.Right, 2)
}

func TestParseIfElseIf(t *testing.T) {
	ch, _, err := parseOne(t, `if x then
  return 1
elseif y then
  return 2
else
  return 3
end
`, 0)
	require.NoError(t, err)
	require.Len(t, ch.Block.Stmts, 1)

	ifs, ok := ch.Block.Stmts[0].(*ast.IfStmt)
	require.True(t, ok)
	assert.Len(t, ifs.ElseIfs, 1)
	assert.NotNil(t, ifs.ElseBody)
}

func TestParseForNumAndForIn(t *testing.T) {
	ch, _, err := parseOne(t, `for i = 1, 10, 2 do end
for k, v in pairs(t) do end
`, 0)
	require.NoError(t, err)
	require.Len(t, ch.Block.Stmts, 2)

	fornum, ok := ch.Block.Stmts[0].(*ast.ForNumStmt)
	require.True(t, ok)
	assert.NotNil(t, fornum.Step)

	forin, ok := ch.Block.Stmts[1].(*ast.ForInStmt)
	require.True(t, ok)
	assert.Len(t, forin.Names, 2)
}

func TestParseFuncDeclWithMethod(t *testing.T) {
	ch, _, err := parseOne(t, `function obj.field:method(a, b, ...)
  return a
end
`, 0)
	require.NoError(t, err)
	require.Len(t, ch.Block.Stmts, 1)

	fn, ok := ch.Block.Stmts[0].(*ast.FuncDeclStmt)
	require.True(t, ok)
	assert.Len(t, fn.Name.Path, 2)
	assert.NotNil(t, fn.Name.Method)
	// an implicit "self" is prepended for a method declaration
	require.Len(t, fn.Sig.Params, 3)
	assert.Equal(t, "self", fn.Sig.Params[0].Lit)
	assert.True(t, fn.Sig.DotDotDot.IsValid())
}

func TestParseLocalFunction(t *testing.T) {
	ch, _, err := parseOne(t, `local function fact(n)
  if n == 0 then return 1 end
  return n * fact(n - 1)
end
`, 0)
	require.NoError(t, err)
	require.Len(t, ch.Block.Stmts, 1)

	_, ok := ch.Block.Stmts[0].(*ast.LocalFuncStmt)
	assert.True(t, ok)
}

func TestParseOperatorPrecedence(t *testing.T) {
	ch, _, err := parseOne(t, `return 1 + 2 * 3 ^ 2 ^ 2 .. "x" .. "y"
`, 0)
	require.NoError(t, err)
	ret, ok := ch.Block.Stmts[0].(*ast.ReturnStmt)
	require.True(t, ok)
	require.Len(t, ret.Values, 1)

	// top-level operator must be the lowest-priority one in the expression:
	// "..", which is right-associative.
	concat, ok := ret.Values[0].(*ast.BinOpExpr)
	require.True(t, ok)
	assert.Equal(t, token.DOTDOT, concat.Type)
}

func TestParseTableConstructor(t *testing.T) {
	ch, _, err := parseOne(t, `return { 1, 2, [3+1] = "four", five = 5, }
`, 0)
	require.NoError(t, err)
	ret := ch.Block.Stmts[0].(*ast.ReturnStmt)
	tbl, ok := ret.Values[0].(*ast.TableExpr)
	require.True(t, ok)
	require.Len(t, tbl.Fields, 4)
	assert.Nil(t, tbl.Fields[0].Key)
	assert.Nil(t, tbl.Fields[1].Key)
	assert.NotNil(t, tbl.Fields[2].Key)
	assert.NotNil(t, tbl.Fields[3].Key)
}

func TestParseMethodCallChain(t *testing.T) {
	ch, _, err := parseOne(t, `obj:method(1):other "lit" { a = 1 }
`, 0)
	require.NoError(t, err)
	stmt, ok := ch.Block.Stmts[0].(*ast.CallStmt)
	require.True(t, ok)
	_, ok = stmt.Call.(*ast.CallExpr)
	assert.True(t, ok)
}

func TestParseSyntaxErrorRecovers(t *testing.T) {
	ch, _, err := parseOne(t, `local x =
local y = 1
`, 0)
	require.Error(t, err)
	// despite the error in the first statement, the second one still parses
	require.Len(t, ch.Block.Stmts, 2)
	_, ok := ch.Block.Stmts[0].(*ast.BadStmt)
	assert.True(t, ok)
	_, ok = ch.Block.Stmts[1].(*ast.LocalStmt)
	assert.True(t, ok)
}

func TestParseComments(t *testing.T) {
	ch, _, err := parseOne(t, `-- leading comment
local x = 1 -- trailing comment
`, parser.Comments)
	require.NoError(t, err)
	require.Len(t, ch.Comments, 2)
}

func ExampleParseChunk() {
	fs := token.NewFileSet()
	ch, err := parser.ParseChunk(context.Background(), 0, fs, "ex.lua", []byte("return 1 + 1\n"))
	if err != nil {
		panic(err)
	}
	fmt.Printf("%d statement(s)\n", len(ch.Block.Stmts))
	// Output: 1 statement(s)
}

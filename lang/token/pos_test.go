package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileLineCol(t *testing.T) {
	fset := NewFileSet()
	f := fset.AddFile("test.lua", -1, 20)

	// "aaa\nbbb\ncccc\n" style: lines start at offsets 0, 4, 8, 13
	f.AddLine(4)
	f.AddLine(8)
	f.AddLine(13)

	cases := []struct {
		offset    int
		line, col int
	}{
		{0, 1, 1},
		{3, 1, 4},
		{4, 2, 1},
		{7, 2, 4},
		{8, 3, 1},
		{12, 3, 5},
		{13, 4, 1},
	}
	for _, c := range cases {
		p := f.Pos(c.offset)
		pos := f.Position(p)
		require.Equal(t, c.line, pos.Line, "offset %d line", c.offset)
		require.Equal(t, c.col, pos.Column, "offset %d col", c.offset)
	}
}

func TestFileSetMultipleFiles(t *testing.T) {
	fset := NewFileSet()
	f0 := fset.AddFile("a.lua", -1, 10)
	f1 := fset.AddFile("b.lua", -1, 10)

	require.Equal(t, f0, fset.File(f0.Pos(0)))
	require.Equal(t, f1, fset.File(f1.Pos(0)))
	require.NotEqual(t, f0.Pos(0), f1.Pos(0))
}

func TestPosInvalid(t *testing.T) {
	require.False(t, NoPos.IsValid())
	var p Pos = 5
	require.True(t, p.IsValid())
}

func TestPositionString(t *testing.T) {
	p := Position{Filename: "x.lua", Line: 3, Column: 7}
	require.Equal(t, "x.lua:3:7", p.String())
	require.Equal(t, "<input>", Position{}.String())
}

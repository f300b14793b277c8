package scanner_test

import (
	"testing"

	"github.com/mna/luar/lang/scanner"
	"github.com/mna/luar/lang/token"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) ([]token.Token, []token.Value, []string) {
	t.Helper()

	var (
		s   scanner.Scanner
		tv  token.Value
		msg []string
	)
	fs := token.NewFileSet()
	f := fs.AddFile("test.lua", -1, len(src))
	s.Init(f, []byte(src), func(file *token.File, pos token.Position, kind scanner.ErrorKind, m string) {
		msg = append(msg, m)
	})

	var toks []token.Token
	var vals []token.Value
	for {
		tok := s.Scan(&tv)
		toks = append(toks, tok)
		vals = append(vals, tv)
		if tok == token.EOF {
			break
		}
	}
	return toks, vals, msg
}

func TestScanKeywordsAndIdents(t *testing.T) {
	toks, _, errs := scanAll(t, "local x = function end")
	require.Empty(t, errs)
	require.Equal(t, []token.Token{
		token.LOCAL, token.IDENT, token.EQ, token.FUNCTION, token.END, token.EOF,
	}, toks)
}

func TestScanNumbers(t *testing.T) {
	toks, vals, errs := scanAll(t, "42 3.14 0xFF .5 1e10 1.5e-3")
	require.Empty(t, errs)
	require.Equal(t, []token.Token{
		token.INT, token.FLOAT, token.INT, token.FLOAT, token.FLOAT, token.FLOAT, token.EOF,
	}, toks)
	require.Equal(t, int64(42), vals[0].Int)
	require.InDelta(t, 3.14, vals[1].Float, 0.0001)
	require.Equal(t, int64(255), vals[2].Int)
	require.InDelta(t, 0.5, vals[3].Float, 0.0001)
	require.InDelta(t, 1e10, vals[4].Float, 1)
	require.InDelta(t, 1.5e-3, vals[5].Float, 0.00001)
}

func TestScanTrailingDotIsDelimiter(t *testing.T) {
	toks, _, errs := scanAll(t, "42.foo")
	require.Empty(t, errs)
	require.Equal(t, []token.Token{token.INT, token.DOT, token.IDENT, token.EOF}, toks)
}

func TestScanDotDot(t *testing.T) {
	toks, _, errs := scanAll(t, "1 .. 2")
	require.Empty(t, errs)
	require.Equal(t, []token.Token{token.INT, token.DOTDOT, token.INT, token.EOF}, toks)
}

func TestScanExponentNoDigitsIsError(t *testing.T) {
	_, _, errs := scanAll(t, "1e")
	require.NotEmpty(t, errs)
}

func TestScanShortString(t *testing.T) {
	toks, vals, errs := scanAll(t, `"hello\tworld\65\x42"`)
	require.Empty(t, errs)
	require.Equal(t, []token.Token{token.STRING, token.EOF}, toks)
	require.Equal(t, "hello\tworldAB", vals[0].Str)
}

func TestScanShortStringUnterminated(t *testing.T) {
	_, _, errs := scanAll(t, `"hello`)
	require.NotEmpty(t, errs)
}

func TestScanLongString(t *testing.T) {
	toks, vals, errs := scanAll(t, "[==[\nhello\n]==]")
	require.Empty(t, errs)
	require.Equal(t, []token.Token{token.STRING, token.EOF}, toks)
	require.Equal(t, "hello\n", vals[0].Str)
}

func TestScanComments(t *testing.T) {
	toks, _, errs := scanAll(t, "-- a line comment\nlocal --[[ long\ncomment ]] x")
	require.Empty(t, errs)
	require.Equal(t, []token.Token{token.LOCAL, token.IDENT, token.EOF}, toks)
}

func TestScanOperators(t *testing.T) {
	toks, _, errs := scanAll(t, "== ~= <= >= < > ~ << >> // : :: ...")
	require.Empty(t, errs)
	require.Equal(t, []token.Token{
		token.EQEQ, token.NEQ, token.LE, token.GE, token.LT, token.GT, token.TILDE,
		token.LTLT, token.GTGT, token.SLASHSLASH, token.COLON, token.COLONCOLON,
		token.DOTDOTDOT, token.EOF,
	}, toks)
}

func TestScanIllegalCharacter(t *testing.T) {
	_, _, errs := scanAll(t, "local x = $")
	require.NotEmpty(t, errs)
}

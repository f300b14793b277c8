package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenString(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		require.NotEmpty(t, tok.String())
	}
}

func TestLookupKw(t *testing.T) {
	for tok := AND; tok <= WHILE; tok++ {
		require.Equal(t, tok, LookupKw(tok.String()))
	}
	require.Equal(t, IDENT, LookupKw("IF"))
	require.Equal(t, IDENT, LookupKw("x"))
	require.Equal(t, IDENT, LookupKw("forever"))
}

func TestGoString(t *testing.T) {
	require.Equal(t, "'+'", PLUS.GoString())
	require.Equal(t, "'while'", WHILE.GoString())
	require.Equal(t, "identifier", IDENT.GoString())
}

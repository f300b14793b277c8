package luar_test

import (
	"context"
	"testing"

	"github.com/mna/luar"
	"github.com/stretchr/testify/require"
)

func TestEval(t *testing.T) {
	s := luar.NewState()
	s.OpenLibs()
	results, err := luar.Eval(context.Background(), s, "test.lua", []byte(`return 1 + 2, "ok"`))
	require.NoError(t, err)
	require.Equal(t, []interface{}{int64(3), "ok"}, results)
}

func TestLoadChunkEvalChunkReuse(t *testing.T) {
	s := luar.NewState()
	s.OpenLibs()
	chunk, err := luar.LoadChunk(context.Background(), "test.lua", []byte(`
local n = ...
return n * 2
`))
	require.NoError(t, err)

	r1, err := luar.EvalChunk(context.Background(), s, chunk, int64(3))
	require.NoError(t, err)
	require.Equal(t, []interface{}{int64(6)}, r1)

	r2, err := luar.EvalChunk(context.Background(), s, chunk, int64(10))
	require.NoError(t, err)
	require.Equal(t, []interface{}{int64(20)}, r2)
}

func TestSetGetDottedPath(t *testing.T) {
	s := luar.NewState()
	require.NoError(t, s.Set("config.retries", int64(3)))
	require.NoError(t, s.Set("config.name", "svc"))

	v, err := s.Get("config.retries")
	require.NoError(t, err)
	require.Equal(t, int64(3), v)

	v, err = s.Get("config.name")
	require.NoError(t, err)
	require.Equal(t, "svc", v)

	v, err = s.Get("config.missing.deeper")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestRegisterFunctionAndCallFromLua(t *testing.T) {
	s := luar.NewState()
	s.OpenLibs()
	s.RegisterFunction("host.add", func(args []interface{}, state *luar.State) ([]interface{}, error) {
		a := args[0].(int64)
		b := args[1].(int64)
		return []interface{}{a + b}, nil
	})

	results, err := luar.Eval(context.Background(), s, "test.lua", []byte(`return host.add(4, 5)`))
	require.NoError(t, err)
	require.Equal(t, []interface{}{int64(9)}, results)
}

func TestCallFunctionFromHost(t *testing.T) {
	s := luar.NewState()
	s.OpenLibs()
	_, err := luar.Eval(context.Background(), s, "test.lua", []byte(`
function double(x)
  return x * 2
end
`))
	require.NoError(t, err)

	results, err := s.CallFunction(context.Background(), "double", int64(21))
	require.NoError(t, err)
	require.Equal(t, []interface{}{int64(42)}, results)
}

func TestPrivateChannelNotVisibleToLua(t *testing.T) {
	s := luar.NewState()
	s.OpenLibs()
	s.PutPrivate("secret", "shh")

	v, ok := s.GetPrivate("secret")
	require.True(t, ok)
	require.Equal(t, "shh", v)

	results, err := luar.Eval(context.Background(), s, "test.lua", []byte(`return secret`))
	require.NoError(t, err)
	require.Equal(t, []interface{}{nil}, results)

	s.DeletePrivate("secret")
	_, ok = s.GetPrivate("secret")
	require.False(t, ok)
}

func TestTableEncoding(t *testing.T) {
	s := luar.NewState()
	s.OpenLibs()
	require.NoError(t, s.Set("data.items", []interface{}{int64(1), int64(2), int64(3)}))
	require.NoError(t, s.Set("data.meta", map[string]interface{}{"owner": "alice"}))

	results, err := luar.Eval(context.Background(), s, "test.lua", []byte(`
return #data.items, data.items[2], data.meta.owner
`))
	require.NoError(t, err)
	require.Equal(t, []interface{}{int64(3), int64(2), "alice"}, results)
}

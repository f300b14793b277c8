package machine_test

import (
	"testing"

	"github.com/mna/luar/lang/machine"
	"github.com/stretchr/testify/require"
)

func TestStringLibrary(t *testing.T) {
	got := run(t, `
return
  string.upper("abc"),
  string.sub("hello world", 1, 5),
  string.sub("hello world", -5),
  ("abc"):rep(2, "-"),
  string.format("%d-%s-%5.2f", 3, "x", 1.5)
`)
	require.Equal(t, []machine.Value{
		machine.String("ABC"),
		machine.String("hello"),
		machine.String("world"),
		machine.String("abc-abc"),
		machine.String("3-x- 1.50"),
	}, got)
}

func TestTableLibrary(t *testing.T) {
	got := run(t, `
local t = {5, 3, 1, 4, 2}
table.sort(t)
table.insert(t, 6)
table.insert(t, 1, 0)
table.remove(t, 1)
return table.concat(t, ","), #t
`)
	require.Equal(t, []machine.Value{machine.String("1,2,3,4,5,6"), machine.Int(6)}, got)
}

func TestTablePackUnpack(t *testing.T) {
	got := run(t, `
local packed = table.pack(1, 2, 3)
return packed.n, table.unpack(packed, 1, packed.n)
`)
	require.Equal(t, []machine.Value{machine.Int(3), machine.Int(1), machine.Int(2), machine.Int(3)}, got)
}

func TestMathLibrary(t *testing.T) {
	got := run(t, `
return math.floor(3.7), math.ceil(3.2), math.max(1, 5, 3), math.min(1, 5, 3), math.type(1), math.type(1.0)
`)
	require.Equal(t, []machine.Value{
		machine.Int(3), machine.Int(4), machine.Int(5), machine.Int(1),
		machine.String("integer"), machine.String("float"),
	}, got)
}

func TestOsLibrary(t *testing.T) {
	got := run(t, `return type(os.time()), type(os.clock())`)
	require.Equal(t, []machine.Value{machine.String("number"), machine.String("number")}, got)
}

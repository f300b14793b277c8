package luar

import (
	"fmt"

	"github.com/mna/luar/lang/machine"
)

// encode converts a host value into its VM representation, per the
// encoding contract: nil/null, bool, int64/float64, []byte/string, a map
// with string keys, a slice (encoded as a table with integer keys 1..N),
// an already-encoded machine.Value, or a host function wrapped as
// HostFunc.
func encode(v interface{}) (machine.Value, error) {
	switch v := v.(type) {
	case nil:
		return machine.Nil, nil
	case machine.Value:
		return v, nil
	case bool:
		return machine.Bool(v), nil
	case int:
		return machine.Int(v), nil
	case int64:
		return machine.Int(v), nil
	case float64:
		return machine.Float(v), nil
	case string:
		return machine.String(v), nil
	case []byte:
		return machine.String(v), nil
	case HostFunc:
		return wrapHostFunc(v), nil
	case func([]interface{}, *State) ([]interface{}, error):
		return wrapHostFunc(v), nil
	case map[string]interface{}:
		t := machine.NewTable(0, len(v))
		for k, val := range v {
			ev, err := encode(val)
			if err != nil {
				return nil, err
			}
			if err := t.Set(machine.String(k), ev); err != nil {
				return nil, err
			}
		}
		return t, nil
	case []interface{}:
		t := machine.NewTable(len(v), 0)
		for i, val := range v {
			ev, err := encode(val)
			if err != nil {
				return nil, err
			}
			if err := t.Set(machine.Int(i+1), ev); err != nil {
				return nil, err
			}
		}
		return t, nil
	default:
		return nil, fmt.Errorf("luar: cannot encode host value of type %T", v)
	}
}

// decode converts a VM value into a plain host value: nil, bool, int64,
// float64, string, map[string]interface{}/[]interface{} for tables
// (dispatched on whether the table looks like a sequence), or the
// machine.Value itself for kinds with no plain-host equivalent (functions,
// userdata).
func decode(v machine.Value) interface{} {
	switch v := v.(type) {
	case machine.NilType:
		return nil
	case machine.Bool:
		return bool(v)
	case machine.Int:
		return int64(v)
	case machine.Float:
		return float64(v)
	case machine.String:
		return string(v)
	case *machine.Table:
		return decodeTable(v)
	default:
		return v
	}
}

func decodeTable(t *machine.Table) interface{} {
	n := t.Len()
	if n > 0 {
		out := make([]interface{}, n)
		isSeq := true
		for i := 1; i <= n; i++ {
			val := t.Get(machine.Int(i))
			if _, isNil := val.(machine.NilType); isNil {
				isSeq = false
				break
			}
			out[i-1] = decode(val)
		}
		if isSeq {
			return out
		}
	}

	out := make(map[string]interface{})
	var k machine.Value = machine.Nil
	for {
		nk, nv, ok, err := t.Next(k)
		if err != nil || !ok {
			break
		}
		if ks, ok := nk.(machine.String); ok {
			out[string(ks)] = decode(nv)
		}
		k = nk
	}
	return out
}

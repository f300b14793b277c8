package luar

import (
	"github.com/mna/luar/lang/machine"
)

// HostFunc is a function implemented in the host language and exposed to
// Lua code via RegisterFunction. It receives its arguments already decoded
// and returns results to be auto-encoded, or an error to raise as a
// RuntimeError in the calling Lua code.
type HostFunc func(args []interface{}, state *State) ([]interface{}, error)

// wrapHostFuncOn adapts a HostFunc into a machine.GoFunc bound to s, decoding
// arguments and encoding results at the boundary. The State passed to fn is
// s, so a host function retains access to the private channel of the state
// it was registered on even when called from inside Lua.
func wrapHostFuncOn(s *State, fn func([]interface{}, *State) ([]interface{}, error)) *machine.GoFunc {
	return &machine.GoFunc{
		Name: "hostfunc",
		Fn: func(th *machine.Thread, args []machine.Value) ([]machine.Value, error) {
			dargs := make([]interface{}, len(args))
			for i, a := range args {
				dargs[i] = decode(a)
			}
			results, err := fn(dargs, s)
			if err != nil {
				return nil, &machine.RuntimeError{Msg: err.Error(), Value: machine.String(err.Error())}
			}
			vresults := make([]machine.Value, len(results))
			for i, r := range results {
				ev, err := encode(r)
				if err != nil {
					return nil, err
				}
				vresults[i] = ev
			}
			return vresults, nil
		},
	}
}

// wrapHostFunc adapts a HostFunc with no bound State (used when encoding a
// bare function value nested inside a map/slice passed to Set or as a
// table field) — it receives a State wrapping only the thread it is
// eventually called on, with no access to any private channel.
func wrapHostFunc(fn func([]interface{}, *State) ([]interface{}, error)) *machine.GoFunc {
	return &machine.GoFunc{
		Name: "hostfunc",
		Fn: func(th *machine.Thread, args []machine.Value) ([]machine.Value, error) {
			return wrapHostFuncOn(&State{th: th}, fn).Fn(th, args)
		},
	}
}

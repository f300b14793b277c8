package luar

import (
	"context"
	"fmt"
	"strings"

	"github.com/mna/luar/lang/machine"
)

// Set deep-sets value at the dotted path through s's globals, creating
// intermediate tables as needed. value is auto-encoded per the host/VM
// encoding contract.
func (s *State) Set(path string, value interface{}) error {
	segs := strings.Split(path, ".")
	ev, err := encode(value)
	if err != nil {
		return err
	}
	t := navigateCreate(s.th.Globals, segs[:len(segs)-1])
	return t.Set(machine.String(segs[len(segs)-1]), ev)
}

// Get reads the dotted path from s's globals, decoding the result. A
// missing intermediate table or key decodes to nil, the same as reading a
// missing field from Lua.
func (s *State) Get(path string) (interface{}, error) {
	segs := strings.Split(path, ".")
	v := navigateRead(s.th.Globals, segs)
	return decode(v), nil
}

// CallFunction looks up a function by dotted path in s's globals and
// invokes it with args, auto-encoding arguments and decoding results.
func (s *State) CallFunction(ctx context.Context, path string, args ...interface{}) ([]interface{}, error) {
	segs := strings.Split(path, ".")
	fn := navigateRead(s.th.Globals, segs)
	callable, ok := fn.(machine.Callable)
	if !ok {
		return nil, fmt.Errorf("luar: %s is not a function", path)
	}

	vargs := make([]machine.Value, len(args))
	for i, a := range args {
		ev, err := encode(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		vargs[i] = ev
	}

	results, err := callable.Call(s.th, vargs)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, len(results))
	for i, r := range results {
		out[i] = decode(r)
	}
	return out, nil
}

// RegisterFunction installs fn at the dotted path in s's globals, creating
// intermediate tables as needed. fn receives its arguments already decoded
// and returns results to be auto-encoded.
func (s *State) RegisterFunction(path string, fn HostFunc) {
	segs := strings.Split(path, ".")
	t := navigateCreate(s.th.Globals, segs[:len(segs)-1])
	t.Set(machine.String(segs[len(segs)-1]), wrapHostFuncOn(s, fn))
}

// PutPrivate stores value under key in s's private side channel, which Lua
// code running on s cannot observe or mutate.
func (s *State) PutPrivate(key string, value interface{}) {
	if s.private == nil {
		s.private = make(map[string]interface{})
	}
	s.private[key] = value
}

// GetPrivate reads key from s's private side channel.
func (s *State) GetPrivate(key string) (interface{}, bool) {
	v, ok := s.private[key]
	return v, ok
}

// DeletePrivate removes key from s's private side channel.
func (s *State) DeletePrivate(key string) {
	delete(s.private, key)
}

// navigateRead walks segs through t's nested tables, returning machine.Nil
// if any intermediate segment isn't a table or the final key is absent.
func navigateRead(t *machine.Table, segs []string) machine.Value {
	var v machine.Value = t
	for _, seg := range segs {
		tbl, ok := v.(*machine.Table)
		if !ok {
			return machine.Nil
		}
		v = tbl.Get(machine.String(seg))
	}
	return v
}

// navigateCreate walks segs through root, creating a new table at each
// missing or non-table segment, and returns the table segs ultimately
// names (root itself if segs is empty).
func navigateCreate(root *machine.Table, segs []string) *machine.Table {
	t := root
	for _, seg := range segs {
		key := machine.String(seg)
		v := t.Get(key)
		next, ok := v.(*machine.Table)
		if !ok {
			next = machine.NewTable(0, 0)
			t.Set(key, next)
		}
		t = next
	}
	return t
}

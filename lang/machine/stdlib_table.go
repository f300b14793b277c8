package machine

import "sort"

// OpenTable installs the table library under the "table" global, per
// spec.md §4.6: insert, remove, concat, sort, pack, unpack, move.
func OpenTable(th *Thread) {
	lib := NewTable(0, 8)
	reg := func(name string, fn func(*Thread, []Value) ([]Value, error)) {
		lib.Set(String(name), &GoFunc{Name: "table." + name, Fn: fn})
	}

	reg("insert", tblInsert)
	reg("remove", tblRemove)
	reg("concat", tblConcat)
	reg("sort", tblSort)
	reg("pack", tblPack)
	reg("unpack", tblUnpack)
	reg("move", tblMove)

	th.Globals.Set(String("table"), lib)
}

func tblArg(fn string, args []Value, i int) (*Table, error) {
	t, ok := arg(args, i).(*Table)
	if !ok {
		return nil, argErr(fn, i+1, "table", arg(args, i))
	}
	return t, nil
}

func tblInsert(th *Thread, args []Value) ([]Value, error) {
	t, err := tblArg("insert", args, 0)
	if err != nil {
		return nil, err
	}
	n := t.Len()
	if len(args) == 2 {
		return nil, t.Set(Int(n+1), args[1])
	}
	pos, ok := toInt(args[1])
	if !ok || pos < 1 || pos > int64(n)+1 {
		return nil, &ArgumentError{Func: "insert", Index: 2, Detail: "position out of bounds"}
	}
	for i := int64(n); i >= pos; i-- {
		if err := t.Set(Int(i+1), t.Get(Int(i))); err != nil {
			return nil, err
		}
	}
	return nil, t.Set(Int(pos), args[2])
}

func tblRemove(th *Thread, args []Value) ([]Value, error) {
	t, err := tblArg("remove", args, 0)
	if err != nil {
		return nil, err
	}
	n := int64(t.Len())
	pos := n
	if len(args) >= 2 {
		pos, _ = toInt(args[1])
	}
	if n == 0 {
		return []Value{Nil}, nil
	}
	if pos < 1 || pos > n {
		if !(n == 0 && pos == 0) {
			return nil, &ArgumentError{Func: "remove", Index: 2, Detail: "position out of bounds"}
		}
	}
	removed := t.Get(Int(pos))
	for i := pos; i < n; i++ {
		if err := t.Set(Int(i), t.Get(Int(i+1))); err != nil {
			return nil, err
		}
	}
	t.Delete(Int(n))
	return []Value{removed}, nil
}

func tblConcat(th *Thread, args []Value) ([]Value, error) {
	t, err := tblArg("concat", args, 0)
	if err != nil {
		return nil, err
	}
	sep := ""
	if len(args) >= 2 {
		sep, _ = strArgString("concat", args, 1)
	}
	i := int64(1)
	if len(args) >= 3 {
		i, _ = toInt(args[2])
	}
	j := int64(t.Len())
	if len(args) >= 4 {
		j, _ = toInt(args[3])
	}
	var b []byte
	for k := i; k <= j; k++ {
		v := t.Get(Int(k))
		s, ok := concatOperand(v)
		if !ok {
			return nil, &RuntimeError{Msg: "invalid value (at index " + Int(k).String() + ") in table for 'concat'"}
		}
		if k > i {
			b = append(b, sep...)
		}
		b = append(b, s...)
	}
	return []Value{String(b)}, nil
}

func tblSort(th *Thread, args []Value) ([]Value, error) {
	t, err := tblArg("sort", args, 0)
	if err != nil {
		return nil, err
	}
	n := t.Len()
	vals := make([]Value, n)
	for i := 0; i < n; i++ {
		vals[i] = t.Get(Int(i + 1))
	}

	var less func(a, b Value) (bool, error)
	if len(args) >= 2 {
		if _, isNil := args[1].(NilType); !isNil {
			cmp := args[1]
			less = func(a, b Value) (bool, error) {
				res, err := call(th, cmp, []Value{a, b})
				if err != nil {
					return false, err
				}
				return Truthy(first(res)), nil
			}
		}
	}
	if less == nil {
		less = func(a, b Value) (bool, error) { return lessThan(th, a, b) }
	}

	var sortErr error
	sort.SliceStable(vals, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		lt, err := less(vals[i], vals[j])
		if err != nil {
			sortErr = err
			return false
		}
		return lt
	})
	if sortErr != nil {
		return nil, sortErr
	}

	for i, v := range vals {
		if err := t.Set(Int(i+1), v); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func tblPack(th *Thread, args []Value) ([]Value, error) {
	t := NewTable(len(args), 1)
	for i, v := range args {
		t.Set(Int(i+1), v)
	}
	t.Set(String("n"), Int(len(args)))
	return []Value{t}, nil
}

func tblUnpack(th *Thread, args []Value) ([]Value, error) {
	t, err := tblArg("unpack", args, 0)
	if err != nil {
		return nil, err
	}
	i := int64(1)
	if len(args) >= 2 {
		i, _ = toInt(args[1])
	}
	j := int64(t.Len())
	if len(args) >= 3 {
		j, _ = toInt(args[2])
	}
	if i > j {
		return nil, nil
	}
	out := make([]Value, 0, j-i+1)
	for k := i; k <= j; k++ {
		out = append(out, t.Get(Int(k)))
	}
	return out, nil
}

func tblMove(th *Thread, args []Value) ([]Value, error) {
	a1, err := tblArg("move", args, 0)
	if err != nil {
		return nil, err
	}
	f, _ := toInt(arg(args, 1))
	e, _ := toInt(arg(args, 2))
	t, _ := toInt(arg(args, 3))
	a2 := a1
	if len(args) >= 5 {
		a2, err = tblArg("move", args, 4)
		if err != nil {
			return nil, err
		}
	}
	if e < f {
		return []Value{a2}, nil
	}
	if t > f || t > e || a1 != a2 {
		for i := f; i <= e; i++ {
			if err := a2.Set(Int(t+(i-f)), a1.Get(Int(i))); err != nil {
				return nil, err
			}
		}
	} else {
		for i := e; i >= f; i-- {
			if err := a2.Set(Int(t+(i-f)), a1.Get(Int(i))); err != nil {
				return nil, err
			}
		}
	}
	return []Value{a2}, nil
}

package machine

import (
	"fmt"
	"strconv"
	"strings"
)

// OpenBase installs the base library functions as globals on th, per
// spec.md §4.6: type, tostring, tonumber, print, error, assert, pcall,
// xpcall, rawget, rawset, rawlen, rawequal, next, pairs, ipairs,
// setmetatable, getmetatable, plus select (SPEC_FULL.md §D).
func OpenBase(th *Thread) {
	reg := func(name string, fn func(*Thread, []Value) ([]Value, error)) {
		th.Globals.Set(String(name), &GoFunc{Name: name, Fn: fn})
	}

	reg("type", baseType)
	reg("tostring", baseToString)
	reg("tonumber", baseToNumber)
	reg("print", basePrint)
	reg("error", baseError)
	reg("assert", baseAssert)
	reg("pcall", basePcall)
	reg("xpcall", baseXpcall)
	reg("rawget", baseRawget)
	reg("rawset", baseRawset)
	reg("rawlen", baseRawlen)
	reg("rawequal", baseRawequal)
	reg("next", baseNext)
	reg("pairs", basePairs)
	reg("ipairs", baseIpairs)
	reg("setmetatable", baseSetmetatable)
	reg("getmetatable", baseGetmetatable)
	reg("select", baseSelect)
}

func arg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Nil
}

func argErr(fn string, idx int, expected string, got Value) error {
	return &ArgumentError{Func: fn, Index: idx, Expected: expected, Got: got.Type()}
}

func baseType(th *Thread, args []Value) ([]Value, error) {
	if len(args) == 0 {
		return nil, argErr("type", 1, "value", Nil)
	}
	return []Value{String(args[0].Type())}, nil
}

func baseToString(th *Thread, args []Value) ([]Value, error) {
	s, err := tostring(th, arg(args, 0))
	if err != nil {
		return nil, err
	}
	return []Value{String(s)}, nil
}

func baseToNumber(th *Thread, args []Value) ([]Value, error) {
	v := arg(args, 0)
	if len(args) >= 2 {
		base, ok := toInt(args[1])
		if !ok {
			return nil, argErr("tonumber", 2, "number", args[1])
		}
		s, ok := v.(String)
		if !ok {
			return nil, argErr("tonumber", 1, "string", v)
		}
		i, err := strconv.ParseInt(strings.TrimSpace(string(s)), int(base), 64)
		if err != nil {
			return []Value{Nil}, nil
		}
		return []Value{Int(i)}, nil
	}
	switch v.(type) {
	case Int, Float:
		return []Value{v}, nil
	}
	if n, ok := toNumber(v); ok {
		return []Value{n}, nil
	}
	return []Value{Nil}, nil
}

func basePrint(th *Thread, args []Value) ([]Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		s, err := tostring(th, a)
		if err != nil {
			return nil, err
		}
		parts[i] = s
	}
	fmt.Fprintln(th.stdoutOrDefault(), strings.Join(parts, "\t"))
	return nil, nil
}

func baseError(th *Thread, args []Value) ([]Value, error) {
	v := arg(args, 0)
	level := int64(1)
	if len(args) >= 2 {
		level, _ = toInt(args[1])
	}
	if s, ok := v.(String); ok && level > 0 {
		line := 0
		if n := len(th.callStack); n > 0 {
			line = th.callStack[n-1].line
		}
		v = String(fmt.Sprintf("%s:%d: %s", th.chunkSource(), line, s))
	}
	return nil, &RuntimeError{Kind: KindErrorRaised, Msg: v.String(), Value: v}
}

func baseAssert(th *Thread, args []Value) ([]Value, error) {
	if len(args) == 0 || !Truthy(args[0]) {
		msg := Value(String("assertion failed!"))
		if len(args) >= 2 {
			msg = args[1]
		}
		return nil, &AssertionError{Value: msg}
	}
	return args, nil
}

func basePcall(th *Thread, args []Value) ([]Value, error) {
	if len(args) == 0 {
		return nil, argErr("pcall", 1, "value", Nil)
	}
	savedDepth := len(th.callStack)
	results, err := call(th, args[0], args[1:])
	if err != nil {
		th.callStack = th.callStack[:savedDepth]
		return append([]Value{Bool(false)}, errorPayload(err)), nil
	}
	return append([]Value{Bool(true)}, results...), nil
}

func baseXpcall(th *Thread, args []Value) ([]Value, error) {
	if len(args) < 2 {
		return nil, argErr("xpcall", 2, "value", Nil)
	}
	handler := args[1]
	savedDepth := len(th.callStack)
	results, err := call(th, args[0], args[2:])
	if err != nil {
		th.callStack = th.callStack[:savedDepth]
		hres, herr := call(th, handler, []Value{errorPayload(err)})
		if herr != nil {
			return append([]Value{Bool(false)}, errorPayload(herr)), nil
		}
		return append([]Value{Bool(false)}, hres...), nil
	}
	return append([]Value{Bool(true)}, results...), nil
}

func errorPayload(err error) Value {
	switch e := err.(type) {
	case *RuntimeError:
		return e.Payload()
	case *AssertionError:
		return e.Value
	case *TypeError:
		return String(e.Msg)
	case *ArgumentError:
		return String(e.Error())
	case *InternalError:
		return String(e.Error())
	default:
		return String(err.Error())
	}
}

func baseRawget(th *Thread, args []Value) ([]Value, error) {
	t, ok := arg(args, 0).(*Table)
	if !ok {
		return nil, argErr("rawget", 1, "table", arg(args, 0))
	}
	return []Value{t.Get(arg(args, 1))}, nil
}

func baseRawset(th *Thread, args []Value) ([]Value, error) {
	t, ok := arg(args, 0).(*Table)
	if !ok {
		return nil, argErr("rawset", 1, "table", arg(args, 0))
	}
	if err := t.Set(arg(args, 1), arg(args, 2)); err != nil {
		return nil, &RuntimeError{Msg: err.Error()}
	}
	return []Value{t}, nil
}

func baseRawlen(th *Thread, args []Value) ([]Value, error) {
	switch v := arg(args, 0).(type) {
	case *Table:
		return []Value{Int(v.Len())}, nil
	case String:
		return []Value{Int(len(v))}, nil
	}
	return nil, argErr("rawlen", 1, "table or string", arg(args, 0))
}

func baseRawequal(th *Thread, args []Value) ([]Value, error) {
	return []Value{Bool(rawEqual(arg(args, 0), arg(args, 1)))}, nil
}

func baseNext(th *Thread, args []Value) ([]Value, error) {
	t, ok := arg(args, 0).(*Table)
	if !ok {
		return nil, argErr("next", 1, "table", arg(args, 0))
	}
	k, v, ok, err := t.Next(arg(args, 1))
	if err != nil {
		return nil, &RuntimeError{Msg: err.Error()}
	}
	if !ok {
		return []Value{Nil}, nil
	}
	return []Value{k, v}, nil
}

func basePairs(th *Thread, args []Value) ([]Value, error) {
	t, ok := arg(args, 0).(*Table)
	if !ok {
		return nil, argErr("pairs", 1, "table", arg(args, 0))
	}
	return []Value{&GoFunc{Name: "next", Fn: baseNext}, t, Nil}, nil
}

func baseIpairs(th *Thread, args []Value) ([]Value, error) {
	t := arg(args, 0)
	iter := &GoFunc{Name: "inext", Fn: func(th *Thread, args []Value) ([]Value, error) {
		i, _ := toInt(arg(args, 1))
		i++
		v, err := indexGet(th, arg(args, 0), Int(i))
		if err != nil {
			return nil, err
		}
		if _, isNil := v.(NilType); isNil {
			return []Value{Nil}, nil
		}
		return []Value{Int(i), v}, nil
	}}
	return []Value{iter, t, Int(0)}, nil
}

func baseSetmetatable(th *Thread, args []Value) ([]Value, error) {
	t, ok := arg(args, 0).(*Table)
	if !ok {
		return nil, argErr("setmetatable", 1, "table", arg(args, 0))
	}
	if t.Metatable() != nil && t.Metatable().Get(String("__metatable")) != Nil {
		return nil, &RuntimeError{Msg: "cannot change a protected metatable"}
	}
	switch mt := arg(args, 1).(type) {
	case NilType:
		t.SetMetatable(nil)
	case *Table:
		t.SetMetatable(mt)
	default:
		return nil, argErr("setmetatable", 2, "nil or table", mt)
	}
	return []Value{t}, nil
}

func baseGetmetatable(th *Thread, args []Value) ([]Value, error) {
	mt := metatableOf(arg(args, 0))
	if mt == nil {
		return []Value{Nil}, nil
	}
	if protected := mt.Get(String("__metatable")); protected != Nil {
		return []Value{protected}, nil
	}
	return []Value{mt}, nil
}

func baseSelect(th *Thread, args []Value) ([]Value, error) {
	if len(args) == 0 {
		return nil, argErr("select", 1, "number or '#'", Nil)
	}
	rest := args[1:]
	if s, ok := args[0].(String); ok && s == "#" {
		return []Value{Int(len(rest))}, nil
	}
	n, ok := toInt(args[0])
	if !ok {
		return nil, argErr("select", 1, "number or '#'", args[0])
	}
	if n < 0 {
		n = int64(len(rest)) + n + 1
	}
	if n < 1 {
		return nil, &ArgumentError{Func: "select", Index: 1, Detail: "index out of range"}
	}
	if int(n) > len(rest) {
		return nil, nil
	}
	return rest[n-1:], nil
}

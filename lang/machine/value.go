// Package machine executes compiled Prototype trees: it defines the Lua
// value taxonomy, tables, closures, the call stack, metatable-driven
// operator dispatch, and the standard library.
package machine

import (
	"fmt"
	"strconv"
)

// Value is the interface implemented by every value the machine can hold in
// a register, upvalue cell, or table slot.
type Value interface {
	String() string
	Type() string
}

// NilType is the type of Nil. Represented as a named type, rather than an
// untyped nil interface, so a register always holds a non-nil Go interface
// value even when it holds "no value".
type NilType struct{}

// Nil is the single Lua nil value.
var Nil = NilType{}

func (NilType) String() string { return "nil" }
func (NilType) Type() string   { return "nil" }

// Bool is a Lua boolean.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) Type() string { return "boolean" }

// Int is a Lua integer (Lua 5.3's 64-bit integer subtype).
type Int int64

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }
func (Int) Type() string     { return "number" }

// Float is a Lua float.
type Float float64

func (f Float) String() string {
	v := float64(f)
	if v == float64(int64(v)) && v < 1e15 && v > -1e15 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'g', 14, 64)
}
func (Float) Type() string { return "number" }

// String is an immutable Lua string: an arbitrary byte sequence, not
// necessarily valid UTF-8.
type String string

func (s String) String() string { return string(s) }
func (String) Type() string     { return "string" }

// Truthy reports whether v counts as true in a boolean context: everything
// except nil and false.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case NilType:
		return false
	case Bool:
		return bool(v)
	default:
		return true
	}
}

// Callable is implemented by any value the VM can invoke as callee(args...):
// closures and native (Go) functions.
type Callable interface {
	Value
	Call(th *Thread, args []Value) ([]Value, error)
}

// GoFunc wraps a host-provided native function as a Lua-callable value,
// used for both standard-library entries and host-registered functions.
type GoFunc struct {
	Name string
	Fn   func(th *Thread, args []Value) ([]Value, error)
}

var _ Callable = (*GoFunc)(nil)

func (f *GoFunc) String() string { return fmt.Sprintf("function: builtin: %s", f.Name) }
func (*GoFunc) Type() string     { return "function" }
func (f *GoFunc) Call(th *Thread, args []Value) ([]Value, error) {
	return f.Fn(th, args)
}

// Userdata wraps an opaque host value so it may travel through registers,
// tables and upvalues without the VM needing to understand it.
type Userdata struct {
	Data any
	Meta *Table
}

func (u *Userdata) String() string { return fmt.Sprintf("userdata: %p", u) }
func (*Userdata) Type() string     { return "userdata" }

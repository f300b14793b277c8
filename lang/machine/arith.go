package machine

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mna/luar/lang/token"
)

// metatableOf returns v's metatable, or nil if it has none. Only tables and
// userdata carry one in this implementation; every other type is always
// metatable-less (strings share the thread-wide StringMeta instead, looked
// up separately by the indexing path).
func metatableOf(v Value) *Table {
	switch v := v.(type) {
	case *Table:
		return v.Metatable()
	case *Userdata:
		return v.Meta
	}
	return nil
}

func metamethod(th *Thread, v Value, name string) Value {
	mt := metatableOf(v)
	if mt == nil {
		if _, ok := v.(String); ok {
			mt = th.StringMeta
		}
		if mt == nil {
			return nil
		}
	}
	m := mt.Get(String(name))
	if _, isNil := m.(NilType); isNil {
		return nil
	}
	return m
}

// toNumber coerces v to a number the way arithmetic and tonumber() do: it
// is already a number, or it is a string that parses as one (leading/
// trailing whitespace allowed, no partial parses).
func toNumber(v Value) (Value, bool) {
	switch v := v.(type) {
	case Int, Float:
		return v, true
	case String:
		s := strings.TrimSpace(string(v))
		if s == "" {
			return nil, false
		}
		if i, err := strconv.ParseInt(s, 0, 64); err == nil {
			return Int(i), true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Float(f), true
		}
		return nil, false
	default:
		return nil, false
	}
}

func toInt(v Value) (int64, bool) {
	switch v := v.(type) {
	case Int:
		return int64(v), true
	case Float:
		i := int64(v)
		if Float(i) == v {
			return i, true
		}
		return 0, false
	case String:
		n, ok := toNumber(v)
		if !ok {
			return 0, false
		}
		return toInt(n)
	default:
		return 0, false
	}
}

func toFloat(v Value) (float64, bool) {
	switch v := v.(type) {
	case Int:
		return float64(v), true
	case Float:
		return float64(v), true
	case String:
		n, ok := toNumber(v)
		if !ok {
			return 0, false
		}
		return toFloat(n)
	default:
		return 0, false
	}
}

var arithMetaNames = map[token.Token]string{
	token.PLUS:       "__add",
	token.MINUS:      "__sub",
	token.STAR:       "__mul",
	token.SLASH:      "__div",
	token.SLASHSLASH: "__idiv",
	token.PERCENT:    "__mod",
	token.CARET:      "__pow",
	token.AMP:        "__band",
	token.PIPE:       "__bor",
	token.TILDE:      "__bxor",
	token.LTLT:       "__shl",
	token.GTGT:       "__shr",
}

// binOp applies a binary arithmetic, bitwise or comparison operator, per
// the coercion and metamethod rules of arithmetic/order/equality.
func binOp(th *Thread, op token.Token, a, b Value) (Value, error) {
	switch op {
	case token.EQEQ:
		eq, err := valuesEqual(th, a, b)
		return Bool(eq), err
	case token.NEQ:
		eq, err := valuesEqual(th, a, b)
		return Bool(!eq), err
	case token.LT:
		lt, err := lessThan(th, a, b)
		return Bool(lt), err
	case token.GT:
		lt, err := lessThan(th, b, a)
		return Bool(lt), err
	case token.LE:
		le, err := lessEqual(th, a, b)
		return Bool(le), err
	case token.GE:
		le, err := lessEqual(th, b, a)
		return Bool(le), err
	}

	switch op {
	case token.AMP, token.PIPE, token.TILDE, token.LTLT, token.GTGT:
		return bitwiseOp(th, op, a, b)
	}
	return arithOp(th, op, a, b)
}

func arithOp(th *Thread, op token.Token, a, b Value) (Value, error) {
	an, aok := toNumber(a)
	bn, bok := toNumber(b)
	if !aok || !bok {
		if m := firstMetamethod(th, arithMetaNames[op], a, b); m != nil {
			res, err := call(th, m, []Value{a, b})
			return first(res), err
		}
		bad := a
		if aok {
			bad = b
		}
		return nil, &TypeError{Kind: KindArithType, Msg: "attempt to perform arithmetic on a " + bad.Type() + " value"}
	}

	ai, aIsInt := an.(Int)
	bi, bIsInt := bn.(Int)
	if aIsInt && bIsInt && op != token.SLASH && op != token.CARET {
		return intArith(op, ai, bi)
	}
	af, _ := toFloat(an)
	bf, _ := toFloat(bn)
	return floatArith(op, af, bf)
}

func intArith(op token.Token, a, b Int) (Value, error) {
	switch op {
	case token.PLUS:
		return a + b, nil
	case token.MINUS:
		return a - b, nil
	case token.STAR:
		return a * b, nil
	case token.SLASHSLASH:
		if b == 0 {
			return nil, &RuntimeError{Kind: KindDivisionByZero, Msg: "attempt to perform 'n//0'"}
		}
		return Int(floorDivInt(int64(a), int64(b))), nil
	case token.PERCENT:
		if b == 0 {
			return nil, &RuntimeError{Kind: KindModuloByZero, Msg: "attempt to perform 'n%%0'"}
		}
		return Int(int64(a) - floorDivInt(int64(a), int64(b))*int64(b)), nil
	}
	return nil, &InternalError{Msg: "unreachable int arith op"}
}

func floorDivInt(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floatArith(op token.Token, a, b float64) (Value, error) {
	switch op {
	case token.PLUS:
		return Float(a + b), nil
	case token.MINUS:
		return Float(a - b), nil
	case token.STAR:
		return Float(a * b), nil
	case token.SLASH:
		if b == 0 {
			return nil, &RuntimeError{Kind: KindDivisionByZero, Msg: "attempt to divide by zero"}
		}
		return Float(a / b), nil
	case token.SLASHSLASH:
		if b == 0 {
			return nil, &RuntimeError{Kind: KindDivisionByZero, Msg: "attempt to perform 'n//0'"}
		}
		return Float(math.Floor(a / b)), nil
	case token.PERCENT:
		if b == 0 {
			return nil, &RuntimeError{Kind: KindModuloByZero, Msg: "attempt to perform 'n%%0'"}
		}
		m := math.Mod(a, b)
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return Float(m), nil
	case token.CARET:
		return Float(math.Pow(a, b)), nil
	}
	return nil, &InternalError{Msg: "unreachable float arith op"}
}

func bitwiseOp(th *Thread, op token.Token, a, b Value) (Value, error) {
	ai, aok := toInt(a)
	bi, bok := toInt(b)
	if !aok || !bok {
		if m := firstMetamethod(th, arithMetaNames[op], a, b); m != nil {
			res, err := call(th, m, []Value{a, b})
			return first(res), err
		}
		return nil, &TypeError{Kind: KindBitwiseType, Msg: "attempt to perform bitwise operation on a non-integer value"}
	}
	switch op {
	case token.AMP:
		return Int(ai & bi), nil
	case token.PIPE:
		return Int(ai | bi), nil
	case token.TILDE:
		return Int(ai ^ bi), nil
	case token.LTLT:
		return Int(shiftLeft(ai, bi)), nil
	case token.GTGT:
		return Int(shiftLeft(ai, -bi)), nil
	}
	return nil, &InternalError{Msg: "unreachable bitwise op"}
}

func shiftLeft(a, n int64) int64 {
	if n <= -64 || n >= 64 {
		return 0
	}
	if n >= 0 {
		return int64(uint64(a) << uint(n))
	}
	return int64(uint64(a) >> uint(-n))
}

func firstMetamethod(th *Thread, name string, a, b Value) Value {
	if m := metamethod(th, a, name); m != nil {
		return m
	}
	return metamethod(th, b, name)
}

func first(vs []Value) Value {
	if len(vs) == 0 {
		return Nil
	}
	return vs[0]
}

// unOp applies a unary operator: NOT, MINUS (negate), HASH (length), TILDE
// (bitwise not).
func unOp(th *Thread, op token.Token, v Value) (Value, error) {
	switch op {
	case token.NOT:
		return Bool(!Truthy(v)), nil
	case token.MINUS:
		if n, ok := toNumber(v); ok {
			if i, ok := n.(Int); ok {
				return -i, nil
			}
			return -n.(Float), nil
		}
		if m := metamethod(th, v, "__unm"); m != nil {
			res, err := call(th, m, []Value{v, v})
			return first(res), err
		}
		return nil, &TypeError{Kind: KindArithType, Msg: "attempt to perform arithmetic on a " + v.Type() + " value"}
	case token.HASH:
		return length(th, v)
	case token.TILDE:
		if i, ok := toInt(v); ok {
			return Int(^i), nil
		}
		if m := metamethod(th, v, "__bnot"); m != nil {
			res, err := call(th, m, []Value{v, v})
			return first(res), err
		}
		return nil, &TypeError{Kind: KindBitwiseType, Msg: "attempt to perform bitwise operation on a " + v.Type() + " value"}
	}
	return nil, &InternalError{Msg: "unreachable unary op"}
}

func length(th *Thread, v Value) (Value, error) {
	switch v := v.(type) {
	case String:
		return Int(len(v)), nil
	case *Table:
		if m := metamethod(th, v, "__len"); m != nil {
			res, err := call(th, m, []Value{v})
			return first(res), err
		}
		return Int(v.Len()), nil
	}
	return nil, &TypeError{Kind: KindLengthType, Msg: "attempt to get length of a " + v.Type() + " value"}
}

// valuesEqual implements ==: identical representation for matching types
// (numbers compare across Int/Float), false across mismatched types except
// that cross-type numeric comparisons still apply, and a __eq metamethod
// fallback when both operands are tables. Userdata compare by reference
// only.
func valuesEqual(th *Thread, a, b Value) (bool, error) {
	if rawEqual(a, b) {
		return true, nil
	}
	ta, aIsTable := a.(*Table)
	tb, bIsTable := b.(*Table)
	if aIsTable && bIsTable {
		var m Value
		if mt := ta.Metatable(); mt != nil {
			m = mt.Get(String("__eq"))
		}
		if _, isNil := m.(NilType); isNil || m == nil {
			if mt := tb.Metatable(); mt != nil {
				m = mt.Get(String("__eq"))
			}
		}
		if m != nil {
			if _, isNil := m.(NilType); !isNil {
				res, err := call(th, m, []Value{a, b})
				if err != nil {
					return false, err
				}
				return Truthy(first(res)), nil
			}
		}
	}
	return false, nil
}

// rawEqual implements rawequal(): no metamethod consultation.
func rawEqual(a, b Value) bool {
	switch av := a.(type) {
	case NilType:
		_, ok := b.(NilType)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		switch bv := b.(type) {
		case Int:
			return av == bv
		case Float:
			return Float(av) == bv
		}
		return false
	case Float:
		switch bv := b.(type) {
		case Float:
			return av == bv
		case Int:
			return av == Float(bv)
		}
		return false
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	default:
		return a == b
	}
}

func lessThan(th *Thread, a, b Value) (bool, error) {
	if as, ok := a.(String); ok {
		if bs, ok := b.(String); ok {
			return as < bs, nil
		}
	}
	if an, aok := numericValue(a); aok {
		if bn, bok := numericValue(b); bok {
			return numLess(an, bn), nil
		}
	}
	if m := firstMetamethod(th, "__lt", a, b); m != nil {
		res, err := call(th, m, []Value{a, b})
		if err != nil {
			return false, err
		}
		return Truthy(first(res)), nil
	}
	return false, &TypeError{Kind: KindCompareType, Msg: "attempt to compare two " + a.Type() + " values"}
}

func lessEqual(th *Thread, a, b Value) (bool, error) {
	if as, ok := a.(String); ok {
		if bs, ok := b.(String); ok {
			return as <= bs, nil
		}
	}
	if an, aok := numericValue(a); aok {
		if bn, bok := numericValue(b); bok {
			return !numLess(bn, an), nil
		}
	}
	if m := firstMetamethod(th, "__le", a, b); m != nil {
		res, err := call(th, m, []Value{a, b})
		if err != nil {
			return false, err
		}
		return Truthy(first(res)), nil
	}
	return false, &TypeError{Kind: KindCompareType, Msg: "attempt to compare two " + a.Type() + " values"}
}

func numericValue(v Value) (Value, bool) {
	switch v.(type) {
	case Int, Float:
		return v, true
	}
	return nil, false
}

func numLess(a, b Value) bool {
	af, _ := toFloat(a)
	bf, _ := toFloat(b)
	return af < bf
}

// concatValues implements ..: numbers and strings concatenate directly (a
// number is formatted the way tostring() would), otherwise __concat.
func concatValues(th *Thread, a, b Value) (Value, error) {
	as, aok := concatOperand(a)
	bs, bok := concatOperand(b)
	if aok && bok {
		return String(as + bs), nil
	}
	if m := firstMetamethod(th, "__concat", a, b); m != nil {
		res, err := call(th, m, []Value{a, b})
		return first(res), err
	}
	bad := a
	if aok {
		bad = b
	}
	return nil, &TypeError{Kind: KindConcatType, Msg: "attempt to concatenate a " + bad.Type() + " value"}
}

func concatOperand(v Value) (string, bool) {
	switch v := v.(type) {
	case String:
		return string(v), true
	case Int, Float:
		return v.String(), true
	}
	return "", false
}

// indexGet implements table[key] / obj.field read semantics, including the
// __index chain (table: recurse; function: call with (t, key)).
func indexGet(th *Thread, t, key Value) (Value, error) {
	for {
		tbl, ok := t.(*Table)
		if !ok {
			m := metamethod(th, t, "__index")
			if m == nil {
				return nil, &TypeError{Kind: KindIndexNotIndexable, Msg: "attempt to index a " + t.Type() + " value"}
			}
			if fn, ok := m.(Callable); ok {
				res, err := call(th, fn, []Value{t, key})
				return first(res), err
			}
			t = m
			continue
		}
		v := tbl.Get(key)
		if _, isNil := v.(NilType); !isNil {
			return v, nil
		}
		mt := tbl.Metatable()
		if mt == nil {
			return Nil, nil
		}
		idx := mt.Get(String("__index"))
		switch idx := idx.(type) {
		case NilType:
			return Nil, nil
		case Callable:
			res, err := call(th, idx, []Value{t, key})
			return first(res), err
		default:
			t = idx
			continue
		}
	}
}

// indexSet implements table[key] = value / obj.field = value semantics.
func indexSet(th *Thread, t, key, val Value) error {
	tbl, ok := t.(*Table)
	if !ok {
		m := metamethod(th, t, "__newindex")
		if m == nil {
			return &TypeError{Kind: KindIndexNotIndexable, Msg: "attempt to index a " + t.Type() + " value"}
		}
		return indexSetVia(th, m, t, key, val)
	}
	if _, isNil := tbl.Get(key).(NilType); !isNil {
		return tbl.Set(key, val)
	}
	mt := tbl.Metatable()
	if mt == nil {
		return tbl.Set(key, val)
	}
	ni := mt.Get(String("__newindex"))
	if _, isNil := ni.(NilType); isNil {
		return tbl.Set(key, val)
	}
	return indexSetVia(th, ni, t, key, val)
}

func indexSetVia(th *Thread, handler, t, key, val Value) error {
	if fn, ok := handler.(Callable); ok {
		_, err := call(th, fn, []Value{t, key, val})
		return err
	}
	return indexSet(th, handler, key, val)
}

// call invokes callee(args...), falling back to __call for non-Callable
// values per the calling convention's metamethod rule.
func call(th *Thread, callee Value, args []Value) ([]Value, error) {
	if c, ok := callee.(Callable); ok {
		return c.Call(th, args)
	}
	if m := metamethod(th, callee, "__call"); m != nil {
		if fn, ok := m.(Callable); ok {
			return fn.Call(th, append([]Value{callee}, args...))
		}
	}
	return nil, &TypeError{Kind: KindCallNotCallable, Msg: "attempt to call a " + callee.Type() + " value"}
}

// tostring implements tostring()'s semantics: __tostring metamethod first;
// failing that, a table or userdata whose metatable sets __name reports as
// "name: addr" instead of the generic "table: addr" / "userdata: addr".
func tostring(th *Thread, v Value) (string, error) {
	if m := metamethod(th, v, "__tostring"); m != nil {
		res, err := call(th, m, []Value{v})
		if err != nil {
			return "", err
		}
		s, ok := first(res).(String)
		if !ok {
			return "", &TypeError{Kind: KindTostringResult, Msg: "'__tostring' must return a string"}
		}
		return string(s), nil
	}
	if mt := metatableOf(v); mt != nil {
		if name, ok := mt.Get(String("__name")).(String); ok {
			return fmt.Sprintf("%s: %p", name, v), nil
		}
	}
	return v.String(), nil
}

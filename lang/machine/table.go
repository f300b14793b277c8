package machine

import (
	"fmt"

	"github.com/dolthub/swiss"
)

// Table is a Lua table: a hybrid of a dense "array part" (integer keys
// 1..n with no holes) and a hash part for everything else, plus an optional
// metatable. Splitting out the array part is what makes sequence use (the
// overwhelmingly common case) cheap, the same division the teacher's Map
// makes for its own hash-only dictionary.
type Table struct {
	array []Value // array[i] holds the value for integer key i+1
	hash  *swiss.Map[Value, Value]
	meta  *Table
}

// NewTable returns an empty table with initial capacity hints for the array
// and hash parts.
func NewTable(arrayHint, hashHint int) *Table {
	t := &Table{}
	if arrayHint > 0 {
		t.array = make([]Value, 0, arrayHint)
	}
	if hashHint > 0 {
		t.hash = swiss.NewMap[Value, Value](uint32(hashHint))
	}
	return t
}

func (t *Table) String() string { return fmt.Sprintf("table: %p", t) }
func (*Table) Type() string     { return "table" }

// Metatable returns the table's metatable, or nil if it has none.
func (t *Table) Metatable() *Table { return t.meta }

// SetMetatable installs (or clears, with nil) the table's metatable.
func (t *Table) SetMetatable(m *Table) { t.meta = m }

// normalizeKey canonicalizes a key the way Lua does: a float key holding an
// exact integer value is treated as that integer, so t[1] and t[1.0] name
// the same slot.
func normalizeKey(k Value) Value {
	if f, ok := k.(Float); ok {
		if i := int64(f); Float(i) == f {
			return Int(i)
		}
	}
	return k
}

// Get returns the raw value (no metatable fallback) stored at key k, or Nil
// if absent.
func (t *Table) Get(k Value) Value {
	k = normalizeKey(k)
	if i, ok := k.(Int); ok {
		idx := int(i) - 1
		if idx >= 0 && idx < len(t.array) {
			return t.array[idx]
		}
	}
	if t.hash == nil {
		return Nil
	}
	if v, ok := t.hash.Get(k); ok {
		return v
	}
	return Nil
}

// Set stores v at key k (raw, no metatable fallback), growing the array
// part when k extends it contiguously and spilling to the hash part
// otherwise. Setting Nil removes the key.
func (t *Table) Set(k, v Value) error {
	k = normalizeKey(k)
	if _, ok := k.(NilType); ok {
		return fmt.Errorf("table index is nil")
	}
	if f, ok := k.(Float); ok && f != f { // NaN
		return fmt.Errorf("table index is NaN")
	}

	if i, ok := k.(Int); ok {
		idx := int(i) - 1
		switch {
		case idx >= 0 && idx < len(t.array):
			t.array[idx] = v
			if _, isNil := v.(NilType); isNil && idx == len(t.array)-1 {
				t.shrinkArray()
			}
			return nil
		case idx == len(t.array):
			if _, isNil := v.(NilType); isNil {
				return nil
			}
			t.array = append(t.array, v)
			t.absorbFromHash()
			return nil
		}
	}

	if _, isNil := v.(NilType); isNil {
		if t.hash != nil {
			t.hash.Delete(k)
		}
		return nil
	}
	if t.hash == nil {
		t.hash = swiss.NewMap[Value, Value](4)
	}
	t.hash.Put(k, v)
	return nil
}

// shrinkArray trims trailing Nil holes left by deleting the last element.
func (t *Table) shrinkArray() {
	for len(t.array) > 0 {
		if _, isNil := t.array[len(t.array)-1].(NilType); !isNil {
			break
		}
		t.array = t.array[:len(t.array)-1]
	}
}

// absorbFromHash moves any now-contiguous integer keys out of the hash part
// and into the array part, e.g. after t[3] = x made t[4] (already present
// in the hash part from an earlier out-of-order assignment) contiguous.
func (t *Table) absorbFromHash() {
	if t.hash == nil {
		return
	}
	for {
		next := Int(len(t.array) + 1)
		v, ok := t.hash.Get(next)
		if !ok {
			return
		}
		t.array = append(t.array, v)
		t.hash.Delete(next)
	}
}

// Len returns the table's "border": a length N such that t[N] is non-nil
// and t[N+1] is nil (or 0 if t[1] is nil). For a table used purely as a
// sequence this is its array length.
func (t *Table) Len() int {
	n := len(t.array)
	for n > 0 {
		if _, isNil := t.array[n-1].(NilType); !isNil {
			break
		}
		n--
	}
	if n == len(t.array) && t.hash != nil {
		// the array part may be fully populated with more contiguous
		// integer keys spilled into the hash part (e.g. after RawSet at a
		// far-future index); keep counting.
		for {
			if _, ok := t.hash.Get(Int(n + 1)); !ok {
				break
			}
			n++
		}
	}
	return n
}

// Next implements the base library's next(): given the previous key (Nil to
// start iteration), returns the following key/value pair, or (Nil, Nil,
// false) when iteration is exhausted. Table iteration order is
// implementation-defined but stable within one iteration, matching spec.md
// §5's ordering guarantee.
func (t *Table) Next(key Value) (Value, Value, bool, error) {
	if _, isNil := key.(NilType); isNil {
		if len(t.array) > 0 {
			return Int(1), t.array[0], true, nil
		}
		return t.firstHashEntry()
	}

	key = normalizeKey(key)
	if i, ok := key.(Int); ok {
		idx := int(i) - 1
		if idx >= 0 && idx < len(t.array) {
			if idx+1 < len(t.array) {
				return Int(idx + 2), t.array[idx+1], true, nil
			}
			return t.firstHashEntry()
		}
	}
	return t.nextHashEntry(key)
}

// firstHashEntry and nextHashEntry walk the hash part's iterator each time,
// which is O(n) per step; table.go's Next is not meant for performance-
// critical iteration. pairs() (stdlib_base.go's basePairs) hands back this
// same Next via next/t/nil, so mutating t during iteration is exactly as
// unsafe as calling next() by hand — there is no snapshot.
func (t *Table) firstHashEntry() (Value, Value, bool, error) {
	if t.hash == nil {
		return Nil, Nil, false, nil
	}
	var found Value
	var val Value
	ok := false
	t.hash.Iter(func(k, v Value) bool {
		found, val, ok = k, v, true
		return true
	})
	if !ok {
		return Nil, Nil, false, nil
	}
	return found, val, true, nil
}

func (t *Table) nextHashEntry(after Value) (Value, Value, bool, error) {
	if t.hash == nil {
		return Nil, Nil, false, fmt.Errorf("invalid key to 'next'")
	}
	keys := make([]Value, 0, t.hash.Count())
	t.hash.Iter(func(k, v Value) bool {
		keys = append(keys, k)
		return false
	})
	for i, k := range keys {
		if k == after {
			if i+1 < len(keys) {
				v, _ := t.hash.Get(keys[i+1])
				return keys[i+1], v, true, nil
			}
			return Nil, Nil, false, nil
		}
	}
	return Nil, Nil, false, fmt.Errorf("invalid key to 'next'")
}

// Delete removes key k, used by table.remove/rawset(nil).
func (t *Table) Delete(k Value) { _ = t.Set(k, Nil) }

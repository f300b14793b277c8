package machine

import (
	"fmt"
	"strings"
)

// OpenString installs the string library under the "string" global, and
// sets it as th.StringMeta.__index so "s:upper()" method syntax works on
// any string value, per spec.md §4.6.
func OpenString(th *Thread) {
	lib := NewTable(0, 16)
	reg := func(name string, fn func(*Thread, []Value) ([]Value, error)) {
		lib.Set(String(name), &GoFunc{Name: "string." + name, Fn: fn})
	}

	reg("lower", strLower)
	reg("upper", strUpper)
	reg("len", strLen)
	reg("sub", strSub)
	reg("rep", strRep)
	reg("reverse", strReverse)
	reg("byte", strByte)
	reg("char", strChar)
	reg("format", strFormat)
	reg("find", strFind)
	reg("match", strMatch)
	reg("gmatch", strGmatch)
	reg("gsub", strGsub)

	th.Globals.Set(String("string"), lib)

	th.StringMeta = NewTable(0, 1)
	th.StringMeta.Set(String("__index"), lib)
}

func strArgString(fn string, args []Value, i int) (string, error) {
	v := arg(args, i)
	switch v := v.(type) {
	case String:
		return string(v), nil
	case Int, Float:
		return v.String(), nil
	}
	return "", argErr(fn, i+1, "string", v)
}

// strRange resolves Lua's 1-based, negative-counts-from-end sub() indexing,
// clamped to [1, len+1] / [0, len] the way the original does.
func strRange(s string, i, j int64) (int, int) {
	n := int64(len(s))
	if i < 0 {
		i = n + i + 1
	}
	if i < 1 {
		i = 1
	}
	if j < 0 {
		j = n + j + 1
	}
	if j > n {
		j = n
	}
	if i > j {
		return 0, 0
	}
	return int(i - 1), int(j)
}

// normalizeInit mirrors strRange's handling of a negative/zero start index,
// without the final clamp to len(s), so callers can tell an init that's
// genuinely past the end of the string apart from a valid empty range.
func normalizeInit(init int64, n int) int {
	if init < 0 {
		init = int64(n) + init + 1
		if init < 1 {
			init = 1
		}
	} else if init == 0 {
		init = 1
	}
	return int(init)
}

func strLower(th *Thread, args []Value) ([]Value, error) {
	s, err := strArgString("lower", args, 0)
	if err != nil {
		return nil, err
	}
	return []Value{String(strings.ToLower(s))}, nil
}

func strUpper(th *Thread, args []Value) ([]Value, error) {
	s, err := strArgString("upper", args, 0)
	if err != nil {
		return nil, err
	}
	return []Value{String(strings.ToUpper(s))}, nil
}

func strLen(th *Thread, args []Value) ([]Value, error) {
	s, err := strArgString("len", args, 0)
	if err != nil {
		return nil, err
	}
	return []Value{Int(len(s))}, nil
}

func strSub(th *Thread, args []Value) ([]Value, error) {
	s, err := strArgString("sub", args, 0)
	if err != nil {
		return nil, err
	}
	i := int64(1)
	if len(args) >= 2 {
		i, _ = toInt(args[1])
	}
	j := int64(-1)
	if len(args) >= 3 {
		j, _ = toInt(args[2])
	}
	from, to := strRange(s, i, j)
	return []Value{String(s[from:to])}, nil
}

func strRep(th *Thread, args []Value) ([]Value, error) {
	s, err := strArgString("rep", args, 0)
	if err != nil {
		return nil, err
	}
	n, ok := toInt(arg(args, 1))
	if !ok {
		return nil, argErr("rep", 2, "number", arg(args, 1))
	}
	if n <= 0 {
		return []Value{String("")}, nil
	}
	sep := ""
	if len(args) >= 3 {
		sep, _ = strArgString("rep", args, 2)
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = s
	}
	return []Value{String(strings.Join(parts, sep))}, nil
}

func strReverse(th *Thread, args []Value) ([]Value, error) {
	s, err := strArgString("reverse", args, 0)
	if err != nil {
		return nil, err
	}
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return []Value{String(b)}, nil
}

func strByte(th *Thread, args []Value) ([]Value, error) {
	s, err := strArgString("byte", args, 0)
	if err != nil {
		return nil, err
	}
	i := int64(1)
	if len(args) >= 2 {
		i, _ = toInt(args[1])
	}
	j := i
	if len(args) >= 3 {
		j, _ = toInt(args[2])
	}
	from, to := strRange(s, i, j)
	out := make([]Value, 0, to-from)
	for k := from; k < to; k++ {
		out = append(out, Int(s[k]))
	}
	return out, nil
}

func strChar(th *Thread, args []Value) ([]Value, error) {
	b := make([]byte, len(args))
	for i, a := range args {
		n, ok := toInt(a)
		if !ok || n < 0 || n > 255 {
			return nil, &ArgumentError{Func: "char", Index: i + 1, Detail: "value out of range"}
		}
		b[i] = byte(n)
	}
	return []Value{String(b)}, nil
}

// strFormat implements string.format's %s %d %i %u %f %e %g %x %X %o %c %q
// %% with optional width/precision/flags, by translating to Go's fmt
// verbs (which share most of C's printf syntax) and handling %q and %i/%u
// specially.
func strFormat(th *Thread, args []Value) ([]Value, error) {
	f, err := strArgString("format", args, 0)
	if err != nil {
		return nil, err
	}
	var out strings.Builder
	argi := 1
	next := func() (Value, error) {
		if argi >= len(args) {
			return nil, &ArgumentError{Func: "format", Index: argi + 1, Detail: "no value"}
		}
		v := args[argi]
		argi++
		return v, nil
	}

	for i := 0; i < len(f); i++ {
		c := f[i]
		if c != '%' {
			out.WriteByte(c)
			continue
		}
		start := i
		i++
		for i < len(f) && strings.ContainsRune("-+ #0", rune(f[i])) {
			i++
		}
		for i < len(f) && f[i] >= '0' && f[i] <= '9' {
			i++
		}
		if i < len(f) && f[i] == '.' {
			i++
			for i < len(f) && f[i] >= '0' && f[i] <= '9' {
				i++
			}
		}
		if i >= len(f) {
			return nil, &ArgumentError{Func: "format", Detail: "invalid format string"}
		}
		verb := f[i]
		spec := f[start : i+1]

		if verb == '%' {
			out.WriteByte('%')
			continue
		}

		v, err := next()
		if err != nil {
			return nil, err
		}

		switch verb {
		case 's':
			s, err := tostring(th, v)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(&out, spec, s)
		case 'q':
			s, err := tostring(th, v)
			if err != nil {
				return nil, err
			}
			out.WriteString(quoteLua(s))
		case 'd', 'i', 'u':
			n, ok := toInt(v)
			if !ok {
				return nil, &ArgumentError{Func: "format", Index: argi, Expected: "number", Got: v.Type()}
			}
			fmt.Fprintf(&out, spec[:len(spec)-1]+"d", n)
		case 'x', 'X', 'o':
			n, ok := toInt(v)
			if !ok {
				return nil, &ArgumentError{Func: "format", Index: argi, Expected: "number", Got: v.Type()}
			}
			fmt.Fprintf(&out, spec, n)
		case 'f', 'e', 'E', 'g', 'G':
			n, ok := toFloat(v)
			if !ok {
				return nil, &ArgumentError{Func: "format", Index: argi, Expected: "number", Got: v.Type()}
			}
			fmt.Fprintf(&out, spec, n)
		case 'c':
			n, ok := toInt(v)
			if !ok {
				return nil, &ArgumentError{Func: "format", Index: argi, Expected: "number", Got: v.Type()}
			}
			out.WriteByte(byte(n))
		default:
			return nil, &ArgumentError{Func: "format", Detail: "invalid conversion '" + spec + "'"}
		}
	}
	return []Value{String(out.String())}, nil
}

// quoteLua renders s the way %q does in real Lua: a double-quoted,
// round-trippable literal, escaping control bytes, backslashes, quotes and
// embedded newlines as a literal backslash-newline.
func quoteLua(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\n':
			b.WriteString("\\\n")
		case c == '\r':
			b.WriteString("\\r")
		case c < 32 || c == 127:
			if i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9' {
				fmt.Fprintf(&b, "\\%03d", c)
			} else {
				fmt.Fprintf(&b, "\\%d", c)
			}
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// strFind implements the literal (non-pattern) subset of string.find,
// including the plain 4th argument and an init start position, per
// SPEC_FULL.md §D.
func strFind(th *Thread, args []Value) ([]Value, error) {
	s, err := strArgString("find", args, 0)
	if err != nil {
		return nil, err
	}
	pat, err := strArgString("find", args, 1)
	if err != nil {
		return nil, err
	}
	init := int64(1)
	if len(args) >= 3 {
		init, _ = toInt(args[2])
	}
	// an init past the end of the subject (string.find("hello", "l", 100))
	// never matches; strRange alone can't tell that apart from a valid
	// empty range, so the out-of-range check happens here instead.
	if normalizeInit(init, len(s)) > len(s)+1 {
		return []Value{Nil}, nil
	}
	from, _ := strRange(s, init, int64(len(s)))
	if from > len(s) {
		return []Value{Nil}, nil
	}
	idx := strings.Index(s[from:], pat)
	if idx < 0 {
		return []Value{Nil}, nil
	}
	start := from + idx + 1
	end := start + len(pat) - 1
	return []Value{Int(start), Int(end)}, nil
}

// strMatch returns the first literal match, the same span string.find
// would report, since only the literal fast path is supported.
func strMatch(th *Thread, args []Value) ([]Value, error) {
	s, err := strArgString("match", args, 0)
	if err != nil {
		return nil, err
	}
	pat, err := strArgString("match", args, 1)
	if err != nil {
		return nil, err
	}
	idx := strings.Index(s, pat)
	if idx < 0 {
		return []Value{Nil}, nil
	}
	return []Value{String(pat)}, nil
}

// strGmatch returns an iterator over non-overlapping literal occurrences of
// pat in s.
func strGmatch(th *Thread, args []Value) ([]Value, error) {
	s, err := strArgString("gmatch", args, 0)
	if err != nil {
		return nil, err
	}
	pat, err := strArgString("gmatch", args, 1)
	if err != nil {
		return nil, err
	}
	pos := 0
	iter := &GoFunc{Name: "gmatch_iterator", Fn: func(th *Thread, args []Value) ([]Value, error) {
		if pat == "" || pos > len(s) {
			return []Value{Nil}, nil
		}
		idx := strings.Index(s[pos:], pat)
		if idx < 0 {
			pos = len(s) + 1
			return []Value{Nil}, nil
		}
		pos += idx + len(pat)
		return []Value{String(pat)}, nil
	}}
	return []Value{iter}, nil
}

// strGsub implements the literal-pattern subset of string.gsub: every (or
// up to n) non-overlapping occurrence of pat is replaced by repl, returning
// the new string and the replacement count.
func strGsub(th *Thread, args []Value) ([]Value, error) {
	s, err := strArgString("gsub", args, 0)
	if err != nil {
		return nil, err
	}
	pat, err := strArgString("gsub", args, 1)
	if err != nil {
		return nil, err
	}
	repl, err := strArgString("gsub", args, 2)
	if err != nil {
		return nil, err
	}
	max := int64(-1)
	if len(args) >= 4 {
		max, _ = toInt(args[3])
	}

	if pat == "" {
		return []Value{String(s), Int(0)}, nil
	}

	var out strings.Builder
	count := int64(0)
	for {
		if max >= 0 && count >= max {
			out.WriteString(s)
			break
		}
		idx := strings.Index(s, pat)
		if idx < 0 {
			out.WriteString(s)
			break
		}
		out.WriteString(s[:idx])
		out.WriteString(repl)
		s = s[idx+len(pat):]
		count++
	}
	return []Value{String(out.String()), Int(count)}, nil
}

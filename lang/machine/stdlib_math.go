package machine

import (
	"math"
	"math/rand"
)

// OpenMath installs the math library under the "math" global, per
// spec.md §4.6.
func OpenMath(th *Thread) {
	lib := NewTable(0, 24)
	reg := func(name string, fn func(*Thread, []Value) ([]Value, error)) {
		lib.Set(String(name), &GoFunc{Name: "math." + name, Fn: fn})
	}

	lib.Set(String("pi"), Float(math.Pi))
	lib.Set(String("huge"), Float(math.Inf(1)))
	lib.Set(String("maxinteger"), Int(math.MaxInt64))
	lib.Set(String("mininteger"), Int(math.MinInt64))

	reg("abs", mathAbs)
	reg("ceil", mathCeil)
	reg("floor", mathFloor)
	reg("sqrt", math1(math.Sqrt))
	reg("sin", math1(math.Sin))
	reg("cos", math1(math.Cos))
	reg("tan", math1(math.Tan))
	reg("asin", math1(math.Asin))
	reg("acos", math1(math.Acos))
	reg("atan", mathAtan)
	reg("exp", math1(math.Exp))
	reg("log", mathLog)
	reg("min", mathMin)
	reg("max", mathMax)
	reg("random", mathRandom)
	reg("randomseed", mathRandomseed)
	reg("tointeger", mathToInteger)
	reg("type", mathType)

	th.Globals.Set(String("math"), lib)
}

func mathArgFloat(fn string, args []Value, i int) (float64, error) {
	f, ok := toFloat(arg(args, i))
	if !ok {
		return 0, argErr(fn, i+1, "number", arg(args, i))
	}
	return f, nil
}

func math1(fn func(float64) float64) func(*Thread, []Value) ([]Value, error) {
	return func(th *Thread, args []Value) ([]Value, error) {
		x, err := mathArgFloat("?", args, 0)
		if err != nil {
			return nil, err
		}
		return []Value{Float(fn(x))}, nil
	}
}

func mathAbs(th *Thread, args []Value) ([]Value, error) {
	if i, ok := arg(args, 0).(Int); ok {
		if i < 0 {
			return []Value{-i}, nil
		}
		return []Value{i}, nil
	}
	x, err := mathArgFloat("abs", args, 0)
	if err != nil {
		return nil, err
	}
	return []Value{Float(math.Abs(x))}, nil
}

func mathCeil(th *Thread, args []Value) ([]Value, error) {
	if i, ok := arg(args, 0).(Int); ok {
		return []Value{i}, nil
	}
	x, err := mathArgFloat("ceil", args, 0)
	if err != nil {
		return nil, err
	}
	return []Value{Int(int64(math.Ceil(x)))}, nil
}

func mathFloor(th *Thread, args []Value) ([]Value, error) {
	if i, ok := arg(args, 0).(Int); ok {
		return []Value{i}, nil
	}
	x, err := mathArgFloat("floor", args, 0)
	if err != nil {
		return nil, err
	}
	return []Value{Int(int64(math.Floor(x)))}, nil
}

func mathAtan(th *Thread, args []Value) ([]Value, error) {
	y, err := mathArgFloat("atan", args, 0)
	if err != nil {
		return nil, err
	}
	x := 1.0
	if len(args) >= 2 {
		x, err = mathArgFloat("atan", args, 1)
		if err != nil {
			return nil, err
		}
	}
	return []Value{Float(math.Atan2(y, x))}, nil
}

func mathLog(th *Thread, args []Value) ([]Value, error) {
	x, err := mathArgFloat("log", args, 0)
	if err != nil {
		return nil, err
	}
	if len(args) >= 2 {
		base, err := mathArgFloat("log", args, 1)
		if err != nil {
			return nil, err
		}
		return []Value{Float(math.Log(x) / math.Log(base))}, nil
	}
	return []Value{Float(math.Log(x))}, nil
}

func mathMin(th *Thread, args []Value) ([]Value, error) {
	if len(args) == 0 {
		return nil, argErr("min", 1, "number", Nil)
	}
	best := args[0]
	for _, a := range args[1:] {
		lt, err := lessThan(th, a, best)
		if err != nil {
			return nil, err
		}
		if lt {
			best = a
		}
	}
	return []Value{best}, nil
}

func mathMax(th *Thread, args []Value) ([]Value, error) {
	if len(args) == 0 {
		return nil, argErr("max", 1, "number", Nil)
	}
	best := args[0]
	for _, a := range args[1:] {
		lt, err := lessThan(th, best, a)
		if err != nil {
			return nil, err
		}
		if lt {
			best = a
		}
	}
	return []Value{best}, nil
}

func mathRandom(th *Thread, args []Value) ([]Value, error) {
	switch len(args) {
	case 0:
		return []Value{Float(rand.Float64())}, nil
	case 1:
		m, ok := toInt(args[0])
		if !ok || m < 1 {
			return nil, &ArgumentError{Func: "random", Index: 1, Detail: "interval is empty"}
		}
		return []Value{Int(1 + rand.Int63n(m))}, nil
	default:
		m, ok1 := toInt(args[0])
		n, ok2 := toInt(args[1])
		if !ok1 || !ok2 || m > n {
			return nil, &ArgumentError{Func: "random", Index: 2, Detail: "interval is empty"}
		}
		return []Value{Int(m + rand.Int63n(n-m+1))}, nil
	}
}

func mathRandomseed(th *Thread, args []Value) ([]Value, error) {
	if len(args) == 0 {
		return nil, nil
	}
	seed, ok := toInt(args[0])
	if !ok {
		return nil, argErr("randomseed", 1, "number", args[0])
	}
	rand.Seed(seed)
	return nil, nil
}

func mathToInteger(th *Thread, args []Value) ([]Value, error) {
	switch v := arg(args, 0).(type) {
	case Int:
		return []Value{v}, nil
	case Float:
		if i := int64(v); Float(i) == v {
			return []Value{Int(i)}, nil
		}
	}
	return []Value{Nil}, nil
}

func mathType(th *Thread, args []Value) ([]Value, error) {
	switch arg(args, 0).(type) {
	case Int:
		return []Value{String("integer")}, nil
	case Float:
		return []Value{String("float")}, nil
	}
	return []Value{Nil}, nil
}

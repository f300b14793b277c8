package machine

import (
	"os"
	"time"
)

// OpenOS installs a minimal, host-gated os library under the "os" global:
// clock, time, date (spec.md §4.6), plus exit and getenv (SPEC_FULL.md §D).
// A sandboxing host simply omits this call.
func OpenOS(th *Thread) {
	lib := NewTable(0, 8)
	reg := func(name string, fn func(*Thread, []Value) ([]Value, error)) {
		lib.Set(String(name), &GoFunc{Name: "os." + name, Fn: fn})
	}

	reg("clock", osClock)
	reg("time", osTime)
	reg("date", osDate)
	reg("exit", osExit)
	reg("getenv", osGetenv)

	th.Globals.Set(String("os"), lib)
}

var processStart = time.Now()

func osClock(th *Thread, args []Value) ([]Value, error) {
	return []Value{Float(time.Since(processStart).Seconds())}, nil
}

func osTime(th *Thread, args []Value) ([]Value, error) {
	return []Value{Int(time.Now().Unix())}, nil
}

func osDate(th *Thread, args []Value) ([]Value, error) {
	format := "%c"
	if len(args) >= 1 {
		if s, ok := args[0].(String); ok {
			format = string(s)
		}
	}
	t := time.Now()
	if len(args) >= 2 {
		if n, ok := toInt(args[1]); ok {
			t = time.Unix(n, 0)
		}
	}
	utc := false
	if len(format) > 0 && format[0] == '!' {
		utc = true
		format = format[1:]
	}
	if utc {
		t = t.UTC()
	}
	return []Value{String(strftime(format, t))}, nil
}

// strftime renders the small subset of C strftime directives os.date's
// default format needs.
func strftime(format string, t time.Time) string {
	if format == "%c" {
		return t.Format("Mon Jan  2 15:04:05 2006")
	}
	var b []byte
	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i+1 >= len(format) {
			b = append(b, format[i])
			continue
		}
		i++
		switch format[i] {
		case 'Y':
			b = append(b, t.Format("2006")...)
		case 'm':
			b = append(b, t.Format("01")...)
		case 'd':
			b = append(b, t.Format("02")...)
		case 'H':
			b = append(b, t.Format("15")...)
		case 'M':
			b = append(b, t.Format("04")...)
		case 'S':
			b = append(b, t.Format("05")...)
		case '%':
			b = append(b, '%')
		default:
			b = append(b, '%', format[i])
		}
	}
	return string(b)
}

func osExit(th *Thread, args []Value) ([]Value, error) {
	code := 0
	if len(args) >= 1 {
		switch v := args[0].(type) {
		case Bool:
			if !v {
				code = 1
			}
		default:
			if n, ok := toInt(v); ok {
				code = int(n)
			}
		}
	}
	os.Exit(code)
	return nil, nil
}

func osGetenv(th *Thread, args []Value) ([]Value, error) {
	name, err := strArgString("getenv", args, 0)
	if err != nil {
		return nil, err
	}
	v, ok := os.LookupEnv(name)
	if !ok {
		return []Value{Nil}, nil
	}
	return []Value{String(v)}, nil
}

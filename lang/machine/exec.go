package machine

import (
	"github.com/mna/luar/lang/compiler"
	"github.com/mna/luar/lang/resolver"
)

// ctrl is the signal a block of instructions hands back to its caller:
// fell off the end normally, hit a break, or hit a return. It is how
// Break/Return propagate out of nested Test/loop bodies without the
// instruction stream needing jump targets.
type ctrl int

const (
	ctrlNone ctrl = iota
	ctrlBreak
	ctrlReturn
)

// run instantiates a fresh activation of c and executes it to completion.
func run(th *Thread, c *Closure, args []Value) ([]Value, error) {
	fr := newFrame(th, c)

	np := c.Proto.NumParams
	for i := 0; i < np; i++ {
		if i < len(args) {
			fr.set(i, args[i])
		} else {
			fr.set(i, Nil)
		}
	}
	if c.Proto.IsVararg && len(args) > np {
		fr.varargs = append([]Value(nil), args[np:]...)
	}

	if err := th.pushFrame(fr); err != nil {
		return nil, withStack(th, err)
	}
	defer th.popFrame()

	c2, results, err := execBlock(fr, c.Proto.Code)
	if err != nil {
		return nil, withStack(th, err)
	}
	if c2 == ctrlReturn {
		return results, nil
	}
	return nil, nil
}

// execBlock runs code to completion or until a Break/Return signal fires,
// returning that signal (and, for a Return, the values it carries) to the
// enclosing block.
func execBlock(fr *Frame, code []compiler.Instruction) (ctrl, []Value, error) {
	for _, instr := range code {
		if err := fr.th.step(); err != nil {
			return ctrlNone, nil, err
		}

		switch i := instr.(type) {
		case *compiler.SourceLine:
			fr.line = i.Line
			fr.col = i.Column

		case *compiler.LoadConstant:
			fr.set(i.Dest, constantValue(i.Value))
		case *compiler.LoadBool:
			fr.set(i.Dest, Bool(i.Value))
		case *compiler.LoadNil:
			for r := i.Base; r < i.Base+i.Count; r++ {
				fr.set(r, Nil)
			}
		case *compiler.Move:
			fr.set(i.Dest, fr.get(i.Src))

		case *compiler.GetGlobal:
			fr.set(i.Dest, fr.th.Globals.Get(String(i.Name)))
		case *compiler.SetGlobal:
			if err := fr.th.Globals.Set(String(i.Name), fr.get(i.Src)); err != nil {
				return ctrlNone, nil, err
			}

		case *compiler.GetUpvalue:
			fr.set(i.Dest, fr.closure.Upvals[i.Index].V)
		case *compiler.SetUpvalue:
			fr.closure.Upvals[i.Index].V = fr.get(i.Src)
		case *compiler.GetOpenUpvalue:
			fr.set(i.Dest, fr.cell(i.Reg).V)
		case *compiler.SetOpenUpvalue:
			fr.cell(i.Reg).V = fr.get(i.Src)

		case *compiler.NewTable:
			fr.set(i.Dest, NewTable(0, 0))

		case *compiler.GetTable:
			v, err := indexGet(fr.th, fr.get(i.Table), fr.get(i.Key))
			if err != nil {
				return ctrlNone, nil, err
			}
			fr.set(i.Dest, v)
		case *compiler.SetTable:
			if err := indexSet(fr.th, fr.get(i.Table), fr.get(i.Key), fr.get(i.Value)); err != nil {
				return ctrlNone, nil, err
			}
		case *compiler.GetField:
			v, err := indexGet(fr.th, fr.get(i.Table), String(i.Name))
			if err != nil {
				return ctrlNone, nil, err
			}
			fr.set(i.Dest, v)
		case *compiler.SetField:
			if err := indexSet(fr.th, fr.get(i.Table), String(i.Name), fr.get(i.Value)); err != nil {
				return ctrlNone, nil, err
			}

		case *compiler.SetList:
			tbl := fr.get(i.Table).(*Table)
			count := i.Count
			if count < 0 {
				count = fr.openCount(i.Base)
			}
			for k := 0; k < count; k++ {
				if err := tbl.Set(Int(i.Offset+k), fr.get(i.Base+k)); err != nil {
					return ctrlNone, nil, err
				}
			}

		case *compiler.BinOp:
			v, err := binOp(fr.th, i.Op, fr.get(i.Left), fr.get(i.Right))
			if err != nil {
				return ctrlNone, nil, err
			}
			fr.set(i.Dest, v)
		case *compiler.UnOp:
			v, err := unOp(fr.th, i.Op, fr.get(i.Src))
			if err != nil {
				return ctrlNone, nil, err
			}
			fr.set(i.Dest, v)
		case *compiler.Concat:
			v := fr.get(i.First)
			for r := i.First + 1; r <= i.Last; r++ {
				var err error
				v, err = concatValues(fr.th, v, fr.get(r))
				if err != nil {
					return ctrlNone, nil, err
				}
			}
			fr.set(i.Dest, v)

		case *compiler.LogicalAnd:
			left := fr.get(i.Left)
			if !Truthy(left) {
				fr.set(i.Dest, left)
				break
			}
			if _, _, err := execBlock(fr, i.Rhs); err != nil {
				return ctrlNone, nil, err
			}
		case *compiler.LogicalOr:
			left := fr.get(i.Left)
			if Truthy(left) {
				fr.set(i.Dest, left)
				break
			}
			if _, _, err := execBlock(fr, i.Rhs); err != nil {
				return ctrlNone, nil, err
			}

		case *compiler.Test:
			body := i.Else
			if Truthy(fr.get(i.Reg)) {
				body = i.Then
			}
			c, rv, err := execBlock(fr, body)
			if err != nil {
				return ctrlNone, nil, err
			}
			if c != ctrlNone {
				return c, rv, nil
			}

		case *compiler.WhileLoop:
			for {
				c, rv, err := execBlock(fr, i.Cond)
				if err != nil {
					return ctrlNone, nil, err
				}
				if c == ctrlReturn {
					return c, rv, nil
				}
				if !Truthy(fr.get(i.TestReg)) {
					break
				}
				c, rv, err = execBlock(fr, i.Body)
				if err != nil {
					return ctrlNone, nil, err
				}
				if c == ctrlReturn {
					return c, rv, nil
				}
				if c == ctrlBreak {
					break
				}
			}

		case *compiler.RepeatLoop:
			for {
				c, rv, err := execBlock(fr, i.Body)
				if err != nil {
					return ctrlNone, nil, err
				}
				if c == ctrlReturn {
					return c, rv, nil
				}
				if c == ctrlBreak {
					break
				}
				if Truthy(fr.get(i.TestReg)) {
					break
				}
			}

		case *compiler.NumericFor:
			c, rv, err := execNumericFor(fr, i)
			if err != nil {
				return ctrlNone, nil, err
			}
			if c == ctrlReturn {
				return c, rv, nil
			}

		case *compiler.GenericFor:
			c, rv, err := execGenericFor(fr, i)
			if err != nil {
				return ctrlNone, nil, err
			}
			if c == ctrlReturn {
				return c, rv, nil
			}

		case *compiler.Break:
			return ctrlBreak, nil, nil

		case *compiler.Closure:
			fr.set(i.Dest, instantiateClosure(fr, i.Proto))

		case *compiler.Call:
			results, err := execCall(fr, i.Base, i.NArgs)
			if err != nil {
				return ctrlNone, nil, err
			}
			storeResults(fr, i.Base, i.NResults, results)

		case *compiler.TailCall:
			results, err := execCall(fr, i.Base, i.NArgs)
			if err != nil {
				return ctrlNone, nil, err
			}
			return ctrlReturn, results, nil

		case *compiler.Self:
			obj := fr.get(i.Obj)
			m, err := indexGet(fr.th, obj, String(i.Name))
			if err != nil {
				return ctrlNone, nil, err
			}
			fr.set(i.Base, m)
			fr.set(i.Base+1, obj)

		case *compiler.Vararg:
			count := i.Count
			if count < 0 {
				count = len(fr.varargs)
				for k := 0; k < count; k++ {
					fr.set(i.Base+k, fr.varargs[k])
				}
				fr.setTop(i.Base + count)
				break
			}
			for k := 0; k < count; k++ {
				if k < len(fr.varargs) {
					fr.set(i.Base+k, fr.varargs[k])
				} else {
					fr.set(i.Base+k, Nil)
				}
			}

		case *compiler.Return:
			count := i.Count
			if count < 0 {
				count = fr.openCount(i.Base)
			}
			vals := make([]Value, count)
			for k := 0; k < count; k++ {
				vals[k] = fr.get(i.Base + k)
			}
			return ctrlReturn, vals, nil

		default:
			return ctrlNone, nil, &InternalError{Msg: "unhandled instruction type"}
		}
	}
	return ctrlNone, nil, nil
}

func constantValue(v any) Value {
	switch v := v.(type) {
	case int64:
		return Int(v)
	case float64:
		return Float(v)
	case string:
		return String(v)
	default:
		return Nil
	}
}

// execCall gathers R[Base+1..Base+nargs] and invokes R[Base] with them.
func execCall(fr *Frame, base, nargs int) ([]Value, error) {
	nargs = resolveCount(fr, base+1, nargs)
	args := make([]Value, nargs)
	for k := 0; k < nargs; k++ {
		args[k] = fr.get(base + 1 + k)
	}
	return call(fr.th, fr.get(base), args)
}

// resolveCount turns a possibly-open (<0) count starting at base into a
// concrete count, against the floating top left by a preceding open call
// or vararg.
func resolveCount(fr *Frame, base, count int) int {
	if count >= 0 {
		return count
	}
	return fr.openCount(base)
}

// storeResults writes a call's results into registers starting at base,
// padding with nil or truncating to nresults; nresults < 0 keeps every
// result and marks the new floating top.
func storeResults(fr *Frame, base, nresults int, results []Value) {
	if nresults < 0 {
		for k, v := range results {
			fr.set(base+k, v)
		}
		fr.setTop(base + len(results))
		return
	}
	for k := 0; k < nresults; k++ {
		if k < len(results) {
			fr.set(base+k, results[k])
		} else {
			fr.set(base+k, Nil)
		}
	}
}

func execNumericFor(fr *Frame, i *compiler.NumericFor) (ctrl, []Value, error) {
	start, ok1 := toNumber(fr.get(i.Counter))
	limit, ok2 := toNumber(fr.get(i.Limit))
	step, ok3 := toNumber(fr.get(i.Step))
	if !ok1 || !ok2 || !ok3 {
		return ctrlNone, nil, &TypeError{Kind: KindForInitNotNumber, Msg: "'for' initial value must be a number"}
	}

	_, allInt := start.(Int)
	if _, ok := limit.(Int); !ok {
		allInt = false
	}
	if _, ok := step.(Int); !ok {
		allInt = false
	}

	if allInt {
		si, li, pi := int64(start.(Int)), int64(limit.(Int)), int64(step.(Int))
		if pi == 0 {
			return ctrlNone, nil, &RuntimeError{Kind: KindForStepZero, Msg: "'for' step is zero"}
		}
		for v := si; (pi > 0 && v <= li) || (pi < 0 && v >= li); v += pi {
			fr.set(i.Var, Int(v))
			c, rv, err := execBlock(fr, i.Body)
			if err != nil {
				return ctrlNone, nil, err
			}
			if c == ctrlReturn {
				return c, rv, nil
			}
			if c == ctrlBreak {
				break
			}
			// guard against overflow wrapping the loop back past the limit
			if pi > 0 && v+pi < v {
				break
			}
			if pi < 0 && v+pi > v {
				break
			}
		}
		return ctrlNone, nil, nil
	}

	sf, _ := toFloat(start)
	lf, _ := toFloat(limit)
	pf, _ := toFloat(step)
	if pf == 0 {
		return ctrlNone, nil, &RuntimeError{Kind: KindForStepZero, Msg: "'for' step is zero"}
	}
	for v := sf; (pf > 0 && v <= lf) || (pf < 0 && v >= lf); v += pf {
		fr.set(i.Var, Float(v))
		c, rv, err := execBlock(fr, i.Body)
		if err != nil {
			return ctrlNone, nil, err
		}
		if c == ctrlReturn {
			return c, rv, nil
		}
		if c == ctrlBreak {
			break
		}
	}
	return ctrlNone, nil, nil
}

func execGenericFor(fr *Frame, i *compiler.GenericFor) (ctrl, []Value, error) {
	iterFunc := fr.get(i.IterFunc)
	state := fr.get(i.State)
	control := fr.get(i.Control)

	for {
		results, err := call(fr.th, iterFunc, []Value{state, control})
		if err != nil {
			return ctrlNone, nil, err
		}
		if len(results) == 0 {
			return ctrlNone, nil, nil
		}
		if _, isNil := results[0].(NilType); isNil {
			return ctrlNone, nil, nil
		}
		control = results[0]

		for k, reg := range i.Vars {
			if k < len(results) {
				fr.set(reg, results[k])
			} else {
				fr.set(reg, Nil)
			}
		}

		c, rv, err := execBlock(fr, i.Body)
		if err != nil {
			return ctrlNone, nil, err
		}
		if c == ctrlReturn {
			return c, rv, nil
		}
		if c == ctrlBreak {
			return ctrlNone, nil, nil
		}
	}
}

// instantiateClosure creates a new Closure over proto, binding each of its
// upvalues per proto.Upvalues against the enclosing (currently executing)
// frame: a ParentLocal captures that frame's register by cell, a
// ParentUpvalue reuses the enclosing closure's own cell directly so the
// chain of nesting shares one cell per captured variable.
func instantiateClosure(fr *Frame, proto *compiler.Prototype) *Closure {
	upvals := make([]*Cell, len(proto.Upvalues))
	for idx, desc := range proto.Upvalues {
		switch desc.Kind {
		case resolver.ParentLocal:
			upvals[idx] = fr.cell(desc.Index)
		case resolver.ParentUpvalue:
			upvals[idx] = fr.closure.Upvals[desc.Index]
		}
	}
	return &Closure{Proto: proto, Upvals: upvals, Source: proto.Source}
}

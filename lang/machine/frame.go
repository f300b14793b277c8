package machine

import "github.com/mna/luar/lang/token"

// Frame is one function activation: the registers and upvalues of a
// running closure, plus the bookkeeping the call stack and error
// reporting need. Pushed by Call, popped on return.
type Frame struct {
	closure *Closure
	th      *Thread

	regs    []Value
	varargs []Value

	// cells lazily holds the cell backing each register a nested closure
	// has captured (or that GetOpenUpvalue/SetOpenUpvalue has touched),
	// keyed by register index. Once a register has a cell, every access to
	// it — including from this very activation, via GetOpenUpvalue/
	// SetOpenUpvalue — goes through the cell instead of regs[i], so the
	// owning function and every closure sharing it see one coherent
	// mutable slot.
	cells map[int]*Cell

	// top is the index just past the last register a preceding open-ended
	// Call or Vararg populated; -1 means no such producer has run yet in
	// this frame. A later instruction whose NArgs/Count/NResults is -1
	// (Lua's "forward everything produced so far" convention) resolves its
	// span against top instead of a compile-time-known count.
	top int

	// line and col are the most recently executed SourceLine, for error
	// positions, stack traces, and the diagnostic formatter's caret.
	line int
	col  int

	// Source is the chunk name this frame's closure was compiled from.
	Source string
	// File backs Source, for the diagnostic formatter's source snippet.
	File *token.File
	// Name is the callee's name if known, or "" for an anonymous function
	// (see IsMain to tell that apart from the main chunk).
	Name string
	// IsMain marks the chunk's own top-level activation.
	IsMain bool
}

func newFrame(th *Thread, c *Closure) *Frame {
	regs := make([]Value, c.Proto.MaxRegister)
	for i := range regs {
		regs[i] = Nil
	}
	return &Frame{
		closure: c,
		th:      th,
		regs:    regs,
		top:     -1,
		Source:  c.Source,
		File:    c.Proto.File,
		Name:    c.Name(),
		IsMain:  c.IsMain,
	}
}

// cell returns the cell backing register reg, creating it (seeded with the
// register's current value) on first capture.
func (fr *Frame) cell(reg int) *Cell {
	if fr.cells == nil {
		fr.cells = make(map[int]*Cell)
	}
	c, ok := fr.cells[reg]
	if !ok {
		c = &Cell{V: fr.regs[reg]}
		fr.cells[reg] = c
	}
	return c
}

// get reads register reg, through its cell if one exists.
func (fr *Frame) get(reg int) Value {
	if fr.cells != nil {
		if c, ok := fr.cells[reg]; ok {
			return c.V
		}
	}
	return fr.regs[reg]
}

// set writes register reg, through its cell if one exists.
func (fr *Frame) set(reg int, v Value) {
	if fr.cells != nil {
		if c, ok := fr.cells[reg]; ok {
			c.V = v
			return
		}
	}
	fr.regs[reg] = v
}

// setTop records base as the frame's floating top: the index just past the
// last register that an open-ended Call or Vararg just produced.
func (fr *Frame) setTop(base int) { fr.top = base }

// openCount resolves a negative (open) count starting at base against the
// frame's floating top.
func (fr *Frame) openCount(base int) int {
	if fr.top < base {
		return 0
	}
	return fr.top - base
}

package machine

import (
	"context"
	"io"
	"os"
	"sync/atomic"

	"github.com/mna/luar/lang/compiler"
)

// Thread is one execution context: a call stack, the global environment it
// runs against, and the limits and I/O streams that bound it. A Thread is
// not safe for concurrent use by multiple goroutines, the same way a single
// Lua state isn't.
type Thread struct {
	// Name optionally describes the thread, for debugging and error messages.
	Name string

	// Stdout receives print's output. Stderr and Stdin are resolved the same
	// way, but no standard-library function uses them. os.Stdout, os.Stderr
	// and os.Stdin are used when nil.
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// Globals is the thread's global environment, shared by every chunk run
	// on it, read and written by GetGlobal/SetGlobal and by the _G table.
	Globals *Table

	// StringMeta is the metatable shared by every string value, giving
	// "abc":upper() method-call syntax access to the string library.
	StringMeta *Table

	// MaxSteps bounds the number of instructions executed before the thread
	// is cancelled, a deliberately coarse measure of run time. <= 0 means no
	// limit.
	MaxSteps int

	// MaxCallStackDepth bounds the number of nested Lua calls before the
	// thread raises a stack overflow RuntimeError. <= 0 means no limit.
	MaxCallStackDepth int

	ctx       context.Context
	ctxCancel func()
	callStack []*Frame
	cancelled atomic.Bool

	steps, maxSteps uint64

	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
}

// NewThread returns a Thread ready for OpenLibs and RunChunk: its globals
// table is allocated up front so the host can install the standard
// library (or register its own functions) before the first chunk runs.
func NewThread() *Thread {
	return &Thread{Globals: NewTable(0, 0)}
}

// RunChunk runs proto as the chunk's top-level vararg function, with args
// as its varargs. Once it returns, the thread can run another chunk.
func (th *Thread) RunChunk(ctx context.Context, proto *compiler.Prototype, args []Value) ([]Value, error) {
	if th.ctx != nil {
		return nil, &InternalError{Msg: "thread " + th.Name + " is already executing"}
	}
	ctx, cancel := context.WithCancel(ctx)
	th.ctx = ctx
	th.ctxCancel = cancel
	th.init()
	defer func() {
		cancel()
		th.ctx, th.ctxCancel = nil, nil
	}()

	top := &Closure{Proto: proto, Source: proto.Source, IsMain: true}
	return run(th, top, args)
}

func (th *Thread) init() {
	if th.MaxSteps <= 0 {
		th.maxSteps--
	} else {
		th.maxSteps = uint64(th.MaxSteps)
	}
	if th.Stdout != nil {
		th.stdout = th.Stdout
	} else {
		th.stdout = os.Stdout
	}
	if th.Stderr != nil {
		th.stderr = th.Stderr
	} else {
		th.stderr = os.Stderr
	}
	if th.Stdin != nil {
		th.stdin = th.Stdin
	} else {
		th.stdin = os.Stdin
	}
	if th.ctx == nil {
		th.ctx = context.Background()
		th.ctxCancel = func() {}
	} else {
		go func() {
			<-th.ctx.Done()
			th.cancelled.Store(true)
		}()
	}
	if th.Globals == nil {
		th.Globals = NewTable(0, 0)
	}
}

// CallStack returns a snapshot of the current call stack, innermost frame
// last, for error reporting (pcall's traceback, the diagnostic formatter).
func (th *Thread) CallStack() []*Frame {
	cp := make([]*Frame, len(th.callStack))
	copy(cp, th.callStack)
	return cp
}

func (th *Thread) pushFrame(fr *Frame) error {
	if th.MaxCallStackDepth > 0 && len(th.callStack) >= th.MaxCallStackDepth {
		return &RuntimeError{Kind: KindStackOverflow, Msg: "stack overflow"}
	}
	th.callStack = append(th.callStack, fr)
	return nil
}

func (th *Thread) popFrame() {
	th.callStack = th.callStack[:len(th.callStack)-1]
}

// stdoutOrDefault returns the thread's stdout, falling back to os.Stdout if
// RunChunk/init hasn't run yet (e.g. a stdlib function called directly in a
// test, without going through RunChunk).
func (th *Thread) stdoutOrDefault() io.Writer {
	if th.stdout != nil {
		return th.stdout
	}
	return os.Stdout
}

// chunkSource returns the source name of the innermost active frame, or
// "?" if none (no call in progress).
func (th *Thread) chunkSource() string {
	if n := len(th.callStack); n > 0 {
		return th.callStack[n-1].Source
	}
	return "?"
}

func (th *Thread) step() error {
	if th.cancelled.Load() && th.ctx != nil {
		if err := th.ctx.Err(); err != nil {
			return err
		}
	}
	th.steps++
	if th.steps > th.maxSteps {
		return &RuntimeError{Kind: KindStepLimit, Msg: "too many steps"}
	}
	return nil
}

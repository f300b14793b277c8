package machine

import (
	"fmt"
	"strings"

	"github.com/mna/luar/lang/token"
)

// ErrorKind classifies a runtime diagnostic. The shared formatter
// (lang/machine/diag) uses it to pick a header and, for some kinds, a
// one-line suggestion.
type ErrorKind string

const (
	KindCallNotCallable   ErrorKind = "call_nil"
	KindIndexNotIndexable ErrorKind = "index_nil"
	KindArithType         ErrorKind = "arith_type"
	KindBitwiseType      ErrorKind = "bitwise_type"
	KindCompareType      ErrorKind = "compare_type"
	KindConcatType       ErrorKind = "concat_type"
	KindLengthType       ErrorKind = "length_type"
	KindTostringResult   ErrorKind = "tostring_result"
	KindForInitNotNumber ErrorKind = "for_not_a_number"
	KindForStepZero      ErrorKind = "for_step_zero"
	KindDivisionByZero   ErrorKind = "division_by_zero"
	KindModuloByZero     ErrorKind = "modulo_by_zero"
	KindErrorRaised      ErrorKind = "error_raised"
	KindStackOverflow    ErrorKind = "stack_overflow"
	KindStepLimit        ErrorKind = "step_limit_exceeded"
	KindAlreadyRunning   ErrorKind = "thread_already_running"
	KindAssertionFailed  ErrorKind = "assertion_failed"
	KindBadArgument      ErrorKind = "bad_argument"
	KindUnreachable      ErrorKind = "unreachable"
)

// StackEntry is one captured call-stack frame, recorded on an error at the
// point it was raised so the diagnostic formatter can render a trace after
// the stack itself has unwound.
type StackEntry struct {
	Source string
	File   *token.File
	Line   int
	Column int
	Name   string // callee name, or "" for the main chunk or an anonymous function
	Main   bool
}

func (e StackEntry) String() string {
	switch {
	case e.Main:
		return fmt.Sprintf("%s:%d: in main chunk", e.Source, e.Line)
	case e.Name == "":
		return fmt.Sprintf("%s:%d: in function <anonymous>", e.Source, e.Line)
	default:
		return fmt.Sprintf("%s:%d: in function '%s'", e.Source, e.Line, e.Name)
	}
}

func captureStack(th *Thread) []StackEntry {
	stack := th.callStack
	entries := make([]StackEntry, len(stack))
	for i, fr := range stack {
		entries[i] = StackEntry{
			Source: fr.Source,
			File:   fr.File,
			Line:   fr.line,
			Column: fr.col,
			Name:   fr.Name,
			Main:   fr.IsMain,
		}
	}
	return entries
}

// TypeError reports an operation applied to a value of the wrong type:
// calling a non-function, indexing a non-table without __index, arithmetic
// on a non-number without a metamethod, comparing incompatible types,
// concatenating a non-string/number.
type TypeError struct {
	Kind  ErrorKind
	Msg   string
	Stack []StackEntry
}

func (e *TypeError) Error() string { return e.Msg }

// RuntimeError is raised by error(), by division/modulo by zero, or by any
// other host-originated runtime failure. Value carries the arbitrary Lua
// payload error() was called with (a plain string for internally raised
// errors).
type RuntimeError struct {
	Kind  ErrorKind
	Msg   string
	Value Value
	Stack []StackEntry
}

func (e *RuntimeError) Error() string { return e.Msg }

// Payload returns the Lua value this error carries, for pcall/xpcall to
// hand back to the caller.
func (e *RuntimeError) Payload() Value {
	if e.Value != nil {
		return e.Value
	}
	return String(e.Msg)
}

// AssertionError is raised by assert() failing, carrying the message value
// it was given (or the default "assertion failed!" when none was).
type AssertionError struct {
	Value Value
	Stack []StackEntry
}

func (e *AssertionError) Error() string { return e.Value.String() }

// ErrorKind is always KindAssertionFailed; it exists so the formatter can treat
// every machine error type uniformly through a single interface.
func (e *AssertionError) ErrorKind() ErrorKind { return KindAssertionFailed }

// ArgumentError is raised by standard-library functions on a malformed
// argument list, with enough structure for a precise message ("bad
// argument #1 to 'sub' (string expected, got table)").
type ArgumentError struct {
	Func     string
	Index    int
	Expected string
	Got      string
	Detail   string
	Stack    []StackEntry
}

func (e *ArgumentError) Error() string {
	msg := fmt.Sprintf("bad argument #%d to '%s'", e.Index, e.Func)
	switch {
	case e.Detail != "":
		msg += " (" + e.Detail + ")"
	case e.Expected != "":
		msg += fmt.Sprintf(" (%s expected, got %s)", e.Expected, e.Got)
	}
	return msg
}

// ErrorKind is always KindBadArgument; it exists so the formatter can treat
// every machine error type uniformly through a single interface.
func (e *ArgumentError) ErrorKind() ErrorKind { return KindBadArgument }

// InternalError signals a VM invariant violation: a bug in the
// implementation, never a consequence of the Lua program being run.
type InternalError struct {
	Msg   string
	Stack []StackEntry
}

func (e *InternalError) Error() string { return "internal error: " + e.Msg }

// ErrorKind is always KindUnreachable; it exists so the formatter can treat
// every machine error type uniformly through a single interface.
func (e *InternalError) ErrorKind() ErrorKind { return KindUnreachable }

// Kinded is implemented by every machine error type, giving the diagnostic
// formatter a single way to pick a header and suggestion regardless of the
// concrete error type.
type Kinded interface {
	ErrorKind() ErrorKind
}

// ErrorKind lets TypeError satisfy Kinded.
func (e *TypeError) ErrorKind() ErrorKind { return e.Kind }

// ErrorKind lets RuntimeError satisfy Kinded.
func (e *RuntimeError) ErrorKind() ErrorKind { return e.Kind }

// withStack attaches the thread's current call stack to err if it is one of
// the machine's own error types and doesn't have one yet (an error raised
// deep in a call chain is annotated once, at the point it's about to
// surface past the frame that knows about th).
func withStack(th *Thread, err error) error {
	switch e := err.(type) {
	case *TypeError:
		if e.Stack == nil {
			e.Stack = captureStack(th)
		}
	case *RuntimeError:
		if e.Stack == nil {
			e.Stack = captureStack(th)
		}
	case *AssertionError:
		if e.Stack == nil {
			e.Stack = captureStack(th)
		}
	case *ArgumentError:
		if e.Stack == nil {
			e.Stack = captureStack(th)
		}
	case *InternalError:
		if e.Stack == nil {
			e.Stack = captureStack(th)
		}
	}
	return err
}

// FormatStack renders a captured call stack one frame per line, innermost
// first, the shape the diagnostic formatter's trace section uses.
func FormatStack(stack []StackEntry) string {
	var b strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteString(stack[i].String())
		if i > 0 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

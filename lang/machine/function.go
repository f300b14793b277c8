package machine

import (
	"fmt"

	"github.com/mna/luar/lang/compiler"
)

// Closure is a function defined by a function statement, expression, or the
// chunk's own implicit top-level vararg function, instantiated from a
// compiler.Prototype with a set of captured upvalue cells bound per its
// Upvalues descriptor list.
type Closure struct {
	Proto  *compiler.Prototype
	Upvals []*Cell
	Source string // chunk name, for error messages and stack traces

	// IsMain marks the chunk's own implicit top-level function, so stack
	// traces can say "in main chunk" instead of "in function '?'".
	IsMain bool
}

var (
	_ Value    = (*Closure)(nil)
	_ Callable = (*Closure)(nil)
)

func (c *Closure) String() string { return fmt.Sprintf("function: %p", c) }
func (*Closure) Type() string     { return "function" }

func (c *Closure) Call(th *Thread, args []Value) ([]Value, error) {
	return run(th, c, args)
}

// Name returns the closure's name if known. Empty for both the main chunk
// (distinguished by IsMain) and an anonymous function literal.
func (c *Closure) Name() string {
	return c.Proto.Name
}

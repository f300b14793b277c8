package compiler

import (
	"github.com/mna/luar/lang/resolver"
	"github.com/mna/luar/lang/token"
)

// Prototype is the compiled form of one function: the chunk's implicit
// top-level function, or any nested function literal. It is entirely
// self-contained (its nested functions are compiled ahead of time into
// Protos), so a closure can be instantiated from it without any further
// compilation work.
type Prototype struct {
	// Source is the chunk name the function was compiled from, for error
	// messages and stack traces.
	Source string
	// File backs Source with line/column lookups and, when the source text
	// was retained (see token.File.SetSrc), the snippet the diagnostic
	// formatter quotes under a runtime error's caret.
	File *token.File
	// Name is the function's name if known (a global or local function
	// declaration), or "" for an anonymous function literal.
	Name string
	// Line is the source line of the "function" keyword (or the chunk's
	// first line, for the implicit top-level function).
	Line int

	NumParams int
	IsVararg  bool

	// MaxRegister is the number of registers this function's activation
	// record needs: registers 0..MaxRegister-1 are valid, covering both the
	// locals the resolver assigned and every temporary the compiler
	// introduced above them.
	MaxRegister int

	// Upvalues describes, in index order, where each of this function's
	// upvalue cells comes from in the enclosing activation.
	Upvalues []resolver.UpvalueDesc

	Code []Instruction

	// Protos holds every function literal nested directly in this one, in
	// the order their Closure instructions reference them.
	Protos []*Prototype
}

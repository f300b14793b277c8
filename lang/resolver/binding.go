package resolver

import (
	"fmt"

	"github.com/mna/luar/lang/ast"
)

// Scope classifies how a variable reference is resolved, per the four
// kinds the code generator needs to tell apart.
type Scope uint8

const (
	Undefined     Scope = iota // zero value; never assigned to a resolved identifier
	Register                   // local to the current function, in register Index
	CapturedLocal              // local to the current function, but captured by a nested closure (needs a cell)
	Upvalue                    // captured from an enclosing function, at upvalue index Index
	Global                     // not found in any enclosing function; resolved by name at run time
)

var scopeNames = [...]string{
	Undefined:     "undefined",
	Register:      "register",
	CapturedLocal: "captured_local",
	Upvalue:       "upvalue",
	Global:        "global",
}

func (s Scope) String() string {
	if int(s) >= len(scopeNames) {
		return fmt.Sprintf("<invalid Scope %d>", s)
	}
	return scopeNames[s]
}

// Binding is what an *ast.IdentExpr.Ref holds once the resolver has run. It
// ties together every reference to the same variable (or, for Global,
// every reference to the same name).
type Binding struct {
	Scope Scope

	// Index is the register index (Register, CapturedLocal) or the upvalue
	// index in the current function's Upvalues (Upvalue). Unused for Global.
	Index int

	Name string

	// Decl is the identifier that introduced this binding: a LocalStmt
	// name, a ForNumStmt/ForInStmt loop variable, or a function parameter.
	// Nil for Global bindings, which have no declaration site.
	Decl *ast.IdentExpr
}

// UpvalueKind tells the code generator how to resolve an upvalue
// descriptor when instantiating a closure, per the closure instruction's
// "parent_local(reg,_)" / "parent_upvalue(i,_)" cases.
type UpvalueKind uint8

const (
	ParentLocal UpvalueKind = iota
	ParentUpvalue
)

// UpvalueDesc is one entry of a function's upvalue list: where, in the
// enclosing function, the captured cell comes from.
type UpvalueDesc struct {
	Kind UpvalueKind
	// Index is either the parent function's register (ParentLocal) or the
	// parent function's own upvalue index (ParentUpvalue).
	Index int
	Name  string
}

// Function carries the per-function-activation data the code generator
// needs: its locals (which double as the register-index source of truth),
// its upvalue descriptor list, and its calling-convention shape.
type Function struct {
	// Definition is the node that introduces this function's scope: an
	// *ast.Chunk (the implicit top-level vararg function), *ast.FuncExpr,
	// *ast.FuncDeclStmt, or *ast.LocalFuncStmt.
	Definition ast.Node

	// Params holds the parameter bindings, in declaration order; it is a
	// prefix of Locals.
	Params []*Binding
	// Locals holds every local binding ever declared in this function, in
	// declaration order, including parameters and loop variables. Register
	// reuse across sibling blocks means Locals is NOT the live set at any
	// given point, only the declaration history used for printing/debugging;
	// each Binding's own Index is its actual, possibly-reused register.
	Locals []*Binding
	// Upvalues holds this function's upvalue descriptors, appended in
	// first-use order; once assigned an index is never reshuffled.
	Upvalues []*UpvalueDesc

	ParamCount int
	IsVararg   bool

	// MaxRegister is the peak number of simultaneously live local registers,
	// used by the code generator to pre-size the register file below its own
	// temporaries.
	MaxRegister int

	// nextRegister is the stack-allocator cursor: it grows on bind, and is
	// restored to a block's entry mark on that block's exit so sibling
	// blocks can reuse released slots.
	nextRegister int

	// upvalueCache memoizes the Upvalue binding created for a given name, so
	// repeated references inside the same function reuse the same
	// descriptor instead of re-walking the enclosing functions every time.
	upvalueCache map[string]*Binding

	// loops counts how many loop bodies (while/repeat/numeric-for/generic-for)
	// currently enclose the resolver's position in this function, used to
	// reject a "break" outside of any loop.
	loops int
}

package compiler

import "github.com/mna/luar/lang/token"

// Instruction is one step of a compiled function's body. Unlike a
// conventional bytecode stream of flat opcode+operand pairs linked by
// jumps, control flow here is represented directly: a Test, WhileLoop,
// RepeatLoop, NumericFor or GenericFor carries its controlled statements
// as a nested []Instruction body rather than a jump target. This mirrors
// the register machine and structured control flow the language spec
// calls for, not a stack machine with a linear program counter.
//
// Every instruction operates on registers of the current function's
// activation record; register 0 is always the first parameter (or the
// first local, for a function with no parameters).
type Instruction interface {
	instr()
}

// LoadConstant loads a numeric or string constant, inlined directly in
// the instruction rather than looked up in a shared constant pool.
type LoadConstant struct {
	Dest  int
	Value any // int64, float64 or string
}

// LoadBool loads a boolean literal.
type LoadBool struct {
	Dest  int
	Value bool
}

// LoadNil sets Count consecutive registers, starting at Base, to nil.
type LoadNil struct {
	Base, Count int
}

// Move copies one register to another.
type Move struct {
	Dest, Src int
}

// GetGlobal reads a global by name from the running thread's environment.
type GetGlobal struct {
	Dest int
	Name string
}

// SetGlobal writes a global by name.
type SetGlobal struct {
	Name string
	Src  int
}

// GetUpvalue reads the current closure's Index'th upvalue cell.
type GetUpvalue struct {
	Dest, Index int
}

// SetUpvalue writes through the current closure's Index'th upvalue cell.
type SetUpvalue struct {
	Index, Src int
}

// GetOpenUpvalue reads register Reg through its cell: once a local has
// been captured by a nested closure, every access to it, even from the
// function that owns it, goes through the same cell so reads and writes
// stay coherent with the closure's view of it.
type GetOpenUpvalue struct {
	Dest, Reg int
}

// SetOpenUpvalue writes register Reg through its cell.
type SetOpenUpvalue struct {
	Reg, Src int
}

// NewTable creates an empty table in Dest.
type NewTable struct {
	Dest int
}

// GetTable reads Table[Key] using the generic, metatable-aware indexing
// path; Key is a register, not a name.
type GetTable struct {
	Dest, Table, Key int
}

// SetTable writes Table[Key] = Value using the generic indexing path.
type SetTable struct {
	Table, Key, Value int
}

// GetField reads Table[Name] where Name is a compile-time-known string
// key, e.g. "t.field".
type GetField struct {
	Dest, Table int
	Name        string
}

// SetField writes Table[Name] = Value.
type SetField struct {
	Table int
	Name  string
	Value int
}

// SetList bulk-copies Count registers, starting at Base, into Table's
// array part starting at 1-based index Offset. Count < 0 means "every
// register from Base up to however many values the preceding call or
// vararg actually produced" (the open tail of a table constructor).
type SetList struct {
	Table, Base, Count, Offset int
}

// BinOp applies a binary arithmetic, bitwise or comparison operator to
// two registers, storing the result in Dest. Op is one of the token
// package's operator tokens (PLUS, MINUS, STAR, SLASH, SLASHSLASH,
// PERCENT, CARET, AMP, TILDE, PIPE, LTLT, GTGT, EQEQ, NEQ, LT, LE, GT, GE).
type BinOp struct {
	Op          token.Token
	Dest, Left, Right int
}

// UnOp applies a unary operator (MINUS for negate, NOT, HASH for length,
// TILDE for bitwise not) to a single register.
type UnOp struct {
	Op        token.Token
	Dest, Src int
}

// Concat concatenates the contiguous registers First..Last (inclusive)
// into a single string, stored in Dest.
type Concat struct {
	Dest, First, Last int
}

// LogicalAnd evaluates Left; if it is falsy, that value is the result in
// Dest and Rhs is skipped; otherwise Rhs runs and its last instruction is
// expected to leave the result in Dest.
type LogicalAnd struct {
	Dest, Left int
	Rhs        []Instruction
}

// LogicalOr evaluates Left; if it is truthy, that value is the result in
// Dest and Rhs is skipped; otherwise Rhs runs and its last instruction is
// expected to leave the result in Dest.
type LogicalOr struct {
	Dest, Left int
	Rhs        []Instruction
}

// Test runs Then if register Reg holds a truthy value, Else otherwise.
type Test struct {
	Reg        int
	Then, Else []Instruction
}

// WhileLoop repeats: run Cond, stop unless register TestReg is truthy,
// else run Body and repeat. Cond is re-run on every iteration, since the
// condition is a live expression, not a one-time check.
type WhileLoop struct {
	Cond    []Instruction
	TestReg int
	Body    []Instruction
}

// RepeatLoop runs Body once, then repeats it as long as register TestReg
// (computed by the trailing instructions of Body, which include the
// until-condition) is falsy. The until condition shares Body's scope, so
// it is part of the same instruction sequence rather than a separate one.
type RepeatLoop struct {
	Body    []Instruction
	TestReg int
}

// NumericFor is "for Var = start, limit[, step] do Body end". Counter,
// Limit and Step are loop-owned registers, initialized once before the
// first iteration and stepped by the interpreter; Var is the visible
// loop variable's register, assigned from Counter at the start of each
// iteration.
type NumericFor struct {
	Counter, Limit, Step, Var int
	Body                      []Instruction
}

// GenericFor is "for Vars in IterFunc, State, Control do Body end".
// IterFunc is called with (State, Control) at the top of every iteration;
// its results are copied into Vars (padded with nil past what it
// returned), and Control is set to Vars[0] for the next call. The loop
// stops when IterFunc's first result is nil.
type GenericFor struct {
	IterFunc, State, Control int
	Vars                     []int
	Body                     []Instruction
}

// Break unwinds out of the innermost enclosing WhileLoop, RepeatLoop,
// NumericFor or GenericFor body.
type Break struct{}

// Closure instantiates Proto as a closure over the current activation,
// binding its upvalues per Proto.Upvalues, and stores it in Dest.
type Closure struct {
	Dest  int
	Proto *Prototype
}

// Call invokes R[Base] with the NArgs arguments in R[Base+1..Base+NArgs],
// replacing registers starting at Base with up to NResults results.
// NArgs < 0 means "every register from Base+1 up to the top of the stack
// left by a preceding open call or vararg"; NResults < 0 means "keep
// every result the callee returned".
type Call struct {
	Base, NArgs, NResults int
}

// TailCall is a Call in tail position: the current activation is
// replaced by the callee's rather than growing the call stack.
type TailCall struct {
	Base, NArgs int
}

// Self reads Obj[Name] into R[Base] and copies Obj into R[Base+1], the
// two-register setup a method call needs before its Call (Obj becomes
// the implicit first argument).
type Self struct {
	Base, Obj int
	Name      string
}

// Vararg copies Count of the current function's extra arguments into
// registers starting at Base. Count < 0 means "all of them".
type Vararg struct {
	Base, Count int
}

// Return ends the current activation, returning the Count registers
// starting at Base to the caller. Count < 0 means "every register from
// Base up to the top of the stack", the open-return form that forwards a
// trailing call's or vararg's results.
type Return struct {
	Base, Count int
}

// SourceLine records the source line and column the following
// instructions originated from, for stack traces and the diagnostic
// formatter's source snippet and caret.
type SourceLine struct {
	Line   int
	Column int
}

func (*LoadConstant) instr()   {}
func (*LoadBool) instr()       {}
func (*LoadNil) instr()        {}
func (*Move) instr()           {}
func (*GetGlobal) instr()      {}
func (*SetGlobal) instr()      {}
func (*GetUpvalue) instr()     {}
func (*SetUpvalue) instr()     {}
func (*GetOpenUpvalue) instr() {}
func (*SetOpenUpvalue) instr() {}
func (*NewTable) instr()       {}
func (*GetTable) instr()       {}
func (*SetTable) instr()       {}
func (*GetField) instr()       {}
func (*SetField) instr()       {}
func (*SetList) instr()        {}
func (*BinOp) instr()          {}
func (*UnOp) instr()           {}
func (*Concat) instr()         {}
func (*LogicalAnd) instr()     {}
func (*LogicalOr) instr()      {}
func (*Test) instr()           {}
func (*WhileLoop) instr()      {}
func (*RepeatLoop) instr()     {}
func (*NumericFor) instr()     {}
func (*GenericFor) instr()     {}
func (*Break) instr()          {}
func (*Closure) instr()        {}
func (*Call) instr()           {}
func (*TailCall) instr()       {}
func (*Self) instr()           {}
func (*Vararg) instr()         {}
func (*Return) instr()         {}
func (*SourceLine) instr()     {}

package scanner

import (
	"fmt"
	"io"
	"sort"

	"github.com/mna/luar/lang/token"
)

// ErrorKind classifies a lexing, parsing, or resolving diagnostic. The
// shared formatter (lang/machine/diag) picks a header and, for some
// kinds, a one-line suggestion from it.
type ErrorKind string

// Lex diagnostics, reported by lang/scanner.
const (
	KindUnexpectedCharacter ErrorKind = "unexpected_character"
	KindInvalidNumber       ErrorKind = "invalid_number"
	KindInvalidEscape       ErrorKind = "invalid_escape"
	KindUnclosedString      ErrorKind = "unclosed_string"
	KindUnclosedLongString  ErrorKind = "unclosed_long_string"
	KindUnclosedComment     ErrorKind = "unclosed_comment"
)

// Parse diagnostics, reported by lang/parser.
const (
	KindUnexpectedToken ErrorKind = "unexpected_token"
	KindMissingKeyword  ErrorKind = "missing_keyword"
	KindUnclosedGroup   ErrorKind = "unclosed_group"
)

// KindCompile marks a scope-resolution error, reported by lang/resolver: a
// name or control-flow invariant the compiler depends on was violated
// (e.g. a duplicate label, a break outside a loop, too many upvalues).
const KindCompile ErrorKind = "compile_error"

// KindIO marks a diagnostic that isn't really about the Lua source at all
// (the file couldn't be read), so it carries no useful source position.
const KindIO ErrorKind = "io_error"

// Error is a single lexing, parsing, or resolving error tied to a source
// position. It mirrors the shape of go/scanner.Error, but carries our own
// token.Position instead of go/token.Position, plus a Kind and the File it
// was raised against so the shared formatter can render a source snippet.
type Error struct {
	File *token.File
	Pos  token.Position
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	if e.Pos.Filename != "" || e.Pos.IsValid() {
		return e.Pos.String() + ": " + e.Msg
	}
	return e.Msg
}

// ErrorList is a list of *Error, sortable by source position. It is
// returned (as an error) by every function in this package and in
// lang/parser and lang/resolver that can fail at more than one position,
// so that callers get every error found instead of only the first one.
type ErrorList []*Error

// Add appends an error at the given position. Its signature matches the
// error handler callback Scanner.Init expects, so an ErrorList's Add
// method can be passed directly as that handler.
func (el *ErrorList) Add(file *token.File, pos token.Position, kind ErrorKind, msg string) {
	*el = append(*el, &Error{File: file, Pos: pos, Kind: kind, Msg: msg})
}

// Reset empties the list.
func (el *ErrorList) Reset() { *el = (*el)[:0] }

func (el ErrorList) Len() int      { return len(el) }
func (el ErrorList) Swap(i, j int) { el[i], el[j] = el[j], el[i] }
func (el ErrorList) Less(i, j int) bool {
	a, b := el[i].Pos, el[j].Pos
	if a.Filename != b.Filename {
		return a.Filename < b.Filename
	}
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	if a.Column != b.Column {
		return a.Column < b.Column
	}
	return el[i].Msg < el[j].Msg
}

// Sort sorts the list in place by position. Duplicate entries are kept.
func (el ErrorList) Sort() { sort.Sort(el) }

func (el ErrorList) Error() string {
	switch len(el) {
	case 0:
		return "no errors"
	case 1:
		return el[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", el[0].Error(), len(el)-1)
}

// Err returns el as an error if it has at least one entry, else nil.
func (el ErrorList) Err() error {
	if len(el) == 0 {
		return nil
	}
	return el
}

// Unwrap allows errors.Is/As to reach every individual *Error in the list.
func (el ErrorList) Unwrap() []error {
	errs := make([]error, len(el))
	for i, e := range el {
		errs[i] = e
	}
	return errs
}

// PrintError prints err to w, one line per entry if err is an ErrorList.
func PrintError(w io.Writer, err error) {
	if el, ok := err.(ErrorList); ok {
		for _, e := range el {
			fmt.Fprintf(w, "%s\n", e)
		}
		return
	}
	fmt.Fprintf(w, "%s\n", err)
}

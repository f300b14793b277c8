// Package diag formats lexing, parsing, resolving, and runtime errors for
// human consumption: a kind-specific header, the offending source
// position, a two-line source snippet with a caret under the offending
// column, a one-line suggestion for well-known error kinds, and (for
// runtime errors) the Lua call stack at the point the error was raised.
package diag

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mna/luar/lang/machine"
	"github.com/mna/luar/lang/scanner"
	"github.com/mna/luar/lang/token"
)

const (
	colorRed   = "\x1b[31m"
	colorBold  = "\x1b[1m"
	colorDim   = "\x1b[2m"
	colorReset = "\x1b[0m"
)

// Format renders err for display on w. If w is a terminal, the header,
// caret, and stack frames are colorized. It recognizes scanner.ErrorList,
// *scanner.Error (lexing, parsing, and resolving diagnostics) and the
// machine package's runtime error types; any other error is printed as a
// plain "error: <msg>" line.
func Format(w io.Writer, err error) {
	color := isTerminal(w)

	switch e := err.(type) {
	case scanner.ErrorList:
		for i, se := range e {
			if i > 0 {
				fmt.Fprintln(w)
			}
			formatScanner(w, se, color)
		}
	case *scanner.Error:
		formatScanner(w, e, color)
	default:
		formatMachine(w, err, color)
	}
}

func formatScanner(w io.Writer, e *scanner.Error, color bool) {
	writeHeader(w, scannerHeader(e.Kind), color)
	fmt.Fprintf(w, "%s\n", e.Error())
	writeSnippet(w, e.File, e.Pos.Line, e.Pos.Column, color)
	writeSuggestion(w, scannerSuggestion(e.Kind), color)
}

func formatMachine(w io.Writer, err error, color bool) {
	var kind machine.ErrorKind
	if k, ok := err.(machine.Kinded); ok {
		kind = k.ErrorKind()
	}
	writeHeader(w, machineHeader(err), color)

	stack := stackOf(err)
	if len(stack) > 0 {
		top := stack[len(stack)-1]
		fmt.Fprintf(w, "%s:%d:%d: %s\n", top.Source, top.Line, top.Column, err.Error())
		writeSnippet(w, top.File, top.Line, top.Column, color)
	} else {
		fmt.Fprintf(w, "%s\n", err.Error())
	}
	writeSuggestion(w, machineSuggestion(kind), color)

	for i := len(stack) - 1; i >= 0; i-- {
		if color {
			fmt.Fprintf(w, "%s\t%s%s\n", colorDim, stack[i].String(), colorReset)
		} else {
			fmt.Fprintf(w, "\t%s\n", stack[i].String())
		}
	}
}

func stackOf(err error) []machine.StackEntry {
	switch e := err.(type) {
	case *machine.TypeError:
		return e.Stack
	case *machine.RuntimeError:
		return e.Stack
	case *machine.AssertionError:
		return e.Stack
	case *machine.ArgumentError:
		return e.Stack
	case *machine.InternalError:
		return e.Stack
	}
	return nil
}

func machineHeader(err error) string {
	switch err.(type) {
	case *machine.TypeError:
		return "Runtime Type Error"
	case *machine.RuntimeError:
		return "Runtime Error"
	case *machine.AssertionError:
		return "Assertion Error"
	case *machine.ArgumentError:
		return "Argument Error"
	case *machine.InternalError:
		return "Internal Error"
	}
	return "Error"
}

func scannerHeader(kind scanner.ErrorKind) string {
	switch kind {
	case scanner.KindUnexpectedCharacter, scanner.KindInvalidNumber, scanner.KindInvalidEscape,
		scanner.KindUnclosedString, scanner.KindUnclosedLongString, scanner.KindUnclosedComment:
		return "Lex Error"
	case scanner.KindUnexpectedToken, scanner.KindMissingKeyword, scanner.KindUnclosedGroup:
		return "Parse Error"
	case scanner.KindCompile:
		return "Compile Error"
	}
	return "Error"
}

// scannerSuggestion returns a one-line hint for the lex/parse/resolve
// error kinds where a generic, always-true tip makes sense; kinds whose
// fix depends entirely on the message (most of them) return "".
func scannerSuggestion(kind scanner.ErrorKind) string {
	switch kind {
	case scanner.KindUnclosedString:
		return "add the missing closing quote before the end of the line"
	case scanner.KindUnclosedLongString:
		return "add a matching closing long bracket, e.g. ]] or ]=], for this string"
	case scanner.KindUnclosedComment:
		return "add a matching closing long bracket, e.g. ]] or ]=], for this comment"
	case scanner.KindInvalidEscape:
		return `valid escapes are \a \b \f \n \r \t \v \\ \" \' \xXX \ddd and \z`
	}
	return ""
}

// machineSuggestion returns a one-line hint for the runtime error kinds
// common enough to be worth a canned tip.
func machineSuggestion(kind machine.ErrorKind) string {
	switch kind {
	case machine.KindCallNotCallable:
		return "the value you're trying to call as a function is nil (or another non-callable value); check that it was assigned before this point"
	case machine.KindIndexNotIndexable:
		return "only tables (or values with an __index metamethod) can be indexed; check that the value isn't nil before indexing into it"
	case machine.KindArithType, machine.KindBitwiseType:
		return "arithmetic only works on numbers (and strings that look like numbers); check the value's type before using it in an expression"
	case machine.KindConcatType:
		return "only strings and numbers can be concatenated with ..; use tostring() to convert other values first"
	case machine.KindCompareType:
		return "< <= > >= only compare two numbers or two strings; mixed types need an explicit conversion"
	case machine.KindDivisionByZero, machine.KindModuloByZero:
		return "division and modulo by zero raise an error for integers and floats alike; guard the divisor before dividing"
	case machine.KindAssertionFailed:
		return "check the condition being asserted, or pass a more descriptive message as assert()'s second argument"
	case machine.KindBadArgument:
		return "check the argument's type and position against the function's documentation"
	case machine.KindStackOverflow:
		return "the call chain is too deep, usually from unbounded recursion; check for a missing base case"
	}
	return ""
}

func writeHeader(w io.Writer, header string, color bool) {
	if color {
		fmt.Fprintf(w, "%s%s%s%s\n", colorBold, colorRed, header, colorReset)
	} else {
		fmt.Fprintf(w, "%s\n", header)
	}
}

func writeSuggestion(w io.Writer, suggestion string, color bool) {
	if suggestion == "" {
		return
	}
	if color {
		fmt.Fprintf(w, "%shint:%s %s\n", colorDim, colorReset, suggestion)
	} else {
		fmt.Fprintf(w, "hint: %s\n", suggestion)
	}
}

// writeSnippet prints the line before the error (when there is one) and
// the error's own line, each prefixed by its line number, followed by a
// caret under the offending column. It prints nothing if file is nil or
// never had its source text recorded (token.File.SetSrc).
func writeSnippet(w io.Writer, file *token.File, line, col int, color bool) {
	if file == nil || line < 1 || !file.HasSrc() {
		return
	}
	if line > 1 {
		fmt.Fprintf(w, "%6d | %s\n", line-1, file.Line(line-1))
	}
	fmt.Fprintf(w, "%6d | %s\n", line, file.Line(line))

	if col < 1 {
		col = 1
	}
	caret := strings.Repeat(" ", col-1) + "^"
	gutter := strings.Repeat(" ", 6) + " | "
	if color {
		fmt.Fprintf(w, "%s%s%s%s\n", gutter, colorRed, caret, colorReset)
	} else {
		fmt.Fprintf(w, "%s%s\n", gutter, caret)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// FormatString is Format rendered to a plain string (no color), useful when
// the destination isn't known to be a terminal up front, e.g. for tests.
func FormatString(err error) string {
	var sb strings.Builder
	Format(&sb, err)
	return sb.String()
}

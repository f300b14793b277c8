package token

import "fmt"

// PosMode controls how much position information FormatPos renders.
type PosMode int

const (
	// PosNone renders nothing.
	PosNone PosMode = iota
	// PosLine renders only the line number.
	PosLine
	// PosLong renders "filename:line:column".
	PosLong
)

// FormatPos renders p according to mode, using file to resolve line/column.
// isStart is accepted for symmetry with callers that format a (start, end)
// pair but does not currently change the output.
func FormatPos(mode PosMode, file *File, p Pos, isStart bool) string {
	if mode == PosNone || file == nil {
		return ""
	}
	pos := file.Position(p)
	if mode == PosLine {
		return fmt.Sprintf("%d", pos.Line)
	}
	return pos.String()
}

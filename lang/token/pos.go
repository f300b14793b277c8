package token

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
)

// Pos is a compact encoding of a source position within a FileSet: a
// 1-based byte offset into the concatenation of every File registered with
// the set. The zero value, NoPos, means "no position".
//
// This mirrors the design of go/token.Pos: positions are cheap to carry
// around on every token and AST node (an int), and are only expanded to a
// full line/column Position on demand, via File.Position.
type Pos int

// NoPos is the zero Pos; it is never a valid position of a token.
const NoPos Pos = 0

// IsValid reports whether the position is known.
func (p Pos) IsValid() bool { return p != NoPos }

// Position describes a fully expanded source location.
type Position struct {
	Filename string
	Offset   int // 0-based byte offset
	Line     int // 1-based line number
	Column   int // 1-based column number (in bytes)
}

// IsValid reports whether the position is meaningful (has a line number).
func (p Position) IsValid() bool { return p.Line > 0 }

func (p Position) String() string {
	s := p.Filename
	if s == "" {
		s = "<input>"
	}
	if p.IsValid() {
		return fmt.Sprintf("%s:%d:%d", s, p.Line, p.Column)
	}
	return s
}

// File holds the line-offset table for a single source file registered in a
// FileSet, so that byte offsets can be translated to line/column pairs.
type File struct {
	set  *FileSet
	name string
	base int // Pos value of the first byte
	size int // file size in bytes

	mu    sync.Mutex
	lines []int  // offsets of the first byte of each line; lines[0] == 0
	src   []byte // set by SetSrc; nil until then, so Line always returns ""
}

// SetSrc records the raw source bytes behind the file, so the diagnostic
// formatter can recover a line's text for a snippet. It is optional:
// scanner.Scanner.Init calls it, but a File built without it (or whose
// SetSrc was never called) simply renders no snippet.
func (f *File) SetSrc(src []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.src = src
}

// HasSrc reports whether SetSrc has recorded the file's source bytes, so
// callers can tell "no source available" apart from a genuinely empty
// line before calling Line.
func (f *File) HasSrc() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.src != nil
}

// Line returns the text of the n'th (1-based) line, stripped of its
// trailing newline (and carriage return), or "" if no source was recorded
// or n is out of range.
func (f *File) Line(n int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.src == nil || n < 1 || n > len(f.lines) {
		return ""
	}
	start := f.lines[n-1]
	end := len(f.src)
	if n < len(f.lines) {
		end = f.lines[n] - 1 // exclude the '\n' the next line starts after
	}
	if start > end || start > len(f.src) {
		return ""
	}
	if end > len(f.src) {
		end = len(f.src)
	}
	return string(bytes.TrimSuffix(f.src[start:end], []byte("\r")))
}

// Name returns the file's name, as registered with the FileSet.
func (f *File) Name() string { return f.name }

// Size returns the file's size in bytes.
func (f *File) Size() int { return f.size }

// Base returns the Pos value assigned to the first byte of the file.
func (f *File) Base() int { return f.base }

// AddLine records that a new line begins at the given byte offset, which
// must be the offset of the byte right after a '\n'. Offsets must be added
// in increasing order; out-of-order or duplicate offsets are ignored.
func (f *File) AddLine(offset int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n := len(f.lines); (n == 0 || f.lines[n-1] < offset) && offset < f.size {
		f.lines = append(f.lines, offset)
	}
}

// Pos returns the Pos value for the given byte offset within the file.
func (f *File) Pos(offset int) Pos {
	return Pos(f.base + offset)
}

// Offset returns the byte offset within the file for the given Pos.
func (f *File) Offset(p Pos) int {
	return int(p) - f.base
}

// Position translates a Pos belonging to this file into a Position.
func (f *File) Position(p Pos) Position {
	if !p.IsValid() {
		return Position{Filename: f.name}
	}
	offset := f.Offset(p)
	line, col := f.lineCol(offset)
	return Position{Filename: f.name, Offset: offset, Line: line, Column: col}
}

func (f *File) lineCol(offset int) (line, col int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := sort.Search(len(f.lines), func(i int) bool { return f.lines[i] > offset }) - 1
	if i < 0 {
		i = 0
	}
	line = i + 1
	col = offset - f.lines[i] + 1
	return line, col
}

// FileSet manages a set of source files so that every token and AST node
// need only carry a single compact Pos, while still supporting
// multi-file diagnostics.
type FileSet struct {
	mu    sync.Mutex
	base  int
	files []*File
}

// NewFileSet creates a new, empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{base: 1}
}

// AddFile adds a new file of the given name and size to the set and returns
// a handle used to record line boundaries and translate positions. If
// base < 0, the next available base is used.
func (s *FileSet) AddFile(name string, base, size int) *File {
	s.mu.Lock()
	defer s.mu.Unlock()

	if base < 0 {
		base = s.base
	}
	f := &File{set: s, name: name, base: base, size: size, lines: []int{0}}
	s.files = append(s.files, f)
	s.base = base + size + 1
	return f
}

// File returns the file containing the position p, or nil if none does.
func (s *FileSet) File(p Pos) *File {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := sort.Search(len(s.files), func(i int) bool { return s.files[i].base > int(p) }) - 1
	if i < 0 || i >= len(s.files) {
		return nil
	}
	return s.files[i]
}

// Position translates a Pos into a full Position, looking up the owning
// file automatically.
func (s *FileSet) Position(p Pos) Position {
	if f := s.File(p); f != nil {
		return f.Position(p)
	}
	return Position{}
}

// PosInside reports whether test is entirely within the span ref (both
// given as (start, end) Pos pairs from a Spanner), inclusive of the
// boundaries. It is used by tooling that needs to know which AST node a
// source range belongs to.
func PosInside(ref, test Spanner) bool {
	rs, re := ref.Span()
	ts, te := test.Span()
	return rs <= ts && te <= re
}

// Spanner is implemented by anything that reports a start and end Pos.
type Spanner interface {
	Span() (start, end Pos)
}

// PosAdjacent reports whether test is close enough to ref to be considered
// its comment: on the same line, or on the line immediately following
// (trailing/leading comment), with no blank line between them. f resolves
// line numbers for both spans.
func PosAdjacent(ref, test Spanner, f *File) bool {
	rs, re := ref.Span()
	ts, te := test.Span()

	if rs <= ts && ts <= re {
		return true
	}
	if ts <= rs && rs <= te {
		return true
	}

	var nearRef, nearTest Pos
	if ts >= re {
		nearRef, nearTest = re, ts
	} else {
		nearRef, nearTest = rs, te
	}
	refLine := f.Position(nearRef).Line
	testLine := f.Position(nearTest).Line
	d := testLine - refLine
	if d < 0 {
		d = -d
	}
	return d <= 1
}

package ast

import (
	"fmt"
	"os"
	"strings"

	"github.com/mna/luar/lang/token"
)

type (
	// Chunk is the root of a parsed Lua source file: a Block plus the
	// chunk's name and the EOF position, which gives a valid span even for
	// an empty file.
	Chunk struct {
		// Name is the chunk's name, usually the file path; it may be empty.
		Name string

		// Comments lists every comment found while scanning the chunk, in
		// source order, filled only if the parser was asked to collect them.
		Comments []*Comment

		Block *Block
		EOF   token.Pos

		// Resolved is filled by the resolver with a *resolver.Function
		// describing the chunk's implicit top-level vararg function, kept as
		// `any` to avoid an import cycle between ast and resolver.
		Resolved any
	}

	// Comment represents a single line or long comment.
	Comment struct {
		// Node is the AST node this comment is most likely attached to, filled
		// only if comment collection was requested.
		Node     Node
		Start    token.Pos
		Raw, Val string
	}

	// Block is an ordered sequence of statements, such as the body of a
	// chunk, function, or control-flow statement.
	Block struct {
		// Start and End are tracked explicitly because a block may be empty
		// (zero statements) yet still span source text (e.g. "do end").
		Start token.Pos
		End   token.Pos
		Stmts []Stmt
	}
)

func (n *Chunk) Format(f fmt.State, verb rune) {
	lbl := "chunk"
	if n.Name != "" {
		lbl += " " + strings.ReplaceAll(n.Name, string(os.PathSeparator), "/")
	}
	format(f, verb, n, lbl, nil)
}
func (n *Chunk) Span() (start, end token.Pos) {
	if n.Block != nil {
		return n.Block.Span()
	}
	return n.EOF, n.EOF
}
func (n *Chunk) Walk(v Visitor) {
	if n.Block != nil {
		Walk(v, n.Block)
	}
}

func (n *Comment) Format(f fmt.State, verb rune) { format(f, verb, n, "comment "+n.Val, nil) }
func (n *Comment) Span() (start, end token.Pos)  { return n.Start, n.Start + token.Pos(len(n.Raw)) }
func (n *Comment) Walk(_ Visitor)                {}

func (n *Block) Format(f fmt.State, verb rune) {
	format(f, verb, n, "block", map[string]int{"stmts": len(n.Stmts)})
}
func (n *Block) Span() (start, end token.Pos) { return n.Start, n.End }
func (n *Block) Walk(v Visitor) {
	for _, s := range n.Stmts {
		Walk(v, s)
	}
}

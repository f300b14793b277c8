package ast

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mna/luar/lang/token"
)

// Printer pretty-prints an AST as an indented tree, one node per line.
type Printer struct {
	Output io.Writer

	// Pos controls how much position information is printed alongside each
	// node.
	Pos token.PosMode

	// NodeFmt is the format verb used to render each node; defaults to "%v".
	NodeFmt string
}

// Print pretty-prints the AST rooted at n. If n is a *Chunk with collected
// comments, each comment is printed under the node it is attached to. file
// is required whenever p.Pos != token.PosNone.
func (p *Printer) Print(n Node, file *token.File) error {
	if file == nil && p.Pos != token.PosNone {
		return errors.New("file must be provided to print positions")
	}

	pp := &printer{
		w:       p.Output,
		pos:     p.Pos,
		nodeFmt: p.NodeFmt,
		file:    file,
	}
	if pp.nodeFmt == "" {
		pp.nodeFmt = "%v"
	}

	if ch, ok := n.(*Chunk); ok && len(ch.Comments) > 0 {
		m := make(map[Node][]*Comment, len(ch.Comments))
		for _, c := range ch.Comments {
			m[c.Node] = append(m[c.Node], c)
		}
		pp.comments = m
	}

	Walk(pp, n)
	return pp.err
}

type printer struct {
	w        io.Writer
	pos      token.PosMode
	nodeFmt  string
	comments map[Node][]*Comment
	file     *token.File
	depth    int
	err      error
}

func (p *printer) Visit(n Node, dir VisitDirection) Visitor {
	if dir == VisitExit || p.err != nil {
		p.depth--
		return nil
	}

	p.depth++
	p.printNode(n, p.depth-1)
	p.printNodeComments(n, p.depth)
	return p
}

func (p *printer) printNode(n Node, indent int) {
	if p.err != nil {
		return
	}

	format := "%s"
	args := []interface{}{strings.Repeat(". ", indent)}
	if p.pos != token.PosNone {
		format += "[%s:%s] "
		start, end := n.Span()
		args = append(args,
			token.FormatPos(p.pos, p.file, start, true),
			token.FormatPos(p.pos, p.file, end, false),
		)
	}
	format += p.nodeFmt + "\n"
	args = append(args, n)

	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) printNodeComments(n Node, indent int) {
	for _, c := range p.comments[n] {
		p.printNode(c, indent)
	}
}

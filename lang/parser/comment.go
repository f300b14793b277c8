package parser

import (
	"github.com/mna/luar/lang/ast"
	"github.com/mna/luar/lang/token"
)

// processComments builds chunk.Comments from every comment the scanner
// skipped while tokenizing this chunk, associating each one with the AST
// node it most likely documents.
func (p *parser) processComments(chunk *ast.Chunk) {
	if len(p.scanner.Comments) == 0 {
		return
	}

	comments := make([]*ast.Comment, len(p.scanner.Comments))
	var av adjacentVisitor
	for i, cv := range p.scanner.Comments {
		c := &ast.Comment{Start: cv.Pos, Raw: cv.Raw, Val: cv.Str}

		av.init(c, p.file)
		ast.Walk(&av, chunk)
		if av.lastAdjacent != nil {
			c.Node = av.lastAdjacent
		} else {
			c.Node = chunk
		}
		comments[i] = c
	}
	chunk.Comments = comments
}

// adjacentVisitor finds the statement closest to a comment, so the comment
// can be rendered alongside the code it documents.
type adjacentVisitor struct {
	comment      *ast.Comment
	lastAdjacent ast.Node
	file         *token.File
}

func (v *adjacentVisitor) init(c *ast.Comment, file *token.File) {
	v.comment = c
	v.file = file
	v.lastAdjacent = nil
}

func (v *adjacentVisitor) Visit(n ast.Node, dir ast.VisitDirection) ast.Visitor {
	if dir == ast.VisitExit {
		return nil
	}

	// only look for adjacent nodes that are statements (i.e. do not
	// associate a comment with an identifier or a literal expression)
	if _, ok := n.(ast.Stmt); !ok {
		return v
	}

	if token.PosAdjacent(n, v.comment, v.file) {
		v.lastAdjacent = n
		return v
	}
	return nil
}

package parser

import (
	"github.com/mna/luar/lang/ast"
	"github.com/mna/luar/lang/token"
)

func (p *parser) parseChunk() *ast.Chunk {
	var chunk ast.Chunk
	chunk.Block = p.parseBlock()
	chunk.EOF = p.expect(token.EOF)

	if p.parseComments {
		p.processComments(&chunk)
	}
	return &chunk
}

// parseBlock parses a sequence of statements until one of endToks (or EOF)
// is seen. A block-ending statement (return/break/goto) may only be the
// last statement; anything after one is flagged as an error.
func (p *parser) parseBlock(endToks ...token.Token) *ast.Block {
	var block ast.Block
	var list []ast.Stmt

	block.Start = p.val.Pos

	// EOF is always an end token
	endToks = append(endToks, token.EOF)

	var ending ast.Stmt
	var endingReported bool
	for !tokenIn(p.tok, endToks...) {
		if stmt := p.parseStmt(); stmt != nil {
			if ending != nil {
				if !endingReported {
					pos, _ := stmt.Span()
					p.errorExpected(pos, "end of block")
					endingReported = true
				}
			} else if stmt.BlockEnding() {
				ending = stmt
			}
			list = append(list, stmt)
		}
	}

	block.Stmts = list
	block.End = p.val.Pos
	return &block
}

// parseStmt parses a single statement, returning nil for a statement to
// ignore/skip (the ";" statement).
func (p *parser) parseStmt() (stmt ast.Stmt) {
	start := p.val.Pos

	defer func() {
		if err := recover(); err != nil {
			if err == errPanicMode {
				// synchronize to the next safe point and generate a BadStmt for
				// the interval.
				stmt = &ast.BadStmt{
					Start: start,
					End:   p.syncAfterError(),
				}
				return
			}
			panic(err)
		}
	}()

	switch p.tok {
	case token.SEMI:
		// ignore empty statements
		p.advance()
		return nil

	case token.COLONCOLON:
		return p.parseLabelStmt()

	case token.BREAK:
		return p.parseBreakStmt()

	case token.GOTO:
		return p.parseGotoStmt()

	case token.DO:
		return p.parseDoStmt()

	case token.WHILE:
		return p.parseWhileStmt()

	case token.REPEAT:
		return p.parseRepeatStmt()

	case token.IF:
		return p.parseIfStmt()

	case token.FOR:
		return p.parseForStmt()

	case token.FUNCTION:
		return p.parseFuncDeclStmt()

	case token.LOCAL:
		return p.parseLocalStmt()

	case token.RETURN:
		return p.parseReturnStmt()

	default:
		return p.parseExprOrAssignStmt()
	}
}

func tokenIn(t token.Token, toks ...token.Token) bool {
	for _, tok := range toks {
		if t == tok {
			return true
		}
	}
	return false
}

type syncMode int

const (
	syncAfter syncMode = iota
	syncAt
)

// syncToks lists tokens safe to resynchronize on after a parse error: every
// keyword that can only appear at the start of a statement. FUNCTION is
// deliberately excluded: unlike the others, it can also open an anonymous
// function expression (e.g. the RHS of "x = function() ... end"), so
// seeing it while synchronizing doesn't reliably mean a new statement
// started.
var syncToks = map[token.Token]syncMode{
	token.SEMI:       syncAfter,
	token.END:        syncAfter,
	token.UNTIL:      syncAfter,
	token.IF:         syncAt,
	token.WHILE:      syncAt,
	token.REPEAT:     syncAt,
	token.DO:         syncAt,
	token.FOR:        syncAt,
	token.LOCAL:      syncAt,
	token.COLONCOLON: syncAt,
	token.RETURN:     syncAt,
	token.BREAK:      syncAt,
	token.GOTO:       syncAt,
}

func (p *parser) syncAfterError() token.Pos {
	for p.tok != token.EOF {
		if mode, ok := syncToks[p.tok]; ok {
			if mode == syncAfter {
				p.advance()
				if p.tok == token.EOF {
					// EOF is 1 past the end of the file
					return p.val.Pos - 1
				}
			}
			return p.val.Pos
		}
		p.advance()
	}
	return p.val.Pos - 1 // EOF is 1 past the end of the file
}

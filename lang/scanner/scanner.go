// Some of the scanner package is adapted from the Go source code:
// https://cs.opensource.google/go/go/+/refs/tags/go1.22.1:src/go/scanner/scanner.go
//
// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scanner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mna/luar/lang/token"
)

// TokenAndValue combines the token type with the token value in the same
// struct, as returned repeatedly by Scan.
type TokenAndValue struct {
	Token token.Token
	Value token.Value
}

// ScanFiles is a helper function that tokenizes the source files and returns
// the list of tokens, grouped by the file at the same index, and produces any
// error encountered. The error, if non-nil, implements Unwrap() []error,
// unless it is ctx's error because ctx is done before every file is scanned.
func ScanFiles(ctx context.Context, files ...string) (*token.FileSet, [][]TokenAndValue, error) {
	if len(files) == 0 {
		return nil, nil, nil
	}

	var (
		s      Scanner
		tokVal token.Value
		el     ErrorList
	)

	fs := token.NewFileSet()
	tokensByFile := make([][]TokenAndValue, len(files))
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return fs, tokensByFile, err
		}

		b, err := os.ReadFile(file)
		if err != nil {
			el.Add(nil, token.Position{Filename: file}, KindIO, err.Error())
			continue
		}

		fsf := fs.AddFile(file, -1, len(b))
		s.Init(fsf, b, el.Add)
		for {
			tok := s.Scan(&tokVal)
			tokensByFile[i] = append(tokensByFile[i], TokenAndValue{Token: tok, Value: tokVal})
			if tok == token.EOF {
				break
			}
		}
	}
	el.Sort()
	return fs, tokensByFile, el.Err()
}

// Scanner tokenizes a single Lua source file for the parser to consume. It
// never returns a token for a comment: line and long comments are skipped
// internally, alongside whitespace. Skipped comments are still recorded in
// Comments, in source order, for callers that want to re-associate them
// with AST nodes (see lang/parser's Comments mode).
type Scanner struct {
	// immutable state after Init
	file *token.File
	src  []byte
	err  func(file *token.File, pos token.Position, kind ErrorKind, msg string)

	// Comments accumulates every comment skipped by Scan, in source order.
	// Str holds the comment's text with the leading "--" (and, for long
	// comments, the brackets) stripped.
	Comments []token.Value

	// mutable scanning state
	sb          strings.Builder // writes to Builder never fail, errors ignored
	invalidByte byte            // set when cur == RuneError due to a bad utf8 sequence
	cur         rune            // current character, -1 at EOF
	off         int             // byte offset of cur
	roff        int             // byte offset right after cur
}

// byte order mark, only permitted as the very first bytes of a file
var bom = [3]byte{0xEF, 0xBB, 0xBF}

// Init initializes the scanner to tokenize a new file. It panics if the
// file's recorded size does not match len(src).
func (s *Scanner) Init(file *token.File, src []byte, errHandler func(*token.File, token.Position, ErrorKind, string)) {
	if file.Size() != len(src) {
		panic(fmt.Sprintf("file size (%d) does not match src len (%d)", file.Size(), len(src)))
	}

	s.file = file
	s.src = src
	s.err = errHandler
	file.SetSrc(src)

	s.sb.Reset()
	s.Comments = nil
	s.invalidByte = 0
	s.cur = ' '
	s.off = 0
	s.roff = 0

	if len(src) >= len(bom) && bytes.Equal(src[:len(bom)], bom[:]) {
		s.off += len(bom)
		s.roff += len(bom)
	}
	// a leading "#!" line (shebang) is skipped, as standalone Lua interpreters do
	if len(src)-s.roff >= 2 && src[s.roff] == '#' && src[s.roff+1] == '!' {
		for s.roff < len(src) && src[s.roff] != '\n' {
			s.roff++
		}
	}
	s.advance()
}

// peek returns the byte following the most recently read character without
// advancing the scanner. Returns 0 at EOF.
func (s *Scanner) peek() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

func (s *Scanner) advance() {
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		if s.cur == '\n' {
			s.file.AddLine(s.off)
		}
		s.cur = -1
		return
	}

	s.off = s.roff
	if s.cur == '\n' {
		s.file.AddLine(s.off)
	}

	s.invalidByte = 0
	r, w := rune(s.src[s.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(s.src[s.roff:])
		if r == utf8.RuneError && w == 1 {
			s.error(s.off, KindUnexpectedCharacter, "illegal UTF-8 encoding")
			s.invalidByte = s.src[s.roff]
		}
	}
	s.roff += w
	s.cur = r
}

func (s *Scanner) error(off int, kind ErrorKind, msg string) {
	if s.err != nil {
		s.err(s.file, s.file.Position(s.file.Pos(off)), kind, msg)
	}
}

func (s *Scanner) errorf(off int, kind ErrorKind, format string, args ...any) {
	s.error(off, kind, fmt.Sprintf(format, args...))
}

// advanceIf advances past the current character if it is b, reporting
// whether it did.
func (s *Scanner) advanceIf(b byte) bool {
	if s.cur == rune(b) {
		s.advance()
		return true
	}
	return false
}

// Scan returns the next token in the source file, skipping whitespace and
// comments. At end of file it returns token.EOF forever.
func (s *Scanner) Scan(tokVal *token.Value) (tok token.Token) {
	for {
		s.skipWhitespace()
		if s.cur == '-' && s.peek() == '-' {
			cpos := s.file.Pos(s.off)
			s.advance()
			s.advance()
			lit, val := s.comment()
			s.Comments = append(s.Comments, token.Value{Pos: cpos, Raw: lit, Str: val})
			continue
		}
		break
	}

	pos := s.file.Pos(s.off)
	start := s.off

	switch cur := s.cur; {
	case isLetter(cur):
		lit := s.ident()
		tok = token.LookupKw(lit)
		*tokVal = token.Value{Raw: lit, Pos: pos}

	case isDecimal(cur) || cur == '.' && isDecimal(rune(s.peek())):
		var lit string
		tok, lit = s.number()
		*tokVal = token.Value{Raw: lit, Pos: pos}
		if tok == token.INT {
			v, err := numberToInt(lit)
			if err != nil {
				s.error(start, KindInvalidNumber, "integer literal value out of range")
			}
			tokVal.Int = v
		} else if tok == token.FLOAT {
			v, err := numberToFloat(lit)
			if err != nil {
				s.error(start, KindInvalidNumber, "malformed float literal")
			}
			tokVal.Float = v
		}

	default:
		s.advance() // always make progress
		isString := false
		switch cur {
		case '"', '\'':
			tok = token.STRING
			lit, val := s.shortString(cur)
			*tokVal = token.Value{Raw: lit, Pos: pos, Str: val}
			isString = true

		case '[':
			if s.cur == '=' || s.cur == '[' {
				tok = token.STRING
				lit, val := s.longString()
				*tokVal = token.Value{Raw: lit, Pos: pos, Str: val}
				isString = true
				break
			}
			tok = token.LBRACK

		case '(':
			tok = token.LPAREN
		case ')':
			tok = token.RPAREN
		case '{':
			tok = token.LBRACE
		case '}':
			tok = token.RBRACE
		case ']':
			tok = token.RBRACK
		case '#':
			tok = token.HASH
		case ';':
			tok = token.SEMI
		case ',':
			tok = token.COMMA
		case '+':
			tok = token.PLUS
		case '*':
			tok = token.STAR
		case '%':
			tok = token.PERCENT
		case '^':
			tok = token.CARET
		case '&':
			tok = token.AMP
		case '|':
			tok = token.PIPE

		case '-':
			tok = token.MINUS

		case '=':
			tok = token.EQ
			if s.advanceIf('=') {
				tok = token.EQEQ
			}

		case '~':
			tok = token.TILDE
			if s.advanceIf('=') {
				tok = token.NEQ
			}

		case '<':
			tok = token.LT
			if s.advanceIf('=') {
				tok = token.LE
			} else if s.advanceIf('<') {
				tok = token.LTLT
			}

		case '>':
			tok = token.GT
			if s.advanceIf('=') {
				tok = token.GE
			} else if s.advanceIf('>') {
				tok = token.GTGT
			}

		case '/':
			tok = token.SLASH
			if s.advanceIf('/') {
				tok = token.SLASHSLASH
			}

		case ':':
			tok = token.COLON
			if s.advanceIf(':') {
				tok = token.COLONCOLON
			}

		case '.':
			tok = token.DOT
			if s.advanceIf('.') {
				tok = token.DOTDOT
				if s.advanceIf('.') {
					tok = token.DOTDOTDOT
				}
			}

		case -1:
			tok = token.EOF

		default:
			if cur == utf8.RuneError && s.invalidByte > 0 {
				cur = rune(s.invalidByte)
				s.invalidByte = 0
			}
			s.errorf(start, KindUnexpectedCharacter, "unexpected symbol near %#U", cur)
			tok = token.ILLEGAL
		}
		if !isString {
			*tokVal = token.Value{Raw: string(s.src[start:s.off]), Pos: pos}
		}
	}
	return tok
}

func (s *Scanner) ident() string {
	start := s.off
	for isLetter(s.cur) || isDigit(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

func (s *Scanner) skipWhitespace() {
	for isWhitespace(s.cur) {
		s.advance()
	}
}

func isWhitespace(rn rune) bool {
	return rn == ' ' || rn == '\t' || rn == '\n' || rn == '\r' || rn == '\v' || rn == '\f'
}

func isLetter(rn rune) bool {
	return 'a' <= rn && rn <= 'z' ||
		'A' <= rn && rn <= 'Z' ||
		rn == '_' ||
		rn >= utf8.RuneSelf && unicode.IsLetter(rn)
}

func isDigit(rn rune) bool {
	return isDecimal(rn) || rn >= utf8.RuneSelf && unicode.IsDigit(rn)
}

// Package luar embeds the Lua 5.3 virtual machine implemented in
// lang/machine behind a host-facing API: construct a State, optionally
// open the standard library, and evaluate source or call into Lua
// functions by dotted path.
package luar

import (
	"context"
	"fmt"

	"github.com/mna/luar/lang/ast"
	"github.com/mna/luar/lang/compiler"
	"github.com/mna/luar/lang/machine"
	"github.com/mna/luar/lang/parser"
	"github.com/mna/luar/lang/resolver"
	"github.com/mna/luar/lang/token"
)

// State is a Lua execution environment: a thread, its global table, and a
// private side channel the embedded code cannot observe. The zero value is
// not usable; construct one with NewState.
type State struct {
	th      *machine.Thread
	private map[string]interface{}
}

// NewState returns a State with an empty global table and no standard
// library installed.
func NewState() *State {
	return &State{th: machine.NewThread()}
}

// OpenLibs installs the standard library on s, excluding any library named
// in exclude (e.g. "os" to sandbox file/process access).
func (s *State) OpenLibs(exclude ...string) {
	machine.OpenLibs(s.th, exclude...)
}

// Thread returns the underlying machine.Thread, for callers that need
// lower-level access than this package exposes.
func (s *State) Thread() *machine.Thread {
	return s.th
}

// Chunk is an immutable, already-compiled function prototype, the result
// of LoadChunk. It can be run any number of times with EvalChunk.
type Chunk struct {
	proto *compiler.Prototype
}

// Eval lexes, parses, compiles and runs source as a chunk named name,
// returning the decoded results of its top-level return statement, if any.
func Eval(ctx context.Context, s *State, name string, source []byte, args ...interface{}) ([]interface{}, error) {
	chunk, err := LoadChunk(ctx, name, source)
	if err != nil {
		return nil, err
	}
	return EvalChunk(ctx, s, chunk, args...)
}

// LoadChunk lexes, parses, resolves and compiles source into a Chunk,
// without executing it.
func LoadChunk(ctx context.Context, name string, source []byte) (*Chunk, error) {
	proto, err := compileBytes(ctx, name, source)
	if err != nil {
		return nil, err
	}
	return &Chunk{proto: proto}, nil
}

// EvalChunk runs chunk on s, with args as its top-level varargs, returning
// the decoded results of its top-level return statement, if any.
func EvalChunk(ctx context.Context, s *State, chunk *Chunk, args ...interface{}) ([]interface{}, error) {
	vargs := make([]machine.Value, len(args))
	for i, a := range args {
		v, err := encode(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		vargs[i] = v
	}

	results, err := s.th.RunChunk(ctx, chunk.proto, vargs)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, len(results))
	for i, r := range results {
		out[i] = decode(r)
	}
	return out, nil
}

func compileBytes(ctx context.Context, name string, source []byte) (*compiler.Prototype, error) {
	fs := token.NewFileSet()
	ch, err := parser.ParseChunk(ctx, 0, fs, name, source)
	if err != nil {
		return nil, err
	}
	chunks := []*ast.Chunk{ch}
	if err := resolver.ResolveFiles(ctx, fs, chunks, 0); err != nil {
		return nil, err
	}
	protos := compiler.CompileFiles(ctx, fs, chunks)
	if len(protos) == 0 {
		return nil, fmt.Errorf("%s: nothing to compile", name)
	}
	return protos[0], nil
}

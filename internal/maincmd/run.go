package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/luar/lang/compiler"
	"github.com/mna/luar/lang/machine"
	"github.com/mna/luar/lang/machine/diag"
	"github.com/mna/luar/lang/parser"
	"github.com/mna/luar/lang/resolver"
	"github.com/mna/mainer"
)

// Run compiles and executes the chunk named by the first argument, passing
// any remaining arguments as the chunk's varargs (as strings).
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return RunFile(ctx, stdio, args[0], args[1:])
}

func RunFile(ctx context.Context, stdio mainer.Stdio, file string, scriptArgs []string) error {
	proto, err := compileFile(ctx, stdio, file)
	if err != nil {
		return err
	}

	th := machine.NewThread()
	th.Stdout = stdio.Stdout
	th.Stderr = stdio.Stderr
	th.Stdin = stdio.Stdin
	machine.OpenLibs(th)

	vargs := make([]machine.Value, len(scriptArgs))
	for i, a := range scriptArgs {
		vargs[i] = machine.String(a)
	}

	results, rerr := th.RunChunk(ctx, proto, vargs)
	if rerr != nil {
		diag.Format(stdio.Stderr, rerr)
		return rerr
	}
	for _, r := range results {
		fmt.Fprintln(stdio.Stdout, r.String())
	}
	return nil
}

// compileFile runs the scan/parse/resolve/compile pipeline on a single
// source file, reporting any phase's errors to stdio.Stderr.
func compileFile(ctx context.Context, stdio mainer.Stdio, file string) (*compiler.Prototype, error) {
	fs, chunks, perr := parser.ParseFiles(ctx, 0, file)
	if perr != nil {
		diag.Format(stdio.Stderr, perr)
		return nil, perr
	}

	var resolveMode resolver.Mode
	if rerr := resolver.ResolveFiles(ctx, fs, chunks, resolveMode); rerr != nil {
		diag.Format(stdio.Stderr, rerr)
		return nil, rerr
	}

	protos := compiler.CompileFiles(ctx, fs, chunks)
	if len(protos) == 0 {
		return nil, fmt.Errorf("%s: nothing to compile", file)
	}
	return protos[0], nil
}

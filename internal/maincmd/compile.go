package maincmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mna/luar/lang/compiler"
	"github.com/mna/mainer"
)

// Compile runs the scanner, parser, resolver and code generator over the
// given files and prints the resulting function prototypes.
func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	for _, file := range args {
		proto, err := compileFile(ctx, stdio, file)
		if err != nil {
			return err
		}
		printProto(stdio.Stdout, proto, 0)
	}
	return nil
}

func printProto(w io.Writer, p *compiler.Prototype, depth int) {
	indent := strings.Repeat("  ", depth)
	name := p.Name
	if name == "" {
		name = "<anonymous>"
	}
	fmt.Fprintf(w, "%sfunction %s (%s:%d) params=%d vararg=%t maxreg=%d\n",
		indent, name, p.Source, p.Line, p.NumParams, p.IsVararg, p.MaxRegister)
	for _, instr := range p.Code {
		fmt.Fprintf(w, "%s  %#v\n", indent, instr)
	}
	for _, nested := range p.Protos {
		printProto(w, nested, depth+1)
	}
}

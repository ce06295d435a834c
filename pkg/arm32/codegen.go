package arm32

import (
	"fmt"
	"io"

	"github.com/minic-lang/minicc/pkg/ir"
	"github.com/minic-lang/minicc/pkg/regalloc"
	"github.com/minic-lang/minicc/pkg/types"
)

// CodeGenerator emits a whole module as GNU as ARM32 assembly
type CodeGenerator struct {
	w      io.Writer
	showIR bool
}

// NewCodeGenerator creates a generator writing to w
func NewCodeGenerator(w io.Writer) *CodeGenerator {
	return &CodeGenerator{w: w}
}

// SetShowIR makes each function carry its linear IR as comments
func (c *CodeGenerator) SetShowIR(show bool) { c.showIR = show }

// EmitModule outputs directives, globals and every function. The
// register assigner must have run over the module first.
func (c *CodeGenerator) EmitModule(m *ir.Module) error {
	fmt.Fprintf(c.w, "\t.arch\tarmv7-a\n")

	c.emitGlobals(m)

	fmt.Fprintf(c.w, "\t.text\n")
	for _, f := range m.Functions() {
		if err := c.emitFunction(f); err != nil {
			return err
		}
	}
	return nil
}

// emitGlobals puts initialized globals in .data and BSS globals in
// .comm blocks
func (c *CodeGenerator) emitGlobals(m *ir.Module) {
	var dataGlobals, bssGlobals []*ir.GlobalVariable
	for _, g := range m.Globals() {
		if g.InBSS() {
			bssGlobals = append(bssGlobals, g)
		} else {
			dataGlobals = append(dataGlobals, g)
		}
	}

	if len(dataGlobals) > 0 {
		fmt.Fprintf(c.w, "\t.data\n")
		for _, g := range dataGlobals {
			fmt.Fprintf(c.w, "\t.global\t%s\n", g.Name())
			fmt.Fprintf(c.w, "\t.align\t2\n")
			fmt.Fprintf(c.w, "%s:\n", g.Name())
			fmt.Fprintf(c.w, "\t.word\t%d\n", g.InitValue().Val)
		}
	}

	for _, g := range bssGlobals {
		fmt.Fprintf(c.w, "\t.comm\t%s, %d, 4\n", g.Name(), globalSize(g))
	}

	if len(m.Globals()) > 0 {
		fmt.Fprintln(c.w)
	}
}

func globalSize(g *ir.GlobalVariable) int32 {
	if g.IsArray() {
		return types.SizeOf(types.Array(types.Int32(), g.ArrayDims()))
	}
	return 4
}

// emitFunction runs the selector over one function and prints the
// result between the symbol directives
func (c *CodeGenerator) emitFunction(f *ir.Function) error {
	iloc := NewILoc()
	alloc := regalloc.NewSimpleRegisterAllocator()
	sel := NewSelector(f, iloc, alloc)
	sel.SetShowIR(c.showIR)
	if err := sel.Run(); err != nil {
		return err
	}

	fmt.Fprintf(c.w, "\t.align\t2\n")
	fmt.Fprintf(c.w, "\t.global\t%s\n", f.Name())
	fmt.Fprintf(c.w, "\t.type\t%s, %%function\n", f.Name())
	fmt.Fprintf(c.w, "%s:\n", f.Name())

	for _, line := range iloc.Lines() {
		fmt.Fprintln(c.w, line)
	}

	fmt.Fprintf(c.w, "\t.size\t%s, .-%s\n", f.Name(), f.Name())
	fmt.Fprintln(c.w)
	return nil
}

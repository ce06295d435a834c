package ir

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs the linear IR in its stable textual form
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new linear-IR printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintModule outputs the global declarations followed by every
// function definition
func (p *Printer) PrintModule(m *Module) {
	for _, g := range m.Globals() {
		p.printGlobal(g)
	}
	if len(m.Globals()) > 0 {
		fmt.Fprintln(p.w)
	}
	for i, f := range m.Functions() {
		if i > 0 {
			fmt.Fprintln(p.w)
		}
		p.PrintFunction(f)
	}
}

// printGlobal outputs one declare line. Initialized globals carry an
// "= literal" suffix; BSS globals omit it.
func (p *Printer) printGlobal(g *GlobalVariable) {
	fmt.Fprintf(p.w, "declare %s %s", g.Type().String(), g.IRName())
	if g.IsArray() {
		for _, d := range g.ArrayDims() {
			fmt.Fprintf(p.w, "[%d]", d)
		}
	}
	if init := g.InitValue(); init != nil {
		fmt.Fprintf(p.w, " = %s", init.IRName())
	}
	fmt.Fprintln(p.w)
}

// PrintFunction outputs one define block
func (p *Printer) PrintFunction(f *Function) {
	params := make([]string, 0, len(f.Params()))
	for _, fp := range f.Params() {
		params = append(params, formalParamString(fp))
	}
	fmt.Fprintf(p.w, "define %s %s(%s) {\n",
		f.ReturnType().String(), f.IRName(), strings.Join(params, ", "))

	for _, inst := range f.Code() {
		if inst.Op == OpLabel {
			fmt.Fprintf(p.w, "%s\n", inst.String())
		} else {
			fmt.Fprintf(p.w, "\t%s\n", inst.String())
		}
	}
	fmt.Fprintln(p.w, "}")
}

func formalParamString(fp *FormalParam) string {
	if fp.IsArray() {
		var b strings.Builder
		fmt.Fprintf(&b, "%s %s", fp.Type().String(), fp.IRName())
		for _, d := range fp.ArrayDims() {
			if d == 0 {
				b.WriteString("[]")
			} else {
				fmt.Fprintf(&b, "[%d]", d)
			}
		}
		return b.String()
	}
	return fmt.Sprintf("%s %s", fp.Type().String(), fp.IRName())
}

package ir

import (
	"bytes"
	"strings"
	"testing"

	"github.com/minic-lang/minicc/pkg/types"
)

func TestPrintModule(t *testing.T) {
	m := NewModule()

	g := m.NewVarValue(nil, types.Int32(), "g").(*GlobalVariable)
	g.SetInitValue(m.NewConstInt(5))
	m.NewVarValue(nil, types.Int32(), "h")

	f, _ := m.NewFunction("main", types.Int32())
	f.Append(NewEntry(f))
	ret := m.NewVarValue(f, types.Int32(), "")
	f.SetReturnValue(ret)
	f.Append(NewMove(f, ret, m.NewConstInt(0)))
	exit := NewLabel(f)
	f.SetExitLabel(exit)
	f.Append(NewGoto(f, exit))
	f.Append(exit)
	f.Append(NewExit(f, ret))

	var buf bytes.Buffer
	NewPrinter(&buf).PrintModule(m)
	out := buf.String()

	for _, want := range []string{
		"declare i32 @g = 5",
		"declare i32 @h\n",
		"define i32 @main() {",
		"\tentry",
		"\t%l0 = 0",
		"\tbr label .L1",
		".L1:",
		"\texit %l0",
		"}",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\nGot:\n%s", want, out)
		}
	}
}

func TestPrintFormalParams(t *testing.T) {
	m := NewModule()
	f, _ := m.NewFunction("f", types.Void())
	f.AddParam(NewFormalParam(types.Int32(), "n", 0))
	arr := NewFormalParam(types.Int32(), "a", 1)
	arr.SetArrayDims([]int32{0, 3})
	f.AddParam(arr)
	f.Append(NewEntry(f))
	f.Append(NewExit(f, nil))

	var buf bytes.Buffer
	NewPrinter(&buf).PrintFunction(f)
	out := buf.String()

	if !strings.Contains(out, "define void @f(i32 %n, i32 %a[][3]) {") {
		t.Errorf("unexpected function head:\n%s", out)
	}
	if !strings.Contains(out, "\texit\n") {
		t.Errorf("void exit missing:\n%s", out)
	}
}

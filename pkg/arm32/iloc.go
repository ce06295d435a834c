package arm32

import (
	"fmt"
	"strings"

	"github.com/minic-lang/minicc/pkg/ir"
)

// ILoc buffers the assembly lines for one function. load_var and
// store_var hide the value residency logic: constants materialize as
// immediates, register-resident values move, memory-resident values go
// through their frame slot, and arrays yield their base address.
type ILoc struct {
	lines []string
}

// NewILoc creates an empty emission buffer
func NewILoc() *ILoc {
	return &ILoc{}
}

// Lines returns the buffered assembly lines
func (il *ILoc) Lines() []string { return il.lines }

// Comment emits an assembler comment line
func (il *ILoc) Comment(s string) {
	il.lines = append(il.lines, "\t@ "+s)
}

// Label emits a label definition
func (il *ILoc) Label(name string) {
	il.lines = append(il.lines, name+":")
}

// Inst emits one instruction with its operand strings
func (il *ILoc) Inst(op string, args ...string) {
	if len(args) == 0 {
		il.lines = append(il.lines, "\t"+op)
		return
	}
	il.lines = append(il.lines, "\t"+op+"\t"+strings.Join(args, ", "))
}

// Jump emits an unconditional branch
func (il *ILoc) Jump(label string) {
	il.Inst("b", label)
}

// CallFunc emits a branch-with-link to a symbol
func (il *ILoc) CallFunc(name string) {
	il.Inst("bl", name)
}

// AllocStack establishes the frame pointer and reserves the frame.
// Oversized frames subtract through the reserved scratch register.
func (il *ILoc) AllocStack(f *ir.Function, tmpReg int) {
	il.Inst("mov", "fp", "sp")
	size := f.FrameSize()
	if size == 0 {
		return
	}
	if isImm8m(size) {
		il.Inst("sub", "sp", "sp", imm(size))
	} else {
		il.LoadImm(tmpReg, size)
		il.Inst("sub", "sp", "sp", RegName(tmpReg))
	}
}

// LoadImm materializes a constant in a register
func (il *ILoc) LoadImm(rd int, v int32) {
	switch {
	case isImm8m(v):
		il.Inst("mov", RegName(rd), imm(v))
	case isImm8m(^v):
		il.Inst("mvn", RegName(rd), imm(^v))
	default:
		il.Inst("ldr", RegName(rd), "="+fmt.Sprint(v))
	}
}

// LoadVar brings the value of v into register rd. For arrays the value
// is the base address. Large frame offsets are computed in rd itself
// before the access.
func (il *ILoc) LoadVar(rd int, v ir.Value) {
	if c, ok := v.(*ir.Constant); ok {
		il.LoadImm(rd, c.Val)
		return
	}

	if reg := residentReg(v); reg >= 0 {
		if reg != rd {
			il.Inst("mov", RegName(rd), RegName(reg))
		}
		return
	}

	if g, ok := v.(*ir.GlobalVariable); ok {
		il.Inst("ldr", RegName(rd), "="+g.Name())
		if !g.IsArray() {
			il.Inst("ldr", RegName(rd), "["+RegName(rd)+"]")
		}
		return
	}

	base, ofs, ok := v.MemoryAddr()
	if !ok {
		panic("arm32: load of value with no register and no memory address")
	}

	// A declared local array's value is its base address
	if l, isLocal := v.(*ir.LocalVariable); isLocal && l.IsArray() && l.ArrayDims()[0] != 0 {
		il.leaFrameAddr(rd, base, ofs)
		return
	}

	if fitsLoadStoreOffset(ofs) {
		il.Inst("ldr", RegName(rd), memRef(base, ofs))
	} else {
		il.LoadImm(rd, ofs)
		il.Inst("add", RegName(rd), RegName(rd), RegName(base))
		il.Inst("ldr", RegName(rd), "["+RegName(rd)+"]")
	}
}

// StoreVar writes register rs to the home of v. tmpReg serves as the
// addressing scratch when the encoded offset does not fit.
func (il *ILoc) StoreVar(rs int, v ir.Value, tmpReg int) {
	if reg := residentReg(v); reg >= 0 {
		if reg != rs {
			il.Inst("mov", RegName(reg), RegName(rs))
		}
		return
	}

	if g, ok := v.(*ir.GlobalVariable); ok {
		il.Inst("ldr", RegName(tmpReg), "="+g.Name())
		il.Inst("str", RegName(rs), "["+RegName(tmpReg)+"]")
		return
	}

	base, ofs, ok := v.MemoryAddr()
	if !ok {
		panic("arm32: store to value with no register and no memory address")
	}

	if fitsLoadStoreOffset(ofs) {
		il.Inst("str", RegName(rs), memRef(base, ofs))
	} else {
		il.LoadImm(tmpReg, ofs)
		il.Inst("add", RegName(tmpReg), RegName(tmpReg), RegName(base))
		il.Inst("str", RegName(rs), "["+RegName(tmpReg)+"]")
	}
}

// leaFrameAddr computes base+ofs into rd
func (il *ILoc) leaFrameAddr(rd, base int, ofs int32) {
	switch {
	case ofs == 0:
		il.Inst("mov", RegName(rd), RegName(base))
	case ofs > 0 && isImm8m(ofs):
		il.Inst("add", RegName(rd), RegName(base), imm(ofs))
	case ofs < 0 && isImm8m(-ofs):
		il.Inst("sub", RegName(rd), RegName(base), imm(-ofs))
	default:
		il.LoadImm(rd, ofs)
		il.Inst("add", RegName(rd), RegName(rd), RegName(base))
	}
}

// residentReg returns the register a value permanently lives in, or -1
func residentReg(v ir.Value) int {
	if v.RegId() >= 0 {
		return v.RegId()
	}
	return -1
}

func imm(v int32) string {
	return fmt.Sprintf("#%d", v)
}

func memRef(base int, ofs int32) string {
	if ofs == 0 {
		return "[" + RegName(base) + "]"
	}
	return fmt.Sprintf("[%s, #%d]", RegName(base), ofs)
}

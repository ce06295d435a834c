package ir

import (
	"fmt"
	"strings"

	"github.com/minic-lang/minicc/pkg/types"
)

// Opcode identifies the operation an instruction performs
type Opcode int

const (
	OpEntry Opcode = iota
	OpExit
	OpLabel
	OpGoto
	OpCondGoto
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpCmpEQ
	OpCmpNE
	OpCmpLT
	OpCmpLE
	OpCmpGT
	OpCmpGE
	OpNeg
	OpDeref
	OpMove
	OpCall
	OpArg
)

var opcodeNames = map[Opcode]string{
	OpAdd:   "add",
	OpSub:   "sub",
	OpMul:   "mul",
	OpDiv:   "sdiv",
	OpMod:   "mod",
	OpCmpEQ: "icmp_eq",
	OpCmpNE: "icmp_ne",
	OpCmpLT: "icmp_lt",
	OpCmpLE: "icmp_le",
	OpCmpGT: "icmp_gt",
	OpCmpGE: "icmp_ge",
}

// IsCompare reports whether op is one of the six comparison opcodes
func (op Opcode) IsCompare() bool {
	return op >= OpCmpEQ && op <= OpCmpGE
}

// Instruction is a single linear-IR instruction. It is itself a Value
// because most instructions define a result. Per-kind payload fields
// are only set for the opcodes that need them.
type Instruction struct {
	ValueBase
	Op       Opcode
	operands []*Use

	// Branch targets, set for OpGoto (Target) and OpCondGoto
	Target      *Instruction
	TrueTarget  *Instruction
	FalseTarget *Instruction

	// Callee, set for OpCall
	Callee *Function
}

func newInstruction(op Opcode, typ types.Type) *Instruction {
	return &Instruction{ValueBase: newValueBase(typ), Op: op}
}

// AddOperand appends an operand, creating the def-use edge
func (i *Instruction) AddOperand(v Value) {
	u := &Use{User: i, Index: len(i.operands), Def: v}
	i.operands = append(i.operands, u)
	v.addUse(u)
}

// Operand returns operand k, or nil when out of range
func (i *Instruction) Operand(k int) Value {
	if k < 0 || k >= len(i.operands) {
		return nil
	}
	return i.operands[k].Def
}

// NumOperands returns the operand count
func (i *Instruction) NumOperands() int { return len(i.operands) }

// ReplaceOperand swaps operand k for v, updating both def-use endpoints
func (i *Instruction) ReplaceOperand(k int, v Value) {
	u := i.operands[k]
	u.Def.removeUse(u)
	u.Def = v
	v.addUse(u)
}

// Dispose removes every def-use edge this instruction holds. Called
// when the selector rewrites an instruction out of existence.
func (i *Instruction) Dispose() {
	for _, u := range i.operands {
		u.Def.removeUse(u)
	}
	i.operands = nil
}

// HasResult reports whether the instruction defines a value
func (i *Instruction) HasResult() bool {
	switch i.Op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpNeg, OpDeref:
		return true
	case OpCall:
		return !types.IsVoid(i.typ)
	default:
		return i.Op.IsCompare()
	}
}

// HasSideEffects reports whether the instruction does something beyond
// defining its result
func (i *Instruction) HasSideEffects() bool {
	switch i.Op {
	case OpEntry, OpExit, OpLabel, OpGoto, OpCondGoto, OpMove, OpCall, OpArg:
		return true
	}
	return false
}

// IsDead reports whether the instruction can be skipped by the
// selector: it defines a result nobody uses and has no side effects
func (i *Instruction) IsDead() bool {
	return !i.HasSideEffects() && len(i.uses) == 0
}

// String renders the instruction in the linear-IR textual form
func (i *Instruction) String() string {
	switch i.Op {
	case OpEntry:
		return "entry"
	case OpExit:
		if i.NumOperands() > 0 {
			return "exit " + i.Operand(0).IRName()
		}
		return "exit"
	case OpLabel:
		return i.irName + ":"
	case OpGoto:
		return "br label " + i.Target.IRName()
	case OpCondGoto:
		return fmt.Sprintf("bc %s, label %s, label %s",
			i.Operand(0).IRName(), i.TrueTarget.IRName(), i.FalseTarget.IRName())
	case OpNeg:
		return fmt.Sprintf("%s = neg %s", i.irName, i.Operand(0).IRName())
	case OpDeref:
		return fmt.Sprintf("%s = *%s", i.irName, i.Operand(0).IRName())
	case OpMove:
		dst := i.Operand(0)
		src := i.Operand(1)
		if isAddressValue(dst) {
			return fmt.Sprintf("*%s = %s", dst.IRName(), src.IRName())
		}
		return fmt.Sprintf("%s = %s", dst.IRName(), src.IRName())
	case OpCall:
		args := make([]string, 0, i.NumOperands())
		for k := 0; k < i.NumOperands(); k++ {
			args = append(args, i.Operand(k).IRName())
		}
		call := fmt.Sprintf("call %s(%s)", i.Callee.IRName(), strings.Join(args, ", "))
		if i.HasResult() {
			return i.irName + " = " + call
		}
		return call
	case OpArg:
		return "arg " + i.Operand(0).IRName()
	default:
		if name, ok := opcodeNames[i.Op]; ok {
			return fmt.Sprintf("%s = %s %s, %s",
				i.irName, name, i.Operand(0).IRName(), i.Operand(1).IRName())
		}
		return fmt.Sprintf("; unknown op %d", i.Op)
	}
}

// isAddressValue reports whether v is a pointer-typed computed address,
// i.e. a move destination that must be written through rather than to
func isAddressValue(v Value) bool {
	_, isInst := v.(*Instruction)
	return isInst && types.IsPointer(v.Type())
}

// NewEntry creates the function entry instruction
func NewEntry(f *Function) *Instruction {
	return newInstruction(OpEntry, types.Void())
}

// NewExit creates the function exit instruction. ret may be nil for
// void functions.
func NewExit(f *Function, ret Value) *Instruction {
	i := newInstruction(OpExit, types.Void())
	if ret != nil {
		i.AddOperand(ret)
	}
	return i
}

// NewLabel creates a fresh label
func NewLabel(f *Function) *Instruction {
	i := newInstruction(OpLabel, types.Void())
	i.irName = f.nextLabelName()
	return i
}

// NewGoto creates an unconditional jump to target
func NewGoto(f *Function, target *Instruction) *Instruction {
	i := newInstruction(OpGoto, types.Void())
	i.Target = target
	return i
}

// NewCondGoto creates a two-way conditional branch on cond
func NewCondGoto(f *Function, cond Value, trueTarget, falseTarget *Instruction) *Instruction {
	i := newInstruction(OpCondGoto, types.Void())
	i.AddOperand(cond)
	i.TrueTarget = trueTarget
	i.FalseTarget = falseTarget
	return i
}

// NewBinary creates a two-operand arithmetic or comparison instruction
func NewBinary(f *Function, op Opcode, a, b Value, typ types.Type) *Instruction {
	i := newInstruction(op, typ)
	i.irName = f.nextTempName()
	i.AddOperand(a)
	i.AddOperand(b)
	return i
}

// NewUnary creates a one-operand instruction (neg or deref)
func NewUnary(f *Function, op Opcode, a Value, typ types.Type) *Instruction {
	i := newInstruction(op, typ)
	i.irName = f.nextTempName()
	i.AddOperand(a)
	return i
}

// NewMove creates dst = src. Operand 0 is the destination.
func NewMove(f *Function, dst, src Value) *Instruction {
	i := newInstruction(OpMove, types.Void())
	i.AddOperand(dst)
	i.AddOperand(src)
	return i
}

// NewCall creates a call to callee with the given arguments
func NewCall(f *Function, callee *Function, args []Value, typ types.Type) *Instruction {
	i := newInstruction(OpCall, typ)
	i.Callee = callee
	if !types.IsVoid(typ) {
		i.irName = f.nextTempName()
	}
	for _, a := range args {
		i.AddOperand(a)
	}
	return i
}

// NewArg creates an argument-marker instruction. The lowering does not
// emit these; the selector validates them when present.
func NewArg(f *Function, v Value) *Instruction {
	i := newInstruction(OpArg, types.Void())
	i.AddOperand(v)
	return i
}

package ir

import (
	"fmt"

	"github.com/minic-lang/minicc/pkg/types"
)

// Function owns its parameters, locals, linear instruction sequence and
// the frame metadata filled in by the register assigner
type Function struct {
	name    string
	retType types.Type

	retValue Value // nil for void functions
	params   []*FormalParam
	locals   []*LocalVariable
	memVars  []*MemVariable
	code     []*Instruction

	exitLabel *Instruction

	// Loop label stacks for break/continue lowering, LIFO
	breakLabels    []*Instruction
	continueLabels []*Instruction

	maxCallArgs int
	existsCall  bool

	// Frame metadata, set by the register assigner
	protectedRegs []int
	frameSize     int32

	tempSeq  int
	labelSeq int
}

func newFunction(name string, retType types.Type) *Function {
	return &Function{name: name, retType: retType}
}

func (f *Function) Name() string           { return f.name }
func (f *Function) IRName() string         { return "@" + f.name }
func (f *Function) ReturnType() types.Type { return f.retType }

// SetReturnValue records the slot every return statement writes.
// It stays nil for void functions.
func (f *Function) SetReturnValue(v Value) { f.retValue = v }
func (f *Function) ReturnValue() Value     { return f.retValue }

// AddParam appends a formal parameter
func (f *Function) AddParam(p *FormalParam) { f.params = append(f.params, p) }
func (f *Function) Params() []*FormalParam  { return f.params }

func (f *Function) addLocal(l *LocalVariable) { f.locals = append(f.locals, l) }
func (f *Function) Locals() []*LocalVariable  { return f.locals }

// NewMemVariable synthesizes a stack slot, used for overflow call
// arguments
func (f *Function) NewMemVariable(typ types.Type) *MemVariable {
	m := &MemVariable{ValueBase: newValueBase(typ)}
	m.irName = fmt.Sprintf("%%m%d", len(f.memVars))
	f.memVars = append(f.memVars, m)
	return m
}

// Append adds an instruction to the function's code
func (f *Function) Append(inst *Instruction) { f.code = append(f.code, inst) }

// AppendAll adds a sequence of instructions in order
func (f *Function) AppendAll(insts []*Instruction) {
	f.code = append(f.code, insts...)
}

func (f *Function) Code() []*Instruction { return f.code }

func (f *Function) SetExitLabel(l *Instruction) { f.exitLabel = l }
func (f *Function) ExitLabel() *Instruction     { return f.exitLabel }

// PushBreakLabel enters a loop for break lowering
func (f *Function) PushBreakLabel(l *Instruction) {
	f.breakLabels = append(f.breakLabels, l)
}

// PopBreakLabel leaves the innermost loop
func (f *Function) PopBreakLabel() {
	f.breakLabels = f.breakLabels[:len(f.breakLabels)-1]
}

// BreakLabel returns the innermost break target, or nil outside loops
func (f *Function) BreakLabel() *Instruction {
	if len(f.breakLabels) == 0 {
		return nil
	}
	return f.breakLabels[len(f.breakLabels)-1]
}

// PushContinueLabel enters a loop for continue lowering
func (f *Function) PushContinueLabel(l *Instruction) {
	f.continueLabels = append(f.continueLabels, l)
}

// PopContinueLabel leaves the innermost loop
func (f *Function) PopContinueLabel() {
	f.continueLabels = f.continueLabels[:len(f.continueLabels)-1]
}

// ContinueLabel returns the innermost continue target, or nil outside
// loops
func (f *Function) ContinueLabel() *Instruction {
	if len(f.continueLabels) == 0 {
		return nil
	}
	return f.continueLabels[len(f.continueLabels)-1]
}

// NoteCallArgs records a call site's argument count so the frame can
// reserve the outgoing-argument area
func (f *Function) NoteCallArgs(n int) {
	f.existsCall = true
	if n > f.maxCallArgs {
		f.maxCallArgs = n
	}
}

func (f *Function) MaxCallArgs() int { return f.maxCallArgs }
func (f *Function) ExistsCall() bool { return f.existsCall }

// SetProtectedRegs records the callee-saved registers the prologue must
// push and the epilogue pop
func (f *Function) SetProtectedRegs(regs []int) { f.protectedRegs = regs }
func (f *Function) ProtectedRegs() []int        { return f.protectedRegs }

func (f *Function) SetFrameSize(size int32) { f.frameSize = size }
func (f *Function) FrameSize() int32        { return f.frameSize }

func (f *Function) nextTempName() string {
	name := fmt.Sprintf("%%t%d", f.tempSeq)
	f.tempSeq++
	return name
}

func (f *Function) nextLocalName() string {
	name := fmt.Sprintf("%%l%d", len(f.locals))
	return name
}

func (f *Function) nextLabelName() string {
	f.labelSeq++
	return fmt.Sprintf(".L%d", f.labelSeq)
}

package regalloc

import (
	"github.com/minic-lang/minicc/pkg/ir"
)

// ARM32 frame layout (the called function's view, FP = SP after the
// prologue push):
//
//	+---------------------------+  <- SP before the call
//	| incoming overflow args    |  positive offsets from old SP
//	+---------------------------+
//	| pushed callee-saved, FP,  |
//	| LR                        |
//	+---------------------------+  <- FP
//	| locals and spill slots    |  negative offsets from FP
//	| outgoing overflow args    |  at [SP, 0..]
//	+---------------------------+  <- SP after prologue
//
// The first four integer arguments arrive in R0..R3; the rest sit in
// the caller's outgoing area, which the callee addresses above its
// pushed registers.

const (
	wordSize       = 4
	frameAlignment = 8
)

// protectedRegs returns the callee-saved registers a function must
// preserve: the scratch pool the selector clobbers, the reserved
// addressing register, the frame pointer and the link register
func protectedRegs() []int {
	regs := append([]int(nil), ScratchRegs...)
	regs = append(regs, RegTmp, RegFP, RegLR)
	if len(regs)%2 != 0 {
		// Pad to an even count so the push keeps SP 8-byte aligned
		regs = append(regs, RegIP)
	}
	sortRegs(regs)
	return regs
}

// sortRegs orders a register list ascending, as push/pop lists require
func sortRegs(regs []int) {
	for i := 0; i < len(regs); i++ {
		for j := i + 1; j < len(regs); j++ {
			if regs[i] > regs[j] {
				regs[i], regs[j] = regs[j], regs[i]
			}
		}
	}
}

// Run assigns a register or a frame location to every value of every
// function in the module
func Run(m *ir.Module) {
	for _, f := range m.Functions() {
		assignFunction(f)
	}
}

// assignFunction lays out one function's frame: parameter homes, local
// slots, spill slots for instruction results, and the outgoing
// argument area bounded by the biggest call site
func assignFunction(f *ir.Function) {
	protected := protectedRegs()
	f.SetProtectedRegs(protected)
	pushBytes := int32(len(protected) * wordSize)

	// First four parameters arrive in registers, the rest above the
	// pushed area
	for i, p := range f.Params() {
		if i < len(ArgRegs) {
			p.SetRegId(ArgRegs[i])
		} else {
			p.SetMemoryAddr(RegFP, pushBytes+int32(i-len(ArgRegs))*wordSize)
		}
	}

	var localBytes int32

	assignSlot := func(v ir.Value, size int32) {
		localBytes += size
		v.SetMemoryAddr(RegFP, -localBytes)
	}

	for _, l := range f.Locals() {
		assignSlot(l, localSlotSize(l))
	}

	// Instruction results spill to their own slots; nothing lives in a
	// register across instructions
	for _, inst := range f.Code() {
		if inst.HasResult() {
			assignSlot(inst, wordSize)
		}
	}

	outgoing := int32(0)
	if n := f.MaxCallArgs(); n > len(ArgRegs) {
		outgoing = int32(n-len(ArgRegs)) * wordSize
	}

	f.SetFrameSize(alignUp(localBytes+outgoing, frameAlignment))
}

// localSlotSize returns the frame bytes a local occupies. A declared
// array takes its full extent; an array parameter holds only the passed
// address.
func localSlotSize(l *ir.LocalVariable) int32 {
	if l.IsArray() {
		dims := l.ArrayDims()
		if dims[0] == 0 {
			return wordSize
		}
		size := int32(wordSize)
		for _, d := range dims {
			size *= d
		}
		return size
	}
	return wordSize
}

func alignUp(n, align int32) int32 {
	return ((n + align - 1) / align) * align
}

// Package regalloc assigns stack frame locations to values and provides
// the short-lived scratch register allocator the instruction selector
// leans on. There is no liveness analysis: the selector frees scratch
// registers immediately after each instruction.
package regalloc

import (
	"fmt"

	"github.com/minic-lang/minicc/pkg/ir"
)

// ARM32 register numbering
const (
	RegR0 = 0
	RegR1 = 1
	RegR2 = 2
	RegR3 = 3

	// RegTmp is reserved for large-offset addressing and never handed
	// out by the allocator
	RegTmp = 10

	RegFP = 11
	RegIP = 12
	RegSP = 13
	RegLR = 14
)

// ScratchRegs is the pool the simple allocator serves from
var ScratchRegs = []int{4, 5, 6, 7, 8, 9}

// ArgRegs carries the first four integer-class arguments
var ArgRegs = []int{RegR0, RegR1, RegR2, RegR3}

// SimpleRegisterAllocator hands out scratch registers, optionally
// binding them to a value so a later Free by value releases them
type SimpleRegisterAllocator struct {
	inUse map[int]bool
	bound map[int]ir.Value
}

// NewSimpleRegisterAllocator creates an allocator with the full scratch
// pool free
func NewSimpleRegisterAllocator() *SimpleRegisterAllocator {
	return &SimpleRegisterAllocator{
		inUse: make(map[int]bool),
		bound: make(map[int]ir.Value),
	}
}

// Allocate returns an unused scratch register, binding it to val when
// val is non-nil. A value that already holds a scratch register gets
// the same one back.
func (a *SimpleRegisterAllocator) Allocate(val ir.Value) int {
	if val != nil && val.LoadRegId() >= 0 {
		return val.LoadRegId()
	}
	for _, reg := range ScratchRegs {
		if !a.inUse[reg] {
			a.inUse[reg] = true
			if val != nil {
				a.bound[reg] = val
				val.SetLoadRegId(reg)
			}
			return reg
		}
	}
	panic(fmt.Sprintf("regalloc: scratch pool exhausted (%d registers)", len(ScratchRegs)))
}

// AllocateSpecific pins a register for ABI use, e.g. forcing R0..R3
// during argument marshalling
func (a *SimpleRegisterAllocator) AllocateSpecific(reg int) {
	a.inUse[reg] = true
}

// Free releases the scratch register bound to val, if any
func (a *SimpleRegisterAllocator) Free(val ir.Value) {
	if val == nil {
		return
	}
	reg := val.LoadRegId()
	if reg < 0 {
		return
	}
	if a.bound[reg] == val {
		delete(a.bound, reg)
		delete(a.inUse, reg)
	}
	val.SetLoadRegId(-1)
}

// FreeReg releases a register by number, bound or pinned
func (a *SimpleRegisterAllocator) FreeReg(reg int) {
	if val, ok := a.bound[reg]; ok {
		val.SetLoadRegId(-1)
		delete(a.bound, reg)
	}
	delete(a.inUse, reg)
}

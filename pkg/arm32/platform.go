// Package arm32 is the ARM32 back end: it selects instructions for the
// linear IR, materializes spills through the scratch pool, and prints
// GNU as syntax.
package arm32

import (
	"github.com/minic-lang/minicc/pkg/ir"
	"github.com/minic-lang/minicc/pkg/regalloc"
)

// regName maps register numbers to their assembler names
var regName = [16]string{
	"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7",
	"r8", "r9", "r10", "fp", "r12", "sp", "lr", "pc",
}

// RegName returns the assembler name for a register number
func RegName(r int) string {
	if r >= 0 && r < len(regName) {
		return regName[r]
	}
	return "r?"
}

// intRegVal pins a Value to each argument register for call marshalling
var intRegVal = [4]*ir.RegVariable{
	ir.NewRegVariable(regalloc.RegR0, "r0"),
	ir.NewRegVariable(regalloc.RegR1, "r1"),
	ir.NewRegVariable(regalloc.RegR2, "r2"),
	ir.NewRegVariable(regalloc.RegR3, "r3"),
}

// maxLoadStoreOffset is the immediate range of ldr/str word offsets
const maxLoadStoreOffset = 4095

// fitsLoadStoreOffset reports whether a [base, #imm] addressing offset
// can be encoded directly
func fitsLoadStoreOffset(ofs int32) bool {
	return ofs >= -maxLoadStoreOffset && ofs <= maxLoadStoreOffset
}

// isImm8m reports whether v is an ARM modified immediate: an 8-bit
// value rotated right by an even amount
func isImm8m(v int32) bool {
	u := uint32(v)
	for rot := 0; rot < 32; rot += 2 {
		if u&^uint32(0xff) == 0 {
			return true
		}
		u = u<<2 | u>>30
	}
	return false
}

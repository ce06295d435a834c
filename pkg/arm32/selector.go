package arm32

import (
	"fmt"
	"strings"

	"github.com/minic-lang/minicc/pkg/ir"
	"github.com/minic-lang/minicc/pkg/regalloc"
	"github.com/minic-lang/minicc/pkg/types"
)

// Selector translates one function's linear IR into ARM32 assembly.
// Every handler follows the same spill protocol: operands already in a
// register are used in place, otherwise a scratch register is allocated
// and the operand loaded; results without a register are computed into
// a scratch and stored back.
type Selector struct {
	f     *ir.Function
	iloc  *ILoc
	alloc *regalloc.SimpleRegisterAllocator

	// showIR emits each IR instruction as a comment before its
	// translation
	showIR bool

	// argCount tracks Arg marker instructions ahead of a call
	argCount int
}

// NewSelector creates a selector for f emitting into iloc
func NewSelector(f *ir.Function, iloc *ILoc, alloc *regalloc.SimpleRegisterAllocator) *Selector {
	return &Selector{f: f, iloc: iloc, alloc: alloc}
}

// SetShowIR toggles IR comments in the output
func (s *Selector) SetShowIR(show bool) { s.showIR = show }

// Run translates the function's instructions in order, skipping dead
// ones
func (s *Selector) Run() error {
	for _, inst := range s.f.Code() {
		if inst.IsDead() {
			continue
		}
		if err := s.translate(inst); err != nil {
			return err
		}
	}
	return nil
}

func (s *Selector) translate(inst *ir.Instruction) error {
	if s.showIR {
		if text := inst.String(); text != "" {
			s.iloc.Comment(text)
		}
	}

	switch inst.Op {
	case ir.OpEntry:
		s.translateEntry()
	case ir.OpExit:
		s.translateExit(inst)
	case ir.OpLabel:
		s.iloc.Label(s.labelName(inst))
	case ir.OpGoto:
		s.iloc.Jump(s.labelName(inst.Target))
	case ir.OpCondGoto:
		s.translateCondGoto(inst)
	case ir.OpAdd:
		s.translateTwoOperator(inst, "add")
	case ir.OpSub:
		s.translateTwoOperator(inst, "sub")
	case ir.OpMul:
		s.translateTwoOperator(inst, "mul")
	case ir.OpDiv:
		s.translateTwoOperator(inst, "sdiv")
	case ir.OpMod:
		s.translateMod(inst)
	case ir.OpNeg:
		s.translateOneOperator(inst, "neg")
	case ir.OpDeref:
		s.translateDeref(inst)
	case ir.OpMove:
		s.translateMove(inst)
	case ir.OpCall:
		s.translateCall(inst)
	case ir.OpArg:
		return s.translateArg(inst)
	default:
		if inst.Op.IsCompare() {
			s.translateCmp(inst)
			return nil
		}
		return fmt.Errorf("arm32: unsupported IR opcode %d", inst.Op)
	}
	return nil
}

// labelName qualifies an IR label with the function name so labels stay
// unique across the assembly file
func (s *Selector) labelName(label *ir.Instruction) string {
	return ".L" + s.f.Name() + "_" + strings.TrimPrefix(label.IRName(), ".L")
}

// translateEntry pushes the callee-saved set and allocates the frame
func (s *Selector) translateEntry() {
	if regs := s.f.ProtectedRegs(); len(regs) > 0 {
		s.iloc.Inst("push", "{"+regListString(regs)+"}")
	}
	s.iloc.AllocStack(s.f, regalloc.RegTmp)
}

// translateExit loads the return value into R0, unwinds the frame,
// restores the callee-saved set and returns
func (s *Selector) translateExit(inst *ir.Instruction) {
	if inst.NumOperands() > 0 {
		s.iloc.LoadVar(regalloc.RegR0, inst.Operand(0))
	}
	s.iloc.Inst("mov", "sp", "fp")
	if regs := s.f.ProtectedRegs(); len(regs) > 0 {
		s.iloc.Inst("pop", "{"+regListString(regs)+"}")
	}
	s.iloc.Inst("bx", "lr")
}

func regListString(regs []int) string {
	names := make([]string, len(regs))
	for i, r := range regs {
		names[i] = RegName(r)
	}
	return strings.Join(names, ", ")
}

// operandReg returns a register holding arg, loading it when necessary
func (s *Selector) operandReg(arg ir.Value) int {
	if reg := residentReg(arg); reg >= 0 {
		return reg
	}
	if reg := arg.LoadRegId(); reg >= 0 {
		return reg
	}
	reg := s.alloc.Allocate(arg)
	s.iloc.LoadVar(reg, arg)
	return reg
}

// resultReg returns the register the result should be computed into
func (s *Selector) resultReg(result ir.Value) int {
	if reg := residentReg(result); reg >= 0 {
		return reg
	}
	return s.alloc.Allocate(result)
}

// storeResult writes the computed result back when it lives in memory
func (s *Selector) storeResult(reg int, result ir.Value) {
	if residentReg(result) < 0 {
		s.iloc.StoreVar(reg, result, regalloc.RegTmp)
	}
}

// translateTwoOperator handles the three-operand arithmetic ops
func (s *Selector) translateTwoOperator(inst *ir.Instruction, op string) {
	arg1 := inst.Operand(0)
	arg2 := inst.Operand(1)

	r1 := s.operandReg(arg1)
	r2 := s.operandReg(arg2)
	rd := s.resultReg(inst)

	s.iloc.Inst(op, RegName(rd), RegName(r1), RegName(r2))

	s.storeResult(rd, inst)
	s.alloc.Free(arg1)
	s.alloc.Free(arg2)
	s.alloc.Free(inst)
}

// translateOneOperator handles the two-operand unary ops
func (s *Selector) translateOneOperator(inst *ir.Instruction, op string) {
	arg := inst.Operand(0)

	r1 := s.operandReg(arg)
	rd := s.resultReg(inst)

	s.iloc.Inst(op, RegName(rd), RegName(r1))

	s.storeResult(rd, inst)
	s.alloc.Free(arg)
	s.alloc.Free(inst)
}

// translateMod lowers a % b as a - (a/b)*b, since ARM32 has no
// remainder instruction
func (s *Selector) translateMod(inst *ir.Instruction) {
	arg1 := inst.Operand(0)
	arg2 := inst.Operand(1)

	r1 := s.operandReg(arg1)
	r2 := s.operandReg(arg2)
	rd := s.resultReg(inst)
	tmp := s.alloc.Allocate(nil)

	s.iloc.Inst("sdiv", RegName(tmp), RegName(r1), RegName(r2))
	s.iloc.Inst("mul", RegName(tmp), RegName(tmp), RegName(r2))
	s.iloc.Inst("sub", RegName(rd), RegName(r1), RegName(tmp))

	s.storeResult(rd, inst)
	s.alloc.Free(arg1)
	s.alloc.Free(arg2)
	s.alloc.Free(inst)
	s.alloc.FreeReg(tmp)
}

// translateDeref loads through a computed address
func (s *Selector) translateDeref(inst *ir.Instruction) {
	addr := inst.Operand(0)

	ra := s.operandReg(addr)
	rd := s.resultReg(inst)

	s.iloc.Inst("ldr", RegName(rd), "["+RegName(ra)+"]")

	s.storeResult(rd, inst)
	s.alloc.Free(addr)
	s.alloc.Free(inst)
}

// translateCmp compares and materializes the boolean as 0/1 using a
// conditional move
func (s *Selector) translateCmp(inst *ir.Instruction) {
	arg1 := inst.Operand(0)
	arg2 := inst.Operand(1)

	r1 := s.operandReg(arg1)
	r2 := s.operandReg(arg2)
	rd := s.resultReg(inst)

	s.iloc.Inst("cmp", RegName(r1), RegName(r2))

	var cond string
	switch inst.Op {
	case ir.OpCmpEQ:
		cond = "eq"
	case ir.OpCmpNE:
		cond = "ne"
	case ir.OpCmpLT:
		cond = "lt"
	case ir.OpCmpLE:
		cond = "le"
	case ir.OpCmpGT:
		cond = "gt"
	case ir.OpCmpGE:
		cond = "ge"
	}

	s.iloc.Inst("mov", RegName(rd), "#0")
	s.iloc.Inst("mov"+cond, RegName(rd), "#1")

	s.storeResult(rd, inst)
	s.alloc.Free(arg1)
	s.alloc.Free(arg2)
	s.alloc.Free(inst)
}

// translateCondGoto branches on the condition being nonzero
func (s *Selector) translateCondGoto(inst *ir.Instruction) {
	cond := inst.Operand(0)

	rc := s.operandReg(cond)
	s.iloc.Inst("cmp", RegName(rc), "#0")
	s.iloc.Inst("bne", s.labelName(inst.TrueTarget))
	s.iloc.Jump(s.labelName(inst.FalseTarget))

	s.alloc.Free(cond)
}

// translateMove covers the residency patterns of a scalar move plus the
// write-through case where the destination is a computed address
func (s *Selector) translateMove(inst *ir.Instruction) {
	dst := inst.Operand(0)
	src := inst.Operand(1)

	// Store through a pointer produced by an address computation
	if dstInst, ok := dst.(*ir.Instruction); ok && types.IsPointer(dst.Type()) {
		ra := s.operandReg(dstInst)
		rs := s.operandReg(src)
		s.iloc.Inst("str", RegName(rs), "["+RegName(ra)+"]")
		s.alloc.Free(dstInst)
		s.alloc.Free(src)
		return
	}

	srcReg := residentReg(src)
	dstReg := residentReg(dst)

	switch {
	case srcReg >= 0:
		s.iloc.StoreVar(srcReg, dst, regalloc.RegTmp)
	case dstReg >= 0:
		s.iloc.LoadVar(dstReg, src)
	default:
		tmp := s.alloc.Allocate(nil)
		s.iloc.LoadVar(tmp, src)
		s.iloc.StoreVar(tmp, dst, regalloc.RegTmp)
		s.alloc.FreeReg(tmp)
	}
}

// translateCall marshals arguments per the ABI: the first four in
// R0..R3, the rest through stack slots at [sp, 0], [sp, 4], ...; then
// branches and fetches the result from R0
func (s *Selector) translateCall(inst *ir.Instruction) {
	operandNum := inst.NumOperands()

	if operandNum != s.argCount && s.argCount != 0 {
		// Arg markers, when present, must agree with the call
		s.iloc.Comment("arg marker count mismatch")
	}

	if operandNum > 0 {
		for _, reg := range regalloc.ArgRegs {
			s.alloc.AllocateSpecific(reg)
		}

		esp := int32(0)
		for k := len(regalloc.ArgRegs); k < operandNum; k++ {
			arg := inst.Operand(k)

			slot := s.f.NewMemVariable(types.Int32())
			slot.SetMemoryAddr(regalloc.RegSP, esp)
			esp += 4

			move := ir.NewMove(s.f, slot, arg)
			s.translateMove(move)
			move.Dispose()
		}

		for k := 0; k < operandNum && k < len(regalloc.ArgRegs); k++ {
			arg := inst.Operand(k)

			move := ir.NewMove(s.f, intRegVal[k], arg)
			s.translateMove(move)
			move.Dispose()
		}
	}

	s.iloc.CallFunc(inst.Callee.Name())

	if operandNum > 0 {
		for _, reg := range regalloc.ArgRegs {
			s.alloc.FreeReg(reg)
		}
	}

	if inst.HasResult() {
		move := ir.NewMove(s.f, inst, intRegVal[0])
		s.translateMove(move)
		move.Dispose()
	}

	s.argCount = 0
}

// translateArg validates an argument-marker instruction. The lowering
// does not emit these, but the selector honors them when present.
func (s *Selector) translateArg(inst *ir.Instruction) error {
	src := inst.Operand(0)

	if s.argCount < len(regalloc.ArgRegs) {
		if reg := residentReg(src); reg != s.argCount {
			return fmt.Errorf("arm32: arg %d bound to register %d, want %d",
				s.argCount+1, reg, s.argCount)
		}
	} else {
		base, _, ok := src.MemoryAddr()
		if !ok || base != regalloc.RegSP {
			return fmt.Errorf("arm32: arg %d is not SP-relative", s.argCount+1)
		}
	}

	s.argCount++
	return nil
}

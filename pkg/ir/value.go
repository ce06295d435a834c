// Package ir defines the linear three-address intermediate representation:
// values, the def-use graph connecting them, instructions, functions and
// the module that owns them.
package ir

import (
	"strconv"

	"github.com/minic-lang/minicc/pkg/types"
)

// Use is a def-use edge: it records that operand slot Index of User
// consumes the value Def. The same record is referenced from both
// endpoints so operand replacement updates both atomically.
type Use struct {
	User  *Instruction
	Index int
	Def   Value
}

// Value is the interface for every computational entity: constants,
// variables, formal parameters, synthesized stack slots and
// instructions that define a result.
type Value interface {
	Type() types.Type
	Name() string
	IRName() string
	SetIRName(string)
	ScopeLevel() int

	// Register assignment state. RegId is the permanent register chosen
	// by the register assigner, LoadRegId the transient scratch register
	// bound by the instruction selector. -1 means unassigned. At most one
	// of a valid RegId and a memory address holds for a value.
	RegId() int
	SetRegId(int)
	LoadRegId() int
	SetLoadRegId(int)
	MemoryAddr() (base int, offset int32, ok bool)
	SetMemoryAddr(base int, offset int32)

	IsArray() bool
	ArrayDims() []int32
	SetArrayDims([]int32)

	Uses() []*Use
	addUse(*Use)
	removeUse(*Use)
}

// ValueBase carries the state shared by all value variants
type ValueBase struct {
	typ    types.Type
	name   string
	irName string

	uses []*Use

	regId     int
	loadRegId int
	hasMem    bool
	memBase   int
	memOffset int32

	isArray   bool
	arrayDims []int32
}

func newValueBase(typ types.Type) ValueBase {
	return ValueBase{typ: typ, regId: -1, loadRegId: -1}
}

func (v *ValueBase) Type() types.Type  { return v.typ }
func (v *ValueBase) Name() string      { return v.name }
func (v *ValueBase) IRName() string    { return v.irName }
func (v *ValueBase) SetIRName(n string) { v.irName = n }
func (v *ValueBase) ScopeLevel() int   { return -1 }

func (v *ValueBase) RegId() int         { return v.regId }
func (v *ValueBase) SetRegId(id int)    { v.regId = id }
func (v *ValueBase) LoadRegId() int     { return v.loadRegId }
func (v *ValueBase) SetLoadRegId(id int) { v.loadRegId = id }

func (v *ValueBase) MemoryAddr() (int, int32, bool) {
	if !v.hasMem {
		return 0, 0, false
	}
	return v.memBase, v.memOffset, true
}

func (v *ValueBase) SetMemoryAddr(base int, offset int32) {
	v.hasMem = true
	v.memBase = base
	v.memOffset = offset
}

func (v *ValueBase) IsArray() bool      { return v.isArray }
func (v *ValueBase) ArrayDims() []int32 { return v.arrayDims }

func (v *ValueBase) SetArrayDims(dims []int32) {
	v.arrayDims = append([]int32(nil), dims...)
	v.isArray = len(dims) > 0
}

func (v *ValueBase) Uses() []*Use { return v.uses }

func (v *ValueBase) addUse(u *Use) { v.uses = append(v.uses, u) }

func (v *ValueBase) removeUse(u *Use) {
	for i, e := range v.uses {
		if e == u {
			v.uses = append(v.uses[:i], v.uses[i+1:]...)
			return
		}
	}
}

// DimensionMultiplier returns the row-major multiplier for dimension i
// of an array value: the product of the sizes of all later dimensions.
func (v *ValueBase) DimensionMultiplier(i int) int32 {
	return types.DimensionMultiplier(v.arrayDims, i)
}

// Constant is an interned integer constant
type Constant struct {
	ValueBase
	Val int32
}

func newConstant(v int32) *Constant {
	c := &Constant{ValueBase: newValueBase(types.Int32()), Val: v}
	c.irName = strconv.FormatInt(int64(v), 10)
	return c
}

// GlobalVariable lives at scope level 0 and is addressed by symbol name
type GlobalVariable struct {
	ValueBase
	init        *Constant
	initialized bool
}

func (g *GlobalVariable) ScopeLevel() int { return 0 }

// SetInitValue records an initializer, moving the variable out of the
// BSS section; a zero initializer does so too
func (g *GlobalVariable) SetInitValue(c *Constant) {
	g.init = c
	g.initialized = c != nil
}

// InitValue returns the initializer, or nil for BSS globals
func (g *GlobalVariable) InitValue() *Constant { return g.init }

// InBSS reports whether the global is uninitialized (treated as zero)
func (g *GlobalVariable) InBSS() bool { return !g.initialized }

// LocalVariable is a function-scoped variable with a nesting level
type LocalVariable struct {
	ValueBase
	scopeLevel int
}

func (l *LocalVariable) ScopeLevel() int { return l.scopeLevel }

// FormalParam is the ABI-visible source of an argument value. Index is
// the zero-based parameter position.
type FormalParam struct {
	ValueBase
	Index int
}

// NewFormalParam creates the formal parameter at the given position
func NewFormalParam(typ types.Type, name string, index int) *FormalParam {
	p := &FormalParam{ValueBase: newValueBase(typ), Index: index}
	p.name = name
	p.irName = "%" + name
	return p
}

// MemVariable is a synthesized stack slot, used for overflow call
// arguments addressed off the stack pointer
type MemVariable struct {
	ValueBase
}

// RegVariable is a value pinned to a machine register, synthesized by
// the back end for argument and result marshalling
type RegVariable struct {
	ValueBase
}

// NewRegVariable creates a value pinned to the given register id
func NewRegVariable(regId int, name string) *RegVariable {
	r := &RegVariable{ValueBase: newValueBase(types.Int32())}
	r.regId = regId
	r.irName = name
	return r
}

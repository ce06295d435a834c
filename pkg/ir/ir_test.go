package ir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minic-lang/minicc/pkg/types"
)

func TestScopeShadowing(t *testing.T) {
	m := NewModule()
	f, err := m.NewFunction("f", types.Int32())
	require.NoError(t, err)

	m.EnterScope()
	outer := m.NewVarValue(f, types.Int32(), "x")
	require.Equal(t, 1, outer.ScopeLevel())

	m.EnterScope()
	inner := m.NewVarValue(f, types.Int32(), "x")
	require.Equal(t, 2, inner.ScopeLevel())
	require.Same(t, inner, m.FindVarValue("x"))

	m.LeaveScope()
	require.Same(t, outer, m.FindVarValue("x"))

	m.LeaveScope()
	require.Nil(t, m.FindVarValue("x"))
}

func TestScopeLevelBound(t *testing.T) {
	m := NewModule()
	f, _ := m.NewFunction("f", types.Int32())

	m.EnterScope()
	m.EnterScope()
	v := m.NewVarValue(f, types.Int32(), "y")
	require.LessOrEqual(t, v.ScopeLevel(), m.ScopeDepth())
	m.LeaveScope()
	m.LeaveScope()
}

func TestGlobalsLiveAtLevelZero(t *testing.T) {
	m := NewModule()
	g := m.NewVarValue(nil, types.Int32(), "g")
	require.Equal(t, 0, g.ScopeLevel())
	require.Same(t, g, m.FindVarValue("g"))
	require.Len(t, m.Globals(), 1)
}

func TestConstantInterning(t *testing.T) {
	m := NewModule()
	a := m.NewConstInt(42)
	b := m.NewConstInt(42)
	c := m.NewConstInt(-1)
	require.Same(t, a, b)
	require.NotSame(t, a, c)
	require.Equal(t, "42", a.IRName())
	require.Equal(t, "-1", c.IRName())
}

func TestFunctionRedefinition(t *testing.T) {
	m := NewModule()
	_, err := m.NewFunction("main", types.Int32())
	require.NoError(t, err)
	_, err = m.NewFunction("main", types.Void())
	require.Error(t, err)
}

func TestDefUseEdges(t *testing.T) {
	m := NewModule()
	f, _ := m.NewFunction("f", types.Int32())

	a := m.NewConstInt(1)
	b := m.NewConstInt(2)
	add := NewBinary(f, OpAdd, a, b, types.Int32())

	require.Len(t, a.Uses(), 1)
	require.Len(t, b.Uses(), 1)
	require.Same(t, add, a.Uses()[0].User)

	// A consumer of the result creates a def-use edge to it
	v := m.NewVarValue(f, types.Int32(), "x")
	move := NewMove(f, v, add)
	require.Len(t, add.Uses(), 1)
	require.Same(t, move, add.Uses()[0].User)

	// Replacing an operand updates both endpoints
	move.ReplaceOperand(1, a)
	require.Empty(t, add.Uses())
	require.Len(t, a.Uses(), 2)

	// Disposal drops the remaining edges
	move.Dispose()
	require.Len(t, a.Uses(), 1)
}

func TestDeadInstruction(t *testing.T) {
	m := NewModule()
	f, _ := m.NewFunction("f", types.Int32())

	add := NewBinary(f, OpAdd, m.NewConstInt(1), m.NewConstInt(2), types.Int32())
	require.True(t, add.IsDead())

	v := m.NewVarValue(f, types.Int32(), "x")
	move := NewMove(f, v, add)
	require.False(t, add.IsDead())
	require.False(t, move.IsDead(), "moves have side effects")

	move.Dispose()
	require.True(t, add.IsDead())
}

func TestRegisterMemoryExclusive(t *testing.T) {
	m := NewModule()
	f, _ := m.NewFunction("f", types.Int32())
	v := m.NewVarValue(f, types.Int32(), "x")

	require.Equal(t, -1, v.RegId())
	_, _, ok := v.MemoryAddr()
	require.False(t, ok)

	v.SetMemoryAddr(11, -4)
	base, ofs, ok := v.MemoryAddr()
	require.True(t, ok)
	require.Equal(t, 11, base)
	require.Equal(t, int32(-4), ofs)
	require.Equal(t, -1, v.RegId(), "memory-resident value keeps no register")
}

func TestLoopLabelStacks(t *testing.T) {
	m := NewModule()
	f, _ := m.NewFunction("f", types.Void())

	require.Nil(t, f.BreakLabel())
	require.Nil(t, f.ContinueLabel())

	outerExit := NewLabel(f)
	outerEntry := NewLabel(f)
	f.PushBreakLabel(outerExit)
	f.PushContinueLabel(outerEntry)

	innerExit := NewLabel(f)
	innerEntry := NewLabel(f)
	f.PushBreakLabel(innerExit)
	f.PushContinueLabel(innerEntry)

	require.Same(t, innerExit, f.BreakLabel())
	require.Same(t, innerEntry, f.ContinueLabel())

	f.PopBreakLabel()
	f.PopContinueLabel()
	require.Same(t, outerExit, f.BreakLabel())
	require.Same(t, outerEntry, f.ContinueLabel())
}

func TestInstructionText(t *testing.T) {
	m := NewModule()
	f, _ := m.NewFunction("f", types.Int32())

	cmp := NewBinary(f, OpCmpLT, m.NewConstInt(1), m.NewConstInt(2), types.Bool())
	require.Equal(t, "%t0 = icmp_lt 1, 2", cmp.String())

	trueL := NewLabel(f)
	falseL := NewLabel(f)
	bc := NewCondGoto(f, cmp, trueL, falseL)
	require.Equal(t, "bc %t0, label .L1, label .L2", bc.String())

	require.Equal(t, "br label .L1", NewGoto(f, trueL).String())

	neg := NewUnary(f, OpNeg, m.NewConstInt(3), types.Int32())
	require.Equal(t, "%t1 = neg 3", neg.String())
}

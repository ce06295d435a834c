package ir

import (
	"fmt"

	"github.com/minic-lang/minicc/pkg/types"
)

// Module owns the global variables, the functions and the interned
// integer-constant pool, and provides the nested symbol-table scopes
// used during lowering
type Module struct {
	globals   []*GlobalVariable
	funcs     []*Function
	funcIndex map[string]*Function

	consts map[int32]*Constant

	// LIFO scope stack; scopes[0] holds globals
	scopes []map[string]Value

	globalSeq int
}

// NewModule creates an empty module with the global scope open
func NewModule() *Module {
	return &Module{
		funcIndex: make(map[string]*Function),
		consts:    make(map[int32]*Constant),
		scopes:    []map[string]Value{make(map[string]Value)},
	}
}

// EnterScope pushes a fresh name scope
func (m *Module) EnterScope() {
	m.scopes = append(m.scopes, make(map[string]Value))
}

// LeaveScope pops the innermost scope, making its names unresolvable
func (m *Module) LeaveScope() {
	if len(m.scopes) > 1 {
		m.scopes = m.scopes[:len(m.scopes)-1]
	}
}

// ScopeDepth returns the current nesting depth; globals are level 0
func (m *Module) ScopeDepth() int { return len(m.scopes) - 1 }

// NewFunction registers a function definition. It fails when a function
// of the same name already exists.
func (m *Module) NewFunction(name string, retType types.Type) (*Function, error) {
	if _, ok := m.funcIndex[name]; ok {
		return nil, fmt.Errorf("function %s redefined", name)
	}
	f := newFunction(name, retType)
	m.funcs = append(m.funcs, f)
	m.funcIndex[name] = f
	return f, nil
}

// FindFunction looks a function up by name, returning nil when absent
func (m *Module) FindFunction(name string) *Function {
	return m.funcIndex[name]
}

// Functions returns the functions in definition order
func (m *Module) Functions() []*Function { return m.funcs }

// Globals returns the global variables in declaration order
func (m *Module) Globals() []*GlobalVariable { return m.globals }

// NewVarValue creates a variable in the current scope. With cur == nil
// the variable is a global; otherwise it is a local of cur at the
// innermost scope level. An empty name creates an anonymous local that
// is still tracked in the function's local list.
func (m *Module) NewVarValue(cur *Function, typ types.Type, name string) Value {
	if cur == nil {
		g := &GlobalVariable{ValueBase: newValueBase(typ)}
		if name == "" {
			name = fmt.Sprintf("g%d", m.globalSeq)
			m.globalSeq++
		}
		g.name = name
		g.irName = "@" + name
		m.globals = append(m.globals, g)
		m.scopes[0][name] = g
		return g
	}

	l := &LocalVariable{
		ValueBase:  newValueBase(typ),
		scopeLevel: m.ScopeDepth(),
	}
	l.name = name
	l.irName = cur.nextLocalName()
	cur.addLocal(l)
	if name != "" {
		m.scopes[len(m.scopes)-1][name] = l
	}
	return l
}

// FindVarValue resolves a name from the innermost scope outward,
// returning nil when the name is not in scope
func (m *Module) FindVarValue(name string) Value {
	for i := len(m.scopes) - 1; i >= 0; i-- {
		if v, ok := m.scopes[i][name]; ok {
			return v
		}
	}
	return nil
}

// NewConstInt returns the interned constant for v
func (m *Module) NewConstInt(v int32) *Constant {
	if c, ok := m.consts[v]; ok {
		return c
	}
	c := newConstant(v)
	m.consts[v] = c
	return c
}

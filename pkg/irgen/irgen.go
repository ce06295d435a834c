// Package irgen lowers the MiniC AST into linear IR. Expressions are
// translated in value mode; expressions in a boolean context go through
// the label-threading translator in cond.go.
package irgen

import (
	"errors"
	"fmt"

	"github.com/minic-lang/minicc/pkg/ast"
	"github.com/minic-lang/minicc/pkg/ir"
	"github.com/minic-lang/minicc/pkg/types"
)

// Diagnostic is one semantic error or warning with its source line
type Diagnostic struct {
	Line    int
	Msg     string
	Warning bool
}

func (d Diagnostic) String() string {
	kind := "error"
	if d.Warning {
		kind = "warning"
	}
	return fmt.Sprintf("line %d: %s: %s", d.Line, kind, d.Msg)
}

// Generator walks the AST and appends the lowered instructions to the
// module under construction. It carries the lowering context explicitly:
// the module, the current function, and the diagnostics sink.
type Generator struct {
	m   *ir.Module
	cur *ir.Function

	diags    []Diagnostic
	errCount int
}

// New creates a Generator targeting m
func New(m *ir.Module) *Generator {
	return &Generator{m: m}
}

// Diagnostics returns the errors and warnings collected so far
func (g *Generator) Diagnostics() []Diagnostic { return g.diags }

func (g *Generator) errorf(line int, format string, args ...interface{}) error {
	d := Diagnostic{Line: line, Msg: fmt.Sprintf(format, args...)}
	g.diags = append(g.diags, d)
	g.errCount++
	return errors.New(d.String())
}

func (g *Generator) warnf(line int, format string, args ...interface{}) {
	g.diags = append(g.diags, Diagnostic{
		Line: line, Msg: fmt.Sprintf(format, args...), Warning: true,
	})
}

// Run lowers a whole translation unit. Lowering stops at the first
// semantic error and returns it; the diagnostics list holds that error
// and the warnings issued before it.
func (g *Generator) Run(unit *ast.CompUnit) error {
	for _, decl := range unit.Decls {
		switch d := decl.(type) {
		case *ast.FuncDef:
			if err := g.genFuncDef(d); err != nil {
				return err
			}
		case *ast.DeclStmt:
			if _, err := g.genDeclStmt(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// genFuncDef registers a function and lowers its body. Sequence:
// entry, return-slot setup (main gets an implicit zero), parameter
// binding, body, exit label, exit.
func (g *Generator) genFuncDef(fn *ast.FuncDef) error {
	if g.cur != nil {
		return g.errorf(fn.Line, "nested function definition %s", fn.Name)
	}

	retType := types.Int32()
	if fn.RetVoid {
		retType = types.Void()
	}

	f, err := g.m.NewFunction(fn.Name, retType)
	if err != nil {
		return g.errorf(fn.Line, "%v", err)
	}
	g.cur = f
	defer func() { g.cur = nil }()

	g.m.EnterScope()
	defer g.m.LeaveScope()

	f.Append(ir.NewEntry(f))

	// The exit label is created up front so return statements can
	// target it; it is appended after the body.
	exitLabel := ir.NewLabel(f)
	f.SetExitLabel(exitLabel)

	var retValue ir.Value
	if !fn.RetVoid {
		retValue = g.m.NewVarValue(f, retType, "")
		// main without an explicit return must still exit with status 0
		if fn.Name == "main" {
			f.Append(ir.NewMove(f, retValue, g.m.NewConstInt(0)))
		}
	}
	f.SetReturnValue(retValue)

	for i, param := range fn.Params {
		insts, err := g.genFormalParam(param, i)
		if err != nil {
			return err
		}
		f.AppendAll(insts)
	}

	// The function scope is already open; the body block must not
	// open another one for the same names.
	fn.Body.NeedScope = false
	bodyInsts, err := g.genBlock(fn.Body)
	if err != nil {
		return err
	}
	f.AppendAll(bodyInsts)

	f.Append(exitLabel)
	f.Append(ir.NewExit(f, retValue))

	return nil
}

// genFormalParam creates the ABI-visible FormalParam and the local
// variable it is copied into at entry. Array parameters transfer an
// address: the binding move carries the array flag and dimensions.
func (g *Generator) genFormalParam(param *ast.Param, index int) ([]*ir.Instruction, error) {
	fp := ir.NewFormalParam(types.Int32(), param.Name, index)
	if param.IsArray {
		fp.SetArrayDims(param.Dims)
	}
	g.cur.AddParam(fp)

	local := g.m.NewVarValue(g.cur, types.Int32(), param.Name)
	if local == nil {
		return nil, g.errorf(param.Line, "cannot create parameter %s", param.Name)
	}
	move := ir.NewMove(g.cur, local, fp)
	if param.IsArray {
		local.SetArrayDims(param.Dims)
		move.SetArrayDims(param.Dims)
	}
	return []*ir.Instruction{move}, nil
}

// genBlock lowers a compound statement, entering a scope unless the
// caller already did
func (g *Generator) genBlock(block *ast.Block) ([]*ir.Instruction, error) {
	if block.NeedScope {
		g.m.EnterScope()
		defer g.m.LeaveScope()
	}

	var insts []*ir.Instruction
	for _, item := range block.Items {
		stmtInsts, err := g.genStmt(item)
		if err != nil {
			return nil, err
		}
		insts = append(insts, stmtInsts...)
	}
	return insts, nil
}

func (g *Generator) genStmt(stmt ast.Stmt) ([]*ir.Instruction, error) {
	switch s := stmt.(type) {
	case *ast.Block:
		return g.genBlock(s)
	case *ast.DeclStmt:
		return g.genDeclStmt(s)
	case *ast.Assign:
		return g.genAssign(s)
	case *ast.ExprStmt:
		if s.X == nil {
			return nil, nil
		}
		_, insts, err := g.genExpr(s.X)
		return insts, err
	case *ast.If:
		return g.genIf(s)
	case *ast.While:
		return g.genWhile(s)
	case *ast.Break:
		target := g.cur.BreakLabel()
		if target == nil {
			return nil, g.errorf(s.Line, "break statement not within a loop")
		}
		return []*ir.Instruction{ir.NewGoto(g.cur, target)}, nil
	case *ast.Continue:
		target := g.cur.ContinueLabel()
		if target == nil {
			return nil, g.errorf(s.Line, "continue statement not within a loop")
		}
		return []*ir.Instruction{ir.NewGoto(g.cur, target)}, nil
	case *ast.Return:
		return g.genReturn(s)
	}
	return nil, g.errorf(stmt.Pos(), "unsupported statement")
}

// genDeclStmt lowers each declarator of a declaration statement
func (g *Generator) genDeclStmt(decl *ast.DeclStmt) ([]*ir.Instruction, error) {
	var insts []*ir.Instruction
	for _, item := range decl.Items {
		itemInsts, err := g.genVarDecl(item)
		if err != nil {
			return nil, err
		}
		insts = append(insts, itemInsts...)
	}
	return insts, nil
}

// genVarDecl allocates a variable in the current scope. Global scalar
// initializers fold to constants; local ones emit a move. Uninitialized
// globals stay in BSS and read as zero.
func (g *Generator) genVarDecl(decl *ast.VarDecl) ([]*ir.Instruction, error) {
	v := g.m.NewVarValue(g.cur, types.Int32(), decl.Name)
	if len(decl.Dims) > 0 {
		v.SetArrayDims(decl.Dims)
		return nil, nil
	}

	if decl.Init == nil {
		return nil, nil
	}

	if g.cur == nil {
		global := v.(*ir.GlobalVariable)
		c, ok := foldConstExpr(g.m, decl.Init)
		if !ok {
			return nil, g.errorf(decl.Line, "global initializer for %s is not constant", decl.Name)
		}
		global.SetInitValue(c)
		return nil, nil
	}

	initVal, insts, err := g.genExpr(decl.Init)
	if err != nil {
		return nil, err
	}
	insts = append(insts, ir.NewMove(g.cur, v, initVal))
	return insts, nil
}

// foldConstExpr folds a literal or a negated literal to a constant
func foldConstExpr(m *ir.Module, e ast.Expr) (*ir.Constant, bool) {
	switch x := e.(type) {
	case *ast.IntLit:
		return m.NewConstInt(x.Value), true
	case *ast.Unary:
		if x.Op == ast.OpNeg {
			if lit, ok := x.X.(*ast.IntLit); ok {
				return m.NewConstInt(-lit.Value), true
			}
		}
	}
	return nil, false
}

// genAssign evaluates the right side, then the left side (which for an
// array access yields an address), then emits the move. The RHS
// instructions precede the LHS instructions.
func (g *Generator) genAssign(s *ast.Assign) ([]*ir.Instruction, error) {
	rhsVal, rhsInsts, err := g.genExpr(s.RHS)
	if err != nil {
		return nil, err
	}

	var lhsVal ir.Value
	var lhsInsts []*ir.Instruction
	switch lhs := s.LHS.(type) {
	case *ast.Ident:
		lhsVal = g.m.FindVarValue(lhs.Name)
		if lhsVal == nil {
			return nil, g.errorf(lhs.Line, "undefined variable %s", lhs.Name)
		}
	case *ast.ArrayAccess:
		lhsVal, lhsInsts, err = g.genArrayAccess(lhs, accessAddress)
		if err != nil {
			return nil, err
		}
	default:
		return nil, g.errorf(s.Line, "invalid assignment target")
	}

	insts := append(rhsInsts, lhsInsts...)
	insts = append(insts, ir.NewMove(g.cur, lhsVal, rhsVal))
	return insts, nil
}

// genReturn lowers a return statement into a move to the return slot
// and a jump to the exit label. Type mismatches warn but lowering
// continues.
func (g *Generator) genReturn(s *ast.Return) ([]*ir.Instruction, error) {
	retValue := g.cur.ReturnValue()

	var insts []*ir.Instruction
	if s.X != nil {
		val, exprInsts, err := g.genExpr(s.X)
		if err != nil {
			return nil, err
		}
		switch {
		case retValue != nil:
			if !types.Equal(val.Type(), retValue.Type()) && !types.IsBool(val.Type()) {
				g.warnf(s.Line, "return value type %s does not match declared %s",
					val.Type().String(), retValue.Type().String())
			}
			insts = append(insts, exprInsts...)
			insts = append(insts, ir.NewMove(g.cur, retValue, val))
		default:
			g.warnf(s.Line, "void function returns a value")
			insts = append(insts, exprInsts...)
		}
	} else if retValue != nil {
		g.warnf(s.Line, "non-void function %s returns without a value", g.cur.Name())
	}

	insts = append(insts, ir.NewGoto(g.cur, g.cur.ExitLabel()))
	return insts, nil
}

// genIf lowers a conditional. The condition is translated in label mode
// against the then label and either the else or the end label.
func (g *Generator) genIf(s *ast.If) ([]*ir.Instruction, error) {
	thenLabel := ir.NewLabel(g.cur)
	endLabel := ir.NewLabel(g.cur)
	falseLabel := endLabel
	var elseLabel *ir.Instruction
	if s.Else != nil {
		elseLabel = ir.NewLabel(g.cur)
		falseLabel = elseLabel
	}

	insts, err := g.genCond(s.Cond, thenLabel, falseLabel)
	if err != nil {
		return nil, err
	}

	insts = append(insts, thenLabel)
	thenInsts, err := g.genStmt(s.Then)
	if err != nil {
		return nil, err
	}
	insts = append(insts, thenInsts...)

	if s.Else != nil {
		insts = append(insts, ir.NewGoto(g.cur, endLabel))
		insts = append(insts, elseLabel)
		elseInsts, err := g.genStmt(s.Else)
		if err != nil {
			return nil, err
		}
		insts = append(insts, elseInsts...)
	}

	insts = append(insts, endLabel)
	return insts, nil
}

// genWhile lowers a loop: entry label, condition in label mode, body
// label, body, back edge, exit label. The exit and entry labels are the
// break and continue targets while the body lowers.
func (g *Generator) genWhile(s *ast.While) ([]*ir.Instruction, error) {
	entryLabel := ir.NewLabel(g.cur)
	bodyLabel := ir.NewLabel(g.cur)
	exitLabel := ir.NewLabel(g.cur)

	g.cur.PushBreakLabel(exitLabel)
	g.cur.PushContinueLabel(entryLabel)
	defer g.cur.PopBreakLabel()
	defer g.cur.PopContinueLabel()

	insts := []*ir.Instruction{entryLabel}

	condInsts, err := g.genCond(s.Cond, bodyLabel, exitLabel)
	if err != nil {
		return nil, err
	}
	insts = append(insts, condInsts...)

	insts = append(insts, bodyLabel)
	bodyInsts, err := g.genStmt(s.Body)
	if err != nil {
		return nil, err
	}
	insts = append(insts, bodyInsts...)

	insts = append(insts, ir.NewGoto(g.cur, entryLabel))
	insts = append(insts, exitLabel)
	return insts, nil
}

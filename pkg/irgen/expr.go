package irgen

import (
	"github.com/minic-lang/minicc/pkg/ast"
	"github.com/minic-lang/minicc/pkg/ir"
	"github.com/minic-lang/minicc/pkg/types"
)

// binaryOpcode maps arithmetic and relational AST operators to IR opcodes
var binaryOpcode = map[ast.BinaryOp]ir.Opcode{
	ast.OpAdd: ir.OpAdd,
	ast.OpSub: ir.OpSub,
	ast.OpMul: ir.OpMul,
	ast.OpDiv: ir.OpDiv,
	ast.OpMod: ir.OpMod,
	ast.OpEq:  ir.OpCmpEQ,
	ast.OpNe:  ir.OpCmpNE,
	ast.OpLt:  ir.OpCmpLT,
	ast.OpLe:  ir.OpCmpLE,
	ast.OpGt:  ir.OpCmpGT,
	ast.OpGe:  ir.OpCmpGE,
}

// genExpr lowers an expression in value mode, returning the value the
// expression denotes and the instructions computing it
func (g *Generator) genExpr(e ast.Expr) (ir.Value, []*ir.Instruction, error) {
	switch x := e.(type) {
	case *ast.IntLit:
		return g.m.NewConstInt(x.Value), nil, nil

	case *ast.Ident:
		v := g.m.FindVarValue(x.Name)
		if v == nil {
			return nil, nil, g.errorf(x.Line, "undefined variable %s", x.Name)
		}
		return v, nil, nil

	case *ast.Unary:
		if x.Op == ast.OpNot {
			return g.genBoolValue(e)
		}
		val, insts, err := g.genExpr(x.X)
		if err != nil {
			return nil, nil, err
		}
		neg := ir.NewUnary(g.cur, ir.OpNeg, val, types.Int32())
		return neg, append(insts, neg), nil

	case *ast.Binary:
		if x.Op.IsLogical() {
			return g.genBoolValue(e)
		}
		lval, linsts, err := g.genExpr(x.L)
		if err != nil {
			return nil, nil, err
		}
		rval, rinsts, err := g.genExpr(x.R)
		if err != nil {
			return nil, nil, err
		}
		resType := types.Int32()
		if x.Op.IsRelational() {
			resType = types.Bool()
		}
		inst := ir.NewBinary(g.cur, binaryOpcode[x.Op], lval, rval, resType)
		insts := append(linsts, rinsts...)
		return inst, append(insts, inst), nil

	case *ast.Call:
		return g.genCall(x)

	case *ast.ArrayAccess:
		return g.genArrayAccess(x, accessLoad)
	}
	return nil, nil, g.errorf(e.Pos(), "unsupported expression")
}

// genCall lowers a function call: arguments left to right, then the
// call instruction. Arity mismatches are semantic errors.
func (g *Generator) genCall(call *ast.Call) (ir.Value, []*ir.Instruction, error) {
	callee := g.m.FindFunction(call.Name)
	if callee == nil {
		return nil, nil, g.errorf(call.Line, "function %s is not defined", call.Name)
	}

	g.cur.NoteCallArgs(len(call.Args))

	var insts []*ir.Instruction
	args := make([]ir.Value, 0, len(call.Args))
	for _, argNode := range call.Args {
		val, argInsts, err := g.genCallArg(argNode)
		if err != nil {
			return nil, nil, err
		}
		insts = append(insts, argInsts...)
		args = append(args, val)
	}

	if len(args) != len(callee.Params()) {
		return nil, nil, g.errorf(call.Line,
			"call to %s needs %d arguments, got %d",
			call.Name, len(callee.Params()), len(args))
	}

	inst := ir.NewCall(g.cur, callee, args, callee.ReturnType())
	insts = append(insts, inst)
	return inst, insts, nil
}

// genCallArg lowers one actual argument. A partially indexed array
// yields its address with the remaining dimensions attached so the
// callee's binding records the sub-array shape.
func (g *Generator) genCallArg(e ast.Expr) (ir.Value, []*ir.Instruction, error) {
	if access, ok := e.(*ast.ArrayAccess); ok {
		arrayVar := g.m.FindVarValue(access.Name)
		if arrayVar != nil && len(access.Indexes) < len(arrayVar.ArrayDims()) {
			return g.genArrayAccess(access, accessArgument)
		}
	}
	return g.genExpr(e)
}

// accessMode selects the role an array access plays in its parent
type accessMode int

const (
	accessLoad     accessMode = iota // value context: deref the address
	accessAddress                    // assignment target: yield the address
	accessArgument                   // partial index in argument position
)

// genArrayAccess linearizes the index vector row-major, scales by the
// 4-byte element size and adds the base. The role decides whether the
// pointer is dereferenced, yielded as a store target, or yielded with
// its remaining dimensions as a sub-array argument.
func (g *Generator) genArrayAccess(access *ast.ArrayAccess, mode accessMode) (ir.Value, []*ir.Instruction, error) {
	arrayVar := g.m.FindVarValue(access.Name)
	if arrayVar == nil {
		return nil, nil, g.errorf(access.Line, "undefined variable %s", access.Name)
	}
	if !arrayVar.IsArray() {
		return nil, nil, g.errorf(access.Line, "%s is not an array", access.Name)
	}

	dims := arrayVar.ArrayDims()
	intType := types.Int32()

	var insts []*ir.Instruction
	var totalOffset ir.Value

	for i, idxNode := range access.Indexes {
		idxVal, idxInsts, err := g.genExpr(idxNode)
		if err != nil {
			return nil, nil, err
		}
		insts = append(insts, idxInsts...)

		mult := types.DimensionMultiplier(dims, i)
		current := idxVal
		if mult != 1 {
			mul := ir.NewBinary(g.cur, ir.OpMul, idxVal, g.m.NewConstInt(mult), intType)
			insts = append(insts, mul)
			current = mul
		}

		if totalOffset == nil {
			totalOffset = current
		} else {
			add := ir.NewBinary(g.cur, ir.OpAdd, totalOffset, current, intType)
			insts = append(insts, add)
			totalOffset = add
		}
	}

	byteOffset := ir.NewBinary(g.cur, ir.OpMul, totalOffset, g.m.NewConstInt(4), intType)
	insts = append(insts, byteOffset)

	addr := ir.NewBinary(g.cur, ir.OpAdd, arrayVar, byteOffset, types.Pointer(intType))
	insts = append(insts, addr)

	switch mode {
	case accessAddress:
		return addr, insts, nil
	case accessArgument:
		addr.SetArrayDims(dims[len(access.Indexes):])
		return addr, insts, nil
	default:
		load := ir.NewUnary(g.cur, ir.OpDeref, addr, intType)
		insts = append(insts, load)
		return load, insts, nil
	}
}

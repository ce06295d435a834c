package irgen

import (
	"github.com/minic-lang/minicc/pkg/ast"
	"github.com/minic-lang/minicc/pkg/ir"
	"github.com/minic-lang/minicc/pkg/types"
)

// genCond translates an expression in a boolean context. Instead of
// materializing 0/1 it threads the inherited true and false labels
// through the tree, producing short-circuit control flow:
//
//	a && b   lower a with (R, false); emit R; lower b with (true, false)
//	a || b   lower a with (true, R);  emit R; lower b with (true, false)
//	!a       lower a with swapped labels
//	a <op> b compare and branch
//	other    rewrite into v != 0 and recurse
func (g *Generator) genCond(e ast.Expr, trueLabel, falseLabel *ir.Instruction) ([]*ir.Instruction, error) {
	switch x := e.(type) {
	case *ast.Binary:
		switch {
		case x.Op == ast.OpAnd:
			rightLabel := ir.NewLabel(g.cur)
			insts, err := g.genCond(x.L, rightLabel, falseLabel)
			if err != nil {
				return nil, err
			}
			insts = append(insts, rightLabel)
			rightInsts, err := g.genCond(x.R, trueLabel, falseLabel)
			if err != nil {
				return nil, err
			}
			return append(insts, rightInsts...), nil

		case x.Op == ast.OpOr:
			rightLabel := ir.NewLabel(g.cur)
			insts, err := g.genCond(x.L, trueLabel, rightLabel)
			if err != nil {
				return nil, err
			}
			insts = append(insts, rightLabel)
			rightInsts, err := g.genCond(x.R, trueLabel, falseLabel)
			if err != nil {
				return nil, err
			}
			return append(insts, rightInsts...), nil

		case x.Op.IsRelational():
			return g.genCompare(x, trueLabel, falseLabel)
		}

	case *ast.Unary:
		if x.Op == ast.OpNot {
			return g.genCond(x.X, falseLabel, trueLabel)
		}
	}

	// Fall back: evaluate as a value and branch on it being nonzero
	val, insts, err := g.genExpr(e)
	if err != nil {
		return nil, err
	}
	cmp := ir.NewBinary(g.cur, ir.OpCmpNE, val, g.m.NewConstInt(0), types.Bool())
	insts = append(insts, cmp)
	insts = append(insts, ir.NewCondGoto(g.cur, cmp, trueLabel, falseLabel))
	return insts, nil
}

// genCompare lowers a relational operator: both operands as values,
// one comparison producing a Bool, one two-way branch
func (g *Generator) genCompare(x *ast.Binary, trueLabel, falseLabel *ir.Instruction) ([]*ir.Instruction, error) {
	lval, insts, err := g.genExpr(x.L)
	if err != nil {
		return nil, err
	}
	rval, rinsts, err := g.genExpr(x.R)
	if err != nil {
		return nil, err
	}
	insts = append(insts, rinsts...)

	cmp := ir.NewBinary(g.cur, binaryOpcode[x.Op], lval, rval, types.Bool())
	insts = append(insts, cmp)
	insts = append(insts, ir.NewCondGoto(g.cur, cmp, trueLabel, falseLabel))
	return insts, nil
}

// genBoolValue materializes a boolean expression as a 0/1 value: fresh
// true/false/end labels, the label-mode translation, then a 1 on the
// true path and a 0 on the false path
func (g *Generator) genBoolValue(e ast.Expr) (ir.Value, []*ir.Instruction, error) {
	trueLabel := ir.NewLabel(g.cur)
	falseLabel := ir.NewLabel(g.cur)
	endLabel := ir.NewLabel(g.cur)

	result := g.m.NewVarValue(g.cur, types.Int32(), "")

	insts, err := g.genCond(e, trueLabel, falseLabel)
	if err != nil {
		return nil, nil, err
	}

	insts = append(insts, trueLabel)
	insts = append(insts, ir.NewMove(g.cur, result, g.m.NewConstInt(1)))
	insts = append(insts, ir.NewGoto(g.cur, endLabel))
	insts = append(insts, falseLabel)
	insts = append(insts, ir.NewMove(g.cur, result, g.m.NewConstInt(0)))
	insts = append(insts, endLabel)

	return result, insts, nil
}

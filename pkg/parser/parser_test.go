package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minic-lang/minicc/pkg/ast"
	"github.com/minic-lang/minicc/pkg/lexer"
)

func parseUnit(t *testing.T, src string) *ast.CompUnit {
	t.Helper()
	p := New(lexer.New(src))
	unit := p.ParseCompUnit()
	require.Empty(t, p.Errors(), "unexpected parse errors")
	return unit
}

func TestParseFuncDef(t *testing.T) {
	unit := parseUnit(t, "int add(int a, int b) { return a + b; }")
	require.Len(t, unit.Decls, 1)

	fn, ok := unit.Decls[0].(*ast.FuncDef)
	require.True(t, ok)
	require.Equal(t, "add", fn.Name)
	require.False(t, fn.RetVoid)
	require.Len(t, fn.Params, 2)
	require.Equal(t, "a", fn.Params[0].Name)
	require.Equal(t, "b", fn.Params[1].Name)
	require.Len(t, fn.Body.Items, 1)

	ret, ok := fn.Body.Items[0].(*ast.Return)
	require.True(t, ok)
	bin, ok := ret.X.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.OpAdd, bin.Op)
}

func TestParsePrecedence(t *testing.T) {
	unit := parseUnit(t, "int f() { return 1 + 2 * 3; }")
	fn := unit.Decls[0].(*ast.FuncDef)
	ret := fn.Body.Items[0].(*ast.Return)

	add, ok := ret.X.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.OpAdd, add.Op)

	mul, ok := add.R.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.OpMul, mul.Op)
}

func TestParseLogicalPrecedence(t *testing.T) {
	// || binds weaker than &&, which binds weaker than ==
	unit := parseUnit(t, "int f(int a, int b) { if (a == 1 && b == 2 || a < b) return 1; return 0; }")
	fn := unit.Decls[0].(*ast.FuncDef)
	stmt := fn.Body.Items[0].(*ast.If)

	or, ok := stmt.Cond.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.OpOr, or.Op)

	and, ok := or.L.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.OpAnd, and.Op)
}

func TestParseDeclarations(t *testing.T) {
	unit := parseUnit(t, "int f() { int a = 1, b, c[2][3]; return a; }")
	fn := unit.Decls[0].(*ast.FuncDef)
	decl, ok := fn.Body.Items[0].(*ast.DeclStmt)
	require.True(t, ok)
	require.Len(t, decl.Items, 3)

	require.Equal(t, "a", decl.Items[0].Name)
	require.NotNil(t, decl.Items[0].Init)

	require.Equal(t, "b", decl.Items[1].Name)
	require.Nil(t, decl.Items[1].Init)

	require.Equal(t, "c", decl.Items[2].Name)
	require.Equal(t, []int32{2, 3}, decl.Items[2].Dims)
}

func TestParseGlobalDecl(t *testing.T) {
	unit := parseUnit(t, "int g = 5; int h; int main() { return g; }")
	require.Len(t, unit.Decls, 3)

	_, ok := unit.Decls[0].(*ast.DeclStmt)
	require.True(t, ok)
	_, ok = unit.Decls[2].(*ast.FuncDef)
	require.True(t, ok)
}

func TestParseArrayParam(t *testing.T) {
	unit := parseUnit(t, "int f(int a[][3]) { return a[0][0]; }")
	fn := unit.Decls[0].(*ast.FuncDef)
	require.Len(t, fn.Params, 1)

	param := fn.Params[0]
	require.True(t, param.IsArray)
	require.Equal(t, []int32{0, 3}, param.Dims)
}

func TestParseArrayAccess(t *testing.T) {
	unit := parseUnit(t, "int f() { int a[2][3]; a[1][2] = 7; return a[1][2]; }")
	fn := unit.Decls[0].(*ast.FuncDef)

	assign, ok := fn.Body.Items[1].(*ast.Assign)
	require.True(t, ok)
	access, ok := assign.LHS.(*ast.ArrayAccess)
	require.True(t, ok)
	require.Equal(t, "a", access.Name)
	require.Len(t, access.Indexes, 2)
}

func TestParseControlFlow(t *testing.T) {
	src := `int f(int n) {
	while (n > 0) {
		if (n == 5) break;
		n = n - 1;
		continue;
	}
	return n;
}`
	unit := parseUnit(t, src)
	fn := unit.Decls[0].(*ast.FuncDef)
	loop, ok := fn.Body.Items[0].(*ast.While)
	require.True(t, ok)

	body, ok := loop.Body.(*ast.Block)
	require.True(t, ok)
	require.Len(t, body.Items, 3)

	cond, ok := body.Items[0].(*ast.If)
	require.True(t, ok)
	_, ok = cond.Then.(*ast.Break)
	require.True(t, ok)
	_, ok = body.Items[2].(*ast.Continue)
	require.True(t, ok)
}

func TestParseUnary(t *testing.T) {
	unit := parseUnit(t, "int f(int x) { return -!x; }")
	fn := unit.Decls[0].(*ast.FuncDef)
	ret := fn.Body.Items[0].(*ast.Return)

	neg, ok := ret.X.(*ast.Unary)
	require.True(t, ok)
	require.Equal(t, ast.OpNeg, neg.Op)

	not, ok := neg.X.(*ast.Unary)
	require.True(t, ok)
	require.Equal(t, ast.OpNot, not.Op)
}

func TestParseCall(t *testing.T) {
	unit := parseUnit(t, "int f(int a) { return f(a - 1) + f(a - 2); }")
	fn := unit.Decls[0].(*ast.FuncDef)
	ret := fn.Body.Items[0].(*ast.Return)

	add := ret.X.(*ast.Binary)
	call, ok := add.L.(*ast.Call)
	require.True(t, ok)
	require.Equal(t, "f", call.Name)
	require.Len(t, call.Args, 1)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing semicolon", "int f() { return 1 }"},
		{"void variable", "void x;"},
		{"array initializer list", "int f() { int a[2] = 1; return 0; }"},
		{"bad assignment target", "int f() { 1 = 2; return 0; }"},
		{"non-constant dimension", "int f(int n) { int a[n]; return 0; }"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := New(lexer.New(tc.input))
			p.ParseCompUnit()
			require.NotEmpty(t, p.Errors())
		})
	}
}

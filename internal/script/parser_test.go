package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssignAndIf(t *testing.T) {
	prog, err := Parse([]byte("a = 1\nif a:\n    b = 2\nelse:\n    b = 3\n"))
	require.NoError(t, err)
	require.Len(t, prog.Stmts, 2)

	assign, ok := prog.Stmts[0].(*Assign)
	require.True(t, ok)
	ident, ok := assign.Target.(*Ident)
	require.True(t, ok)
	assert.Equal(t, "a", ident.Name)

	ifStmt, ok := prog.Stmts[1].(*If)
	require.True(t, ok)
	assert.Len(t, ifStmt.Then, 1)
	assert.Len(t, ifStmt.Else, 1)
}

func TestParseFuncDefAndClassDef(t *testing.T) {
	src := "def add(x, y):\n    return x + y\n\nclass Point:\n    def __init__(self, x):\n        self.x = x\n"
	prog, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, prog.Stmts, 2)

	fn, ok := prog.Stmts[0].(*FuncDef)
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, fn.Params)

	cls, ok := prog.Stmts[1].(*ClassDef)
	require.True(t, ok)
	assert.Equal(t, "Point", cls.Name)
	require.Len(t, cls.Body, 1)
	assert.Equal(t, "__init__", cls.Body[0].Name)
}

func TestParseListTupleSetMap(t *testing.T) {
	prog, err := Parse([]byte("a = [1, 2]\nb = (1, 2)\nc = {1, 2}\nd = {1: 2}\n"))
	require.NoError(t, err)
	require.Len(t, prog.Stmts, 4)

	assertAssignExpr := func(i int) Expr { return prog.Stmts[i].(*Assign).Value }

	_, isList := assertAssignExpr(0).(*ListLit)
	assert.True(t, isList)
	_, isTuple := assertAssignExpr(1).(*TupleLit)
	assert.True(t, isTuple)
	_, isSet := assertAssignExpr(2).(*SetLit)
	assert.True(t, isSet)
	_, isMap := assertAssignExpr(3).(*MapLit)
	assert.True(t, isMap)
}

func TestParseExprStandalone(t *testing.T) {
	expr, err := ParseExpr([]byte("1 + 2 * 3"))
	require.NoError(t, err)
	bin, ok := expr.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Op)
}

func TestParseMissingColonError(t *testing.T) {
	_, err := Parse([]byte("if true\n    a = 1\n"))
	assert.Error(t, err)
}

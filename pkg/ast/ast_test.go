package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"toyc/pkg/ast"
	"toyc/pkg/token"
)

func TestNodeIDsAreUniqueAndMonotonic(t *testing.T) {
	a := ast.NewIdent(0, "a")
	b := ast.NewIdent(0, "b")
	assert.Less(t, a.ID(), b.ID())
}

func TestKindMatchesConstructor(t *testing.T) {
	assert.Equal(t, ast.BasicLit, ast.NewBasic(0, token.INT, "1").Kind())
	assert.Equal(t, ast.BinaryExpr, ast.NewBinary(0, token.ADD, nil, nil).Kind())
	assert.Equal(t, ast.IfStmt, ast.NewIf(0, nil, nil, nil).Kind())
	assert.Equal(t, ast.ForStmt, ast.NewFor(0, nil, nil, nil, nil).Kind())
	assert.Equal(t, ast.FuncDecl, ast.NewFunc(0, nil, nil, nil, nil, nil).Kind())
	assert.Equal(t, ast.GenDeclStmt, ast.NewDeclStmt(0, nil).Kind())
}

func TestBodyNilMeansPrototype(t *testing.T) {
	proto := ast.NewFunc(0, nil, ast.NewIdent(0, "f"), nil, nil, nil)
	assert.Nil(t, proto.Body)
}

func TestExprStmtAndDeclAreDistinctInterfaces(t *testing.T) {
	var _ ast.Expr = ast.NewIdent(0, "x")
	var _ ast.Stmt = ast.NewExprStmt(0, ast.NewIdent(0, "x"))
	var _ ast.Decl = ast.NewVar(0, ast.NewIdent(0, "x"), ast.NewIdent(0, "int"), nil)
}

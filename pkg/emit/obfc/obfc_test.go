package obfc_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toyc/pkg/emit/obfc"
	"toyc/pkg/parser"
)

func emitSrc(t *testing.T, src string) string {
	t.Helper()
	file := parser.ParseFile("test.toy", []byte(src))
	return obfc.EmitFile(file)
}

func TestHeaderPrelude(t *testing.T) {
	out := emitSrc(t, "func main() int { return 0; }")
	assert.Contains(t, out, "static int r0;")
	assert.Contains(t, out, "static int r1;")
	assert.Contains(t, out, "static int mem[2097152];")
	assert.Contains(t, out, "static int sp;")
	assert.Contains(t, out, "static int bp;")
}

func TestEmptyFunctionHasRetLabel(t *testing.T) {
	out := emitSrc(t, "func main() int { return 0; }")
	require.Contains(t, out, "r0 = 0;")
	assert.Contains(t, out, "goto $ret_")
	assert.Contains(t, out, "bp = sp;")
	assert.Contains(t, out, "sp = bp;")
}

func TestFramePushesAndRestoresBpAndReturnsR0(t *testing.T) {
	out := emitSrc(t, "func main() int { return 0; }")
	// entry: push bp before bp := sp; exit: sp := bp, pop bp, then return r0.
	assert.Contains(t, out, "mem[sp] = bp; sp += 1;")
	bpIdx := strings.Index(out, "mem[sp] = bp; sp += 1;")
	bpAssignIdx := strings.Index(out, "bp = sp;")
	require.True(t, bpIdx >= 0 && bpAssignIdx > bpIdx, "push bp must precede bp = sp;")

	spRestoreIdx := strings.Index(out, "sp = bp;")
	popIdx := strings.Index(out, "bp = mem[sp -= 1];")
	returnIdx := strings.Index(out, "return r0;")
	require.True(t, popIdx > spRestoreIdx && returnIdx > popIdx, "sp = bp; must precede pop bp; then return r0;")
}

func TestBinaryPushesAndPops(t *testing.T) {
	out := emitSrc(t, "func f() int { return 1 + 2 * 3; }")
	assert.Contains(t, out, "mem[sp] = r0; sp += 1;")
	assert.Contains(t, out, "r1 = mem[sp -= 1];")
	assert.Contains(t, out, "r0 = r1 + r0;")
}

func TestLocalVariableSlotAndAssignment(t *testing.T) {
	out := emitSrc(t, "func f() int { var x int = 10; x = x + 5; return x; }")
	// x is declared, pushed, then re-read/assigned at slot 1 (only local).
	assert.Contains(t, out, "r0 = mem[sp-1];") // read of x for both "x+5" and "return x"
	assert.Contains(t, out, "mem[sp-1] = r0;") // assignment
}

func TestIfElseLabelsUniquePerNode(t *testing.T) {
	out := emitSrc(t, "func f() int { var x int = 3; if x { return 1; } else { return 0; } return -1; }")
	assert.Contains(t, out, "$if_true_")
	assert.Contains(t, out, "$if_else_")
	assert.Contains(t, out, "$if_end_")
}

func TestForLoopWithBreakUsesEnclosingLoopLabel(t *testing.T) {
	out := emitSrc(t, `func f() int { var i int = 0; for ; i < 10 ; i = i + 1 { if i == 5 { break; } } return i; }`)
	assert.Equal(t, 2, strings.Count(out, "$loop_START_")) // label def + the back-edge goto
	assert.Equal(t, 1, strings.Count(out, "$loop_POST_"))  // label def only (no continue here)
	// the break inside the nested if must goto the enclosing loop's END label.
	assert.Equal(t, 3, strings.Count(out, "$loop_END_")) // label def + cond-false goto + break's goto
}

func TestCallEmitsArgsThenAdjustsSp(t *testing.T) {
	out := emitSrc(t, `
		func add(a int, b int) int { return a + b; }
		func main() int { return add(2, 3); }
	`)
	assert.Contains(t, out, "add(mem[sp-2],mem[sp-1])")
	assert.Contains(t, out, "sp -= 2;")
}

func TestOnlyFuncDeclsAllowedAtTopLevel(t *testing.T) {
	file := parser.ParseFile("test.toy", []byte("var x int;"))
	assert.Panics(t, func() { obfc.EmitFile(file) })
}

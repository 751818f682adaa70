// Package obfc implements spec.md §4.4: lowering the AST to "obfuscated C"
// — straight-line C that evaluates every expression through two global
// pseudo-registers (r0, r1) and an explicit operand stack, `mem[]`, indexed
// by `sp`. Only Func declarations are accepted at the top level.
//
// Structurally this follows the original emit_obfc.c one-for-one: same
// push/pop helpers, same r0/r1/sp/bp vocabulary, same $-prefixed label
// family, same stack-size constant. What changed is the variable model:
// spec.md §4.4 resolves identifiers through a scope chain to a slot index
// (mem[sp-k]) rather than reading/writing bare C identifiers the way the
// kept original snapshot does — see DESIGN.md's "ObfC variable model" open
// question. Walk-local state the original keeps in `static` locals (indent,
// the innermost loop node) is instead explicit fields on Emitter, per
// spec.md §9's design note.
package obfc

import (
	"fmt"
	"strings"

	"toyc/pkg/ast"
	"toyc/pkg/token"
	"toyc/pkg/toyc"
)

// stackSize is 8 MiB worth of ints, matching the original's stack_size
// constant (8*1024*1024/sizeof(int)).
const stackSize = 8 * 1024 * 1024 / 4

// Emitter holds the walk-local state the recursive lowering needs: the
// output buffer, indent depth, current scope chain and the innermost
// enclosing loop (for break/continue label targets).
type Emitter struct {
	out    strings.Builder
	indent int
	scope  *ast.Scope
	loop   *ast.For
	funcID int // id of the Func currently being emitted, for $ret_<id>
}

// EmitFile lowers f to an obfuscated-C translation unit.
func EmitFile(f *ast.File) string {
	e := &Emitter{}
	fmt.Fprintln(&e.out, "static int r0;")
	fmt.Fprintln(&e.out, "static int r1;")
	fmt.Fprintf(&e.out, "static int mem[%d];\n", stackSize)
	fmt.Fprintln(&e.out, "static int sp;")
	fmt.Fprintln(&e.out, "static int bp;")

	for _, d := range f.Decls {
		fn, ok := d.(*ast.Func)
		if !ok {
			e.fatalf(d, "only func decls are supported at the top level")
		}
		if fn.Body == nil {
			continue // prototypes emit nothing
		}
		e.emitFunc(fn)
		e.out.WriteString(";\n")
	}
	return e.out.String()
}

func (e *Emitter) tabs() {
	for i := 0; i < e.indent; i++ {
		e.out.WriteByte('\t')
	}
}

func (e *Emitter) emitFunc(n *ast.Func) {
	e.out.WriteString(n.RetType.Name)
	e.out.WriteString(" ")
	e.out.WriteString(n.Symbol())
	e.out.WriteString("(")
	for i, p := range n.Params {
		if i > 0 {
			e.out.WriteString(",")
		}
		e.out.WriteString(p.Type.Name)
		e.out.WriteString(" ")
		e.out.WriteString(p.Name.Name)
	}
	e.out.WriteString(") ")
	if n.Body == nil {
		return
	}

	e.out.WriteString("{\n")
	e.indent++
	e.push("bp")
	e.tabs()
	fmt.Fprintln(&e.out, "bp = sp;")

	e.funcID = n.ID()
	e.scope = ast.NewScope(nil)
	for _, p := range n.Params {
		e.scope.Declare(p.Name.Name)
	}
	e.scope.Declare("") // saved bp, pushed above
	for _, s := range n.Body.Stmts {
		e.emitStmt(s)
	}

	fmt.Fprintf(&e.out, "$ret_%d:\n", n.ID())
	e.tabs()
	fmt.Fprintln(&e.out, "sp = bp;")
	e.pop("bp")
	e.tabs()
	fmt.Fprintln(&e.out, "return r0;")
	e.indent--
	e.tabs()
	e.out.WriteString("}")
}

func (e *Emitter) push(lit string) {
	e.tabs()
	fmt.Fprintf(&e.out, "mem[sp] = %s; sp += 1;\n", lit)
}

func (e *Emitter) pop(dst string) {
	e.tabs()
	fmt.Fprintf(&e.out, "%s = mem[sp -= 1];\n", dst)
}

func (e *Emitter) emitExpr(x ast.Expr) {
	switch n := x.(type) {
	case *ast.Basic:
		e.tabs()
		fmt.Fprintf(&e.out, "r0 = %s;\n", n.Value)
	case *ast.Binary:
		e.emitExpr(n.X)
		e.push("r0")
		e.scope.Declare("")
		e.emitExpr(n.Y)
		e.pop("r1")
		e.scope.Pop()
		e.tabs()
		fmt.Fprintf(&e.out, "r0 = r1 %s r0;\n", n.Op)
	case *ast.Call:
		nargs := len(n.Args)
		outer := e.scope
		e.scope = ast.NewScope(outer)
		for _, a := range n.Args {
			e.emitExpr(a)
			e.push("r0")
			e.scope.Declare("")
		}
		e.scope = outer
		e.tabs()
		e.out.WriteString(n.Func.(*ast.Ident).Name)
		e.out.WriteString("(")
		for i := 0; i < nargs; i++ {
			if i > 0 {
				e.out.WriteString(",")
			}
			fmt.Fprintf(&e.out, "mem[sp-%d]", nargs-i)
		}
		e.out.WriteString(");\n")
		e.tabs()
		fmt.Fprintf(&e.out, "sp -= %d;\n", nargs)
	case *ast.Ident:
		slot, ok := e.scope.Resolve(n.Name)
		if !ok {
			e.fatalf(n, "undeclared identifier %q", n.Name)
		}
		e.tabs()
		fmt.Fprintf(&e.out, "r0 = mem[sp-%d];\n", slot)
	case *ast.Paren:
		e.emitExpr(n.X)
	case *ast.Unary:
		e.emitExpr(n.X)
		e.tabs()
		fmt.Fprintf(&e.out, "r0 = %s r0;\n", n.Op)
	default:
		e.fatalf(x, "unhandled expression kind %s", x.Kind())
	}
}

func (e *Emitter) emitStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Assign:
		e.emitExpr(n.Rhs)
		slot, ok := e.scope.Resolve(n.Lhs.(*ast.Ident).Name)
		if !ok {
			e.fatalf(n, "undeclared identifier %q", n.Lhs.(*ast.Ident).Name)
		}
		e.tabs()
		fmt.Fprintf(&e.out, "mem[sp-%d] = r0;\n", slot)
	case *ast.Block:
		outer := e.scope
		e.scope = ast.NewScope(outer)
		for _, stmt := range n.Stmts {
			e.emitStmt(stmt)
		}
		if count := e.scope.Size(); count > 0 {
			e.tabs()
			fmt.Fprintf(&e.out, "sp -= %d;\n", count)
		}
		e.scope = outer
	case *ast.Branch:
		if e.loop == nil {
			e.fatalf(n, "break/continue outside a loop")
		}
		e.tabs()
		switch n.Tok {
		case token.BREAK:
			fmt.Fprintf(&e.out, "goto $loop_END_%d;\n", e.loop.ID())
		case token.CONTINUE:
			fmt.Fprintf(&e.out, "goto $loop_POST_%d;\n", e.loop.ID())
		}
	case *ast.DeclStmt:
		e.emitDeclStmt(n)
	case *ast.Empty:
		// nothing
	case *ast.ExprS:
		e.emitExpr(n.X)
	case *ast.For:
		e.emitFor(n)
	case *ast.If:
		e.emitIf(n)
	case *ast.Return:
		if n.Expr != nil {
			e.emitExpr(n.Expr)
		}
		e.tabs()
		fmt.Fprintf(&e.out, "goto $ret_%d;\n", e.funcID)
	default:
		e.fatalf(s, "unhandled statement kind %s", s.Kind())
	}
}

func (e *Emitter) emitDeclStmt(n *ast.DeclStmt) {
	v, ok := n.Decl.(*ast.Var)
	if !ok {
		e.fatalf(n, "only var declarations are supported inside a function body")
	}
	if v.Value != nil {
		e.emitExpr(v.Value)
	} else {
		e.tabs()
		e.out.WriteString("r0 = 0;\n")
	}
	e.push("r0")
	e.scope.Declare(v.Name.Name)
}

func (e *Emitter) emitIf(n *ast.If) {
	e.emitExpr(n.Cond)
	e.tabs()
	fmt.Fprintf(&e.out, "if (r0) goto $if_true_%d;\n", n.ID())
	e.tabs()
	fmt.Fprintf(&e.out, "goto $if_else_%d;\n", n.ID())
	fmt.Fprintf(&e.out, "$if_true_%d:\n", n.ID())
	e.emitStmt(n.Body)
	e.tabs()
	fmt.Fprintf(&e.out, "goto $if_end_%d;\n", n.ID())
	fmt.Fprintf(&e.out, "$if_else_%d:\n", n.ID())
	if n.Else != nil {
		e.emitStmt(n.Else)
	}
	fmt.Fprintf(&e.out, "$if_end_%d: ;\n", n.ID())
}

func (e *Emitter) emitFor(n *ast.For) {
	outer := e.scope
	e.scope = ast.NewScope(outer)

	if n.Init != nil {
		e.emitStmt(n.Init)
	}
	fmt.Fprintf(&e.out, "$loop_START_%d:\n", n.ID())
	if n.Cond != nil {
		e.emitExpr(n.Cond)
		e.tabs()
		fmt.Fprintf(&e.out, "if (!r0) goto $loop_END_%d;\n", n.ID())
	}

	prevLoop := e.loop
	e.loop = n
	e.emitStmt(n.Body)
	e.loop = prevLoop

	fmt.Fprintf(&e.out, "$loop_POST_%d:\n", n.ID())
	if n.Post != nil {
		e.emitStmt(n.Post)
	}
	e.tabs()
	fmt.Fprintf(&e.out, "goto $loop_START_%d;\n", n.ID())
	fmt.Fprintf(&e.out, "$loop_END_%d: ;\n", n.ID())

	if size := e.scope.Size(); size > 0 {
		e.tabs()
		fmt.Fprintf(&e.out, "sp -= %d;\n", size)
	}
	e.scope = outer
}

func (e *Emitter) fatalf(n ast.Node, format string, args ...any) {
	pos := -1
	if n != nil {
		pos = int(n.Pos())
	}
	toyc.Fatalf("obfc", 0, pos, format, args...)
}

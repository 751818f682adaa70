package ast

import "toyc/pkg/utils"

// Scope is the lexical scope chain spec.md §3 describes: an ordered list of
// names introduced in this block plus a pointer to the enclosing scope. It
// is built and torn down only by the emitters that need name resolution
// (cemit never builds one; obfc and x86 build one per function to resolve
// identifiers to stack slots) — the parser itself stays scope-free, matching
// the original parser.c which does no binding at all.
//
// Entries are kept in declaration order in a utils.Stack, the same generic
// stack the teacher's pkg/jack scope tables push scratch/temporaries onto;
// here it doubles as both the name table (Resolve walks the chain
// inner-to-outer) and the frame layout (an entry's distance from the top of
// the whole chain is its slot number, since params and locals are pushed
// onto one growing frame in declaration order, matching emit_x64.c's
// single-counter slot allocator).
type Scope struct {
	names *utils.Stack[string]
	outer *Scope
}

// NewScope opens a new scope nested inside outer. outer may be nil for a
// function's top-level (parameter) scope.
func NewScope(outer *Scope) *Scope {
	s := utils.NewStack[string]()
	return &Scope{names: &s, outer: outer}
}

// Outer returns the enclosing scope, or nil at the outermost one.
func (s *Scope) Outer() *Scope { return s.outer }

// Declare adds name to this scope. The empty name marks an anonymous slot
// and may be declared any number of times; if a name is declared twice,
// Resolve finds the most recent declaration.
func (s *Scope) Declare(name string) {
	s.names.Push(name)
}

// Resolve walks the chain innermost-first looking for name and returns its
// slot: the 1-based distance from the current top of stack, counting every
// live entry in every scope from s down to (and including) the one that
// declared name — exactly the `k` in spec.md §4.4's `mem[sp - k]` and
// §4.5's `k(%esp)` addressing. ok is false if no scope in the chain
// declares name.
func (s *Scope) Resolve(name string) (slot int, ok bool) {
	above := 0
	for cur := s; cur != nil; cur = cur.outer {
		if i, found := cur.indexOf(name); found {
			return above + (cur.Size() - i), true
		}
		above += cur.Size()
	}
	return 0, false
}

// indexOf returns the 0-based declaration-order position of name within
// this scope only. The backing Stack's Iterator yields top-to-bottom (most
// recently declared first), so the declaration-order index is counted back
// from the scope's total entry count.
func (s *Scope) indexOf(name string) (int, bool) {
	count := s.names.Count()
	fromTop := 0
	index, found := 0, false
	s.names.Iterator()(func(n string) bool {
		if n == name {
			index, found = count-1-fromTop, true
			return false
		}
		fromTop++
		return true
	})
	return index, found
}

// Size reports how many names this scope alone has declared, i.e. the
// number of stack slots it contributes to its function's frame.
func (s *Scope) Size() int { return s.names.Count() }

// Pop removes this scope's most recently declared entry. Emitters call this
// when they pop a temporary they had pushed (and Declared with an empty
// name) purely to keep slot bookkeeping, e.g. the x86 emitter's binary-op
// right operand after it has been popped into %ecx.
func (s *Scope) Pop() {
	s.names.Pop()
}

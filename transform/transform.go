// Package transform holds the rewrite library: a fixed set of
// syntax-level simplifications run to a fixed point over a jsast.Program,
// built on top of package astutil's traversal and scope machinery much
// the way the teacher's parsepasses package runs a fixed pipeline of
// tree-rewriting passes over a parsed Soy template before code
// generation.
package transform

import (
	"github.com/jsdeobf/jsdeobf/astutil"
	"github.com/jsdeobf/jsdeobf/jsast"
)

// Transform is one named rewrite rule. Build is called once per pass and
// returns a fresh VisitorMap bound to that pass's Run, since rules like
// the object-cluster inliner accumulate state (seen declarations) across
// a single walk but must start clean on the next one.
type Transform struct {
	Name       string
	NeedsScope bool
	Build      func(r *Run) astutil.VisitorMap
}

// Run carries the mutable state of a single Transform application: how
// many edits it made, for the caller's fixed-point loop.
type Run struct {
	Changes int
}

func (r *Run) mark() { r.Changes++ }

// Apply runs t once over prog and reports how many edits it made.
func Apply(prog *jsast.Program, t Transform) int {
	r := &Run{}
	v := t.Build(r)
	astutil.Traverse(prog, v, astutil.Options{NoScope: !t.NeedsScope}, r.mark)
	return r.Changes
}

// ApplyAll runs every transform in order, repeating the whole list until
// a pass over all of them makes no further edits or maxIters rounds have
// run (an obfuscator's own bugs or a rule cycling with another can
// otherwise loop forever — see spec's "Non-goals" on guaranteed
// termination for adversarial input). Returns the total edit count.
func ApplyAll(prog *jsast.Program, transforms []Transform, maxIters int) int {
	total := 0
	for i := 0; i < maxIters; i++ {
		round := 0
		for _, t := range transforms {
			round += Apply(prog, t)
		}
		total += round
		if round == 0 {
			break
		}
	}
	return total
}

// StatementPath finds the nearest ancestor path whose node is a
// jsast.Statement, for rules (like the comment marker) that need to
// attach something to "the statement containing this expression" rather
// than the expression itself.
func StatementPath(p *astutil.Path) *astutil.Path {
	for cur := p; cur != nil; cur = cur.Parent {
		if _, ok := cur.Node.(jsast.Statement); ok {
			return cur
		}
	}
	return nil
}

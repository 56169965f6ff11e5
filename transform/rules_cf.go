package transform

import (
	"fmt"

	"github.com/jsdeobf/jsdeobf/astutil"
	"github.com/jsdeobf/jsdeobf/jsast"
)

func isTruthy(v interface{}) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	case nil:
		return false
	}
	return true
}

// UnreachableBranchCollapser replaces `if (<literal>) A else B` with the
// taken branch's statements, splicing a block body directly into the
// surrounding statement list rather than leaving a redundant nested
// block, and drops an `if (<falsy literal>)` with no else entirely. It
// does the equivalent for the ternary form, `<literal> ? A : B`,
// replacing the whole expression with whichever operand is taken.
// Obfuscators commonly gate real code behind a literal-valued predicate
// (often itself the product of BinaryEvaluator or BooleanLiteralFolder
// earlier in the same pass) to pad the control-flow graph with dead
// branches.
var UnreachableBranchCollapser = Transform{
	Name:       "unreachable-branch-collapser",
	NeedsScope: true,
	Build: func(r *Run) astutil.VisitorMap {
		return astutil.VisitorMap{
			"IfStatement": astutil.NodeVisitor{
				Enter: func(p *astutil.Path) {
					s := p.Node.(*jsast.IfStatement)
					lit, ok := s.Test.(*jsast.Literal)
					if !ok {
						return
					}
					branch := s.Alternate
					if isTruthy(lit.Value) {
						branch = s.Consequent
					}
					if branch == nil {
						p.Remove()
						return
					}
					takeBranch(p, branch)
				},
			},
			"ConditionalExpression": astutil.NodeVisitor{
				Enter: func(p *astutil.Path) {
					s := p.Node.(*jsast.ConditionalExpression)
					lit, ok := s.Test.(*jsast.Literal)
					if !ok {
						return
					}
					branch := s.Alternate
					if isTruthy(lit.Value) {
						branch = s.Consequent
					}
					p.ReplaceWith(branch)
				},
			},
		}
	},
}

// takeBranch splices branch in place of the if-statement it replaces: a
// bare statement is swapped in directly; a block's body is spliced as
// its individual statements after alpha-renaming any top-level
// let/const/function declaration whose name is already bound in the
// scope the if-statement sits in, so hoisting it out of the block's own
// scope can't silently shadow or collide with an unrelated binding.
func takeBranch(p *astutil.Path, branch jsast.Statement) {
	block, ok := branch.(*jsast.BlockStatement)
	if !ok {
		p.ReplaceWith(branch)
		return
	}
	outer := p.GetScope()
	used := map[string]bool{}
	for _, st := range block.Body {
		switch d := st.(type) {
		case *jsast.VariableDeclaration:
			if d.Kind == "var" {
				continue
			}
			for _, decl := range d.Declarations {
				alphaRenameIfBound(block, outer, decl.Id, used)
			}
		case *jsast.FunctionDeclaration:
			if d.Id != nil {
				alphaRenameIfBound(block, outer, d.Id, used)
			}
		}
	}
	nodes := make([]jsast.Node, len(block.Body))
	for i, st := range block.Body {
		nodes[i] = st
	}
	if len(nodes) == 0 {
		p.Remove()
		return
	}
	p.ReplaceWithMultiple(nodes)
}

// alphaRenameIfBound gives id a fresh, collision-free name — and rewrites
// every identifier in block that used to match it — when outer already
// carries a binding for id.Name.
func alphaRenameIfBound(block *jsast.BlockStatement, outer *astutil.Scope, id *jsast.Identifier, used map[string]bool) {
	if outer == nil || outer.GetBinding(id.Name) == nil {
		return
	}
	old := id.Name
	fresh := old
	for n := 1; outer.GetBinding(fresh) != nil || used[fresh]; n++ {
		fresh = fmt.Sprintf("%s$%d", old, n)
	}
	used[fresh] = true
	renameIdentifiers(block, old, fresh)
}

// renameIdentifiers rewrites every Identifier named old to fresh within
// n. Used only for the narrow alpha-renaming above; it does not respect
// inner re-shadowing of the same name, which doesn't arise for the
// top-level declarations this rule hoists.
func renameIdentifiers(n jsast.Node, old, fresh string) {
	astutil.Traverse(n, astutil.VisitorMap{
		"Identifier": astutil.NodeVisitor{
			Enter: func(p *astutil.Path) {
				id := p.Node.(*jsast.Identifier)
				if id.Name == old {
					id.Name = fresh
				}
			},
		},
	}, astutil.Options{NoScope: true}, nil)
}

// SwitchCollapser replaces `switch (<literal>) { ... }` with the body of
// whichever case matches (or the default case, if present), stripping a
// trailing break that no longer has a switch to break out of. This is
// the flattening-removal counterpart of UnreachableBranchCollapser for
// switch-based dispatch, the shape control-flow flattening most often
// takes in obfuscated JavaScript.
var SwitchCollapser = Transform{
	Name: "switch-collapser",
	Build: func(r *Run) astutil.VisitorMap {
		return astutil.VisitorMap{
			"SwitchStatement": astutil.NodeVisitor{
				Enter: func(p *astutil.Path) {
					s := p.Node.(*jsast.SwitchStatement)
					lit, ok := s.Discriminant.(*jsast.Literal)
					if !ok {
						return
					}
					var chosen *jsast.SwitchCase
					var def *jsast.SwitchCase
					for _, c := range s.Cases {
						if c.Test == nil {
							def = c
							continue
						}
						cl, ok := c.Test.(*jsast.Literal)
						if ok && cl.Value == lit.Value {
							chosen = c
							break
						}
					}
					if chosen == nil {
						chosen = def
					}
					if chosen == nil {
						p.Remove()
						return
					}
					body := chosen.Consequent
					if n := len(body); n > 0 {
						if brk, ok := body[n-1].(*jsast.BreakStatement); ok && brk.Label == nil {
							body = body[:n-1]
						}
					}
					nodes := make([]jsast.Node, len(body))
					for i, st := range body {
						nodes[i] = st
					}
					if len(nodes) == 0 {
						p.Remove()
					} else {
						p.ReplaceWithMultiple(nodes)
					}
				},
			},
		}
	},
}

package transform

import (
	"github.com/jsdeobf/jsdeobf/astutil"
	"github.com/jsdeobf/jsdeobf/jsast"
)

// SequenceSplitter turns `a, b, c;` into three separate statements,
// undoing the comma-operator packing obfuscators use to cram several
// statements onto one line. It also unpacks a `for(init)` whose init is
// a sequence of plain assignments: each assignment to a name hoisted
// elsewhere in the loop becomes its own `var name = expr;` statement
// before the loop, leaving only the sequence's final (non-assignment)
// expression as the for's init, and the now-redundant bare `var name;`
// declarators inside the loop body are dropped.
var SequenceSplitter = Transform{
	Name: "sequence-splitter",
	Build: func(r *Run) astutil.VisitorMap {
		return astutil.VisitorMap{
			"ExpressionStatement": astutil.NodeVisitor{
				Enter: func(p *astutil.Path) {
					es := p.Node.(*jsast.ExpressionStatement)
					seq, ok := es.Expr.(*jsast.SequenceExpression)
					if !ok {
						return
					}
					nodes := make([]jsast.Node, len(seq.Expressions))
					for i, e := range seq.Expressions {
						stmt := &jsast.ExpressionStatement{Expr: e}
						if i == 0 {
							stmt.Comments = es.Comments
						}
						nodes[i] = stmt
					}
					p.ReplaceWithMultiple(nodes)
				},
			},
			"ForStatement": astutil.NodeVisitor{
				Enter: func(p *astutil.Path) {
					fs := p.Node.(*jsast.ForStatement)
					splitForHead(p, fs, r)
				},
			},
		}
	},
}

// splitForHead implements the for-head half of SequenceSplitter's
// contract. It bails without touching anything unless every expression
// but the last in the init sequence is a plain `name = expr` assignment,
// since that's the only shape that can be hoisted without changing
// control flow.
func splitForHead(p *astutil.Path, fs *jsast.ForStatement, r *Run) {
	seq, ok := fs.Init.(*jsast.SequenceExpression)
	if !ok || len(seq.Expressions) < 2 {
		return
	}
	leading := seq.Expressions[:len(seq.Expressions)-1]
	last := seq.Expressions[len(seq.Expressions)-1]
	assigns := make([]*jsast.AssignmentExpression, len(leading))
	for i, e := range leading {
		assign, ok := e.(*jsast.AssignmentExpression)
		if !ok || assign.Operator != "=" {
			return
		}
		if _, ok := assign.Left.(*jsast.Identifier); !ok {
			return
		}
		assigns[i] = assign
	}
	// InsertBefore always splices its argument immediately in front of
	// this statement, so each successive call pushes the previous one
	// further back; walk in reverse to land the hoisted vars in their
	// original left-to-right order.
	hoisted := make(map[string]bool, len(assigns))
	for i := len(assigns) - 1; i >= 0; i-- {
		assign := assigns[i]
		id := assign.Left.(*jsast.Identifier)
		p.InsertBefore(&jsast.VariableDeclaration{
			Kind:         "var",
			Declarations: []*jsast.VariableDeclarator{{Id: id, Init: assign.Right}},
		})
		hoisted[id.Name] = true
	}
	fs.Init = last
	r.mark()
	if block, ok := fs.Body.(*jsast.BlockStatement); ok {
		dropDeadVarDecls(block, hoisted)
	}
}

// dropDeadVarDecls removes `var name;` declarators (no initializer) for
// names that splitForHead just hoisted above the loop with their own
// initializer, so the interior redeclaration isn't left dangling.
func dropDeadVarDecls(block *jsast.BlockStatement, hoisted map[string]bool) {
	kept := block.Body[:0]
	for _, s := range block.Body {
		decl, ok := s.(*jsast.VariableDeclaration)
		if !ok || decl.Kind != "var" {
			kept = append(kept, s)
			continue
		}
		var keptDecls []*jsast.VariableDeclarator
		for _, d := range decl.Declarations {
			if d.Init == nil && hoisted[d.Id.Name] {
				continue
			}
			keptDecls = append(keptDecls, d)
		}
		if len(keptDecls) == 0 {
			continue
		}
		decl.Declarations = keptDecls
		kept = append(kept, s)
	}
	block.Body = kept
}

// SelfInvokingUnwrapper inlines a niladic IIFE — `(function(){ ... })();`
// or the parenthesis-free `!function(){ ... }();` idiom used as a
// statement — by hoisting its body as a BlockStatement in place of the
// call. Only the parameterless/argumentless shape is touched; anything
// that passes arguments likely depends on the closure it creates.
var SelfInvokingUnwrapper = Transform{
	Name: "self-invoking-unwrapper",
	Build: func(r *Run) astutil.VisitorMap {
		return astutil.VisitorMap{
			"ExpressionStatement": astutil.NodeVisitor{
				Enter: func(p *astutil.Path) {
					es := p.Node.(*jsast.ExpressionStatement)
					call, ok := unwrapIIFECall(es.Expr)
					if !ok || len(call.Arguments) != 0 {
						return
					}
					fn, ok := call.Callee.(*jsast.FunctionExpression)
					if !ok || len(fn.Params) != 0 {
						return
					}
					p.ReplaceWith(&jsast.BlockStatement{Body: fn.Body.Body})
				},
			},
		}
	},
}

// unwrapIIFECall strips the unary operator obfuscators use to avoid
// wrapping an immediately-invoked function expression in parens
// (`!function(){}()`, `+function(){}()`, `void function(){}()`), and
// reports the call expression underneath either way.
func unwrapIIFECall(e jsast.Expression) (*jsast.CallExpression, bool) {
	switch x := e.(type) {
	case *jsast.CallExpression:
		return x, true
	case *jsast.UnaryExpression:
		if call, ok := x.Argument.(*jsast.CallExpression); ok {
			return call, true
		}
	}
	return nil, false
}

// NestedFunctionIndirectionCollapser removes a level of call indirection
// obfuscators insert by wrapping a function in another that does nothing
// but forward its arguments:
//
//	function a(x, y) { return b(x, y); }
//	a(1, 2);
//
// becomes `b(1, 2);` directly, and the now-unreferenced wrapper is left
// for UnusedDeclarationRemover.
var NestedFunctionIndirectionCollapser = Transform{
	Name:       "nested-function-indirection-collapser",
	NeedsScope: true,
	Build: func(r *Run) astutil.VisitorMap {
		return astutil.VisitorMap{
			"FunctionDeclaration": astutil.NodeVisitor{
				Enter: func(p *astutil.Path) {
					x := p.Node.(*jsast.FunctionDeclaration)
					if x.Id == nil {
						return
					}
					innerCallee, ok := pureForwardCallee(x)
					if !ok {
						return
					}
					b := p.GetScope().GetBinding(x.Id.Name)
					if b == nil {
						return
					}
					for _, ref := range b.ReferencePaths {
						parent := ref.Path.Parent
						if parent == nil {
							continue
						}
						call, ok := parent.Node.(*jsast.CallExpression)
						if !ok || call.Callee != ref.Node {
							continue
						}
						newCall := &jsast.CallExpression{
							Callee:    jsast.CloneExpr(innerCallee),
							Arguments: call.Arguments,
						}
						parent.ReplaceWith(newCall)
					}
				},
			},
		}
	},
}

// pureForwardCallee reports whether fn's entire body is
// `return callee(p1, p2, ...)` with pi identical, in order, to fn's own
// parameters, and if so returns callee.
func pureForwardCallee(fn *jsast.FunctionDeclaration) (jsast.Expression, bool) {
	body := fn.Body.Body
	if len(body) != 1 {
		return nil, false
	}
	ret, ok := body[0].(*jsast.ReturnStatement)
	if !ok || ret.Argument == nil {
		return nil, false
	}
	call, ok := ret.Argument.(*jsast.CallExpression)
	if !ok || len(call.Arguments) != len(fn.Params) {
		return nil, false
	}
	for i, a := range call.Arguments {
		id, ok := a.(*jsast.Identifier)
		if !ok || id.Name != fn.Params[i].Name {
			return nil, false
		}
	}
	return call.Callee, true
}

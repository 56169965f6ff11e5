package transform

import (
	"github.com/jsdeobf/jsdeobf/astutil"
	"github.com/jsdeobf/jsdeobf/jsast"
)

// ConstantInliner replaces every read of a never-reassigned
// `var`/`let`/`const` whose initializer is a literal with a clone of that
// literal, leaving the (now unreferenced) declarator for
// UnusedDeclarationRemover to sweep up on a later pass.
var ConstantInliner = Transform{
	Name:       "constant-inliner",
	NeedsScope: true,
	Build: func(r *Run) astutil.VisitorMap {
		return astutil.VisitorMap{
			"VariableDeclaration": astutil.NodeVisitor{
				Enter: func(p *astutil.Path) {
					scope := p.GetScope()
					x := p.Node.(*jsast.VariableDeclaration)
					for _, d := range x.Declarations {
						lit, ok := d.Init.(*jsast.Literal)
						if !ok {
							continue
						}
						b := scope.GetBinding(d.Id.Name)
						if b == nil || !b.Constant() || len(b.ReferencePaths) == 0 {
							continue
						}
						for _, ref := range b.ReferencePaths {
							ref.Path.ReplaceWith(jsast.CloneExpr(lit))
						}
					}
				},
			},
		}
	},
}

// UnusedDeclarationRemover deletes a var/let/const declarator, or a
// function declaration, that is never read or written again — typically
// the left-over husk ConstantInliner and the object-cluster inliner
// produce once every use of a name has been replaced by its value.
var UnusedDeclarationRemover = Transform{
	Name:       "unused-declaration-remover",
	NeedsScope: true,
	Build: func(r *Run) astutil.VisitorMap {
		unused := func(scope *astutil.Scope, name string) bool {
			b := scope.GetBinding(name)
			return b != nil && len(b.ReferencePaths) == 0 && len(b.ConstantViolations) == 0
		}
		return astutil.VisitorMap{
			"VariableDeclaration": astutil.NodeVisitor{
				Enter: func(p *astutil.Path) {
					scope := p.GetScope()
					x := p.Node.(*jsast.VariableDeclaration)
					kept := x.Declarations[:0]
					removedAny := false
					for _, d := range x.Declarations {
						if unused(scope, d.Id.Name) {
							removedAny = true
							continue
						}
						kept = append(kept, d)
					}
					if !removedAny {
						return
					}
					x.Declarations = kept
					if len(x.Declarations) == 0 {
						p.Remove()
						return
					}
					r.mark()
				},
			},
			"FunctionDeclaration": astutil.NodeVisitor{
				Enter: func(p *astutil.Path) {
					x := p.Node.(*jsast.FunctionDeclaration)
					if x.Id == nil {
						return
					}
					scope := p.GetScope()
					if unused(scope, x.Id.Name) {
						p.Remove()
					}
				},
			},
		}
	},
}

// ObjectClusterInliner targets the "object-cluster" idiom obfuscators use
// to hide a table of constants or helper functions behind a level of
// indirection:
//
//	var T = {};
//	T.a = "x";
//	T.add = function(p, q) { return p + q; };
//	... T.a ... T.add(1, 2) ...
//
// It tracks every never-reassigned var/let/const bound to an object
// literal, splices properties assigned onto it afterward into the
// recorded table (removing the now-dead assignment), replaces a read of
// a literal-valued property with a clone of that literal, and rewrites a
// call through a function-valued property whose body is a single return
// statement by substituting the call's actual arguments for the
// function's parameters directly into the call site.
var ObjectClusterInliner = Transform{
	Name:       "object-cluster-inliner",
	NeedsScope: true,
	Build: func(r *Run) astutil.VisitorMap {
		tables := map[string]*jsast.ObjectExpression{}
		return astutil.VisitorMap{
			"VariableDeclaration": astutil.NodeVisitor{
				Enter: func(p *astutil.Path) {
					x := p.Node.(*jsast.VariableDeclaration)
					if len(x.Declarations) != 1 {
						return
					}
					d := x.Declarations[0]
					obj, ok := d.Init.(*jsast.ObjectExpression)
					if !ok || !isTrackableTable(obj) {
						return
					}
					scope := p.GetScope()
					b := scope.GetBinding(d.Id.Name)
					if b == nil || !b.Constant() {
						return
					}
					tables[d.Id.Name] = obj
				},
			},
			"AssignmentExpression": astutil.NodeVisitor{
				Enter: func(p *astutil.Path) {
					a := p.Node.(*jsast.AssignmentExpression)
					if a.Operator != "=" {
						return
					}
					m, ok := a.Left.(*jsast.MemberExpression)
					if !ok {
						return
					}
					id, ok := m.Object.(*jsast.Identifier)
					if !ok {
						return
					}
					obj, ok := tables[id.Name]
					if !ok {
						return
					}
					key, ok := staticKey(m)
					if !ok || !isSpliceableValue(a.Right) {
						return
					}
					spliceProp(obj, key, a.Right)
					r.mark()
					removeAssignmentSite(p, r)
				},
			},
			"MemberExpression": astutil.NodeVisitor{
				Enter: func(p *astutil.Path) {
					m := p.Node.(*jsast.MemberExpression)
					id, ok := m.Object.(*jsast.Identifier)
					if !ok {
						return
					}
					obj, ok := tables[id.Name]
					if !ok {
						return
					}
					key, ok := staticKey(m)
					if !ok {
						return
					}
					val, ok := propValueForKey(obj, key)
					if !ok {
						return
					}
					lit, ok := val.(*jsast.Literal)
					if !ok || isMutationTarget(p, m) {
						return
					}
					p.ReplaceWith(jsast.CloneExpr(lit))
				},
			},
			"CallExpression": astutil.NodeVisitor{
				Enter: func(p *astutil.Path) {
					call := p.Node.(*jsast.CallExpression)
					m, ok := call.Callee.(*jsast.MemberExpression)
					if !ok {
						return
					}
					id, ok := m.Object.(*jsast.Identifier)
					if !ok {
						return
					}
					obj, ok := tables[id.Name]
					if !ok {
						return
					}
					key, ok := staticKey(m)
					if !ok {
						return
					}
					val, ok := propValueForKey(obj, key)
					if !ok {
						return
					}
					fn, ok := val.(*jsast.FunctionExpression)
					if !ok {
						return
					}
					repl, ok := inlineFunctionTableCall(fn, call.Arguments)
					if !ok {
						return
					}
					p.ReplaceWith(repl)
					deleteProp(obj, key)
				},
			},
		}
	},
}

// isTrackableTable reports whether obj is safe to record as an
// object-cluster table: every property is a plain (non-getter/setter)
// property with a statically-known key. Property values are unrestricted
// here — what can actually be inlined from a tracked table is decided at
// each use site.
func isTrackableTable(obj *jsast.ObjectExpression) bool {
	for _, prop := range obj.Properties {
		if prop.Kind != "init" {
			return false
		}
		if _, ok := propKeyName(prop); !ok {
			return false
		}
	}
	return true
}

// isSpliceableValue reports whether e is one of the value shapes
// spec.md's object-cluster save step admits when splicing a later
// assignment into a tracked table.
func isSpliceableValue(e jsast.Expression) bool {
	switch e.(type) {
	case *jsast.Literal, *jsast.Identifier, *jsast.BinaryExpression, *jsast.ObjectExpression, *jsast.FunctionExpression:
		return true
	}
	return false
}

// spliceProp records value under key in obj, replacing any existing
// property of the same key.
func spliceProp(obj *jsast.ObjectExpression, key string, value jsast.Expression) {
	for _, prop := range obj.Properties {
		if name, ok := propKeyName(prop); ok && name == key {
			prop.Value = value
			return
		}
	}
	obj.Properties = append(obj.Properties, &jsast.Property{
		Key:   &jsast.Literal{Value: key},
		Value: value,
		Kind:  "init",
	})
}

// deleteProp removes the property named key from obj, if present — used
// once a function-table property has been consumed by a call rewrite.
func deleteProp(obj *jsast.ObjectExpression, key string) {
	kept := obj.Properties[:0]
	for _, prop := range obj.Properties {
		if name, ok := propKeyName(prop); ok && name == key {
			continue
		}
		kept = append(kept, prop)
	}
	obj.Properties = kept
}

// removeAssignmentSite deletes the assignment expression at p: the whole
// statement, if it stands alone as one, or just its slot in an enclosing
// SequenceExpression otherwise.
func removeAssignmentSite(p *astutil.Path, r *Run) {
	parent := p.Parent
	if parent == nil {
		return
	}
	switch pn := parent.Node.(type) {
	case *jsast.ExpressionStatement:
		parent.Remove()
	case *jsast.SequenceExpression:
		dropped := p.Node
		kept := pn.Expressions[:0]
		for _, e := range pn.Expressions {
			if e == dropped {
				continue
			}
			kept = append(kept, e)
		}
		pn.Expressions = kept
		r.mark()
	}
}

// isMutationTarget reports whether m, as read by p, is itself the target
// of an assignment or update — a read-inlining rewrite must leave these
// alone since replacing the target would turn `T.a++` into `"x"++`.
func isMutationTarget(p *astutil.Path, m *jsast.MemberExpression) bool {
	parent := p.Parent
	if parent == nil {
		return false
	}
	switch pn := parent.Node.(type) {
	case *jsast.UpdateExpression:
		return pn.Argument == m
	case *jsast.AssignmentExpression:
		return pn.Left == m
	}
	return false
}

// inlineFunctionTableCall implements the three function-table
// call-rewriting shapes spec.md §4.4 names: a binary/logical operator
// applied to the two parameters, a unary operator applied to the one
// parameter, or a forwarding call whose callee and/or arguments name the
// parameters. fn must have a single-statement body that is a return of
// one of these shapes; actuals are substituted in parameter order.
func inlineFunctionTableCall(fn *jsast.FunctionExpression, actuals []jsast.Expression) (jsast.Expression, bool) {
	if len(fn.Body.Body) != 1 {
		return nil, false
	}
	ret, ok := fn.Body.Body[0].(*jsast.ReturnStatement)
	if !ok || ret.Argument == nil {
		return nil, false
	}
	paramIndex := func(e jsast.Expression) (int, bool) {
		id, ok := e.(*jsast.Identifier)
		if !ok {
			return -1, false
		}
		for i, param := range fn.Params {
			if param.Name == id.Name {
				return i, true
			}
		}
		return -1, false
	}
	actual := func(i int) (jsast.Expression, bool) {
		if i < 0 || i >= len(actuals) {
			return nil, false
		}
		return jsast.CloneExpr(actuals[i]), true
	}
	switch x := ret.Argument.(type) {
	case *jsast.BinaryExpression:
		li, lok := paramIndex(x.Left)
		ri, rok := paramIndex(x.Right)
		if !lok || !rok {
			return nil, false
		}
		left, lok2 := actual(li)
		right, rok2 := actual(ri)
		if !lok2 || !rok2 {
			return nil, false
		}
		return &jsast.BinaryExpression{Operator: x.Operator, Left: left, Right: right}, true
	case *jsast.LogicalExpression:
		li, lok := paramIndex(x.Left)
		ri, rok := paramIndex(x.Right)
		if !lok || !rok {
			return nil, false
		}
		left, lok2 := actual(li)
		right, rok2 := actual(ri)
		if !lok2 || !rok2 {
			return nil, false
		}
		return &jsast.LogicalExpression{Operator: x.Operator, Left: left, Right: right}, true
	case *jsast.UnaryExpression:
		ai, aok := paramIndex(x.Argument)
		if !aok {
			return nil, false
		}
		arg, aok2 := actual(ai)
		if !aok2 {
			return nil, false
		}
		return &jsast.UnaryExpression{Operator: x.Operator, Prefix: x.Prefix, Argument: arg}, true
	case *jsast.CallExpression:
		callee, ok := substituteParam(x.Callee, paramIndex, actual)
		if !ok {
			return nil, false
		}
		args := make([]jsast.Expression, len(x.Arguments))
		for i, a := range x.Arguments {
			v, ok := substituteParam(a, paramIndex, actual)
			if !ok {
				return nil, false
			}
			args[i] = v
		}
		return &jsast.CallExpression{Callee: callee, Arguments: args}, true
	}
	return nil, false
}

// substituteParam resolves e to the actual call argument it names, if e
// is one of the function's parameters, or returns a clone of e unchanged
// otherwise — the forwarding shape's callee is often a fixed name rather
// than a parameter (e.g. `return f(a, b);`), and its arguments may mix
// parameters with fixed values.
func substituteParam(e jsast.Expression, paramIndex func(jsast.Expression) (int, bool), actual func(int) (jsast.Expression, bool)) (jsast.Expression, bool) {
	if i, ok := paramIndex(e); ok {
		return actual(i)
	}
	return jsast.CloneExpr(e), true
}

func propKeyName(prop *jsast.Property) (string, bool) {
	switch k := prop.Key.(type) {
	case *jsast.Identifier:
		return k.Name, true
	case *jsast.Literal:
		if s, ok := k.Value.(string); ok {
			return s, true
		}
	}
	return "", false
}

func staticKey(m *jsast.MemberExpression) (string, bool) {
	if !m.Computed {
		if id, ok := m.Property.(*jsast.Identifier); ok {
			return id.Name, true
		}
		return "", false
	}
	if lit, ok := m.Property.(*jsast.Literal); ok {
		if s, ok := lit.Value.(string); ok {
			return s, true
		}
	}
	return "", false
}

func propValueForKey(obj *jsast.ObjectExpression, key string) (jsast.Expression, bool) {
	for _, prop := range obj.Properties {
		if name, ok := propKeyName(prop); ok && name == key {
			return prop.Value, true
		}
	}
	return nil, false
}

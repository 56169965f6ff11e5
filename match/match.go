// Package match provides small composable pattern matchers over jsast
// nodes, in the spirit of gogrep's node matcher (other_examples'
// sniperkit-gogrep match.go) but built from ordinary Go closures instead
// of a textual pattern language — the transform library's rewrite rules
// are themselves Go code, so there is no separate pattern syntax to
// parse.
package match

import "github.com/jsdeobf/jsdeobf/jsast"

// Captures collects the named subtrees a matcher's Capture calls bind
// while testing one candidate node. A fresh Captures is used per
// top-level Match call; a failed match may leave partial captures behind
// and callers should discard them.
type Captures map[string]jsast.Node

// Matcher reports whether n has the shape it describes, recording any
// Capture bindings into c.
type Matcher func(n jsast.Node, c Captures) bool

// Match runs m against n with a fresh Captures map, returning it only on
// success.
func Match(n jsast.Node, m Matcher) (Captures, bool) {
	c := Captures{}
	if n == nil || !m(n, c) {
		return nil, false
	}
	return c, true
}

// Anything matches any non-nil node.
func Anything() Matcher {
	return func(n jsast.Node, c Captures) bool { return n != nil }
}

// Capture binds n under name when inner matches.
func Capture(name string, inner Matcher) Matcher {
	return func(n jsast.Node, c Captures) bool {
		if !inner(n, c) {
			return false
		}
		c[name] = n
		return true
	}
}

// Or succeeds if any alternative matches.
func Or(alts ...Matcher) Matcher {
	return func(n jsast.Node, c Captures) bool {
		for _, alt := range alts {
			if alt(n, c) {
				return true
			}
		}
		return false
	}
}

// And succeeds only if every matcher matches.
func And(all ...Matcher) Matcher {
	return func(n jsast.Node, c Captures) bool {
		for _, m := range all {
			if !m(n, c) {
				return false
			}
		}
		return true
	}
}

// Not inverts inner. It never captures, since a non-match has nothing to
// bind.
func Not(inner Matcher) Matcher {
	return func(n jsast.Node, c Captures) bool {
		scratch := Captures{}
		return !inner(n, scratch)
	}
}

// Literal matches a *jsast.Literal. A nil value matches any literal; a
// non-nil value requires an exact match (string/float64/bool as parsed).
func Literal(value interface{}) Matcher {
	return func(n jsast.Node, c Captures) bool {
		l, ok := n.(*jsast.Literal)
		if !ok {
			return false
		}
		if value == nil {
			return true
		}
		return l.Value == value
	}
}

// Identifier matches a *jsast.Identifier. An empty name matches any
// identifier.
func Identifier(name string) Matcher {
	return func(n jsast.Node, c Captures) bool {
		id, ok := n.(*jsast.Identifier)
		if !ok {
			return false
		}
		return name == "" || id.Name == name
	}
}

// ThisExpression matches a bare `this`.
func ThisExpression() Matcher {
	return func(n jsast.Node, c Captures) bool {
		_, ok := n.(*jsast.ThisExpression)
		return ok
	}
}

// MemberExpression matches `object[property]` (computed) or
// `object.property` (!computed).
func MemberExpression(object, property Matcher, computed bool) Matcher {
	return func(n jsast.Node, c Captures) bool {
		m, ok := n.(*jsast.MemberExpression)
		if !ok || m.Computed != computed {
			return false
		}
		return object(m.Object, c) && property(m.Property, c)
	}
}

// CallExpression matches a call. A nil args slice matches any argument
// list; otherwise arity and every argument matcher must match positionally.
func CallExpression(callee Matcher, args []Matcher) Matcher {
	return func(n jsast.Node, c Captures) bool {
		call, ok := n.(*jsast.CallExpression)
		if !ok || !callee(call.Callee, c) {
			return false
		}
		if args == nil {
			return true
		}
		if len(args) != len(call.Arguments) {
			return false
		}
		for i, a := range args {
			if !a(call.Arguments[i], c) {
				return false
			}
		}
		return true
	}
}

// NewExpression matches `new Callee(args...)`, same arity rule as
// CallExpression.
func NewExpression(callee Matcher, args []Matcher) Matcher {
	return func(n jsast.Node, c Captures) bool {
		x, ok := n.(*jsast.NewExpression)
		if !ok || !callee(x.Callee, c) {
			return false
		}
		if args == nil {
			return true
		}
		if len(args) != len(x.Arguments) {
			return false
		}
		for i, a := range args {
			if !a(x.Arguments[i], c) {
				return false
			}
		}
		return true
	}
}

// BinaryExpression matches `left op right`. An empty op matches any
// binary operator.
func BinaryExpression(op string, left, right Matcher) Matcher {
	return func(n jsast.Node, c Captures) bool {
		b, ok := n.(*jsast.BinaryExpression)
		if !ok {
			return false
		}
		if op != "" && b.Operator != op {
			return false
		}
		return left(b.Left, c) && right(b.Right, c)
	}
}

// UnaryExpression matches `op argument`. An empty op matches any unary
// operator.
func UnaryExpression(op string, argument Matcher) Matcher {
	return func(n jsast.Node, c Captures) bool {
		u, ok := n.(*jsast.UnaryExpression)
		if !ok {
			return false
		}
		if op != "" && u.Operator != op {
			return false
		}
		return argument(u.Argument, c)
	}
}

// AssignmentExpression matches `left op right`. An empty op matches any
// assignment operator.
func AssignmentExpression(op string, left, right Matcher) Matcher {
	return func(n jsast.Node, c Captures) bool {
		a, ok := n.(*jsast.AssignmentExpression)
		if !ok {
			return false
		}
		if op != "" && a.Operator != op {
			return false
		}
		return left(a.Left, c) && right(a.Right, c)
	}
}

// SequenceExpression matches a comma expression of exactly len(elems)
// subexpressions.
func SequenceExpression(elems []Matcher) Matcher {
	return func(n jsast.Node, c Captures) bool {
		s, ok := n.(*jsast.SequenceExpression)
		if !ok || len(s.Expressions) != len(elems) {
			return false
		}
		for i, m := range elems {
			if !m(s.Expressions[i], c) {
				return false
			}
		}
		return true
	}
}

// ArrayExpression matches an array literal of exactly len(elems)
// elements. A nil entry in elems matches an elision.
func ArrayExpression(elems []Matcher) Matcher {
	return func(n jsast.Node, c Captures) bool {
		a, ok := n.(*jsast.ArrayExpression)
		if !ok || len(a.Elements) != len(elems) {
			return false
		}
		for i, m := range elems {
			el := a.Elements[i]
			if m == nil {
				if el != nil {
					return false
				}
				continue
			}
			if el == nil || !m(el, c) {
				return false
			}
		}
		return true
	}
}

// VariableDeclarator matches `id = init`. A nil init matcher matches a
// declarator with no initializer.
func VariableDeclarator(id, init Matcher) Matcher {
	return func(n jsast.Node, c Captures) bool {
		d, ok := n.(*jsast.VariableDeclarator)
		if !ok || !id(d.Id, c) {
			return false
		}
		if init == nil {
			return d.Init == nil
		}
		return d.Init != nil && init(d.Init, c)
	}
}

// VariableDeclaration matches a declaration of the given kind ("var",
// "let", "const"; empty matches any) with exactly len(decls) declarators.
func VariableDeclaration(kind string, decls []Matcher) Matcher {
	return func(n jsast.Node, c Captures) bool {
		v, ok := n.(*jsast.VariableDeclaration)
		if !ok || len(v.Declarations) != len(decls) {
			return false
		}
		if kind != "" && v.Kind != kind {
			return false
		}
		for i, m := range decls {
			if !m(v.Declarations[i], c) {
				return false
			}
		}
		return true
	}
}

// ForInStatement matches `for (left in right) body`.
func ForInStatement(left, right, body Matcher) Matcher {
	return func(n jsast.Node, c Captures) bool {
		f, ok := n.(*jsast.ForInStatement)
		if !ok {
			return false
		}
		return left(f.Left, c) && right(f.Right, c) && body(f.Body, c)
	}
}

// ExpressionStatement matches a bare expression statement.
func ExpressionStatement(expr Matcher) Matcher {
	return func(n jsast.Node, c Captures) bool {
		e, ok := n.(*jsast.ExpressionStatement)
		if !ok {
			return false
		}
		return expr(e.Expr, c)
	}
}

// FunctionExpression matches a function literal with exactly len(params)
// parameters. A nil params matches any arity.
func FunctionExpression(params []Matcher, body Matcher) Matcher {
	return func(n jsast.Node, c Captures) bool {
		f, ok := n.(*jsast.FunctionExpression)
		if !ok {
			return false
		}
		if params != nil {
			if len(params) != len(f.Params) {
				return false
			}
			for i, m := range params {
				if !m(f.Params[i], c) {
					return false
				}
			}
		}
		if body == nil {
			return true
		}
		return body(f.Body, c)
	}
}

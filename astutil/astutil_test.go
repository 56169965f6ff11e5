package astutil_test

import (
	"testing"

	"github.com/jsdeobf/jsdeobf/astutil"
	"github.com/jsdeobf/jsdeobf/jsast"
	"github.com/jsdeobf/jsdeobf/jsparse"
)

func parse(t *testing.T, src string) *jsast.Program {
	t.Helper()
	prog, err := jsparse.Parse("t.js", src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return prog
}

// TestTraverseHoistsVarAcrossBlocks confirms a var declared inside a nested
// if-block is visible (and resolvable) from the enclosing function scope,
// the same hoisting a JS engine performs before running a function body.
func TestTraverseHoistsVarAcrossBlocks(t *testing.T) {
	prog := parse(t, `function f(cond) { if (cond) { var x = 1; } return x; }`)

	var returnScope *astutil.Scope
	astutil.Traverse(prog, astutil.VisitorMap{
		"ReturnStatement": astutil.NodeVisitor{
			Enter: func(p *astutil.Path) { returnScope = p.GetScope() },
		},
	}, astutil.Options{}, nil)

	if returnScope == nil {
		t.Fatal("expected to capture the return statement's enclosing scope")
	}
	if b := returnScope.GetOwnBinding("x"); b == nil || b.Kind != astutil.BindVar {
		t.Errorf("expected x to be hoisted directly into the function scope, got %#v", b)
	}
}

// TestTraverseBindingReferencesAndViolations confirms a declared var
// accumulates one read and one write, and that Constant() reflects it.
func TestTraverseBindingReferencesAndViolations(t *testing.T) {
	prog := parse(t, `var x = 1; x = 2; use(x);`)

	var binding *astutil.Binding
	astutil.Traverse(prog, astutil.VisitorMap{
		"VariableDeclaration": astutil.NodeVisitor{
			Enter: func(p *astutil.Path) {
				binding = p.GetScope().GetOwnBinding("x")
			},
		},
	}, astutil.Options{}, nil)

	if binding == nil {
		t.Fatal("expected x to be bound in the program scope")
	}
	if binding.Constant() {
		t.Error("expected x to not be constant after a reassignment")
	}
	if len(binding.ConstantViolations) != 1 {
		t.Errorf("expected exactly one write, got %d", len(binding.ConstantViolations))
	}
	if len(binding.ReferencePaths) != 1 {
		t.Errorf("expected exactly one read (inside use(x)), got %d", len(binding.ReferencePaths))
	}
}

// TestTraverseLetIsBlockScoped confirms a let declared in a nested block is
// not visible from the enclosing function scope, unlike a hoisted var.
func TestTraverseLetIsBlockScoped(t *testing.T) {
	prog := parse(t, `function f() { var mark; { let y = 1; } }`)

	var fnScope *astutil.Scope
	astutil.Traverse(prog, astutil.VisitorMap{
		"VariableDeclaration": astutil.NodeVisitor{
			Enter: func(p *astutil.Path) {
				if fnScope == nil {
					fnScope = p.GetScope()
				}
			},
		},
	}, astutil.Options{}, nil)

	if fnScope == nil {
		t.Fatal("expected to capture the function's own scope via mark's declaration")
	}
	if fnScope.GetOwnBinding("y") != nil {
		t.Error("expected y to not be visible directly in the function scope")
	}
	if fnScope.GetBinding("y") != nil {
		t.Error("expected y to not be resolvable from the function scope at all (it's declared in a nested block)")
	}
}

// TestPathReplaceWith confirms ReplaceWith swaps the node in its containing
// slot and bumps the onChange counter.
func TestPathReplaceWith(t *testing.T) {
	prog := parse(t, `var a = 1;`)
	changes := 0
	astutil.Traverse(prog, astutil.VisitorMap{
		"Literal": astutil.NodeVisitor{
			Enter: func(p *astutil.Path) {
				p.ReplaceWith(&jsast.Literal{Value: 2.0, Raw: "2"})
			},
		},
	}, astutil.Options{}, func() { changes++ })

	decl := prog.Body[0].(*jsast.VariableDeclaration)
	lit := decl.Declarations[0].Init.(*jsast.Literal)
	if lit.Value != 2.0 {
		t.Errorf("expected the literal to be replaced with 2, got %v", lit.Value)
	}
	if changes != 1 {
		t.Errorf("expected onChange to fire once, got %d", changes)
	}
}

// TestPathRemove confirms Remove deletes a statement from its containing
// list and that the walk doesn't skip or revisit a sibling.
func TestPathRemove(t *testing.T) {
	prog := parse(t, `a(); b(); c();`)
	var seen []string
	astutil.Traverse(prog, astutil.VisitorMap{
		"ExpressionStatement": astutil.NodeVisitor{
			Enter: func(p *astutil.Path) {
				call := p.Node.(*jsast.ExpressionStatement).Expr.(*jsast.CallExpression)
				name := call.Callee.(*jsast.Identifier).Name
				seen = append(seen, name)
				if name == "b" {
					p.Remove()
				}
			},
		},
	}, astutil.Options{}, nil)

	if len(seen) != 3 {
		t.Fatalf("expected to visit all 3 statements before removal, got %v", seen)
	}
	if len(prog.Body) != 2 {
		t.Fatalf("expected 2 statements left, got %d", len(prog.Body))
	}
	first := prog.Body[0].(*jsast.ExpressionStatement).Expr.(*jsast.CallExpression)
	second := prog.Body[1].(*jsast.ExpressionStatement).Expr.(*jsast.CallExpression)
	if first.Callee.(*jsast.Identifier).Name != "a" || second.Callee.(*jsast.Identifier).Name != "c" {
		t.Errorf("expected a() and c() to remain, got %s and %s",
			first.Callee.(*jsast.Identifier).Name, second.Callee.(*jsast.Identifier).Name)
	}
}

// TestPathInsertBeforeAndReplaceWithMultiple confirms both statement-list
// splice primitives land in the right place.
func TestPathInsertBeforeAndReplaceWithMultiple(t *testing.T) {
	prog := parse(t, `a(); b();`)
	astutil.Traverse(prog, astutil.VisitorMap{
		"ExpressionStatement": astutil.NodeVisitor{
			Enter: func(p *astutil.Path) {
				call := p.Node.(*jsast.ExpressionStatement).Expr.(*jsast.CallExpression)
				if call.Callee.(*jsast.Identifier).Name == "a" {
					p.InsertBefore(&jsast.ExpressionStatement{Expr: &jsast.CallExpression{
						Callee: &jsast.Identifier{Name: "pre"},
					}})
				}
				if call.Callee.(*jsast.Identifier).Name == "b" {
					p.ReplaceWithMultiple([]jsast.Node{
						&jsast.ExpressionStatement{Expr: &jsast.CallExpression{Callee: &jsast.Identifier{Name: "b1"}}},
						&jsast.ExpressionStatement{Expr: &jsast.CallExpression{Callee: &jsast.Identifier{Name: "b2"}}},
					})
				}
			},
		},
	}, astutil.Options{}, nil)

	var names []string
	for _, s := range prog.Body {
		es := s.(*jsast.ExpressionStatement)
		names = append(names, es.Expr.(*jsast.CallExpression).Callee.(*jsast.Identifier).Name)
	}
	want := []string{"pre", "a", "b1", "b2"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("got %v, want %v", names, want)
		}
	}
}

// TestPathSkip confirms Skip suppresses descent into a node's children.
func TestPathSkip(t *testing.T) {
	prog := parse(t, `a(b());`)
	var innerVisited bool
	astutil.Traverse(prog, astutil.VisitorMap{
		"CallExpression": astutil.NodeVisitor{
			Enter: func(p *astutil.Path) {
				call := p.Node.(*jsast.CallExpression)
				if id, ok := call.Callee.(*jsast.Identifier); ok && id.Name == "a" {
					p.Skip()
				}
			},
		},
		"Identifier": astutil.NodeVisitor{
			Enter: func(p *astutil.Path) {
				if p.Node.(*jsast.Identifier).Name == "b" {
					innerVisited = true
				}
			},
		},
	}, astutil.Options{}, nil)

	if innerVisited {
		t.Error("expected Skip on the outer call to suppress descent into b()")
	}
}

// TestPathStop confirms Stop halts the walk after the current callback.
func TestPathStop(t *testing.T) {
	prog := parse(t, `a(); b(); c();`)
	var seen []string
	astutil.Traverse(prog, astutil.VisitorMap{
		"ExpressionStatement": astutil.NodeVisitor{
			Enter: func(p *astutil.Path) {
				call := p.Node.(*jsast.ExpressionStatement).Expr.(*jsast.CallExpression)
				name := call.Callee.(*jsast.Identifier).Name
				seen = append(seen, name)
				if name == "b" {
					p.Stop()
				}
			},
		},
	}, astutil.Options{}, nil)

	if len(seen) != 2 || seen[0] != "a" || seen[1] != "b" {
		t.Errorf("expected the walk to stop right after b, got %v", seen)
	}
}

// TestNoScopeSkipsBindingBookkeeping confirms Options{NoScope: true} leaves
// Result.Scope nil and doesn't crash a pure syntactic pass that never
// touches GetScope.
func TestNoScopeSkipsBindingBookkeeping(t *testing.T) {
	prog := parse(t, `var a = 1;`)
	result := astutil.Traverse(prog, astutil.VisitorMap{}, astutil.Options{NoScope: true}, nil)
	if result.Scope != nil {
		t.Error("expected Result.Scope to be nil under NoScope")
	}
}

// TestRenameFast confirms a rename touches the declaration and every read
// and write, but no unrelated identifier of the same text in another scope.
func TestRenameFast(t *testing.T) {
	prog := parse(t, `var x = 1; x = 2; use(x); function f() { var x = 3; use(x); }`)

	result := astutil.Traverse(prog, astutil.VisitorMap{}, astutil.Options{}, nil)
	outer := result.Scope.GetOwnBinding("x")
	if outer == nil {
		t.Fatal("expected x to be bound in the program scope")
	}
	astutil.RenameFast(outer, "renamed")

	decl := prog.Body[0].(*jsast.VariableDeclaration)
	if decl.Declarations[0].Id.Name != "renamed" {
		t.Errorf("expected the declaration site to be renamed, got %s", decl.Declarations[0].Id.Name)
	}
	assign := prog.Body[1].(*jsast.ExpressionStatement).Expr.(*jsast.AssignmentExpression)
	if assign.Left.(*jsast.Identifier).Name != "renamed" {
		t.Errorf("expected the write site to be renamed, got %s", assign.Left.(*jsast.Identifier).Name)
	}
	fn := prog.Body[3].(*jsast.FunctionDeclaration)
	innerDecl := fn.Body.Body[0].(*jsast.VariableDeclaration)
	if innerDecl.Declarations[0].Id.Name != "x" {
		t.Errorf("expected the inner function's own x to be untouched, got %s", innerDecl.Declarations[0].Id.Name)
	}
}

// TestRenameParameters confirms each named parameter and its uses inside
// the function body are renamed together.
func TestRenameParameters(t *testing.T) {
	prog := parse(t, `function f(a, b) { return a + b; }`)

	var fnScope *astutil.Scope
	astutil.Traverse(prog, astutil.VisitorMap{
		"ReturnStatement": astutil.NodeVisitor{
			Enter: func(p *astutil.Path) {
				fnScope = p.GetScope()
			},
		},
	}, astutil.Options{}, nil)

	if fnScope == nil {
		t.Fatal("expected to capture the function body's scope")
	}
	astutil.RenameParameters(fnScope, []string{"a", "b"}, []string{"x", "y"})

	fn := prog.Body[0].(*jsast.FunctionDeclaration)
	if fn.Params[0].Name != "x" || fn.Params[1].Name != "y" {
		t.Fatalf("expected params renamed to x, y, got %s, %s", fn.Params[0].Name, fn.Params[1].Name)
	}
	ret := fn.Body.Body[0].(*jsast.ReturnStatement)
	bin := ret.Argument.(*jsast.BinaryExpression)
	if bin.Left.(*jsast.Identifier).Name != "x" || bin.Right.(*jsast.Identifier).Name != "y" {
		t.Errorf("expected both uses renamed, got %s + %s",
			bin.Left.(*jsast.Identifier).Name, bin.Right.(*jsast.Identifier).Name)
	}
}

package astutil

import "github.com/jsdeobf/jsdeobf/jsast"

// BindKind classifies how a name entered its scope.
type BindKind string

const (
	BindVar      BindKind = "var"
	BindLet      BindKind = "let"
	BindConst    BindKind = "const"
	BindParam    BindKind = "param"
	BindFunction BindKind = "function"
)

// Ref pairs an identifier occurrence with its cursor, so a rename can
// mutate Node.Name directly while a rewrite (the constant inliner) can
// still use Path.ReplaceWith to swap in something other than an
// identifier.
type Ref struct {
	Node *jsast.Identifier
	Path *Path
}

// Binding is one declared name: its declaration site, every read of it
// (ReferencePaths), and every write to it (ConstantViolations, named for
// the case that matters most to the transform library — a binding with no
// violations is safe to inline).
type Binding struct {
	Kind               BindKind
	Identifier         *jsast.Identifier
	ReferencePaths     []Ref
	ConstantViolations []Ref
}

// Constant reports whether this binding is ever reassigned or updated
// after its declaration.
func (b *Binding) Constant() bool { return len(b.ConstantViolations) == 0 }

// Scope is one lexical scope: a function/program body (var-hoisting
// target) or a block (let/const only), chained to its enclosing scope.
// Modeled on the teacher's soyjs push/pop scope stack and on
// cue/ast/astutil's Resolve scope chain, generalized to JavaScript's
// var/let/const split.
type Scope struct {
	Node       jsast.Node
	Parent     *Scope
	IsFunction bool

	bindings map[string]*Binding
}

func newScope(node jsast.Node, parent *Scope, isFunction bool) *Scope {
	return &Scope{Node: node, Parent: parent, IsFunction: isFunction, bindings: map[string]*Binding{}}
}

// declare registers name in this scope. The first declaration wins, same
// as a JS var redeclared later in the same function — callers that care
// about redeclaration diagnostics aren't a goal here.
func (s *Scope) declare(name string, kind BindKind, id *jsast.Identifier) *Binding {
	if b, ok := s.bindings[name]; ok {
		return b
	}
	b := &Binding{Kind: kind, Identifier: id}
	s.bindings[name] = b
	return b
}

// GetBinding walks up the scope chain looking for name.
func (s *Scope) GetBinding(name string) *Binding {
	for cur := s; cur != nil; cur = cur.Parent {
		if b, ok := cur.bindings[name]; ok {
			return b
		}
	}
	return nil
}

// GetOwnBinding returns a binding declared directly in this scope,
// ignoring its parents.
func (s *Scope) GetOwnBinding(name string) *Binding {
	if s == nil {
		return nil
	}
	return s.bindings[name]
}

// HasOwnBinding reports whether name is declared directly in this scope.
func (s *Scope) HasOwnBinding(name string) bool {
	_, ok := s.bindings[name]
	return ok
}

// FunctionParent returns the nearest enclosing scope that hoists var
// declarations (a function body or the program).
func (s *Scope) FunctionParent() *Scope {
	for s != nil && !s.IsFunction {
		s = s.Parent
	}
	return s
}

// Names returns every name declared directly in this scope, in no
// particular order.
func (s *Scope) Names() []string {
	out := make([]string, 0, len(s.bindings))
	for n := range s.bindings {
		out = append(out, n)
	}
	return out
}

func bindKind(declKind string) BindKind {
	switch declKind {
	case "let":
		return BindLet
	case "const":
		return BindConst
	default:
		return BindVar
	}
}

// hoistVars registers every var and function declaration reachable from
// list into fnScope, without descending into nested function bodies —
// the same hoisting a JS engine performs before running a function body,
// needed so a reference textually before its var declaration still
// resolves to the right Binding.
func hoistVars(list []jsast.Statement, fnScope *Scope) {
	for _, s := range list {
		hoistVarsStmt(s, fnScope)
	}
}

func hoistVarsStmt(s jsast.Statement, fnScope *Scope) {
	switch x := s.(type) {
	case *jsast.VariableDeclaration:
		if x.Kind == "var" {
			for _, d := range x.Declarations {
				fnScope.declare(d.Id.Name, BindVar, d.Id)
			}
		}
	case *jsast.FunctionDeclaration:
		if x.Id != nil {
			fnScope.declare(x.Id.Name, BindFunction, x.Id)
		}
	case *jsast.BlockStatement:
		hoistVars(x.Body, fnScope)
	case *jsast.IfStatement:
		hoistVarsStmt(x.Consequent, fnScope)
		if x.Alternate != nil {
			hoistVarsStmt(x.Alternate, fnScope)
		}
	case *jsast.ForStatement:
		if decl, ok := x.Init.(*jsast.VariableDeclaration); ok && decl.Kind == "var" {
			for _, d := range decl.Declarations {
				fnScope.declare(d.Id.Name, BindVar, d.Id)
			}
		}
		hoistVarsStmt(x.Body, fnScope)
	case *jsast.ForInStatement:
		if decl, ok := x.Left.(*jsast.VariableDeclaration); ok && decl.Kind == "var" {
			for _, d := range decl.Declarations {
				fnScope.declare(d.Id.Name, BindVar, d.Id)
			}
		}
		hoistVarsStmt(x.Body, fnScope)
	case *jsast.WhileStatement:
		hoistVarsStmt(x.Body, fnScope)
	case *jsast.DoWhileStatement:
		hoistVarsStmt(x.Body, fnScope)
	case *jsast.SwitchStatement:
		for _, c := range x.Cases {
			hoistVars(c.Consequent, fnScope)
		}
	case *jsast.TryStatement:
		hoistVarsStmt(x.Block, fnScope)
		if x.Handler != nil {
			hoistVarsStmt(x.Handler.Body, fnScope)
		}
		if x.Finalizer != nil {
			hoistVarsStmt(x.Finalizer, fnScope)
		}
	case *jsast.LabeledStatement:
		hoistVarsStmt(x.Body, fnScope)
	}
}

// hoistBlockDeclarations registers the let/const declarations made
// directly in list (not in any nested block) into blockScope. Unlike
// hoistVars this never recurses — let/const are block-scoped by
// definition.
func hoistBlockDeclarations(list []jsast.Statement, blockScope *Scope) {
	for _, s := range list {
		decl, ok := s.(*jsast.VariableDeclaration)
		if !ok || decl.Kind == "var" {
			continue
		}
		kind := bindKind(decl.Kind)
		for _, d := range decl.Declarations {
			blockScope.declare(d.Id.Name, kind, d.Id)
		}
	}
}

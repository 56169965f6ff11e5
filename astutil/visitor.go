package astutil

import "github.com/jsdeobf/jsdeobf/jsast"

// NodeVisitor holds the enter/exit callbacks for one node kind.
type NodeVisitor struct {
	Enter func(*Path)
	Exit  func(*Path)
}

// VisitorMap maps a node-kind name (e.g. "CallExpression", "Identifier")
// to the callbacks a transform wants invoked for it. Kind names match the
// jsast struct names.
type VisitorMap map[string]NodeVisitor

// Options configures a single Traverse call.
type Options struct {
	// NoScope disables scope/binding construction for this walk. Pure
	// syntactic passes (sequence splitting, binary evaluation) that never
	// consult a Binding can skip the (modest) bookkeeping cost.
	NoScope bool
}

// Result reports whether the walk was stopped early; edit counts are
// not part of it (a transform keeps its own count through the onChange
// callback passed to Traverse). Scope is the root scope built for this walk (nil if
// opts.NoScope was set), exposed so callers that need whole-program
// binding information (the decoder locator's reference counting) don't
// have to re-walk the tree themselves.
type Result struct {
	Stopped bool
	Scope   *Scope
}

type walkCtx struct {
	v        VisitorMap
	onChange func()
	stop     bool
	noScope  bool
}

func (c *walkCtx) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

// Traverse walks root depth-first, invoking v's enter/exit callbacks and
// maintaining scope/binding information unless opts.NoScope is set.
// onChange, if non-nil, is invoked once per successful mutation primitive
// (ReplaceWith/ReplaceWithMultiple/InsertBefore/Remove) so callers can
// maintain their own `changes` counter (spec.md §4.3).
func Traverse(root jsast.Node, v VisitorMap, opts Options, onChange func()) Result {
	ctx := &walkCtx{v: v, onChange: onChange, noScope: opts.NoScope}
	prog, isProgram := root.(*jsast.Program)
	var rootScope *Scope
	if !ctx.noScope {
		rootScope = newScope(root, nil, true)
	}
	rootPath := &Path{Node: root, Scope: rootScope, ctx: ctx}
	if isProgram {
		if !ctx.noScope {
			hoistVars(prog.Body, rootScope)
		}
		walkStmtList(&prog.Body, rootPath, rootScope, rootScope, ctx)
	} else if s, ok := root.(jsast.Statement); ok {
		walkStatement(s, rootPath, func(n jsast.Statement) { rootPath.Node = n }, rootScope, rootScope, ctx)
	} else if e, ok := root.(jsast.Expression); ok {
		walkExpression(e, rootPath, func(n jsast.Expression) { rootPath.Node = n }, rootScope, ctx, true)
	}
	return Result{Stopped: ctx.stop, Scope: rootScope}
}

func callEnter(ctx *walkCtx, kind string, p *Path) {
	if nv, ok := ctx.v[kind]; ok && nv.Enter != nil {
		nv.Enter(p)
	}
}

func callExit(ctx *walkCtx, kind string, p *Path) {
	if ctx.stop {
		return
	}
	if nv, ok := ctx.v[kind]; ok && nv.Exit != nil {
		nv.Exit(p)
	}
}

// walkStmtList walks a []jsast.Statement slot shared by Program.Body,
// BlockStatement.Body, and SwitchCase.Consequent, providing remove/insert
// mutation closures over the live slice (see astutil.Path's doc comment
// for the re-visit rules these closures implement).
func walkStmtList(list *[]jsast.Statement, parent *Path, fnScope, blockScope *Scope, ctx *walkCtx) {
	if !ctx.noScope {
		hoistBlockDeclarations(*list, blockScope)
	}
	for i := 0; i < len(*list); i++ {
		if ctx.stop {
			return
		}
		idx := i
		set := func(n jsast.Statement) { (*list)[idx] = n }
		del := func() {
			*list = append((*list)[:idx], (*list)[idx+1:]...)
			i--
		}
		insBefore := func(n jsast.Node) {
			stmt := n.(jsast.Statement)
			*list = append(*list, nil)
			copy((*list)[idx+1:], (*list)[idx:])
			(*list)[idx] = stmt
			i++
		}
		insMulti := func(ns []jsast.Node) {
			rest := append([]jsast.Statement{}, (*list)[idx+1:]...)
			replacement := make([]jsast.Statement, 0, len(ns))
			for _, n := range ns {
				replacement = append(replacement, n.(jsast.Statement))
			}
			*list = append((*list)[:idx], append(replacement, rest...)...)
			i += len(replacement) - 1
		}
		walkStatement((*list)[idx], parent, set, fnScope, blockScope, ctx,
			withDel(del), withInsertBefore(insBefore), withInsertMultiple(insMulti))
	}
}

// pathOpt mutates a freshly constructed Path before it is handed to the
// node's enter/exit callbacks.
type pathOpt func(*Path)

func withDel(f func()) pathOpt             { return func(p *Path) { p.del = f } }
func withInsertBefore(f func(jsast.Node)) pathOpt { return func(p *Path) { p.insBefore = f } }
func withInsertMultiple(f func([]jsast.Node)) pathOpt {
	return func(p *Path) { p.insMulti = f }
}

func newChildPath(node jsast.Node, parent *Path, scope *Scope, set func(jsast.Node), ctx *walkCtx, opts ...pathOpt) *Path {
	p := &Path{Node: node, Parent: parent, Scope: scope, set: set, ctx: ctx}
	for _, o := range opts {
		o(p)
	}
	return p
}

// walkStatement dispatches a single statement to its kind-specific
// handling, invoking enter/exit and recursing into children.
func walkStatement(s jsast.Statement, parent *Path, set func(jsast.Statement), fnScope, blockScope *Scope, ctx *walkCtx, opts ...pathOpt) {
	wrappedSet := func(n jsast.Node) { set(n.(jsast.Statement)) }
	p := newChildPath(s, parent, blockScope, wrappedSet, ctx, opts...)
	kind := kindOf(s)
	callEnter(ctx, kind, p)
	if ctx.stop {
		return
	}
	if p.skipFlag {
		callExit(ctx, kind, p)
		return
	}
	// Re-fetch in case ReplaceWith ran during enter (Open Question (a):
	// descend into the replacement).
	switch x := p.Node.(type) {
	case *jsast.ExpressionStatement:
		walkExpression(x.Expr, p, func(n jsast.Expression) { x.Expr = n }, blockScope, ctx, false)
	case *jsast.BlockStatement:
		inner := newScope(x, blockScope, false)
		walkStmtList(&x.Body, p, fnScope, inner, ctx)
	case *jsast.VariableDeclaration:
		for _, d := range x.Declarations {
			walkDeclarator(d, p, blockScope, ctx)
		}
	case *jsast.FunctionDeclaration:
		walkFunctionLike(x.Id, x.Params, x.Body, p, fnScope, ctx)
	case *jsast.ReturnStatement:
		if x.Argument != nil {
			walkExpression(x.Argument, p, func(n jsast.Expression) { x.Argument = n }, blockScope, ctx, false)
		}
	case *jsast.IfStatement:
		walkExpression(x.Test, p, func(n jsast.Expression) { x.Test = n }, blockScope, ctx, false)
		walkStatement(x.Consequent, p, func(n jsast.Statement) { x.Consequent = n }, fnScope, blockScope, ctx)
		if x.Alternate != nil {
			walkStatement(x.Alternate, p, func(n jsast.Statement) { x.Alternate = n }, fnScope, blockScope, ctx)
		}
	case *jsast.ForStatement:
		forScope := blockScope
		if decl, ok := x.Init.(*jsast.VariableDeclaration); ok && decl.Kind != "var" {
			forScope = newScope(x, blockScope, false)
			for _, d := range decl.Declarations {
				forScope.declare(d.Id.Name, bindKind(decl.Kind), d.Id)
			}
		}
		if x.Init != nil {
			walkForHead(x.Init, p, func(n jsast.Node) { x.Init = n }, fnScope, forScope, ctx)
		}
		if x.Test != nil {
			walkExpression(x.Test, p, func(n jsast.Expression) { x.Test = n }, forScope, ctx, false)
		}
		if x.Update != nil {
			walkExpression(x.Update, p, func(n jsast.Expression) { x.Update = n }, forScope, ctx, false)
		}
		walkStatement(x.Body, p, func(n jsast.Statement) { x.Body = n }, fnScope, forScope, ctx)
	case *jsast.ForInStatement:
		forScope := blockScope
		if decl, ok := x.Left.(*jsast.VariableDeclaration); ok && decl.Kind != "var" {
			forScope = newScope(x, blockScope, false)
			forScope.declare(decl.Declarations[0].Id.Name, bindKind(decl.Kind), decl.Declarations[0].Id)
		}
		walkForHead(x.Left, p, func(n jsast.Node) { x.Left = n }, fnScope, forScope, ctx)
		walkExpression(x.Right, p, func(n jsast.Expression) { x.Right = n }, blockScope, ctx, false)
		walkStatement(x.Body, p, func(n jsast.Statement) { x.Body = n }, fnScope, forScope, ctx)
	case *jsast.WhileStatement:
		walkExpression(x.Test, p, func(n jsast.Expression) { x.Test = n }, blockScope, ctx, false)
		walkStatement(x.Body, p, func(n jsast.Statement) { x.Body = n }, fnScope, blockScope, ctx)
	case *jsast.DoWhileStatement:
		walkStatement(x.Body, p, func(n jsast.Statement) { x.Body = n }, fnScope, blockScope, ctx)
		walkExpression(x.Test, p, func(n jsast.Expression) { x.Test = n }, blockScope, ctx, false)
	case *jsast.SwitchStatement:
		walkExpression(x.Discriminant, p, func(n jsast.Expression) { x.Discriminant = n }, blockScope, ctx, false)
		switchScope := newScope(x, blockScope, false)
		for _, c := range x.Cases {
			cp := newChildPath(c, p, switchScope, nil, ctx)
			callEnter(ctx, "SwitchCase", cp)
			if c.Test != nil {
				walkExpression(c.Test, cp, func(n jsast.Expression) { c.Test = n }, switchScope, ctx, false)
			}
			walkStmtList(&c.Consequent, cp, fnScope, switchScope, ctx)
			callExit(ctx, "SwitchCase", cp)
		}
	case *jsast.ThrowStatement:
		walkExpression(x.Argument, p, func(n jsast.Expression) { x.Argument = n }, blockScope, ctx, false)
	case *jsast.TryStatement:
		walkStatement(x.Block, p, func(n jsast.Statement) { x.Block = n.(*jsast.BlockStatement) }, fnScope, blockScope, ctx)
		if x.Handler != nil {
			catchScope := blockScope
			if x.Handler.Param != nil {
				catchScope = newScope(x.Handler, blockScope, false)
				catchScope.declare(x.Handler.Param.Name, BindParam, x.Handler.Param)
			}
			hp := newChildPath(x.Handler, p, catchScope, nil, ctx)
			callEnter(ctx, "CatchClause", hp)
			walkStatement(x.Handler.Body, hp, func(n jsast.Statement) { x.Handler.Body = n.(*jsast.BlockStatement) }, fnScope, catchScope, ctx)
			callExit(ctx, "CatchClause", hp)
		}
		if x.Finalizer != nil {
			walkStatement(x.Finalizer, p, func(n jsast.Statement) { x.Finalizer = n.(*jsast.BlockStatement) }, fnScope, blockScope, ctx)
		}
	case *jsast.LabeledStatement:
		walkStatement(x.Body, p, func(n jsast.Statement) { x.Body = n }, fnScope, blockScope, ctx)
	case *jsast.EmptyStatement, *jsast.DebuggerStatement, *jsast.BreakStatement, *jsast.ContinueStatement:
		// leaves
	}
	callExit(ctx, kind, p)
}

func walkForHead(n jsast.Node, parent *Path, set func(jsast.Node), fnScope, scope *Scope, ctx *walkCtx) {
	switch x := n.(type) {
	case *jsast.VariableDeclaration:
		for _, d := range x.Declarations {
			walkDeclarator(d, parent, scope, ctx)
		}
	case jsast.Expression:
		walkExpression(x, parent, func(e jsast.Expression) { set(e) }, scope, ctx, false)
	}
}

func walkDeclarator(d *jsast.VariableDeclarator, parent *Path, scope *Scope, ctx *walkCtx) {
	if d.Init != nil {
		walkExpression(d.Init, parent, func(n jsast.Expression) { d.Init = n }, scope, ctx, false)
	}
	kind := kindOf(d)
	p := newChildPath(d, parent, scope, nil, ctx)
	callEnter(ctx, kind, p)
	callExit(ctx, kind, p)
}

func walkFunctionLike(id *jsast.Identifier, params []*jsast.Identifier, body *jsast.BlockStatement, parent *Path, outer *Scope, ctx *walkCtx) {
	var fnScope *Scope
	if !ctx.noScope {
		fnScope = newScope(body, outer, true)
		for _, pr := range params {
			fnScope.declare(pr.Name, BindParam, pr)
		}
		hoistVars(body.Body, fnScope)
	}
	walkStmtList(&body.Body, parent, fnScope, fnScope, ctx)
}

// walkExpression dispatches a single expression, invoking enter/exit,
// recursing into children, and—unless isBindingPosition—classifying bare
// Identifier leaves as scope references.
func walkExpression(e jsast.Expression, parent *Path, set func(jsast.Expression), scope *Scope, ctx *walkCtx, isBindingPosition bool) {
	if e == nil {
		return
	}
	wrappedSet := func(n jsast.Node) { set(n.(jsast.Expression)) }
	p := newChildPath(e, parent, scope, wrappedSet, ctx)
	kind := kindOf(e)
	callEnter(ctx, kind, p)
	if ctx.stop {
		return
	}
	if p.skipFlag {
		callExit(ctx, kind, p)
		return
	}
	switch x := p.Node.(type) {
	case *jsast.Identifier:
		if !ctx.noScope && !isBindingPosition {
			recordReference(scope, x, p, false)
		}
	case *jsast.Literal, *jsast.ThisExpression:
	case *jsast.ArrayExpression:
		for i, el := range x.Elements {
			if el == nil {
				continue
			}
			idx := i
			walkExpression(el, p, func(n jsast.Expression) { x.Elements[idx] = n }, scope, ctx, false)
		}
	case *jsast.ObjectExpression:
		for _, prop := range x.Properties {
			pp := newChildPath(prop, p, scope, nil, ctx)
			callEnter(ctx, "Property", pp)
			if prop.Computed {
				walkExpression(prop.Key, pp, func(n jsast.Expression) { prop.Key = n }, scope, ctx, false)
			}
			walkExpression(prop.Value, pp, func(n jsast.Expression) { prop.Value = n }, scope, ctx, false)
			callExit(ctx, "Property", pp)
		}
	case *jsast.FunctionExpression:
		walkFunctionLike(x.Id, x.Params, x.Body, p, scope, ctx)
	case *jsast.UnaryExpression:
		walkExpression(x.Argument, p, func(n jsast.Expression) { x.Argument = n }, scope, ctx, false)
	case *jsast.UpdateExpression:
		walkExpression(x.Argument, p, func(n jsast.Expression) { x.Argument = n }, scope, ctx, true)
		if !ctx.noScope {
			if id, ok := x.Argument.(*jsast.Identifier); ok {
				recordReference(scope, id, p, true)
			}
		}
	case *jsast.BinaryExpression:
		walkExpression(x.Left, p, func(n jsast.Expression) { x.Left = n }, scope, ctx, false)
		walkExpression(x.Right, p, func(n jsast.Expression) { x.Right = n }, scope, ctx, false)
	case *jsast.LogicalExpression:
		walkExpression(x.Left, p, func(n jsast.Expression) { x.Left = n }, scope, ctx, false)
		walkExpression(x.Right, p, func(n jsast.Expression) { x.Right = n }, scope, ctx, false)
	case *jsast.AssignmentExpression:
		walkExpression(x.Left, p, func(n jsast.Expression) { x.Left = n }, scope, ctx, true)
		if !ctx.noScope {
			if id, ok := x.Left.(*jsast.Identifier); ok {
				recordReference(scope, id, p, true)
			}
		}
		walkExpression(x.Right, p, func(n jsast.Expression) { x.Right = n }, scope, ctx, false)
	case *jsast.MemberExpression:
		walkExpression(x.Object, p, func(n jsast.Expression) { x.Object = n }, scope, ctx, false)
		if x.Computed {
			walkExpression(x.Property, p, func(n jsast.Expression) { x.Property = n }, scope, ctx, false)
		}
	case *jsast.ConditionalExpression:
		walkExpression(x.Test, p, func(n jsast.Expression) { x.Test = n }, scope, ctx, false)
		walkExpression(x.Consequent, p, func(n jsast.Expression) { x.Consequent = n }, scope, ctx, false)
		walkExpression(x.Alternate, p, func(n jsast.Expression) { x.Alternate = n }, scope, ctx, false)
	case *jsast.CallExpression:
		walkExpression(x.Callee, p, func(n jsast.Expression) { x.Callee = n }, scope, ctx, false)
		for i, a := range x.Arguments {
			idx := i
			walkExpression(a, p, func(n jsast.Expression) { x.Arguments[idx] = n }, scope, ctx, false)
		}
	case *jsast.NewExpression:
		walkExpression(x.Callee, p, func(n jsast.Expression) { x.Callee = n }, scope, ctx, false)
		for i, a := range x.Arguments {
			idx := i
			walkExpression(a, p, func(n jsast.Expression) { x.Arguments[idx] = n }, scope, ctx, false)
		}
	case *jsast.SequenceExpression:
		for i, se := range x.Expressions {
			idx := i
			walkExpression(se, p, func(n jsast.Expression) { x.Expressions[idx] = n }, scope, ctx, false)
		}
	}
	callExit(ctx, kind, p)
}

// recordReference classifies id as a read or write use of the binding it
// resolves to, appending p (the Identifier's own Path, with a working
// ReplaceWith closure) to the appropriate slice.
func recordReference(scope *Scope, id *jsast.Identifier, p *Path, isWrite bool) {
	if scope == nil {
		return
	}
	b := scope.GetBinding(id.Name)
	if b == nil {
		return
	}
	ref := Ref{Node: id, Path: p}
	if isWrite {
		b.ConstantViolations = append(b.ConstantViolations, ref)
	} else {
		b.ReferencePaths = append(b.ReferencePaths, ref)
	}
}

func kindOf(n jsast.Node) string {
	switch n.(type) {
	case *jsast.Program:
		return "Program"
	case *jsast.Identifier:
		return "Identifier"
	case *jsast.Literal:
		return "Literal"
	case *jsast.ThisExpression:
		return "ThisExpression"
	case *jsast.ArrayExpression:
		return "ArrayExpression"
	case *jsast.ObjectExpression:
		return "ObjectExpression"
	case *jsast.Property:
		return "Property"
	case *jsast.FunctionExpression:
		return "FunctionExpression"
	case *jsast.UnaryExpression:
		return "UnaryExpression"
	case *jsast.UpdateExpression:
		return "UpdateExpression"
	case *jsast.BinaryExpression:
		return "BinaryExpression"
	case *jsast.LogicalExpression:
		return "LogicalExpression"
	case *jsast.AssignmentExpression:
		return "AssignmentExpression"
	case *jsast.MemberExpression:
		return "MemberExpression"
	case *jsast.ConditionalExpression:
		return "ConditionalExpression"
	case *jsast.CallExpression:
		return "CallExpression"
	case *jsast.NewExpression:
		return "NewExpression"
	case *jsast.SequenceExpression:
		return "SequenceExpression"
	case *jsast.ExpressionStatement:
		return "ExpressionStatement"
	case *jsast.BlockStatement:
		return "BlockStatement"
	case *jsast.EmptyStatement:
		return "EmptyStatement"
	case *jsast.DebuggerStatement:
		return "DebuggerStatement"
	case *jsast.VariableDeclaration:
		return "VariableDeclaration"
	case *jsast.VariableDeclarator:
		return "VariableDeclarator"
	case *jsast.FunctionDeclaration:
		return "FunctionDeclaration"
	case *jsast.ReturnStatement:
		return "ReturnStatement"
	case *jsast.IfStatement:
		return "IfStatement"
	case *jsast.ForStatement:
		return "ForStatement"
	case *jsast.ForInStatement:
		return "ForInStatement"
	case *jsast.WhileStatement:
		return "WhileStatement"
	case *jsast.DoWhileStatement:
		return "DoWhileStatement"
	case *jsast.SwitchStatement:
		return "SwitchStatement"
	case *jsast.SwitchCase:
		return "SwitchCase"
	case *jsast.BreakStatement:
		return "BreakStatement"
	case *jsast.ContinueStatement:
		return "ContinueStatement"
	case *jsast.ThrowStatement:
		return "ThrowStatement"
	case *jsast.TryStatement:
		return "TryStatement"
	case *jsast.CatchClause:
		return "CatchClause"
	case *jsast.LabeledStatement:
		return "LabeledStatement"
	}
	return ""
}

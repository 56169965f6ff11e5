// Package astutil provides the traversal driver, lexical scope tracking,
// and mutation-safe cursor (Path) that the transform library rewrites
// through, generalizing the teacher's own scope-tracking
// (soyjs/scope.go) and borrowing the scope-chain design of
// cue/ast/astutil's Resolve.
package astutil

import "github.com/jsdeobf/jsdeobf/jsast"

// Path is a cursor over a single AST node: the node itself, its parent
// chain, its enclosing scope, and the mutation primitives spec.md §3
// requires (replaceWith, replaceWithMultiple, insertBefore, remove, skip,
// stop, traverse).
type Path struct {
	Node   jsast.Node
	Parent *Path
	Scope  *Scope

	set       func(jsast.Node)
	del       func()
	insBefore func(jsast.Node)
	insMulti  func([]jsast.Node)

	skipFlag bool
	ctx      *walkCtx
}

// ReplaceWith swaps this path's node for n. If called during a node's
// enter callback, the driver descends into n instead of the original
// node's children (Open Question (a) in spec.md §9); if called during
// exit, n is not revisited this pass.
func (p *Path) ReplaceWith(n jsast.Node) {
	if p.set == nil {
		return
	}
	p.set(n)
	p.Node = n
	p.ctx.changed()
}

// ReplaceWithMultiple splices ns in place of this statement. Only valid
// when this path's node occupies a statement-list slot; a no-op
// otherwise. The spliced statements are not revisited this pass.
func (p *Path) ReplaceWithMultiple(ns []jsast.Node) {
	if p.insMulti == nil {
		return
	}
	p.insMulti(ns)
	p.ctx.changed()
}

// InsertBefore splices a new sibling statement immediately before this
// one. The inserted sibling is not visited in the current pass.
func (p *Path) InsertBefore(n jsast.Node) {
	if p.insBefore == nil {
		return
	}
	p.insBefore(n)
	p.ctx.changed()
}

// Remove deletes this statement from its containing list.
func (p *Path) Remove() {
	if p.del == nil {
		return
	}
	p.del()
	p.ctx.changed()
}

// Skip suppresses descent into this node's children.
func (p *Path) Skip() { p.skipFlag = true }

// Stop halts the entire walk immediately after the current callback
// returns.
func (p *Path) Stop() { p.ctx.stop = true }

// GetScope lazily resolves and returns the lexical scope enclosing this
// path, walking up to the nearest function/program ancestor.
func (p *Path) GetScope() *Scope {
	if p.Scope != nil {
		return p.Scope
	}
	if p.Parent != nil {
		p.Scope = p.Parent.GetScope()
	}
	return p.Scope
}

// Root returns the outermost path (the Program).
func (p *Path) Root() *Path {
	for p.Parent != nil {
		p = p.Parent
	}
	return p
}

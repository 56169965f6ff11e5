package transform

import (
	"github.com/jsdeobf/jsdeobf/astutil"
	"github.com/jsdeobf/jsdeobf/jsast"
)

// ControlFlowFlattener reconstructs the "switch dispatch over an ordering
// alphabet" idiom a flattening obfuscator linearises a function body
// into:
//
//	var o = "1|3|2|0".split("|"), i = 0;
//	while (true) {
//	  switch (o[i++]) {
//	  case "0": ...; break;
//	  case "1": ...; continue;
//	  case "2": ...; continue;
//	  case "3": ...; continue;
//	  }
//	  break;
//	}
//
// The dispatch loop is equally often written `for (;;) { ... }` instead
// of `while (true)`; both forms are recognized.
//
// Since the array literal that names the alphabet is itself plain,
// unobfuscated source (unlike the decoder subsystem's encoded string
// table), the case order can be recovered by splitting it directly,
// without a sandbox: splice the matching case's body, in the order the
// alphabet names it, stripping its trailing continue/break, and drop the
// driving declarations and the loop.
var ControlFlowFlattener = Transform{
	Name: "control-flow-flattener",
	Build: func(r *Run) astutil.VisitorMap {
		return astutil.VisitorMap{
			"BlockStatement": astutil.NodeVisitor{
				Enter: func(p *astutil.Path) {
					block := p.Node.(*jsast.BlockStatement)
					if unflattenOnce(block) {
						r.mark()
					}
				},
			},
		}
	},
}

// unflattenOnce finds and rewrites the first flattening shape in block's
// own statement list, reporting whether it made an edit. Only one shape
// is rewritten per call; the fixpoint driver calls back around for any
// remaining occurrences.
func unflattenOnce(block *jsast.BlockStatement) bool {
	for i, stmt := range block.Body {
		decl, ok := stmt.(*jsast.VariableDeclaration)
		if !ok {
			continue
		}
		orderVar, labels, ok := findOrderDecl(decl)
		if !ok {
			continue
		}
		counterVar, afterDecl, ok := findCounterVar(decl, block.Body, i)
		if !ok {
			continue
		}
		if afterDecl >= len(block.Body) {
			continue
		}
		loopBody, ok := dispatchLoopBody(block.Body[afterDecl])
		if !ok {
			continue
		}
		cases, ok := flattenedCases(loopBody, orderVar, counterVar)
		if !ok {
			continue
		}
		ordered, ok := orderCases(cases, labels)
		if !ok {
			continue
		}
		replacement := make([]jsast.Statement, 0, len(ordered))
		for _, body := range ordered {
			replacement = append(replacement, stripTrailingLoopJump(body)...)
		}
		next := block.Body[:0:0]
		next = append(next, block.Body[:i]...)
		next = append(next, replacement...)
		next = append(next, block.Body[afterDecl+1:]...)
		block.Body = next
		return true
	}
	return false
}

// findOrderDecl looks for a declarator in decl whose initializer is
// `<literal string>.split(<literal string>)`, returning its declared
// name and the recovered alphabet.
func findOrderDecl(decl *jsast.VariableDeclaration) (name string, labels []string, ok bool) {
	for _, d := range decl.Declarations {
		obj, sep, isSplit := splitLiteralCall(d.Init)
		if !isSplit {
			continue
		}
		return d.Id.Name, splitAlphabet(obj, sep), true
	}
	return "", nil, false
}

// findCounterVar looks for a `name = 0` declarator naming the loop
// counter, either alongside orderDecl or in the very next statement, and
// returns the statement index the flattened shape ends just before.
func findCounterVar(orderDecl *jsast.VariableDeclaration, body []jsast.Statement, orderIdx int) (name string, nextIdx int, ok bool) {
	for _, d := range orderDecl.Declarations {
		if isZeroLiteral(d.Init) {
			return d.Id.Name, orderIdx + 1, true
		}
	}
	if orderIdx+1 >= len(body) {
		return "", 0, false
	}
	next, isDecl := body[orderIdx+1].(*jsast.VariableDeclaration)
	if !isDecl || len(next.Declarations) != 1 {
		return "", 0, false
	}
	d := next.Declarations[0]
	if !isZeroLiteral(d.Init) {
		return "", 0, false
	}
	return d.Id.Name, orderIdx + 2, true
}

// dispatchLoopBody returns the body of stmt if stmt is a `while (true)`
// or an empty-headed `for (;;)` loop — the two forms the flattening
// idiom's dispatch loop takes — and false otherwise.
func dispatchLoopBody(stmt jsast.Statement) (jsast.Statement, bool) {
	switch s := stmt.(type) {
	case *jsast.WhileStatement:
		if !isTruthyTest(s.Test) {
			return nil, false
		}
		return s.Body, true
	case *jsast.ForStatement:
		if s.Init != nil || s.Test != nil || s.Update != nil {
			return nil, false
		}
		return s.Body, true
	}
	return nil, false
}

// flattenedCases validates the dispatch loop's body shape — a block of
// exactly a switch over `orderVar[counterVar++]` followed by a trailing
// break — and returns its cases.
func flattenedCases(loopBody jsast.Statement, orderVar, counterVar string) ([]*jsast.SwitchCase, bool) {
	body, ok := loopBody.(*jsast.BlockStatement)
	if !ok || len(body.Body) != 2 {
		return nil, false
	}
	sw, ok := body.Body[0].(*jsast.SwitchStatement)
	if !ok {
		return nil, false
	}
	if _, ok := body.Body[1].(*jsast.BreakStatement); !ok {
		return nil, false
	}
	member, ok := sw.Discriminant.(*jsast.MemberExpression)
	if !ok || !member.Computed {
		return nil, false
	}
	obj, ok := member.Object.(*jsast.Identifier)
	if !ok || obj.Name != orderVar {
		return nil, false
	}
	upd, ok := member.Property.(*jsast.UpdateExpression)
	if !ok || upd.Operator != "++" || upd.Prefix {
		return nil, false
	}
	ctr, ok := upd.Argument.(*jsast.Identifier)
	if !ok || ctr.Name != counterVar {
		return nil, false
	}
	for _, c := range sw.Cases {
		if c.Test == nil {
			return nil, false // a default case has no place in the alphabet order
		}
	}
	return sw.Cases, true
}

// orderCases maps each alphabet label to its case body, in alphabet
// order, failing unless every label has exactly one matching case and
// no case is left unused.
func orderCases(cases []*jsast.SwitchCase, labels []string) ([][]jsast.Statement, bool) {
	if len(cases) != len(labels) {
		return nil, false
	}
	byLabel := make(map[string][]jsast.Statement, len(cases))
	for _, c := range cases {
		lit, ok := c.Test.(*jsast.Literal)
		if !ok {
			return nil, false
		}
		s, ok := lit.Value.(string)
		if !ok {
			return nil, false
		}
		if _, dup := byLabel[s]; dup {
			return nil, false
		}
		byLabel[s] = c.Consequent
	}
	ordered := make([][]jsast.Statement, 0, len(labels))
	for _, l := range labels {
		body, ok := byLabel[l]
		if !ok {
			return nil, false
		}
		ordered = append(ordered, body)
	}
	return ordered, true
}

// stripTrailingLoopJump drops a trailing unlabeled continue or break —
// the dispatch loop's own control flow, meaningless once the loop is
// gone — from a case body.
func stripTrailingLoopJump(body []jsast.Statement) []jsast.Statement {
	if len(body) == 0 {
		return body
	}
	switch last := body[len(body)-1].(type) {
	case *jsast.ContinueStatement:
		if last.Label == nil {
			return body[:len(body)-1]
		}
	case *jsast.BreakStatement:
		if last.Label == nil {
			return body[:len(body)-1]
		}
	}
	return body
}

// splitLiteralCall reports whether e is `<literal string>.split(<literal
// string>)` and, if so, returns the two literal strings.
func splitLiteralCall(e jsast.Expression) (obj, sep string, ok bool) {
	call, ok := e.(*jsast.CallExpression)
	if !ok || len(call.Arguments) != 1 {
		return "", "", false
	}
	member, ok := call.Callee.(*jsast.MemberExpression)
	if !ok || member.Computed {
		return "", "", false
	}
	prop, ok := member.Property.(*jsast.Identifier)
	if !ok || prop.Name != "split" {
		return "", "", false
	}
	objLit, ok := member.Object.(*jsast.Literal)
	if !ok {
		return "", "", false
	}
	objStr, ok := objLit.Value.(string)
	if !ok {
		return "", "", false
	}
	argLit, ok := call.Arguments[0].(*jsast.Literal)
	if !ok {
		return "", "", false
	}
	sepStr, ok := argLit.Value.(string)
	if !ok {
		return "", "", false
	}
	return objStr, sepStr, true
}

func splitAlphabet(s, sep string) []string {
	var out []string
	start := 0
	for i := 0; i+len(sep) <= len(s); i++ {
		if sep != "" && s[i:i+len(sep)] == sep {
			out = append(out, s[start:i])
			start = i + len(sep)
			i += len(sep) - 1
		}
	}
	out = append(out, s[start:])
	return out
}

func isZeroLiteral(e jsast.Expression) bool {
	lit, ok := e.(*jsast.Literal)
	if !ok {
		return false
	}
	n, ok := lit.Value.(float64)
	return ok && n == 0
}

func isTruthyTest(e jsast.Expression) bool {
	lit, ok := e.(*jsast.Literal)
	if !ok {
		return false
	}
	return isTruthy(lit.Value)
}

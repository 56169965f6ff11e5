package transform

import (
	"strings"

	"github.com/jsdeobf/jsdeobf/astutil"
	"github.com/jsdeobf/jsdeobf/jsast"
)

// NewCommentMarker builds the comment-marker transform, parameterized by
// the user-supplied keyword list spec.md §4.4 calls `markKeywords`: a
// leading `TOLOOK` comment goes on every `debugger` statement, every
// `setTimeout`/`setInterval` call, and any statement containing an
// identifier or string literal whose text matches one of keywords
// case-insensitively.
func NewCommentMarker(keywords []string) Transform {
	lower := make([]string, len(keywords))
	for i, k := range keywords {
		lower[i] = strings.ToLower(k)
	}
	return Transform{
		Name: "comment-marker",
		Build: func(r *Run) astutil.VisitorMap {
			mark := func(stmt *astutil.Path, note string) {
				if stmt == nil {
					return
				}
				cc, ok := commented(stmt.Node)
				if !ok {
					return
				}
				for _, existing := range cc.Leading {
					if existing == note {
						return
					}
				}
				cc.AddLeading(note)
				r.mark()
			}
			return astutil.VisitorMap{
				"DebuggerStatement": astutil.NodeVisitor{
					Enter: func(p *astutil.Path) {
						mark(p, "TOLOOK: debugger statement")
					},
				},
				"CallExpression": astutil.NodeVisitor{
					Enter: func(p *astutil.Path) {
						call := p.Node.(*jsast.CallExpression)
						if id, ok := call.Callee.(*jsast.Identifier); ok &&
							(id.Name == "setTimeout" || id.Name == "setInterval") {
							mark(StatementPath(p), "TOLOOK: "+id.Name+"() call")
						}
					},
				},
				"Identifier": astutil.NodeVisitor{
					Enter: func(p *astutil.Path) {
						matchKeyword(p, p.Node.(*jsast.Identifier).Name, lower, mark)
					},
				},
				"Literal": astutil.NodeVisitor{
					Enter: func(p *astutil.Path) {
						if s, ok := p.Node.(*jsast.Literal).Value.(string); ok {
							matchKeyword(p, s, lower, mark)
						}
					},
				},
			}
		},
	}
}

func matchKeyword(p *astutil.Path, text string, keywords []string, mark func(*astutil.Path, string)) {
	lowerText := strings.ToLower(text)
	for _, k := range keywords {
		if k != "" && strings.Contains(lowerText, k) {
			mark(StatementPath(p), "TOLOOK: matches keyword "+k)
			return
		}
	}
}

// commented extracts the *Comments embedded in any statement kind, so
// CommentMarker doesn't need a type switch over all of them.
func commented(n jsast.Node) (*jsast.Comments, bool) {
	switch x := n.(type) {
	case *jsast.ExpressionStatement:
		return &x.Comments, true
	case *jsast.BlockStatement:
		return &x.Comments, true
	case *jsast.VariableDeclaration:
		return &x.Comments, true
	case *jsast.FunctionDeclaration:
		return &x.Comments, true
	case *jsast.ReturnStatement:
		return &x.Comments, true
	case *jsast.IfStatement:
		return &x.Comments, true
	case *jsast.ForStatement:
		return &x.Comments, true
	case *jsast.ForInStatement:
		return &x.Comments, true
	case *jsast.WhileStatement:
		return &x.Comments, true
	case *jsast.DoWhileStatement:
		return &x.Comments, true
	case *jsast.SwitchStatement:
		return &x.Comments, true
	case *jsast.ThrowStatement:
		return &x.Comments, true
	case *jsast.TryStatement:
		return &x.Comments, true
	case *jsast.LabeledStatement:
		return &x.Comments, true
	case *jsast.EmptyStatement:
		return &x.Comments, true
	case *jsast.DebuggerStatement:
		return &x.Comments, true
	case *jsast.BreakStatement:
		return &x.Comments, true
	case *jsast.ContinueStatement:
		return &x.Comments, true
	}
	return nil, false
}

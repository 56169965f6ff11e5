// Package decoder implements the string-array decoder subsystem: it
// locates the obfuscator's encoded string table and decoder function(s),
// evaluates them in a sandbox against the call sites that use them, and
// substitutes the results back into the tree as string literals.
package decoder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jsdeobf/jsdeobf/astutil"
	"github.com/jsdeobf/jsdeobf/errs"
	"github.com/jsdeobf/jsdeobf/jsast"
)

// Options configures decoder detection. Mirrors the tunables spec.md's
// entry point exposes as callCountThreshold and arraySizeThreshold; the
// sandbox timeout is set on the Sandbox itself, not here.
type Options struct {
	CallCountThreshold int
	ArraySizeThreshold int
	RefThreshold       int
	Decoders           []string // user-forced decoder names, spec.md §4.5 "designated decoder"
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{CallCountThreshold: 100, ArraySizeThreshold: 100, RefThreshold: 10}
}

// DecryptFnSet is the result of a successful locate pass: the set of
// function names classified as decoders and the source prefix ("setup
// code") that must run before any decoder call can be evaluated.
type DecryptFnSet struct {
	Decoders  map[string]bool
	SetupCode string
}

// Locate tries the call-count strategy first, then the big-array
// strategy, returning the first that succeeds — spec.md §4.5's "two
// location strategies, tried in order". A program-level function named
// in opts.Decoders counts as a decoder in the call-count strategy
// whatever its reference count.
func Locate(prog *jsast.Program, opts Options) (*DecryptFnSet, bool) {
	if fnset, ok := locateByCallCount(prog, opts.CallCountThreshold, opts.Decoders); ok {
		return fnset, true
	}
	return locateByBigArray(prog, opts.ArraySizeThreshold, opts.RefThreshold)
}

// rootScope builds (and discards everything but) the scope tree for
// prog, so callers can ask arbitrary program-level bindings how many
// times they were referenced.
func rootScope(prog *jsast.Program) *astutil.Scope {
	return astutil.Traverse(prog, astutil.VisitorMap{}, astutil.Options{}, nil).Scope
}

// setupThrough renders every top-level statement from the start of the
// program up to and including index n.
func setupThrough(prog *jsast.Program, n int) string {
	var b strings.Builder
	for i := 0; i <= n && i < len(prog.Body); i++ {
		b.WriteString(jsast.Generate(prog.Body[i], jsast.PrintOptions{Compact: true}))
		b.WriteString("\n")
	}
	return b.String()
}

func locateByCallCount(prog *jsast.Program, threshold int, forced []string) (*DecryptFnSet, bool) {
	scope := rootScope(prog)
	lastIdx := -1
	decoders := map[string]bool{}
	isForced := map[string]bool{}
	for _, name := range forced {
		isForced[name] = true
	}
	for i, s := range prog.Body {
		fd, ok := s.(*jsast.FunctionDeclaration)
		if !ok || fd.Id == nil {
			continue
		}
		b := scope.GetOwnBinding(fd.Id.Name)
		if b == nil {
			continue
		}
		refs := len(b.ReferencePaths) + len(b.ConstantViolations)
		if refs >= threshold || isForced[fd.Id.Name] {
			decoders[fd.Id.Name] = true
			lastIdx = i
		}
	}
	if lastIdx < 0 {
		return nil, false
	}
	return &DecryptFnSet{Decoders: decoders, SetupCode: setupThrough(prog, lastIdx)}, true
}

// locateByBigArray implements the second strategy: find a top-level
// array literal of at least arraySize elements whose binding is rarely
// referenced (<refThreshold), then classify each of its references as
// pointing at the decoder (used as a MemberExpression object) or a
// rotator (used as a call argument). Restricted to program-level array
// declarations — a deliberate simplification of "the enclosing
// declaration" for arrays nested inside other functions, documented in
// DESIGN.md.
func locateByBigArray(prog *jsast.Program, arraySize, refThreshold int) (*DecryptFnSet, bool) {
	scope := rootScope(prog)
	for i, s := range prog.Body {
		decl, ok := s.(*jsast.VariableDeclaration)
		if !ok || len(decl.Declarations) != 1 {
			continue
		}
		d := decl.Declarations[0]
		arr, ok := d.Init.(*jsast.ArrayExpression)
		if !ok || len(arr.Elements) < arraySize {
			continue
		}
		b := scope.GetOwnBinding(d.Id.Name)
		if b == nil {
			continue
		}
		allRefs := append(append([]astutil.Ref{}, b.ReferencePaths...), b.ConstantViolations...)
		if len(allRefs) == 0 || len(allRefs) >= refThreshold {
			continue
		}
		decoders := map[string]bool{}
		lastIdx := i
		for _, ref := range allRefs {
			parent := ref.Path.Parent
			if parent == nil {
				continue
			}
			switch pn := parent.Node.(type) {
			case *jsast.MemberExpression:
				if pn.Object != jsast.Expression(ref.Node) {
					continue
				}
				if fd, idx, ok := enclosingTopLevelFunction(prog, ref.Path); ok {
					decoders[fd.Id.Name] = true
					if idx > lastIdx {
						lastIdx = idx
					}
				}
			case *jsast.CallExpression:
				if idx, ok := enclosingTopLevelIndex(prog, ref.Path); ok && idx > lastIdx {
					lastIdx = idx
				}
			}
		}
		if len(decoders) == 0 {
			continue
		}
		return &DecryptFnSet{Decoders: decoders, SetupCode: setupThrough(prog, lastIdx)}, true
	}
	return nil, false
}

// enclosingTopLevelIndex walks p's parent chain up to the statement
// directly under the program and returns its index in prog.Body.
func enclosingTopLevelIndex(prog *jsast.Program, p *astutil.Path) (int, bool) {
	for p.Parent != nil && p.Parent.Parent != nil {
		p = p.Parent
	}
	for i, s := range prog.Body {
		if s == p.Node {
			return i, true
		}
	}
	return 0, false
}

// enclosingTopLevelFunction finds the nearest FunctionDeclaration
// ancestor of p, at any nesting depth, and returns it with the index in
// prog.Body of the top-level statement that contains it.
func enclosingTopLevelFunction(prog *jsast.Program, p *astutil.Path) (*jsast.FunctionDeclaration, int, bool) {
	for cur := p; cur != nil; cur = cur.Parent {
		if fd, ok := cur.Node.(*jsast.FunctionDeclaration); ok {
			if idx, ok := enclosingTopLevelIndex(prog, cur); ok {
				return fd, idx, true
			}
		}
	}
	return nil, 0, false
}

// CallSite pairs a decoder call with the cursor that can replace it.
type CallSite struct {
	Path *astutil.Path
	Call *jsast.CallExpression
}

// CollectCallSites finds every CallExpression whose callee is a name in
// fnset.Decoders and whose arguments are all literals — the "source call
// sites whose arguments are all constant" spec.md §4.5 hands to the
// sandboxed executor.
func CollectCallSites(prog *jsast.Program, fnset *DecryptFnSet) []CallSite {
	var sites []CallSite
	astutil.Traverse(prog, astutil.VisitorMap{
		"CallExpression": astutil.NodeVisitor{
			Enter: func(p *astutil.Path) {
				call := p.Node.(*jsast.CallExpression)
				id, ok := call.Callee.(*jsast.Identifier)
				if !ok || !fnset.Decoders[id.Name] {
					return
				}
				for _, a := range call.Arguments {
					if _, ok := a.(*jsast.Literal); !ok {
						return
					}
				}
				sites = append(sites, CallSite{Path: p, Call: call})
			},
		},
	}, astutil.Options{NoScope: true}, nil)
	return sites
}

// Execute evaluates every collected call site in one sandboxed batch and
// substitutes the literal result at each site. A site whose result can't
// be evaluated or decoded is left in place, with a leading diagnostic
// comment on its statement as annotateFailure describes, instead of
// aborting the batch — spec.md §7's DecodeError
// recovery. src and file are used only to render the DecodeError
// position of a failed site; changes counts only successful
// substitutions, per spec.md §4.5.
func Execute(prog *jsast.Program, fnset *DecryptFnSet, sb Sandbox, src, file string) (changes int, failures []*errs.DecodeError) {
	sites := CollectCallSites(prog, fnset)
	if len(sites) == 0 {
		return 0, nil
	}
	exprs := make([]string, len(sites))
	for i, s := range sites {
		exprs[i] = jsast.Generate(s.Call, jsast.PrintOptions{Compact: true})
	}
	wrapper := fmt.Sprintf("(function(){\n%sreturn [%s];\n})()", fnset.SetupCode, strings.Join(exprs, ", "))
	raw, runErr := sb.Evaluate(wrapper)
	if runErr != nil {
		for _, s := range sites {
			failures = append(failures, annotateFailure(s, src, file, runErr))
		}
		return 0, failures
	}
	results, ok := raw.([]interface{})
	if !ok {
		for _, s := range sites {
			failures = append(failures, annotateFailure(s, src, file, fmt.Errorf("sandbox returned non-array result")))
		}
		return 0, failures
	}
	for i, s := range sites {
		if i >= len(results) {
			failures = append(failures, annotateFailure(s, src, file, fmt.Errorf("missing result")))
			continue
		}
		lit, ok := toLiteral(results[i])
		if !ok {
			failures = append(failures, annotateFailure(s, src, file, fmt.Errorf("unsupported result type %T", results[i])))
			continue
		}
		s.Path.ReplaceWith(lit)
		changes++
	}
	return changes, failures
}

func toLiteral(v interface{}) (*jsast.Literal, bool) {
	switch x := v.(type) {
	case string:
		return &jsast.Literal{Value: x, Raw: strconv.Quote(x)}, true
	case float64:
		return &jsast.Literal{Value: x, Raw: strconv.FormatFloat(x, 'g', -1, 64)}, true
	case int64:
		f := float64(x)
		return &jsast.Literal{Value: f, Raw: strconv.FormatInt(x, 10)}, true
	case bool:
		raw := "false"
		if x {
			raw = "true"
		}
		return &jsast.Literal{Value: x, Raw: raw}, true
	case nil:
		return &jsast.Literal{Value: nil, Raw: "null"}, true
	}
	return nil, false
}

// annotateFailure tags the call site's enclosing statement with a leading
// "decrypt failed" comment when that statement is an expression
// statement, a variable declaration or a return statement (a call under
// any other statement kind gets no comment), and returns a DecodeError
// describing what went wrong, for the caller to surface as a diagnostic.
func annotateFailure(s CallSite, src, file string, cause error) *errs.DecodeError {
	callText := jsast.Generate(s.Call, jsast.PrintOptions{Compact: true})
	line, col := errs.LineCol(src, int(s.Call.Position()))
	de := errs.NewDecodeError(file, line, col, callText, "%v", cause)

	stmtPath := s.Path
	for stmtPath.Parent != nil {
		if _, ok := stmtPath.Node.(jsast.Statement); ok {
			break
		}
		stmtPath = stmtPath.Parent
	}
	var cc *jsast.Comments
	switch st := stmtPath.Node.(type) {
	case *jsast.ExpressionStatement:
		cc = &st.Comments
	case *jsast.VariableDeclaration:
		cc = &st.Comments
	case *jsast.ReturnStatement:
		cc = &st.Comments
	default:
		return de
	}
	note := "decrypt failed: " + cause.Error()
	for _, c := range cc.Leading {
		if c == note {
			return de
		}
	}
	cc.AddLeading(note)
	return de
}

package transform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jsdeobf/jsdeobf/astutil"
	"github.com/jsdeobf/jsdeobf/jsast"
)

// BinaryEvaluator folds a binary expression whose operands are both
// literals into the literal result, e.g. `1+2` -> `3`, `"a"+"b"` ->
// `"ab"`. Operators it doesn't understand are left alone.
var BinaryEvaluator = Transform{
	Name: "binary-evaluator",
	Build: func(r *Run) astutil.VisitorMap {
		return astutil.VisitorMap{
			"BinaryExpression": astutil.NodeVisitor{
				Enter: func(p *astutil.Path) {
					b := p.Node.(*jsast.BinaryExpression)
					lit, ok := evalBinary(b)
					if !ok {
						return
					}
					p.ReplaceWith(lit)
				},
			},
		}
	},
}

func evalBinary(b *jsast.BinaryExpression) (*jsast.Literal, bool) {
	l, lok := b.Left.(*jsast.Literal)
	rl, rok := b.Right.(*jsast.Literal)
	if !lok || !rok {
		return nil, false
	}
	switch b.Operator {
	case "+":
		if ls, ok := l.Value.(string); ok {
			return strLit(ls + toJSString(rl.Value)), true
		}
		if rs, ok := rl.Value.(string); ok {
			return strLit(toJSString(l.Value) + rs), true
		}
		ln, lok2 := toNumber(l.Value)
		rn, rok2 := toNumber(rl.Value)
		if lok2 && rok2 {
			return numLit(ln + rn), true
		}
	case "-", "*", "/", "%":
		ln, lok2 := toNumber(l.Value)
		rn, rok2 := toNumber(rl.Value)
		if !lok2 || !rok2 {
			return nil, false
		}
		switch b.Operator {
		case "-":
			return numLit(ln - rn), true
		case "*":
			return numLit(ln * rn), true
		case "/":
			if rn == 0 {
				return nil, false
			}
			return numLit(ln / rn), true
		case "%":
			if rn == 0 {
				return nil, false
			}
			return numLit(float64(int64(ln) % int64(rn))), true
		}
	case "==", "===":
		return boolLit(jsEqual(l.Value, rl.Value, b.Operator == "===")), true
	case "!=", "!==":
		return boolLit(!jsEqual(l.Value, rl.Value, b.Operator == "!==")), true
	case "<", "<=", ">", ">=":
		ln, lok2 := toNumber(l.Value)
		rn, rok2 := toNumber(rl.Value)
		if !lok2 || !rok2 {
			return nil, false
		}
		switch b.Operator {
		case "<":
			return boolLit(ln < rn), true
		case "<=":
			return boolLit(ln <= rn), true
		case ">":
			return boolLit(ln > rn), true
		case ">=":
			return boolLit(ln >= rn), true
		}
	case "&", "|", "^", "<<", ">>":
		ln, lok2 := toNumber(l.Value)
		rn, rok2 := toNumber(rl.Value)
		if !lok2 || !rok2 {
			return nil, false
		}
		li, ri := int64(ln), int64(rn)
		switch b.Operator {
		case "&":
			return numLit(float64(li & ri)), true
		case "|":
			return numLit(float64(li | ri)), true
		case "^":
			return numLit(float64(li ^ ri)), true
		case "<<":
			return numLit(float64(li << uint(ri))), true
		case ">>":
			return numLit(float64(li >> uint(ri))), true
		}
	}
	return nil, false
}

func jsEqual(a, b interface{}, strict bool) bool {
	if strict {
		return a == b
	}
	an, aok := toNumber(a)
	bn, bok := toNumber(b)
	if aok && bok {
		return an == bn
	}
	return a == b
}

func toNumber(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case nil:
		return 0, true
	}
	return 0, false
}

func toJSString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return formatNumber(x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case nil:
		return "null"
	}
	return fmt.Sprint(v)
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func strLit(s string) *jsast.Literal  { return &jsast.Literal{Value: s, Raw: strconv.Quote(s)} }
func numLit(f float64) *jsast.Literal { return &jsast.Literal{Value: f, Raw: formatNumber(f)} }
func boolLit(b bool) *jsast.Literal {
	if b {
		return &jsast.Literal{Value: true, Raw: "true"}
	}
	return &jsast.Literal{Value: false, Raw: "false"}
}

// BooleanLiteralFolder collapses the `![]`/`!![]`-style boolean idioms
// obfuscators favor (an array, object, or function literal is always
// truthy) and negations of boolean literals, both down to a plain `true`
// or `false`.
var BooleanLiteralFolder = Transform{
	Name: "boolean-literal-folder",
	Build: func(r *Run) astutil.VisitorMap {
		return astutil.VisitorMap{
			"UnaryExpression": astutil.NodeVisitor{
				Enter: func(p *astutil.Path) {
					u := p.Node.(*jsast.UnaryExpression)
					if u.Operator != "!" {
						return
					}
					switch arg := u.Argument.(type) {
					case *jsast.ArrayExpression, *jsast.ObjectExpression, *jsast.FunctionExpression:
						p.ReplaceWith(boolLit(false))
					case *jsast.Literal:
						if b, ok := arg.Value.(bool); ok {
							p.ReplaceWith(boolLit(!b))
						}
					}
				},
			},
		}
	},
}

// TypeofFolder evaluates `typeof` applied to a literal-shaped operand,
// since obfuscated control-flow guards frequently test
// `typeof x !== "undefined"` against operands whose type is already
// statically known from the rest of the rewrite.
var TypeofFolder = Transform{
	Name: "typeof-folder",
	Build: func(r *Run) astutil.VisitorMap {
		return astutil.VisitorMap{
			"UnaryExpression": astutil.NodeVisitor{
				Enter: func(p *astutil.Path) {
					u := p.Node.(*jsast.UnaryExpression)
					if u.Operator != "typeof" {
						return
					}
					var t string
					switch arg := u.Argument.(type) {
					case *jsast.Literal:
						switch arg.Value.(type) {
						case string:
							t = "string"
						case float64:
							t = "number"
						case bool:
							t = "boolean"
						case nil:
							t = "object"
						default:
							return
						}
					case *jsast.ArrayExpression, *jsast.ObjectExpression:
						t = "object"
					case *jsast.FunctionExpression:
						t = "function"
					default:
						return
					}
					p.ReplaceWith(strLit(t))
				},
			},
		}
	},
}

// StringHexCanonicalizer normalizes every literal's Raw text to a single
// canonical spelling — hex integer literals become decimal, strings
// become double-quoted with Go's standard escaping — so later rules (and
// repeated runs of the whole pipeline) see one spelling regardless of how
// the obfuscator originally wrote it.
var StringHexCanonicalizer = Transform{
	Name: "string-hex-canonicalizer",
	Build: func(r *Run) astutil.VisitorMap {
		return astutil.VisitorMap{
			"Literal": astutil.NodeVisitor{
				Enter: func(p *astutil.Path) {
					l := p.Node.(*jsast.Literal)
					var canon string
					switch v := l.Value.(type) {
					case string:
						canon = strconv.Quote(v)
					case float64:
						canon = formatNumber(v)
					case bool:
						canon = toJSString(v)
					case nil:
						canon = "null"
					default:
						return
					}
					if canon != l.Raw {
						l.Raw = canon
						r.mark()
					}
				},
			},
		}
	},
}

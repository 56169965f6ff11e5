package jsast_test

import (
	"testing"

	"github.com/jsdeobf/jsdeobf/jsast"
)

func TestGenerateCompact(t *testing.T) {
	tests := []struct {
		name string
		prog *jsast.Program
		want string
	}{
		{
			name: "var declaration",
			prog: &jsast.Program{Body: []jsast.Statement{
				&jsast.VariableDeclaration{Kind: "var", Declarations: []*jsast.VariableDeclarator{
					{Id: &jsast.Identifier{Name: "a"}, Init: &jsast.Literal{Value: 1.0, Raw: "1"}},
				}},
			}},
			want: `var a=1;`,
		},
		{
			name: "for statement",
			prog: &jsast.Program{Body: []jsast.Statement{
				&jsast.ForStatement{
					Init:   &jsast.UnaryExpression{Operator: "void", Prefix: true, Argument: &jsast.Literal{Value: 0.0, Raw: "0"}},
					Test:   nil,
					Update: nil,
					Body:   &jsast.BlockStatement{Body: []jsast.Statement{&jsast.BreakStatement{}}},
				},
			}},
			want: `for(void 0;;){break;}`,
		},
		{
			name: "member call",
			prog: &jsast.Program{Body: []jsast.Statement{
				&jsast.ExpressionStatement{Expr: &jsast.CallExpression{
					Callee: &jsast.MemberExpression{
						Object:   &jsast.Identifier{Name: "console"},
						Property: &jsast.Identifier{Name: "log"},
						Computed: false,
					},
					Arguments: []jsast.Expression{&jsast.Literal{Value: "hi", Raw: `"hi"`}},
				}},
			}},
			want: `console.log("hi");`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := jsast.Generate(tc.prog, jsast.PrintOptions{Compact: true})
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestGenerateNonCompactIndents(t *testing.T) {
	prog := &jsast.Program{Body: []jsast.Statement{
		&jsast.IfStatement{
			Test: &jsast.Identifier{Name: "a"},
			Consequent: &jsast.BlockStatement{Body: []jsast.Statement{
				&jsast.ExpressionStatement{Expr: &jsast.Identifier{Name: "b"}},
			}},
		},
	}}
	got := jsast.Generate(prog, jsast.PrintOptions{})
	want := "if(a){\n  b;\n}\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

package jsparse_test

import (
	"strings"
	"testing"

	"github.com/jsdeobf/jsdeobf/jsast"
	"github.com/jsdeobf/jsdeobf/jsparse"
)

// parse is a small helper most cases below share: parse src and fail the
// test immediately on a parse error.
func parse(t *testing.T, src string) *jsast.Program {
	t.Helper()
	prog, err := jsparse.Parse("t.js", src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return prog
}

// roundtrip confirms src parses and reprints (compact) to want, exercising
// the parser and the printer together the same way the rewrite library's
// own scenario tests do.
func roundtrip(t *testing.T, src, want string) {
	t.Helper()
	prog := parse(t, src)
	got := jsast.Generate(prog, jsast.PrintOptions{Compact: true})
	if got != want {
		t.Errorf("parse(%q) printed %q, want %q", src, got, want)
	}
}

func TestParseStatements(t *testing.T) {
	tests := []struct{ src, want string }{
		{`var a = 1, b = 2;`, `var a=1, b=2;`},
		{`let x;`, `let x;`},
		{`function f(a, b) { return a + b; }`, `function f(a, b) {return a+b;}`},
		{`if (a) b(); else c();`, `if(a)b();else c();`},
		{`for (var i = 0; i < 10; i++) { x(); }`, `for(var i=0;i<10;i++){x();}`},
		{`for (k in obj) { use(k); }`, `for(k in obj){use(k);}`},
		{`while (a) { b(); }`, `while(a){b();}`},
		{`do { b(); } while (a);`, `do{b();}while(a);`},
		{`switch (x) { case 1: a(); break; default: b(); }`,
			`switch(x){case 1:a();break;default:b();}`},
		{`try { a(); } catch (e) { b(); } finally { c(); }`,
			`try{a();}catch(e){b();}finally{c();}`},
		{`outer: for (;;) { break outer; }`, `outer: for(;;){break outer;}`},
		{`debugger;`, `debugger;`},
		{`;`, `;`},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			roundtrip(t, tc.src, tc.want)
		})
	}
}

func TestParseExpressionPrecedence(t *testing.T) {
	tests := []struct{ src, want string }{
		{`a = 1 + 2 * 3;`, `a=1+2*3;`},
		{`a = (1 + 2) * 3;`, `a=(1+2)*3;`},
		{`a = b && c || d;`, `a=b&&c||d;`},
		{`a = x ? 1 : 2;`, `a=x?1:2;`},
		{`a = -b;`, `a=-b;`},
		{`a = !b;`, `a=!b;`},
		{`a = typeof b;`, `a=typeof b;`},
		{`a = void 0;`, `a=void 0;`},
		{`a = b++;`, `a=b++;`},
		{`a = ++b;`, `a=++b;`},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			roundtrip(t, tc.src, tc.want)
		})
	}
}

func TestParseMemberAndCallChains(t *testing.T) {
	tests := []struct{ src, want string }{
		{`a.b.c();`, `a.b.c();`},
		{`a["b"][c];`, `a["b"][c];`},
		{`new Foo(1, 2).bar();`, `new Foo(1,2).bar();`},
		{`(1, 2, 3);`, `1,2,3;`},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			roundtrip(t, tc.src, tc.want)
		})
	}
}

func TestParseArrayAndObjectLiterals(t *testing.T) {
	prog := parse(t, `var a = [1, , 3]; var b = {x: 1, "y": 2, [z]: 3};`)
	decl1 := prog.Body[0].(*jsast.VariableDeclaration)
	arr := decl1.Declarations[0].Init.(*jsast.ArrayExpression)
	if len(arr.Elements) != 3 || arr.Elements[1] != nil {
		t.Fatalf("expected a hole at index 1, got %#v", arr.Elements)
	}

	decl2 := prog.Body[1].(*jsast.VariableDeclaration)
	obj := decl2.Declarations[0].Init.(*jsast.ObjectExpression)
	if len(obj.Properties) != 3 {
		t.Fatalf("expected 3 properties, got %d", len(obj.Properties))
	}
	if id, ok := obj.Properties[0].Key.(*jsast.Identifier); !ok || id.Name != "x" {
		t.Errorf("expected an unquoted identifier key, got %#v", obj.Properties[0].Key)
	}
	if lit, ok := obj.Properties[1].Key.(*jsast.Literal); !ok || lit.Value != "y" {
		t.Errorf("expected a string key \"y\", got %#v", obj.Properties[1].Key)
	}
	if !obj.Properties[2].Computed {
		t.Errorf("expected the [z] key to be marked computed")
	}
}

func TestParseNumberLiterals(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{`0x1A`, 26},
		{`10`, 10},
		{`3.5`, 3.5},
	}
	for _, tc := range tests {
		prog := parse(t, tc.src+";")
		lit := prog.Body[0].(*jsast.ExpressionStatement).Expr.(*jsast.Literal)
		if lit.Value != tc.want {
			t.Errorf("parse(%q) = %v, want %v", tc.src, lit.Value, tc.want)
		}
	}
}

func TestParseStringEscapes(t *testing.T) {
	prog := parse(t, `"a\nb";`)
	lit := prog.Body[0].(*jsast.ExpressionStatement).Expr.(*jsast.Literal)
	if lit.Value != "a\nb" {
		t.Errorf("got %q, want %q", lit.Value, "a\nb")
	}
}

func TestParseErrorReportsPosition(t *testing.T) {
	_, err := jsparse.Parse("t.js", "var a = ;")
	if err == nil {
		t.Fatal("expected a parse error")
	}
	pe, ok := err.(*jsparse.ParseError)
	if !ok {
		t.Fatalf("expected a *ParseError, got %T", err)
	}
	if pe.Line != 1 {
		t.Errorf("expected the error on line 1, got %d", pe.Line)
	}
	if !strings.Contains(pe.Error(), "t.js") {
		t.Errorf("expected the error to name the source, got %q", pe.Error())
	}
}

func TestParseLabeledStatementDisambiguation(t *testing.T) {
	// "foo: bar();" is a labeled statement, not an expression statement
	// containing a conditional-looking identifier pair.
	prog := parse(t, `foo: bar();`)
	label, ok := prog.Body[0].(*jsast.LabeledStatement)
	if !ok {
		t.Fatalf("expected a labeled statement, got %T", prog.Body[0])
	}
	if label.Label.Name != "foo" {
		t.Errorf("got label %q, want foo", label.Label.Name)
	}
}

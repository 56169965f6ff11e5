package match_test

import (
	"testing"

	"github.com/jsdeobf/jsdeobf/jsast"
	"github.com/jsdeobf/jsdeobf/jsparse"
	"github.com/jsdeobf/jsdeobf/match"
)

func expr(t *testing.T, src string) jsast.Expression {
	t.Helper()
	prog, err := jsparse.Parse("t.js", src+";")
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	es, ok := prog.Body[0].(*jsast.ExpressionStatement)
	if !ok {
		t.Fatalf("expected an expression statement, got %T", prog.Body[0])
	}
	return es.Expr
}

func TestLiteralMatcher(t *testing.T) {
	n := expr(t, `"hello"`)
	if _, ok := match.Match(n, match.Literal("hello")); !ok {
		t.Error("expected an exact string literal to match")
	}
	if _, ok := match.Match(n, match.Literal("other")); ok {
		t.Error("expected a different string value to not match")
	}
	if _, ok := match.Match(n, match.Literal(nil)); !ok {
		t.Error("expected a nil value to match any literal")
	}
}

func TestIdentifierCapture(t *testing.T) {
	n := expr(t, `foo`)
	c, ok := match.Match(n, match.Capture("name", match.Identifier("")))
	if !ok {
		t.Fatal("expected identifier to match")
	}
	id, ok := c["name"].(*jsast.Identifier)
	if !ok || id.Name != "foo" {
		t.Errorf("expected capture \"name\" to be identifier foo, got %#v", c["name"])
	}
}

func TestMemberExpressionMatcher(t *testing.T) {
	n := expr(t, `r.k`)
	m := match.MemberExpression(match.Identifier("r"), match.Identifier("k"), false)
	if _, ok := match.Match(n, m); !ok {
		t.Error("expected r.k to match a non-computed member expression")
	}
	computed := expr(t, `r["k"]`)
	if _, ok := match.Match(computed, m); ok {
		t.Error("expected r[\"k\"] to not match the non-computed matcher")
	}
}

func TestCallExpressionMatcher(t *testing.T) {
	n := expr(t, `d(1, "x")`)
	m := match.CallExpression(match.Identifier("d"), []match.Matcher{match.Literal(1.0), match.Literal("x")})
	if _, ok := match.Match(n, m); !ok {
		t.Error("expected d(1, \"x\") to match")
	}
	wrongArgs := match.CallExpression(match.Identifier("d"), []match.Matcher{match.Literal(1.0)})
	if _, ok := match.Match(n, wrongArgs); ok {
		t.Error("expected an argument-count mismatch to fail")
	}
}

func TestBinaryExpressionMatcher(t *testing.T) {
	n := expr(t, `1 + 2`)
	m := match.BinaryExpression("+", match.Literal(1.0), match.Literal(2.0))
	if _, ok := match.Match(n, m); !ok {
		t.Error("expected 1 + 2 to match")
	}
	if _, ok := match.Match(n, match.BinaryExpression("-", match.Anything(), match.Anything())); ok {
		t.Error("expected an operator mismatch to fail")
	}
}

func TestOrAndNot(t *testing.T) {
	n := expr(t, `42`)
	if _, ok := match.Match(n, match.Or(match.Identifier(""), match.Literal(42.0))); !ok {
		t.Error("expected Or to succeed when the second alternative matches")
	}
	if _, ok := match.Match(n, match.And(match.Literal(nil), match.Literal(42.0))); !ok {
		t.Error("expected And to succeed when every matcher matches")
	}
	if _, ok := match.Match(n, match.And(match.Literal(nil), match.Literal(43.0))); ok {
		t.Error("expected And to fail when any matcher fails")
	}
	if _, ok := match.Match(n, match.Not(match.Identifier(""))); !ok {
		t.Error("expected Not to succeed when inner doesn't match")
	}
	if _, ok := match.Match(n, match.Not(match.Literal(42.0))); ok {
		t.Error("expected Not to fail when inner matches")
	}
}

func TestSequenceAndArrayExpression(t *testing.T) {
	seq := expr(t, `(1, 2, 3)`)
	m := match.SequenceExpression([]match.Matcher{match.Literal(1.0), match.Literal(2.0), match.Literal(3.0)})
	if _, ok := match.Match(seq, m); !ok {
		t.Error("expected sequence expression to match element-wise")
	}

	arr := expr(t, `[1, 2]`)
	am := match.ArrayExpression([]match.Matcher{match.Literal(1.0), match.Literal(2.0)})
	if _, ok := match.Match(arr, am); !ok {
		t.Error("expected array expression to match element-wise")
	}
}

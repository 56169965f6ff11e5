package decoder_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jsdeobf/jsdeobf/decoder"
	"github.com/jsdeobf/jsdeobf/jsast"
	"github.com/jsdeobf/jsdeobf/jsparse"
)

const callCountSrc = `function _0x1a(i) { return ["foo", "bar", "baz"][i]; }
var a = _0x1a(0);
var b = _0x1a(1);
var c = _0x1a(2);
console.log(a, b, c);
`

func parse(t *testing.T, src string) *jsast.Program {
	t.Helper()
	prog, err := jsparse.Parse("t.js", src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return prog
}

func TestLocateByCallCount(t *testing.T) {
	prog := parse(t, callCountSrc)
	fnset, ok := decoder.Locate(prog, decoder.Options{CallCountThreshold: 3, ArraySizeThreshold: 100, RefThreshold: 10})
	if !ok {
		t.Fatal("expected a decoder set to be located")
	}
	if !fnset.Decoders["_0x1a"] {
		t.Errorf("expected _0x1a classified as a decoder, got %v", fnset.Decoders)
	}
	if !strings.Contains(fnset.SetupCode, "_0x1a") {
		t.Errorf("expected setup code to include the decoder function, got %q", fnset.SetupCode)
	}
}

func TestLocateByCallCountNoMatch(t *testing.T) {
	prog := parse(t, callCountSrc)
	if _, ok := decoder.Locate(prog, decoder.Options{CallCountThreshold: 100, ArraySizeThreshold: 100, RefThreshold: 10}); ok {
		t.Fatal("expected no decoder set below threshold")
	}
}

func TestCollectCallSites(t *testing.T) {
	prog := parse(t, callCountSrc)
	fnset, ok := decoder.Locate(prog, decoder.Options{CallCountThreshold: 3, ArraySizeThreshold: 100, RefThreshold: 10})
	if !ok {
		t.Fatal("expected a decoder set")
	}
	sites := decoder.CollectCallSites(prog, fnset)
	if len(sites) != 3 {
		t.Fatalf("expected 3 call sites, got %d", len(sites))
	}
}

type fakeSandbox struct {
	result interface{}
	err    error
}

func (f *fakeSandbox) Evaluate(code string) (interface{}, error) {
	return f.result, f.err
}

func TestExecuteSubstitutesResults(t *testing.T) {
	prog := parse(t, callCountSrc)
	fnset, ok := decoder.Locate(prog, decoder.Options{CallCountThreshold: 3, ArraySizeThreshold: 100, RefThreshold: 10})
	if !ok {
		t.Fatal("expected a decoder set")
	}
	sb := &fakeSandbox{result: []interface{}{"foo", "bar", "baz"}}
	changes, failures := decoder.Execute(prog, fnset, sb, callCountSrc, "t.js")
	if changes != 3 {
		t.Fatalf("expected 3 substitutions, got %d (failures=%v)", changes, failures)
	}
	out := jsast.Generate(prog, jsast.PrintOptions{})
	for _, want := range []string{`"foo"`, `"bar"`, `"baz"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %s, got:\n%s", want, out)
		}
	}
}

func TestExecuteRecordsFailureWithoutAborting(t *testing.T) {
	prog := parse(t, callCountSrc)
	fnset, ok := decoder.Locate(prog, decoder.Options{CallCountThreshold: 3, ArraySizeThreshold: 100, RefThreshold: 10})
	if !ok {
		t.Fatal("expected a decoder set")
	}
	sb := &fakeSandbox{err: errors.New("boom")}
	changes, failures := decoder.Execute(prog, fnset, sb, callCountSrc, "t.js")
	if changes != 0 {
		t.Errorf("expected 0 substitutions on sandbox failure, got %d", changes)
	}
	if len(failures) != 3 {
		t.Fatalf("expected 3 recorded failures, got %d", len(failures))
	}
	out := jsast.Generate(prog, jsast.PrintOptions{})
	if !strings.Contains(out, "decrypt failed") {
		t.Errorf("expected a decrypt-failed comment in output, got:\n%s", out)
	}
}

func TestRenameDesignated(t *testing.T) {
	src := `function decoder(i) { return i; }
let alias = decoder;
console.log(alias(1));
`
	prog := parse(t, src)
	n := decoder.RenameDesignated(prog, []string{"decoder"})
	if n != 1 {
		t.Fatalf("expected 1 rename, got %d", n)
	}
	out := jsast.Generate(prog, jsast.PrintOptions{Compact: true})
	if strings.Contains(out, "alias") {
		t.Errorf("expected alias to be gone from output, got %q", out)
	}
	if diff := cmp.Diff(true, strings.Contains(out, "decoder(1)")); diff != "" {
		t.Errorf("expected call to use canonical name (-want +got):\n%s\noutput: %s", diff, out)
	}
}

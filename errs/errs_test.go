package errs_test

import (
	"errors"
	"testing"

	"github.com/jsdeobf/jsdeobf/errs"
)

func TestIs(t *testing.T) {
	var tests = []struct {
		name string
		in   error
		out  bool
	}{
		{name: "nil", out: false},
		{name: "errors.New", in: errors.New("an error"), out: false},
		{name: "InputError", in: errs.NewInputError("in.js", 1, 2, "unexpected token"), out: true},
		{name: "InternalError", in: errs.NewInternalError("in.js", 3, 4, "", "reparse failed"), out: true},
		{name: "DecodeError", in: errs.NewDecodeError("in.js", 5, 6, "_0x1(2)", "sandbox timeout"), out: true},
	}
	for _, test := range tests {
		if got := errs.Is(test.in); got != test.out {
			t.Errorf("%s: expected %v, got %v", test.name, test.out, got)
		}
	}
}

func TestTo(t *testing.T) {
	in := errs.NewInputError("in.js", 7, 3, "bad token %q", "@")
	got := errs.To(in)
	if got == nil {
		t.Fatal("expected non-nil FilePos")
	}
	if got.File() != "in.js" || got.Line() != 7 || got.Col() != 3 {
		t.Errorf("got file=%s line=%d col=%d", got.File(), got.Line(), got.Col())
	}
	if errs.To(nil) != nil {
		t.Errorf("expected nil for nil error")
	}
	if errs.To(errors.New("plain")) != nil {
		t.Errorf("expected nil for a plain error")
	}
}

func TestLineCol(t *testing.T) {
	src := "var a = 1;\nvar b = 2;\nvar c = 3;"
	var tests = []struct {
		offset   int
		wantLine int
		wantCol  int
	}{
		{0, 1, 1},
		{4, 1, 5},
		{11, 2, 1},
		{15, 2, 5},
		{1000, 3, 11},
	}
	for _, test := range tests {
		line, col := errs.LineCol(src, test.offset)
		if line != test.wantLine || col != test.wantCol {
			t.Errorf("offset %d: got line=%d col=%d, want line=%d col=%d", test.offset, line, col, test.wantLine, test.wantCol)
		}
	}
}

func TestCodeFrame(t *testing.T) {
	src := "var a = 1;\nvar _0x1 = 2;\n"
	frame := errs.CodeFrame(src, 2, 5)
	if frame == "" {
		t.Fatal("expected non-empty frame")
	}
	if !contains(frame, "_0x1") {
		t.Errorf("expected frame to include offending line, got %q", frame)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}

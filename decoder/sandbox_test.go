package decoder_test

import (
	"testing"
	"time"

	"github.com/jsdeobf/jsdeobf/decoder"
)

func TestOttoSandboxEvaluate(t *testing.T) {
	sb := decoder.NewOttoSandbox(time.Second)
	result, err := sb.Evaluate(`(function(){ return ["a", "b"]; })()`)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	vals, ok := result.([]interface{})
	if !ok || len(vals) != 2 {
		t.Fatalf("expected a 2-element slice, got %#v", result)
	}
	if vals[0] != "a" || vals[1] != "b" {
		t.Errorf("got %#v", vals)
	}
}

func TestOttoSandboxTimeout(t *testing.T) {
	sb := decoder.NewOttoSandbox(20 * time.Millisecond)
	_, err := sb.Evaluate(`(function(){ while (true) {} })()`)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestOttoSandboxDefaultTimeout(t *testing.T) {
	sb := decoder.NewOttoSandbox(0)
	if sb.Timeout != decoder.DefaultTimeout {
		t.Errorf("expected default timeout %v, got %v", decoder.DefaultTimeout, sb.Timeout)
	}
}

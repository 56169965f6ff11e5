package decoder

import (
	"errors"
	"time"

	"github.com/robertkrimen/otto"
)

// Sandbox is the pluggable capability spec.md §6 requires: evaluate a
// string of JavaScript in an isolated environment with a timeout, no
// host access, and return the result by value.
type Sandbox interface {
	Evaluate(code string) (interface{}, error)
}

// DefaultTimeout is used when an OttoSandbox is constructed with a
// non-positive timeout.
const DefaultTimeout = 10 * time.Second

var errTimeout = errors.New("sandbox: evaluation timed out")

// OttoSandbox runs decoder setup code through the otto ES5 interpreter,
// the same engine the teacher's own test suite embeds
// (soyjs/soyjs_test.go's `otto.New()` / `vm.Run`) — generalized here from
// a test helper into the pipeline's production sandboxed executor. otto
// only implements ES5, so the wrapper this package builds around decoder
// calls always uses a `function` expression, never an arrow function.
type OttoSandbox struct {
	Timeout time.Duration
}

// NewOttoSandbox builds a sandbox with the given timeout, falling back
// to DefaultTimeout when timeout is zero or negative.
func NewOttoSandbox(timeout time.Duration) *OttoSandbox {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OttoSandbox{Timeout: timeout}
}

// Evaluate runs code to completion in a fresh otto VM, aborting it via
// otto's Interrupt channel if it runs past the configured timeout — the
// standard otto long-running-script idiom.
func (s *OttoSandbox) Evaluate(code string) (result interface{}, err error) {
	vm := otto.New()
	vm.Interrupt = make(chan func(), 1)

	defer func() {
		if caught := recover(); caught != nil {
			if caught == errTimeout {
				err = errTimeout
				return
			}
			panic(caught)
		}
	}()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-time.After(s.Timeout):
			vm.Interrupt <- func() { panic(errTimeout) }
		case <-done:
		}
	}()

	val, runErr := vm.Run(code)
	if runErr != nil {
		return nil, runErr
	}
	return val.Export()
}

// Package deobf is the top-level orchestrator spec.md §6 describes as
// `deobfuscate(code, options?) -> {code, changes}`: parse the source,
// resolve and evaluate the decoder subsystem, run the rewrite library to
// a fixed point, and print the result. cmd/jsdeobf is a thin CLI shell
// around this package, the same way the teacher's own soyweb command
// is a thin shell around Bundle.
package deobf

import (
	"log"
	"os"

	"github.com/jsdeobf/jsdeobf/decoder"
	"github.com/jsdeobf/jsdeobf/errs"
	"github.com/jsdeobf/jsdeobf/jsast"
	"github.com/jsdeobf/jsdeobf/jsparse"
	"github.com/jsdeobf/jsdeobf/transform"
)

// Logger receives warnings the pipeline can surface but can't treat as a
// hard failure, e.g. a configured decoder name that Locate never finds a
// use for. Mirrors the teacher's package-level Bundle.Logger.
var Logger = log.New(os.Stderr, "[jsdeobf] ", 0)

// Options configures one Deobfuscate call. Field names mirror spec.md
// §6's documented option set (decoders, sandbox, callCountThreshold,
// arraySizeThreshold, iterationCap, markKeywords).
type Options struct {
	// Decoders names decoder functions the caller already knows by
	// name, skipping the locate heuristics for them (spec.md §4.5's
	// "designated decoder").
	Decoders []string
	// Sandbox evaluates decoder calls. Nil skips locating and
	// evaluating decoder calls; designated-decoder renaming (Decoders)
	// and the rewrite library still run.
	Sandbox decoder.Sandbox
	// CallCountThreshold and ArraySizeThreshold tune the decoder
	// locator strategies; zero means "use the documented default".
	CallCountThreshold int
	ArraySizeThreshold int
	// IterationCap bounds the rewrite library's fixed-point loop; zero
	// means transform.DefaultMaxIterations.
	IterationCap int
	// MarkKeywords feeds the comment-marker transform's keyword list.
	MarkKeywords []string
}

// DefaultOptions returns the documented defaults: a 10s-timeout otto
// sandbox and the decoder/transform thresholds spec.md §6 lists.
func DefaultOptions() Options {
	return Options{
		Sandbox:            decoder.NewOttoSandbox(decoder.DefaultTimeout),
		CallCountThreshold: 100,
		ArraySizeThreshold: 100,
		IterationCap:       transform.DefaultMaxIterations,
	}
}

// Result is the pipeline's output: the rewritten source and how many
// edits were made across every stage.
type Result struct {
	Code    string
	Changes int
}

// Deobfuscate runs the full pipeline over code and returns the rewritten
// source. file names the source for error positions; it need not be a
// real path. A parse failure is reported as an *errs.InputError.
func Deobfuscate(file, code string, opts Options) (Result, error) {
	prog, err := jsparse.Parse(file, code)
	if err != nil {
		return Result{}, wrapParseError(file, code, err)
	}

	changes := decoder.RenameDesignated(prog, opts.Decoders)

	if opts.Sandbox != nil {
		dopts := decoder.DefaultOptions()
		if opts.CallCountThreshold > 0 {
			dopts.CallCountThreshold = opts.CallCountThreshold
		}
		if opts.ArraySizeThreshold > 0 {
			dopts.ArraySizeThreshold = opts.ArraySizeThreshold
		}
		dopts.Decoders = opts.Decoders
		if fnset, ok := decoder.Locate(prog, dopts); ok {
			n, failures := decoder.Execute(prog, fnset, opts.Sandbox, code, file)
			changes += n
			for _, f := range failures {
				Logger.Printf("%v", f)
			}
		} else if len(opts.Decoders) > 0 {
			Logger.Printf("%s: no decoder call sites found for %v", file, opts.Decoders)
		}
	}

	iterCap := opts.IterationCap
	if iterCap <= 0 {
		iterCap = transform.DefaultMaxIterations
	}
	changes += transform.ApplyAll(prog, transform.Library(opts.MarkKeywords), iterCap)

	return Result{Code: jsast.Generate(prog, jsast.PrintOptions{}), Changes: changes}, nil
}

// wrapParseError promotes a jsparse error to an *errs.InputError,
// carrying the offending position, and a code frame of that line of code,
// through when the parser supplied one.
func wrapParseError(file, code string, err error) error {
	if pe, ok := err.(*jsparse.ParseError); ok {
		return errs.NewInputError(file, pe.Line, pe.Col, "%s\n%s", pe.Message, errs.CodeFrame(code, pe.Line, pe.Col))
	}
	return errs.NewInputError(file, 1, 1, "%v", err)
}

// Package errs defines the three error kinds the pipeline raises —
// InputError, InternalError, DecodeError — each carrying a source
// position so a caller can render a code frame. The shape is lifted
// directly from the teacher's errortypes.ErrFilePos: a small interface
// plus a Cause-chain-aware Is/To pair, generalized to three concrete
// kinds instead of one.
package errs

import (
	"fmt"
	"strings"
)

// FilePos is an error that knows where in the source it occurred.
type FilePos interface {
	error
	File() string
	Line() int
	Col() int
}

type filePos struct {
	error
	file string
	line int
	col  int
}

func (e *filePos) File() string { return e.file }
func (e *filePos) Line() int    { return e.line }
func (e *filePos) Col() int     { return e.col }
func (e *filePos) Cause() error { return e.error }

// InputError reports that the input text is not valid source. Raised
// during the initial parse; always fatal.
type InputError struct{ *filePos }

// NewInputError builds an InputError at the given file position.
func NewInputError(file string, line, col int, format string, args ...interface{}) *InputError {
	return &InputError{&filePos{error: fmt.Errorf(format, args...), file: file, line: line, col: col}}
}

func (e *InputError) Error() string { return "input: " + e.filePos.Error() }

// InternalError reports that a rewrite produced code the parser no
// longer accepts. The caller is expected to have already written the
// failing intermediate to a debug path before wrapping it here.
type InternalError struct {
	*filePos
	DebugPath string
}

// NewInternalError builds an InternalError, optionally naming the path
// the failing intermediate source was written to.
func NewInternalError(file string, line, col int, debugPath string, format string, args ...interface{}) *InternalError {
	return &InternalError{
		filePos:   &filePos{error: fmt.Errorf(format, args...), file: file, line: line, col: col},
		DebugPath: debugPath,
	}
}

func (e *InternalError) Error() string {
	msg := "internal: " + e.filePos.Error()
	if e.DebugPath != "" {
		msg += " (failing source written to " + e.DebugPath + ")"
	}
	return msg
}

// DecodeError reports that a sandboxed decoder-function call threw or
// timed out. Decoder errors are recovered locally — the offending call
// site is commented and left unchanged rather than aborting the pass —
// so this type is carried for diagnostics, not control flow.
type DecodeError struct {
	*filePos
	CallExpr string
}

// NewDecodeError builds a DecodeError naming the call expression that
// failed to evaluate.
func NewDecodeError(file string, line, col int, callExpr string, format string, args ...interface{}) *DecodeError {
	return &DecodeError{
		filePos:  &filePos{error: fmt.Errorf(format, args...), file: file, line: line, col: col},
		CallExpr: callExpr,
	}
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: %s: %s", e.CallExpr, e.filePos.Error())
}

// Is reports whether err, or an error along its Cause() chain,
// implements FilePos.
func Is(err error) bool {
	return To(err) != nil
}

// To returns the first error along err's Cause() chain, starting with
// err itself, that implements FilePos, or nil if none does.
func To(err error) FilePos {
	if err == nil {
		return nil
	}
	err = rootCause(err)
	if out, ok := err.(FilePos); ok {
		return out
	}
	return nil
}

func rootCause(err error) error {
	type causer interface {
		Cause() error
	}
	for {
		if _, ok := err.(FilePos); ok {
			return err
		}
		e, ok := err.(causer)
		if !ok {
			return err
		}
		cause := e.Cause()
		if cause == nil {
			return err
		}
		err = cause
	}
}

// LineCol converts a zero-based byte offset into the 1-based line/column
// a human-facing frame expects, counting newlines the same way the
// source was written (no special handling of CRLF beyond treating '\r'
// as an ordinary column-advancing byte).
func LineCol(src string, offset int) (line, col int) {
	if offset > len(src) {
		offset = len(src)
	}
	if offset < 0 {
		offset = 0
	}
	line = 1
	lastNL := -1
	for i := 0; i < offset; i++ {
		if src[i] == '\n' {
			line++
			lastNL = i
		}
	}
	col = offset - lastNL
	return line, col
}

// CodeFrame renders the source line containing (line, col) with a caret
// pointing at the column. deobf.Deobfuscate appends this two-line frame
// to the message of the InputError it returns for a parse failure.
func CodeFrame(src string, line, col int) string {
	lines := strings.Split(src, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	text := lines[line-1]
	caretPos := col - 1
	if caretPos < 0 {
		caretPos = 0
	}
	if caretPos > len(text) {
		caretPos = len(text)
	}
	return fmt.Sprintf("%5d | %s\n      | %s^", line, text, strings.Repeat(" ", caretPos))
}

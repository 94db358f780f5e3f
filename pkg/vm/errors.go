package vm

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// StackFrame captures one call's worth of context for a RuntimeError's
// backtrace: which function was running and at what source line.
type StackFrame struct {
	Name       string
	SourceLine int
}

// RuntimeError is what Interpret returns when the VM dispatch loop aborts
// mid-run — as opposed to a compile error, which never reaches the VM.
// cause carries a pkg/errors stack trace captured at the point of failure,
// so a caller that wants more than the lox-level backtrace can fmt.Printf
// it with "%+v".
type RuntimeError struct {
	Message    string
	StackTrace []StackFrame
	cause      error
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for i := len(e.StackTrace) - 1; i >= 0; i-- {
		f := e.StackTrace[i]
		b.WriteString(fmt.Sprintf("\n[line %d] in %s", f.SourceLine, f.Name))
	}
	return b.String()
}

// Unwrap exposes the pkg/errors-wrapped cause for errors.Is/As callers.
func (e *RuntimeError) Unwrap() error { return e.cause }

func newRuntimeError(message string, stack []StackFrame) *RuntimeError {
	return &RuntimeError{Message: message, StackTrace: stack, cause: errors.New(message)}
}

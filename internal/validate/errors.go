// Package validate implements the static type-checker run over a decoded
// function body before it may be instantiated: an operand-stack /
// control-frame-stack abstract machine that rejects any instruction
// sequence the runtime could not execute type-safely.
//
// Grounded on the teacher's internal/wasm/func_validation_test.go for the
// validator's call shape and error-message conventions, and on spec.md's
// own description of the algorithm (component 4.2) for the polymorphic
// "unknown type" stack behavior after an unconditional branch.
package validate

import "fmt"

// Error is the single error type the validator produces. FunctionIndex and
// Offset locate the failure within the module being checked.
type Error struct {
	FunctionIndex uint32
	// Offset is the index into the function's instruction sequence at
	// which validation failed.
	Offset int
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("function[%d] instruction %d: %s", e.FunctionIndex, e.Offset, e.Reason)
}

func newError(funcIdx uint32, offset int, format string, args ...any) *Error {
	return &Error{FunctionIndex: funcIdx, Offset: offset, Reason: fmt.Sprintf(format, args...)}
}

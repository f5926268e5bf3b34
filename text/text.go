// Package text defines the boundary between the runtime substrate and a
// concrete text-format front end. spec.md §6 names the text parser an
// external collaborator; Parser is that interface. text/wast provides the
// one implementation this module ships.
package text

import "github.com/hack-chain/WAVM/internal/ir"

// SyntaxError is a single parse failure, reported with enough position
// information to render a caret diagnostic against the original source.
type SyntaxError struct {
	Offset  int
	Line    int
	Column  int
	Message string
}

func (e SyntaxError) Error() string { return e.Message }

// Parser turns source text into a decoded ir.Module. A non-empty error
// slice means parsing failed; Module is nil in that case. Grounded on
// spec.md §6's "text parser" external collaborator and the teacher's own
// internal/wasm/text front end shape.
type Parser interface {
	Parse(source []byte) (*ir.Module, []SyntaxError)
}

package runtime

import "github.com/hack-chain/WAVM/internal/ir"

// ExceptionType describes the payload signature of a user-raisable
// exception, the object a throw/catch pair is checked against.
type ExceptionType struct {
	object
	Type *ir.ExceptionType
}

func (e *ExceptionType) Kind() ObjectKind { return ObjectKindExceptionType }
func (e *ExceptionType) ExternType() any  { return e.Type }

// CreateExceptionType allocates a new exception type within c.
func CreateExceptionType(c *Compartment, t *ir.ExceptionType) *ExceptionType {
	e := &ExceptionType{object: object{id: c.allocID(), compartment: c}, Type: t}
	c.mu.Lock()
	c.exceptionTypes = append(c.exceptionTypes, e)
	c.mu.Unlock()
	return e
}

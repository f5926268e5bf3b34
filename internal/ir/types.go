// Package ir defines the in-memory representation of a WebAssembly module:
// the output of decoding (text or binary) and the input to validation,
// linking, and instantiation.
package ir

import "fmt"

// Index is an offset into one of a Module's index namespaces (function,
// table, memory, global, exception type). Index namespaces begin with any
// imports of the corresponding kind, followed by the module's own
// definitions.
type Index = uint32

// ValueType is the encoding of a WebAssembly value type.
type ValueType byte

const (
	ValueTypeI32 ValueType = 0x7f
	ValueTypeI64 ValueType = 0x7e
	ValueTypeF32 ValueType = 0x7d
	ValueTypeF64 ValueType = 0x7c
	// ValueTypeFuncref is the only reference type this module's tables hold.
	ValueTypeFuncref ValueType = 0x70
)

// String returns the WebAssembly text-format name of t.
func (t ValueType) String() string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeFuncref:
		return "funcref"
	default:
		return fmt.Sprintf("unknown(0x%x)", byte(t))
	}
}

// FunctionType is a possibly empty function signature.
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

// String renders a FunctionType the way the teacher's internal/wasm package
// does, for use as a cache key and in validator error messages.
func (t *FunctionType) String() string {
	s := ""
	for _, p := range t.Params {
		s += p.String()
	}
	if len(t.Params) == 0 {
		s += "null"
	}
	s += "_"
	for _, r := range t.Results {
		s += r.String()
	}
	if len(t.Results) == 0 {
		s += "null"
	}
	return s
}

// Equal reports whether t and o describe the same signature.
func (t *FunctionType) Equal(o *FunctionType) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil {
		return false
	}
	if len(t.Params) != len(o.Params) || len(t.Results) != len(o.Results) {
		return false
	}
	for i, p := range t.Params {
		if p != o.Params[i] {
			return false
		}
	}
	for i, r := range t.Results {
		if r != o.Results[i] {
			return false
		}
	}
	return true
}

// Limits describes the min/max of a growable region (table elements or
// memory pages).
type Limits struct {
	Min uint32
	Max *uint32 // nil means unbounded (subject to the implementation maximum)
}

// TableType describes a table's element type and size limits. WebAssembly
// 1.0 allows at most one table per module and restricts ElemType to
// ValueTypeFuncref.
type TableType struct {
	ElemType ValueType
	Limits   Limits
}

// MemoryType describes a memory's size limits, in 64KiB pages.
type MemoryType = Limits

// GlobalType describes a global's value type and mutability.
type GlobalType struct {
	ValType ValueType
	Mutable bool
}

// ExceptionType describes the payload signature of a user-raisable
// exception (spec.md component "Exception-type object").
type ExceptionType struct {
	Params []ValueType
}

// String renders the exception type's payload signature, mirroring
// FunctionType.String for use as a lookup key.
func (e *ExceptionType) String() string {
	s := ""
	for _, p := range e.Params {
		s += p.String()
	}
	if len(e.Params) == 0 {
		s += "null"
	}
	return s
}

// ExternKind identifies which index namespace an Import or Export refers to.
type ExternKind byte

const (
	ExternKindFunc          ExternKind = 0x00
	ExternKindTable         ExternKind = 0x01
	ExternKindMemory        ExternKind = 0x02
	ExternKindGlobal        ExternKind = 0x03
	ExternKindExceptionType ExternKind = 0x04
)

// String returns the canonical name of the extern kind.
func (k ExternKind) String() string {
	switch k {
	case ExternKindFunc:
		return "func"
	case ExternKindTable:
		return "table"
	case ExternKindMemory:
		return "memory"
	case ExternKindGlobal:
		return "global"
	case ExternKindExceptionType:
		return "exception-type"
	default:
		return "unknown"
	}
}

// Package runtime implements the WAVM "Runtime" namespace this module is
// built around: compartments and contexts as the sandboxing unit, tables
// and memories as the growable regions functions address, globals,
// exception types, module instances, linking, instantiation, and
// invocation.
//
// Grounded on WAVM's Lib/Runtime/*.cpp for the exact algorithms (table
// biasing, compartment layout, global allocation, the instantiation
// sequence) and on the teacher's internal/wasm package for Go idiom:
// getter naming, error wrapping, and doc-comment density.
package runtime

// ObjectKind identifies the concrete type behind an Object, mirroring
// WAVM's Runtime::ObjectKind enum (Include/WAVM/Runtime/RuntimeData.h).
type ObjectKind int

const (
	ObjectKindFunction ObjectKind = iota
	ObjectKindTable
	ObjectKindMemory
	ObjectKindGlobal
	ObjectKindExceptionType
	ObjectKindModuleInstance
	ObjectKindContext
	ObjectKindCompartment
)

// Object is implemented by every kind of value an import/export can refer
// to: Function, Table, Memory, Global, ExceptionType, ModuleInstance.
type Object interface {
	Kind() ObjectKind
	// ExternType describes the object's type for import/export
	// type-checking, using the same types internal/ir uses to describe the
	// module-level declaration.
	ExternType() any
}

// object is embedded by every Runtime object to give it a compartment
// membership and identity, mirroring WAVM's GCObject base.
type object struct {
	id          uint64
	compartment *Compartment
}

// ID is a debug-only identifier, stable for the lifetime of the owning
// Compartment. Trap call stacks name frames by Function.DebugName, not by
// ID, and no type-safety decision depends on it (unlike WAVM, object identity here is Go's own GC-traced
// pointer identity — see DESIGN.md's Go GC adaptation note).
func (o *object) ID() uint64 { return o.id }

// Compartment returns the compartment this object belongs to.
func (o *object) Compartment() *Compartment { return o.compartment }

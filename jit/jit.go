// Package jit defines the boundary between the runtime (compartments,
// tables, memories, module instantiation) and the code-generation
// collaborator that actually turns a function's decoded instruction
// sequence into something callable. spec.md §6 names the machine-code
// emitter an external collaborator the runtime depends on only through an
// interface; Backend is that interface. jit/interp provides the one
// concrete, portable implementation this module ships: a tree-walking
// interpreter rather than a native-code JIT, since emitting machine code
// is explicitly out of this module's scope.
package jit

import "github.com/hack-chain/WAVM/internal/ir"

// Host is the set of operations a CompiledFunction needs from the runtime
// while executing: crossing back into other functions, tables, memories,
// and globals it does not itself own. The runtime package implements Host;
// jit/interp depends only on this interface, never on the runtime package
// directly, keeping the dependency arrow one-directional as spec.md §6
// requires of an external collaborator.
type Host interface {
	CallFunction(index ir.Index, args []ir.Value) ([]ir.Value, *Trap)
	CallIndirect(tableIndex, elemIndex, typeIndex ir.Index, args []ir.Value) ([]ir.Value, *Trap)

	GlobalGet(index ir.Index) ir.Value
	GlobalSet(index ir.Index, v ir.Value)

	MemorySize(memIndex ir.Index) uint32
	MemoryGrow(memIndex ir.Index, deltaPages uint32) int32
	MemoryRead(memIndex ir.Index, offset uint32, buf []byte) *Trap
	MemoryWrite(memIndex ir.Index, offset uint32, buf []byte) *Trap

	TableSize(tableIndex ir.Index) uint32
	TableGet(tableIndex, elemIndex ir.Index) (ir.Index, bool, *Trap) // ok=false means null
	TableSet(tableIndex, elemIndex, funcIndex ir.Index) *Trap
	TableInit(tableIndex, elemSegmentIndex, dst, src, n ir.Index) *Trap
	ElemDrop(elemSegmentIndex ir.Index)

	MemoryInit(memIndex, dataSegmentIndex ir.Index, dst, src, n uint32) *Trap
	DataDrop(dataSegmentIndex ir.Index)
}

// CompiledFunction is the callable form a Backend produces for one
// function body.
type CompiledFunction interface {
	Call(host Host, args []ir.Value) ([]ir.Value, *Trap)
}

// Backend compiles every function defined in a module into its callable
// form, in function-index order (index 0 of the returned slice is the
// module's first *defined* function, matching FunctionIndexSpace.Defs).
type Backend interface {
	Compile(m *ir.Module) ([]CompiledFunction, error)
}

// TrapCode is the closed set of reasons execution can abort, mirroring the
// teacher's internal/wasm/errors.go sentinel set (spec.md component 4.9
// "Error handling").
type TrapCode int

const (
	TrapUnreachable TrapCode = iota
	TrapIntegerOverflow
	TrapIntegerDivideByZero
	TrapInvalidConversionToInteger
	TrapOutOfBoundsMemoryAccess
	TrapOutOfBoundsTableAccess
	TrapIndirectCallTypeMismatch
	TrapCallStackExhausted
)

func (c TrapCode) String() string {
	switch c {
	case TrapUnreachable:
		return "unreachable"
	case TrapIntegerOverflow:
		return "integer overflow"
	case TrapIntegerDivideByZero:
		return "integer divide by zero"
	case TrapInvalidConversionToInteger:
		return "invalid conversion to integer"
	case TrapOutOfBoundsMemoryAccess:
		return "out of bounds memory access"
	case TrapOutOfBoundsTableAccess:
		return "out of bounds table access"
	case TrapIndirectCallTypeMismatch:
		return "indirect call type mismatch"
	case TrapCallStackExhausted:
		return "call stack exhausted"
	default:
		return "unknown trap"
	}
}

// Trap is a single abnormal-termination signal raised during Call. The
// runtime package wraps this with a call-stack snapshot before surfacing
// it to an embedder (see runtime.Trap).
type Trap struct {
	Code    TrapCode
	Message string
}

func (t *Trap) Error() string { return t.Message }

func NewTrap(code TrapCode) *Trap {
	return &Trap{Code: code, Message: code.String()}
}

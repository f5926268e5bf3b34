package runtime

import (
	"unsafe"

	"github.com/hack-chain/WAVM/internal/ir"
	"github.com/hack-chain/WAVM/jit"
)

// Function is a callable object: either compiled from a module-defined
// function body (Compiled non-nil) or a host function an embedder
// provided directly (Host non-nil).
type Function struct {
	object
	Type *ir.FunctionType

	// DebugName is the module/export name pair used to render trap call
	// stacks; best-effort, never required for correctness.
	DebugName string

	Compiled jit.CompiledFunction
	Host     func(args []ir.Value) ([]ir.Value, *jit.Trap)

	// OwnerModule is the ModuleInstance whose index space Compiled's
	// call/global/memory/table references resolve against. Nil for a
	// Host function, which has no module-relative state to resolve.
	OwnerModule *ModuleInstance
}

func (f *Function) Kind() ObjectKind { return ObjectKindFunction }
func (f *Function) ExternType() any  { return f.Type }

// CreateHostFunction wraps a Go function as a Function an embedder can
// register with a Linker or call directly, the way spec.md 4.12's host-ABI
// surface exposes native callbacks to a linked module without those
// callbacks going through a Backend at all.
func CreateHostFunction(c *Compartment, ft *ir.FunctionType, fn func(args []ir.Value) ([]ir.Value, *jit.Trap)) *Function {
	return &Function{
		object: object{id: c.allocID(), compartment: c},
		Type:   ft,
		Host:   fn,
	}
}

func (f *Function) call(host jit.Host, args []ir.Value) ([]ir.Value, *jit.Trap) {
	if f.Host != nil {
		return f.Host(args)
	}
	return f.Compiled.Call(host, args)
}

// BiasedValue returns the address of f, offset the way WAVM's table slots
// bias a function pointer so it can never equal the reserved
// out-of-bounds sentinel value (Lib/Runtime/Table.cpp). This module's
// Table does not use BiasedValue for addressing — see table.go's doc
// comment — it is provided only so a component outside this module (a
// hypothetical real JIT backend) can recover the same encoding WAVM's ABI
// documents, without this package depending on any particular backend's
// addressing scheme.
func (f *Function) BiasedValue() uintptr {
	if f == nil {
		return tableOutOfBoundsSentinel
	}
	return uintptr(unsafe.Pointer(f)) - tableOutOfBoundsSentinel
}

// tableOutOfBoundsSentinel stands in for WAVM's
// "address of a dummy out-of-bounds object" bias point. Any fixed non-zero
// constant works here since, unlike WAVM, nothing in this module decodes a
// BiasedValue back into a pointer — see table.go.
const tableOutOfBoundsSentinel = 0x1

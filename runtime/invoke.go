package runtime

import (
	"github.com/hack-chain/WAVM/internal/ir"
	"github.com/hack-chain/WAVM/jit"
)

// Invoke calls fn with args, in ctx, and converts any jit.Trap the call
// raises into a runtime.Trap with a call-stack snapshot attached. A host
// function (fn.Host != nil) is called directly; a compiled function is
// called through a moduleHost bound to fn.OwnerModule, so its call/
// global/memory/table instructions resolve against the right module's
// index space.
func Invoke(ctx *Context, fn *Function, args []ir.Value) ([]ir.Value, *Trap) {
	return invoke(ctx, fn, args, nil)
}

// invoke is Invoke's implementation, additionally threading callers (the
// frames already active above fn, outermost first) so a call that crosses
// into another function via moduleHost.CallFunction/CallIndirect extends
// the same chain instead of starting a fresh one-frame stack, the way a
// real call stack accumulates one frame per nested call.
func invoke(ctx *Context, fn *Function, args []ir.Value, callers []string) ([]ir.Value, *Trap) {
	stack := append(append(make([]string, 0, len(callers)+1), callers...), frameName(fn))
	if fn.Host != nil {
		results, trap := fn.Host(args)
		return results, trapFromJIT(trap, stack)
	}
	host := &moduleHost{inst: fn.OwnerModule, ctx: ctx, callStack: stack}
	results, trap := fn.Compiled.Call(host, args)
	if trap != nil {
		// host.trapped is already the fully accumulated trap if the trap
		// actually originated deeper than this frame (see CallFunction/
		// CallIndirect); otherwise it originated directly in this frame's
		// own body, so build it from this frame's own stack.
		if host.trapped != nil {
			return nil, host.trapped
		}
		return nil, trapFromJIT(trap, stack)
	}
	return results, nil
}

// frameName renders fn the way a trap's CallStack identifies a frame:
// "<host>" for a host callback, fn.DebugName (set at instantiation time
// from the module/export name pair) when known, else "<anonymous>".
func frameName(fn *Function) string {
	if fn.Host != nil {
		return "<host>"
	}
	if fn.DebugName != "" {
		return fn.DebugName
	}
	return "<anonymous>"
}

// moduleHost implements jit.Host for calls originating from a single
// ModuleInstance's compiled functions, resolving every index-space
// operand (call targets, globals, memories, tables, segments) against
// that module's own slices.
type moduleHost struct {
	inst      *ModuleInstance
	ctx       *Context
	callStack []string

	// trapped holds the fully call-stack-annotated Trap once a nested
	// CallFunction/CallIndirect actually traps, since the *jit.Trap that
	// crosses back out through the jit.Host interface can only carry a
	// code and message — not the deeper frames below this one. invoke
	// prefers this over reconstructing a shallower trap from this frame's
	// own stack alone.
	trapped *Trap
}

func (h *moduleHost) CallFunction(index ir.Index, args []ir.Value) ([]ir.Value, *jit.Trap) {
	fn := h.inst.FunctionByIndex(index)
	if fn == nil {
		return nil, jit.NewTrap(jit.TrapOutOfBoundsTableAccess)
	}
	results, trap := invoke(h.ctx, fn, args, h.callStack)
	if trap != nil {
		h.trapped = trap
		return nil, &jit.Trap{Code: trap.Code, Message: trap.Message}
	}
	return results, nil
}

func (h *moduleHost) CallIndirect(tableIndex, elemIndex, typeIndex ir.Index, args []ir.Value) ([]ir.Value, *jit.Trap) {
	if int(tableIndex) >= len(h.inst.Tables) {
		return nil, jit.NewTrap(jit.TrapOutOfBoundsTableAccess)
	}
	table := h.inst.Tables[tableIndex]
	fn, err := table.Get(elemIndex)
	if err != nil {
		return nil, jit.NewTrap(jit.TrapOutOfBoundsTableAccess)
	}
	if fn == nil {
		// An in-bounds but null slot traps the same way a
		// resolved-but-wrong-type callee does, rather than as an
		// out-of-bounds access.
		return nil, jit.NewTrap(jit.TrapIndirectCallTypeMismatch)
	}
	want := h.inst.typeAt(typeIndex)
	if want == nil || !fn.Type.Equal(want) {
		return nil, jit.NewTrap(jit.TrapIndirectCallTypeMismatch)
	}
	results, trap := invoke(h.ctx, fn, args, h.callStack)
	if trap != nil {
		h.trapped = trap
		return nil, &jit.Trap{Code: trap.Code, Message: trap.Message}
	}
	return results, nil
}

func (h *moduleHost) GlobalGet(index ir.Index) ir.Value {
	return h.inst.Globals[index].GetValue(h.ctx)
}

func (h *moduleHost) GlobalSet(index ir.Index, v ir.Value) {
	h.inst.Globals[index].SetValue(h.ctx, v)
}

func (h *moduleHost) MemorySize(memIndex ir.Index) uint32 {
	return h.inst.Memories[memIndex].Size()
}

func (h *moduleHost) MemoryGrow(memIndex ir.Index, deltaPages uint32) int32 {
	return h.inst.Memories[memIndex].Grow(deltaPages)
}

func (h *moduleHost) MemoryRead(memIndex ir.Index, offset uint32, buf []byte) *jit.Trap {
	if err := h.inst.Memories[memIndex].Read(offset, buf); err != nil {
		return jit.NewTrap(jit.TrapOutOfBoundsMemoryAccess)
	}
	return nil
}

func (h *moduleHost) MemoryWrite(memIndex ir.Index, offset uint32, buf []byte) *jit.Trap {
	if err := h.inst.Memories[memIndex].Write(offset, buf); err != nil {
		return jit.NewTrap(jit.TrapOutOfBoundsMemoryAccess)
	}
	return nil
}

func (h *moduleHost) TableSize(tableIndex ir.Index) uint32 {
	return h.inst.Tables[tableIndex].Size()
}

func (h *moduleHost) TableGet(tableIndex, elemIndex ir.Index) (ir.Index, bool, *jit.Trap) {
	fn, err := h.inst.Tables[tableIndex].Get(elemIndex)
	if err != nil {
		return 0, false, jit.NewTrap(jit.TrapOutOfBoundsTableAccess)
	}
	if fn == nil {
		return 0, false, nil
	}
	return h.inst.functionIndexOf(fn), true, nil
}

func (h *moduleHost) TableSet(tableIndex, elemIndex, funcIndex ir.Index) *jit.Trap {
	fn := h.inst.FunctionByIndex(funcIndex)
	if err := h.inst.Tables[tableIndex].Set(elemIndex, fn); err != nil {
		return jit.NewTrap(jit.TrapOutOfBoundsTableAccess)
	}
	return nil
}

func (h *moduleHost) TableInit(tableIndex, elemSegmentIndex, dst, src, n ir.Index) *jit.Trap {
	seg := h.inst.elemSegment(elemSegmentIndex)
	if uint64(src)+uint64(n) > uint64(len(seg)) {
		return jit.NewTrap(jit.TrapOutOfBoundsTableAccess)
	}
	table := h.inst.Tables[tableIndex]
	for i := ir.Index(0); i < n; i++ {
		fn := h.inst.FunctionByIndex(seg[src+i])
		if err := table.Set(dst+i, fn); err != nil {
			return jit.NewTrap(jit.TrapOutOfBoundsTableAccess)
		}
	}
	return nil
}

func (h *moduleHost) ElemDrop(elemSegmentIndex ir.Index) {
	h.inst.dropElem(elemSegmentIndex)
}

func (h *moduleHost) MemoryInit(memIndex, dataSegmentIndex ir.Index, dst, src, n uint32) *jit.Trap {
	seg := h.inst.dataSegment(dataSegmentIndex)
	if uint64(src)+uint64(n) > uint64(len(seg)) {
		return jit.NewTrap(jit.TrapOutOfBoundsMemoryAccess)
	}
	if err := h.inst.Memories[memIndex].Write(dst, seg[src:src+n]); err != nil {
		return jit.NewTrap(jit.TrapOutOfBoundsMemoryAccess)
	}
	return nil
}

func (h *moduleHost) DataDrop(dataSegmentIndex ir.Index) {
	h.inst.dropData(dataSegmentIndex)
}

// typeAt resolves a type index against the module's own type section.
// ModuleInstance does not keep its own ir.Module around after
// instantiation, so the small amount of static type information
// call_indirect needs at call time (the declared signature to check
// against) is kept alongside the instance. See ModuleInstance.typeAt.
func (m *ModuleInstance) typeAt(idx ir.Index) *ir.FunctionType {
	if int(idx) >= len(m.types) {
		return nil
	}
	return m.types[idx]
}

// functionIndexOf finds fn's position in m.Functions, used by table.get
// to report a funcref as a function index the way the jit.Host interface
// expresses it. Linear scan: call_indirect's hot path is TableGet+type
// check, not this; table.get as a standalone instruction is rare.
func (m *ModuleInstance) functionIndexOf(fn *Function) ir.Index {
	for i, f := range m.Functions {
		if f == fn {
			return ir.Index(i)
		}
	}
	return 0
}

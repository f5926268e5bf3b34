package runtime

import "github.com/hack-chain/WAVM/internal/ir"

// Global is a single global variable. An immutable global's value is
// fixed at creation and shared by every Context in the compartment; a
// mutable global's value instead lives in a slot of each Context's own
// mutableGlobals array, so cloning a module instance into a fresh context
// gives it an independent copy — exactly the per-context indirection
// spec.md 4.6 and WAVM's Lib/Runtime/Global.cpp describe.
type Global struct {
	object
	Type *ir.GlobalType

	mutableIndex   int // valid iff Type.Mutable
	immutableValue ir.Value
}

func (g *Global) Kind() ObjectKind { return ObjectKindGlobal }
func (g *Global) ExternType() any  { return g.Type }

// CreateGlobal allocates a new global within c. For a mutable global, a
// fresh per-context array slot is reserved (Compartment.allocateMutableGlobalIndex)
// and every existing Context's array is initialized at that slot,
// mirroring createGlobal's loop over compartment->contexts in
// Lib/Runtime/Global.cpp.
func CreateGlobal(c *Compartment, t *ir.GlobalType, initValue ir.Value) *Global {
	c.mu.Lock()
	defer c.mu.Unlock()
	g := &Global{object: object{id: c.allocID(), compartment: c}, Type: t}
	if t.Mutable {
		idx := c.allocateMutableGlobalIndex()
		g.mutableIndex = idx
		c.initialContextMutableGlobals[idx] = initValue
		for _, ctx := range c.contexts {
			ctx.mutableGlobals[idx] = initValue
		}
	} else {
		g.immutableValue = initValue
	}
	c.globals = append(c.globals, g)
	return g
}

// GetValue reads g's current value, consulting ctx's mutable-globals array
// if g is mutable.
func (g *Global) GetValue(ctx *Context) ir.Value {
	if !g.Type.Mutable {
		return g.immutableValue
	}
	return ctx.mutableGlobals[g.mutableIndex]
}

// SetValue stores a new value for g in ctx. Callers must have already
// checked g.Type.Mutable; calling this on an immutable global indicates a
// validator defect, not a runtime condition to recover from.
func (g *Global) SetValue(ctx *Context, v ir.Value) {
	ctx.mutableGlobals[g.mutableIndex] = v
}

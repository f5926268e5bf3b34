package runtime

import "github.com/hack-chain/WAVM/internal/ir"

// Context is the per-thread/per-call-chain mutable-state holder spec.md
// 4.7 describes: it owns the live array of mutable-global values for every
// global any module in its compartment has declared, since
// WebAssembly requires each instantiation of a module to get its own copy
// of its mutable globals' storage when that module is cloned into a new
// context, while immutable globals and compartment-shared objects (tables,
// memories) are not duplicated.
type Context struct {
	object
	mutableGlobals []ir.Value
}

// CreateContext creates a new Context within c, with its mutable-globals
// array initialized from the compartment's current template (one entry
// per mutable global any module instantiated into c has ever declared).
func CreateContext(c *Compartment) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	ctx := &Context{object: object{id: c.allocID(), compartment: c}}
	ctx.mutableGlobals = append([]ir.Value{}, c.initialContextMutableGlobals...)
	c.contexts = append(c.contexts, ctx)
	return ctx
}

func (ctx *Context) Kind() ObjectKind { return ObjectKindContext }
func (ctx *Context) ExternType() any  { return nil }

package runtime

import "github.com/hack-chain/WAVM/internal/ir"

// CloneModuleInstance duplicates inst into a fresh Context within the same
// Compartment: a new set of mutable-global storage (immutable globals and
// compartment-owned tables/memories are shared, not copied, matching
// WebAssembly's own aliasing rules for those object kinds), with its own
// independent passive-segment state so dropping a segment in the clone
// does not affect inst.
//
// Grounded on WAVM's Runtime::cloneModuleInstance (Lib/Runtime/Module.cpp)
// for which state is shared vs. duplicated; see moduleinstance.go's doc
// comment and DESIGN.md's Open Question (b) resolution for why passive
// data and passive element segments are threaded through two distinct
// maps here rather than the single shared intermediate that causes WAVM's
// documented clone-time mixup.
func CloneModuleInstance(inst *ModuleInstance, newCtx *Context) *ModuleInstance {
	c := newCtx.Compartment()
	clone := &ModuleInstance{
		object:         object{id: c.allocID(), compartment: c},
		Name:           inst.Name,
		Functions:      append([]*Function{}, inst.Functions...),
		Tables:         append([]*Table{}, inst.Tables...),
		Memories:       append([]*Memory{}, inst.Memories...),
		Globals:        append([]*Global{}, inst.Globals...),
		ExceptionTypes: append([]*ExceptionType{}, inst.ExceptionTypes...),
		Exports:        make(map[string]Object, len(inst.Exports)),
		types:          inst.types,
	}

	newPassiveData := make(map[ir.Index][]byte, len(inst.passiveData))
	inst.passiveMu.Lock()
	for k, v := range inst.passiveData {
		newPassiveData[k] = v
	}
	newPassiveElem := make(map[ir.Index][]ir.Index, len(inst.passiveElem))
	for k, v := range inst.passiveElem {
		newPassiveElem[k] = v
	}
	inst.passiveMu.Unlock()
	clone.passiveData = newPassiveData
	clone.passiveElem = newPassiveElem

	for name, obj := range inst.Exports {
		clone.Exports[name] = rebindExport(obj, inst, clone)
	}

	c.mu.Lock()
	c.moduleInstances = append(c.moduleInstances, clone)
	c.mu.Unlock()
	return clone
}

// rebindExport re-resolves an exported object against the clone's own
// slices, since a function/table/memory/global exported by value (rather
// than by reference to an import) must point at the clone's copy, not the
// original's.
func rebindExport(obj Object, from, to *ModuleInstance) Object {
	switch o := obj.(type) {
	case *Function:
		for i, f := range from.Functions {
			if f == o {
				return to.Functions[i]
			}
		}
	case *Table:
		for i, t := range from.Tables {
			if t == o {
				return to.Tables[i]
			}
		}
	case *Memory:
		for i, m := range from.Memories {
			if m == o {
				return to.Memories[i]
			}
		}
	case *Global:
		for i, g := range from.Globals {
			if g == o {
				return to.Globals[i]
			}
		}
	}
	return obj
}

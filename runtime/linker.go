package runtime

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/hack-chain/WAVM/internal/ir"
)

// LinkError reports every import a Linker could not resolve, aggregated
// rather than stopping at the first failure: an embedder wiring up a
// module against a host environment wants the complete list of missing
// imports in one diagnostic pass, not one-at-a-time.
//
// Grounded on the multi-error aggregation pattern used throughout
// bacalhau-project-bacalhau's job-submission validation (collect every
// independent failure before returning, via hashicorp/go-multierror)
// rather than the teacher's own single-error import resolution, since the
// teacher's embedding API is typically used from generated code that
// already guarantees imports line up.
// multierrorError is a local alias for multierror.Error used only to give
// the embedded field below a name that doesn't collide with the promoted
// Error() method (embedding *multierror.Error directly names the field
// "Error", which shadows its own Error() method and breaks the error
// interface).
type multierrorError = multierror.Error

type LinkError struct {
	*multierrorError
}

// Linker resolves a module's imports against a set of named module
// instances, producing the ordered Object slice Instantiate consumes.
type Linker struct {
	// Modules maps a module name (the left-hand side of an import
	// declaration) to the instance exporting values under that name.
	Modules map[string]*ModuleInstance
	// Extra provides additional named exports not backed by a full
	// ModuleInstance (e.g. host functions registered directly), keyed the
	// same way: module name -> field name -> Object.
	Extra map[string]map[string]Object
}

// NewLinker creates an empty Linker.
func NewLinker() *Linker {
	return &Linker{Modules: map[string]*ModuleInstance{}, Extra: map[string]map[string]Object{}}
}

// Register makes inst's exports available under moduleName to subsequent
// Link calls, the way a linker accumulates a module graph one
// instantiation at a time.
func (l *Linker) Register(moduleName string, inst *ModuleInstance) {
	l.Modules[moduleName] = inst
}

// Link resolves every import in m, returning the resolved objects in
// Import declaration order. If any import cannot be resolved, or resolves
// to an object of the wrong kind or an incompatible type, every such
// failure is collected into a single *LinkError rather than returning on
// the first.
func (l *Linker) Link(m *ir.Module) ([]Object, error) {
	resolved := make([]Object, len(m.Imports))
	var errs *multierror.Error

	for i, imp := range m.Imports {
		obj, ok := l.lookup(imp.Module, imp.Name)
		if !ok {
			errs = multierror.Append(errs, fmt.Errorf("missing import: %s.%s", imp.Module, imp.Name))
			continue
		}
		if err := checkImportType(m, imp, obj); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s.%s: %w", imp.Module, imp.Name, err))
			continue
		}
		resolved[i] = obj
	}

	if errs != nil {
		return nil, &LinkError{multierrorError: errs}
	}
	return resolved, nil
}

func (l *Linker) lookup(moduleName, field string) (Object, bool) {
	if inst, ok := l.Modules[moduleName]; ok {
		if obj, ok := inst.Exports[field]; ok {
			return obj, true
		}
	}
	if fields, ok := l.Extra[moduleName]; ok {
		if obj, ok := fields[field]; ok {
			return obj, true
		}
	}
	return nil, false
}

func checkImportType(m *ir.Module, imp *ir.Import, obj Object) error {
	switch imp.Kind {
	case ir.ExternKindFunc:
		fn, ok := obj.(*Function)
		if !ok {
			return fmt.Errorf("expected a function, got %T", obj)
		}
		want := m.Types[imp.DescFunc]
		if !fn.Type.Equal(want) {
			return fmt.Errorf("function type mismatch: expected %s, got %s", want, fn.Type)
		}
	case ir.ExternKindTable:
		t, ok := obj.(*Table)
		if !ok {
			return fmt.Errorf("expected a table, got %T", obj)
		}
		if t.elemType != imp.DescTable.ElemType {
			return fmt.Errorf("table element type mismatch")
		}
		if t.Size() < imp.DescTable.Limits.Min {
			return fmt.Errorf("table too small: need at least %d elements", imp.DescTable.Limits.Min)
		}
	case ir.ExternKindMemory:
		mem, ok := obj.(*Memory)
		if !ok {
			return fmt.Errorf("expected a memory, got %T", obj)
		}
		if mem.Size() < imp.DescMemory.Min {
			return fmt.Errorf("memory too small: need at least %d pages", imp.DescMemory.Min)
		}
	case ir.ExternKindGlobal:
		g, ok := obj.(*Global)
		if !ok {
			return fmt.Errorf("expected a global, got %T", obj)
		}
		if g.Type.ValType != imp.DescGlobal.ValType || g.Type.Mutable != imp.DescGlobal.Mutable {
			return fmt.Errorf("global type mismatch")
		}
	case ir.ExternKindExceptionType:
		if _, ok := obj.(*ExceptionType); !ok {
			return fmt.Errorf("expected an exception type, got %T", obj)
		}
	}
	return nil
}

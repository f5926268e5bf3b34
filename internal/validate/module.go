package validate

import (
	"fmt"

	"github.com/hack-chain/WAVM/internal/ir"
)

// ModuleResult aggregates the per-function FunctionResults produced while
// validating every function in a module, plus the module-level checks that
// can only be performed once every section is known.
type ModuleResult struct {
	Functions []*FunctionResult
}

// ValidateModule runs per-function validation over every function defined
// in m, then the module-wide structural checks WebAssembly requires before
// a module may be linked: unique export names, a start function with type
// () -> (), element segments targeting a declared table, and (per
// DESIGN.md's resolution of spec.md Open Question (a)) bounding every
// memory.init/data.drop segment index against the module's actual
// DataSegments count now that it is known.
func ValidateModule(m *ir.Module) (*ModuleResult, error) {
	globalTypes := make([]*ir.GlobalType, 0, len(m.Globals.Imports)+len(m.Globals.Defs))
	globalTypes = append(globalTypes, m.Globals.Imports...)
	for _, g := range m.Globals.Defs {
		globalTypes = append(globalTypes, g.Type)
	}

	funcTypes := make([]*ir.FunctionType, 0, m.Functions.Count())
	for i := 0; i < m.Functions.ImportCount; i++ {
		funcTypes = append(funcTypes, nil) // resolved by caller via Imports; filled below
	}
	// Resolve imported function types from m.Imports in declaration order.
	importFuncIdx := 0
	for _, imp := range m.Imports {
		if imp.Kind == ir.ExternKindFunc {
			if int(imp.DescFunc) < len(m.Types) {
				funcTypes[importFuncIdx] = m.Types[imp.DescFunc]
			}
			importFuncIdx++
		}
	}
	for _, def := range m.Functions.Defs {
		if int(def.TypeIndex) >= len(m.Types) {
			return nil, fmt.Errorf("function type index %d out of range", def.TypeIndex)
		}
		funcTypes = append(funcTypes, m.Types[def.TypeIndex])
	}

	sig := &Signature{
		Types:         m.Types,
		FunctionTypes: funcTypes,
		Globals:       globalTypes,
		HasMemory:     m.Memories.Count() > 0,
		HasTable:      m.Tables.Count() > 0,
	}

	result := &ModuleResult{}
	for i, def := range m.Functions.Defs {
		funcIdx := uint32(m.Functions.ImportCount + i)
		ft := m.Types[def.TypeIndex]
		fr, err := ValidateFunction(funcIdx, ft, def.LocalTypes, def.Body, sig)
		if err != nil {
			return nil, err
		}
		result.Functions = append(result.Functions, fr)
	}

	if err := validateExportsUnique(m); err != nil {
		return nil, err
	}
	if err := validateStart(m); err != nil {
		return nil, err
	}
	if m.StartFunctionIndex != nil {
		if ft := funcTypes[*m.StartFunctionIndex]; ft != nil && (len(ft.Params) > 0 || len(ft.Results) > 0) {
			return nil, fmt.Errorf("start function %d must have type () -> ()", *m.StartFunctionIndex)
		}
	}
	if err := validateElementSegments(m); err != nil {
		return nil, err
	}
	if err := validateDataSegments(m); err != nil {
		return nil, err
	}
	for _, fr := range result.Functions {
		if fr.MaxDataSegmentIndex >= 0 && int(fr.MaxDataSegmentIndex) >= len(m.DataSegments) {
			return nil, fmt.Errorf("data segment index %d out of range", fr.MaxDataSegmentIndex)
		}
	}
	return result, nil
}

func validateExportsUnique(m *ir.Module) error {
	seen := make(map[string]bool, len(m.Exports))
	for name := range m.Exports {
		if seen[name] {
			return fmt.Errorf("duplicate export name %q", name)
		}
		seen[name] = true
	}
	return nil
}

func validateStart(m *ir.Module) error {
	if m.StartFunctionIndex == nil {
		return nil
	}
	idx := *m.StartFunctionIndex
	if idx >= m.Functions.Count() {
		return fmt.Errorf("start function index %d out of range", idx)
	}
	return nil
}

// validateElementSegments checks structural soundness eagerly (segment's
// declared table index and every referenced function index are in range),
// the resolution DESIGN.md records for spec.md Open Question (a): unlike
// the data-segment count, element segments have a known table target as
// soon as the module's table section is decoded, so there is no reason to
// defer this check to instantiation time.
func validateElementSegments(m *ir.Module) error {
	tableCount := m.Tables.Count()
	funcCount := m.Functions.Count()
	for i, seg := range m.ElementSegments {
		if seg.TableIndex >= tableCount {
			return fmt.Errorf("element segment %d: table index %d out of range", i, seg.TableIndex)
		}
		for _, fnIdx := range seg.Init {
			if fnIdx >= funcCount {
				return fmt.Errorf("element segment %d: function index %d out of range", i, fnIdx)
			}
		}
	}
	return nil
}

func validateDataSegments(m *ir.Module) error {
	memCount := m.Memories.Count()
	for i, seg := range m.DataSegments {
		if seg.Active && seg.MemoryIndex >= memCount {
			return fmt.Errorf("data segment %d: memory index %d out of range", i, seg.MemoryIndex)
		}
	}
	return nil
}

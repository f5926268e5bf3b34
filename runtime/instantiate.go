package runtime

import (
	"fmt"

	"github.com/hack-chain/WAVM/internal/ir"
	"github.com/hack-chain/WAVM/internal/validate"
	"github.com/hack-chain/WAVM/jit"
)

// Instantiate runs the instantiation sequence spec.md 4.8 describes:
// validate, type-check every resolved import, create every module-defined
// table/memory/global/exception-type/function, build the export map,
// snapshot passive segments, then apply active segments and invoke the
// start function. Any failure at any step leaves no partially-visible
// ModuleInstance behind: the instance joins the Compartment's
// module-instance list only after every step, including the start
// function, has succeeded. Tables, memories, globals and exception types
// created before a failing step stay registered with the Compartment.
//
// Grounded on WAVM's Runtime::instantiateModule (Lib/Runtime/Module.cpp).
func Instantiate(ctx *Context, m *ir.Module, imports []Object, backend jit.Backend) (*ModuleInstance, error) {
	if _, err := validate.ValidateModule(m); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	if len(imports) != len(m.Imports) {
		return nil, fmt.Errorf("instantiate: expected %d imports, got %d", len(m.Imports), len(imports))
	}

	c := ctx.Compartment()
	inst := &ModuleInstance{
		object:      object{id: c.allocID(), compartment: c},
		Name:        moduleNameOrEmpty(m.Names),
		Exports:     map[string]Object{},
		passiveData: map[ir.Index][]byte{},
		passiveElem: map[ir.Index][]ir.Index{},
		types:       m.Types,
	}

	// Step: split resolved imports by kind, preserving the module's
	// combined function/table/memory/global/exception-type index spaces
	// (imports first, then definitions), per spec.md 4.8 step ordering.
	for i, imp := range m.Imports {
		switch imp.Kind {
		case ir.ExternKindFunc:
			inst.Functions = append(inst.Functions, imports[i].(*Function))
		case ir.ExternKindTable:
			inst.Tables = append(inst.Tables, imports[i].(*Table))
		case ir.ExternKindMemory:
			inst.Memories = append(inst.Memories, imports[i].(*Memory))
		case ir.ExternKindGlobal:
			inst.Globals = append(inst.Globals, imports[i].(*Global))
		case ir.ExternKindExceptionType:
			inst.ExceptionTypes = append(inst.ExceptionTypes, imports[i].(*ExceptionType))
		}
	}

	// Step: compile, then create module-defined functions. Compiling
	// first is safe: a compiled function's body reaches any function in
	// the combined index space (including itself, for recursion) through
	// the jit.Host interface at call time, not at compile time, so only
	// the order of inst.Functions matters, not when Backend.Compile runs.
	compiled, err := backend.Compile(m)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	if len(compiled) != len(m.Functions.Defs) {
		return nil, fmt.Errorf("compile: backend returned %d functions, module defines %d", len(compiled), len(m.Functions.Defs))
	}
	for i, def := range m.Functions.Defs {
		combinedIndex := ir.Index(m.Functions.ImportCount + i)
		inst.Functions = append(inst.Functions, &Function{
			object:      object{id: c.allocID(), compartment: c},
			Type:        m.Types[def.TypeIndex],
			DebugName:   debugName(inst.Name, m, combinedIndex),
			Compiled:    compiled[i],
			OwnerModule: inst,
		})
	}

	// Step: create module-defined tables.
	for _, tt := range m.Tables.Defs {
		max := noMax
		if tt.Limits.Max != nil {
			max = *tt.Limits.Max
		}
		inst.Tables = append(inst.Tables, CreateTable(c, tt.ElemType, tt.Limits.Min, max))
	}

	// Step: create module-defined memories.
	for _, mt := range m.Memories.Defs {
		max := noMax
		if mt.Max != nil {
			max = *mt.Max
		}
		inst.Memories = append(inst.Memories, CreateMemory(c, mt.Min, max))
	}

	// Step: create module-defined globals, evaluating each constant
	// initializer against the globals visible so far (imports plus any
	// earlier-declared global in this module — WebAssembly 1.0 restricts
	// global.get in a constant expression to an *imported* global, but
	// this runtime does not need to special-case that here since
	// validation already rejected anything the spec disallows).
	for _, gd := range m.Globals.Defs {
		v, err := evalConst(gd.Init, inst.Globals, ctx)
		if err != nil {
			return nil, fmt.Errorf("global initializer: %w", err)
		}
		inst.Globals = append(inst.Globals, CreateGlobal(c, gd.Type, v))
	}

	// Step: create module-defined exception types.
	for _, et := range m.Tags.Defs {
		inst.ExceptionTypes = append(inst.ExceptionTypes, CreateExceptionType(c, et))
	}

	// Step: build the export map.
	for name, exp := range m.Exports {
		var obj Object
		switch exp.Kind {
		case ir.ExternKindFunc:
			obj = inst.Functions[exp.Index]
		case ir.ExternKindTable:
			obj = inst.Tables[exp.Index]
		case ir.ExternKindMemory:
			obj = inst.Memories[exp.Index]
		case ir.ExternKindGlobal:
			obj = inst.Globals[exp.Index]
		case ir.ExternKindExceptionType:
			obj = inst.ExceptionTypes[exp.Index]
		}
		inst.Exports[name] = obj
	}

	// Step: snapshot passive segments, and apply active ones. Routed
	// through two distinct maps/slices (see moduleinstance.go's doc
	// comment) to avoid WAVM's documented clone-time data/elem mixup.
	for i, seg := range m.DataSegments {
		if seg.Active {
			offset, err := evalConst(seg.OffsetExpr, inst.Globals, ctx)
			if err != nil {
				return nil, fmt.Errorf("data segment %d: %w", i, err)
			}
			mem := inst.Memories[seg.MemoryIndex]
			if len(seg.Init) > 0 {
				if err := mem.Write(uint32(offset.I32), seg.Init); err != nil {
					return nil, fmt.Errorf("data segment %d: %w", i, err)
				}
			} else if uint64(offset.I32) > uint64(mem.Size())*WasmPageSize {
				return nil, fmt.Errorf("data segment %d: %w: offset %d for empty segment, size %d", i, ErrOutOfBoundsMemoryAccess, offset.I32, uint64(mem.Size())*WasmPageSize)
			}
		} else {
			inst.passiveData[ir.Index(i)] = seg.Init
		}
	}
	for i, seg := range m.ElementSegments {
		if seg.Active {
			offset, err := evalConst(seg.OffsetExpr, inst.Globals, ctx)
			if err != nil {
				return nil, fmt.Errorf("element segment %d: %w", i, err)
			}
			table := inst.Tables[seg.TableIndex]
			for j, fnIdx := range seg.Init {
				if err := table.Set(uint32(offset.I32)+uint32(j), inst.Functions[fnIdx]); err != nil {
					return nil, fmt.Errorf("element segment %d: %w", i, err)
				}
			}
		} else {
			inst.passiveElem[ir.Index(i)] = seg.Init
		}
	}

	// Step: run the start function, if declared.
	if m.StartFunctionIndex != nil {
		if _, trap := Invoke(ctx, inst.Functions[*m.StartFunctionIndex], nil); trap != nil {
			return nil, trap
		}
	}

	c.mu.Lock()
	c.moduleInstances = append(c.moduleInstances, inst)
	c.mu.Unlock()
	return inst, nil
}

// evalConst evaluates a restricted constant expression: one of the four
// *.const opcodes or global.get of a prior global (ref.null is
// represented as the zero ir.Value, which is indistinguishable from a
// null funcref since this module never stores function references inside
// an ir.Value — funcref values only ever live in Table slots).
func evalConst(expr *ir.ConstantExpression, priorGlobals []*Global, ctx *Context) (ir.Value, error) {
	switch expr.Opcode {
	case ir.OpcodeI32Const:
		return ir.I32Value(expr.I32), nil
	case ir.OpcodeI64Const:
		return ir.I64Value(expr.I64), nil
	case ir.OpcodeF32Const:
		return ir.F32Value(expr.F32), nil
	case ir.OpcodeF64Const:
		return ir.F64Value(expr.F64), nil
	case ir.OpcodeGlobalGet:
		if int(expr.GlobalIndex) >= len(priorGlobals) {
			return ir.Value{}, fmt.Errorf("global.get: index %d out of range in constant expression", expr.GlobalIndex)
		}
		return priorGlobals[expr.GlobalIndex].GetValue(ctx), nil
	case ir.OpcodeRefNull:
		return ir.Value{}, nil
	default:
		return ir.Value{}, fmt.Errorf("opcode %s is not valid in a constant expression", ir.InstructionName(expr.Opcode))
	}
}

func moduleNameOrEmpty(n *ir.NameSection) string {
	if n == nil {
		return ""
	}
	return n.ModuleName
}

// debugName renders the "module/export name pair" Function.DebugName's doc
// comment describes: the custom name-section entry for combinedIndex if the
// module carries one, else the first export name bound to it, else empty
// (rendered as "<anonymous>" by a trap's call stack, per invoke.go).
func debugName(moduleName string, m *ir.Module, combinedIndex ir.Index) string {
	name := ""
	if m.Names != nil {
		name = m.Names.FunctionNames[combinedIndex]
	}
	if name == "" {
		// Map iteration order is unspecified; pick the lexicographically
		// smallest matching export name so debug output is deterministic
		// when a function is exported under more than one name.
		for exportName, exp := range m.Exports {
			if exp.Kind == ir.ExternKindFunc && exp.Index == combinedIndex && (name == "" || exportName < name) {
				name = exportName
			}
		}
	}
	if name == "" {
		return ""
	}
	if moduleName == "" {
		return name
	}
	return moduleName + "." + name
}

package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hack-chain/WAVM/internal/ir"
	"github.com/hack-chain/WAVM/jit/interp"
)

func i32ConstFn(typeIdx ir.Index, val int32) *ir.FunctionDef {
	return &ir.FunctionDef{
		TypeIndex: typeIdx,
		Body: []ir.Instruction{
			{Opcode: ir.OpcodeI32Const, I32: val},
			{Opcode: ir.OpcodeEnd},
		},
	}
}

func TestInstantiate_ExportsAndInvokesFunction(t *testing.T) {
	ft := &ir.FunctionType{Results: []ir.ValueType{ir.ValueTypeI32}}
	m := &ir.Module{
		Types:     []*ir.FunctionType{ft},
		Functions: ir.FunctionIndexSpace{Defs: []*ir.FunctionDef{i32ConstFn(0, 42)}},
		Exports:   map[string]*ir.Export{"answer": {Kind: ir.ExternKindFunc, Name: "answer", Index: 0}},
	}

	c := NewCompartment()
	ctx := CreateContext(c)
	inst, err := Instantiate(ctx, m, nil, interp.NewInterpreterBackend())
	require.NoError(t, err)

	fn, ok := inst.Exports["answer"].(*Function)
	require.True(t, ok)

	results, trap := Invoke(ctx, fn, nil)
	require.Nil(t, trap)
	require.Equal(t, int32(42), results[0].I32)
}

func TestInstantiate_MissingImportCountRejected(t *testing.T) {
	m := &ir.Module{
		Types:     []*ir.FunctionType{{}},
		Imports:   []*ir.Import{{Kind: ir.ExternKindFunc, Module: "env", Name: "f", DescFunc: 0}},
		Functions: ir.FunctionIndexSpace{ImportCount: 1},
	}
	c := NewCompartment()
	ctx := CreateContext(c)
	_, err := Instantiate(ctx, m, nil, interp.NewInterpreterBackend())
	require.Error(t, err)
}

func TestInstantiate_ValidationFailurePropagates(t *testing.T) {
	ft := &ir.FunctionType{Results: []ir.ValueType{ir.ValueTypeI32}}
	m := &ir.Module{
		Types: []*ir.FunctionType{ft},
		Functions: ir.FunctionIndexSpace{Defs: []*ir.FunctionDef{{
			TypeIndex: 0,
			Body:      []ir.Instruction{{Opcode: ir.OpcodeEnd}}, // no i32 pushed, type mismatch
		}}},
	}
	c := NewCompartment()
	ctx := CreateContext(c)
	_, err := Instantiate(ctx, m, nil, interp.NewInterpreterBackend())
	require.Error(t, err)
}

func TestInstantiate_ActiveDataSegmentWritesMemory(t *testing.T) {
	m := &ir.Module{
		Memories: ir.MemoryIndexSpace{Defs: []*ir.MemoryType{{Min: 1}}},
		DataSegments: []*ir.DataSegment{{
			Active:     true,
			OffsetExpr: &ir.ConstantExpression{Opcode: ir.OpcodeI32Const, I32: 4},
			Init:       []byte{1, 2, 3},
		}},
	}
	c := NewCompartment()
	ctx := CreateContext(c)
	inst, err := Instantiate(ctx, m, nil, interp.NewInterpreterBackend())
	require.NoError(t, err)

	dst := make([]byte, 3)
	require.NoError(t, inst.Memories[0].Read(4, dst))
	require.Equal(t, []byte{1, 2, 3}, dst)
}

func TestInstantiate_EmptyActiveDataSegmentOutOfBoundsOffsetTraps(t *testing.T) {
	m := &ir.Module{
		Memories: ir.MemoryIndexSpace{Defs: []*ir.MemoryType{{Min: 1}}},
		DataSegments: []*ir.DataSegment{{
			Active:     true,
			OffsetExpr: &ir.ConstantExpression{Opcode: ir.OpcodeI32Const, I32: WasmPageSize + 1},
			Init:       nil, // empty segment: no Write call to catch the bad offset
		}},
	}
	c := NewCompartment()
	ctx := CreateContext(c)
	_, err := Instantiate(ctx, m, nil, interp.NewInterpreterBackend())
	require.ErrorIs(t, err, ErrOutOfBoundsMemoryAccess)
}

func TestInstantiate_PassiveDataSegmentSnapshotted(t *testing.T) {
	m := &ir.Module{
		DataSegments: []*ir.DataSegment{{Active: false, Init: []byte{9, 9}}},
	}
	c := NewCompartment()
	ctx := CreateContext(c)
	inst, err := Instantiate(ctx, m, nil, interp.NewInterpreterBackend())
	require.NoError(t, err)
	require.Equal(t, []byte{9, 9}, inst.dataSegment(0))
}

func TestInstantiate_ActiveElementSegmentPopulatesTable(t *testing.T) {
	ft := &ir.FunctionType{Results: []ir.ValueType{ir.ValueTypeI32}}
	m := &ir.Module{
		Types:     []*ir.FunctionType{ft},
		Functions: ir.FunctionIndexSpace{Defs: []*ir.FunctionDef{i32ConstFn(0, 5)}},
		Tables:    ir.TableIndexSpace{Defs: []*ir.TableType{{ElemType: ir.ValueTypeFuncref, Limits: ir.Limits{Min: 2}}}},
		ElementSegments: []*ir.ElementSegment{{
			Active:     true,
			OffsetExpr: &ir.ConstantExpression{Opcode: ir.OpcodeI32Const, I32: 0},
			Init:       []ir.Index{0},
		}},
	}
	c := NewCompartment()
	ctx := CreateContext(c)
	inst, err := Instantiate(ctx, m, nil, interp.NewInterpreterBackend())
	require.NoError(t, err)

	fn, err := inst.Tables[0].Get(0)
	require.NoError(t, err)
	require.Same(t, inst.Functions[0], fn)
}

func TestInstantiate_StartFunctionRuns(t *testing.T) {
	ft := &ir.FunctionType{}
	memWriteFt := &ir.FunctionType{}
	start := ir.Index(0)
	m := &ir.Module{
		Types:     []*ir.FunctionType{ft, memWriteFt},
		Memories:  ir.MemoryIndexSpace{Defs: []*ir.MemoryType{{Min: 1}}},
		Functions: ir.FunctionIndexSpace{Defs: []*ir.FunctionDef{{
			TypeIndex: 0,
			Body: []ir.Instruction{
				{Opcode: ir.OpcodeI32Const, I32: 0},
				{Opcode: ir.OpcodeI32Const, I32: 42},
				{Opcode: ir.OpcodeI32Store, MemArg: ir.MemArg{}},
				{Opcode: ir.OpcodeEnd},
			},
		}}},
		StartFunctionIndex: &start,
	}
	c := NewCompartment()
	ctx := CreateContext(c)
	inst, err := Instantiate(ctx, m, nil, interp.NewInterpreterBackend())
	require.NoError(t, err)

	dst := make([]byte, 4)
	require.NoError(t, inst.Memories[0].Read(0, dst))
	require.Equal(t, byte(42), dst[0], "42 fits in one little-endian byte")
}

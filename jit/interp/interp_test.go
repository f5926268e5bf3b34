package interp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hack-chain/WAVM/internal/ir"
	"github.com/hack-chain/WAVM/jit"
)

// fakeHost is a minimal jit.Host that keeps its own memory/table/global
// storage in plain Go slices, so this package's Call tests can exercise
// instructions that cross the Host boundary without depending on the
// runtime package (which itself depends on jit, so a real dependency
// would be circular).
type fakeHost struct {
	globals []ir.Value
	memory  []byte
	table   []ir.Index
	funcs   []jit.CompiledFunction
}

func (h *fakeHost) CallFunction(index ir.Index, args []ir.Value) ([]ir.Value, *jit.Trap) {
	return h.funcs[index].Call(h, args)
}

func (h *fakeHost) CallIndirect(tableIndex, elemIndex, typeIndex ir.Index, args []ir.Value) ([]ir.Value, *jit.Trap) {
	return h.funcs[h.table[elemIndex]].Call(h, args)
}

func (h *fakeHost) GlobalGet(index ir.Index) ir.Value      { return h.globals[index] }
func (h *fakeHost) GlobalSet(index ir.Index, v ir.Value)   { h.globals[index] = v }
func (h *fakeHost) MemorySize(ir.Index) uint32             { return uint32(len(h.memory) / 65536) }
func (h *fakeHost) MemoryGrow(ir.Index, uint32) int32      { return -1 }
func (h *fakeHost) MemoryRead(_ ir.Index, offset uint32, buf []byte) *jit.Trap {
	copy(buf, h.memory[offset:offset+uint32(len(buf))])
	return nil
}
func (h *fakeHost) MemoryWrite(_ ir.Index, offset uint32, buf []byte) *jit.Trap {
	copy(h.memory[offset:offset+uint32(len(buf))], buf)
	return nil
}
func (h *fakeHost) TableSize(ir.Index) uint32 { return uint32(len(h.table)) }
func (h *fakeHost) TableGet(_, elemIndex ir.Index) (ir.Index, bool, *jit.Trap) {
	return h.table[elemIndex], true, nil
}
func (h *fakeHost) TableSet(_, elemIndex, funcIndex ir.Index) *jit.Trap {
	h.table[elemIndex] = funcIndex
	return nil
}
func (h *fakeHost) TableInit(_, _, _, _, _ ir.Index) *jit.Trap { return nil }
func (h *fakeHost) ElemDrop(ir.Index)                          {}
func (h *fakeHost) MemoryInit(_, _ ir.Index, _, _, _ uint32) *jit.Trap { return nil }
func (h *fakeHost) DataDrop(ir.Index)                                  {}

func i(op ir.Opcode) ir.Instruction { return ir.Instruction{Opcode: op} }

func compileOne(t *testing.T, ft *ir.FunctionType, body []ir.Instruction) jit.CompiledFunction {
	t.Helper()
	m := &ir.Module{
		Types:     []*ir.FunctionType{ft},
		Functions: ir.FunctionIndexSpace{Defs: []*ir.FunctionDef{{TypeIndex: 0, Body: body}}},
	}
	fns, err := NewInterpreterBackend().Compile(m)
	require.NoError(t, err)
	require.Len(t, fns, 1)
	return fns[0]
}

func TestCall_ConstAdd(t *testing.T) {
	ft := &ir.FunctionType{Results: []ir.ValueType{ir.ValueTypeI32}}
	fn := compileOne(t, ft, []ir.Instruction{
		{Opcode: ir.OpcodeI32Const, I32: 2},
		{Opcode: ir.OpcodeI32Const, I32: 3},
		i(ir.OpcodeI32Add),
		i(ir.OpcodeEnd),
	})

	results, trap := fn.Call(&fakeHost{}, nil)
	require.Nil(t, trap)
	require.Equal(t, int32(5), results[0].I32)
}

func TestCall_LocalGetSet(t *testing.T) {
	ft := &ir.FunctionType{Params: []ir.ValueType{ir.ValueTypeI32}, Results: []ir.ValueType{ir.ValueTypeI32}}
	fn := compileOne(t, ft, []ir.Instruction{
		{Opcode: ir.OpcodeI32Const, I32: 10},
		{Opcode: ir.OpcodeLocalSet, Index: 0},
		{Opcode: ir.OpcodeLocalGet, Index: 0},
		i(ir.OpcodeEnd),
	})

	results, trap := fn.Call(&fakeHost{}, []ir.Value{ir.I32Value(1)})
	require.Nil(t, trap)
	require.Equal(t, int32(10), results[0].I32)
}

func TestCall_IfElseTakesTrueBranch(t *testing.T) {
	ft := &ir.FunctionType{Results: []ir.ValueType{ir.ValueTypeI32}}
	fn := compileOne(t, ft, []ir.Instruction{
		{Opcode: ir.OpcodeI32Const, I32: 1},
		{Opcode: ir.OpcodeIf, Block: ir.BlockType{FunctionTypeIndex: -1, Results: []ir.ValueType{ir.ValueTypeI32}}},
		{Opcode: ir.OpcodeI32Const, I32: 100},
		i(ir.OpcodeElse),
		{Opcode: ir.OpcodeI32Const, I32: 200},
		i(ir.OpcodeEnd), // end if
		i(ir.OpcodeEnd), // end function
	})

	results, trap := fn.Call(&fakeHost{}, nil)
	require.Nil(t, trap)
	require.Equal(t, int32(100), results[0].I32)
}

func TestCall_IfElseTakesFalseBranch(t *testing.T) {
	ft := &ir.FunctionType{Results: []ir.ValueType{ir.ValueTypeI32}}
	fn := compileOne(t, ft, []ir.Instruction{
		{Opcode: ir.OpcodeI32Const, I32: 0},
		{Opcode: ir.OpcodeIf, Block: ir.BlockType{FunctionTypeIndex: -1, Results: []ir.ValueType{ir.ValueTypeI32}}},
		{Opcode: ir.OpcodeI32Const, I32: 100},
		i(ir.OpcodeElse),
		{Opcode: ir.OpcodeI32Const, I32: 200},
		i(ir.OpcodeEnd),
		i(ir.OpcodeEnd),
	})

	results, trap := fn.Call(&fakeHost{}, nil)
	require.Nil(t, trap)
	require.Equal(t, int32(200), results[0].I32)
}

func TestCall_LoopCountsToFive(t *testing.T) {
	// local 0 = counter. loop { counter++; br_if loop while counter < 5 }
	ft := &ir.FunctionType{Results: []ir.ValueType{ir.ValueTypeI32}}
	m := &ir.Module{
		Types: []*ir.FunctionType{ft},
		Functions: ir.FunctionIndexSpace{Defs: []*ir.FunctionDef{{
			TypeIndex:  0,
			LocalTypes: []ir.ValueType{ir.ValueTypeI32},
			Body: []ir.Instruction{
				{Opcode: ir.OpcodeLoop, Block: ir.BlockType{FunctionTypeIndex: -1}},
				{Opcode: ir.OpcodeLocalGet, Index: 0},
				{Opcode: ir.OpcodeI32Const, I32: 1},
				i(ir.OpcodeI32Add),
				{Opcode: ir.OpcodeLocalSet, Index: 0},
				{Opcode: ir.OpcodeLocalGet, Index: 0},
				{Opcode: ir.OpcodeI32Const, I32: 5},
				i(ir.OpcodeI32LtS),
				{Opcode: ir.OpcodeBrIf, Index: 0},
				i(ir.OpcodeEnd), // end loop
				{Opcode: ir.OpcodeLocalGet, Index: 0},
				i(ir.OpcodeEnd), // end function
			},
		}}},
	}
	fns, err := NewInterpreterBackend().Compile(m)
	require.NoError(t, err)

	results, trap := fns[0].Call(&fakeHost{}, nil)
	require.Nil(t, trap)
	require.Equal(t, int32(5), results[0].I32)
}

func TestCall_BrIfBreaksOutOfBlockCarryingResult(t *testing.T) {
	ft := &ir.FunctionType{Results: []ir.ValueType{ir.ValueTypeI32}}
	fn := compileOne(t, ft, []ir.Instruction{
		{Opcode: ir.OpcodeBlock, Block: ir.BlockType{FunctionTypeIndex: -1, Results: []ir.ValueType{ir.ValueTypeI32}}},
		{Opcode: ir.OpcodeI32Const, I32: 42},
		{Opcode: ir.OpcodeI32Const, I32: 1},
		{Opcode: ir.OpcodeBrIf, Index: 0},
		i(ir.OpcodeEnd), // end block
		i(ir.OpcodeEnd), // end function
	})

	results, trap := fn.Call(&fakeHost{}, nil)
	require.Nil(t, trap)
	require.Equal(t, int32(42), results[0].I32)
}

func TestCall_UnreachableTraps(t *testing.T) {
	ft := &ir.FunctionType{}
	fn := compileOne(t, ft, []ir.Instruction{
		i(ir.OpcodeUnreachable),
		i(ir.OpcodeEnd),
	})

	_, trap := fn.Call(&fakeHost{}, nil)
	require.NotNil(t, trap)
	require.Equal(t, jit.TrapUnreachable, trap.Code)
}

func TestCall_MemoryStoreThenLoad(t *testing.T) {
	ft := &ir.FunctionType{Results: []ir.ValueType{ir.ValueTypeI32}}
	fn := compileOne(t, ft, []ir.Instruction{
		{Opcode: ir.OpcodeI32Const, I32: 0},
		{Opcode: ir.OpcodeI32Const, I32: 77},
		{Opcode: ir.OpcodeI32Store},
		{Opcode: ir.OpcodeI32Const, I32: 0},
		{Opcode: ir.OpcodeI32Load},
		i(ir.OpcodeEnd),
	})

	host := &fakeHost{memory: make([]byte, 65536)}
	results, trap := fn.Call(host, nil)
	require.Nil(t, trap)
	require.Equal(t, int32(77), results[0].I32)
}

func TestCall_GlobalGetSet(t *testing.T) {
	ft := &ir.FunctionType{Results: []ir.ValueType{ir.ValueTypeI32}}
	fn := compileOne(t, ft, []ir.Instruction{
		{Opcode: ir.OpcodeI32Const, I32: 55},
		{Opcode: ir.OpcodeGlobalSet, Index: 0},
		{Opcode: ir.OpcodeGlobalGet, Index: 0},
		i(ir.OpcodeEnd),
	})

	host := &fakeHost{globals: []ir.Value{ir.I32Value(0)}}
	results, trap := fn.Call(host, nil)
	require.Nil(t, trap)
	require.Equal(t, int32(55), results[0].I32)
}

func TestCall_CallCrossesHostBoundary(t *testing.T) {
	calleeType := &ir.FunctionType{Results: []ir.ValueType{ir.ValueTypeI32}}
	callee := compileOne(t, calleeType, []ir.Instruction{
		{Opcode: ir.OpcodeI32Const, I32: 3},
		i(ir.OpcodeEnd),
	})

	m := &ir.Module{
		Types: []*ir.FunctionType{calleeType},
		Functions: ir.FunctionIndexSpace{Defs: []*ir.FunctionDef{{
			TypeIndex: 0,
			Body: []ir.Instruction{
				{Opcode: ir.OpcodeCall, Index: 0},
				i(ir.OpcodeEnd),
			},
		}}},
	}
	fns, err := NewInterpreterBackend().Compile(m)
	require.NoError(t, err)

	host := &fakeHost{funcs: []jit.CompiledFunction{callee}}
	results, trap := fns[0].Call(host, nil)
	require.Nil(t, trap)
	require.Equal(t, int32(3), results[0].I32)
}

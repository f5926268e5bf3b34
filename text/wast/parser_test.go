package wast

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hack-chain/WAVM/internal/ir"
)

func parse(t *testing.T, src string) *ir.Module {
	t.Helper()
	m, errs := New().Parse([]byte(src))
	require.Empty(t, errs, "%v", errs)
	require.NotNil(t, m)
	return m
}

func TestParse_EmptyModule(t *testing.T) {
	m := parse(t, `(module)`)
	require.Empty(t, m.Types)
	require.Empty(t, m.Imports)
	require.Empty(t, m.Exports)
}

func TestParse_ExportedConstFunction(t *testing.T) {
	m := parse(t, `(module (func (export "f") (result i32) i32.const 42))`)

	require.Len(t, m.Functions.Defs, 1)
	exp, ok := m.Exports["f"]
	require.True(t, ok)
	require.Equal(t, ir.ExternKindFunc, exp.Kind)
	require.Equal(t, ir.Index(0), exp.Index)

	def := m.Functions.Defs[0]
	ft := m.Types[def.TypeIndex]
	require.Empty(t, ft.Params)
	require.Equal(t, []ir.ValueType{ir.ValueTypeI32}, ft.Results)

	require.Equal(t, []ir.Instruction{
		{Opcode: ir.OpcodeI32Const, I32: 42},
		{Opcode: ir.OpcodeEnd},
	}, def.Body)
}

func TestParse_MemoryStoreLoad(t *testing.T) {
	m := parse(t, `(module
		(memory 1)
		(func (export "store") (param i32 i32) local.get 0 local.get 1 i32.store)
		(func (export "load") (param i32) (result i32) local.get 0 i32.load))`)

	require.Equal(t, uint32(1), m.Memories.Defs[0].Min)
	require.Nil(t, m.Memories.Defs[0].Max)

	store := m.Functions.Defs[0]
	require.Equal(t, []ir.Instruction{
		{Opcode: ir.OpcodeLocalGet, Index: 0},
		{Opcode: ir.OpcodeLocalGet, Index: 1},
		{Opcode: ir.OpcodeI32Store, MemArg: ir.MemArg{Align: 2}},
		{Opcode: ir.OpcodeEnd},
	}, store.Body)

	load := m.Functions.Defs[1]
	require.Equal(t, []ir.Instruction{
		{Opcode: ir.OpcodeLocalGet, Index: 0},
		{Opcode: ir.OpcodeI32Load, MemArg: ir.MemArg{Align: 2}},
		{Opcode: ir.OpcodeEnd},
	}, load.Body)
}

func TestParse_TableElemCallIndirect(t *testing.T) {
	m := parse(t, `(module
		(table 1 anyfunc)
		(func $g (result i32) i32.const 7)
		(elem (i32.const 0) $g)
		(func (export "call0") (result i32) i32.const 0 call_indirect (result i32)))`)

	require.Equal(t, ir.ValueTypeFuncref, m.Tables.Defs[0].ElemType)
	require.Equal(t, uint32(1), m.Tables.Defs[0].Limits.Min)

	require.Len(t, m.ElementSegments, 1)
	seg := m.ElementSegments[0]
	require.True(t, seg.Active)
	require.Equal(t, ir.OpcodeI32Const, seg.OffsetExpr.Opcode)
	require.Equal(t, int32(0), seg.OffsetExpr.I32)
	require.Equal(t, []ir.Index{0}, seg.Init) // $g resolves to function index 0

	call0 := m.Functions.Defs[1]
	require.Equal(t, ir.OpcodeCallIndirect, call0.Body[1].Opcode)
	callTypeIdx := call0.Body[1].Index
	require.Equal(t, []ir.ValueType{ir.ValueTypeI32}, m.Types[callTypeIdx].Results)
}

func TestParse_BlockLoopBranch(t *testing.T) {
	// Counts down from local 0 to zero, folded and flat forms mixed, the
	// way hand-written fixtures in this corpus tend to.
	m := parse(t, `(module (func (param i32)
		(block $done
			(loop $top
				local.get 0
				i32.eqz
				br_if $done
				local.get 0
				i32.const 1
				i32.sub
				local.set 0
				br $top))))`)

	body := m.Functions.Defs[0].Body
	require.Equal(t, ir.OpcodeBlock, body[0].Opcode)
	require.Equal(t, ir.OpcodeLoop, body[1].Opcode)

	// br_if $done is two block levels out from inside the loop: loop (0),
	// block (1).
	var brIf, br ir.Instruction
	for _, ins := range body {
		switch ins.Opcode {
		case ir.OpcodeBrIf:
			brIf = ins
		case ir.OpcodeBr:
			br = ins
		}
	}
	require.Equal(t, ir.Index(1), brIf.Index)
	require.Equal(t, ir.Index(0), br.Index)

	require.Equal(t, ir.OpcodeEnd, body[len(body)-1].Opcode)
}

func TestParse_IfElse(t *testing.T) {
	m := parse(t, `(module (func (param i32) (result i32)
		local.get 0
		(if (result i32)
			(then i32.const 1)
			(else i32.const 0))))`)

	body := m.Functions.Defs[0].Body
	require.Equal(t, []ir.Opcode{
		ir.OpcodeLocalGet, ir.OpcodeIf, ir.OpcodeI32Const, ir.OpcodeElse,
		ir.OpcodeI32Const, ir.OpcodeEnd, ir.OpcodeEnd,
	}, opcodesOf(body))
}

func TestParse_FoldedCallIndirectArgs(t *testing.T) {
	m := parse(t, `(module
		(type $binop (func (param i32 i32) (result i32)))
		(table 1 funcref)
		(func $add (param i32 i32) (result i32) local.get 0 local.get 1 i32.add)
		(elem (i32.const 0) $add)
		(func (export "apply") (result i32)
			(call_indirect (type $binop) (i32.const 2) (i32.const 3) (i32.const 0))))`)

	apply := m.Functions.Defs[1]
	require.Equal(t, []ir.Opcode{
		ir.OpcodeI32Const, ir.OpcodeI32Const, ir.OpcodeI32Const,
		ir.OpcodeCallIndirect, ir.OpcodeEnd,
	}, opcodesOf(apply.Body))
}

func TestParse_DataSegmentAndMemoryInit(t *testing.T) {
	m := parse(t, `(module
		(memory 1)
		(data $d (i32.const 0) "\00\01hi")
		(func (export "init") memory.size drop memory.init 0 drop))`)

	require.Len(t, m.DataSegments, 1)
	require.Equal(t, []byte{0x00, 0x01, 'h', 'i'}, m.DataSegments[0].Init)
	require.True(t, m.DataSegments[0].Active)
}

func TestParse_UnknownInstructionReportsSyntaxError(t *testing.T) {
	_, errs := New().Parse([]byte(`(module (func i32.frobnicate))`))
	require.NotEmpty(t, errs)
}

func TestParse_UnbalancedParenReportsSyntaxError(t *testing.T) {
	_, errs := New().Parse([]byte(`(module (func (result i32) i32.const 1)`))
	require.NotEmpty(t, errs)
}

func opcodesOf(body []ir.Instruction) []ir.Opcode {
	out := make([]ir.Opcode, len(body))
	for i, ins := range body {
		out[i] = ins.Opcode
	}
	return out
}

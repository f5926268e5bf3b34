package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hack-chain/WAVM/internal/ir"
	"github.com/hack-chain/WAVM/jit"
	"github.com/hack-chain/WAVM/jit/interp"
)

func TestInvoke_HostFunctionDirect(t *testing.T) {
	c := NewCompartment()
	ctx := CreateContext(c)
	fn := CreateHostFunction(c, &ir.FunctionType{Results: []ir.ValueType{ir.ValueTypeI32}},
		func(args []ir.Value) ([]ir.Value, *jit.Trap) {
			return []ir.Value{ir.I32Value(9)}, nil
		})

	results, trap := Invoke(ctx, fn, nil)
	require.Nil(t, trap)
	require.Equal(t, int32(9), results[0].I32)
}

func TestInvoke_HostFunctionTrapGetsHostCallStack(t *testing.T) {
	c := NewCompartment()
	ctx := CreateContext(c)
	fn := CreateHostFunction(c, &ir.FunctionType{}, func(args []ir.Value) ([]ir.Value, *jit.Trap) {
		return nil, jit.NewTrap(jit.TrapUnreachable)
	})

	_, trap := Invoke(ctx, fn, nil)
	require.NotNil(t, trap)
	require.Equal(t, []string{"<host>"}, trap.CallStack)
}

func TestInvoke_CompiledFunctionCallsAnother(t *testing.T) {
	// $callee: () -> i32, returns 5. $caller: () -> i32, calls $callee.
	calleeType := &ir.FunctionType{Results: []ir.ValueType{ir.ValueTypeI32}}
	m := &ir.Module{
		Types: []*ir.FunctionType{calleeType},
		Functions: ir.FunctionIndexSpace{Defs: []*ir.FunctionDef{
			{TypeIndex: 0, Body: []ir.Instruction{
				{Opcode: ir.OpcodeI32Const, I32: 5},
				{Opcode: ir.OpcodeEnd},
			}},
			{TypeIndex: 0, Body: []ir.Instruction{
				{Opcode: ir.OpcodeCall, Index: 0},
				{Opcode: ir.OpcodeEnd},
			}},
		}},
		Exports: map[string]*ir.Export{"caller": {Kind: ir.ExternKindFunc, Name: "caller", Index: 1}},
	}

	c := NewCompartment()
	ctx := CreateContext(c)
	inst, err := Instantiate(ctx, m, nil, interp.NewInterpreterBackend())
	require.NoError(t, err)

	results, trap := Invoke(ctx, inst.Exports["caller"].(*Function), nil)
	require.Nil(t, trap)
	require.Equal(t, int32(5), results[0].I32)
}

func TestInvoke_UnreachableTrapCarriesCallStack(t *testing.T) {
	m := &ir.Module{
		Types: []*ir.FunctionType{{}},
		Functions: ir.FunctionIndexSpace{Defs: []*ir.FunctionDef{
			{TypeIndex: 0, Body: []ir.Instruction{
				{Opcode: ir.OpcodeUnreachable},
				{Opcode: ir.OpcodeEnd},
			}},
		}},
		Exports: map[string]*ir.Export{"boom": {Kind: ir.ExternKindFunc, Name: "boom", Index: 0}},
	}

	c := NewCompartment()
	ctx := CreateContext(c)
	inst, err := Instantiate(ctx, m, nil, interp.NewInterpreterBackend())
	require.NoError(t, err)

	_, trap := Invoke(ctx, inst.Exports["boom"].(*Function), nil)
	require.NotNil(t, trap)
	require.Equal(t, jit.TrapUnreachable, trap.Code)
}

func TestInvoke_CallIndirectTypeMismatchTraps(t *testing.T) {
	wantType := &ir.FunctionType{Results: []ir.ValueType{ir.ValueTypeI32}}
	haveType := &ir.FunctionType{Results: []ir.ValueType{ir.ValueTypeI64}}
	m := &ir.Module{
		Types:  []*ir.FunctionType{wantType, haveType},
		Tables: ir.TableIndexSpace{Defs: []*ir.TableType{{ElemType: ir.ValueTypeFuncref, Limits: ir.Limits{Min: 1}}}},
		Functions: ir.FunctionIndexSpace{Defs: []*ir.FunctionDef{
			{TypeIndex: 1, Body: []ir.Instruction{
				{Opcode: ir.OpcodeI64Const, I64: 1},
				{Opcode: ir.OpcodeEnd},
			}},
			{TypeIndex: 0, Body: []ir.Instruction{
				{Opcode: ir.OpcodeI32Const, I32: 0},
				{Opcode: ir.OpcodeCallIndirect, Index: 0},
				{Opcode: ir.OpcodeEnd},
			}},
		}},
		ElementSegments: []*ir.ElementSegment{{
			Active:     true,
			OffsetExpr: &ir.ConstantExpression{Opcode: ir.OpcodeI32Const, I32: 0},
			Init:       []ir.Index{0},
		}},
		Exports: map[string]*ir.Export{"caller": {Kind: ir.ExternKindFunc, Name: "caller", Index: 1}},
	}

	c := NewCompartment()
	ctx := CreateContext(c)
	inst, err := Instantiate(ctx, m, nil, interp.NewInterpreterBackend())
	require.NoError(t, err)

	_, trap := Invoke(ctx, inst.Exports["caller"].(*Function), nil)
	require.NotNil(t, trap)
	require.Equal(t, jit.TrapIndirectCallTypeMismatch, trap.Code)
}

func TestInvoke_CallIndirectNullElementTraps(t *testing.T) {
	wantType := &ir.FunctionType{Results: []ir.ValueType{ir.ValueTypeI32}}
	m := &ir.Module{
		Types:  []*ir.FunctionType{wantType},
		Tables: ir.TableIndexSpace{Defs: []*ir.TableType{{ElemType: ir.ValueTypeFuncref, Limits: ir.Limits{Min: 1}}}},
		Functions: ir.FunctionIndexSpace{Defs: []*ir.FunctionDef{
			{TypeIndex: 0, Body: []ir.Instruction{
				{Opcode: ir.OpcodeI32Const, I32: 0},
				{Opcode: ir.OpcodeCallIndirect, Index: 0},
				{Opcode: ir.OpcodeEnd},
			}},
		}},
		// No ElementSegments: the table's single slot is never set, so
		// elemIndex 0 is in bounds but null.
		Exports: map[string]*ir.Export{"caller": {Kind: ir.ExternKindFunc, Name: "caller", Index: 0}},
	}

	c := NewCompartment()
	ctx := CreateContext(c)
	inst, err := Instantiate(ctx, m, nil, interp.NewInterpreterBackend())
	require.NoError(t, err)

	_, trap := Invoke(ctx, inst.Exports["caller"].(*Function), nil)
	require.NotNil(t, trap)
	require.Equal(t, jit.TrapIndirectCallTypeMismatch, trap.Code)
}

func TestInvoke_CallStackAccumulatesAcrossNestedCalls(t *testing.T) {
	// $a calls $b, $b calls $c, $c traps with unreachable. The reported
	// call stack must carry all three frames, outermost first.
	noResults := &ir.FunctionType{}
	m := &ir.Module{
		Types: []*ir.FunctionType{noResults},
		Functions: ir.FunctionIndexSpace{Defs: []*ir.FunctionDef{
			{TypeIndex: 0, Body: []ir.Instruction{ // $c, index 0
				{Opcode: ir.OpcodeUnreachable},
				{Opcode: ir.OpcodeEnd},
			}},
			{TypeIndex: 0, Body: []ir.Instruction{ // $b, index 1
				{Opcode: ir.OpcodeCall, Index: 0},
				{Opcode: ir.OpcodeEnd},
			}},
			{TypeIndex: 0, Body: []ir.Instruction{ // $a, index 2
				{Opcode: ir.OpcodeCall, Index: 1},
				{Opcode: ir.OpcodeEnd},
			}},
		}},
		Exports: map[string]*ir.Export{
			"c": {Kind: ir.ExternKindFunc, Name: "c", Index: 0},
			"b": {Kind: ir.ExternKindFunc, Name: "b", Index: 1},
			"a": {Kind: ir.ExternKindFunc, Name: "a", Index: 2},
		},
	}

	c := NewCompartment()
	ctx := CreateContext(c)
	inst, err := Instantiate(ctx, m, nil, interp.NewInterpreterBackend())
	require.NoError(t, err)

	_, trap := Invoke(ctx, inst.Exports["a"].(*Function), nil)
	require.NotNil(t, trap)
	require.Equal(t, []string{"a", "b", "c"}, trap.CallStack)
}

package validate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hack-chain/WAVM/internal/ir"
)

func i(op ir.Opcode) ir.Instruction { return ir.Instruction{Opcode: op} }

func idx(op ir.Opcode, n ir.Index) ir.Instruction { return ir.Instruction{Opcode: op, Index: n} }

func TestValidateFunction_ConstReturn(t *testing.T) {
	ft := &ir.FunctionType{Results: []ir.ValueType{ir.ValueTypeI32}}
	body := []ir.Instruction{
		{Opcode: ir.OpcodeI32Const, I32: 42},
		i(ir.OpcodeEnd),
	}
	res, err := ValidateFunction(0, ft, nil, body, &Signature{})
	require.NoError(t, err)
	require.Equal(t, int32(-1), res.MaxDataSegmentIndex)
}

func TestValidateFunction_TypeMismatchRejected(t *testing.T) {
	ft := &ir.FunctionType{Results: []ir.ValueType{ir.ValueTypeI32}}
	body := []ir.Instruction{
		{Opcode: ir.OpcodeF32Const, F32: 1.5},
		i(ir.OpcodeEnd),
	}
	_, err := ValidateFunction(0, ft, nil, body, &Signature{})
	require.Error(t, err)
	var verr *Error
	require.ErrorAs(t, err, &verr)
}

func TestValidateFunction_StackUnderflowRejected(t *testing.T) {
	ft := &ir.FunctionType{Results: []ir.ValueType{ir.ValueTypeI32}}
	body := []ir.Instruction{i(ir.OpcodeEnd)}
	_, err := ValidateFunction(0, ft, nil, body, &Signature{})
	require.Error(t, err)
}

func TestValidateFunction_LocalGetSetRoundTrips(t *testing.T) {
	ft := &ir.FunctionType{Params: []ir.ValueType{ir.ValueTypeI32}, Results: []ir.ValueType{ir.ValueTypeI32}}
	body := []ir.Instruction{
		idx(ir.OpcodeLocalGet, 0),
		idx(ir.OpcodeLocalSet, 0),
		idx(ir.OpcodeLocalGet, 0),
		i(ir.OpcodeEnd),
	}
	_, err := ValidateFunction(0, ft, nil, body, &Signature{})
	require.NoError(t, err)
}

func TestValidateFunction_UnreachableMakesFollowingCodePolymorphic(t *testing.T) {
	// After unreachable, pops of any type succeed on the emptied stack (the
	// two i64 operands of i64.add here) while pushes stay concrete, matching
	// the spec's polymorphic-stack rule.
	ft := &ir.FunctionType{Results: []ir.ValueType{ir.ValueTypeI64}}
	body := []ir.Instruction{
		i(ir.OpcodeUnreachable),
		i(ir.OpcodeI64Add),
		i(ir.OpcodeEnd),
	}
	_, err := ValidateFunction(0, ft, nil, body, &Signature{})
	require.NoError(t, err)
}

func TestValidateFunction_BlockWithResultType(t *testing.T) {
	ft := &ir.FunctionType{Results: []ir.ValueType{ir.ValueTypeI32}}
	body := []ir.Instruction{
		{Opcode: ir.OpcodeBlock, Block: ir.BlockType{FunctionTypeIndex: -1, Results: []ir.ValueType{ir.ValueTypeI32}}},
		{Opcode: ir.OpcodeI32Const, I32: 1},
		i(ir.OpcodeEnd), // end of block
		i(ir.OpcodeEnd), // end of function
	}
	_, err := ValidateFunction(0, ft, nil, body, &Signature{})
	require.NoError(t, err)
}

func TestValidateFunction_BranchOutOfDepthRejected(t *testing.T) {
	ft := &ir.FunctionType{}
	body := []ir.Instruction{
		idx(ir.OpcodeBr, 5),
		i(ir.OpcodeEnd),
	}
	_, err := ValidateFunction(0, ft, nil, body, &Signature{})
	require.Error(t, err)
}

func TestValidateFunction_CallChecksCalleeSignature(t *testing.T) {
	ft := &ir.FunctionType{}
	callee := &ir.FunctionType{Params: []ir.ValueType{ir.ValueTypeI32}, Results: []ir.ValueType{ir.ValueTypeI32}}
	sig := &Signature{FunctionTypes: []*ir.FunctionType{callee}}

	// Missing the i32 argument call 0 needs.
	body := []ir.Instruction{
		idx(ir.OpcodeCall, 0),
		i(ir.OpcodeDrop),
		i(ir.OpcodeEnd),
	}
	_, err := ValidateFunction(0, ft, nil, body, sig)
	require.Error(t, err)

	ok := []ir.Instruction{
		{Opcode: ir.OpcodeI32Const, I32: 1},
		idx(ir.OpcodeCall, 0),
		i(ir.OpcodeDrop),
		i(ir.OpcodeEnd),
	}
	_, err = ValidateFunction(0, ft, nil, ok, sig)
	require.NoError(t, err)
}

func TestValidateFunction_MaxStackValuesEnforced(t *testing.T) {
	ft := &ir.FunctionType{}
	body := []ir.Instruction{
		{Opcode: ir.OpcodeI32Const, I32: 1},
		i(ir.OpcodeDrop),
		i(ir.OpcodeEnd),
	}
	_, err := ValidateFunction(0, ft, nil, body, &Signature{MaxStackValues: 0})
	require.NoError(t, err)

	tooDeep := []ir.Instruction{
		{Opcode: ir.OpcodeI32Const, I32: 1},
		{Opcode: ir.OpcodeI32Const, I32: 2},
		i(ir.OpcodeDrop),
		i(ir.OpcodeDrop),
		i(ir.OpcodeEnd),
	}
	_, err = ValidateFunction(0, ft, nil, tooDeep, &Signature{MaxStackValues: 1})
	require.Error(t, err)
}

func TestValidateFunction_MissingEndRejected(t *testing.T) {
	ft := &ir.FunctionType{}
	body := []ir.Instruction{{Opcode: ir.OpcodeBlock, Block: ir.BlockType{FunctionTypeIndex: -1}}}
	_, err := ValidateFunction(0, ft, nil, body, &Signature{})
	require.Error(t, err)
}

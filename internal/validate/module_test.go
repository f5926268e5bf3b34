package validate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hack-chain/WAVM/internal/ir"
)

func constI32Module() *ir.Module {
	ft := &ir.FunctionType{Results: []ir.ValueType{ir.ValueTypeI32}}
	return &ir.Module{
		Types: []*ir.FunctionType{ft},
		Functions: ir.FunctionIndexSpace{
			Defs: []*ir.FunctionDef{{
				TypeIndex: 0,
				Body: []ir.Instruction{
					{Opcode: ir.OpcodeI32Const, I32: 1},
					{Opcode: ir.OpcodeEnd},
				},
			}},
		},
		Exports: map[string]*ir.Export{},
	}
}

func TestValidateModule_Minimal(t *testing.T) {
	m := constI32Module()
	res, err := ValidateModule(m)
	require.NoError(t, err)
	require.Len(t, res.Functions, 1)
}

func TestValidateModule_StartOutOfRangeRejected(t *testing.T) {
	m := constI32Module()
	bad := ir.Index(9)
	m.StartFunctionIndex = &bad
	_, err := ValidateModule(m)
	require.Error(t, err)
}

func TestValidateModule_ElementSegmentFunctionIndexOutOfRangeRejected(t *testing.T) {
	m := constI32Module()
	m.Tables.Defs = []*ir.TableType{{ElemType: ir.ValueTypeFuncref, Limits: ir.Limits{Min: 1}}}
	m.ElementSegments = []*ir.ElementSegment{{
		Active:     true,
		OffsetExpr: &ir.ConstantExpression{Opcode: ir.OpcodeI32Const, I32: 0},
		Init:       []ir.Index{7},
	}}
	_, err := ValidateModule(m)
	require.Error(t, err)
}

func TestValidateModule_ElementSegmentNoTableDeclaredRejected(t *testing.T) {
	m := constI32Module()
	m.ElementSegments = []*ir.ElementSegment{{
		Active:     true,
		OffsetExpr: &ir.ConstantExpression{Opcode: ir.OpcodeI32Const, I32: 0},
		Init:       []ir.Index{0},
	}}
	_, err := ValidateModule(m)
	require.Error(t, err)
}

func TestValidateModule_DataSegmentMemoryIndexOutOfRangeRejected(t *testing.T) {
	m := constI32Module()
	m.DataSegments = []*ir.DataSegment{{
		Active:     true,
		MemoryIndex: 0,
		OffsetExpr:  &ir.ConstantExpression{Opcode: ir.OpcodeI32Const, I32: 0},
		Init:        []byte{1, 2, 3},
	}}
	_, err := ValidateModule(m)
	require.Error(t, err)
}

func TestValidateModule_FunctionValidationErrorPropagates(t *testing.T) {
	m := constI32Module()
	m.Functions.Defs[0].Body = []ir.Instruction{
		{Opcode: ir.OpcodeF32Const, F32: 1},
		{Opcode: ir.OpcodeEnd},
	}
	_, err := ValidateModule(m)
	require.Error(t, err)
}

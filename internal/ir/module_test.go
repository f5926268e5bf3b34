package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFunctionIndexSpace_Count(t *testing.T) {
	s := FunctionIndexSpace{ImportCount: 2, Defs: []*FunctionDef{{}, {}, {}}}
	require.Equal(t, uint32(5), s.Count())
}

func TestTableIndexSpace_Count(t *testing.T) {
	s := TableIndexSpace{ImportType: &TableType{}, Defs: nil}
	require.Equal(t, uint32(1), s.Count())

	s2 := TableIndexSpace{}
	require.Equal(t, uint32(0), s2.Count())
}

func TestGlobalIndexSpace_Count(t *testing.T) {
	s := GlobalIndexSpace{Imports: []*GlobalType{{}}, Defs: []*GlobalDef{{}, {}}}
	require.Equal(t, uint32(3), s.Count())
}

func TestExceptionTypeIndexSpace_Count(t *testing.T) {
	s := ExceptionTypeIndexSpace{Imports: []*ExceptionType{{}}, Defs: []*ExceptionType{{}, {}}}
	require.Equal(t, uint32(3), s.Count())
}

func TestInstructionName(t *testing.T) {
	require.Equal(t, "i32.add", InstructionName(OpcodeI32Add))
	require.Equal(t, "unreachable", InstructionName(OpcodeUnreachable))
}

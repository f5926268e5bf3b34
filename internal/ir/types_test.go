package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueType_String(t *testing.T) {
	require.Equal(t, "i32", ValueTypeI32.String())
	require.Equal(t, "funcref", ValueTypeFuncref.String())
	require.Contains(t, ValueType(0xff).String(), "unknown")
}

func TestFunctionType_Equal(t *testing.T) {
	a := &FunctionType{Params: []ValueType{ValueTypeI32, ValueTypeI64}, Results: []ValueType{ValueTypeF32}}
	b := &FunctionType{Params: []ValueType{ValueTypeI32, ValueTypeI64}, Results: []ValueType{ValueTypeF32}}
	c := &FunctionType{Params: []ValueType{ValueTypeI32}, Results: []ValueType{ValueTypeF32}}

	require.True(t, a.Equal(b))
	require.True(t, a.Equal(a))
	require.False(t, a.Equal(c))
	require.False(t, a.Equal(nil))
}

func TestFunctionType_String(t *testing.T) {
	empty := &FunctionType{}
	require.Equal(t, "null_null", empty.String())

	ft := &FunctionType{Params: []ValueType{ValueTypeI32, ValueTypeI32}, Results: []ValueType{ValueTypeI64}}
	require.Equal(t, "i32i32_i64", ft.String())
}

func TestExceptionType_String(t *testing.T) {
	require.Equal(t, "null", (&ExceptionType{}).String())
	require.Equal(t, "i32f64", (&ExceptionType{Params: []ValueType{ValueTypeI32, ValueTypeF64}}).String())
}

func TestExternKind_String(t *testing.T) {
	require.Equal(t, "func", ExternKindFunc.String())
	require.Equal(t, "exception-type", ExternKindExceptionType.String())
	require.Equal(t, "unknown", ExternKind(0xff).String())
}

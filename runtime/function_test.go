package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hack-chain/WAVM/internal/ir"
	"github.com/hack-chain/WAVM/jit"
)

func TestCreateHostFunction_CallInvokesGoFunc(t *testing.T) {
	c := NewCompartment()
	ft := &ir.FunctionType{Params: []ir.ValueType{ir.ValueTypeI32}, Results: []ir.ValueType{ir.ValueTypeI32}}

	fn := CreateHostFunction(c, ft, func(args []ir.Value) ([]ir.Value, *jit.Trap) {
		return []ir.Value{{Type: ir.ValueTypeI32, I32: args[0].I32 * 2}}, nil
	})

	require.Equal(t, ObjectKindFunction, fn.Kind())
	require.Same(t, ft, fn.ExternType())

	results, trap := fn.call(nil, []ir.Value{{Type: ir.ValueTypeI32, I32: 21}})
	require.Nil(t, trap)
	require.Equal(t, int32(42), results[0].I32)
}

func TestCreateHostFunction_TrapPropagates(t *testing.T) {
	c := NewCompartment()
	fn := CreateHostFunction(c, &ir.FunctionType{}, func(args []ir.Value) ([]ir.Value, *jit.Trap) {
		return nil, jit.NewTrap(jit.TrapUnreachable)
	})

	_, trap := fn.call(nil, nil)
	require.NotNil(t, trap)
	require.Equal(t, jit.TrapUnreachable, trap.Code)
}

func TestFunction_BiasedValueNilSentinel(t *testing.T) {
	var f *Function
	require.Equal(t, uintptr(tableOutOfBoundsSentinel), f.BiasedValue())
}

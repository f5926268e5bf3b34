package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hack-chain/WAVM/internal/ir"
)

func TestGlobal_ImmutableSharedAcrossContexts(t *testing.T) {
	c := NewCompartment()
	g := CreateGlobal(c, &ir.GlobalType{ValType: ir.ValueTypeI32, Mutable: false}, ir.Value{Type: ir.ValueTypeI32, I32: 7})

	ctxA := CreateContext(c)
	ctxB := CreateContext(c)
	require.Equal(t, int32(7), g.GetValue(ctxA).I32)
	require.Equal(t, int32(7), g.GetValue(ctxB).I32)
}

func TestGlobal_MutableIsPerContext(t *testing.T) {
	c := NewCompartment()
	g := CreateGlobal(c, &ir.GlobalType{ValType: ir.ValueTypeI32, Mutable: true}, ir.Value{Type: ir.ValueTypeI32, I32: 1})

	ctxA := CreateContext(c)
	ctxB := CreateContext(c)

	g.SetValue(ctxA, ir.Value{Type: ir.ValueTypeI32, I32: 99})
	require.Equal(t, int32(99), g.GetValue(ctxA).I32)
	require.Equal(t, int32(1), g.GetValue(ctxB).I32, "mutating one context's global must not affect another's")
}

func TestGlobal_MutableCreatedAfterContextExtendsIt(t *testing.T) {
	c := NewCompartment()
	ctx := CreateContext(c)

	g := CreateGlobal(c, &ir.GlobalType{ValType: ir.ValueTypeI64, Mutable: true}, ir.Value{Type: ir.ValueTypeI64, I64: 5})
	require.Equal(t, int64(5), g.GetValue(ctx).I64, "a context created before the global must still see it after it's added")
}

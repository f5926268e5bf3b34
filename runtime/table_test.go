package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hack-chain/WAVM/internal/ir"
)

func TestTable_GetSetRoundTrip(t *testing.T) {
	c := NewCompartment()
	tbl := CreateTable(c, ir.ValueTypeFuncref, 2, noMax)
	fn := CreateHostFunction(c, &ir.FunctionType{}, nil)

	require.NoError(t, tbl.Set(0, fn))
	got, err := tbl.Get(0)
	require.NoError(t, err)
	require.Same(t, fn, got)

	got, err = tbl.Get(1)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestTable_GetOutOfBounds(t *testing.T) {
	c := NewCompartment()
	tbl := CreateTable(c, ir.ValueTypeFuncref, 1, noMax)
	_, err := tbl.Get(5)
	require.ErrorIs(t, err, ErrOutOfBoundsTableAccess)
}

func TestTable_SetOutOfBounds(t *testing.T) {
	c := NewCompartment()
	tbl := CreateTable(c, ir.ValueTypeFuncref, 1, noMax)
	require.ErrorIs(t, tbl.Set(5, nil), ErrOutOfBoundsTableAccess)
}

func TestTable_GrowWithinMax(t *testing.T) {
	c := NewCompartment()
	tbl := CreateTable(c, ir.ValueTypeFuncref, 1, 3)

	old, ok := tbl.Grow(2)
	require.True(t, ok)
	require.Equal(t, uint32(1), old)
	require.Equal(t, uint32(3), tbl.Size())
}

func TestTable_GrowBeyondMaxFails(t *testing.T) {
	c := NewCompartment()
	tbl := CreateTable(c, ir.ValueTypeFuncref, 1, 2)

	old, ok := tbl.Grow(5)
	require.False(t, ok)
	require.Equal(t, uint32(1), old)
	require.Equal(t, uint32(1), tbl.Size(), "a failed grow must not mutate the table")
}

func TestTable_TableType(t *testing.T) {
	c := NewCompartment()
	tbl := CreateTable(c, ir.ValueTypeFuncref, 4, noMax)
	tt := tbl.TableType()
	require.Equal(t, ir.ValueTypeFuncref, tt.ElemType)
	require.Equal(t, uint32(4), tt.Limits.Min)
	require.Nil(t, tt.Limits.Max)

	bounded := CreateTable(c, ir.ValueTypeFuncref, 1, 9)
	require.Equal(t, uint32(9), *bounded.TableType().Limits.Max)
}

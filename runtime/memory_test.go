package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemory_ReadWriteRoundTrip(t *testing.T) {
	c := NewCompartment()
	m := CreateMemory(c, 1, noMax)

	require.NoError(t, m.Write(10, []byte{1, 2, 3}))
	dst := make([]byte, 3)
	require.NoError(t, m.Read(10, dst))
	require.Equal(t, []byte{1, 2, 3}, dst)
}

func TestMemory_ReadOutOfBounds(t *testing.T) {
	c := NewCompartment()
	m := CreateMemory(c, 1, noMax)
	dst := make([]byte, 4)
	require.ErrorIs(t, m.Read(WasmPageSize-2, dst), ErrOutOfBoundsMemoryAccess)
}

func TestMemory_WriteOutOfBounds(t *testing.T) {
	c := NewCompartment()
	m := CreateMemory(c, 1, noMax)
	require.ErrorIs(t, m.Write(WasmPageSize, []byte{1}), ErrOutOfBoundsMemoryAccess)
}

func TestMemory_GrowWithinMax(t *testing.T) {
	c := NewCompartment()
	m := CreateMemory(c, 1, 3)

	old := m.Grow(2)
	require.Equal(t, int32(1), old)
	require.Equal(t, uint32(3), m.Size())
}

func TestMemory_GrowBeyondMaxFails(t *testing.T) {
	c := NewCompartment()
	m := CreateMemory(c, 1, 2)

	got := m.Grow(5)
	require.Equal(t, int32(-1), got)
	require.Equal(t, uint32(1), m.Size(), "a failed grow must not mutate the memory")
}

func TestMemory_GrowPreservesExistingBytes(t *testing.T) {
	c := NewCompartment()
	m := CreateMemory(c, 1, noMax)
	require.NoError(t, m.Write(0, []byte{9, 9}))
	m.Grow(1)
	dst := make([]byte, 2)
	require.NoError(t, m.Read(0, dst))
	require.Equal(t, []byte{9, 9}, dst)
}

func TestMemory_MemoryType(t *testing.T) {
	c := NewCompartment()
	m := CreateMemory(c, 2, 5)
	mt := m.MemoryType()
	require.Equal(t, uint32(2), mt.Min)
	require.Equal(t, uint32(5), *mt.Max)
}

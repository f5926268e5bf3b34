package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateContext_IndependentMutableGlobalArrays(t *testing.T) {
	c := NewCompartment()
	ctx1 := CreateContext(c)
	ctx2 := CreateContext(c)

	require.NotSame(t, ctx1, ctx2)
	require.Equal(t, ObjectKindContext, ctx1.Kind())
	require.Nil(t, ctx1.ExternType())
}

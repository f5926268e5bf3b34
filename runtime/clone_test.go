package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hack-chain/WAVM/internal/ir"
)

func TestCloneModuleInstance_MutableGlobalsAreIndependent(t *testing.T) {
	c := NewCompartment()
	ctx1 := CreateContext(c)

	g := CreateGlobal(c, &ir.GlobalType{ValType: ir.ValueTypeI32, Mutable: true}, ir.Value{Type: ir.ValueTypeI32, I32: 1})
	inst := &ModuleInstance{Globals: []*Global{g}, Exports: map[string]Object{"g": g}}

	ctx2 := CreateContext(c)
	clone := CloneModuleInstance(inst, ctx2)

	g.SetValue(ctx1, ir.Value{Type: ir.ValueTypeI32, I32: 77})
	require.Equal(t, int32(1), g.GetValue(ctx2).I32, "cloning must not pick up mutations made through another context")
	require.Same(t, g, clone.Globals[0], "globals are shared objects, not duplicated, across a clone")
}

func TestCloneModuleInstance_ExportsRebindToCloneSlices(t *testing.T) {
	c := NewCompartment()
	ctx := CreateContext(c)

	fn := CreateHostFunction(c, &ir.FunctionType{}, nil)
	inst := &ModuleInstance{Functions: []*Function{fn}, Exports: map[string]Object{"f": fn}}

	clone := CloneModuleInstance(inst, ctx)
	require.Same(t, clone.Functions[0], clone.Exports["f"])
}

func TestCloneModuleInstance_PassiveSegmentsAreIndependentCopies(t *testing.T) {
	c := NewCompartment()
	ctx := CreateContext(c)

	inst := &ModuleInstance{
		passiveData: map[ir.Index][]byte{0: {1, 2}},
		Exports:     map[string]Object{},
	}

	clone := CloneModuleInstance(inst, ctx)
	clone.dropData(0)

	require.Nil(t, clone.dataSegment(0))
	require.Equal(t, []byte{1, 2}, inst.dataSegment(0), "dropping a segment in the clone must not affect the original")
}

package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hack-chain/WAVM/jit"
)

func TestTrap_ErrorWithoutCallStack(t *testing.T) {
	tr := &Trap{Code: jit.TrapUnreachable, Message: "unreachable executed"}
	require.Equal(t, "unreachable executed", tr.Error())
}

func TestTrap_ErrorIncludesCallStack(t *testing.T) {
	tr := &Trap{Code: jit.TrapUnreachable, Message: "unreachable executed", CallStack: []string{"a.f", "b.g"}}
	require.Equal(t, "unreachable executed\na.f\nb.g", tr.Error())
}

func TestTrapFromJIT_NilPassesThrough(t *testing.T) {
	require.Nil(t, trapFromJIT(nil, nil))
}

func TestTrapFromJIT_WrapsCodeAndMessage(t *testing.T) {
	jt := jit.NewTrap(jit.TrapIntegerDivideByZero)
	tr := trapFromJIT(jt, []string{"f"})
	require.Equal(t, jit.TrapIntegerDivideByZero, tr.Code)
	require.Equal(t, []string{"f"}, tr.CallStack)
}

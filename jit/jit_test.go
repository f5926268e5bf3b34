package jit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrapCode_String(t *testing.T) {
	require.Equal(t, "unreachable", TrapUnreachable.String())
	require.Equal(t, "call stack exhausted", TrapCallStackExhausted.String())
	require.Equal(t, "unknown trap", TrapCode(999).String())
}

func TestNewTrap_MessageDefaultsToCodeString(t *testing.T) {
	tr := NewTrap(TrapIntegerDivideByZero)
	require.Equal(t, TrapIntegerDivideByZero, tr.Code)
	require.Equal(t, "integer divide by zero", tr.Error())
}

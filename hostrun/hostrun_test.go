package hostrun

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_MainExportBecomesExitCode(t *testing.T) {
	src := []byte(`(module (func (export "main") (result i32) i32.const 7))`)
	code, err := Run(context.Background(), "t.wat", src, Options{})
	require.NoError(t, err)
	require.Equal(t, 7, code)
}

func TestRun_UnderscoreMainFallback(t *testing.T) {
	src := []byte(`(module (func (export "_main") (result i32) i32.const 3))`)
	code, err := Run(context.Background(), "t.wat", src, Options{})
	require.NoError(t, err)
	require.Equal(t, 3, code)
}

func TestRun_NoEntryPointExitsZero(t *testing.T) {
	src := []byte(`(module (func (export "helper") (result i32) i32.const 1))`)
	code, err := Run(context.Background(), "t.wat", src, Options{})
	require.NoError(t, err)
	require.Equal(t, 0, code)
}

func TestRun_StartFunctionRunsBeforeMain(t *testing.T) {
	src := []byte(`(module
		(memory 1)
		(func $init i32.const 0 i32.const 42 i32.store)
		(start $init)
		(func (export "main") (result i32) i32.const 0 i32.load))`)
	code, err := Run(context.Background(), "t.wat", src, Options{})
	require.NoError(t, err)
	require.Equal(t, 42, code)
}

func TestRun_UnresolvedImportTrapsAtCall(t *testing.T) {
	src := []byte(`(module
		(import "env" "missing" (func (result i32)))
		(func (export "main") (result i32) call 0))`)
	code, err := Run(context.Background(), "t.wat", src, Options{})
	require.Error(t, err)
	require.Equal(t, 1, code)
}

func TestRun_SyntaxErrorReported(t *testing.T) {
	_, err := Run(context.Background(), "t.wat", []byte(`(module (func i32.frobnicate))`), Options{})
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestRun_BinaryMagicRejected(t *testing.T) {
	_, err := Run(context.Background(), "t.wasm", []byte{0x00, 'a', 's', 'm', 1, 0, 0, 0}, Options{})
	require.Error(t, err)
}

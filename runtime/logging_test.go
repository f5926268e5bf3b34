package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSetLogger_ReplacesPackageLogger(t *testing.T) {
	orig := log
	defer func() { log = orig }()

	l := zap.NewExample()
	SetLogger(l)
	require.Same(t, l, log)
}

func TestSetLogger_NilIsIgnored(t *testing.T) {
	orig := log
	defer func() { log = orig }()

	SetLogger(nil)
	require.Same(t, orig, log)
}

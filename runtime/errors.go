package runtime

import "errors"

// Sentinel errors returned by Table/Memory accessors, named and phrased
// the way the teacher's internal/wasm/errors.go names its own runtime
// error set, so a caller can errors.Is against a stable value rather than
// matching an error string.
var (
	ErrOutOfBoundsMemoryAccess = errors.New("out of bounds memory access")
	ErrOutOfBoundsTableAccess  = errors.New("out of bounds table access")
	ErrIndirectCallTypeMismatch = errors.New("indirect call type mismatch")
)

package runtime

import "go.uber.org/zap"

// log is the structured logger used for runtime diagnostics: unexpected
// internal-invariant violations, not the ordinary traps and link errors
// returned to callers as values. Grounded on wippyai-wasm-runtime's choice
// of zap for the same layer, wrapped directly over this teacher's runtime.
var log = zap.NewNop()

// SetLogger replaces the package-level logger, letting an embedder route
// runtime diagnostics into its own zap configuration instead of the
// default no-op.
func SetLogger(l *zap.Logger) {
	if l != nil {
		log = l
	}
}

// fatal reports an internal invariant violation the runtime cannot
// recover from (a corrupted compartment data structure, not a
// WebAssembly-level trap) and terminates the process, matching the
// teacher's own posture that a broken invariant in the runtime itself is
// not something calling code can meaningfully catch.
func fatal(format string, args ...any) {
	log.Sugar().Fatalf(format, args...)
}

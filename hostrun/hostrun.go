// Package hostrun implements component 6's thin host-ABI "run"
// collaborator: load a module from text-format source, link it against
// a small set of trapping stub imports, instantiate it, and invoke its
// start function followed by a conventional entry-point export.
//
// Grounded on wippyai-wasm-runtime/cmd/run, which wraps the teacher's
// runtime the same way: decode, link, instantiate, call, translate the
// result into a process exit code.
package hostrun

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hack-chain/WAVM/internal/ir"
	"github.com/hack-chain/WAVM/jit"
	"github.com/hack-chain/WAVM/jit/interp"
	"github.com/hack-chain/WAVM/runtime"
	"github.com/hack-chain/WAVM/text"
	"github.com/hack-chain/WAVM/text/wast"
)

// binaryMagic is the four-byte preamble every WebAssembly binary module
// begins with ("\0asm"), used to distinguish binary from text source the
// way a file-format sniff ordinarily does, since this module's Parser
// boundary (spec.md §6) only ever reads text.
var binaryMagic = []byte{0x00, 'a', 's', 'm'}

// Options configures a Run invocation. The zero value runs with the
// interpreter backend, no linked imports beyond trapping stubs, and a
// no-op logger.
type Options struct {
	// Backend compiles the module's functions. Defaults to
	// interp.NewInterpreterBackend() when nil.
	Backend jit.Backend
	// Parser decodes text-format source. Defaults to wast.New() when nil;
	// has no effect on binary source, which this package does not decode
	// (see Run's doc comment).
	Parser text.Parser
	// Logger receives run-level diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger
	// Args becomes the argument list the entry point is invoked with, if
	// the resolved entry-point export takes any parameters.
	Args []ir.Value
}

// Run loads the module at path, links it, instantiates it, and invokes its
// entry point, returning the process exit code spec.md 4.12 describes: the
// start function runs first if the module declares one, then whichever of
// "main" or "_main" the module exports (in that order) is invoked and its
// first i32 result, if any, becomes the exit code; a module exporting
// neither exits 0.
//
// Only the text format is supported: this module's Parser boundary
// (spec.md §6) never gained a binary decoder, since no example in this
// module's retrieval pack implements one independently of a teacher this
// module does not carry whole. A binary-magic source is reported as an
// error rather than silently misparsed.
func Run(ctx context.Context, path string, src []byte, opts Options) (exitCode int, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("path", path))

	if bytes.HasPrefix(src, binaryMagic) {
		return 1, fmt.Errorf("%s: binary-format modules are not supported, only text format", path)
	}

	parser := opts.Parser
	if parser == nil {
		parser = wast.New()
	}
	m, syntaxErrs := parser.Parse(src)
	if len(syntaxErrs) > 0 {
		return 1, &ParseError{Path: path, Errors: syntaxErrs}
	}

	backend := opts.Backend
	if backend == nil {
		backend = interp.NewInterpreterBackend()
	}

	compartment := runtime.NewCompartment()
	rctx := runtime.CreateContext(compartment)

	linker := runtime.NewLinker()
	imports, err := resolveImports(linker, m, compartment)
	if err != nil {
		return 1, err
	}

	logger.Debug("instantiating module", zap.Int("imports", len(imports)), zap.Int("exports", len(m.Exports)))
	inst, err := runtime.Instantiate(rctx, m, imports, backend)
	if err != nil {
		return 1, fmt.Errorf("%s: %w", path, err)
	}

	for _, name := range []string{"main", "_main"} {
		exp, ok := inst.Exports[name]
		if !ok {
			continue
		}
		fn, ok := exp.(*runtime.Function)
		if !ok {
			continue
		}
		logger.Info("invoking entry point", zap.String("export", name))
		results, trap := runtime.Invoke(rctx, fn, opts.Args)
		if trap != nil {
			return 1, trap
		}
		if len(results) > 0 && results[0].Type == ir.ValueTypeI32 {
			return int(results[0].I32), nil
		}
		return 0, nil
	}
	return 0, nil
}

// resolveImports links every import m declares against linker, generating
// a trapping stub Function for any import whose module.name this run
// never registered a real export for, so a module exercising an
// unsupported host call fails at call time with a clear trap instead of
// at link time with an opaque "missing import" error — a deliberately
// permissive linking posture distinct from runtime.Linker.Link's own
// strict-by-default behavior, grounded on the latitude an ad hoc run tool
// needs when the embedder does not actually provide a host environment.
func resolveImports(linker *runtime.Linker, m *ir.Module, c *runtime.Compartment) ([]runtime.Object, error) {
	for _, imp := range m.Imports {
		if imp.Kind != ir.ExternKindFunc {
			continue
		}
		if _, ok := linker.Extra[imp.Module]; !ok {
			linker.Extra[imp.Module] = map[string]runtime.Object{}
		}
		if _, ok := linker.Extra[imp.Module][imp.Name]; ok {
			continue
		}
		ft := m.Types[imp.DescFunc]
		name := imp.Module + "." + imp.Name
		linker.Extra[imp.Module][imp.Name] = runtime.CreateHostFunction(c, ft, func(args []ir.Value) ([]ir.Value, *jit.Trap) {
			return nil, &jit.Trap{Code: jit.TrapUnreachable, Message: fmt.Sprintf("call to unresolved import %s", name)}
		})
	}
	return linker.Link(m)
}

// ParseError reports that the module's source could not be parsed as
// text-format WebAssembly.
type ParseError struct {
	Path   string
	Errors []text.SyntaxError
}

func (e *ParseError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s: %s", e.Path, e.Errors[0].Error())
	}
	return fmt.Sprintf("%s: %d syntax errors, first: %s", e.Path, len(e.Errors), e.Errors[0].Error())
}

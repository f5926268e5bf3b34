// Command wavm-run loads a single WebAssembly text-format module and runs
// it, the minimal host-ABI entry point spec.md §6 describes: no flags, no
// WASI, just enough wiring to exercise hostrun.Run from a shell.
//
// Grounded on the teacher's cmd/wazero "run" subcommand shape (read the
// path from argv, exit with the program's own reported code) trimmed to
// this module's much smaller scope: one file, one entry point, no
// subcommands.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hack-chain/WAVM/hostrun"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr *os.File) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "usage: wavm-run <module.wat>")
		return 2
	}
	path := args[0]

	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "wavm-run: %v\n", err)
		return 1
	}

	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	defer logger.Sync()

	code, err := hostrun.Run(context.Background(), path, src, hostrun.Options{Logger: logger})
	if err != nil {
		fmt.Fprintf(stderr, "wavm-run: %v\n", err)
		if code == 0 {
			code = 1
		}
	}
	return code
}

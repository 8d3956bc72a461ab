// Command wasm2nativec compiles an already-decoded WebAssembly module
// straight to a native object file (or LLVM IR text), grounded on
// cmd/wazero/wazero.go's doMain/doCompile split.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/wasm2native/wasm2nativec/internal/backend"
	"github.com/wasm2native/wasm2nativec/internal/config"
	"github.com/wasm2native/wasm2nativec/internal/frontend"
	"github.com/wasm2native/wasm2nativec/internal/ir"
	"github.com/wasm2native/wasm2nativec/internal/logging"
)

func main() {
	os.Exit(doMain(os.Stdout, os.Stderr))
}

// doMain is separated from main so tests can drive it without os.Exit,
// matching doMain(stdOut io.Writer, stdErr logging.Writer) int in
// cmd/wazero/wazero.go.
func doMain(stdOut, stdErr *os.File) int {
	cfg, err := config.ParseFlags(os.Args[1:], stdErr)
	switch err {
	case nil:
	case config.ErrHelp:
		return 0
	case config.ErrVersion:
		fmt.Fprintln(stdOut, version)
		return 0
	default:
		fmt.Fprintf(stdErr, "error parsing flags: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Verbosity)
	if err != nil {
		fmt.Fprintf(stdErr, "error initializing logger: %v\n", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck

	m, err := doCompile(cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "error compiling %s: %v\n", cfg.WasmPath, err)
		return 1
	}

	out, err := os.Create(cfg.Output)
	if err != nil {
		fmt.Fprintf(stdErr, "error creating output file: %v\n", err)
		return 1
	}
	defer out.Close()

	format := formatFromConfig(cfg.Format)
	if err := (backend.TextEmitter{}).Emit(out, m, format); err != nil {
		fmt.Fprintf(stdErr, "error emitting %s: %v\n", cfg.Format, err)
		return 1
	}
	return 0
}

// doCompile runs the in-scope half of the pipeline: decode (always fails,
// spec.md section 1 scopes the binary parser out), frontend lowering,
// Module Assembly.
func doCompile(cfg config.Config, logger *zap.Logger) (*ir.Module, error) {
	wasmModule, err := (config.NoDecoderAvailable{}).Decode(cfg.WasmPath)
	if err != nil {
		return nil, err
	}

	strategy := strategyFor(cfg)
	c := frontend.NewCompiler(wasmModule, strategy, logger)
	c.EnableAuxStackCheck = cfg.EnableAuxStackCheck
	c.DisableSIMD = cfg.DisableSIMD

	out, err := c.CompileModule()
	if err != nil {
		return nil, err
	}

	if err := backend.NewAssembler(wasmModule).Assemble(out); err != nil {
		return nil, err
	}
	return out, nil
}

func strategyFor(cfg config.Config) frontend.LoweringStrategy {
	if cfg.NoSandboxMode {
		return frontend.NoSandboxStrategy{}
	}
	return frontend.SandboxedStrategy{}
}

func formatFromConfig(f config.Format) backend.Format {
	switch f {
	case config.FormatLLVMIRUnopt:
		return backend.FormatLLVMIRUnopt
	case config.FormatLLVMIROpt:
		return backend.FormatLLVMIROpt
	default:
		return backend.FormatObject
	}
}

// version is the semver this build reports for --version (spec.md
// section 6); there is no release process wired up in this repository,
// so it is a fixed placeholder rather than a linker-injected value.
const version = "0.1.0-dev"

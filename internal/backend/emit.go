package backend

import (
	"errors"
	"io"

	"github.com/wasm2native/wasm2nativec/internal/ir"
)

// ErrBackendUnavailable is returned by a Backend that recognizes the
// requested output format but cannot produce it in this build: no
// concrete object-code or optimizing-LLVM backend ships with this
// repository (spec.md section 6's --format=object/llvmir-opt modes need a
// real LLVM install this core does not bundle), mirroring how
// NoSandboxStrategy/SandboxedStrategy fully implement their shared
// interface while leaving the genuinely out-of-scope concerns (the binary
// Wasm decoder, a real LLVM codegen pipeline) behind a seam rather than a
// half-written implementation.
var ErrBackendUnavailable = errors.New("backend: requested output format is unavailable in this build")

// Format identifies one of spec.md section 6's --format values.
type Format int

const (
	FormatLLVMIRUnopt Format = iota
	FormatLLVMIROpt
	FormatObject
)

// Backend renders a completed ir.Module (after Module Assembly) to w in
// the requested Format, grounded on the emitter/target-machine split in
// other_examples/730544c1_hhramberg-go-vslc__src-ir-llvm-transform.go.go's
// GenLLVM: that teacher builds an in-memory LLVM module with
// tinygo.org/x/go-llvm then asks a target machine to emit either textual
// IR (m.Dump/m.String) or a native object (tm.EmitToMemoryBuffer). This
// core keeps that same two-step shape without binding to go-llvm itself,
// since linking against a real LLVM install is exactly the part spec.md
// section 1 calls out as the compiler backend boundary this repository
// stops at.
type Backend interface {
	Emit(w io.Writer, m *ir.Module, format Format) error
}

// TextEmitter is the one Backend this repository ships: it renders
// ir.Module.WriteText's LLVM-flavored textual form for
// --format=llvmir-unopt and reports ErrBackendUnavailable for every
// format that would require an actual LLVM optimizer or object-code
// emitter.
type TextEmitter struct{}

// Emit implements Backend.
func (TextEmitter) Emit(w io.Writer, m *ir.Module, format Format) error {
	switch format {
	case FormatLLVMIRUnopt:
		_, err := io.WriteString(w, m.WriteText())
		return err
	case FormatLLVMIROpt, FormatObject:
		return ErrBackendUnavailable
	default:
		return ErrBackendUnavailable
	}
}

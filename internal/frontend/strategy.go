package frontend

import (
	"github.com/wasm2native/wasm2nativec/internal/abi"
	"github.com/wasm2native/wasm2nativec/internal/ir"
	"github.com/wasm2native/wasm2nativec/internal/wasm"
)

// LoweringStrategy factors out the handful of lowering decisions that
// differ between sandboxed and no-sandbox mode (spec.md's Design Notes
// and section 4.1): linear-memory addressing, indirect-call target
// resolution, and how a const's relocation gets rewritten. Everything
// else (control flow, arithmetic, calls themselves) is strategy-
// independent and lives directly in control.go/numeric.go/call.go.
type LoweringStrategy interface {
	// NoSandbox reports which mode this strategy implements, surfaced on
	// ir.Module for the textual emitter's header comment.
	NoSandbox() bool

	// MemoryAddress computes the effective address for a load/store of
	// accessSize bytes at baseAddr+offset, inserting a bounds-check trap
	// first when the strategy requires one.
	MemoryAddress(fc *funcCompiler, baseAddr ir.Value, offset uint32, accessSize uint32) ir.Value

	// TableCallTarget resolves a call_indirect's target function pointer
	// from a table index and a dynamic element index, inserting whatever
	// bounds/null/type checks the strategy requires.
	TableCallTarget(fc *funcCompiler, tableIndex uint32, elemIndex ir.Value, typeIndex uint32) ir.Value

	// ImportCallTarget resolves a direct call's target function pointer
	// when the callee is an imported function, reading the module
	// context's import_func_ptrs array (spec.md section 4.9) and inserting
	// an unlinked-import null check when the strategy requires one.
	ImportCallTarget(fc *funcCompiler, importIdx wasm.Index) ir.Value

	// RewriteConstReloc rewrites an i32.const/i64.const whose bytes carry
	// a relocation (no-sandbox mode only) into a pointer-bearing integer
	// constant; ok is false when no rewrite applies (sandboxed mode
	// always returns false, since relocatable constants only arise when
	// addresses are burned into the object as native pointers).
	RewriteConstReloc(fc *funcCompiler, reloc wasm.Relocation) (v ir.Value, ok bool)
}

func (fc *funcCompiler) loadModuleCtxI64(offset uint32) ir.Value {
	return fc.b.AllocateInstruction().AsLoad(fc.moduleCtx, offset, ir.TypeI64).Insert(fc.b).Return()
}

func (fc *funcCompiler) loadModuleCtxI32(offset uint32) ir.Value {
	return fc.b.AllocateInstruction().AsLoad(fc.moduleCtx, offset, ir.TypeI32).Insert(fc.b).Return()
}

// importFuncPtr loads the importIdx-th entry of the module context's
// imported-function pointer array (spec.md section 4.9's
// import_func_ptrs), shared by both strategies' ImportCallTarget.
func (fc *funcCompiler) importFuncPtr(importIdx wasm.Index) ir.Value {
	b := fc.b
	base := fc.loadModuleCtxI64(abi.ModuleCtxOffsetImportFuncPtrsBase)
	basePtr := b.AllocateInstruction().AsIntToPtr(base).Insert(b).Return()
	off := b.AllocateInstruction().AsIconst64(uint64(importIdx) * 8).Insert(b).Return()
	slot := b.AllocateInstruction().AsGEP(basePtr, off).Insert(b).Return()
	return b.AllocateInstruction().AsLoad(slot, 0, ir.TypePtr).Insert(b).Return()
}

// --- sandboxed ---

// SandboxedStrategy implements spec.md's sandboxed lowering: every memory
// access is range-checked against the current memory size and every
// indirect call is bounds/null/type-checked against the table and the
// callee's recorded type ID, grounded on
// frontend.Compiler.memOpSetup/lowerCallIndirect in
// internal/engine/wazevo/frontend/lower.go.
type SandboxedStrategy struct{}

func (SandboxedStrategy) NoSandbox() bool { return false }

func (SandboxedStrategy) MemoryAddress(fc *funcCompiler, baseAddr ir.Value, offset uint32, accessSize uint32) ir.Value {
	b := fc.b
	ceil := uint64(offset) + uint64(accessSize)

	extBase := b.AllocateInstruction().AsExtend(baseAddr, false, 32, 64).Insert(b).Return()
	ceilConst := b.AllocateInstruction().AsIconst64(ceil).Insert(b).Return()
	addrPlusCeil := b.AllocateInstruction().AsIadd(extBase, ceilConst).Insert(b).Return()

	memLen := fc.memorySizeBytes()
	oob := b.AllocateInstruction().AsIcmp(memLen, addrPlusCeil, ir.IntegerCmpUnsignedLessThan).Insert(b).Return()
	fc.raiseIf(oob, ExceptionMemoryOutOfBounds)

	if offset != 0 {
		off := b.AllocateInstruction().AsIconst64(uint64(offset)).Insert(b).Return()
		extBase = b.AllocateInstruction().AsIadd(extBase, off).Insert(b).Return()
	}
	memBase := fc.memoryBasePointer()
	addr := b.AllocateInstruction().AsGEP(memBase, extBase).Insert(b).Return()
	return addr
}

func (SandboxedStrategy) TableCallTarget(fc *funcCompiler, tableIndex uint32, elemIndex ir.Value, typeIndex uint32) ir.Value {
	b := fc.b
	_ = tableIndex // single-table core: spec.md section 4 scopes multi-table out.

	tableLen := fc.loadModuleCtxI32(abi.ModuleCtxOffsetTableLen)
	oob := b.AllocateInstruction().AsIcmp(elemIndex, tableLen, ir.IntegerCmpUnsignedGreaterThanOrEqual).Insert(b).Return()
	fc.raiseIf(oob, ExceptionTableOutOfBounds)

	tableBase := fc.loadModuleCtxI64(abi.ModuleCtxOffsetTableBase)
	tableBasePtr := b.AllocateInstruction().AsIntToPtr(tableBase).Insert(b).Return()
	elemIndex64 := b.AllocateInstruction().AsExtend(elemIndex, false, 32, 64).Insert(b).Return()
	entrySize := b.AllocateInstruction().AsIconst64(abi.FunctionInstanceSize).Insert(b).Return()
	byteOffset := b.AllocateInstruction().AsImul(elemIndex64, entrySize).Insert(b).Return()
	instancePtr := b.AllocateInstruction().AsGEP(tableBasePtr, byteOffset).Insert(b).Return()

	execPtr := b.AllocateInstruction().AsLoad(instancePtr, abi.FunctionInstanceOffsetExecutable, ir.TypePtr).Insert(b).Return()
	execAsInt := b.AllocateInstruction().AsPtrToInt(execPtr).Insert(b).Return()
	zero := b.AllocateInstruction().AsIconst64(0).Insert(b).Return()
	isNull := b.AllocateInstruction().AsIcmp(execAsInt, zero, ir.IntegerCmpEqual).Insert(b).Return()
	fc.raiseIf(isNull, ExceptionUninitializedElement)

	actualTypeID := b.AllocateInstruction().AsLoad(instancePtr, abi.FunctionInstanceOffsetTypeID, ir.TypeI32).Insert(b).Return()
	typeIDsBase := fc.loadModuleCtxI64(abi.ModuleCtxOffsetTypeIDsBase)
	typeIDsBasePtr := b.AllocateInstruction().AsIntToPtr(typeIDsBase).Insert(b).Return()
	expectedTypeID := b.AllocateInstruction().AsLoad(typeIDsBasePtr, typeIndex*4, ir.TypeI32).Insert(b).Return()
	mismatch := b.AllocateInstruction().AsIcmp(actualTypeID, expectedTypeID, ir.IntegerCmpNotEqual).Insert(b).Return()
	fc.raiseIf(mismatch, ExceptionIndirectCallTypeMismatch)

	return execPtr
}

func (SandboxedStrategy) RewriteConstReloc(fc *funcCompiler, reloc wasm.Relocation) (ir.Value, bool) {
	return ir.Value{}, false
}

// ImportCallTarget null-checks the resolved import pointer: an unlinked
// import is indistinguishable from a linked one otherwise, grounded on
// aot_emit_function.c's EXCE_CALL_UNLINKED_IMPORT_FUNC check before a
// direct call to an import.
func (SandboxedStrategy) ImportCallTarget(fc *funcCompiler, importIdx wasm.Index) ir.Value {
	b := fc.b
	ptr := fc.importFuncPtr(importIdx)
	asInt := b.AllocateInstruction().AsPtrToInt(ptr).Insert(b).Return()
	zero := b.AllocateInstruction().AsIconst64(0).Insert(b).Return()
	isNull := b.AllocateInstruction().AsIcmp(asInt, zero, ir.IntegerCmpEqual).Insert(b).Return()
	fc.raiseIf(isNull, ExceptionUnlinkedImportFunction)
	return ptr
}

// --- no-sandbox ---

// NoSandboxStrategy implements spec.md's no-sandbox lowering: addresses
// are native pointers with no range check, and i32.const/i64.const
// instructions that originally carried a linking-time relocation are
// rewritten to bake in the resolved pointer, grounded on
// aot_compile_op_i64_const's R_WASM_MEMORY_ADDR_SLEB64/
// R_WASM_TABLE_INDEX_SLEB64 handling in
// original_source/core/iwasm/compilation/aot_emit_const.c.
type NoSandboxStrategy struct{}

func (NoSandboxStrategy) NoSandbox() bool { return true }

func (NoSandboxStrategy) MemoryAddress(fc *funcCompiler, baseAddr ir.Value, offset uint32, accessSize uint32) ir.Value {
	b := fc.b
	memBase := fc.memoryBasePointer()
	extBase := b.AllocateInstruction().AsExtend(baseAddr, false, 32, 64).Insert(b).Return()
	if offset != 0 {
		off := b.AllocateInstruction().AsIconst64(uint64(offset)).Insert(b).Return()
		extBase = b.AllocateInstruction().AsIadd(extBase, off).Insert(b).Return()
	}
	return b.AllocateInstruction().AsGEP(memBase, extBase).Insert(b).Return()
}

func (NoSandboxStrategy) TableCallTarget(fc *funcCompiler, tableIndex uint32, elemIndex ir.Value, typeIndex uint32) ir.Value {
	b := fc.b
	_, _ = tableIndex, typeIndex // no-sandbox mode trusts the producer toolchain; no type/bounds check.

	tableBase := fc.loadModuleCtxI64(abi.ModuleCtxOffsetTableBase)
	tableBasePtr := b.AllocateInstruction().AsIntToPtr(tableBase).Insert(b).Return()
	elemIndex64 := b.AllocateInstruction().AsExtend(elemIndex, false, 32, 64).Insert(b).Return()
	entrySize := b.AllocateInstruction().AsIconst64(abi.FunctionInstanceSize).Insert(b).Return()
	byteOffset := b.AllocateInstruction().AsImul(elemIndex64, entrySize).Insert(b).Return()
	instancePtr := b.AllocateInstruction().AsGEP(tableBasePtr, byteOffset).Insert(b).Return()
	return b.AllocateInstruction().AsLoad(instancePtr, abi.FunctionInstanceOffsetExecutable, ir.TypePtr).Insert(b).Return()
}

// ImportCallTarget trusts the producer/linker in no-sandbox mode: an
// unresolved import would already have failed at link time, so no runtime
// check is inserted.
func (NoSandboxStrategy) ImportCallTarget(fc *funcCompiler, importIdx wasm.Index) ir.Value {
	return fc.importFuncPtr(importIdx)
}

func (NoSandboxStrategy) RewriteConstReloc(fc *funcCompiler, reloc wasm.Relocation) (ir.Value, bool) {
	b := fc.b
	switch reloc.Kind {
	case wasm.RelocMemoryAddrSLEB64:
		memBase := fc.memoryBasePointer()
		off := b.AllocateInstruction().AsIconst64(dataRelocAddress(fc.c.Module, reloc)).Insert(b).Return()
		addr := b.AllocateInstruction().AsGEP(memBase, off).Insert(b).Return()
		return b.AllocateInstruction().AsPtrToInt(addr).Insert(b).Return(), true
	case wasm.RelocTableIndexSLEB64:
		funcPtrsBase := fc.loadModuleCtxI64(abi.ModuleCtxOffsetFuncPtrsBase)
		base := b.AllocateInstruction().AsIntToPtr(funcPtrsBase).Insert(b).Return()
		funcIdx := uint64(reloc.SymbolIndex)
		if int(reloc.SymbolIndex) < len(fc.c.Module.Symbols) {
			if sym := fc.c.Module.Symbols[reloc.SymbolIndex]; sym.Kind == wasm.SymbolKindFunction {
				funcIdx = uint64(sym.Index)
			}
		}
		idx := b.AllocateInstruction().AsIconst64(funcIdx * 8).Insert(b).Return()
		slot := b.AllocateInstruction().AsGEP(base, idx).Insert(b).Return()
		funcPtr := b.AllocateInstruction().AsLoad(slot, 0, ir.TypePtr).Insert(b).Return()
		return b.AllocateInstruction().AsPtrToInt(funcPtr).Insert(b).Return(), true
	default:
		return ir.Value{}, false
	}
}

// dataRelocAddress resolves a RelocMemoryAddrSLEB64/RelocMemoryAddrI64
// relocation against its Data symbol into an absolute linear-memory byte
// offset: the segment's base offset (Module.DataSegmentBaseOffsets[seg])
// plus the symbol's offset within that segment (sym.Data.DataOffset) plus
// the relocation's own addend, per the DataSegmentBaseOffsets doc comment
// in internal/wasm/module.go and assembleData's in internal/backend
// (spec.md section 4.5/8: ptrToInt(memory_base + base_offset(seg) + d + a)).
// Falls back to the bare addend when the relocation carries no resolvable
// Data symbol, which should not arise for a well-formed linked module.
func dataRelocAddress(m *wasm.Module, reloc wasm.Relocation) uint64 {
	if int(reloc.SymbolIndex) < len(m.Symbols) {
		sym := m.Symbols[reloc.SymbolIndex]
		if sym.Kind == wasm.SymbolKindData {
			var base uint64
			if int(sym.Data.SegmentIndex) < len(m.DataSegmentBaseOffsets) {
				base = m.DataSegmentBaseOffsets[sym.Data.SegmentIndex]
			}
			return base + uint64(sym.Data.DataOffset) + uint64(reloc.Addend)
		}
	}
	return uint64(reloc.Addend)
}

// memoryBasePointer/memorySizeBytes load (and cache for the remainder of
// the current block) the module's current memory base/length, matching
// getMemoryBaseValue/getMemoryLenValue's reload-on-call discipline in
// frontend/lower.go.
func (fc *funcCompiler) memoryBasePointer() ir.Value {
	if !fc.memBaseValid {
		base := fc.loadModuleCtxI64(abi.ModuleCtxOffsetMemoryBase)
		fc.memBase = fc.b.AllocateInstruction().AsIntToPtr(base).Insert(fc.b).Return()
		fc.memBaseValid = true
	}
	return fc.memBase
}

func (fc *funcCompiler) memorySizeBytes() ir.Value {
	if !fc.memLenValid {
		fc.memLen = fc.loadModuleCtxI64(abi.ModuleCtxOffsetMemorySize)
		fc.memLenValid = true
	}
	return fc.memLen
}

// invalidateMemoryCache is called after any call instruction: the callee
// may have grown memory, moving its base pointer.
func (fc *funcCompiler) invalidateMemoryCache() {
	fc.memBaseValid = false
	fc.memLenValid = false
}

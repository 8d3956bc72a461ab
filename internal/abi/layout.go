// Package abi defines the module-context memory layout shared between
// internal/frontend (which emits loads against these offsets) and
// internal/backend (which emits the module-context struct these offsets
// index into). Keeping them in one neutral package avoids a frontend <->
// backend import cycle while keeping the two in lockstep, the same role
// wazevoapi.ExecutionContextOffsets/ModuleContextOffsetData plays between
// wazero's frontend and backend packages.
package abi

// Module context field offsets (bytes), a flat struct of pointer/length
// pairs the backend's Module Assembly stage (spec.md section 4.11)
// populates once per module instance.
const (
	ModuleCtxOffsetMemoryBase  = 0  // *byte / native pointer to linear memory base.
	ModuleCtxOffsetMemorySize  = 8  // current memory size in bytes (i64).
	ModuleCtxOffsetTableBase   = 16 // *byte, base of the table's function-pointer array.
	ModuleCtxOffsetTableLen    = 24 // number of table elements (i32, zero-extended).
	ModuleCtxOffsetTypeIDsBase = 32 // *byte, base of the per-type-index canonical ID array.
	ModuleCtxOffsetFuncPtrsBase = 40 // *byte, base of this module's own function pointer array.

	// ModuleCtxOffsetImportFuncPtrsBase is the base of the imported-
	// function pointer array (spec.md section 4.9's import_func_ptrs
	// global), distinct from ModuleCtxOffsetFuncPtrsBase: a direct call to
	// an imported function resolves its target through this array, null-
	// checked in sandboxed mode to catch an unlinked import.
	ModuleCtxOffsetImportFuncPtrsBase = 72

	// ModuleCtxOffsetGrowMemoryTrampoline is a function pointer the runtime installs
	// so memory.grow can call back into the (out-of-scope) heap allocator
	// without this core knowing its implementation.
	ModuleCtxOffsetGrowMemoryTrampoline = 48

	// ModuleCtxOffsetGlobalsBase points at a flat array of 8-byte global
	// storage slots, one per Wasm global index (imports first, then
	// module-defined), populated by the backend's Module Assembly stage.
	ModuleCtxOffsetGlobalsBase = 56

	// ModuleCtxOffsetAuxStackBottom holds the lowest valid address of the
	// auxiliary (shadow) stack; a write to the aux-stack-top global is
	// checked against it when -enable-aux-stack-check is on (spec.md
	// section 4.8).
	ModuleCtxOffsetAuxStackBottom = 64
)

// FunctionInstance field offsets, one instance per table slot, matching
// the shape wazero's wazevoapi.FunctionInstance{Executable,TypeID,
// ModuleContextOpaquePtr}Offset describe for indirect calls.
const (
	FunctionInstanceOffsetExecutable         = 0
	FunctionInstanceOffsetTypeID             = 8
	FunctionInstanceOffsetModuleContextOpaque = 12
	FunctionInstanceSize                     = 24
)

package frontend

import "github.com/wasm2native/wasm2nativec/internal/ir"

// Exception codes raised via ir.OpExitWithCode/OpExitIfTrueWithCode,
// grounded on wazevoapi.ExitCode* (internal/engine/wazevo/wazevoapi);
// renumbered for this core's own exception-table layout (spec.md section
// 4.10, "Trap/exception codes"). ExceptionUninitializedElement and
// ExceptionUnlinkedImportFunction are two textually distinct
// call_indirect/import-call null-pointer cases that original_source's
// aot_emit_exception call sites never conflate (aot_emit_function.c,
// EXCE_UNINITIALIZED_ELEMENT vs. EXCE_CALL_UNLINKED_IMPORT_FUNC).
const (
	ExceptionUnreachable = iota
	ExceptionMemoryOutOfBounds
	ExceptionIntegerDivideByZero
	ExceptionIntegerOverflow
	ExceptionInvalidConversionToInteger
	ExceptionTableOutOfBounds
	ExceptionUninitializedElement
	ExceptionIndirectCallTypeMismatch
	ExceptionUnlinkedImportFunction
	ExceptionStackOverflow
)

// raiseIf inserts a conditional exception raise: when cond is non-zero at
// runtime, the function exits with code; otherwise lowering falls
// straight through in the same block (ir.OpExitIfTrueWithCode is a
// non-terminating pseudo-op by design — see
// ir.Instruction.AsExitIfTrueWithCode's doc comment — so no new block needs to be allocated here).
func (fc *funcCompiler) raiseIf(cond ir.Value, code uint32) {
	fc.b.AllocateInstruction().AsExitIfTrueWithCode(fc.execCtx, cond, code).Insert(fc.b)
}

// raiseUnconditionally lowers unreachable and any other always-taken trap.
func (fc *funcCompiler) raiseUnconditionally(code uint32) {
	fc.b.AllocateInstruction().AsExitWithCode(fc.execCtx, code).Insert(fc.b)
}

// checkPendingExceptionAfterCall inserts the post-call exception_id poll
// spec.md section 4.9 requires after every call/call_indirect: a trap
// raised inside the callee must not be silently swallowed by the caller,
// grounded on check_exception_thrown's call sites in
// original_source/core/iwasm/compilation/aot_emit_function.c. Gated on
// fc.emitExceptionChecks (computed once from the prescanned
// HasOpFuncCall/HasOpCallIndirect flags, see compileFunction), since
// no-sandbox mode compiles the trap apparatus out entirely and a function
// that never calls anything has nothing to poll.
func (fc *funcCompiler) checkPendingExceptionAfterCall() {
	if !fc.emitExceptionChecks {
		return
	}
	fc.b.AllocateInstruction().AsCheckPendingException(fc.execCtx).Insert(fc.b)
}

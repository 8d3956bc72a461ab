package frontend

import (
	"fmt"

	"github.com/wasm2native/wasm2nativec/internal/ir"
	"github.com/wasm2native/wasm2nativec/internal/wasm"
)

// lowerCall lowers a direct call: the callee is resolved by function
// index, either to an imported function or to a locally defined
// function's IR name, grounded on Compiler.lowerCall in
// internal/engine/wazevo/frontend/lower.go. A call to an imported
// function is routed through the active LoweringStrategy's
// ImportCallTarget (an unresolved import is null-checked in sandboxed
// mode, per spec.md section 4.9) and emitted as an indirect call, since
// the callee's native address is only known at link time; a call to a
// module-local function is emitted directly by name. Every call
// invalidates the cached memory base/length (invalidateMemoryCache's rationale:
// the callee may have grown memory) and is followed by a post-call
// exception_id poll so a trap raised inside the callee cannot be silently
// ignored by the caller.
func (fc *funcCompiler) lowerCall() error {
	calleeIdx, err := fc.rd.u32()
	if err != nil {
		return err
	}
	if fc.st.unreachable {
		return nil
	}
	calleeSig, ok := fc.c.Module.FunctionTypeOf(calleeIdx)
	if !ok {
		return fmt.Errorf("frontend: call to unknown function %d", calleeIdx)
	}
	irSig := &ir.Signature{
		Params:  append([]ir.Type{ir.TypePtr, ir.TypePtr}, valueTypesToIR(calleeSig.Params)...),
		Results: valueTypesToIR(calleeSig.Results),
	}
	args := make([]ir.Value, len(calleeSig.Params))
	fc.st.nPopInto(len(args), args)
	callArgs := append([]ir.Value{fc.execCtx, fc.moduleCtx}, args...)

	var call *ir.Instruction
	if calleeIdx < fc.c.Module.ImportFunctionCount {
		calleePtr := fc.c.Strategy.ImportCallTarget(fc, calleeIdx)
		call = fc.b.AllocateInstruction().AsCallIndirect(calleePtr, irSig, callArgs).Insert(fc.b)
	} else {
		calleeName := fc.calleeName(calleeIdx)
		call = fc.b.AllocateInstruction().AsCall(calleeName, irSig, callArgs).Insert(fc.b)
	}
	fc.checkPendingExceptionAfterCall()
	fc.invalidateMemoryCache()
	fc.pushCallResults(call)
	return nil
}

// calleeName names a callee function the same way Compiler.compileFunction
// names the function it defines, so a direct call's AsCall string matches
// up with the target Func.Name once every function in the module has been
// lowered; imports are named by their two-level import namespace since
// they have no Code entry of their own to derive a synthetic name from.
func (fc *funcCompiler) calleeName(funcIdx wasm.Index) string {
	if funcIdx < fc.c.Module.ImportFunctionCount {
		var seen wasm.Index
		for i := range fc.c.Module.ImportSection {
			imp := &fc.c.Module.ImportSection[i]
			if imp.Type != wasm.ExternTypeFunc {
				continue
			}
			if seen == funcIdx {
				return fmt.Sprintf("%s.%s", imp.Module, imp.Name)
			}
			seen++
		}
	}
	return fmt.Sprintf("wasm_func_%d", funcIdx)
}

// lowerCallIndirect lowers call_indirect: the callee pointer is resolved
// by the active LoweringStrategy (bounds/null/type-checked in sandboxed
// mode, unchecked in no-sandbox mode), grounded on
// Compiler.lowerCallIndirect in frontend/lower.go.
func (fc *funcCompiler) lowerCallIndirect() error {
	typeIdx, err := fc.rd.u32()
	if err != nil {
		return err
	}
	tableIdx, err := fc.rd.u32()
	if err != nil {
		return err
	}
	if fc.st.unreachable {
		return nil
	}
	if int(typeIdx) >= len(fc.c.Module.TypeSection) {
		return fmt.Errorf("frontend: call_indirect type index %d out of range", typeIdx)
	}
	calleeSig := &fc.c.Module.TypeSection[typeIdx]
	irSig := &ir.Signature{
		Params:  append([]ir.Type{ir.TypePtr, ir.TypePtr}, valueTypesToIR(calleeSig.Params)...),
		Results: valueTypesToIR(calleeSig.Results),
	}

	elemIndex := fc.st.pop()
	args := make([]ir.Value, len(calleeSig.Params))
	fc.st.nPopInto(len(args), args)

	canonicalTypeIdx := fc.c.Module.CanonicalTypeIndex(typeIdx)
	calleePtr := fc.c.Strategy.TableCallTarget(fc, tableIdx, elemIndex, canonicalTypeIdx)

	callArgs := append([]ir.Value{fc.execCtx, fc.moduleCtx}, args...)
	call := fc.b.AllocateInstruction().AsCallIndirect(calleePtr, irSig, callArgs).Insert(fc.b)
	fc.checkPendingExceptionAfterCall()
	fc.invalidateMemoryCache()
	fc.pushCallResults(call)
	return nil
}

// pushCallResults pushes a call/call_indirect's result values back onto
// the Wasm operand stack in order.
func (fc *funcCompiler) pushCallResults(call *ir.Instruction) {
	first, rest := call.Returns()
	if !first.Valid() {
		return
	}
	fc.st.push(first)
	for _, r := range rest {
		fc.st.push(r)
	}
}

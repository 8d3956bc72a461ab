package frontend

import "github.com/wasm2native/wasm2nativec/internal/wasm"

// lowerI32Const/I64Const decode the constant's LEB128 immediate and, in
// no-sandbox mode, check whether the code offset the immediate started at
// carries a linking relocation (R_WASM_MEMORY_ADDR_SLEB64 /
// R_WASM_TABLE_INDEX_SLEB64): if so the constant is rewritten to bake in
// the resolved native pointer via the strategy, grounded on
// aot_compile_op_i32_const/aot_compile_op_i64_const in
// original_source/core/iwasm/compilation/aot_emit_const.c. Sandboxed mode
// never has relocations to resolve (RewriteConstReloc always reports
// false), so the constant passes through unchanged.
func (fc *funcCompiler) lowerI32Const() error {
	startOffset := uint32(fc.rd.pos)
	v, err := fc.rd.i32()
	if err != nil {
		return err
	}
	if fc.st.unreachable {
		return nil
	}
	if reloc, ok := wasm.RelocationAt(fc.c.Module.RelocationsCode, startOffset); ok {
		if rewritten, ok := fc.c.Strategy.RewriteConstReloc(fc, reloc); ok {
			fc.st.push(rewritten)
			return nil
		}
	}
	fc.st.push(fc.b.AllocateInstruction().AsIconst32(uint32(v)).Insert(fc.b).Return())
	return nil
}

func (fc *funcCompiler) lowerI64Const() error {
	startOffset := uint32(fc.rd.pos)
	v, err := fc.rd.i64()
	if err != nil {
		return err
	}
	if fc.st.unreachable {
		return nil
	}
	if reloc, ok := wasm.RelocationAt(fc.c.Module.RelocationsCode, startOffset); ok {
		if rewritten, ok := fc.c.Strategy.RewriteConstReloc(fc, reloc); ok {
			fc.st.push(rewritten)
			return nil
		}
	}
	fc.st.push(fc.b.AllocateInstruction().AsIconst64(uint64(v)).Insert(fc.b).Return())
	return nil
}

// lowerF32Const/F64Const read the fixed-width float bytes and store them
// as a raw bit pattern on the constant instruction. Unlike WAMR's original
// C AOT compiler — which routes every float constant through an
// alloca+bitcast+load so LLVM's constant folder cannot canonicalize a NaN
// payload — this core's IR constant instructions already carry the exact
// bits (AsF32const/AsF64const store math.Float32bits/Float64bits
// directly), so no such workaround is needed: there is no constant folder
// at this IR layer to canonicalize anything.
func (fc *funcCompiler) lowerF32Const() error {
	v, err := fc.rd.f32()
	if err != nil {
		return err
	}
	if fc.st.unreachable {
		return nil
	}
	fc.st.push(fc.b.AllocateInstruction().AsF32const(v).Insert(fc.b).Return())
	return nil
}

func (fc *funcCompiler) lowerF64Const() error {
	v, err := fc.rd.f64()
	if err != nil {
		return err
	}
	if fc.st.unreachable {
		return nil
	}
	fc.st.push(fc.b.AllocateInstruction().AsF64const(v).Insert(fc.b).Return())
	return nil
}

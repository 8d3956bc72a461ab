package frontend

import (
	"fmt"

	"github.com/wasm2native/wasm2nativec/internal/abi"
	"github.com/wasm2native/wasm2nativec/internal/ir"
	"github.com/wasm2native/wasm2nativec/internal/wasm"
)

// lowerLoad lowers every i32/i64/f32/f64.load[8|16|32][_s|_u] opcode: the
// effective address is computed by the active LoweringStrategy (bounds
// checked in sandboxed mode, raw in no-sandbox mode), grounded on
// Compiler.lowerLoad/memOpSetup in
// internal/engine/wazevo/frontend/lower.go.
func (fc *funcCompiler) lowerLoad(op wasm.Opcode) error {
	_, offset, err := fc.rd.memArg()
	if err != nil {
		return err
	}
	if fc.st.unreachable {
		return nil
	}
	base := fc.st.pop()
	b := fc.b

	var accessSize uint32
	switch op {
	case wasm.OpcodeI32Load8S, wasm.OpcodeI32Load8U, wasm.OpcodeI64Load8S, wasm.OpcodeI64Load8U:
		accessSize = 1
	case wasm.OpcodeI32Load16S, wasm.OpcodeI32Load16U, wasm.OpcodeI64Load16S, wasm.OpcodeI64Load16U:
		accessSize = 2
	case wasm.OpcodeI32Load, wasm.OpcodeF32Load, wasm.OpcodeI64Load32S, wasm.OpcodeI64Load32U:
		accessSize = 4
	case wasm.OpcodeI64Load, wasm.OpcodeF64Load:
		accessSize = 8
	default:
		return fmt.Errorf("frontend: unsupported load opcode 0x%02x", byte(op))
	}

	addr := fc.c.Strategy.MemoryAddress(fc, base, offset, accessSize)

	var v ir.Value
	switch op {
	case wasm.OpcodeI32Load:
		v = b.AllocateInstruction().AsLoad(addr, 0, ir.TypeI32).Insert(b).Return()
	case wasm.OpcodeI64Load:
		v = b.AllocateInstruction().AsLoad(addr, 0, ir.TypeI64).Insert(b).Return()
	case wasm.OpcodeF32Load:
		v = b.AllocateInstruction().AsLoad(addr, 0, ir.TypeF32).Insert(b).Return()
	case wasm.OpcodeF64Load:
		v = b.AllocateInstruction().AsLoad(addr, 0, ir.TypeF64).Insert(b).Return()
	case wasm.OpcodeI32Load8S:
		v = b.AllocateInstruction().AsExtLoad(addr, 0, 8, true).Insert(b).Return()
	case wasm.OpcodeI32Load8U:
		v = b.AllocateInstruction().AsExtLoad(addr, 0, 8, false).Insert(b).Return()
	case wasm.OpcodeI32Load16S:
		v = b.AllocateInstruction().AsExtLoad(addr, 0, 16, true).Insert(b).Return()
	case wasm.OpcodeI32Load16U:
		v = b.AllocateInstruction().AsExtLoad(addr, 0, 16, false).Insert(b).Return()
	case wasm.OpcodeI64Load8S:
		v = fc.extend64(b.AllocateInstruction().AsExtLoad(addr, 0, 8, true).Insert(b).Return(), true)
	case wasm.OpcodeI64Load8U:
		v = fc.extend64(b.AllocateInstruction().AsExtLoad(addr, 0, 8, false).Insert(b).Return(), false)
	case wasm.OpcodeI64Load16S:
		v = fc.extend64(b.AllocateInstruction().AsExtLoad(addr, 0, 16, true).Insert(b).Return(), true)
	case wasm.OpcodeI64Load16U:
		v = fc.extend64(b.AllocateInstruction().AsExtLoad(addr, 0, 16, false).Insert(b).Return(), false)
	case wasm.OpcodeI64Load32S:
		v = b.AllocateInstruction().AsExtend(b.AllocateInstruction().AsLoad(addr, 0, ir.TypeI32).Insert(b).Return(), true, 32, 64).Insert(b).Return()
	case wasm.OpcodeI64Load32U:
		v = b.AllocateInstruction().AsExtend(b.AllocateInstruction().AsLoad(addr, 0, ir.TypeI32).Insert(b).Return(), false, 32, 64).Insert(b).Return()
	}
	fc.st.push(v)
	return nil
}

// extend64 widens a 32-bit extended-load result to i64; the sub-32-bit
// loads above already land in an i32 result, so 64-bit narrow loads need
// one further extension stage.
func (fc *funcCompiler) extend64(v ir.Value, signed bool) ir.Value {
	return fc.b.AllocateInstruction().AsExtend(v, signed, 32, 64).Insert(fc.b).Return()
}

// lowerStore lowers every i32/i64/f32/f64.store[8|16|32] opcode.
func (fc *funcCompiler) lowerStore(op wasm.Opcode) error {
	_, offset, err := fc.rd.memArg()
	if err != nil {
		return err
	}
	if fc.st.unreachable {
		return nil
	}
	value := fc.st.pop()
	base := fc.st.pop()
	b := fc.b

	var accessSize uint32
	switch op {
	case wasm.OpcodeI32Store8, wasm.OpcodeI64Store8:
		accessSize = 1
	case wasm.OpcodeI32Store16, wasm.OpcodeI64Store16:
		accessSize = 2
	case wasm.OpcodeI32Store, wasm.OpcodeF32Store, wasm.OpcodeI64Store32:
		accessSize = 4
	case wasm.OpcodeI64Store, wasm.OpcodeF64Store:
		accessSize = 8
	default:
		return fmt.Errorf("frontend: unsupported store opcode 0x%02x", byte(op))
	}

	addr := fc.c.Strategy.MemoryAddress(fc, base, offset, accessSize)

	switch op {
	case wasm.OpcodeI32Store, wasm.OpcodeI64Store, wasm.OpcodeF32Store, wasm.OpcodeF64Store:
		b.AllocateInstruction().AsStore(value, addr, 0).Insert(b)
	case wasm.OpcodeI32Store8, wasm.OpcodeI64Store8:
		b.AllocateInstruction().AsTruncStore(value, addr, 0, 8).Insert(b)
	case wasm.OpcodeI32Store16, wasm.OpcodeI64Store16:
		b.AllocateInstruction().AsTruncStore(value, addr, 0, 16).Insert(b)
	case wasm.OpcodeI64Store32:
		b.AllocateInstruction().AsTruncStore(value, addr, 0, 32).Insert(b)
	}
	return nil
}

// lowerMemorySize lowers memory.size: the byte length held in the module
// context is divided down to page units (65536 bytes/page).
func (fc *funcCompiler) lowerMemorySize() error {
	if _, err := fc.rd.byte(); err != nil { // reserved memory-index byte.
		return err
	}
	if fc.st.unreachable {
		return nil
	}
	b := fc.b
	lenBytes := fc.memorySizeBytes()
	pageSize := b.AllocateInstruction().AsIconst64(65536).Insert(b).Return()
	pages64 := b.AllocateInstruction().AsUDiv(lenBytes, pageSize).Insert(b).Return()
	pages32 := b.AllocateInstruction().AsWrap(pages64).Insert(b).Return()
	fc.st.push(pages32)
	return nil
}

// lowerMemoryGrow lowers memory.grow: no-sandbox mode has a fixed-size
// memory (no allocator to call into), so it always reports failure (-1)
// per spec.md section 4.7; sandboxed mode calls through the module
// context's grow-memory trampoline function pointer and invalidates the
// cached base pointer, since a successful grow may relocate memory. The
// allocator itself is out of scope for this core (spec.md's Non-goals);
// the backend's Module Assembly stage is responsible for installing a
// real trampoline at link time.
func (fc *funcCompiler) lowerMemoryGrow() error {
	if _, err := fc.rd.byte(); err != nil { // reserved memory-index byte.
		return err
	}
	if fc.st.unreachable {
		return nil
	}
	b := fc.b
	deltaPages := fc.st.pop()

	if fc.c.Strategy.NoSandbox() {
		_ = deltaPages
		fc.st.push(b.AllocateInstruction().AsIconst32(0xffffffff).Insert(b).Return())
		return nil
	}

	trampolineAddr := fc.loadModuleCtxI64(abi.ModuleCtxOffsetGrowMemoryTrampoline)
	trampolinePtr := b.AllocateInstruction().AsIntToPtr(trampolineAddr).Insert(b).Return()

	sig := &ir.Signature{Params: []ir.Type{ir.TypePtr, ir.TypeI32}, Results: []ir.Type{ir.TypeI32}}
	call := b.AllocateInstruction().AsCallIndirect(trampolinePtr, sig, []ir.Value{fc.moduleCtx, deltaPages}).Insert(b)
	fc.invalidateMemoryCache()
	fc.st.push(call.Return())
	return nil
}

// lowerLocalGet/Set/Tee read/write a local's alloca slot directly (see
// funcCompiler.locals' doc comment on declareLocals).
func (fc *funcCompiler) lowerLocalGet() error {
	idx, err := fc.rd.u32()
	if err != nil {
		return err
	}
	if fc.st.unreachable {
		return nil
	}
	slot := fc.locals[idx]
	v := fc.b.AllocateInstruction().AsLoad(slot, 0, fc.localTypes[idx]).Insert(fc.b).Return()
	fc.st.push(v)
	return nil
}

func (fc *funcCompiler) lowerLocalSet() error {
	idx, err := fc.rd.u32()
	if err != nil {
		return err
	}
	if fc.st.unreachable {
		return nil
	}
	v := fc.st.pop()
	fc.b.AllocateInstruction().AsStore(v, fc.locals[idx], 0).Insert(fc.b)
	return nil
}

func (fc *funcCompiler) lowerLocalTee() error {
	idx, err := fc.rd.u32()
	if err != nil {
		return err
	}
	if fc.st.unreachable {
		return nil
	}
	v := fc.st.nPeekDup(1)[0]
	fc.b.AllocateInstruction().AsStore(v, fc.locals[idx], 0).Insert(fc.b)
	return nil
}

// lowerGlobalGet/Set read/write a global through the module context's
// global storage area; the well-known aux-stack-pointer global is flagged
// on the function (FuncFlags.HasOpSetGlobalAuxStack) since the backend's
// prologue/epilogue wiring needs to know whether a function touches it.
func (fc *funcCompiler) lowerGlobalGet() error {
	idx, err := fc.rd.u32()
	if err != nil {
		return err
	}
	if fc.st.unreachable {
		return nil
	}
	typ := fc.globalIRType(idx)
	ptr := fc.globalSlotPointer(idx)
	v := fc.b.AllocateInstruction().AsLoad(ptr, 0, typ).Insert(fc.b).Return()
	fc.st.push(v)
	return nil
}

func (fc *funcCompiler) lowerGlobalSet() error {
	idx, err := fc.rd.u32()
	if err != nil {
		return err
	}
	if fc.st.unreachable {
		return nil
	}
	isAuxStackTop := fc.c.Module.WellKnownGlobalOf(idx) == wasm.WellKnownGlobalAuxStackTop
	if isAuxStackTop {
		fc.f.Flags.HasOpSetGlobalAuxStack = true
	}
	v := fc.st.pop()
	if isAuxStackTop && fc.c.EnableAuxStackCheck {
		fc.checkAuxStackOverflow(v)
	}
	ptr := fc.globalSlotPointer(idx)
	fc.b.AllocateInstruction().AsStore(v, ptr, 0).Insert(fc.b)
	return nil
}

// globalSlotPointer computes the address of global idx's storage slot.
// Globals are laid out by the backend's Module Assembly stage as a flat
// array of 8-byte slots starting at the module context's globals base
// (spec.md section 4.11); the frontend only needs a stable per-index byte
// offset, not the storage's actual layout policy.
func (fc *funcCompiler) globalSlotPointer(idx wasm.Index) ir.Value {
	b := fc.b
	globalsBase := fc.loadModuleCtxI64(abi.ModuleCtxOffsetGlobalsBase)
	basePtr := b.AllocateInstruction().AsIntToPtr(globalsBase).Insert(b).Return()
	off := b.AllocateInstruction().AsIconst64(uint64(idx) * 8).Insert(b).Return()
	return b.AllocateInstruction().AsGEP(basePtr, off).Insert(b).Return()
}

// checkAuxStackOverflow compares a new aux-stack-top value v against the
// module's recorded aux_stack_bottom and raises ExceptionStackOverflow
// when v has dropped below it (the aux/shadow stack grows down), per
// spec.md section 4.8's "-enable-aux-stack-check" gate.
func (fc *funcCompiler) checkAuxStackOverflow(v ir.Value) {
	b := fc.b
	bottom := fc.loadModuleCtxI64(abi.ModuleCtxOffsetAuxStackBottom)
	v64 := v
	if v.Type() == ir.TypeI32 {
		v64 = b.AllocateInstruction().AsExtend(v, false, 32, 64).Insert(b).Return()
	}
	underflow := b.AllocateInstruction().AsIcmp(v64, bottom, ir.IntegerCmpUnsignedLessThan).Insert(b).Return()
	fc.raiseIf(underflow, ExceptionStackOverflow)
}

func (fc *funcCompiler) globalIRType(idx wasm.Index) ir.Type {
	imported := fc.c.Module.ImportGlobalCount
	if idx >= imported && int(idx-imported) < len(fc.c.Module.GlobalSection) {
		return valueTypeToIR(fc.c.Module.GlobalSection[idx-imported].Type.ValType)
	}
	return ir.TypeI64 // imported global: width resolved at link time, i64 is a safe superset slot.
}

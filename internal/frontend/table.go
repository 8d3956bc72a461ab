package frontend

import (
	"github.com/wasm2native/wasm2nativec/internal/abi"
	"github.com/wasm2native/wasm2nativec/internal/ir"
)

// lowerTableGet/lowerTableSet read/write a table slot's function pointer
// directly: funcref is represented as a raw ir.TypePtr value throughout
// this core (see valueTypeToIR), so both opcodes only need the
// Executable field of the slot's FunctionInstance, not the whole struct.
// The addressing arithmetic mirrors TableCallTarget's without the type-ID
// comparison call_indirect needs, since spec.md section 2 scopes
// table.get/set as plain element access rather than a call-target
// resolution.
func (fc *funcCompiler) lowerTableGet() error {
	if _, err := fc.rd.u32(); err != nil { // table index; single-table core.
		return err
	}
	if fc.st.unreachable {
		return nil
	}
	elemIndex := fc.st.pop()
	instancePtr := fc.tableSlotAddress(elemIndex)
	v := fc.b.AllocateInstruction().AsLoad(instancePtr, abi.FunctionInstanceOffsetExecutable, ir.TypePtr).Insert(fc.b).Return()
	fc.st.push(v)
	return nil
}

func (fc *funcCompiler) lowerTableSet() error {
	if _, err := fc.rd.u32(); err != nil {
		return err
	}
	if fc.st.unreachable {
		return nil
	}
	value := fc.st.pop()
	elemIndex := fc.st.pop()
	instancePtr := fc.tableSlotAddress(elemIndex)
	fc.b.AllocateInstruction().AsStore(value, instancePtr, abi.FunctionInstanceOffsetExecutable).Insert(fc.b)
	return nil
}

// tableSlotAddress computes the FunctionInstance-sized slot address for a
// dynamic element index, bounds-checked in sandboxed mode only (no-sandbox
// mode trusts the producer toolchain, per NoSandboxStrategy.TableCallTarget).
func (fc *funcCompiler) tableSlotAddress(elemIndex ir.Value) ir.Value {
	b := fc.b
	if !fc.c.Strategy.NoSandbox() {
		tableLen := fc.loadModuleCtxI32(abi.ModuleCtxOffsetTableLen)
		oob := b.AllocateInstruction().AsIcmp(elemIndex, tableLen, ir.IntegerCmpUnsignedGreaterThanOrEqual).Insert(b).Return()
		fc.raiseIf(oob, ExceptionTableOutOfBounds)
	}
	tableBase := fc.loadModuleCtxI64(abi.ModuleCtxOffsetTableBase)
	tableBasePtr := b.AllocateInstruction().AsIntToPtr(tableBase).Insert(b).Return()
	elemIndex64 := b.AllocateInstruction().AsExtend(elemIndex, false, 32, 64).Insert(b).Return()
	entrySize := b.AllocateInstruction().AsIconst64(abi.FunctionInstanceSize).Insert(b).Return()
	byteOffset := b.AllocateInstruction().AsImul(elemIndex64, entrySize).Insert(b).Return()
	return b.AllocateInstruction().AsGEP(tableBasePtr, byteOffset).Insert(b).Return()
}

// lowerRefNull pushes a null funcref constant. reftype is always funcref
// for this core (spec.md's Non-goals excludes externref and the rest of
// the Wasm GC reference-type proposal).
func (fc *funcCompiler) lowerRefNull() error {
	if _, err := fc.rd.byte(); err != nil { // reftype byte (0x70 funcref).
		return err
	}
	if fc.st.unreachable {
		return nil
	}
	zero := fc.b.AllocateInstruction().AsIconst64(0).Insert(fc.b).Return()
	fc.st.push(fc.b.AllocateInstruction().AsIntToPtr(zero).Insert(fc.b).Return())
	return nil
}

// lowerRefIsNull pops a funcref and pushes an i32 boolean.
func (fc *funcCompiler) lowerRefIsNull() error {
	if fc.st.unreachable {
		return nil
	}
	v := fc.st.pop()
	b := fc.b
	asInt := b.AllocateInstruction().AsPtrToInt(v).Insert(b).Return()
	zero := b.AllocateInstruction().AsIconst64(0).Insert(b).Return()
	isNull := b.AllocateInstruction().AsIcmp(asInt, zero, ir.IntegerCmpEqual).Insert(b).Return()
	fc.st.push(isNull)
	return nil
}

// lowerRefFunc pushes a funcref value for a given function index, loaded
// from the module's own function-pointer array — the same array
// NoSandboxStrategy.RewriteConstReloc's RelocTableIndexSLEB64 case reads
// for a relocated table-index constant.
func (fc *funcCompiler) lowerRefFunc() error {
	funcIdx, err := fc.rd.u32()
	if err != nil {
		return err
	}
	if fc.st.unreachable {
		return nil
	}
	fc.st.push(fc.funcPtrsSlot(funcIdx))
	return nil
}

func (fc *funcCompiler) funcPtrsSlot(funcIdx uint32) ir.Value {
	b := fc.b
	base := fc.loadModuleCtxI64(abi.ModuleCtxOffsetFuncPtrsBase)
	basePtr := b.AllocateInstruction().AsIntToPtr(base).Insert(b).Return()
	off := b.AllocateInstruction().AsIconst64(uint64(funcIdx) * 8).Insert(b).Return()
	slot := b.AllocateInstruction().AsGEP(basePtr, off).Insert(b).Return()
	return b.AllocateInstruction().AsLoad(slot, 0, ir.TypePtr).Insert(b).Return()
}

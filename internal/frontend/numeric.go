package frontend

import (
	"fmt"

	"github.com/wasm2native/wasm2nativec/internal/ir"
	"github.com/wasm2native/wasm2nativec/internal/wasm"
)

// lowerUnaryOrBinary dispatches every plain arithmetic/bitwise/compare/
// conversion opcode (no control-flow, no memory access) straight onto the
// matching ir builder call. Grounded on the corresponding
// wasm.Opcode* arms of frontend.Compiler.lowerCurrentOpcode in
// internal/engine/wazevo/frontend/lower.go, collapsed into one switch
// since none of these opcodes read extra operand bytes.
func (fc *funcCompiler) lowerUnaryOrBinary(op wasm.Opcode) error {
	if fc.st.unreachable {
		return nil
	}
	b := fc.b
	switch op {
	// --- integer arithmetic ---
	case wasm.OpcodeI32Add, wasm.OpcodeI64Add:
		y, x := fc.st.pop(), fc.st.pop()
		fc.st.push(b.AllocateInstruction().AsIadd(x, y).Insert(b).Return())
	case wasm.OpcodeI32Sub, wasm.OpcodeI64Sub:
		y, x := fc.st.pop(), fc.st.pop()
		fc.st.push(b.AllocateInstruction().AsIsub(x, y).Insert(b).Return())
	case wasm.OpcodeI32Mul, wasm.OpcodeI64Mul:
		y, x := fc.st.pop(), fc.st.pop()
		fc.st.push(b.AllocateInstruction().AsImul(x, y).Insert(b).Return())
	case wasm.OpcodeI32DivS, wasm.OpcodeI64DivS:
		y, x := fc.st.pop(), fc.st.pop()
		fc.trapDivByZero(y)
		fc.trapSignedDivOverflow(op, x, y)
		fc.st.push(b.AllocateInstruction().AsSDiv(x, y).Insert(b).Return())
	case wasm.OpcodeI32DivU, wasm.OpcodeI64DivU:
		y, x := fc.st.pop(), fc.st.pop()
		fc.trapDivByZero(y)
		fc.st.push(b.AllocateInstruction().AsUDiv(x, y).Insert(b).Return())
	case wasm.OpcodeI32RemS, wasm.OpcodeI64RemS:
		y, x := fc.st.pop(), fc.st.pop()
		fc.trapDivByZero(y)
		fc.st.push(b.AllocateInstruction().AsSRem(x, y).Insert(b).Return())
	case wasm.OpcodeI32RemU, wasm.OpcodeI64RemU:
		y, x := fc.st.pop(), fc.st.pop()
		fc.trapDivByZero(y)
		fc.st.push(b.AllocateInstruction().AsURem(x, y).Insert(b).Return())

	case wasm.OpcodeI32And, wasm.OpcodeI64And:
		y, x := fc.st.pop(), fc.st.pop()
		fc.st.push(b.AllocateInstruction().AsBand(x, y).Insert(b).Return())
	case wasm.OpcodeI32Or, wasm.OpcodeI64Or:
		y, x := fc.st.pop(), fc.st.pop()
		fc.st.push(b.AllocateInstruction().AsBor(x, y).Insert(b).Return())
	case wasm.OpcodeI32Xor, wasm.OpcodeI64Xor:
		y, x := fc.st.pop(), fc.st.pop()
		fc.st.push(b.AllocateInstruction().AsBxor(x, y).Insert(b).Return())
	case wasm.OpcodeI32Shl, wasm.OpcodeI64Shl:
		y, x := fc.st.pop(), fc.st.pop()
		fc.st.push(b.AllocateInstruction().AsIshl(x, y).Insert(b).Return())
	case wasm.OpcodeI32ShrS, wasm.OpcodeI64ShrS:
		y, x := fc.st.pop(), fc.st.pop()
		fc.st.push(b.AllocateInstruction().AsSshr(x, y).Insert(b).Return())
	case wasm.OpcodeI32ShrU, wasm.OpcodeI64ShrU:
		y, x := fc.st.pop(), fc.st.pop()
		fc.st.push(b.AllocateInstruction().AsUshr(x, y).Insert(b).Return())
	case wasm.OpcodeI32Rotl, wasm.OpcodeI64Rotl:
		y, x := fc.st.pop(), fc.st.pop()
		fc.st.push(b.AllocateInstruction().AsRotl(x, y).Insert(b).Return())
	case wasm.OpcodeI32Rotr, wasm.OpcodeI64Rotr:
		y, x := fc.st.pop(), fc.st.pop()
		fc.st.push(b.AllocateInstruction().AsRotr(x, y).Insert(b).Return())

	case wasm.OpcodeI32Clz, wasm.OpcodeI64Clz:
		fc.st.push(b.AllocateInstruction().AsClz(fc.st.pop()).Insert(b).Return())
	case wasm.OpcodeI32Ctz, wasm.OpcodeI64Ctz:
		fc.st.push(b.AllocateInstruction().AsCtz(fc.st.pop()).Insert(b).Return())
	case wasm.OpcodeI32Popcnt, wasm.OpcodeI64Popcnt:
		fc.st.push(b.AllocateInstruction().AsPopcnt(fc.st.pop()).Insert(b).Return())

	case wasm.OpcodeI32Eqz:
		x := fc.st.pop()
		zero := b.AllocateInstruction().AsIconst32(0).Insert(b).Return()
		fc.st.push(b.AllocateInstruction().AsIcmp(x, zero, ir.IntegerCmpEqual).Insert(b).Return())
	case wasm.OpcodeI64Eqz:
		x := fc.st.pop()
		zero := b.AllocateInstruction().AsIconst64(0).Insert(b).Return()
		fc.st.push(b.AllocateInstruction().AsIcmp(x, zero, ir.IntegerCmpEqual).Insert(b).Return())

	// --- integer comparisons ---
	case wasm.OpcodeI32Eq, wasm.OpcodeI64Eq:
		fc.lowerIcmp(ir.IntegerCmpEqual)
	case wasm.OpcodeI32Ne, wasm.OpcodeI64Ne:
		fc.lowerIcmp(ir.IntegerCmpNotEqual)
	case wasm.OpcodeI32LtS, wasm.OpcodeI64LtS:
		fc.lowerIcmp(ir.IntegerCmpSignedLessThan)
	case wasm.OpcodeI32LtU, wasm.OpcodeI64LtU:
		fc.lowerIcmp(ir.IntegerCmpUnsignedLessThan)
	case wasm.OpcodeI32GtS, wasm.OpcodeI64GtS:
		fc.lowerIcmp(ir.IntegerCmpSignedGreaterThan)
	case wasm.OpcodeI32GtU, wasm.OpcodeI64GtU:
		fc.lowerIcmp(ir.IntegerCmpUnsignedGreaterThan)
	case wasm.OpcodeI32LeS, wasm.OpcodeI64LeS:
		fc.lowerIcmp(ir.IntegerCmpSignedLessThanOrEqual)
	case wasm.OpcodeI32LeU, wasm.OpcodeI64LeU:
		fc.lowerIcmp(ir.IntegerCmpUnsignedLessThanOrEqual)
	case wasm.OpcodeI32GeS, wasm.OpcodeI64GeS:
		fc.lowerIcmp(ir.IntegerCmpSignedGreaterThanOrEqual)
	case wasm.OpcodeI32GeU, wasm.OpcodeI64GeU:
		fc.lowerIcmp(ir.IntegerCmpUnsignedGreaterThanOrEqual)

	// --- float arithmetic ---
	case wasm.OpcodeF32Add, wasm.OpcodeF64Add:
		y, x := fc.st.pop(), fc.st.pop()
		fc.st.push(b.AllocateInstruction().AsFadd(x, y).Insert(b).Return())
	case wasm.OpcodeF32Sub, wasm.OpcodeF64Sub:
		y, x := fc.st.pop(), fc.st.pop()
		fc.st.push(b.AllocateInstruction().AsFsub(x, y).Insert(b).Return())
	case wasm.OpcodeF32Mul, wasm.OpcodeF64Mul:
		y, x := fc.st.pop(), fc.st.pop()
		fc.st.push(b.AllocateInstruction().AsFmul(x, y).Insert(b).Return())
	case wasm.OpcodeF32Div, wasm.OpcodeF64Div:
		y, x := fc.st.pop(), fc.st.pop()
		fc.st.push(b.AllocateInstruction().AsFdiv(x, y).Insert(b).Return())
	case wasm.OpcodeF32Min, wasm.OpcodeF64Min:
		y, x := fc.st.pop(), fc.st.pop()
		fc.st.push(b.AllocateInstruction().AsFmin(x, y).Insert(b).Return())
	case wasm.OpcodeF32Max, wasm.OpcodeF64Max:
		y, x := fc.st.pop(), fc.st.pop()
		fc.st.push(b.AllocateInstruction().AsFmax(x, y).Insert(b).Return())
	case wasm.OpcodeF32Copysign, wasm.OpcodeF64Copysign:
		y, x := fc.st.pop(), fc.st.pop()
		fc.st.push(b.AllocateInstruction().AsFcopysign(x, y).Insert(b).Return())
	case wasm.OpcodeF32Abs, wasm.OpcodeF64Abs:
		fc.st.push(b.AllocateInstruction().AsFabs(fc.st.pop()).Insert(b).Return())
	case wasm.OpcodeF32Neg, wasm.OpcodeF64Neg:
		fc.st.push(b.AllocateInstruction().AsFneg(fc.st.pop()).Insert(b).Return())
	case wasm.OpcodeF32Sqrt, wasm.OpcodeF64Sqrt:
		fc.st.push(b.AllocateInstruction().AsFsqrt(fc.st.pop()).Insert(b).Return())
	case wasm.OpcodeF32Ceil, wasm.OpcodeF64Ceil:
		fc.st.push(b.AllocateInstruction().AsFceil(fc.st.pop()).Insert(b).Return())
	case wasm.OpcodeF32Floor, wasm.OpcodeF64Floor:
		fc.st.push(b.AllocateInstruction().AsFfloor(fc.st.pop()).Insert(b).Return())
	case wasm.OpcodeF32Trunc, wasm.OpcodeF64Trunc:
		fc.st.push(b.AllocateInstruction().AsFtrunc(fc.st.pop()).Insert(b).Return())
	case wasm.OpcodeF32Nearest, wasm.OpcodeF64Nearest:
		fc.st.push(b.AllocateInstruction().AsFnearest(fc.st.pop()).Insert(b).Return())

	// --- float comparisons ---
	case wasm.OpcodeF32Eq, wasm.OpcodeF64Eq:
		fc.lowerFcmp(ir.FloatCmpEqual)
	case wasm.OpcodeF32Ne, wasm.OpcodeF64Ne:
		fc.lowerFcmp(ir.FloatCmpNotEqual)
	case wasm.OpcodeF32Lt, wasm.OpcodeF64Lt:
		fc.lowerFcmp(ir.FloatCmpLessThan)
	case wasm.OpcodeF32Gt, wasm.OpcodeF64Gt:
		fc.lowerFcmp(ir.FloatCmpGreaterThan)
	case wasm.OpcodeF32Le, wasm.OpcodeF64Le:
		fc.lowerFcmp(ir.FloatCmpLessThanOrEqual)
	case wasm.OpcodeF32Ge, wasm.OpcodeF64Ge:
		fc.lowerFcmp(ir.FloatCmpGreaterThanOrEqual)

	// --- conversions ---
	case wasm.OpcodeI32WrapI64:
		fc.st.push(b.AllocateInstruction().AsWrap(fc.st.pop()).Insert(b).Return())
	case wasm.OpcodeI64ExtendI32S:
		fc.st.push(b.AllocateInstruction().AsExtend(fc.st.pop(), true, 32, 64).Insert(b).Return())
	case wasm.OpcodeI64ExtendI32U:
		fc.st.push(b.AllocateInstruction().AsExtend(fc.st.pop(), false, 32, 64).Insert(b).Return())
	case wasm.OpcodeI32Extend8S:
		fc.st.push(b.AllocateInstruction().AsExtend(fc.st.pop(), true, 8, 32).Insert(b).Return())
	case wasm.OpcodeI32Extend16S:
		fc.st.push(b.AllocateInstruction().AsExtend(fc.st.pop(), true, 16, 32).Insert(b).Return())
	case wasm.OpcodeI64Extend8S:
		fc.st.push(b.AllocateInstruction().AsExtend(fc.st.pop(), true, 8, 64).Insert(b).Return())
	case wasm.OpcodeI64Extend16S:
		fc.st.push(b.AllocateInstruction().AsExtend(fc.st.pop(), true, 16, 64).Insert(b).Return())
	case wasm.OpcodeI64Extend32S:
		fc.st.push(b.AllocateInstruction().AsExtend(fc.st.pop(), true, 32, 64).Insert(b).Return())

	case wasm.OpcodeI32TruncF32S, wasm.OpcodeI32TruncF64S:
		fc.lowerTrunc(false, true)
	case wasm.OpcodeI32TruncF32U, wasm.OpcodeI32TruncF64U:
		fc.lowerTrunc(false, false)
	case wasm.OpcodeI64TruncF32S, wasm.OpcodeI64TruncF64S:
		fc.lowerTrunc(true, true)
	case wasm.OpcodeI64TruncF32U, wasm.OpcodeI64TruncF64U:
		fc.lowerTrunc(true, false)

	case wasm.OpcodeF32ConvertI32S, wasm.OpcodeF32ConvertI64S:
		fc.st.push(b.AllocateInstruction().AsFcvtFromInt(fc.st.pop(), true, false).Insert(b).Return())
	case wasm.OpcodeF32ConvertI32U, wasm.OpcodeF32ConvertI64U:
		fc.st.push(b.AllocateInstruction().AsFcvtFromInt(fc.st.pop(), false, false).Insert(b).Return())
	case wasm.OpcodeF64ConvertI32S, wasm.OpcodeF64ConvertI64S:
		fc.st.push(b.AllocateInstruction().AsFcvtFromInt(fc.st.pop(), true, true).Insert(b).Return())
	case wasm.OpcodeF64ConvertI32U, wasm.OpcodeF64ConvertI64U:
		fc.st.push(b.AllocateInstruction().AsFcvtFromInt(fc.st.pop(), false, true).Insert(b).Return())

	case wasm.OpcodeF32DemoteF64:
		fc.st.push(b.AllocateInstruction().AsFdemote(fc.st.pop()).Insert(b).Return())
	case wasm.OpcodeF64PromoteF32:
		fc.st.push(b.AllocateInstruction().AsFpromote(fc.st.pop()).Insert(b).Return())

	case wasm.OpcodeI32ReinterpretF32, wasm.OpcodeI64ReinterpretF64,
		wasm.OpcodeF32ReinterpretI32, wasm.OpcodeF64ReinterpretI64:
		fc.st.push(b.AllocateInstruction().AsReinterpret(fc.st.pop()).Insert(b).Return())

	case wasm.OpcodeDrop:
		fc.st.pop()
	case wasm.OpcodeSelect:
		fc.lowerSelect()
	case wasm.OpcodeNop:
		// no-op.

	default:
		return fmt.Errorf("frontend: unsupported opcode 0x%02x", byte(op))
	}
	return nil
}

func (fc *funcCompiler) lowerIcmp(cond ir.IntegerCmpCond) {
	y, x := fc.st.pop(), fc.st.pop()
	fc.st.push(fc.b.AllocateInstruction().AsIcmp(x, y, cond).Insert(fc.b).Return())
}

func (fc *funcCompiler) lowerFcmp(cond ir.FloatCmpCond) {
	y, x := fc.st.pop(), fc.st.pop()
	fc.st.push(fc.b.AllocateInstruction().AsFcmp(x, y, cond).Insert(fc.b).Return())
}

// lowerSelect lowers the value-polymorphic select: unlike a comparison,
// the condition is the third stack operand.
func (fc *funcCompiler) lowerSelect() {
	cond := fc.st.pop()
	y, x := fc.st.pop(), fc.st.pop()
	// This core has no conditional-move opcode in its IR; expand via a
	// two-predecessor merge block, which the backend can fold into a
	// select during real lowering.
	b := fc.b
	thenBlk, elseBlk, merge := b.AllocateBasicBlock(), b.AllocateBasicBlock(), b.AllocateBasicBlock()
	result := merge.AddParam(b, x.Type())

	b.AllocateInstruction().AsBrz(cond, nil, elseBlk).Insert(b)
	fc.insertJumpToBlock(nil, thenBlk)

	b.SetCurrentBlock(thenBlk)
	thenBlk.Seal()
	fc.insertJumpToBlock([]ir.Value{x}, merge)

	b.SetCurrentBlock(elseBlk)
	elseBlk.Seal()
	fc.insertJumpToBlock([]ir.Value{y}, merge)

	b.SetCurrentBlock(merge)
	merge.Seal()
	fc.st.push(result)
}

// lowerTrunc lowers the trapping (non-saturating) float-to-int
// conversions to ir.OpFcvtToInt with saturating=false, whose semantics
// trap on NaN and out-of-range input, rather than the saturating
// replacement the 0xfc-prefixed opcodes provide. No explicit range check
// is emitted here, so this lowering does not raise
// ExceptionInvalidConversionToInteger through exception_id.
func (fc *funcCompiler) lowerTrunc(is64 bool, signed bool) {
	x := fc.st.pop()
	fc.st.push(fc.b.AllocateInstruction().AsFcvtToInt(x, signed, is64, false).Insert(fc.b).Return())
}

// lowerSaturatingTrunc lowers the 0xfc-prefixed i32/i64.trunc_sat_f32/f64
// opcodes: never traps, clamping NaN to 0 and out-of-range values to the
// nearest representable integer.
func (fc *funcCompiler) lowerSaturatingTrunc(misc byte) error {
	if fc.st.unreachable {
		return nil
	}
	var is64, signed bool
	switch misc {
	case wasm.MiscOpcodeI32TruncSatF32S, wasm.MiscOpcodeI32TruncSatF64S:
		is64, signed = false, true
	case wasm.MiscOpcodeI32TruncSatF32U, wasm.MiscOpcodeI32TruncSatF64U:
		is64, signed = false, false
	case wasm.MiscOpcodeI64TruncSatF32S, wasm.MiscOpcodeI64TruncSatF64S:
		is64, signed = true, true
	case wasm.MiscOpcodeI64TruncSatF32U, wasm.MiscOpcodeI64TruncSatF64U:
		is64, signed = true, false
	default:
		return fmt.Errorf("frontend: unsupported misc opcode 0x%02x", misc)
	}
	x := fc.st.pop()
	fc.st.push(fc.b.AllocateInstruction().AsFcvtToInt(x, signed, is64, true).Insert(fc.b).Return())
	return nil
}

func (fc *funcCompiler) trapDivByZero(divisor ir.Value) {
	b := fc.b
	zero := fc.zeroOfSameWidth(divisor)
	isZero := b.AllocateInstruction().AsIcmp(divisor, zero, ir.IntegerCmpEqual).Insert(b).Return()
	fc.raiseIf(isZero, ExceptionIntegerDivideByZero)
}

// trapSignedDivOverflow guards the one signed-division case that traps
// despite a non-zero divisor: MIN_INT / -1 overflows the result type.
func (fc *funcCompiler) trapSignedDivOverflow(op wasm.Opcode, dividend, divisor ir.Value) {
	b := fc.b
	var minConst, negOne ir.Value
	if op == wasm.OpcodeI64DivS {
		minConst = b.AllocateInstruction().AsIconst64(1 << 63).Insert(b).Return()
		negOne = b.AllocateInstruction().AsIconst64(^uint64(0)).Insert(b).Return()
	} else {
		minConst = b.AllocateInstruction().AsIconst32(1 << 31).Insert(b).Return()
		negOne = b.AllocateInstruction().AsIconst32(0xffffffff).Insert(b).Return()
	}
	isMin := b.AllocateInstruction().AsIcmp(dividend, minConst, ir.IntegerCmpEqual).Insert(b).Return()
	isNegOne := b.AllocateInstruction().AsIcmp(divisor, negOne, ir.IntegerCmpEqual).Insert(b).Return()
	both := b.AllocateInstruction().AsBand(isMin, isNegOne).Insert(b).Return()
	fc.raiseIf(both, ExceptionIntegerOverflow)
}

func (fc *funcCompiler) zeroOfSameWidth(v ir.Value) ir.Value {
	if v.Type() == ir.TypeI64 {
		return fc.b.AllocateInstruction().AsIconst64(0).Insert(fc.b).Return()
	}
	return fc.b.AllocateInstruction().AsIconst32(0).Insert(fc.b).Return()
}

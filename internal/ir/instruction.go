package ir

import "fmt"

// Opcode identifies the operation an Instruction performs. Names follow
// LLVM terminology where this core's output is LLVM IR (GEP, PtrToInt,
// Bitcast, Alloca) rather than wazero/Cranelift's native-backend-facing
// names, per DESIGN.md.
type Opcode int

const (
	OpInvalid Opcode = iota

	OpIconst32
	OpIconst64
	OpF32const
	OpF64const
	OpVconst

	OpIadd
	OpIsub
	OpImul
	OpSDiv
	OpUDiv
	OpSRem
	OpURem

	OpFadd
	OpFsub
	OpFmul
	OpFdiv
	OpFmin
	OpFmax
	OpFabs
	OpFneg
	OpFcopysign
	OpFsqrt
	OpFceil
	OpFfloor
	OpFtrunc
	OpFnearest

	OpBand
	OpBor
	OpBxor
	OpBnot
	OpIshl
	OpUshr
	OpSshr
	OpRotl
	OpRotr
	OpClz
	OpCtz
	OpPopcnt

	OpIcmp
	OpFcmp

	OpSExtend
	OpUExtend
	OpIreduce // integer narrowing (i64 -> i32 wrap).
	OpFcvtFromInt
	OpFcvtToInt
	OpFcvtToIntSat
	OpFdemote
	OpFpromote
	OpBitcast
	OpReinterpret

	OpAlloca
	OpLoad
	OpStore
	OpGEP
	OpPtrToInt
	OpIntToPtr

	OpJump
	OpBrz
	OpBrnz
	OpBrTable
	OpReturn
	OpUnreachable
	OpExitWithCode
	OpExitIfTrueWithCode
	OpCheckPendingException

	OpCall
	OpCallIndirect

	OpVIadd
	OpVIsub
	OpVImul
)

// IntegerCmpCond is an integer comparison condition for OpIcmp.
type IntegerCmpCond byte

const (
	IntegerCmpEqual IntegerCmpCond = iota
	IntegerCmpNotEqual
	IntegerCmpSignedLessThan
	IntegerCmpSignedLessThanOrEqual
	IntegerCmpSignedGreaterThan
	IntegerCmpSignedGreaterThanOrEqual
	IntegerCmpUnsignedLessThan
	IntegerCmpUnsignedLessThanOrEqual
	IntegerCmpUnsignedGreaterThan
	IntegerCmpUnsignedGreaterThanOrEqual
)

func (c IntegerCmpCond) String() string {
	return [...]string{"eq", "ne", "slt", "sle", "sgt", "sge", "ult", "ule", "ugt", "uge"}[c]
}

// FloatCmpCond is a floating-point comparison condition for OpFcmp.
type FloatCmpCond byte

const (
	FloatCmpEqual FloatCmpCond = iota
	FloatCmpNotEqual
	FloatCmpLessThan
	FloatCmpLessThanOrEqual
	FloatCmpGreaterThan
	FloatCmpGreaterThanOrEqual
)

func (c FloatCmpCond) String() string {
	return [...]string{"oeq", "one", "olt", "ole", "ogt", "oge"}[c]
}

// Instruction is one IR instruction. Not every field is meaningful for
// every Opcode; see the As* constructors for the contract of each.
type Instruction struct {
	id     int
	opcode Opcode
	typ    Type // result type, or TypeVoid for terminators/stores.

	args []Value
	// imm/imm2 hold opcode-specific scalar immediates (constant bit
	// patterns, memory offsets, exit codes, vector lane counts...).
	imm, imm2 uint64
	icmpCond  IntegerCmpCond
	fcmpCond  FloatCmpCond

	// signed/fromBits/toBits parameterize extend/convert opcodes.
	signed          bool
	fromBits, toBits int

	// blockTargets holds jump/branch targets; blockArgs holds the
	// per-target argument lists passed to the target block's params.
	blockTargets []*BasicBlock
	blockArgs    [][]Value

	// callSignature/callArgs/calleeFunc/calleePtr describe OpCall/OpCallIndirect.
	callSignature *Signature
	calleeFunc    string
	calleePtr     Value
	callArgs      []Value
	callResults   []Value // first result is Return(); rest are extra results.

	result Value
}

// ID returns the instruction's unique identifier within its function.
func (i *Instruction) ID() int { return i.id }

// Opcode returns the instruction's opcode.
func (i *Instruction) Opcode() Opcode { return i.opcode }

// Return returns the instruction's (first) result value. Valid() is false
// for void-typed instructions.
func (i *Instruction) Return() Value { return i.result }

// Returns returns the first result plus any additional results (used only
// by multi-value OpCall/OpCallIndirect).
func (i *Instruction) Returns() (Value, []Value) {
	if len(i.callResults) == 0 {
		return i.result, nil
	}
	return i.callResults[0], i.callResults[1:]
}

// --- constants ---

func (i *Instruction) AsIconst32(v uint32) *Instruction {
	i.opcode, i.imm = OpIconst32, uint64(v)
	return i
}

func (i *Instruction) AsIconst64(v uint64) *Instruction {
	i.opcode, i.imm = OpIconst64, v
	return i
}

func (i *Instruction) AsF32const(v float32) *Instruction {
	i.opcode, i.imm = OpF32const, uint64(f32bits(v))
	return i
}

func (i *Instruction) AsF64const(v float64) *Instruction {
	i.opcode, i.imm = OpF64const, f64bits(v)
	return i
}

func (i *Instruction) AsVconst(lo, hi uint64) *Instruction {
	i.opcode, i.imm, i.imm2 = OpVconst, lo, hi
	return i
}

// --- arithmetic ---

func (i *Instruction) binOp(op Opcode, x, y Value) *Instruction {
	i.opcode = op
	i.args = []Value{x, y}
	return i
}

func (i *Instruction) AsIadd(x, y Value) *Instruction { return i.binOp(OpIadd, x, y) }
func (i *Instruction) AsIsub(x, y Value) *Instruction { return i.binOp(OpIsub, x, y) }
func (i *Instruction) AsImul(x, y Value) *Instruction { return i.binOp(OpImul, x, y) }
func (i *Instruction) AsSDiv(x, y Value) *Instruction { return i.binOp(OpSDiv, x, y) }
func (i *Instruction) AsUDiv(x, y Value) *Instruction { return i.binOp(OpUDiv, x, y) }
func (i *Instruction) AsSRem(x, y Value) *Instruction { return i.binOp(OpSRem, x, y) }
func (i *Instruction) AsURem(x, y Value) *Instruction { return i.binOp(OpURem, x, y) }

func (i *Instruction) AsFadd(x, y Value) *Instruction { return i.binOp(OpFadd, x, y) }
func (i *Instruction) AsFsub(x, y Value) *Instruction { return i.binOp(OpFsub, x, y) }
func (i *Instruction) AsFmul(x, y Value) *Instruction { return i.binOp(OpFmul, x, y) }
func (i *Instruction) AsFdiv(x, y Value) *Instruction { return i.binOp(OpFdiv, x, y) }
func (i *Instruction) AsFmin(x, y Value) *Instruction { return i.binOp(OpFmin, x, y) }
func (i *Instruction) AsFmax(x, y Value) *Instruction { return i.binOp(OpFmax, x, y) }
func (i *Instruction) AsFcopysign(x, y Value) *Instruction { return i.binOp(OpFcopysign, x, y) }

func (i *Instruction) unOp(op Opcode, x Value) *Instruction {
	i.opcode = op
	i.args = []Value{x}
	return i
}

func (i *Instruction) AsFabs(x Value) *Instruction     { return i.unOp(OpFabs, x) }
func (i *Instruction) AsFneg(x Value) *Instruction     { return i.unOp(OpFneg, x) }
func (i *Instruction) AsFsqrt(x Value) *Instruction    { return i.unOp(OpFsqrt, x) }
func (i *Instruction) AsFceil(x Value) *Instruction    { return i.unOp(OpFceil, x) }
func (i *Instruction) AsFfloor(x Value) *Instruction   { return i.unOp(OpFfloor, x) }
func (i *Instruction) AsFtrunc(x Value) *Instruction   { return i.unOp(OpFtrunc, x) }
func (i *Instruction) AsFnearest(x Value) *Instruction { return i.unOp(OpFnearest, x) }
func (i *Instruction) AsClz(x Value) *Instruction      { return i.unOp(OpClz, x) }
func (i *Instruction) AsCtz(x Value) *Instruction      { return i.unOp(OpCtz, x) }
func (i *Instruction) AsPopcnt(x Value) *Instruction   { return i.unOp(OpPopcnt, x) }

func (i *Instruction) AsBand(x, y Value) *Instruction { return i.binOp(OpBand, x, y) }
func (i *Instruction) AsBor(x, y Value) *Instruction  { return i.binOp(OpBor, x, y) }
func (i *Instruction) AsBxor(x, y Value) *Instruction { return i.binOp(OpBxor, x, y) }
func (i *Instruction) AsBnot(x Value) *Instruction    { return i.unOp(OpBnot, x) }
func (i *Instruction) AsIshl(x, y Value) *Instruction { return i.binOp(OpIshl, x, y) }
func (i *Instruction) AsUshr(x, y Value) *Instruction { return i.binOp(OpUshr, x, y) }
func (i *Instruction) AsSshr(x, y Value) *Instruction { return i.binOp(OpSshr, x, y) }
func (i *Instruction) AsRotl(x, y Value) *Instruction { return i.binOp(OpRotl, x, y) }
func (i *Instruction) AsRotr(x, y Value) *Instruction { return i.binOp(OpRotr, x, y) }

func (i *Instruction) AsIcmp(x, y Value, cond IntegerCmpCond) *Instruction {
	i.opcode, i.args, i.icmpCond = OpIcmp, []Value{x, y}, cond
	return i
}

func (i *Instruction) AsFcmp(x, y Value, cond FloatCmpCond) *Instruction {
	i.opcode, i.args, i.fcmpCond = OpFcmp, []Value{x, y}, cond
	return i
}

// --- conversions ---

// AsExtend lowers integer sign/zero extension (from narrower to wider
// bits) or, when fromBits==toBits, acts as a no-op width assertion used
// by i32.wrap_i64's inverse paths.
func (i *Instruction) AsExtend(x Value, signed bool, fromBits, toBits int) *Instruction {
	i.opcode, i.args, i.signed, i.fromBits, i.toBits = OpSExtend, []Value{x}, signed, fromBits, toBits
	if !signed {
		i.opcode = OpUExtend
	}
	return i
}

// AsWrap lowers i64.const truncation to i32 (i32.wrap_i64).
func (i *Instruction) AsWrap(x Value) *Instruction {
	i.opcode, i.args = OpIreduce, []Value{x}
	return i
}

// AsFcvtFromInt lowers {f32,f64}.convert_i{32,64}_{s,u}.
func (i *Instruction) AsFcvtFromInt(x Value, signed bool, is64 bool) *Instruction {
	i.opcode, i.args, i.signed = OpFcvtFromInt, []Value{x}, signed
	if is64 {
		i.toBits = 64
	} else {
		i.toBits = 32
	}
	return i
}

// AsFcvtToInt lowers i{32,64}.trunc_f{32,64}_{s,u} (trapping on overflow/NaN).
func (i *Instruction) AsFcvtToInt(x Value, signed bool, is64 bool, saturating bool) *Instruction {
	i.opcode = OpFcvtToInt
	if saturating {
		i.opcode = OpFcvtToIntSat
	}
	i.args, i.signed = []Value{x}, signed
	if is64 {
		i.toBits = 64
	} else {
		i.toBits = 32
	}
	return i
}

func (i *Instruction) AsFdemote(x Value) *Instruction  { i.opcode, i.args = OpFdemote, []Value{x}; return i }
func (i *Instruction) AsFpromote(x Value) *Instruction { i.opcode, i.args = OpFpromote, []Value{x}; return i }
func (i *Instruction) AsBitcast(x Value) *Instruction  { i.opcode, i.args = OpBitcast, []Value{x}; return i }
func (i *Instruction) AsReinterpret(x Value) *Instruction {
	i.opcode, i.args = OpReinterpret, []Value{x}
	return i
}

// --- memory ---

func (i *Instruction) AsAlloca() *Instruction {
	i.opcode = OpAlloca
	return i
}

// AsLoad lowers a load from ptr+offset of the given result type.
func (i *Instruction) AsLoad(ptr Value, offset uint32, typ Type) *Instruction {
	i.opcode, i.args, i.imm = OpLoad, []Value{ptr}, uint64(offset)
	i.typ = typ
	return i
}

// AsExtLoad lowers a narrow memory load that is sign/zero extended to the
// instruction's result type (e.g. i32.load8_s): fromBits carries the
// narrow width, signed the extension kind.
func (i *Instruction) AsExtLoad(ptr Value, offset uint32, fromBits int, signed bool) *Instruction {
	i.AsLoad(ptr, offset, TypeI32)
	i.fromBits, i.signed = fromBits, signed
	return i
}

// AsStore lowers a store of v to ptr+offset.
func (i *Instruction) AsStore(v, ptr Value, offset uint32) *Instruction {
	i.opcode, i.args, i.imm = OpStore, []Value{v, ptr}, uint64(offset)
	return i
}

// AsTruncStore lowers a narrowing store (e.g. i32.store8): toBits carries
// the narrow width actually written.
func (i *Instruction) AsTruncStore(v, ptr Value, offset uint32, toBits int) *Instruction {
	i.AsStore(v, ptr, offset)
	i.toBits = toBits
	return i
}

// AsGEP lowers a byte-offset in-bounds GEP into an i8-typed base pointer.
func (i *Instruction) AsGEP(base Value, byteOffset Value) *Instruction {
	i.opcode, i.args = OpGEP, []Value{base, byteOffset}
	return i
}

func (i *Instruction) AsPtrToInt(p Value) *Instruction {
	i.opcode, i.args = OpPtrToInt, []Value{p}
	return i
}

func (i *Instruction) AsIntToPtr(v Value) *Instruction {
	i.opcode, i.args = OpIntToPtr, []Value{v}
	return i
}

// --- control flow ---

func (i *Instruction) AsJump(args []Value, target *BasicBlock) *Instruction {
	i.opcode = OpJump
	i.blockTargets = []*BasicBlock{target}
	i.blockArgs = [][]Value{args}
	return i
}

// AsBrz branches to target when cond == 0, otherwise falls through.
func (i *Instruction) AsBrz(cond Value, args []Value, target *BasicBlock) *Instruction {
	i.opcode = OpBrz
	i.args = []Value{cond}
	i.blockTargets = []*BasicBlock{target}
	i.blockArgs = [][]Value{args}
	return i
}

// AsBrnz branches to target when cond != 0, otherwise falls through.
func (i *Instruction) AsBrnz(cond Value, args []Value, target *BasicBlock) *Instruction {
	i.opcode = OpBrnz
	i.args = []Value{cond}
	i.blockTargets = []*BasicBlock{target}
	i.blockArgs = [][]Value{args}
	return i
}

// AsBrTable lowers br_table: targets[len(targets)-1] is the default edge.
func (i *Instruction) AsBrTable(index Value, targets []*BasicBlock) *Instruction {
	i.opcode = OpBrTable
	i.args = []Value{index}
	i.blockTargets = targets
	return i
}

func (i *Instruction) AsReturn(results []Value) *Instruction {
	i.opcode = OpReturn
	i.args = results
	return i
}

func (i *Instruction) AsUnreachable() *Instruction {
	i.opcode = OpUnreachable
	return i
}

// AsExitWithCode unconditionally raises the given exception code and
// terminates the block (spec.md section 4.10).
func (i *Instruction) AsExitWithCode(execCtx Value, code uint32) *Instruction {
	i.opcode, i.args, i.imm = OpExitWithCode, []Value{execCtx}, uint64(code)
	return i
}

// AsExitIfTrueWithCode conditionally raises code when cond != 0. It is a
// non-terminating pseudo-op: lowering continues in the same block, and
// the caller (frontend/trap.go) allocates no continuation block.
func (i *Instruction) AsExitIfTrueWithCode(execCtx, cond Value, code uint32) *Instruction {
	i.opcode, i.args, i.imm = OpExitIfTrueWithCode, []Value{execCtx, cond}, uint64(code)
	return i
}

// AsCheckPendingException inserts a post-call guard (spec.md section 4.9):
// when the shared exception_id global is non-zero, control unwinds to the
// function's shared return block instead of falling through. Like
// AsExitIfTrueWithCode this is a non-terminating pseudo-op; the backend
// owns the actual unwind mechanism.
func (i *Instruction) AsCheckPendingException(execCtx Value) *Instruction {
	i.opcode, i.args = OpCheckPendingException, []Value{execCtx}
	return i
}

// --- calls ---

func (i *Instruction) AsCall(calleeFunc string, sig *Signature, args []Value) *Instruction {
	i.opcode, i.calleeFunc, i.callSignature, i.callArgs = OpCall, calleeFunc, sig, args
	return i
}

func (i *Instruction) AsCallIndirect(calleePtr Value, sig *Signature, args []Value) *Instruction {
	i.opcode, i.calleePtr, i.callSignature, i.callArgs = OpCallIndirect, calleePtr, sig, args
	return i
}

// --- representative SIMD ---

func (i *Instruction) AsVIadd(x, y Value) *Instruction { return i.binOp(OpVIadd, x, y) }
func (i *Instruction) AsVIsub(x, y Value) *Instruction { return i.binOp(OpVIsub, x, y) }
func (i *Instruction) AsVImul(x, y Value) *Instruction { return i.binOp(OpVImul, x, y) }

// String implements fmt.Stringer for debug dumps; see format.go for the
// textual-IR emitter used by the backend.
func (i *Instruction) String() string {
	return fmt.Sprintf("%%v%d = %v", i.id, i.opcode)
}

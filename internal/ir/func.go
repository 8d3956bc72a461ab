package ir

// FuncFlags records per-function facts the frontend's pre-scan pass
// collects (spec.md section 3, "Function (in-IR)"). The frontend reads
// HasOpFuncCall/HasOpCallIndirect to decide whether to emit post-call
// exception checks; the other flags are recorded on the Func and are not
// read by the frontend (the memory base pointer is cached whether or not
// HasMemoryOperations is set).
type FuncFlags struct {
	HasMemoryOperations    bool
	HasOpMemoryGrow        bool
	HasOpFuncCall          bool
	HasOpCallIndirect      bool
	HasOpSetGlobalAuxStack bool
}

// Func is one lowered Wasm function's IR: its signature, basic blocks,
// local alloca slots, and the pre-scanned flags. The shared return block
// is the only terminator path for non-trapping exits (spec.md section 3
// invariants).
type Func struct {
	Name string
	Sig  *Signature
	Flags FuncFlags

	blocks      []*BasicBlock
	entryBlock  *BasicBlock
	returnBlock *BasicBlock

	// Locals holds one alloca Value per Wasm local (params included),
	// in Wasm local index order.
	Locals []Value

	instrSeq int
}

// NewFunc allocates an empty Func ready for a Builder to populate.
func NewFunc(name string, sig *Signature) *Func {
	return &Func{Name: name, Sig: sig}
}

// Blocks returns every basic block allocated in this function, in
// allocation order (not necessarily layout/reachability order).
func (f *Func) Blocks() []*BasicBlock { return f.blocks }

// EntryBlock returns the function's entry block.
func (f *Func) EntryBlock() *BasicBlock { return f.entryBlock }

// ReturnBlock returns the function's shared return block.
func (f *Func) ReturnBlock() *BasicBlock { return f.returnBlock }

// Builder incrementally constructs one Func's body. It owns the current
// insertion point the way wazero's ssa.Builder does; lowerings never hold
// onto a Builder across function boundaries (internal/frontend.Compiler
// allocates a fresh Builder per function via NewBuilder).
type Builder struct {
	f       *Func
	current *BasicBlock
	valueSeq int
}

// NewBuilder creates a Builder for a freshly allocated Func, wiring up
// the entry block and the shared function-return block.
func NewBuilder(f *Func) *Builder {
	b := &Builder{f: f}
	f.entryBlock = b.AllocateBasicBlock()
	for _, pt := range f.Sig.Params {
		f.entryBlock.params = append(f.entryBlock.params, b.newValue(pt))
	}
	f.returnBlock = b.AllocateBasicBlock()
	for _, rt := range f.Sig.Results {
		f.returnBlock.params = append(f.returnBlock.params, b.newValue(rt))
	}
	b.SetCurrentBlock(f.entryBlock)
	return b
}

// Param returns the Value bound to the i-th function parameter, carried
// as the entry block's i-th phi parameter.
func (f *Func) Param(i int) Value { return f.entryBlock.params[i] }

func (b *Builder) newValue(typ Type) Value {
	b.valueSeq++
	return Value{id: b.valueSeq, typ: typ}
}

// Func returns the function under construction.
func (b *Builder) Func() *Func { return b.f }

// CurrentBlock returns the block new instructions are inserted into.
func (b *Builder) CurrentBlock() *BasicBlock { return b.current }

// SetCurrentBlock moves the insertion point.
func (b *Builder) SetCurrentBlock(blk *BasicBlock) { b.current = blk }

// AllocateBasicBlock creates a new, initially unsealed, unterminated
// basic block not yet attached to any particular position in the
// function; it becomes reachable once some terminator targets it.
func (b *Builder) AllocateBasicBlock() *BasicBlock {
	blk := &BasicBlock{id: len(b.f.blocks)}
	b.f.blocks = append(b.f.blocks, blk)
	return blk
}

// AddParam declares one more phi-parameter on blk, to be used by a Wasm
// block/loop/if's merge point or by the loop header for a Loop frame's
// params (spec.md section 4.6). Returns the Value lowerings should treat
// as that parameter's definition within blk.
func (blk *BasicBlock) AddParam(b *Builder, typ Type) Value {
	v := b.newValue(typ)
	blk.params = append(blk.params, v)
	return v
}

// Seal marks a block as having all of its predecessors known; this core
// does not need Cranelift-style deferred phi resolution since every
// param's incoming list is populated eagerly as each predecessor's
// terminator is built, so Seal here only records the flag; nothing reads
// it, and it is not a precondition for InsertInstruction.
func (blk *BasicBlock) Seal() { blk.sealed = true }

// AllocateInstruction returns a new, not-yet-inserted Instruction to be
// configured via its As* method and then passed to InsertInstruction (or
// chained through Insert).
func (b *Builder) AllocateInstruction() *Instruction {
	b.f.instrSeq++
	return &Instruction{id: b.f.instrSeq}
}

// InsertInstruction appends instr to the current block, finalizing its
// result Value, and — if instr is a terminator — propagates its argument
// lists into each target block's incoming phi accumulators and marks the
// current block terminated.
func (b *Builder) InsertInstruction(instr *Instruction) {
	if b.current.terminated {
		panic("ir: insert into an already-terminated block")
	}
	if instr.typ == typeInvalid {
		instr.typ = resultTypeOf(instr)
	}
	if instr.typ != TypeVoid && !instr.opcode.isCallLike() {
		instr.result = b.newValue(instr.typ)
	}
	b.current.instructions = append(b.current.instructions, instr)

	switch instr.opcode {
	case OpCall, OpCallIndirect:
		b.finalizeCallResults(instr)
	case OpJump, OpBrz, OpBrnz:
		for i, tgt := range instr.blockTargets {
			tgt.addIncoming(b.current, instr.blockArgs[i])
		}
		if instr.opcode == OpJump {
			b.current.terminated = true
		}
	case OpBrTable, OpReturn, OpUnreachable, OpExitWithCode:
		b.current.terminated = true
	}
}

func (o Opcode) isCallLike() bool { return o == OpCall || o == OpCallIndirect }

func (b *Builder) finalizeCallResults(instr *Instruction) {
	sig := instr.callSignature
	if sig == nil || len(sig.Results) == 0 {
		return
	}
	instr.callResults = make([]Value, len(sig.Results))
	for i, rt := range sig.Results {
		instr.callResults[i] = b.newValue(rt)
	}
	instr.result = instr.callResults[0]
}

// resultTypeOf infers an instruction's result type from its operands for
// opcodes whose As* constructor did not set i.typ directly (most
// arithmetic/compare/conversion ops: result type equals operand type,
// except comparisons which always yield i32 and conversions which target
// an explicit width).
func resultTypeOf(i *Instruction) Type {
	switch i.opcode {
	case OpIconst32:
		return TypeI32
	case OpIconst64:
		return TypeI64
	case OpF32const:
		return TypeF32
	case OpF64const:
		return TypeF64
	case OpVconst:
		return TypeV128
	case OpIadd, OpIsub, OpImul, OpSDiv, OpUDiv, OpSRem, OpURem,
		OpBand, OpBor, OpBxor, OpBnot, OpIshl, OpUshr, OpSshr, OpRotl, OpRotr,
		OpClz, OpCtz, OpPopcnt:
		return i.args[0].Type()
	case OpFadd, OpFsub, OpFmul, OpFdiv, OpFmin, OpFmax, OpFcopysign,
		OpFabs, OpFneg, OpFsqrt, OpFceil, OpFfloor, OpFtrunc, OpFnearest:
		return i.args[0].Type()
	case OpIcmp, OpFcmp:
		return TypeI32
	case OpSExtend, OpUExtend:
		if i.toBits == 64 {
			return TypeI64
		}
		return TypeI32
	case OpIreduce:
		return TypeI32
	case OpFcvtFromInt:
		if i.toBits == 64 {
			return TypeF64
		}
		return TypeF32
	case OpFcvtToInt, OpFcvtToIntSat:
		if i.toBits == 64 {
			return TypeI64
		}
		return TypeI32
	case OpFdemote:
		return TypeF32
	case OpFpromote:
		return TypeF64
	case OpBitcast, OpReinterpret:
		return i.args[0].Type()
	case OpAlloca, OpGEP, OpIntToPtr:
		return TypePtr
	case OpPtrToInt:
		return TypeI64
	case OpLoad:
		return i.typ // set explicitly by AsLoad/AsExtLoad.
	case OpVIadd, OpVIsub, OpVImul:
		return TypeV128
	case OpStore, OpJump, OpBrz, OpBrnz, OpBrTable, OpReturn, OpUnreachable,
		OpExitWithCode, OpExitIfTrueWithCode, OpCheckPendingException:
		return TypeVoid
	default:
		return TypeVoid
	}
}

// Insert is a chaining convenience: AllocateInstruction().AsXxx(...).Insert(b).
func (i *Instruction) Insert(b *Builder) *Instruction {
	b.InsertInstruction(i)
	return i
}

package frontend

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wasm2native/wasm2nativec/internal/ir"
	"github.com/wasm2native/wasm2nativec/internal/wasm"
)

// Compiler lowers every defined function of a parsed Wasm module into
// this core's IR, one function at a time, grounded on
// frontend.Compiler/NewFrontendCompiler in
// internal/engine/wazevo/frontend/frontend.go — generalized here to
// dispatch every opcode lowering through a LoweringStrategy rather than
// wazero's single native-backend strategy, per the sandboxed/no-sandbox
// split this core's spec calls for.
type Compiler struct {
	Module   *wasm.Module
	Strategy LoweringStrategy
	Logger   *zap.Logger

	// EnableAuxStackCheck mirrors config.Config's --enable-aux-stack-check
	// flag: when set, every write to the well-known aux-stack-top global
	// is guarded by a stack-overflow check (spec.md section 4.8).
	EnableAuxStackCheck bool

	// DisableSIMD mirrors config.Config's --disable-simd flag: when set,
	// lowering a v128 opcode is an unsupported-feature error rather than
	// an ir.OpVconst/OpVIadd/OpVIsub/OpVImul instruction (spec.md section
	// 4.1, section 7's "Unsupported feature" error kind).
	DisableSIMD bool
}

// NewCompiler builds a Compiler for m, lowering under strategy.
func NewCompiler(m *wasm.Module, strategy LoweringStrategy, logger *zap.Logger) *Compiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{Module: m, Strategy: strategy, Logger: logger}
}

// CompileModule lowers every locally defined function (skipping imports,
// which have no Code entry) into an ir.Module ready for the backend's
// Module Assembly stage.
func (c *Compiler) CompileModule() (*ir.Module, error) {
	out := ir.NewModule(c.moduleName())
	out.NoSandbox = c.Strategy.NoSandbox()

	for i := range c.Module.CodeSection {
		funcIdx := c.Module.ImportFunctionCount + wasm.Index(i)
		f, err := c.compileFunction(funcIdx, &c.Module.CodeSection[i])
		if err != nil {
			return nil, fmt.Errorf("frontend: compiling function %d: %w", funcIdx, err)
		}
		out.AddFunc(f)
	}

	// Globals/Data/Tables/import-export wiring is the Module Assembly
	// stage's job (internal/backend), which also needs the original
	// *wasm.Module's relocation and symbol tables that a per-function
	// frontend pass has no reason to carry.
	return out, nil
}

func (c *Compiler) moduleName() string {
	for _, cs := range c.Module.CustomSections {
		if cs.Name == "name" {
			return "wasm"
		}
	}
	return "wasm"
}

// funcCompiler holds all per-function lowering state: the symbolic
// operand/control stack, the IR builder, the function's local slots, and
// the strategy-owned caches (memory base/len) that get invalidated across
// calls. One funcCompiler is allocated per Wasm function, matching
// frontend.Compiler's per-function fields in wazero (wasmFunctionTyp,
// wasmFunctionBody, execCtxPtrValue, moduleCtxPtrValue, loweringState).
type funcCompiler struct {
	c *Compiler

	funcIdx wasm.Index
	wasmSig *wasm.FunctionType
	irSig   *ir.Signature

	rd *reader
	b  *ir.Builder
	f  *ir.Func
	st loweringState

	execCtx   ir.Value
	moduleCtx ir.Value

	// locals[i] is the alloca slot for Wasm local index i (params first,
	// then declared locals), per spec.md section 3's local-slot model.
	// localTypes[i] is that local's real IR type: the alloca Value itself
	// is always ir.TypePtr (it is a pointer to the slot, not the slot's
	// contents), so local.get must consult localTypes rather than the
	// alloca's own Type() to produce a correctly-typed load.
	locals     []ir.Value
	localTypes []ir.Type

	// memBase/memLen cache the sandboxed strategy's loaded memory base
	// pointer and byte length across consecutive memory ops in the same
	// block; invalidated (re-loaded) after any call per invalidateMemoryCache.
	memBaseValid bool
	memBase      ir.Value
	memLenValid  bool
	memLen       ir.Value

	// emitExceptionChecks caches whether this function's calls need a
	// post-call exception_id poll: true when sandboxed and the prescanned
	// HasOpFuncCall/HasOpCallIndirect flags (ir.FuncFlags) show the body
	// makes at least one call. See trap.go's checkPendingExceptionAfterCall.
	emitExceptionChecks bool
}

func (c *Compiler) compileFunction(funcIdx wasm.Index, code *wasm.Code) (*ir.Func, error) {
	typeIdx, ok := c.Module.TypeIndexOfFunction(funcIdx)
	if !ok {
		return nil, fmt.Errorf("no type for function %d", funcIdx)
	}
	wasmSig := &c.Module.TypeSection[c.Module.CanonicalTypeIndex(typeIdx)]

	irSig := &ir.Signature{
		Params:  append([]ir.Type{ir.TypePtr, ir.TypePtr}, valueTypesToIR(wasmSig.Params)...),
		Results: valueTypesToIR(wasmSig.Results),
	}

	name := fmt.Sprintf("wasm_func_%d", funcIdx)
	f := ir.NewFunc(name, irSig)
	b := ir.NewBuilder(f)

	fc := &funcCompiler{
		c: c, funcIdx: funcIdx, wasmSig: wasmSig, irSig: irSig,
		rd: newReader(code.Body), b: b, f: f,
		execCtx:   f.Param(0),
		moduleCtx: f.Param(1),
	}
	fc.prescan(code)
	fc.emitExceptionChecks = !c.Strategy.NoSandbox() && (f.Flags.HasOpFuncCall || f.Flags.HasOpCallIndirect)
	if err := fc.declareLocals(code, wasmSig); err != nil {
		return nil, err
	}
	f.Locals = fc.locals
	if err := fc.lowerBody(); err != nil {
		return nil, err
	}
	return f, nil
}

// prescan records the flags spec.md section 3 names on Function (in-IR):
// whether the body ever performs a memory op, grows memory, makes a
// direct or indirect call. This is a cheap single pass over the body
// bytes with no operand decoding: every byte, immediates included, is
// matched against the relevant opcodes, so an immediate byte equal to one
// of them can also set a flag, while a real occurrence is never missed.
func (fc *funcCompiler) prescan(code *wasm.Code) {
	body := code.Body
	for i := 0; i < len(body); i++ {
		switch wasm.Opcode(body[i]) {
		case wasm.OpcodeMemorySize, wasm.OpcodeMemoryGrow:
			fc.f.Flags.HasMemoryOperations = true
			if wasm.Opcode(body[i]) == wasm.OpcodeMemoryGrow {
				fc.f.Flags.HasOpMemoryGrow = true
			}
		case wasm.OpcodeCall:
			fc.f.Flags.HasOpFuncCall = true
		case wasm.OpcodeCallIndirect:
			fc.f.Flags.HasOpCallIndirect = true
		default:
			if isMemoryLoadOrStoreOpcode(wasm.Opcode(body[i])) {
				fc.f.Flags.HasMemoryOperations = true
			}
		}
	}
}

func isMemoryLoadOrStoreOpcode(op wasm.Opcode) bool {
	return op >= wasm.OpcodeI32Load && op <= wasm.OpcodeI64Store32
}

// declareLocals allocates one IR alloca per Wasm local (params then
// declared locals) and stores each incoming parameter into its slot, per
// spec.md section 3's local-slot model; reads/writes of a local thereafter
// always go through its alloca rather than being tracked as an SSA
// variable, trading a little redundant load/store for a much simpler
// lowering (no variable-def-use sealing is needed since the alloca is
// always defined before any use).
func (fc *funcCompiler) declareLocals(code *wasm.Code, sig *wasm.FunctionType) error {
	total := len(sig.Params) + len(code.LocalTypes)
	fc.locals = make([]ir.Value, 0, total)
	fc.localTypes = make([]ir.Type, 0, total)

	for i, pt := range sig.Params {
		typ := valueTypeToIR(pt)
		alloca := fc.b.AllocateInstruction().AsAlloca().Insert(fc.b)
		fc.b.AllocateInstruction().AsStore(fc.f.Param(2+i), alloca.Return(), 0).Insert(fc.b)
		fc.locals = append(fc.locals, alloca.Return())
		fc.localTypes = append(fc.localTypes, typ)
	}
	for _, lt := range code.LocalTypes {
		typ := valueTypeToIR(lt)
		alloca := fc.b.AllocateInstruction().AsAlloca().Insert(fc.b)
		zero := fc.zeroValueOf(lt)
		fc.b.AllocateInstruction().AsStore(zero, alloca.Return(), 0).Insert(fc.b)
		fc.locals = append(fc.locals, alloca.Return())
		fc.localTypes = append(fc.localTypes, typ)
	}
	return nil
}

func (fc *funcCompiler) zeroValueOf(t wasm.ValueType) ir.Value {
	switch t {
	case wasm.ValueTypeI32, wasm.ValueTypeFuncref:
		return fc.b.AllocateInstruction().AsIconst32(0).Insert(fc.b).Return()
	case wasm.ValueTypeI64:
		return fc.b.AllocateInstruction().AsIconst64(0).Insert(fc.b).Return()
	case wasm.ValueTypeF32:
		return fc.b.AllocateInstruction().AsF32const(0).Insert(fc.b).Return()
	case wasm.ValueTypeF64:
		return fc.b.AllocateInstruction().AsF64const(0).Insert(fc.b).Return()
	case wasm.ValueTypeV128:
		return fc.b.AllocateInstruction().AsVconst(0, 0).Insert(fc.b).Return()
	default:
		panic(fmt.Sprintf("frontend: unsupported local type %v", t))
	}
}

func valueTypeToIR(t wasm.ValueType) ir.Type {
	switch t {
	case wasm.ValueTypeI32:
		return ir.TypeI32
	case wasm.ValueTypeI64:
		return ir.TypeI64
	case wasm.ValueTypeF32:
		return ir.TypeF32
	case wasm.ValueTypeF64:
		return ir.TypeF64
	case wasm.ValueTypeV128:
		return ir.TypeV128
	case wasm.ValueTypeFuncref:
		return ir.TypePtr
	default:
		panic(fmt.Sprintf("frontend: unsupported value type %v", t))
	}
}

func valueTypesToIR(ts []wasm.ValueType) []ir.Type {
	out := make([]ir.Type, len(ts))
	for i, t := range ts {
		out[i] = valueTypeToIR(t)
	}
	return out
}

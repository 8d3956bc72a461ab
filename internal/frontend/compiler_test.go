package frontend_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasm2native/wasm2nativec/internal/frontend"
	"github.com/wasm2native/wasm2nativec/internal/ir"
	"github.com/wasm2native/wasm2nativec/internal/wasm"
)

// i32/i64 shorten the fixture literals below.
var (
	i32 = wasm.ValueTypeI32
	i64 = wasm.ValueTypeI64
)

func compileSingleFunc(t *testing.T, sig wasm.FunctionType, body []byte, strategy frontend.LoweringStrategy) string {
	t.Helper()
	m := &wasm.Module{
		TypeSection: []wasm.FunctionType{sig},
		FunctionSection: []wasm.Index{0},
		CodeSection:     []wasm.Code{{Body: body}},
	}
	c := frontend.NewCompiler(m, strategy, nil)
	out, err := c.CompileModule()
	require.NoError(t, err)
	require.Len(t, out.Funcs, 1)
	return out.WriteText()
}

// add1: (i32) -> i32, body "local.get 0; i32.const 1; i32.add".
func TestCompileModule_Add1(t *testing.T) {
	body := []byte{
		0x20, 0x00, // local.get 0
		0x41, 0x01, // i32.const 1
		0x6a,       // i32.add
		0x0b,       // end
	}
	text := compileSingleFunc(t, wasm.FunctionType{Params: []wasm.ValueType{i32}, Results: []wasm.ValueType{i32}}, body, frontend.SandboxedStrategy{})

	require.Contains(t, text, "; lowering: sandboxed")
	require.Contains(t, text, "= iconst32 1")
	require.Contains(t, text, "= add ")
	require.Contains(t, text, "ret ")
	require.Equal(t, 1, strings.Count(text, "define "))
}

// oob trap: () -> i32, body "i32.const -1 (as u32 0xffffffff); i32.load".
// Sandboxed mode must bounds-check the address before the load and raise
// ExceptionMemoryOutOfBounds rather than ever performing the load.
func TestCompileModule_OutOfBoundsLoad(t *testing.T) {
	body := []byte{
		0x41, 0x7f, // i32.const -1 (sleb128 0x7f == -1 in one byte)
		0x28, 0x00, 0x00, // i32.load align=0 offset=0
		0x0b, // end
	}
	text := compileSingleFunc(t, wasm.FunctionType{Results: []wasm.ValueType{i32}}, body, frontend.SandboxedStrategy{})

	require.Contains(t, text, "exit.if")
	require.Contains(t, text, ", code=1") // ExceptionMemoryOutOfBounds == 1
	require.Contains(t, text, "= load ")
}

// br_table: (i32) -> i32, nested blocks dispatching on local 0 to three
// distinct constants (10/20/30) via a single switch.
func TestCompileModule_BrTable(t *testing.T) {
	body := []byte{
		0x02, 0x40, // block (empty type)
		0x02, 0x40, // block (empty type)
		0x02, 0x40, // block (empty type)
		0x20, 0x00, // local.get 0
		0x0e, 0x02, 0x00, 0x01, 0x02, // br_table count=2 labels=[0,1] default=2
		0x0b,       // end (innermost block)
		0x41, 0x0a, // i32.const 10
		0x0f,       // return
		0x0b,       // end (middle block)
		0x41, 0x14, // i32.const 20
		0x0f,       // return
		0x0b,       // end (outer block)
		0x41, 0x1e, // i32.const 30
		0x0b, // end (function)
	}
	text := compileSingleFunc(t, wasm.FunctionType{Params: []wasm.ValueType{i32}, Results: []wasm.ValueType{i32}}, body, frontend.SandboxedStrategy{})

	require.Equal(t, 1, strings.Count(text, "switch"))
	require.Contains(t, text, "= iconst32 10")
	require.Contains(t, text, "= iconst32 20")
	require.Contains(t, text, "= iconst32 30")
}

// multi-result call: caller () -> i32 calls a callee () -> (i32, i64); the
// callee's two results are pushed in declared order (funcCompiler.
// pushCallResults), so the i64 lands on top and a single "drop" removes
// it, leaving the i32 result for the caller to return. This core pushes
// a call's results back onto the Wasm operand stack directly rather than
// threading them through an out-pointer buffer the way the original C
// AOT compiler's ABI does.
func TestCompileModule_MultiResultCall(t *testing.T) {
	body := []byte{
		0x10, 0x01, // call function 1 (the callee)
		0x1a, // drop (discard the i64 result on top)
		0x0b, // end
	}
	m := &wasm.Module{
		TypeSection: []wasm.FunctionType{
			{Results: []wasm.ValueType{i32}},         // caller's own type
			{Results: []wasm.ValueType{i32, i64}}, // callee's type
		},
		FunctionSection: []wasm.Index{0, 1},
		CodeSection: []wasm.Code{
			{Body: body},
			{Body: []byte{0x41, 0x07, 0x42, 0x09, 0x0b}}, // i32.const 7; i64.const 9; end
		},
	}
	c := frontend.NewCompiler(m, frontend.SandboxedStrategy{}, nil)
	out, err := c.CompileModule()
	require.NoError(t, err)
	require.Len(t, out.Funcs, 2)

	text := out.WriteText()
	require.Contains(t, text, "@wasm_func_1(")
	require.Contains(t, text, "{i32, i64}")
}

// no-sandbox pointer constant: i64.const 0 at a site carrying a memory-
// address relocation resolves through the relocation's Data symbol
// (segment base + symbol offset + addend), never the literal decoded
// constant and never the bare addend alone.
func TestCompileModule_NoSandboxPointerConstant(t *testing.T) {
	body := []byte{
		0x42, 0x00, // i64.const 0 (relocated away; decoded value is irrelevant)
		0x0b, // end
	}
	m := &wasm.Module{
		TypeSection:     []wasm.FunctionType{{Results: []wasm.ValueType{i64}}},
		FunctionSection: []wasm.Index{0},
		CodeSection:     []wasm.Code{{Body: body}},
		RelocationsCode: []wasm.Relocation{
			// Offset 1: the immediate starts right after the 0x42 opcode byte.
			{Kind: wasm.RelocMemoryAddrSLEB64, Offset: 1, SymbolIndex: 0, Addend: 0},
		},
		Symbols: []wasm.Symbol{
			{Kind: wasm.SymbolKindData, Data: wasm.DataSymbol{SegmentIndex: 0, DataOffset: 16}},
		},
		DataSegmentBaseOffsets: []uint64{1024},
	}
	c := frontend.NewCompiler(m, frontend.NoSandboxStrategy{}, nil)
	out, err := c.CompileModule()
	require.NoError(t, err)

	text := out.WriteText()
	require.Contains(t, text, "; lowering: no-sandbox")
	require.Contains(t, text, "= getelementptr ")
	require.Contains(t, text, "= ptrtoint ")
	require.Contains(t, text, "iconst64 1040") // 1024 (segment base) + 16 (symbol offset) + 0 (addend)
	require.NotContains(t, text, "iconst64 0")
}

// indirect-call type mismatch: a call_indirect whose declared type
// disagrees with the table's recorded element type must still compile
// (the mismatch is a runtime trap, not a compile-time error) and must
// emit the expected-vs-actual type ID comparison before the call.
func TestCompileModule_IndirectCallTypeMismatch(t *testing.T) {
	body := []byte{
		0x41, 0x00, // i32.const 0 (table element index)
		0x11, 0x00, 0x00, // call_indirect type=0 table=0
		0x1a, // drop
		0x0b, // end
	}
	m := &wasm.Module{
		TypeSection: []wasm.FunctionType{
			{Results: []wasm.ValueType{i64}}, // call_indirect's declared type
			{},                                // caller's own (unrelated) type
		},
		FunctionSection: []wasm.Index{1},
		CodeSection:     []wasm.Code{{Body: body}},
		TableSection:    []wasm.Table{{Min: 1}},
	}
	c := frontend.NewCompiler(m, frontend.SandboxedStrategy{}, nil)
	out, err := c.CompileModule()
	require.NoError(t, err)

	text := out.WriteText()
	require.Contains(t, text, "call.indirect")
	require.Contains(t, text, ", code=7") // ExceptionIndirectCallTypeMismatch == 7
}

// local.get on a declared (non-parameter) i64 local must load that local's
// real declared type, not ir.TypePtr (the type of the alloca slot itself).
// WriteText() never prints operand/result types, so this walks the IR
// directly rather than matching on the textual dump.
func TestCompileModule_LocalGetPreservesDeclaredType(t *testing.T) {
	body := []byte{
		0x20, 0x01, // local.get 1 (the declared i64 local)
		0x0b, // end
	}
	m := &wasm.Module{
		TypeSection:     []wasm.FunctionType{{Params: []wasm.ValueType{i32}, Results: []wasm.ValueType{i64}}},
		FunctionSection: []wasm.Index{0},
		CodeSection: []wasm.Code{{
			LocalTypes: []wasm.ValueType{i64},
			Body:       body,
		}},
	}
	c := frontend.NewCompiler(m, frontend.SandboxedStrategy{}, nil)
	out, err := c.CompileModule()
	require.NoError(t, err)
	require.Len(t, out.Funcs, 1)

	var loads []*ir.Instruction
	for _, blk := range out.Funcs[0].Blocks() {
		for _, inst := range blk.Instructions() {
			if inst.Opcode() == ir.OpLoad {
				loads = append(loads, inst)
			}
		}
	}
	// The incoming i32 parameter is stored once into its alloca but never
	// read back here, so the only load in this function is local.get 1's.
	require.Len(t, loads, 1)
	require.Equal(t, ir.TypeI64, loads[0].Return().Type())
}

// table.get/table.set lower to a load/store of the slot's Executable
// field; ref.null/ref.is_null/ref.func must compile rather than fail as
// unsupported reference-type opcodes.
func TestCompileModule_TableAndRefOps(t *testing.T) {
	body := []byte{
		0x41, 0x00, // i32.const 0 (element index for table.get)
		0x25, 0x00, // table.get 0
		0xd1,       // ref.is_null
		0x1a,       // drop
		0xd0, 0x70, // ref.null funcref
		0x1a,       // drop
		0x41, 0x01, // i32.const 1 (element index for table.set)
		0xd2, 0x00, // ref.func 0 (value for table.set)
		0x26, 0x00, // table.set 0
		0x0b, // end
	}
	m := &wasm.Module{
		TypeSection:     []wasm.FunctionType{{}},
		FunctionSection: []wasm.Index{0},
		CodeSection:     []wasm.Code{{Body: body}},
		TableSection:    []wasm.Table{{Min: 4}},
	}
	c := frontend.NewCompiler(m, frontend.SandboxedStrategy{}, nil)
	out, err := c.CompileModule()
	require.NoError(t, err)
	require.Len(t, out.Funcs, 1)

	text := out.WriteText()
	require.Contains(t, text, "= load ")
	require.Contains(t, text, "= getelementptr ")
}

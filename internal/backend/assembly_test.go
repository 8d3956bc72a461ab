package backend_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasm2native/wasm2nativec/internal/backend"
	"github.com/wasm2native/wasm2nativec/internal/ir"
	"github.com/wasm2native/wasm2nativec/internal/wasm"
)

func TestAssembler_Globals(t *testing.T) {
	m := &wasm.Module{
		ImportSection: []wasm.Import{
			{Type: wasm.ExternTypeGlobal, Module: "env", Name: "g0", DescGlobal: wasm.GlobalType{ValType: wasm.ValueTypeI32}},
		},
		ImportGlobalCount: 1,
		GlobalSection: []wasm.Global{
			{
				Type: wasm.GlobalType{ValType: wasm.ValueTypeI64, Mutable: true},
				Init: wasm.ConstantExpression{Opcode: wasm.OpcodeI64Const, Value: 42},
			},
		},
	}
	out := ir.NewModule("wasm")

	require.NoError(t, backend.NewAssembler(m).Assemble(out))
	require.Len(t, out.Globals, 2)
	require.Equal(t, "wasm_global_0", out.Globals[0].Name)
	require.Equal(t, uint64(0), out.Globals[0].Bits)
	require.False(t, out.Globals[0].Mutable)
	require.Equal(t, "wasm_global_1", out.Globals[1].Name)
	require.Equal(t, uint64(42), out.Globals[1].Bits)
	require.True(t, out.Globals[1].Mutable)
	require.Equal(t, ir.TypeI64, out.Globals[1].Type)
}

func TestAssembler_DataSegments(t *testing.T) {
	m := &wasm.Module{
		DataSection: []wasm.DataSegment{
			{OffsetExpression: wasm.ConstantExpression{Opcode: wasm.OpcodeI32Const, Value: 1024}, Init: []byte("hi")},
		},
	}
	out := ir.NewModule("wasm")

	require.NoError(t, backend.NewAssembler(m).Assemble(out))
	require.Len(t, out.Data, 1)
	require.Equal(t, "wasm_data_0", out.Data[0].Name)
	require.Equal(t, uint64(1024), out.Data[0].Offset)
	require.Equal(t, []byte("hi"), out.Data[0].Bytes)
}

func TestAssembler_Tables(t *testing.T) {
	m := &wasm.Module{
		ElementSection: []wasm.ElementSegment{
			{
				TableIndex:       0,
				OffsetExpression: wasm.ConstantExpression{Opcode: wasm.OpcodeI32Const, Value: 0},
				Init:             []uint32{3, 4, 5},
			},
		},
	}
	out := ir.NewModule("wasm")

	require.NoError(t, backend.NewAssembler(m).Assemble(out))
	require.Len(t, out.Tables, 1)
	require.Equal(t, []uint32{3, 4, 5}, out.Tables[0].FuncIndexes)
}

func TestAssembler_ImportsAndExports(t *testing.T) {
	m := &wasm.Module{
		ImportSection: []wasm.Import{
			{Type: wasm.ExternTypeFunc, Module: "env", Name: "log"},
		},
		ImportFunctionCount: 1,
		ExportSection: []wasm.Export{
			{Type: wasm.ExternTypeFunc, Name: "add1", Index: 1},
		},
	}
	out := ir.NewModule("wasm")
	f := ir.NewFunc("wasm_func_1", &ir.Signature{Params: []ir.Type{ir.TypePtr, ir.TypePtr}, Results: []ir.Type{ir.TypeI32}})
	out.AddFunc(f)

	require.NoError(t, backend.NewAssembler(m).Assemble(out))
	require.Equal(t, []string{"env.log"}, out.ImportedFuncNames)
	require.Equal(t, "add1", out.ExportedFuncNames["wasm_func_1"])
}

func TestTextEmitter_EmitsTextForUnopt(t *testing.T) {
	out := ir.NewModule("wasm")
	var buf bytes.Buffer
	err := (backend.TextEmitter{}).Emit(&buf, out, backend.FormatLLVMIRUnopt)
	require.NoError(t, err)
	require.Contains(t, buf.String(), `; module "wasm"`)
}

func TestTextEmitter_UnavailableForObjectAndOpt(t *testing.T) {
	out := ir.NewModule("wasm")
	var buf bytes.Buffer
	require.ErrorIs(t, (backend.TextEmitter{}).Emit(&buf, out, backend.FormatObject), backend.ErrBackendUnavailable)
	require.ErrorIs(t, (backend.TextEmitter{}).Emit(&buf, out, backend.FormatLLVMIROpt), backend.ErrBackendUnavailable)
}

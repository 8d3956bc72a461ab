package wasm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasm2native/wasm2nativec/internal/wasm"
)

func TestFunctionType_Equal(t *testing.T) {
	a := &wasm.FunctionType{Params: []wasm.ValueType{wasm.ValueTypeI32}, Results: []wasm.ValueType{wasm.ValueTypeI32}}
	b := &wasm.FunctionType{Params: []wasm.ValueType{wasm.ValueTypeI32}, Results: []wasm.ValueType{wasm.ValueTypeI32}}
	c := &wasm.FunctionType{Params: []wasm.ValueType{wasm.ValueTypeI64}, Results: []wasm.ValueType{wasm.ValueTypeI32}}

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestModule_CanonicalTypeIndex(t *testing.T) {
	m := &wasm.Module{
		TypeSection: []wasm.FunctionType{
			{Params: []wasm.ValueType{wasm.ValueTypeI32}, Results: []wasm.ValueType{wasm.ValueTypeI32}},
			{Params: []wasm.ValueType{wasm.ValueTypeI64}},
			{Params: []wasm.ValueType{wasm.ValueTypeI32}, Results: []wasm.ValueType{wasm.ValueTypeI32}},
		},
	}

	require.EqualValues(t, 0, m.CanonicalTypeIndex(0))
	require.EqualValues(t, 1, m.CanonicalTypeIndex(1))
	require.EqualValues(t, 0, m.CanonicalTypeIndex(2))
}

func TestModule_TypeIndexOfFunction(t *testing.T) {
	m := &wasm.Module{
		ImportSection: []wasm.Import{
			{Type: wasm.ExternTypeFunc, DescFunc: 3},
			{Type: wasm.ExternTypeGlobal},
			{Type: wasm.ExternTypeFunc, DescFunc: 4},
		},
		ImportFunctionCount: 2,
		FunctionSection:     []wasm.Index{5, 6},
	}

	idx, ok := m.TypeIndexOfFunction(0)
	require.True(t, ok)
	require.EqualValues(t, 3, idx)

	idx, ok = m.TypeIndexOfFunction(1)
	require.True(t, ok)
	require.EqualValues(t, 4, idx)

	idx, ok = m.TypeIndexOfFunction(2)
	require.True(t, ok)
	require.EqualValues(t, 5, idx)

	_, ok = m.TypeIndexOfFunction(100)
	require.False(t, ok)
}

func TestModule_WellKnownGlobalOf(t *testing.T) {
	m := &wasm.Module{
		ExportSection: []wasm.Export{
			{Type: wasm.ExternTypeGlobal, Name: "__heap_base", Index: 2},
		},
	}
	require.Equal(t, wasm.WellKnownGlobalHeapBase, m.WellKnownGlobalOf(2))
	require.Equal(t, wasm.WellKnownGlobalNone, m.WellKnownGlobalOf(0))
}

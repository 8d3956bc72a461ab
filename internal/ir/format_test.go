package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasm2native/wasm2nativec/internal/ir"
)

func TestModule_WriteText_RendersFunctionAndConstant(t *testing.T) {
	sig := &ir.Signature{Params: []ir.Type{ir.TypeI32, ir.TypeI32}, Results: []ir.Type{ir.TypeI32}}
	f := ir.NewFunc("add1", sig)
	b := ir.NewBuilder(f)

	sum := b.AllocateInstruction().AsIadd(f.Param(0), f.Param(1)).Insert(b)
	b.AllocateInstruction().AsJump([]ir.Value{sum.Return()}, f.ReturnBlock()).Insert(b)
	b.SetCurrentBlock(f.ReturnBlock())
	b.AllocateInstruction().AsReturn([]ir.Value{f.ReturnBlock().Params()[0]}).Insert(b)

	m := ir.NewModule("t")
	m.AddFunc(f)
	m.Globals = append(m.Globals, ir.GlobalInit{Name: "heap_base", Type: ir.TypeI32, Bits: 1024})

	text := m.WriteText()
	require.Contains(t, text, `module "t"`)
	require.Contains(t, text, "define i32 @add1(")
	require.Contains(t, text, "@heap_base = constant i32 1024")
	require.Contains(t, text, " add ")
	require.Contains(t, text, "phi i32")
	require.Contains(t, text, "ret")
}

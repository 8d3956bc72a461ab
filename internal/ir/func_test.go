package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasm2native/wasm2nativec/internal/ir"
)

func TestBuilder_EntryAndReturnBlocks(t *testing.T) {
	sig := &ir.Signature{Params: []ir.Type{ir.TypeI32, ir.TypeI32}, Results: []ir.Type{ir.TypeI32}}
	f := ir.NewFunc("add", sig)
	b := ir.NewBuilder(f)

	require.NotNil(t, f.EntryBlock())
	require.NotNil(t, f.ReturnBlock())
	require.Len(t, f.ReturnBlock().Params(), 1)
	require.Equal(t, ir.TypeI32, f.ReturnBlock().Params()[0].Type())
	require.Same(t, f.EntryBlock(), b.CurrentBlock())
}

func TestBuilder_InsertInstruction_AssignsResult(t *testing.T) {
	sig := &ir.Signature{Results: []ir.Type{ir.TypeI32}}
	f := ir.NewFunc("k", sig)
	b := ir.NewBuilder(f)

	c1 := b.AllocateInstruction().AsIconst32(1).Insert(b)
	c2 := b.AllocateInstruction().AsIconst32(2).Insert(b)
	sum := b.AllocateInstruction().AsIadd(c1.Return(), c2.Return()).Insert(b)

	require.True(t, sum.Return().Valid())
	require.Equal(t, ir.TypeI32, sum.Return().Type())
	require.NotEqual(t, c1.Return(), c2.Return())
}

func TestBuilder_JumpPropagatesIncoming(t *testing.T) {
	sig := &ir.Signature{Results: []ir.Type{ir.TypeI32}}
	f := ir.NewFunc("loop", sig)
	b := ir.NewBuilder(f)

	merge := b.AllocateBasicBlock()
	p := merge.AddParam(b, ir.TypeI32)

	c := b.AllocateInstruction().AsIconst32(7).Insert(b)
	b.AllocateInstruction().AsJump([]ir.Value{c.Return()}, merge).Insert(b)
	require.True(t, f.EntryBlock().Terminated())

	values, blocks := merge.IncomingFor(0)
	require.Len(t, values, 1)
	require.Equal(t, c.Return(), values[0])
	require.Same(t, f.EntryBlock(), blocks[0])
	require.Equal(t, p, merge.Params()[0])
}

func TestBuilder_InsertAfterTerminatorPanics(t *testing.T) {
	sig := &ir.Signature{}
	f := ir.NewFunc("trap", sig)
	b := ir.NewBuilder(f)

	b.AllocateInstruction().AsUnreachable().Insert(b)
	require.Panics(t, func() {
		b.AllocateInstruction().AsIconst32(0).Insert(b)
	})
}

func TestBuilder_CallIndirectAllocatesMultipleResults(t *testing.T) {
	sig := &ir.Signature{}
	f := ir.NewFunc("caller", sig)
	b := ir.NewBuilder(f)

	calleeSig := &ir.Signature{Results: []ir.Type{ir.TypeI32, ir.TypeI64}}
	ptr := b.AllocateInstruction().AsAlloca().Insert(b)
	call := b.AllocateInstruction().AsCallIndirect(ptr.Return(), calleeSig, nil).Insert(b)

	first, rest := call.Returns()
	require.True(t, first.Valid())
	require.Len(t, rest, 1)
	require.Equal(t, ir.TypeI64, rest[0].Type())
}

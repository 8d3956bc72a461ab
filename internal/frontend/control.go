package frontend

import (
	"fmt"

	"github.com/wasm2native/wasm2nativec/internal/ir"
	"github.com/wasm2native/wasm2nativec/internal/wasm"
)

// lowerBody drives the opcode-by-opcode decode/lower loop for one
// function, grounded on frontend.Compiler.lowerBody in
// internal/engine/wazevo/frontend/lower.go: push the outermost function
// control frame (whose "end" is the function's shared return block),
// then dispatch every opcode until the body is exhausted.
func (fc *funcCompiler) lowerBody() error {
	fc.st.ctrlPush(controlFrame{
		kind:           controlFrameKindFunction,
		blockType:      fc.wasmSig,
		followingBlock: fc.f.ReturnBlock(),
	})

	for !fc.rd.done() {
		if err := fc.lowerCurrentOpcode(); err != nil {
			return err
		}
	}

	if !fc.b.CurrentBlock().Terminated() {
		return fmt.Errorf("frontend: function %d body fell through without a terminator", fc.funcIdx)
	}
	return nil
}

func (fc *funcCompiler) addBlockParamsFromWasmTypes(ts []wasm.ValueType, blk *ir.BasicBlock) {
	for _, t := range ts {
		blk.AddParam(fc.b, valueTypeToIR(t))
	}
}

func (fc *funcCompiler) insertJumpToBlock(args []ir.Value, target *ir.BasicBlock) {
	fc.b.AllocateInstruction().AsJump(args, target).Insert(fc.b)
}

// switchTo moves the insertion point to target, resetting the Wasm
// operand stack to the point at which target's frame began and pushing
// target's own block params back on as the values now available. A block
// with zero recorded predecessors is unreachable Wasm code (dead after an
// unconditional br): lowering carries on (so subsequent decode does not
// panic) but marks the state unreachable so opcodes in it are skipped.
func (fc *funcCompiler) switchTo(originalStackLen int, target *ir.BasicBlock) {
	fc.st.values = fc.st.values[:originalStackLen]
	fc.b.SetCurrentBlock(target)
	for _, p := range target.Params() {
		fc.st.push(p)
	}
	if target.Preds() == 0 {
		fc.st.unreachable = true
		// Dead code: no predecessor will ever reach target, but every
		// block still needs a terminator to be valid IR, so seal it off
		// with an explicit unreachable rather than leaving it dangling.
		fc.b.AllocateInstruction().AsUnreachable().Insert(fc.b)
	}
}

func (fc *funcCompiler) lowerBlock() error {
	bt, err := fc.rd.blockType(fc.c.Module)
	if err != nil {
		return err
	}
	if fc.st.unreachable {
		fc.st.unreachableDepth++
		return nil
	}
	following := fc.b.AllocateBasicBlock()
	fc.addBlockParamsFromWasmTypes(bt.Results, following)
	fc.st.ctrlPush(controlFrame{
		kind:                         controlFrameKindBlock,
		originalStackLenWithoutParam: len(fc.st.values) - len(bt.Params),
		followingBlock:               following,
		blockType:                    bt,
	})
	return nil
}

func (fc *funcCompiler) lowerLoop() error {
	bt, err := fc.rd.blockType(fc.c.Module)
	if err != nil {
		return err
	}
	if fc.st.unreachable {
		fc.st.unreachableDepth++
		return nil
	}
	header, after := fc.b.AllocateBasicBlock(), fc.b.AllocateBasicBlock()
	fc.addBlockParamsFromWasmTypes(bt.Params, header)
	fc.addBlockParamsFromWasmTypes(bt.Results, after)

	originalLen := len(fc.st.values) - len(bt.Params)
	fc.st.ctrlPush(controlFrame{
		originalStackLenWithoutParam: originalLen,
		kind:                         controlFrameKindLoop,
		blk:                          header,
		followingBlock:               after,
		blockType:                    bt,
	})

	var args []ir.Value
	if len(bt.Params) > 0 {
		args = append(args, fc.st.values[originalLen:]...)
	}
	fc.insertJumpToBlock(args, header)
	fc.switchTo(originalLen, header)
	header.Seal()
	return nil
}

func (fc *funcCompiler) lowerIf() error {
	bt, err := fc.rd.blockType(fc.c.Module)
	if err != nil {
		return err
	}
	if fc.st.unreachable {
		fc.st.unreachableDepth++
		return nil
	}
	cond := fc.st.pop()
	thenBlk, elseBlk, following := fc.b.AllocateBasicBlock(), fc.b.AllocateBasicBlock(), fc.b.AllocateBasicBlock()
	fc.addBlockParamsFromWasmTypes(bt.Results, following)

	var clonedArgs []ir.Value
	if len(bt.Params) > 0 {
		clonedArgs = fc.st.nPeekDup(len(bt.Params))
	}

	fc.b.AllocateInstruction().AsBrz(cond, nil, elseBlk).Insert(fc.b)
	fc.insertJumpToBlock(nil, thenBlk)

	fc.st.ctrlPush(controlFrame{
		kind:                         controlFrameKindIfWithoutElse,
		originalStackLenWithoutParam: len(fc.st.values) - len(bt.Params),
		blk:                          elseBlk,
		followingBlock:               following,
		blockType:                    bt,
		clonedArgs:                   clonedArgs,
	})
	fc.b.SetCurrentBlock(thenBlk)
	thenBlk.Seal()
	elseBlk.Seal()
	return nil
}

func (fc *funcCompiler) lowerElse() error {
	ctrl := fc.st.ctrlPeekAt(0)
	if fc.st.unreachable && fc.st.unreachableDepth > 0 {
		return nil
	}
	ctrl.kind = controlFrameKindIfWithElse
	if !fc.st.unreachable {
		args := fc.st.nPeekDup(len(ctrl.blockType.Results))
		fc.insertJumpToBlock(args, ctrl.followingBlock)
	} else {
		fc.st.unreachable = false
	}
	fc.st.values = fc.st.values[:ctrl.originalStackLenWithoutParam]
	elseBlk := ctrl.blk
	for _, a := range ctrl.clonedArgs {
		fc.st.push(a)
	}
	fc.b.SetCurrentBlock(elseBlk)
	return nil
}

func (fc *funcCompiler) lowerEnd() error {
	if fc.st.unreachableDepth > 0 {
		fc.st.unreachableDepth--
		return nil
	}
	ctrl := fc.st.ctrlPop()
	following := ctrl.followingBlock

	wasUnreachable := fc.st.unreachable
	if !wasUnreachable {
		args := fc.st.nPeekDup(len(ctrl.blockType.Results))
		fc.insertJumpToBlock(args, following)
	} else {
		fc.st.unreachable = false
	}

	switch ctrl.kind {
	case controlFrameKindFunction:
		// End of function: the return block itself is finalized by
		// finalizeReturnBlock (called once, after lowerBody returns).
	case controlFrameKindLoop:
		ctrl.blk.Seal()
	case controlFrameKindIfWithoutElse:
		fc.b.SetCurrentBlock(ctrl.blk)
		fc.insertJumpToBlock(ctrl.clonedArgs, following)
	}
	following.Seal()

	if ctrl.kind == controlFrameKindFunction {
		return fc.finalizeReturnBlock()
	}
	fc.switchTo(ctrl.originalStackLenWithoutParam, following)
	return nil
}

// finalizeReturnBlock emits the shared return block's terminator once
// the function's outermost frame reaches its "end": the block's own phi
// params (one per result, populated by every AsReturn-less fallthrough
// and every `return` opcode along the way) are what gets returned.
func (fc *funcCompiler) finalizeReturnBlock() error {
	fc.b.SetCurrentBlock(fc.f.ReturnBlock())
	fc.f.ReturnBlock().Seal()
	results := fc.f.ReturnBlock().Params()
	fc.b.AllocateInstruction().AsReturn(results).Insert(fc.b)
	return nil
}

func (fc *funcCompiler) lowerBr() error {
	label, err := fc.rd.u32()
	if err != nil {
		return err
	}
	if fc.st.unreachable {
		return nil
	}
	target, argNum := fc.st.brTargetArgNumFor(label)
	args := fc.st.nPeekDup(argNum)
	fc.insertJumpToBlock(args, target)
	fc.st.unreachable = true
	return nil
}

func (fc *funcCompiler) lowerBrIf() error {
	label, err := fc.rd.u32()
	if err != nil {
		return err
	}
	if fc.st.unreachable {
		return nil
	}
	cond := fc.st.pop()
	target, argNum := fc.st.brTargetArgNumFor(label)
	args := fc.st.nPeekDup(argNum)

	fc.b.AllocateInstruction().AsBrnz(cond, args, target).Insert(fc.b)

	elseBlk := fc.b.AllocateBasicBlock()
	fc.insertJumpToBlock(nil, elseBlk)
	elseBlk.Seal()
	fc.b.SetCurrentBlock(elseBlk)
	return nil
}

func (fc *funcCompiler) lowerBrTable() error {
	count, err := fc.rd.u32()
	if err != nil {
		return err
	}
	labels := make([]uint32, 0, count+1)
	for i := uint32(0); i < count; i++ {
		l, err := fc.rd.u32()
		if err != nil {
			return err
		}
		labels = append(labels, l)
	}
	def, err := fc.rd.u32()
	if err != nil {
		return err
	}
	labels = append(labels, def)

	if fc.st.unreachable {
		return nil
	}
	index := fc.st.pop()

	if count == 0 {
		target, argNum := fc.st.brTargetArgNumFor(labels[0])
		args := fc.st.nPeekDup(argNum)
		fc.insertJumpToBlock(args, target)
		fc.st.unreachable = true
		return nil
	}

	// br_table's target blocks may each need different per-target phi
	// args but the instruction itself carries no per-target argument
	// list, so every target is reached through a one-instruction
	// trampoline block that carries the (shared) args via a plain jump,
	// grounded on Compiler.lowerBrTable in frontend/lower.go.
	_, firstArgNum := fc.st.brTargetArgNumFor(labels[0])
	args := fc.st.nPeekDup(firstArgNum)
	current := fc.b.CurrentBlock()
	targets := make([]*ir.BasicBlock, len(labels))
	for i, l := range labels {
		target, _ := fc.st.brTargetArgNumFor(l)
		trampoline := fc.b.AllocateBasicBlock()
		fc.b.SetCurrentBlock(trampoline)
		fc.insertJumpToBlock(args, target)
		trampoline.Seal()
		targets[i] = trampoline
	}
	fc.b.SetCurrentBlock(current)
	fc.b.AllocateInstruction().AsBrTable(index, targets).Insert(fc.b)
	fc.st.unreachable = true
	return nil
}

func (fc *funcCompiler) lowerReturnOp() error {
	if fc.st.unreachable {
		return nil
	}
	results := fc.st.nPeekDup(len(fc.wasmSig.Results))
	fc.insertJumpToBlock(results, fc.f.ReturnBlock())
	fc.st.unreachable = true
	return nil
}

func (fc *funcCompiler) lowerUnreachable() error {
	if fc.st.unreachable {
		return nil
	}
	fc.raiseUnconditionally(ExceptionUnreachable)
	fc.st.unreachable = true
	return nil
}

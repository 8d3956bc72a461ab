package frontend

import (
	"github.com/wasm2native/wasm2nativec/internal/ir"
	"github.com/wasm2native/wasm2nativec/internal/wasm"
)

// controlFrameKind distinguishes the four structured-control-flow frame
// shapes plus the outermost function frame, mirroring
// frontend/lower.go's controlFrameKind.
type controlFrameKind byte

const (
	controlFrameKindFunction controlFrameKind = iota + 1
	controlFrameKindLoop
	controlFrameKindIfWithElse
	controlFrameKindIfWithoutElse
	controlFrameKindBlock
)

// controlFrame is one entry of the control-frame stack, grounded on
// frontend/lower.go's controlFrame type. blk is the loop header for a
// Loop frame and the else-block for an If frame; followingBlock is the
// merge point entered at "end".
type controlFrame struct {
	kind                         controlFrameKind
	originalStackLenWithoutParam int
	blk                          *ir.BasicBlock
	followingBlock               *ir.BasicBlock
	blockType                    *wasm.FunctionType
	clonedArgs                   []ir.Value
}

func (f *controlFrame) isLoop() bool { return f.kind == controlFrameKindLoop }

// loweringState is the per-function symbolic operand stack plus control-
// frame stack the decoder maintains while walking one function body,
// grounded on frontend/lower.go's loweringState.
type loweringState struct {
	values           []ir.Value
	frames           []controlFrame
	unreachable      bool
	unreachableDepth int
}

func (l *loweringState) pop() ir.Value {
	tail := len(l.values) - 1
	v := l.values[tail]
	l.values = l.values[:tail]
	return v
}

func (l *loweringState) push(v ir.Value) { l.values = append(l.values, v) }

func (l *loweringState) nPopInto(n int, dst []ir.Value) {
	if n == 0 {
		return
	}
	tail := len(l.values)
	begin := tail - n
	copy(dst, l.values[begin:tail])
	l.values = l.values[:begin]
}

// nPeekDup returns a fresh copy of the top n stack values without
// popping them; used wherever the same values feed both a branch's args
// and the continuing fallthrough path (block/if/loop merges, br, end).
func (l *loweringState) nPeekDup(n int) []ir.Value {
	if n == 0 {
		return nil
	}
	tail := len(l.values)
	view := l.values[tail-n : tail]
	out := make([]ir.Value, n)
	copy(out, view)
	return out
}

func (l *loweringState) ctrlPush(f controlFrame) { l.frames = append(l.frames, f) }

func (l *loweringState) ctrlPop() controlFrame {
	tail := len(l.frames) - 1
	f := l.frames[tail]
	l.frames = l.frames[:tail]
	return f
}

// ctrlPeekAt returns the frame n levels up from the innermost (n==0 is
// the current innermost frame), matching Wasm's branch label indexing.
func (l *loweringState) ctrlPeekAt(n int) *controlFrame {
	tail := len(l.frames) - 1
	return &l.frames[tail-n]
}

// brTargetArgNumFor resolves a branch label to its target block and the
// number of arguments that must accompany the jump: a loop's target is
// its header (re-entering with the loop's param arity), anything else's
// target is its following block (exiting with the block's result arity).
func (l *loweringState) brTargetArgNumFor(labelIndex uint32) (target *ir.BasicBlock, argNum int) {
	f := l.ctrlPeekAt(int(labelIndex))
	if f.isLoop() {
		return f.blk, len(f.blockType.Params)
	}
	return f.followingBlock, len(f.blockType.Results)
}

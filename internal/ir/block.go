package ir

// BasicBlock is a single-entry, single-exit straight-line sequence of
// Instructions ending in a terminator. Its Params model the phi nodes a
// structured-control-flow merge point needs: every predecessor edge that
// jumps into this block supplies one argument per param, recorded via
// addIncoming as that edge's terminator is built (spec.md section 3,
// "incoming_values_per_result, incoming_blocks_per_result").
type BasicBlock struct {
	id     int
	params []Value

	// incoming[p] is the list of (value, predecessor) pairs supplied for
	// params[p], in the order predecessors were linked.
	incomingValues [][]Value
	incomingBlocks [][]*BasicBlock

	instructions []*Instruction
	sealed       bool
	terminated   bool
	preds        int
}

// ID returns the block's unique identifier within its function.
func (b *BasicBlock) ID() int { return b.id }

// Params returns the block's phi-parameter values, in declaration order.
func (b *BasicBlock) Params() []Value { return b.params }

// Terminated reports whether the block already ends in a terminator.
func (b *BasicBlock) Terminated() bool { return b.terminated }

// Preds returns the number of predecessor edges recorded so far via
// addIncoming. Used by the frontend to detect a block that turned out to
// be unreachable (e.g. the block after an unconditional br).
func (b *BasicBlock) Preds() int { return b.preds }

// Instructions returns the block's instructions in program order,
// including the terminator.
func (b *BasicBlock) Instructions() []*Instruction { return b.instructions }

// addIncoming records one predecessor's contribution to this block's phi
// parameters. len(args) must equal len(b.params); it is the caller's
// (Builder's) responsibility to pass the right arity.
func (b *BasicBlock) addIncoming(from *BasicBlock, args []Value) {
	b.preds++
	if len(b.incomingValues) == 0 && len(b.params) > 0 {
		b.incomingValues = make([][]Value, len(b.params))
		b.incomingBlocks = make([][]*BasicBlock, len(b.params))
	}
	for p := range b.params {
		b.incomingValues[p] = append(b.incomingValues[p], args[p])
		b.incomingBlocks[p] = append(b.incomingBlocks[p], from)
	}
}

// IncomingFor returns the accumulated (values, blocks) pairs for the
// param-th phi parameter, for use by the textual emitter.
func (b *BasicBlock) IncomingFor(param int) ([]Value, []*BasicBlock) {
	if param >= len(b.incomingValues) {
		return nil, nil
	}
	return b.incomingValues[param], b.incomingBlocks[param]
}

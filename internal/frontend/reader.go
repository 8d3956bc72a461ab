package frontend

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/wasm2native/wasm2nativec/internal/leb128"
	"github.com/wasm2native/wasm2nativec/internal/wasm"
)

// reader is a forward-only cursor over one function body's instruction
// bytes, grounded on the *Compiler.readI32u/readI32s/readI64s/readF32/
// readF64/readBlockType/readMemArg family in wazero's
// internal/engine/wazevo/frontend/lower.go — kept as methods on an
// explicit cursor type rather than compiler methods, so it can be used
// without a full Compiler.
type reader struct {
	buf []byte
	pos int
}

func newReader(body []byte) *reader { return &reader{buf: body} }

func (r *reader) done() bool { return r.pos >= len(r.buf) }

func (r *reader) byte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, fmt.Errorf("frontend: unexpected end of function body at offset %d", r.pos)
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) u32() (uint32, error) {
	v, n, err := leb128.LoadUint32(r.buf[r.pos:])
	if err != nil {
		return 0, fmt.Errorf("frontend: reading u32 leb128 at offset %d: %w", r.pos, err)
	}
	r.pos += int(n)
	return v, nil
}

func (r *reader) i32() (int32, error) {
	v, n, err := leb128.LoadInt32(r.buf[r.pos:])
	if err != nil {
		return 0, fmt.Errorf("frontend: reading i32 sleb128 at offset %d: %w", r.pos, err)
	}
	r.pos += int(n)
	return v, nil
}

func (r *reader) i64() (int64, error) {
	v, n, err := leb128.LoadInt64(r.buf[r.pos:])
	if err != nil {
		return 0, fmt.Errorf("frontend: reading i64 sleb128 at offset %d: %w", r.pos, err)
	}
	r.pos += int(n)
	return v, nil
}

// f32 reads a fixed-width little-endian IEEE754 single float. Unlike the
// LEB128 integer reads, Wasm encodes float constants as raw bytes.
func (r *reader) f32() (float32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, fmt.Errorf("frontend: unexpected end of function body reading f32 at offset %d", r.pos)
	}
	bits := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return math.Float32frombits(bits), nil
}

func (r *reader) f64() (float64, error) {
	if r.pos+8 > len(r.buf) {
		return 0, fmt.Errorf("frontend: unexpected end of function body reading f64 at offset %d", r.pos)
	}
	bits := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return math.Float64frombits(bits), nil
}

// memArg reads the (align, offset) pair preceding every load/store opcode.
func (r *reader) memArg() (align, offset uint32, err error) {
	if align, err = r.u32(); err != nil {
		return 0, 0, err
	}
	if offset, err = r.u32(); err != nil {
		return 0, 0, err
	}
	return align, offset, nil
}

// blockType decodes a block/loop/if type: 0x40 is the empty type, a
// single-byte value type is a one-result type, otherwise it is a signed
// LEB128 index into the module's type section (33-bit signed form per
// the Wasm spec; module types never exceed an int32 index in practice).
func (r *reader) blockType(m *wasm.Module) (*wasm.FunctionType, error) {
	startPos := r.pos
	b, err := r.byte()
	if err != nil {
		return nil, err
	}
	switch b {
	case 0x40:
		return &wasm.FunctionType{}, nil
	case byte(wasm.ValueTypeI32), byte(wasm.ValueTypeI64), byte(wasm.ValueTypeF32),
		byte(wasm.ValueTypeF64), byte(wasm.ValueTypeV128), byte(wasm.ValueTypeFuncref):
		return &wasm.FunctionType{Results: []wasm.ValueType{wasm.ValueType(b)}}, nil
	default:
		r.pos = startPos
		idx, err := r.i32()
		if err != nil {
			return nil, err
		}
		if idx < 0 || int(idx) >= len(m.TypeSection) {
			return nil, fmt.Errorf("frontend: block type index %d out of range", idx)
		}
		return &m.TypeSection[idx], nil
	}
}

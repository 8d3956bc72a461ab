package frontend

import (
	"encoding/binary"
	"fmt"

	"github.com/wasm2native/wasm2nativec/internal/wasm"
)

// lowerVecOpcode dispatches the representative v128 sub-opcode space
// (spec.md section 4.1's "V128 ... only when SIMD is enabled"): this core
// only needs a constant and the three lane-wise arithmetic ops to exercise
// the ir.OpVconst/OpVIadd/OpVIsub/OpVImul instructions end to end, rather
// than the full SIMD opcode space.
func (fc *funcCompiler) lowerVecOpcode(sub uint32) error {
	if fc.c.DisableSIMD {
		return fmt.Errorf("frontend: vec sub-opcode 0x%02x is unsupported while SIMD is disabled", sub)
	}
	if sub == wasm.VecOpcodeV128Const {
		return fc.lowerV128Const()
	}
	if fc.st.unreachable {
		return nil
	}
	b := fc.b
	switch sub {
	case wasm.VecOpcodeI32x4Add, wasm.VecOpcodeI64x2Add:
		y, x := fc.st.pop(), fc.st.pop()
		fc.st.push(b.AllocateInstruction().AsVIadd(x, y).Insert(b).Return())
	case wasm.VecOpcodeI32x4Sub, wasm.VecOpcodeI64x2Sub:
		y, x := fc.st.pop(), fc.st.pop()
		fc.st.push(b.AllocateInstruction().AsVIsub(x, y).Insert(b).Return())
	case wasm.VecOpcodeI32x4Mul, wasm.VecOpcodeI64x2Mul:
		y, x := fc.st.pop(), fc.st.pop()
		fc.st.push(b.AllocateInstruction().AsVImul(x, y).Insert(b).Return())
	default:
		return fmt.Errorf("frontend: unsupported vec sub-opcode 0x%02x", sub)
	}
	return nil
}

// lowerV128Const reads the 16-byte little-endian immediate as two i64
// halves, matching how ir.AsVconst stores a v128 constant.
func (fc *funcCompiler) lowerV128Const() error {
	r := fc.rd
	if r.pos+16 > len(r.buf) {
		return fmt.Errorf("frontend: unexpected end of function body reading v128 const at offset %d", r.pos)
	}
	lo := binary.LittleEndian.Uint64(r.buf[r.pos:])
	hi := binary.LittleEndian.Uint64(r.buf[r.pos+8:])
	r.pos += 16
	if fc.st.unreachable {
		return nil
	}
	fc.st.push(fc.b.AllocateInstruction().AsVconst(lo, hi).Insert(fc.b).Return())
	return nil
}

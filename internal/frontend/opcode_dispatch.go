package frontend

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wasm2native/wasm2nativec/internal/wasm"
)

// lowerCurrentOpcode decodes one opcode byte and dispatches it to the
// matching lowerXxx helper, grounded on Compiler.lowerCurrentOpcode's
// master switch in internal/engine/wazevo/frontend/lower.go. Structured
// control-flow opcodes (control.go) update loweringState regardless of
// unreachable status (they track nesting depth); every other opcode's
// lowerer guards on state.unreachable itself after consuming its operand
// bytes, so the decode position always advances correctly even through
// dead code.
func (fc *funcCompiler) lowerCurrentOpcode() error {
	opByte, err := fc.rd.byte()
	if err != nil {
		return err
	}
	op := wasm.Opcode(opByte)

	if ce := fc.c.Logger.Check(zap.DebugLevel, "lowering opcode"); ce != nil {
		ce.Write(zap.Uint32("func", fc.funcIdx), zap.String("opcode", fmt.Sprintf("0x%02x", opByte)))
	}

	switch op {
	case wasm.OpcodeUnreachable:
		return fc.lowerUnreachable()
	case wasm.OpcodeBlock:
		return fc.lowerBlock()
	case wasm.OpcodeLoop:
		return fc.lowerLoop()
	case wasm.OpcodeIf:
		return fc.lowerIf()
	case wasm.OpcodeElse:
		return fc.lowerElse()
	case wasm.OpcodeEnd:
		return fc.lowerEnd()
	case wasm.OpcodeBr:
		return fc.lowerBr()
	case wasm.OpcodeBrIf:
		return fc.lowerBrIf()
	case wasm.OpcodeBrTable:
		return fc.lowerBrTable()
	case wasm.OpcodeReturn:
		return fc.lowerReturnOp()
	case wasm.OpcodeCall:
		return fc.lowerCall()
	case wasm.OpcodeCallIndirect:
		return fc.lowerCallIndirect()

	case wasm.OpcodeLocalGet:
		return fc.lowerLocalGet()
	case wasm.OpcodeLocalSet:
		return fc.lowerLocalSet()
	case wasm.OpcodeLocalTee:
		return fc.lowerLocalTee()
	case wasm.OpcodeGlobalGet:
		return fc.lowerGlobalGet()
	case wasm.OpcodeGlobalSet:
		return fc.lowerGlobalSet()

	case wasm.OpcodeTableGet:
		return fc.lowerTableGet()
	case wasm.OpcodeTableSet:
		return fc.lowerTableSet()
	case wasm.OpcodeRefNull:
		return fc.lowerRefNull()
	case wasm.OpcodeRefIsNull:
		return fc.lowerRefIsNull()
	case wasm.OpcodeRefFunc:
		return fc.lowerRefFunc()

	case wasm.OpcodeMemorySize:
		return fc.lowerMemorySize()
	case wasm.OpcodeMemoryGrow:
		return fc.lowerMemoryGrow()

	case wasm.OpcodeI32Const:
		return fc.lowerI32Const()
	case wasm.OpcodeI64Const:
		return fc.lowerI64Const()
	case wasm.OpcodeF32Const:
		return fc.lowerF32Const()
	case wasm.OpcodeF64Const:
		return fc.lowerF64Const()

	case wasm.OpcodeMiscPrefix:
		sub, err := fc.rd.u32()
		if err != nil {
			return err
		}
		return fc.lowerSaturatingTrunc(byte(sub))

	case wasm.OpcodeVecPrefix:
		sub, err := fc.rd.u32()
		if err != nil {
			return err
		}
		return fc.lowerVecOpcode(sub)

	default:
		if op >= wasm.OpcodeI32Load && op <= wasm.OpcodeI64Load32U {
			return fc.lowerLoad(op)
		}
		if op >= wasm.OpcodeI32Store && op <= wasm.OpcodeI64Store32 {
			return fc.lowerStore(op)
		}
		return fc.lowerUnaryOrBinary(op)
	}
}

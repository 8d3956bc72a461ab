// Package backend implements Module Assembly (spec.md section 4.11): the
// module-wide wiring the per-function frontend pass deliberately leaves
// out (globals, data segments, table contents, import/export thunks),
// plus the textual emitter that turns a completed ir.Module into output
// bytes. The split mirrors how wazero's frontend.Compiler only lowers one
// function at a time (internal/engine/wazevo/frontend/frontend.go's
// declareNecessaryVariables/declareWasmGlobal set up per-module SSA
// variables once, outside the per-function lowering loop) while the
// runtime-side module instantiation (internal/engine/wazevo/engine.go)
// owns globals/tables/data; here both halves of that wazero split land in
// one package since this core has no separate "runtime" component.
package backend

import (
	"fmt"

	"github.com/wasm2native/wasm2nativec/internal/ir"
	"github.com/wasm2native/wasm2nativec/internal/wasm"
)

// Assembler performs Module Assembly: given the original parsed module and
// the ir.Module the frontend already populated with lowered functions, it
// fills in the module-level fields (Globals, Data, Tables, import/export
// name lists) the backend's emitter needs.
type Assembler struct {
	Module *wasm.Module
}

// NewAssembler returns an Assembler for m.
func NewAssembler(m *wasm.Module) *Assembler {
	return &Assembler{Module: m}
}

// Assemble mutates out in place, adding the module-level state
// CompileModule's per-function pass does not produce: global initializers,
// data segment placement, table contents, and the import/export name
// lists the emitter's thunk-generation step consumes.
func (a *Assembler) Assemble(out *ir.Module) error {
	a.assembleGlobals(out)
	if err := a.assembleData(out); err != nil {
		return err
	}
	if err := a.assembleTables(out); err != nil {
		return err
	}
	a.assembleImportsExports(out)
	return nil
}

// assembleGlobals declares one GlobalInit per Wasm global, imports first
// then module-defined, matching declareNecessaryVariables's import-then-
// local ordering in wazero's frontend.go. Imported globals get a zero
// placeholder bit pattern: their real value is supplied by the host at
// instantiation time, which is outside this AOT core's scope (spec.md
// section 1, External Interfaces); only module-defined globals carry a
// const-evaluated initializer here.
func (a *Assembler) assembleGlobals(out *ir.Module) {
	m := a.Module
	idx := wasm.Index(0)
	for i := range m.ImportSection {
		imp := &m.ImportSection[i]
		if imp.Type != wasm.ExternTypeGlobal {
			continue
		}
		out.Globals = append(out.Globals, ir.GlobalInit{
			Name:    globalName(idx),
			Type:    valueTypeToIR(imp.DescGlobal.ValType),
			Bits:    0,
			Mutable: imp.DescGlobal.Mutable,
		})
		idx++
	}
	for i := range m.GlobalSection {
		g := &m.GlobalSection[i]
		out.Globals = append(out.Globals, ir.GlobalInit{
			Name:    globalName(idx),
			Type:    valueTypeToIR(g.Type.ValType),
			Bits:    a.evalConstExpr(g.Init),
			Mutable: g.Type.Mutable,
		})
		idx++
	}
}

// evalConstExpr reduces a module-level constant initializer to its flat
// bit pattern. A GlobalGet initializer (only legal referencing an
// immutable import) copies that import's placeholder value, which is
// always 0 for the reason assembleGlobals documents; const-typed
// expressions carry their value directly.
func (a *Assembler) evalConstExpr(ce wasm.ConstantExpression) uint64 {
	switch ce.Opcode {
	case wasm.OpcodeGlobalGet:
		return 0
	default:
		return ce.Value
	}
}

// assembleData places every active data segment at its resolved linear-
// memory offset, grounded on aot_compile_op_i64_const's data-symbol
// handling in original_source/core/iwasm/compilation/aot_emit_const.c:
// the no-sandbox strategy's RewriteConstReloc resolves a data-relative
// relocation against DataSegmentBaseOffsets[seg]+DataOffset+addend, so
// those offsets must be finalized here before any function referencing
// them is emitted.
func (a *Assembler) assembleData(out *ir.Module) error {
	m := a.Module
	if len(m.DataSegmentBaseOffsets) == 0 && len(m.DataSection) > 0 {
		m.DataSegmentBaseOffsets = make([]uint64, len(m.DataSection))
		for i := range m.DataSection {
			seg := &m.DataSection[i]
			if seg.Passive {
				continue
			}
			if seg.OffsetExpression.Opcode != wasm.OpcodeI32Const && seg.OffsetExpression.Opcode != wasm.OpcodeI64Const {
				return fmt.Errorf("backend: data segment %d has non-constant base offset", i)
			}
			m.DataSegmentBaseOffsets[i] = seg.OffsetExpression.Value
		}
	}
	for i := range m.DataSection {
		seg := &m.DataSection[i]
		if seg.Passive {
			continue
		}
		out.Data = append(out.Data, ir.DataInit{
			Name:   fmt.Sprintf("wasm_data_%d", i),
			Bytes:  seg.Init,
			Offset: m.DataSegmentBaseOffsets[i],
		})
	}
	return nil
}

// assembleTables resolves every active element segment's function indexes
// into a TableInit, the shape the table-slot populator (out of this
// core's scope, per spec.md section 4 Non-goals on runtime instantiation)
// needs to fill FunctionInstance entries at table_base+slot*
// FunctionInstanceSize.
func (a *Assembler) assembleTables(out *ir.Module) error {
	for i := range a.Module.ElementSection {
		seg := &a.Module.ElementSection[i]
		if seg.Passive {
			continue
		}
		if seg.OffsetExpression.Opcode != wasm.OpcodeI32Const {
			return fmt.Errorf("backend: element segment %d has non-constant base offset", i)
		}
		out.Tables = append(out.Tables, ir.TableInit{
			TableIndex:  seg.TableIndex,
			Offset:      seg.OffsetExpression.Value,
			FuncIndexes: append([]uint32(nil), seg.Init...),
		})
	}
	return nil
}

// assembleImportsExports records which lowered functions need an import
// thunk (a function this module calls but never defines, resolved at
// instantiation time) or an export wrapper (a stable entry point a host
// looks up by name), so the emitter can generate the right module-level
// declarations without re-deriving them from the Export/Import sections.
func (a *Assembler) assembleImportsExports(out *ir.Module) {
	m := a.Module
	for i := range m.ImportSection {
		imp := &m.ImportSection[i]
		if imp.Type != wasm.ExternTypeFunc {
			continue
		}
		out.ImportedFuncNames = append(out.ImportedFuncNames, fmt.Sprintf("%s.%s", imp.Module, imp.Name))
	}
	for i := range m.ExportSection {
		exp := &m.ExportSection[i]
		if exp.Type != wasm.ExternTypeFunc {
			continue
		}
		name := fmt.Sprintf("wasm_func_%d", exp.Index)
		if f, ok := out.FuncByName(name); ok {
			out.ExportedFuncNames[f.Name] = exp.Name
		}
	}
}

// globalName names a module global the same way call.go's calleeName
// names a function: deterministically by index, so a global.get/set's
// load/store against abi.ModuleCtxOffsetGlobalsBase can be cross-checked
// against this list in tests without needing a separate symbol table.
func globalName(idx wasm.Index) string {
	return fmt.Sprintf("wasm_global_%d", idx)
}

func valueTypeToIR(t wasm.ValueType) ir.Type {
	switch t {
	case wasm.ValueTypeI32:
		return ir.TypeI32
	case wasm.ValueTypeI64:
		return ir.TypeI64
	case wasm.ValueTypeF32:
		return ir.TypeF32
	case wasm.ValueTypeF64:
		return ir.TypeF64
	case wasm.ValueTypeV128:
		return ir.TypeV128
	case wasm.ValueTypeFuncref:
		return ir.TypePtr
	default:
		panic(fmt.Sprintf("backend: unsupported value type %v", t))
	}
}

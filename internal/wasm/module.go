// Package wasm holds the already-parsed WebAssembly module data model that
// the compiler core consumes. The binary decoder that produces these
// structures from a `%.wasm` file is an external collaborator and is not
// implemented here: this core receives a fully decoded, previously
// validated *Module.
package wasm

// Index is a position in one of the Wasm index spaces (function, table,
// memory, global, type, local).
type Index = uint32

// ValueType is a Wasm value type.
type ValueType byte

const (
	ValueTypeI32 ValueType = iota + 1
	ValueTypeI64
	ValueTypeF32
	ValueTypeF64
	ValueTypeV128
	ValueTypeFuncref
)

// String implements fmt.Stringer.
func (v ValueType) String() string {
	switch v {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeV128:
		return "v128"
	case ValueTypeFuncref:
		return "funcref"
	default:
		return "unknown"
	}
}

// ExternType classifies an Import or Export.
type ExternType byte

const (
	ExternTypeFunc ExternType = iota + 1
	ExternTypeTable
	ExternTypeMemory
	ExternTypeGlobal
)

// FunctionType is the signature of a Wasm function: an ordered sequence of
// parameter types and an ordered sequence of result types.
//
// Two function types are Equal when their Params and Results are
// byte-identical; Module.CanonicalTypeIndex maps each FunctionType to
// the smallest TypeSection index whose type Equals it, so that call_indirect type checks can
// compare a single integer.
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

// Equal reports whether two function types have byte-identical parameter
// and result sequences.
func (t *FunctionType) Equal(o *FunctionType) bool {
	if t == o {
		return true
	}
	if len(t.Params) != len(o.Params) || len(t.Results) != len(o.Results) {
		return false
	}
	for i, p := range t.Params {
		if o.Params[i] != p {
			return false
		}
	}
	for i, r := range t.Results {
		if o.Results[i] != r {
			return false
		}
	}
	return true
}

// Import describes one imported func/table/memory/global.
type Import struct {
	Type ExternType
	// Module is the primary (two-level) import namespace.
	Module string
	// Name is the secondary import namespace.
	Name string
	// DescFunc is the TypeSection index, valid when Type == ExternTypeFunc.
	DescFunc Index
	// DescTable is the inlined table type, valid when Type == ExternTypeTable.
	DescTable Table
	// DescMem is the inlined memory type, valid when Type == ExternTypeMemory.
	DescMem Memory
	// DescGlobal is the inlined global type, valid when Type == ExternTypeGlobal.
	DescGlobal GlobalType
}

// Table describes one table (currently always of element type funcref).
type Table struct {
	Min, Max uint32
	HasMax   bool
	// Is64 is true for the table64 (memory64 proposal companion) variant,
	// in which table indices are i64 rather than i32.
	Is64 bool
}

// Memory describes one linear memory.
type Memory struct {
	Min, Max uint32
	HasMax   bool
	// Is64 is true for memory64, in which addresses are i64.
	Is64 bool
}

// GlobalType is the element type and mutability of a global.
type GlobalType struct {
	ValType ValueType
	Mutable bool
}

// ConstantExpression is a constant initializer expression, e.g. for a
// Global or as the base-offset expression of an active DataSegment /
// ElementSegment. The core only needs the fully-evaluated constant, not
// general expression evaluation (that belongs to the front-end parser),
// so Value holds the already-evaluated i32/i64 result.
type ConstantExpression struct {
	// Opcode is the single opcode forming the expression body
	// (OpcodeI32Const, OpcodeI64Const, OpcodeGlobalGet, ...).
	Opcode Opcode
	// Value holds the evaluated constant for const-typed expressions.
	Value uint64
	// GlobalIndex holds the referenced global for OpcodeGlobalGet expressions.
	GlobalIndex Index
}

// Global is one module-defined global with its constant initializer.
type Global struct {
	Type GlobalType
	Init ConstantExpression
}

// Export describes one exported func/table/memory/global.
type Export struct {
	Type  ExternType
	Name  string
	Index Index
}

// Code is a function's locals declaration and instruction bytes, as found
// in the Code section, index-correlated with FunctionSection.
type Code struct {
	// LocalTypes are the function-scoped locals in declaration order,
	// beyond the function's own parameters.
	LocalTypes []ValueType
	// Body is the raw instruction byte stream, terminated by OpcodeEnd.
	Body []byte
}

// DataSegment is one entry of the Data section.
type DataSegment struct {
	// Passive segments have no implicit base offset; they are only used by
	// memory.init (bulk-memory), which is out of scope for this core.
	Passive bool
	// MemoryIndex is always 0 for the single-memory modules this core
	// supports.
	MemoryIndex Index
	// OffsetExpression is the active segment's base-offset expression.
	OffsetExpression ConstantExpression
	Init             []byte
}

// ElementSegment is one entry of the Element section, populating a
// Table with function indices (sandboxed mode) or relocatable function
// pointers (no-sandbox mode).
type ElementSegment struct {
	Passive          bool
	TableIndex       Index
	OffsetExpression ConstantExpression
	// Init is the sequence of function indices this segment installs,
	// starting at OffsetExpression's evaluated value.
	Init []Index
}

// CustomSection is an unrecognized or linker-specific custom section kept
// verbatim; the core only reads CustomSections named "linking",
// "reloc.CODE", "reloc.DATA" or "name" via the dedicated fields on Module.
type CustomSection struct {
	Name string
	Data []byte
}

// Module is the already-parsed, already-validated WebAssembly module this
// core compiles. It is produced by an external binary parser; this
// package only defines its shape.
type Module struct {
	TypeSection    []FunctionType
	ImportSection  []Import
	FunctionSection []Index // TypeSection index per module-defined function.
	TableSection   []Table
	MemorySection  []Memory
	GlobalSection  []Global
	ExportSection  []Export
	StartSection   *Index
	ElementSection []ElementSegment
	CodeSection    []Code
	DataSection    []DataSegment
	CustomSections []CustomSection

	// ImportFunctionCount/ImportTableCount/ImportMemoryCount/
	// ImportGlobalCount cache how many entries of each index space are
	// imports, since Wasm index spaces interleave imports before
	// module-defined entries.
	ImportFunctionCount Index
	ImportTableCount    Index
	ImportMemoryCount   Index
	ImportGlobalCount   Index

	// NoSandbox mode only: the relocation tables and symbol table
	// populated from the "reloc.CODE"/"reloc.DATA"/"linking" custom
	// sections by the external linker-aware parser.
	RelocationsCode []Relocation
	RelocationsData []Relocation
	Symbols         []Symbol

	// DataSegmentBaseOffsets is filled in by the front-end parser (or by
	// Module Assembly, for wholly-active layouts) with the resolved
	// linear-memory base offset of each DataSection entry; relocation
	// resolution (dataRelocAddress in internal/frontend/strategy.go) adds DataSegmentBaseOffsets[seg] +
	// sym.DataOffset + addend.
	DataSegmentBaseOffsets []uint64
}

// TypeIndexOfFunction returns the TypeSection index of the given function
// index (imports first, then module-defined functions), or false if out
// of range.
func (m *Module) TypeIndexOfFunction(funcIdx Index) (Index, bool) {
	if funcIdx < m.ImportFunctionCount {
		var seen Index
		for i := range m.ImportSection {
			imp := &m.ImportSection[i]
			if imp.Type != ExternTypeFunc {
				continue
			}
			if seen == funcIdx {
				return imp.DescFunc, true
			}
			seen++
		}
		return 0, false
	}
	idx := funcIdx - m.ImportFunctionCount
	if idx >= Index(len(m.FunctionSection)) {
		return 0, false
	}
	return m.FunctionSection[idx], true
}

// FunctionTypeOf is a convenience wrapper around TypeIndexOfFunction that
// dereferences into TypeSection.
func (m *Module) FunctionTypeOf(funcIdx Index) (*FunctionType, bool) {
	idx, ok := m.TypeIndexOfFunction(funcIdx)
	if !ok || int(idx) >= len(m.TypeSection) {
		return nil, false
	}
	return &m.TypeSection[idx], true
}

// CanonicalTypeIndex returns the smallest TypeSection index whose type
// Equals TypeSection[i]; see spec.md's "canonical type index" and
// FunctionType's doc comment.
func (m *Module) CanonicalTypeIndex(i Index) Index {
	target := &m.TypeSection[i]
	for j := Index(0); j < i; j++ {
		if m.TypeSection[j].Equal(target) {
			return j
		}
	}
	return i
}

// WellKnownGlobal identifies one of the auxiliary globals the compiler
// recognizes by export name (spec.md section 3).
type WellKnownGlobal int

const (
	WellKnownGlobalNone WellKnownGlobal = iota
	WellKnownGlobalDataEnd
	WellKnownGlobalHeapBase
	WellKnownGlobalAuxStackTop
)

// WellKnownGlobalOf inspects the Export section for the well-known aux
// globals recognized by name.
func (m *Module) WellKnownGlobalOf(globalIdx Index) WellKnownGlobal {
	for i := range m.ExportSection {
		exp := &m.ExportSection[i]
		if exp.Type != ExternTypeGlobal || exp.Index != globalIdx {
			continue
		}
		switch exp.Name {
		case "__data_end":
			return WellKnownGlobalDataEnd
		case "__heap_base":
			return WellKnownGlobalHeapBase
		case "__aux_stack_top", "__stack_pointer":
			return WellKnownGlobalAuxStackTop
		}
	}
	return WellKnownGlobalNone
}

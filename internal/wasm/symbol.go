package wasm

// SymbolKind classifies a linker Symbol, following the tool-conventions
// Linking document's symbol kinds (spec.md section 3).
type SymbolKind byte

const (
	SymbolKindFunction SymbolKind = iota + 1
	SymbolKindData
	SymbolKindGlobal
	SymbolKindSection
	SymbolKindTag
	SymbolKindTable
)

// DataSymbol is the extra payload a Data-kind Symbol carries.
type DataSymbol struct {
	SegmentIndex Index
	// DataOffset is the byte offset of the symbol within its segment.
	DataOffset uint32
	Size       uint32
}

// Symbol is one entry of the no-sandbox linker symbol table.
type Symbol struct {
	Kind SymbolKind
	Name string
	// Index is the referenced function/global/table index when Kind is
	// Function/Global/Table.
	Index Index
	// Data is populated when Kind == SymbolKindData.
	Data DataSymbol
	// Defined is false for symbols resolved against an import rather than
	// a module-local definition.
	Defined bool
}

// RelocationKind identifies the shape of one relocated constant or
// indirect-call site, following the tool-conventions Linking document.
type RelocationKind byte

const (
	// RelocMemoryAddrLEB is a ULEB128-encoded address-bearing constant.
	RelocMemoryAddrLEB RelocationKind = iota + 1
	// RelocMemoryAddrSLEB is a SLEB128-encoded address-bearing constant.
	RelocMemoryAddrSLEB
	// RelocMemoryAddrI32 is a raw little-endian 32-bit address constant.
	RelocMemoryAddrI32
	// RelocMemoryAddrSLEB64/RelocMemoryAddrI64 are the 64-bit companions,
	// used by memory64 modules and the `i64.const` sites spec.md section
	// 4.5 describes.
	RelocMemoryAddrSLEB64
	RelocMemoryAddrI64
	// RelocTableIndexSLEB/RelocTableIndexI32 are table-index (function
	// pointer) constants.
	RelocTableIndexSLEB
	RelocTableIndexI32
	// RelocTableIndexSLEB64/RelocTableIndexI64 are their 64-bit companions.
	RelocTableIndexSLEB64
	RelocTableIndexI64
	// RelocTypeIndexLEB relocates a call_indirect's encoded type index.
	RelocTypeIndexLEB
	// RelocFunctionIndexLEB relocates a direct call's encoded callee index.
	RelocFunctionIndexLEB
)

// Relocation is one entry of reloc.CODE or reloc.DATA: it says that the
// bytes at Offset (within the Code or Data section, respectively) encode
// a constant or index that must be rewritten to refer to SymbolIndex,
// plus Addend.
type Relocation struct {
	Kind        RelocationKind
	Offset      uint32
	SymbolIndex Index
	Addend      int64
}

// IsMemoryAddress reports whether this relocation kind rewrites an
// address-bearing constant (as opposed to a table index or type index).
func (k RelocationKind) IsMemoryAddress() bool {
	switch k {
	case RelocMemoryAddrLEB, RelocMemoryAddrSLEB, RelocMemoryAddrI32,
		RelocMemoryAddrSLEB64, RelocMemoryAddrI64:
		return true
	default:
		return false
	}
}

// IsTableIndex reports whether this relocation kind rewrites a table
// index / function pointer constant.
func (k RelocationKind) IsTableIndex() bool {
	switch k {
	case RelocTableIndexSLEB, RelocTableIndexI32, RelocTableIndexSLEB64, RelocTableIndexI64:
		return true
	default:
		return false
	}
}

// RelocationAt returns the relocation covering the given code-section
// byte offset, if any. Relocations are assumed sorted by Offset, matching
// how reloc.CODE is encoded; this is a linear scan since a function body
// carries only a handful of relocated sites.
func RelocationAt(relocs []Relocation, offset uint32) (Relocation, bool) {
	for _, r := range relocs {
		if r.Offset == offset {
			return r, true
		}
	}
	return Relocation{}, false
}

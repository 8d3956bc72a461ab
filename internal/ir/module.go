package ir

// GlobalInit is a module-level global's initial value, already reduced to
// a flat bit pattern by the backend's Module Assembly stage
// (Assembler.evalConstExpr); a global.get initializer is not resolved and
// is recorded as 0.
type GlobalInit struct {
	Name    string
	Type    Type
	Bits    uint64
	Mutable bool
}

// DataInit is one data segment lowered to its IR-level placement: either
// a fixed byte offset into the linear memory image (sandboxed mode, or
// no-sandbox mode for bulk-owned segments) or left for relocation
// processing to patch in a pointer constant.
type DataInit struct {
	Name   string
	Bytes  []byte
	Offset uint64
}

// TableInit mirrors one active element segment's resolved function
// pointers/indices, already ordered by table slot.
type TableInit struct {
	TableIndex uint32
	Offset     uint64
	FuncIndexes []uint32
}

// Module is the whole AOT unit: every defined function lowered to IR plus
// the module-level state the backend's Module Assembly stage (section
// 4.11) consumes to emit globals, tables, and data.
type Module struct {
	Name string

	Funcs   []*Func
	Globals []GlobalInit
	Data    []DataInit
	Tables  []TableInit

	// ImportedFuncNames/ExportedFuncNames record which funcs need an
	// import thunk or an export wrapper in the backend's assembly stage.
	ImportedFuncNames []string
	ExportedFuncNames map[string]string // func name -> export name

	// NoSandbox reports which lowering strategy produced this module;
	// purely informational for the textual emitter's header comment.
	NoSandbox bool
}

// NewModule allocates an empty Module.
func NewModule(name string) *Module {
	return &Module{Name: name, ExportedFuncNames: map[string]string{}}
}

// AddFunc appends a completed Func to the module.
func (m *Module) AddFunc(f *Func) { m.Funcs = append(m.Funcs, f) }

// FuncByName looks up a function by its IR name, used by the backend's
// Module Assembly stage (assembleImportsExports) to match exports to
// lowered functions.
func (m *Module) FuncByName(name string) (*Func, bool) {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

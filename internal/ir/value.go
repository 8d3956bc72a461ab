package ir

import "fmt"

// Value identifies the result of an Instruction (SSA-style: every Value
// has exactly one defining Instruction). The zero Value is invalid.
type Value struct {
	id  int
	typ Type
}

// Valid reports whether v refers to a real instruction result.
func (v Value) Valid() bool {
	return v.id != 0
}

// Type returns the value's IR type.
func (v Value) Type() Type {
	return v.typ
}

// String implements fmt.Stringer, formatting the value the way the
// textual emitter refers to it (e.g. "%v12").
func (v Value) String() string {
	if !v.Valid() {
		return "<invalid>"
	}
	return fmt.Sprintf("%%v%d", v.id)
}

// Signature is a function's IR-level parameter/result type list. The
// frontend always prepends two pointer-typed parameters (execution
// context, module context) ahead of the Wasm-level parameters; see
// the frontend's compileFunction.
type Signature struct {
	Params  []Type
	Results []Type
}

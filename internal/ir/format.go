package ir

import (
	"fmt"
	"strings"
)

// WriteText renders m as human-readable, LLVM-flavored IR text. It is not
// a validated .ll file the real LLVM textual parser would necessarily
// accept (this core never links against LLVM; see internal/backend for
// the --format=llvmir-unopt boundary) but it is close enough to LLVM's
// surface syntax to be useful for diffing and golden-file testing.
func (m *Module) WriteText() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; module %q\n", m.Name)
	if m.NoSandbox {
		sb.WriteString("; lowering: no-sandbox\n")
	} else {
		sb.WriteString("; lowering: sandboxed\n")
	}
	for _, g := range m.Globals {
		mut := "constant"
		if g.Mutable {
			mut = "global"
		}
		fmt.Fprintf(&sb, "@%s = %s %s %d\n", g.Name, mut, g.Type, g.Bits)
	}
	for _, d := range m.Data {
		fmt.Fprintf(&sb, "@%s = internal constant [%d x i8] ; offset=%d\n", d.Name, len(d.Bytes), d.Offset)
	}
	for _, t := range m.Tables {
		fmt.Fprintf(&sb, "; table[%d] offset=%d elems=%v\n", t.TableIndex, t.Offset, t.FuncIndexes)
	}
	for _, f := range m.Funcs {
		f.writeText(&sb)
	}
	return sb.String()
}

func (f *Func) writeText(sb *strings.Builder) {
	fmt.Fprintf(sb, "define %s @%s(", f.Sig.resultsText(), f.Name)
	for i, p := range f.Sig.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%s %%a%d", p, i)
	}
	sb.WriteString(") {\n")
	for _, blk := range f.blocks {
		blk.writeText(sb, blk == f.entryBlock)
	}
	sb.WriteString("}\n")
}

func (s *Signature) resultsText() string {
	switch len(s.Results) {
	case 0:
		return "void"
	case 1:
		return s.Results[0].String()
	default:
		parts := make([]string, len(s.Results))
		for i, r := range s.Results {
			parts[i] = r.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
}

func (b *BasicBlock) writeText(sb *strings.Builder, isEntry bool) {
	fmt.Fprintf(sb, "block%d:\n", b.id)
	if !isEntry {
		for p, param := range b.params {
			values, preds := b.IncomingFor(p)
			fmt.Fprintf(sb, "  %s = phi %s ", param, param.Type())
			for i := range values {
				if i > 0 {
					sb.WriteString(", ")
				}
				fmt.Fprintf(sb, "[ %s, %%block%d ]", values[i], preds[i].id)
			}
			sb.WriteString("\n")
		}
	}
	for _, instr := range b.instructions {
		instr.writeText(sb)
	}
}

func (i *Instruction) writeText(sb *strings.Builder) {
	sb.WriteString("  ")
	if i.result.Valid() {
		fmt.Fprintf(sb, "%s = ", i.result)
	}
	fmt.Fprintf(sb, "%s", i.opcode.mnemonic())
	for _, a := range i.args {
		fmt.Fprintf(sb, " %s", a)
	}
	switch i.opcode {
	case OpIconst32, OpIconst64, OpF32const, OpF64const:
		fmt.Fprintf(sb, " %d", i.imm)
	case OpJump:
		fmt.Fprintf(sb, " %%block%d(%s)", i.blockTargets[0].id, valuesText(i.blockArgs[0]))
	case OpBrz, OpBrnz:
		fmt.Fprintf(sb, ", %%block%d(%s)", i.blockTargets[0].id, valuesText(i.blockArgs[0]))
	case OpBrTable:
		for _, t := range i.blockTargets {
			fmt.Fprintf(sb, " %%block%d", t.id)
		}
	case OpCall:
		fmt.Fprintf(sb, " @%s(%s)", i.calleeFunc, valuesText(i.callArgs))
	case OpCallIndirect:
		fmt.Fprintf(sb, " %s(%s)", i.calleePtr, valuesText(i.callArgs))
	case OpExitWithCode, OpExitIfTrueWithCode:
		fmt.Fprintf(sb, ", code=%d", i.imm)
	}
	sb.WriteString("\n")
}

func valuesText(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func (o Opcode) mnemonic() string {
	if m, ok := opcodeMnemonics[o]; ok {
		return m
	}
	return "op?"
}

var opcodeMnemonics = map[Opcode]string{
	OpIconst32: "iconst32", OpIconst64: "iconst64",
	OpF32const: "f32const", OpF64const: "f64const", OpVconst: "vconst",
	OpIadd: "add", OpIsub: "sub", OpImul: "mul",
	OpSDiv: "sdiv", OpUDiv: "udiv", OpSRem: "srem", OpURem: "urem",
	OpFadd: "fadd", OpFsub: "fsub", OpFmul: "fmul", OpFdiv: "fdiv",
	OpFmin: "fmin", OpFmax: "fmax", OpFabs: "fabs", OpFneg: "fneg",
	OpFcopysign: "fcopysign", OpFsqrt: "fsqrt", OpFceil: "fceil",
	OpFfloor: "ffloor", OpFtrunc: "ftrunc", OpFnearest: "fnearest",
	OpBand: "and", OpBor: "or", OpBxor: "xor", OpBnot: "not",
	OpIshl: "shl", OpUshr: "lshr", OpSshr: "ashr", OpRotl: "rotl", OpRotr: "rotr",
	OpClz: "clz", OpCtz: "ctz", OpPopcnt: "popcnt",
	OpIcmp: "icmp", OpFcmp: "fcmp",
	OpSExtend: "sext", OpUExtend: "zext", OpIreduce: "trunc",
	OpFcvtFromInt: "sitofp", OpFcvtToInt: "fptosi", OpFcvtToIntSat: "fptosi.sat",
	OpFdemote: "fptrunc", OpFpromote: "fpext",
	OpBitcast: "bitcast", OpReinterpret: "reinterpret",
	OpAlloca: "alloca", OpLoad: "load", OpStore: "store", OpGEP: "getelementptr",
	OpPtrToInt: "ptrtoint", OpIntToPtr: "inttoptr",
	OpJump: "br", OpBrz: "br.z", OpBrnz: "br.nz", OpBrTable: "switch",
	OpReturn: "ret", OpUnreachable: "unreachable",
	OpExitWithCode: "exit", OpExitIfTrueWithCode: "exit.if",
	OpCheckPendingException: "check.exception",
	OpCall: "call", OpCallIndirect: "call.indirect",
	OpVIadd: "vadd", OpVIsub: "vsub", OpVImul: "vmul",
}

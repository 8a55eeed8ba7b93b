package bytecode

import (
	"fmt"
	"sort"
	"strings"
)

// Disassemble returns a human-readable listing of the program.
func (p *Program) Disassemble() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("; === %s ===\n", p.File))
	sb.WriteString(fmt.Sprintf("; CFGS Bytecode v%d, %d instructions\n", ImageVersion, len(p.Code)))

	if len(p.Enums) > 0 {
		sb.WriteString("; Enums:\n")
		for _, name := range sortedKeys(p.Enums) {
			sb.WriteString(fmt.Sprintf(";   %s { %s }\n", name, strings.Join(p.Enums[name], ", ")))
		}
	}

	if len(p.Classes) > 0 {
		sb.WriteString("; Classes:\n")
		for _, name := range sortedKeys(p.Classes) {
			c := p.Classes[name]
			header := c.Name
			if c.Base != "" {
				header += " : " + c.Base
			}
			sb.WriteString(fmt.Sprintf(";   %s\n", header))
			if len(c.Fields) > 0 {
				sb.WriteString(fmt.Sprintf(";     fields:  %s\n", strings.Join(c.Fields, ", ")))
			}
			if len(c.Statics) > 0 {
				sb.WriteString(fmt.Sprintf(";     statics: %s\n", strings.Join(c.Statics, ", ")))
			}
			for _, m := range sortedKeys(c.Methods) {
				sb.WriteString(fmt.Sprintf(";     method %s -> %s\n", m, c.Methods[m]))
			}
			for _, m := range sortedKeys(c.StaticMethods) {
				sb.WriteString(fmt.Sprintf(";     static %s -> %s\n", m, c.StaticMethods[m]))
			}
		}
	}
	sb.WriteString("\n")

	entries := make(map[int][]string)
	for _, name := range p.FunctionNames() {
		fn := p.Functions[name]
		entries[fn.Address] = append(entries[fn.Address], name)
	}

	for i := range p.Code {
		for _, name := range entries[i] {
			fn := p.Functions[name]
			sb.WriteString(fmt.Sprintf("\n%s(%s):\n", name, strings.Join(fn.Params, ", ")))
		}
		sb.WriteString(p.DisassembleInstruction(i))
		sb.WriteString("\n")
	}

	return sb.String()
}

// DisassembleInstruction formats the instruction at addr on one line.
func (p *Program) DisassembleInstruction(addr int) string {
	if addr < 0 || addr >= len(p.Code) {
		return fmt.Sprintf("%04X  <out of range>", addr)
	}
	ins := p.Code[addr]
	info := GetOpcodeInfo(ins.Op)

	var operand string
	o := ins.Operand
	switch info.Operand {
	case OperandLit:
		operand = o.Lit.String()
	case OperandName:
		operand = o.Name
	case OperandTarget:
		operand = fmt.Sprintf("-> %04X", o.Int)
	case OperandCount:
		operand = fmt.Sprintf("%d", o.Int)
	case OperandNameCount:
		operand = fmt.Sprintf("%s/%d", o.Name, o.Int)
	case OperandLeave:
		operand = fmt.Sprintf("-> %04X scopes=%d", o.Int, o.Int2)
	case OperandTry:
		operand = fmt.Sprintf("catch=%s finally=%s", addrOrDash(o.Int), addrOrDash(o.Int2))
	case OperandQualified:
		operand = o.Name + "." + o.Member
	}

	line := fmt.Sprintf("%04X  %-14s %s", addr, info.Name, operand)
	if ins.Line > 0 {
		line = fmt.Sprintf("%-44s ; %d:%d", line, ins.Line, ins.Col)
	}
	return strings.TrimRight(line, " ")
}

func addrOrDash(a int64) string {
	if a < 0 {
		return "-"
	}
	return fmt.Sprintf("%04X", a)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

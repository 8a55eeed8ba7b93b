package bytecode

import "fmt"

// Builder assembles a Program with symbolic labels. Jump, LEAVE and TRY_PUSH
// operands name labels; Build resolves them to instruction addresses.
//
// The zero value is not usable; call NewBuilder.
type Builder struct {
	prog   *Program
	file   string
	line   int
	col    int
	labels map[string]int
	fixups []fixup
	err    error
}

type fixup struct {
	at     int
	label  string
	second bool // patch Operand.Int2 instead of Operand.Int
}

// NewBuilder starts an empty program attributed to file.
func NewBuilder(file string) *Builder {
	return &Builder{
		prog: &Program{
			File:      file,
			Functions: make(map[string]Function),
			Classes:   make(map[string]ClassInfo),
			Enums:     make(map[string][]string),
		},
		file:   file,
		labels: make(map[string]int),
	}
}

// At sets the source position stamped on subsequently emitted instructions.
func (b *Builder) At(line, col int) *Builder {
	b.line, b.col = line, col
	return b
}

// Len returns the address the next instruction will get.
func (b *Builder) Len() int { return len(b.prog.Code) }

func (b *Builder) emit(op Opcode, operand Operand) int {
	b.prog.Code = append(b.prog.Code, Instruction{
		Op:      op,
		Operand: operand,
		Line:    b.line,
		Col:     b.col,
		File:    b.file,
	})
	return len(b.prog.Code) - 1
}

// Emit appends an instruction without operands.
func (b *Builder) Emit(op Opcode) int {
	return b.emit(op, Operand{})
}

// EmitInt appends an instruction with a count operand (MAKE_ARRAY,
// MAKE_DICT, CALL_INDIRECT).
func (b *Builder) EmitInt(op Opcode, n int) int {
	return b.emit(op, Operand{Int: int64(n)})
}

// EmitName appends an instruction with a name operand.
func (b *Builder) EmitName(op Opcode, name string) int {
	return b.emit(op, Operand{Name: name})
}

// EmitCall appends CALL or CALL_METHOD.
func (b *Builder) EmitCall(op Opcode, name string, argc int) int {
	return b.emit(op, Operand{Name: name, Int: int64(argc)})
}

// EmitConst appends PUSH_CONST.
func (b *Builder) EmitConst(lit *Literal) int {
	return b.emit(OpPushConst, Operand{Lit: lit})
}

// EmitStatic appends LOAD_STATIC or STORE_STATIC.
func (b *Builder) EmitStatic(op Opcode, class, member string) int {
	return b.emit(op, Operand{Name: class, Member: member})
}

// Label binds name to the next instruction address.
func (b *Builder) Label(name string) *Builder {
	if _, dup := b.labels[name]; dup && b.err == nil {
		b.err = fmt.Errorf("bytecode: label %q defined twice", name)
	}
	b.labels[name] = len(b.prog.Code)
	return b
}

// Jump appends JUMP, JUMP_IF_FALSE or JUMP_IF_TRUE targeting label.
func (b *Builder) Jump(op Opcode, label string) int {
	at := b.emit(op, Operand{})
	b.fixups = append(b.fixups, fixup{at: at, label: label})
	return at
}

// Leave appends a LEAVE that pops scopes scopes and continues at label.
func (b *Builder) Leave(label string, scopes int) int {
	at := b.emit(OpLeave, Operand{Int2: int64(scopes)})
	b.fixups = append(b.fixups, fixup{at: at, label: label})
	return at
}

// TryPush appends TRY_PUSH. An empty label means the region has no catch
// (or no finally).
func (b *Builder) TryPush(catchLabel, finallyLabel string) int {
	at := b.emit(OpTryPush, Operand{Int: -1, Int2: -1})
	if catchLabel != "" {
		b.fixups = append(b.fixups, fixup{at: at, label: catchLabel})
	}
	if finallyLabel != "" {
		b.fixups = append(b.fixups, fixup{at: at, label: finallyLabel, second: true})
	}
	return at
}

// Function registers a function whose body starts at the next instruction.
// The function name is also usable as a label.
func (b *Builder) Function(name string, params ...string) *Builder {
	if _, dup := b.prog.Functions[name]; dup && b.err == nil {
		b.err = fmt.Errorf("bytecode: function %q defined twice", name)
	}
	b.prog.Functions[name] = Function{Name: name, Address: len(b.prog.Code), Params: params}
	return b.Label(name)
}

// Class registers a class declaration.
func (b *Builder) Class(info ClassInfo) *Builder {
	b.prog.Classes[info.Name] = info
	return b
}

// Enum registers an enum with its members in ordinal order.
func (b *Builder) Enum(name string, members ...string) *Builder {
	b.prog.Enums[name] = members
	return b
}

// Build resolves labels and returns the program.
func (b *Builder) Build() (*Program, error) {
	if b.err != nil {
		return nil, b.err
	}
	for _, f := range b.fixups {
		addr, ok := b.labels[f.label]
		if !ok {
			return nil, fmt.Errorf("bytecode: undefined label %q at instruction %d", f.label, f.at)
		}
		if f.second {
			b.prog.Code[f.at].Operand.Int2 = int64(addr)
		} else {
			b.prog.Code[f.at].Operand.Int = int64(addr)
		}
	}
	return b.prog, nil
}

// MustBuild is Build for tests and static program literals.
func (b *Builder) MustBuild() *Program {
	p, err := b.Build()
	if err != nil {
		panic(err)
	}
	return p
}

package bytecode

import (
	"fmt"
	"sort"
	"strconv"
)

// LiteralKind tags the constant carried by PUSH_CONST.
type LiteralKind uint8

const (
	LitNull LiteralKind = iota
	LitBool
	LitInt64
	LitInt32
	LitFloat32
	LitFloat64
	LitDecimal // Str holds the decimal text
	LitString
	LitChar // Int holds the code point
)

var literalKindNames = [...]string{
	LitNull:    "null",
	LitBool:    "bool",
	LitInt64:   "int",
	LitInt32:   "int32",
	LitFloat32: "float32",
	LitFloat64: "float",
	LitDecimal: "decimal",
	LitString:  "str",
	LitChar:    "char",
}

func (k LiteralKind) String() string {
	if int(k) < len(literalKindNames) {
		return literalKindNames[k]
	}
	return fmt.Sprintf("literal(%d)", uint8(k))
}

// Literal is a compile-time constant.
type Literal struct {
	Kind  LiteralKind `cbor:"1,keyasint"`
	Int   int64       `cbor:"2,keyasint,omitempty"`
	Float float64     `cbor:"3,keyasint,omitempty"`
	Str   string      `cbor:"4,keyasint,omitempty"`
}

func Null() *Literal             { return &Literal{Kind: LitNull} }
func Int(v int64) *Literal       { return &Literal{Kind: LitInt64, Int: v} }
func Int32(v int32) *Literal     { return &Literal{Kind: LitInt32, Int: int64(v)} }
func Float(v float64) *Literal   { return &Literal{Kind: LitFloat64, Float: v} }
func Float32(v float32) *Literal { return &Literal{Kind: LitFloat32, Float: float64(v)} }
func Str(v string) *Literal      { return &Literal{Kind: LitString, Str: v} }
func Char(r rune) *Literal       { return &Literal{Kind: LitChar, Int: int64(r)} }
func Decimal(text string) *Literal {
	return &Literal{Kind: LitDecimal, Str: text}
}

func Bool(v bool) *Literal {
	l := &Literal{Kind: LitBool}
	if v {
		l.Int = 1
	}
	return l
}

// String renders the literal the way the disassembler prints it.
func (l *Literal) String() string {
	if l == nil {
		return "<nil>"
	}
	switch l.Kind {
	case LitNull:
		return "null"
	case LitBool:
		return strconv.FormatBool(l.Int != 0)
	case LitInt64:
		return strconv.FormatInt(l.Int, 10)
	case LitInt32:
		return strconv.FormatInt(l.Int, 10) + "i32"
	case LitFloat32:
		return strconv.FormatFloat(l.Float, 'g', -1, 32) + "f32"
	case LitFloat64:
		return strconv.FormatFloat(l.Float, 'g', -1, 64)
	case LitDecimal:
		return l.Str + "m"
	case LitString:
		return strconv.Quote(l.Str)
	case LitChar:
		return strconv.QuoteRune(rune(l.Int))
	}
	return l.Kind.String()
}

// Operand holds the immediate arguments of an instruction. Which fields are
// meaningful depends on the opcode; see OpcodeInfo.Operand.
type Operand struct {
	Int    int64    `cbor:"1,keyasint,omitempty"`
	Int2   int64    `cbor:"2,keyasint,omitempty"`
	Name   string   `cbor:"3,keyasint,omitempty"`
	Member string   `cbor:"4,keyasint,omitempty"`
	Lit    *Literal `cbor:"5,keyasint,omitempty"`
}

// Instruction is one entry of the flat instruction stream.
type Instruction struct {
	Op      Opcode  `cbor:"1,keyasint"`
	Operand Operand `cbor:"2,keyasint"`
	Line    int     `cbor:"3,keyasint,omitempty"`
	Col     int     `cbor:"4,keyasint,omitempty"`
	File    string  `cbor:"5,keyasint,omitempty"`
}

// Function is an entry of the function table.
type Function struct {
	Name    string   `cbor:"1,keyasint"`
	Address int      `cbor:"2,keyasint"`
	Params  []string `cbor:"3,keyasint,omitempty"`
}

// ClassInfo describes a class declaration. Methods and StaticMethods map a
// member name to a function-table name.
type ClassInfo struct {
	Name          string            `cbor:"1,keyasint"`
	Base          string            `cbor:"2,keyasint,omitempty"`
	Fields        []string          `cbor:"3,keyasint,omitempty"`
	Statics       []string          `cbor:"4,keyasint,omitempty"`
	Methods       map[string]string `cbor:"5,keyasint,omitempty"`
	StaticMethods map[string]string `cbor:"6,keyasint,omitempty"`
}

// Program is the unit handed from the compiler to the interpreter.
type Program struct {
	File      string               `cbor:"1,keyasint,omitempty"`
	Code      []Instruction        `cbor:"2,keyasint"`
	Functions map[string]Function  `cbor:"3,keyasint,omitempty"`
	Classes   map[string]ClassInfo `cbor:"4,keyasint,omitempty"`
	Enums     map[string][]string  `cbor:"5,keyasint,omitempty"`
}

// FunctionNames returns the function table's names sorted by address.
func (p *Program) FunctionNames() []string {
	names := make([]string, 0, len(p.Functions))
	for name := range p.Functions {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := p.Functions[names[i]], p.Functions[names[j]]
		if a.Address != b.Address {
			return a.Address < b.Address
		}
		return names[i] < names[j]
	})
	return names
}

// Validate performs the structural checks a loader can make cheaply: known
// opcodes, jump targets and function addresses inside the code, and class
// bases that exist. It is not a verifier.
func (p *Program) Validate() error {
	n := int64(len(p.Code))
	for i, ins := range p.Code {
		if !ins.Op.Valid() {
			return fmt.Errorf("instruction %d: unknown opcode 0x%02X", i, byte(ins.Op))
		}
		if ins.Op.IsJump() && (ins.Operand.Int < 0 || ins.Operand.Int > n) {
			return fmt.Errorf("instruction %d: %s target %d out of range", i, ins.Op, ins.Operand.Int)
		}
		if ins.Op == OpTryPush {
			if ins.Operand.Int >= n || ins.Operand.Int2 >= n {
				return fmt.Errorf("instruction %d: TRY_PUSH handler out of range", i)
			}
			if ins.Operand.Int < 0 && ins.Operand.Int2 < 0 {
				return fmt.Errorf("instruction %d: TRY_PUSH without catch or finally", i)
			}
		}
		if ins.Op == OpPushConst && ins.Operand.Lit == nil {
			return fmt.Errorf("instruction %d: PUSH_CONST without literal", i)
		}
	}
	for name, fn := range p.Functions {
		if fn.Address < 0 || int64(fn.Address) >= n {
			return fmt.Errorf("function %s: address %d out of range", name, fn.Address)
		}
	}
	for name, cls := range p.Classes {
		if cls.Base != "" {
			if _, ok := p.Classes[cls.Base]; !ok {
				return fmt.Errorf("class %s: unknown base class %s", name, cls.Base)
			}
			seen := map[string]bool{name: true}
			for b := cls.Base; b != ""; b = p.Classes[b].Base {
				if seen[b] {
					return fmt.Errorf("class %s: inheritance cycle through %s", name, b)
				}
				seen[b] = true
			}
		}
		for _, table := range []map[string]string{cls.Methods, cls.StaticMethods} {
			for member, fn := range table {
				if _, ok := p.Functions[fn]; !ok {
					return fmt.Errorf("class %s: method %s refers to unknown function %s", name, member, fn)
				}
			}
		}
	}
	return nil
}

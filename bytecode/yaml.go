package bytecode

import (
	"fmt"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// yamlProgram is the human-writable program listing. Addresses are symbolic:
// jump targets, handlers and function entries all name labels.
//
//	file: demo.cfgs
//	enums:
//	  Color: [Red, Green]
//	classes:
//	  - name: Point
//	    fields: [x, y]
//	    methods: {norm: Point.norm}
//	code:
//	  - {op: CALL, name: main, n: 0}
//	  - {op: HALT}
//	  - {function: main}
//	  - {op: PUSH_CONST, str: "hi", line: 2}
//	  - {op: PRINT}
type yamlProgram struct {
	File    string              `yaml:"file"`
	Enums   map[string][]string `yaml:"enums"`
	Classes []yamlClass         `yaml:"classes"`
	Code    []yamlEntry         `yaml:"code"`
}

type yamlClass struct {
	Name          string            `yaml:"name"`
	Base          string            `yaml:"base"`
	Fields        []string          `yaml:"fields"`
	Statics       []string          `yaml:"statics"`
	Methods       map[string]string `yaml:"methods"`
	StaticMethods map[string]string `yaml:"static_methods"`
}

type yamlEntry struct {
	Op       string   `yaml:"op"`
	Label    string   `yaml:"label"`
	Function string   `yaml:"function"`
	Params   []string `yaml:"params"`

	To      string `yaml:"to"`
	Catch   string `yaml:"catch"`
	Finally string `yaml:"finally"`
	Scopes  int    `yaml:"scopes"`
	N       int    `yaml:"n"`
	Name    string `yaml:"name"`
	Member  string `yaml:"member"`

	Int     *int64   `yaml:"int"`
	Int32   *int32   `yaml:"int32"`
	Float   *float64 `yaml:"float"`
	Float32 *float32 `yaml:"float32"`
	Str     *string  `yaml:"str"`
	Char    *string  `yaml:"char"`
	Bool    *bool    `yaml:"bool"`
	Decimal *string  `yaml:"decimal"`
	Nil     bool     `yaml:"nil"`

	Line int `yaml:"line"`
	Col  int `yaml:"col"`
}

// ParseYAML assembles a program from a YAML listing. name is used in error
// messages and as the default source file.
func ParseYAML(data []byte, name string) (*Program, error) {
	var src yamlProgram
	if err := yaml.Unmarshal(data, &src); err != nil {
		return nil, fmt.Errorf("bytecode: cannot parse %s: %w", name, err)
	}
	file := src.File
	if file == "" {
		file = name
	}

	b := NewBuilder(file)
	for enum, members := range src.Enums {
		b.Enum(enum, members...)
	}
	for _, c := range src.Classes {
		b.Class(ClassInfo{
			Name:          c.Name,
			Base:          c.Base,
			Fields:        c.Fields,
			Statics:       c.Statics,
			Methods:       c.Methods,
			StaticMethods: c.StaticMethods,
		})
	}
	for i, e := range src.Code {
		if err := assembleEntry(b, e); err != nil {
			return nil, fmt.Errorf("bytecode: %s: entry %d: %w", name, i, err)
		}
	}

	p, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("%w (in %s)", err, name)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("bytecode: %s: %w", name, err)
	}
	return p, nil
}

func assembleEntry(b *Builder, e yamlEntry) error {
	if e.Line != 0 || e.Col != 0 {
		b.At(e.Line, e.Col)
	}
	if e.Function != "" {
		b.Function(e.Function, e.Params...)
	}
	if e.Label != "" {
		b.Label(e.Label)
	}
	if e.Op == "" {
		if e.Function == "" && e.Label == "" {
			return fmt.Errorf("entry has no op, label or function")
		}
		return nil
	}

	op, ok := ParseOpcode(e.Op)
	if !ok {
		return fmt.Errorf("unknown opcode %q", e.Op)
	}
	switch GetOpcodeInfo(op).Operand {
	case OperandNone:
		b.Emit(op)
	case OperandLit:
		lit, err := e.literal()
		if err != nil {
			return err
		}
		b.EmitConst(lit)
	case OperandName:
		if e.Name == "" {
			return fmt.Errorf("%s requires name", op)
		}
		b.EmitName(op, e.Name)
	case OperandTarget:
		if e.To == "" {
			return fmt.Errorf("%s requires to", op)
		}
		b.Jump(op, e.To)
	case OperandCount:
		b.EmitInt(op, e.N)
	case OperandNameCount:
		if e.Name == "" {
			return fmt.Errorf("%s requires name", op)
		}
		b.EmitCall(op, e.Name, e.N)
	case OperandLeave:
		if e.To == "" {
			return fmt.Errorf("LEAVE requires to")
		}
		b.Leave(e.To, e.Scopes)
	case OperandTry:
		if e.Catch == "" && e.Finally == "" {
			return fmt.Errorf("TRY_PUSH requires catch or finally")
		}
		b.TryPush(e.Catch, e.Finally)
	case OperandQualified:
		if e.Name == "" || e.Member == "" {
			return fmt.Errorf("%s requires name and member", op)
		}
		b.EmitStatic(op, e.Name, e.Member)
	}
	return nil
}

// literal reads PUSH_CONST's single literal key. The null literal is spelled
// nil: a bare null key is itself a YAML null and never reaches the field.
func (e yamlEntry) literal() (*Literal, error) {
	var lits []*Literal
	if e.Int != nil {
		lits = append(lits, Int(*e.Int))
	}
	if e.Int32 != nil {
		lits = append(lits, Int32(*e.Int32))
	}
	if e.Float != nil {
		lits = append(lits, Float(*e.Float))
	}
	if e.Float32 != nil {
		lits = append(lits, Float32(*e.Float32))
	}
	if e.Str != nil {
		lits = append(lits, Str(*e.Str))
	}
	if e.Char != nil {
		r, size := utf8.DecodeRuneInString(*e.Char)
		if size == 0 || size != len(*e.Char) {
			return nil, fmt.Errorf("char literal %q must be a single character", *e.Char)
		}
		lits = append(lits, Char(r))
	}
	if e.Bool != nil {
		lits = append(lits, Bool(*e.Bool))
	}
	if e.Decimal != nil {
		lits = append(lits, Decimal(*e.Decimal))
	}
	if e.Nil {
		lits = append(lits, Null())
	}
	if len(lits) != 1 {
		return nil, fmt.Errorf("PUSH_CONST requires exactly one literal, got %d", len(lits))
	}
	return lits[0], nil
}

package bytecode

import "fmt"

// Opcode identifies a single VM instruction.
// Opcodes are grouped into ranges by category, the same way the disassembler
// groups them.
type Opcode uint8

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpNop  Opcode = 0x00 // No operation
	OpPop  Opcode = 0x01 // Discard top of stack
	OpDup  Opcode = 0x02 // Duplicate top of stack
	OpSwap Opcode = 0x03 // Swap top two stack elements

	// ========================================================================
	// Literals (0x10-0x1F)
	// ========================================================================

	OpPushConst Opcode = 0x10 // Push Operand.Lit
	OpPushNull  Opcode = 0x11 // Push null
	OpPushTrue  Opcode = 0x12 // Push true
	OpPushFalse Opcode = 0x13 // Push false

	// ========================================================================
	// Variables and scopes (0x20-0x2F)
	// ========================================================================

	OpVarDecl   Opcode = 0x20 // Pop value, bind Operand.Name in the current scope
	OpLoadVar   Opcode = 0x21 // Push value of Operand.Name
	OpStoreVar  Opcode = 0x22 // Pop value, assign to nearest Operand.Name
	OpPushScope Opcode = 0x23 // Enter a child scope
	OpPopScope  Opcode = 0x24 // Leave the current scope

	// ========================================================================
	// Arithmetic and comparison (0x30-0x3F)
	// ========================================================================

	OpAdd Opcode = 0x30 // a + b
	OpSub Opcode = 0x31 // a - b
	OpMul Opcode = 0x32 // a * b
	OpDiv Opcode = 0x33 // a / b
	OpMod Opcode = 0x34 // a % b (truncated)
	OpNeg Opcode = 0x35 // -a
	OpNot Opcode = 0x36 // !a
	OpEq  Opcode = 0x37 // a == b
	OpNe  Opcode = 0x38 // a != b
	OpLt  Opcode = 0x39 // a < b
	OpLe  Opcode = 0x3A // a <= b
	OpGt  Opcode = 0x3B // a > b
	OpGe  Opcode = 0x3C // a >= b

	// ========================================================================
	// Control flow (0x40-0x4F)
	// ========================================================================

	OpJump        Opcode = 0x40 // ip = Operand.Int
	OpJumpIfFalse Opcode = 0x41 // Pop cond; jump if falsy
	OpJumpIfTrue  Opcode = 0x42 // Pop cond; jump if truthy
	OpLeave       Opcode = 0x43 // break/continue: pop Operand.Int2 scopes, ip = Operand.Int
	OpHalt        Opcode = 0x44 // Stop the program

	// ========================================================================
	// Calls (0x50-0x5F)
	// ========================================================================

	OpCall         Opcode = 0x50 // Call Operand.Name with Operand.Int args
	OpCallIndirect Opcode = 0x51 // Call the value below Operand.Int args
	OpCallMethod   Opcode = 0x52 // Call member Operand.Name of the receiver below Operand.Int args
	OpPushClosure  Opcode = 0x53 // Push closure of function Operand.Name over the current scope
	OpReturn       Opcode = 0x54 // Pop value and return it

	// ========================================================================
	// Collections (0x60-0x6F)
	// ========================================================================

	OpMakeArray Opcode = 0x60 // Pop Operand.Int values into an array
	OpMakeDict  Opcode = 0x61 // Pop Operand.Int key/value pairs into a dict
	OpIndexGet  Opcode = 0x62 // obj[idx]
	OpIndexSet  Opcode = 0x63 // obj[idx] = val
	OpSliceGet  Opcode = 0x64 // obj[start:end]

	// ========================================================================
	// Objects (0x70-0x7F)
	// ========================================================================

	OpNewObject   Opcode = 0x70 // Allocate an instance of class Operand.Name
	OpLoadMember  Opcode = 0x71 // Pop obj, push obj.<Operand.Name>
	OpStoreMember Opcode = 0x72 // Pop val and obj, obj.<Operand.Name> = val
	OpLoadStatic  Opcode = 0x73 // Push Operand.Name.<Operand.Member>
	OpStoreStatic Opcode = 0x74 // Pop val, Operand.Name.<Operand.Member> = val
	OpPushType    Opcode = 0x75 // Push the class or enum named Operand.Name

	// ========================================================================
	// Exceptions (0x80-0x8F)
	// ========================================================================

	OpTryPush    Opcode = 0x80 // Enter a protected region: catch at Operand.Int, finally at Operand.Int2
	OpTryPop     Opcode = 0x81 // Leave a protected region that has no pending work
	OpThrow      Opcode = 0x82 // Pop value and throw it
	OpEndFinally Opcode = 0x83 // Finish a finally block, replaying any deferred transfer

	// ========================================================================
	// Output (0x90-0x9F)
	// ========================================================================

	OpPrint Opcode = 0x90 // Pop value and print it
)

// OperandKind describes which Operand fields an opcode uses.
type OperandKind uint8

const (
	OperandNone      OperandKind = iota // no operands
	OperandLit                          // Lit
	OperandName                         // Name
	OperandTarget                       // Int as jump target
	OperandCount                        // Int as element/argument count
	OperandNameCount                    // Name + Int
	OperandLeave                        // Int target + Int2 scopes
	OperandTry                          // Int catch + Int2 finally
	OperandQualified                    // Name + Member
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name      string      // Human-readable name
	StackPop  int         // How many values popped from stack (-1 = variable)
	StackPush int         // How many values pushed to stack
	Operand   OperandKind // Which operand fields are meaningful
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpNop:  {"NOP", 0, 0, OperandNone},
	OpPop:  {"POP", 1, 0, OperandNone},
	OpDup:  {"DUP", 1, 2, OperandNone},
	OpSwap: {"SWAP", 2, 2, OperandNone},

	OpPushConst: {"PUSH_CONST", 0, 1, OperandLit},
	OpPushNull:  {"PUSH_NULL", 0, 1, OperandNone},
	OpPushTrue:  {"PUSH_TRUE", 0, 1, OperandNone},
	OpPushFalse: {"PUSH_FALSE", 0, 1, OperandNone},

	OpVarDecl:   {"VAR_DECL", 1, 0, OperandName},
	OpLoadVar:   {"LOAD_VAR", 0, 1, OperandName},
	OpStoreVar:  {"STORE_VAR", 1, 0, OperandName},
	OpPushScope: {"PUSH_SCOPE", 0, 0, OperandNone},
	OpPopScope:  {"POP_SCOPE", 0, 0, OperandNone},

	OpAdd: {"ADD", 2, 1, OperandNone},
	OpSub: {"SUB", 2, 1, OperandNone},
	OpMul: {"MUL", 2, 1, OperandNone},
	OpDiv: {"DIV", 2, 1, OperandNone},
	OpMod: {"MOD", 2, 1, OperandNone},
	OpNeg: {"NEG", 1, 1, OperandNone},
	OpNot: {"NOT", 1, 1, OperandNone},
	OpEq:  {"EQ", 2, 1, OperandNone},
	OpNe:  {"NE", 2, 1, OperandNone},
	OpLt:  {"LT", 2, 1, OperandNone},
	OpLe:  {"LE", 2, 1, OperandNone},
	OpGt:  {"GT", 2, 1, OperandNone},
	OpGe:  {"GE", 2, 1, OperandNone},

	OpJump:        {"JUMP", 0, 0, OperandTarget},
	OpJumpIfFalse: {"JUMP_IF_FALSE", 1, 0, OperandTarget},
	OpJumpIfTrue:  {"JUMP_IF_TRUE", 1, 0, OperandTarget},
	OpLeave:       {"LEAVE", 0, 0, OperandLeave},
	OpHalt:        {"HALT", 0, 0, OperandNone},

	OpCall:         {"CALL", -1, 1, OperandNameCount},
	OpCallIndirect: {"CALL_INDIRECT", -1, 1, OperandCount},
	OpCallMethod:   {"CALL_METHOD", -1, 1, OperandNameCount},
	OpPushClosure:  {"PUSH_CLOSURE", 0, 1, OperandName},
	OpReturn:       {"RETURN", 1, 0, OperandNone},

	OpMakeArray: {"MAKE_ARRAY", -1, 1, OperandCount},
	OpMakeDict:  {"MAKE_DICT", -1, 1, OperandCount},
	OpIndexGet:  {"INDEX_GET", 2, 1, OperandNone},
	OpIndexSet:  {"INDEX_SET", 3, 0, OperandNone},
	OpSliceGet:  {"SLICE_GET", 3, 1, OperandNone},

	OpNewObject:   {"NEW_OBJECT", 0, 1, OperandName},
	OpLoadMember:  {"LOAD_MEMBER", 1, 1, OperandName},
	OpStoreMember: {"STORE_MEMBER", 2, 0, OperandName},
	OpLoadStatic:  {"LOAD_STATIC", 0, 1, OperandQualified},
	OpStoreStatic: {"STORE_STATIC", 1, 0, OperandQualified},
	OpPushType:    {"PUSH_TYPE", 0, 1, OperandName},

	OpTryPush:    {"TRY_PUSH", 0, 0, OperandTry},
	OpTryPop:     {"TRY_POP", 0, 0, OperandNone},
	OpThrow:      {"THROW", 1, 0, OperandNone},
	OpEndFinally: {"END_FINALLY", 0, 0, OperandNone},

	OpPrint: {"PRINT", 1, 0, OperandNone},
}

var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeInfoTable))
	for op, info := range opcodeInfoTable {
		m[info.Name] = op
	}
	return m
}()

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// ParseOpcode looks an opcode up by its mnemonic.
func ParseOpcode(name string) (Opcode, bool) {
	op, ok := opcodesByName[name]
	return op, ok
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// IsJump returns true if the opcode's Int operand is an instruction address.
func (op Opcode) IsJump() bool {
	return op >= OpJump && op <= OpLeave
}

// AllOpcodes returns a slice of all defined opcodes.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

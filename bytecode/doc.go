// Package bytecode defines the instruction stream executed by the CFGS virtual
// machine and the tooling around it.
//
// A Program is a flat slice of Instructions plus the tables the interpreter
// needs at load time: the function table (name to entry address and
// parameter names), the class table, and the enum table. Instructions carry
// their source position so the interpreter can attribute exceptions.
//
// # Producing programs
//
//   - Builder: assembles programs with symbolic labels. Used by the compiler
//     front end and by tests.
//
//   - YAML listings: ParseYAML reads a human-writable listing. Handy for
//     golden fixtures and for hand-written programs fed to the cfgsvm CLI.
//
//   - Images: MarshalProgram/UnmarshalProgram store a program as canonical
//     CBOR behind a "CFGB" header and a format version.
//
// # Operands
//
// Every instruction has the same Operand struct; GetOpcodeInfo tells which
// fields an opcode reads. Two encodings deserve a note:
//
//   - TRY_PUSH: Int is the catch address and Int2 the finally address.
//     Either may be -1 (absent) but not both.
//
//   - LEAVE: Int is the target address and Int2 the number of scopes between
//     the LEAVE and the target. Protected regions open their own scope, which
//     is how the interpreter knows which try handlers a LEAVE exits.
package bytecode

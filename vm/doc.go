// Package vm executes CFGS bytecode programs.
//
// This package contains:
//   - Tagged Value representation with numeric promotion
//   - Lexical environments and closures sharing captured scopes
//   - Classes with single inheritance, static instances and enums
//   - The interpreter loop, call frames and the try/catch/finally handler stack
//   - Builtins and intrinsic methods for arrays, dicts, strings and files
//
// An Interpreter is created with New and driven with Run:
//
//	it, err := vm.New(prog, vm.Options{Stdout: os.Stdout})
//	if err != nil {
//		return err
//	}
//	defer it.Close()
//	result, err := it.Run(ctx)
//
// Run returns an *ExceptionValue for an exception nothing caught and a
// *VMFault for bytecode the interpreter cannot execute.
package vm

// Package avm implements the ActionScript 2 value model and an AVM1
// bytecode interpreter.
//
// A VM owns one global object, one heap and the built-in classes. Scripts are
// executed with Run (a clip frame script or clip event) or Call (a function
// value); both are top-level invocations that reset the instruction budget
// and convert every failure into an error:
//
//	*ScriptFault   uncaught throw, instruction ceiling or call-depth overflow
//	*InternalError malformed bytecode (unknown opcode, stack underflow, ...)
//
// Timeline opcodes (frame navigation, targets, clip properties) are forwarded
// to a Timeline supplied by the embedding player, so the package does not
// depend on any display-list representation.
package avm

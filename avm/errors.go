package avm

import (
	"fmt"
)

// FaultKind classifies a ScriptFault.
type FaultKind uint8

const (
	// FaultUncaught is a throw that escaped the top-level invocation.
	FaultUncaught FaultKind = iota + 1
	// FaultInstructionLimit is raised when the instruction budget runs out.
	FaultInstructionLimit
	// FaultStackOverflow is raised when calls nest past MaxCallDepth.
	FaultStackOverflow
)

func (k FaultKind) String() string {
	switch k {
	case FaultUncaught:
		return "uncaught"
	case FaultInstructionLimit:
		return "instruction-limit"
	case FaultStackOverflow:
		return "stack-overflow"
	}
	return "unknown"
}

// ScriptFault aborts one top-level script invocation. It is recoverable:
// the caller logs it and carries on with the next script or frame.
type ScriptFault struct {
	Kind FaultKind
	// Value is the thrown value for FaultUncaught.
	Value Value
	// Message is the thrown value converted to a string at fault time.
	Message string

	// Clip and Frame locate the faulting script when the caller knows it.
	Clip  string
	Frame int
}

func (f *ScriptFault) Error() string {
	where := ""
	if f.Clip != "" {
		where = fmt.Sprintf(" in %s frame %d", f.Clip, f.Frame)
	}
	if f.Kind == FaultUncaught {
		return fmt.Sprintf("script fault (%s)%s: %s", f.Kind, where, f.Message)
	}
	return fmt.Sprintf("script fault (%s)%s", f.Kind, where)
}

// InternalError reports malformed bytecode. It aborts the invocation like a
// ScriptFault but points at a bug in the producer of the bytecode.
type InternalError struct {
	Op     Opcode
	Offset int
	Msg    string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("avm: internal error at %04X (%s): %s", e.Offset, e.Op, e.Msg)
}

// Thrown is a script exception in flight. Natives return it (or any other
// error, which becomes an Error object) to throw.
type Thrown struct {
	Value Value
}

func (t *Thrown) Error() string {
	return "thrown: " + t.Value.GoString()
}

// Throw returns an error that throws v into the calling script.
func Throw(v Value) error {
	return &Thrown{Value: v}
}

// signal raises err through the interpreter. The recover points in runFrame
// and at the top-level boundary decide what happens next.
func signal(err error) {
	panic(err)
}

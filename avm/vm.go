package avm

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("reel.avm")
var traceLog = commonlog.GetLogger("reel.trace")

// Limits bound one top-level invocation.
type Limits struct {
	// MaxInstructions is the number of actions one invocation may execute,
	// counting nested calls. 0 disables the ceiling.
	MaxInstructions int
	// MaxCallDepth is the maximum number of nested function calls.
	// 0 disables the check.
	MaxCallDepth int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{MaxInstructions: 500000, MaxCallDepth: 256}
}

// Timeline receives the timeline actions of running scripts. Clip
// arguments are the script objects bound to display instances; the
// implementation maps them back.
type Timeline interface {
	// ResolveTarget resolves a slash or dot target path relative to from.
	ResolveTarget(from *Object, path string) *Object
	// TargetPath returns the dot path of a clip object.
	TargetPath(clip *Object) (string, bool)

	GotoFrame(clip *Object, frame int)
	GotoLabel(clip *Object, label string) bool
	NextFrame(clip *Object)
	PrevFrame(clip *Object)
	Play(clip *Object)
	Stop(clip *Object)
	// CallFrame runs the scripts of a frame of clip without moving to it.
	CallFrame(clip *Object, frame Value)

	CloneSprite(source *Object, name string, depth int)
	RemoveSprite(clip *Object)
	StartDrag(clip *Object, lockCenter bool, bounds *[4]float64)
	StopDrag()
	GetURL(url, window string, method int)
}

// VM is one script world: a global object, a heap and the built-in classes.
// A VM is not safe for concurrent use.
type VM struct {
	Global *Object
	Heap   *Heap
	Limits Limits

	// Timeline handles timeline actions. Nil makes them no-ops.
	Timeline Timeline
	// Trace receives trace() output in addition to the trace logger.
	Trace func(msg string)

	ObjectProto   *Object
	FunctionProto *Object
	ArrayProto    *Object
	StringProto   *Object
	NumberProto   *Object
	BooleanProto  *Object
	ErrorProto    *Object
	DateProto     *Object

	rand  *rand.Rand
	start time.Time

	steps   int
	depth   int
	running int
}

// New creates a VM with the built-in classes installed.
func New(limits Limits) *VM {
	vm := &VM{
		Heap:   newHeap(),
		Limits: limits,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
		start:  time.Now(),
	}
	vm.installBuiltins()
	return vm
}

// Seed makes Math.random and RandomNumber deterministic.
func (vm *VM) Seed(seed int64) {
	vm.rand = rand.New(rand.NewSource(seed))
}

// SetGlobal defines a global variable.
func (vm *VM) SetGlobal(name string, v Value) {
	vm.Global.Define(name, v, DontEnum)
}

// RegisterGlobal installs a native global function.
func (vm *VM) RegisterGlobal(name string, fn NativeFunc) *Object {
	return vm.SetMethod(vm.Global, name, fn)
}

// Steps returns the number of actions executed by the current (or last)
// top-level invocation.
func (vm *VM) Steps() int { return vm.steps }

// ---------------------------------------------------------------------------
// Top-level entry points
// ---------------------------------------------------------------------------

// Run executes code as a frame script or clip event of clip. scope lists the
// enclosing clips outermost first, ending with clip itself; the global
// object is always the outermost scope.
func (vm *VM) Run(code []byte, clip *Object, scope []*Object) error {
	return vm.Protect(func() {
		f := &frame{
			code:   code,
			regs:   make([]Value, 4),
			this:   Obj(clip),
			target: clip,
			home:   clip,
		}
		f.scope = append(make([]*Object, 0, len(scope)+1), vm.Global)
		f.scope = append(f.scope, scope...)
		if clip == nil {
			f.this = Undefined
		}
		vm.execute(f)
	})
}

// Call invokes a function value. Calling a non-function returns undefined.
func (vm *VM) Call(fn Value, this Value, args ...Value) (result Value, err error) {
	o := fn.Object()
	if !o.IsCallable() {
		return Undefined, nil
	}
	err = vm.Protect(func() {
		result = vm.invoke(o, this, args)
	})
	return result, err
}

// CallMethod invokes obj[name] with this = obj. A missing method is not an
// error and returns undefined.
func (vm *VM) CallMethod(obj *Object, name string, args ...Value) (Value, error) {
	var fn Value
	if err := vm.Protect(func() { fn = vm.GetMember(obj, name) }); err != nil {
		return Undefined, err
	}
	return vm.Call(fn, Obj(obj), args...)
}

// Protect runs fn as a script invocation boundary: the instruction budget
// is reset when no other invocation is active, and every interpreter signal
// is returned as an error. Nested boundaries (a native calling back into
// script) pass throws through unchanged so outer try blocks still see them.
func (vm *VM) Protect(fn func()) (err error) {
	if vm.running == 0 {
		vm.steps = 0
		vm.depth = 0
	}
	vm.running++
	defer func() {
		vm.running--
		if r := recover(); r != nil {
			err = vm.recoverSignal(r, vm.running > 0)
		}
	}()
	fn()
	return nil
}

func (vm *VM) recoverSignal(r any, nested bool) error {
	switch s := r.(type) {
	case *Thrown:
		if nested {
			return s
		}
		return &ScriptFault{Kind: FaultUncaught, Value: s.Value, Message: vm.describe(s.Value)}
	case *ScriptFault:
		return s
	case *InternalError:
		return s
	case error:
		return &InternalError{Msg: s.Error()}
	}
	return &InternalError{Msg: fmt.Sprintf("panic: %v", r)}
}

// describe converts a thrown value to text without letting a failing
// toString escape.
func (vm *VM) describe(v Value) (s string) {
	if o := v.Object(); o != nil && o.class == "Error" {
		if m, _, ok := o.Own("message"); ok && m.IsString() {
			return m.s
		}
	}
	defer func() {
		if recover() != nil {
			s = v.GoString()
		}
	}()
	saved := vm.steps
	s = vm.ToString(v)
	vm.steps = saved
	return s
}

// raise re-signals an error returned by a native.
func (vm *VM) raise(err error) {
	switch err.(type) {
	case *Thrown, *ScriptFault, *InternalError:
		signal(err)
	}
	signal(&Thrown{Value: Obj(vm.NewError(err.Error()))})
}

func (vm *VM) trace(msg string) {
	traceLog.Info(msg)
	if vm.Trace != nil {
		vm.Trace(msg)
	}
}

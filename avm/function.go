package avm

import "math"

// NativeFunc implements a built-in function. Returning a non-nil error
// throws into the calling script: *Thrown carries its value through, any
// other error becomes an Error object with the error's message.
type NativeFunc func(c *Call) (Value, error)

// Call is the invocation record handed to a NativeFunc.
type Call struct {
	VM        *VM
	This      Value
	Args      []Value
	Callee    *Object
	Construct bool
}

// Arg returns argument i, or undefined when absent.
func (c *Call) Arg(i int) Value {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return Undefined
}

// NumberArg returns argument i converted to a number.
func (c *Call) NumberArg(i int) float64 {
	return c.VM.ToNumber(c.Arg(i))
}

// IntArg returns argument i converted to an integer, or def when absent.
func (c *Call) IntArg(i int, def int) int {
	if i >= len(c.Args) || c.Args[i].IsUndefined() {
		return def
	}
	n := c.NumberArg(i)
	if math.IsNaN(n) {
		return 0
	}
	return int(n)
}

// StringArg returns argument i converted to a string.
func (c *Call) StringArg(i int) string {
	return c.VM.ToString(c.Arg(i))
}

// ThisObject returns the receiver object, or nil for primitives.
func (c *Call) ThisObject() *Object {
	return c.This.Object()
}

// Invoke calls fn from inside a native. Throws propagate to the script that
// called the native.
func (c *Call) Invoke(fn Value, this Value, args []Value) Value {
	o := fn.Object()
	if !o.IsCallable() {
		return Undefined
	}
	return c.VM.invoke(o, this, args)
}

// Function flags of DefineFunction2.
const (
	FlagPreloadThis      uint16 = 0x0001
	FlagSuppressThis     uint16 = 0x0002
	FlagPreloadArguments uint16 = 0x0004
	FlagSuppressArgs     uint16 = 0x0008
	FlagPreloadSuper     uint16 = 0x0010
	FlagSuppressSuper    uint16 = 0x0020
	FlagPreloadRoot      uint16 = 0x0040
	FlagPreloadParent    uint16 = 0x0080
	FlagPreloadGlobal    uint16 = 0x0100
)

// Function is the body of a script-defined function together with the
// environment captured where it was defined.
type Function struct {
	Name   string
	Params []string
	Code   []byte

	// DefineFunction2 only.
	V2        bool
	Registers int
	Flags     uint16
	ParamRegs []uint8

	pool   []string
	scope  []*Object
	target *Object
}

// NewNative wraps a Go function as a function object.
func (vm *VM) NewNative(name string, fn NativeFunc) *Object {
	o := vm.NewObjectWithProto(vm.FunctionProto, "Function")
	o.native = fn
	o.Payload = name
	return o
}

// NewConstructor wraps a Go function as a constructor with a fresh
// prototype object whose constructor property points back.
func (vm *VM) NewConstructor(name string, fn NativeFunc, proto *Object) *Object {
	ctor := vm.NewNative(name, fn)
	if proto == nil {
		proto = vm.NewObject()
	}
	ctor.Define("prototype", Obj(proto), DontEnum|DontDelete)
	proto.Define("constructor", Obj(ctor), DontEnum)
	return ctor
}

// newScriptFunction makes a function object for f.
func (vm *VM) newScriptFunction(f *Function) *Object {
	o := vm.NewObjectWithProto(vm.FunctionProto, "Function")
	o.fn = f
	proto := vm.NewObject()
	proto.Define("constructor", Obj(o), DontEnum)
	o.Define("prototype", Obj(proto), DontEnum)
	return o
}

// SetMethod installs a native method on o, hidden from for-in.
func (vm *VM) SetMethod(o *Object, name string, fn NativeFunc) *Object {
	f := vm.NewNative(name, fn)
	o.Define(name, Obj(f), DontEnum)
	return f
}

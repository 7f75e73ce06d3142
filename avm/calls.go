package avm

import "strings"

// ---------------------------------------------------------------------------
// Variable resolution
// ---------------------------------------------------------------------------

// lookupOrder lists the scope objects of f innermost first: with blocks,
// the tellTarget clip, then the captured chain ending at the global object.
func (f *frame) lookupOrder() []*Object {
	out := make([]*Object, 0, len(f.withs)+len(f.scope)+1)
	for i := len(f.withs) - 1; i >= 0; i-- {
		out = append(out, f.withs[i].obj)
	}
	if f.target != nil && f.target != f.home {
		out = append(out, f.target)
	}
	for i := len(f.scope) - 1; i >= 0; i-- {
		out = append(out, f.scope[i])
	}
	return out
}

func (vm *VM) fallbackTarget(f *frame) *Object {
	if f.target != nil {
		return f.target
	}
	return vm.Global
}

func (vm *VM) resolvePath(f *frame, path string) *Object {
	if vm.Timeline == nil {
		return nil
	}
	return vm.Timeline.ResolveTarget(f.target, path)
}

func (vm *VM) getVariable(f *frame, name string) Value {
	switch name {
	case "this":
		return f.this
	case "_global":
		return Obj(vm.Global)
	case "super":
		if s := vm.superObject(f); s != nil {
			return Obj(s)
		}
	}
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		if t := vm.resolvePath(f, name[:i]); t != nil {
			return vm.GetMember(t, name[i+1:])
		}
		return Undefined
	}
	if strings.IndexByte(name, '/') >= 0 {
		return Obj(vm.resolvePath(f, name)).orUndefined()
	}
	for _, o := range f.lookupOrder() {
		if vm.HasMember(o, name) {
			return vm.GetMember(o, name)
		}
	}
	if strings.IndexByte(name, '.') > 0 {
		parts := strings.Split(name, ".")
		v := vm.getVariable(f, parts[0])
		for _, p := range parts[1:] {
			v = vm.GetValueMember(v, p)
		}
		return v
	}
	return Undefined
}

func (v Value) orUndefined() Value {
	if v.IsNull() {
		return Undefined
	}
	return v
}

func (vm *VM) setVariable(f *frame, name string, v Value) {
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		vm.SetMember(vm.resolvePath(f, name[:i]), name[i+1:], v)
		return
	}
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		vm.SetMember(vm.getVariable(f, name[:i]).Object(), name[i+1:], v)
		return
	}
	for _, o := range f.lookupOrder() {
		if o == vm.Global {
			continue
		}
		if vm.HasMember(o, name) {
			vm.SetMember(o, name, v)
			return
		}
	}
	vm.SetMember(vm.fallbackTarget(f), name, v)
}

func (vm *VM) defineLocal(f *frame, name string, v Value) {
	if f.activation != nil {
		f.activation.Put(name, v)
		return
	}
	vm.SetMember(vm.fallbackTarget(f), name, v)
}

func (vm *VM) deleteVariable(f *frame, name string) bool {
	for _, o := range f.lookupOrder() {
		if o.HasOwn(name) {
			return vm.DeleteMember(o, name)
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

func (vm *VM) enter() {
	vm.depth++
	if vm.Limits.MaxCallDepth > 0 && vm.depth > vm.Limits.MaxCallDepth {
		vm.depth--
		signal(&ScriptFault{Kind: FaultStackOverflow})
	}
}

func (vm *VM) leave() {
	vm.depth--
}

// invoke calls a function object; throws propagate as panics.
func (vm *VM) invoke(fn *Object, this Value, args []Value) Value {
	return vm.callValue(Obj(fn), this, args, nil)
}

// callValue calls fn if it is callable. home is the object the function was
// found on, which anchors super lookups.
func (vm *VM) callValue(fn Value, this Value, args []Value, home *Object) Value {
	o := fn.Object()
	if !o.IsCallable() {
		return Undefined
	}
	if o.native != nil {
		return vm.callNative(o, this, args, false)
	}
	return vm.callScript(o, this, args, home)
}

func (vm *VM) callNative(fn *Object, this Value, args []Value, construct bool) Value {
	vm.enter()
	defer vm.leave()
	v, err := fn.native(&Call{VM: vm, This: this, Args: args, Callee: fn, Construct: construct})
	if err != nil {
		vm.raise(err)
	}
	return v
}

func argAt(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Undefined
}

func (vm *VM) callScript(fnObj *Object, this Value, args []Value, home *Object) Value {
	vm.enter()
	defer vm.leave()

	fn := fnObj.fn
	f := &frame{
		code:   fn.Code,
		pool:   fn.pool,
		this:   this,
		target: fn.target,
		home:   fn.target,
		fn:     fn,
	}
	act := vm.NewObjectWithProto(nil, "Activation")
	f.activation = act
	f.scope = append(append(make([]*Object, 0, len(fn.scope)+1), fn.scope...), act)
	if home != nil {
		f.super = vm.newSuper(this, home)
	}

	argsObj := vm.NewArray(append([]Value(nil), args...))
	argsObj.Define("callee", Obj(fnObj), DontEnum)

	if !fn.V2 {
		f.regs = make([]Value, 4)
		act.Put("arguments", Obj(argsObj))
		for i, p := range fn.Params {
			act.Put(p, argAt(args, i))
		}
		return vm.execute(f)
	}

	f.regs = make([]Value, max(fn.Registers, 1))
	r := 1
	preload := func(v Value) {
		if r < len(f.regs) {
			f.regs[r] = v
		}
		r++
	}
	if fn.Flags&FlagPreloadThis != 0 {
		preload(this)
	}
	if fn.Flags&FlagPreloadArguments != 0 {
		preload(Obj(argsObj))
	} else if fn.Flags&FlagSuppressArgs == 0 {
		act.Put("arguments", Obj(argsObj))
	}
	if fn.Flags&FlagPreloadSuper != 0 {
		preload(Obj(f.super))
	}
	if fn.Flags&FlagPreloadRoot != 0 {
		preload(Obj(vm.resolvePath(f, "_root")))
	}
	if fn.Flags&FlagPreloadParent != 0 {
		preload(vm.GetMember(f.target, "_parent"))
	}
	if fn.Flags&FlagPreloadGlobal != 0 {
		preload(Obj(vm.Global))
	}
	for i, p := range fn.Params {
		v := argAt(args, i)
		if i < len(fn.ParamRegs) && fn.ParamRegs[i] != 0 && int(fn.ParamRegs[i]) < len(f.regs) {
			f.regs[fn.ParamRegs[i]] = v
			continue
		}
		act.Put(p, v)
	}
	return vm.execute(f)
}

// newSuper builds the object bound to super for a method found on home.
func (vm *VM) newSuper(this Value, home *Object) *Object {
	ctor := vm.GetMember(home, "__constructor__").Object()
	if home.proto == nil && ctor == nil {
		return nil
	}
	o := vm.NewObjectWithProto(nil, "super")
	o.Payload = &superRef{this: this, proto: home.proto, ctor: ctor}
	return o
}

func (vm *VM) superObject(f *frame) *Object {
	return f.super
}

func superOf(v Value) *superRef {
	if o := v.Object(); o != nil {
		if sr, ok := o.Payload.(*superRef); ok {
			return sr
		}
	}
	return nil
}

func (vm *VM) callSuper(sr *superRef, args []Value) Value {
	if sr.ctor == nil {
		return Undefined
	}
	home := vm.GetMember(sr.ctor, "prototype").Object()
	return vm.callValue(Obj(sr.ctor), sr.this, args, home)
}

func (vm *VM) callMethodOp(f *frame) Value {
	nameV := vm.pop(f)
	objV := vm.pop(f)
	n := vm.popCount(f)
	args := vm.popArgs(f, n)

	name := ""
	if !nameV.IsUndefined() {
		name = vm.ToString(nameV)
	}
	if sr := superOf(objV); sr != nil {
		if name == "" {
			return vm.callSuper(sr, args)
		}
		fn, holder := vm.getMember(sr.proto, sr.this, name)
		return vm.callValue(fn, sr.this, args, holder)
	}
	if name == "" {
		return vm.callValue(objV, Undefined, args, nil)
	}
	if o := objV.Object(); o != nil {
		fn, holder := vm.getMember(o, objV, name)
		return vm.callValue(fn, objV, args, holder)
	}
	return vm.callValue(vm.GetValueMember(objV, name), objV, args, nil)
}

// construct implements new: a fresh object inheriting ctor.prototype is
// passed as this; an object returned by the constructor replaces it.
func (vm *VM) construct(ctor *Object, args []Value) Value {
	if !ctor.IsCallable() {
		return Undefined
	}
	proto := vm.GetMember(ctor, "prototype").Object()
	obj := vm.NewObjectWithProto(proto, "Object")
	var r Value
	if ctor.native != nil {
		r = vm.callNative(ctor, Obj(obj), args, true)
	} else {
		r = vm.callScript(ctor, Obj(obj), args, proto)
	}
	if r.IsObject() {
		return r
	}
	return Obj(obj)
}

// Construct calls ctor with new semantics from host code.
func (vm *VM) Construct(ctor *Object, args ...Value) (result Value, err error) {
	err = vm.Protect(func() {
		result = vm.construct(ctor, args)
	})
	return result, err
}

func (vm *VM) defineFunction(f *frame, act action, v2 bool) {
	r := &payloadReader{b: act.payload}
	fn := &Function{Name: r.str(), V2: v2}
	n := int(r.u16())
	if v2 {
		fn.Registers = int(r.u8())
		fn.Flags = r.u16()
		for i := 0; i < n; i++ {
			fn.ParamRegs = append(fn.ParamRegs, r.u8())
			fn.Params = append(fn.Params, r.str())
		}
	} else {
		for i := 0; i < n; i++ {
			fn.Params = append(fn.Params, r.str())
		}
	}
	size := int(r.u16())
	vm.checkPayload(f, r)
	start := act.next
	if start+size > len(f.code) {
		vm.fail(f, "function body runs past end of code")
	}
	fn.Code = f.code[start : start+size]
	f.ip = start + size

	fn.pool = f.pool
	fn.target = f.target
	fn.scope = make([]*Object, 0, len(f.scope)+len(f.withs))
	fn.scope = append(fn.scope, f.scope...)
	for _, w := range f.withs {
		fn.scope = append(fn.scope, w.obj)
	}

	o := vm.newScriptFunction(fn)
	if fn.Name != "" {
		vm.defineLocal(f, fn.Name, Obj(o))
		return
	}
	vm.push(f, Obj(o))
}

package avm

// ---------------------------------------------------------------------------
// Object: ordered property table with one prototype link
// ---------------------------------------------------------------------------

// PropFlags are per-property attributes, with the bit values ASSetPropFlags
// uses.
type PropFlags uint8

const (
	DontEnum   PropFlags = 1 << iota // hidden from for-in
	DontDelete                       // delete fails
	ReadOnly                         // writes are dropped
)

// maxProtoDepth bounds prototype walks so script-made cycles terminate.
const maxProtoDepth = 256

type property struct {
	value  Value
	flags  PropFlags
	getter *Object
	setter *Object
}

// Host lets native code back an object with live state (arrays, display
// instances). Host members are consulted before the own property table.
type Host interface {
	// GetMember returns a host-provided member. ok=false falls through to
	// ordinary properties.
	GetMember(name string) (v Value, ok bool)
	// SetMember stores a host-provided member. It returns false when the
	// name is not the host's and should become an ordinary property.
	SetMember(name string, v Value) bool
}

// HostEnumerator is implemented by hosts whose members show up in for-in.
type HostEnumerator interface {
	Members() []string
}

// HostDeleter is implemented by hosts that support delete on their members.
type HostDeleter interface {
	DeleteMember(name string) bool
}

// HostTracer is implemented by hosts holding script values, so the collector
// can reach them.
type HostTracer interface {
	TraceRefs(mark func(Value))
}

// Object is a script object.
type Object struct {
	id    int
	class string
	proto *Object

	keys  []string
	props map[string]*property

	fn     *Function
	native NativeFunc

	host       Host
	interfaces []*Object

	// Payload carries native state, such as the primitive of a wrapper
	// object or a Date's time.
	Payload any
}

// ID returns the heap slot of the object; stable for the object's lifetime.
func (o *Object) ID() int { return o.id }

// Class returns the class name used by the default toString and typeof.
func (o *Object) Class() string { return o.class }

// SetClass changes the class name.
func (o *Object) SetClass(name string) { o.class = name }

// Proto returns the prototype link.
func (o *Object) Proto() *Object { return o.proto }

// SetProto replaces the prototype link.
func (o *Object) SetProto(p *Object) { o.proto = p }

// Host returns the native host, if any.
func (o *Object) Host() Host { return o.host }

// SetHost attaches a native host.
func (o *Object) SetHost(h Host) { o.host = h }

// IsCallable reports whether the object is a function.
func (o *Object) IsCallable() bool {
	return o != nil && (o.fn != nil || o.native != nil)
}

// Function returns the script function body, or nil for natives.
func (o *Object) Function() *Function { return o.fn }

// Own returns an own data property.
func (o *Object) Own(name string) (Value, PropFlags, bool) {
	p, ok := o.props[name]
	if !ok {
		return Undefined, 0, false
	}
	return p.value, p.flags, true
}

// HasOwn reports whether name is an own property (not a host member).
func (o *Object) HasOwn(name string) bool {
	_, ok := o.props[name]
	return ok
}

// Define creates or overwrites an own property with the given flags,
// ignoring ReadOnly. Used for setting up built-ins.
func (o *Object) Define(name string, v Value, flags PropFlags) {
	if p, ok := o.props[name]; ok {
		p.value, p.flags, p.getter, p.setter = v, flags, nil, nil
		return
	}
	if o.props == nil {
		o.props = make(map[string]*property)
	}
	o.props[name] = &property{value: v, flags: flags}
	o.keys = append(o.keys, name)
}

// Put is Define with no flags.
func (o *Object) Put(name string, v Value) {
	o.Define(name, v, 0)
}

// DefineAccessor installs a getter/setter pair (Object.addProperty).
func (o *Object) DefineAccessor(name string, getter, setter *Object) {
	o.Define(name, Undefined, 0)
	p := o.props[name]
	p.getter, p.setter = getter, setter
}

// SetFlags sets and clears flag bits of an own property.
func (o *Object) SetFlags(name string, set, clear PropFlags) bool {
	p, ok := o.props[name]
	if !ok {
		return false
	}
	p.flags = (p.flags | set) &^ clear
	return true
}

// Keys returns own property names in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// removeOwn deletes an own property regardless of flags.
func (o *Object) removeOwn(name string) {
	if _, ok := o.props[name]; !ok {
		return
	}
	delete(o.props, name)
	for i, k := range o.keys {
		if k == name {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// clear drops every property and link. Used by the collector to break
// cycles in unreachable objects.
func (o *Object) clear() {
	o.props = nil
	o.keys = nil
	o.proto = nil
	o.fn = nil
	o.host = nil
	o.interfaces = nil
	o.Payload = nil
}

// lookup finds name on the prototype chain, returning the property and the
// object holding it.
func (o *Object) lookup(name string) (*property, *Object) {
	cur := o
	for i := 0; cur != nil && i < maxProtoDepth; i++ {
		if p, ok := cur.props[name]; ok {
			return p, cur
		}
		cur = cur.proto
	}
	return nil, nil
}

// ---------------------------------------------------------------------------
// Member access with script semantics
// ---------------------------------------------------------------------------

// NewObject allocates a plain object inheriting from Object.prototype.
func (vm *VM) NewObject() *Object {
	return vm.NewObjectWithProto(vm.ObjectProto, "Object")
}

// NewObjectWithProto allocates an object with an explicit prototype.
func (vm *VM) NewObjectWithProto(proto *Object, class string) *Object {
	o := &Object{class: class, proto: proto}
	vm.Heap.add(o)
	return o
}

// GetMember reads a member through host, own table and prototype chain.
// Getters run with this = o.
func (vm *VM) GetMember(o *Object, name string) Value {
	v, _ := vm.getMember(o, Obj(o), name)
	return v
}

func (vm *VM) getMember(o *Object, this Value, name string) (Value, *Object) {
	if o == nil {
		return Undefined, nil
	}
	if name == "__proto__" {
		return Obj(o.proto), o
	}
	cur := o
	for i := 0; cur != nil && i < maxProtoDepth; i++ {
		if cur.host != nil {
			if v, ok := cur.host.GetMember(name); ok {
				return v, cur
			}
		}
		if p, ok := cur.props[name]; ok {
			if p.getter != nil {
				return vm.invoke(p.getter, this, nil), cur
			}
			if p.setter != nil {
				return Undefined, cur
			}
			return p.value, cur
		}
		cur = cur.proto
	}
	return Undefined, nil
}

// HasMember reports whether name resolves on o (host, own or inherited).
func (vm *VM) HasMember(o *Object, name string) bool {
	if o == nil {
		return false
	}
	cur := o
	for i := 0; cur != nil && i < maxProtoDepth; i++ {
		if cur.host != nil {
			if _, ok := cur.host.GetMember(name); ok {
				return true
			}
		}
		if _, ok := cur.props[name]; ok {
			return true
		}
		cur = cur.proto
	}
	return false
}

// SetMember writes an own member. Writes to ReadOnly properties (own or
// inherited) are dropped; inherited setters run instead of shadowing.
func (vm *VM) SetMember(o *Object, name string, v Value) {
	if o == nil {
		return
	}
	if name == "__proto__" {
		o.proto = v.Object()
		return
	}
	if o.host != nil && o.host.SetMember(name, v) {
		return
	}
	if p, ok := o.props[name]; ok {
		switch {
		case p.setter != nil:
			vm.invoke(p.setter, Obj(o), []Value{v})
		case p.getter != nil:
		case p.flags&ReadOnly == 0:
			p.value = v
		}
		return
	}
	if p, _ := o.proto.lookup(name); p != nil {
		if p.setter != nil {
			vm.invoke(p.setter, Obj(o), []Value{v})
			return
		}
		if p.flags&ReadOnly != 0 {
			return
		}
	}
	o.Put(name, v)
}

// DeleteMember removes an own property unless it is DontDelete.
func (vm *VM) DeleteMember(o *Object, name string) bool {
	if o == nil {
		return false
	}
	if d, ok := o.host.(HostDeleter); ok && d.DeleteMember(name) {
		return true
	}
	p, ok := o.props[name]
	if !ok || p.flags&DontDelete != 0 {
		return false
	}
	o.removeOwn(name)
	return true
}

// EnumerableKeys returns the for-in names of o: host members, then own and
// inherited properties without DontEnum, each once, nearest first.
func (vm *VM) EnumerableKeys(o *Object) []string {
	seen := make(map[string]bool)
	var out []string
	cur := o
	for i := 0; cur != nil && i < maxProtoDepth; i++ {
		if e, ok := cur.host.(HostEnumerator); ok {
			for _, k := range e.Members() {
				if !seen[k] {
					seen[k] = true
					out = append(out, k)
				}
			}
		}
		for _, k := range cur.keys {
			if seen[k] {
				continue
			}
			seen[k] = true
			if cur.props[k].flags&DontEnum == 0 {
				out = append(out, k)
			}
		}
		cur = cur.proto
	}
	return out
}

// GetValueMember reads a member of any value: primitives resolve through
// their wrapper prototypes, strings also expose length.
func (vm *VM) GetValueMember(v Value, name string) Value {
	switch v.t {
	case TypeObject:
		return vm.GetMember(v.o, name)
	case TypeString:
		if name == "length" {
			return Int(StringLength(v.s))
		}
		r, _ := vm.getMember(vm.StringProto, v, name)
		return r
	case TypeNumber:
		r, _ := vm.getMember(vm.NumberProto, v, name)
		return r
	case TypeBoolean:
		r, _ := vm.getMember(vm.BooleanProto, v, name)
		return r
	}
	return Undefined
}

// InstanceOf reports whether ctor.prototype is on o's prototype chain, or
// ctor is an interface o's class implements.
func (vm *VM) InstanceOf(o *Object, ctor *Object) bool {
	if o == nil || ctor == nil {
		return false
	}
	target := vm.GetMember(ctor, "prototype").Object()
	if target == nil {
		return false
	}
	cur := o.proto
	for i := 0; cur != nil && i < maxProtoDepth; i++ {
		if cur == target {
			return true
		}
		for _, iface := range cur.interfaces {
			if iface == ctor {
				return true
			}
		}
		cur = cur.proto
	}
	return false
}

package avm

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// maxArrayIndex bounds the indices treated as array elements; larger ones
// become ordinary properties.
const maxArrayIndex = 1 << 24

// arrayHost stores the dense element vector of an Array object.
type arrayHost struct {
	elems []Value
}

func arrayIndex(name string) (int, bool) {
	if name == "" || len(name) > 8 || (len(name) > 1 && name[0] == '0') {
		return 0, false
	}
	n, err := strconv.Atoi(name)
	if err != nil || n < 0 || n >= maxArrayIndex {
		return 0, false
	}
	return n, true
}

func (a *arrayHost) GetMember(name string) (Value, bool) {
	if name == "length" {
		return Int(len(a.elems)), true
	}
	if i, ok := arrayIndex(name); ok && i < len(a.elems) {
		return a.elems[i], true
	}
	return Undefined, false
}

func (a *arrayHost) SetMember(name string, v Value) bool {
	if name == "length" {
		n := v.n
		if v.IsString() {
			n = parseNumber(v.s)
		} else if !v.IsNumber() {
			return true
		}
		if math.IsNaN(n) || n < 0 || n >= maxArrayIndex {
			return true
		}
		a.resize(int(n))
		return true
	}
	i, ok := arrayIndex(name)
	if !ok {
		return false
	}
	if i >= len(a.elems) {
		a.resize(i + 1)
	}
	a.elems[i] = v
	return true
}

func (a *arrayHost) DeleteMember(name string) bool {
	if i, ok := arrayIndex(name); ok && i < len(a.elems) {
		a.elems[i] = Undefined
		return true
	}
	return false
}

func (a *arrayHost) Members() []string {
	keys := make([]string, len(a.elems))
	for i := range a.elems {
		keys[i] = strconv.Itoa(i)
	}
	return keys
}

func (a *arrayHost) TraceRefs(mark func(Value)) {
	for _, v := range a.elems {
		mark(v)
	}
}

func (a *arrayHost) resize(n int) {
	if n <= len(a.elems) {
		a.elems = a.elems[:n]
		return
	}
	for len(a.elems) < n {
		a.elems = append(a.elems, Undefined)
	}
}

func (a *arrayHost) remove(v Value) bool {
	for i, e := range a.elems {
		if StrictEquals(e, v) {
			a.elems = append(a.elems[:i], a.elems[i+1:]...)
			return true
		}
	}
	return false
}

// arrayOf returns the element storage of an Array object, or nil.
func arrayOf(o *Object) *arrayHost {
	if o == nil {
		return nil
	}
	a, _ := o.host.(*arrayHost)
	return a
}

// NewArray creates an Array holding elems. The slice is owned by the array.
func (vm *VM) NewArray(elems []Value) *Object {
	o := vm.NewObjectWithProto(vm.ArrayProto, "Array")
	o.host = &arrayHost{elems: elems}
	return o
}

// ArrayElements returns a copy of an array's elements; ok is false when v
// is not an array.
func ArrayElements(v Value) (elems []Value, ok bool) {
	a := arrayOf(v.Object())
	if a == nil {
		return nil, false
	}
	return append([]Value(nil), a.elems...), true
}

// Array.sort option bits.
const (
	sortCaseInsensitive = 1
	sortDescending      = 2
	sortUnique          = 4
	sortReturnIndexed   = 8
	sortNumeric         = 16
)

func (vm *VM) installArray() {
	vm.ArrayProto = vm.NewObject()
	p := vm.ArrayProto
	ctor := vm.NewConstructor("Array", func(c *Call) (Value, error) {
		if len(c.Args) == 1 && c.Args[0].IsNumber() {
			n := c.Args[0].n
			if n < 0 || n >= maxArrayIndex || n != math.Trunc(n) {
				n = 0
			}
			a := &arrayHost{}
			a.resize(int(n))
			return Obj(c.VM.newArrayHost(a)), nil
		}
		return Obj(c.VM.NewArray(append([]Value(nil), c.Args...))), nil
	}, p)
	ctor.Define("CASEINSENSITIVE", Int(sortCaseInsensitive), DontEnum|ReadOnly)
	ctor.Define("DESCENDING", Int(sortDescending), DontEnum|ReadOnly)
	ctor.Define("UNIQUESORT", Int(sortUnique), DontEnum|ReadOnly)
	ctor.Define("RETURNINDEXEDARRAY", Int(sortReturnIndexed), DontEnum|ReadOnly)
	ctor.Define("NUMERIC", Int(sortNumeric), DontEnum|ReadOnly)
	vm.SetGlobal("Array", Obj(ctor))

	self := func(c *Call) *arrayHost {
		if a := arrayOf(c.ThisObject()); a != nil {
			return a
		}
		return &arrayHost{}
	}

	vm.SetMethod(p, "push", func(c *Call) (Value, error) {
		a := self(c)
		a.elems = append(a.elems, c.Args...)
		return Int(len(a.elems)), nil
	})
	vm.SetMethod(p, "pop", func(c *Call) (Value, error) {
		a := self(c)
		if len(a.elems) == 0 {
			return Undefined, nil
		}
		v := a.elems[len(a.elems)-1]
		a.elems = a.elems[:len(a.elems)-1]
		return v, nil
	})
	vm.SetMethod(p, "shift", func(c *Call) (Value, error) {
		a := self(c)
		if len(a.elems) == 0 {
			return Undefined, nil
		}
		v := a.elems[0]
		a.elems = append([]Value(nil), a.elems[1:]...)
		return v, nil
	})
	vm.SetMethod(p, "unshift", func(c *Call) (Value, error) {
		a := self(c)
		a.elems = append(append([]Value(nil), c.Args...), a.elems...)
		return Int(len(a.elems)), nil
	})
	vm.SetMethod(p, "slice", func(c *Call) (Value, error) {
		a := self(c)
		start, end := sliceBounds(c, len(a.elems))
		return Obj(c.VM.NewArray(append([]Value(nil), a.elems[start:end]...))), nil
	})
	vm.SetMethod(p, "splice", func(c *Call) (Value, error) {
		a := self(c)
		n := len(a.elems)
		start := relIndex(c.IntArg(0, 0), n)
		count := n - start
		if len(c.Args) > 1 {
			count = min(max(c.IntArg(1, 0), 0), n-start)
		}
		removed := append([]Value(nil), a.elems[start:start+count]...)
		var insert []Value
		if len(c.Args) > 2 {
			insert = c.Args[2:]
		}
		rest := append(append([]Value(nil), insert...), a.elems[start+count:]...)
		a.elems = append(a.elems[:start], rest...)
		return Obj(c.VM.NewArray(removed)), nil
	})
	vm.SetMethod(p, "join", func(c *Call) (Value, error) {
		sep := ","
		if v := c.Arg(0); !v.IsUndefined() {
			sep = c.VM.ToString(v)
		}
		return String(c.VM.join(self(c), sep)), nil
	})
	vm.SetMethod(p, "toString", func(c *Call) (Value, error) {
		return String(c.VM.join(self(c), ",")), nil
	})
	vm.SetMethod(p, "concat", func(c *Call) (Value, error) {
		out := append([]Value(nil), self(c).elems...)
		for _, v := range c.Args {
			if o := arrayOf(v.Object()); o != nil {
				out = append(out, o.elems...)
				continue
			}
			out = append(out, v)
		}
		return Obj(c.VM.NewArray(out)), nil
	})
	vm.SetMethod(p, "reverse", func(c *Call) (Value, error) {
		a := self(c)
		for i, j := 0, len(a.elems)-1; i < j; i, j = i+1, j-1 {
			a.elems[i], a.elems[j] = a.elems[j], a.elems[i]
		}
		return c.This, nil
	})
	vm.SetMethod(p, "sort", func(c *Call) (Value, error) {
		var cmp *Object
		opts := 0
		if o := c.Arg(0).Object(); o.IsCallable() {
			cmp = o
			opts = c.IntArg(1, 0)
		} else {
			opts = c.IntArg(0, 0)
		}
		return c.VM.sortArray(c, self(c), cmp, opts), nil
	})
}

func (vm *VM) newArrayHost(a *arrayHost) *Object {
	o := vm.NewObjectWithProto(vm.ArrayProto, "Array")
	o.host = a
	return o
}

func relIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	return min(max(i, 0), n)
}

func sliceBounds(c *Call, n int) (int, int) {
	start := relIndex(c.IntArg(0, 0), n)
	end := relIndex(c.IntArg(1, n), n)
	if end < start {
		end = start
	}
	return start, end
}

func (vm *VM) join(a *arrayHost, sep string) string {
	parts := make([]string, len(a.elems))
	for i, v := range a.elems {
		if v.IsUndefined() {
			parts[i] = "undefined"
			continue
		}
		parts[i] = vm.ToString(v)
	}
	return strings.Join(parts, sep)
}

func (vm *VM) sortArray(c *Call, a *arrayHost, cmp *Object, opts int) Value {
	idx := make([]int, len(a.elems))
	for i := range idx {
		idx[i] = i
	}
	compare := func(x, y Value) int {
		if cmp != nil {
			r := vm.ToNumber(c.Invoke(Obj(cmp), Undefined, []Value{x, y}))
			switch {
			case r < 0:
				return -1
			case r > 0:
				return 1
			}
			return 0
		}
		if opts&sortNumeric != 0 {
			nx, ny := vm.ToNumber(x), vm.ToNumber(y)
			switch {
			case nx < ny:
				return -1
			case nx > ny:
				return 1
			}
			return 0
		}
		sx, sy := vm.ToString(x), vm.ToString(y)
		if opts&sortCaseInsensitive != 0 {
			sx, sy = strings.ToLower(sx), strings.ToLower(sy)
		}
		return compareUnits(sx, sy)
	}
	duplicate := false
	sort.SliceStable(idx, func(i, j int) bool {
		r := compare(a.elems[idx[i]], a.elems[idx[j]])
		if r == 0 {
			duplicate = true
		}
		if opts&sortDescending != 0 {
			return r > 0
		}
		return r < 0
	})
	if opts&sortUnique != 0 && duplicate {
		return Int(0)
	}
	if opts&sortReturnIndexed != 0 {
		out := make([]Value, len(idx))
		for i, k := range idx {
			out[i] = Int(k)
		}
		return Obj(vm.NewArray(out))
	}
	sorted := make([]Value, len(idx))
	for i, k := range idx {
		sorted[i] = a.elems[k]
	}
	a.elems = sorted
	return c.This
}

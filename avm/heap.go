package avm

import (
	"time"

	"github.com/bits-and-blooms/bitset"
)

// ---------------------------------------------------------------------------
// Heap: object registry and mark-sweep cycle collector
// ---------------------------------------------------------------------------

// Heap records every script object of a VM so that unreachable cycles can be
// broken. Go's collector reclaims the memory once the heap lets go.
type Heap struct {
	objects []*Object
	free    []int
	marks   *bitset.BitSet
}

// CollectStats summarises one collection.
type CollectStats struct {
	Live     int
	Swept    int
	Duration time.Duration
}

func newHeap() *Heap {
	return &Heap{marks: bitset.New(1024)}
}

func (h *Heap) add(o *Object) {
	if n := len(h.free); n > 0 {
		o.id = h.free[n-1]
		h.free = h.free[:n-1]
		h.objects[o.id] = o
		return
	}
	o.id = len(h.objects)
	h.objects = append(h.objects, o)
}

// Live returns the number of registered objects.
func (h *Heap) Live() int {
	return len(h.objects) - len(h.free)
}

// Collect marks everything reachable from the VM's global object, its
// built-in prototypes and extra, and sweeps the rest. Swept objects lose
// their properties so that script-level cycles do not keep each other
// alive. It must not run while a script is executing.
func (vm *VM) Collect(extra ...*Object) CollectStats {
	start := time.Now()
	h := vm.Heap
	h.marks.ClearAll()

	var work []*Object
	mark := func(o *Object) {
		if o == nil || o.id >= len(h.objects) || h.objects[o.id] != o {
			return
		}
		if h.marks.Test(uint(o.id)) {
			return
		}
		h.marks.Set(uint(o.id))
		work = append(work, o)
	}
	markValue := func(v Value) {
		if o := v.Object(); o != nil {
			mark(o)
		}
	}

	for _, o := range []*Object{vm.Global, vm.ObjectProto, vm.FunctionProto, vm.ArrayProto,
		vm.StringProto, vm.NumberProto, vm.BooleanProto, vm.ErrorProto, vm.DateProto} {
		mark(o)
	}
	for _, o := range extra {
		mark(o)
	}

	for len(work) > 0 {
		o := work[len(work)-1]
		work = work[:len(work)-1]
		mark(o.proto)
		for _, p := range o.props {
			markValue(p.value)
			mark(p.getter)
			mark(p.setter)
		}
		if o.fn != nil {
			for _, s := range o.fn.scope {
				mark(s)
			}
			mark(o.fn.target)
		}
		for _, i := range o.interfaces {
			mark(i)
		}
		if t, ok := o.host.(HostTracer); ok {
			t.TraceRefs(markValue)
		}
		switch p := o.Payload.(type) {
		case *Object:
			mark(p)
		case Value:
			markValue(p)
		case *superRef:
			markValue(p.this)
			mark(p.proto)
			mark(p.ctor)
		}
	}

	stats := CollectStats{}
	for id, o := range h.objects {
		if o == nil {
			continue
		}
		if h.marks.Test(uint(id)) {
			stats.Live++
			continue
		}
		o.clear()
		h.objects[id] = nil
		h.free = append(h.free, id)
		stats.Swept++
	}
	stats.Duration = time.Since(start)
	log.Debugf("collected: %d live, %d swept in %s", stats.Live, stats.Swept, stats.Duration)
	return stats
}

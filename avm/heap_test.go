package avm

import "testing"

func TestCollectSweepsUnreachableCycles(t *testing.T) {
	vm := New(DefaultLimits())
	vm.Collect()
	base := vm.Heap.Live()

	a := vm.NewObject()
	b := vm.NewObject()
	a.Put("peer", Obj(b))
	b.Put("peer", Obj(a))

	kept := vm.NewObject()
	vm.SetGlobal("kept", Obj(kept))

	stats := vm.Collect()
	if stats.Swept != 2 {
		t.Errorf("swept = %d, want 2", stats.Swept)
	}
	if got := vm.Heap.Live(); got != base+1 {
		t.Errorf("live = %d, want %d", got, base+1)
	}
	if a.HasOwn("peer") {
		t.Error("swept object still holds its properties")
	}
	if !global(vm, "kept").IsObject() {
		t.Error("reachable object lost")
	}
}

func TestCollectKeepsExtraRootsAndClosures(t *testing.T) {
	vm := New(DefaultLimits())
	root := vm.NewObject()
	inner := vm.NewObject()
	root.Put("child", Obj(inner))
	arr := vm.NewArray([]Value{Obj(vm.NewObject())})
	inner.Put("list", Obj(arr))

	vm.Collect(root)
	if !inner.HasOwn("list") {
		t.Fatal("object reachable from extra root was swept")
	}
	elems, _ := ArrayElements(Obj(arr))
	if len(elems) != 1 || !elems[0].IsObject() || elems[0].Object().Class() != "Object" {
		t.Errorf("array elements = %v", elems)
	}

	if err := runScript(t, vm, `
		function outer() {
			push "captured" 7
			definelocal
			function () {
				push "captured"
				getvariable
				return
			}
			return
		}
		push "get" 0 "outer"
		callfunction
		setvariable
	`); err != nil {
		t.Fatal(err)
	}
	vm.Collect(root)
	got, err := vm.Call(global(vm, "get"), Undefined)
	if err != nil {
		t.Fatal(err)
	}
	if got.AsNumber() != 7 {
		t.Errorf("closure result = %v, want 7", got.GoString())
	}
}

func TestSlotsAreReused(t *testing.T) {
	vm := New(DefaultLimits())
	vm.Collect()
	vm.NewObject()
	vm.Collect()
	before := len(vm.Heap.objects)
	vm.NewObject()
	if len(vm.Heap.objects) != before {
		t.Errorf("heap grew from %d to %d despite a free slot", before, len(vm.Heap.objects))
	}
}

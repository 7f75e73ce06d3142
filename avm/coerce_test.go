package avm

import (
	"math"
	"testing"
)

func TestToNumber(t *testing.T) {
	vm := New(DefaultLimits())
	tests := []struct {
		in   Value
		want float64
	}{
		{Null, 0},
		{True, 1},
		{False, 0},
		{String(""), 0},
		{String("  42 "), 42},
		{String("0x1F"), 31},
		{String("1e3"), 1000},
		{String("-2.5"), -2.5},
		{Int(7), 7},
	}
	for _, tt := range tests {
		if got := vm.ToNumber(tt.in); got != tt.want {
			t.Errorf("ToNumber(%s) = %v, want %v", tt.in.GoString(), got, tt.want)
		}
	}
	for _, in := range []Value{Undefined, String("abc"), String("12px")} {
		if got := vm.ToNumber(in); !math.IsNaN(got) {
			t.Errorf("ToNumber(%s) = %v, want NaN", in.GoString(), got)
		}
	}
}

func TestToString(t *testing.T) {
	vm := New(DefaultLimits())
	tests := []struct {
		in   Value
		want string
	}{
		{Undefined, "undefined"},
		{Null, "null"},
		{True, "true"},
		{Int(3), "3"},
		{Number(0.5), "0.5"},
		{Number(math.Copysign(0, -1)), "0"},
		{NaN, "NaN"},
		{Number(math.Inf(-1)), "-Infinity"},
		{Number(0.1 + 0.2), "0.3"},
	}
	for _, tt := range tests {
		if got := vm.ToString(tt.in); got != tt.want {
			t.Errorf("ToString(%s) = %q, want %q", tt.in.GoString(), got, tt.want)
		}
	}
}

func TestToBoolean(t *testing.T) {
	vm := New(DefaultLimits())
	truthy := []Value{True, Int(1), String("0"), String("false"), Obj(vm.NewObject())}
	falsy := []Value{False, Undefined, Null, Int(0), NaN, String("")}
	for _, v := range truthy {
		if !vm.ToBoolean(v) {
			t.Errorf("ToBoolean(%s) = false", v.GoString())
		}
	}
	for _, v := range falsy {
		if vm.ToBoolean(v) {
			t.Errorf("ToBoolean(%s) = true", v.GoString())
		}
	}
}

func TestLooseEquals(t *testing.T) {
	vm := New(DefaultLimits())
	o := Obj(vm.NewObject())
	tests := []struct {
		a, b Value
		want bool
	}{
		{Undefined, Null, true},
		{Int(1), String("1"), true},
		{True, Int(1), true},
		{NaN, NaN, false},
		{o, o, true},
		{o, Obj(vm.NewObject()), false},
		{String("a"), String("a"), true},
		{Null, Int(0), false},
	}
	for _, tt := range tests {
		if got := vm.LooseEquals(tt.a, tt.b); got != tt.want {
			t.Errorf("LooseEquals(%s, %s) = %v, want %v", tt.a.GoString(), tt.b.GoString(), got, tt.want)
		}
	}
	if StrictEquals(Int(1), String("1")) {
		t.Error("StrictEquals(1, \"1\") = true")
	}
}

func TestAddAndLess(t *testing.T) {
	vm := New(DefaultLimits())
	if got := vm.Add(String("a"), Int(1)); got.AsString() != "a1" {
		t.Errorf("Add(\"a\", 1) = %s", got.GoString())
	}
	if got := vm.Add(Int(2), True); got.AsNumber() != 3 {
		t.Errorf("Add(2, true) = %s", got.GoString())
	}
	if less, undef := vm.Less(Int(1), Int(2)); !less || undef {
		t.Errorf("Less(1, 2) = %v, %v", less, undef)
	}
	if _, undef := vm.Less(NaN, Int(2)); !undef {
		t.Error("Less(NaN, 2) should be undefined")
	}
	if less, _ := vm.Less(String("a"), String("b")); !less {
		t.Error("Less(\"a\", \"b\") = false")
	}
}

func TestStringOrderIsByCodeUnit(t *testing.T) {
	vm := New(DefaultLimits())
	// U+1F600 encodes as D83D DE00, which sorts below U+FF61 by code unit
	// but above it by code point.
	if less, _ := vm.Less(String("\U0001F600"), String("\uFF61")); !less {
		t.Error("Less(U+1F600, U+FF61) = false, want true")
	}
	if less, _ := vm.Less(String("\uFF61"), String("\U0001F600")); less {
		t.Error("Less(U+FF61, U+1F600) = true, want false")
	}
	for _, tt := range []struct {
		s    string
		want int
	}{
		{"", 0},
		{"abc", 3},
		{"\u00e9t\u00e9", 3},
		{"\U0001F600", 2},
		{"a\U0001F600b", 4},
	} {
		if got := StringLength(tt.s); got != tt.want {
			t.Errorf("StringLength(%q) = %d, want %d", tt.s, got, tt.want)
		}
	}
}

func TestTypeOf(t *testing.T) {
	vm := New(DefaultLimits())
	clip := vm.NewObject()
	clip.SetClass("MovieClip")
	tests := []struct {
		in   Value
		want string
	}{
		{Undefined, "undefined"},
		{Null, "null"},
		{Int(1), "number"},
		{String(""), "string"},
		{True, "boolean"},
		{Obj(vm.NewObject()), "object"},
		{vm.GetMember(vm.GetMember(vm.Global, "Math").Object(), "abs"), "function"},
		{Obj(clip), "movieclip"},
	}
	for _, tt := range tests {
		if got := vm.TypeOf(tt.in); got != tt.want {
			t.Errorf("TypeOf(%s) = %q, want %q", tt.in.GoString(), got, tt.want)
		}
	}
}

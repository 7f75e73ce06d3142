package avm

import (
	"slices"
	"strings"
	"unicode/utf16"
)

// stringHost exposes length on String wrapper objects.
type stringHost struct {
	s string
}

func (h *stringHost) GetMember(name string) (Value, bool) {
	if name == "length" {
		return Int(StringLength(h.s)), true
	}
	return Undefined, false
}

func (h *stringHost) SetMember(string, Value) bool { return false }

// Script strings index, measure and compare in UTF-16 code units: a
// character outside the Basic Multilingual Plane counts as two.

// units splits s into UTF-16 code units.
func units(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

// fromUnits decodes code units; an unpaired surrogate becomes U+FFFD.
func fromUnits(u []uint16) string {
	return string(utf16.Decode(u))
}

// StringLength returns the length of s in UTF-16 code units.
func StringLength(s string) int {
	n := 0
	for _, r := range s {
		n += max(utf16.RuneLen(r), 1)
	}
	return n
}

// compareUnits orders strings by code unit, which differs from Go's byte
// order when a supplementary character meets one in U+E000..U+FFFF.
func compareUnits(a, b string) int {
	return slices.Compare(units(a), units(b))
}

func (vm *VM) thisString(c *Call) string {
	return vm.ToString(primitiveOf(c.This))
}

func (vm *VM) installString() {
	vm.StringProto = vm.NewObject()
	p := vm.StringProto
	ctor := vm.NewConstructor("String", func(c *Call) (Value, error) {
		s := ""
		if len(c.Args) > 0 {
			s = c.StringArg(0)
		}
		if o := c.ThisObject(); c.Construct && o != nil {
			o.SetClass("String")
			o.Payload = String(s)
			o.host = &stringHost{s: s}
			return c.This, nil
		}
		return String(s), nil
	}, p)
	vm.SetMethod(ctor, "fromCharCode", func(c *Call) (Value, error) {
		u := make([]uint16, len(c.Args))
		for i := range c.Args {
			u[i] = uint16(c.VM.ToUint32(c.Args[i]))
		}
		return String(fromUnits(u)), nil
	})
	vm.SetGlobal("String", Obj(ctor))

	vm.SetMethod(p, "toString", func(c *Call) (Value, error) {
		return String(c.VM.thisString(c)), nil
	})
	vm.SetMethod(p, "valueOf", func(c *Call) (Value, error) {
		return String(c.VM.thisString(c)), nil
	})
	vm.SetMethod(p, "charAt", func(c *Call) (Value, error) {
		u := units(c.VM.thisString(c))
		i := c.IntArg(0, 0)
		if i < 0 || i >= len(u) {
			return String(""), nil
		}
		return String(fromUnits(u[i : i+1])), nil
	})
	vm.SetMethod(p, "charCodeAt", func(c *Call) (Value, error) {
		u := units(c.VM.thisString(c))
		i := c.IntArg(0, 0)
		if i < 0 || i >= len(u) {
			return NaN, nil
		}
		return Int(int(u[i])), nil
	})
	vm.SetMethod(p, "indexOf", func(c *Call) (Value, error) {
		u := units(c.VM.thisString(c))
		needle := units(c.StringArg(0))
		return Int(indexUnits(u, needle, relIndex(c.IntArg(1, 0), len(u)))), nil
	})
	vm.SetMethod(p, "lastIndexOf", func(c *Call) (Value, error) {
		u := units(c.VM.thisString(c))
		needle := units(c.StringArg(0))
		from := c.IntArg(1, len(u))
		for i := min(from, len(u)-len(needle)); i >= 0; i-- {
			if equalUnits(u[i:i+len(needle)], needle) {
				return Int(i), nil
			}
		}
		return Int(-1), nil
	})
	vm.SetMethod(p, "substr", func(c *Call) (Value, error) {
		u := units(c.VM.thisString(c))
		start := relIndex(c.IntArg(0, 0), len(u))
		n := c.IntArg(1, len(u)-start)
		end := min(start+max(n, 0), len(u))
		return String(fromUnits(u[start:end])), nil
	})
	vm.SetMethod(p, "substring", func(c *Call) (Value, error) {
		u := units(c.VM.thisString(c))
		start := min(max(c.IntArg(0, 0), 0), len(u))
		end := min(max(c.IntArg(1, len(u)), 0), len(u))
		if start > end {
			start, end = end, start
		}
		return String(fromUnits(u[start:end])), nil
	})
	vm.SetMethod(p, "slice", func(c *Call) (Value, error) {
		u := units(c.VM.thisString(c))
		start, end := sliceBounds(c, len(u))
		return String(fromUnits(u[start:end])), nil
	})
	vm.SetMethod(p, "split", func(c *Call) (Value, error) {
		s := c.VM.thisString(c)
		var parts []string
		switch sep := c.Arg(0); {
		case sep.IsUndefined():
			parts = []string{s}
		case c.VM.ToString(sep) == "":
			for _, u := range units(s) {
				parts = append(parts, fromUnits([]uint16{u}))
			}
		default:
			parts = strings.Split(s, c.VM.ToString(sep))
		}
		if limit := c.IntArg(1, -1); limit >= 0 && limit < len(parts) {
			parts = parts[:limit]
		}
		out := make([]Value, len(parts))
		for i, part := range parts {
			out[i] = String(part)
		}
		return Obj(c.VM.NewArray(out)), nil
	})
	vm.SetMethod(p, "toUpperCase", func(c *Call) (Value, error) {
		return String(strings.ToUpper(c.VM.thisString(c))), nil
	})
	vm.SetMethod(p, "toLowerCase", func(c *Call) (Value, error) {
		return String(strings.ToLower(c.VM.thisString(c))), nil
	})
	vm.SetMethod(p, "concat", func(c *Call) (Value, error) {
		var b strings.Builder
		b.WriteString(c.VM.thisString(c))
		for i := range c.Args {
			b.WriteString(c.StringArg(i))
		}
		return String(b.String()), nil
	})
}

func indexUnits(u, needle []uint16, from int) int {
	for i := from; i+len(needle) <= len(u); i++ {
		if equalUnits(u[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func equalUnits(a, b []uint16) bool {
	return slices.Equal(a, b)
}

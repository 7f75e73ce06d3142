package avm

import (
	"math"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Primitive coercions
// ---------------------------------------------------------------------------

// Hint selects the conversion order of ToPrimitive.
type Hint uint8

const (
	HintDefault Hint = iota
	HintNumber
	HintString
)

// ToPrimitive converts objects by calling valueOf/toString; primitives are
// returned unchanged.
func (vm *VM) ToPrimitive(v Value, hint Hint) Value {
	o := v.Object()
	if o == nil {
		return v
	}
	if hint == HintDefault {
		hint = HintNumber
		if o.class == "Date" {
			hint = HintString
		}
	}
	order := [2]string{"valueOf", "toString"}
	if hint == HintString {
		order = [2]string{"toString", "valueOf"}
	}
	for _, name := range order {
		fn := vm.GetMember(o, name).Object()
		if !fn.IsCallable() {
			continue
		}
		r := vm.invoke(fn, v, nil)
		if !r.IsObject() {
			return r
		}
	}
	return String("[object " + o.class + "]")
}

// ToBoolean converts with ECMA-262 rules: objects are always true.
func (vm *VM) ToBoolean(v Value) bool {
	switch v.t {
	case TypeBoolean:
		return v.n != 0
	case TypeNumber:
		return v.n != 0 && !math.IsNaN(v.n)
	case TypeString:
		return v.s != ""
	case TypeObject:
		return true
	}
	return false
}

// ToNumber converts a value to a number.
func (vm *VM) ToNumber(v Value) float64 {
	switch v.t {
	case TypeUndefined:
		return math.NaN()
	case TypeNull:
		return 0
	case TypeBoolean, TypeNumber:
		return v.n
	case TypeString:
		return parseNumber(v.s)
	}
	return vm.ToNumber(vm.ToPrimitive(v, HintNumber))
}

// ToString converts a value to a string.
func (vm *VM) ToString(v Value) string {
	switch v.t {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		if v.n != 0 {
			return "true"
		}
		return "false"
	case TypeNumber:
		return formatNumber(v.n)
	case TypeString:
		return v.s
	}
	return vm.ToString(vm.ToPrimitive(v, HintString))
}

// ToInt32 converts to a signed 32-bit integer with modular wrap-around.
func (vm *VM) ToInt32(v Value) int32 {
	return int32(toUint32(vm.ToNumber(v)))
}

// ToUint32 converts to an unsigned 32-bit integer with modular wrap-around.
func (vm *VM) ToUint32(v Value) uint32 {
	return toUint32(vm.ToNumber(v))
}

func toUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Trunc(f)
	f = math.Mod(f, 4294967296)
	if f < 0 {
		f += 4294967296
	}
	return uint32(f)
}

// formatNumber prints numbers the way ActionScript does: at most 15
// significant digits, exponent form past 1e15, no negative zero.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	s := strconv.FormatFloat(f, 'g', 15, 64)
	if i := strings.IndexByte(s, 'e'); i >= 0 {
		mant, exp := s[:i], s[i+1:]
		sign := exp[:1]
		exp = strings.TrimLeft(exp[1:], "0")
		if exp == "" {
			exp = "0"
		}
		s = mant + "e" + sign + exp
	}
	return s
}

// parseNumber implements string-to-number conversion: decimal literals,
// 0x hex, Infinity, surrounding whitespace. Anything else is NaN.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	neg := false
	body := s
	if body[0] == '-' || body[0] == '+' {
		neg = body[0] == '-'
		body = body[1:]
	}
	var f float64
	switch {
	case body == "Infinity":
		f = math.Inf(1)
	case len(body) > 2 && (body[:2] == "0x" || body[:2] == "0X"):
		u, err := strconv.ParseUint(body[2:], 16, 64)
		if err != nil {
			return math.NaN()
		}
		f = float64(u)
	default:
		if !isDecimalLiteral(body) {
			return math.NaN()
		}
		var err error
		f, err = strconv.ParseFloat(body, 64)
		if err != nil {
			// Out of range values still parse to ±Inf.
			if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
				return math.NaN()
			}
		}
	}
	if neg {
		f = -f
	}
	return f
}

func isDecimalLiteral(s string) bool {
	i, n := 0, len(s)
	digits := 0
	for i < n && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < n && s[i] == '.' {
		i++
		for i < n && s[i] >= '0' && s[i] <= '9' {
			i++
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < n && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < n && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := 0
		for i < n && s[i] >= '0' && s[i] <= '9' {
			i++
			exp++
		}
		if exp == 0 {
			return false
		}
	}
	return i == n
}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

// Add implements the + operator: string concatenation when either
// primitive operand is a string, numeric addition otherwise.
func (vm *VM) Add(a, b Value) Value {
	pa := vm.ToPrimitive(a, HintDefault)
	pb := vm.ToPrimitive(b, HintDefault)
	if pa.t == TypeString || pb.t == TypeString {
		return String(vm.ToString(pa) + vm.ToString(pb))
	}
	return Number(vm.ToNumber(pa) + vm.ToNumber(pb))
}

// LooseEquals implements == (abstract equality).
func (vm *VM) LooseEquals(a, b Value) bool {
	for i := 0; i < 4; i++ {
		if a.t == b.t {
			return strictSameType(a, b)
		}
		switch {
		case a.IsNullish() && b.IsNullish():
			return true
		case a.IsNullish() || b.IsNullish():
			return false
		case a.t == TypeNumber && b.t == TypeString:
			return a.n == parseNumber(b.s)
		case a.t == TypeString && b.t == TypeNumber:
			return parseNumber(a.s) == b.n
		case a.t == TypeBoolean:
			a = Number(a.n)
		case b.t == TypeBoolean:
			b = Number(b.n)
		case b.t == TypeObject:
			b = vm.ToPrimitive(b, HintDefault)
		case a.t == TypeObject:
			a = vm.ToPrimitive(a, HintDefault)
		default:
			return false
		}
	}
	return false
}

// StrictEquals implements === (no conversion).
func StrictEquals(a, b Value) bool {
	if a.t != b.t {
		return false
	}
	return strictSameType(a, b)
}

func strictSameType(a, b Value) bool {
	switch a.t {
	case TypeUndefined, TypeNull:
		return true
	case TypeBoolean, TypeNumber:
		return a.n == b.n
	case TypeString:
		return a.s == b.s
	case TypeObject:
		return a.o == b.o
	}
	return false
}

// Less implements the abstract relational comparison a < b. undefined is
// true when either side converts to NaN.
func (vm *VM) Less(a, b Value) (less bool, undefined bool) {
	pa := vm.ToPrimitive(a, HintNumber)
	pb := vm.ToPrimitive(b, HintNumber)
	if pa.t == TypeString && pb.t == TypeString {
		return compareUnits(pa.s, pb.s) < 0, false
	}
	x, y := vm.ToNumber(pa), vm.ToNumber(pb)
	if math.IsNaN(x) || math.IsNaN(y) {
		return false, true
	}
	return x < y, false
}

// TypeOf implements the typeof operator.
func (vm *VM) TypeOf(v Value) string {
	switch v.t {
	case TypeObject:
		if v.o.IsCallable() {
			return "function"
		}
		if v.o.class == "MovieClip" {
			return "movieclip"
		}
		return "object"
	default:
		return v.t.String()
	}
}

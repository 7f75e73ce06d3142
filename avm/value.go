package avm

import (
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Value: tagged union of the six script types
// ---------------------------------------------------------------------------

// Type is the dynamic type tag of a Value.
type Type uint8

const (
	TypeUndefined Type = iota
	TypeNull
	TypeBoolean
	TypeNumber
	TypeString
	TypeObject
)

var typeNames = [...]string{"undefined", "null", "boolean", "number", "string", "object"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "invalid"
}

// Value is a script value. The zero Value is undefined.
type Value struct {
	t Type
	n float64 // number, or 0/1 for booleans
	s string
	o *Object
}

// Undefined is the undefined value.
var Undefined = Value{}

// Null is the null value.
var Null = Value{t: TypeNull}

// True and False are the boolean values.
var (
	True  = Value{t: TypeBoolean, n: 1}
	False = Value{t: TypeBoolean}
)

// Bool returns a boolean Value.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Number returns a number Value.
func Number(f float64) Value {
	return Value{t: TypeNumber, n: f}
}

// Int returns a number Value from an int.
func Int(i int) Value {
	return Value{t: TypeNumber, n: float64(i)}
}

// String returns a string Value.
func String(s string) Value {
	return Value{t: TypeString, s: s}
}

// Obj returns an object Value, or null for a nil object.
func Obj(o *Object) Value {
	if o == nil {
		return Null
	}
	return Value{t: TypeObject, o: o}
}

// NaN is the number NaN.
var NaN = Number(math.NaN())

// Type returns the dynamic type of v.
func (v Value) Type() Type { return v.t }

func (v Value) IsUndefined() bool { return v.t == TypeUndefined }
func (v Value) IsNull() bool      { return v.t == TypeNull }
func (v Value) IsNumber() bool    { return v.t == TypeNumber }
func (v Value) IsString() bool    { return v.t == TypeString }
func (v Value) IsObject() bool    { return v.t == TypeObject }

// IsNullish reports whether v is undefined or null.
func (v Value) IsNullish() bool { return v.t <= TypeNull }

// Object returns the object of an object value, or nil.
func (v Value) Object() *Object {
	if v.t != TypeObject {
		return nil
	}
	return v.o
}

// AsBool returns the raw boolean of a boolean value.
func (v Value) AsBool() bool { return v.t == TypeBoolean && v.n != 0 }

// AsNumber returns the raw number of a number value.
func (v Value) AsNumber() float64 { return v.n }

// AsString returns the raw string of a string value.
func (v Value) AsString() string { return v.s }

// IsCallable reports whether v is a function object.
func (v Value) IsCallable() bool {
	return v.t == TypeObject && v.o.IsCallable()
}

// GoString is a debugging representation that never runs script code.
func (v Value) GoString() string {
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
		return fmt.Sprintf("%q", v.s)
	case TypeObject:
		return fmt.Sprintf("[%s #%d]", v.o.class, v.o.id)
	}
	return "invalid"
}

// String implements fmt.Stringer with the same representation as GoString.
func (v Value) String() string { return v.GoString() }

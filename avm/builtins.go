package avm

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// installBuiltins creates the global object and the built-in classes.
func (vm *VM) installBuiltins() {
	vm.ObjectProto = &Object{class: "Object"}
	vm.Heap.add(vm.ObjectProto)
	vm.FunctionProto = vm.NewObjectWithProto(vm.ObjectProto, "Function")
	vm.Global = vm.NewObject()
	vm.Global.SetClass("global")

	vm.installObject()
	vm.installFunction()
	vm.installArray()
	vm.installString()
	vm.installNumber()
	vm.installBoolean()
	vm.installError()
	vm.installMath()
	vm.installDate()
	vm.installBroadcaster()
	vm.installGlobals()
}

// ---------------------------------------------------------------------------
// Object and Function
// ---------------------------------------------------------------------------

func (vm *VM) installObject() {
	p := vm.ObjectProto
	ctor := vm.NewConstructor("Object", func(c *Call) (Value, error) {
		if v := c.Arg(0); v.IsObject() {
			return v, nil
		}
		if c.Construct {
			return c.This, nil
		}
		return Obj(c.VM.NewObject()), nil
	}, p)
	vm.SetGlobal("Object", Obj(ctor))

	vm.SetMethod(p, "toString", func(c *Call) (Value, error) {
		o := c.ThisObject()
		if o == nil {
			return String(c.VM.ToString(c.This)), nil
		}
		if w, ok := o.Payload.(Value); ok {
			return String(c.VM.ToString(w)), nil
		}
		if o.IsCallable() {
			return String("[type Function]"), nil
		}
		return String("[object Object]"), nil
	})
	vm.SetMethod(p, "valueOf", func(c *Call) (Value, error) {
		if o := c.ThisObject(); o != nil {
			if w, ok := o.Payload.(Value); ok {
				return w, nil
			}
		}
		return c.This, nil
	})
	vm.SetMethod(p, "hasOwnProperty", func(c *Call) (Value, error) {
		o := c.ThisObject()
		if o == nil {
			return False, nil
		}
		name := c.StringArg(0)
		if o.HasOwn(name) {
			return True, nil
		}
		if o.host != nil {
			_, ok := o.host.GetMember(name)
			return Bool(ok), nil
		}
		return False, nil
	})
	vm.SetMethod(p, "isPropertyEnumerable", func(c *Call) (Value, error) {
		o := c.ThisObject()
		if o == nil {
			return False, nil
		}
		_, flags, ok := o.Own(c.StringArg(0))
		return Bool(ok && flags&DontEnum == 0), nil
	})
	vm.SetMethod(p, "isPrototypeOf", func(c *Call) (Value, error) {
		self := c.ThisObject()
		o := c.Arg(0).Object()
		for i := 0; o != nil && i < maxProtoDepth; i++ {
			o = o.proto
			if o == self {
				return True, nil
			}
		}
		return False, nil
	})
	vm.SetMethod(p, "addProperty", func(c *Call) (Value, error) {
		o := c.ThisObject()
		name := c.StringArg(0)
		getter := c.Arg(1).Object()
		if o == nil || name == "" || !getter.IsCallable() {
			return False, nil
		}
		setter := c.Arg(2).Object()
		if !setter.IsCallable() {
			setter = nil
		}
		o.DefineAccessor(name, getter, setter)
		return True, nil
	})
}

func (vm *VM) installFunction() {
	p := vm.FunctionProto
	ctor := vm.NewConstructor("Function", func(c *Call) (Value, error) {
		return Obj(c.VM.NewObject()), nil
	}, p)
	vm.SetGlobal("Function", Obj(ctor))

	vm.SetMethod(p, "call", func(c *Call) (Value, error) {
		var rest []Value
		if len(c.Args) > 1 {
			rest = c.Args[1:]
		}
		return c.Invoke(c.This, c.Arg(0), rest), nil
	})
	vm.SetMethod(p, "apply", func(c *Call) (Value, error) {
		var args []Value
		if a := arrayOf(c.Arg(1).Object()); a != nil {
			args = append(args, a.elems...)
		}
		return c.Invoke(c.This, c.Arg(0), args), nil
	})
}

// ---------------------------------------------------------------------------
// Boolean, Number, Error
// ---------------------------------------------------------------------------

func (vm *VM) installBoolean() {
	vm.BooleanProto = vm.NewObject()
	ctor := vm.NewConstructor("Boolean", func(c *Call) (Value, error) {
		b := Bool(c.VM.ToBoolean(c.Arg(0)))
		if o := c.ThisObject(); c.Construct && o != nil {
			o.SetClass("Boolean")
			o.Payload = b
			return c.This, nil
		}
		return b, nil
	}, vm.BooleanProto)
	vm.SetGlobal("Boolean", Obj(ctor))
	vm.SetMethod(vm.BooleanProto, "toString", func(c *Call) (Value, error) {
		return String(c.VM.ToString(primitiveOf(c.This))), nil
	})
	vm.SetMethod(vm.BooleanProto, "valueOf", func(c *Call) (Value, error) {
		return primitiveOf(c.This), nil
	})
}

// primitiveOf unwraps Boolean/Number/String wrapper objects.
func primitiveOf(v Value) Value {
	if o := v.Object(); o != nil {
		if w, ok := o.Payload.(Value); ok {
			return w
		}
	}
	return v
}

func (vm *VM) installNumber() {
	vm.NumberProto = vm.NewObject()
	ctor := vm.NewConstructor("Number", func(c *Call) (Value, error) {
		n := Number(0)
		if len(c.Args) > 0 {
			n = Number(c.NumberArg(0))
		}
		if o := c.ThisObject(); c.Construct && o != nil {
			o.SetClass("Number")
			o.Payload = n
			return c.This, nil
		}
		return n, nil
	}, vm.NumberProto)
	ctor.Define("MAX_VALUE", Number(math.MaxFloat64), DontEnum|DontDelete|ReadOnly)
	ctor.Define("MIN_VALUE", Number(4.9406564584124654e-324), DontEnum|DontDelete|ReadOnly)
	ctor.Define("NaN", NaN, DontEnum|DontDelete|ReadOnly)
	ctor.Define("POSITIVE_INFINITY", Number(math.Inf(1)), DontEnum|DontDelete|ReadOnly)
	ctor.Define("NEGATIVE_INFINITY", Number(math.Inf(-1)), DontEnum|DontDelete|ReadOnly)
	vm.SetGlobal("Number", Obj(ctor))

	vm.SetMethod(vm.NumberProto, "toString", func(c *Call) (Value, error) {
		n := c.VM.ToNumber(primitiveOf(c.This))
		radix := c.IntArg(0, 10)
		if radix == 10 || radix < 2 || radix > 36 || math.IsNaN(n) || math.IsInf(n, 0) {
			return String(formatNumber(n)), nil
		}
		return String(strconv.FormatInt(int64(n), radix)), nil
	})
	vm.SetMethod(vm.NumberProto, "valueOf", func(c *Call) (Value, error) {
		return Number(c.VM.ToNumber(primitiveOf(c.This))), nil
	})
}

// NewError creates an Error object carrying message.
func (vm *VM) NewError(message string) *Object {
	o := vm.NewObjectWithProto(vm.ErrorProto, "Error")
	o.Put("message", String(message))
	return o
}

func (vm *VM) installError() {
	vm.ErrorProto = vm.NewObject()
	vm.ErrorProto.Define("name", String("Error"), DontEnum)
	vm.ErrorProto.Define("message", String("Error"), DontEnum)
	ctor := vm.NewConstructor("Error", func(c *Call) (Value, error) {
		o := c.ThisObject()
		if !c.Construct || o == nil {
			o = c.VM.NewObjectWithProto(c.VM.ErrorProto, "Error")
		}
		o.SetClass("Error")
		if m := c.Arg(0); !m.IsUndefined() {
			o.Put("message", String(c.VM.ToString(m)))
		}
		return Obj(o), nil
	}, vm.ErrorProto)
	vm.SetGlobal("Error", Obj(ctor))
	vm.SetMethod(vm.ErrorProto, "toString", func(c *Call) (Value, error) {
		o := c.ThisObject()
		if o == nil {
			return String("Error"), nil
		}
		return String(c.VM.ToString(c.VM.GetMember(o, "message"))), nil
	})
}

// ---------------------------------------------------------------------------
// Math
// ---------------------------------------------------------------------------

func (vm *VM) installMath() {
	m := vm.NewObject()
	m.SetClass("Math")
	consts := map[string]float64{
		"PI": math.Pi, "E": math.E, "LN2": math.Ln2, "LN10": math.Ln10,
		"LOG2E": math.Log2E, "LOG10E": math.Log10E,
		"SQRT1_2": math.Sqrt2 / 2, "SQRT2": math.Sqrt2,
	}
	for _, k := range []string{"PI", "E", "LN2", "LN10", "LOG2E", "LOG10E", "SQRT1_2", "SQRT2"} {
		m.Define(k, Number(consts[k]), DontEnum|DontDelete|ReadOnly)
	}
	unary := map[string]func(float64) float64{
		"abs": math.Abs, "acos": math.Acos, "asin": math.Asin, "atan": math.Atan,
		"ceil": math.Ceil, "cos": math.Cos, "exp": math.Exp, "floor": math.Floor,
		"log": math.Log, "sin": math.Sin, "sqrt": math.Sqrt, "tan": math.Tan,
		"round": func(x float64) float64 { return math.Floor(x + 0.5) },
	}
	for _, name := range []string{"abs", "acos", "asin", "atan", "ceil", "cos", "exp",
		"floor", "log", "round", "sin", "sqrt", "tan"} {
		fn := unary[name]
		vm.SetMethod(m, name, func(c *Call) (Value, error) {
			return Number(fn(c.NumberArg(0))), nil
		})
	}
	vm.SetMethod(m, "atan2", func(c *Call) (Value, error) {
		return Number(math.Atan2(c.NumberArg(0), c.NumberArg(1))), nil
	})
	vm.SetMethod(m, "pow", func(c *Call) (Value, error) {
		return Number(math.Pow(c.NumberArg(0), c.NumberArg(1))), nil
	})
	vm.SetMethod(m, "min", func(c *Call) (Value, error) {
		r := math.Inf(1)
		for i := range c.Args {
			n := c.NumberArg(i)
			if math.IsNaN(n) {
				return NaN, nil
			}
			r = math.Min(r, n)
		}
		return Number(r), nil
	})
	vm.SetMethod(m, "max", func(c *Call) (Value, error) {
		r := math.Inf(-1)
		for i := range c.Args {
			n := c.NumberArg(i)
			if math.IsNaN(n) {
				return NaN, nil
			}
			r = math.Max(r, n)
		}
		return Number(r), nil
	})
	vm.SetMethod(m, "random", func(c *Call) (Value, error) {
		return Number(c.VM.rand.Float64()), nil
	})
	vm.SetGlobal("Math", Obj(m))
}

// ---------------------------------------------------------------------------
// Date
// ---------------------------------------------------------------------------

func (vm *VM) installDate() {
	vm.DateProto = vm.NewObject()
	ctor := vm.NewConstructor("Date", func(c *Call) (Value, error) {
		o := c.ThisObject()
		if !c.Construct || o == nil {
			return String(time.Now().Format("Mon Jan 2 15:04:05 GMT-0700 2006")), nil
		}
		t := time.Now()
		switch {
		case len(c.Args) == 1:
			t = time.UnixMilli(int64(c.NumberArg(0)))
		case len(c.Args) > 1:
			t = time.Date(c.IntArg(0, 1970), time.Month(c.IntArg(1, 0)+1), c.IntArg(2, 1),
				c.IntArg(3, 0), c.IntArg(4, 0), c.IntArg(5, 0), c.IntArg(6, 0)*int(time.Millisecond), time.Local)
		}
		o.SetClass("Date")
		o.Payload = t
		return c.This, nil
	}, vm.DateProto)
	vm.SetGlobal("Date", Obj(ctor))

	dateOf := func(c *Call) time.Time {
		if o := c.ThisObject(); o != nil {
			if t, ok := o.Payload.(time.Time); ok {
				return t
			}
		}
		return time.Time{}
	}
	getters := []struct {
		name string
		get  func(t time.Time) float64
	}{
		{"getTime", func(t time.Time) float64 { return float64(t.UnixMilli()) }},
		{"valueOf", func(t time.Time) float64 { return float64(t.UnixMilli()) }},
		{"getFullYear", func(t time.Time) float64 { return float64(t.Year()) }},
		{"getMonth", func(t time.Time) float64 { return float64(t.Month() - 1) }},
		{"getDate", func(t time.Time) float64 { return float64(t.Day()) }},
		{"getDay", func(t time.Time) float64 { return float64(t.Weekday()) }},
		{"getHours", func(t time.Time) float64 { return float64(t.Hour()) }},
		{"getMinutes", func(t time.Time) float64 { return float64(t.Minute()) }},
		{"getSeconds", func(t time.Time) float64 { return float64(t.Second()) }},
		{"getMilliseconds", func(t time.Time) float64 { return float64(t.Nanosecond() / int(time.Millisecond)) }},
	}
	for _, g := range getters {
		get := g.get
		vm.SetMethod(vm.DateProto, g.name, func(c *Call) (Value, error) {
			return Number(get(dateOf(c))), nil
		})
	}
	vm.SetMethod(vm.DateProto, "setTime", func(c *Call) (Value, error) {
		if o := c.ThisObject(); o != nil {
			o.Payload = time.UnixMilli(int64(c.NumberArg(0)))
		}
		return Number(c.NumberArg(0)), nil
	})
	vm.SetMethod(vm.DateProto, "toString", func(c *Call) (Value, error) {
		return String(dateOf(c).Format("Mon Jan 2 15:04:05 GMT-0700 2006")), nil
	})
}

// ---------------------------------------------------------------------------
// AsBroadcaster
// ---------------------------------------------------------------------------

func (vm *VM) installBroadcaster() {
	b := vm.NewObject()
	b.SetClass("AsBroadcaster")
	vm.SetMethod(b, "initialize", func(c *Call) (Value, error) {
		if o := c.Arg(0).Object(); o != nil {
			c.VM.InitBroadcaster(o)
		}
		return Undefined, nil
	})
	vm.SetGlobal("AsBroadcaster", Obj(b))
}

// InitBroadcaster gives o a _listeners array and the addListener,
// removeListener and broadcastMessage methods.
func (vm *VM) InitBroadcaster(o *Object) {
	o.Define("_listeners", Obj(vm.NewArray(nil)), DontEnum)
	vm.SetMethod(o, "addListener", func(c *Call) (Value, error) {
		l := c.Arg(0)
		a := arrayOf(c.VM.GetMember(c.ThisObject(), "_listeners").Object())
		if a == nil || !l.IsObject() {
			return False, nil
		}
		a.remove(l)
		a.elems = append(a.elems, l)
		return True, nil
	})
	vm.SetMethod(o, "removeListener", func(c *Call) (Value, error) {
		a := arrayOf(c.VM.GetMember(c.ThisObject(), "_listeners").Object())
		if a == nil {
			return False, nil
		}
		return Bool(a.remove(c.Arg(0))), nil
	})
	vm.SetMethod(o, "broadcastMessage", func(c *Call) (Value, error) {
		c.VM.broadcast(c.ThisObject(), c.StringArg(0), c.Args[min(1, len(c.Args)):])
		return Undefined, nil
	})
}

func (vm *VM) broadcast(o *Object, name string, args []Value) {
	a := arrayOf(vm.GetMember(o, "_listeners").Object())
	if a == nil {
		return
	}
	for _, l := range append([]Value(nil), a.elems...) {
		if lo := l.Object(); lo != nil {
			fn, holder := vm.getMember(lo, l, name)
			vm.callValue(fn, l, args, holder)
		}
	}
}

// Broadcast calls name on every listener of a broadcaster object, as a
// top-level invocation.
func (vm *VM) Broadcast(o *Object, name string, args ...Value) error {
	return vm.Protect(func() { vm.broadcast(o, name, args) })
}

// ---------------------------------------------------------------------------
// Global functions
// ---------------------------------------------------------------------------

func (vm *VM) installGlobals() {
	vm.SetGlobal("NaN", NaN)
	vm.SetGlobal("Infinity", Number(math.Inf(1)))

	vm.RegisterGlobal("isNaN", func(c *Call) (Value, error) {
		return Bool(math.IsNaN(c.NumberArg(0))), nil
	})
	vm.RegisterGlobal("isFinite", func(c *Call) (Value, error) {
		n := c.NumberArg(0)
		return Bool(!math.IsNaN(n) && !math.IsInf(n, 0)), nil
	})
	vm.RegisterGlobal("parseInt", func(c *Call) (Value, error) {
		return Number(parseInt(c.StringArg(0), c.IntArg(1, 0))), nil
	})
	vm.RegisterGlobal("parseFloat", func(c *Call) (Value, error) {
		return Number(parseFloatPrefix(c.StringArg(0))), nil
	})
	vm.RegisterGlobal("trace", func(c *Call) (Value, error) {
		c.VM.trace(c.StringArg(0))
		return Undefined, nil
	})
	vm.RegisterGlobal("escape", func(c *Call) (Value, error) {
		return String(url.QueryEscape(c.StringArg(0))), nil
	})
	vm.RegisterGlobal("unescape", func(c *Call) (Value, error) {
		s, err := url.QueryUnescape(c.StringArg(0))
		if err != nil {
			return String(c.StringArg(0)), nil
		}
		return String(s), nil
	})
	vm.RegisterGlobal("ASSetPropFlags", func(c *Call) (Value, error) {
		o := c.Arg(0).Object()
		if o == nil {
			return Undefined, nil
		}
		set := PropFlags(c.IntArg(2, 0))
		clear := PropFlags(c.IntArg(3, 0))
		var names []string
		switch props := c.Arg(1); {
		case props.IsNull():
			names = o.Keys()
		case arrayOf(props.Object()) != nil:
			for _, v := range arrayOf(props.Object()).elems {
				names = append(names, c.VM.ToString(v))
			}
		default:
			names = strings.Split(c.VM.ToString(props), ",")
		}
		for _, n := range names {
			o.SetFlags(strings.TrimSpace(n), set, clear)
		}
		return Undefined, nil
	})
}

func parseInt(s string, radix int) float64 {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if (radix == 0 || radix == 16) && len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
		radix = 16
	}
	if radix == 0 {
		radix = 10
	}
	if radix < 2 || radix > 36 {
		return math.NaN()
	}
	var n float64
	digits := 0
	for _, r := range s {
		d := digitValue(r)
		if d < 0 || d >= radix {
			break
		}
		n = n*float64(radix) + float64(d)
		digits++
	}
	if digits == 0 {
		return math.NaN()
	}
	if neg {
		n = -n
	}
	return n
}

func digitValue(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'a' && r <= 'z':
		return int(r-'a') + 10
	case r >= 'A' && r <= 'Z':
		return int(r-'A') + 10
	}
	return -1
}

func parseFloatPrefix(s string) float64 {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	best := math.NaN()
	for i := 1; i <= len(s); i++ {
		p := s[:i]
		body := strings.TrimLeft(p, "+-")
		if len(p)-len(body) > 1 {
			break
		}
		if isDecimalLiteral(body) {
			best, _ = strconv.ParseFloat(p, 64)
		} else if strings.HasPrefix("Infinity", body) && body != "" {
			if body == "Infinity" {
				best = math.Inf(1)
				if p[0] == '-' {
					best = math.Inf(-1)
				}
			}
		} else if !(body == "" || strings.HasSuffix(body, ".") || strings.HasSuffix(body, "e") ||
			strings.HasSuffix(body, "E") || strings.HasSuffix(body, "e-") || strings.HasSuffix(body, "e+")) {
			break
		}
	}
	return best
}

package player

import (
	"math"
	"strings"

	"github.com/chazu/reel/avm"
	"github.com/chazu/reel/display"
	"github.com/chazu/reel/geom"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// ---------------------------------------------------------------------------
// flash.geom
// ---------------------------------------------------------------------------

// Point, Rectangle, Matrix and ColorTransform are plain script objects:
// scripts read and write their members freely and every method reads the
// members back. Transform is host-backed and edits a live instance. Script
// units are pixels throughout.

type geomProtos struct {
	point, rect, matrix, color, transform *avm.Object
}

func (g *geomProtos) roots() []*avm.Object {
	return []*avm.Object{g.point, g.rect, g.matrix, g.color, g.transform}
}

func (p *Player) member(o *avm.Object, name string) float64 {
	return p.vm.ToNumber(p.vm.GetMember(o, name))
}

func numberOr(c *avm.Call, i int, def float64) float64 {
	if i >= len(c.Args) || c.Args[i].IsUndefined() {
		return def
	}
	return c.NumberArg(i)
}

// accessor installs a native getter and optional setter, hidden from for-in.
func (p *Player) accessor(proto *avm.Object, name string, get func(o *avm.Object) avm.Value, set func(o *avm.Object, v avm.Value)) {
	getter := p.vm.NewNative(name, func(c *avm.Call) (avm.Value, error) {
		return get(c.ThisObject()), nil
	})
	var setter *avm.Object
	if set != nil {
		setter = p.vm.NewNative(name, func(c *avm.Call) (avm.Value, error) {
			if o := c.ThisObject(); o != nil {
				set(o, c.Arg(0))
			}
			return avm.Undefined, nil
		})
	}
	proto.DefineAccessor(name, getter, setter)
	proto.SetFlags(name, avm.DontEnum, 0)
}

// describe renders "(k=v, ...)" the way the geometry classes print.
func (p *Player) describe(o *avm.Object, keys ...string) avm.Value {
	parts := make([]string, len(keys))
	for i, k := range keys {
		label := k
		switch k {
		case "width":
			label = "w"
		case "height":
			label = "h"
		}
		parts[i] = label + "=" + p.vm.ToString(p.vm.GetMember(o, k))
	}
	return avm.String("(" + strings.Join(parts, ", ") + ")")
}

func (p *Player) installGeom() {
	ns := p.vm.NewObject()
	ns.Put("Point", avm.Obj(p.installPoint()))
	ns.Put("Rectangle", avm.Obj(p.installRectangle()))
	ns.Put("Matrix", avm.Obj(p.installMatrix()))
	ns.Put("ColorTransform", avm.Obj(p.installColorTransform()))
	ns.Put("Transform", avm.Obj(p.installTransform()))
	flash := p.vm.NewObject()
	flash.Put("geom", avm.Obj(ns))
	p.vm.SetGlobal("flash", avm.Obj(flash))
}

// ---------------------------------------------------------------------------
// Point
// ---------------------------------------------------------------------------

func (p *Player) newPoint(x, y float64) avm.Value {
	o := p.vm.NewObjectWithProto(p.flashGeom.point, "Object")
	o.Put("x", avm.Number(x))
	o.Put("y", avm.Number(y))
	return avm.Obj(o)
}

func (p *Player) xy(o *avm.Object) (float64, float64) {
	return p.member(o, "x"), p.member(o, "y")
}

func (p *Player) installPoint() *avm.Object {
	vm := p.vm
	proto := vm.NewObject()
	p.flashGeom.point = proto
	ctor := vm.NewConstructor("Point", func(c *avm.Call) (avm.Value, error) {
		if o := c.ThisObject(); c.Construct && o != nil {
			o.Put("x", avm.Number(numberOr(c, 0, 0)))
			o.Put("y", avm.Number(numberOr(c, 1, 0)))
		}
		return c.This, nil
	}, proto)

	p.accessor(proto, "length", func(o *avm.Object) avm.Value {
		x, y := p.xy(o)
		return avm.Number(math.Hypot(x, y))
	}, nil)
	vm.SetMethod(proto, "add", func(c *avm.Call) (avm.Value, error) {
		x, y := p.xy(c.ThisObject())
		dx, dy := p.xy(c.Arg(0).Object())
		return p.newPoint(x+dx, y+dy), nil
	})
	vm.SetMethod(proto, "subtract", func(c *avm.Call) (avm.Value, error) {
		x, y := p.xy(c.ThisObject())
		dx, dy := p.xy(c.Arg(0).Object())
		return p.newPoint(x-dx, y-dy), nil
	})
	vm.SetMethod(proto, "clone", func(c *avm.Call) (avm.Value, error) {
		return p.newPoint(p.xy(c.ThisObject())), nil
	})
	vm.SetMethod(proto, "equals", func(c *avm.Call) (avm.Value, error) {
		other := c.Arg(0).Object()
		if other == nil {
			return avm.False, nil
		}
		x, y := p.xy(c.ThisObject())
		ox, oy := p.xy(other)
		return avm.Bool(x == ox && y == oy), nil
	})
	vm.SetMethod(proto, "normalize", func(c *avm.Call) (avm.Value, error) {
		o := c.ThisObject()
		x, y := p.xy(o)
		if l := math.Hypot(x, y); o != nil && l > 0 {
			k := c.NumberArg(0) / l
			o.Put("x", avm.Number(x*k))
			o.Put("y", avm.Number(y*k))
		}
		return avm.Undefined, nil
	})
	vm.SetMethod(proto, "offset", func(c *avm.Call) (avm.Value, error) {
		if o := c.ThisObject(); o != nil {
			x, y := p.xy(o)
			o.Put("x", avm.Number(x+c.NumberArg(0)))
			o.Put("y", avm.Number(y+c.NumberArg(1)))
		}
		return avm.Undefined, nil
	})
	vm.SetMethod(proto, "toString", func(c *avm.Call) (avm.Value, error) {
		return p.describe(c.ThisObject(), "x", "y"), nil
	})

	vm.SetMethod(ctor, "distance", func(c *avm.Call) (avm.Value, error) {
		ax, ay := p.xy(c.Arg(0).Object())
		bx, by := p.xy(c.Arg(1).Object())
		return avm.Number(math.Hypot(ax-bx, ay-by)), nil
	})
	// interpolate returns the first point at f=1 and the second at f=0.
	vm.SetMethod(ctor, "interpolate", func(c *avm.Call) (avm.Value, error) {
		ax, ay := p.xy(c.Arg(0).Object())
		bx, by := p.xy(c.Arg(1).Object())
		f := c.NumberArg(2)
		return p.newPoint(bx+f*(ax-bx), by+f*(ay-by)), nil
	})
	vm.SetMethod(ctor, "polar", func(c *avm.Call) (avm.Value, error) {
		l := c.NumberArg(0)
		sin, cos := math.Sincos(c.NumberArg(1))
		return p.newPoint(l*cos, l*sin), nil
	})
	return ctor
}

// ---------------------------------------------------------------------------
// Rectangle
// ---------------------------------------------------------------------------

// box is a Rectangle's members: origin and size, which may be negative.
type box struct {
	x, y, w, h float64
}

func (b box) empty() bool { return !(b.w > 0 && b.h > 0) }
func (b box) right() float64 { return b.x + b.w }
func (b box) bottom() float64 { return b.y + b.h }

func (b box) contains(x, y float64) bool {
	return x >= b.x && x < b.right() && y >= b.y && y < b.bottom()
}

func (b box) intersection(o box) box {
	x0, y0 := math.Max(b.x, o.x), math.Max(b.y, o.y)
	x1, y1 := math.Min(b.right(), o.right()), math.Min(b.bottom(), o.bottom())
	if x1 <= x0 || y1 <= y0 {
		return box{}
	}
	return box{x0, y0, x1 - x0, y1 - y0}
}

func (b box) union(o box) box {
	switch {
	case b.empty():
		return o
	case o.empty():
		return b
	}
	x0, y0 := math.Min(b.x, o.x), math.Min(b.y, o.y)
	x1, y1 := math.Max(b.right(), o.right()), math.Max(b.bottom(), o.bottom())
	return box{x0, y0, x1 - x0, y1 - y0}
}

// boxFromRect converts twip bounds into a pixel box.
func boxFromRect(r geom.Rect) box {
	if r.IsEmpty() {
		return box{}
	}
	return box{
		x: r.XMin / geom.TwipsPerPixel,
		y: r.YMin / geom.TwipsPerPixel,
		w: r.Width() / geom.TwipsPerPixel,
		h: r.Height() / geom.TwipsPerPixel,
	}
}

func (p *Player) boxOf(o *avm.Object) box {
	return box{p.member(o, "x"), p.member(o, "y"), p.member(o, "width"), p.member(o, "height")}
}

func storeBox(o *avm.Object, b box) {
	o.Put("x", avm.Number(b.x))
	o.Put("y", avm.Number(b.y))
	o.Put("width", avm.Number(b.w))
	o.Put("height", avm.Number(b.h))
}

func (p *Player) newRect(b box) avm.Value {
	o := p.vm.NewObjectWithProto(p.flashGeom.rect, "Object")
	storeBox(o, b)
	return avm.Obj(o)
}

func (p *Player) installRectangle() *avm.Object {
	vm := p.vm
	proto := vm.NewObject()
	p.flashGeom.rect = proto
	ctor := vm.NewConstructor("Rectangle", func(c *avm.Call) (avm.Value, error) {
		if o := c.ThisObject(); c.Construct && o != nil {
			storeBox(o, box{numberOr(c, 0, 0), numberOr(c, 1, 0), numberOr(c, 2, 0), numberOr(c, 3, 0)})
		}
		return c.This, nil
	}, proto)

	// edit applies fn to the receiver's box and stores the result.
	edit := func(fn func(b *box, v avm.Value)) func(o *avm.Object, v avm.Value) {
		return func(o *avm.Object, v avm.Value) {
			b := p.boxOf(o)
			fn(&b, v)
			storeBox(o, b)
		}
	}
	p.accessor(proto, "left", func(o *avm.Object) avm.Value { return avm.Number(p.boxOf(o).x) },
		edit(func(b *box, v avm.Value) {
			n := vm.ToNumber(v)
			b.w += b.x - n
			b.x = n
		}))
	p.accessor(proto, "right", func(o *avm.Object) avm.Value { return avm.Number(p.boxOf(o).right()) },
		edit(func(b *box, v avm.Value) { b.w = vm.ToNumber(v) - b.x }))
	p.accessor(proto, "top", func(o *avm.Object) avm.Value { return avm.Number(p.boxOf(o).y) },
		edit(func(b *box, v avm.Value) {
			n := vm.ToNumber(v)
			b.h += b.y - n
			b.y = n
		}))
	p.accessor(proto, "bottom", func(o *avm.Object) avm.Value { return avm.Number(p.boxOf(o).bottom()) },
		edit(func(b *box, v avm.Value) { b.h = vm.ToNumber(v) - b.y }))
	p.accessor(proto, "size", func(o *avm.Object) avm.Value {
		b := p.boxOf(o)
		return p.newPoint(b.w, b.h)
	}, edit(func(b *box, v avm.Value) { b.w, b.h = p.xy(v.Object()) }))
	p.accessor(proto, "topLeft", func(o *avm.Object) avm.Value {
		b := p.boxOf(o)
		return p.newPoint(b.x, b.y)
	}, edit(func(b *box, v avm.Value) {
		x, y := p.xy(v.Object())
		b.w, b.h = b.w+b.x-x, b.h+b.y-y
		b.x, b.y = x, y
	}))
	p.accessor(proto, "bottomRight", func(o *avm.Object) avm.Value {
		b := p.boxOf(o)
		return p.newPoint(b.right(), b.bottom())
	}, edit(func(b *box, v avm.Value) {
		x, y := p.xy(v.Object())
		b.w, b.h = x-b.x, y-b.y
	}))

	method := func(name string, fn func(c *avm.Call, b box) avm.Value) {
		vm.SetMethod(proto, name, func(c *avm.Call) (avm.Value, error) {
			return fn(c, p.boxOf(c.ThisObject())), nil
		})
	}
	other := func(c *avm.Call) box { return p.boxOf(c.Arg(0).Object()) }
	mutate := func(c *avm.Call, b box) avm.Value {
		if o := c.ThisObject(); o != nil {
			storeBox(o, b)
		}
		return avm.Undefined
	}

	method("clone", func(c *avm.Call, b box) avm.Value { return p.newRect(b) })
	method("isEmpty", func(c *avm.Call, b box) avm.Value { return avm.Bool(b.empty()) })
	method("setEmpty", func(c *avm.Call, b box) avm.Value { return mutate(c, box{}) })
	method("contains", func(c *avm.Call, b box) avm.Value {
		return avm.Bool(b.contains(c.NumberArg(0), c.NumberArg(1)))
	})
	method("containsPoint", func(c *avm.Call, b box) avm.Value {
		return avm.Bool(b.contains(p.xy(c.Arg(0).Object())))
	})
	method("containsRectangle", func(c *avm.Call, b box) avm.Value {
		o := other(c)
		if b.empty() || o.empty() {
			return avm.False
		}
		return avm.Bool(o.x >= b.x && o.y >= b.y && o.right() <= b.right() && o.bottom() <= b.bottom())
	})
	method("intersects", func(c *avm.Call, b box) avm.Value {
		return avm.Bool(!b.intersection(other(c)).empty())
	})
	method("intersection", func(c *avm.Call, b box) avm.Value { return p.newRect(b.intersection(other(c))) })
	method("union", func(c *avm.Call, b box) avm.Value { return p.newRect(b.union(other(c))) })
	method("equals", func(c *avm.Call, b box) avm.Value {
		if c.Arg(0).Object() == nil {
			return avm.False
		}
		return avm.Bool(b == other(c))
	})
	method("offset", func(c *avm.Call, b box) avm.Value {
		b.x += c.NumberArg(0)
		b.y += c.NumberArg(1)
		return mutate(c, b)
	})
	method("offsetPoint", func(c *avm.Call, b box) avm.Value {
		dx, dy := p.xy(c.Arg(0).Object())
		b.x, b.y = b.x+dx, b.y+dy
		return mutate(c, b)
	})
	method("inflate", func(c *avm.Call, b box) avm.Value {
		dx, dy := c.NumberArg(0), c.NumberArg(1)
		return mutate(c, box{b.x - dx, b.y - dy, b.w + 2*dx, b.h + 2*dy})
	})
	method("inflatePoint", func(c *avm.Call, b box) avm.Value {
		dx, dy := p.xy(c.Arg(0).Object())
		return mutate(c, box{b.x - dx, b.y - dy, b.w + 2*dx, b.h + 2*dy})
	})
	vm.SetMethod(proto, "toString", func(c *avm.Call) (avm.Value, error) {
		return p.describe(c.ThisObject(), "x", "y", "width", "height"), nil
	})
	return ctor
}

// ---------------------------------------------------------------------------
// Matrix
// ---------------------------------------------------------------------------

var matrixMembers = []string{"a", "b", "c", "d", "tx", "ty"}

// pixelMatrix converts an instance matrix to script units.
func pixelMatrix(m geom.Matrix) geom.Matrix {
	m.TX /= geom.TwipsPerPixel
	m.TY /= geom.TwipsPerPixel
	return m
}

func twipMatrix(m geom.Matrix) geom.Matrix {
	m.TX *= geom.TwipsPerPixel
	m.TY *= geom.TwipsPerPixel
	return m
}

func (p *Player) matrixOf(o *avm.Object) geom.Matrix {
	return geom.Matrix{
		A: p.member(o, "a"), B: p.member(o, "b"),
		C: p.member(o, "c"), D: p.member(o, "d"),
		TX: p.member(o, "tx"), TY: p.member(o, "ty"),
	}
}

func storeMatrix(o *avm.Object, m geom.Matrix) {
	for i, v := range [6]float64{m.A, m.B, m.C, m.D, m.TX, m.TY} {
		o.Put(matrixMembers[i], avm.Number(v))
	}
}

func (p *Player) newMatrix(m geom.Matrix) avm.Value {
	o := p.vm.NewObjectWithProto(p.flashGeom.matrix, "Object")
	storeMatrix(o, m)
	return avm.Obj(o)
}

func (p *Player) installMatrix() *avm.Object {
	vm := p.vm
	proto := vm.NewObject()
	p.flashGeom.matrix = proto
	ctor := vm.NewConstructor("Matrix", func(c *avm.Call) (avm.Value, error) {
		if o := c.ThisObject(); c.Construct && o != nil {
			storeMatrix(o, geom.Matrix{
				A: numberOr(c, 0, 1), B: numberOr(c, 1, 0),
				C: numberOr(c, 2, 0), D: numberOr(c, 3, 1),
				TX: numberOr(c, 4, 0), TY: numberOr(c, 5, 0),
			})
		}
		return c.This, nil
	}, proto)

	// update replaces the receiver with fn of its current value.
	update := func(name string, fn func(c *avm.Call, m geom.Matrix) geom.Matrix) {
		vm.SetMethod(proto, name, func(c *avm.Call) (avm.Value, error) {
			if o := c.ThisObject(); o != nil {
				storeMatrix(o, fn(c, p.matrixOf(o)))
			}
			return avm.Undefined, nil
		})
	}
	update("identity", func(c *avm.Call, m geom.Matrix) geom.Matrix { return geom.Identity() })
	// concat appends the argument: the result applies the receiver first.
	update("concat", func(c *avm.Call, m geom.Matrix) geom.Matrix {
		return p.matrixOf(c.Arg(0).Object()).Concat(m)
	})
	// A singular matrix is left as it is.
	update("invert", func(c *avm.Call, m geom.Matrix) geom.Matrix {
		if inv, ok := m.Inverse(); ok {
			return inv
		}
		return m
	})
	update("translate", func(c *avm.Call, m geom.Matrix) geom.Matrix {
		return geom.Translate(c.NumberArg(0), c.NumberArg(1)).Concat(m)
	})
	update("scale", func(c *avm.Call, m geom.Matrix) geom.Matrix {
		return geom.Matrix{A: c.NumberArg(0), D: c.NumberArg(1)}.Concat(m)
	})
	update("rotate", func(c *avm.Call, m geom.Matrix) geom.Matrix {
		return geom.Compose(0, 0, 1, 1, c.NumberArg(0)*180/math.Pi).Concat(m)
	})
	update("createBox", func(c *avm.Call, m geom.Matrix) geom.Matrix {
		return geom.Compose(numberOr(c, 3, 0), numberOr(c, 4, 0),
			c.NumberArg(0), c.NumberArg(1), numberOr(c, 2, 0)*180/math.Pi)
	})
	// Gradient boxes map the 1638.4-unit gradient square onto the box.
	update("createGradientBox", func(c *avm.Call, m geom.Matrix) geom.Matrix {
		w, h := c.NumberArg(0), c.NumberArg(1)
		return geom.Compose(numberOr(c, 3, 0)+w/2, numberOr(c, 4, 0)+h/2,
			w/1638.4, h/1638.4, numberOr(c, 2, 0)*180/math.Pi)
	})

	vm.SetMethod(proto, "clone", func(c *avm.Call) (avm.Value, error) {
		return p.newMatrix(p.matrixOf(c.ThisObject())), nil
	})
	vm.SetMethod(proto, "transformPoint", func(c *avm.Call) (avm.Value, error) {
		x, y := p.xy(c.Arg(0).Object())
		out := p.matrixOf(c.ThisObject()).Transform(geom.Point{X: x, Y: y})
		return p.newPoint(out.X, out.Y), nil
	})
	vm.SetMethod(proto, "deltaTransformPoint", func(c *avm.Call) (avm.Value, error) {
		x, y := p.xy(c.Arg(0).Object())
		m := p.matrixOf(c.ThisObject())
		m.TX, m.TY = 0, 0
		out := m.Transform(geom.Point{X: x, Y: y})
		return p.newPoint(out.X, out.Y), nil
	})
	vm.SetMethod(proto, "toString", func(c *avm.Call) (avm.Value, error) {
		return p.describe(c.ThisObject(), matrixMembers...), nil
	})
	return ctor
}

// ---------------------------------------------------------------------------
// ColorTransform
// ---------------------------------------------------------------------------

// colorTransformMembers are in constructor order. Multipliers are fractions,
// unlike the percentages of Color.setTransform.
var colorTransformMembers = []struct {
	name string
	ch   func(t *geom.ColorTransform) *float64
}{
	{"redMultiplier", func(t *geom.ColorTransform) *float64 { return &t.RMul }},
	{"greenMultiplier", func(t *geom.ColorTransform) *float64 { return &t.GMul }},
	{"blueMultiplier", func(t *geom.ColorTransform) *float64 { return &t.BMul }},
	{"alphaMultiplier", func(t *geom.ColorTransform) *float64 { return &t.AMul }},
	{"redOffset", func(t *geom.ColorTransform) *float64 { return &t.RAdd }},
	{"greenOffset", func(t *geom.ColorTransform) *float64 { return &t.GAdd }},
	{"blueOffset", func(t *geom.ColorTransform) *float64 { return &t.BAdd }},
	{"alphaOffset", func(t *geom.ColorTransform) *float64 { return &t.AAdd }},
}

func (p *Player) colorTransformOf(o *avm.Object) geom.ColorTransform {
	var t geom.ColorTransform
	for _, k := range colorTransformMembers {
		*k.ch(&t) = p.member(o, k.name)
	}
	return t
}

func storeColorTransform(o *avm.Object, t geom.ColorTransform) {
	for _, k := range colorTransformMembers {
		o.Put(k.name, avm.Number(*k.ch(&t)))
	}
}

func (p *Player) newColorTransform(t geom.ColorTransform) avm.Value {
	o := p.vm.NewObjectWithProto(p.flashGeom.color, "Object")
	storeColorTransform(o, t)
	return avm.Obj(o)
}

func (p *Player) installColorTransform() *avm.Object {
	vm := p.vm
	proto := vm.NewObject()
	p.flashGeom.color = proto
	ctor := vm.NewConstructor("ColorTransform", func(c *avm.Call) (avm.Value, error) {
		if o := c.ThisObject(); c.Construct && o != nil {
			t := geom.IdentityColor()
			for i, k := range colorTransformMembers {
				ch := k.ch(&t)
				*ch = numberOr(c, i, *ch)
			}
			storeColorTransform(o, t)
		}
		return c.This, nil
	}, proto)

	// rgb reads the offsets as 0xRRGGBB; writing it tints like Color.setRGB.
	p.accessor(proto, "rgb", func(o *avm.Object) avm.Value {
		t := p.colorTransformOf(o)
		col := colorful.Color{R: t.RAdd / 255, G: t.GAdd / 255, B: t.BAdd / 255}
		return avm.Number(float64(geom.RGB(col)))
	}, func(o *avm.Object, v avm.Value) {
		t := p.colorTransformOf(o)
		tint := geom.Tint(geom.FromRGB(vm.ToUint32(v)))
		tint.AMul, tint.AAdd = t.AMul, t.AAdd
		storeColorTransform(o, tint)
	})
	vm.SetMethod(proto, "concat", func(c *avm.Call) (avm.Value, error) {
		if o := c.ThisObject(); o != nil {
			second := p.colorTransformOf(c.Arg(0).Object())
			storeColorTransform(o, p.colorTransformOf(o).Concat(second))
		}
		return avm.Undefined, nil
	})
	vm.SetMethod(proto, "toString", func(c *avm.Call) (avm.Value, error) {
		keys := make([]string, len(colorTransformMembers))
		for i, k := range colorTransformMembers {
			keys[i] = k.name
		}
		return p.describe(c.ThisObject(), keys...), nil
	})
	return ctor
}

// ---------------------------------------------------------------------------
// Transform
// ---------------------------------------------------------------------------

// transformHost backs a Transform object. Every read returns a fresh copy;
// assigning matrix or colorTransform writes through to the instance. Once
// the instance is removed the members read as undefined.
type transformHost struct {
	p    *Player
	inst *display.Instance
}

var transformMembers = []string{"matrix", "concatenatedMatrix", "colorTransform", "concatenatedColorTransform", "pixelBounds"}

func (h *transformHost) live() *display.Instance {
	if h.inst == nil || h.inst.Removed {
		return nil
	}
	return h.inst
}

func (h *transformHost) GetMember(name string) (avm.Value, bool) {
	inst := h.live()
	p := h.p
	var v avm.Value
	switch {
	case inst == nil:
		v = avm.Undefined
	case name == "matrix":
		v = p.newMatrix(pixelMatrix(inst.Matrix))
	case name == "concatenatedMatrix":
		v = p.newMatrix(pixelMatrix(inst.WorldMatrix()))
	case name == "colorTransform":
		v = p.newColorTransform(inst.Color)
	case name == "concatenatedColorTransform":
		v = p.newColorTransform(inst.WorldColor())
	case name == "pixelBounds":
		v = p.newRect(boxFromRect(p.worldBounds(inst)))
	}
	for _, m := range transformMembers {
		if m == name {
			return v, true
		}
	}
	return avm.Undefined, false
}

func (h *transformHost) SetMember(name string, v avm.Value) bool {
	inst := h.live()
	o := v.Object()
	switch name {
	case "matrix":
		if inst != nil && o != nil {
			inst.Matrix = twipMatrix(h.p.matrixOf(o))
		}
	case "colorTransform":
		if inst != nil && o != nil {
			inst.Color = h.p.colorTransformOf(o)
		}
	case "concatenatedMatrix", "concatenatedColorTransform", "pixelBounds":
	default:
		return false
	}
	return true
}

func (h *transformHost) Members() []string {
	return transformMembers
}

func (p *Player) newTransform(inst *display.Instance) avm.Value {
	o := p.vm.NewObjectWithProto(p.flashGeom.transform, "Object")
	o.SetHost(&transformHost{p: p, inst: inst})
	return avm.Obj(o)
}

func (p *Player) installTransform() *avm.Object {
	proto := p.vm.NewObject()
	p.flashGeom.transform = proto
	return p.vm.NewConstructor("Transform", func(c *avm.Call) (avm.Value, error) {
		if o := c.ThisObject(); c.Construct && o != nil {
			o.SetHost(&transformHost{p: p, inst: p.instanceOf(c.Arg(0).Object())})
		}
		return c.This, nil
	}, proto)
}

// assignTransform copies the matrix and colour of the instance behind a
// Transform object onto i.
func (p *Player) assignTransform(i *display.Instance, v avm.Value) {
	o := v.Object()
	if o == nil {
		return
	}
	if th, ok := o.Host().(*transformHost); ok {
		if src := th.live(); src != nil {
			i.Matrix, i.Color = src.Matrix, src.Color
		}
		return
	}
	if m := p.vm.GetMember(o, "matrix").Object(); m != nil {
		i.Matrix = twipMatrix(p.matrixOf(m))
	}
	if ct := p.vm.GetMember(o, "colorTransform").Object(); ct != nil {
		i.Color = p.colorTransformOf(ct)
	}
}

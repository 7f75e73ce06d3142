package player

import (
	"math"
	"strings"

	"github.com/chazu/reel/avm"
	"github.com/chazu/reel/display"
	"github.com/chazu/reel/geom"
	"github.com/chazu/reel/movie"
)

// ---------------------------------------------------------------------------
// Instance bindings
// ---------------------------------------------------------------------------

// instanceHost backs the script object of a display instance. Its members
// read and write the live instance; once the instance is removed the host
// goes inert and the object behaves like a plain object.
type instanceHost struct {
	p    *Player
	inst *display.Instance
	// format is the text format of a text field, set up on first use.
	format textFormat
}

type instanceProp struct {
	get func(p *Player, i *display.Instance) avm.Value
	// set is nil for read-only properties; writes to them are dropped.
	set func(p *Player, i *display.Instance, v avm.Value)
}

func (h *instanceHost) GetMember(name string) (avm.Value, bool) {
	inst := h.inst
	if inst.Removed {
		return avm.Undefined, false
	}
	if prop, ok := instanceProps[name]; ok {
		return prop.get(h.p, inst), true
	}
	if inst.Kind == movie.KindText {
		if prop, ok := textProps[name]; ok {
			return prop.get(h.p, inst), true
		}
	}
	if l := inst.Children(); l != nil && inst.Kind == movie.KindSprite {
		if c := l.Named(name); c != nil {
			if o := h.p.bind(c); o != nil {
				return avm.Obj(o), true
			}
		}
	}
	return avm.Undefined, false
}

func (h *instanceHost) SetMember(name string, v avm.Value) bool {
	inst := h.inst
	if inst.Removed {
		return false
	}
	prop, ok := instanceProps[name]
	if !ok && inst.Kind == movie.KindText {
		prop, ok = textProps[name]
	}
	if !ok {
		return false
	}
	if prop.set != nil {
		prop.set(h.p, inst, v)
	}
	return true
}

// Members lists the named child instances, which for-in enumerates.
func (h *instanceHost) Members() []string {
	l := h.inst.Children()
	if l == nil || h.inst.Removed || h.inst.Kind != movie.KindSprite {
		return nil
	}
	var out []string
	for _, c := range l.ByPlacement() {
		if c.Name != "" && c.Binding != nil {
			out = append(out, c.Name)
		}
	}
	return out
}

// bind returns the script object of inst, creating it on first use. Shapes,
// bitmaps and placeholders have none.
func (p *Player) bind(inst *display.Instance) *avm.Object {
	if inst == nil {
		return nil
	}
	if o, ok := inst.Binding.(*avm.Object); ok {
		return o
	}
	var proto *avm.Object
	var class string
	switch inst.Kind {
	case movie.KindSprite:
		proto, class = p.clipProto, "MovieClip"
	case movie.KindButton:
		proto, class = p.buttonProto, "Button"
	case movie.KindText:
		proto, class = p.textProto, "TextField"
	default:
		return nil
	}
	if ctor := p.classes[inst.Character]; ctor != nil {
		if cp := p.vm.GetMember(ctor, "prototype").Object(); cp != nil {
			proto = cp
		}
	}
	o := p.vm.NewObjectWithProto(proto, class)
	o.SetHost(&instanceHost{p: p, inst: inst})
	inst.Binding = o
	return o
}

// instanceOf maps a script object back to its live display instance.
func (p *Player) instanceOf(o *avm.Object) *display.Instance {
	if o == nil {
		return nil
	}
	h, ok := o.Host().(*instanceHost)
	if !ok || h.p != p || h.inst.Removed {
		return nil
	}
	return h.inst
}

// ---------------------------------------------------------------------------
// Properties
// ---------------------------------------------------------------------------

func twips(p *Player, v avm.Value) (float64, bool) {
	n := p.vm.ToNumber(v)
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n * geom.TwipsPerPixel, true
}

func number(p *Player, v avm.Value) (float64, bool) {
	n := p.vm.ToNumber(v)
	return n, !math.IsNaN(n) && !math.IsInf(n, 0)
}

func constant(v avm.Value) func(*Player, *display.Instance) avm.Value {
	return func(*Player, *display.Instance) avm.Value { return v }
}

// parentBounds returns the bounds of i in its parent's space.
func (p *Player) parentBounds(i *display.Instance) geom.Rect {
	b := p.tree.Bounds(i)
	if b.IsEmpty() {
		return geom.Rect{}
	}
	return i.Matrix.TransformRect(b)
}

// worldBounds returns the bounds of i in stage space.
func (p *Player) worldBounds(i *display.Instance) geom.Rect {
	b := p.tree.Bounds(i)
	if b.IsEmpty() {
		return geom.Rect{}
	}
	return i.WorldMatrix().TransformRect(b)
}

// toLocal maps a stage point into the coordinate space of i.
func toLocal(i *display.Instance, pt geom.Point) geom.Point {
	inv, ok := i.WorldMatrix().Inverse()
	if !ok {
		return pt
	}
	return inv.Transform(pt)
}

// toParent maps a stage point into the space i is positioned in.
func toParent(i *display.Instance, pt geom.Point) geom.Point {
	if i.Parent() == nil {
		return pt
	}
	return toLocal(i.Parent(), pt)
}

var instanceProps map[string]instanceProp

func init() {
	instanceProps = map[string]instanceProp{
		"_x": {
			get: func(p *Player, i *display.Instance) avm.Value { return avm.Number(i.Matrix.TX / geom.TwipsPerPixel) },
			set: func(p *Player, i *display.Instance, v avm.Value) {
				if t, ok := twips(p, v); ok {
					i.Matrix.TX = t
				}
			},
		},
		"_y": {
			get: func(p *Player, i *display.Instance) avm.Value { return avm.Number(i.Matrix.TY / geom.TwipsPerPixel) },
			set: func(p *Player, i *display.Instance, v avm.Value) {
				if t, ok := twips(p, v); ok {
					i.Matrix.TY = t
				}
			},
		},
		"_xscale": {
			get: func(p *Player, i *display.Instance) avm.Value { return avm.Number(i.Matrix.XScale() * 100) },
			set: func(p *Player, i *display.Instance, v avm.Value) {
				if n, ok := number(p, v); ok {
					i.Matrix = i.Matrix.WithScale(n/100, i.Matrix.YScale())
				}
			},
		},
		"_yscale": {
			get: func(p *Player, i *display.Instance) avm.Value { return avm.Number(i.Matrix.YScale() * 100) },
			set: func(p *Player, i *display.Instance, v avm.Value) {
				if n, ok := number(p, v); ok {
					i.Matrix = i.Matrix.WithScale(i.Matrix.XScale(), n/100)
				}
			},
		},
		"_rotation": {
			get: func(p *Player, i *display.Instance) avm.Value { return avm.Number(i.Matrix.Rotation()) },
			set: func(p *Player, i *display.Instance, v avm.Value) {
				if n, ok := number(p, v); ok {
					i.Matrix = i.Matrix.WithRotation(n)
				}
			},
		},
		"_alpha": {
			get: func(p *Player, i *display.Instance) avm.Value { return avm.Number(i.Color.AMul * 100) },
			set: func(p *Player, i *display.Instance, v avm.Value) {
				if n, ok := number(p, v); ok {
					i.Color.AMul = n / 100
				}
			},
		},
		"_visible": {
			get: func(p *Player, i *display.Instance) avm.Value { return avm.Bool(i.Visible) },
			set: func(p *Player, i *display.Instance, v avm.Value) { i.Visible = p.vm.ToBoolean(v) },
		},
		"_width": {
			get: func(p *Player, i *display.Instance) avm.Value {
				return avm.Number(p.parentBounds(i).Width() / geom.TwipsPerPixel)
			},
			set: func(p *Player, i *display.Instance, v avm.Value) {
				w := p.tree.Bounds(i).Width()
				if t, ok := twips(p, v); ok && w > 0 {
					i.Matrix = i.Matrix.WithScale(t/w, i.Matrix.YScale())
				}
			},
		},
		"_height": {
			get: func(p *Player, i *display.Instance) avm.Value {
				return avm.Number(p.parentBounds(i).Height() / geom.TwipsPerPixel)
			},
			set: func(p *Player, i *display.Instance, v avm.Value) {
				h := p.tree.Bounds(i).Height()
				if t, ok := twips(p, v); ok && h > 0 {
					i.Matrix = i.Matrix.WithScale(i.Matrix.XScale(), t/h)
				}
			},
		},
		"_currentframe": {get: func(p *Player, i *display.Instance) avm.Value {
			if i.Clip == nil {
				return avm.Undefined
			}
			return avm.Int(i.Clip.Frame)
		}},
		"_totalframes":  {get: framesTotal},
		"_framesloaded": {get: framesTotal},
		"_name": {
			get: func(p *Player, i *display.Instance) avm.Value { return avm.String(i.Name) },
			set: func(p *Player, i *display.Instance, v avm.Value) { i.Name = p.vm.ToString(v) },
		},
		"_target": {get: func(p *Player, i *display.Instance) avm.Value { return avm.String(i.SlashPath()) }},
		"_parent": {get: func(p *Player, i *display.Instance) avm.Value {
			if o := p.bind(i.Parent()); o != nil {
				return avm.Obj(o)
			}
			return avm.Undefined
		}},
		"_root":   {get: func(p *Player, i *display.Instance) avm.Value { return avm.Obj(p.bind(p.root)) }},
		"_level0": {get: func(p *Player, i *display.Instance) avm.Value { return avm.Obj(p.bind(p.root)) }},
		"_xmouse": {get: func(p *Player, i *display.Instance) avm.Value {
			return avm.Number(toLocal(i, p.router.pointer).X / geom.TwipsPerPixel)
		}},
		"_ymouse": {get: func(p *Player, i *display.Instance) avm.Value {
			return avm.Number(toLocal(i, p.router.pointer).Y / geom.TwipsPerPixel)
		}},
		"enabled": {
			get: func(p *Player, i *display.Instance) avm.Value { return avm.Bool(i.Enabled) },
			set: func(p *Player, i *display.Instance, v avm.Value) { i.Enabled = p.vm.ToBoolean(v) },
		},
		"transform": {
			get: func(p *Player, i *display.Instance) avm.Value { return p.newTransform(i) },
			set: func(p *Player, i *display.Instance, v avm.Value) { p.assignTransform(i, v) },
		},
		"_droptarget":   {get: constant(avm.String(""))},
		"_url":          {get: constant(avm.String(""))},
		"_highquality":  {get: constant(avm.Int(1))},
		"_quality":      {get: constant(avm.String("HIGH"))},
		"_focusrect":    {get: constant(avm.True)},
		"_soundbuftime": {get: constant(avm.Int(5))},
	}
}

func framesTotal(p *Player, i *display.Instance) avm.Value {
	if s := i.Sprite(); s != nil {
		return avm.Int(s.FrameCount())
	}
	return avm.Undefined
}

// ---------------------------------------------------------------------------
// Classes
// ---------------------------------------------------------------------------

type instanceMethod func(c *avm.Call, inst *display.Instance) (avm.Value, error)

// method installs a native on proto whose receiver must be a live instance
// of this player. Calls on anything else return undefined.
func (p *Player) method(proto *avm.Object, name string, fn instanceMethod) {
	p.vm.SetMethod(proto, name, func(c *avm.Call) (avm.Value, error) {
		inst := p.instanceOf(c.ThisObject())
		if inst == nil {
			return avm.Undefined, nil
		}
		return fn(c, inst)
	})
}

func (p *Player) installClasses() {
	vm := p.vm
	newClass := func(name string) *avm.Object {
		proto := vm.NewObject()
		ctor := vm.NewConstructor(name, func(c *avm.Call) (avm.Value, error) {
			return c.This, nil
		}, proto)
		vm.SetGlobal(name, avm.Obj(ctor))
		return proto
	}
	p.clipProto = newClass("MovieClip")
	p.buttonProto = newClass("Button")
	p.textProto = newClass("TextField")

	for _, proto := range []*avm.Object{p.clipProto, p.buttonProto, p.textProto} {
		p.method(proto, "toString", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
			return avm.String(inst.Path()), nil
		})
		p.method(proto, "getDepth", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
			return avm.Int(inst.Depth), nil
		})
		p.method(proto, "swapDepths", p.swapDepths)
	}
	p.installMovieClip()
	p.method(p.textProto, "removeTextField", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		if inst.Dynamic {
			p.tree.RemoveInstance(inst)
		}
		return avm.Undefined, nil
	})

	object := vm.GetMember(vm.Global, "Object").Object()
	vm.SetMethod(object, "registerClass", func(c *avm.Call) (avm.Value, error) {
		ch, ok := p.movie.Dictionary.Exported(c.StringArg(0))
		if !ok {
			return avm.False, nil
		}
		ctor := c.Arg(1).Object()
		if ctor == nil || !ctor.IsCallable() {
			delete(p.classes, ch)
			return avm.True, nil
		}
		p.classes[ch] = ctor
		return avm.True, nil
	})

	p.installInput()
	p.installIntervals()
	p.installColor()
	p.installGeom()
	p.installTextFormat()
	p.installSystem()
	p.installTween()
	p.RegisterGlobal("fscommand", func(c *avm.Call) (avm.Value, error) {
		p.GetURL(fsCommandPrefix+c.StringArg(0), c.StringArg(1), 0)
		return avm.Undefined, nil
	})
	p.RegisterGlobal("updateAfterEvent", func(c *avm.Call) (avm.Value, error) {
		return avm.Undefined, nil
	})
}

func (p *Player) swapDepths(c *avm.Call, inst *display.Instance) (avm.Value, error) {
	parent := inst.Parent()
	if parent == nil {
		return avm.Undefined, nil
	}
	depth := 0
	if other := p.instanceOf(c.Arg(0).Object()); other != nil {
		if other.Parent() != parent {
			return avm.Undefined, nil
		}
		other.Dynamic = true
		depth = other.Depth
	} else {
		n, ok := number(p, c.Arg(0))
		if !ok {
			return avm.Undefined, nil
		}
		depth = int(n)
		if o, ok := parent.Children().At(depth); ok {
			o.Dynamic = true
		}
	}
	// Swapped instances leave timeline control.
	inst.Dynamic = true
	p.tree.SetDepth(inst, depth)
	return avm.Undefined, nil
}

func (p *Player) installMovieClip() {
	mc := p.clipProto
	vm := p.vm

	p.method(mc, "play", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		p.Play(c.ThisObject())
		return avm.Undefined, nil
	})
	p.method(mc, "stop", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		p.Stop(c.ThisObject())
		return avm.Undefined, nil
	})
	p.method(mc, "gotoAndPlay", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		if p.gotoValue(inst, c.Arg(0)) {
			inst.Clip.Playing = true
		}
		return avm.Undefined, nil
	})
	p.method(mc, "gotoAndStop", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		if p.gotoValue(inst, c.Arg(0)) {
			inst.Clip.Playing = false
		}
		return avm.Undefined, nil
	})
	p.method(mc, "nextFrame", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		p.NextFrame(c.ThisObject())
		return avm.Undefined, nil
	})
	p.method(mc, "prevFrame", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		p.PrevFrame(c.ThisObject())
		return avm.Undefined, nil
	})

	p.method(mc, "getNextHighestDepth", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		return avm.Int(max(0, inst.Children().MaxDepth(-1)+1)), nil
	})
	p.method(mc, "getInstanceAtDepth", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		if child, ok := inst.Children().At(c.IntArg(0, 0)); ok {
			if o := p.bind(child); o != nil {
				return avm.Obj(o), nil
			}
		}
		return avm.Undefined, nil
	})

	p.method(mc, "attachMovie", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		ch, ok := p.movie.Dictionary.Exported(c.StringArg(0))
		if !ok {
			log.Debugf("attachMovie: no export named %q", c.StringArg(0))
			return avm.Undefined, nil
		}
		child := p.placeDynamic(inst, ch, c.StringArg(1), c.IntArg(2, 0), nil, c.Arg(3).Object())
		return bindingOrUndefined(p, child), nil
	})
	p.method(mc, "createEmptyMovieClip", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		child := p.placeDynamic(inst, &movie.Sprite{}, c.StringArg(0), c.IntArg(1, 0), nil, nil)
		return bindingOrUndefined(p, child), nil
	})
	p.method(mc, "duplicateMovieClip", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		child := p.duplicate(inst, c.StringArg(0), c.IntArg(1, 0), c.Arg(2).Object())
		return bindingOrUndefined(p, child), nil
	})
	p.method(mc, "removeMovieClip", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		p.RemoveSprite(c.ThisObject())
		return avm.Undefined, nil
	})
	p.method(mc, "createTextField", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		w, h := c.NumberArg(4)*geom.TwipsPerPixel, c.NumberArg(5)*geom.TwipsPerPixel
		field := &movie.EditText{Rect: geom.Rect{XMax: w, YMax: h}}
		m := geom.Translate(c.NumberArg(2)*geom.TwipsPerPixel, c.NumberArg(3)*geom.TwipsPerPixel)
		child := p.placeDynamic(inst, field, c.StringArg(0), c.IntArg(1, 0), &m, nil)
		return bindingOrUndefined(p, child), nil
	})

	p.method(mc, "hitTest", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		if other := p.instanceOf(c.Arg(0).Object()); other != nil {
			return avm.Bool(overlaps(p.worldBounds(inst), p.worldBounds(other))), nil
		}
		pt := geom.Pixels(c.NumberArg(0), c.NumberArg(1))
		if vm.ToBoolean(c.Arg(2)) {
			return avm.Bool(p.tree.HitShape(inst, toParent(inst, pt))), nil
		}
		return avm.Bool(p.worldBounds(inst).Contains(pt)), nil
	})
	p.method(mc, "getBounds", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		b := p.tree.Bounds(inst)
		out := vm.NewObject()
		if !b.IsEmpty() {
			space := p.instanceOf(c.Arg(0).Object())
			if space == nil {
				space = inst
			}
			m := inst.WorldMatrix()
			if inv, ok := space.WorldMatrix().Inverse(); ok {
				m = inv.Concat(m)
			}
			b = m.TransformRect(b)
		}
		for _, kv := range []struct {
			k string
			v float64
		}{{"xMin", b.XMin}, {"xMax", b.XMax}, {"yMin", b.YMin}, {"yMax", b.YMax}} {
			out.Put(kv.k, avm.Number(kv.v/geom.TwipsPerPixel))
		}
		return avm.Obj(out), nil
	})
	p.method(mc, "localToGlobal", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		p.mapPoint(c.Arg(0).Object(), func(pt geom.Point) geom.Point { return inst.WorldMatrix().Transform(pt) })
		return avm.Undefined, nil
	})
	p.method(mc, "globalToLocal", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		p.mapPoint(c.Arg(0).Object(), func(pt geom.Point) geom.Point { return toLocal(inst, pt) })
		return avm.Undefined, nil
	})

	p.method(mc, "startDrag", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		var bounds *[4]float64
		if len(c.Args) >= 5 {
			bounds = &[4]float64{c.NumberArg(1), c.NumberArg(2), c.NumberArg(3), c.NumberArg(4)}
		}
		p.startDrag(inst, vm.ToBoolean(c.Arg(0)), bounds)
		return avm.Undefined, nil
	})
	p.method(mc, "stopDrag", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		p.StopDrag()
		return avm.Undefined, nil
	})
	p.method(mc, "getURL", func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		method := 0
		switch strings.ToUpper(c.StringArg(2)) {
		case "GET":
			method = 1
		case "POST":
			method = 2
		}
		p.GetURL(c.StringArg(0), c.StringArg(1), method)
		return avm.Undefined, nil
	})
}

// mapPoint rewrites the x and y members (pixels) of a point object.
func (p *Player) mapPoint(pt *avm.Object, fn func(geom.Point) geom.Point) {
	if pt == nil {
		return
	}
	in := geom.Pixels(p.vm.ToNumber(p.vm.GetMember(pt, "x")), p.vm.ToNumber(p.vm.GetMember(pt, "y")))
	out := fn(in)
	p.vm.SetMember(pt, "x", avm.Number(out.X/geom.TwipsPerPixel))
	p.vm.SetMember(pt, "y", avm.Number(out.Y/geom.TwipsPerPixel))
}

func bindingOrUndefined(p *Player, inst *display.Instance) avm.Value {
	if o := p.bind(inst); o != nil {
		return avm.Obj(o)
	}
	return avm.Undefined
}

func overlaps(a, b geom.Rect) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return false
	}
	return a.XMin <= b.XMax && b.XMin <= a.XMax && a.YMin <= b.YMax && b.YMin <= a.YMax
}

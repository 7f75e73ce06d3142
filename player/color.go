package player

import (
	"strings"

	"github.com/chazu/reel/avm"
	"github.com/chazu/reel/display"
	"github.com/chazu/reel/geom"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// The Color class edits the colour transform of a target clip. Its Payload
// holds the target as given (clip or path), resolved on every call.

func (p *Player) colorTarget(c *avm.Call) *display.Instance {
	o := c.ThisObject()
	if o == nil {
		return nil
	}
	v, _ := o.Payload.(avm.Value)
	if inst := p.instanceOf(v.Object()); inst != nil {
		return inst
	}
	if v.IsString() {
		return p.resolve(p.root, v.AsString())
	}
	return nil
}

// transformKeys maps setTransform/getTransform members to channels:
// percentage multipliers and offsets.
var transformKeys = []struct {
	mul, add string
	ch       func(t *geom.ColorTransform) (*float64, *float64)
}{
	{"ra", "rb", func(t *geom.ColorTransform) (*float64, *float64) { return &t.RMul, &t.RAdd }},
	{"ga", "gb", func(t *geom.ColorTransform) (*float64, *float64) { return &t.GMul, &t.GAdd }},
	{"ba", "bb", func(t *geom.ColorTransform) (*float64, *float64) { return &t.BMul, &t.BAdd }},
	{"aa", "ab", func(t *geom.ColorTransform) (*float64, *float64) { return &t.AMul, &t.AAdd }},
}

func (p *Player) installColor() {
	vm := p.vm
	proto := vm.NewObject()
	ctor := vm.NewConstructor("Color", func(c *avm.Call) (avm.Value, error) {
		if o := c.ThisObject(); c.Construct && o != nil {
			o.Payload = c.Arg(0)
		}
		return c.This, nil
	}, proto)
	vm.SetGlobal("Color", avm.Obj(ctor))

	vm.SetMethod(proto, "setRGB", func(c *avm.Call) (avm.Value, error) {
		inst := p.colorTarget(c)
		if inst == nil {
			return avm.Undefined, nil
		}
		var col colorful.Color
		if arg := c.Arg(0); arg.IsString() && strings.HasPrefix(arg.AsString(), "#") {
			parsed, err := colorful.Hex(arg.AsString())
			if err != nil {
				return avm.Undefined, nil
			}
			col = parsed
		} else {
			col = geom.FromRGB(vm.ToUint32(arg))
		}
		t := geom.Tint(col)
		t.AMul, t.AAdd = inst.Color.AMul, inst.Color.AAdd
		inst.Color = t
		return avm.Undefined, nil
	})
	vm.SetMethod(proto, "getRGB", func(c *avm.Call) (avm.Value, error) {
		inst := p.colorTarget(c)
		if inst == nil {
			return avm.Undefined, nil
		}
		t := inst.Color
		col := colorful.Color{R: t.RAdd / 255, G: t.GAdd / 255, B: t.BAdd / 255}
		return avm.Number(float64(geom.RGB(col))), nil
	})
	vm.SetMethod(proto, "setTransform", func(c *avm.Call) (avm.Value, error) {
		inst := p.colorTarget(c)
		spec := c.Arg(0).Object()
		if inst == nil || spec == nil {
			return avm.Undefined, nil
		}
		t := inst.Color
		for _, k := range transformKeys {
			mul, add := k.ch(&t)
			if vm.HasMember(spec, k.mul) {
				*mul = vm.ToNumber(vm.GetMember(spec, k.mul)) / 100
			}
			if vm.HasMember(spec, k.add) {
				*add = vm.ToNumber(vm.GetMember(spec, k.add))
			}
		}
		inst.Color = t
		return avm.Undefined, nil
	})
	vm.SetMethod(proto, "getTransform", func(c *avm.Call) (avm.Value, error) {
		inst := p.colorTarget(c)
		if inst == nil {
			return avm.Undefined, nil
		}
		t := inst.Color
		out := vm.NewObject()
		for _, k := range transformKeys {
			mul, add := k.ch(&t)
			out.Put(k.mul, avm.Number(*mul*100))
			out.Put(k.add, avm.Number(*add))
		}
		return avm.Obj(out), nil
	})
}

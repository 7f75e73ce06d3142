package player

import (
	"slices"

	"github.com/chazu/reel/avm"
	"github.com/fogleman/ease"
)

// ---------------------------------------------------------------------------
// mx.transitions.Tween
// ---------------------------------------------------------------------------

// A Tween keeps its whole state in script-visible properties (obj, prop,
// func, begin, finish, duration, useSeconds, time, position, looping), so the
// collector reaches everything through the tween object. Playing tweens are
// listed in p.tweens and advance once per tick.

type curve func(t float64) float64

var easings = []struct {
	class string
	in    curve
	out   curve
	inOut curve
}{
	{"Regular", ease.InQuad, ease.OutQuad, ease.InOutQuad},
	{"Strong", ease.InQuint, ease.OutQuint, ease.InOutQuint},
	{"Back", ease.InBack, ease.OutBack, ease.InOutBack},
	{"Elastic", ease.InElastic, ease.OutElastic, ease.InOutElastic},
	{"Bounce", ease.InBounce, ease.OutBounce, ease.InOutBounce},
}

// easingFunc adapts a normalised curve to the (t, b, c, d) signature of the
// easing classes.
func easingFunc(f curve) avm.NativeFunc {
	return func(c *avm.Call) (avm.Value, error) {
		t, b, ch, d := c.NumberArg(0), c.NumberArg(1), c.NumberArg(2), c.NumberArg(3)
		if d <= 0 {
			return avm.Number(b + ch), nil
		}
		return avm.Number(b + ch*f(t/d)), nil
	}
}

func (p *Player) installTween() {
	vm := p.vm

	easing := vm.NewObject()
	none := vm.NewObject()
	for _, name := range []string{"easeNone", "easeIn", "easeOut", "easeInOut"} {
		vm.SetMethod(none, name, easingFunc(ease.Linear))
	}
	easing.Put("None", avm.Obj(none))
	for _, e := range easings {
		class := vm.NewObject()
		vm.SetMethod(class, "easeIn", easingFunc(e.in))
		vm.SetMethod(class, "easeOut", easingFunc(e.out))
		vm.SetMethod(class, "easeInOut", easingFunc(e.inOut))
		easing.Put(e.class, avm.Obj(class))
	}

	proto := vm.NewObject()
	ctor := vm.NewConstructor("Tween", func(c *avm.Call) (avm.Value, error) {
		o := c.ThisObject()
		if !c.Construct || o == nil {
			return avm.Undefined, nil
		}
		vm.InitBroadcaster(o)
		c.Invoke(vm.GetMember(o, "addListener"), c.This, []avm.Value{c.This})
		o.Put("obj", c.Arg(0))
		o.Put("prop", avm.String(c.StringArg(1)))
		o.Put("func", c.Arg(2))
		o.Put("begin", avm.Number(c.NumberArg(3)))
		o.Put("finish", avm.Number(c.NumberArg(4)))
		o.Put("duration", avm.Number(c.NumberArg(5)))
		o.Put("useSeconds", avm.Bool(vm.ToBoolean(c.Arg(6))))
		o.Put("looping", avm.False)
		p.rewindTween(c, o, 0)
		p.startTween(c, o)
		return c.This, nil
	}, proto)

	p.vm.SetMethod(proto, "start", func(c *avm.Call) (avm.Value, error) {
		if o := c.ThisObject(); o != nil {
			p.rewindTween(c, o, 0)
			p.startTween(c, o)
		}
		return avm.Undefined, nil
	})
	p.vm.SetMethod(proto, "stop", func(c *avm.Call) (avm.Value, error) {
		if o := c.ThisObject(); o != nil && p.stopTween(o) {
			notify(c, o, "onMotionStopped")
		}
		return avm.Undefined, nil
	})
	p.vm.SetMethod(proto, "resume", func(c *avm.Call) (avm.Value, error) {
		if o := c.ThisObject(); o != nil {
			p.startTween(c, o)
		}
		return avm.Undefined, nil
	})
	p.vm.SetMethod(proto, "rewind", func(c *avm.Call) (avm.Value, error) {
		if o := c.ThisObject(); o != nil {
			p.rewindTween(c, o, c.NumberArg(0))
		}
		return avm.Undefined, nil
	})
	p.vm.SetMethod(proto, "fforward", func(c *avm.Call) (avm.Value, error) {
		if o := c.ThisObject(); o != nil {
			p.rewindTween(c, o, vm.ToNumber(vm.GetMember(o, "duration")))
			p.stopTween(o)
		}
		return avm.Undefined, nil
	})
	p.vm.SetMethod(proto, "continueTo", func(c *avm.Call) (avm.Value, error) {
		if o := c.ThisObject(); o != nil {
			o.Put("begin", vm.GetMember(o, "position"))
			o.Put("finish", avm.Number(c.NumberArg(0)))
			if !c.Arg(1).IsUndefined() {
				o.Put("duration", avm.Number(c.NumberArg(1)))
			}
			p.rewindTween(c, o, 0)
			p.startTween(c, o)
		}
		return avm.Undefined, nil
	})
	p.vm.SetMethod(proto, "yoyo", func(c *avm.Call) (avm.Value, error) {
		if o := c.ThisObject(); o != nil {
			begin, finish := vm.GetMember(o, "begin"), vm.GetMember(o, "finish")
			o.Put("begin", finish)
			o.Put("finish", begin)
			p.rewindTween(c, o, 0)
			p.startTween(c, o)
		}
		return avm.Undefined, nil
	})

	transitions := vm.NewObject()
	transitions.Put("Tween", avm.Obj(ctor))
	transitions.Put("easing", avm.Obj(easing))
	mx := vm.NewObject()
	mx.Put("transitions", avm.Obj(transitions))
	vm.SetGlobal("mx", avm.Obj(mx))
}

func notify(c *avm.Call, o *avm.Object, event string) {
	c.Invoke(c.VM.GetMember(o, "broadcastMessage"), avm.Obj(o), []avm.Value{avm.String(event), avm.Obj(o)})
}

func (p *Player) startTween(c *avm.Call, o *avm.Object) {
	o.Put("isPlaying", avm.True)
	if !slices.Contains(p.tweens, o) {
		p.tweens = append(p.tweens, o)
	}
	notify(c, o, "onMotionStarted")
}

func (p *Player) stopTween(o *avm.Object) bool {
	o.Put("isPlaying", avm.False)
	i := slices.Index(p.tweens, o)
	if i < 0 {
		return false
	}
	p.tweens = slices.Delete(p.tweens, i, i+1)
	return true
}

// rewindTween moves the tween to time t and applies the eased position.
func (p *Player) rewindTween(c *avm.Call, o *avm.Object, t float64) {
	vm := c.VM
	num := func(name string) float64 { return vm.ToNumber(vm.GetMember(o, name)) }
	begin, finish, dur := num("begin"), num("finish"), num("duration")
	t = max(0, min(t, dur))
	o.Put("time", avm.Number(t))

	pos := finish
	if fn := vm.GetMember(o, "func"); fn.IsCallable() {
		pos = vm.ToNumber(c.Invoke(fn, avm.Undefined, []avm.Value{
			avm.Number(t), avm.Number(begin), avm.Number(finish - begin), avm.Number(dur),
		}))
	} else if dur > 0 {
		pos = begin + (finish-begin)*t/dur
	}
	o.Put("position", avm.Number(pos))
	if target := vm.GetMember(o, "obj").Object(); target != nil {
		vm.SetMember(target, vm.ToString(vm.GetMember(o, "prop")), avm.Number(pos))
	}
}

// stepTweens advances every playing tween by one frame (or one frame's
// worth of seconds), each as its own invocation.
func (p *Player) stepTweens() {
	for _, o := range slices.Clone(p.tweens) {
		if !slices.Contains(p.tweens, o) {
			continue
		}
		p.running++
		err := p.vm.Protect(func() { p.stepTween(o) })
		p.running--
		if err != nil {
			p.stopTween(o)
		}
		p.report("_level0", frameOf(p.root), err)
		p.settle()
	}
}

func (p *Player) stepTween(o *avm.Object) {
	vm := p.vm
	c := &avm.Call{VM: vm}
	dt := 1.0
	if vm.ToBoolean(vm.GetMember(o, "useSeconds")) {
		dt = p.frameDur.Seconds()
	}
	t := vm.ToNumber(vm.GetMember(o, "time")) + dt
	dur := vm.ToNumber(vm.GetMember(o, "duration"))
	p.rewindTween(c, o, t)
	notify(c, o, "onMotionChanged")
	if t < dur {
		return
	}
	if vm.ToBoolean(vm.GetMember(o, "looping")) {
		p.rewindTween(c, o, 0)
		notify(c, o, "onMotionLooped")
		return
	}
	p.stopTween(o)
	notify(c, o, "onMotionFinished")
}

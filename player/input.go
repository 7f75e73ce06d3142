package player

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/chazu/reel/avm"
	"github.com/chazu/reel/display"
	"github.com/chazu/reel/geom"
	"github.com/chazu/reel/movie"
)

// ButtonPrimary is the primary pointer button bit of Input.Buttons.
const ButtonPrimary = 1

// Input is the input state the host reports for the next tick.
type Input struct {
	// Pointer is the pointer position in stage pixels.
	Pointer geom.Point
	// Buttons is a bit set of pressed pointer buttons.
	Buttons uint8
	// KeysDown and KeysUp are the key codes that changed since the last
	// tick, in order.
	KeysDown []int
	KeysUp   []int
	// Chars are the characters typed with KeysDown, index for index.
	Chars []rune
}

type drag struct {
	inst   *display.Instance
	offset geom.Point
	bounds *[4]float64
}

// router holds the input state carried between ticks.
type router struct {
	next Input

	pointer geom.Point
	buttons uint8
	hovered *display.Instance
	pressed *display.Instance
	focus   *display.Instance
	drag    *drag

	keys      *bitset.BitSet
	lastKey   int
	lastAscii int
	hidden    bool
}

func (r *router) init() {
	r.keys = bitset.New(256)
}

// SetInput replaces the pointer state and appends the key transitions for
// the next tick.
func (p *Player) SetInput(in Input) {
	r := &p.router
	r.next.Pointer = in.Pointer
	r.next.Buttons = in.Buttons
	r.next.KeysDown = append(r.next.KeysDown, in.KeysDown...)
	r.next.KeysUp = append(r.next.KeysUp, in.KeysUp...)
	r.next.Chars = append(r.next.Chars, in.Chars...)
}

// PostMouseMove moves the pointer to (x, y) stage pixels.
func (p *Player) PostMouseMove(x, y float64) {
	p.router.next.Pointer = geom.Point{X: x, Y: y}
}

// PostMouseDown presses the primary button.
func (p *Player) PostMouseDown() { p.router.next.Buttons |= ButtonPrimary }

// PostMouseUp releases the primary button.
func (p *Player) PostMouseUp() { p.router.next.Buttons &^= ButtonPrimary }

// PostKeyDown queues a key press; ch is the typed character or 0.
func (p *Player) PostKeyDown(code int, ch rune) {
	r := &p.router
	for len(r.next.Chars) < len(r.next.KeysDown) {
		r.next.Chars = append(r.next.Chars, 0)
	}
	r.next.KeysDown = append(r.next.KeysDown, code)
	r.next.Chars = append(r.next.Chars, ch)
}

// PostKeyUp queues a key release.
func (p *Player) PostKeyUp(code int) {
	p.router.next.KeysUp = append(p.router.next.KeysUp, code)
}

// Focus returns the instance keyboard events are routed to.
func (p *Player) Focus() *display.Instance { return p.router.focus }

// ---------------------------------------------------------------------------
// Pointer events
// ---------------------------------------------------------------------------

// pointerEvent describes one synthesized button-style event: the handler
// method, the onClipEvent bit, the button condition and the button state it
// leads to.
type pointerEvent struct {
	handler string
	clip    movie.ClipEvent
	cond    movie.ButtonCondition
	state   movie.ButtonState
}

var (
	evRollOver       = pointerEvent{"onRollOver", movie.EventRollOver, movie.CondIdleToOverUp, movie.StateOver}
	evRollOut        = pointerEvent{"onRollOut", movie.EventRollOut, movie.CondOverUpToIdle, movie.StateUp}
	evPress          = pointerEvent{"onPress", movie.EventPress, movie.CondOverUpToOverDown, movie.StateDown}
	evRelease        = pointerEvent{"onRelease", movie.EventRelease, movie.CondOverDownToOverUp, movie.StateOver}
	evReleaseOutside = pointerEvent{"onReleaseOutside", movie.EventReleaseOutside, movie.CondOutDownToIdle, movie.StateUp}
	evDragOut        = pointerEvent{"onDragOut", movie.EventDragOut, movie.CondOverDownToOutDown, movie.StateUp}
	evDragOver       = pointerEvent{"onDragOver", movie.EventDragOver, movie.CondOutDownToOverDown, movie.StateDown}
)

const pointerEvents = movie.EventPress | movie.EventRelease | movie.EventReleaseOutside |
	movie.EventRollOver | movie.EventRollOut | movie.EventDragOver | movie.EventDragOut

var pointerHandlers = []string{"onPress", "onRelease", "onReleaseOutside", "onRollOver", "onRollOut", "onDragOver", "onDragOut"}

// interactive reports whether inst takes pointer events: enabled buttons and
// enabled clips with a pointer handler or pointer clip event.
func (p *Player) interactive(inst *display.Instance) bool {
	if inst.Removed || !inst.Enabled {
		return false
	}
	switch inst.Kind {
	case movie.KindButton:
		return true
	case movie.KindSprite:
		if hasEvent(inst, pointerEvents) {
			return true
		}
		obj, ok := inst.Binding.(*avm.Object)
		if !ok {
			return false
		}
		for _, h := range pointerHandlers {
			if p.vm.HasMember(obj, h) {
				return true
			}
		}
	}
	return false
}

func hasEvent(inst *display.Instance, ev movie.ClipEvent) bool {
	for _, a := range inst.Actions {
		if a.Events&ev != 0 {
			return true
		}
	}
	return false
}

// routeInput dispatches the queued input: pointer movement, hover changes,
// button transitions, then keys.
func (p *Player) routeInput() {
	r := &p.router
	in := r.next
	r.next.KeysDown, r.next.KeysUp, r.next.Chars = nil, nil, nil

	pt := geom.Pixels(in.Pointer.X, in.Pointer.Y)
	moved := pt != r.pointer
	r.pointer = pt
	if r.hovered != nil && r.hovered.Removed {
		r.hovered = nil
	}
	if r.pressed != nil && r.pressed.Removed {
		r.pressed = nil
	}
	if moved {
		p.updateDrag()
		p.mouseEvent("onMouseMove", movie.EventMouseMove)
	}

	target := p.tree.HitTest(p.root, pt, p.interactive)
	if target != r.hovered {
		prev := r.hovered
		r.hovered = target
		if pressed := r.pressed; pressed != nil {
			if prev == pressed {
				p.pointerEvent(pressed, evDragOut)
			}
			if target == pressed {
				p.pointerEvent(pressed, evDragOver)
			}
		} else {
			if prev != nil {
				p.pointerEvent(prev, evRollOut)
			}
			if target != nil {
				p.pointerEvent(target, evRollOver)
			}
		}
	}

	down, wasDown := in.Buttons&ButtonPrimary != 0, r.buttons&ButtonPrimary != 0
	r.buttons = in.Buttons
	switch {
	case down && !wasDown:
		p.mouseEvent("onMouseDown", movie.EventMouseDown)
		if target != nil && !target.Removed {
			r.pressed = target
			p.pointerEvent(target, evPress)
		}
	case !down && wasDown:
		p.mouseEvent("onMouseUp", movie.EventMouseUp)
		pressed := r.pressed
		r.pressed = nil
		if pressed == nil || pressed.Removed {
			break
		}
		if target == pressed {
			p.pointerEvent(pressed, evRelease)
			p.callHandler(pressed, "onClick")
		} else {
			p.pointerEvent(pressed, evReleaseOutside)
			if target != nil && !target.Removed {
				p.pointerEvent(target, evRollOver)
			}
		}
	}

	for i, code := range in.KeysDown {
		ch := rune(0)
		if i < len(in.Chars) {
			ch = in.Chars[i]
		}
		p.keyEvent(code, ch, true)
	}
	for _, code := range in.KeysUp {
		p.keyEvent(code, 0, false)
	}
}

// pointerEvent delivers a button-style event. Buttons change their displayed
// state and run their matching actions in the parent clip's scope; clips run
// their clip event actions. Both then get the handler method.
func (p *Player) pointerEvent(inst *display.Instance, e pointerEvent) {
	if inst.Removed {
		return
	}
	if b, ok := inst.Character.(*movie.Button); ok {
		p.tree.SetButtonState(inst, e.state)
		parent := inst.Parent()
		for _, a := range b.Actions {
			if a.Conditions&e.cond != 0 && parent != nil && !parent.Removed {
				p.run(parent, frameOf(parent), a.Code)
			}
		}
	} else {
		p.runClipActions(inst, e.clip)
	}
	if !inst.Removed {
		p.callHandler(inst, e.handler)
	}
}

// mouseEvent bubbles a mouse event from the clip under the pointer up to the
// root, innermost first, then broadcasts it to Mouse listeners.
func (p *Player) mouseEvent(handler string, ev movie.ClipEvent) {
	start := p.root
	if leaf := p.tree.HitTest(p.root, p.router.pointer, nil); leaf != nil {
		start = leaf
	}
	var chain []*display.Instance
	for i := start; i != nil; i = i.Parent() {
		if i.Clip != nil {
			chain = append(chain, i)
		}
	}
	for _, c := range chain {
		if c.Removed {
			continue
		}
		p.runClipActions(c, ev)
		p.callHandler(c, handler)
	}
	p.broadcast(p.mouse, handler)
}

// clipEvent runs the clip event actions for ev and the matching handler
// method.
func (p *Player) clipEvent(inst *display.Instance, ev movie.ClipEvent) {
	p.runClipActions(inst, ev)
	if name, ok := clipHandlers[ev]; ok && !inst.Removed {
		p.callHandler(inst, name)
	}
}

var clipHandlers = map[movie.ClipEvent]string{
	movie.EventLoad:       "onLoad",
	movie.EventEnterFrame: "onEnterFrame",
	movie.EventData:       "onData",
}

func (p *Player) runClipActions(inst *display.Instance, ev movie.ClipEvent) {
	frame := frameOf(inst)
	for _, a := range inst.Actions {
		if inst.Removed {
			return
		}
		if a.Events&ev != 0 {
			p.run(inst, frame, a.Code)
		}
	}
}

// broadcast sends name to the listeners of a broadcaster object as one
// top-level invocation.
func (p *Player) broadcast(obj *avm.Object, name string, args ...avm.Value) {
	p.running++
	err := p.vm.Broadcast(obj, name, args...)
	p.running--
	p.report("_level0", frameOf(p.root), err)
	p.settle()
}

// ---------------------------------------------------------------------------
// Keys
// ---------------------------------------------------------------------------

func (p *Player) keyEvent(code int, ch rune, down bool) {
	r := &p.router
	ev, handler := movie.EventKeyUp, "onKeyUp"
	if down {
		ev, handler = movie.EventKeyDown, "onKeyDown"
		r.keys.Set(uint(code) & 0xff)
		r.lastKey = code
		r.lastAscii = int(ch)
		if ch == 0 && code >= 0x20 && code < 0x7f {
			r.lastAscii = code
		}
	} else {
		r.keys.Clear(uint(code) & 0xff)
		r.lastKey = code
	}

	if f := r.focus; f != nil && !f.Removed {
		p.callHandler(f, handler)
	}

	var visit func(*display.Instance)
	visit = func(inst *display.Instance) {
		if inst.Removed {
			return
		}
		p.runClipActions(inst, ev)
		if down {
			p.keyPressActions(inst, code)
		}
		if inst.Children() == nil || inst.Kind != movie.KindSprite {
			return
		}
		for _, c := range inst.Children().ByPlacement() {
			visit(c)
		}
	}
	visit(p.root)

	p.broadcast(p.key, handler)
}

// keyPressActions runs the keyPress clip actions and button key actions of
// inst bound to code.
func (p *Player) keyPressActions(inst *display.Instance, code int) {
	for _, a := range inst.Actions {
		if a.Events&movie.EventKeyPress != 0 && int(a.KeyCode) == code {
			p.run(inst, frameOf(inst), a.Code)
		}
	}
	b, ok := inst.Character.(*movie.Button)
	if !ok || inst.Parent() == nil {
		return
	}
	for _, a := range b.Actions {
		if a.KeyCode != 0 && int(a.KeyCode) == code {
			p.run(inst.Parent(), frameOf(inst.Parent()), a.Code)
		}
	}
}

// ---------------------------------------------------------------------------
// Dragging
// ---------------------------------------------------------------------------

func (p *Player) startDrag(inst *display.Instance, lockCenter bool, bounds *[4]float64) {
	d := &drag{inst: inst, bounds: bounds}
	if !lockCenter {
		at := toParent(inst, p.router.pointer)
		d.offset = geom.Point{X: at.X - inst.Matrix.TX, Y: at.Y - inst.Matrix.TY}
	}
	p.router.drag = d
	p.updateDrag()
}

func (p *Player) updateDrag() {
	d := p.router.drag
	if d == nil {
		return
	}
	if d.inst.Removed {
		p.router.drag = nil
		return
	}
	at := toParent(d.inst, p.router.pointer)
	x, y := at.X-d.offset.X, at.Y-d.offset.Y
	if b := d.bounds; b != nil {
		l, t := b[0]*geom.TwipsPerPixel, b[1]*geom.TwipsPerPixel
		r, bt := b[2]*geom.TwipsPerPixel, b[3]*geom.TwipsPerPixel
		x = max(min(l, r), min(x, max(l, r)))
		y = max(min(t, bt), min(y, max(t, bt)))
	}
	d.inst.Matrix.TX, d.inst.Matrix.TY = x, y
}

// ---------------------------------------------------------------------------
// Key, Mouse, Stage and Selection
// ---------------------------------------------------------------------------

var keyCodes = []struct {
	name string
	code int
}{
	{"BACKSPACE", 8}, {"TAB", 9}, {"ENTER", 13}, {"SHIFT", 16}, {"CONTROL", 17},
	{"CAPSLOCK", 20}, {"ESCAPE", 27}, {"SPACE", 32}, {"PGUP", 33}, {"PGDN", 34},
	{"END", 35}, {"HOME", 36}, {"LEFT", 37}, {"UP", 38}, {"RIGHT", 39},
	{"DOWN", 40}, {"INSERT", 45}, {"DELETEKEY", 46},
}

// stageHost exposes the stage dimensions and display settings.
type stageHost struct {
	p         *Player
	scaleMode string
	align     string
}

func (h *stageHost) GetMember(name string) (avm.Value, bool) {
	size := h.p.movie.FrameSize
	switch name {
	case "width":
		return avm.Number(size.Width() / geom.TwipsPerPixel), true
	case "height":
		return avm.Number(size.Height() / geom.TwipsPerPixel), true
	case "scaleMode":
		return avm.String(h.scaleMode), true
	case "align":
		return avm.String(h.align), true
	}
	return avm.Undefined, false
}

func (h *stageHost) SetMember(name string, v avm.Value) bool {
	switch name {
	case "scaleMode":
		h.scaleMode = h.p.vm.ToString(v)
	case "align":
		h.align = h.p.vm.ToString(v)
	case "width", "height":
	default:
		return false
	}
	return true
}

func (p *Player) installInput() {
	vm := p.vm
	r := &p.router

	p.key = vm.NewObject()
	vm.InitBroadcaster(p.key)
	for _, k := range keyCodes {
		p.key.Define(k.name, avm.Int(k.code), avm.DontEnum|avm.ReadOnly)
	}
	vm.SetMethod(p.key, "isDown", func(c *avm.Call) (avm.Value, error) {
		code := c.IntArg(0, -1)
		return avm.Bool(code >= 0 && r.keys.Test(uint(code)&0xff)), nil
	})
	vm.SetMethod(p.key, "getCode", func(c *avm.Call) (avm.Value, error) {
		return avm.Int(r.lastKey), nil
	})
	vm.SetMethod(p.key, "getAscii", func(c *avm.Call) (avm.Value, error) {
		return avm.Int(r.lastAscii), nil
	})
	vm.SetGlobal("Key", avm.Obj(p.key))

	p.mouse = vm.NewObject()
	vm.InitBroadcaster(p.mouse)
	vm.SetMethod(p.mouse, "show", func(c *avm.Call) (avm.Value, error) {
		was := !r.hidden
		r.hidden = false
		return avm.Bool(was), nil
	})
	vm.SetMethod(p.mouse, "hide", func(c *avm.Call) (avm.Value, error) {
		was := !r.hidden
		r.hidden = true
		return avm.Bool(was), nil
	})
	vm.SetGlobal("Mouse", avm.Obj(p.mouse))

	p.stage = vm.NewObject()
	p.stage.SetHost(&stageHost{p: p, scaleMode: "showAll"})
	vm.InitBroadcaster(p.stage)
	vm.SetGlobal("Stage", avm.Obj(p.stage))

	sel := vm.NewObject()
	vm.SetMethod(sel, "setFocus", func(c *avm.Call) (avm.Value, error) {
		v := c.Arg(0)
		if v.IsNullish() {
			r.focus = nil
			return avm.True, nil
		}
		inst := p.instanceOf(v.Object())
		if inst == nil && v.IsString() {
			inst = p.resolve(p.root, v.AsString())
		}
		if inst == nil || inst.Binding == nil {
			return avm.False, nil
		}
		r.focus = inst
		return avm.True, nil
	})
	vm.SetMethod(sel, "getFocus", func(c *avm.Call) (avm.Value, error) {
		if f := r.focus; f != nil && !f.Removed {
			return avm.String(f.Path()), nil
		}
		return avm.Null, nil
	})
	vm.SetGlobal("Selection", avm.Obj(sel))
}

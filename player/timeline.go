package player

import (
	"errors"
	"strconv"
	"strings"

	"github.com/chazu/reel/avm"
	"github.com/chazu/reel/display"
	"github.com/chazu/reel/geom"
	"github.com/chazu/reel/movie"
)

// ---------------------------------------------------------------------------
// Frame stepping
// ---------------------------------------------------------------------------

// stepClip runs one frame of inst and then of its child clips, in placement
// order. Children placed by this frame's tags are stepped in the same tick.
func (p *Player) stepClip(inst *display.Instance) {
	if inst.Removed {
		return
	}
	cs := inst.Clip
	s := inst.Sprite()
	switch {
	case cs.Frame == 0:
		p.runInitActions(s)
		p.enterFrame(inst, 1)
	case cs.Arrived == p.stats.Frames:
		// Moved by script earlier in this tick.
	case cs.Playing && s.FrameCount() > 1:
		next := cs.Frame + 1
		if next > s.FrameCount() {
			p.rebuild(inst)
			next = 1
		}
		p.enterFrame(inst, next)
	}

	if !cs.Loaded {
		cs.Loaded = true
		p.clipEvent(inst, movie.EventLoad)
	}
	p.clipEvent(inst, movie.EventEnterFrame)
	p.runFrameScripts(inst)

	stepped := make(map[*display.Instance]bool)
	for pass := 0; pass < 2; pass++ {
		for _, c := range inst.Children().ByPlacement() {
			if stepped[c] || c.Clip == nil || c.Removed || c.Parent() != inst {
				continue
			}
			// The second pass only picks up clips created during the first.
			if pass == 1 && c.Clip.Frame != 0 {
				continue
			}
			stepped[c] = true
			p.stepClip(c)
		}
		if inst.Removed {
			return
		}
	}
}

// enterFrame applies the tags of frame n and records the arrival. Scripts run
// separately.
func (p *Player) enterFrame(inst *display.Instance, n int) {
	p.applyTags(inst, n)
	cs := inst.Clip
	cs.Frame = n
	cs.Scripted = 0
	cs.Arrived = p.stats.Frames
}

// rebuild destroys the timeline-placed children of inst so frame 1 can be
// applied afresh.
func (p *Player) rebuild(inst *display.Instance) {
	p.tree.RemoveTimelineChildren(inst)
	inst.Clip.Frame = 0
}

// runFrameScripts runs the DoAction scripts of the current frame once per
// arrival.
func (p *Player) runFrameScripts(inst *display.Instance) {
	cs := inst.Clip
	if cs == nil || cs.Frame == 0 || cs.Scripted == cs.Frame {
		return
	}
	cs.Scripted = cs.Frame
	frame := cs.Frame
	for _, code := range inst.Sprite().Frame(frame).Actions() {
		if inst.Removed {
			return
		}
		p.run(inst, frame, code)
	}
}

func (p *Player) runInitActions(s *movie.Sprite) {
	if s == nil || p.inited[s] {
		return
	}
	p.inited[s] = true
	if len(s.InitActions) > 0 {
		p.run(p.root, 0, s.InitActions)
	}
}

func (p *Player) applyTags(inst *display.Instance, n int) {
	for _, tag := range inst.Sprite().Frame(n).Tags {
		switch t := tag.(type) {
		case *movie.Place:
			p.applyPlace(inst, n, t)
		case *movie.Remove:
			p.tree.Remove(inst, t.Depth)
		}
	}
}

func (p *Player) applyPlace(inst *display.Instance, frame int, t *movie.Place) {
	if t.Mode == movie.PlaceMove {
		moved := p.tree.Move(inst, t.Depth, display.MoveOptions{
			Matrix:    t.Matrix,
			Color:     t.Color,
			Ratio:     t.Ratio,
			Visible:   t.Visible,
			Name:      t.Name,
			ClipDepth: t.ClipDepth,
		})
		if moved == nil {
			log.Debugf("%s: move of empty depth %d ignored", inst, t.Depth)
		}
		return
	}
	child, err := p.tree.Place(inst, t.Depth, t.CharacterID, display.PlaceOptions{
		Matrix:    t.Matrix,
		Color:     t.Color,
		Ratio:     t.Ratio,
		Visible:   t.Visible,
		Name:      t.Name,
		ClipDepth: t.ClipDepth,
		Actions:   t.ClipActions,
		Replace:   t.Mode == movie.PlaceReplace,
	})
	switch {
	case errors.Is(err, display.ErrUnknownCharacter):
		p.stats.Placeholders++
		p.log.Warning("placeholder for unknown character", "clip", inst.Path(), "frame", frame, "error", err.Error())
	case err != nil:
		p.log.Errorf("%s: %s", inst, err)
		return
	}
	if child != nil {
		p.attach(child)
	}
}

// attach binds a freshly placed instance and runs its registered class
// constructor.
func (p *Player) attach(child *display.Instance) {
	obj := p.bind(child)
	if obj == nil {
		return
	}
	if child.Kind == movie.KindText {
		p.pullText(child)
	}
	if ctor := p.classes[child.Character]; ctor != nil {
		p.call(child, avm.Obj(ctor), avm.Obj(obj))
	}
}

func (p *Player) onRemove(inst *display.Instance) {
	if p.router.focus == inst {
		p.router.focus = nil
	}
	if inst.Clip != nil || hasEvent(inst, movie.EventUnload) {
		p.unloads = append(p.unloads, inst)
	}
}

func (p *Player) fireUnload(inst *display.Instance) {
	for _, a := range inst.Actions {
		if a.Events&movie.EventUnload != 0 {
			p.runDetached(inst, a.Code)
		}
	}
	if obj, ok := inst.Binding.(*avm.Object); ok && p.vm.HasMember(obj, "onUnload") {
		var fn avm.Value
		if p.vm.Protect(func() { fn = p.vm.GetMember(obj, "onUnload") }) == nil {
			p.call(nil, fn, avm.Obj(obj))
		}
	}
}

// runDetached runs an unload action of an instance that has already left the
// tree, with only itself in scope.
func (p *Player) runDetached(inst *display.Instance, code []byte) {
	obj, ok := inst.Binding.(*avm.Object)
	if !ok {
		return
	}
	p.running++
	err := p.vm.Run(code, obj, []*avm.Object{obj})
	p.running--
	p.report(inst.Path(), frameOf(inst), err)
}

// ---------------------------------------------------------------------------
// Script-driven navigation
// ---------------------------------------------------------------------------

// gotoFrame moves inst to frame n. Forward jumps apply every intermediate
// frame's tags; backward jumps rebuild from frame 1. The target frame's
// scripts are queued to run once the current script finishes.
func (p *Player) gotoFrame(inst *display.Instance, n int) {
	if inst == nil || inst.Clip == nil || inst.Removed {
		return
	}
	cs := inst.Clip
	s := inst.Sprite()
	n = max(1, min(n, s.FrameCount()))
	if n == cs.Frame {
		return
	}
	if cs.Frame == 0 {
		p.runInitActions(s)
	}
	if n < cs.Frame {
		p.rebuild(inst)
	}
	for f := cs.Frame + 1; f < n; f++ {
		p.applyTags(inst, f)
	}
	p.enterFrame(inst, n)
	p.gotos = append(p.gotos, queuedFrame{inst: inst, frame: n})
	p.settle()
}

// gotoValue interprets a frame argument: a number, a label or a numeric
// string.
func (p *Player) gotoValue(inst *display.Instance, v avm.Value) bool {
	if inst == nil || inst.Clip == nil {
		return false
	}
	if v.IsString() {
		s := v.AsString()
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			p.gotoFrame(inst, n)
			return true
		}
		n, ok := inst.Sprite().FindLabel(s)
		if !ok {
			log.Debugf("%s: no frame labelled %q", inst, s)
			return false
		}
		p.gotoFrame(inst, n)
		return true
	}
	p.gotoFrame(inst, int(p.vm.ToNumber(v)))
	return true
}

// ---------------------------------------------------------------------------
// avm.Timeline
// ---------------------------------------------------------------------------

func (p *Player) clipOf(o *avm.Object) *display.Instance {
	inst := p.instanceOf(o)
	if inst == nil || inst.Clip == nil {
		return nil
	}
	return inst
}

func (p *Player) ResolveTarget(from *avm.Object, path string) *avm.Object {
	base := p.instanceOf(from)
	if base == nil {
		base = p.root
	}
	if t := p.resolve(base, path); t != nil {
		return p.bind(t)
	}
	return nil
}

// resolve follows a slash ("/a/b", "../c") or dot ("_root.a", "_parent.b")
// target path from base.
func (p *Player) resolve(base *display.Instance, path string) *display.Instance {
	path = strings.TrimSpace(path)
	if path == "" {
		return base
	}
	cur := base
	var parts []string
	if strings.ContainsRune(path, '/') {
		if strings.HasPrefix(path, "/") {
			cur = p.root
		}
		parts = strings.Split(path, "/")
	} else {
		parts = strings.Split(path, ".")
	}
	for _, part := range parts {
		switch part {
		case "", ".", "this":
			continue
		case "..", "_parent":
			cur = cur.Parent()
		case "_root", "_level0":
			cur = p.root
		default:
			if cur.Children() == nil {
				return nil
			}
			cur = cur.Children().Named(part)
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}

func (p *Player) TargetPath(clip *avm.Object) (string, bool) {
	inst := p.instanceOf(clip)
	if inst == nil {
		return "", false
	}
	return inst.Path(), true
}

func (p *Player) GotoFrame(clip *avm.Object, frame int) {
	p.gotoFrame(p.clipOf(clip), frame)
}

func (p *Player) GotoLabel(clip *avm.Object, label string) bool {
	return p.gotoValue(p.clipOf(clip), avm.String(label))
}

func (p *Player) NextFrame(clip *avm.Object) {
	if inst := p.clipOf(clip); inst != nil {
		p.gotoFrame(inst, inst.Clip.Frame+1)
		inst.Clip.Playing = false
	}
}

func (p *Player) PrevFrame(clip *avm.Object) {
	if inst := p.clipOf(clip); inst != nil {
		p.gotoFrame(inst, inst.Clip.Frame-1)
		inst.Clip.Playing = false
	}
}

func (p *Player) Play(clip *avm.Object) {
	if inst := p.clipOf(clip); inst != nil {
		inst.Clip.Playing = true
	}
}

func (p *Player) Stop(clip *avm.Object) {
	if inst := p.clipOf(clip); inst != nil {
		inst.Clip.Playing = false
	}
}

func (p *Player) CallFrame(clip *avm.Object, frame avm.Value) {
	inst := p.clipOf(clip)
	if frame.IsString() {
		s := frame.AsString()
		if i := strings.LastIndexByte(s, ':'); i >= 0 {
			inst = p.clipOf(p.ResolveTarget(clip, s[:i]))
			frame = avm.String(s[i+1:])
		}
	}
	if inst == nil {
		return
	}
	n := 0
	if frame.IsString() {
		if l, ok := inst.Sprite().FindLabel(frame.AsString()); ok {
			n = l
		} else if v, err := strconv.Atoi(frame.AsString()); err == nil {
			n = v
		}
	} else {
		n = int(p.vm.ToNumber(frame))
	}
	if n < 1 || n > inst.Sprite().FrameCount() {
		return
	}
	for _, code := range inst.Sprite().Frame(n).Actions() {
		p.run(inst, n, code)
	}
}

func (p *Player) CloneSprite(source *avm.Object, name string, depth int) {
	if src := p.instanceOf(source); src != nil {
		p.duplicate(src, name, depth, nil)
	}
}

func (p *Player) RemoveSprite(clip *avm.Object) {
	inst := p.instanceOf(clip)
	if inst == nil || !inst.Dynamic {
		return
	}
	p.tree.RemoveInstance(inst)
}

func (p *Player) StartDrag(clip *avm.Object, lockCenter bool, bounds *[4]float64) {
	if inst := p.instanceOf(clip); inst != nil {
		p.startDrag(inst, lockCenter, bounds)
	}
}

func (p *Player) StopDrag() {
	p.router.drag = nil
}

func (p *Player) GetURL(url, window string, method int) {
	p.requests = append(p.requests, Request{URL: url, Window: window, Method: method})
	if cmd, args, ok := (Request{URL: url, Window: window}).FSCommand(); ok {
		p.log.Debugf("fscommand %q %q", cmd, args)
	}
}

// duplicate copies src (a clip or text field) to depth of its parent.
func (p *Player) duplicate(src *display.Instance, name string, depth int, init *avm.Object) *display.Instance {
	parent := src.Parent()
	if parent == nil {
		return nil
	}
	m, c, vis := src.Matrix, src.Color, src.Visible
	child, err := p.tree.PlaceCharacter(parent, depth, src.Character, display.PlaceOptions{
		Matrix:  &m,
		Color:   &c,
		Visible: &vis,
		Name:    name,
		Actions: src.Actions,
		Dynamic: true,
	})
	if err != nil || child == nil {
		return nil
	}
	child.Text = src.Text
	p.attach(child)
	p.initFrom(child, init)
	return child
}

// placeDynamic puts a script-created character at depth of parent.
func (p *Player) placeDynamic(parent *display.Instance, c movie.Character, name string, depth int, m *geom.Matrix, init *avm.Object) *display.Instance {
	child, err := p.tree.PlaceCharacter(parent, depth, c, display.PlaceOptions{Name: name, Matrix: m, Dynamic: true})
	if err != nil || child == nil {
		return nil
	}
	p.attach(child)
	p.initFrom(child, init)
	return child
}

// initFrom copies the enumerable properties of init onto the instance's
// binding, as attachMovie's init object does.
func (p *Player) initFrom(inst *display.Instance, init *avm.Object) {
	obj := p.bind(inst)
	if obj == nil || init == nil {
		return
	}
	for _, k := range p.vm.EnumerableKeys(init) {
		p.vm.SetMember(obj, k, p.vm.GetMember(init, k))
	}
}

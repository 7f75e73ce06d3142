package player

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/chazu/reel/avm"
	"github.com/chazu/reel/display"
	"github.com/chazu/reel/geom"
	"github.com/chazu/reel/movie"
)

func shape(id movie.CharacterID, px float64) *movie.Shape {
	return &movie.Shape{CharID: id, Rect: geom.Rect{XMax: px * geom.TwipsPerPixel, YMax: px * geom.TwipsPerPixel}}
}

func sprite(id movie.CharacterID, frames ...movie.Frame) *movie.Sprite {
	return &movie.Sprite{CharID: id, Frames: frames}
}

func frame(tags ...movie.Tag) movie.Frame {
	return movie.Frame{Tags: tags}
}

func script(src string) *movie.DoAction {
	return &movie.DoAction{Code: avm.MustAssemble(src)}
}

func trace(msg string) *movie.DoAction {
	return script(fmt.Sprintf("push %q\ntrace", msg))
}

func put(depth int, id movie.CharacterID, name string) *movie.Place {
	return &movie.Place{Depth: depth, CharacterID: id, Name: name}
}

func pixels(x, y float64) *geom.Matrix {
	m := geom.Translate(x*geom.TwipsPerPixel, y*geom.TwipsPerPixel)
	return &m
}

type fixture struct {
	root    *movie.Sprite
	chars   []movie.Character
	exports map[string]movie.CharacterID
}

func (f fixture) movie(t *testing.T) *movie.Movie {
	t.Helper()
	d := movie.NewDictionary()
	for _, c := range f.chars {
		if err := d.Define(c); err != nil {
			t.Fatal(err)
		}
	}
	for name, id := range f.exports {
		if err := d.Export(name, id); err != nil {
			t.Fatal(err)
		}
	}
	return &movie.Movie{
		FrameRate:  10,
		FrameSize:  geom.Rect{XMax: 550 * geom.TwipsPerPixel, YMax: 400 * geom.TwipsPerPixel},
		Root:       f.root,
		Dictionary: d,
	}
}

type harness struct {
	*Player
	traces []string
	faults []error
}

func start(t *testing.T, f fixture) *harness {
	t.Helper()
	h := &harness{}
	opts := DefaultOptions()
	opts.Trace = func(msg string) { h.traces = append(h.traces, msg) }
	opts.OnFault = func(err error) { h.faults = append(h.faults, err) }
	p, err := New(f.movie(t), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.Player = p
	return h
}

func (h *harness) ticks(n int) {
	for range n {
		h.Tick()
	}
}

func (h *harness) take() []string {
	out := h.traces
	h.traces = nil
	return out
}

func (h *harness) child(name string) *display.Instance {
	return h.Root().Children().Named(name)
}

func (h *harness) rootVar(name string) avm.Value {
	return h.vm.GetMember(h.bind(h.Root()), name)
}

func expectTraces(t *testing.T, got []string, want ...string) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Errorf("traces = %q, want %q", got, want)
	}
}

func drawIDs(dl display.DrawList) []movie.CharacterID {
	var ids []movie.CharacterID
	for _, it := range dl {
		ids = append(ids, it.CharacterID)
	}
	return ids
}

func TestExecutionOrderIsTopDownAndPaintOrderByDepth(t *testing.T) {
	h := start(t, fixture{
		root: sprite(0, frame(
			put(5, 10, "a"),
			put(1, 11, "b"),
			trace("root"),
		)),
		chars: []movie.Character{
			shape(1, 10), shape(2, 10),
			sprite(10, frame(put(1, 1, ""), trace("A"))),
			sprite(11, frame(put(1, 2, ""), trace("B"))),
		},
	})
	h.Tick()
	expectTraces(t, h.take(), "root", "A", "B")

	if got, want := drawIDs(h.DrawList()), []movie.CharacterID{2, 1}; !slices.Equal(got, want) {
		t.Errorf("paint order = %v, want %v", got, want)
	}
}

func TestLoopRecreatesTimelineChildren(t *testing.T) {
	load := avm.MustAssemble("push \"load\"\ntrace")
	h := start(t, fixture{
		root: sprite(0,
			frame(&movie.Place{Depth: 1, CharacterID: 10, Name: "a",
				ClipActions: []movie.ClipAction{{Events: movie.EventLoad, Code: load}}}),
			frame(),
			frame(),
		),
		chars: []movie.Character{sprite(10, frame())},
	})

	h.Tick()
	first := h.child("a")
	if first == nil {
		t.Fatal("a not placed on tick 1")
	}
	h.ticks(2)
	if h.child("a") != first {
		t.Error("a recreated before the loop")
	}
	if got := h.Root().Clip.Frame; got != 3 {
		t.Fatalf("frame after 3 ticks = %d, want 3", got)
	}

	h.Tick()
	second := h.child("a")
	if second == nil || second == first {
		t.Fatal("loop did not recreate a")
	}
	if !first.Removed {
		t.Error("old instance not destroyed on loop")
	}
	expectTraces(t, h.take(), "load", "load")
}

func TestFaultIsContained(t *testing.T) {
	h := start(t, fixture{
		root: sprite(0,
			frame(put(1, 10, "a"), put(2, 11, "b")),
			frame(put(3, 1, "")),
		),
		chars: []movie.Character{
			shape(1, 10),
			sprite(10, frame(script(`
				push "before"
				trace
				push "boom"
				throw
				push "after"
				trace
			`)), frame()),
			sprite(11, frame(trace("B")), frame()),
		},
	})
	h.Tick()
	expectTraces(t, h.take(), "before", "B")

	if len(h.faults) != 1 {
		t.Fatalf("faults = %v, want one", h.faults)
	}
	var sf *avm.ScriptFault
	if !errors.As(h.faults[0], &sf) {
		t.Fatalf("fault %T is not a ScriptFault", h.faults[0])
	}
	if sf.Kind != avm.FaultUncaught || sf.Clip != "_level0.a" || sf.Frame != 1 {
		t.Errorf("fault = %+v", sf)
	}
	if h.Stats().Faults != 1 {
		t.Errorf("Stats.Faults = %d, want 1", h.Stats().Faults)
	}

	h.Tick()
	if _, ok := h.Root().Children().At(3); !ok {
		t.Error("frame 2 tags not applied after a fault")
	}
}

func TestRunawayScriptHitsCeiling(t *testing.T) {
	h := start(t, fixture{
		root: sprite(0,
			frame(script("top:\njump top")),
			frame(trace("still running")),
		),
	})
	h.Tick()
	if len(h.faults) != 1 {
		t.Fatalf("faults = %d, want 1", len(h.faults))
	}
	h.Tick()
	expectTraces(t, h.take(), "still running")
}

func TestUnknownCharacterBecomesPlaceholder(t *testing.T) {
	h := start(t, fixture{root: sprite(0, frame(put(1, 99, "ghost")))})
	h.Tick()

	inst, ok := h.Root().Children().At(1)
	if !ok || !inst.Placeholder {
		t.Fatalf("depth 1 = %v, want a placeholder", inst)
	}
	if h.Stats().Placeholders != 1 {
		t.Errorf("Stats.Placeholders = %d, want 1", h.Stats().Placeholders)
	}
	if len(h.faults) != 0 {
		t.Errorf("placeholder raised faults: %v", h.faults)
	}
	if dl := h.DrawList(); len(dl) != 0 {
		t.Errorf("placeholder drew %d items", len(dl))
	}
}

func TestGotoScriptsRunAfterCurrentScript(t *testing.T) {
	h := start(t, fixture{
		root: sprite(0,
			frame(script(`
				push "f1 start"
				trace
				gotoframe 3
				push "f1 end"
				trace
			`)),
			frame(put(1, 1, "")),
			frame(trace("f3"), script("stop")),
		),
		chars: []movie.Character{shape(1, 10)},
	})
	h.Tick()
	expectTraces(t, h.take(), "f1 start", "f1 end", "f3")

	if got := h.Root().Clip.Frame; got != 3 {
		t.Errorf("frame = %d, want 3", got)
	}
	if _, ok := h.Root().Children().At(1); !ok {
		t.Error("intermediate frame tags not applied by goto")
	}

	h.ticks(2)
	if len(h.take()) != 0 {
		t.Error("frame scripts ran again without a new arrival")
	}
}

func TestMoveKeepsIdentity(t *testing.T) {
	h := start(t, fixture{
		root: sprite(0,
			frame(put(1, 10, "a"), script(`
				push "a"
				getvariable
				push "tag" "kept"
				setmember
			`)),
			frame(&movie.Place{Mode: movie.PlaceMove, Depth: 1, Matrix: pixels(10, 0)}, script(`
				push "a.tag"
				getvariable
				trace
				stop
			`)),
		),
		chars: []movie.Character{sprite(10, frame())},
	})
	h.Tick()
	a := h.child("a")
	h.Tick()

	if h.child("a") != a {
		t.Fatal("move replaced the instance")
	}
	if a.Matrix.TX != 10*geom.TwipsPerPixel {
		t.Errorf("TX = %v, want %v", a.Matrix.TX, 10*geom.TwipsPerPixel)
	}
	expectTraces(t, h.take(), "kept")
}

func TestDrawListStableWhileStopped(t *testing.T) {
	h := start(t, fixture{
		root: sprite(0, frame(
			&movie.Place{Depth: 1, CharacterID: 1, Matrix: pixels(5, 5)},
			put(2, 10, "a"),
			script("stop"),
		)),
		chars: []movie.Character{
			shape(1, 20), shape(2, 8),
			sprite(10, frame(put(1, 2, ""), script("stop"))),
		},
	})
	h.Tick()
	want, err := display.EncodeDrawList(h.DrawList())
	if err != nil {
		t.Fatal(err)
	}
	for i := range 5 {
		h.Tick()
		got, err := display.EncodeDrawList(h.DrawList())
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("draw list changed on tick %d", i+2)
		}
	}
}

func TestAdvanceRunsFixedTimestep(t *testing.T) {
	h := start(t, fixture{root: sprite(0, frame())})
	if h.FrameDuration() != 100*time.Millisecond {
		t.Fatalf("frame duration = %v", h.FrameDuration())
	}
	if n := h.Advance(250 * time.Millisecond); n != 2 {
		t.Errorf("Advance(250ms) ran %d ticks, want 2", n)
	}
	if n := h.Advance(50 * time.Millisecond); n != 1 {
		t.Errorf("Advance(50ms) ran %d ticks, want 1", n)
	}
	if h.Stats().Frames != 3 {
		t.Errorf("Frames = %d, want 3", h.Stats().Frames)
	}
}

func TestCollectReclaimsCycles(t *testing.T) {
	h := start(t, fixture{
		root: sprite(0, frame(script(`
			push 0
			initobject
			storeregister 1
			pop
			push 0
			initobject
			storeregister 2
			pop
			push r:1 "other" r:2
			setmember
			push r:2 "other" r:1
			setmember
			push "kept" 0
			initobject
			setvariable
			stop
		`))),
	})
	h.Tick()
	st := h.Collect()
	if st.Swept < 2 {
		t.Errorf("swept %d objects, want the two-object cycle", st.Swept)
	}
	if !h.rootVar("kept").IsObject() {
		t.Error("object held by the root was collected")
	}
	if h.Stats().Collections != 1 {
		t.Errorf("Collections = %d", h.Stats().Collections)
	}
}

func TestFSCommandAndGetURLAreQueued(t *testing.T) {
	h := start(t, fixture{
		root: sprite(0, frame(script(`
			push "now" "quit" 2 "fscommand"
			callfunction
			pop
			geturl "http://example.com/" "_blank"
			stop
		`))),
	})
	h.Tick()
	reqs := h.PollFSCommand()
	if len(reqs) != 2 {
		t.Fatalf("requests = %+v", reqs)
	}
	if cmd, args, ok := reqs[0].FSCommand(); !ok || cmd != "quit" || args != "now" {
		t.Errorf("fscommand = %q %q %v", cmd, args, ok)
	}
	if _, _, ok := reqs[1].FSCommand(); ok || reqs[1].URL != "http://example.com/" || reqs[1].Window != "_blank" {
		t.Errorf("getURL request = %+v", reqs[1])
	}
	if len(h.PollFSCommand()) != 0 {
		t.Error("poll did not clear the queue")
	}
}

func TestInitActionsRunOnce(t *testing.T) {
	s := sprite(10, frame())
	s.InitActions = avm.MustAssemble("push \"init\"\ntrace")
	h := start(t, fixture{
		root: sprite(0, frame(put(1, 10, "a"), put(2, 10, "b")), frame()),
		chars: []movie.Character{s},
	})
	h.ticks(4)
	expectTraces(t, h.take(), "init")
}

func TestCloseFiresUnload(t *testing.T) {
	unload := avm.MustAssemble("push \"bye\"\ntrace")
	h := start(t, fixture{
		root: sprite(0, frame(&movie.Place{Depth: 1, CharacterID: 10, Name: "a",
			ClipActions: []movie.ClipAction{{Events: movie.EventUnload, Code: unload}}})),
		chars: []movie.Character{sprite(10, frame())},
	})
	h.Tick()
	a := h.child("a")
	h.Close()
	if !a.Removed {
		t.Error("Close left a on the tree")
	}
	expectTraces(t, h.take(), "bye")
}

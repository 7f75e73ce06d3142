package player

import (
	"testing"

	"github.com/chazu/reel/avm"
	"github.com/chazu/reel/geom"
	"github.com/chazu/reel/movie"
)

func buttonFixture() fixture {
	all := movie.StateUp | movie.StateOver | movie.StateDown | movie.StateHit
	btn := &movie.Button{
		CharID:  20,
		Records: []movie.ButtonRecord{{States: all, CharacterID: 1, Depth: 1, Matrix: geom.Identity()}},
		Actions: []movie.ButtonAction{
			{Conditions: movie.CondOverUpToOverDown, Code: avm.MustAssemble("push \"press\"\ntrace")},
			{Conditions: movie.CondOverDownToOverUp, Code: avm.MustAssemble("push \"release\"\ntrace")},
			{Conditions: movie.CondOutDownToIdle, Code: avm.MustAssemble("push \"outside\"\ntrace")},
		},
	}
	return fixture{
		root: sprite(0, frame(
			&movie.Place{Depth: 1, CharacterID: 20, Name: "btn", Matrix: pixels(100, 100)},
			script(`
				push "btn"
				getvariable
				push "onClick"
				function () {
					push "click"
					trace
				}
				setmember
				stop
			`),
		)),
		chars: []movie.Character{shape(1, 50), btn},
	}
}

func TestButtonStateMachine(t *testing.T) {
	h := start(t, buttonFixture())
	h.Tick()
	btn := h.child("btn")
	if btn.ButtonState != movie.StateUp {
		t.Fatalf("initial state = %v, want up", btn.ButtonState)
	}

	h.PostMouseMove(110, 110)
	h.Tick()
	if btn.ButtonState != movie.StateOver {
		t.Errorf("state after rollOver = %v, want over", btn.ButtonState)
	}

	h.PostMouseDown()
	h.Tick()
	if btn.ButtonState != movie.StateDown {
		t.Errorf("state after press = %v, want down", btn.ButtonState)
	}

	h.PostMouseUp()
	h.Tick()
	expectTraces(t, h.take(), "press", "release", "click")

	h.PostMouseDown()
	h.Tick()
	h.PostMouseMove(400, 300)
	h.Tick()
	if btn.ButtonState != movie.StateUp {
		t.Errorf("state after dragOut = %v, want up", btn.ButtonState)
	}
	h.PostMouseUp()
	h.Tick()
	expectTraces(t, h.take(), "press", "outside")
}

func TestClipPointerHandlers(t *testing.T) {
	h := start(t, fixture{
		root: sprite(0, frame(
			&movie.Place{Depth: 1, CharacterID: 10, Name: "a", Matrix: pixels(0, 0)},
			script(`
				push "a"
				getvariable
				push "onRollOver"
				function () {
					push "over"
					trace
				}
				setmember
				push "a"
				getvariable
				push "onRollOut"
				function () {
					push "out"
					trace
				}
				setmember
				push "a"
				getvariable
				push "onReleaseOutside"
				function () {
					push "released outside"
					trace
				}
				setmember
				stop
			`),
		)),
		chars: []movie.Character{shape(1, 40), sprite(10, frame(put(1, 1, "")))},
	})
	h.PostMouseMove(300, 300)
	h.Tick()

	h.PostMouseMove(10, 10)
	h.Tick()
	h.PostMouseMove(300, 300)
	h.Tick()
	expectTraces(t, h.take(), "over", "out")

	h.PostMouseMove(10, 10)
	h.Tick()
	h.PostMouseDown()
	h.Tick()
	h.PostMouseMove(300, 300)
	h.Tick()
	h.PostMouseUp()
	h.Tick()
	expectTraces(t, h.take(), "over", "released outside")
}

func TestMouseListenersAndBubbling(t *testing.T) {
	h := start(t, fixture{
		root: sprite(0, frame(
			&movie.Place{Depth: 1, CharacterID: 10, Name: "a",
				ClipActions: []movie.ClipAction{{Events: movie.EventMouseDown, Code: avm.MustAssemble("push \"clip\"\ntrace")}}},
			script(`
				push "l" 0
				initobject
				setvariable
				push "l"
				getvariable
				push "onMouseDown"
				function () {
					push "listener"
					trace
				}
				setmember
				push "l"
				getvariable
				push 1 "Mouse"
				getvariable
				push "addListener"
				callmethod
				pop
				stop
			`),
		)),
		chars: []movie.Character{shape(1, 40), sprite(10, frame(put(1, 1, "")))},
	})
	h.PostMouseMove(10, 10)
	h.Tick()
	h.PostMouseDown()
	h.Tick()
	expectTraces(t, h.take(), "clip", "listener")
}

func TestKeyRouting(t *testing.T) {
	h := start(t, fixture{
		root: sprite(0, frame(
			&movie.Place{Depth: 1, CharacterID: 10, Name: "a",
				ClipActions: []movie.ClipAction{{Events: movie.EventKeyDown, Code: avm.MustAssemble("push \"clip key\"\ntrace")}}},
			script(`
				push "a"
				getvariable
				push "onKeyDown"
				function () {
					push "focused"
					trace
				}
				setmember
				push "a"
				getvariable
				push 1 "Selection"
				getvariable
				push "setFocus"
				callmethod
				pop

				push "l" 0
				initobject
				setvariable
				push "l"
				getvariable
				push "onKeyDown"
				function () {
					push "listener:" 0 "Key"
					getvariable
					push "getCode"
					callmethod
					add2
					trace
				}
				setmember
				push "l"
				getvariable
				push 1 "Key"
				getvariable
				push "addListener"
				callmethod
				pop
				stop
			`),
		)),
		chars: []movie.Character{sprite(10, frame())},
	})
	h.Tick()
	if h.Focus() != h.child("a") {
		t.Fatalf("focus = %v, want a", h.Focus())
	}

	h.PostKeyDown(65, 'a')
	h.Tick()
	expectTraces(t, h.take(), "focused", "clip key", "listener:65")

	isDown := func() bool {
		key := h.vm.GetMember(h.vm.Global, "Key").Object()
		v, err := h.vm.Call(h.vm.GetMember(key, "isDown"), avm.Obj(key), avm.Int(65))
		if err != nil {
			t.Fatal(err)
		}
		return h.vm.ToBoolean(v)
	}
	if !isDown() {
		t.Error("Key.isDown(65) = false while held")
	}
	h.PostKeyUp(65)
	h.Tick()
	if isDown() {
		t.Error("Key.isDown(65) = true after release")
	}
}

func TestFocusClearedOnRemove(t *testing.T) {
	h := start(t, fixture{
		root: sprite(0,
			frame(put(1, 10, "a"), script(`
				push "a"
				getvariable
				push 1 "Selection"
				getvariable
				push "setFocus"
				callmethod
				pop
			`)),
			frame(&movie.Remove{Depth: 1}, script("stop")),
		),
		chars: []movie.Character{sprite(10, frame())},
	})
	h.Tick()
	if h.Focus() == nil {
		t.Fatal("setFocus had no effect")
	}
	h.Tick()
	if h.Focus() != nil {
		t.Errorf("focus = %v after removal, want nil", h.Focus())
	}
}

func TestStartDragFollowsPointer(t *testing.T) {
	h := start(t, fixture{
		root: sprite(0, frame(
			put(1, 10, "a"),
			script(`
				push true 1 "a"
				getvariable
				push "startDrag"
				callmethod
				pop
				stop
			`),
		)),
		chars: []movie.Character{sprite(10, frame())},
	})
	h.Tick()
	h.PostMouseMove(30, 40)
	h.Tick()
	a := h.child("a")
	if a.Matrix.TX != 30*geom.TwipsPerPixel || a.Matrix.TY != 40*geom.TwipsPerPixel {
		t.Errorf("dragged to (%v, %v), want (600, 800)", a.Matrix.TX, a.Matrix.TY)
	}
}

package movie

import "github.com/chazu/reel/geom"

// ---------------------------------------------------------------------------
// Sprite
// ---------------------------------------------------------------------------

// Sprite is a timeline character: a sequence of frames, each carrying the
// structural tags and scripts that run when the timeline enters it.
type Sprite struct {
	CharID CharacterID
	Frames []Frame

	// InitActions run once per player before the first instance of this
	// sprite enters its first frame.
	InitActions []byte
}

func (s *Sprite) ID() CharacterID { return s.CharID }
func (s *Sprite) Kind() Kind      { return KindSprite }

// Bounds of a sprite depend on its live children; the template has none.
func (s *Sprite) Bounds() geom.Rect { return geom.Rect{} }

// FrameCount returns the number of frames, never less than 1.
func (s *Sprite) FrameCount() int {
	if len(s.Frames) == 0 {
		return 1
	}
	return len(s.Frames)
}

// Frame returns the 1-based frame n, or an empty frame when out of range.
func (s *Sprite) Frame(n int) *Frame {
	if n < 1 || n > len(s.Frames) {
		return &Frame{}
	}
	return &s.Frames[n-1]
}

// FindLabel returns the 1-based frame carrying label.
func (s *Sprite) FindLabel(label string) (int, bool) {
	for i := range s.Frames {
		if s.Frames[i].Label != "" && s.Frames[i].Label == label {
			return i + 1, true
		}
	}
	return 0, false
}

// Frame is one frame of a timeline. Tags apply in order.
type Frame struct {
	Label string
	Tags  []Tag
}

// Actions returns the bytecode of every DoAction tag in the frame, in order.
func (f *Frame) Actions() [][]byte {
	var out [][]byte
	for _, t := range f.Tags {
		if a, ok := t.(*DoAction); ok {
			out = append(out, a.Code)
		}
	}
	return out
}

// Tag is a frame entry: *Place, *Remove or *DoAction.
type Tag interface {
	tagName() string
}

// PlaceMode selects what a Place tag does at its depth.
type PlaceMode uint8

const (
	// PlaceNew instantiates a character at an empty depth.
	PlaceNew PlaceMode = iota
	// PlaceMove modifies the occupant of a depth.
	PlaceMove
	// PlaceReplace swaps the occupant for a new character.
	PlaceReplace
)

// Place puts a character on the display list or modifies one already there.
// Nil or zero optional fields mean "not specified".
type Place struct {
	Mode        PlaceMode
	Depth       int
	CharacterID CharacterID
	Matrix      *geom.Matrix
	Color       *geom.ColorTransform
	Ratio       *float64
	Name        string
	ClipDepth   int
	Visible     *bool
	ClipActions []ClipAction
}

// Remove destroys the occupant of a depth.
type Remove struct {
	Depth int
}

// DoAction is a frame script.
type DoAction struct {
	Code []byte
}

func (*Place) tagName() string    { return "PlaceObject" }
func (*Remove) tagName() string   { return "RemoveObject" }
func (*DoAction) tagName() string { return "DoAction" }

// TagName returns the conventional name of a tag, for logs and listings.
func TagName(t Tag) string {
	return t.tagName()
}

// ---------------------------------------------------------------------------
// Clip events
// ---------------------------------------------------------------------------

// ClipEvent is a bit mask of onClipEvent triggers.
type ClipEvent uint32

const (
	EventLoad ClipEvent = 1 << iota
	EventEnterFrame
	EventUnload
	EventMouseMove
	EventMouseDown
	EventMouseUp
	EventKeyDown
	EventKeyUp
	EventData
	EventInitialize
	EventPress
	EventRelease
	EventReleaseOutside
	EventRollOver
	EventRollOut
	EventDragOver
	EventDragOut
	EventKeyPress
	EventConstruct
)

var clipEventNames = []struct {
	ev   ClipEvent
	name string
}{
	{EventLoad, "load"},
	{EventEnterFrame, "enterFrame"},
	{EventUnload, "unload"},
	{EventMouseMove, "mouseMove"},
	{EventMouseDown, "mouseDown"},
	{EventMouseUp, "mouseUp"},
	{EventKeyDown, "keyDown"},
	{EventKeyUp, "keyUp"},
	{EventData, "data"},
	{EventInitialize, "initialize"},
	{EventPress, "press"},
	{EventRelease, "release"},
	{EventReleaseOutside, "releaseOutside"},
	{EventRollOver, "rollOver"},
	{EventRollOut, "rollOut"},
	{EventDragOver, "dragOver"},
	{EventDragOut, "dragOut"},
	{EventKeyPress, "keyPress"},
	{EventConstruct, "construct"},
}

// ParseClipEvent maps an onClipEvent name ("enterFrame") to its bit.
func ParseClipEvent(name string) (ClipEvent, bool) {
	for _, e := range clipEventNames {
		if e.name == name {
			return e.ev, true
		}
	}
	return 0, false
}

// String returns the name of a single-bit event.
func (e ClipEvent) String() string {
	for _, n := range clipEventNames {
		if n.ev == e {
			return n.name
		}
	}
	return "mixed"
}

// ClipAction is a script bound to clip events by a Place tag.
type ClipAction struct {
	Events  ClipEvent
	KeyCode byte
	Code    []byte
}

// ---------------------------------------------------------------------------
// Button
// ---------------------------------------------------------------------------

// ButtonState is a bit mask of the states a button record is shown in.
type ButtonState uint8

const (
	StateUp ButtonState = 1 << iota
	StateOver
	StateDown
	StateHit
)

// ButtonRecord places a character inside a button for some states.
type ButtonRecord struct {
	States      ButtonState
	CharacterID CharacterID
	Depth       int
	Matrix      geom.Matrix
	Color       geom.ColorTransform
}

// ButtonCondition is a bit mask of button state transitions.
type ButtonCondition uint16

const (
	CondIdleToOverUp       ButtonCondition = 1 << iota // rollOver
	CondOverUpToIdle                                   // rollOut
	CondOverUpToOverDown                               // press
	CondOverDownToOverUp                               // release
	CondOverDownToOutDown                              // dragOut
	CondOutDownToOverDown                              // dragOver
	CondOutDownToIdle                                  // releaseOutside
	CondIdleToOverDown                                 // dragOver (menu)
	CondOverDownToIdle                                 // dragOut (menu)
)

// ButtonAction is a script run on matching transitions.
type ButtonAction struct {
	Conditions ButtonCondition
	KeyCode    byte
	Code       []byte
}

// Button is an interactive character whose displayed records follow its
// up/over/down state and whose hit area is the StateHit records.
type Button struct {
	CharID      CharacterID
	Records     []ButtonRecord
	Actions     []ButtonAction
	TrackAsMenu bool
}

func (b *Button) ID() CharacterID   { return b.CharID }
func (b *Button) Kind() Kind        { return KindButton }
func (b *Button) Bounds() geom.Rect { return geom.Rect{} }

// RecordsFor returns the records shown in state s, in record order.
func (b *Button) RecordsFor(s ButtonState) []ButtonRecord {
	var out []ButtonRecord
	for _, r := range b.Records {
		if r.States&s != 0 {
			out = append(out, r)
		}
	}
	return out
}

package moviedoc

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/reel/avm"
	"github.com/chazu/reel/geom"
	"github.com/chazu/reel/movie"
	"github.com/chazu/reel/player"
)

func TestLoadCounter(t *testing.T) {
	m, err := Load("testdata/counter.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if m.Version != 8 || m.FrameRate != 24 {
		t.Errorf("version %d, rate %v", m.Version, m.FrameRate)
	}
	if m.FrameSize.XMax != 320*geom.TwipsPerPixel || m.FrameSize.YMax != 240*geom.TwipsPerPixel {
		t.Errorf("frame size = %+v", m.FrameSize)
	}
	if got := geom.RGB(m.Background); got != 0x202040 {
		t.Errorf("background = %#x", got)
	}
	if m.Dictionary.Len() != 5 {
		t.Errorf("dictionary has %d characters, want 5", m.Dictionary.Len())
	}
	if c, ok := m.Dictionary.Exported("ball"); !ok || c.ID() != 10 {
		t.Errorf("export ball = %v, %v", c, ok)
	}
	if len(m.Root.InitActions) == 0 {
		t.Error("root init not assembled")
	}
	if n, ok := m.Root.FindLabel("start"); !ok || n != 1 {
		t.Errorf("label start = %d, %v", n, ok)
	}

	place, ok := m.Root.Frames[0].Tags[0].(*movie.Place)
	if !ok {
		t.Fatalf("first tag is %T", m.Root.Frames[0].Tags[0])
	}
	if place.Matrix == nil || place.Matrix.TX != 2000 || place.Matrix.A != 2 || place.Matrix.D != 2 {
		t.Errorf("matrix = %+v", place.Matrix)
	}
	if place.Color == nil || place.Color.AMul != 0.5 || place.Color.RMul != 1 {
		t.Errorf("color = %+v", place.Color)
	}
	if len(place.ClipActions) != 1 || place.ClipActions[0].Events != movie.EventEnterFrame {
		t.Errorf("clip actions = %+v", place.ClipActions)
	}
}

func TestShapeBoundsFromPoints(t *testing.T) {
	m, err := Load("testdata/counter.yaml")
	if err != nil {
		t.Fatal(err)
	}
	c, _ := m.Dictionary.Lookup(1)
	square := c.(*movie.Shape)
	want := geom.Rect{XMax: 400, YMax: 400}
	if square.Rect != want {
		t.Errorf("square bounds = %+v, want %+v", square.Rect, want)
	}
	if !square.Contains(geom.Pixels(10, 10)) {
		t.Error("square does not contain its centre")
	}

	c, _ = m.Dictionary.Lookup(2)
	arc := c.(*movie.Shape)
	if len(arc.Paths[0].Edges) != 1 || !arc.Paths[0].Edges[0].Curved {
		t.Errorf("arc edges = %+v", arc.Paths[0].Edges)
	}
	// Stroke width widens the box by half a line on every side.
	if arc.Rect.YMin != -220 || arc.Rect.XMax != 420 {
		t.Errorf("arc bounds = %+v", arc.Rect)
	}
}

func TestButtonConversion(t *testing.T) {
	m, err := Load("testdata/counter.yaml")
	if err != nil {
		t.Fatal(err)
	}
	c, _ := m.Dictionary.Lookup(20)
	b := c.(*movie.Button)
	if len(b.RecordsFor(movie.StateHit)) != 1 {
		t.Error("hit record missing")
	}
	if len(b.Actions) != 1 || b.Actions[0].Conditions != movie.CondOverDownToOverUp {
		t.Errorf("actions = %+v", b.Actions)
	}
	if b.Records[0].Color != geom.IdentityColor() {
		t.Errorf("record color = %+v, want identity", b.Records[0].Color)
	}
}

func TestPlayLoadedMovie(t *testing.T) {
	m, err := Load("testdata/counter.yaml")
	if err != nil {
		t.Fatal(err)
	}
	var traces []string
	opts := player.DefaultOptions()
	opts.Trace = func(msg string) { traces = append(traces, msg) }
	opts.OnFault = func(err error) { t.Errorf("fault: %v", err) }
	p, err := player.New(m, opts)
	if err != nil {
		t.Fatal(err)
	}
	p.Tick()
	p.Tick()
	p.Tick()

	if got := strings.Count(strings.Join(traces, ","), "tick"); got != 3 {
		t.Errorf("enterFrame traced %d times over 3 ticks, want 3", got)
	}
	label := p.Root().Children().Named("label")
	if label == nil || label.Text != "1" {
		t.Errorf("label = %+v, want text 1", label)
	}
	ball := p.Root().Children().Named("ball")
	// Two frames, so the third tick loops the ball back to frame 1.
	if ball == nil || ball.Clip.Frame != 1 {
		t.Fatalf("ball = %+v", ball)
	}
	if dl := p.DrawList(); len(dl) == 0 {
		t.Error("empty draw list")
	}
}

func TestDefaults(t *testing.T) {
	m, err := Parse([]byte("timeline: []\n"))
	if err != nil {
		t.Fatal(err)
	}
	if m.Version != DefaultVersion || m.FrameRate != 12 {
		t.Errorf("version %d, rate %v", m.Version, m.FrameRate)
	}
	if m.FrameSize.XMax != 550*geom.TwipsPerPixel {
		t.Errorf("frame size = %+v", m.FrameSize)
	}
	if got := geom.RGB(m.Background); got != 0xFFFFFF {
		t.Errorf("background = %#x, want white", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"not a mapping", "- 1\n- 2\n", "must be a mapping"},
		{"empty", "", "empty document"},
		{"two variants", "characters:\n  - id: 1\n    shape: {}\n    sprite: {}\n", "more than one variant"},
		{"no variant", "characters:\n  - id: 1\n", "no character variant"},
		{"duplicate", "characters:\n  - {id: 1, shape: {}}\n  - {id: 1, shape: {}}\n", "characters[1]"},
		{"bad colour", "background: red\n", "background"},
		{"bad size", "size: [1, 2, 3]\n", "size"},
		{"two tag kinds", "timeline:\n  - tags:\n      - {remove: 1, script: stop}\n", "exactly one"},
		{"unknown event", "timeline:\n  - tags:\n      - place: {depth: 1, char: 1, events: [{on: [explode], script: stop}]}\n", "unknown clip event"},
		{"missing char", "timeline:\n  - tags:\n      - place: {depth: 4}\n", "depth 4: missing char"},
		{"bad point", "characters:\n  - id: 1\n    shape:\n      paths:\n        - points: [[0, 0], [1, 2, 3]]\n", "paths[0].points[1]"},
		{"bad state", "characters:\n  - id: 1\n    button:\n      records: [{states: [pressed], char: 2}]\n", "unknown state"},
		{"bad condition", "characters:\n  - id: 1\n    button:\n      actions: [{on: [tap], script: stop}]\n", "unknown condition"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestScriptErrorsKeepAssemblerLine(t *testing.T) {
	doc := "timeline:\n  - tags:\n      - script: |\n          push 1\n          frobnicate\n"
	_, err := Parse([]byte(doc))
	var asmErr *avm.AsmError
	if !errors.As(err, &asmErr) {
		t.Fatalf("error = %v, want an AsmError", err)
	}
	if asmErr.Line != 2 {
		t.Errorf("line = %d, want 2", asmErr.Line)
	}
	if !strings.Contains(err.Error(), "timeline frame 1 tags[0]") {
		t.Errorf("error = %q lacks its location", err)
	}
}

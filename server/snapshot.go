package server

import (
	"github.com/chazu/reel/display"
	"github.com/chazu/reel/geom"
	"github.com/chazu/reel/player"
)

// Snapshot is the debugger's view of a player after a tick.
type Snapshot struct {
	Session   string `cbor:"1,keyasint"`
	Tick      int    `cbor:"2,keyasint"`
	Frame     int    `cbor:"3,keyasint"`
	Frames    int    `cbor:"4,keyasint"`
	Paused    bool   `cbor:"5,keyasint,omitempty"`
	Faults    int    `cbor:"6,keyasint,omitempty"`
	LastFault string `cbor:"7,keyasint,omitempty"`
	Nodes     []Node `cbor:"8,keyasint"`
}

// Node is one display instance, listed depth-first in paint order. Level is
// the nesting depth below the root (the root itself is level 0).
type Node struct {
	Path        string  `cbor:"1,keyasint"`
	Kind        string  `cbor:"2,keyasint"`
	CharacterID uint16  `cbor:"3,keyasint,omitempty"`
	Depth       int     `cbor:"4,keyasint"`
	Level       int     `cbor:"5,keyasint"`
	Frame       int     `cbor:"6,keyasint,omitempty"`
	Playing     bool    `cbor:"7,keyasint,omitempty"`
	Visible     bool    `cbor:"8,keyasint"`
	Placeholder bool    `cbor:"9,keyasint,omitempty"`
	X           float64 `cbor:"10,keyasint"`
	Y           float64 `cbor:"11,keyasint"`
	Text        string  `cbor:"12,keyasint,omitempty"`
}

// TakeSnapshot captures p. It must run on the goroutine that owns p.
func TakeSnapshot(p *player.Player) *Snapshot {
	st := p.Stats()
	root := p.Root()
	s := &Snapshot{
		Session:   p.Session.String(),
		Tick:      st.Frames,
		Frames:    root.Sprite().FrameCount(),
		Faults:    st.Faults,
		LastFault: st.LastFault,
	}
	if root.Clip != nil {
		s.Frame = root.Clip.Frame
	}
	walk(root, 0, &s.Nodes)
	return s
}

func walk(inst *display.Instance, level int, out *[]Node) {
	n := Node{
		Path:        inst.Path(),
		Kind:        inst.Kind.String(),
		Depth:       inst.Depth,
		Level:       level,
		Visible:     inst.Visible,
		Placeholder: inst.Placeholder,
		X:           inst.Matrix.TX / geom.TwipsPerPixel,
		Y:           inst.Matrix.TY / geom.TwipsPerPixel,
		Text:        inst.Text,
	}
	if inst.Character != nil {
		n.CharacterID = uint16(inst.Character.ID())
	}
	if inst.Clip != nil {
		n.Frame = inst.Clip.Frame
		n.Playing = inst.Clip.Playing
	}
	*out = append(*out, n)
	if inst.Children() == nil {
		return
	}
	for _, c := range inst.Children().ByDepth() {
		walk(c, level+1, out)
	}
}

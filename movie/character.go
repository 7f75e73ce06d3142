// Package movie is the immutable, load-time model of a movie: the resource
// dictionary, the character variants it holds and the per-frame tag lists
// that drive timelines.
package movie

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/chazu/reel/geom"
)

// CharacterID keys a character in a Dictionary. The root timeline uses 0.
type CharacterID uint16

// Kind discriminates the character variants.
type Kind uint8

const (
	KindShape Kind = iota + 1
	KindBitmap
	KindFont
	KindSprite
	KindButton
	KindText
)

var kindNames = map[Kind]string{
	KindShape:  "shape",
	KindBitmap: "bitmap",
	KindFont:   "font",
	KindSprite: "sprite",
	KindButton: "button",
	KindText:   "text",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// IsContainer reports whether instances of this kind own a display list.
func (k Kind) IsContainer() bool {
	return k == KindSprite || k == KindButton
}

// Character is an immutable resource template. Instances on the display list
// point back at their character; characters never point at instances.
type Character interface {
	ID() CharacterID
	Kind() Kind
	Bounds() geom.Rect
}

// ---------------------------------------------------------------------------
// Shape
// ---------------------------------------------------------------------------

// Fill is a solid fill or stroke colour.
type Fill struct {
	Color colorful.Color
	Alpha float64
}

// Edge is a straight segment to Anchor, or a quadratic curve through Control
// when Curved is set.
type Edge struct {
	Curved  bool
	Control geom.Point
	Anchor  geom.Point
}

// Path is one closed or open outline of a shape.
type Path struct {
	Start     geom.Point
	Edges     []Edge
	Fill      *Fill
	Line      *Fill
	LineWidth float64
}

// Shape is a vector outline character.
type Shape struct {
	CharID CharacterID
	Rect   geom.Rect
	Paths  []Path
}

func (s *Shape) ID() CharacterID   { return s.CharID }
func (s *Shape) Kind() Kind        { return KindShape }
func (s *Shape) Bounds() geom.Rect { return s.Rect }

// curveSteps is the number of segments a quadratic edge is flattened into.
const curveSteps = 8

// flatten returns the polyline of p, starting at p.Start.
func (p *Path) flatten() []geom.Point {
	pts := make([]geom.Point, 0, len(p.Edges)+1)
	pts = append(pts, p.Start)
	cur := p.Start
	for _, e := range p.Edges {
		if !e.Curved {
			pts = append(pts, e.Anchor)
			cur = e.Anchor
			continue
		}
		for i := 1; i <= curveSteps; i++ {
			t := float64(i) / curveSteps
			u := 1 - t
			pts = append(pts, geom.Point{
				X: u*u*cur.X + 2*u*t*e.Control.X + t*t*e.Anchor.X,
				Y: u*u*cur.Y + 2*u*t*e.Control.Y + t*t*e.Anchor.Y,
			})
		}
		cur = e.Anchor
	}
	return pts
}

// Contains reports whether the local point lies inside the shape's geometry:
// inside a filled path (even-odd rule) or within half a line width of a
// stroked one. Shapes without paths fall back to their bounds.
func (s *Shape) Contains(pt geom.Point) bool {
	if !s.Rect.Contains(pt) {
		return false
	}
	if len(s.Paths) == 0 {
		return true
	}
	for i := range s.Paths {
		p := &s.Paths[i]
		poly := p.flatten()
		if p.Fill != nil && evenOdd(poly, pt) {
			return true
		}
		if p.Line != nil && p.LineWidth > 0 && nearPolyline(poly, pt, p.LineWidth/2) {
			return true
		}
	}
	return false
}

func evenOdd(poly []geom.Point, pt geom.Point) bool {
	inside := false
	n := len(poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) &&
			pt.X < (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

func nearPolyline(poly []geom.Point, pt geom.Point, r float64) bool {
	for i := 1; i < len(poly); i++ {
		if segmentDistance(poly[i-1], poly[i], pt) <= r {
			return true
		}
	}
	return false
}

func segmentDistance(a, b, p geom.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

// ---------------------------------------------------------------------------
// Bitmap, Font, EditText
// ---------------------------------------------------------------------------

// Bitmap is an image character. Source is an opaque reference that the
// renderer resolves; pixels never pass through the core.
type Bitmap struct {
	CharID        CharacterID
	Width, Height int
	Source        string
}

func (b *Bitmap) ID() CharacterID { return b.CharID }
func (b *Bitmap) Kind() Kind      { return KindBitmap }
func (b *Bitmap) Bounds() geom.Rect {
	return geom.Rect{XMax: float64(b.Width * geom.TwipsPerPixel), YMax: float64(b.Height * geom.TwipsPerPixel)}
}

// Font names a glyph set. Glyph outlines are the renderer's concern.
type Font struct {
	CharID CharacterID
	Name   string
	Glyphs int
}

func (f *Font) ID() CharacterID   { return f.CharID }
func (f *Font) Kind() Kind        { return KindFont }
func (f *Font) Bounds() geom.Rect { return geom.Rect{} }

// EditText is a text field template. When Variable is set the field mirrors
// that variable of its parent clip.
type EditText struct {
	CharID    CharacterID
	Rect      geom.Rect
	Text      string
	Variable  string
	FontID    CharacterID
	Size      float64
	Color     Fill
	Multiline bool
	ReadOnly  bool
}

func (t *EditText) ID() CharacterID   { return t.CharID }
func (t *EditText) Kind() Kind        { return KindText }
func (t *EditText) Bounds() geom.Rect { return t.Rect }

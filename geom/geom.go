// Package geom holds the 2D value types shared by the movie model, the
// display list and the player: points and rectangles in twips, affine
// matrices and colour transforms.
package geom

import "math"

// TwipsPerPixel is the fixed sub-pixel unit used by movie coordinates.
const TwipsPerPixel = 20

// Point is a position in twips.
type Point struct {
	X, Y float64
}

// Pixels converts a pixel position into twips.
func Pixels(x, y float64) Point {
	return Point{X: x * TwipsPerPixel, Y: y * TwipsPerPixel}
}

// ---------------------------------------------------------------------------
// Rect
// ---------------------------------------------------------------------------

// Rect is an axis-aligned rectangle in twips. The zero Rect is empty.
type Rect struct {
	XMin, YMin, XMax, YMax float64
}

// EmptyRect returns a rectangle that contains nothing and unions as identity.
func EmptyRect() Rect {
	return Rect{XMin: math.Inf(1), YMin: math.Inf(1), XMax: math.Inf(-1), YMax: math.Inf(-1)}
}

// IsEmpty reports whether r contains no area.
func (r Rect) IsEmpty() bool {
	return r.XMax < r.XMin || r.YMax < r.YMin || (r.XMin == 0 && r.YMin == 0 && r.XMax == 0 && r.YMax == 0)
}

// Contains reports whether p lies inside r (edges inclusive).
func (r Rect) Contains(p Point) bool {
	if r.IsEmpty() {
		return false
	}
	return p.X >= r.XMin && p.X <= r.XMax && p.Y >= r.YMin && p.Y <= r.YMax
}

// Union returns the smallest rectangle containing both r and o.
func (r Rect) Union(o Rect) Rect {
	if r.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return r
	}
	return Rect{
		XMin: math.Min(r.XMin, o.XMin),
		YMin: math.Min(r.YMin, o.YMin),
		XMax: math.Max(r.XMax, o.XMax),
		YMax: math.Max(r.YMax, o.YMax),
	}
}

// Width returns XMax-XMin, or 0 for an empty rectangle.
func (r Rect) Width() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.XMax - r.XMin
}

// Height returns YMax-YMin, or 0 for an empty rectangle.
func (r Rect) Height() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.YMax - r.YMin
}

// ---------------------------------------------------------------------------
// Matrix
// ---------------------------------------------------------------------------

// Matrix is a 2D affine transform:
//
//	x' = A*x + C*y + TX
//	y' = B*x + D*y + TY
type Matrix struct {
	A, B, C, D float64
	TX, TY     float64
}

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{A: 1, D: 1}
}

// Translate returns a pure translation by (x, y) twips.
func Translate(x, y float64) Matrix {
	return Matrix{A: 1, D: 1, TX: x, TY: y}
}

// IsZero reports whether m is the zero value (used as "not specified").
func (m Matrix) IsZero() bool {
	return m == Matrix{}
}

// Transform applies m to p.
func (m Matrix) Transform(p Point) Point {
	return Point{
		X: m.A*p.X + m.C*p.Y + m.TX,
		Y: m.B*p.X + m.D*p.Y + m.TY,
	}
}

// Concat returns the transform that applies child first and then m.
func (m Matrix) Concat(child Matrix) Matrix {
	return Matrix{
		A:  m.A*child.A + m.C*child.B,
		B:  m.B*child.A + m.D*child.B,
		C:  m.A*child.C + m.C*child.D,
		D:  m.B*child.C + m.D*child.D,
		TX: m.A*child.TX + m.C*child.TY + m.TX,
		TY: m.B*child.TX + m.D*child.TY + m.TY,
	}
}

// Inverse returns the inverse of m. ok is false when m is singular.
func (m Matrix) Inverse() (inv Matrix, ok bool) {
	det := m.A*m.D - m.B*m.C
	if det == 0 || math.IsNaN(det) {
		return Matrix{}, false
	}
	inv.A = m.D / det
	inv.B = -m.B / det
	inv.C = -m.C / det
	inv.D = m.A / det
	inv.TX = -(inv.A*m.TX + inv.C*m.TY)
	inv.TY = -(inv.B*m.TX + inv.D*m.TY)
	return inv, true
}

// TransformRect returns the bounding box of r after transformation.
func (m Matrix) TransformRect(r Rect) Rect {
	if r.IsEmpty() {
		return r
	}
	out := EmptyRect()
	for _, p := range [4]Point{
		{r.XMin, r.YMin}, {r.XMax, r.YMin},
		{r.XMin, r.YMax}, {r.XMax, r.YMax},
	} {
		q := m.Transform(p)
		out.XMin = math.Min(out.XMin, q.X)
		out.YMin = math.Min(out.YMin, q.Y)
		out.XMax = math.Max(out.XMax, q.X)
		out.YMax = math.Max(out.YMax, q.Y)
	}
	return out
}

// XScale returns the horizontal scale factor (1.0 = 100%).
func (m Matrix) XScale() float64 {
	return math.Hypot(m.A, m.B)
}

// YScale returns the vertical scale factor, negative when the axes are
// mirrored.
func (m Matrix) YScale() float64 {
	s := math.Hypot(m.C, m.D)
	if m.A*m.D-m.B*m.C < 0 {
		return -s
	}
	return s
}

// Rotation returns the rotation in degrees, in (-180, 180].
func (m Matrix) Rotation() float64 {
	if m.A == 0 && m.B == 0 {
		return 0
	}
	return math.Atan2(m.B, m.A) * 180 / math.Pi
}

// Compose builds a matrix from a translation in twips, scale factors and a
// rotation in degrees, the decomposition scripts see through _x, _xscale and
// _rotation.
func Compose(tx, ty, xscale, yscale, rotation float64) Matrix {
	r := rotation * math.Pi / 180
	sin, cos := math.Sincos(r)
	return Matrix{
		A:  xscale * cos,
		B:  xscale * sin,
		C:  -yscale * sin,
		D:  yscale * cos,
		TX: tx,
		TY: ty,
	}
}

// WithScale returns m with its scale factors replaced, keeping rotation and
// translation.
func (m Matrix) WithScale(xscale, yscale float64) Matrix {
	return Compose(m.TX, m.TY, xscale, yscale, m.Rotation())
}

// WithRotation returns m rotated to the absolute angle deg.
func (m Matrix) WithRotation(deg float64) Matrix {
	return Compose(m.TX, m.TY, m.XScale(), m.YScale(), deg)
}

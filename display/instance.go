// Package display implements the runtime display-list tree: character
// instances placed at depths inside containers, hit testing, and the
// back-to-front draw list handed to renderers.
//
// Paint order and hit priority follow depth. Script execution follows
// placement order, which each DisplayList records separately.
package display

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/chazu/reel/geom"
	"github.com/chazu/reel/movie"
	"github.com/tidwall/btree"
)

// ClipState is the timeline state of a sprite instance.
type ClipState struct {
	// Frame is the current 1-based frame, 0 before the first frame is entered.
	Frame   int
	Playing bool
	// Loaded is set once the load event has fired.
	Loaded bool
	// Scripted is the last frame whose scripts ran for the current arrival.
	Scripted int
	// Arrived is the player tick of the last frame arrival.
	Arrived int
}

// Instance is one placement of a character on a display list.
type Instance struct {
	id  uint64
	seq uint64

	Character movie.Character
	Kind      movie.Kind

	Matrix    geom.Matrix
	Color     geom.ColorTransform
	Visible   bool
	Enabled   bool
	Name      string
	Depth     int
	ClipDepth int
	Ratio     float64

	// Placeholder marks an instance standing in for an unknown character.
	Placeholder bool
	// Removed is set when the instance is destroyed; bindings to it go inert.
	Removed bool
	// Dynamic instances were placed by script and survive timeline rebuilds.
	Dynamic bool

	// Text is the live contents of a text field.
	Text string
	// ButtonState is the displayed state of a button.
	ButtonState movie.ButtonState
	// Actions are the onClipEvent handlers attached by the place tag.
	Actions []movie.ClipAction
	// Clip is the timeline state of sprite instances.
	Clip *ClipState
	// Binding is the script object bound to the instance, owned by the player.
	Binding any

	parent   *Instance
	children *DisplayList
}

// ID returns the instance's unique, monotonically assigned identity.
func (i *Instance) ID() uint64 { return i.id }

// Parent returns the containing instance, nil for the root and detached
// instances.
func (i *Instance) Parent() *Instance { return i.parent }

// Children returns the child list, nil for leaves.
func (i *Instance) Children() *DisplayList { return i.children }

// IsContainer reports whether the instance has a display list.
func (i *Instance) IsContainer() bool { return i.children != nil }

// Sprite returns the timeline template of a sprite instance.
func (i *Instance) Sprite() *movie.Sprite {
	s, _ := i.Character.(*movie.Sprite)
	return s
}

// Root walks up to the topmost ancestor.
func (i *Instance) Root() *Instance {
	r := i
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// WorldMatrix concatenates the matrices from the root down to i.
func (i *Instance) WorldMatrix() geom.Matrix {
	m := i.Matrix
	for p := i.parent; p != nil; p = p.parent {
		m = p.Matrix.Concat(m)
	}
	return m
}

// WorldColor concatenates the colour transforms from the root down to i.
func (i *Instance) WorldColor() geom.ColorTransform {
	c := i.Color
	for p := i.parent; p != nil; p = p.parent {
		c = p.Color.Concat(c)
	}
	return c
}

// IsAncestorOf reports whether i contains o (directly or indirectly).
func (i *Instance) IsAncestorOf(o *Instance) bool {
	for p := o.parent; p != nil; p = p.parent {
		if p == i {
			return true
		}
	}
	return false
}

// Path returns the dotted target path, rooted at _level0.
func (i *Instance) Path() string {
	var parts []string
	for p := i; p != nil; p = p.parent {
		if p.parent == nil {
			parts = append(parts, "_level0")
			break
		}
		parts = append(parts, p.Name)
	}
	for l, r := 0, len(parts)-1; l < r; l, r = l+1, r-1 {
		parts[l], parts[r] = parts[r], parts[l]
	}
	return strings.Join(parts, ".")
}

// SlashPath returns the target path in slash syntax ("/" for the root).
func (i *Instance) SlashPath() string {
	p := i.Path()
	if p == "_level0" {
		return "/"
	}
	return "/" + strings.ReplaceAll(strings.TrimPrefix(p, "_level0."), ".", "/")
}

func (i *Instance) String() string {
	return fmt.Sprintf("%s#%d(%s)", i.Kind, i.id, i.Path())
}

// ---------------------------------------------------------------------------
// DisplayList
// ---------------------------------------------------------------------------

// DisplayList holds a container's children keyed by depth. At most one
// instance occupies a depth.
type DisplayList struct {
	byDepth *btree.BTreeG[*Instance]
	seq     uint64
}

func byDepth(a, b *Instance) bool { return a.Depth < b.Depth }

func newDisplayList() *DisplayList {
	return &DisplayList{byDepth: btree.NewBTreeGOptions(byDepth, btree.Options{NoLocks: true})}
}

// Len returns the number of children.
func (l *DisplayList) Len() int { return l.byDepth.Len() }

// At returns the occupant of depth.
func (l *DisplayList) At(depth int) (*Instance, bool) {
	return l.byDepth.Get(&Instance{Depth: depth})
}

// ByDepth returns the children back to front (depth ascending).
func (l *DisplayList) ByDepth() []*Instance {
	return l.byDepth.Items()
}

// FrontToBack visits children depth-descending until fn returns false.
func (l *DisplayList) FrontToBack(fn func(*Instance) bool) {
	l.byDepth.Reverse(fn)
}

// ByPlacement returns the children in the order they were placed, the
// order in which their scripts run.
func (l *DisplayList) ByPlacement() []*Instance {
	items := l.byDepth.Items()
	sortBySeq(items)
	return items
}

// Named returns the first child (in depth order) called name.
func (l *DisplayList) Named(name string) *Instance {
	var found *Instance
	l.byDepth.Scan(func(c *Instance) bool {
		if c.Name == name {
			found = c
			return false
		}
		return true
	})
	return found
}

// MaxDepth returns the highest occupied depth, or def when empty.
func (l *DisplayList) MaxDepth(def int) int {
	if c, ok := l.byDepth.Max(); ok {
		return c.Depth
	}
	return def
}

func (l *DisplayList) insert(c *Instance) {
	l.seq++
	c.seq = l.seq
	l.byDepth.Set(c)
}

func (l *DisplayList) delete(depth int) (*Instance, bool) {
	return l.byDepth.Delete(&Instance{Depth: depth})
}

func sortBySeq(items []*Instance) {
	slices.SortFunc(items, func(a, b *Instance) int { return cmp.Compare(a.seq, b.seq) })
}

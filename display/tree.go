package display

import (
	"errors"
	"fmt"

	"github.com/chazu/reel/geom"
	"github.com/chazu/reel/movie"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("reel.display")

// ErrUnknownCharacter is reported (wrapped with the ID) when a placement
// names a character missing from the dictionary. The placement still
// produces an empty placeholder instance.
var ErrUnknownCharacter = errors.New("unknown character")

// PlaceOptions are the optional attributes of a placement. Nil pointers
// leave the default (or, with Replace, the replaced occupant's value).
type PlaceOptions struct {
	Matrix    *geom.Matrix
	Color     *geom.ColorTransform
	Ratio     *float64
	Visible   *bool
	Name      string
	ClipDepth int
	Actions   []movie.ClipAction

	// Replace swaps out the occupant of the depth.
	Replace bool
	// Dynamic marks a script placement: it always replaces the occupant and
	// survives timeline rebuilds.
	Dynamic bool
}

// MoveOptions are the attributes a move may change.
type MoveOptions struct {
	Matrix    *geom.Matrix
	Color     *geom.ColorTransform
	Ratio     *float64
	Visible   *bool
	Name      string
	ClipDepth int
}

// Tree owns the instances created from one dictionary.
type Tree struct {
	dict   *movie.Dictionary
	nextID uint64

	// OnRemove is called for every destroyed instance, parents before
	// children, before the instance is marked Removed.
	OnRemove func(*Instance)
}

// NewTree creates a tree resolving characters in dict.
func NewTree(dict *movie.Dictionary) *Tree {
	if dict == nil {
		dict = movie.NewDictionary()
	}
	return &Tree{dict: dict}
}

// Dictionary returns the dictionary characters are resolved in.
func (t *Tree) Dictionary() *movie.Dictionary { return t.dict }

// NewRoot instantiates the root timeline.
func (t *Tree) NewRoot(root *movie.Sprite) *Instance {
	return t.instantiate(root)
}

func (t *Tree) instantiate(c movie.Character) *Instance {
	t.nextID++
	inst := &Instance{
		id:        t.nextID,
		Character: c,
		Matrix:    geom.Identity(),
		Color:     geom.IdentityColor(),
		Visible:   true,
		Enabled:   true,
	}
	if c == nil {
		inst.Placeholder = true
		return inst
	}
	inst.Kind = c.Kind()
	switch c := c.(type) {
	case *movie.Sprite:
		inst.children = newDisplayList()
		inst.Clip = &ClipState{Playing: true}
	case *movie.Button:
		inst.children = newDisplayList()
		t.SetButtonState(inst, movie.StateUp)
	case *movie.EditText:
		inst.Text = c.Text
	}
	return inst
}

// Place puts character id at depth inside container. An occupied depth is
// left alone (and nil returned) unless opts.Replace or opts.Dynamic is set.
// An unknown id yields a placeholder instance and an error wrapping
// ErrUnknownCharacter.
func (t *Tree) Place(container *Instance, depth int, id movie.CharacterID, opts PlaceOptions) (*Instance, error) {
	c, ok := t.dict.Lookup(id)
	inst, err := t.PlaceCharacter(container, depth, c, opts)
	if err != nil || inst == nil {
		return inst, err
	}
	if !ok {
		return inst, fmt.Errorf("place at depth %d: %w %d", depth, ErrUnknownCharacter, id)
	}
	return inst, nil
}

// PlaceCharacter places a character that need not be in the dictionary
// (script-created clips and text fields own theirs). A nil character makes a
// placeholder.
func (t *Tree) PlaceCharacter(container *Instance, depth int, c movie.Character, opts PlaceOptions) (*Instance, error) {
	if container == nil || container.children == nil {
		return nil, fmt.Errorf("place at depth %d: container cannot hold children", depth)
	}
	old, occupied := container.children.At(depth)
	if occupied && !opts.Replace && !opts.Dynamic {
		log.Debugf("depth %d of %s occupied by %s, place ignored", depth, container, old)
		return nil, nil
	}

	inst := t.instantiate(c)
	inst.Depth = depth
	inst.Dynamic = opts.Dynamic
	inst.ClipDepth = opts.ClipDepth
	inst.Actions = opts.Actions
	if occupied && opts.Replace {
		inst.Matrix, inst.Color = old.Matrix, old.Color
		if inst.Name == "" {
			inst.Name = old.Name
		}
	}
	if opts.Matrix != nil {
		inst.Matrix = *opts.Matrix
	}
	if opts.Color != nil {
		inst.Color = *opts.Color
	}
	if opts.Ratio != nil {
		inst.Ratio = *opts.Ratio
	}
	if opts.Visible != nil {
		inst.Visible = *opts.Visible
	}
	if opts.Name != "" {
		inst.Name = opts.Name
	}
	if inst.Name == "" && (inst.Kind == movie.KindSprite || inst.Kind == movie.KindButton || inst.Kind == movie.KindText) {
		inst.Name = fmt.Sprintf("instance%d", inst.id)
	}
	if occupied {
		t.detach(container, old)
	}
	inst.parent = container
	container.children.insert(inst)
	return inst, nil
}

// Move updates the occupant of depth in place; its identity is unchanged.
// It returns nil when the depth is empty.
func (t *Tree) Move(container *Instance, depth int, opts MoveOptions) *Instance {
	if container == nil || container.children == nil {
		return nil
	}
	inst, ok := container.children.At(depth)
	if !ok {
		return nil
	}
	if opts.Matrix != nil {
		inst.Matrix = *opts.Matrix
	}
	if opts.Color != nil {
		inst.Color = *opts.Color
	}
	if opts.Ratio != nil {
		inst.Ratio = *opts.Ratio
	}
	if opts.Visible != nil {
		inst.Visible = *opts.Visible
	}
	if opts.Name != "" {
		inst.Name = opts.Name
	}
	if opts.ClipDepth != 0 {
		inst.ClipDepth = opts.ClipDepth
	}
	return inst
}

// Remove destroys the occupant of depth and its subtree.
func (t *Tree) Remove(container *Instance, depth int) bool {
	if container == nil || container.children == nil {
		return false
	}
	inst, ok := container.children.At(depth)
	if !ok {
		return false
	}
	t.detach(container, inst)
	return true
}

// RemoveInstance destroys inst wherever it is placed.
func (t *Tree) RemoveInstance(inst *Instance) bool {
	if inst == nil || inst.parent == nil || inst.Removed {
		return false
	}
	return t.Remove(inst.parent, inst.Depth)
}

// RemoveTimelineChildren destroys every child not placed by script, as a
// timeline rebuild does.
func (t *Tree) RemoveTimelineChildren(container *Instance) {
	if container.children == nil {
		return
	}
	for _, c := range container.children.ByDepth() {
		if !c.Dynamic {
			t.detach(container, c)
		}
	}
}

func (t *Tree) detach(container *Instance, inst *Instance) {
	container.children.delete(inst.Depth)
	t.destroy(inst)
	inst.parent = nil
}

func (t *Tree) destroy(inst *Instance) {
	if t.OnRemove != nil {
		t.OnRemove(inst)
	}
	inst.Removed = true
	if inst.children == nil {
		return
	}
	for _, c := range inst.children.ByDepth() {
		inst.children.delete(c.Depth)
		t.destroy(c)
		c.parent = nil
	}
}

// Swap exchanges the occupants of two depths. Either may be empty, in which
// case the other occupant simply moves.
func (t *Tree) Swap(container *Instance, a, b int) {
	if container == nil || container.children == nil || a == b {
		return
	}
	l := container.children
	ia, okA := l.delete(a)
	ib, okB := l.delete(b)
	if okA {
		ia.Depth = b
		l.byDepth.Set(ia)
	}
	if okB {
		ib.Depth = a
		l.byDepth.Set(ib)
	}
}

// SetDepth moves inst to depth within its parent, swapping with any occupant.
func (t *Tree) SetDepth(inst *Instance, depth int) {
	if inst.parent == nil {
		return
	}
	t.Swap(inst.parent, inst.Depth, depth)
}

// SetButtonState rebuilds a button's displayed records for state s.
func (t *Tree) SetButtonState(inst *Instance, s movie.ButtonState) {
	b, ok := inst.Character.(*movie.Button)
	if !ok || (inst.ButtonState == s && inst.children.Len() > 0) {
		return
	}
	inst.ButtonState = s
	for _, c := range inst.children.ByDepth() {
		t.detach(inst, c)
	}
	for _, r := range b.RecordsFor(s) {
		m, cx := r.Matrix, r.Color
		if m.IsZero() {
			m = geom.Identity()
		}
		if cx.IsZero() {
			cx = geom.IdentityColor()
		}
		c, _ := t.dict.Lookup(r.CharacterID)
		child, err := t.PlaceCharacter(inst, r.Depth, c, PlaceOptions{Matrix: &m, Color: &cx, Replace: true})
		if err != nil || child == nil {
			continue
		}
		if c == nil {
			log.Warningf("button %d: record at depth %d references unknown character %d", b.CharID, r.Depth, r.CharacterID)
		}
	}
}

// Bounds returns the bounds of inst in its own coordinate space.
func (t *Tree) Bounds(inst *Instance) geom.Rect {
	if inst.Placeholder || inst.Character == nil {
		return geom.Rect{}
	}
	if inst.children == nil {
		if txt, ok := inst.Character.(*movie.EditText); ok {
			return txt.Rect
		}
		return inst.Character.Bounds()
	}
	r := geom.EmptyRect()
	for _, c := range inst.children.ByDepth() {
		b := t.Bounds(c)
		if b.IsEmpty() {
			continue
		}
		r = r.Union(c.Matrix.TransformRect(b))
	}
	if r.XMin > r.XMax {
		return geom.Rect{}
	}
	return r
}

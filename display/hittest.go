package display

import (
	"github.com/chazu/reel/geom"
	"github.com/chazu/reel/movie"
)

// HitTest returns the instance the pointer at pt (stage coordinates, twips)
// is over. Children are tested depth-descending; invisible subtrees are
// skipped and masks clip what they cover. For each leaf hit, front to back,
// the outermost ancestor (or the leaf itself) accepted by interactive is
// returned. Hits without an interactive ancestor do not block instances
// behind them. A nil interactive returns the frontmost leaf.
func (t *Tree) HitTest(root *Instance, pt geom.Point, interactive func(*Instance) bool) *Instance {
	var found *Instance
	t.hitLeaves(root, pt, func(leaf *Instance) bool {
		if interactive == nil {
			found = leaf
			return false
		}
		for p := leaf; p != nil; p = p.parent {
			if interactive(p) {
				found = p
			}
			if p == root {
				break
			}
		}
		return found == nil
	})
	return found
}

// HitShape reports whether pt (in the parent space of inst) falls on any
// visible geometry of inst, ignoring interactivity.
func (t *Tree) HitShape(inst *Instance, pt geom.Point) bool {
	hit := false
	t.hitLeaves(inst, pt, func(*Instance) bool {
		hit = true
		return false
	})
	return hit
}

// hitLeaves reports leaves under pt front to back until visit returns
// false. pt is in inst's parent space.
func (t *Tree) hitLeaves(inst *Instance, pt geom.Point, visit func(*Instance) bool) bool {
	if !inst.Visible || inst.Removed {
		return true
	}
	inv, ok := inst.Matrix.Inverse()
	if !ok {
		return true
	}
	local := inv.Transform(pt)

	if b, ok := inst.Character.(*movie.Button); ok {
		if t.buttonHit(b, local) {
			return visit(inst)
		}
		return true
	}
	if inst.children == nil {
		if t.leafHit(inst, local) {
			return visit(inst)
		}
		return true
	}

	children := inst.children.ByDepth()
	for i := len(children) - 1; i >= 0; i-- {
		c := children[i]
		if c.ClipDepth > 0 {
			continue
		}
		if m := maskFor(children, i); m != nil && !t.HitShape(m, local) {
			continue
		}
		if !t.hitLeaves(c, local, visit) {
			return false
		}
	}
	return true
}

// maskFor returns the mask covering children[i], if any.
func maskFor(children []*Instance, i int) *Instance {
	d := children[i].Depth
	for j := i - 1; j >= 0; j-- {
		m := children[j]
		if m.ClipDepth > 0 && m.Depth < d && d <= m.ClipDepth {
			return m
		}
	}
	return nil
}

func (t *Tree) leafHit(inst *Instance, local geom.Point) bool {
	switch c := inst.Character.(type) {
	case *movie.Shape:
		return c.Contains(local)
	case *movie.EditText:
		return c.Rect.Contains(local)
	case *movie.Bitmap:
		return c.Bounds().Contains(local)
	}
	return false
}

func (t *Tree) buttonHit(b *movie.Button, local geom.Point) bool {
	for _, r := range b.RecordsFor(movie.StateHit) {
		m := r.Matrix
		if m.IsZero() {
			m = geom.Identity()
		}
		inv, ok := m.Inverse()
		if !ok {
			continue
		}
		c, ok := t.dict.Lookup(r.CharacterID)
		if !ok {
			continue
		}
		p := inv.Transform(local)
		switch c := c.(type) {
		case *movie.Shape:
			if c.Contains(p) {
				return true
			}
		default:
			if c.Bounds().Contains(p) {
				return true
			}
		}
	}
	return false
}

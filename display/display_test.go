package display

import (
	"bytes"
	"errors"
	"testing"

	"github.com/chazu/reel/geom"
	"github.com/chazu/reel/movie"
)

// box is a shape covering [0,size) in both axes, matching its bounds.
func box(id movie.CharacterID, size float64) *movie.Shape {
	return &movie.Shape{CharID: id, Rect: geom.Rect{XMax: size, YMax: size}}
}

func testTree(t *testing.T, chars ...movie.Character) (*Tree, *Instance) {
	t.Helper()
	d := movie.NewDictionary()
	for _, c := range chars {
		if err := d.Define(c); err != nil {
			t.Fatal(err)
		}
	}
	d.Freeze()
	tree := NewTree(d)
	return tree, tree.NewRoot(&movie.Sprite{})
}

func place(t *testing.T, tree *Tree, container *Instance, depth int, id movie.CharacterID, opts PlaceOptions) *Instance {
	t.Helper()
	inst, err := tree.Place(container, depth, id, opts)
	if err != nil {
		t.Fatalf("place %d at %d: %v", id, depth, err)
	}
	return inst
}

func at(x, y float64) *geom.Matrix {
	m := geom.Translate(x, y)
	return &m
}

func TestDepthInvariant(t *testing.T) {
	tree, root := testTree(t, box(1, 100), box(2, 100))

	a := place(t, tree, root, 1, 1, PlaceOptions{})
	if got := place(t, tree, root, 1, 2, PlaceOptions{}); got != nil {
		t.Errorf("place at occupied depth returned %v, want nil (ignored)", got)
	}
	if occ, _ := root.Children().At(1); occ != a {
		t.Error("ignored place replaced the occupant")
	}

	b := place(t, tree, root, 1, 2, PlaceOptions{Replace: true})
	if b == nil || b == a {
		t.Fatal("replace did not create a new instance")
	}
	if !a.Removed {
		t.Error("replaced occupant not destroyed")
	}

	place(t, tree, root, 5, 1, PlaceOptions{})
	tree.Swap(root, 1, 5)
	tree.Remove(root, 5)
	place(t, tree, root, 3, 1, PlaceOptions{Dynamic: true})
	place(t, tree, root, 3, 2, PlaceOptions{Dynamic: true})

	seen := map[int]int{}
	for _, c := range root.Children().ByDepth() {
		seen[c.Depth]++
	}
	for depth, n := range seen {
		if n != 1 {
			t.Errorf("depth %d has %d occupants", depth, n)
		}
	}
	if root.Children().Len() != 2 {
		t.Errorf("children = %d, want 2", root.Children().Len())
	}
}

func TestReplaceInheritsTransform(t *testing.T) {
	tree, root := testTree(t, box(1, 100), box(2, 100))
	place(t, tree, root, 1, 1, PlaceOptions{Matrix: at(50, 60)})
	b := place(t, tree, root, 1, 2, PlaceOptions{Replace: true})
	if b.Matrix != geom.Translate(50, 60) {
		t.Errorf("replacement matrix = %+v, want inherited translate", b.Matrix)
	}
}

func TestMovePreservesIdentity(t *testing.T) {
	tree, root := testTree(t, &movie.Sprite{CharID: 3})
	clip := place(t, tree, root, 1, 3, PlaceOptions{Name: "hero"})
	id := clip.ID()

	moved := tree.Move(root, 1, MoveOptions{Matrix: at(100, 0)})
	if moved != clip || moved.ID() != id {
		t.Fatal("move changed the instance identity")
	}
	if clip.Matrix.TX != 100 {
		t.Errorf("matrix not updated: %+v", clip.Matrix)
	}
	if tree.Move(root, 9, MoveOptions{}) != nil {
		t.Error("move on empty depth returned an instance")
	}
}

func TestUnknownCharacterMakesPlaceholder(t *testing.T) {
	tree, root := testTree(t)
	inst, err := tree.Place(root, 1, 99, PlaceOptions{})
	if !errors.Is(err, ErrUnknownCharacter) {
		t.Fatalf("err = %v, want ErrUnknownCharacter", err)
	}
	if inst == nil || !inst.Placeholder || !inst.Visible {
		t.Fatalf("placeholder = %+v", inst)
	}
	if got := len(tree.Draw(root)); got != 0 {
		t.Errorf("placeholder drew %d items", got)
	}
}

func TestRemoveDestroysSubtree(t *testing.T) {
	tree, root := testTree(t, &movie.Sprite{CharID: 3}, box(1, 10))
	clip := place(t, tree, root, 1, 3, PlaceOptions{})
	leaf := place(t, tree, clip, 1, 1, PlaceOptions{})

	var removed []*Instance
	tree.OnRemove = func(i *Instance) { removed = append(removed, i) }
	if !tree.Remove(root, 1) {
		t.Fatal("remove failed")
	}
	if !clip.Removed || !leaf.Removed {
		t.Error("subtree not marked removed")
	}
	if len(removed) != 2 || removed[0] != clip || removed[1] != leaf {
		t.Errorf("OnRemove order = %v", removed)
	}
	if clip.Parent() != nil {
		t.Error("removed instance still has a parent")
	}
}

func TestPaintOrderDiffersFromPlacementOrder(t *testing.T) {
	tree, root := testTree(t, box(1, 10), box(2, 10))
	high := place(t, tree, root, 10, 1, PlaceOptions{})
	low := place(t, tree, root, 2, 2, PlaceOptions{})

	draw := tree.Draw(root)
	if len(draw) != 2 || draw[0].Instance != low.ID() || draw[1].Instance != high.ID() {
		t.Errorf("paint order = %+v, want low depth first", draw)
	}
	exec := root.Children().ByPlacement()
	if exec[0] != high || exec[1] != low {
		t.Errorf("placement order = %v, want [high low]", exec)
	}
}

func TestHitTestFrontmostInteractiveAncestor(t *testing.T) {
	tree, root := testTree(t, &movie.Sprite{CharID: 3}, box(1, 100), box(2, 100))
	back := place(t, tree, root, 1, 3, PlaceOptions{Name: "back"})
	place(t, tree, back, 1, 1, PlaceOptions{})
	front := place(t, tree, root, 2, 3, PlaceOptions{Name: "front", Matrix: at(50, 0)})
	frontLeaf := place(t, tree, front, 1, 2, PlaceOptions{})

	interactive := func(i *Instance) bool { return i.Name == "back" || i.Name == "front" }

	if got := tree.HitTest(root, geom.Point{X: 75, Y: 10}, interactive); got != front {
		t.Errorf("overlap hit = %v, want front", got)
	}
	if got := tree.HitTest(root, geom.Point{X: 10, Y: 10}, interactive); got != back {
		t.Errorf("back-only hit = %v, want back", got)
	}
	if got := tree.HitTest(root, geom.Point{X: 500, Y: 500}, interactive); got != nil {
		t.Errorf("miss = %v, want nil", got)
	}
	if got := tree.HitTest(root, geom.Point{X: 75, Y: 10}, nil); got != frontLeaf {
		t.Errorf("leaf hit = %v, want front leaf", got)
	}

	// A non-interactive front does not block the interactive back clip.
	front.Name = "decor"
	if got := tree.HitTest(root, geom.Point{X: 75, Y: 10}, interactive); got != back {
		t.Errorf("hit through decoration = %v, want back", got)
	}

	back.Visible = false
	if got := tree.HitTest(root, geom.Point{X: 10, Y: 10}, interactive); got != nil {
		t.Errorf("invisible clip hit: %v", got)
	}
}

func TestHitTestHonoursMasks(t *testing.T) {
	tree, root := testTree(t, box(1, 50), box(2, 200))
	place(t, tree, root, 1, 1, PlaceOptions{ClipDepth: 2})
	masked := place(t, tree, root, 2, 2, PlaceOptions{})

	if got := tree.HitTest(root, geom.Point{X: 10, Y: 10}, nil); got != masked {
		t.Errorf("inside mask = %v, want masked shape", got)
	}
	if got := tree.HitTest(root, geom.Point{X: 150, Y: 150}, nil); got != nil {
		t.Errorf("outside mask = %v, want nil", got)
	}
}

func TestButtonHitArea(t *testing.T) {
	btn := &movie.Button{
		CharID: 5,
		Records: []movie.ButtonRecord{
			{States: movie.StateUp | movie.StateOver, CharacterID: 1, Depth: 1},
			{States: movie.StateHit, CharacterID: 2, Depth: 1},
		},
	}
	tree, root := testTree(t, box(1, 10), box(2, 100), btn)
	b := place(t, tree, root, 1, 5, PlaceOptions{})
	if b.Children().Len() != 1 {
		t.Fatalf("button shows %d records, want 1", b.Children().Len())
	}
	if got := tree.HitTest(root, geom.Point{X: 80, Y: 80}, nil); got != b {
		t.Errorf("hit area miss: %v", got)
	}
	tree.SetButtonState(b, movie.StateDown)
	if b.Children().Len() != 0 {
		t.Errorf("down state shows %d records, want 0", b.Children().Len())
	}
}

func TestDrawListMasksAndTransforms(t *testing.T) {
	tree, root := testTree(t, &movie.Sprite{CharID: 3}, box(1, 10), box(2, 10))
	clip := place(t, tree, root, 1, 3, PlaceOptions{Matrix: at(100, 0)})
	place(t, tree, clip, 1, 1, PlaceOptions{Matrix: at(5, 5)})
	place(t, tree, root, 2, 2, PlaceOptions{ClipDepth: 3})
	place(t, tree, root, 3, 1, PlaceOptions{})
	place(t, tree, root, 4, 1, PlaceOptions{})

	d := tree.Draw(root)
	kinds := []ItemKind{ItemShape, ItemShape, ItemShape, ItemMaskEnd, ItemShape}
	if len(d) != len(kinds) {
		t.Fatalf("draw list has %d items, want %d: %+v", len(d), len(kinds), d)
	}
	for i, k := range kinds {
		if d[i].Kind != k {
			t.Errorf("item %d kind = %s, want %s", i, d[i].Kind, k)
		}
	}
	if d[0].World.TX != 105 || d[0].World.TY != 5 {
		t.Errorf("nested world matrix = %+v", d[0].World)
	}
	if !d[1].Mask || d[1].ClipDepth != 3 {
		t.Errorf("mask item = %+v", d[1])
	}
	if d[2].Mask {
		t.Error("masked content flagged as mask")
	}
}

func TestEncodeDrawListIsDeterministic(t *testing.T) {
	tree, root := testTree(t, box(1, 10), &movie.EditText{CharID: 2, Text: "hi"})
	place(t, tree, root, 1, 1, PlaceOptions{Matrix: at(1.5, 2.25)})
	place(t, tree, root, 2, 2, PlaceOptions{})

	a, err := EncodeDrawList(tree.Draw(root))
	if err != nil {
		t.Fatal(err)
	}
	b, err := EncodeDrawList(tree.Draw(root))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("two encodings of an unchanged tree differ")
	}
	back, err := DecodeDrawList(a)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != 2 || back[1].Text != "hi" {
		t.Errorf("decoded = %+v", back)
	}
}

func TestPathsAndBounds(t *testing.T) {
	tree, root := testTree(t, &movie.Sprite{CharID: 3}, box(1, 100))
	outer := place(t, tree, root, 1, 3, PlaceOptions{Name: "outer", Matrix: at(10, 0)})
	inner := place(t, tree, outer, 1, 3, PlaceOptions{Name: "inner"})
	place(t, tree, inner, 1, 1, PlaceOptions{Matrix: at(20, 20)})

	if got := inner.Path(); got != "_level0.outer.inner" {
		t.Errorf("path = %q", got)
	}
	if got := inner.SlashPath(); got != "/outer/inner" {
		t.Errorf("slash path = %q", got)
	}
	if got := tree.Bounds(outer); got != (geom.Rect{XMin: 20, YMin: 20, XMax: 120, YMax: 120}) {
		t.Errorf("bounds = %+v", got)
	}
	if !root.IsAncestorOf(inner) || inner.IsAncestorOf(root) {
		t.Error("IsAncestorOf wrong")
	}
}

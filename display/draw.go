package display

import (
	"fmt"

	"github.com/chazu/reel/geom"
	"github.com/chazu/reel/movie"
	"github.com/fxamacker/cbor/v2"
)

// ItemKind classifies a draw item.
type ItemKind uint8

const (
	ItemShape ItemKind = iota + 1
	ItemBitmap
	ItemText
	// ItemMaskEnd closes the innermost open mask.
	ItemMaskEnd
)

func (k ItemKind) String() string {
	switch k {
	case ItemShape:
		return "shape"
	case ItemBitmap:
		return "bitmap"
	case ItemText:
		return "text"
	case ItemMaskEnd:
		return "mask-end"
	}
	return fmt.Sprintf("ItemKind(%d)", uint8(k))
}

// DrawItem is one record of the draw list.
type DrawItem struct {
	Kind        ItemKind            `cbor:"1,keyasint"`
	CharacterID movie.CharacterID   `cbor:"2,keyasint,omitempty"`
	Instance    uint64              `cbor:"3,keyasint,omitempty"`
	World       geom.Matrix         `cbor:"4,keyasint"`
	Color       geom.ColorTransform `cbor:"5,keyasint"`
	ClipDepth   int                 `cbor:"6,keyasint,omitempty"`
	Mask        bool                `cbor:"7,keyasint,omitempty"`
	Text        string              `cbor:"8,keyasint,omitempty"`
	Ratio       float64             `cbor:"9,keyasint,omitempty"`
}

// DrawList is the paint-ordered output of one frame, back to front.
type DrawList []DrawItem

// Draw walks the tree under root back to front. A mask's items come first,
// flagged Mask, and an ItemMaskEnd follows the last item it covers.
func (t *Tree) Draw(root *Instance) DrawList {
	var out DrawList
	t.draw(root, root.Matrix, root.Color, false, &out)
	return out
}

func (t *Tree) draw(inst *Instance, world geom.Matrix, color geom.ColorTransform, mask bool, out *DrawList) {
	if !inst.Visible || inst.Placeholder {
		return
	}
	if inst.children == nil {
		item := DrawItem{
			CharacterID: inst.Character.ID(),
			Instance:    inst.id,
			World:       world,
			Color:       color,
			Mask:        mask,
			Ratio:       inst.Ratio,
		}
		switch inst.Kind {
		case movie.KindShape:
			item.Kind = ItemShape
		case movie.KindBitmap:
			item.Kind = ItemBitmap
		case movie.KindText:
			item.Kind = ItemText
			item.Text = inst.Text
		default:
			return
		}
		*out = append(*out, item)
		return
	}

	var open []int
	for _, c := range inst.children.ByDepth() {
		for len(open) > 0 && c.Depth > open[len(open)-1] {
			open = open[:len(open)-1]
			*out = append(*out, DrawItem{Kind: ItemMaskEnd})
		}
		cw, cc := world.Concat(c.Matrix), color.Concat(c.Color)
		if c.ClipDepth > 0 {
			start := len(*out)
			t.draw(c, cw, cc, true, out)
			for i := start; i < len(*out); i++ {
				(*out)[i].ClipDepth = c.ClipDepth
			}
			open = append(open, c.ClipDepth)
			continue
		}
		t.draw(c, cw, cc, mask, out)
	}
	for range open {
		*out = append(*out, DrawItem{Kind: ItemMaskEnd})
	}
}

var drawEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("display: failed to create CBOR enc mode: %v", err))
	}
	drawEncMode = em
}

// EncodeDrawList serializes a draw list with canonical CBOR: equal lists
// always encode to identical bytes.
func EncodeDrawList(items DrawList) ([]byte, error) {
	return drawEncMode.Marshal(items)
}

// DecodeDrawList parses the output of EncodeDrawList.
func DecodeDrawList(data []byte) (DrawList, error) {
	var items DrawList
	if err := cbor.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("display: decode draw list: %w", err)
	}
	return items, nil
}

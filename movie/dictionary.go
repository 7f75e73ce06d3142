package movie

import (
	"errors"
	"fmt"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/chazu/reel/geom"
)

var (
	// ErrFrozen is returned when defining into a dictionary after load.
	ErrFrozen = errors.New("movie: dictionary is frozen")
	// ErrDuplicate is returned when an ID is defined twice.
	ErrDuplicate = errors.New("movie: duplicate character id")
)

// Dictionary maps character IDs to immutable characters. It is mutable only
// while a movie is being assembled; after Freeze it may be shared read-only
// by any number of players on any goroutine.
type Dictionary struct {
	chars   map[CharacterID]Character
	exports map[string]CharacterID
	frozen  bool
}

// NewDictionary creates an empty, unfrozen dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{
		chars:   make(map[CharacterID]Character),
		exports: make(map[string]CharacterID),
	}
}

// Define adds a character.
func (d *Dictionary) Define(c Character) error {
	if d.frozen {
		return ErrFrozen
	}
	if _, ok := d.chars[c.ID()]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicate, c.ID())
	}
	d.chars[c.ID()] = c
	return nil
}

// Export binds a linkage name, used by attachMovie, to a character.
func (d *Dictionary) Export(name string, id CharacterID) error {
	if d.frozen {
		return ErrFrozen
	}
	d.exports[name] = id
	return nil
}

// Lookup returns the character with the given ID.
func (d *Dictionary) Lookup(id CharacterID) (Character, bool) {
	c, ok := d.chars[id]
	return c, ok
}

// Exported returns the character bound to a linkage name.
func (d *Dictionary) Exported(name string) (Character, bool) {
	id, ok := d.exports[name]
	if !ok {
		return nil, false
	}
	return d.Lookup(id)
}

// Freeze makes the dictionary read-only.
func (d *Dictionary) Freeze() { d.frozen = true }

// Frozen reports whether Freeze has been called.
func (d *Dictionary) Frozen() bool { return d.frozen }

// Len returns the number of characters.
func (d *Dictionary) Len() int { return len(d.chars) }

// IDs returns every defined ID in ascending order.
func (d *Dictionary) IDs() []CharacterID {
	ids := make([]CharacterID, 0, len(d.chars))
	for id := range d.chars {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ---------------------------------------------------------------------------
// Movie
// ---------------------------------------------------------------------------

// Movie is the load-time result handed to the player: a frozen dictionary,
// the root timeline and the stage parameters.
type Movie struct {
	Version    int
	FrameRate  float64
	FrameSize  geom.Rect
	Background colorful.Color
	Root       *Sprite
	Dictionary *Dictionary
}

// Validate checks the stage parameters and freezes the dictionary. Unknown
// character references are not an error here: the player substitutes
// placeholders for them.
func (m *Movie) Validate() error {
	if m.Root == nil {
		return errors.New("movie: missing root timeline")
	}
	if m.FrameRate <= 0 {
		return fmt.Errorf("movie: invalid frame rate %v", m.FrameRate)
	}
	if m.Dictionary == nil {
		m.Dictionary = NewDictionary()
	}
	m.Dictionary.Freeze()
	return nil
}

// Scripts walks every bytecode blob of the movie, in dictionary order with
// the root first. name identifies the blob for listings.
func (m *Movie) Scripts(fn func(name string, code []byte)) {
	walkSprite := func(prefix string, s *Sprite) {
		if len(s.InitActions) > 0 {
			fn(prefix+" init", s.InitActions)
		}
		for i := range s.Frames {
			for j, t := range s.Frames[i].Tags {
				switch t := t.(type) {
				case *DoAction:
					fn(fmt.Sprintf("%s frame %d action %d", prefix, i+1, j), t.Code)
				case *Place:
					for k, ca := range t.ClipActions {
						fn(fmt.Sprintf("%s frame %d depth %d onClipEvent(%s) #%d", prefix, i+1, t.Depth, ca.Events, k), ca.Code)
					}
				}
			}
		}
	}
	walkSprite("root", m.Root)
	if m.Dictionary == nil {
		return
	}
	for _, id := range m.Dictionary.IDs() {
		c, _ := m.Dictionary.Lookup(id)
		switch c := c.(type) {
		case *Sprite:
			walkSprite(fmt.Sprintf("sprite %d", id), c)
		case *Button:
			for k, a := range c.Actions {
				fn(fmt.Sprintf("button %d action %d", id, k), a.Code)
			}
		}
	}
}

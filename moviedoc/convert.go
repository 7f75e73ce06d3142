package moviedoc

import (
	"fmt"
	"slices"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/chazu/reel/avm"
	"github.com/chazu/reel/geom"
	"github.com/chazu/reel/movie"
)

// ---- Convert: yaml types → movie types ------------------------------------

func convertDocument(yd yamlDocument) (*movie.Movie, error) {
	m := &movie.Movie{
		Version:    yd.Version,
		FrameRate:  yd.FrameRate,
		Dictionary: movie.NewDictionary(),
		Background: colorful.Color{R: 1, G: 1, B: 1},
	}
	if m.Version == 0 {
		m.Version = DefaultVersion
	}
	if m.FrameRate == 0 {
		m.FrameRate = 12
	}
	switch len(yd.Size) {
	case 0:
		m.FrameSize = rect(0, 0, 550, 400)
	case 2:
		m.FrameSize = rect(0, 0, yd.Size[0], yd.Size[1])
	default:
		return nil, fmt.Errorf("size: want [width, height], got %v", yd.Size)
	}
	if yd.Background != "" {
		c, err := colorful.Hex(yd.Background)
		if err != nil {
			return nil, fmt.Errorf("background: %w", err)
		}
		m.Background = c
	}

	for i, yc := range yd.Characters {
		c, err := convertCharacter(yc)
		if err != nil {
			return nil, fmt.Errorf("characters[%d] (id %d): %w", i, yc.ID, err)
		}
		if err := m.Dictionary.Define(c); err != nil {
			return nil, fmt.Errorf("characters[%d]: %w", i, err)
		}
	}
	names := make([]string, 0, len(yd.Exports))
	for name := range yd.Exports {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := m.Dictionary.Export(name, yd.Exports[name]); err != nil {
			return nil, fmt.Errorf("exports.%s: %w", name, err)
		}
	}

	root, err := convertSprite(0, &yamlSprite{Init: yd.Init, Frames: yd.Timeline}, "timeline")
	if err != nil {
		return nil, err
	}
	m.Root = root
	return m, nil
}

func convertCharacter(yc yamlCharacter) (movie.Character, error) {
	var set []string
	var c movie.Character
	var err error
	if yc.Shape != nil {
		set = append(set, "shape")
		c, err = convertShape(yc.ID, yc.Shape)
	}
	if yc.Sprite != nil {
		set = append(set, "sprite")
		c, err = convertSprite(yc.ID, yc.Sprite, "sprite")
	}
	if yc.Button != nil {
		set = append(set, "button")
		c, err = convertButton(yc.ID, yc.Button)
	}
	if yc.Text != nil {
		set = append(set, "text")
		c, err = convertText(yc.ID, yc.Text)
	}
	if yc.Bitmap != nil {
		set = append(set, "bitmap")
		c = &movie.Bitmap{CharID: yc.ID, Width: yc.Bitmap.Width, Height: yc.Bitmap.Height, Source: yc.Bitmap.Source}
	}
	if yc.Font != nil {
		set = append(set, "font")
		c = &movie.Font{CharID: yc.ID, Name: yc.Font.Name, Glyphs: yc.Font.Glyphs}
	}
	switch {
	case len(set) == 0:
		return nil, fmt.Errorf("no character variant")
	case len(set) > 1:
		return nil, fmt.Errorf("more than one variant: %v", set)
	}
	return c, err
}

func convertShape(id movie.CharacterID, ys *yamlShape) (*movie.Shape, error) {
	s := &movie.Shape{CharID: id}
	bounds := geom.EmptyRect()
	stroke := 0.0
	extend := func(pt geom.Point) {
		bounds.XMin, bounds.XMax = min(bounds.XMin, pt.X), max(bounds.XMax, pt.X)
		bounds.YMin, bounds.YMax = min(bounds.YMin, pt.Y), max(bounds.YMax, pt.Y)
	}
	for i, yp := range ys.Paths {
		if len(yp.Points) == 0 {
			return nil, fmt.Errorf("paths[%d]: no points", i)
		}
		start, err := point(yp.Points[0], 2)
		if err != nil {
			return nil, fmt.Errorf("paths[%d].points[0]: %w", i, err)
		}
		p := movie.Path{Start: start, LineWidth: yp.LineWidth * geom.TwipsPerPixel}
		extend(start)
		for j, pt := range yp.Points[1:] {
			e, err := edge(pt)
			if err != nil {
				return nil, fmt.Errorf("paths[%d].points[%d]: %w", i, j+1, err)
			}
			p.Edges = append(p.Edges, e)
			extend(e.Anchor)
			if e.Curved {
				extend(e.Control)
			}
		}
		alpha := 1.0
		if yp.Alpha != nil {
			alpha = *yp.Alpha
		}
		if yp.Fill != "" {
			if p.Fill, err = fill(yp.Fill, alpha); err != nil {
				return nil, fmt.Errorf("paths[%d].fill: %w", i, err)
			}
		}
		if yp.Line != "" {
			if p.Line, err = fill(yp.Line, alpha); err != nil {
				return nil, fmt.Errorf("paths[%d].line: %w", i, err)
			}
			stroke = max(stroke, p.LineWidth/2)
		}
		s.Paths = append(s.Paths, p)
	}
	switch {
	case ys.Bounds != nil:
		r, err := rectOf(ys.Bounds)
		if err != nil {
			return nil, fmt.Errorf("bounds: %w", err)
		}
		s.Rect = r
	case len(s.Paths) > 0:
		s.Rect = geom.Rect{
			XMin: bounds.XMin - stroke, YMin: bounds.YMin - stroke,
			XMax: bounds.XMax + stroke, YMax: bounds.YMax + stroke,
		}
	}
	return s, nil
}

func convertSprite(id movie.CharacterID, ys *yamlSprite, where string) (*movie.Sprite, error) {
	s := &movie.Sprite{CharID: id}
	if ys.Init != "" {
		code, err := avm.Assemble(ys.Init)
		if err != nil {
			return nil, fmt.Errorf("%s init: %w", where, err)
		}
		s.InitActions = code
	}
	for i, yf := range ys.Frames {
		f := movie.Frame{Label: yf.Label}
		for j, yt := range yf.Tags {
			tag, err := convertTag(yt)
			if err != nil {
				return nil, fmt.Errorf("%s frame %d tags[%d]: %w", where, i+1, j, err)
			}
			f.Tags = append(f.Tags, tag)
		}
		s.Frames = append(s.Frames, f)
	}
	return s, nil
}

func convertTag(yt yamlTag) (movie.Tag, error) {
	var tags []movie.Tag
	var err error
	add := func(t movie.Tag, e error) {
		tags = append(tags, t)
		if err == nil {
			err = e
		}
	}
	if yt.Place != nil {
		add(convertPlace(yt.Place, movie.PlaceNew))
	}
	if yt.Move != nil {
		add(convertPlace(yt.Move, movie.PlaceMove))
	}
	if yt.Replace != nil {
		add(convertPlace(yt.Replace, movie.PlaceReplace))
	}
	if yt.Remove != nil {
		add(&movie.Remove{Depth: *yt.Remove}, nil)
	}
	if yt.Script != nil {
		code, e := avm.Assemble(*yt.Script)
		add(&movie.DoAction{Code: code}, e)
	}
	switch {
	case err != nil:
		return nil, err
	case len(tags) != 1:
		return nil, fmt.Errorf("want exactly one of place, move, replace, remove, script; got %d", len(tags))
	}
	return tags[0], nil
}

func convertPlace(yp *yamlPlace, mode movie.PlaceMode) (*movie.Place, error) {
	p := &movie.Place{
		Mode:        mode,
		Depth:       yp.Depth,
		CharacterID: yp.Char,
		Name:        yp.Name,
		Ratio:       yp.Ratio,
		ClipDepth:   yp.ClipDepth,
		Visible:     yp.Visible,
	}
	if mode != movie.PlaceMove && yp.Char == 0 {
		return nil, fmt.Errorf("depth %d: missing char", yp.Depth)
	}
	if yp.At != nil || yp.Scale != nil || yp.Rotation != 0 {
		m, err := matrix(yp.At, yp.Scale, yp.Rotation)
		if err != nil {
			return nil, fmt.Errorf("depth %d: %w", yp.Depth, err)
		}
		p.Matrix = &m
	}
	if yp.Color != nil {
		cx, err := colorTransform(yp.Color)
		if err != nil {
			return nil, fmt.Errorf("depth %d: color: %w", yp.Depth, err)
		}
		p.Color = &cx
	}
	for i, ye := range yp.Events {
		var events movie.ClipEvent
		for _, name := range ye.On {
			ev, ok := movie.ParseClipEvent(name)
			if !ok {
				return nil, fmt.Errorf("depth %d: events[%d]: unknown clip event %q", yp.Depth, i, name)
			}
			events |= ev
		}
		if events == 0 {
			return nil, fmt.Errorf("depth %d: events[%d]: no events", yp.Depth, i)
		}
		code, err := avm.Assemble(ye.Script)
		if err != nil {
			return nil, fmt.Errorf("depth %d: events[%d]: %w", yp.Depth, i, err)
		}
		p.ClipActions = append(p.ClipActions, movie.ClipAction{Events: events, KeyCode: byte(ye.Key), Code: code})
	}
	return p, nil
}

var buttonStates = map[string]movie.ButtonState{
	"up":   movie.StateUp,
	"over": movie.StateOver,
	"down": movie.StateDown,
	"hit":  movie.StateHit,
}

var buttonConditions = map[string]movie.ButtonCondition{
	"rollOver":       movie.CondIdleToOverUp,
	"rollOut":        movie.CondOverUpToIdle,
	"press":          movie.CondOverUpToOverDown,
	"release":        movie.CondOverDownToOverUp,
	"dragOut":        movie.CondOverDownToOutDown,
	"dragOver":       movie.CondOutDownToOverDown,
	"releaseOutside": movie.CondOutDownToIdle,
}

func convertButton(id movie.CharacterID, yb *yamlButton) (*movie.Button, error) {
	b := &movie.Button{CharID: id, TrackAsMenu: yb.Menu}
	for i, yr := range yb.Records {
		r := movie.ButtonRecord{CharacterID: yr.Char, Depth: yr.Depth}
		for _, name := range yr.States {
			st, ok := buttonStates[name]
			if !ok {
				return nil, fmt.Errorf("records[%d]: unknown state %q", i, name)
			}
			r.States |= st
		}
		m, err := matrix(yr.At, yr.Scale, 0)
		if err != nil {
			return nil, fmt.Errorf("records[%d]: %w", i, err)
		}
		r.Matrix = m
		r.Color = geom.IdentityColor()
		if yr.Color != nil {
			if r.Color, err = colorTransform(yr.Color); err != nil {
				return nil, fmt.Errorf("records[%d]: color: %w", i, err)
			}
		}
		b.Records = append(b.Records, r)
	}
	for i, ya := range yb.Actions {
		a := movie.ButtonAction{KeyCode: byte(ya.Key)}
		for _, name := range ya.On {
			cond, ok := buttonConditions[name]
			if !ok {
				return nil, fmt.Errorf("actions[%d]: unknown condition %q", i, name)
			}
			a.Conditions |= cond
		}
		code, err := avm.Assemble(ya.Script)
		if err != nil {
			return nil, fmt.Errorf("actions[%d]: %w", i, err)
		}
		a.Code = code
		b.Actions = append(b.Actions, a)
	}
	return b, nil
}

func convertText(id movie.CharacterID, yt *yamlText) (*movie.EditText, error) {
	t := &movie.EditText{
		CharID:    id,
		Text:      yt.Text,
		Variable:  yt.Variable,
		FontID:    yt.Font,
		Size:      yt.Size,
		Multiline: yt.Multiline,
		ReadOnly:  yt.ReadOnly,
		Color:     movie.Fill{Alpha: 1},
	}
	if yt.Bounds != nil {
		r, err := rectOf(yt.Bounds)
		if err != nil {
			return nil, fmt.Errorf("bounds: %w", err)
		}
		t.Rect = r
	}
	if yt.Color != "" {
		c, err := colorful.Hex(yt.Color)
		if err != nil {
			return nil, fmt.Errorf("color: %w", err)
		}
		t.Color.Color = c
	}
	return t, nil
}

// ---- Scalars -----------------------------------------------------------------

func rect(x0, y0, x1, y1 float64) geom.Rect {
	return geom.Rect{
		XMin: x0 * geom.TwipsPerPixel, YMin: y0 * geom.TwipsPerPixel,
		XMax: x1 * geom.TwipsPerPixel, YMax: y1 * geom.TwipsPerPixel,
	}
}

func rectOf(v []float64) (geom.Rect, error) {
	if len(v) != 4 {
		return geom.Rect{}, fmt.Errorf("want [xmin, ymin, xmax, ymax], got %v", v)
	}
	return rect(v[0], v[1], v[2], v[3]), nil
}

func point(v []float64, n int) (geom.Point, error) {
	if len(v) != n {
		return geom.Point{}, fmt.Errorf("want %d coordinates, got %v", n, v)
	}
	return geom.Pixels(v[n-2], v[n-1]), nil
}

func edge(v []float64) (movie.Edge, error) {
	switch len(v) {
	case 2:
		return movie.Edge{Anchor: geom.Pixels(v[0], v[1])}, nil
	case 4:
		return movie.Edge{Curved: true, Control: geom.Pixels(v[0], v[1]), Anchor: geom.Pixels(v[2], v[3])}, nil
	}
	return movie.Edge{}, fmt.Errorf("want [x, y] or [cx, cy, x, y], got %v", v)
}

func fill(hex string, alpha float64) (*movie.Fill, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, err
	}
	return &movie.Fill{Color: c, Alpha: alpha}, nil
}

func matrix(at, scale []float64, rotation float64) (geom.Matrix, error) {
	tx, ty := 0.0, 0.0
	if at != nil {
		p, err := point(at, 2)
		if err != nil {
			return geom.Matrix{}, fmt.Errorf("at: %w", err)
		}
		tx, ty = p.X, p.Y
	}
	sx, sy := 1.0, 1.0
	switch len(scale) {
	case 0:
	case 1:
		sx, sy = scale[0], scale[0]
	case 2:
		sx, sy = scale[0], scale[1]
	default:
		return geom.Matrix{}, fmt.Errorf("scale: want [s] or [sx, sy], got %v", scale)
	}
	return geom.Compose(tx, ty, sx, sy, rotation), nil
}

func colorTransform(yc *yamlColor) (geom.ColorTransform, error) {
	cx := geom.IdentityColor()
	muls := []*float64{&cx.RMul, &cx.GMul, &cx.BMul, &cx.AMul}
	adds := []*float64{&cx.RAdd, &cx.GAdd, &cx.BAdd, &cx.AAdd}
	if len(yc.Mul) > 4 || len(yc.Add) > 4 {
		return cx, fmt.Errorf("at most four channels (r, g, b, a)")
	}
	for i, v := range yc.Mul {
		*muls[i] = v
	}
	for i, v := range yc.Add {
		*adds[i] = v
	}
	return cx, nil
}

package player

import (
	"strings"

	"github.com/chazu/reel/avm"
	"github.com/chazu/reel/display"
	"github.com/chazu/reel/geom"
	"github.com/chazu/reel/movie"
)

// Text fields whose template names a variable mirror it: the variable is
// read into the field after every tick (and on placement), and writes to the
// field's text go back to the variable.

var textProps map[string]instanceProp

func init() {
	textProps = map[string]instanceProp{
		"text": {
			get: func(p *Player, i *display.Instance) avm.Value { return avm.String(i.Text) },
			set: func(p *Player, i *display.Instance, v avm.Value) { p.setText(i, p.vm.ToString(v)) },
		},
		"htmlText": {
			get: func(p *Player, i *display.Instance) avm.Value { return avm.String(i.Text) },
			set: func(p *Player, i *display.Instance, v avm.Value) { p.setText(i, p.vm.ToString(v)) },
		},
		"length": {get: func(p *Player, i *display.Instance) avm.Value {
			return avm.Int(avm.StringLength(i.Text))
		}},
		"variable": {get: func(p *Player, i *display.Instance) avm.Value {
			if v := fieldOf(i).Variable; v != "" {
				return avm.String(v)
			}
			return avm.Null
		}},
		"multiline": {get: func(p *Player, i *display.Instance) avm.Value { return avm.Bool(fieldOf(i).Multiline) }},
		"textColor": {
			get: func(p *Player, i *display.Instance) avm.Value { return p.formatOf(i)["color"] },
			set: func(p *Player, i *display.Instance, v avm.Value) {
				p.formatOf(i)["color"] = avm.Number(float64(p.vm.ToUint32(v) & 0xFFFFFF))
			},
		},
	}
}

// ---------------------------------------------------------------------------
// TextFormat
// ---------------------------------------------------------------------------

// textFormat holds the format of a whole field; runs within the text are not
// tracked. Values are primitives, coerced on write.
type textFormat map[string]avm.Value

type formatKind uint8

const (
	formatString formatKind = iota
	formatNumber
	formatBool
)

// textFormatMembers are in constructor order.
var textFormatMembers = []struct {
	name string
	kind formatKind
}{
	{"font", formatString}, {"size", formatNumber}, {"color", formatNumber},
	{"bold", formatBool}, {"italic", formatBool}, {"underline", formatBool},
	{"url", formatString}, {"target", formatString}, {"align", formatString},
	{"leftMargin", formatNumber}, {"rightMargin", formatNumber},
	{"indent", formatNumber}, {"leading", formatNumber},
}

// coerceFormat converts v for a member; null and undefined stay null.
func (p *Player) coerceFormat(kind formatKind, v avm.Value) avm.Value {
	if v.IsUndefined() || v.IsNull() {
		return avm.Null
	}
	switch kind {
	case formatNumber:
		return avm.Number(p.vm.ToNumber(v))
	case formatBool:
		return avm.Bool(p.vm.ToBoolean(v))
	}
	return avm.String(p.vm.ToString(v))
}

func defaultFormat(i *display.Instance) textFormat {
	f := fieldOf(i)
	size := f.Size
	if size <= 0 {
		size = 12
	}
	return textFormat{
		"font":        avm.String("Times New Roman"),
		"size":        avm.Number(size),
		"color":       avm.Number(float64(geom.RGB(f.Color.Color))),
		"bold":        avm.False,
		"italic":      avm.False,
		"underline":   avm.False,
		"url":         avm.String(""),
		"target":      avm.String(""),
		"align":       avm.String("left"),
		"leftMargin":  avm.Int(0),
		"rightMargin": avm.Int(0),
		"indent":      avm.Int(0),
		"leading":     avm.Int(0),
	}
}

// formatOf returns the live format of a text field.
func (p *Player) formatOf(i *display.Instance) textFormat {
	o := p.bind(i)
	if o == nil {
		return defaultFormat(i)
	}
	h, ok := o.Host().(*instanceHost)
	if !ok {
		return defaultFormat(i)
	}
	if h.format == nil {
		h.format = defaultFormat(i)
	}
	return h.format
}

func (p *Player) newTextFormat(f textFormat) avm.Value {
	o := p.vm.NewObjectWithProto(p.formatProto, "Object")
	for _, m := range textFormatMembers {
		v, ok := f[m.name]
		if !ok {
			v = avm.Null
		}
		o.Put(m.name, v)
	}
	return avm.Obj(o)
}

// applyFormat merges the non-null members of a TextFormat object into f.
func (p *Player) applyFormat(f textFormat, src *avm.Object) {
	if src == nil {
		return
	}
	for _, m := range textFormatMembers {
		if v := p.coerceFormat(m.kind, p.vm.GetMember(src, m.name)); !v.IsNull() {
			f[m.name] = v
		}
	}
}

func (p *Player) installTextFormat() {
	vm := p.vm
	p.formatProto = vm.NewObject()
	ctor := vm.NewConstructor("TextFormat", func(c *avm.Call) (avm.Value, error) {
		if o := c.ThisObject(); c.Construct && o != nil {
			for i, m := range textFormatMembers {
				o.Put(m.name, p.coerceFormat(m.kind, c.Arg(i)))
			}
		}
		return c.This, nil
	}, p.formatProto)
	vm.SetGlobal("TextFormat", avm.Obj(ctor))

	get := func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		return p.newTextFormat(p.formatOf(inst)), nil
	}
	// The format is the last argument; leading index arguments select a
	// range, which applies to the whole field.
	set := func(c *avm.Call, inst *display.Instance) (avm.Value, error) {
		if n := len(c.Args); n > 0 {
			p.applyFormat(p.formatOf(inst), c.Args[n-1].Object())
		}
		return avm.Undefined, nil
	}
	p.method(p.textProto, "getTextFormat", get)
	p.method(p.textProto, "getNewTextFormat", get)
	p.method(p.textProto, "setTextFormat", set)
	p.method(p.textProto, "setNewTextFormat", set)
}

func fieldOf(i *display.Instance) *movie.EditText {
	if f, ok := i.Character.(*movie.EditText); ok {
		return f
	}
	return &movie.EditText{}
}

func (p *Player) setText(i *display.Instance, s string) {
	i.Text = s
	if obj, name := p.fieldVariable(i); obj != nil {
		p.vm.SetMember(obj, name, avm.String(s))
	}
}

// fieldVariable resolves the variable a text field mirrors to the object
// holding it and the member name. Paths are relative to the field's parent.
func (p *Player) fieldVariable(i *display.Instance) (*avm.Object, string) {
	v := fieldOf(i).Variable
	parent := i.Parent()
	if v == "" || parent == nil {
		return nil, ""
	}
	path, name := "", v
	if k := strings.LastIndexByte(v, ':'); k >= 0 {
		path, name = v[:k], v[k+1:]
	} else if k := strings.LastIndexByte(v, '.'); k >= 0 {
		path, name = v[:k], v[k+1:]
	}
	target := p.resolve(parent, path)
	if target == nil {
		return nil, ""
	}
	return p.bind(target), name
}

// pullText copies the mirrored variable into the field when it is defined.
func (p *Player) pullText(i *display.Instance) {
	obj, name := p.fieldVariable(i)
	if obj == nil {
		return
	}
	err := p.vm.Protect(func() {
		if v := p.vm.GetMember(obj, name); !v.IsUndefined() {
			i.Text = p.vm.ToString(v)
		}
	})
	p.report(i.Path(), frameOf(i), err)
}

// syncText refreshes every variable-bound text field.
func (p *Player) syncText() {
	var walk func(*display.Instance)
	walk = func(inst *display.Instance) {
		if inst.Kind == movie.KindText && fieldOf(inst).Variable != "" {
			p.pullText(inst)
		}
		if inst.Children() == nil {
			return
		}
		for _, c := range inst.Children().ByDepth() {
			walk(c)
		}
	}
	walk(p.root)
}

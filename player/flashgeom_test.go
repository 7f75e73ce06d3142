package player

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/reel/avm"
	"github.com/chazu/reel/geom"
	"github.com/chazu/reel/movie"
	colorful "github.com/lucasb-eyer/go-colorful"
)

func (h *harness) construct(t *testing.T, ctor *avm.Object, args ...avm.Value) *avm.Object {
	t.Helper()
	v, err := h.vm.Construct(ctor, args...)
	if err != nil {
		t.Fatalf("new %v: %v", ctor, err)
	}
	return v.Object()
}

func (h *harness) newGeom(t *testing.T, class string, args ...float64) *avm.Object {
	t.Helper()
	flash := h.vm.GetMember(h.vm.Global, "flash").Object()
	ctor := h.vm.GetMember(h.vm.GetMember(flash, "geom").Object(), class).Object()
	vals := make([]avm.Value, len(args))
	for i, a := range args {
		vals[i] = avm.Number(a)
	}
	return h.construct(t, ctor, vals...)
}

func (h *harness) invoke(t *testing.T, o *avm.Object, name string, args ...avm.Value) avm.Value {
	t.Helper()
	v, err := h.vm.CallMethod(o, name, args...)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return v
}

func (h *harness) num(o *avm.Object, name string) float64 {
	return h.vm.ToNumber(h.vm.GetMember(o, name))
}

func (h *harness) str(o *avm.Object, name string) string {
	return h.vm.ToString(h.vm.GetMember(o, name))
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPointMethods(t *testing.T) {
	h := start(t, fixture{root: sprite(0, frame())})
	pt := h.newGeom(t, "Point", 3, 4)
	if got := h.num(pt, "length"); got != 5 {
		t.Errorf("length = %v, want 5", got)
	}
	sum := h.invoke(t, pt, "add", avm.Obj(h.newGeom(t, "Point", 1, 1))).Object()
	if h.num(sum, "x") != 4 || h.num(sum, "y") != 5 {
		t.Errorf("add = (%v, %v), want (4, 5)", h.num(sum, "x"), h.num(sum, "y"))
	}
	if !h.invoke(t, pt, "equals", h.invoke(t, pt, "clone")).AsBool() {
		t.Error("clone is not equal to the original")
	}

	ctor := h.vm.GetMember(pt, "constructor").Object()
	origin := avm.Obj(h.newGeom(t, "Point"))
	if got := h.invoke(t, ctor, "distance", avm.Obj(pt), origin).AsNumber(); got != 5 {
		t.Errorf("distance = %v, want 5", got)
	}
	mid := h.invoke(t, ctor, "interpolate", avm.Obj(h.newGeom(t, "Point", 10, 0)), origin, avm.Number(0.25)).Object()
	if got := h.num(mid, "x"); got != 2.5 {
		t.Errorf("interpolate x = %v, want 2.5", got)
	}
	polar := h.invoke(t, ctor, "polar", avm.Number(2), avm.Number(math.Pi/2)).Object()
	if !near(h.num(polar, "x"), 0) || !near(h.num(polar, "y"), 2) {
		t.Errorf("polar = (%v, %v), want (0, 2)", h.num(polar, "x"), h.num(polar, "y"))
	}

	h.invoke(t, pt, "normalize", avm.Number(10))
	if got := h.invoke(t, pt, "toString").AsString(); got != "(x=6, y=8)" {
		t.Errorf("normalize(10) = %s, want (x=6, y=8)", got)
	}
	if keys := h.vm.EnumerableKeys(pt); len(keys) != 2 {
		t.Errorf("for-in over a point sees %v, want only x and y", keys)
	}
}

func TestRectangleMethods(t *testing.T) {
	h := start(t, fixture{root: sprite(0, frame())})
	r := h.newGeom(t, "Rectangle", 0, 0, 10, 10)
	if !h.invoke(t, r, "contains", avm.Number(5), avm.Number(5)).AsBool() {
		t.Error("contains(5, 5) = false")
	}
	if h.invoke(t, r, "contains", avm.Number(10), avm.Number(5)).AsBool() {
		t.Error("right edge is inside")
	}

	h.vm.SetMember(r, "right", avm.Number(20))
	if got := h.num(r, "width"); got != 20 {
		t.Errorf("width after right = 20 is %v", got)
	}
	h.vm.SetMember(r, "left", avm.Number(-5))
	if h.num(r, "x") != -5 || h.num(r, "width") != 25 {
		t.Errorf("after left = -5: x = %v, width = %v", h.num(r, "x"), h.num(r, "width"))
	}

	other := avm.Obj(h.newGeom(t, "Rectangle", 5, 5, 10, 10))
	in := h.invoke(t, r, "intersection", other).Object()
	if got := h.invoke(t, in, "toString").AsString(); got != "(x=5, y=5, w=10, h=5)" {
		t.Errorf("intersection = %s", got)
	}
	if !h.invoke(t, r, "intersects", other).AsBool() {
		t.Error("intersects = false")
	}
	far := avm.Obj(h.newGeom(t, "Rectangle", 40, 40, 1, 1))
	if h.invoke(t, r, "intersects", far).AsBool() {
		t.Error("disjoint rectangles intersect")
	}
	u := h.invoke(t, r, "union", far).Object()
	if got := h.invoke(t, u, "toString").AsString(); got != "(x=-5, y=0, w=46, h=41)" {
		t.Errorf("union = %s", got)
	}

	h.invoke(t, r, "inflate", avm.Number(1), avm.Number(2))
	if got := h.invoke(t, r, "toString").AsString(); got != "(x=-6, y=-2, w=27, h=14)" {
		t.Errorf("inflate(1, 2) = %s", got)
	}
	br := h.vm.GetMember(r, "bottomRight").Object()
	if h.num(br, "x") != 21 || h.num(br, "y") != 12 {
		t.Errorf("bottomRight = (%v, %v), want (21, 12)", h.num(br, "x"), h.num(br, "y"))
	}
	if !h.invoke(t, h.newGeom(t, "Rectangle"), "isEmpty").AsBool() {
		t.Error("new Rectangle() is not empty")
	}
}

func TestMatrixMethods(t *testing.T) {
	h := start(t, fixture{root: sprite(0, frame())})
	m := h.newGeom(t, "Matrix")
	h.invoke(t, m, "translate", avm.Number(10), avm.Number(20))
	h.invoke(t, m, "scale", avm.Number(2), avm.Number(2))
	if h.num(m, "a") != 2 || h.num(m, "tx") != 20 || h.num(m, "ty") != 40 {
		t.Errorf("after translate and scale: %s", h.invoke(t, m, "toString").AsString())
	}
	pt := h.invoke(t, m, "transformPoint", avm.Obj(h.newGeom(t, "Point", 1, 1))).Object()
	if h.num(pt, "x") != 22 || h.num(pt, "y") != 42 {
		t.Errorf("transformPoint = (%v, %v), want (22, 42)", h.num(pt, "x"), h.num(pt, "y"))
	}
	delta := h.invoke(t, m, "deltaTransformPoint", avm.Obj(h.newGeom(t, "Point", 1, 1))).Object()
	if h.num(delta, "x") != 2 {
		t.Errorf("deltaTransformPoint x = %v, want 2", h.num(delta, "x"))
	}
	h.invoke(t, m, "invert")
	back := h.invoke(t, m, "transformPoint", avm.Obj(pt)).Object()
	if h.num(back, "x") != 1 || h.num(back, "y") != 1 {
		t.Errorf("inverse maps back to (%v, %v)", h.num(back, "x"), h.num(back, "y"))
	}

	first := h.newGeom(t, "Matrix", 1, 0, 0, 1, 5, 0)
	h.invoke(t, first, "concat", avm.Obj(h.newGeom(t, "Matrix", 2, 0, 0, 1)))
	out := h.invoke(t, first, "transformPoint", avm.Obj(h.newGeom(t, "Point", 1, 0))).Object()
	if got := h.num(out, "x"); got != 12 {
		t.Errorf("concat applies the receiver first: x = %v, want 12", got)
	}

	rot := h.newGeom(t, "Matrix")
	h.invoke(t, rot, "rotate", avm.Number(math.Pi/2))
	if !near(h.num(rot, "a"), 0) || !near(h.num(rot, "b"), 1) {
		t.Errorf("rotate(pi/2) = %s", h.invoke(t, rot, "toString").AsString())
	}
	created := h.newGeom(t, "Matrix")
	h.invoke(t, created, "createBox", avm.Number(2), avm.Number(3), avm.Number(0), avm.Number(5), avm.Number(6))
	if got := h.invoke(t, created, "toString").AsString(); got != "(a=2, b=0, c=0, d=3, tx=5, ty=6)" {
		t.Errorf("createBox = %s", got)
	}
}

func TestColorTransformMembers(t *testing.T) {
	h := start(t, fixture{root: sprite(0, frame())})
	ct := h.newGeom(t, "ColorTransform")
	if h.num(ct, "redMultiplier") != 1 || h.num(ct, "alphaOffset") != 0 {
		t.Errorf("default = %s", h.invoke(t, ct, "toString").AsString())
	}
	h.vm.SetMember(ct, "rgb", avm.Int(0xFF8000))
	if h.num(ct, "redMultiplier") != 0 || h.num(ct, "redOffset") != 255 || h.num(ct, "greenOffset") != 128 {
		t.Errorf("after rgb = 0xFF8000: %s", h.invoke(t, ct, "toString").AsString())
	}
	if h.num(ct, "alphaMultiplier") != 1 {
		t.Error("rgb changed alpha")
	}
	if got := h.num(ct, "rgb"); got != 0xFF8000 {
		t.Errorf("rgb = %#x, want 0xff8000", int(got))
	}

	a := h.newGeom(t, "ColorTransform", 0.5, 1, 1, 1, 10)
	h.invoke(t, a, "concat", avm.Obj(h.newGeom(t, "ColorTransform", 1, 1, 1, 1, 100)))
	if h.num(a, "redMultiplier") != 0.5 || h.num(a, "redOffset") != 60 {
		t.Errorf("concat = %s", h.invoke(t, a, "toString").AsString())
	}
}

func TestClipTransform(t *testing.T) {
	h := start(t, fixture{
		root: sprite(0, frame(
			&movie.Place{Depth: 1, CharacterID: 10, Name: "a", Matrix: pixels(12, 34)},
			put(2, 10, "b"),
			script(`
				push "t" "a"
				getvariable
				push "transform"
				getmember
				setvariable
				stop
			`),
		)),
		chars: []movie.Character{sprite(10, frame())},
	})
	h.Tick()
	tr := h.rootVar("t").Object()
	m := h.vm.GetMember(tr, "matrix").Object()
	if h.num(m, "tx") != 12 || h.num(m, "ty") != 34 || h.num(m, "a") != 1 {
		t.Errorf("transform.matrix = %s", h.invoke(t, m, "toString").AsString())
	}

	h.vm.SetMember(tr, "matrix", avm.Obj(h.newGeom(t, "Matrix", 2, 0, 0, 2, 50, 60)))
	want := geom.Matrix{A: 2, D: 2, TX: 50 * geom.TwipsPerPixel, TY: 60 * geom.TwipsPerPixel}
	a := h.child("a")
	if a.Matrix != want {
		t.Errorf("matrix = %+v, want %+v", a.Matrix, want)
	}
	h.vm.SetMember(tr, "colorTransform", avm.Obj(h.newGeom(t, "ColorTransform", 1, 1, 1, 0.5)))
	if a.Color.AMul != 0.5 {
		t.Errorf("AMul = %v after colorTransform write", a.Color.AMul)
	}
	if got := h.num(h.bind(a), "_alpha"); got != 50 {
		t.Errorf("_alpha = %v, want 50", got)
	}

	b := h.child("b")
	h.vm.SetMember(h.bind(b), "transform", avm.Obj(tr))
	if b.Matrix != want || b.Color.AMul != 0.5 {
		t.Errorf("b after transform assignment: %+v %+v", b.Matrix, b.Color)
	}
	world := h.vm.GetMember(tr, "concatenatedMatrix").Object()
	if h.num(world, "tx") != 50 {
		t.Errorf("concatenatedMatrix.tx = %v, want 50", h.num(world, "tx"))
	}

	h.Tree().RemoveInstance(a)
	if v := h.vm.GetMember(tr, "matrix"); !v.IsUndefined() {
		t.Errorf("matrix of a removed clip = %v, want undefined", v)
	}
}

func TestTextFormatOnField(t *testing.T) {
	h := start(t, fixture{
		root: sprite(0, frame(put(1, 30, "field"), script("stop"))),
		chars: []movie.Character{&movie.EditText{
			CharID: 30, Size: 14, Rect: geom.Rect{XMax: 2000, YMax: 400},
			Color: movie.Fill{Color: colorful.Color{B: 1}, Alpha: 1},
		}},
	})
	h.Tick()
	field := h.bind(h.child("field"))
	def := h.invoke(t, field, "getTextFormat").Object()
	if h.num(def, "size") != 14 || h.num(def, "color") != 0x0000FF || h.vm.GetMember(def, "bold").AsBool() {
		t.Errorf("default format: size %v color %#x bold %v",
			h.num(def, "size"), int(h.num(def, "color")), h.vm.GetMember(def, "bold"))
	}

	ctor := h.vm.GetMember(h.vm.Global, "TextFormat").Object()
	tf := h.construct(t, ctor, avm.String("Arial"), avm.Int(20), avm.Int(0xFF0000), avm.True)
	if v := h.vm.GetMember(tf, "italic"); !v.IsNull() {
		t.Errorf("unset italic = %v, want null", v)
	}
	h.invoke(t, field, "setTextFormat", avm.Obj(tf))
	h.invoke(t, field, "setTextFormat", avm.Obj(h.construct(t, ctor, avm.Null, avm.Int(18))))

	got := h.invoke(t, field, "getTextFormat").Object()
	if h.str(got, "font") != "Arial" || h.num(got, "size") != 18 || !h.vm.GetMember(got, "bold").AsBool() {
		t.Errorf("merged format: font %q size %v bold %v", h.str(got, "font"), h.num(got, "size"), h.vm.GetMember(got, "bold"))
	}
	if c := h.num(field, "textColor"); c != 0xFF0000 {
		t.Errorf("textColor = %#x, want 0xff0000", int(c))
	}
	h.vm.SetMember(field, "textColor", avm.Int(0x00FF00))
	if c := h.num(h.invoke(t, field, "getNewTextFormat").Object(), "color"); c != 0x00FF00 {
		t.Errorf("format color after textColor = 0x00ff00 is %#x", int(c))
	}
}

func TestSystemCapabilities(t *testing.T) {
	h := start(t, fixture{
		root: sprite(0, frame(script(`
			push "w" "System.capabilities"
			getvariable
			push "screenResolutionX"
			getmember
			setvariable
			push "v" "$version"
			getvariable
			setvariable
			push "r" "example.com" 1 "System.security"
			getvariable
			push "allowDomain"
			callmethod
			setvariable
			stop
		`))),
	})
	h.Tick()
	if len(h.faults) != 0 {
		t.Fatalf("faults = %v", h.faults)
	}
	if got := h.rootVar("w").AsNumber(); got != 550 {
		t.Errorf("screenResolutionX = %v, want 550", got)
	}
	if v := h.rootVar("v").AsString(); !strings.HasSuffix(v, " 8,0,0,0") {
		t.Errorf("$version = %q", v)
	}
	if v := h.rootVar("r"); !v.IsUndefined() {
		t.Errorf("allowDomain returned %v", v)
	}

	system := h.vm.GetMember(h.vm.Global, "System").Object()
	caps := h.vm.GetMember(system, "capabilities").Object()
	h.vm.SetMember(caps, "hasAudio", avm.True)
	if h.vm.GetMember(caps, "hasAudio").AsBool() {
		t.Error("capabilities are writable")
	}
	if h.vm.GetMember(system, "useCodepage").AsBool() {
		t.Error("useCodepage defaults to true")
	}
	version, err := h.vm.Call(h.vm.GetMember(h.vm.Global, "getVersion"), avm.Undefined)
	if err != nil {
		t.Fatal(err)
	}
	if version.AsString() != h.str(caps, "version") {
		t.Errorf("getVersion() = %q, capabilities.version = %q", version.AsString(), h.str(caps, "version"))
	}
}

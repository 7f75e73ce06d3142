package player

import (
	"math"
	"time"

	"github.com/chazu/reel/avm"
	"github.com/tidwall/btree"
)

// interval is a setInterval registration. Periods are counted in frames:
// the callback fires at the start of every tick that reaches due.
type interval struct {
	id     int
	fn     avm.Value
	this   avm.Value
	method string
	args   []avm.Value
	every  int
	due    int
}

// intervals fire in registration order.
type intervals struct {
	byID btree.Map[int, *interval]
	next int
}

func (iv *intervals) add(it *interval) int {
	iv.next++
	it.id = iv.next
	iv.byID.Set(it.id, it)
	return it.id
}

func (iv *intervals) remove(id int) bool {
	_, ok := iv.byID.Delete(id)
	return ok
}

func (iv *intervals) clear() {
	iv.byID = btree.Map[int, *interval]{}
}

func (iv *intervals) due(frame int) []*interval {
	var out []*interval
	iv.byID.Scan(func(_ int, it *interval) bool {
		if it.due <= frame {
			out = append(out, it)
		}
		return true
	})
	return out
}

func (iv *intervals) roots() []*avm.Object {
	var out []*avm.Object
	add := func(v avm.Value) {
		if o := v.Object(); o != nil {
			out = append(out, o)
		}
	}
	iv.byID.Scan(func(_ int, it *interval) bool {
		add(it.fn)
		add(it.this)
		for _, a := range it.args {
			add(a)
		}
		return true
	})
	return out
}

// maxIntervalFrames caps timer periods.
const maxIntervalFrames = math.MaxInt32

// framesFor converts a period in milliseconds to whole frames, between one
// and maxIntervalFrames.
func (p *Player) framesFor(ms float64) int {
	if math.IsNaN(ms) || ms <= 0 {
		return 1
	}
	n := math.Round(ms * float64(time.Millisecond) / float64(p.frameDur))
	if n >= maxIntervalFrames || math.IsInf(n, 1) {
		return maxIntervalFrames
	}
	return max(1, int(n))
}

func (p *Player) fireIntervals() {
	for _, it := range p.intervals.due(p.stats.Frames) {
		if _, live := p.intervals.byID.Get(it.id); !live {
			continue
		}
		it.due += it.every
		fn := it.fn
		if it.method != "" {
			obj := it.this.Object()
			if err := p.vm.Protect(func() { fn = p.vm.GetMember(obj, it.method) }); err != nil {
				p.report("_level0", frameOf(p.root), err)
				continue
			}
		}
		p.call(p.root, fn, it.this, it.args...)
	}
}

func (p *Player) installIntervals() {
	p.RegisterGlobal("setInterval", func(c *avm.Call) (avm.Value, error) {
		it := &interval{}
		rest := 2
		if c.Arg(1).IsString() {
			// setInterval(object, "method", ms, args...)
			if c.Arg(0).Object() == nil {
				return avm.Undefined, nil
			}
			it.this, it.method = c.Arg(0), c.StringArg(1)
			rest = 3
		} else {
			if !c.Arg(0).IsCallable() {
				return avm.Undefined, nil
			}
			it.fn = c.Arg(0)
		}
		it.every = p.framesFor(c.NumberArg(rest - 1))
		it.due = p.stats.Frames + it.every
		if len(c.Args) > rest {
			it.args = append([]avm.Value(nil), c.Args[rest:]...)
		}
		return avm.Int(p.intervals.add(it)), nil
	})
	p.RegisterGlobal("clearInterval", func(c *avm.Call) (avm.Value, error) {
		p.intervals.remove(c.IntArg(0, 0))
		return avm.Undefined, nil
	})
}

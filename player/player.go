// Package player drives a loaded movie over time: the fixed-timestep frame
// scheduler, the script bindings of display instances and the input router.
//
// A Player owns one display tree, one script VM and one global object. It is
// not safe for concurrent use; server.Worker serialises access when a player
// is shared with other goroutines. The movie's dictionary is read-only and
// may back any number of players.
package player

import (
	"errors"
	"fmt"
	"time"

	"github.com/chazu/reel/avm"
	"github.com/chazu/reel/display"
	"github.com/chazu/reel/movie"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("reel.player")

// DefaultGCInterval is the number of frames between cycle collections.
const DefaultGCInterval = 100

// maxGotoChain bounds the frame scripts one settle pass may run, so a
// timeline that keeps jumping back into itself cannot hang a tick.
const maxGotoChain = 1000

// Options configure a player.
type Options struct {
	// FrameRate overrides the movie's frame rate when positive.
	FrameRate float64
	// Limits bound every top-level script invocation.
	Limits avm.Limits
	// GCInterval is the number of frames between collections. Negative
	// disables periodic collection.
	GCInterval int
	// Seed makes Math.random deterministic when non-zero.
	Seed int64
	// Trace receives trace() output.
	Trace func(msg string)
	// OnFault is called for every script fault and internal error after it
	// has been logged.
	OnFault func(err error)
}

// DefaultOptions returns the options used by the CLI without a config file.
func DefaultOptions() Options {
	return Options{Limits: avm.DefaultLimits(), GCInterval: DefaultGCInterval}
}

// Stats are running counters of a player.
type Stats struct {
	Frames       int
	Scripts      int
	Faults       int
	Placeholders int
	Collections  int
	LastCollect  avm.CollectStats
	LastFault    string
}

// Request is an outbound getURL or fscommand call.
type Request struct {
	URL    string
	Window string
	// Method is 0 (none), 1 (GET) or 2 (POST).
	Method int
}

const fsCommandPrefix = "FSCommand:"

// FSCommand splits an fscommand request into its command and arguments.
func (r Request) FSCommand() (command, args string, ok bool) {
	if len(r.URL) < len(fsCommandPrefix) || r.URL[:len(fsCommandPrefix)] != fsCommandPrefix {
		return "", "", false
	}
	return r.URL[len(fsCommandPrefix):], r.Window, true
}

// queuedFrame is a frame arrival caused by script whose scripts have not
// run yet.
type queuedFrame struct {
	inst  *display.Instance
	frame int
}

// Player plays one movie.
type Player struct {
	// Session identifies the player in logs and debugger snapshots.
	Session uuid.UUID

	movie *movie.Movie
	opts  Options
	log   commonlog.Logger

	vm   *avm.VM
	tree *display.Tree
	root *display.Instance

	frameDur time.Duration
	acc      time.Duration
	stats    Stats

	clipProto   *avm.Object
	buttonProto *avm.Object
	textProto   *avm.Object
	formatProto *avm.Object
	flashGeom   geomProtos
	classes     map[movie.Character]*avm.Object
	inited      map[*movie.Sprite]bool

	running  int
	draining bool
	gotos    []queuedFrame
	unloads  []*display.Instance

	intervals intervals
	tweens    []*avm.Object
	requests  []Request

	router router
	key    *avm.Object
	mouse  *avm.Object
	stage  *avm.Object
}

// New creates a player for m. The movie is validated (and its dictionary
// frozen); the first Tick enters frame 1.
func New(m *movie.Movie, opts Options) (*Player, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	rate := m.FrameRate
	if opts.FrameRate > 0 {
		rate = opts.FrameRate
	}
	if opts.GCInterval == 0 {
		opts.GCInterval = DefaultGCInterval
	}

	p := &Player{
		Session:  uuid.New(),
		movie:    m,
		opts:     opts,
		frameDur: time.Duration(float64(time.Second) / rate),
		classes:  make(map[movie.Character]*avm.Object),
		inited:   make(map[*movie.Sprite]bool),
	}
	p.log = commonlog.NewKeyValueLogger(log, "session", p.Session.String())

	p.vm = avm.New(opts.Limits)
	if opts.Seed != 0 {
		p.vm.Seed(opts.Seed)
	}
	p.vm.Trace = opts.Trace
	p.vm.Timeline = p

	p.tree = display.NewTree(m.Dictionary)
	p.tree.OnRemove = p.onRemove
	p.installClasses()

	p.root = p.tree.NewRoot(m.Root)
	p.bind(p.root)
	p.router.init()

	p.log.Infof("loaded movie: %d characters, %d frames at %.2f fps", m.Dictionary.Len(), m.Root.FrameCount(), rate)
	return p, nil
}

// Movie returns the movie being played.
func (p *Player) Movie() *movie.Movie { return p.movie }

// VM returns the script VM. Host code may install globals on it between
// ticks.
func (p *Player) VM() *avm.VM { return p.vm }

// Tree returns the display tree.
func (p *Player) Tree() *display.Tree { return p.tree }

// Root returns the root timeline instance.
func (p *Player) Root() *display.Instance { return p.root }

// FrameDuration returns the fixed timestep.
func (p *Player) FrameDuration() time.Duration { return p.frameDur }

// Stats returns the running counters.
func (p *Player) Stats() Stats { return p.stats }

// RegisterGlobal installs a native global function visible to every script.
func (p *Player) RegisterGlobal(name string, fn avm.NativeFunc) {
	p.vm.RegisterGlobal(name, fn)
}

// PollFSCommand returns and clears the queued getURL and fscommand requests.
func (p *Player) PollFSCommand() []Request {
	out := p.requests
	p.requests = nil
	return out
}

// DrawList returns the paint-ordered draw list of the current state.
func (p *Player) DrawList() display.DrawList {
	return p.tree.Draw(p.root)
}

// Advance accumulates wall time and runs one Tick per elapsed frame
// duration. It returns the number of ticks run.
func (p *Player) Advance(dt time.Duration) int {
	p.acc += dt
	n := 0
	for p.acc >= p.frameDur {
		p.acc -= p.frameDur
		p.Tick()
		n++
	}
	return n
}

// Tick runs exactly one frame: due intervals, the timeline step from the
// root down, queued input, tweens and, every GCInterval frames, a
// collection.
func (p *Player) Tick() {
	p.stats.Frames++

	p.fireIntervals()
	p.stepClip(p.root)
	p.settle()
	p.routeInput()
	p.stepTweens()
	p.syncText()

	if p.opts.GCInterval > 0 && p.stats.Frames%p.opts.GCInterval == 0 {
		p.Collect()
	}
}

// Collect runs the cycle collector with every live instance binding,
// interval and tween as roots.
func (p *Player) Collect() avm.CollectStats {
	var roots []*avm.Object
	var walk func(inst *display.Instance)
	walk = func(inst *display.Instance) {
		if o, ok := inst.Binding.(*avm.Object); ok {
			roots = append(roots, o)
		}
		if inst.Children() == nil {
			return
		}
		for _, c := range inst.Children().ByDepth() {
			walk(c)
		}
	}
	walk(p.root)
	roots = append(roots, p.tweens...)
	roots = append(roots, p.intervals.roots()...)
	for _, o := range p.classes {
		roots = append(roots, o)
	}
	// Bindings reach their prototypes, but scripts may delete the globals
	// while no instance is alive.
	protos := []*avm.Object{p.clipProto, p.buttonProto, p.textProto, p.formatProto, p.key, p.mouse, p.stage}
	for _, o := range append(protos, p.flashGeom.roots()...) {
		if o != nil {
			roots = append(roots, o)
		}
	}

	st := p.vm.Collect(roots...)
	p.stats.Collections++
	p.stats.LastCollect = st
	return st
}

// Close unloads the movie: the root's children are destroyed (firing their
// unload events) and the heap is collected.
func (p *Player) Close() {
	for _, c := range p.root.Children().ByDepth() {
		p.tree.Remove(p.root, c.Depth)
	}
	p.settle()
	p.intervals.clear()
	p.tweens = nil
	st := p.Collect()
	p.log.Infof("unloaded after %d frames, %d objects live", p.stats.Frames, st.Live)
}

// ---------------------------------------------------------------------------
// Script invocation
// ---------------------------------------------------------------------------

// run executes code as a frame script or clip event of inst.
func (p *Player) run(inst *display.Instance, frame int, code []byte) {
	obj := p.bind(inst)
	if obj == nil {
		return
	}
	p.running++
	err := p.vm.Run(code, obj, p.scopeOf(inst))
	p.running--
	p.stats.Scripts++
	p.report(inst.Path(), frame, err)
	p.settle()
}

// call invokes fn as a top-level callback (handler, interval, tween
// listener) on behalf of inst.
func (p *Player) call(inst *display.Instance, fn avm.Value, this avm.Value, args ...avm.Value) avm.Value {
	p.running++
	v, err := p.vm.Call(fn, this, args...)
	p.running--
	p.stats.Scripts++
	where, frame := "_level0", 0
	if inst != nil {
		where, frame = inst.Path(), frameOf(inst)
	}
	p.report(where, frame, err)
	p.settle()
	return v
}

// callHandler calls the method name of inst's binding if it has one.
func (p *Player) callHandler(inst *display.Instance, name string, args ...avm.Value) bool {
	obj := p.bind(inst)
	if obj == nil || !p.vm.HasMember(obj, name) {
		return false
	}
	var fn avm.Value
	if err := p.vm.Protect(func() { fn = p.vm.GetMember(obj, name) }); err != nil {
		p.report(inst.Path(), frameOf(inst), err)
		return false
	}
	if !fn.IsCallable() {
		return false
	}
	p.call(inst, fn, avm.Obj(obj), args...)
	return true
}

// scopeOf returns the scope chain of scripts running on inst: its clip
// ancestors outermost first, ending with inst.
func (p *Player) scopeOf(inst *display.Instance) []*avm.Object {
	var chain []*avm.Object
	for i := inst; i != nil; i = i.Parent() {
		if i.Clip == nil && i != inst {
			continue
		}
		if o := p.bind(i); o != nil {
			chain = append(chain, o)
		}
	}
	for l, r := 0, len(chain)-1; l < r; l, r = l+1, r-1 {
		chain[l], chain[r] = chain[r], chain[l]
	}
	return chain
}

// report logs a failed invocation. Faults never propagate further.
func (p *Player) report(clip string, frame int, err error) {
	if err == nil {
		return
	}
	p.stats.Faults++
	var sf *avm.ScriptFault
	var ie *avm.InternalError
	switch {
	case errors.As(err, &sf):
		sf.Clip, sf.Frame = clip, frame
		p.log.Error("script fault", "clip", clip, "frame", frame, "fault", sf.Kind.String(), "message", sf.Message)
	case errors.As(err, &ie):
		p.log.Error("malformed bytecode", "clip", clip, "frame", frame, "op", ie.Op.String(), "offset", ie.Offset, "error", ie.Msg)
	default:
		err = fmt.Errorf("%s frame %d: %w", clip, frame, err)
		p.log.Error("script failed", "clip", clip, "frame", frame, "error", err.Error())
	}
	p.stats.LastFault = err.Error()
	if p.opts.OnFault != nil {
		p.opts.OnFault(err)
	}
}

// settle runs the work deferred while scripts were executing: the scripts
// of frames reached by goto, then unload events. It does nothing while a
// script is still running.
func (p *Player) settle() {
	if p.running > 0 || p.draining {
		return
	}
	p.draining = true
	defer func() { p.draining = false }()

	for n := 0; len(p.gotos) > 0 || len(p.unloads) > 0; n++ {
		if n == maxGotoChain {
			p.log.Warningf("dropping %d queued frames: goto chain longer than %d", len(p.gotos), maxGotoChain)
			p.gotos = nil
			break
		}
		if len(p.gotos) > 0 {
			q := p.gotos[0]
			p.gotos = p.gotos[1:]
			if !q.inst.Removed && q.inst.Clip.Frame == q.frame {
				p.runFrameScripts(q.inst)
			}
			continue
		}
		inst := p.unloads[0]
		p.unloads = p.unloads[1:]
		p.fireUnload(inst)
	}
}

func frameOf(inst *display.Instance) int {
	for i := inst; i != nil; i = i.Parent() {
		if i.Clip != nil {
			return i.Clip.Frame
		}
	}
	return 0
}

package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/reel/player"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("reel.server")

// ErrStopped is returned by Do once the worker has shut down.
var ErrStopped = errors.New("server: worker stopped")

// request is a unit of work to be executed on the player goroutine.
type request struct {
	fn   func(*player.Player) (any, error)
	done chan result
}

type result struct {
	value any
	err   error
}

// Worker serialises all access to a player through a single goroutine. A
// player is single-threaded; the debugger and the CLI go through the worker
// to avoid data races. With a clock the worker also advances the player in
// real time between requests.
type Worker struct {
	player   *player.Player
	requests chan request
	quit     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once

	clock  bool
	paused bool // owned by the loop goroutine

	mu   sync.Mutex
	subs map[chan *Snapshot]struct{}
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithClock makes the worker tick the player at its frame rate.
func WithClock() WorkerOption {
	return func(w *Worker) { w.clock = true }
}

// WithPaused starts a clocked worker paused.
func WithPaused() WorkerOption {
	return func(w *Worker) { w.paused = true }
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker(p *player.Player, opts ...WorkerOption) *Worker {
	w := &Worker{
		player:   p,
		requests: make(chan request, 64),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
		subs:     make(map[chan *Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	defer close(w.stopped)
	var tick <-chan time.Time
	if w.clock {
		t := time.NewTicker(w.player.FrameDuration())
		defer t.Stop()
		tick = t.C
	}
	last := time.Now()
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case now := <-tick:
			dt := now.Sub(last)
			last = now
			if w.paused {
				continue
			}
			if n := w.player.Advance(dt); n > 0 {
				w.publish()
			}
		case <-w.quit:
			return
		}
	}
}

// execute runs fn on the player, recovering from panics.
func (w *Worker) execute(fn func(*player.Player) (any, error)) (res result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("worker request panicked", "panic", fmt.Sprint(r))
			res.err = fmt.Errorf("server: %v", r)
		}
	}()
	res.value, res.err = fn(w.player)
	return res
}

// Do submits fn for execution on the player goroutine and blocks until it
// completes or ctx is done. Panics in fn come back as errors.
func (w *Worker) Do(ctx context.Context, fn func(*player.Player) (any, error)) (any, error) {
	req := request{fn: fn, done: make(chan result, 1)}
	select {
	case w.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.stopped:
		return nil, ErrStopped
	}
	select {
	case res := <-req.done:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.stopped:
		return nil, ErrStopped
	}
}

// Step runs n ticks and publishes a snapshot after each.
func (w *Worker) Step(ctx context.Context, n int) error {
	_, err := w.Do(ctx, func(p *player.Player) (any, error) {
		for range n {
			p.Tick()
			w.publish()
		}
		return nil, nil
	})
	return err
}

// SetPaused pauses or resumes the clock. Stepping works either way.
func (w *Worker) SetPaused(ctx context.Context, paused bool) error {
	_, err := w.Do(ctx, func(*player.Player) (any, error) {
		w.paused = paused
		return nil, nil
	})
	return err
}

// Snapshot takes a snapshot of the player.
func (w *Worker) Snapshot(ctx context.Context) (*Snapshot, error) {
	v, err := w.Do(ctx, func(p *player.Player) (any, error) {
		return w.snapshot(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Subscribe registers for snapshots published after every tick. The current
// snapshot is delivered first, so no tick after the call is missed. Slow
// subscribers drop snapshots rather than stall the player.
func (w *Worker) Subscribe(ctx context.Context) (<-chan *Snapshot, func(), error) {
	ch := make(chan *Snapshot, 16)
	_, err := w.Do(ctx, func(*player.Player) (any, error) {
		ch <- w.snapshot()
		w.mu.Lock()
		w.subs[ch] = struct{}{}
		w.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return nil, nil, err
	}
	cancel := func() {
		w.mu.Lock()
		delete(w.subs, ch)
		w.mu.Unlock()
	}
	return ch, cancel, nil
}

func (w *Worker) snapshot() *Snapshot {
	s := TakeSnapshot(w.player)
	s.Paused = w.clock && w.paused
	return s
}

// publish runs on the loop goroutine.
func (w *Worker) publish() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.subs) == 0 {
		return
	}
	s := w.snapshot()
	for ch := range w.subs {
		select {
		case ch <- s:
		default:
			log.Debugf("subscriber full, dropping snapshot of tick %d", s.Tick)
		}
	}
}

// Done is closed once the worker goroutine has exited.
func (w *Worker) Done() <-chan struct{} { return w.stopped }

// Stop shuts down the worker goroutine and waits for it to exit.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
	<-w.stopped
}

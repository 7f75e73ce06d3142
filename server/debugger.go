package server

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/chazu/reel/player"
)

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

// Control actions.
const (
	ActionPause  = "pause"  // stop the clock
	ActionResume = "resume" // restart the clock
	ActionStep   = "step"   // run Count ticks (default 1)
	ActionPlay   = "play"   // play the root timeline
	ActionStop   = "stop"   // stop the root timeline
	ActionGoto   = "goto"   // root gotoAndStop(Frame or Label)
)

// ControlRequest drives the player.
type ControlRequest struct {
	Action string `cbor:"1,keyasint"`
	Frame  int    `cbor:"2,keyasint,omitempty"`
	Label  string `cbor:"3,keyasint,omitempty"`
	Count  int    `cbor:"4,keyasint,omitempty"`
}

// ControlReply carries the snapshot taken after the action.
type ControlReply struct {
	Snapshot *Snapshot `cbor:"1,keyasint"`
}

// WatchRequest subscribes to snapshots. Limit > 0 ends the stream after that
// many snapshots.
type WatchRequest struct {
	Limit int `cbor:"1,keyasint,omitempty"`
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

const (
	serviceName   = "reel.debug.v1.Debugger"
	controlMethod = "/" + serviceName + "/Control"
	watchMethod   = "/" + serviceName + "/Watch"
)

// DebuggerServer is the server side of the debugger protocol.
type DebuggerServer interface {
	Control(context.Context, *ControlRequest) (*ControlReply, error)
	Watch(*WatchRequest, grpc.ServerStream) error
}

var debuggerDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*DebuggerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Control", Handler: controlHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
}

func controlHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ControlRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DebuggerServer).Control(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: controlMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DebuggerServer).Control(ctx, req.(*ControlRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DebuggerServer).Watch(in, stream)
}

// Debugger serves a worker's player to remote clients.
type Debugger struct {
	worker *Worker
}

// NewDebugger creates a debugger for the player behind w.
func NewDebugger(w *Worker) *Debugger {
	return &Debugger{worker: w}
}

// Register adds the debugger service to s.
func (d *Debugger) Register(s *grpc.Server) {
	s.RegisterService(&debuggerDesc, d)
}

// Serve accepts debugger connections on lis until ctx is done.
func (d *Debugger) Serve(ctx context.Context, lis net.Listener) error {
	s := grpc.NewServer()
	d.Register(s)
	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()
	log.Noticef("debugger listening on %s", lis.Addr())
	return s.Serve(lis)
}

// Control applies one action and returns the resulting snapshot.
func (d *Debugger) Control(ctx context.Context, req *ControlRequest) (*ControlReply, error) {
	log.Debug("control", "action", req.Action, "frame", req.Frame, "label", req.Label, "count", req.Count)
	var err error
	switch req.Action {
	case ActionPause, ActionResume:
		err = d.worker.SetPaused(ctx, req.Action == ActionPause)
	case ActionStep:
		n := req.Count
		if n <= 0 {
			n = 1
		}
		err = d.worker.Step(ctx, n)
	case ActionPlay, ActionStop, ActionGoto:
		_, err = d.worker.Do(ctx, func(p *player.Player) (any, error) {
			return nil, timelineControl(p, req)
		})
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown action %q", req.Action)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	snap, err := d.worker.Snapshot(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ControlReply{Snapshot: snap}, nil
}

func timelineControl(p *player.Player, req *ControlRequest) error {
	root := p.ResolveTarget(nil, "_root")
	switch req.Action {
	case ActionPlay:
		p.Play(root)
	case ActionStop:
		p.Stop(root)
	case ActionGoto:
		switch {
		case req.Label != "":
			if !p.GotoLabel(root, req.Label) {
				return status.Errorf(codes.NotFound, "no frame labelled %q", req.Label)
			}
		case req.Frame > 0:
			p.GotoFrame(root, req.Frame)
		default:
			return status.Error(codes.InvalidArgument, "goto needs a frame or a label")
		}
		p.Stop(root)
	}
	return nil
}

// Watch streams snapshots until the client goes away, the limit is reached
// or the worker stops.
func (d *Debugger) Watch(req *WatchRequest, stream grpc.ServerStream) error {
	ctx := stream.Context()
	snaps, cancel, err := d.worker.Subscribe(ctx)
	if err != nil {
		return toStatus(err)
	}
	defer cancel()
	for sent := 0; req.Limit <= 0 || sent < req.Limit; sent++ {
		select {
		case s := <-snaps:
			if err := stream.SendMsg(s); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		case <-d.worker.Done():
			return status.Error(codes.Unavailable, "player stopped")
		}
	}
	return nil
}

func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch err {
	case ErrStopped:
		return status.Error(codes.Unavailable, err.Error())
	case context.Canceled:
		return status.Error(codes.Canceled, err.Error())
	case context.DeadlineExceeded:
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

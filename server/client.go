package server

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client talks to a remote Debugger.
type Client struct {
	cc   grpc.ClientConnInterface
	conn *grpc.ClientConn
}

// Dial connects to a debugger at addr ("host:port").
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("server: dial %s: %w", addr, err)
	}
	return &Client{cc: conn, conn: conn}, nil
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Close closes a connection opened by Dial.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Control sends one control action.
func (c *Client) Control(ctx context.Context, req *ControlRequest) (*ControlReply, error) {
	out := new(ControlReply)
	if err := c.cc.Invoke(ctx, controlMethod, req, out, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, err
	}
	return out, nil
}

// Watch opens a snapshot stream.
func (c *Client) Watch(ctx context.Context, req *WatchRequest) (*Watcher, error) {
	stream, err := c.cc.NewStream(ctx, &debuggerDesc.Streams[0], watchMethod, grpc.CallContentSubtype(codecName))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &Watcher{stream: stream}, nil
}

// Watcher receives snapshots from a Watch stream.
type Watcher struct {
	stream grpc.ClientStream
}

// Recv blocks for the next snapshot. It returns io.EOF when the server ends
// the stream.
func (w *Watcher) Recv() (*Snapshot, error) {
	s := new(Snapshot)
	if err := w.stream.RecvMsg(s); err != nil {
		return nil, err
	}
	return s, nil
}

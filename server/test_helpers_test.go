package server

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/chazu/reel/moviedoc"
	"github.com/chazu/reel/player"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
// ---------------------------------------------------------------------------

// countdownDoc is a three-frame root with a labelled last frame and one
// child clip that counts its own frames.
const countdownDoc = `
frame-rate: 30
characters:
  - id: 1
    shape:
      paths:
        - fill: "#00ff00"
          points: [[0, 0], [10, 0], [10, 10], [0, 10]]
  - id: 10
    sprite:
      frames:
        - tags:
            - place: {depth: 1, char: 1}
        - tags: []
timeline:
  - tags:
      - place: {depth: 1, char: 10, name: dot, at: [40, 30]}
  - tags: []
  - label: end
    tags: []
`

func newTestPlayer(t *testing.T) *player.Player {
	t.Helper()
	m, err := moviedoc.Parse([]byte(countdownDoc))
	if err != nil {
		t.Fatal(err)
	}
	p, err := player.New(m, player.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func newTestWorker(t *testing.T, opts ...WorkerOption) *Worker {
	t.Helper()
	w := NewWorker(newTestPlayer(t), opts...)
	t.Cleanup(w.Stop)
	return w
}

// newTestClient serves a debugger for w over an in-memory connection.
func newTestClient(t *testing.T, w *Worker) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	NewDebugger(w).Register(s)
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewClient(conn)
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func findNode(s *Snapshot, path string) *Node {
	for i := range s.Nodes {
		if s.Nodes[i].Path == path {
			return &s.Nodes[i]
		}
	}
	return nil
}

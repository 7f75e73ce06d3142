package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/reel/server"
)

var (
	flagWatchFrames int
	flagAction      string
)

var attachCmd = &cobra.Command{
	Use:   "attach ADDR",
	Short: "Print snapshots from a running debugger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}
		c, err := server.Dial(args[0])
		if err != nil {
			return err
		}
		defer c.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		if flagAction != "" {
			req, err := parseAction(flagAction)
			if err != nil {
				return err
			}
			reply, err := c.Control(ctx, req)
			if err != nil {
				return err
			}
			printSnapshot(out, reply.Snapshot)
			if flagWatchFrames == 0 {
				return nil
			}
		}

		watch, err := c.Watch(ctx, &server.WatchRequest{Limit: flagWatchFrames})
		if err != nil {
			return err
		}
		for {
			s, err := watch.Recv()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			printSnapshot(out, s)
		}
	},
}

func init() {
	attachCmd.Flags().IntVarP(&flagWatchFrames, "frames", "n", 1, "snapshots to print (0: until interrupted)")
	attachCmd.Flags().StringVarP(&flagAction, "do", "d", "",
		"control action first: pause, resume, step[=N], play, stop, goto=FRAME|LABEL")
}

func parseAction(s string) (*server.ControlRequest, error) {
	action, arg, _ := strings.Cut(s, "=")
	req := &server.ControlRequest{Action: action}
	switch action {
	case server.ActionStep:
		if arg != "" {
			if _, err := fmt.Sscan(arg, &req.Count); err != nil {
				return nil, fmt.Errorf("step count %q: %w", arg, err)
			}
		}
	case server.ActionGoto:
		if _, err := fmt.Sscan(arg, &req.Frame); err != nil {
			req.Label = arg
		}
	}
	return req, nil
}

func printSnapshot(w io.Writer, s *server.Snapshot) {
	state := ""
	if s.Paused {
		state = " (paused)"
	}
	fmt.Fprintf(w, "tick %d  frame %d/%d%s  faults %d\n", s.Tick, s.Frame, s.Frames, state, s.Faults)
	if s.LastFault != "" {
		fmt.Fprintf(w, "  last fault: %s\n", s.LastFault)
	}
	for _, n := range s.Nodes {
		indent := strings.Repeat("  ", n.Level+1)
		fmt.Fprintf(w, "%s%s %s #%d depth %d at (%g, %g)", indent, n.Path, n.Kind, n.CharacterID, n.Depth, n.X, n.Y)
		if n.Frame > 0 {
			fmt.Fprintf(w, " frame %d", n.Frame)
		}
		if !n.Visible {
			fmt.Fprint(w, " hidden")
		}
		if n.Placeholder {
			fmt.Fprint(w, " placeholder")
		}
		if n.Text != "" {
			fmt.Fprintf(w, " %q", n.Text)
		}
		fmt.Fprintln(w)
	}
}

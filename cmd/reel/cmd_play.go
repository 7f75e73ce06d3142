package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazu/reel/display"
)

var (
	flagFrames int
	flagOut    string
)

var playCmd = &cobra.Command{
	Use:   "play MOVIE.yaml",
	Short: "Run a movie for a number of frames and report the final draw list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		m, p, err := openMovie(cmd, cfg, args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		frames := flagFrames
		if frames <= 0 {
			frames = m.Root.FrameCount()
		}
		out := cmd.OutOrStdout()
		for range frames {
			p.Tick()
			for _, req := range p.PollFSCommand() {
				if command, arg, ok := req.FSCommand(); ok {
					fmt.Fprintf(out, "fscommand %s %q\n", command, arg)
				} else {
					fmt.Fprintf(out, "getURL %s %s\n", req.URL, req.Window)
				}
			}
		}

		dl := p.DrawList()
		st := p.Stats()
		fmt.Fprintf(out, "%d frames, %d scripts, %d faults, %d placeholders, %d draw items\n",
			st.Frames, st.Scripts, st.Faults, st.Placeholders, len(dl))
		if flagOut == "" {
			return nil
		}
		data, err := display.EncodeDrawList(dl)
		if err != nil {
			return err
		}
		return os.WriteFile(flagOut, data, 0o644)
	},
}

func init() {
	playCmd.Flags().IntVarP(&flagFrames, "frames", "n", 0, "frames to run (default: the root timeline's length)")
	playCmd.Flags().StringVarP(&flagOut, "out", "o", "", "write the final draw list as CBOR")
}

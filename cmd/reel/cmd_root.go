package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/reel/config"
	"github.com/chazu/reel/movie"
	"github.com/chazu/reel/moviedoc"
	"github.com/chazu/reel/player"
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Headless vector-animation player",
	Long: appName + " plays movies written as YAML documents: timelines of vector shapes,\n" +
		"sprites and buttons driven by action bytecode.",
}

// openMovie loads the document at path and creates a player for it with
// trace output on stdout.
func openMovie(cmd *cobra.Command, cfg *config.Config, path string) (*movie.Movie, *player.Player, error) {
	m, err := moviedoc.Load(path)
	if err != nil {
		return nil, nil, err
	}
	opts := cfg.PlayerOptions()
	out := cmd.OutOrStdout()
	opts.Trace = func(msg string) { fmt.Fprintln(out, msg) }
	p, err := player.New(m, opts)
	if err != nil {
		return nil, nil, err
	}
	return m, p, nil
}

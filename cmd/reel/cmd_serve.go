package main

import (
	"context"
	"net"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/chazu/reel/config"
	"github.com/chazu/reel/player"
	"github.com/chazu/reel/server"
)

var (
	flagListen string
	flagPaused bool
)

var serveCmd = &cobra.Command{
	Use:   "serve MOVIE.yaml",
	Short: "Play a movie in real time behind the remote debugger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		_, p, err := openMovie(cmd, cfg, args[0])
		if err != nil {
			return err
		}

		addr := cfg.Debug.Listen
		if flagListen != "" {
			addr = flagListen
		}
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}

		opts := []server.WorkerOption{server.WithClock()}
		if flagPaused {
			opts = append(opts, server.WithPaused())
		}
		w := server.NewWorker(p, opts...)
		defer w.Stop()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		err = server.NewDebugger(w).Serve(ctx, lis)
		if ctx.Err() != nil {
			_, _ = w.Do(context.Background(), func(*player.Player) (any, error) {
				p.Close()
				return nil, nil
			})
			return nil
		}
		return err
	},
}

func init() {
	serveCmd.Flags().StringVarP(&flagListen, "listen", "l", "", "debugger address (default from config: "+config.DefaultListen+")")
	serveCmd.Flags().BoolVar(&flagPaused, "paused", false, "start with the clock paused")
}

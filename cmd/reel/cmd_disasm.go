package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/reel/avm"
	"github.com/chazu/reel/moviedoc"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm MOVIE.yaml",
	Short: "Print a listing of every script in a movie",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}
		m, err := moviedoc.Load(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		var firstErr error
		m.Scripts(func(name string, code []byte) {
			fmt.Fprintf(out, "; %s (%d bytes)\n", name, len(code))
			listing, err := avm.Disassemble(code)
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", name, err)
			}
			fmt.Fprintln(out, listing)
		})
		return firstErr
	},
}

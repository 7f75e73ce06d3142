// Command reel plays YAML movie documents headless and serves them to the
// remote debugger.
package main

import (
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/reel/config"
)

const appName = "reel"

var (
	flagConfig    string
	flagVerbosity int
	flagLogFile   string
)

func init() {
	rootCmd.AddCommand(playCmd, disasmCmd, serveCmd, attachCmd)

	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "",
		"config file (default: nearest "+config.FileName+" above the working directory)")
	rootCmd.PersistentFlags().CountVarP(&flagVerbosity, "verbose", "v",
		"raise log verbosity (repeatable)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log", "",
		"log file (default: stderr)")

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err.Error())
		os.Exit(1)
	}
}

// loadConfig reads --config, or the nearest reel.toml, or the defaults, and
// configures logging from it and the flags.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if flagConfig != "" {
		cfg, err = config.Load(flagConfig)
	} else {
		var wd string
		if wd, err = os.Getwd(); err == nil {
			cfg, err = config.FindAndLoad(wd)
		}
	}
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}

	verbosity := cfg.Log.Verbosity + flagVerbosity
	logFile := cfg.LogFile()
	if flagLogFile != "" {
		logFile = &flagLogFile
	}
	commonlog.Configure(verbosity, logFile)
	if cfg.Path != "" {
		commonlog.GetLogger("reel").Infof("using config %s", cfg.Path)
	}
	return cfg, nil
}

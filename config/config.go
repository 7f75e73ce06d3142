// Package config handles reel.toml player configuration.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/reel/avm"
	"github.com/chazu/reel/player"
)

// FileName is the name FindAndLoad looks for.
const FileName = "reel.toml"

// DefaultListen is the debugger address used when none is configured.
const DefaultListen = "localhost:7766"

// Config represents a reel.toml file.
type Config struct {
	Player Player `toml:"player"`
	Log    Log    `toml:"log"`
	Debug  Debug  `toml:"debug"`

	// Path is the file the configuration was loaded from (set at load time).
	Path string `toml:"-"`
}

// Player configures playback.
type Player struct {
	// FrameRate overrides the movie's rate when positive.
	FrameRate        float64 `toml:"frame-rate"`
	InstructionLimit int     `toml:"instruction-limit"`
	MaxCallDepth     int     `toml:"max-call-depth"`
	// GCInterval is the number of frames between collections; negative
	// disables periodic collection.
	GCInterval int   `toml:"gc-interval"`
	Seed       int64 `toml:"seed"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Debug configures the remote debugger.
type Debug struct {
	Listen string `toml:"listen"`
}

// Default returns the configuration used when no reel.toml exists.
func Default() *Config {
	limits := avm.DefaultLimits()
	return &Config{
		Player: Player{
			InstructionLimit: limits.MaxInstructions,
			MaxCallDepth:     limits.MaxCallDepth,
			GCInterval:       player.DefaultGCInterval,
		},
		Log:   Log{Verbosity: 1},
		Debug: Debug{Listen: DefaultListen},
	}
}

// Load parses the reel.toml at path. Keys missing from the file keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	c.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a reel.toml file, then loads
// it. It returns nil, nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func (c *Config) validate() error {
	switch {
	case c.Player.FrameRate < 0:
		return fmt.Errorf("player.frame-rate must not be negative, got %v", c.Player.FrameRate)
	case c.Player.InstructionLimit < 0:
		return fmt.Errorf("player.instruction-limit must not be negative, got %d", c.Player.InstructionLimit)
	case c.Player.MaxCallDepth < 0:
		return fmt.Errorf("player.max-call-depth must not be negative, got %d", c.Player.MaxCallDepth)
	}
	return nil
}

// Write stores c at path in TOML form.
func Write(path string, c *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}

// PlayerOptions converts the player section to player.Options.
func (c *Config) PlayerOptions() player.Options {
	opts := player.DefaultOptions()
	opts.FrameRate = c.Player.FrameRate
	opts.Limits = avm.Limits{
		MaxInstructions: c.Player.InstructionLimit,
		MaxCallDepth:    c.Player.MaxCallDepth,
	}
	if c.Player.GCInterval != 0 {
		opts.GCInterval = c.Player.GCInterval
	}
	opts.Seed = c.Player.Seed
	return opts
}

// LogFile returns the configured log file, nil for stderr.
func (c *Config) LogFile() *string {
	if c.Log.File == "" {
		return nil
	}
	f := c.Log.File
	if !filepath.IsAbs(f) && c.Path != "" {
		f = filepath.Join(filepath.Dir(c.Path), f)
	}
	return &f
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/reel/player"
)

func writeFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, `
[player]
frame-rate = 24
instruction-limit = 1000
max-call-depth = 32
gc-interval = -1
seed = 7

[log]
verbosity = 2
file = "reel.log"

[debug]
listen = "127.0.0.1:9000"
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Player.FrameRate != 24 {
		t.Errorf("frame-rate = %v, want 24", c.Player.FrameRate)
	}
	if c.Player.InstructionLimit != 1000 || c.Player.MaxCallDepth != 32 {
		t.Errorf("limits = %d/%d, want 1000/32", c.Player.InstructionLimit, c.Player.MaxCallDepth)
	}
	if c.Debug.Listen != "127.0.0.1:9000" {
		t.Errorf("listen = %q", c.Debug.Listen)
	}
	if f := c.LogFile(); f == nil || *f != filepath.Join(filepath.Dir(c.Path), "reel.log") {
		t.Errorf("log file = %v, want reel.log next to the config", f)
	}

	opts := c.PlayerOptions()
	if opts.FrameRate != 24 || opts.Seed != 7 || opts.GCInterval != -1 {
		t.Errorf("options = %+v", opts)
	}
	if opts.Limits.MaxInstructions != 1000 || opts.Limits.MaxCallDepth != 32 {
		t.Errorf("option limits = %+v", opts.Limits)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, `
[log]
verbosity = 0
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := Default()
	if c.Player != want.Player {
		t.Errorf("player = %+v, want defaults %+v", c.Player, want.Player)
	}
	if c.Debug.Listen != DefaultListen {
		t.Errorf("listen = %q, want %q", c.Debug.Listen, DefaultListen)
	}
	if c.Log.Verbosity != 0 {
		t.Errorf("verbosity = %d, want 0 from the file", c.Log.Verbosity)
	}
	if c.LogFile() != nil {
		t.Error("log file set without a file key")
	}
	if got := c.PlayerOptions().GCInterval; got != player.DefaultGCInterval {
		t.Errorf("gc interval = %d, want %d", got, player.DefaultGCInterval)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, t.TempDir(), `
[player]
framerate = 30
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "framerate") {
		t.Errorf("err = %v, want unknown key framerate", err)
	}
}

func TestLoadRejectsNegativeLimits(t *testing.T) {
	path := writeFile(t, t.TempDir(), `
[player]
instruction-limit = -5
`)
	if _, err := Load(path); err == nil {
		t.Error("negative instruction limit accepted")
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "[player]\nframe-rate = 12\n")

	c, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if c == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if c.Player.FrameRate != 12 {
		t.Errorf("frame-rate = %v, want 12", c.Player.FrameRate)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	c, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if c != nil {
		t.Error("expected nil config when no reel.toml exists")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	c := Default()
	c.Player.FrameRate = 30
	c.Debug.Listen = ":0"
	if err := Write(path, c); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Player != c.Player || loaded.Debug != c.Debug || loaded.Log != c.Log {
		t.Errorf("loaded %+v, want %+v", loaded, c)
	}
}

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"framekit/internal/config"
)

func TestLoadDefaultsExpandPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "framekit", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Paths.LibraryDB != filepath.Join(tempHome, ".local", "share", "framekit", "library.db") {
		t.Fatalf("unexpected library db %q", cfg.Paths.LibraryDB)
	}
	if cfg.Render.Width != 1280 || cfg.Render.Height != 720 {
		t.Fatalf("unexpected render size %dx%d", cfg.Render.Width, cfg.Render.Height)
	}
	if cfg.Playback.FrameRate != 30 || cfg.Timeline.DefaultMaxDuration != 5000 {
		t.Fatalf("unexpected defaults: %+v %+v", cfg.Playback, cfg.Timeline)
	}
}

func TestLoadCustomPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	content := `
[paths]
library_db = "` + filepath.ToSlash(filepath.Join(dir, "lib.db")) + `"
log_dir = ""

[render]
width = 640
height = 360
background = "ff000080"

[playback]
frame_rate = 24.0

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved=%q exists=%v", resolved, exists)
	}
	if cfg.Render.Width != 640 || cfg.Render.DecodeWorkers != 4 {
		t.Fatalf("render = %+v", cfg.Render)
	}
	if cfg.Render.Background != "#ff000080" {
		t.Fatalf("background = %q", cfg.Render.Background)
	}
	c, err := config.ParseColor(cfg.Render.Background)
	if err != nil || c.R != 255 || c.A != 0x80 {
		t.Fatalf("ParseColor = %v, %v", c, err)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Paths.LogDir != "" {
		t.Fatalf("expected empty log dir to stay empty, got %q", cfg.Paths.LogDir)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if cfg.Render.Width != config.Default().Render.Width {
		t.Fatalf("sample width %d differs from default", cfg.Render.Width)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"width", func(c *config.Config) { c.Render.Width = 0 }, "render dimensions"},
		{"workers", func(c *config.Config) { c.Render.DecodeWorkers = -1 }, "decode_workers"},
		{"background", func(c *config.Config) { c.Render.Background = "#zz" }, "render.background"},
		{"fps", func(c *config.Config) { c.Playback.FrameRate = 0 }, "frame_rate"},
		{"catchup", func(c *config.Config) { c.Playback.MaxCatchupFrames = 0 }, "max_catchup_frames"},
		{"duration", func(c *config.Config) { c.Timeline.DefaultMaxDuration = 0 }, "default_max_duration"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate error = %v, want mention of %q", err, tc.want)
			}
		})
	}
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := config.Default()
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var back config.Config
	if err := toml.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back != cfg {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", back, cfg)
	}
}

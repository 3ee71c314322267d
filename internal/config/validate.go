package config

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validatePlayback(); err != nil {
		return err
	}
	if err := c.validateTimeline(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateRender() error {
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("render dimensions must be positive, got %dx%d", c.Render.Width, c.Render.Height)
	}
	if c.Render.Width > 16384 || c.Render.Height > 16384 {
		return errors.New("render dimensions must not exceed 16384")
	}
	if c.Render.DecodeWorkers < 1 {
		return errors.New("render.decode_workers must be at least 1")
	}
	if _, err := ParseColor(c.Render.Background); err != nil {
		return fmt.Errorf("render.background: %w", err)
	}
	return nil
}

func (c *Config) validatePlayback() error {
	fps := c.Playback.FrameRate
	if math.IsNaN(fps) || math.IsInf(fps, 0) || fps <= 0 || fps > 1000 {
		return fmt.Errorf("playback.frame_rate must be in (0, 1000], got %v", fps)
	}
	if c.Playback.MaxCatchupFrames < 1 {
		return errors.New("playback.max_catchup_frames must be at least 1")
	}
	return nil
}

func (c *Config) validateTimeline() error {
	if c.Timeline.DefaultMaxDuration <= 0 {
		return errors.New("timeline.default_max_duration must be positive")
	}
	if c.Timeline.Headroom < 0 {
		return errors.New("timeline.headroom must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

// ParseColor parses #RRGGBB or #RRGGBBAA.
func ParseColor(value string) (color.NRGBA, error) {
	if len(value) == 0 || value[0] != '#' {
		return color.NRGBA{}, fmt.Errorf("colour %q must start with #", value)
	}
	hex := value[1:]
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("colour %q must be #RRGGBB or #RRGGBBAA", value)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("colour %q: %w", value, err)
	}
	return color.NRGBA{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, nil
}

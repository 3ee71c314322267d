package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LibraryDB) == "" {
		c.Paths.LibraryDB = defaultLibraryDB
	}
	if c.Paths.LibraryDB, err = expandPath(c.Paths.LibraryDB); err != nil {
		return fmt.Errorf("paths.library_db: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.RenderDir) == "" {
		c.Paths.RenderDir = defaultRenderDir
	}
	if c.Paths.RenderDir, err = expandPath(c.Paths.RenderDir); err != nil {
		return fmt.Errorf("paths.render_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRender() {
	c.Render.Background = strings.TrimSpace(c.Render.Background)
	if c.Render.Background == "" {
		c.Render.Background = defaultBackground
	}
	if !strings.HasPrefix(c.Render.Background, "#") {
		c.Render.Background = "#" + c.Render.Background
	}
	if c.Render.DecodeWorkers == 0 {
		c.Render.DecodeWorkers = defaultDecodeWorkers
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

package main

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"framekit/internal/clips"
	"framekit/internal/config"
	"framekit/internal/library"
	"framekit/internal/logging"
	"framekit/internal/params"
	"framekit/internal/project"
	"framekit/internal/render"
	"framekit/internal/resources"
	"framekit/internal/timeline"
)

type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	store   *library.Store
	catalog *resources.Library
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		if c.verboseFlag != nil && *c.verboseFlag {
			cfg.Logging.Level = "debug"
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.configValue())
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

// openCatalog opens the resource database and loads it into memory. The
// pair is cached for the rest of the command.
func (c *commandContext) openCatalog(ctx context.Context) (*library.Store, *resources.Library, error) {
	if c.store != nil {
		return c.store, c.catalog, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := library.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open resource library: %w", err)
	}
	lib := resources.NewLibrary(c.log())
	if err := store.Load(ctx, lib); err != nil {
		c.log().Warn("resource library loaded with errors", logging.Error(err))
	}
	c.store, c.catalog = store, lib
	return store, lib, nil
}

func (c *commandContext) newSchema() (*timeline.Schema, error) {
	schema, err := timeline.NewSchema(params.NewRegistry())
	if err != nil {
		return nil, err
	}
	if err := clips.Register(schema); err != nil {
		return nil, err
	}
	return schema, nil
}

func (c *commandContext) projectOptions() project.Options {
	cfg := c.configValue()
	return project.Options{
		MaxDuration: cfg.Timeline.DefaultMaxDuration,
		Headroom:    cfg.Timeline.Headroom,
		Logger:      c.log(),
	}
}

// withProject opens path, runs fn and closes the project. When save is set
// the project is written back after fn succeeds.
func (c *commandContext) withProject(ctx context.Context, path string, save bool, fn func(*project.Project) error) error {
	_, lib, err := c.openCatalog(ctx)
	if err != nil {
		return err
	}
	schema, err := c.newSchema()
	if err != nil {
		return err
	}
	p, err := project.Open(path, schema, lib, c.projectOptions())
	if err != nil {
		return err
	}
	defer p.Close()
	if err := fn(p); err != nil {
		return err
	}
	if save {
		return p.Save()
	}
	return nil
}

func (c *commandContext) newRenderer(p *project.Project) (*render.Manager, error) {
	cfg := c.configValue()
	bg, err := config.ParseColor(cfg.Render.Background)
	if err != nil {
		return nil, err
	}
	s := p.Settings()
	return render.NewManager(p.Timeline(), render.Options{
		Size:          image.Pt(s.Width, s.Height),
		FrameRate:     s.FrameRate,
		DecodeWorkers: cfg.Render.DecodeWorkers,
		Background:    bg,
		Logger:        c.log(),
	}), nil
}

func (c *commandContext) close() {
	if c.store != nil {
		_ = c.store.Close()
		c.store, c.catalog = nil, nil
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

package testsupport

import (
	"path/filepath"
	"testing"

	"framekit/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LibraryDB = filepath.Join(base, "data", "library.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.RenderDir = filepath.Join(base, "renders")
	cfgVal.Render.Width = 64
	cfgVal.Render.Height = 36
	cfgVal.Render.DecodeWorkers = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithRenderSize overrides the output frame size.
func WithRenderSize(width, height int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Render.Width = width
		b.cfg.Render.Height = height
	}
}

// WithFrameRate overrides the playback frame rate.
func WithFrameRate(fps float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Playback.FrameRate = fps
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}

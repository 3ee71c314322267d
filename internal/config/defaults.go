package config

const (
	defaultLibraryDB        = "~/.local/share/framekit/library.db"
	defaultLogDir           = "~/.local/state/framekit/logs"
	defaultRenderDir        = "~/.local/share/framekit/renders"
	defaultWidth            = 1280
	defaultHeight           = 720
	defaultDecodeWorkers    = 4
	defaultBackground       = "#000000"
	defaultFrameRate        = 30.0
	defaultMaxCatchupFrames = 3
	defaultTimelineDuration = 5000
	defaultTimelineHeadroom = 100
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDB: defaultLibraryDB,
			LogDir:    defaultLogDir,
			RenderDir: defaultRenderDir,
		},
		Render: Render{
			Width:         defaultWidth,
			Height:        defaultHeight,
			DecodeWorkers: defaultDecodeWorkers,
			Background:    defaultBackground,
		},
		Playback: Playback{
			FrameRate:        defaultFrameRate,
			MaxCatchupFrames: defaultMaxCatchupFrames,
		},
		Timeline: Timeline{
			DefaultMaxDuration: defaultTimelineDuration,
			Headroom:           defaultTimelineHeadroom,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

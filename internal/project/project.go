package project

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"framekit/internal/logging"
	"framekit/internal/resources"
	"framekit/internal/statetree"
	"framekit/internal/timeline"
)

var (
	// ErrLocked is returned when another process holds the project lock.
	ErrLocked = errors.New("project is locked by another process")
	// ErrClosed is returned by Save after Close.
	ErrClosed = errors.New("project is closed")
	// ErrExists is returned by New when the file is already present.
	ErrExists = errors.New("project file already exists")
)

// Settings are the project-wide output settings.
type Settings struct {
	Width     int
	Height    int
	FrameRate float64
}

// DefaultSettings matches the renderer defaults.
func DefaultSettings() Settings {
	return Settings{Width: 1280, Height: 720, FrameRate: 30}
}

// Validate reports settings that cannot drive a render.
func (s Settings) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("settings: size %dx%d must be positive", s.Width, s.Height)
	}
	if !(s.FrameRate > 0) {
		return fmt.Errorf("settings: frame_rate %v must be positive", s.FrameRate)
	}
	return nil
}

// Options configure the timeline built for a project.
type Options struct {
	MaxDuration int64
	Headroom    int64
	Logger      *slog.Logger
}

// Project is an open, locked project file.
type Project struct {
	path     string
	lock     *flock.Flock
	settings Settings
	timeline *timeline.Timeline
	logger   *slog.Logger
	closed   bool
}

// New creates an empty project at path and writes it immediately.
func New(path string, schema *timeline.Schema, lib resources.Manager, settings Settings, opts Options) (*Project, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("new project %s: %w", path, ErrExists)
	}
	p, err := lockProject(path, opts)
	if err != nil {
		return nil, err
	}
	p.settings = settings
	p.timeline = newTimeline(schema, lib, opts)
	if err := p.Save(); err != nil {
		_ = p.lock.Unlock()
		return nil, err
	}
	p.logger.Info("project created", logging.String("path", path))
	return p, nil
}

// Open locks and loads the project at path.
func Open(path string, schema *timeline.Schema, lib resources.Manager, opts Options) (*Project, error) {
	p, err := lockProject(path, opts)
	if err != nil {
		return nil, err
	}
	root, err := readTree(path)
	if err != nil {
		_ = p.lock.Unlock()
		return nil, err
	}
	p.settings = readSettings(root)
	if err := p.settings.Validate(); err != nil {
		_ = p.lock.Unlock()
		return nil, fmt.Errorf("open project %s: %w", path, err)
	}
	p.timeline = newTimeline(schema, lib, opts)
	if tl, ok := root.Dict("timeline"); ok {
		p.timeline.ReadState(tl)
	}
	p.logger.Info("project opened",
		logging.String("path", path),
		logging.Int("tracks", p.timeline.TrackCount()),
	)
	return p, nil
}

func lockProject(path string, opts Options) (*Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve project path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}
	lock := flock.New(abs + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", abs, ErrLocked)
	}
	return &Project{
		path:   abs,
		lock:   lock,
		logger: logging.NewComponentLogger(opts.Logger, "project"),
	}, nil
}

func newTimeline(schema *timeline.Schema, lib resources.Manager, opts Options) *timeline.Timeline {
	return timeline.New(schema, timeline.Options{
		MaxDuration: opts.MaxDuration,
		Headroom:    opts.Headroom,
		Resources:   lib,
		Logger:      opts.Logger,
	})
}

// Path returns the absolute project file path.
func (p *Project) Path() string { return p.path }

// Timeline returns the project's timeline.
func (p *Project) Timeline() *timeline.Timeline { return p.timeline }

// Settings returns the output settings.
func (p *Project) Settings() Settings { return p.settings }

// SetSettings replaces the output settings after validating them.
func (p *Project) SetSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	p.settings = s
	return nil
}

// Save writes the project to a temp file beside it and renames it over the
// original.
func (p *Project) Save() error {
	if p.closed {
		return ErrClosed
	}
	root := statetree.NewDict()
	settings := root.CreateDict("settings")
	settings.SetInt("width", int64(p.settings.Width))
	settings.SetInt("height", int64(p.settings.Height))
	settings.SetFloat("frame_rate", p.settings.FrameRate)
	p.timeline.WriteState(root.CreateDict("timeline"))

	var buf bytes.Buffer
	if err := statetree.Encode(&buf, root); err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p.path), filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp project: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp project: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp project: %w", err)
	}
	if err := os.Rename(tmpName, p.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace project: %w", err)
	}
	p.logger.Debug("project saved", logging.String("path", p.path))
	return nil
}

// Close releases the timeline's resource links and the project lock.
func (p *Project) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.timeline.Destroy()
	if err := p.lock.Unlock(); err != nil {
		p.logger.Warn("failed to release project lock", logging.Error(err))
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

func readTree(path string) (*statetree.Dict, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open project: %w", err)
	}
	defer f.Close()
	root, err := statetree.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode project %s: %w", path, err)
	}
	return root, nil
}

func readSettings(root *statetree.Dict) Settings {
	s := DefaultSettings()
	d, ok := root.Dict("settings")
	if !ok {
		return s
	}
	s.Width = int(d.IntOr("width", int64(s.Width)))
	s.Height = int(d.IntOr("height", int64(s.Height)))
	if v, ok := d.Float("frame_rate"); ok {
		s.FrameRate = v
	}
	return s
}

package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"framekit/internal/logging"
	"framekit/internal/timeline"
)

// Status is the outcome of a pass.
type Status int

const (
	Completed Status = iota
	Cancelled
)

func (s Status) String() string {
	if s == Cancelled {
		return "cancelled"
	}
	return "completed"
}

// Options configures a Manager.
type Options struct {
	Size          image.Point
	FrameRate     float64
	DecodeWorkers int
	Background    color.NRGBA
	Logger        *slog.Logger
}

// Result describes a finished pass.
type Result struct {
	Frame     int64
	Status    Status
	SessionID string
	Drawn     int
	Faults    Faults
	Elapsed   time.Duration
}

// Manager renders frames of one timeline into an owned buffer.
type Manager struct {
	tl     *timeline.Timeline
	opts   Options
	logger *slog.Logger
	buffer *Buffer

	busy  atomic.Bool
	dirty atomic.Bool

	mu         sync.Mutex
	lastFaults Faults
	onDirty    func()
}

// NewManager binds a manager to tl and installs it as the timeline's
// render invalidator.
func NewManager(tl *timeline.Timeline, opts Options) *Manager {
	if opts.Size.X <= 0 || opts.Size.Y <= 0 {
		opts.Size = image.Pt(1280, 720)
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = 30
	}
	if opts.DecodeWorkers <= 0 {
		opts.DecodeWorkers = runtime.NumCPU()
	}
	m := &Manager{
		tl:     tl,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "render"),
		buffer: NewBuffer(opts.Size.X, opts.Size.Y),
	}
	m.dirty.Store(true)
	tl.SetInvalidator(m.invalidate)
	return m
}

func (m *Manager) invalidate() {
	m.dirty.Store(true)
	m.mu.Lock()
	fn := m.onDirty
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// OnInvalidated installs a callback run after each invalidation.
func (m *Manager) OnInvalidated(fn func()) {
	m.mu.Lock()
	m.onDirty = fn
	m.mu.Unlock()
}

// TakeDirty reports whether the timeline changed since the last call and
// clears the flag.
func (m *Manager) TakeDirty() bool {
	return m.dirty.Swap(false)
}

// Size returns the output dimensions.
func (m *Manager) Size() image.Point { return m.opts.Size }

// LastFaults returns the clips that failed in the most recent pass.
func (m *Manager) LastFaults() Faults {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(Faults, len(m.lastFaults))
	for k, v := range m.lastFaults {
		out[k] = v
	}
	return out
}

type job struct {
	clip     *timeline.Clip
	track    int
	opacity  float64
	prepared timeline.Prepared
	done     chan struct{}
	err      error
}

// Pass is a render that has been prepared and is decoding.
type Pass struct {
	m         *Manager
	ctx       context.Context
	frame     int64
	sessionID string
	started   time.Time
	jobs      []*job
	group     *errgroup.Group
	faults    Faults
	cancelled bool
	finished  bool
}

// Frame returns the frame being rendered.
func (p *Pass) Frame() int64 { return p.frame }

// SessionID correlates the pass's log records.
func (p *Pass) SessionID() string { return p.sessionID }

// Begin prepares frame on the calling goroutine and starts decoding on the
// worker pool. Only one pass may be active; Composite ends it.
func (m *Manager) Begin(ctx context.Context, frame int64) (*Pass, error) {
	if frame < 0 || frame >= m.tl.MaxDuration() {
		return nil, fmt.Errorf("render frame %d of %d: %w", frame, m.tl.MaxDuration(), timeline.ErrFrameOutOfRange)
	}
	if !m.busy.CompareAndSwap(false, true) {
		return nil, ErrRenderInProgress
	}

	sessionID := uuid.NewString()
	ctx = logging.WithSessionID(ctx, sessionID)
	p := &Pass{
		m:         m,
		ctx:       ctx,
		frame:     frame,
		sessionID: sessionID,
		started:   time.Now(),
		group:     new(errgroup.Group),
		faults:    make(Faults),
	}
	p.group.SetLimit(m.opts.DecodeWorkers)

	for i, track := range m.tl.Tracks() {
		if ctx.Err() != nil {
			p.cancelled = true
			break
		}
		if !track.Visible() || track.Opacity() <= 0 {
			continue
		}
		clip, ok := track.ClipAt(frame)
		if !ok || !clip.Enabled() {
			continue
		}
		prepared, ok, err := prepareClip(clip, frame, m.opts)
		if err != nil {
			p.faults[clip] = err
			continue
		}
		if !ok {
			continue
		}
		j := &job{
			clip:     clip,
			track:    i,
			opacity:  track.Opacity() * clip.Opacity(),
			prepared: prepared,
			done:     make(chan struct{}),
		}
		p.jobs = append(p.jobs, j)
		p.group.Go(func() error {
			defer close(j.done)
			if err := ctx.Err(); err != nil {
				j.err = err
				return nil
			}
			j.err = decodeClip(ctx, j.prepared)
			return nil
		})
	}
	return p, nil
}

func prepareClip(clip *timeline.Clip, frame int64, opts Options) (p timeline.Prepared, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, ok, err = nil, false, &PanicError{Value: r}
		}
	}()
	return clip.Prepare(frame, opts.Size, opts.FrameRate)
}

func decodeClip(ctx context.Context, p timeline.Prepared) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return p.Decode(ctx)
}

func drawClip(p timeline.Prepared, dst *image.RGBA) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return p.Draw(dst)
}

// Composite waits for each clip in track order and draws it. Calling it
// twice returns the first result's status without drawing again.
func (p *Pass) Composite() Result {
	m := p.m
	res := Result{Frame: p.frame, SessionID: p.sessionID, Faults: p.faults}
	if p.finished {
		res.Status = Cancelled
		return res
	}
	p.finished = true
	defer m.busy.Store(false)
	defer func() { _ = p.group.Wait() }()

	logger := logging.WithContext(p.ctx, m.logger)
	if p.cancelled {
		res.Status = Cancelled
		return p.finish(res, logger)
	}

	surface, err := m.buffer.Acquire()
	if err != nil {
		res.Status = Cancelled
		return p.finish(res, logger)
	}
	defer m.buffer.Release()

	surface.Clear(m.opts.Background)
	for _, j := range p.jobs {
		if p.ctx.Err() != nil {
			res.Status = Cancelled
			break
		}
		select {
		case <-j.done:
		case <-p.ctx.Done():
			res.Status = Cancelled
		}
		if res.Status == Cancelled {
			break
		}
		if j.err != nil {
			p.faults[j.clip] = j.err
			continue
		}
		if j.opacity <= 0 {
			continue
		}
		layered := j.opacity < 1
		if layered {
			surface.Push(j.opacity)
		}
		if err := drawClip(j.prepared, surface.Target()); err != nil {
			p.faults[j.clip] = err
		} else {
			res.Drawn++
		}
		if layered {
			surface.Pop()
		}
	}
	return p.finish(res, logger)
}

func (p *Pass) finish(res Result, logger *slog.Logger) Result {
	m := p.m
	res.Elapsed = time.Since(p.started)
	m.mu.Lock()
	m.lastFaults = p.faults
	m.mu.Unlock()
	for clip, err := range p.faults {
		logging.WarnWithContext(logger, "clip failed to render", "clip_fault",
			logging.String(logging.FieldClipID, clip.ID().String()),
			logging.Frame(p.frame),
			logging.Error(err),
		)
	}
	logger.Debug("render pass finished",
		logging.Frame(p.frame),
		logging.String("status", res.Status.String()),
		logging.Int("drawn", res.Drawn),
		logging.Duration("elapsed", res.Elapsed),
	)
	return res
}

// RenderFrame runs Begin and Composite for frame.
func (m *Manager) RenderFrame(ctx context.Context, frame int64) (Result, error) {
	p, err := m.Begin(ctx, frame)
	if err != nil {
		return Result{Frame: frame}, err
	}
	return p.Composite(), nil
}

// Snapshot copies the last composited frame.
func (m *Manager) Snapshot() (*image.RGBA, error) {
	s, err := m.buffer.Acquire()
	if err != nil {
		return nil, err
	}
	defer m.buffer.Release()
	return s.Snapshot(), nil
}

// EncodePNG writes the last composited frame as PNG.
func (m *Manager) EncodePNG(w io.Writer) error {
	s, err := m.buffer.Acquire()
	if err != nil {
		return err
	}
	defer m.buffer.Release()
	return s.EncodePNG(w)
}

// LayerAllocations returns how many opacity layers the surface has
// allocated.
func (m *Manager) LayerAllocations() int {
	s, err := m.buffer.Acquire()
	if err != nil {
		return 0
	}
	defer m.buffer.Release()
	return s.Layers()
}

// Close detaches the manager from the timeline and disposes its buffer. It
// reports whether the buffer was freed immediately.
func (m *Manager) Close() bool {
	m.tl.SetInvalidator(nil)
	return m.buffer.Dispose()
}

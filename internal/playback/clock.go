package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"framekit/internal/dispatch"
	"framekit/internal/frame"
	"framekit/internal/logging"
	"framekit/internal/render"
	"framekit/internal/timeline"
)

// State is the transport state.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// ErrInvalidTransition is returned for a control that does not apply to
// the current state.
var ErrInvalidTransition = errors.New("invalid playback transition")

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	switch from {
	case Stopped:
		return to == Playing
	case Playing:
		return to == Paused || to == Stopped
	case Paused:
		return to == Playing || to == Stopped
	}
	return false
}

const (
	sleepThreshold = 16400 * time.Microsecond
	yieldThreshold = 100 * time.Microsecond
)

// Renderer starts a render pass on the dispatch loop.
type Renderer interface {
	Begin(ctx context.Context, frame int64) (*render.Pass, error)
}

// Options configures a Clock.
type Options struct {
	FrameRate        float64
	MaxCatchupFrames int64
	RaisePriority    bool
	Logger           *slog.Logger
}

// Clock advances a timeline's play head at the configured frame rate.
type Clock struct {
	tl       *timeline.Timeline
	loop     *dispatch.Loop
	renderer Renderer
	logger   *slog.Logger

	interval   atomic.Int64
	fps        atomic.Uint64
	maxCatchup int64
	raise      bool

	mu        sync.Mutex
	state     State
	lastTick  time.Time
	subFrames float64
	sessionID string
	wake      chan struct{}
	cancel    context.CancelFunc
	done      chan struct{}

	listenerMu    sync.Mutex
	stateChanged  []func(State, int64)
	frameAdvanced []func(int64)
}

// New returns a stopped clock. renderer may be nil.
func New(tl *timeline.Timeline, loop *dispatch.Loop, renderer Renderer, opts Options) *Clock {
	if opts.MaxCatchupFrames <= 0 {
		opts.MaxCatchupFrames = 3
	}
	c := &Clock{
		tl:         tl,
		loop:       loop,
		renderer:   renderer,
		logger:     logging.NewComponentLogger(opts.Logger, "playback"),
		maxCatchup: opts.MaxCatchupFrames,
		raise:      opts.RaisePriority,
		wake:       make(chan struct{}, 1),
	}
	c.SetFrameRate(opts.FrameRate)
	return c
}

// SetFrameRate changes the tick rate. NaN, infinite and non-positive rates
// fall back to 1 fps. It takes effect at the next tick boundary.
func (c *Clock) SetFrameRate(fps float64) {
	if math.IsNaN(fps) || math.IsInf(fps, 0) || fps <= 0 {
		fps = 1
	}
	c.fps.Store(math.Float64bits(fps))
	c.interval.Store(int64(math.Round(float64(time.Second) / fps)))
}

// FrameRate returns the current rate.
func (c *Clock) FrameRate() float64 { return math.Float64frombits(c.fps.Load()) }

// Interval returns the current tick interval.
func (c *Clock) Interval() time.Duration { return time.Duration(c.interval.Load()) }

// State returns the transport state.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnStateChanged registers fn. It runs on the dispatch loop with the play
// position for Playing and Paused and the stop position for Stopped.
func (c *Clock) OnStateChanged(fn func(State, int64)) {
	c.listenerMu.Lock()
	c.stateChanged = append(c.stateChanged, fn)
	c.listenerMu.Unlock()
}

// OnFrame registers fn. It runs on the dispatch loop after each advance.
func (c *Clock) OnFrame(fn func(int64)) {
	c.listenerMu.Lock()
	c.frameAdvanced = append(c.frameAdvanced, fn)
	c.listenerMu.Unlock()
}

func (c *Clock) fireState(s State, f int64) {
	c.listenerMu.Lock()
	fns := slices.Clone(c.stateChanged)
	c.listenerMu.Unlock()
	for _, fn := range fns {
		fn(s, f)
	}
}

func (c *Clock) fireFrame(f int64) {
	c.listenerMu.Lock()
	fns := slices.Clone(c.frameAdvanced)
	c.listenerMu.Unlock()
	for _, fn := range fns {
		fn(f)
	}
}

// Start launches the tick goroutine. It is idle until Play.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx, c.done)
}

// Close stops the tick goroutine and waits for it.
func (c *Clock) Close() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Play starts playback from the current play position.
func (c *Clock) Play(ctx context.Context) error {
	return c.play(ctx, -1)
}

// PlayFrom seeks to f and plays. While already playing it only seeks.
func (c *Clock) PlayFrom(ctx context.Context, f int64) error {
	if f < 0 {
		return fmt.Errorf("play from %d: %w", f, timeline.ErrFrameOutOfRange)
	}
	return c.play(ctx, f)
}

func (c *Clock) play(ctx context.Context, f int64) error {
	var err error
	invokeErr := c.loop.Invoke(ctx, func() {
		c.mu.Lock()
		from := c.state
		if from == Playing && f < 0 {
			c.mu.Unlock()
			err = fmt.Errorf("%s -> %s: %w", from, Playing, ErrInvalidTransition)
			return
		}
		c.mu.Unlock()
		if f >= 0 {
			if err = c.tl.SetPlayPosition(f); err != nil {
				return
			}
		}
		c.mu.Lock()
		c.state = Playing
		c.lastTick = time.Now()
		c.subFrames = 0
		if from != Playing {
			c.sessionID = uuid.NewString()
		}
		session := c.sessionID
		c.mu.Unlock()
		c.signal()
		c.logger.Info("playback started",
			logging.String(logging.FieldSessionID, session),
			logging.Frame(c.tl.PlayPosition()),
			logging.Float64("fps", c.FrameRate()),
		)
		c.fireState(Playing, c.tl.PlayPosition())
	})
	return errors.Join(invokeErr, err)
}

// Pause halts playback and records the play position as the stop position.
func (c *Clock) Pause(ctx context.Context) error {
	var err error
	invokeErr := c.loop.Invoke(ctx, func() {
		if err = c.transition(Paused); err != nil {
			return
		}
		pos := c.tl.PlayPosition()
		err = c.tl.SetStopPosition(pos)
		c.fireState(Paused, pos)
	})
	return errors.Join(invokeErr, err)
}

// Stop halts playback and returns the play head to the stop position.
func (c *Clock) Stop(ctx context.Context) error {
	var err error
	invokeErr := c.loop.Invoke(ctx, func() {
		if err = c.transition(Stopped); err != nil {
			return
		}
		stop := c.tl.StopPosition()
		err = c.tl.SetPlayPosition(stop)
		c.tl.InvalidateRender()
		c.fireState(Stopped, stop)
	})
	return errors.Join(invokeErr, err)
}

func (c *Clock) transition(to State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !CanTransition(c.state, to) {
		return fmt.Errorf("%s -> %s: %w", c.state, to, ErrInvalidTransition)
	}
	c.state = to
	if to == Stopped {
		c.logger.Info("playback stopped", logging.String(logging.FieldSessionID, c.sessionID))
	}
	return nil
}

func (c *Clock) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Clock) playing() bool {
	return c.State() == Playing
}

func (c *Clock) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if c.raise {
		if err := raiseThreadPriority(); err != nil {
			c.logger.Debug("thread priority unchanged", logging.Error(err))
		}
	}

	for {
		for !c.playing() {
			select {
			case <-ctx.Done():
				return
			case <-c.wake:
			}
		}
		target := time.Now().Add(c.Interval())
		for c.playing() {
			if !waitUntil(ctx, target) {
				return
			}
			target = time.Now().Add(c.Interval())
			c.tick(ctx)
		}
	}
}

// waitUntil sleeps in 1ms steps while more than 16.4ms remain, yields while
// more than 0.1ms remain, then spins.
func waitUntil(ctx context.Context, target time.Time) bool {
	for time.Until(target) > sleepThreshold {
		if ctx.Err() != nil {
			return false
		}
		time.Sleep(time.Millisecond)
	}
	for time.Until(target) > yieldThreshold {
		runtime.Gosched()
	}
	for time.Now().Before(target) {
	}
	return ctx.Err() == nil
}

func (c *Clock) tick(ctx context.Context) {
	now := time.Now()
	c.mu.Lock()
	elapsed := now.Sub(c.lastTick)
	c.lastTick = now
	incr := catchUp(elapsed, c.Interval(), &c.subFrames, c.maxCatchup)
	c.mu.Unlock()

	var pass *render.Pass
	err := c.loop.Invoke(ctx, func() {
		if !c.playing() {
			return
		}
		loop, looping := c.tl.ActiveLoop()
		next := Advance(c.tl.PlayPosition(), incr, c.tl.MaxDuration(), loop, looping)
		token := c.tl.SuspendRenderInvalidation()
		if err := c.tl.SetPlayPosition(next); err != nil {
			c.logger.Warn("play head advance rejected", logging.Frame(next), logging.Error(err))
		}
		token.Release()
		c.fireFrame(next)
		if c.renderer == nil {
			return
		}
		p, err := c.renderer.Begin(ctx, next)
		switch {
		case errors.Is(err, render.ErrRenderInProgress):
		case err != nil:
			c.logger.Warn("render pass not started", logging.Frame(next), logging.Error(err))
		default:
			pass = p
		}
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, dispatch.ErrStopped) {
			c.logger.Warn("playback tick failed", logging.Error(err))
		}
		return
	}
	if pass == nil {
		return
	}
	// Compositing reads prepared clip state, so it runs on the loop. FIFO
	// order keeps it ahead of the next tick's Begin.
	if !c.loop.Post(func() { pass.Composite() }) {
		pass.Composite()
	}
}

// catchUp returns how many frames to advance after elapsed. Whole frames
// of lateness beyond one interval are added, fractional lateness carries
// over in acc, and the result never exceeds limit.
func catchUp(elapsed, interval time.Duration, acc *float64, limit int64) int64 {
	incr := int64(1)
	if interval > 0 && elapsed > interval {
		late := float64(elapsed-interval)/float64(interval) + *acc
		extra := math.Floor(late)
		*acc = late - extra
		incr += int64(extra)
	}
	return min(incr, max(limit, 1))
}

// Advance returns the play position after moving incr frames from pos.
// Inside an active loop region the position wraps to the loop start at the
// loop end; otherwise it wraps to 0 past the last frame.
func Advance(pos, incr, maxDuration int64, loop frame.Span, looping bool) int64 {
	next := pos + incr
	if looping && loop.Duration > 0 && pos >= loop.Begin && pos < loop.End() {
		if next >= loop.End() {
			next = loop.Begin + (next-loop.End())%loop.Duration
		}
		return next
	}
	if maxDuration <= 0 {
		return 0
	}
	if next > maxDuration-1 {
		next %= maxDuration
	}
	return next
}

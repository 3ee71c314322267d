package timeline

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"framekit/internal/frame"
	"framekit/internal/logging"
	"framekit/internal/resources"
)

const (
	// DefaultMaxDuration is the length of a new timeline in frames.
	DefaultMaxDuration int64 = 5000
	// DefaultHeadroom is added past the largest used frame when the
	// timeline grows to fit its clips.
	DefaultHeadroom int64 = 100
	// ExpandStep is added past a frame passed to TryExpandForFrame.
	ExpandStep int64 = 1000
)

// TrackPoint addresses a frame on a track for range selection.
type TrackPoint struct {
	Frame      int64
	TrackIndex int
}

// InvalidTrackPoint marks an unset selection anchor.
var InvalidTrackPoint = TrackPoint{Frame: -1, TrackIndex: -1}

// Valid reports whether the point addresses a track.
func (p TrackPoint) Valid() bool {
	return p.TrackIndex >= 0
}

// Options configures a new Timeline.
type Options struct {
	MaxDuration int64
	Headroom    int64
	Resources   resources.Manager
	Logger      *slog.Logger
}

// Timeline is the root of the ownership tree.
type Timeline struct {
	schema    *Schema
	logger    *slog.Logger
	resources resources.Manager

	tracks      []*Track
	playPos     int64
	stopPos     int64
	maxDuration int64
	headroom    int64
	largest     int64

	loop        frame.Span
	hasLoop     bool
	loopEnabled bool

	anchor TrackPoint

	invalidator    func()
	suspendCount   int
	pendingInvalid bool
	indexHook      func(t *Track, index int)

	trackAdded         event[func(t *Track, index int)]
	trackRemoved       event[func(t *Track, index int)]
	trackMoved         event[func(t *Track, oldIndex, newIndex int)]
	playHeadChanged    event[func(old, new int64)]
	stopHeadChanged    event[func(old, new int64)]
	maxDurationChanged event[func(old, new int64)]
	loopChanged        event[func()]
}

// New returns an empty timeline.
func New(schema *Schema, opts Options) *Timeline {
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultMaxDuration
	}
	if opts.Headroom <= 0 {
		opts.Headroom = DefaultHeadroom
	}
	return &Timeline{
		schema:      schema,
		logger:      logging.NewComponentLogger(opts.Logger, "timeline"),
		resources:   opts.Resources,
		maxDuration: opts.MaxDuration,
		headroom:    opts.Headroom,
		anchor:      InvalidTrackPoint,
	}
}

// Schema returns the schema tracks and clips are built from.
func (t *Timeline) Schema() *Schema { return t.schema }

// Logger returns the timeline's logger.
func (t *Timeline) Logger() *slog.Logger { return t.logger }

// Tracks returns the tracks in index order.
func (t *Timeline) Tracks() []*Track { return slices.Clone(t.tracks) }

// TrackCount returns the number of tracks.
func (t *Timeline) TrackCount() int { return len(t.tracks) }

// TrackAt returns the track at index.
func (t *Timeline) TrackAt(index int) (*Track, bool) {
	if index < 0 || index >= len(t.tracks) {
		return nil, false
	}
	return t.tracks[index], true
}

// AddTrack appends track.
func (t *Timeline) AddTrack(track *Track) error {
	return t.InsertTrack(len(t.tracks), track)
}

// InsertTrack inserts track at index. The track must be detached.
func (t *Timeline) InsertTrack(index int, track *Track) error {
	if track.timeline != nil {
		return fmt.Errorf("insert track at %d: %w", index, ErrTrackAttached)
	}
	if index < 0 || index > len(t.tracks) {
		return fmt.Errorf("insert track at %d of %d: %w", index, len(t.tracks), ErrIndexOutOfRange)
	}
	if t.anchor.Valid() && index <= t.anchor.TrackIndex {
		t.anchor.TrackIndex++
	}
	t.tracks = slices.Insert(t.tracks, index, track)
	t.reindex(index, len(t.tracks)-1)
	track.setTimeline(t)
	t.trackAdded.each(func(fn func(*Track, int)) { fn(track, index) })
	t.UpdateLargestFrame()
	t.InvalidateRender()
	return nil
}

// RemoveTrackAt removes and returns the track at index.
func (t *Timeline) RemoveTrackAt(index int) (*Track, error) {
	if index < 0 || index >= len(t.tracks) {
		return nil, fmt.Errorf("remove track at %d of %d: %w", index, len(t.tracks), ErrIndexOutOfRange)
	}
	track := t.tracks[index]
	t.tracks = slices.Delete(t.tracks, index, index+1)
	if len(t.tracks) > 0 {
		t.reindex(index, len(t.tracks)-1)
	}
	switch {
	case len(t.tracks) == 0:
		t.anchor = InvalidTrackPoint
	case t.anchor.Valid() && index <= t.anchor.TrackIndex:
		t.anchor.TrackIndex = max(t.anchor.TrackIndex-1, 0)
	}
	track.index = -1
	track.setTimeline(nil)
	t.trackRemoved.each(func(fn func(*Track, int)) { fn(track, index) })
	t.UpdateLargestFrame()
	t.InvalidateRender()
	return track, nil
}

// RemoveTrack removes track. It panics with ErrTrackNotOwned if the track
// belongs elsewhere.
func (t *Timeline) RemoveTrack(track *Track) {
	if track.timeline != t {
		panic(fmt.Errorf("remove track %s: %w", track.id, ErrTrackNotOwned))
	}
	if _, err := t.RemoveTrackAt(track.index); err != nil {
		panic(err)
	}
}

// MoveTrack moves the track at oldIndex to newIndex. Only tracks in
// [min(oldIndex, newIndex), max(oldIndex, newIndex)] are reindexed.
func (t *Timeline) MoveTrack(oldIndex, newIndex int) error {
	n := len(t.tracks)
	if oldIndex < 0 || oldIndex >= n || newIndex < 0 || newIndex >= n {
		return fmt.Errorf("move track %d to %d of %d: %w", oldIndex, newIndex, n, ErrIndexOutOfRange)
	}
	if oldIndex == newIndex {
		return nil
	}
	track := t.tracks[oldIndex]
	t.tracks = slices.Delete(t.tracks, oldIndex, oldIndex+1)
	t.tracks = slices.Insert(t.tracks, newIndex, track)
	t.reindex(min(oldIndex, newIndex), max(oldIndex, newIndex))

	if a := t.anchor.TrackIndex; t.anchor.Valid() {
		switch {
		case a == oldIndex:
			t.anchor.TrackIndex = newIndex
		case oldIndex < a && a <= newIndex:
			t.anchor.TrackIndex--
		case newIndex <= a && a < oldIndex:
			t.anchor.TrackIndex++
		}
	}
	t.trackMoved.each(func(fn func(*Track, int, int)) { fn(track, oldIndex, newIndex) })
	t.InvalidateRender()
	return nil
}

func (t *Timeline) reindex(from, to int) {
	for i := from; i <= to; i++ {
		t.tracks[i].index = i
		if t.indexHook != nil {
			t.indexHook(t.tracks[i], i)
		}
	}
}

// SelectionAnchor returns the range-selection anchor.
func (t *Timeline) SelectionAnchor() TrackPoint { return t.anchor }

// SetSelectionAnchor sets the anchor. Points outside the track list are
// stored as InvalidTrackPoint.
func (t *Timeline) SetSelectionAnchor(p TrackPoint) {
	if p.TrackIndex < 0 || p.TrackIndex >= len(t.tracks) {
		p = InvalidTrackPoint
	}
	t.anchor = p
}

// LargestFrameInUse returns the exclusive end of the furthest clip.
func (t *Timeline) LargestFrameInUse() int64 { return t.largest }

// UpdateLargestFrame recomputes LargestFrameInUse and grows MaxDuration to
// keep every clip inside the timeline.
func (t *Timeline) UpdateLargestFrame() {
	var largest int64
	for _, track := range t.tracks {
		largest = max(largest, track.largest)
	}
	t.largest = largest
	if largest > t.maxDuration {
		t.setMaxDuration(largest + t.headroom)
	}
}

// MaxDuration returns the timeline length in frames.
func (t *Timeline) MaxDuration() int64 { return t.maxDuration }

// SetMaxDuration changes the timeline length. Shrinking below the largest
// used frame is rejected; shrinking below the loop region clamps or clears
// it first, and play and stop positions are pulled inside.
func (t *Timeline) SetMaxDuration(v int64) error {
	if v <= 0 {
		return fmt.Errorf("set max duration %d: %w", v, ErrFrameOutOfRange)
	}
	if v < t.largest {
		return fmt.Errorf("set max duration %d below %d: %w", v, t.largest, ErrDurationBelowContent)
	}
	t.setMaxDuration(v)
	return nil
}

func (t *Timeline) setMaxDuration(v int64) {
	if v == t.maxDuration {
		return
	}
	if t.hasLoop && t.loop.End() > v {
		clamped := frame.Clamp(t.loop, frame.New(0, v))
		if clamped.Duration <= 0 {
			t.hasLoop, t.loop = false, frame.Span{}
		} else {
			t.loop = clamped
		}
		t.loopChanged.each(func(fn func()) { fn() })
	}
	old := t.maxDuration
	t.maxDuration = v
	if t.playPos >= v {
		t.setPlayPosition(v - 1)
	}
	if t.stopPos >= v {
		t.setStopPosition(v - 1)
	}
	t.maxDurationChanged.each(func(fn func(int64, int64)) { fn(old, v) })
	t.InvalidateRender()
}

// TryExpandForFrame grows the timeline so frame fits, reporting whether it
// grew.
func (t *Timeline) TryExpandForFrame(f int64) bool {
	if f < t.maxDuration {
		return false
	}
	t.setMaxDuration(f + ExpandStep)
	return true
}

// PlayPosition returns the play head frame.
func (t *Timeline) PlayPosition() int64 { return t.playPos }

// SetPlayPosition moves the play head, fires PlayHeadChanged, and pushes
// automation values for the new frame.
func (t *Timeline) SetPlayPosition(f int64) error {
	if f < 0 || f >= t.maxDuration {
		return fmt.Errorf("play position %d of %d: %w", f, t.maxDuration, ErrFrameOutOfRange)
	}
	t.setPlayPosition(f)
	return nil
}

func (t *Timeline) setPlayPosition(f int64) {
	if f == t.playPos {
		return
	}
	old := t.playPos
	t.playPos = f
	t.playHeadChanged.each(func(fn func(int64, int64)) { fn(old, f) })
	t.UpdateAutomation(f)
}

// StopPosition returns the frame playback returns to on stop.
func (t *Timeline) StopPosition() int64 { return t.stopPos }

// SetStopPosition moves the stop head.
func (t *Timeline) SetStopPosition(f int64) error {
	if f < 0 || f >= t.maxDuration {
		return fmt.Errorf("stop position %d of %d: %w", f, t.maxDuration, ErrFrameOutOfRange)
	}
	t.setStopPosition(f)
	return nil
}

func (t *Timeline) setStopPosition(f int64) {
	if f == t.stopPos {
		return
	}
	old := t.stopPos
	t.stopPos = f
	t.stopHeadChanged.each(func(fn func(int64, int64)) { fn(old, f) })
}

// LoopRegion returns the loop region. ok is false when none is set.
func (t *Timeline) LoopRegion() (frame.Span, bool) {
	return t.loop, t.hasLoop
}

// SetLoopRegion sets the loop region. It must lie within [0, MaxDuration)
// and be non-empty.
func (t *Timeline) SetLoopRegion(span frame.Span) error {
	if span.Begin < 0 || span.Duration <= 0 || span.End() > t.maxDuration {
		return fmt.Errorf("loop region %v of %d: %w", span, t.maxDuration, ErrInvalidLoop)
	}
	t.loop, t.hasLoop = span, true
	t.loopChanged.each(func(fn func()) { fn() })
	return nil
}

// ClearLoopRegion removes the loop region.
func (t *Timeline) ClearLoopRegion() {
	if !t.hasLoop {
		return
	}
	t.loop, t.hasLoop = frame.Span{}, false
	t.loopChanged.each(func(fn func()) { fn() })
}

// LoopEnabled reports whether playback honours the loop region.
func (t *Timeline) LoopEnabled() bool { return t.loopEnabled }

// SetLoopEnabled toggles looping.
func (t *Timeline) SetLoopEnabled(enabled bool) {
	if t.loopEnabled == enabled {
		return
	}
	t.loopEnabled = enabled
	t.loopChanged.each(func(fn func()) { fn() })
}

// ActiveLoop returns the loop region when one is set and enabled.
func (t *Timeline) ActiveLoop() (frame.Span, bool) {
	if t.hasLoop && t.loopEnabled {
		return t.loop, true
	}
	return frame.Span{}, false
}

// Resources returns the resource manager clips resolve through.
func (t *Timeline) Resources() resources.Manager { return t.resources }

// SetResourceManager migrates every clip's resource links to m.
func (t *Timeline) SetResourceManager(m resources.Manager) error {
	t.resources = m
	var errs []error
	for _, track := range t.tracks {
		for _, clip := range track.clips {
			errs = append(errs, clip.migrateLinks(m))
		}
	}
	t.InvalidateRender()
	return errors.Join(errs...)
}

// Destroy removes every track, destroying clips before their tracks.
func (t *Timeline) Destroy() {
	for i := len(t.tracks) - 1; i >= 0; i-- {
		t.tracks[i].Destroy()
	}
}

func (t *Timeline) OnTrackAdded(fn func(t *Track, index int)) func() { return t.trackAdded.add(fn) }

func (t *Timeline) OnTrackRemoved(fn func(t *Track, index int)) func() {
	return t.trackRemoved.add(fn)
}

func (t *Timeline) OnTrackMoved(fn func(t *Track, oldIndex, newIndex int)) func() {
	return t.trackMoved.add(fn)
}

func (t *Timeline) OnPlayHeadChanged(fn func(old, new int64)) func() {
	return t.playHeadChanged.add(fn)
}

func (t *Timeline) OnStopHeadChanged(fn func(old, new int64)) func() {
	return t.stopHeadChanged.add(fn)
}

func (t *Timeline) OnMaxDurationChanged(fn func(old, new int64)) func() {
	return t.maxDurationChanged.add(fn)
}

func (t *Timeline) OnLoopRegionChanged(fn func()) func() { return t.loopChanged.add(fn) }

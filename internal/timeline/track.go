package timeline

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"framekit/internal/automation"
	"framekit/internal/frame"
	"framekit/internal/params"
)

// DefaultGapDuration is the span length TryGetSpanUntilClip uses when no
// clip follows the frame.
const DefaultGapDuration int64 = 300

// Track is an ordered list of clips on one timeline layer.
type Track struct {
	id       uuid.UUID
	schema   *Schema
	timeline *Timeline
	index    int
	name     string

	clips   []*Clip
	largest int64

	params     *params.Data
	automation *automation.Data

	opacity float64
	visible bool
	muted   bool

	clipAdded       event[func(c *Clip, index int)]
	clipRemoved     event[func(c *Clip, index int)]
	timelineChanged event[func(old, new *Timeline)]
}

// NewTrack returns a detached track with every parameter at its default.
func (s *Schema) NewTrack() *Track {
	t := &Track{
		id:     uuid.New(),
		schema: s,
		index:  -1,
		params: params.NewData(OwnerTrack),
	}
	t.automation = automation.NewData(t)
	s.Registry.ResetAll(t)
	return t
}

// ID returns the track's instance id.
func (t *Track) ID() uuid.UUID { return t.id }

// ParamData returns the track's parameter bag.
func (t *Track) ParamData() *params.Data { return t.params }

// Automation returns the track's automation data.
func (t *Track) Automation() *automation.Data { return t.automation }

// Timeline returns the owning timeline, or nil.
func (t *Track) Timeline() *Timeline { return t.timeline }

// IndexInTimeline returns the cached index, or -1 when detached.
func (t *Track) IndexInTimeline() int { return t.index }

func (t *Track) DisplayName() string { return t.name }

func (t *Track) SetDisplayName(name string) { t.name = name }

func (t *Track) Opacity() float64 { return t.opacity }

func (t *Track) Visible() bool { return t.visible }

func (t *Track) Muted() bool { return t.muted }

// Clips returns the clips in index order.
func (t *Track) Clips() []*Clip { return slices.Clone(t.clips) }

// ClipCount returns the number of clips.
func (t *Track) ClipCount() int { return len(t.clips) }

// AddClip appends c.
func (t *Track) AddClip(c *Clip) error {
	return t.InsertClip(len(t.clips), c)
}

// InsertClip inserts c at index. The clip must not belong to a track.
func (t *Track) InsertClip(index int, c *Clip) error {
	if c.track != nil {
		return fmt.Errorf("insert clip at %d: %w", index, ErrClipAttached)
	}
	if index < 0 || index > len(t.clips) {
		return fmt.Errorf("insert clip at %d of %d: %w", index, len(t.clips), ErrIndexOutOfRange)
	}
	t.clips = slices.Insert(t.clips, index, c)
	t.reindex(index)
	c.setTrack(t)
	t.clipAdded.each(func(fn func(*Clip, int)) { fn(c, index) })
	t.onClipSpanChanged()
	c.invalidateRender()
	return nil
}

// RemoveClipAt removes and returns the clip at index.
func (t *Track) RemoveClipAt(index int) (*Clip, error) {
	if index < 0 || index >= len(t.clips) {
		return nil, fmt.Errorf("remove clip at %d of %d: %w", index, len(t.clips), ErrIndexOutOfRange)
	}
	c := t.detachAt(index)
	c.setTrack(nil)
	t.clipRemoved.each(func(fn func(*Clip, int)) { fn(c, index) })
	t.onClipSpanChanged()
	t.invalidateRender()
	return c, nil
}

// RemoveClip removes c. It panics with ErrClipNotOwned if c belongs to
// another track.
func (t *Track) RemoveClip(c *Clip) {
	if c.track != t {
		panic(fmt.Errorf("remove clip %s: %w", c.id, ErrClipNotOwned))
	}
	if _, err := t.RemoveClipAt(c.index); err != nil {
		panic(err)
	}
}

// MoveClipToTrack moves the clip at index to dst at dstIndex. Both tracks
// must be on the same timeline.
func (t *Track) MoveClipToTrack(index int, dst *Track, dstIndex int) error {
	if dst == t {
		return fmt.Errorf("move clip %d: destination is the source track", index)
	}
	if dst.timeline != t.timeline {
		return fmt.Errorf("move clip %d: %w", index, ErrDifferentTimeline)
	}
	if index < 0 || index >= len(t.clips) {
		return fmt.Errorf("move clip %d of %d: %w", index, len(t.clips), ErrIndexOutOfRange)
	}
	if dstIndex < 0 || dstIndex > len(dst.clips) {
		return fmt.Errorf("move clip to %d of %d: %w", dstIndex, len(dst.clips), ErrIndexOutOfRange)
	}
	c := t.detachAt(index)
	dst.clips = slices.Insert(dst.clips, dstIndex, c)
	dst.reindex(dstIndex)
	c.setTrack(dst)

	t.clipRemoved.each(func(fn func(*Clip, int)) { fn(c, index) })
	dst.clipAdded.each(func(fn func(*Clip, int)) { fn(c, dstIndex) })
	t.onClipSpanChanged()
	dst.onClipSpanChanged()
	t.invalidateRender()
	return nil
}

func (t *Track) detachAt(index int) *Clip {
	c := t.clips[index]
	t.clips = slices.Delete(t.clips, index, index+1)
	t.reindex(index)
	c.index = -1
	return c
}

func (t *Track) reindex(from int) {
	for i := from; i < len(t.clips); i++ {
		t.clips[i].index = i
	}
}

// ClipAt returns the top-most clip covering f. Higher indices win.
func (t *Track) ClipAt(f int64) (*Clip, bool) {
	for i := len(t.clips) - 1; i >= 0; i-- {
		if t.clips[i].span.Intersects(f) {
			return t.clips[i], true
		}
	}
	return nil, false
}

// ClipsIntersecting returns every clip overlapping span in index order.
func (t *Track) ClipsIntersecting(span frame.Span) []*Clip {
	var out []*Clip
	for _, c := range t.clips {
		if c.span.Overlaps(span) {
			out = append(out, c)
		}
	}
	return out
}

// LargestFrameInUse returns the furthest clip end on the track.
func (t *Track) LargestFrameInUse() int64 { return t.largest }

// TryGetSpanUntilClip returns the free span starting at f. It extends to
// the next clip, or defaultDuration when no clip follows. ok is false when
// a clip covers f.
func (t *Track) TryGetSpanUntilClip(f, defaultDuration int64) (frame.Span, bool) {
	next := int64(-1)
	for _, c := range t.clips {
		if c.span.Intersects(f) {
			return frame.Span{}, false
		}
		if b := c.span.Begin; b > f && (next < 0 || b < next) {
			next = b
		}
	}
	if next < 0 {
		return frame.New(f, defaultDuration), true
	}
	return frame.New(f, next-f), true
}

func (t *Track) onClipSpanChanged() {
	var largest int64
	for _, c := range t.clips {
		largest = max(largest, c.span.End())
	}
	t.largest = largest
	if t.timeline != nil {
		t.timeline.UpdateLargestFrame()
	}
}

func (t *Track) setTimeline(tl *Timeline) {
	old := t.timeline
	if old == tl {
		return
	}
	t.timeline = tl
	t.timelineChanged.each(func(fn func(*Timeline, *Timeline)) { fn(old, tl) })
	for _, c := range t.clips {
		c.onTimelineChanged(old, tl)
	}
}

func (t *Track) invalidateRender() {
	if t.timeline != nil {
		t.timeline.InvalidateRender()
	}
}

// Destroy destroys every clip and removes the track from its timeline.
func (t *Track) Destroy() {
	for i := len(t.clips) - 1; i >= 0; i-- {
		t.clips[i].Destroy()
	}
	if t.timeline != nil {
		t.timeline.RemoveTrack(t)
	}
}

func (t *Track) OnClipAdded(fn func(c *Clip, index int)) func() { return t.clipAdded.add(fn) }

func (t *Track) OnClipRemoved(fn func(c *Clip, index int)) func() { return t.clipRemoved.add(fn) }

func (t *Track) OnTimelineChanged(fn func(old, new *Timeline)) func() {
	return t.timelineChanged.add(fn)
}

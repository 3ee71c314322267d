package timeline

import (
	"errors"
	"fmt"
	"image"

	"github.com/google/uuid"

	"framekit/internal/automation"
	"framekit/internal/frame"
	"framekit/internal/logging"
	"framekit/internal/params"
	"framekit/internal/resources"
)

// Clip is a span of content on a track.
type Clip struct {
	id          uuid.UUID
	schema      *Schema
	kind        Kind
	content     Content
	track       *Track
	index       int
	span        frame.Span
	mediaOffset int64

	params     *params.Data
	automation *automation.Data
	links      []*resources.Link

	opacity  float64
	enabled  bool
	position params.Vector2
	scale    params.Vector2
	name     string

	spanChanged        event[func(old, new frame.Span)]
	mediaOffsetChanged event[func(old, new int64)]
	ownerChanged       event[func(old, new *Track)]
	timelineChanged    event[func(old, new *Timeline)]
}

// NewClip returns a detached clip of the registered kind with span 0->1.
func (s *Schema) NewClip(kindID string) (*Clip, error) {
	k, ok := s.kinds[kindID]
	if !ok {
		return nil, fmt.Errorf("new clip %q: %w", kindID, ErrUnknownFactory)
	}
	return s.newClip(k, k.New()), nil
}

func (s *Schema) newClip(k Kind, content Content) *Clip {
	c := &Clip{
		id:      uuid.New(),
		schema:  s,
		kind:    k,
		content: content,
		index:   -1,
		span:    frame.New(0, 1),
		params:  params.NewData(OwnerClip, k.ID),
	}
	c.automation = automation.NewData(c)
	s.Registry.ResetAll(c)
	content.Attach(c)
	return c
}

// ID returns the clip's instance id.
func (c *Clip) ID() uuid.UUID { return c.id }

// Kind returns the clip's factory id.
func (c *Clip) Kind() string { return c.kind.ID }

// Content returns the kind-specific part of the clip.
func (c *Clip) Content() Content { return c.content }

// ParamData returns the clip's parameter bag.
func (c *Clip) ParamData() *params.Data { return c.params }

// Automation returns the clip's automation data.
func (c *Clip) Automation() *automation.Data { return c.automation }

// Track returns the owning track, or nil.
func (c *Clip) Track() *Track { return c.track }

// Timeline returns the owning track's timeline, or nil.
func (c *Clip) Timeline() *Timeline {
	if c.track == nil {
		return nil
	}
	return c.track.timeline
}

// IndexInTrack returns the cached index, or -1 when detached.
func (c *Clip) IndexInTrack() int { return c.index }

func (c *Clip) Opacity() float64 { return c.opacity }

func (c *Clip) Enabled() bool { return c.enabled }

func (c *Clip) Position() params.Vector2 { return c.position }

func (c *Clip) Scale() params.Vector2 { return c.scale }

func (c *Clip) DisplayName() string { return c.name }

// Span returns the clip's location on the timeline.
func (c *Clip) Span() frame.Span { return c.span }

// SetSpan moves or resizes the clip.
func (c *Clip) SetSpan(span frame.Span) error {
	if err := span.Validate(); err != nil {
		return fmt.Errorf("clip span: %w", err)
	}
	old := c.span
	if old == span {
		return nil
	}
	c.span = span
	if c.track != nil {
		c.track.onClipSpanChanged()
	}
	c.spanChanged.each(func(fn func(frame.Span, frame.Span)) { fn(old, span) })
	if tl := c.Timeline(); tl != nil && span.Intersects(tl.playPos) {
		token := tl.SuspendRenderInvalidation()
		c.automation.UpdateAutomated(tl.playPos - span.Begin)
		token.Release()
	}
	c.invalidateRender()
	return nil
}

// MediaFrameOffset returns the offset between the clip's relative frames
// and its media frames.
func (c *Clip) MediaFrameOffset() int64 { return c.mediaOffset }

func (c *Clip) SetMediaFrameOffset(v int64) {
	old := c.mediaOffset
	if old == v {
		return
	}
	c.mediaOffset = v
	c.mediaOffsetChanged.each(func(fn func(int64, int64)) { fn(old, v) })
	c.invalidateRender()
}

// RelativeFrame converts a timeline frame to a clip-relative frame.
func (c *Clip) RelativeFrame(timelineFrame int64) int64 {
	return timelineFrame - c.span.Begin
}

// MediaFrame converts a timeline frame to a media frame.
func (c *Clip) MediaFrame(timelineFrame int64) int64 {
	return timelineFrame - c.span.Begin - c.mediaOffset
}

// RelativePlayPosition returns the timeline play position relative to the
// clip. ok is false when the clip is not on a timeline.
func (c *Clip) RelativePlayPosition() (int64, bool) {
	tl := c.Timeline()
	if tl == nil {
		return 0, false
	}
	return c.RelativeFrame(tl.playPos), true
}

// CutAt splits the clip at a relative offset. The right part is returned
// and inserted after the clip on the same track.
func (c *Clip) CutAt(offset int64) (*Clip, error) {
	if offset <= 0 || offset >= c.span.Duration {
		return nil, fmt.Errorf("cut at %d of %v: %w", offset, c.span, ErrInvalidCut)
	}
	if c.track == nil {
		return nil, fmt.Errorf("cut at %d: clip is not on a track: %w", offset, ErrInvalidCut)
	}
	left := frame.New(c.span.Begin, offset)
	right := frame.New(c.span.Begin+offset, c.span.Duration-offset)

	clone := c.Clone()
	clone.span = right
	clone.mediaOffset -= offset
	if err := c.SetSpan(left); err != nil {
		return nil, err
	}
	if err := c.track.InsertClip(c.index+1, clone); err != nil {
		return nil, err
	}
	return clone, nil
}

// Clone returns a detached copy of the clip: content, parameter values,
// automation, span, media offset and link targets.
func (c *Clip) Clone() *Clip {
	nc := c.schema.newClip(c.kind, c.content.Clone())
	nc.ReadState(c.writeState())
	return nc
}

// AddLink declares a resource slot. Resource events on the link invalidate
// render. Content calls this from Attach.
func (c *Clip) AddLink(slot, kind string) *resources.Link {
	link := resources.NewLink(slot, kind, resources.Hooks{
		Changed:       func(*resources.Link, resources.Item, resources.Item) { c.invalidateRender() },
		OnlineChanged: func(*resources.Link, resources.Item) { c.invalidateRender() },
		DataModified:  func(*resources.Link, resources.Item, string) { c.invalidateRender() },
	})
	c.links = append(c.links, link)
	if m := c.resourceManager(); m != nil {
		_ = link.SetManager(m)
	}
	return link
}

// Links returns the clip's resource links in declaration order.
func (c *Clip) Links() []*resources.Link {
	return append([]*resources.Link(nil), c.links...)
}

// Link returns the link declared for slot.
func (c *Clip) Link(slot string) (*resources.Link, bool) {
	for _, l := range c.links {
		if l.Slot() == slot {
			return l, true
		}
	}
	return nil, false
}

// SetResource points slot at id through the timeline's resource manager.
func (c *Clip) SetResource(slot string, id resources.ID) error {
	link, ok := c.Link(slot)
	if !ok {
		return fmt.Errorf("set resource: clip kind %q has no slot %q", c.kind.ID, slot)
	}
	return link.SetTarget(id, c.resourceManager())
}

func (c *Clip) resourceManager() resources.Manager {
	if tl := c.Timeline(); tl != nil {
		return tl.resources
	}
	return nil
}

func (c *Clip) migrateLinks(m resources.Manager) error {
	var errs []error
	for _, l := range c.links {
		if l.Target() == resources.NoID {
			continue
		}
		errs = append(errs, l.SetManager(m))
	}
	return errors.Join(errs...)
}

// Prepare snapshots the clip for rendering timeline frame f.
func (c *Clip) Prepare(f int64, size image.Point, frameRate float64) (Prepared, bool, error) {
	return c.content.Prepare(RenderInfo{
		Frame:      f,
		Relative:   c.RelativeFrame(f),
		MediaFrame: c.MediaFrame(f),
		Size:       size,
		FrameRate:  frameRate,
		Position:   c.position,
		Scale:      c.scale,
	})
}

func (c *Clip) setTrack(t *Track) {
	old := c.track
	if old == t {
		return
	}
	c.track = t
	c.ownerChanged.each(func(fn func(*Track, *Track)) { fn(old, t) })
	var oldTL, newTL *Timeline
	if old != nil {
		oldTL = old.timeline
	}
	if t != nil {
		newTL = t.timeline
	}
	if oldTL != newTL {
		c.onTimelineChanged(oldTL, newTL)
	}
}

func (c *Clip) onTimelineChanged(old, tl *Timeline) {
	c.timelineChanged.each(func(fn func(*Timeline, *Timeline)) { fn(old, tl) })
	var m resources.Manager
	if tl != nil {
		m = tl.resources
	}
	if err := c.migrateLinks(m); err != nil {
		owner := tl
		if owner == nil {
			owner = old
		}
		logging.WarnWithContext(owner.logger, "resource link migration failed", "resource_link",
			logging.String(logging.FieldClipID, c.id.String()),
			logging.Error(err),
		)
	}
}

func (c *Clip) invalidateRender() {
	if c.track != nil {
		c.track.invalidateRender()
	}
}

// Destroy disposes the clip's links and removes it from its track.
func (c *Clip) Destroy() {
	for _, l := range c.links {
		_ = l.Dispose()
	}
	if c.track != nil {
		c.track.RemoveClip(c)
	}
}

func (c *Clip) OnSpanChanged(fn func(old, new frame.Span)) func() { return c.spanChanged.add(fn) }

func (c *Clip) OnMediaFrameOffsetChanged(fn func(old, new int64)) func() {
	return c.mediaOffsetChanged.add(fn)
}

func (c *Clip) OnOwnerChanged(fn func(old, new *Track)) func() { return c.ownerChanged.add(fn) }

func (c *Clip) OnTimelineChanged(fn func(old, new *Timeline)) func() {
	return c.timelineChanged.add(fn)
}

package timeline

import (
	"log/slog"

	"framekit/internal/frame"
	"framekit/internal/logging"
	"framekit/internal/resources"
	"framekit/internal/statetree"
)

// WriteState serializes the timeline and everything below it into d.
func (t *Timeline) WriteState(d *statetree.Dict) {
	d.SetInt("max_duration", t.maxDuration)
	d.SetInt("play_position", t.playPos)
	d.SetInt("stop_position", t.stopPos)
	if t.hasLoop {
		loop := d.CreateDict("loop")
		loop.SetInt("begin", t.loop.Begin)
		loop.SetInt("duration", t.loop.Duration)
	}
	d.SetBool("loop_enabled", t.loopEnabled)
	tracks := d.CreateList("tracks")
	for _, track := range t.tracks {
		entry := tracks.AppendDict()
		entry.SetString("factory", TrackFactoryID)
		track.WriteState(entry)
	}
}

// ReadState replaces the timeline's tracks and settings with those in d.
// Tracks or clips with unknown factory ids are skipped.
func (t *Timeline) ReadState(d *statetree.Dict) {
	t.Destroy()
	t.ClearLoopRegion()
	if v, ok := d.Int("max_duration"); ok && v > 0 {
		t.setMaxDuration(v)
	}
	if list, ok := d.List("tracks"); ok {
		for _, entry := range list.Dicts() {
			if factory := entry.StringOr("factory", TrackFactoryID); factory != TrackFactoryID {
				t.logger.Warn("skipping track with unknown factory", logging.String("factory", factory))
				continue
			}
			track := t.schema.NewTrack()
			track.ReadState(entry)
			if err := t.AddTrack(track); err != nil {
				t.logger.Warn("skipping track", logging.Error(err))
			}
		}
	}
	if v, ok := d.Int("play_position"); ok && v >= 0 && v < t.maxDuration {
		t.setPlayPosition(v)
	}
	if v, ok := d.Int("stop_position"); ok && v >= 0 && v < t.maxDuration {
		t.setStopPosition(v)
	}
	if loop, ok := d.Dict("loop"); ok {
		span := frame.New(loop.IntOr("begin", 0), loop.IntOr("duration", 0))
		if err := t.SetLoopRegion(span); err != nil {
			t.logger.Warn("ignoring saved loop region", logging.Error(err))
		}
	}
	t.SetLoopEnabled(d.BoolOr("loop_enabled", false))
}

// WriteState serializes the track and its clips into d.
func (t *Track) WriteState(d *statetree.Dict) {
	if t.name != "" {
		d.SetString("name", t.name)
	}
	t.schema.Registry.WriteValues(t, d.CreateDict("params"))
	t.automation.WriteState(d.CreateList("automation"))
	clips := d.CreateList("clips")
	for _, c := range t.clips {
		c.WriteState(clips.AppendDict())
	}
}

// ReadState restores the track from d and appends its clips. The track
// should be empty.
func (t *Track) ReadState(d *statetree.Dict) {
	t.name = d.StringOr("name", t.name)
	if p, ok := d.Dict("params"); ok {
		t.schema.Registry.ReadValues(t, p)
	}
	if list, ok := d.List("automation"); ok {
		t.automation.ReadState(list, t.schema.Registry)
	}
	list, ok := d.List("clips")
	if !ok {
		return
	}
	for _, entry := range list.Dicts() {
		kind, _ := entry.String("factory")
		c, err := t.schema.NewClip(kind)
		if err != nil {
			t.logger().Warn("skipping clip", logging.String("factory", kind), logging.Error(err))
			continue
		}
		c.ReadState(entry)
		if err := t.AddClip(c); err != nil {
			t.logger().Warn("skipping clip", logging.Error(err))
		}
	}
}

func (t *Track) logger() *slog.Logger {
	if t.timeline != nil {
		return t.timeline.logger
	}
	return logging.NewNop()
}

// WriteState serializes the clip into d, including its factory id.
func (c *Clip) WriteState(d *statetree.Dict) {
	d.SetString("factory", c.kind.ID)
	c.writeStateInto(d)
}

// ReadState restores the clip from d. The factory id is not checked.
func (c *Clip) ReadState(d *statetree.Dict) {
	if begin, ok := d.Int("begin"); ok {
		if duration, ok := d.Int("duration"); ok {
			if span := frame.New(begin, duration); span.Validate() == nil {
				c.span = span
			}
		}
	}
	c.mediaOffset = d.IntOr("media_offset", c.mediaOffset)
	if p, ok := d.Dict("params"); ok {
		c.schema.Registry.ReadValues(c, p)
	}
	if list, ok := d.List("automation"); ok {
		c.automation.ReadState(list, c.schema.Registry)
	}
	if links, ok := d.Dict("links"); ok {
		for _, slot := range links.Keys() {
			id, ok := links.Int(slot)
			if !ok {
				continue
			}
			if link, ok := c.Link(slot); ok {
				_ = link.SetTarget(resources.ID(id), c.resourceManager())
			}
		}
	}
	if content, ok := d.Dict("content"); ok {
		c.content.ReadState(content)
	}
}

func (c *Clip) writeStateInto(d *statetree.Dict) {
	d.SetInt("begin", c.span.Begin)
	d.SetInt("duration", c.span.Duration)
	d.SetInt("media_offset", c.mediaOffset)
	c.schema.Registry.WriteValues(c, d.CreateDict("params"))
	c.automation.WriteState(d.CreateList("automation"))
	if len(c.links) > 0 {
		links := d.CreateDict("links")
		for _, l := range c.links {
			if l.Target() != resources.NoID {
				links.SetInt(l.Slot(), int64(l.Target()))
			}
		}
	}
	c.content.WriteState(d.CreateDict("content"))
}

func (c *Clip) writeState() *statetree.Dict {
	d := statetree.NewDict()
	c.writeStateInto(d)
	return d
}

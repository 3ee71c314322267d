package render_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"golang.org/x/image/draw"

	"framekit/internal/frame"
	"framekit/internal/params"
	"framekit/internal/render"
	"framekit/internal/statetree"
	"framekit/internal/timeline"
)

type probe struct {
	colour    color.NRGBA
	decodeErr error
	panicDraw bool
	block     chan struct{}
}

func (p *probe) Kind() string               { return "probe" }
func (p *probe) Attach(*timeline.Clip)      {}
func (p *probe) Clone() timeline.Content    { return &probe{colour: p.colour} }
func (p *probe) WriteState(*statetree.Dict) {}
func (p *probe) ReadState(*statetree.Dict)  {}

func (p *probe) Prepare(timeline.RenderInfo) (timeline.Prepared, bool, error) {
	snap := *p
	return &snap, true, nil
}

func (p *probe) Decode(ctx context.Context) error {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.decodeErr
}

func (p *probe) Draw(dst *image.RGBA) error {
	if p.panicDraw {
		panic("boom")
	}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(p.colour), image.Point{}, draw.Over)
	return nil
}

type fixture struct {
	schema *timeline.Schema
	tl     *timeline.Timeline
	m      *render.Manager
}

func newFixture(t *testing.T, tracks int) *fixture {
	t.Helper()
	schema, err := timeline.NewSchema(params.NewRegistry())
	if err != nil {
		t.Fatalf("NewSchema failed: %v", err)
	}
	if err := schema.RegisterKind(timeline.Kind{ID: "probe", New: func() timeline.Content { return &probe{} }}); err != nil {
		t.Fatalf("RegisterKind failed: %v", err)
	}
	tl := timeline.New(schema, timeline.Options{})
	for i := 0; i < tracks; i++ {
		if err := tl.AddTrack(schema.NewTrack()); err != nil {
			t.Fatalf("AddTrack failed: %v", err)
		}
	}
	m := render.NewManager(tl, render.Options{
		Size:          image.Pt(8, 8),
		DecodeWorkers: 2,
		Background:    color.NRGBA{A: 255},
	})
	t.Cleanup(func() { m.Close() })
	return &fixture{schema: schema, tl: tl, m: m}
}

func (f *fixture) addProbe(t *testing.T, track int, colour color.NRGBA) (*timeline.Clip, *probe) {
	t.Helper()
	c, err := f.schema.NewClip("probe")
	if err != nil {
		t.Fatalf("NewClip failed: %v", err)
	}
	if err := c.SetSpan(frame.New(0, 100)); err != nil {
		t.Fatalf("SetSpan failed: %v", err)
	}
	tr, _ := f.tl.TrackAt(track)
	if err := tr.AddClip(c); err != nil {
		t.Fatalf("AddClip failed: %v", err)
	}
	p := c.Content().(*probe)
	p.colour = colour
	return c, p
}

var (
	red  = color.NRGBA{R: 255, A: 255}
	blue = color.NRGBA{B: 255, A: 255}
)

func pixel(t *testing.T, m *render.Manager) color.RGBA {
	t.Helper()
	img, err := m.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	return img.RGBAAt(4, 4)
}

func TestLastTrackDrawsOnTop(t *testing.T) {
	f := newFixture(t, 2)
	f.addProbe(t, 0, red)
	f.addProbe(t, 1, blue)

	res, err := f.m.RenderFrame(context.Background(), 10)
	if err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}
	if res.Status != render.Completed || res.Drawn != 2 {
		t.Fatalf("result = %+v", res)
	}
	if got := pixel(t, f.m); got != (color.RGBA{B: 255, A: 255}) {
		t.Fatalf("pixel = %v, want blue", got)
	}
	if f.m.LayerAllocations() != 0 {
		t.Fatalf("opaque clips should not allocate layers")
	}
}

func TestTranslucentClipUsesLayer(t *testing.T) {
	f := newFixture(t, 2)
	f.addProbe(t, 0, red)
	c, _ := f.addProbe(t, 1, blue)
	f.schema.ClipOpacity.SetValue(c, 0.5)

	if _, err := f.m.RenderFrame(context.Background(), 0); err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}
	got := pixel(t, f.m)
	if got.R < 120 || got.R > 135 || got.B < 120 || got.B > 135 || got.A != 255 {
		t.Fatalf("blended pixel = %v", got)
	}
	if f.m.LayerAllocations() != 1 {
		t.Fatalf("layers = %d, want 1", f.m.LayerAllocations())
	}
}

func TestHiddenTracksAndDisabledClipsAreSkipped(t *testing.T) {
	f := newFixture(t, 3)
	f.addProbe(t, 0, red)
	f.addProbe(t, 1, blue)
	c, _ := f.addProbe(t, 2, color.NRGBA{G: 255, A: 255})
	tr, _ := f.tl.TrackAt(1)
	f.schema.TrackVisible.SetValue(tr, false)
	f.schema.ClipEnabled.SetValue(c, false)

	res, err := f.m.RenderFrame(context.Background(), 0)
	if err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}
	if res.Drawn != 1 || pixel(t, f.m) != (color.RGBA{R: 255, A: 255}) {
		t.Fatalf("only the red clip should draw, drawn=%d pixel=%v", res.Drawn, pixel(t, f.m))
	}
}

func TestClipFaultsAreIsolated(t *testing.T) {
	f := newFixture(t, 3)
	f.addProbe(t, 0, red)
	panicky, p1 := f.addProbe(t, 1, blue)
	p1.panicDraw = true
	failing, p2 := f.addProbe(t, 2, blue)
	p2.decodeErr = errors.New("corrupt")

	res, err := f.m.RenderFrame(context.Background(), 0)
	if err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}
	if res.Status != render.Completed || res.Drawn != 1 {
		t.Fatalf("result = %+v", res)
	}
	faults := f.m.LastFaults()
	if len(faults) != 2 {
		t.Fatalf("faults = %v", faults)
	}
	var pe *render.PanicError
	if !errors.As(faults[panicky], &pe) {
		t.Fatalf("draw panic should be a PanicError, got %v", faults[panicky])
	}
	if faults[failing] == nil || faults[failing].Error() != "corrupt" {
		t.Fatalf("decode error = %v", faults[failing])
	}
	if faults.Err() == nil {
		t.Fatalf("Faults.Err should summarize failures")
	}
	if got := pixel(t, f.m); got != (color.RGBA{R: 255, A: 255}) {
		t.Fatalf("pixel = %v, want red", got)
	}
}

func TestOnlyOnePassAtATime(t *testing.T) {
	f := newFixture(t, 1)
	f.addProbe(t, 0, red)

	pass, err := f.m.Begin(context.Background(), 0)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := f.m.Begin(context.Background(), 1); !errors.Is(err, render.ErrRenderInProgress) {
		t.Fatalf("second Begin = %v, want ErrRenderInProgress", err)
	}
	if res := pass.Composite(); res.Status != render.Completed {
		t.Fatalf("status = %v", res.Status)
	}
	if _, err := f.m.RenderFrame(context.Background(), 1); err != nil {
		t.Fatalf("RenderFrame after Composite failed: %v", err)
	}
}

func TestCancelledPass(t *testing.T) {
	f := newFixture(t, 2)
	f.addProbe(t, 0, red)
	_, p := f.addProbe(t, 1, blue)
	p.block = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	pass, err := f.m.Begin(ctx, 0)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	cancel()
	if res := pass.Composite(); res.Status != render.Cancelled {
		t.Fatalf("status = %v, want cancelled", res.Status)
	}

	res, err := f.m.RenderFrame(ctx, 0)
	if err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}
	if res.Status != render.Cancelled {
		t.Fatalf("pre-cancelled context should cancel, got %v", res.Status)
	}
}

func TestBeginRejectsFramesOutsideTimeline(t *testing.T) {
	f := newFixture(t, 0)
	for _, fr := range []int64{-1, f.tl.MaxDuration()} {
		if _, err := f.m.Begin(context.Background(), fr); !errors.Is(err, timeline.ErrFrameOutOfRange) {
			t.Fatalf("Begin(%d) = %v, want ErrFrameOutOfRange", fr, err)
		}
	}
}

func TestTakeDirty(t *testing.T) {
	f := newFixture(t, 1)
	f.m.TakeDirty()
	if f.m.TakeDirty() {
		t.Fatalf("flag should be clear after TakeDirty")
	}
	notified := 0
	f.m.OnInvalidated(func() { notified++ })
	tr, _ := f.tl.TrackAt(0)
	f.schema.TrackOpacity.SetValue(tr, 0.3)
	if !f.m.TakeDirty() || notified != 1 {
		t.Fatalf("parameter change should mark the frame dirty")
	}
}

func TestEncodePNG(t *testing.T) {
	f := newFixture(t, 1)
	f.addProbe(t, 0, red)
	if _, err := f.m.RenderFrame(context.Background(), 0); err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}
	var buf bytes.Buffer
	if err := f.m.EncodePNG(&buf); err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode failed: %v", err)
	}
	if img.Bounds().Size() != image.Pt(8, 8) {
		t.Fatalf("size = %v", img.Bounds().Size())
	}
}

func TestBufferDisposeHandshake(t *testing.T) {
	b := render.NewBuffer(4, 4)
	if _, err := b.Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if b.Dispose() {
		t.Fatalf("Dispose should defer while in use")
	}
	if _, err := b.Acquire(); !errors.Is(err, render.ErrBufferDisposed) {
		t.Fatalf("Acquire after Dispose = %v, want ErrBufferDisposed", err)
	}
	if b.Disposed() {
		t.Fatalf("buffer freed while still in use")
	}
	if !b.Release() {
		t.Fatalf("last Release should carry out the deferred dispose")
	}
	if !b.Disposed() || !b.Dispose() {
		t.Fatalf("buffer should be disposed")
	}

	idle := render.NewBuffer(4, 4)
	if !idle.Dispose() {
		t.Fatalf("idle buffer should dispose immediately")
	}
}

func TestSurfaceLayers(t *testing.T) {
	s := render.NewSurface(2, 2)
	s.Clear(color.White)
	s.Push(0)
	draw.Draw(s.Target(), s.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	if s.Depth() != 1 {
		t.Fatalf("depth = %d, want 1", s.Depth())
	}
	s.Pop()
	s.Pop()
	if got := s.Snapshot().RGBAAt(0, 0); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("zero-opacity layer changed the base: %v", got)
	}
	if s.Layers() != 1 || s.Depth() != 0 {
		t.Fatalf("layers=%d depth=%d", s.Layers(), s.Depth())
	}
}

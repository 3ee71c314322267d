package clips

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/basicfont"

	"framekit/internal/params"
	"framekit/internal/statetree"
	"framekit/internal/timeline"
)

// Timecode burns HH:MM:SS:FF for the rendered timeline frame.
type Timecode struct {
	fontScale int64
	prefix    string
}

func timecodeKind() timeline.Kind {
	visual := params.WithFlags(params.Automatable | params.AffectsRender)
	fontScale := params.Long(KindTimecode, "FontScale", 2,
		func(o params.Owner) *int64 { return &content[*Timecode](o).fontScale },
		params.WithLongRange(1, 16), visual)
	prefix := params.String(KindTimecode, "Prefix", "",
		func(o params.Owner) *string { return &content[*Timecode](o).prefix },
		params.WithCharLimits(0, 16), params.WithFlags(params.AffectsRender))
	return timeline.Kind{
		ID:     KindTimecode,
		Label:  "Timecode",
		New:    func() timeline.Content { return &Timecode{} },
		Params: []params.Parameter{fontScale, prefix},
	}
}

func (t *Timecode) Kind() string { return KindTimecode }

func (t *Timecode) Attach(*timeline.Clip) {}

func (t *Timecode) Prepare(info timeline.RenderInfo) (timeline.Prepared, bool, error) {
	text := t.prefix + FormatTimecode(info.Frame, info.FrameRate)
	return &timecodeText{text: text, scale: int(t.fontScale), info: info}, true, nil
}

func (t *Timecode) Clone() timeline.Content {
	return &Timecode{fontScale: t.fontScale, prefix: t.prefix}
}

func (t *Timecode) WriteState(*statetree.Dict) {}

func (t *Timecode) ReadState(*statetree.Dict) {}

// FormatTimecode renders frame as HH:MM:SS:FF at the nearest whole frame
// rate.
func FormatTimecode(frame int64, frameRate float64) string {
	fps := int64(math.Round(frameRate))
	if fps <= 0 {
		fps = 1
	}
	if frame < 0 {
		frame = 0
	}
	ff := frame % fps
	secs := frame / fps
	return fmt.Sprintf("%02d:%02d:%02d:%02d", secs/3600, secs/60%60, secs%60, ff)
}

type timecodeText struct {
	text  string
	scale int
	info  timeline.RenderInfo

	rect   image.Rectangle
	glyphs *image.RGBA
}

func (f *timecodeText) Decode(ctx context.Context) error {
	face := basicfont.Face7x13
	w := face.Advance*len(f.text) + 4
	h := face.Height + 4

	dc := gg.NewContext(w, h)
	dc.SetColor(color.NRGBA{A: 160})
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	dc.Fill()
	dc.SetFontFace(face)
	dc.SetColor(color.White)
	dc.DrawString(f.text, 2, float64(2+face.Ascent))
	if err := ctx.Err(); err != nil {
		return err
	}

	scale := max(f.scale, 1)
	f.rect = placement(f.info, w*scale, h*scale)
	if f.rect.Empty() {
		return nil
	}
	f.glyphs = image.NewRGBA(image.Rect(0, 0, f.rect.Dx(), f.rect.Dy()))
	draw.NearestNeighbor.Scale(f.glyphs, f.glyphs.Bounds(), dc.Image(), dc.Image().Bounds(), draw.Src, nil)
	return nil
}

func (f *timecodeText) Draw(dst *image.RGBA) error {
	if f.glyphs == nil {
		return nil
	}
	draw.Draw(dst, f.rect, f.glyphs, image.Point{}, draw.Over)
	return nil
}

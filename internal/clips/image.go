package clips

import (
	"context"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"framekit/internal/params"
	"framekit/internal/resources"
	"framekit/internal/statetree"
	"framekit/internal/timeline"
)

// SlotImage is the resource slot an image clip draws from.
const SlotImage = "image"

// Still draws a linked image resource scaled by the clip's Scale.
type Still struct {
	source *resources.Link
}

func imageKind() timeline.Kind {
	return timeline.Kind{
		ID:    KindImage,
		Label: "Image",
		New:   func() timeline.Content { return &Still{} },
	}
}

func (s *Still) Kind() string { return KindImage }

func (s *Still) Attach(c *timeline.Clip) {
	s.source = c.AddLink(SlotImage, resources.KindImage)
}

func (s *Still) Prepare(info timeline.RenderInfo) (timeline.Prepared, bool, error) {
	item, ok := s.source.TryGetResource()
	if !ok {
		return nil, false, nil
	}
	return &stillFrame{res: item.(*resources.Image), info: info}, true, nil
}

func (s *Still) Clone() timeline.Content { return &Still{} }

func (s *Still) WriteState(*statetree.Dict) {}

func (s *Still) ReadState(*statetree.Dict) {}

type stillFrame struct {
	res  *resources.Image
	info timeline.RenderInfo

	rect   image.Rectangle
	scaled *image.RGBA
}

func (f *stillFrame) Decode(ctx context.Context) error {
	src, err := f.res.Decode()
	if err != nil {
		return fmt.Errorf("decode %s: %w", f.res.Path(), err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b := src.Bounds()
	f.rect = placement(f.info, b.Dx(), b.Dy())
	if f.rect.Empty() {
		return nil
	}
	f.scaled = image.NewRGBA(image.Rect(0, 0, f.rect.Dx(), f.rect.Dy()))
	if f.info.Scale == (params.Vector2{X: 1, Y: 1}) {
		draw.Draw(f.scaled, f.scaled.Bounds(), src, b.Min, draw.Src)
		return nil
	}
	draw.CatmullRom.Scale(f.scaled, f.scaled.Bounds(), src, b, draw.Src, nil)
	return nil
}

func (f *stillFrame) Draw(dst *image.RGBA) error {
	if f.scaled == nil {
		return nil
	}
	draw.Draw(dst, f.rect, f.scaled, image.Point{}, draw.Over)
	return nil
}

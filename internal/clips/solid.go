package clips

import (
	"context"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"framekit/internal/params"
	"framekit/internal/resources"
	"framekit/internal/statetree"
	"framekit/internal/timeline"
)

// SlotColour is the resource slot a solid clip fills from.
const SlotColour = "colour"

// Solid fills a rectangle with a linked colour.
type Solid struct {
	size   params.Vector2
	colour *resources.Link
}

func solidKind() timeline.Kind {
	size := params.Vector(KindSolid, "Size", params.Vector2{X: 256, Y: 256},
		func(o params.Owner) *params.Vector2 { return &content[*Solid](o).size },
		params.WithVectorRange(params.Vector2{}, params.Vector2{X: 16384, Y: 16384}),
		params.WithFlags(params.Automatable|params.AffectsRender))
	return timeline.Kind{
		ID:     KindSolid,
		Label:  "Solid colour",
		New:    func() timeline.Content { return &Solid{} },
		Params: []params.Parameter{size},
	}
}

func (s *Solid) Kind() string { return KindSolid }

func (s *Solid) Attach(c *timeline.Clip) {
	s.colour = c.AddLink(SlotColour, resources.KindColour)
}

// Size returns the unscaled fill size in pixels.
func (s *Solid) Size() params.Vector2 { return s.size }

func (s *Solid) Prepare(info timeline.RenderInfo) (timeline.Prepared, bool, error) {
	item, ok := s.colour.TryGetResource()
	if !ok {
		return nil, false, nil
	}
	rect := placement(info, int(s.size.X), int(s.size.Y))
	if rect.Empty() {
		return nil, false, nil
	}
	return &solidFill{rect: rect, colour: item.(*resources.Colour).Value()}, true, nil
}

func (s *Solid) Clone() timeline.Content { return &Solid{size: s.size} }

func (s *Solid) WriteState(*statetree.Dict) {}

func (s *Solid) ReadState(*statetree.Dict) {}

type solidFill struct {
	rect   image.Rectangle
	colour color.NRGBA
}

func (f *solidFill) Decode(context.Context) error { return nil }

func (f *solidFill) Draw(dst *image.RGBA) error {
	draw.Draw(dst, f.rect, image.NewUniform(f.colour), image.Point{}, draw.Over)
	return nil
}

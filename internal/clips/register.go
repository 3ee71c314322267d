package clips

import (
	"fmt"
	"image"

	"framekit/internal/params"
	"framekit/internal/timeline"
)

// Factory ids.
const (
	KindSolid    = "solid"
	KindImage    = "image"
	KindTimecode = "timecode"
)

// Register adds the solid, image and timecode kinds to schema.
func Register(schema *timeline.Schema) error {
	for _, k := range []timeline.Kind{solidKind(), imageKind(), timecodeKind()} {
		if err := schema.RegisterKind(k); err != nil {
			return fmt.Errorf("register built-in clips: %w", err)
		}
	}
	return nil
}

// placement returns the destination rectangle for content of size w x h
// placed by the clip's position and scale.
func placement(info timeline.RenderInfo, w, h int) image.Rectangle {
	x := int(info.Position.X)
	y := int(info.Position.Y)
	sw := int(float32(w) * info.Scale.X)
	sh := int(float32(h) * info.Scale.Y)
	return image.Rect(x, y, x+sw, y+sh)
}

func content[T timeline.Content](o params.Owner) T {
	return o.(*timeline.Clip).Content().(T)
}

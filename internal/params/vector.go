package params

import (
	"fmt"
	"math"
)

// Vector2 is a 2-D point or scale.
type Vector2 struct {
	X float32
	Y float32
}

// Clamp limits both components to [lo, hi].
func (v Vector2) Clamp(lo, hi Vector2) Vector2 {
	return Vector2{
		X: clampFloat32(v.X, lo.X, hi.X),
		Y: clampFloat32(v.Y, lo.Y, hi.Y),
	}
}

// Lerp blends each component toward b.
func (v Vector2) Lerp(b Vector2, blend float64) Vector2 {
	return Vector2{
		X: float32(lerpFloat(float64(v.X), float64(b.X), blend)),
		Y: float32(lerpFloat(float64(v.Y), float64(b.Y), blend)),
	}
}

func (v Vector2) String() string {
	return fmt.Sprintf("(%g, %g)", v.X, v.Y)
}

func clampFloat32(v, lo, hi float32) float32 {
	if v != v {
		return lo
	}
	return float32(math.Min(math.Max(float64(v), float64(lo)), float64(hi)))
}

func lerpFloat(a, b, blend float64) float64 {
	return a + (b-a)*blend
}

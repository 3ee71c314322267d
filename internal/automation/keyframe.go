package automation

import (
	"math"
	"sort"
)

// KeyFrame pins a value at a frame. Curve shapes the blend toward the next
// keyframe; zero is linear.
type KeyFrame[T any] struct {
	Frame int64
	Value T
	Curve float64
}

// blendAt returns the interpolation weight for frame between a and b.
func blendAt(frame, a, b int64, curve float64) float64 {
	if b <= a {
		return 1
	}
	blend := float64(frame-a) / float64(b-a)
	if curve != 0 {
		blend = math.Pow(blend, 1/math.Abs(curve))
	}
	return blend
}

// bracket returns the indices of the keyframes surrounding frame. When frame
// is before the first or after the last keyframe both indices are equal.
func bracket[T any](frames []KeyFrame[T], frame int64) (int, int) {
	n := len(frames)
	i := sort.Search(n, func(i int) bool { return frames[i].Frame > frame })
	switch {
	case i == 0:
		return 0, 0
	case i == n:
		return n - 1, n - 1
	default:
		return i - 1, i
	}
}

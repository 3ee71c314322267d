package frame

import (
	"errors"
	"fmt"
)

// ErrInvalidSpan reports an operation that would place a span's end before
// its begin.
var ErrInvalidSpan = errors.New("invalid frame span")

// Span is a half-open range of frames.
type Span struct {
	Begin    int64
	Duration int64
}

// Empty is the zero-length span at frame 0.
var Empty = Span{}

// New returns the span starting at begin and lasting duration frames.
func New(begin, duration int64) Span {
	return Span{Begin: begin, Duration: duration}
}

// FromIndices returns the span [begin, end).
func FromIndices(begin, end int64) (Span, error) {
	if end < begin {
		return Span{}, fmt.Errorf("%w: end %d before begin %d", ErrInvalidSpan, end, begin)
	}
	return Span{Begin: begin, Duration: end - begin}, nil
}

// End returns the exclusive end frame.
func (s Span) End() int64 {
	return s.Begin + s.Duration
}

// IsEmpty reports whether the span covers no frames.
func (s Span) IsEmpty() bool {
	return s.Duration <= 0
}

// Intersects reports whether frame lies within [Begin, End).
func (s Span) Intersects(frame int64) bool {
	return frame >= s.Begin && frame < s.End()
}

// Overlaps reports whether the two spans share at least one frame.
func (s Span) Overlaps(other Span) bool {
	return s.Begin < other.End() && other.Begin < s.End()
}

// Contains reports whether other lies entirely within s.
func (s Span) Contains(other Span) bool {
	return other.Begin >= s.Begin && other.End() <= s.End()
}

// WithBegin moves the span so it starts at begin, keeping its duration.
func (s Span) WithBegin(begin int64) Span {
	return Span{Begin: begin, Duration: s.Duration}
}

// WithDuration returns the span with a replaced duration.
func (s Span) WithDuration(duration int64) Span {
	return Span{Begin: s.Begin, Duration: duration}
}

// WithEnd keeps Begin and moves the end frame. It fails when end < Begin.
func (s Span) WithEnd(end int64) (Span, error) {
	if end < s.Begin {
		return s, fmt.Errorf("%w: end %d before begin %d", ErrInvalidSpan, end, s.Begin)
	}
	return Span{Begin: s.Begin, Duration: end - s.Begin}, nil
}

// WithEndClamped is WithEnd that never fails: an end before Begin collapses
// the span to zero length, and end is capped at upper.
func (s Span) WithEndClamped(end, upper int64) Span {
	if end > upper {
		end = upper
	}
	if end < s.Begin {
		return Span{Begin: s.Begin}
	}
	return Span{Begin: s.Begin, Duration: end - s.Begin}
}

// MoveBegin changes Begin while preserving End. It fails when begin > End.
func (s Span) MoveBegin(begin int64) (Span, error) {
	end := s.End()
	if begin > end {
		return s, fmt.Errorf("%w: begin %d after end %d", ErrInvalidSpan, begin, end)
	}
	return Span{Begin: begin, Duration: end - begin}, nil
}

// MoveBeginClamped is MoveBegin that saturates at End and never goes
// below frame 0.
func (s Span) MoveBeginClamped(begin int64) Span {
	end := s.End()
	if begin < 0 {
		begin = 0
	}
	if begin > end {
		return Span{Begin: end}
	}
	return Span{Begin: begin, Duration: end - begin}
}

// Offset shifts the span by delta frames.
func (s Span) Offset(delta int64) Span {
	return Span{Begin: s.Begin + delta, Duration: s.Duration}
}

// Expand grows both edges by n frames.
func (s Span) Expand(n int64) Span {
	return Span{Begin: s.Begin - n, Duration: s.Duration + 2*n}
}

// Contract shrinks both edges by n frames.
func (s Span) Contract(n int64) Span {
	return s.Expand(-n)
}

// Abs normalizes a span with a negative duration.
func (s Span) Abs() Span {
	if s.Duration >= 0 {
		return s
	}
	return Span{Begin: s.Begin + s.Duration, Duration: -s.Duration}
}

// Validate reports whether the span can be used as a clip placement.
func (s Span) Validate() error {
	if s.Begin < 0 {
		return fmt.Errorf("%w: negative begin %d", ErrInvalidSpan, s.Begin)
	}
	if s.Duration <= 0 {
		return fmt.Errorf("%w: non-positive duration %d", ErrInvalidSpan, s.Duration)
	}
	return nil
}

func (s Span) String() string {
	return fmt.Sprintf("%d->%d (%d)", s.Begin, s.End(), s.Duration)
}

// Union returns the smallest span containing both a and b.
func Union(a, b Span) Span {
	begin := min(a.Begin, b.Begin)
	end := max(a.End(), b.End())
	return Span{Begin: begin, Duration: end - begin}
}

// UnionAll folds Union over spans. ok is false when spans is empty.
func UnionAll(spans ...Span) (Span, bool) {
	if len(spans) == 0 {
		return Span{}, false
	}
	out := spans[0]
	for _, s := range spans[1:] {
		out = Union(out, s)
	}
	return out, true
}

// Clamp returns the largest sub-span of s that lies within bound. Disjoint
// inputs yield a zero-length span.
func Clamp(s, bound Span) Span {
	begin := max(s.Begin, bound.Begin)
	end := min(s.End(), bound.End())
	if end < begin {
		return Span{Begin: begin}
	}
	return Span{Begin: begin, Duration: end - begin}
}

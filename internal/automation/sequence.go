package automation

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"framekit/internal/params"
	"framekit/internal/statetree"
)

var (
	// ErrNotAutomatable reports a parameter without the Automatable flag.
	ErrNotAutomatable = errors.New("parameter is not automatable")
	// ErrUnsupportedType reports a parameter value type with no sequence support.
	ErrUnsupportedType = errors.New("unsupported parameter type")
)

// Automated is the type-erased view of a Sequence.
type Automated interface {
	Parameter() params.Parameter
	Override() bool
	SetOverride(enabled bool)
	HasKeyFrames() bool
	// CanAutomate reports whether Update will drive the value from keyframes.
	CanAutomate() bool
	Len() int
	// Update pushes the value at frame through the parameter's write protocol.
	Update(frame int64)

	writeState(d *statetree.Dict)
	readState(d *statetree.Dict)
}

// Sequence is the keyframe list for one parameter on one owner.
type Sequence[T any] struct {
	data     *Data
	param    *params.Param[T]
	frames   []KeyFrame[T]
	def      T
	override bool
	updating bool
}

// Parameter returns the automated parameter.
func (s *Sequence[T]) Parameter() params.Parameter {
	return s.param
}

// Override reports whether the manual value wins over keyframes.
func (s *Sequence[T]) Override() bool {
	return s.override
}

// SetOverride toggles the manual override. Enabling it captures the owner's
// current value as the sequence default.
func (s *Sequence[T]) SetOverride(enabled bool) {
	if s.override == enabled {
		return
	}
	s.override = enabled
	if enabled {
		s.def = s.param.Get(s.data.owner)
	}
	s.data.changed(s)
}

// Default returns the value used with no keyframes, before frame 0, and
// while overridden.
func (s *Sequence[T]) Default() T {
	return s.def
}

// SetDefault replaces the default value.
func (s *Sequence[T]) SetDefault(v T) {
	s.def = s.param.Coerce(v)
	s.data.changed(s)
}

func (s *Sequence[T]) HasKeyFrames() bool {
	return len(s.frames) > 0
}

func (s *Sequence[T]) CanAutomate() bool {
	return !s.override && len(s.frames) > 0
}

func (s *Sequence[T]) Len() int {
	return len(s.frames)
}

// KeyFrames returns a copy of the keyframes in frame order.
func (s *Sequence[T]) KeyFrames() []KeyFrame[T] {
	return slices.Clone(s.frames)
}

// AddKeyFrame inserts kf, replacing any keyframe at the same frame. It
// returns the keyframe's index.
func (s *Sequence[T]) AddKeyFrame(kf KeyFrame[T]) int {
	kf.Value = s.param.Coerce(kf.Value)
	i := sort.Search(len(s.frames), func(i int) bool { return s.frames[i].Frame >= kf.Frame })
	if i < len(s.frames) && s.frames[i].Frame == kf.Frame {
		s.frames[i] = kf
	} else {
		s.frames = slices.Insert(s.frames, i, kf)
	}
	s.data.changed(s)
	return i
}

// RemoveKeyFrameAt deletes the keyframe at index i.
func (s *Sequence[T]) RemoveKeyFrameAt(i int) {
	s.frames = slices.Delete(s.frames, i, i+1)
	s.data.changed(s)
}

// Clear removes every keyframe.
func (s *Sequence[T]) Clear() {
	s.frames = nil
	s.data.changed(s)
}

// ValueAt interpolates the value at frame. Frames before the first keyframe
// take its value and frames after the last take the last value.
func (s *Sequence[T]) ValueAt(frame int64) T {
	if s.override || frame < 0 || len(s.frames) == 0 {
		return s.def
	}
	i, j := bracket(s.frames, frame)
	a := s.frames[i]
	if i == j || a.Frame == frame {
		return a.Value
	}
	b := s.frames[j]
	return s.param.Interpolate(a.Value, b.Value, blendAt(frame, a.Frame, b.Frame, a.Curve))
}

// Update writes ValueAt(frame) to the owner. Nested updates triggered by
// listeners of the same sequence are ignored.
func (s *Sequence[T]) Update(frame int64) {
	if s.updating {
		return
	}
	s.updating = true
	defer func() { s.updating = false }()
	s.param.SetValue(s.data.owner, s.ValueAt(frame))
}

func (s *Sequence[T]) writeState(d *statetree.Dict) {
	d.SetString("param", s.param.Key().String())
	d.SetBool("override", s.override)
	d.Set("default", s.param.Encode(s.def))
	list := d.CreateList("keyframes")
	for _, kf := range s.frames {
		entry := list.AppendDict()
		entry.SetInt("frame", kf.Frame)
		entry.Set("value", s.param.Encode(kf.Value))
		if kf.Curve != 0 {
			entry.SetFloat("curve", kf.Curve)
		}
	}
}

func (s *Sequence[T]) readState(d *statetree.Dict) {
	s.override = d.BoolOr("override", false)
	if raw, ok := d.Get("default"); ok {
		if v, ok := s.param.Decode(raw); ok {
			s.def = s.param.Coerce(v)
		}
	}
	s.frames = s.frames[:0]
	list, ok := d.List("keyframes")
	if !ok {
		return
	}
	for _, entry := range list.Dicts() {
		frame, ok := entry.Int("frame")
		if !ok {
			continue
		}
		raw, ok := entry.Get("value")
		if !ok {
			continue
		}
		v, ok := s.param.Decode(raw)
		if !ok {
			continue
		}
		curve, _ := entry.Float("curve")
		kf := KeyFrame[T]{Frame: frame, Value: s.param.Coerce(v), Curve: curve}
		i := sort.Search(len(s.frames), func(i int) bool { return s.frames[i].Frame >= frame })
		if i < len(s.frames) && s.frames[i].Frame == frame {
			s.frames[i] = kf
		} else {
			s.frames = slices.Insert(s.frames, i, kf)
		}
	}
}

func newSequence[T any](d *Data, p *params.Param[T]) *Sequence[T] {
	return &Sequence[T]{data: d, param: p, def: p.DefaultValue()}
}

func checkParam(d *Data, p params.Parameter) error {
	if !p.Flags().Has(params.Automatable) {
		return fmt.Errorf("%w: %s", ErrNotAutomatable, p.Key())
	}
	if !p.AppliesTo(d.owner) {
		return fmt.Errorf("%w: %s", params.ErrNotApplicable, p.Key())
	}
	return nil
}

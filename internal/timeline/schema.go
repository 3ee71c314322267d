package timeline

import (
	"context"
	"fmt"
	"image"
	"slices"

	"framekit/internal/params"
	"framekit/internal/statetree"
)

// Owner kinds for built-in parameters.
const (
	OwnerTrack = "track"
	OwnerClip  = "clip"
)

// TrackFactoryID is the factory id written for tracks.
const TrackFactoryID = "video"

// RenderInfo is the per-clip snapshot the compositor hands to Prepare.
type RenderInfo struct {
	// Frame is the timeline frame being rendered.
	Frame int64
	// Relative is Frame minus the clip's begin.
	Relative int64
	// MediaFrame is Relative minus the clip's media offset.
	MediaFrame int64
	Size       image.Point
	FrameRate  float64
	Position   params.Vector2
	Scale      params.Vector2
}

// Prepared is the result of preparing one clip for one frame.
type Prepared interface {
	// Decode runs on a worker goroutine. It must not read or write timeline
	// state, only data captured by Prepare.
	Decode(ctx context.Context) error
	// Draw renders the decoded result into dst.
	Draw(dst *image.RGBA) error
}

// Content is the kind-specific part of a clip.
type Content interface {
	// Kind returns the factory id.
	Kind() string
	// Attach is called once when the content is bound to its clip. Content
	// declares resource slots here.
	Attach(c *Clip)
	// Prepare snapshots whatever Decode and Draw need. It runs on the main
	// thread. ok is false when there is nothing to draw this frame.
	Prepare(info RenderInfo) (p Prepared, ok bool, err error)
	Clone() Content
	WriteState(d *statetree.Dict)
	ReadState(d *statetree.Dict)
}

// Kind describes one clip content type.
type Kind struct {
	ID     string
	Label  string
	New    func() Content
	Params []params.Parameter
}

// Schema binds the built-in parameters and registered clip kinds to one
// parameter registry.
type Schema struct {
	Registry *params.Registry

	TrackOpacity *params.Param[float64]
	TrackVisible *params.Param[bool]
	TrackMuted   *params.Param[bool]

	ClipOpacity  *params.Param[float64]
	ClipEnabled  *params.Param[bool]
	ClipPosition *params.Param[params.Vector2]
	ClipScale    *params.Param[params.Vector2]
	ClipName     *params.Param[string]

	kinds map[string]Kind
	order []string
}

// NewSchema registers the track and clip parameters with reg.
func NewSchema(reg *params.Registry) (*Schema, error) {
	s := &Schema{Registry: reg, kinds: make(map[string]Kind)}
	visual := params.WithFlags(params.Automatable | params.AffectsRender)

	s.TrackOpacity = params.Double(OwnerTrack, "Opacity", 1, func(o params.Owner) *float64 { return &o.(*Track).opacity },
		params.WithRange(0, 1), visual)
	s.TrackVisible = params.Bool(OwnerTrack, "Visible", true, func(o params.Owner) *bool { return &o.(*Track).visible },
		visual)
	s.TrackMuted = params.Bool(OwnerTrack, "Muted", false, func(o params.Owner) *bool { return &o.(*Track).muted },
		params.WithFlags(params.Automatable))

	s.ClipOpacity = params.Double(OwnerClip, "Opacity", 1, func(o params.Owner) *float64 { return &o.(*Clip).opacity },
		params.WithRange(0, 1), visual)
	s.ClipEnabled = params.Bool(OwnerClip, "Enabled", true, func(o params.Owner) *bool { return &o.(*Clip).enabled },
		visual)
	s.ClipPosition = params.Vector(OwnerClip, "Position", params.Vector2{}, func(o params.Owner) *params.Vector2 { return &o.(*Clip).position },
		params.WithVectorRange(params.Vector2{X: -1e5, Y: -1e5}, params.Vector2{X: 1e5, Y: 1e5}), visual)
	s.ClipScale = params.Vector(OwnerClip, "Scale", params.Vector2{X: 1, Y: 1}, func(o params.Owner) *params.Vector2 { return &o.(*Clip).scale },
		params.WithVectorRange(params.Vector2{}, params.Vector2{X: 100, Y: 100}), visual)
	s.ClipName = params.String(OwnerClip, "DisplayName", "", func(o params.Owner) *string { return &o.(*Clip).name },
		params.WithCharLimits(0, 64))

	for _, p := range []params.Parameter{
		s.TrackOpacity, s.TrackVisible, s.TrackMuted,
		s.ClipOpacity, s.ClipEnabled, s.ClipPosition, s.ClipScale, s.ClipName,
	} {
		if err := s.register(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Schema) register(p params.Parameter) error {
	if err := s.Registry.Register(p); err != nil {
		return err
	}
	if p.Flags().Has(params.AffectsRender) {
		p.AddListener(invalidateOwner)
	}
	return nil
}

// RegisterKind adds a clip kind and registers its parameters.
func (s *Schema) RegisterKind(k Kind) error {
	if k.ID == "" || k.New == nil {
		return fmt.Errorf("register clip kind: id and constructor required")
	}
	if k.ID == OwnerClip || k.ID == OwnerTrack {
		return fmt.Errorf("register clip kind %q: reserved id", k.ID)
	}
	if _, exists := s.kinds[k.ID]; exists {
		return fmt.Errorf("register clip kind %q: %w", k.ID, ErrDuplicateKind)
	}
	for _, p := range k.Params {
		if p.Key().OwnerKind != k.ID {
			return fmt.Errorf("register clip kind %q: parameter %s has owner kind %q", k.ID, p.Key(), p.Key().OwnerKind)
		}
		if err := s.register(p); err != nil {
			return fmt.Errorf("register clip kind %q: %w", k.ID, err)
		}
	}
	s.kinds[k.ID] = k
	s.order = append(s.order, k.ID)
	return nil
}

// Kind returns the registered kind for a factory id.
func (s *Schema) Kind(id string) (Kind, bool) {
	k, ok := s.kinds[id]
	return k, ok
}

// Kinds returns every registered kind in registration order.
func (s *Schema) Kinds() []Kind {
	out := make([]Kind, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.kinds[id])
	}
	return out
}

// KindIDs returns the registered factory ids sorted alphabetically.
func (s *Schema) KindIDs() []string {
	ids := slices.Clone(s.order)
	slices.Sort(ids)
	return ids
}

type renderInvalidator interface {
	invalidateRender()
}

func invalidateOwner(_ params.Parameter, owner params.Owner) {
	if inv, ok := owner.(renderInvalidator); ok {
		inv.invalidateRender()
	}
}

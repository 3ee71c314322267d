package params

import (
	"fmt"

	"framekit/internal/statetree"
)

// Param is a typed parameter descriptor. Construct it with Float, Double,
// Long, Bool, Vector, or String.
type Param[T any] struct {
	descriptor

	def    T
	field  func(Owner) *T
	coerce func(T) T
	lerp   func(a, b T, blend float64) T
	encode func(T) any
	decode func(any) (T, bool)
	format func(T) string

	ranged   bool
	min, max T
}

// DefaultValue returns the registered default.
func (p *Param[T]) DefaultValue() T {
	return p.def
}

// Range returns the explicit range limits. ok is false for unranged parameters.
func (p *Param[T]) Range() (lo, hi T, ok bool) {
	return p.min, p.max, p.ranged
}

// HasExplicitRangeLimit reports whether writes clamp to [min, max].
func (p *Param[T]) HasExplicitRangeLimit() bool {
	return p.ranged
}

// Get returns owner's current value.
func (p *Param[T]) Get(owner Owner) T {
	return *p.field(owner)
}

// Value returns owner's current value boxed in an interface.
func (p *Param[T]) Value(owner Owner) any {
	return p.Get(owner)
}

// Coerce applies range clamping or character limits without writing.
func (p *Param[T]) Coerce(v T) T {
	if p.coerce == nil {
		return v
	}
	return p.coerce(v)
}

// Interpolate blends between a and b with blend in [0, 1].
func (p *Param[T]) Interpolate(a, b T, blend float64) T {
	if p.lerp == nil {
		if blend >= 1 {
			return b
		}
		return a
	}
	return p.lerp(a, b, blend)
}

// SetValue writes v through the full transaction protocol. It panics with
// a *TransactionError if a listener panics, and with ErrReentrantChange if
// p is already changing on owner.
func (p *Param[T]) SetValue(owner Owner, v T) {
	if !p.AppliesTo(owner) {
		panic(fmt.Errorf("%w: %s on %v", ErrNotApplicable, p.key, owner.ParamData().Kinds()))
	}
	transact(p, owner, func() {
		*p.field(owner) = p.Coerce(v)
	})
}

// Reset writes the default value.
func (p *Param[T]) Reset(owner Owner) {
	p.SetValue(owner, p.def)
}

// Info describes the parameter for listings.
func (p *Param[T]) Info() Info {
	info := Info{
		Key:     p.key,
		Index:   p.index,
		Type:    p.typeName,
		Flags:   p.flags,
		Default: p.format(p.def),
	}
	if p.ranged {
		info.Min = p.format(p.min)
		info.Max = p.format(p.max)
	}
	return info
}

// SetValueHelper writes v into field. When p is already changing on owner
// the field is assigned directly so read-modify-write callbacks do not
// re-enter the transaction; otherwise it behaves like p.SetValue.
func SetValueHelper[T any](owner Owner, p *Param[T], field *T, v T) {
	if owner.ParamData().IsChanging(p) {
		*field = v
		return
	}
	p.SetValue(owner, v)
}

func (p *Param[T]) writeState(owner Owner, d *statetree.Dict) {
	d.Set(p.key.String(), p.encode(p.Get(owner)))
}

func (p *Param[T]) readState(owner Owner, d *statetree.Dict) {
	raw, ok := d.Get(p.key.String())
	if !ok {
		return
	}
	if v, ok := p.decode(raw); ok {
		p.SetValue(owner, v)
	}
}

// Encode converts v into a statetree value.
func (p *Param[T]) Encode(v T) any {
	return p.encode(v)
}

// Decode converts a statetree value back into T.
func (p *Param[T]) Decode(raw any) (T, bool) {
	return p.decode(raw)
}

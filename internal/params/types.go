package params

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"framekit/internal/statetree"
)

// Option customizes a parameter at construction.
type Option func(*options)

type options struct {
	flags          Flags
	lo, hi         float64
	ranged         bool
	loVec, hiVec   Vector2
	vecRanged      bool
	longLo, longHi int64
	longRanged     bool
	minChars       int
	maxChars       int
	charLimited    bool
}

// WithFlags sets the parameter flags.
func WithFlags(f Flags) Option {
	return func(o *options) { o.flags |= f }
}

// WithRange clamps Float and Double writes to [lo, hi].
func WithRange(lo, hi float64) Option {
	return func(o *options) { o.lo, o.hi, o.ranged = lo, hi, true }
}

// WithLongRange clamps Long writes to [lo, hi].
func WithLongRange(lo, hi int64) Option {
	return func(o *options) { o.longLo, o.longHi, o.longRanged = lo, hi, true }
}

// WithVectorRange clamps Vector writes component-wise to [lo, hi].
func WithVectorRange(lo, hi Vector2) Option {
	return func(o *options) { o.loVec, o.hiVec, o.vecRanged = lo, hi, true }
}

// WithCharLimits pads String writes to minChars and truncates them to
// maxChars runes. A maxChars of 0 means unlimited.
func WithCharLimits(minChars, maxChars int) Option {
	return func(o *options) { o.minChars, o.maxChars, o.charLimited = minChars, maxChars, true }
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func newParam[T any](kind, name, typeName string, def T, field func(Owner) *T, o options) *Param[T] {
	return &Param[T]{
		descriptor: descriptor{key: Key{OwnerKind: kind, Name: name}, flags: o.flags, typeName: typeName},
		def:        def,
		field:      field,
	}
}

// Double builds a float64 parameter.
func Double(kind, name string, def float64, field func(Owner) *float64, opts ...Option) *Param[float64] {
	o := collect(opts)
	p := newParam(kind, name, "double", def, field, o)
	p.lerp = lerpFloat
	p.format = func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	p.encode = func(v float64) any { return v }
	p.decode = decodeFloat64
	if o.ranged {
		p.ranged, p.min, p.max = true, o.lo, o.hi
		p.def = clampFloat64(def, o.lo, o.hi)
	}
	p.coerce = func(v float64) float64 {
		if math.IsNaN(v) {
			return p.def
		}
		if p.ranged {
			return clampFloat64(v, p.min, p.max)
		}
		return v
	}
	return p
}

// Float builds a float32 parameter.
func Float(kind, name string, def float32, field func(Owner) *float32, opts ...Option) *Param[float32] {
	o := collect(opts)
	p := newParam(kind, name, "float", def, field, o)
	p.lerp = func(a, b float32, blend float64) float32 {
		return float32(lerpFloat(float64(a), float64(b), blend))
	}
	p.format = func(v float32) string { return strconv.FormatFloat(float64(v), 'g', -1, 32) }
	p.encode = func(v float32) any { return float64(v) }
	p.decode = func(raw any) (float32, bool) {
		v, ok := decodeFloat64(raw)
		return float32(v), ok
	}
	if o.ranged {
		p.ranged, p.min, p.max = true, float32(o.lo), float32(o.hi)
		p.def = clampFloat32(def, p.min, p.max)
	}
	p.coerce = func(v float32) float32 {
		if v != v {
			return p.def
		}
		if p.ranged {
			return clampFloat32(v, p.min, p.max)
		}
		return v
	}
	return p
}

// Long builds an int64 parameter. Interpolated values round half away
// from zero.
func Long(kind, name string, def int64, field func(Owner) *int64, opts ...Option) *Param[int64] {
	o := collect(opts)
	p := newParam(kind, name, "long", def, field, o)
	p.lerp = func(a, b int64, blend float64) int64 {
		return int64(math.Round(lerpFloat(float64(a), float64(b), blend)))
	}
	p.format = func(v int64) string { return strconv.FormatInt(v, 10) }
	p.encode = func(v int64) any { return v }
	p.decode = func(raw any) (int64, bool) {
		switch n := raw.(type) {
		case int64:
			return n, true
		case float64:
			return int64(math.Round(n)), true
		}
		return 0, false
	}
	if o.longRanged {
		p.ranged, p.min, p.max = true, o.longLo, o.longHi
		p.def = min(max(def, o.longLo), o.longHi)
	}
	p.coerce = func(v int64) int64 {
		if p.ranged {
			return min(max(v, p.min), p.max)
		}
		return v
	}
	return p
}

// Bool builds a boolean parameter. Interpolation flips at the midpoint.
func Bool(kind, name string, def bool, field func(Owner) *bool, opts ...Option) *Param[bool] {
	o := collect(opts)
	p := newParam(kind, name, "bool", def, field, o)
	p.lerp = func(a, b bool, blend float64) bool {
		if blend >= 0.5 {
			return b
		}
		return a
	}
	p.format = strconv.FormatBool
	p.encode = func(v bool) any { return v }
	p.decode = func(raw any) (bool, bool) {
		v, ok := raw.(bool)
		return v, ok
	}
	return p
}

// Vector builds a Vector2 parameter.
func Vector(kind, name string, def Vector2, field func(Owner) *Vector2, opts ...Option) *Param[Vector2] {
	o := collect(opts)
	p := newParam(kind, name, "vector2", def, field, o)
	p.lerp = Vector2.Lerp
	p.format = Vector2.String
	p.encode = func(v Vector2) any {
		l := statetree.NewList()
		l.Append(float64(v.X))
		l.Append(float64(v.Y))
		return l
	}
	p.decode = decodeVector
	if o.vecRanged {
		p.ranged, p.min, p.max = true, o.loVec, o.hiVec
		p.def = def.Clamp(o.loVec, o.hiVec)
	}
	p.coerce = func(v Vector2) Vector2 {
		if p.ranged {
			return v.Clamp(p.min, p.max)
		}
		return v
	}
	return p
}

// String builds a string parameter. Interpolation steps at the next keyframe.
func String(kind, name string, def string, field func(Owner) *string, opts ...Option) *Param[string] {
	o := collect(opts)
	p := newParam(kind, name, "string", def, field, o)
	p.format = strconv.Quote
	p.encode = func(v string) any { return v }
	p.decode = func(raw any) (string, bool) {
		v, ok := raw.(string)
		return v, ok
	}
	if o.charLimited {
		lo, hi := o.minChars, o.maxChars
		p.coerce = func(v string) string { return limitChars(v, lo, hi) }
		p.def = limitChars(def, lo, hi)
	}
	return p
}

func limitChars(v string, lo, hi int) string {
	n := utf8.RuneCountInString(v)
	if hi > 0 && n > hi {
		runes := []rune(v)
		return string(runes[:hi])
	}
	if n < lo {
		return v + strings.Repeat(" ", lo-n)
	}
	return v
}

func clampFloat64(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func decodeFloat64(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func decodeVector(raw any) (Vector2, bool) {
	l, ok := raw.(*statetree.List)
	if !ok || l.Len() != 2 {
		return Vector2{}, false
	}
	x, okX := decodeFloat64(l.At(0))
	y, okY := decodeFloat64(l.At(1))
	if !okX || !okY {
		return Vector2{}, false
	}
	return Vector2{X: float32(x), Y: float32(y)}, true
}

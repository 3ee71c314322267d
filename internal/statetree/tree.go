package statetree

import "fmt"

// Dict is an ordered, string-keyed map.
type Dict struct {
	keys   []string
	values map[string]any
}

// List is an ordered sequence of values.
type List struct {
	items []any
}

// NewDict returns an empty dictionary.
func NewDict() *Dict {
	return &Dict{values: make(map[string]any)}
}

// NewList returns an empty list.
func NewList() *List {
	return &List{}
}

// Len returns the number of keys.
func (d *Dict) Len() int {
	return len(d.keys)
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Has reports whether key is present.
func (d *Dict) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Get returns the raw value stored under key.
func (d *Dict) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Delete removes key if present.
func (d *Dict) Delete(key string) {
	if _, ok := d.values[key]; !ok {
		return
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

func (d *Dict) set(key string, value any) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Set stores a primitive, *Dict, or *List under key. It panics on any
// other type.
func (d *Dict) Set(key string, value any) {
	d.set(key, normalize(value))
}

func (d *Dict) SetInt(key string, v int64)     { d.set(key, v) }
func (d *Dict) SetFloat(key string, v float64) { d.set(key, v) }
func (d *Dict) SetBool(key string, v bool)     { d.set(key, v) }
func (d *Dict) SetString(key string, v string) { d.set(key, v) }
func (d *Dict) SetDict(key string, v *Dict)    { d.set(key, v) }
func (d *Dict) SetList(key string, v *List)    { d.set(key, v) }

// CreateDict stores and returns a new child dictionary.
func (d *Dict) CreateDict(key string) *Dict {
	child := NewDict()
	d.set(key, child)
	return child
}

// CreateList stores and returns a new child list.
func (d *Dict) CreateList(key string) *List {
	child := NewList()
	d.set(key, child)
	return child
}

// Int returns the integer under key. Whole floats are accepted so
// hand-edited files round-trip.
func (d *Dict) Int(key string) (int64, bool) {
	return asInt(d.values[key])
}

// Float returns the number under key.
func (d *Dict) Float(key string) (float64, bool) {
	return asFloat(d.values[key])
}

func (d *Dict) Bool(key string) (bool, bool) {
	v, ok := d.values[key].(bool)
	return v, ok
}

func (d *Dict) String(key string) (string, bool) {
	v, ok := d.values[key].(string)
	return v, ok
}

func (d *Dict) Dict(key string) (*Dict, bool) {
	v, ok := d.values[key].(*Dict)
	return v, ok
}

func (d *Dict) List(key string) (*List, bool) {
	v, ok := d.values[key].(*List)
	return v, ok
}

// IntOr returns the integer under key or fallback.
func (d *Dict) IntOr(key string, fallback int64) int64 {
	if v, ok := d.Int(key); ok {
		return v
	}
	return fallback
}

// StringOr returns the string under key or fallback.
func (d *Dict) StringOr(key string, fallback string) string {
	if v, ok := d.String(key); ok {
		return v
	}
	return fallback
}

// BoolOr returns the bool under key or fallback.
func (d *Dict) BoolOr(key string, fallback bool) bool {
	if v, ok := d.Bool(key); ok {
		return v
	}
	return fallback
}

// Len returns the number of items.
func (l *List) Len() int {
	return len(l.items)
}

// At returns the raw item at i.
func (l *List) At(i int) any {
	return l.items[i]
}

// Append adds a primitive, *Dict, or *List.
func (l *List) Append(value any) {
	l.items = append(l.items, normalize(value))
}

// AppendDict adds and returns a new child dictionary.
func (l *List) AppendDict() *Dict {
	child := NewDict()
	l.items = append(l.items, child)
	return child
}

// Dicts returns every dictionary item, skipping other kinds.
func (l *List) Dicts() []*Dict {
	out := make([]*Dict, 0, len(l.items))
	for _, item := range l.items {
		if d, ok := item.(*Dict); ok {
			out = append(out, d)
		}
	}
	return out
}

func normalize(value any) any {
	switch v := value.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64, float64, bool, string, *Dict, *List:
		return v
	case float32:
		return float64(v)
	default:
		panic(fmt.Sprintf("statetree: unsupported value type %T", value))
	}
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	}
	return 0, false
}

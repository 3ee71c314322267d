package params

import (
	"fmt"
	"strings"
	"sync"

	"framekit/internal/statetree"
)

// Key identifies a parameter by owner kind and name.
type Key struct {
	OwnerKind string
	Name      string
}

func (k Key) String() string {
	return k.OwnerKind + "::" + k.Name
}

// ParseKey splits a "Kind::Name" string.
func ParseKey(s string) (Key, error) {
	kind, name, ok := strings.Cut(s, "::")
	if !ok || kind == "" || name == "" {
		return Key{}, fmt.Errorf("parameter key %q: want Kind::Name", s)
	}
	return Key{OwnerKind: kind, Name: name}, nil
}

// Flags describe how the rest of the engine treats a parameter.
type Flags uint8

const (
	// AffectsRender marks parameters whose changes invalidate the rendered frame.
	AffectsRender Flags = 1 << iota
	// Automatable marks parameters that may carry an automation sequence.
	Automatable
)

// Has reports whether all bits in f are set.
func (fl Flags) Has(f Flags) bool {
	return fl&f == f
}

// Owner is anything that carries parameter state.
type Owner interface {
	ParamData() *Data
}

// Listener observes a completed value change.
type Listener func(p Parameter, owner Owner)

// Parameter is the type-erased view of a Param.
type Parameter interface {
	Key() Key
	Index() int
	Flags() Flags
	Info() Info
	// AppliesTo reports whether owner carries this parameter.
	AppliesTo(owner Owner) bool
	// Value returns the owner's current value boxed in an interface.
	Value(owner Owner) any
	// Reset writes the default value through the transaction protocol.
	Reset(owner Owner)
	AddPriorityListener(fn Listener) (remove func())
	AddListener(fn Listener) (remove func())

	base() *descriptor
	writeState(owner Owner, d *statetree.Dict)
	readState(owner Owner, d *statetree.Dict)
}

// Info is a printable summary of a parameter.
type Info struct {
	Key     Key
	Index   int
	Type    string
	Flags   Flags
	Default string
	Min     string
	Max     string
}

type descriptor struct {
	key      Key
	flags    Flags
	typeName string
	index    int

	mu       sync.Mutex
	priority listenerList
	normal   listenerList
}

func (d *descriptor) Key() Key          { return d.key }
func (d *descriptor) Flags() Flags      { return d.flags }
func (d *descriptor) base() *descriptor { return d }

// Index returns the global registration index, or 0 when unregistered.
func (d *descriptor) Index() int {
	return d.index
}

func (d *descriptor) AppliesTo(owner Owner) bool {
	if owner == nil {
		return false
	}
	data := owner.ParamData()
	return data != nil && data.Is(d.key.OwnerKind)
}

// AddPriorityListener registers a listener that runs before any other stage.
func (d *descriptor) AddPriorityListener(fn Listener) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.priority.add(fn, &d.mu)
}

// AddListener registers a listener that runs after per-instance listeners.
func (d *descriptor) AddListener(fn Listener) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.normal.add(fn, &d.mu)
}

func (d *descriptor) snapshot(stage Stage) []Listener {
	d.mu.Lock()
	defer d.mu.Unlock()
	if stage == StagePriority {
		return d.priority.snapshot()
	}
	return d.normal.snapshot()
}

type listenerEntry struct {
	id int
	fn Listener
}

type listenerList struct {
	nextID  int
	entries []listenerEntry
}

// add appends fn and returns a removal func. When mu is non-nil the removal
// takes the lock.
func (l *listenerList) add(fn Listener, mu *sync.Mutex) func() {
	l.nextID++
	id := l.nextID
	l.entries = append(l.entries, listenerEntry{id: id, fn: fn})
	var once sync.Once
	return func() {
		once.Do(func() {
			if mu != nil {
				mu.Lock()
				defer mu.Unlock()
			}
			l.remove(id)
		})
	}
}

func (l *listenerList) remove(id int) {
	for i, e := range l.entries {
		if e.id == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return
		}
	}
}

func (l *listenerList) snapshot() []Listener {
	if len(l.entries) == 0 {
		return nil
	}
	out := make([]Listener, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.fn
	}
	return out
}

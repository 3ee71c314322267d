package resources

import (
	"errors"
	"fmt"
)

// ErrDispose wraps a failure raised while releasing a previous target.
var ErrDispose = errors.New("release previous resource target")

// State summarizes a link's resolution.
type State int

const (
	NotLinked State = iota
	Linked
	NoSuchResource
	Incompatible
	Offline
)

func (s State) String() string {
	switch s {
	case NotLinked:
		return "not_linked"
	case Linked:
		return "linked"
	case NoSuchResource:
		return "no_such_resource"
	case Incompatible:
		return "incompatible"
	case Offline:
		return "offline"
	default:
		return "unknown"
	}
}

// Hooks are the owner's internal callbacks. They run before any external
// listener registered on the link.
type Hooks struct {
	Changed       func(link *Link, old, new Item)
	OnlineChanged func(link *Link, item Item)
	DataModified  func(link *Link, item Item, property string)
}

// Link references one resource by id through a Manager.
type Link struct {
	slot  string
	kind  string
	hooks Hooks

	target  ID
	manager Manager
	cached  Item
	cancel  func()
	gen     uint64

	changed  listeners[func(link *Link, old, new Item)]
	online   listeners[func(link *Link, item Item)]
	modified listeners[func(link *Link, item Item, property string)]
}

type listener[F any] struct {
	id int
	fn F
}

type listeners[F any] struct {
	next    int
	entries []listener[F]
}

func (ls *listeners[F]) add(fn F) func() {
	ls.next++
	id := ls.next
	ls.entries = append(ls.entries, listener[F]{id: id, fn: fn})
	return func() {
		for i, e := range ls.entries {
			if e.id == id {
				ls.entries = append(ls.entries[:i:i], ls.entries[i+1:]...)
				return
			}
		}
	}
}

func (ls *listeners[F]) snapshot() []F {
	out := make([]F, len(ls.entries))
	for i, e := range ls.entries {
		out[i] = e.fn
	}
	return out
}

// NewLink returns an unlinked link that accepts items of kind. An empty
// kind accepts anything.
func NewLink(slot, kind string, hooks Hooks) *Link {
	return &Link{slot: slot, kind: kind, hooks: hooks}
}

// Slot names the link on its owner.
func (l *Link) Slot() string { return l.slot }

// Kind returns the accepted resource kind.
func (l *Link) Kind() string { return l.kind }

// Target returns the linked id.
func (l *Link) Target() ID { return l.target }

// Manager returns the manager used for resolution.
func (l *Link) Manager() Manager { return l.manager }

// Accepts reports whether item is of the accepted kind.
func (l *Link) Accepts(item Item) bool {
	return item != nil && (l.kind == "" || item.Kind() == l.kind)
}

// TryGetResource returns the cached resource when it exists, is online,
// and is of the accepted kind. It never calls the manager.
func (l *Link) TryGetResource() (Item, bool) {
	item := l.cached
	if item == nil || !item.Online() || !l.Accepts(item) {
		return nil, false
	}
	return item, true
}

// State reports the link's resolution state.
func (l *Link) State() State {
	switch {
	case l.target == NoID || l.manager == nil:
		return NotLinked
	case l.cached == nil:
		return NoSuchResource
	case !l.Accepts(l.cached):
		return Incompatible
	case !l.cached.Online():
		return Offline
	default:
		return Linked
	}
}

// SetTarget points the link at id through manager. The previous
// subscription is released first; if that fails the new target is still
// installed and the failure is returned afterwards.
func (l *Link) SetTarget(id ID, manager Manager) error {
	err := l.release()
	old := l.cached
	l.cached = nil
	l.target = id
	l.manager = manager
	if manager != nil && id != NoID {
		l.subscribe()
		if item, ok := manager.Resolve(id); ok {
			l.cached = item
		}
	}
	if old != l.cached {
		l.fireChanged(old, l.cached)
	}
	return err
}

// SetManager re-resolves the current target through manager.
func (l *Link) SetManager(manager Manager) error {
	if manager == l.manager {
		return nil
	}
	return l.SetTarget(l.target, manager)
}

// Clear unlinks the target.
func (l *Link) Clear() error {
	return l.SetTarget(NoID, l.manager)
}

// Dispose releases the subscription and drops the cached resource without
// firing change notifications. It is safe to call more than once.
func (l *Link) Dispose() error {
	err := l.release()
	l.cached = nil
	l.manager = nil
	return err
}

// OnChanged registers an external listener for resource swaps.
func (l *Link) OnChanged(fn func(link *Link, old, new Item)) (remove func()) {
	return l.changed.add(fn)
}

// OnOnlineChanged registers an external listener for online state changes
// of the current target.
func (l *Link) OnOnlineChanged(fn func(link *Link, item Item)) (remove func()) {
	return l.online.add(fn)
}

// OnDataModified registers an external listener for in-place changes to
// the current target.
func (l *Link) OnDataModified(fn func(link *Link, item Item, property string)) (remove func()) {
	return l.modified.add(fn)
}

func (l *Link) release() (err error) {
	l.gen++
	cancel := l.cancel
	l.cancel = nil
	if cancel == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrDispose, l.slot, r)
		}
	}()
	cancel()
	return nil
}

func (l *Link) subscribe() {
	gen := l.gen
	live := func() bool { return gen == l.gen }
	l.cancel = l.manager.Watch(l.target, Observer{
		Changed: func(old, item Item) {
			if !live() {
				return
			}
			prev := l.cached
			l.cached = item
			l.fireChanged(prev, item)
		},
		OnlineChanged: func(item Item) {
			if !live() {
				return
			}
			if l.hooks.OnlineChanged != nil {
				l.hooks.OnlineChanged(l, item)
			}
			for _, fn := range l.online.snapshot() {
				fn(l, item)
			}
		},
		DataModified: func(item Item, property string) {
			if !live() {
				return
			}
			if l.hooks.DataModified != nil {
				l.hooks.DataModified(l, item, property)
			}
			for _, fn := range l.modified.snapshot() {
				fn(l, item, property)
			}
		},
	})
}

func (l *Link) fireChanged(old, item Item) {
	if l.hooks.Changed != nil {
		l.hooks.Changed(l, old, item)
	}
	for _, fn := range l.changed.snapshot() {
		fn(l, old, item)
	}
}

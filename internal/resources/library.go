package resources

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"slices"
	"sync"

	"framekit/internal/logging"
)

var (
	// ErrNotFound reports an id with no resource.
	ErrNotFound = errors.New("resource not found")
	// ErrIDInUse reports an insert over an existing id.
	ErrIDInUse = errors.New("resource id in use")
	// ErrKindMismatch reports a modification of the wrong kind of resource.
	ErrKindMismatch = errors.New("resource kind mismatch")
)

// Observer receives change notifications for one resource id. Nil fields
// are skipped.
type Observer struct {
	Changed       func(old, new Item)
	OnlineChanged func(item Item)
	DataModified  func(item Item, property string)
}

// Manager is the contract links consume.
type Manager interface {
	// Resolve returns the resource registered under id.
	Resolve(id ID) (Item, bool)
	// Watch subscribes obs to events for id until cancel is called.
	Watch(id ID, obs Observer) (cancel func())
}

// Library is an in-memory Manager. Reads are safe from any goroutine;
// mutations and event delivery are expected on the main thread.
type Library struct {
	mu       sync.RWMutex
	nextID   ID
	items    map[ID]Item
	watchers map[ID][]*watcher
	logger   *slog.Logger
}

type watcher struct {
	obs Observer
}

// NewLibrary returns an empty library. Ids start at 1.
func NewLibrary(logger *slog.Logger) *Library {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Library{
		nextID:   1,
		items:    make(map[ID]Item),
		watchers: make(map[ID][]*watcher),
		logger:   logging.NewComponentLogger(logger, "resources"),
	}
}

// Resolve implements Manager.
func (l *Library) Resolve(id ID) (Item, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	item, ok := l.items[id]
	return item, ok
}

// Watch implements Manager.
func (l *Library) Watch(id ID, obs Observer) func() {
	w := &watcher{obs: obs}
	l.mu.Lock()
	l.watchers[id] = append(l.watchers[id], w)
	l.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			list := l.watchers[id]
			if i := slices.Index(list, w); i >= 0 {
				l.watchers[id] = slices.Delete(slices.Clone(list), i, i+1)
			}
			if len(l.watchers[id]) == 0 {
				delete(l.watchers, id)
			}
		})
	}
}

// WatcherCount returns the number of live subscriptions for id.
func (l *Library) WatcherCount(id ID) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.watchers[id])
}

// Items returns every resource ordered by id.
func (l *Library) Items() []Item {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Item, 0, len(l.items))
	for _, item := range l.items {
		out = append(out, item)
	}
	slices.SortFunc(out, func(a, b Item) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		}
		return 0
	})
	return out
}

// Add registers item under a new id and returns it.
func (l *Library) Add(item Item) ID {
	m := mustMutable(item)
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	m.setID(id)
	l.items[id] = item
	l.mu.Unlock()
	l.logger.Debug("resource added", "resource_id", uint64(id), "kind", item.Kind())
	l.emitChanged(id, nil, item)
	return id
}

// Insert registers item under a fixed id, as when loading a saved catalog.
func (l *Library) Insert(id ID, item Item) error {
	if id == NoID {
		return fmt.Errorf("insert resource: %w", ErrNotFound)
	}
	m := mustMutable(item)
	l.mu.Lock()
	if _, exists := l.items[id]; exists {
		l.mu.Unlock()
		return fmt.Errorf("insert resource %d: %w", id, ErrIDInUse)
	}
	m.setID(id)
	l.items[id] = item
	if id >= l.nextID {
		l.nextID = id + 1
	}
	l.mu.Unlock()
	l.emitChanged(id, nil, item)
	return nil
}

// Replace swaps the resource under id for item, notifying every link.
func (l *Library) Replace(id ID, item Item) error {
	m := mustMutable(item)
	l.mu.Lock()
	old, ok := l.items[id]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("replace resource %d: %w", id, ErrNotFound)
	}
	m.setID(id)
	l.items[id] = item
	l.mu.Unlock()
	l.logger.Debug("resource replaced", "resource_id", uint64(id), "kind", item.Kind())
	l.emitChanged(id, old, item)
	return nil
}

// Remove deletes the resource under id. Links keep their target id and
// report NoSuchResource until it is re-added.
func (l *Library) Remove(id ID) error {
	l.mu.Lock()
	old, ok := l.items[id]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("remove resource %d: %w", id, ErrNotFound)
	}
	delete(l.items, id)
	l.mu.Unlock()
	l.emitChanged(id, old, nil)
	return nil
}

// SetOnline changes the online state of id.
func (l *Library) SetOnline(id ID, online bool) error {
	item, ok := l.Resolve(id)
	if !ok {
		return fmt.Errorf("set online %d: %w", id, ErrNotFound)
	}
	m := mustMutable(item)
	if item.Online() == online {
		return nil
	}
	m.setOnline(online)
	if img, ok := item.(*Image); ok {
		img.invalidate()
	}
	for _, w := range l.snapshot(id) {
		if w.obs.OnlineChanged != nil {
			w.obs.OnlineChanged(item)
		}
	}
	return nil
}

// Refresh re-checks an image's backing file and updates its online state.
func (l *Library) Refresh(id ID) error {
	item, ok := l.Resolve(id)
	if !ok {
		return fmt.Errorf("refresh %d: %w", id, ErrNotFound)
	}
	img, ok := item.(*Image)
	if !ok {
		return nil
	}
	_, err := os.Stat(img.Path())
	return l.SetOnline(id, err == nil)
}

// SetColour updates a colour resource and reports the modification.
func (l *Library) SetColour(id ID, c color.NRGBA) error {
	item, ok := l.Resolve(id)
	if !ok {
		return fmt.Errorf("set colour %d: %w", id, ErrNotFound)
	}
	col, ok := item.(*Colour)
	if !ok {
		return fmt.Errorf("set colour %d: %w: %s", id, ErrKindMismatch, item.Kind())
	}
	col.set(c)
	l.MarkModified(id, "colour")
	return nil
}

// MarkModified reports that property of id changed in place.
func (l *Library) MarkModified(id ID, property string) {
	item, ok := l.Resolve(id)
	if !ok {
		return
	}
	for _, w := range l.snapshot(id) {
		if w.obs.DataModified != nil {
			w.obs.DataModified(item, property)
		}
	}
}

func (l *Library) emitChanged(id ID, old, item Item) {
	for _, w := range l.snapshot(id) {
		if w.obs.Changed != nil {
			w.obs.Changed(old, item)
		}
	}
}

func (l *Library) snapshot(id ID) []*watcher {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.watchers[id])
}

func mustMutable(item Item) mutableItem {
	m, ok := item.(mutableItem)
	if !ok {
		panic(fmt.Sprintf("resources: %T was not created by this package", item))
	}
	return m
}

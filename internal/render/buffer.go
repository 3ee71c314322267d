package render

import "sync"

// Buffer guards a Surface shared between renders and a disposer. Every
// state change happens under one mutex, so disposal never races a render
// that has already acquired the surface.
type Buffer struct {
	mu        sync.Mutex
	surface   *Surface
	users     int
	disposing bool
	disposed  bool
}

// NewBuffer allocates a w x h surface.
func NewBuffer(w, h int) *Buffer {
	return &Buffer{surface: NewSurface(w, h)}
}

// Acquire returns the surface for exclusive drawing. It fails once Dispose
// has been called.
func (b *Buffer) Acquire() (*Surface, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposing || b.disposed {
		return nil, ErrBufferDisposed
	}
	b.users++
	return b.surface, nil
}

// Release ends a use started by Acquire. It reports whether it carried out
// a deferred dispose.
func (b *Buffer) Release() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.users > 0 {
		b.users--
	}
	if b.users == 0 && b.disposing && !b.disposed {
		b.free()
		return true
	}
	return false
}

// Dispose frees the surface when idle and reports true. Otherwise disposal
// is deferred to the last Release and Dispose reports false.
func (b *Buffer) Dispose() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return true
	}
	b.disposing = true
	if b.users > 0 {
		return false
	}
	b.free()
	return true
}

// Disposed reports whether the surface has been freed.
func (b *Buffer) Disposed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disposed
}

func (b *Buffer) free() {
	b.surface = nil
	b.disposed = true
}

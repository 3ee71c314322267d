package timeline

import "sync"

// SetInvalidator installs the callback run when the rendered frame is stale.
func (t *Timeline) SetInvalidator(fn func()) {
	t.invalidator = fn
}

// InvalidateRender requests a new render. While invalidation is suspended
// the request is held until the last token is released.
func (t *Timeline) InvalidateRender() {
	if t.suspendCount > 0 {
		t.pendingInvalid = true
		return
	}
	if t.invalidator != nil {
		t.invalidator()
	}
}

// SuspendToken holds render invalidation off until released.
type SuspendToken struct {
	once sync.Once
	t    *Timeline
}

// SuspendRenderInvalidation defers invalidation until the returned token
// is released. Tokens nest.
func (t *Timeline) SuspendRenderInvalidation() *SuspendToken {
	t.suspendCount++
	return &SuspendToken{t: t}
}

// Release ends the suspension. It is safe to call more than once.
func (s *SuspendToken) Release() {
	s.once.Do(func() {
		t := s.t
		t.suspendCount--
		if t.suspendCount == 0 && t.pendingInvalid {
			t.pendingInvalid = false
			t.InvalidateRender()
		}
	})
}

// IsRenderSuspended reports whether any suspension token is live.
func (t *Timeline) IsRenderSuspended() bool {
	return t.suspendCount > 0
}

package render

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"framekit/internal/timeline"
)

var (
	// ErrRenderInProgress is returned by Begin while another pass is active.
	ErrRenderInProgress = errors.New("render already in progress")
	// ErrBufferDisposed is returned by Acquire once disposal was requested.
	ErrBufferDisposed = errors.New("render buffer disposed")
)

// Faults records the clips that failed during a pass.
type Faults map[*timeline.Clip]error

// Err joins every fault into one error, or nil when there are none.
func (f Faults) Err() error {
	if len(f) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(f))
	for clip, err := range f {
		msgs = append(msgs, fmt.Sprintf("clip %s: %v", clip.ID(), err))
	}
	sort.Strings(msgs)
	return fmt.Errorf("%d clip(s) failed: %s", len(f), strings.Join(msgs, "; "))
}

// PanicError wraps a value recovered from clip code.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("clip panicked: %v", e.Value)
}

package timeline

import "errors"

var (
	ErrTrackAttached        = errors.New("track already belongs to a timeline")
	ErrClipAttached         = errors.New("clip already belongs to a track")
	ErrIndexOutOfRange      = errors.New("index out of range")
	ErrFrameOutOfRange      = errors.New("frame outside timeline")
	ErrDurationBelowContent = errors.New("max duration below largest frame in use")
	ErrInvalidLoop          = errors.New("invalid loop region")
	ErrDifferentTimeline    = errors.New("tracks belong to different timelines")
	ErrUnknownFactory       = errors.New("unknown factory id")
	ErrDuplicateKind        = errors.New("clip kind already registered")
	ErrInvalidCut           = errors.New("cut offset outside clip")
	// ErrClipNotOwned is panicked when removing a clip through a track that
	// does not own it.
	ErrClipNotOwned = errors.New("clip not owned by track")
	// ErrTrackNotOwned is panicked when removing a track through a timeline
	// that does not own it.
	ErrTrackNotOwned = errors.New("track not owned by timeline")
)

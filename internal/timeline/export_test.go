package timeline

// SetIndexHook installs fn to observe every track index rewrite.
func SetIndexHook(t *Timeline, fn func(track *Track, index int)) {
	t.indexHook = fn
}

// Package playback drives a timeline's play head in real time.
//
// The Clock ticks on a dedicated goroutine locked to its OS thread. Each
// tick hands the position update to the dispatch loop that owns the
// timeline, then composites the new frame off that loop. Control methods
// also go through the loop and must not be called from it.
package playback

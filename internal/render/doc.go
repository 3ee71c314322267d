// Package render composites a timeline frame into an RGBA surface.
//
// A render is split in two. Manager.Begin walks the tracks on the caller's
// goroutine, which must be the goroutine that owns the timeline, and asks
// each visible clip to snapshot what it needs. Decoding then runs on a
// bounded worker pool. Pass.Composite waits for each clip in track order
// and draws it, isolating failures per clip so one bad clip never aborts
// the frame.
package render

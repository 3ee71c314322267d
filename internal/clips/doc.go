// Package clips provides the built-in clip kinds: solid colour fills,
// still images and a burned-in timecode.
//
// Register adds every kind to a timeline schema. Each call builds fresh
// parameter descriptors, so several schemas can coexist in one process.
package clips

// Package main hosts the framekit CLI entrypoint and command graph.
//
// The Cobra command tree opens project files, edits tracks and clips,
// manages the resource catalog, renders frames to PNG and drives the
// playback clock without a display. It centralizes configuration
// resolution, catalog loading and logger setup so subcommands only deal
// with their own flags and output.
//
// Engine behaviour lives in the internal packages. Commands here translate
// flags into calls on them and format the results.
package main

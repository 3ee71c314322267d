// Package logging assembles the structured slog loggers used across
// framekit.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// field names shared by the timeline, render, and playback packages so log
// lines for one render pass or playback session can be correlated. A no-op
// logger is provided for tests and for wiring code that cannot fail.
package logging

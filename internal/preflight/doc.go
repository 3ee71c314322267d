// Package preflight provides readiness checks for the filesystem paths and
// settings framekit depends on.
//
// The CLI runs RunAll before a render or playback session so a missing or
// read-only output directory is reported before any frame work starts.
// Individual checks are exported for status output.
package preflight

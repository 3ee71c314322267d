// Package config loads, normalizes, and validates framekit configuration.
//
// Configuration lives in TOML (default ~/.config/framekit/config.toml, or
// framekit.toml in the working directory). Load applies Default values
// first, decodes the file over them, expands ~ in paths, and validates the
// result so the render and playback packages can trust every field.
package config

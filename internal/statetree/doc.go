// Package statetree is the generic ordered key-value tree that timelines,
// tracks, clips, and parameter-bearing objects write their state into.
//
// A Dict keeps insertion order so encoded projects diff cleanly. Values are
// nested Dicts, Lists, or int64/float64/bool/string primitives. The YAML
// codec in codec.go is the only on-disk representation; callers never see
// yaml types.
package statetree

// Package params implements typed, globally registered parameters and the
// value-change transaction that every write goes through.
//
// A Param is a descriptor shared by all instances of an owner kind (for
// example every clip). It is registered once with a Registry, which assigns
// it a permanent global index. Each owner instance carries a Data bag that
// records per-parameter change state and per-instance listeners.
//
// Writes follow a fixed protocol: begin (re-entry panics), coerce and assign,
// then notify listeners stage by stage (priority, instance, any-instance,
// normal) before clearing the changing flag. Ranged numeric parameters clamp
// silently; string parameters pad and truncate to their character limits.
//
// Parameter values are not safe for concurrent writes on the same owner.
// Callers serialize writes, normally by performing them on the main thread.
package params

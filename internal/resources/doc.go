// Package resources defines the resource manager contract clips consume and
// the Link that binds a clip to a shared resource by stable id.
//
// A Link resolves its target eagerly when the target or manager changes and
// caches the result, so TryGetResource never touches the manager. Library is
// the in-memory Manager used by projects; internal/library persists its
// catalog.
package resources

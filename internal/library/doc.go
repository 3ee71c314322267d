// Package library persists the resource catalog in SQLite.
//
// The in-memory resources.Library is the live source of truth while a
// project is open. Store snapshots it with Save and rebuilds it with Load,
// keeping resource ids stable across sessions so saved clip links resolve.
package library

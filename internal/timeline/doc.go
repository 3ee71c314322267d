// Package timeline holds the frame-accurate ownership tree of a project:
// a Timeline owns ordered Tracks, and each Track owns Clips placed on
// frame spans.
//
// All mutation happens on the single main thread. Structural operations
// keep cached track and clip indices, the range-selection anchor, and the
// timeline's largest used frame consistent, and request a render
// invalidation through the installed invalidator. Clips carry parameters,
// automation, and resource links; when a clip moves between timelines its
// links migrate to the new timeline's resource manager.
//
// Clip behaviour specific to a kind of content (solid colour, image,
// timecode) is provided through the Content interface and registered on a
// Schema by factory id.
package timeline

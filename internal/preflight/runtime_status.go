package preflight

import (
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// ProjectProbe reports whether a project file exists and is held open by
// another editor.
type ProjectProbe struct {
	Path   string
	Exists bool
	Locked bool
}

// ProbeProject checks the project file and its lock without keeping the
// lock.
func ProbeProject(path string) ProjectProbe {
	probe := ProjectProbe{Path: path}
	if _, err := os.Stat(path); err != nil {
		return probe
	}
	probe.Exists = true

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil || !ok {
		probe.Locked = true
		return probe
	}
	_ = lock.Unlock()
	return probe
}

// Detail renders a display-friendly summary for status output.
func (p ProjectProbe) Detail() string {
	switch {
	case !p.Exists:
		return fmt.Sprintf("%s (not found)", p.Path)
	case p.Locked:
		return fmt.Sprintf("%s (open in another editor)", p.Path)
	default:
		return fmt.Sprintf("%s (available)", p.Path)
	}
}

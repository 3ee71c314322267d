//go:build linux

package playback

import "golang.org/x/sys/unix"

const tickNice = -5

// raiseThreadPriority lowers the nice value of the calling thread. It needs
// CAP_SYS_NICE and fails quietly without it.
func raiseThreadPriority() error {
	return unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), tickNice)
}

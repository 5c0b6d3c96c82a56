//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package rangetar

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isInterrupted returns true if err is a transient EINTR that should be retried.
func isInterrupted(err error) bool {
	return errors.Is(err, unix.EINTR)
}

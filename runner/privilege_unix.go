//go:build unix

package runner

import (
	"golang.org/x/sys/unix"
)

// IsElevated reports whether the process runs with root privileges.
func IsElevated() bool {
	return unix.Geteuid() == 0
}

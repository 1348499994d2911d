//go:build unix

package executor

import (
	"os/exec"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// configureGroup places the process in a new process group so that a
// cancellation reaches every descendant that did not detach itself.
func configureGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return signalGroup(cmd.Process.Pid, unix.SIGKILL)
	}
}

// configureRelay asks a signal-forwarding wrapper to stop. The wrapper may
// run with more privileges than we do, so only it is signalled; it passes
// the signal on to its child. exec sends SIGKILL once WaitDelay expires.
func configureRelay(cmd *exec.Cmd, grace time.Duration) {
	cmd.Cancel = func() error {
		if grace <= 0 {
			return cmd.Process.Kill()
		}
		return cmd.Process.Signal(unix.SIGTERM)
	}
}

// killGroup is a best-effort sweep of whatever is left in the group led by pgid.
func killGroup(pgid int) {
	_ = signalGroup(pgid, unix.SIGKILL)
}

func signalGroup(pgid int, sig syscall.Signal) error {
	if pgid <= 0 {
		return nil
	}
	if err := unix.Kill(-pgid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}

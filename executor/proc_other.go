//go:build !unix

package executor

import (
	"os/exec"
	"time"
)

// Process groups are a unix notion; cancellation kills the process itself.
func configureGroup(cmd *exec.Cmd) {}

func configureRelay(cmd *exec.Cmd, grace time.Duration) {}

func killGroup(pgid int) {}

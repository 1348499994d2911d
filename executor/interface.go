package executor

import (
	"context"
	"time"
)

// Process describes one fully resolved process to spawn. Path must already
// be located; the executor does no PATH search of its own when executing.
type Process struct {
	Path string
	Args []string
	Dir  string
	// Env replaces the inherited environment when non-nil.
	Env []string
	// Stdin is fed to the process and then closed. Nil means no input.
	Stdin []byte
	// Relay marks a wrapper that forwards signals to its own child, such as
	// sudo. It stays in the caller's process group so it can reach the
	// terminal, and is stopped with SIGTERM, then SIGKILL after GracePeriod.
	// Any other process gets its own process group, killed as a whole.
	Relay       bool
	GracePeriod time.Duration
}

// Outcome is what a started process left behind.
type Outcome struct {
	PID      int
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Executor spawns local processes and captures their output in full.
type Executor interface {
	// Execute runs p to completion. A process that exits non-zero is not an
	// error: the exit code is in the Outcome. Errors are a *StartError when
	// the process never started, or wrap ctx.Err() when the context ended
	// the run, in which case the partial Outcome is returned as well.
	Execute(ctx context.Context, p Process) (*Outcome, error)

	// LookPath locates an executable the way the executor would run it.
	LookPath(file string) (string, error)
}

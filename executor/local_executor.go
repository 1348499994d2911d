package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// defaultWaitDelay bounds how long Wait may block on output pipes held open
// by descendants after the process itself is gone.
const defaultWaitDelay = 500 * time.Millisecond

// StartError reports a process that could not be started at all. There is
// no exit status and no output.
type StartError struct {
	Path string
	Err  error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Path, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// localExecutor implements the Executor interface for the local machine.
type localExecutor struct {
	waitDelay time.Duration
}

// NewLocalExecutor creates a new Executor for local processes.
func NewLocalExecutor() Executor {
	return &localExecutor{waitDelay: defaultWaitDelay}
}

func (l *localExecutor) LookPath(file string) (string, error) {
	path, err := exec.LookPath(file)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(path) {
		abs, absErr := filepath.Abs(path)
		if absErr != nil {
			return "", errors.Wrapf(absErr, "failed to make %s absolute", path)
		}
		path = abs
	}
	return path, nil
}

func (l *localExecutor) Execute(ctx context.Context, p Process) (*Outcome, error) {
	if p.Path == "" {
		return nil, &StartError{Path: p.Path, Err: errors.New("empty executable path")}
	}
	if err := ctx.Err(); err != nil {
		return &Outcome{ExitCode: -1}, errors.Wrapf(err, "context ended before %s started", p.Path)
	}

	cmd := exec.CommandContext(ctx, p.Path, p.Args...)
	cmd.Dir = p.Dir
	if p.Env != nil {
		cmd.Env = p.Env
	}
	if p.Stdin != nil {
		cmd.Stdin = bytes.NewReader(p.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if p.Relay {
		configureRelay(cmd, p.GracePeriod)
		cmd.WaitDelay = p.GracePeriod + l.waitDelay
	} else {
		configureGroup(cmd)
		cmd.WaitDelay = l.waitDelay
	}
	stop := cmd.Cancel
	if stop == nil {
		stop = func() error { return cmd.Process.Kill() }
	}
	// terminated is set only when the context, not the process itself, ended the run.
	var terminated atomic.Bool
	cmd.Cancel = func() error {
		terminated.Store(true)
		return stop()
	}

	if err := cmd.Start(); err != nil {
		return nil, &StartError{Path: p.Path, Err: err}
	}
	pid := cmd.Process.Pid

	// Wait reaps the process and closes every pipe, whatever happens below.
	waitErr := cmd.Wait()

	outcome := &Outcome{
		PID:      pid,
		ExitCode: -1,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}
	if cmd.ProcessState != nil {
		outcome.ExitCode = cmd.ProcessState.ExitCode()
	}

	if waitErr == nil {
		return outcome, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && terminated.Load() {
		if !p.Relay {
			killGroup(pid)
		}
		return outcome, errors.Wrapf(ctxErr, "%s terminated", p.Path)
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(waitErr, &exitErr):
		return outcome, nil
	case errors.Is(waitErr, exec.ErrWaitDelay):
		// Exited, but descendants kept the output pipes open.
		if !p.Relay {
			killGroup(pid)
		}
		return outcome, nil
	case cmd.ProcessState != nil:
		// The process exited; only output copying failed.
		return outcome, nil
	default:
		return outcome, errors.Wrapf(waitErr, "failed waiting for %s", p.Path)
	}
}

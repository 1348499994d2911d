package runner

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/mensylisir/tps/resolver"
)

// Kind names a failure category. Callers switch on KindOf(err) instead of
// inspecting messages.
type Kind int

const (
	KindNone Kind = iota
	KindResolution
	KindLaunch
	KindCommandFailed
	KindElevation
	KindTimeout
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindResolution:
		return "resolution"
	case KindLaunch:
		return "launch"
	case KindCommandFailed:
		return "command-failed"
	case KindElevation:
		return "elevation"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// KindOf returns the category of err, looking through wrapping.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var (
		resErr     *resolver.ResolutionError
		launchErr  *LaunchError
		failedErr  *CommandFailedError
		elevErr    *ElevationError
		timeoutErr *TimeoutError
	)
	switch {
	case errors.As(err, &resErr):
		return KindResolution
	case errors.As(err, &launchErr):
		return KindLaunch
	case errors.As(err, &failedErr):
		return KindCommandFailed
	case errors.As(err, &elevErr):
		return KindElevation
	case errors.As(err, &timeoutErr):
		return KindTimeout
	default:
		return KindUnknown
	}
}

// LaunchError reports a process that never started: there is no exit code
// and no output.
type LaunchError struct {
	Executable string
	Reason     string
	Err        error
}

func (e *LaunchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot launch %s: %s: %v", e.Executable, e.Reason, e.Err)
	}
	return fmt.Sprintf("cannot launch %s: %s", e.Executable, e.Reason)
}

func (e *LaunchError) Unwrap() error { return e.Err }
func (e *LaunchError) Kind() Kind    { return KindLaunch }

// CommandFailedError reports a process that ran and exited non-zero.
type CommandFailedError struct {
	Executable string
	Args       []string
	ExitCode   int
	Stdout     []byte
	Stderr     []byte
	Elevated   bool
}

func (e *CommandFailedError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Executable, e.ExitCode)
	if line := lastLine(e.Stderr); line != "" {
		msg += ": " + line
	}
	return msg
}

func (e *CommandFailedError) Kind() Kind { return KindCommandFailed }

// ElevationError reports that the elevation mechanism is unavailable or
// refused the request, for example after a failed credential prompt.
type ElevationError struct {
	Mechanism  string
	Executable string
	Reason     string
	ExitCode   int // -1 when the mechanism never ran
	Stderr     []byte
	Err        error
}

func (e *ElevationError) Error() string {
	msg := fmt.Sprintf("cannot elevate %s with %s: %s", e.Executable, e.Mechanism, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ElevationError) Unwrap() error { return e.Err }
func (e *ElevationError) Kind() Kind    { return KindElevation }

// TimeoutError reports a run ended by its deadline or by the caller's
// cancellation. The process and any wrapper were terminated; Stdout and
// Stderr hold what was captured until then.
type TimeoutError struct {
	Executable string
	Timeout    time.Duration
	Elevated   bool

	// PID of the terminated process, the elevation wrapper when Elevated.
	PID    int
	Stdout []byte
	Stderr []byte
	Err    error
}

func (e *TimeoutError) Error() string {
	if e.Canceled() {
		return fmt.Sprintf("%s was canceled", e.Executable)
	}
	if e.Timeout > 0 {
		return fmt.Sprintf("%s timed out after %s", e.Executable, e.Timeout)
	}
	return fmt.Sprintf("%s exceeded its deadline", e.Executable)
}

// Canceled reports whether the caller canceled the run rather than a deadline expiring.
func (e *TimeoutError) Canceled() bool {
	return errors.Is(e.Err, context.Canceled)
}

func (e *TimeoutError) Unwrap() error { return e.Err }
func (e *TimeoutError) Kind() Kind    { return KindTimeout }

const maxMessageLine = 200

func lastLine(b []byte) string {
	b = bytes.TrimSpace(b)
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		b = bytes.TrimSpace(b[i+1:])
	}
	if len(b) > maxMessageLine {
		b = append(b[:maxMessageLine:maxMessageLine], "..."...)
	}
	return string(b)
}

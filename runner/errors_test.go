package runner

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/mensylisir/tps/resolver"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "Nil", err: nil, want: KindNone},
		{name: "Resolution", err: &resolver.ResolutionError{Expr: "~x", Reason: "unsupported"}, want: KindResolution},
		{name: "Launch", err: &LaunchError{Executable: "tf", Reason: "executable not found"}, want: KindLaunch},
		{name: "Command failed", err: &CommandFailedError{Executable: "tf", ExitCode: 1}, want: KindCommandFailed},
		{name: "Elevation", err: &ElevationError{Mechanism: "sudo", Executable: "tf", Reason: "denied"}, want: KindElevation},
		{name: "Timeout", err: &TimeoutError{Executable: "tf", Err: context.DeadlineExceeded}, want: KindTimeout},
		{name: "Wrapped", err: errors.Wrap(&ElevationError{Mechanism: "sudo"}, "apply"), want: KindElevation},
		{name: "Foreign", err: errors.New("boom"), want: KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "terraform exited with status 2: Error: no workspace",
		(&CommandFailedError{Executable: "terraform", ExitCode: 2, Stderr: []byte("warming up\nError: no workspace\n")}).Error())
	assert.Equal(t, "false exited with status 1", (&CommandFailedError{Executable: "false", ExitCode: 1}).Error())

	assert.Equal(t, "sleep timed out after 1s",
		(&TimeoutError{Executable: "sleep", Timeout: time.Second, Err: context.DeadlineExceeded}).Error())
	assert.Equal(t, "sleep exceeded its deadline", (&TimeoutError{Executable: "sleep", Err: context.DeadlineExceeded}).Error())
	assert.Equal(t, "sleep was canceled", (&TimeoutError{Executable: "sleep", Err: context.Canceled}).Error())

	assert.Equal(t, "cannot launch /nonexistent/bin: executable not found: no such file",
		(&LaunchError{Executable: "/nonexistent/bin", Reason: "executable not found", Err: errors.New("no such file")}).Error())
	assert.Equal(t, "cannot elevate terraform with sudo: sudo: a password is required",
		(&ElevationError{Mechanism: "sudo", Executable: "terraform", Reason: "sudo: a password is required"}).Error())

	long := strings.Repeat("x", 500)
	msg := (&CommandFailedError{Executable: "tf", ExitCode: 1, Stderr: []byte(long)}).Error()
	assert.True(t, strings.HasSuffix(msg, "..."))
	assert.Less(t, len(msg), 300)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "elevation", KindElevation.String())
	assert.Equal(t, "command-failed", KindCommandFailed.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

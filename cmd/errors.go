package cmd

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/mensylisir/tps/common"
	"github.com/mensylisir/tps/resolver"
	"github.com/mensylisir/tps/runner"
)

// Describe turns an error into the one-line message the CLI prints.
func Describe(err error) string {
	prefix := common.AppName + ": "

	var (
		resErr     *resolver.ResolutionError
		launchErr  *runner.LaunchError
		failedErr  *runner.CommandFailedError
		elevErr    *runner.ElevationError
		timeoutErr *runner.TimeoutError
	)
	switch {
	case errors.As(err, &elevErr):
		return prefix + fmt.Sprintf("could not obtain elevated privileges for %s: %s (check your %s credentials and permissions)",
			elevErr.Executable, elevErr.Reason, elevErr.Mechanism)
	case errors.As(err, &timeoutErr):
		if timeoutErr.Canceled() {
			return prefix + fmt.Sprintf("%s was interrupted", timeoutErr.Executable)
		}
		return prefix + timeoutErr.Error() + "; the process was terminated"
	case errors.As(err, &failedErr):
		return prefix + failedErr.Error()
	case errors.As(err, &launchErr):
		return prefix + launchErr.Error() + " (is it installed and on PATH?)"
	case errors.As(err, &resErr):
		return prefix + resErr.Error()
	default:
		return prefix + err.Error()
	}
}

package runner

import (
	"context"
)

// Runner executes command specs on the local machine, elevating them when
// they require it.
type Runner interface {
	// Run executes spec to completion. On success the result carries the
	// captured output; on failure the error is one of *resolver.ResolutionError,
	// *LaunchError, *CommandFailedError, *ElevationError or *TimeoutError.
	Run(ctx context.Context, spec CommandSpec) (*ExecutionResult, error)
}

// PathResolver expands path expressions before a command runs.
type PathResolver interface {
	Resolve(expr string) (string, error)
}

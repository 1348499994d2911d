package runner

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/tps/common"
	"github.com/mensylisir/tps/executor"
	"github.com/mensylisir/tps/logger"
	"github.com/mensylisir/tps/resolver"
	tpstime "github.com/mensylisir/tps/time"
)

// DefaultTerminateGrace is how long an elevation wrapper may take to relay
// termination to its child before it is killed.
const DefaultTerminateGrace = 2 * time.Second

// LookPathFunc locates an executable and returns its absolute path.
type LookPathFunc func(file string) (string, error)

// PrivilegeProbe reports whether the current process already runs elevated.
type PrivilegeProbe func() bool

// CmdRunner implements Runner on top of an executor.Executor. It holds no
// mutable state after construction and is safe for concurrent use.
type CmdRunner struct {
	exec     executor.Executor
	resolver PathResolver
	lookPath LookPathFunc
	elevated PrivilegeProbe
	elevator Elevator
	grace    time.Duration
	log      *logger.XMLog
	newRunID func() string
}

var _ Runner = (*CmdRunner)(nil)

// Option configures a CmdRunner.
type Option func(*CmdRunner)

// WithExecutor replaces the local process executor.
func WithExecutor(e executor.Executor) Option {
	return func(r *CmdRunner) { r.exec = e }
}

// WithResolver replaces the path resolver.
func WithResolver(pr PathResolver) Option {
	return func(r *CmdRunner) { r.resolver = pr }
}

// WithLookPath replaces executable lookup. The default is the executor's.
func WithLookPath(fn LookPathFunc) Option {
	return func(r *CmdRunner) { r.lookPath = fn }
}

// WithPrivilegeProbe replaces IsElevated.
func WithPrivilegeProbe(fn PrivilegeProbe) Option {
	return func(r *CmdRunner) { r.elevated = fn }
}

// WithElevator replaces sudo.
func WithElevator(e Elevator) Option {
	return func(r *CmdRunner) { r.elevator = e }
}

// WithLogger sets the logger invocations log through.
func WithLogger(l *logger.XMLog) Option {
	return func(r *CmdRunner) { r.log = l }
}

// WithTerminateGrace sets how long an elevated run may take to stop after
// SIGTERM. Zero or less kills it at once.
func WithTerminateGrace(d time.Duration) Option {
	return func(r *CmdRunner) { r.grace = d }
}

// NewCmdRunner creates a runner for local commands.
func NewCmdRunner(opts ...Option) *CmdRunner {
	r := &CmdRunner{
		elevated: IsElevated,
		elevator: DefaultElevator(),
		grace:    DefaultTerminateGrace,
		newRunID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.exec == nil {
		r.exec = executor.NewLocalExecutor()
	}
	if r.resolver == nil {
		r.resolver = resolver.New()
	}
	if r.lookPath == nil {
		r.lookPath = r.exec.LookPath
	}
	if r.elevated == nil {
		r.elevated = IsElevated
	}
	if r.log == nil {
		r.log = logger.Discard()
	}
	return r
}

// invocation tracks one Run call.
type invocation struct {
	state common.InvocationState
	log   *logrus.Entry
}

func (inv *invocation) advance(next common.InvocationState) {
	if inv.state.Terminal() || next <= inv.state {
		// Unreachable unless Run itself is broken.
		panic("runner: invalid state transition " + inv.state.String() + " -> " + next.String())
	}
	inv.log.WithField(common.State, next.String()).Debugf("state %s -> %s", inv.state, next)
	inv.state = next
}

func (inv *invocation) fail(err error) error {
	inv.advance(common.StateFailed)
	inv.log.WithField("kind", KindOf(err).String()).Debugf("invocation failed: %v", err)
	return err
}

// resolved is a spec with every path expression expanded.
type resolved struct {
	executable string
	args       []string
	dir        string
}

// Run implements Runner.
func (r *CmdRunner) Run(ctx context.Context, spec CommandSpec) (*ExecutionResult, error) {
	runID := r.newRunID()
	inv := &invocation{state: common.StatePending, log: r.log.ForCommand(runID, spec.Executable)}
	inv.log.WithField(common.State, inv.state.String()).Debugf("received command with %d args, %d bytes of stdin",
		len(spec.Args), len(spec.Input))

	res, err := r.resolve(spec)
	if err != nil {
		return nil, inv.fail(err)
	}
	inv.advance(common.StateArgumentsResolved)

	// The process starts in res.dir, so a relative file path names a file
	// there and not in this process's working directory.
	if res.dir != "" && isPathExpr(res.executable) && !filepath.IsAbs(res.executable) {
		res.executable = filepath.Join(res.dir, res.executable)
	}

	target, err := r.lookPath(res.executable)
	if err != nil {
		return nil, inv.fail(&LaunchError{Executable: spec.Executable, Reason: "executable not found", Err: err})
	}

	proc := executor.Process{
		Path: target,
		Args: res.args,
		Dir:  res.dir,
		Env:  spec.Env,
	}
	if spec.Input != nil {
		proc.Stdin = append([]byte{}, spec.Input...)
	}

	elevate := spec.RequiresElevation && !r.elevated()
	if elevate {
		mechanism, lookErr := r.lookPath(r.elevator.Program)
		if lookErr != nil {
			return nil, inv.fail(&ElevationError{
				Mechanism:  r.elevator.Program,
				Executable: spec.Executable,
				Reason:     "elevation program not available",
				ExitCode:   -1,
				Err:        lookErr,
			})
		}
		proc.Path = mechanism
		proc.Args = r.elevator.Command(target, res.args)
		proc.Relay = true
		proc.GracePeriod = r.grace
	}
	inv.log = inv.log.WithField(common.Elevated, elevate)
	inv.advance(common.StateElevationDecided)

	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	inv.advance(common.StateRunning)
	start := time.Now()
	out, err := r.exec.Execute(ctx, proc)
	duration := time.Since(start)

	if err != nil {
		return nil, inv.fail(r.classifyExecError(ctx, spec, elevate, out, err))
	}

	inv.log.Debugf("exited with status %d after %s, %d bytes of stdout, %d bytes of stderr",
		out.ExitCode, tpstime.ShortDur(duration), len(out.Stdout), len(out.Stderr))

	if out.ExitCode != 0 {
		return nil, inv.fail(r.classifyExit(spec, res, elevate, out))
	}

	inv.advance(common.StateSucceeded)
	return &ExecutionResult{
		RunID:    runID,
		ExitCode: out.ExitCode,
		Stdout:   out.Stdout,
		Stderr:   out.Stderr,
		Elevated: elevate,
		Duration: duration,
	}, nil
}

func (r *CmdRunner) resolve(spec CommandSpec) (*resolved, error) {
	res := &resolved{executable: spec.Executable}
	if spec.Executable == "" {
		return nil, &LaunchError{Executable: spec.Executable, Reason: "empty executable"}
	}
	if isPathExpr(spec.Executable) {
		p, err := r.resolver.Resolve(spec.Executable)
		if err != nil {
			return nil, err
		}
		res.executable = p
	}
	if spec.Dir != "" {
		p, err := r.resolver.Resolve(spec.Dir)
		if err != nil {
			return nil, err
		}
		res.dir = p
	}
	res.args = make([]string, len(spec.Args))
	for i, a := range spec.Args {
		if !a.IsPath {
			res.args[i] = a.Value
			continue
		}
		p, err := r.resolver.Resolve(a.Value)
		if err != nil {
			return nil, err
		}
		res.args[i] = p
	}
	return res, nil
}

func (r *CmdRunner) classifyExecError(ctx context.Context, spec CommandSpec, elevate bool, out *executor.Outcome, err error) error {
	var startErr *executor.StartError
	if errors.As(err, &startErr) {
		if elevate {
			return &ElevationError{
				Mechanism:  r.elevator.Program,
				Executable: spec.Executable,
				Reason:     "elevation program failed to start",
				ExitCode:   -1,
				Err:        startErr.Err,
			}
		}
		return &LaunchError{Executable: spec.Executable, Reason: "failed to start", Err: startErr.Err}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		cause := ctx.Err()
		if cause == nil {
			cause = err
		}
		te := &TimeoutError{
			Executable: spec.Executable,
			Timeout:    spec.Timeout,
			Elevated:   elevate,
			Err:        cause,
		}
		if out != nil {
			te.PID, te.Stdout, te.Stderr = out.PID, out.Stdout, out.Stderr
		}
		return te
	}

	return &LaunchError{Executable: spec.Executable, Reason: "execution failed", Err: err}
}

func (r *CmdRunner) classifyExit(spec CommandSpec, res *resolved, elevate bool, out *executor.Outcome) error {
	if elevate {
		if line, ok := r.elevator.Rejection(out.Stderr); ok {
			return &ElevationError{
				Mechanism:  r.elevator.Program,
				Executable: spec.Executable,
				Reason:     line,
				ExitCode:   out.ExitCode,
				Stderr:     out.Stderr,
			}
		}
		if line, ok := r.elevator.NotFound(out.Stderr); ok {
			return &LaunchError{Executable: spec.Executable, Reason: line}
		}
	}
	return &CommandFailedError{
		Executable: spec.Executable,
		Args:       res.args,
		ExitCode:   out.ExitCode,
		Stdout:     out.Stdout,
		Stderr:     out.Stderr,
		Elevated:   elevate,
	}
}

// isPathExpr reports whether an executable names a file instead of a PATH entry.
func isPathExpr(s string) bool {
	return strings.HasPrefix(s, "~") || strings.ContainsRune(s, '/') ||
		strings.ContainsRune(s, filepath.Separator)
}

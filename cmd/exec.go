package cmd

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mensylisir/tps/runner"
)

// Exec runs one command through the runner and forwards its output.
type Exec struct {
	App *App

	sudo    bool
	paths   []int
	dir     string
	timeout time.Duration
	stdin   bool
}

func (e *Exec) Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec [flags] [--] EXECUTABLE [ARGS...]",
		Short: "Run a command, elevating it with --sudo",
		Example: `  tps exec -- terraform version
  tps exec --sudo --path 2 -- terraform -chdir=/srv apply ~/tps/main.tfplan`,
		Args: cobra.MinimumNArgs(1),
		RunE: e.RunE,
	}
	f := cmd.Flags()
	f.SetInterspersed(false)
	f.BoolVar(&e.sudo, "sudo", false, "run with elevated privileges")
	f.IntSliceVar(&e.paths, "path", nil, "treat the Nth argument after the executable as a path (repeatable)")
	f.StringVar(&e.dir, "dir", "", "working directory, a path expression")
	f.DurationVar(&e.timeout, "timeout", 0, "terminate the command after this long (default from config)")
	f.BoolVar(&e.stdin, "stdin", false, "feed standard input to the command")
	return cmd
}

func (e *Exec) RunE(cmd *cobra.Command, args []string) error {
	spec, err := e.spec(cmd, args)
	if err != nil {
		return err
	}

	res, err := e.App.runner().Run(cmd.Context(), spec)
	if err != nil {
		e.forwardPartial(err)
		return err
	}
	e.forward(res.Stdout, res.Stderr)
	return nil
}

func (e *Exec) spec(cmd *cobra.Command, args []string) (runner.CommandSpec, error) {
	argv := runner.Literals(args[1:]...)
	for _, n := range e.paths {
		if n < 1 || n > len(argv) {
			return runner.CommandSpec{}, errors.Errorf("--path %d is out of range: %s has %d arguments", n, args[0], len(argv))
		}
		argv[n-1].IsPath = true
	}

	spec := runner.Command(args[0], argv...)
	if e.sudo {
		spec = spec.Elevated()
	}
	if e.dir != "" {
		spec = spec.In(e.dir)
	}

	timeout := e.App.config.Execution.DefaultTimeout
	if cmd.Flags().Changed("timeout") {
		timeout = e.timeout
	}
	if timeout < 0 {
		return runner.CommandSpec{}, errors.Errorf("--timeout must not be negative, got %s", timeout)
	}
	spec = spec.WithTimeout(timeout)

	if e.stdin {
		input, err := io.ReadAll(e.App.Stdin)
		if err != nil {
			return runner.CommandSpec{}, errors.Wrap(err, "failed to read standard input")
		}
		spec = spec.WithInput(input)
	}
	return spec, nil
}

// forwardPartial writes through whatever a failed run captured.
func (e *Exec) forwardPartial(err error) {
	var (
		failedErr  *runner.CommandFailedError
		timeoutErr *runner.TimeoutError
	)
	switch {
	case errors.As(err, &failedErr):
		e.forward(failedErr.Stdout, failedErr.Stderr)
	case errors.As(err, &timeoutErr):
		e.forward(timeoutErr.Stdout, timeoutErr.Stderr)
	}
}

func (e *Exec) forward(stdout, stderr []byte) {
	// Write errors on our own streams leave nothing to report to.
	_, _ = e.App.Stdout.Write(stdout)
	_, _ = e.App.Stderr.Write(stderr)
}

package cmd

import (
	"bytes"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mensylisir/tps/runner"
	tpstime "github.com/mensylisir/tps/time"
)

const defaultCheckTimeout = 10 * time.Second

// Check verifies that the tools tps drives are installed and runnable.
type Check struct {
	App *App

	timeout time.Duration
}

func (c *Check) Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [TOOL...]",
		Short: "Check that required tools are installed (default from config)",
		RunE:  c.RunE,
	}
	cmd.Flags().DurationVar(&c.timeout, "timeout", defaultCheckTimeout, "timeout for each version probe")
	return cmd
}

func (c *Check) RunE(cmd *cobra.Command, args []string) error {
	tools := args
	if len(tools) == 0 {
		tools = c.App.config.RequiredTools
	}

	r := c.App.runner()
	var missing []string
	for _, tool := range tools {
		res, err := r.Run(cmd.Context(), runner.Command(tool, runner.Literal("--version")).WithTimeout(c.timeout))
		switch runner.KindOf(err) {
		case runner.KindNone:
			fmt.Fprintf(c.App.Stdout, "%s: ok (%s) in %s\n", tool, versionLine(res.Stdout, res.Stderr), tpstime.ShortDur(res.Duration))
		case runner.KindCommandFailed:
			// Present and runnable, but without a --version flag.
			fmt.Fprintf(c.App.Stdout, "%s: ok\n", tool)
		default:
			c.App.log.Entry().WithError(err).Debugf("probe of %s failed", tool)
			fmt.Fprintf(c.App.Stdout, "%s: unavailable: %s\n", tool, Describe(err))
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("%d of %d required tools unavailable: %v", len(missing), len(tools), missing)
	}
	return nil
}

func versionLine(outputs ...[]byte) string {
	for _, out := range outputs {
		out = bytes.TrimSpace(out)
		if len(out) == 0 {
			continue
		}
		if i := bytes.IndexByte(out, '\n'); i >= 0 {
			out = bytes.TrimSpace(out[:i])
		}
		return string(out)
	}
	return "no version output"
}

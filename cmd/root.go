package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mensylisir/tps/common"
	"github.com/mensylisir/tps/config"
	"github.com/mensylisir/tps/logger"
	"github.com/mensylisir/tps/resolver"
	"github.com/mensylisir/tps/runner"
)

// App carries what every subcommand shares. The zero value is not usable;
// use NewApp.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// LookupEnv and LookupUser replace the process environment and the
	// account database for path resolution when set.
	LookupEnv  resolver.LookupEnvFunc
	LookupUser resolver.LookupUserFunc

	// NewRunner replaces the local runner when set.
	NewRunner func(cfg *config.RunnerConfig, log *logger.XMLog) runner.Runner

	flags    globalFlags
	config   *config.RunnerConfig
	resolver *resolver.Resolver
	log      *logger.XMLog
}

type globalFlags struct {
	configPath   string
	logDir       string
	logLevel     string
	verbose      bool
	sudoUserHome bool
}

// NewApp returns an App wired to the process streams.
func NewApp() *App {
	return &App{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// NewRoot builds the command tree.
func NewRoot(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:               common.AppName,
		Short:             "Run the local tools behind tps, elevating them when required",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: app.setup,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&app.flags.configPath, "config", "", "config file (default "+common.DefaultConfigPath+")")
	pf.StringVar(&app.flags.logDir, "log-dir", "", "write daily-rotated logs to this directory instead of the console")
	pf.StringVar(&app.flags.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	pf.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&app.flags.sudoUserHome, "sudo-user-home", false, "resolve ~ to the invoking user's home when run through sudo")

	root.AddCommand((&Exec{App: app}).Cmd())
	root.AddCommand((&Check{App: app}).Cmd())
	root.AddCommand((&Resolve{App: app}).Cmd())
	return root
}

// Execute runs the CLI against the process arguments and returns the exit status.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, NewApp(), os.Args[1:])
}

// Run executes args and reports any failure on app.Stderr. The status is 0
// on success and 1 on any error.
func Run(ctx context.Context, app *App, args []string) int {
	root := NewRoot(app)
	root.SetArgs(args)
	root.SetIn(app.Stdin)
	root.SetOut(app.Stdout)
	root.SetErr(app.Stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(app.Stderr, Describe(err))
		return 1
	}
	return 0
}

func (a *App) setup(cmd *cobra.Command, _ []string) error {
	var opts []resolver.Option
	if a.LookupEnv != nil {
		opts = append(opts, resolver.WithLookupEnv(a.LookupEnv))
	}
	if a.flags.sudoUserHome {
		opts = append(opts, resolver.WithSudoUserHome(a.LookupUser))
	}
	a.resolver = resolver.New(opts...)

	cfg, err := config.NewLoader(a.flags.configPath, a.resolver).Load()
	if err != nil {
		return err
	}
	a.config = cfg

	logDir := cfg.Logging.Dir
	if cmd.Flags().Changed("log-dir") {
		logDir = a.flags.logDir
	}
	if logDir != "" {
		if logDir, err = a.resolver.Resolve(logDir); err != nil {
			return errors.Wrap(err, "invalid log directory")
		}
	}

	level := cfg.LogLevel()
	if a.flags.logLevel != "" {
		if level, err = logrus.ParseLevel(a.flags.logLevel); err != nil {
			return errors.Wrapf(err, "invalid --log-level %q", a.flags.logLevel)
		}
	}

	l, err := logger.New(logger.Options{
		OutputPath: logDir,
		Verbose:    a.flags.verbose || cfg.Logging.Verbose,
		Level:      level,
		Console:    a.Stderr,
	})
	if err != nil {
		return err
	}
	a.log = l.WithCommand(cmd.Name())
	a.log.Entry().Debugf("configuration loaded, elevation through %s", cfg.Elevation.Program)
	return nil
}

func (a *App) runner() runner.Runner {
	if a.NewRunner != nil {
		return a.NewRunner(a.config, a.log)
	}
	opts := append(a.config.RunnerOptions(),
		runner.WithResolver(a.resolver),
		runner.WithLogger(a.log),
	)
	return runner.NewCmdRunner(opts...)
}

package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/tps/runner"
)

const (
	APIVersion = "tps.io/v1alpha1"
	Kind       = "RunnerConfig"
)

// RunnerConfig is the top-level configuration structure.
type RunnerConfig struct {
	APIVersion    string        `yaml:"apiVersion"`
	Kind          string        `yaml:"kind"`
	Elevation     ElevationSpec `yaml:"elevation"`
	Execution     ExecutionSpec `yaml:"execution"`
	Logging       LoggingSpec   `yaml:"logging"`
	RequiredTools []string      `yaml:"requiredTools,omitempty"` // checked by `tps check`
}

// ElevationSpec configures the privilege elevation mechanism.
type ElevationSpec struct {
	Program          string   `yaml:"program,omitempty"` // e.g., sudo, doas
	Args             []string `yaml:"args,omitempty"`
	NonInteractive   bool     `yaml:"nonInteractive,omitempty"`
	PreserveEnv      bool     `yaml:"preserveEnv,omitempty"`
	RejectionMarkers []string `yaml:"rejectionMarkers,omitempty"` // added to the built-in sudo markers
}

// ExecutionSpec configures command timeouts.
type ExecutionSpec struct {
	DefaultTimeout time.Duration  `yaml:"defaultTimeout,omitempty"`
	TerminateGrace *time.Duration `yaml:"terminateGrace,omitempty"` // Pointer to distinguish between 0 and not set
}

// LoggingSpec configures the global logger.
type LoggingSpec struct {
	Dir     string `yaml:"dir,omitempty"` // path expression, console only when empty
	Verbose bool   `yaml:"verbose,omitempty"`
	Level   string `yaml:"level,omitempty"`
}

// Validate checks the values SetDefaults cannot fix.
func (c *RunnerConfig) Validate() error {
	if c.APIVersion != APIVersion {
		return errors.Errorf("apiVersion must be %q, got %q", APIVersion, c.APIVersion)
	}
	if c.Kind != Kind {
		return errors.Errorf("kind must be %q, got %q", Kind, c.Kind)
	}
	if c.Execution.DefaultTimeout < 0 {
		return errors.Errorf("execution.defaultTimeout must not be negative, got %s", c.Execution.DefaultTimeout)
	}
	if g := c.Execution.TerminateGrace; g != nil && *g < 0 {
		return errors.Errorf("execution.terminateGrace must not be negative, got %s", *g)
	}
	if c.Logging.Level != "" {
		if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
			return errors.Wrap(err, "invalid logging.level")
		}
	}
	for i, tool := range c.RequiredTools {
		if strings.TrimSpace(tool) == "" {
			return errors.Errorf("requiredTools[%d] is empty", i)
		}
	}
	return nil
}

// Elevator converts the elevation section into the runner's mechanism.
func (c *RunnerConfig) Elevator() runner.Elevator {
	e := runner.DefaultElevator()
	if c.Elevation.Program != "" {
		e.Program = c.Elevation.Program
	}
	e.Args = append([]string{}, c.Elevation.Args...)
	e.NonInteractive = c.Elevation.NonInteractive
	e.PreserveEnv = c.Elevation.PreserveEnv
	e.RejectionMarkers = append(e.RejectionMarkers, c.Elevation.RejectionMarkers...)
	return e
}

// LogLevel returns the configured level, info when unset.
func (c *RunnerConfig) LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// RunnerOptions returns the runner options this configuration implies.
func (c *RunnerConfig) RunnerOptions() []runner.Option {
	opts := []runner.Option{runner.WithElevator(c.Elevator())}
	if c.Execution.TerminateGrace != nil {
		opts = append(opts, runner.WithTerminateGrace(*c.Execution.TerminateGrace))
	}
	return opts
}

package config

import (
	"github.com/mensylisir/tps/common"
	"github.com/mensylisir/tps/runner"
)

const (
	DefaultLogLevel = "info"
)

// DefaultRequiredTools are the external programs the tps workflows drive.
var DefaultRequiredTools = []string{"terraform", "aws", "ssh-keygen"}

// Default returns a configuration with every default applied.
func Default() *RunnerConfig {
	cfg := &RunnerConfig{APIVersion: APIVersion, Kind: Kind}
	SetDefaults(cfg)
	return cfg
}

// SetDefaults fills unset values in cfg. Explicit zero durations are kept.
func SetDefaults(cfg *RunnerConfig) {
	if cfg == nil {
		return
	}
	if cfg.Elevation.Program == "" {
		cfg.Elevation.Program = common.DefaultElevationProgram
	}
	if cfg.Execution.TerminateGrace == nil {
		grace := runner.DefaultTerminateGrace
		cfg.Execution.TerminateGrace = &grace
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if len(cfg.RequiredTools) == 0 {
		cfg.RequiredTools = append([]string{}, DefaultRequiredTools...)
	}
}

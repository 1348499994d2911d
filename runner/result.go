package runner

import (
	"time"
)

// ExecutionResult holds the outcome of a successful run.
type ExecutionResult struct {
	RunID    string // correlates the result with its log lines
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Elevated bool // true if the elevation mechanism was applied
	Duration time.Duration
}

package common

import (
	"io/fs"
)

const (
	AppName = "tps"

	// DefaultConfigPath is a path expression, resolved before use.
	DefaultConfigPath = "~/.config/tps/config.yaml"
)

// Log field keys shared by the runner, the executor and the CLI.
const (
	RunID      = "RunID"
	Executable = "Executable"
	Elevated   = "Elevated"
	State      = "State"
	Command    = "Command"
)

// FileMode0755 represents rwxr-xr-x
const FileMode0755 fs.FileMode = 0755

const (
	DefaultElevationProgram = "sudo"
	// ArgTerminator separates the elevation program's own flags from the command.
	ArgTerminator = "--"
)

// InvocationState is the lifecycle of a single command invocation.
// There is no edge from a terminal state back to StateRunning.
type InvocationState int

const (
	StatePending           InvocationState = iota // 0
	StateArgumentsResolved                        // 1
	StateElevationDecided                         // 2
	StateRunning                                  // 3
	StateSucceeded                                // 4
	StateFailed                                   // 5
)

func (s InvocationState) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateArgumentsResolved:
		return "ArgumentsResolved"
	case StateElevationDecided:
		return "ElevationDecided"
	case StateRunning:
		return "Running"
	case StateSucceeded:
		return "Succeeded"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further transition is allowed from s.
func (s InvocationState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

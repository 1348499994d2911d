package runner

import (
	"time"
)

// Arg is one command argument. Path arguments go through the path resolver
// before execution; literal arguments are passed verbatim.
type Arg struct {
	Value  string
	IsPath bool
}

// Literal returns an argument passed as is.
func Literal(v string) Arg { return Arg{Value: v} }

// PathArg returns an argument that holds a path expression.
func PathArg(v string) Arg { return Arg{Value: v, IsPath: true} }

// Literals turns plain strings into literal arguments.
func Literals(vs ...string) []Arg {
	args := make([]Arg, len(vs))
	for i, v := range vs {
		args[i] = Literal(v)
	}
	return args
}

// CommandSpec describes one process invocation request. The runner never
// modifies a spec; the builder methods return modified copies.
type CommandSpec struct {
	// Executable is a name searched in PATH, or a path expression when it
	// contains a separator or starts with "~".
	Executable        string
	Args              []Arg
	RequiresElevation bool
	// Dir is an optional path expression for the working directory.
	Dir string
	// Input is fed to standard input when non-nil.
	Input []byte
	// Timeout bounds the run. Zero leaves only the caller's context.
	Timeout time.Duration
	// Env replaces the inherited environment when non-nil.
	Env []string
}

// Command starts a spec for executable with the given arguments.
func Command(executable string, args ...Arg) CommandSpec {
	return CommandSpec{Executable: executable, Args: cloneArgs(args)}
}

// Elevated returns a copy that requires elevated privileges.
func (s CommandSpec) Elevated() CommandSpec {
	s = s.clone()
	s.RequiresElevation = true
	return s
}

// In returns a copy running in the working directory dir.
func (s CommandSpec) In(dir string) CommandSpec {
	s = s.clone()
	s.Dir = dir
	return s
}

// WithInput returns a copy that feeds input to standard input.
func (s CommandSpec) WithInput(input []byte) CommandSpec {
	s = s.clone()
	s.Input = append([]byte{}, input...)
	return s
}

// WithTimeout returns a copy bounded by d.
func (s CommandSpec) WithTimeout(d time.Duration) CommandSpec {
	s = s.clone()
	s.Timeout = d
	return s
}

// WithEnv returns a copy with a replaced environment.
func (s CommandSpec) WithEnv(env ...string) CommandSpec {
	s = s.clone()
	s.Env = append([]string{}, env...)
	return s
}

// clone copies every slice so that a copy shares no backing array with s.
func (s CommandSpec) clone() CommandSpec {
	s.Args = cloneArgs(s.Args)
	if s.Input != nil {
		s.Input = append([]byte{}, s.Input...)
	}
	if s.Env != nil {
		s.Env = append([]string{}, s.Env...)
	}
	return s
}

func cloneArgs(args []Arg) []Arg {
	if args == nil {
		return nil
	}
	return append([]Arg{}, args...)
}

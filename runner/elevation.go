package runner

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"

	"github.com/mensylisir/tps/common"
)

// Elevator describes the privilege elevation mechanism and how to read its
// refusals. The zero value is not usable; start from DefaultElevator.
type Elevator struct {
	// Program is the mechanism, located in PATH unless absolute.
	Program string
	// Args are extra flags placed before the argument terminator.
	Args []string
	// NonInteractive makes the mechanism fail instead of prompting (-n).
	NonInteractive bool
	// PreserveEnv keeps the caller's environment (-E).
	PreserveEnv bool
	// RejectionMarkers are matched, case-insensitively, against the lines
	// the mechanism writes under its own name.
	RejectionMarkers []string
	// RejectionPrefixes are matched at the start of any stderr line.
	RejectionPrefixes []string
	// NotFoundMarkers identify a target the mechanism could not start.
	NotFoundMarkers []string
}

var (
	defaultRejectionMarkers = []string{
		"incorrect password attempt",
		"a password is required",
		"a terminal is required",
		"no tty present",
		"not in the sudoers file",
		"not allowed to",
		"authentication failure",
		"unknown user",
		"must be owned by uid 0",
		"effective uid is not 0",
	}
	defaultRejectionPrefixes = []string{"Sorry, user "}
	defaultNotFoundMarkers   = []string{"command not found", "unable to execute"}
)

// DefaultElevator returns sudo with its usual refusal messages.
func DefaultElevator() Elevator {
	return Elevator{
		Program:           common.DefaultElevationProgram,
		RejectionMarkers:  append([]string{}, defaultRejectionMarkers...),
		RejectionPrefixes: append([]string{}, defaultRejectionPrefixes...),
		NotFoundMarkers:   append([]string{}, defaultNotFoundMarkers...),
	}
}

// Name is the short name of the mechanism, as it prefixes its messages.
func (e Elevator) Name() string {
	return filepath.Base(e.Program)
}

// Command returns the mechanism arguments that run target with args. The
// terminator keeps target arguments from being read as mechanism flags.
func (e Elevator) Command(target string, args []string) []string {
	out := make([]string, 0, len(e.Args)+len(args)+4)
	out = append(out, e.Args...)
	if e.NonInteractive {
		out = append(out, "-n")
	}
	if e.PreserveEnv {
		out = append(out, "-E")
	}
	out = append(out, common.ArgTerminator, target)
	return append(out, args...)
}

// Rejection returns the mechanism line that explains a refusal, if any.
func (e Elevator) Rejection(stderr []byte) (string, bool) {
	return e.scan(stderr, e.RejectionMarkers, e.RejectionPrefixes)
}

// NotFound returns the mechanism line reporting an unstartable target, if any.
func (e Elevator) NotFound(stderr []byte) (string, bool) {
	return e.scan(stderr, e.NotFoundMarkers, nil)
}

func (e Elevator) scan(stderr []byte, markers, prefixes []string) (string, bool) {
	tag := e.Name() + ":"
	sc := bufio.NewScanner(bytes.NewReader(stderr))
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		for _, p := range prefixes {
			if p != "" && strings.HasPrefix(line, p) {
				return line, true
			}
		}
		if !strings.HasPrefix(line, tag) {
			continue
		}
		lower := strings.ToLower(line)
		for _, m := range markers {
			if m != "" && strings.Contains(lower, strings.ToLower(m)) {
				return line, true
			}
		}
	}
	return "", false
}

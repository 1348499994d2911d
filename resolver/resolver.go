// Package resolver expands user-relative path expressions into filesystem
// paths before they are handed to an executed command.
//
// Only the leading home marker is interpreted. A "~" or "~/..." prefix is
// replaced by the invoking user's home directory as reported by the process
// environment, matching ordinary shell expansion. Everything else is only
// separator-normalized.
package resolver

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

const homeMarker = '~'

// LookupEnvFunc has the signature of os.LookupEnv.
type LookupEnvFunc func(key string) (string, bool)

// LookupUserFunc returns the home directory of a named account.
type LookupUserFunc func(name string) (string, error)

// Resolver resolves path expressions. It is safe for concurrent use; it holds
// no state beyond its construction-time inputs.
type Resolver struct {
	lookupEnv  LookupEnvFunc
	lookupUser LookupUserFunc
	separator  byte
	windows    bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLookupEnv replaces os.LookupEnv as the source of the home directory.
func WithLookupEnv(fn LookupEnvFunc) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.lookupEnv = fn
		}
	}
}

// WithSudoUserHome makes the marker resolve to the home of SUDO_USER when it
// is set, so that a tps process started through sudo still finds the
// invoking user's credential files. A nil lookup uses the account database.
func WithSudoUserHome(lookup LookupUserFunc) Option {
	return func(r *Resolver) {
		if lookup == nil {
			lookup = lookupAccountHome
		}
		r.lookupUser = lookup
	}
}

// withPlatform overrides the host separator rules. Used by tests.
func withPlatform(goos string) Option {
	return func(r *Resolver) {
		r.windows = goos == "windows"
		r.separator = '/'
		if r.windows {
			r.separator = '\\'
		}
	}
}

// New returns a Resolver reading the home directory from the environment.
func New(opts ...Option) *Resolver {
	r := &Resolver{lookupEnv: os.LookupEnv}
	withPlatform(runtime.GOOS)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve expands a leading home marker and normalizes separators.
// It is idempotent: resolving its own output returns the output unchanged.
func (r *Resolver) Resolve(expr string) (string, error) {
	if expr == "" {
		return "", newResolutionError(expr, "path expression is empty")
	}
	if expr[0] != homeMarker {
		return r.normalize(expr), nil
	}

	rest := expr[1:]
	if rest != "" && !r.isSeparator(rest[0]) {
		name := rest
		if i := r.indexSeparator(rest); i >= 0 {
			name = rest[:i]
		}
		return "", newResolutionError(expr, "user-qualified home marker ~"+name+" is not supported")
	}

	home, err := r.home()
	if err != nil {
		return "", &ResolutionError{Expr: expr, Reason: err.Error(), Err: err}
	}
	if rest == "" {
		return r.normalize(home), nil
	}
	return r.normalize(home + string(r.separator) + rest), nil
}

// Home returns the home directory the marker expands to.
func (r *Resolver) Home() (string, error) {
	home, err := r.home()
	if err != nil {
		return "", &ResolutionError{Expr: string(homeMarker), Reason: err.Error(), Err: err}
	}
	return r.normalize(home), nil
}

func (r *Resolver) home() (string, error) {
	if r.lookupUser != nil {
		if sudoUser, ok := r.lookupEnv("SUDO_USER"); ok && sudoUser != "" && sudoUser != "root" {
			home, err := r.lookupUser(sudoUser)
			if err != nil {
				return "", errors.Wrapf(err, "failed to look up home of sudo user %s", sudoUser)
			}
			return r.checkAbsolute(home)
		}
	}

	if home, ok := r.lookupEnv("HOME"); ok && home != "" {
		return r.checkAbsolute(home)
	}
	if r.windows {
		if home, ok := r.lookupEnv("USERPROFILE"); ok && home != "" {
			return r.checkAbsolute(home)
		}
		drive, _ := r.lookupEnv("HOMEDRIVE")
		path, _ := r.lookupEnv("HOMEPATH")
		if drive != "" && path != "" {
			return r.checkAbsolute(drive + path)
		}
		return "", errors.New("HOME, USERPROFILE, HOMEDRIVE and HOMEPATH are not set")
	}
	return "", errors.New("HOME is not set")
}

func (r *Resolver) checkAbsolute(home string) (string, error) {
	if !r.isAbs(home) {
		return "", errors.Errorf("home directory %q is not absolute", home)
	}
	return home, nil
}

func (r *Resolver) isSeparator(c byte) bool {
	return c == '/' || (r.windows && c == '\\')
}

func (r *Resolver) indexSeparator(s string) int {
	for i := 0; i < len(s); i++ {
		if r.isSeparator(s[i]) {
			return i
		}
	}
	return -1
}

func (r *Resolver) isAbs(p string) bool {
	if !r.windows {
		return strings.HasPrefix(p, "/")
	}
	if len(p) >= 3 && p[1] == ':' && r.isSeparator(p[2]) {
		return true
	}
	// UNC and rooted paths.
	return len(p) > 0 && r.isSeparator(p[0])
}

// normalize collapses repeated separators and strips trailing ones, keeping
// a bare root. Dot segments are left as they are.
func (r *Resolver) normalize(p string) string {
	var b strings.Builder
	b.Grow(len(p))

	start := 0
	// Keep the leading double separator of a Windows UNC path.
	if r.windows && len(p) >= 2 && r.isSeparator(p[0]) && r.isSeparator(p[1]) {
		b.WriteByte(r.separator)
		b.WriteByte(r.separator)
		start = 2
	}

	prevSep := start > 0
	for i := start; i < len(p); i++ {
		c := p[i]
		if r.isSeparator(c) {
			if prevSep {
				continue
			}
			prevSep = true
			b.WriteByte(r.separator)
			continue
		}
		prevSep = false
		b.WriteByte(c)
	}

	out := b.String()
	for len(out) > 1 && r.isSeparator(out[len(out)-1]) && !r.isVolumeRoot(out) {
		out = out[:len(out)-1]
	}
	return out
}

// isVolumeRoot reports "C:\" style roots that must keep their separator.
func (r *Resolver) isVolumeRoot(p string) bool {
	return r.windows && len(p) == 3 && p[1] == ':'
}

func lookupAccountHome(name string) (string, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return "", err
	}
	if u.HomeDir == "" {
		return "", errors.Errorf("account %s has no home directory", name)
	}
	return filepath.Clean(u.HomeDir), nil
}

package resolver

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(vars map[string]string) LookupEnvFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func newUnix(vars map[string]string, opts ...Option) *Resolver {
	return New(append([]Option{withPlatform("linux"), WithLookupEnv(envOf(vars))}, opts...)...)
}

func TestResolve_HomeMarker(t *testing.T) {
	r := newUnix(map[string]string{"HOME": "/home/alice"})

	tests := []struct {
		name string
		expr string
		want string
	}{
		{name: "Bare marker", expr: "~", want: "/home/alice"},
		{name: "Marker with slash", expr: "~/", want: "/home/alice"},
		{name: "Credential path", expr: "~/creds/token", want: "/home/alice/creds/token"},
		{name: "Redundant separators", expr: "~//.ssh///trevorproxy/", want: "/home/alice/.ssh/trevorproxy"},
		{name: "Dot segments kept", expr: "~/./a/../b", want: "/home/alice/./a/../b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_HomeWithTrailingSeparator(t *testing.T) {
	r := newUnix(map[string]string{"HOME": "/home/bob/"})
	got, err := r.Resolve("~/x")
	require.NoError(t, err)
	assert.Equal(t, "/home/bob/x", got)

	root := newUnix(map[string]string{"HOME": "/"})
	got, err = root.Resolve("~")
	require.NoError(t, err)
	assert.Equal(t, "/", got)
}

func TestResolve_WithoutMarkerOnlyNormalizes(t *testing.T) {
	r := newUnix(map[string]string{})

	tests := []struct {
		expr string
		want string
	}{
		{expr: "/", want: "/"},
		{expr: "//", want: "/"},
		{expr: "/etc/passwd", want: "/etc/passwd"},
		{expr: "/var//log///", want: "/var/log"},
		{expr: "relative/dir/", want: "relative/dir"},
		{expr: "./a/../b", want: "./a/../b"},
		{expr: "a~/b", want: "a~/b"},
		{expr: ".", want: "."},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := r.Resolve(tt.expr)
			require.NoError(t, err, "no HOME is needed without a marker")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	r := newUnix(map[string]string{"HOME": "/home/alice"})

	for _, expr := range []string{"/opt/tps//bin/", "~/creds//token", "~", "rel//path/"} {
		first, err := r.Resolve(expr)
		require.NoError(t, err)
		second, err := r.Resolve(first)
		require.NoError(t, err)
		assert.Equal(t, first, second, "resolving %q twice", expr)
	}
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name   string
		vars   map[string]string
		expr   string
		reason string
	}{
		{name: "Empty expression", vars: map[string]string{"HOME": "/home/alice"}, expr: "", reason: "empty"},
		{name: "Missing HOME", vars: map[string]string{}, expr: "~/creds", reason: "HOME is not set"},
		{name: "Blank HOME", vars: map[string]string{"HOME": ""}, expr: "~", reason: "HOME is not set"},
		{name: "Relative HOME", vars: map[string]string{"HOME": "home/alice"}, expr: "~/x", reason: "not absolute"},
		{name: "User-qualified marker", vars: map[string]string{"HOME": "/home/alice"}, expr: "~bob/creds", reason: "~bob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newUnix(tt.vars)
			got, err := r.Resolve(tt.expr)
			require.Error(t, err)
			assert.Empty(t, got)

			var resErr *ResolutionError
			require.True(t, errors.As(err, &resErr), "error should be a *ResolutionError, got %T", err)
			assert.Equal(t, tt.expr, resErr.Expr)
			assert.Contains(t, resErr.Error(), tt.reason)
		})
	}
}

func TestResolve_SudoUserHome(t *testing.T) {
	lookup := func(name string) (string, error) {
		if name == "alice" {
			return "/home/alice", nil
		}
		return "", errors.Errorf("unknown user %s", name)
	}

	r := newUnix(map[string]string{"HOME": "/root", "SUDO_USER": "alice"}, WithSudoUserHome(lookup))
	got, err := r.Resolve("~/.aws/credentials")
	require.NoError(t, err)
	assert.Equal(t, "/home/alice/.aws/credentials", got)

	// Without SUDO_USER the environment wins.
	plain := newUnix(map[string]string{"HOME": "/root"}, WithSudoUserHome(lookup))
	got, err = plain.Resolve("~/.aws/credentials")
	require.NoError(t, err)
	assert.Equal(t, "/root/.aws/credentials", got)

	// The option is opt-in.
	noOpt := newUnix(map[string]string{"HOME": "/root", "SUDO_USER": "alice"})
	got, err = noOpt.Resolve("~")
	require.NoError(t, err)
	assert.Equal(t, "/root", got)

	broken := newUnix(map[string]string{"HOME": "/root", "SUDO_USER": "mallory"}, WithSudoUserHome(lookup))
	_, err = broken.Resolve("~")
	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Contains(t, resErr.Error(), "mallory")
}

func TestResolve_WindowsRules(t *testing.T) {
	r := New(withPlatform("windows"), WithLookupEnv(envOf(map[string]string{"USERPROFILE": `C:\Users\alice`})))

	got, err := r.Resolve(`~\creds\token`)
	require.NoError(t, err)
	assert.Equal(t, `C:\Users\alice\creds\token`, got)

	got, err = r.Resolve("~/creds//token/")
	require.NoError(t, err)
	assert.Equal(t, `C:\Users\alice\creds\token`, got)

	got, err = r.Resolve(`C:\`)
	require.NoError(t, err)
	assert.Equal(t, `C:\`, got)

	got, err = r.Resolve(`\\server\\share\`)
	require.NoError(t, err)
	assert.Equal(t, `\\server\share`, got)

	fallback := New(withPlatform("windows"), WithLookupEnv(envOf(map[string]string{"HOMEDRIVE": "D:", "HOMEPATH": `\Users\bob`})))
	got, err = fallback.Resolve("~")
	require.NoError(t, err)
	assert.Equal(t, `D:\Users\bob`, got)
}

func TestHome(t *testing.T) {
	r := newUnix(map[string]string{"HOME": "/home/alice//"})
	home, err := r.Home()
	require.NoError(t, err)
	assert.Equal(t, "/home/alice", home)

	_, err = newUnix(map[string]string{}).Home()
	assert.Error(t, err)
}

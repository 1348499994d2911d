package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/tps/resolver"
)

const sampleRunnerConfigYAML = `
apiVersion: tps.io/v1alpha1
kind: RunnerConfig
elevation:
  program: /usr/bin/sudo
  args: ["-u", "root"]
  nonInteractive: true
  preserveEnv: true
  rejectionMarkers: ["pam_authenticate"]
execution:
  defaultTimeout: 30s
  terminateGrace: 500ms
logging:
  dir: ~/.local/state/tps
  verbose: true
  level: debug
requiredTools: [terraform, ssh-keygen]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func homeResolver(home string) *resolver.Resolver {
	return resolver.New(resolver.WithLookupEnv(func(key string) (string, bool) {
		if key == "HOME" && home != "" {
			return home, true
		}
		return "", false
	}))
}

func TestLoader_Load(t *testing.T) {
	path := writeConfig(t, sampleRunnerConfigYAML)

	cfg, err := NewLoader(path, nil).Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, APIVersion, cfg.APIVersion)
	assert.Equal(t, Kind, cfg.Kind)
	assert.Equal(t, "/usr/bin/sudo", cfg.Elevation.Program)
	assert.Equal(t, []string{"-u", "root"}, cfg.Elevation.Args)
	assert.True(t, cfg.Elevation.NonInteractive)
	assert.True(t, cfg.Elevation.PreserveEnv)
	assert.Equal(t, 30*time.Second, cfg.Execution.DefaultTimeout)
	require.NotNil(t, cfg.Execution.TerminateGrace)
	assert.Equal(t, 500*time.Millisecond, *cfg.Execution.TerminateGrace)
	assert.Equal(t, "~/.local/state/tps", cfg.Logging.Dir)
	assert.True(t, cfg.Logging.Verbose)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel())
	assert.Equal(t, []string{"terraform", "ssh-keygen"}, cfg.RequiredTools)
}

func TestLoader_Defaults(t *testing.T) {
	path := writeConfig(t, "apiVersion: tps.io/v1alpha1\nkind: RunnerConfig\n")

	cfg, err := NewLoader(path, nil).Load()
	require.NoError(t, err)
	assert.Equal(t, "sudo", cfg.Elevation.Program)
	assert.Zero(t, cfg.Execution.DefaultTimeout)
	require.NotNil(t, cfg.Execution.TerminateGrace)
	assert.Equal(t, 2*time.Second, *cfg.Execution.TerminateGrace)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel())
	assert.Equal(t, DefaultRequiredTools, cfg.RequiredTools)
}

func TestLoader_ExplicitZeroGraceIsKept(t *testing.T) {
	path := writeConfig(t, "apiVersion: tps.io/v1alpha1\nkind: RunnerConfig\nexecution:\n  terminateGrace: 0s\n")

	cfg, err := NewLoader(path, nil).Load()
	require.NoError(t, err)
	require.NotNil(t, cfg.Execution.TerminateGrace)
	assert.Zero(t, *cfg.Execution.TerminateGrace)
}

func TestLoader_DefaultPath(t *testing.T) {
	home := t.TempDir()

	t.Run("Missing default file yields defaults", func(t *testing.T) {
		l := NewLoader("", homeResolver(home))
		path, err := l.Path()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".config", "tps", "config.yaml"), path)

		cfg, err := l.Load()
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("No home yields defaults", func(t *testing.T) {
		cfg, err := NewLoader("", homeResolver("")).Load()
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("Existing default file is read", func(t *testing.T) {
		dir := filepath.Join(home, ".config", "tps")
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(sampleRunnerConfigYAML), 0644))

		cfg, err := NewLoader("", homeResolver(home)).Load()
		require.NoError(t, err)
		assert.Equal(t, "/usr/bin/sudo", cfg.Elevation.Program)
	})
}

func TestLoader_ExplicitPathExpression(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, "tps.yaml"), []byte(sampleRunnerConfigYAML), 0644))

	cfg, err := NewLoader("~/tps.yaml", homeResolver(home)).Load()
	require.NoError(t, err)
	assert.True(t, cfg.Logging.Verbose)
}

func TestLoader_Errors(t *testing.T) {
	testCases := []struct {
		name          string
		yamlContent   string
		expectedError string
	}{
		{
			name:          "APIVersion missing",
			yamlContent:   "kind: RunnerConfig\n",
			expectedError: "apiVersion must be",
		},
		{
			name:          "Kind wrong",
			yamlContent:   "apiVersion: tps.io/v1alpha1\nkind: ClusterConfig\n",
			expectedError: "kind must be",
		},
		{
			name:          "Unknown field",
			yamlContent:   "apiVersion: tps.io/v1alpha1\nkind: RunnerConfig\nelevation:\n  passwd: hunter2\n",
			expectedError: "failed to unmarshal",
		},
		{
			name:          "Bad duration",
			yamlContent:   "apiVersion: tps.io/v1alpha1\nkind: RunnerConfig\nexecution:\n  defaultTimeout: soon\n",
			expectedError: "failed to unmarshal",
		},
		{
			name:          "Negative timeout",
			yamlContent:   "apiVersion: tps.io/v1alpha1\nkind: RunnerConfig\nexecution:\n  defaultTimeout: -1s\n",
			expectedError: "must not be negative",
		},
		{
			name:          "Bad level",
			yamlContent:   "apiVersion: tps.io/v1alpha1\nkind: RunnerConfig\nlogging:\n  level: loud\n",
			expectedError: "invalid logging.level",
		},
		{
			name:          "Empty tool",
			yamlContent:   "apiVersion: tps.io/v1alpha1\nkind: RunnerConfig\nrequiredTools: [terraform, \" \"]\n",
			expectedError: "requiredTools[1] is empty",
		},
		{
			name:          "Empty file",
			yamlContent:   "\n\n",
			expectedError: "is empty",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.yamlContent)
			cfg, err := NewLoader(path, nil).Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tc.expectedError)
		})
	}
}

func TestLoader_MissingExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")
	cfg, err := NewLoader(path, nil).Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)
}

func TestRunnerConfig_Elevator(t *testing.T) {
	cfg, err := Parse([]byte(sampleRunnerConfigYAML))
	require.NoError(t, err)

	e := cfg.Elevator()
	assert.Equal(t, "/usr/bin/sudo", e.Program)
	assert.Equal(t, "sudo", e.Name())
	assert.Equal(t, []string{"-u", "root", "-n", "-E", "--", "/bin/id"}, e.Command("/bin/id", nil))
	assert.Contains(t, e.RejectionMarkers, "pam_authenticate")
	assert.Contains(t, e.RejectionMarkers, "a password is required", "built-in markers are kept")

	_, ok := e.Rejection([]byte("sudo: pam_authenticate: Conversation error\n"))
	assert.True(t, ok)

	assert.Len(t, cfg.RunnerOptions(), 2)
	assert.Len(t, (&RunnerConfig{}).RunnerOptions(), 1)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, fmt.Sprint(DefaultRequiredTools), fmt.Sprint(cfg.RequiredTools))

	// Callers may modify the defaults they get.
	cfg.RequiredTools[0] = "packer"
	assert.Equal(t, "terraform", DefaultRequiredTools[0])
}

package config

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mensylisir/tps/common"
	"github.com/mensylisir/tps/resolver"
	"github.com/mensylisir/tps/runner"
)

// Loader handles loading and defaulting of the RunnerConfig from a file.
type Loader struct {
	filePath string
	explicit bool
	resolver runner.PathResolver
}

// NewLoader creates a loader for filePath, a path expression. An empty
// filePath selects common.DefaultConfigPath, which may be absent.
func NewLoader(filePath string, pr runner.PathResolver) *Loader {
	l := &Loader{filePath: filePath, explicit: filePath != "", resolver: pr}
	if !l.explicit {
		l.filePath = common.DefaultConfigPath
	}
	if l.resolver == nil {
		l.resolver = resolver.New()
	}
	return l
}

// Path returns the resolved configuration path.
func (l *Loader) Path() (string, error) {
	return l.resolver.Resolve(l.filePath)
}

// Load reads, validates and defaults the configuration. A missing default
// file yields Default(); a missing explicit file is an error.
func (l *Loader) Load() (*RunnerConfig, error) {
	path, err := l.Path()
	if err != nil {
		if !l.explicit {
			// No home directory: there is no default file to read.
			return Default(), nil
		}
		return nil, errors.Wrap(err, "failed to resolve config path")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !l.explicit {
			return Default(), nil
		}
		return nil, errors.Wrapf(err, "failed to read config file '%s'", path)
	}

	if len(bytes.TrimSpace(content)) == 0 {
		return nil, errors.Errorf("configuration file '%s' is empty", path)
	}

	cfg, err := Parse(content)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid config file '%s'", path)
	}
	return cfg, nil
}

// Parse decodes a YAML document, rejecting unknown fields.
func Parse(content []byte) (*RunnerConfig, error) {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var cfg RunnerConfig
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no YAML document found")
		}
		return nil, errors.Wrap(err, "failed to unmarshal config YAML")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	SetDefaults(&cfg)
	return &cfg, nil
}

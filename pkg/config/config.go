// Package config loads the optional .markols.yaml project file.
package config

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/markols/pkg/a11y"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

const FileName = ".markols.yaml"

type Config struct {
	LogLevel string `yaml:"logLevel"`
	A11y     A11y   `yaml:"a11y"`
	Check    Check  `yaml:"check"`
}

type A11y struct {
	// Disabled rules are never run.
	Disabled []string `yaml:"disabled"`
	// Exceptions replace the built-in exception of the rules they name.
	Exceptions map[string]a11y.Exception `yaml:"exceptions"`
}

type Check struct {
	// Include holds doublestar globs relative to the directory of the config file.
	Include []string `yaml:"include"`
}

func Default() *Config {
	return &Config{
		LogLevel: zerolog.InfoLevel.String(),
		Check:    Check{Include: []string{"**/*.marko"}},
	}
}

// Parse decodes and validates a config file. Fields the file leaves out keep their defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Errorf("parsing %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads path from fs. A missing file is not an error and yields the defaults.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, errors.Errorf("reading %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Errorf("loading %s: %w", path, err)
	}
	return cfg, nil
}

// Find looks for FileName in dir and its parents.
func Find(fs afero.Fs, dir string) (string, bool) {
	dir = filepath.Clean(dir)
	for {
		candidate := filepath.Join(dir, FileName)
		if ok, _ := afero.Exists(fs, candidate); ok {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var merr *multierror.Error

	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
			merr = multierror.Append(merr, errors.Errorf("logLevel: %w", err))
		}
	}

	for _, rule := range c.A11y.Disabled {
		if _, ok := a11y.RuleExceptions[rule]; !ok {
			merr = multierror.Append(merr, errors.Errorf("a11y.disabled: unknown rule %q", rule))
		}
	}

	rules := make([]string, 0, len(c.A11y.Exceptions))
	for rule := range c.A11y.Exceptions {
		rules = append(rules, rule)
	}
	sort.Strings(rules)
	for _, rule := range rules {
		if _, ok := a11y.RuleExceptions[rule]; !ok {
			merr = multierror.Append(merr, errors.Errorf("a11y.exceptions: unknown rule %q", rule))
		}
	}

	for _, pattern := range c.Check.Include {
		if !doublestar.ValidatePattern(pattern) {
			merr = multierror.Append(merr, errors.Errorf("check.include: bad pattern %q", pattern))
		}
	}

	return merr.ErrorOrNil()
}

// Level is the configured log level, info when unset.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Exceptions is the built-in exception policy with the configured overrides applied.
func (c *Config) Exceptions() map[string]a11y.Exception {
	out := a11y.DefaultExceptions()
	for rule, ex := range c.A11y.Exceptions {
		out[rule] = ex
	}
	return out
}

package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/markols/pkg/a11y"
	"github.com/walteh/markols/pkg/config"
)

func TestParse(t *testing.T) {
	cfg, err := config.Parse([]byte(`
logLevel: debug
a11y:
  disabled: [html-has-lang]
  exceptions:
    image-alt:
      attrSpread: false
      dynamicAttrs: [role, alt]
check:
  include: ["src/**/*.marko"]
`))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Level().String())
	assert.Equal(t, []string{"html-has-lang"}, cfg.A11y.Disabled)
	assert.Equal(t, []string{"src/**/*.marko"}, cfg.Check.Include)

	ex := cfg.Exceptions()
	assert.Equal(t, a11y.Exception{DynamicAttrs: []string{"role", "alt"}}, ex["image-alt"])
	assert.Equal(t, a11y.RuleExceptions["button-name"], ex["button-name"])
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := config.Parse([]byte("a11y:\n  disabled: [label]\n"))
	require.NoError(t, err)
	assert.Equal(t, config.Default().Check.Include, cfg.Check.Include)
	assert.Equal(t, "info", cfg.Level().String())
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	_, err := config.Parse([]byte(`
logLevel: loud
a11y:
  disabled: [no-such-rule]
  exceptions:
    other-rule: {}
check:
  include: ["src/[a-"]
`))
	require.Error(t, err)
	for _, want := range []string{"logLevel", `"no-such-rule"`, `"other-rule"`, `"src/[a-"`} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestParseBadYAML(t *testing.T) {
	_, err := config.Parse([]byte("a11y: [unclosed"))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()

	cfg, err := config.Load(fs, "/proj/.markols.yaml")
	require.NoError(t, err, "a missing file is the default config")
	assert.Equal(t, config.Default(), cfg)

	require.NoError(t, afero.WriteFile(fs, "/proj/.markols.yaml", []byte("logLevel: warn\n"), 0o644))
	cfg, err = config.Load(fs, "/proj/.markols.yaml")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestFind(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/.markols.yaml", []byte(""), 0o644))
	require.NoError(t, fs.MkdirAll("/proj/src/components", 0o755))

	path, ok := config.Find(fs, "/proj/src/components")
	require.True(t, ok)
	assert.Equal(t, filepath.Join("/proj", config.FileName), path)

	_, ok = config.Find(afero.NewMemMapFs(), "/elsewhere")
	assert.False(t, ok)
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(path, []byte("logLevel: info\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *config.Config, 4)
	_, err := config.Watch(ctx, afero.NewOsFs(), path, func(cfg *config.Config) {
		changes <- cfg
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("logLevel: debug\n"), 0o644))

	select {
	case cfg := <-changes:
		assert.Equal(t, "debug", cfg.LogLevel)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestWatchKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(path, []byte("logLevel: info\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *config.Config, 4)
	_, err := config.Watch(ctx, afero.NewOsFs(), path, func(cfg *config.Config) {
		changes <- cfg
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("logLevel: loud\n"), 0o644))

	select {
	case cfg := <-changes:
		t.Fatalf("invalid config was applied: %+v", cfg)
	case <-time.After(500 * time.Millisecond):
	}
}

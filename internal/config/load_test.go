package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Watch.Enabled)
	assert.Equal(t, 500, cfg.Watch.DebounceMS)
	assert.Equal(t, 30, cfg.Source.FetchTimeoutSeconds)
	assert.Equal(t, int64(5*1024*1024), cfg.Source.MaxBytes)
	assert.Equal(t, "expertkb.db", filepath.Base(cfg.Database.Path))
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
addr = ":9999"

[watch]
enabled = true
debounce_ms = 50

[source]
path = "animals.kb"
`), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, 50, cfg.Watch.DebounceMS)
	assert.Equal(t, "animals.kb", cfg.Source.Path)
	assert.Equal(t, "info", cfg.Log.Level, "unset keys keep defaults")
}

func TestLoadFindsProjectConfigUpward(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("[log]\nlevel = \"debug\"\n"), 0o644))

	t.Chdir(nested)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("EXPERTKB_SERVER_ADDR", "127.0.0.1:7000")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"), nil)
	assert.Error(t, err)
}

func TestDatabasePathExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", home)
	t.Setenv("EXPERTKB_DATABASE_PATH", "~/kb/history.db")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "kb", "history.db"), cfg.Database.Path)
}

func TestFlagsOverrideConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("EXPERTKB_DATABASE_PATH", "/from/env.db")

	flags := pflag.NewFlagSet("expertkb", pflag.ContinueOnError)
	flags.String("db", "", "")
	flags.Bool("json-logs", false, "")
	flags.Bool("verbose", false, "")

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "/from/env.db", cfg.Database.Path, "unset flags do not override")
	assert.False(t, cfg.Log.JSON)
	assert.Equal(t, "info", cfg.Log.Level)

	require.NoError(t, flags.Parse([]string{"--db", "/from/flag.db", "--json-logs", "--verbose"}))
	cfg, err = Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "/from/flag.db", cfg.Database.Path)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "debug", cfg.Log.Level)
}

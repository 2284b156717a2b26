package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/git-cafe/internal/domain"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ConfigFileName), []byte(content), 0o644))
}

func TestLoader_Load_Defaults(t *testing.T) {
	loader := NewLoaderWithGlobalDir(t.TempDir(), t.TempDir(), nil)

	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, domain.NewDefaultConfig(), cfg)
}

func TestLoader_Load_DataConfigOnly(t *testing.T) {
	// Setup
	dataDir := t.TempDir()
	writeConfig(t, dataDir, `
default_provider = "codex"

[store]
type = "sqlite"

[worktree]
root = "/tmp/trees"
prefix = "cafe"
base_branch = "develop"

[merge]
target = "release"
squash = true
delete = false

[log]
level = "debug"

[engine]
log_buffer = 50

[providers.codex]
command_template = "codex exec {{.Prompt}}"
model = "o3"
`)

	// Execute
	cfg, err := NewLoaderWithGlobalDir(dataDir, t.TempDir(), nil).Load()

	// Assert
	require.NoError(t, err)
	assert.Empty(t, cfg.Warnings)
	assert.Equal(t, "codex", cfg.DefaultProvider)
	assert.Equal(t, domain.StoreTypeSQLite, cfg.Store.Type)
	assert.Equal(t, domain.WorktreeConfig{Root: "/tmp/trees", Prefix: "cafe", BaseBranch: "develop"}, cfg.Worktree)
	assert.Equal(t, domain.MergeConfig{Target: "release", Squash: true, Delete: false}, cfg.Merge)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 50, cfg.Engine.LogBuffer)
	assert.Equal(t, domain.Provider{CommandTemplate: "codex exec {{.Prompt}}", Model: "o3"}, cfg.Providers["codex"])
}

func TestLoader_Load_DataOverridesGlobal(t *testing.T) {
	// Setup
	dataDir := t.TempDir()
	globalDir := t.TempDir()
	writeConfig(t, globalDir, `
[providers.claude]
command_template = "claude -p {{.Prompt}}"
args = "--verbose"

[merge]
target = "develop"
squash = true

[log]
level = "warn"
`)
	writeConfig(t, dataDir, `
[providers.claude]
args = "--debug"

[merge]
squash = false
`)

	// Execute
	cfg, err := NewLoaderWithGlobalDir(dataDir, globalDir, nil).Load()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "claude -p {{.Prompt}}", cfg.Providers["claude"].CommandTemplate) // From global
	assert.Equal(t, "--debug", cfg.Providers["claude"].Args)                          // Overridden by data dir
	assert.Equal(t, "develop", cfg.Merge.Target)
	assert.False(t, cfg.Merge.Squash)
	assert.True(t, cfg.Merge.Delete) // Default survives both files
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoader_Load_BuiltinProviders(t *testing.T) {
	dataDir := t.TempDir()
	writeConfig(t, dataDir, `
[providers.claude]
model = "sonnet"
`)
	lookPath := mockLookPath(map[string]bool{"claude": true})

	cfg, err := NewLoaderWithGlobalDir(dataDir, "", lookPath).Load()

	require.NoError(t, err)
	assert.Equal(t, "sonnet", cfg.Providers["claude"].Model)
	assert.Contains(t, cfg.Providers["claude"].CommandTemplate, "claude -p")
	assert.NotContains(t, cfg.Providers, "codex")
}

func TestLoader_Load_Warnings(t *testing.T) {
	dataDir := t.TempDir()
	writeConfig(t, dataDir, `
[tasks]
x = 1

[merge]
squash = "yes"
strategy = "ours"

[providers.broken]
args = "-v"
`)

	cfg, err := NewLoaderWithGlobalDir(dataDir, "", nil).Load()

	require.NoError(t, err)
	assert.Equal(t, []string{
		"invalid value for [merge] squash: expected bool",
		"provider broken has no command_template",
		"unknown key in [merge]: strategy",
		"unknown section: tasks",
	}, cfg.Warnings)
	assert.NotContains(t, cfg.Providers, "broken")
	assert.False(t, cfg.Merge.Squash)
}

func TestLoader_Load_Errors(t *testing.T) {
	t.Run("invalid store type", func(t *testing.T) {
		dataDir := t.TempDir()
		writeConfig(t, dataDir, "[store]\ntype = \"redis\"\n")

		_, err := NewLoaderWithGlobalDir(dataDir, "", nil).Load()

		assert.ErrorIs(t, err, domain.ErrInvalidStoreType)
	})

	t.Run("malformed toml", func(t *testing.T) {
		dataDir := t.TempDir()
		writeConfig(t, dataDir, "[log\nlevel = ")

		_, err := NewLoaderWithGlobalDir(dataDir, "", nil).Load()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse")
	})
}

func TestLoader_LoadGlobal(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, err := NewLoaderWithGlobalDir(t.TempDir(), t.TempDir(), nil).LoadGlobal()
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("no directory", func(t *testing.T) {
		_, err := NewLoaderWithGlobalDir(t.TempDir(), "", nil).LoadGlobal()
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("ignores data config", func(t *testing.T) {
		dataDir := t.TempDir()
		globalDir := t.TempDir()
		writeConfig(t, globalDir, "[log]\nlevel = \"error\"\n")
		writeConfig(t, dataDir, "[log]\nlevel = \"debug\"\n")

		cfg, err := NewLoaderWithGlobalDir(dataDir, globalDir, nil).LoadGlobal()

		require.NoError(t, err)
		assert.Equal(t, "error", cfg.Log.Level)
	})
}

func TestDefaultGlobalConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "cafe"), DefaultGlobalConfigDir())
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 64, cfg.Scratch.InitialCapacity)
	assert.Equal(t, 500, cfg.Hydration.BatchSize)
}

func TestLoadConfigEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigMissingFileFails(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"log":{"level":"debug","format":"text"},"scratch":{"initial_capacity":8},"hydration":{"batch_size":10,"snapshot_path":"/tmp/x.badger"}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 8, cfg.Scratch.InitialCapacity)
	assert.Equal(t, 10, cfg.Hydration.BatchSize)
	assert.Equal(t, "/tmp/x.badger", cfg.Hydration.SnapshotPath)
}

func TestLoadConfigRejectsInvalidLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log":{"level":"verbose"}}`), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigRejectsNonPositiveBatchSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log":{"level":"info"},"hydration":{"batch_size":0}}`), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigOrDefaultFallsBackWhenNoFileFound(t *testing.T) {
	t.Setenv("IVMSYNC_CONFIG", "")
	cwd, err := os.Getwd()
	require.NoError(t, err)
	tmp := t.TempDir()
	require.NoError(t, os.Chdir(tmp))
	defer func() { require.NoError(t, os.Chdir(cwd)) }()

	cfg := LoadConfigOrDefault()
	assert.Equal(t, DefaultConfig(), cfg)
}

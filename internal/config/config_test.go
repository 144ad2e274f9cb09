package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: shareit-test
database:
  path: ":memory:"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "shareit-test", cfg.App.Name)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 10, cfg.Booking.DefaultPageSize)
	assert.Equal(t, 100, cfg.Booking.MaxPageSize)
	assert.Equal(t, 300, cfg.Redis.CacheTTL)
	assert.Equal(t, "shareit:notifications", cfg.Notify.QueueKey)
	assert.Equal(t, "shareit:notifications:dead", cfg.Notify.DeadLetterKey)
	assert.Equal(t, 5, cfg.Notify.MaxRetries)
	assert.True(t, cfg.OverlapCheckEnabled())
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("SHAREIT_DB_PATH", "/tmp/shareit-test.db")
	path := writeConfig(t, `
database:
  path: ${SHAREIT_DB_PATH}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/shareit-test.db", cfg.Database.Path)
}

func TestLoadOverlapCheckDisabled(t *testing.T) {
	path := writeConfig(t, `
database:
  path: ":memory:"
booking:
  overlap_check: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.OverlapCheckEnabled())
}

func TestValidate(t *testing.T) {
	t.Run("MissingDatabasePath", func(t *testing.T) {
		path := writeConfig(t, `
app:
  name: broken
`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("PageSizeMismatch", func(t *testing.T) {
		path := writeConfig(t, `
database:
  path: ":memory:"
booking:
  default_page_size: 50
  max_page_size: 10
`)
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

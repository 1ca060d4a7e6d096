package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bgwastu/deletex/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "./deletex.db", cfg.Database.Path)
	assert.Equal(t, 1000, cfg.Import.BatchSize)
	assert.Equal(t, 500, cfg.Selection.Cap)
	assert.Equal(t, 500*time.Millisecond, cfg.Search.ParseDebounce())
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: /tmp/archive.db
selection:
  cap: 250
search:
  debounce: 200ms
`), 0o644))

	t.Setenv("DELETEX_DB_PATH", "/tmp/override.db")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
	assert.Equal(t, 250, cfg.Selection.Cap)
	assert.Equal(t, 200*time.Millisecond, cfg.Search.ParseDebounce())
}

func TestBadDebounceFallsBack(t *testing.T) {
	s := config.SearchConfig{Debounce: "nonsense"}
	assert.Equal(t, 500*time.Millisecond, s.ParseDebounce())
}

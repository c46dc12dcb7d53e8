package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://ddwlead-hub.maps.arcgis.com", cfg.AGOL.PortalURL)
	assert.Equal(t, 8000, cfg.GraphQL.PageSize)
	assert.Equal(t, "UTAH", cfg.PWSID.Prefix)
	assert.Equal(t, 6, cfg.PWSID.Digits)
	assert.Equal(t, "keep-first", cfg.Validation.DuplicatePolicy)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `
agol:
  username: svc-lsli
  points_layer_url: https://services.arcgis.com/abc/arcgis/rest/services/points/FeatureServer/0
graphql:
  url: https://deq.utah.gov/graphql
  page_size: 500
validation:
  duplicate_policy: drop-all
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "svc-lsli", cfg.AGOL.Username)
	assert.Equal(t, 500, cfg.GraphQL.PageSize)
	assert.Equal(t, "drop-all", cfg.Validation.DuplicatePolicy)
	// Untouched keys keep their defaults.
	assert.Equal(t, "UTAH", cfg.PWSID.Prefix)
}

func TestLoad_EnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("LSLI_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "shouting", Format: "json"})
	assert.Error(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	assert.NoError(t, err)
}

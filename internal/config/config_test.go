package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "v", cfg.CacheBustParam)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "home", cfg.DefaultSection)
	assert.Equal(t, []string{"home"}, cfg.Preload)
	assert.True(t, cfg.EnablePreload)
	assert.True(t, cfg.ShowLoadingIndicator)
	assert.Error(t, cfg.Validate(), "defaults have no content source")
}

func TestExampleConfigIsValid(t *testing.T) {
	assert.NoError(t, ExampleConfig().Validate())
}

func TestWriteAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "section-viewer.yml")

	original := ExampleConfig()
	original.Port = 9000
	original.FetchTimeout = 5 * time.Second
	original.Store = StoreSQLite
	original.Watch.Enabled = true
	require.NoError(t, original.Write(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, loaded.Port)
	assert.Equal(t, 5*time.Second, loaded.FetchTimeout)
	assert.Equal(t, StoreSQLite, loaded.Store)
	assert.True(t, loaded.Watch.Enabled)
	assert.Equal(t, DefaultDebounce, loaded.Watch.Debounce)
	require.Len(t, loaded.Sections, len(original.Sections))
	assert.Equal(t, "content/bagian-utama/bab1.html", loaded.Sections[6].Path)
	assert.NoError(t, loaded.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yml"))
	require.NoError(t, err, "a missing file should yield defaults")
	assert.Equal(t, DefaultPort, cfg.Port)
}

func TestLoadDerivesTitles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "section-viewer.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
content:
  dir: site
sections:
  - id: home
    path: content/home.html
  - id: gambaran-umum
    path: content/gambaran-umum.html
  - id: bab1
    path: content/bab1.html
    title: Bab Satu
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Home", cfg.Sections[0].Title)
	assert.Equal(t, "Gambaran Umum", cfg.Sections[1].Title)
	assert.Equal(t, "Bab Satu", cfg.Sections[2].Title)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "section-viewer.yml")
	require.NoError(t, ExampleConfig().Write(path))

	t.Setenv("SECTION_VIEWER_PORT", "9999")
	t.Setenv("SECTION_VIEWER_STORE", "sqlite")
	t.Setenv("SECTION_VIEWER_FETCH_TIMEOUT", "2s")
	t.Setenv("SECTION_VIEWER_WATCH__ENABLED", "true")
	t.Setenv("SECTION_VIEWER_PRELOAD", "home, bab1")
	t.Setenv("SECTION_VIEWER_LOG__LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, 2*time.Second, cfg.FetchTimeout)
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, []string{"home", "bab1"}, cfg.Preload)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"port", func(c *Config) { c.Port = 0 }},
		{"both sources", func(c *Config) { c.Content.Origin = "http://localhost:3000" }},
		{"no source", func(c *Config) { c.Content.Dir = "" }},
		{"origin scheme", func(c *Config) { c.Content.Dir = ""; c.Content.Origin = "ftp://example.com" }},
		{"timeout", func(c *Config) { c.FetchTimeout = 0 }},
		{"empty bust param", func(c *Config) { c.CacheBustParam = "" }},
		{"bust param with separator", func(c *Config) { c.CacheBustParam = "a&b" }},
		{"store", func(c *Config) { c.Store = "redis" }},
		{"no sections", func(c *Config) { c.Sections = nil }},
		{"empty id", func(c *Config) { c.Sections[1].ID = "" }},
		{"empty path", func(c *Config) { c.Sections[1].Path = "" }},
		{"duplicate", func(c *Config) { c.Sections[1].ID = "home" }},
		{"default section", func(c *Config) { c.DefaultSection = "nowhere" }},
		{"watch origin", func(c *Config) {
			c.Content.Dir = ""
			c.Content.Origin = "https://example.com"
			c.Watch.Enabled = true
		}},
		{"ignore pattern", func(c *Config) { c.Watch.Ignore = []string{"[a-"} }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ExampleConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateOrigin(t *testing.T) {
	cfg := ExampleConfig()
	cfg.Content.Dir = ""
	cfg.Content.Origin = "https://example.com/materi/"
	assert.NoError(t, cfg.Validate())
}

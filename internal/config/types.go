package config

import "time"

// StoreType selects the session cache storage.
type StoreType string

const (
	StoreMemory StoreType = "memory"
	StoreSQLite StoreType = "sqlite"
)

// Config is the top-level section-viewer configuration, corresponding to section-viewer.yml.
type Config struct {
	Port                 int           `yaml:"port" koanf:"port"`
	Content              ContentConfig `yaml:"content" koanf:"content"`
	FetchTimeout         time.Duration `yaml:"fetch_timeout" koanf:"fetch_timeout"`
	CacheBustParam       string        `yaml:"cache_bust_param" koanf:"cache_bust_param"`
	Store                StoreType     `yaml:"store" koanf:"store"`
	DefaultSection       string        `yaml:"default_section" koanf:"default_section"`
	Preload              []string      `yaml:"preload" koanf:"preload"`
	EnablePreload        bool          `yaml:"enable_preload" koanf:"enable_preload"`
	ShowLoadingIndicator bool          `yaml:"show_loading_indicator" koanf:"show_loading_indicator"`
	CORS                 CORSConfig    `yaml:"cors" koanf:"cors"`
	Watch                WatchConfig   `yaml:"watch" koanf:"watch"`
	Log                  LogConfig     `yaml:"log" koanf:"log"`
	Sections             []Section     `yaml:"sections" koanf:"sections"`
}

// ContentConfig names where fragments come from. Exactly one of Origin and Dir is set.
type ContentConfig struct {
	// Base URL of a content origin.
	Origin string `yaml:"origin,omitempty" koanf:"origin"`
	// Directory served as content.
	Dir string `yaml:"dir,omitempty" koanf:"dir"`
	// Render .md fragments to HTML.
	Markdown bool `yaml:"markdown" koanf:"markdown"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
}

// WatchConfig controls invalidation of changed fragment files.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled" koanf:"enabled"`
	Debounce time.Duration `yaml:"debounce" koanf:"debounce"`
	Ignore   []string      `yaml:"ignore" koanf:"ignore"`
}

type LogConfig struct {
	Level string `yaml:"level" koanf:"level"`
	File  string `yaml:"file,omitempty" koanf:"file"`
}

// Section is one navigable entry.
type Section struct {
	ID    string `yaml:"id" koanf:"id"`
	Path  string `yaml:"path" koanf:"path"`
	Title string `yaml:"title,omitempty" koanf:"title"`
	Group string `yaml:"group,omitempty" koanf:"group"`
}

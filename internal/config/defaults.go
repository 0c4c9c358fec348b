package config

import (
	"time"

	cachebuster "github.com/always-cache/section-viewer/pkg/cache-buster"
)

const (
	DefaultPath      = "section-viewer.yml"
	DefaultPort      = 8080
	DefaultLogLevel  = "info"
	DefaultDebounce  = 200 * time.Millisecond
	defaultSection   = "home"
	defaultFetchWait = 30 * time.Second
)

// DefaultIgnore lists editor and VCS files the watcher never reacts to.
var DefaultIgnore = []string{
	"**/.git/**",
	"**/*.swp",
	"**/*~",
	"**/.#*",
	"**/.DS_Store",
}

// DefaultConfig returns the configuration used for keys that are not set.
// It has no sections and no content source, so it does not validate on its own.
func DefaultConfig() *Config {
	return &Config{
		Port:                 DefaultPort,
		FetchTimeout:         defaultFetchWait,
		CacheBustParam:       cachebuster.DefaultParam,
		Store:                StoreMemory,
		DefaultSection:       defaultSection,
		Preload:              []string{defaultSection},
		EnablePreload:        true,
		ShowLoadingIndicator: true,
		Watch: WatchConfig{
			Debounce: DefaultDebounce,
			Ignore:   append([]string(nil), DefaultIgnore...),
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// ExampleConfig is written by the init command: a course outline served
// from the content directory next to the config file.
func ExampleConfig() *Config {
	cfg := DefaultConfig()
	cfg.Content.Dir = "."
	cfg.Sections = []Section{
		{ID: "home", Path: "content/gambaran-umum/home.html", Group: "Gambaran Umum"},

		{ID: "definisi", Path: "content/prolog/definisi.html", Group: "Prolog"},
		{ID: "teknik", Path: "content/prolog/teknik.html", Group: "Prolog"},
		{ID: "metode", Path: "content/prolog/metode.html", Group: "Prolog"},
		{ID: "jenjang", Path: "content/prolog/jenjang.html", Group: "Prolog"},

		{ID: "abstrak", Path: "content/bagian-utama/abstrak.html", Group: "Bagian Utama"},
		{ID: "bab1", Path: "content/bagian-utama/bab1.html", Title: "Bab 1", Group: "Bagian Utama"},
		{ID: "bab2", Path: "content/bagian-utama/bab2.html", Title: "Bab 2", Group: "Bagian Utama"},
		{ID: "bab3", Path: "content/bagian-utama/bab3.html", Title: "Bab 3", Group: "Bagian Utama"},
		{ID: "bab4", Path: "content/bagian-utama/bab4.html", Title: "Bab 4", Group: "Bagian Utama"},
		{ID: "bab5", Path: "content/bagian-utama/bab5.html", Title: "Bab 5", Group: "Bagian Utama"},

		{ID: "kesalahan", Path: "content/referensi/kesalahan.html", Group: "Referensi"},
		{ID: "prinsip", Path: "content/referensi/prinsip.html", Group: "Referensi"},
	}
	return cfg
}

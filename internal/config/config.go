package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore, e.g. SECTION_VIEWER_CONTENT__ORIGIN.
const EnvPrefix = "SECTION_VIEWER_"

// keys whose environment values are comma separated lists
var listKeys = map[string]bool{
	"preload":              true,
	"watch.ignore":         true,
	"cors.allowed_origins": true,
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (SECTION_VIEWER_*).
// A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.fillTitles()

	return cfg, nil
}

// envValue maps SECTION_VIEWER_WATCH__DEBOUNCE to watch.debounce.
func envValue(key, value string) (string, interface{}) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if listKeys[key] {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return key, items
	}
	return key, value
}

// fillTitles derives missing section titles from their ids.
func (c *Config) fillTitles() {
	caser := cases.Title(language.Und)
	for i, s := range c.Sections {
		if s.Title == "" {
			c.Sections[i].Title = caser.String(strings.NewReplacer("-", " ", "_", " ").Replace(s.ID))
		}
	}
}

// Write saves the configuration to the given YAML file path.
func (c *Config) Write(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validStores = map[StoreType]bool{
	StoreMemory: true,
	StoreSQLite: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	switch {
	case c.Content.Origin == "" && c.Content.Dir == "":
		return errors.New("one of content.origin and content.dir is required")
	case c.Content.Origin != "" && c.Content.Dir != "":
		return errors.New("content.origin and content.dir are mutually exclusive")
	case c.Content.Origin != "":
		u, err := url.Parse(c.Content.Origin)
		if err != nil {
			return fmt.Errorf("invalid content.origin: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid content.origin %q: must be an http or https URL", c.Content.Origin)
		}
	}

	if c.FetchTimeout <= 0 {
		return errors.New("fetch_timeout must be positive")
	}
	if c.CacheBustParam == "" || strings.ContainsAny(c.CacheBustParam, "&=?# ") {
		return fmt.Errorf("invalid cache_bust_param %q", c.CacheBustParam)
	}
	if !validStores[c.Store] {
		return fmt.Errorf("invalid store %q: must be one of memory, sqlite", c.Store)
	}

	if len(c.Sections) == 0 {
		return errors.New("at least one section is required")
	}
	ids := make(map[string]bool, len(c.Sections))
	for i, s := range c.Sections {
		if s.ID == "" {
			return fmt.Errorf("sections[%d]: id is required", i)
		}
		if s.Path == "" {
			return fmt.Errorf("section %s: path is required", s.ID)
		}
		if ids[s.ID] {
			return fmt.Errorf("duplicate section %s", s.ID)
		}
		ids[s.ID] = true
	}
	if !ids[c.DefaultSection] {
		return fmt.Errorf("default_section %q is not a configured section", c.DefaultSection)
	}

	if c.Watch.Enabled && c.Content.Dir == "" {
		return errors.New("watch requires content.dir")
	}
	if c.Watch.Debounce < 0 {
		return errors.New("watch.debounce must be non-negative")
	}
	for _, pattern := range c.Watch.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid watch.ignore pattern %q", pattern)
		}
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}

	return nil
}

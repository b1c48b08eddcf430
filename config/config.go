// Package config loads cache construction parameters from defaults, a
// JSON/YAML file, and environment variables, layered in that order via
// koanf.
package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/srhnsn/evictcache/internal/obslog"
)

// Settings mirrors evictcache.Config's construction parameters in a form
// that can be decoded from a config file or environment variables.
type Settings struct {
	Policy               string        `koanf:"policy"`
	Capacity             uint64        `koanf:"capacity"`
	DefaultTTL           time.Duration `koanf:"default_ttl"`
	SmallQueueSizeRatio  float64       `koanf:"small_queue_size_ratio"`
	SmallToMainThreshold int8          `koanf:"small_to_main_threshold"`
	ProtectedPercent     uint8         `koanf:"protected_percent"`
}

// DefaultSettings returns the baseline configuration applied before any
// file or environment overlay.
func DefaultSettings() Settings {
	return Settings{
		Policy:               "LRU",
		Capacity:             1000,
		SmallQueueSizeRatio:  0.1,
		SmallToMainThreshold: 1,
		ProtectedPercent:     80,
	}
}

type loader struct {
	k   *koanf.Koanf
	err error
}

// Option configures a Load call.
type Option func(*loader)

// WithDefaults seeds the loader with defaults before any file or
// environment overlay is applied.
func WithDefaults(defaults Settings) Option {
	return func(l *loader) {
		if l.err != nil {
			return
		}

		if err := l.k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
			l.err = err
		}
	}
}

// WithFile overlays settings from a JSON or YAML file, selected by
// extension.
func WithFile(path string) Option {
	return func(l *loader) {
		if l.err != nil {
			return
		}

		var parser koanf.Parser

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		default:
			parser = json.Parser()
		}

		if err := l.k.Load(file.Provider(path), parser); err != nil {
			obslog.Default.Warnf("config: failed to load overlay file %q: %v", path, err)

			l.err = err
		}
	}
}

// WithEnv overlays settings from environment variables carrying prefix,
// transforming e.g. CACHE_DEFAULT_TTL into default_ttl.
func WithEnv(prefix string) Option {
	return func(l *loader) {
		if l.err != nil {
			return
		}

		err := l.k.Load(env.Provider(prefix, ".", func(s string) string {
			return strings.ToLower(strings.TrimPrefix(s, prefix))
		}), nil)
		if err != nil {
			obslog.Default.Warnf("config: failed to load environment overlay with prefix %q: %v", prefix, err)

			l.err = err
		}
	}
}

// Load builds a Settings value by applying opts in order; later options
// overlay earlier ones. Typical use applies WithDefaults, then WithFile,
// then WithEnv so the environment wins.
func Load(opts ...Option) (Settings, error) {
	l := &loader{k: koanf.New(".")}

	for _, opt := range opts {
		opt(l)
	}

	var settings Settings
	if l.err != nil {
		return settings, l.err
	}

	if err := l.k.Unmarshal("", &settings); err != nil {
		obslog.Default.Errorf("config: failed to unmarshal settings: %v", err)

		return settings, err
	}

	obslog.Default.Debugf("config: loaded settings for policy %q, capacity %d", settings.Policy, settings.Capacity)

	return settings, nil
}

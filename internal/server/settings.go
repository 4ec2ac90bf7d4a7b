package server

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment variables read by LoadSettings.
const EnvPrefix = "FUSIONSIM_"

// Service defaults.
const (
	DefaultAddr          = ":8000"
	DefaultMaxConcurrent = 4
	DefaultTimeout       = 60 * time.Second
	DefaultMaxFrames     = 50
	DefaultStoreFrames   = 20
	DefaultMaxCells      = 100000
)

// Settings configures the HTTP service.
type Settings struct {
	Addr          string        `koanf:"addr"`
	MaxConcurrent int           `koanf:"max_concurrent"`
	Timeout       time.Duration `koanf:"timeout"`
	MaxFrames     int           `koanf:"max_frames"`
	StoreFrames   int           `koanf:"store_frames"`
	MaxCells      int           `koanf:"max_cells"`
	LogLevel      string        `koanf:"log_level"`
	LogFormat     string        `koanf:"log_format"`
	LogFile       string        `koanf:"log_file"`
}

// DefaultSettings returns the settings used when nothing overrides them.
func DefaultSettings() Settings {
	return Settings{
		Addr:          DefaultAddr,
		MaxConcurrent: DefaultMaxConcurrent,
		Timeout:       DefaultTimeout,
		MaxFrames:     DefaultMaxFrames,
		StoreFrames:   DefaultStoreFrames,
		MaxCells:      DefaultMaxCells,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// RegisterFlags adds the service flags to fs. Only flags the user sets
// take part in LoadSettings; log-level, log-format and log-file are picked up
// the same way when the caller defines them.
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultSettings()
	fs.String("addr", d.Addr, "listen address")
	fs.Int("max-concurrent", d.MaxConcurrent, "simulations allowed to run at once")
	fs.Duration("timeout", d.Timeout, "wall-clock budget per request")
	fs.Int("max-frames", d.MaxFrames, "upper bound for store_frames")
	fs.Int("store-frames", d.StoreFrames, "store_frames used when a request omits it")
	fs.Int("max-cells", d.MaxCells, "upper bound for nx")
}

// LoadSettings layers, lowest to highest: defaults, the YAML file at path
// (skipped when empty), FUSIONSIM_* environment variables, then flags that
// were explicitly set.
func LoadSettings(path string, flags *pflag.FlagSet) (Settings, error) {
	k := koanf.New(".")

	d := DefaultSettings()
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"addr":           d.Addr,
		"max_concurrent": d.MaxConcurrent,
		"timeout":        d.Timeout.String(),
		"max_frames":     d.MaxFrames,
		"store_frames":   d.StoreFrames,
		"max_cells":      d.MaxCells,
		"log_level":      d.LogLevel,
		"log_format":     d.LogFormat,
		"log_file":       d.LogFile,
	}, "."), nil); err != nil {
		return Settings{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Settings{}, fmt.Errorf("settings file: %w", err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Settings{}, fmt.Errorf("error reading settings file %s: %w", path, err)
		}
	}

	// FUSIONSIM_MAX_CONCURRENT -> max_concurrent
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return Settings{}, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return Settings{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return Settings{}, fmt.Errorf("unable to decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate rejects settings the service cannot run with.
func (s Settings) Validate() error {
	switch {
	case s.Addr == "":
		return fmt.Errorf("addr must not be empty")
	case s.MaxConcurrent < 1:
		return fmt.Errorf("max_concurrent must be at least 1, got %d", s.MaxConcurrent)
	case s.Timeout <= 0:
		return fmt.Errorf("timeout must be positive, got %s", s.Timeout)
	case s.MaxFrames < 1:
		return fmt.Errorf("max_frames must be at least 1, got %d", s.MaxFrames)
	case s.StoreFrames < 1 || s.StoreFrames > s.MaxFrames:
		return fmt.Errorf("store_frames must be in [1, %d], got %d", s.MaxFrames, s.StoreFrames)
	case s.MaxCells < 1:
		return fmt.Errorf("max_cells must be at least 1, got %d", s.MaxCells)
	}
	return nil
}

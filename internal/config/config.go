// Package config loads sittertree settings from defaults, a config file,
// SITTERTREE_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/phobologic/sittertree/internal/cache"
	"github.com/phobologic/sittertree/internal/discover"
	"github.com/phobologic/sittertree/internal/render"
)

// FileName is the config file looked up in the working directory.
const FileName = ".sittertree.yaml"

// EnvPrefix prefixes environment overrides, e.g. SITTERTREE_DEPTH.
const EnvPrefix = "SITTERTREE"

// Config holds every tunable setting.
type Config struct {
	Depth            int      `mapstructure:"depth"`
	Format           string   `mapstructure:"format"`
	MaxFileSize      int64    `mapstructure:"max_file_size"`
	RespectGitignore bool     `mapstructure:"respect_gitignore"`
	Exclude          []string `mapstructure:"exclude"`
	CacheCapacity    int      `mapstructure:"cache_capacity"`
	LogLevel         string   `mapstructure:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Depth:            1,
		Format:           string(render.XML),
		MaxFileSize:      1_000_000,
		RespectGitignore: true,
		Exclude:          []string{},
		CacheCapacity:    cache.DefaultCapacity,
		LogLevel:         "warn",
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"depth":         "depth",
	"format":        "format",
	"max-file-size": "max_file_size",
	"exclude":       "exclude",
	"log-level":     "log_level",
}

// Options select where Load reads from.
type Options struct {
	// Dir is searched for FileName when File is empty.
	Dir string
	// File names an explicit config file; it must exist.
	File string
	// Flags, when set, override every other source for the flags the user
	// actually passed.
	Flags *pflag.FlagSet
}

// Load reads the configuration. Priority, highest first: flags, environment,
// config file, defaults.
func Load(opts Options) (*Config, error) {
	v := viper.New()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		dir := opts.Dir
		if dir == "" {
			dir = "."
		}
		v.AddConfigPath(dir)
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing default config file is fine; an explicit one is not.
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("depth", d.Depth)
	v.SetDefault("format", d.Format)
	v.SetDefault("max_file_size", d.MaxFileSize)
	v.SetDefault("respect_gitignore", d.RespectGitignore)
	v.SetDefault("exclude", d.Exclude)
	v.SetDefault("cache_capacity", d.CacheCapacity)
	v.SetDefault("log_level", d.LogLevel)
}

var (
	// ErrInvalidDepth indicates a negative expansion depth.
	ErrInvalidDepth = errors.New("invalid depth")
	// ErrInvalidCapacity indicates a cache capacity below cache.MinCapacity.
	ErrInvalidCapacity = errors.New("invalid cache capacity")
	// ErrInvalidLogLevel indicates an unknown log level name.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidFileSize indicates a negative size limit.
	ErrInvalidFileSize = errors.New("invalid max file size")
)

// Validate checks every field and reports all problems at once.
func Validate(cfg *Config) error {
	var errs []error
	if cfg.Depth < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidDepth, cfg.Depth))
	}
	if _, err := render.ParseFormat(cfg.Format); err != nil {
		errs = append(errs, err)
	}
	if cfg.MaxFileSize < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidFileSize, cfg.MaxFileSize))
	}
	if cfg.CacheCapacity < cache.MinCapacity {
		errs = append(errs, fmt.Errorf("%w: %d is below %d", ErrInvalidCapacity, cfg.CacheCapacity, cache.MinCapacity))
	}
	if _, err := cfg.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w %q", ErrInvalidLogLevel, c.LogLevel)
	}
	return l, nil
}

// DiscoverOptions returns the file-discovery settings.
func (c *Config) DiscoverOptions(logger *slog.Logger) discover.Options {
	return discover.Options{
		MaxFileSize:      c.MaxFileSize,
		RespectGitignore: c.RespectGitignore,
		Exclude:          c.Exclude,
		Logger:           logger,
	}
}

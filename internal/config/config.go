// Package config loads the runtime configuration from flags, an optional
// YAML file and LEXICARD_ environment variables.
//
// Precedence, lowest first: flag defaults, the config file, the environment,
// flags set on the command line.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LEXICARD_"

// ErrInvalid is returned when the loaded configuration fails validation.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the runtime configuration.
type Config struct {
	DB             string `koanf:"db" validate:"required"`
	Addr           string `koanf:"addr" validate:"required"`
	ReposDir       string `koanf:"repos_dir" validate:"required"`
	LogLevel       string `koanf:"log_level" validate:"oneof=debug info warn error"`
	DocumentKey    string `koanf:"document_key" validate:"required"`
	LedgerCapacity int    `koanf:"ledger_capacity" validate:"gte=1"`
	// Timezone is an IANA name used for day boundaries. Empty means local.
	Timezone string `koanf:"timezone"`
}

// NewFlagSet returns a flag set carrying the shared configuration flags.
// Commands add their own flags before calling Load.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "Path to a YAML config file")
	fs.String("db", "lexicard.db", "Path to the SQLite database file")
	fs.String("addr", ":8080", "HTTP listen address")
	fs.String("repos_dir", "repos", "Directory for cloned git sources")
	fs.String("log_level", "info", "Log level: debug, info, warn or error")
	fs.String("document_key", "vocab_anki_like_v1", "Storage key of the study document")
	fs.Int("ledger_capacity", 20000, "Review events kept per day")
	fs.String("timezone", "", "IANA time zone for day boundaries (default local)")
	return fs
}

// Load parses args into fs and builds the configuration.
func Load(fs *pflag.FlagSet, args []string) (*Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	// Unchanged flags only fill keys the file and environment left unset.
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Level maps LogLevel onto a slog level.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Package config loads Settings from flags, the environment, an optional
// config file and an optional .env file.
//
// Precedence, highest first:
//
//  1. explicit overrides (command-line flags)
//  2. AMPLENOTE_* environment variables
//  3. the config file named by --config (any format viper reads)
//  4. AMPLENOTE_* keys in a .env file
//  5. defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/mikekwright/amplenote-cache-mcp/internal/cache/db"
	"github.com/mikekwright/amplenote-cache-mcp/internal/logging"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "AMPLENOTE"

// Setting keys.
const (
	KeyDBPath             = "db_path"
	KeyDefaultSearchLimit = "default_search_limit"
	KeyDefaultListLimit   = "default_list_limit"
	KeyMaxQueryLimit      = "max_query_limit"
	KeyLogLevel           = "log_level"
	KeyLogFile            = "log_file"
	KeyLogMaxSizeMB       = "log_max_size_mb"
	KeyLogMaxBackups      = "log_max_backups"
	KeyLogMaxAgeDays      = "log_max_age_days"
)

// DefaultDBPath is where the Amplenote desktop app keeps its cache.
const DefaultDBPath = "~/.config/ample-electron/amplenote.db"

// Settings is the resolved configuration.
type Settings struct {
	DBPath             string `mapstructure:"db_path" json:"db_path" yaml:"db_path"`
	DefaultSearchLimit int    `mapstructure:"default_search_limit" json:"default_search_limit" yaml:"default_search_limit"`
	DefaultListLimit   int    `mapstructure:"default_list_limit" json:"default_list_limit" yaml:"default_list_limit"`
	MaxQueryLimit      int    `mapstructure:"max_query_limit" json:"max_query_limit" yaml:"max_query_limit"`

	LogLevel      string `mapstructure:"log_level" json:"log_level" yaml:"log_level"`
	LogFile       string `mapstructure:"log_file" json:"log_file" yaml:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb" json:"log_max_size_mb" yaml:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups" json:"log_max_backups" yaml:"log_max_backups"`
	LogMaxAgeDays int    `mapstructure:"log_max_age_days" json:"log_max_age_days" yaml:"log_max_age_days"`
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() Settings {
	return Settings{
		DBPath:             DefaultDBPath,
		DefaultSearchLimit: 10,
		DefaultListLimit:   20,
		MaxQueryLimit:      1000,
		LogLevel:           "info",
		LogMaxSizeMB:       10,
		LogMaxBackups:      3,
		LogMaxAgeDays:      28,
	}
}

// Options controls where Load looks.
type Options struct {
	// ConfigFile is an explicit config file. It must exist when set.
	ConfigFile string

	// EnvFile is a dotenv file. A missing file is ignored. Defaults to
	// ".env" in the working directory.
	EnvFile string

	// Overrides win over every other source. Keys are the Key* constants.
	Overrides map[string]any
}

// Load resolves Settings from every source, expands ~ in paths and
// validates the result.
func Load(opts Options) (Settings, error) {
	v := viper.New()

	defaults := Defaults()
	v.SetDefault(KeyDBPath, defaults.DBPath)
	v.SetDefault(KeyDefaultSearchLimit, defaults.DefaultSearchLimit)
	v.SetDefault(KeyDefaultListLimit, defaults.DefaultListLimit)
	v.SetDefault(KeyMaxQueryLimit, defaults.MaxQueryLimit)
	v.SetDefault(KeyLogLevel, defaults.LogLevel)
	v.SetDefault(KeyLogFile, defaults.LogFile)
	v.SetDefault(KeyLogMaxSizeMB, defaults.LogMaxSizeMB)
	v.SetDefault(KeyLogMaxBackups, defaults.LogMaxBackups)
	v.SetDefault(KeyLogMaxAgeDays, defaults.LogMaxAgeDays)

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := applyEnvFile(v, envFile); err != nil {
		return Settings{}, err
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("failed to read config file %s: %w", opts.ConfigFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}

	s.DBPath = db.ExpandHome(s.DBPath)
	s.LogFile = db.ExpandHome(s.LogFile)
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// applyEnvFile layers AMPLENOTE_* keys from a dotenv file just above the
// defaults.
func applyEnvFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	ev := viper.New()
	ev.SetConfigFile(path)
	ev.SetConfigType("env")
	if err := ev.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read env file %s: %w", filepath.Clean(path), err)
	}

	prefix := strings.ToLower(EnvPrefix) + "_"
	for _, key := range ev.AllKeys() {
		name, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}
		v.SetDefault(name, ev.Get(key))
	}
	return nil
}

// Validate checks ranges and cross-field constraints.
func (s Settings) Validate() error {
	var errs []error
	if s.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if s.MaxQueryLimit < 1 {
		errs = append(errs, fmt.Errorf("max_query_limit must be >= 1 (got %d)", s.MaxQueryLimit))
	}
	for _, limit := range []struct {
		key   string
		value int
	}{
		{KeyDefaultSearchLimit, s.DefaultSearchLimit},
		{KeyDefaultListLimit, s.DefaultListLimit},
	} {
		if limit.value < 1 {
			errs = append(errs, fmt.Errorf("%s must be >= 1 (got %d)", limit.key, limit.value))
		} else if s.MaxQueryLimit >= 1 && limit.value > s.MaxQueryLimit {
			errs = append(errs, fmt.Errorf("%s (%d) exceeds max_query_limit (%d)", limit.key, limit.value, s.MaxQueryLimit))
		}
	}
	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

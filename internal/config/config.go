// Package config loads minihib settings from minihib.yaml and MINIHIB_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/lamtanloc512/mini-hibernate-sub001/internal/store"
)

const (
	fileName  = "minihib"
	fileType  = "yaml"
	envPrefix = "MINIHIB"

	keyStoreDriver    = "store.driver"
	keyStoreDSN       = "store.dsn"
	keyStoreJournal   = "store.journal"
	keyLogLevel       = "log.level"
	keyMetricsEnabled = "metrics.enabled"
)

// Config is the resolved configuration.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// StoreConfig selects the SQL persister.
type StoreConfig struct {
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
	Journal bool   `mapstructure:"journal"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{Driver: store.DriverSQLite3, DSN: ":memory:", Journal: true},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads minihib.yaml from dir (or the working directory when dir is
// empty) and overlays MINIHIB_* environment variables, e.g.
// MINIHIB_STORE_DSN. A missing file is not an error.
func Load(dir string) (*Config, error) {
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("config dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("config dir %s: not a directory", dir)
		}
	}

	v := viper.New()
	def := Default()
	v.SetDefault(keyStoreDriver, def.Store.Driver)
	v.SetDefault(keyStoreDSN, def.Store.DSN)
	v.SetDefault(keyStoreJournal, def.Store.Journal)
	v.SetDefault(keyLogLevel, def.Log.Level)
	v.SetDefault(keyMetricsEnabled, def.Metrics.Enabled)

	v.SetConfigName(fileName)
	v.SetConfigType(fileType)
	if dir != "" {
		v.AddConfigPath(dir)
	} else {
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the driver is known, the DSN is set and the log level
// parses.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case store.DriverSQLite3, store.DriverSQLite, store.DriverPostgres:
	default:
		return fmt.Errorf("invalid %s %q: want %s, %s or %s", keyStoreDriver, c.Store.Driver,
			store.DriverSQLite3, store.DriverSQLite, store.DriverPostgres)
	}
	if strings.TrimSpace(c.Store.DSN) == "" {
		return fmt.Errorf("invalid %s: empty", keyStoreDSN)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Level returns the configured slog level. Validate has already rejected
// unknown names, so those map to Info.
func (c *Config) Level() slog.Level {
	l, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", keyLogLevel, s, err)
	}
	return l, nil
}

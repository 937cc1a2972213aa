package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override file settings,
// e.g. SCHEMASYNC_DEST_PASSWORD.
const EnvPrefix = "SCHEMASYNC"

// Load reads a JSON configuration file, applies defaults and environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return nil, fmt.Errorf("%w: configuration file must be a .json file, got %q", ErrInvalidConfig, path)
	}

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	return decode(v)
}

// FromMap builds a configuration from an in-memory map shaped like the JSON file.
//
// Example:
//
//	cfg, err := config.FromMap(map[string]any{
//		"source": map[string]any{"host": "db1", "database": "app"},
//		"dest":   map[string]any{"host": "db2", "database": "app"},
//	})
func FromMap(values map[string]any) (*Config, error) {
	v := newViper()
	if err := v.MergeConfigMap(values); err != nil {
		return nil, fmt.Errorf("error merging config map: %w", err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("source.port", DefaultPort)
	v.SetDefault("dest.port", DefaultPort)
	v.SetDefault("ignoreColumnWidths", false)
	v.SetDefault("omitCollate", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"source.user", "source.password", "dest.user", "dest.password"} {
		_ = v.BindEnv(key)
	}
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

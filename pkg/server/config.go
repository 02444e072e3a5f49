package server

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the server runtime settings. Values come from an optional
// YAML file, overridden by DATAHUB_* environment variables.
type Config struct {
	Listen         string `mapstructure:"listen"`
	DatabaseDriver string `mapstructure:"database_driver"`
	DatabaseDSN    string `mapstructure:"database_dsn"`
	ArchiveURL     string `mapstructure:"archive_url"`
	LogLevel       string `mapstructure:"log_level"`
}

// LoadConfig reads the config file at path (optional, pass "" to skip) and
// applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("listen", ":8080")
	v.SetDefault("database_driver", "sqlite")
	v.SetDefault("database_dsn", "datahub.db")
	v.SetDefault("archive_url", "")
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("DATAHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	switch cfg.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unknown database driver %q (expected sqlite or postgres)", cfg.DatabaseDriver)
	}
	return &cfg, nil
}

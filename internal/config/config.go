package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file written by init.
const FileName = "mt940import.yaml"

// EnvPrefix prefixes environment overrides, e.g. MT940IMPORT_DATABASE_PATH.
const EnvPrefix = "MT940IMPORT"

// Config represents the top-level mt940import.yaml configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Import   ImportConfig   `yaml:"import" mapstructure:"import"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// DatabaseConfig locates the SQLite statement database.
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ImportConfig controls statement imports.
type ImportConfig struct {
	// Dir is scanned for statement files when import gets no arguments.
	Dir          string        `yaml:"dir" mapstructure:"dir"`
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	// PlaceholderLabel labels type codes first seen during an import.
	PlaceholderLabel string `yaml:"placeholder_label" mapstructure:"placeholder_label"`
	// ActiveAccount is the IBAN or name of the account selected by default.
	ActiveAccount string `yaml:"active_account,omitempty" mapstructure:"active_account"`
}

// LogConfig sets the logger level: debug, info, warn or error.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "statements.db"},
		Import: ImportConfig{
			Dir:              "import",
			PollInterval:     100 * time.Millisecond,
			PlaceholderLabel: "Unclassified",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configuration from path, layered over Default and under
// MT940IMPORT_* environment variables. An empty path looks for
// mt940import.yaml in the working directory and tolerates its absence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("import.dir", d.Import.Dir)
	v.SetDefault("import.poll_interval", d.Import.PollInterval)
	v.SetDefault("import.placeholder_label", d.Import.PlaceholderLabel)
	v.SetDefault("import.active_account", d.Import.ActiveAccount)
	v.SetDefault("log.level", d.Log.Level)
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

package config

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

// Defaults applied before any other source.
const (
	DefaultDatabaseType = "duckdb"
	DefaultDatabasePath = "askdb.duckdb"
	DefaultRowCap       = 10_000
	DefaultTimeout      = 15 * time.Second
	DefaultClassifier   = "rules"
	DefaultGeminiModel  = "gemini-2.0-flash"
	DefaultAPIKeyEnv    = "GEMINI_API_KEY"
	DefaultThreshold    = 0.6
	DefaultSeedsDir     = "seeds"
	DefaultSeedTable    = "taxi_trips"
)

// findConfigFile finds the config file to use.
// Priority: explicit path > askdb.yaml > askdb.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"askdb.yaml", "askdb.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load merges configuration sources.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults.
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"database.type":          DefaultDatabaseType,
		"database.path":          DefaultDatabasePath,
		"executor.row_cap":       DefaultRowCap,
		"executor.timeout":       DefaultTimeout,
		"classifier.kind":        DefaultClassifier,
		"classifier.model":       DefaultGeminiModel,
		"classifier.api_key_env": DefaultAPIKeyEnv,
		"classifier.threshold":   DefaultThreshold,
		"seeds.dir":              DefaultSeedsDir,
		"seeds.table":            DefaultSeedTable,
		"verbose":                false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file, if one exists.
	if used := findConfigFile(cfgFile); used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment variables: ASKDB_DATABASE_TYPE -> database.type.
	if err := k.Load(env.Provider("ASKDB_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "ASKDB_")), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set.
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// flagKey maps flag names to config keys.
func flagKey(name string) string {
	switch name {
	case "database":
		return "database.type"
	case "db-path":
		return "database.path"
	case "dsn":
		return "database.dsn"
	case "row-cap":
		return "executor.row_cap"
	case "timeout":
		return "executor.timeout"
	case "classifier":
		return "classifier.kind"
	case "seeds-dir":
		return "seeds.dir"
	case "verbose":
		return "verbose"
	}
	return ""
}

func validate(cfg *Config) error {
	switch cfg.Database.Type {
	case "duckdb", "sqlite", "postgres":
	default:
		return fmt.Errorf("database.type must be duckdb, sqlite, or postgres, got %q", cfg.Database.Type)
	}
	switch cfg.Classifier.Kind {
	case "rules", "gemini":
	default:
		return fmt.Errorf("classifier.kind must be rules or gemini, got %q", cfg.Classifier.Kind)
	}
	if cfg.Executor.RowCap < 0 {
		return fmt.Errorf("executor.row_cap must not be negative")
	}
	if cfg.Executor.Timeout < 0 {
		return fmt.Errorf("executor.timeout must not be negative")
	}
	return nil
}

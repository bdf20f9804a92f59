// Package config loads the tool configuration from file, environment, and
// flags with a fixed precedence.
package config

import "time"

// Config is the fully resolved tool configuration.
type Config struct {
	Database   DatabaseConfig   `koanf:"database"`
	Executor   ExecutorConfig   `koanf:"executor"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Seeds      SeedsConfig      `koanf:"seeds"`
	Verbose    bool             `koanf:"verbose"`
}

// DatabaseConfig selects and configures the database adapter.
type DatabaseConfig struct {
	// Type is the adapter name: duckdb, sqlite, or postgres.
	Type string `koanf:"type"`
	// Path is the database file for embedded engines.
	Path string `koanf:"path"`
	// DSN is the connection string for postgres.
	DSN string `koanf:"dsn"`
}

// ExecutorConfig bounds query execution.
type ExecutorConfig struct {
	RowCap  int           `koanf:"row_cap"`
	Timeout time.Duration `koanf:"timeout"`
}

// ClassifierConfig selects the intent router.
type ClassifierConfig struct {
	// Kind is "rules" or "gemini". The gemini classifier falls back to
	// rules when the API is unreachable or unsure.
	Kind string `koanf:"kind"`

	// Model is the Gemini model name.
	Model string `koanf:"model"`

	// APIKeyEnv names the environment variable holding the Gemini API key.
	// The key itself never appears in config files.
	APIKeyEnv string `koanf:"api_key_env"`

	// Threshold is the minimum confidence to accept a gemini answer.
	Threshold float64 `koanf:"threshold"`
}

// SeedsConfig locates the seed data.
type SeedsConfig struct {
	Dir   string `koanf:"dir"`
	Table string `koanf:"table"`
}

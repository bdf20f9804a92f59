// Package sqlgen turns approved query plans into SQL text.
//
// Generation is template-based over a fixed set of intents; no fragment of
// user text is ever spliced into the output. Time-bucket expressions are the
// only dialect-sensitive part.
package sqlgen

import "fmt"

// Dialect supplies the engine-specific pieces of generated SQL.
type Dialect interface {
	// Name is the adapter name this dialect serves ("duckdb", "sqlite", "postgres").
	Name() string
	// Bucket returns the expression that truncates column to the named
	// granularity ("daily", "weekly", "monthly").
	Bucket(column, granularity string) string
}

// ForAdapter returns the dialect for the named adapter.
func ForAdapter(name string) (Dialect, error) {
	switch name {
	case "duckdb":
		return truncDialect{name: "duckdb"}, nil
	case "postgres":
		return truncDialect{name: "postgres"}, nil
	case "sqlite":
		return sqliteDialect{}, nil
	}
	return nil, fmt.Errorf("no SQL dialect for adapter %q", name)
}

// truncDialect covers engines with date_trunc (DuckDB, Postgres).
type truncDialect struct {
	name string
}

func (d truncDialect) Name() string { return d.name }

func (d truncDialect) Bucket(column, granularity string) string {
	var unit string
	switch granularity {
	case "daily":
		unit = "day"
	case "weekly":
		unit = "week"
	default:
		unit = "month"
	}
	return fmt.Sprintf("DATE_TRUNC('%s', %s)", unit, column)
}

// sqliteDialect buckets with DATE and STRFTIME, which is what SQLite has.
type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Bucket(column, granularity string) string {
	switch granularity {
	case "daily":
		return fmt.Sprintf("DATE(%s)", column)
	case "weekly":
		return fmt.Sprintf("STRFTIME('%%Y-%%W', %s)", column)
	default:
		return fmt.Sprintf("STRFTIME('%%Y-%%m', %s)", column)
	}
}

// Package adapter provides database adapters for the query pipeline.
//
// Adapters register themselves by name in an init function; the CLI selects
// one by config. All querying goes through database/sql so the executor can
// treat every backend the same.
package adapter

import (
	"context"
	"database/sql"

	"github.com/askdb-labs/askdb/internal/schema"
)

// Config holds the connection settings for a database.
type Config struct {
	// Type selects the adapter ("duckdb", "sqlite", "postgres").
	Type string

	// Path is the database file for file-based engines. ":memory:" opens an
	// in-memory database.
	Path string

	// DSN is the connection string for network engines (postgres).
	DSN string
}

// Rows wraps sql.Rows so callers do not import database/sql directly.
type Rows struct {
	*sql.Rows
}

// Adapter is the contract every database backend implements.
type Adapter interface {
	// Connect establishes the connection described by cfg.
	Connect(ctx context.Context, cfg Config) error

	// Close releases the connection.
	Close() error

	// Query runs a read statement and returns its rows.
	Query(ctx context.Context, sqlText string) (*Rows, error)

	// Exec runs a statement that returns no rows. Only the seeding path
	// uses it; user queries never reach Exec.
	Exec(ctx context.Context, sqlText string) error

	// TableColumns reads the column metadata of a table, for schema discovery.
	TableColumns(ctx context.Context, table string) ([]schema.Column, error)

	// LoadCSV ingests a CSV file into the named table, creating or
	// replacing it.
	LoadCSV(ctx context.Context, table, path string) error

	// DialectName names the SQL dialect the adapter speaks.
	DialectName() string
}

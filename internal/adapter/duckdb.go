package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/askdb-labs/askdb/internal/schema"
)

func init() {
	Register("duckdb", func(logger *slog.Logger) Adapter { return NewDuckDB(logger) })
}

// DuckDB implements Adapter over an embedded DuckDB database.
type DuckDB struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDuckDB creates an unconnected DuckDB adapter.
func NewDuckDB(logger *slog.Logger) *DuckDB {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DuckDB{logger: logger}
}

// Connect opens the database file, or an in-memory database for ":memory:"
// or an empty path.
func (a *DuckDB) Connect(ctx context.Context, cfg Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	if path == ":memory:" {
		path = "" // go-duckdb opens in-memory on an empty DSN
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.db = db
	a.logger.Debug("connected", "adapter", "duckdb", "path", cfg.Path)
	return nil
}

// Close closes the connection.
func (a *DuckDB) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Query runs a read statement.
func (a *DuckDB) Query(ctx context.Context, sqlText string) (*Rows, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	rows, err := a.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &Rows{Rows: rows}, nil
}

// Exec runs a statement that returns no rows.
func (a *DuckDB) Exec(ctx context.Context, sqlText string) error {
	if a.db == nil {
		return fmt.Errorf("database connection not established")
	}
	if _, err := a.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// TableColumns reads column metadata from information_schema.
func (a *DuckDB) TableColumns(ctx context.Context, table string) ([]schema.Column, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	tableSchema := "main"
	name := table
	if parts := strings.Split(table, "."); len(parts) == 2 {
		tableSchema, name = parts[0], parts[1]
	}

	query := `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position
	`
	rows, err := a.db.QueryContext(ctx, query, tableSchema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cols []schema.Column
	for rows.Next() {
		var c schema.Column
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	return cols, nil
}

// LoadCSV loads a CSV file with DuckDB's read_csv_auto, replacing the table.
func (a *DuckDB) LoadCSV(ctx context.Context, table, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	query := fmt.Sprintf(
		"CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv_auto('%s', header=true)",
		table, absPath,
	)
	if err := a.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to load CSV: %w", err)
	}
	a.logger.Info("seeded table from csv", "table", table, "path", absPath)
	return nil
}

// DialectName returns "duckdb".
func (a *DuckDB) DialectName() string { return "duckdb" }

var _ Adapter = (*DuckDB)(nil)

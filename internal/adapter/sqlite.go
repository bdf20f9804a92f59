package adapter

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // sqlite driver, cgo-free

	"github.com/askdb-labs/askdb/internal/schema"
)

func init() {
	Register("sqlite", func(logger *slog.Logger) Adapter { return NewSQLite(logger) })
}

// SQLite implements Adapter over an embedded SQLite database.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLite creates an unconnected SQLite adapter.
func NewSQLite(logger *slog.Logger) *SQLite {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLite{logger: logger}
}

// Connect opens the database file, or an in-memory database for ":memory:"
// or an empty path.
func (a *SQLite) Connect(ctx context.Context, cfg Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	a.db = db
	a.logger.Debug("connected", "adapter", "sqlite", "path", cfg.Path)
	return nil
}

// Close closes the connection.
func (a *SQLite) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Query runs a read statement.
func (a *SQLite) Query(ctx context.Context, sqlText string) (*Rows, error) {
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
func (a *SQLite) Exec(ctx context.Context, sqlText string) error {
	if a.db == nil {
		return fmt.Errorf("database connection not established")
	}
	if _, err := a.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// TableColumns reads column metadata with PRAGMA table_info.
func (a *SQLite) TableColumns(ctx context.Context, table string) ([]schema.Column, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	rows, err := a.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cols []schema.Column
	for rows.Next() {
		var (
			cid, notnull, pk int
			name, ctype      string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		cols = append(cols, schema.Column{Name: name, Type: ctype})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	return cols, nil
}

// LoadCSV creates the table from the CSV header and inserts every record in
// one transaction. SQLite has no CSV reader of its own.
func (a *SQLite) LoadCSV(ctx context.Context, table, path string) error {
	if a.db == nil {
		return fmt.Errorf("database connection not established")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	file, err := os.Open(absPath) //nolint:gosec // path comes from operator config
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	headers, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	if err := a.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
		return err
	}
	if err := a.Exec(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", table, columnDefs(headers, "sqlite"))); err != nil {
		return err
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(headers)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s VALUES (%s)", table, placeholders))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	var count int
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV record: %w", err)
		}
		args := make([]any, len(record))
		for i, v := range record {
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	a.logger.Info("seeded table from csv", "table", table, "path", absPath, "rows", count)
	return nil
}

// DialectName returns "sqlite".
func (a *SQLite) DialectName() string { return "sqlite" }

var _ Adapter = (*SQLite)(nil)

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

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/askdb-labs/askdb/internal/schema"
)

func init() {
	Register("postgres", func(logger *slog.Logger) Adapter { return NewPostgres(logger) })
}

// Postgres implements Adapter over a PostgreSQL server via pgx's
// database/sql driver.
type Postgres struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgres creates an unconnected Postgres adapter.
func NewPostgres(logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Postgres{logger: logger}
}

// Connect opens the connection described by cfg.DSN.
func (a *Postgres) Connect(ctx context.Context, cfg Config) error {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = "host=localhost port=5432 dbname=askdb sslmode=disable"
	}

	a.logger.Debug("connecting to postgres")
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.db = db
	return nil
}

// Close closes the connection.
func (a *Postgres) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Query runs a read statement.
func (a *Postgres) Query(ctx context.Context, sqlText string) (*Rows, error) {
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
func (a *Postgres) Exec(ctx context.Context, sqlText string) error {
	if a.db == nil {
		return fmt.Errorf("database connection not established")
	}
	if _, err := a.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// TableColumns reads column metadata from information_schema.
func (a *Postgres) TableColumns(ctx context.Context, table string) ([]schema.Column, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	tableSchema := "public"
	name := table
	if parts := strings.Split(table, "."); len(parts) == 2 {
		tableSchema, name = parts[0], parts[1]
	}

	query := `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
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

// LoadCSV creates the table from the CSV header and bulk-loads the file
// with COPY FROM STDIN.
func (a *Postgres) LoadCSV(ctx context.Context, table, path string) error {
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

	headers, err := csv.NewReader(file).Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	dropSQL := fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
	if _, err := a.db.ExecContext(ctx, dropSQL); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}
	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", table, columnDefs(headers, "postgres"))
	if _, err := a.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	if _, err := file.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to reset file: %w", err)
	}
	if err := a.copyFromCSV(ctx, table, file); err != nil {
		return fmt.Errorf("failed to copy data: %w", err)
	}
	a.logger.Info("seeded table from csv", "table", table, "path", absPath)
	return nil
}

// copyFromCSV drops to the raw pgx connection for COPY support.
func (a *Postgres) copyFromCSV(ctx context.Context, table string, file *os.File) error {
	conn, err := a.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return conn.Raw(func(driverConn any) error {
		pgxConn := driverConn.(*stdlib.Conn).Conn()

		content, err := io.ReadAll(file)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		copySQL := fmt.Sprintf("COPY %s FROM STDIN WITH (FORMAT csv, HEADER true)", table)
		_, err = pgxConn.PgConn().CopyFrom(ctx, strings.NewReader(string(content)), copySQL)
		return err
	})
}

// DialectName returns "postgres".
func (a *Postgres) DialectName() string { return "postgres" }

var _ Adapter = (*Postgres)(nil)

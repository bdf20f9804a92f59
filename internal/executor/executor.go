// Package executor runs approved SQL with a hard timeout and a row cap.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/askdb-labs/askdb/internal/adapter"
)

const (
	// DefaultRowCap bounds how many rows a result may carry back.
	DefaultRowCap = 10_000
	// DefaultTimeout bounds how long a query may run.
	DefaultTimeout = 15 * time.Second
)

// TimeoutError reports a query cancelled by its deadline.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("query exceeded the %s time limit and was cancelled", e.Timeout)
}

// ExecError reports a query the engine rejected or failed to run.
type ExecError struct {
	Err error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// ResultSet is a fully materialized, capped query result.
type ResultSet struct {
	Columns []string
	Rows    [][]any

	// Truncated is set when the row cap cut the result short.
	Truncated bool

	// Elapsed is the wall time the query took.
	Elapsed time.Duration
}

// Querier is the one adapter capability the executor needs.
type Querier interface {
	Query(ctx context.Context, sqlText string) (*adapter.Rows, error)
}

// Executor runs read queries against one adapter.
type Executor struct {
	querier Querier
	rowCap  int
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an Executor. Zero rowCap or timeout fall back to the defaults.
func New(querier Querier, rowCap int, timeout time.Duration, logger *slog.Logger) *Executor {
	if rowCap <= 0 {
		rowCap = DefaultRowCap
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{querier: querier, rowCap: rowCap, timeout: timeout, logger: logger}
}

// Execute runs sqlText and materializes up to the row cap. Deadline overruns
// come back as *TimeoutError, everything else the engine reports as
// *ExecError; the two are distinguishable so the caller can suggest a
// narrower range only when narrowing would help.
func (e *Executor) Execute(ctx context.Context, sqlText string) (*ResultSet, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	rows, err := e.querier.Query(ctx, sqlText)
	if err != nil {
		return nil, e.classify(ctx, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &ExecError{Err: err}
	}

	rs := &ResultSet{Columns: columns}
	for rows.Next() {
		if len(rs.Rows) >= e.rowCap {
			rs.Truncated = true
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &ExecError{Err: err}
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, e.classify(ctx, err)
	}

	rs.Elapsed = time.Since(start)
	e.logger.Debug("query executed",
		"rows", len(rs.Rows), "truncated", rs.Truncated, "elapsed", rs.Elapsed)
	return rs, nil
}

// classify separates deadline overruns from engine failures.
func (e *Executor) classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Timeout: e.timeout}
	}
	return &ExecError{Err: err}
}

package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb-labs/askdb/internal/adapter"
)

// newMock adapts a sqlmock database to the Querier interface.
func newMock(t *testing.T) (Querier, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return querierFunc(func(ctx context.Context, sqlText string) (*adapter.Rows, error) {
		rows, err := db.QueryContext(ctx, sqlText)
		if err != nil {
			return nil, err
		}
		return &adapter.Rows{Rows: rows}, nil
	}), mock
}

type querierFunc func(ctx context.Context, sqlText string) (*adapter.Rows, error)

func (f querierFunc) Query(ctx context.Context, sqlText string) (*adapter.Rows, error) {
	return f(ctx, sqlText)
}

func TestExecute_MaterializesRows(t *testing.T) {
	q, mock := newMock(t)
	const query = "SELECT bucket, trips FROM taxi_trips"
	mock.ExpectQuery(query).WillReturnRows(
		sqlmock.NewRows([]string{"bucket", "trips"}).
			AddRow("2022-06-01", 120).
			AddRow("2022-06-08", 95))

	e := New(q, 0, 0, nil)
	rs, err := e.Execute(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, []string{"bucket", "trips"}, rs.Columns)
	require.Len(t, rs.Rows, 2)
	assert.False(t, rs.Truncated)
}

func TestExecute_RowCapTruncates(t *testing.T) {
	q, mock := newMock(t)
	const query = "SELECT id FROM taxi_trips"
	rows := sqlmock.NewRows([]string{"id"})
	for i := 0; i < 10; i++ {
		rows.AddRow(i)
	}
	mock.ExpectQuery(query).WillReturnRows(rows)

	e := New(q, 3, 0, nil)
	rs, err := e.Execute(context.Background(), query)
	require.NoError(t, err)
	assert.Len(t, rs.Rows, 3)
	assert.True(t, rs.Truncated)
}

func TestExecute_EngineErrorIsExecError(t *testing.T) {
	q, mock := newMock(t)
	const query = "SELECT nope FROM taxi_trips"
	mock.ExpectQuery(query).WillReturnError(errors.New("no such column: nope"))

	e := New(q, 0, 0, nil)
	_, err := e.Execute(context.Background(), query)

	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, execErr.Error(), "no such column")

	var timeoutErr *TimeoutError
	assert.False(t, errors.As(err, &timeoutErr))
}

func TestExecute_DeadlineIsTimeoutError(t *testing.T) {
	q, mock := newMock(t)
	const query = "SELECT id FROM taxi_trips"
	mock.ExpectQuery(query).
		WillDelayFor(200 * time.Millisecond).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	e := New(q, 0, 20*time.Millisecond, nil)
	_, err := e.Execute(context.Background(), query)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 20*time.Millisecond, timeoutErr.Timeout)
}

package mcpserver

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb-labs/askdb/internal/executor"
	"github.com/askdb-labs/askdb/internal/nlq"
	"github.com/askdb-labs/askdb/internal/safety"
	"github.com/askdb-labs/askdb/internal/schema"
	"github.com/askdb-labs/askdb/internal/sqlgen"
)

type stubRunner struct {
	calls []string
}

func (r *stubRunner) Execute(_ context.Context, sqlText string) (*executor.ResultSet, error) {
	r.calls = append(r.calls, sqlText)
	return &executor.ResultSet{Columns: []string{"trips"}, Rows: [][]any{{int64(1)}}}, nil
}

func newTestServer(t *testing.T) (*Server, *stubRunner) {
	t.Helper()
	sch := schema.Default()
	dialect, err := sqlgen.ForAdapter("duckdb")
	require.NoError(t, err)
	resolver := nlq.NewResolver(sch.Span, time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC))
	runner := &stubRunner{}

	return New(Deps{
		Schema:     sch,
		Classifier: nlq.NewRuleRouter(nil),
		Filler:     nlq.NewFiller(sch.Span, resolver, nil),
		Builder:    sqlgen.NewBuilder(dialect),
		Gate:       safety.NewGate(sch, nil),
		Runner:     runner,
	}), runner
}

func toolRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func TestRouteTool(t *testing.T) {
	s, _ := newTestServer(t)

	res, err := s.handleRoute(context.Background(), toolRequest("route", map[string]any{
		"question": "how many trips per week in June 2022",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "count_over_time")
}

func TestRouteToolReportsUnroutable(t *testing.T) {
	s, _ := newTestServer(t)

	res, err := s.handleRoute(context.Background(), toolRequest("route", map[string]any{
		"question": "tell me a joke",
	}))
	require.NoError(t, err)
	require.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "cannot route")
}

func TestRunSQLToolRejectsUngatedSQL(t *testing.T) {
	s, runner := newTestServer(t)

	res, err := s.handleRunSQL(context.Background(), toolRequest("run_sql", map[string]any{
		"sql": "DROP TABLE taxi_trips",
	}))
	require.NoError(t, err)
	require.True(t, res.IsError)
	assert.Empty(t, runner.calls, "rejected SQL must never reach the runner")
}

func TestRunSQLToolExecutesApprovedSQL(t *testing.T) {
	s, runner := newTestServer(t)

	res, err := s.handleRunSQL(context.Background(), toolRequest("run_sql", map[string]any{
		"sql": "SELECT COUNT(*) AS trips FROM taxi_trips",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, runner.calls, 1)
	assert.Contains(t, resultText(t, res), "trips")
}

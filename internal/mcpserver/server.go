// Package mcpserver exposes the pipeline stages as MCP tools over stdio, so
// an external agent can drive routing, planning, and gated execution.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/askdb-labs/askdb/internal/executor"
	"github.com/askdb-labs/askdb/internal/nlq"
	"github.com/askdb-labs/askdb/internal/safety"
	"github.com/askdb-labs/askdb/internal/schema"
	"github.com/askdb-labs/askdb/internal/sqlgen"
)

// Deps are the pipeline pieces the server exposes.
type Deps struct {
	Schema     *schema.Schema
	Classifier nlq.Classifier
	Filler     *nlq.Filler
	Builder    *sqlgen.Builder
	Gate       *safety.Gate
	Runner     interface {
		Execute(ctx context.Context, sqlText string) (*executor.ResultSet, error)
	}
	Logger *slog.Logger
}

// Server wraps an MCP server over the query pipeline.
type Server struct {
	mcp  *server.MCPServer
	deps Deps
}

// New assembles the MCP server and registers its tools.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		mcp: server.NewMCPServer(
			"askdb",
			"1.0.0",
			server.WithToolCapabilities(false),
		),
		deps: deps,
	}

	s.mcp.AddTool(mcp.NewTool("route",
		mcp.WithDescription("Classify a natural-language question into a query intent."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The user's question")),
	), s.handleRoute)

	s.mcp.AddTool(mcp.NewTool("resolve_dates",
		mcp.WithDescription("Resolve a time expression to a concrete date range, reporting ambiguity instead of guessing."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text containing the time expression")),
	), s.handleResolveDates)

	s.mcp.AddTool(mcp.NewTool("build_sql",
		mcp.WithDescription("Build SQL from an intent and a complete slot set."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The full question to plan")),
	), s.handleBuildSQL)

	s.mcp.AddTool(mcp.NewTool("check_sql",
		mcp.WithDescription("Run the safety gate over a SQL statement and report the verdict."),
		mcp.WithString("sql", mcp.Required(), mcp.Description("The SQL text to certify")),
	), s.handleCheckSQL)

	s.mcp.AddTool(mcp.NewTool("run_sql",
		mcp.WithDescription("Execute SQL that passes the safety gate. Rejected SQL never runs."),
		mcp.WithString("sql", mcp.Required(), mcp.Description("The SQL text to certify and run")),
	), s.handleRunSQL)

	return s
}

// ServeStdio blocks, serving MCP over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleRoute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	intent, confidence, err := s.deps.Classifier.Classify(ctx, question)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("classification failed: %v", err)), nil
	}
	if intent == nlq.IntentUnknown {
		return mcp.NewToolResultError((&nlq.UnroutableError{Text: question}).Error()), nil
	}
	return jsonResult(map[string]any{
		"intent":     string(intent),
		"confidence": confidence,
	})
}

func (s *Server) handleResolveDates(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolver := nlq.NewResolver(s.deps.Schema.Span, time.Now().UTC())
	rng, err := resolver.Resolve(text)
	switch e := err.(type) {
	case nil:
	case *nlq.AmbiguousDateError:
		candidates := make([]string, 0, len(e.Candidates))
		for _, c := range e.Candidates {
			candidates = append(candidates, c.String())
		}
		return jsonResult(map[string]any{
			"status":     "ambiguous",
			"expression": e.Expression,
			"candidates": candidates,
		})
	default:
		return jsonResult(map[string]any{"status": "error", "error": err.Error()})
	}

	if rng == nil {
		return jsonResult(map[string]any{"status": "none"})
	}
	return jsonResult(map[string]any{
		"status":      "resolved",
		"start":       rng.Start.Format("2006-01-02"),
		"end":         rng.End.Format("2006-01-02"),
		"granularity": string(rng.Granularity),
		"swapped":     rng.Swapped,
	})
}

func (s *Server) handleBuildSQL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	intent, _, err := s.deps.Classifier.Classify(ctx, question)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("classification failed: %v", err)), nil
	}
	if intent == nlq.IntentUnknown {
		return mcp.NewToolResultError("question does not map to a supported intent"), nil
	}

	slots, questions := s.deps.Filler.Fill(question, intent, nlq.SlotSet{})
	if len(questions) > 0 {
		open := make([]map[string]any, 0, len(questions))
		for _, q := range questions {
			open = append(open, map[string]any{
				"slot": q.Slot, "kind": string(q.Kind), "text": q.Text, "options": q.Options,
			})
		}
		return jsonResult(map[string]any{"status": "incomplete", "questions": open})
	}

	plan, err := nlq.NewPlan(intent, slots)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sqlText, err := s.deps.Builder.Build(plan)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"status":         "ok",
		"intent":         string(intent),
		"summary":        plan.Summary(),
		"sql":            sqlText,
		"estimated_rows": plan.EstimateRows(),
	})
}

func (s *Server) handleCheckSQL(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sqlText, err := req.RequireString("sql")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	verdict := s.deps.Gate.Check(sqlText)
	out := map[string]any{"approved": verdict.Approved}
	if !verdict.Approved {
		out["rule"] = verdict.RuleID
		out["reason"] = string(verdict.Reason)
		out["detail"] = verdict.Detail
	}
	return jsonResult(out)
}

func (s *Server) handleRunSQL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sqlText, err := req.RequireString("sql")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	verdict := s.deps.Gate.Check(sqlText)
	if !verdict.Approved {
		s.deps.Logger.Info("run_sql rejected",
			"rule", verdict.RuleID, "reason", string(verdict.Reason))
		return mcp.NewToolResultError(fmt.Sprintf("rejected by %s: %s", verdict.RuleID, verdict.Detail)), nil
	}

	rs, err := s.deps.Runner.Execute(ctx, sqlText)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"columns":   rs.Columns,
		"rows":      rs.Rows,
		"truncated": rs.Truncated,
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

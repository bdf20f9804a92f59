package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/askdb-labs/askdb/internal/adapter"
	"github.com/askdb-labs/askdb/internal/agent"
	"github.com/askdb-labs/askdb/internal/config"
	"github.com/askdb-labs/askdb/internal/executor"
	"github.com/askdb-labs/askdb/internal/llm"
	"github.com/askdb-labs/askdb/internal/nlq"
	"github.com/askdb-labs/askdb/internal/safety"
	"github.com/askdb-labs/askdb/internal/schema"
	"github.com/askdb-labs/askdb/internal/sqlgen"
)

type configKey struct{}
type loggerKey struct{}

// WithConfig stashes the loaded config in the context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the config from the context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	cfg, _ := config.Load("", nil)
	return cfg
}

// WithLogger stashes the logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// pipeline is the assembled query stack shared by the ask, query, and mcp
// commands.
type pipeline struct {
	Schema     *schema.Schema
	Adapter    adapter.Adapter
	Gate       *safety.Gate
	Builder    *sqlgen.Builder
	Executor   *executor.Executor
	Classifier nlq.Classifier
	Filler     *nlq.Filler
	Agent      *agent.Orchestrator
}

// newPipeline connects the adapter and wires every stage from config.
func newPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pipeline, error) {
	acfg := adapter.Config{
		Type: cfg.Database.Type,
		Path: cfg.Database.Path,
		DSN:  cfg.Database.DSN,
	}
	ad, err := adapter.New(acfg, logger)
	if err != nil {
		return nil, err
	}
	if err := ad.Connect(ctx, acfg); err != nil {
		return nil, err
	}

	sch := schema.Default()
	dialect, err := sqlgen.ForAdapter(ad.DialectName())
	if err != nil {
		return nil, err
	}

	gate := safety.NewGate(sch, logger)
	builder := sqlgen.NewBuilder(dialect)
	exec := executor.New(ad, cfg.Executor.RowCap, cfg.Executor.Timeout, logger)

	resolver := nlq.NewResolver(sch.Span, time.Now().UTC())
	filler := nlq.NewFiller(sch.Span, resolver, logger)
	classifier := newClassifier(cfg, logger)

	return &pipeline{
		Schema:     sch,
		Adapter:    ad,
		Gate:       gate,
		Builder:    builder,
		Executor:   exec,
		Classifier: classifier,
		Filler:     filler,
		Agent:      agent.New(classifier, filler, builder, gate, exec, logger),
	}, nil
}

// newClassifier picks the configured router. The gemini classifier always
// keeps the rule router underneath it.
func newClassifier(cfg *config.Config, logger *slog.Logger) nlq.Classifier {
	rules := nlq.NewRuleRouter(logger)
	if cfg.Classifier.Kind != "gemini" {
		return rules
	}

	apiKey := os.Getenv(cfg.Classifier.APIKeyEnv)
	if apiKey == "" {
		logger.Warn("gemini classifier configured but key env is empty, using rules",
			"env", cfg.Classifier.APIKeyEnv)
		return rules
	}

	gemini := llm.NewGemini(llm.Config{
		APIKey: apiKey,
		Model:  cfg.Classifier.Model,
	}, logger)
	return nlq.NewFallbackClassifier(gemini, rules, cfg.Classifier.Threshold, logger)
}

// Close releases the pipeline's resources.
func (p *pipeline) Close() error {
	if p.Adapter != nil {
		return p.Adapter.Close()
	}
	return nil
}

func fmtErr(action string, err error) error {
	return fmt.Errorf("%s: %w", action, err)
}

// Package testutil holds helpers shared by the package tests.
package testutil

import (
	"log/slog"
	"testing"
)

// NewTestLogger returns a debug-level slog.Logger whose output lands in
// t.Log, so the pipeline's routing and gating decisions show up next to a
// failing assertion, and only there (or under -v).
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(tlogWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type tlogWriter struct {
	t testing.TB
}

func (w tlogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

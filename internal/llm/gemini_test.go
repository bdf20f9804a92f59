package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb-labs/askdb/internal/nlq"
)

func geminiServer(t *testing.T, replyText string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(status)
		if status != http.StatusOK {
			return
		}
		resp := map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": replyText}},
				},
			}},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGeminiClassify(t *testing.T) {
	srv := geminiServer(t, `{"intent": "count_over_time", "confidence": 0.92}`, http.StatusOK)
	g := NewGemini(Config{APIKey: "test", Endpoint: srv.URL}, nil)

	intent, conf, err := g.Classify(context.Background(), "how many trips in June 2022?")
	require.NoError(t, err)
	assert.Equal(t, nlq.IntentCountOverTime, intent)
	assert.Equal(t, 0.92, conf)
}

func TestGeminiClassify_StripsMarkdownFences(t *testing.T) {
	srv := geminiServer(t, "```json\n{\"intent\": \"sample_rows\", \"confidence\": 0.8}\n```", http.StatusOK)
	g := NewGemini(Config{APIKey: "test", Endpoint: srv.URL}, nil)

	intent, _, err := g.Classify(context.Background(), "show me some rows")
	require.NoError(t, err)
	assert.Equal(t, nlq.IntentSampleRows, intent)
}

func TestGeminiClassify_InvalidIntentIsError(t *testing.T) {
	srv := geminiServer(t, `{"intent": "make_coffee", "confidence": 0.9}`, http.StatusOK)
	g := NewGemini(Config{APIKey: "test", Endpoint: srv.URL}, nil)

	_, _, err := g.Classify(context.Background(), "anything")
	require.Error(t, err)
}

func TestGeminiClassify_HTTPErrorIsError(t *testing.T) {
	srv := geminiServer(t, "", http.StatusTooManyRequests)
	g := NewGemini(Config{APIKey: "test", Endpoint: srv.URL}, nil)

	_, _, err := g.Classify(context.Background(), "anything")
	require.Error(t, err)
}

func TestGeminiFallsBackToRules(t *testing.T) {
	srv := geminiServer(t, "", http.StatusInternalServerError)
	g := NewGemini(Config{APIKey: "test", Endpoint: srv.URL}, nil)
	fc := nlq.NewFallbackClassifier(g, nlq.NewRuleRouter(nil), 0.6, nil)

	intent, _, err := fc.Classify(context.Background(), "how many trips in June 2022?")
	require.NoError(t, err)
	assert.Equal(t, nlq.IntentCountOverTime, intent)
}

package nlq

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleRouter_Classify(t *testing.T) {
	tests := []struct {
		text string
		want Intent
	}{
		{"How many trips were there in June 2022?", IntentCountOverTime},
		{"count rides per week last month", IntentCountOverTime},
		{"What was the average fare in Q2 2022?", IntentAggregateMetric},
		{"total tips by month", IntentAggregateMetric},
		{"average trips per week in March", IntentAggregateMetric},
		{"which vendors were inactive in July?", IntentEntityActivity},
		{"show me some sample rows", IntentSampleRows},
		{"give me a preview of the data", IntentSampleRows},
		{"what was the weather like in June?", IntentUnknown},
		{"tell me a joke", IntentUnknown},
	}

	router := NewRuleRouter(nil)
	for _, tt := range tests {
		intent, _, err := router.Classify(context.Background(), tt.text)
		require.NoError(t, err, tt.text)
		assert.Equal(t, tt.want, intent, tt.text)
	}
}

type stubClassifier struct {
	intent Intent
	conf   float64
	err    error
}

func (s *stubClassifier) Classify(context.Context, string) (Intent, float64, error) {
	return s.intent, s.conf, s.err
}

func TestFallbackClassifier(t *testing.T) {
	secondary := &stubClassifier{intent: IntentCountOverTime, conf: 0.7}

	t.Run("primary confident answer wins", func(t *testing.T) {
		primary := &stubClassifier{intent: IntentSampleRows, conf: 0.95}
		fc := NewFallbackClassifier(primary, secondary, 0.5, nil)

		intent, conf, err := fc.Classify(context.Background(), "anything")
		require.NoError(t, err)
		assert.Equal(t, IntentSampleRows, intent)
		assert.Equal(t, 0.95, conf)
	})

	t.Run("primary error falls back", func(t *testing.T) {
		primary := &stubClassifier{err: errors.New("upstream unavailable")}
		fc := NewFallbackClassifier(primary, secondary, 0.5, nil)

		intent, _, err := fc.Classify(context.Background(), "anything")
		require.NoError(t, err)
		assert.Equal(t, IntentCountOverTime, intent)
	})

	t.Run("primary below threshold falls back", func(t *testing.T) {
		primary := &stubClassifier{intent: IntentSampleRows, conf: 0.2}
		fc := NewFallbackClassifier(primary, secondary, 0.5, nil)

		intent, _, err := fc.Classify(context.Background(), "anything")
		require.NoError(t, err)
		assert.Equal(t, IntentCountOverTime, intent)
	})

	t.Run("primary unknown falls back", func(t *testing.T) {
		primary := &stubClassifier{intent: IntentUnknown, conf: 0.9}
		fc := NewFallbackClassifier(primary, secondary, 0.5, nil)

		intent, _, err := fc.Classify(context.Background(), "anything")
		require.NoError(t, err)
		assert.Equal(t, IntentCountOverTime, intent)
	})
}

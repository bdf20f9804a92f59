package nlq

import (
	"context"
	"fmt"
	"log/slog"
)

// Intent is the routed analytic question category.
type Intent string

const (
	IntentCountOverTime   Intent = "count_over_time"
	IntentAggregateMetric Intent = "aggregate_metric"
	IntentEntityActivity  Intent = "entity_activity"
	IntentSampleRows      Intent = "sample_rows"
	IntentUnknown         Intent = "unknown"
)

// UnroutableError reports a question no classifier could map to an intent.
type UnroutableError struct {
	Text string
}

func (e *UnroutableError) Error() string {
	return fmt.Sprintf("cannot route question %q to a supported intent", e.Text)
}

// Classifier maps a question to an intent with a confidence in [0, 1].
// Implementations must be swappable without touching the rest of the
// pipeline; confidence below the caller's threshold means "don't trust me".
type Classifier interface {
	Classify(ctx context.Context, text string) (Intent, float64, error)
}

// offTopicWords are subjects the dataset cannot answer. Any hit routes to
// unknown before the intent rules run, so "weather in June" is refused
// rather than half-matched on its month.
var offTopicWords = []string{
	"weather", "rain", "snow", "temperature", "forecast",
	"news", "stock", "stocks", "population",
	"covid", "flight", "flights", "subway", "bus",
}

var sampleWords = []string{"sample", "samples", "example", "examples", "preview", "peek", "glimpse", "inspect"}

var entityWords = []string{"vendor", "vendors", "inactive", "inactivity", "active", "operator", "operators"}

var aggregateWords = []string{
	"average", "avg", "mean", "typical", "median",
	"total", "sum", "overall",
	"fare", "fares", "tip", "tips", "tipping", "gratuity",
	"revenue", "amount", "amounts", "price", "prices", "cost", "costs", "expensive", "money",
}

var countWords = []string{"trips", "trip", "rides", "ride", "journeys", "many", "count", "volume", "busiest"}

// RuleRouter classifies questions with ordered keyword rules. Order matters:
// sample and entity cues are rare and specific, aggregate cues beat count
// cues so "average trips per week" lands on the metric path, and the bare
// trip-count words come last as the broadest signal.
type RuleRouter struct {
	logger *slog.Logger
}

// NewRuleRouter creates a keyword-rule classifier.
func NewRuleRouter(logger *slog.Logger) *RuleRouter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RuleRouter{logger: logger}
}

// Classify implements Classifier. It never returns an error; a question with
// no matching rule yields (IntentUnknown, 0, nil).
func (r *RuleRouter) Classify(_ context.Context, text string) (Intent, float64, error) {
	lower := lowercase(text)

	intent, conf := r.classify(lower)
	r.logger.Debug("routed question", "intent", intent, "confidence", conf)
	return intent, conf, nil
}

func (r *RuleRouter) classify(lower string) (Intent, float64) {
	for _, w := range offTopicWords {
		if containsWord(lower, w) {
			return IntentUnknown, 0.9
		}
	}
	for _, w := range sampleWords {
		if containsWord(lower, w) {
			return IntentSampleRows, 0.9
		}
	}
	if containsPhrase(lower, "show me some") || containsPhrase(lower, "what does the data look like") {
		return IntentSampleRows, 0.8
	}
	for _, w := range entityWords {
		if containsWord(lower, w) {
			return IntentEntityActivity, 0.85
		}
	}
	for _, w := range aggregateWords {
		if containsWord(lower, w) {
			return IntentAggregateMetric, 0.8
		}
	}
	for _, w := range countWords {
		if containsWord(lower, w) {
			return IntentCountOverTime, 0.75
		}
	}
	return IntentUnknown, 0
}

// FallbackClassifier tries a primary classifier and falls back to a secondary
// when the primary errors or is not confident enough. The zero threshold
// means any non-unknown primary answer is accepted.
type FallbackClassifier struct {
	Primary   Classifier
	Secondary Classifier
	Threshold float64

	logger *slog.Logger
}

// NewFallbackClassifier chains primary over secondary at the given
// confidence threshold.
func NewFallbackClassifier(primary, secondary Classifier, threshold float64, logger *slog.Logger) *FallbackClassifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FallbackClassifier{Primary: primary, Secondary: secondary, Threshold: threshold, logger: logger}
}

// Classify implements Classifier.
func (f *FallbackClassifier) Classify(ctx context.Context, text string) (Intent, float64, error) {
	intent, conf, err := f.Primary.Classify(ctx, text)
	if err == nil && intent != IntentUnknown && conf >= f.Threshold {
		return intent, conf, nil
	}
	if err != nil {
		f.logger.Warn("primary classifier failed, falling back", "error", err)
	} else {
		f.logger.Debug("primary classifier not confident, falling back", "intent", intent, "confidence", conf)
	}
	return f.Secondary.Classify(ctx, text)
}

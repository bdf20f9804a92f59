package nlq

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/askdb-labs/askdb/internal/schema"
)

// Granularity is a time-bucket size for grouped results.
type Granularity string

const (
	GranularityNone    Granularity = ""
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
)

// AggFunc is an aggregate function over a metric column.
type AggFunc string

const (
	AggAvg   AggFunc = "avg"
	AggTotal AggFunc = "total"
)

// MetricTripCount is a pseudo-column meaning "number of trips". It keeps
// "average trips per week" on the aggregate path instead of fuzzing into the
// tip column, and the builder expands it to COUNT(*).
const MetricTripCount = "trip_count"

// Metric is an aggregate target: which column, and how to fold it.
type Metric struct {
	Column string
	Func   AggFunc
}

// Predicate is a single equality filter, the only filter shape the
// builder emits.
type Predicate struct {
	Column string
	Value  string
}

// SlotSet is the structured extraction of one question. Nil pointer slots
// are absent, not zero-valued.
type SlotSet struct {
	DateRange   *DateRange
	Granularity Granularity
	Metric      *Metric
	Dimension   string
	Filter      *Predicate
	Limit       int

	// GranularityDefaulted is set when the granularity came from a default
	// rather than the user's words, so replies can flag the assumption.
	GranularityDefaulted bool
}

// QuestionKind says why a clarification is needed.
type QuestionKind string

const (
	KindMissing    QuestionKind = "missing"
	KindAmbiguous  QuestionKind = "ambiguous"
	KindOutOfRange QuestionKind = "out_of_range"
	KindInvalid    QuestionKind = "invalid"
)

// Question is one clarification to put to the user.
type Question struct {
	Slot    string
	Kind    QuestionKind
	Text    string
	Options []string
}

const (
	// Row limit bounds for sample queries.
	DefaultLimit = 100
	MaxLimit     = 1000
)

var granularityVocab = vocabulary{
	string(GranularityDaily):   {"day", "days", "dayly"},
	string(GranularityWeekly):  {"week", "weeks", "weekly"},
	string(GranularityMonthly): {"month", "months", "monthly"},
}

var metricVocab = vocabulary{
	"fare_amount":   {"fare", "fares", "price", "prices", "cost", "costs", "revenue", "money", "expensive"},
	"tip_amount":    {"tip", "tips", "tipping", "gratuity", "gratuities"},
	"total_amount":  {"spend", "spending"},
	MetricTripCount: {"trip", "trips", "ride", "rides", "journeys"},
}

var aggVocab = vocabulary{
	string(AggAvg):   {"average", "mean", "typical"},
	string(AggTotal): {"sum", "overall", "combined"},
}

var vendorRe = regexp.MustCompile(`\b(vts|cmt|dds)\b`)
var limitRe = regexp.MustCompile(`\b(?:top|first|limit|show)\s+(\d+)\b`)

// Filler extracts slots from question text and produces clarification
// questions for whatever it could not pin down.
type Filler struct {
	Span   schema.DateSpan
	Dates  *Resolver
	Logger *slog.Logger
}

// NewFiller builds a Filler over the dataset span using the given resolver.
func NewFiller(span schema.DateSpan, dates *Resolver, logger *slog.Logger) *Filler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Filler{Span: span, Dates: dates, Logger: logger}
}

// Fill extracts slots from text for the given intent, merging into existing.
// Already-filled slots survive; only what the new text pins down changes.
// This is what makes clarification answers additive: the orchestrator
// re-runs Fill over original question + answer and nothing resets.
//
// Questions come back for every required slot still missing, ambiguous,
// or out of range. An empty question list means the slot set is complete.
func (f *Filler) Fill(text string, intent Intent, existing SlotSet) (SlotSet, []Question) {
	slots := existing
	var questions []Question

	lower := lowercase(text)

	if q := f.fillDates(text, intent, &slots); q != nil {
		questions = append(questions, *q)
	}
	if q := f.fillGranularity(lower, intent, &slots); q != nil {
		questions = append(questions, *q)
	}
	if q := f.fillMetric(lower, intent, &slots); q != nil {
		questions = append(questions, *q)
	}
	f.fillDimension(lower, intent, &slots)
	f.fillLimit(lower, intent, &slots)

	f.Logger.Debug("filled slots",
		"intent", intent,
		"has_range", slots.DateRange != nil,
		"granularity", slots.Granularity,
		"open_questions", len(questions))
	return slots, questions
}

func (f *Filler) fillDates(text string, intent Intent, slots *SlotSet) *Question {
	if !requiresDateRange(intent) {
		return nil
	}

	rng, err := f.Dates.Resolve(text)
	switch {
	case rng != nil:
		slots.DateRange = rng
		if slots.Granularity == GranularityNone && rng.Granularity != GranularityNone {
			slots.Granularity = rng.Granularity
			slots.GranularityDefaulted = true
		}
		return nil
	case err != nil:
		return dateQuestion(err, f.Span)
	case slots.DateRange != nil:
		// Nothing new in this text; keep what we had.
		return nil
	default:
		return &Question{
			Slot: "date_range",
			Kind: KindMissing,
			Text: fmt.Sprintf("Which time period? The data covers %s.", f.Span),
		}
	}
}

// dateQuestion turns a resolver error into the clarification to ask.
func dateQuestion(err error, span schema.DateSpan) *Question {
	switch e := err.(type) {
	case *AmbiguousDateError:
		opts := make([]string, 0, len(e.Candidates))
		for _, c := range e.Candidates {
			opts = append(opts, c.String())
		}
		return &Question{
			Slot:    "date_range",
			Kind:    KindAmbiguous,
			Text:    fmt.Sprintf("%q could mean more than one period. Which one?", e.Expression),
			Options: opts,
		}
	case *OutOfRangeError:
		return &Question{
			Slot: "date_range",
			Kind: KindOutOfRange,
			Text: fmt.Sprintf("That period is outside the data, which covers %s. Pick dates inside it.", span),
		}
	case *InvalidDateError:
		return &Question{
			Slot: "date_range",
			Kind: KindInvalid,
			Text: e.Error(),
		}
	case *EmptyRangeError:
		return &Question{
			Slot: "date_range",
			Kind: KindInvalid,
			Text: e.Error(),
		}
	default:
		return &Question{Slot: "date_range", Kind: KindInvalid, Text: err.Error()}
	}
}

func (f *Filler) fillGranularity(lower string, intent Intent, slots *SlotSet) *Question {
	if !requiresGranularity(intent) {
		return nil
	}

	found, ties := matchText(lower, granularityVocab)
	if len(found) == 0 && len(ties) > 0 {
		return &Question{
			Slot:    "granularity",
			Kind:    KindAmbiguous,
			Text:    fmt.Sprintf("%q could mean more than one bucket size. Which one?", ties[0].Word),
			Options: ties[0].Candidates,
		}
	}
	switch len(found) {
	case 0:
		// No explicit granularity. Keep an earlier value, or default from
		// the resolved range's width.
		if slots.Granularity != GranularityNone {
			return nil
		}
		if slots.DateRange != nil {
			slots.Granularity = recommendGranularity(slots.DateRange.Start, slots.DateRange.End)
			slots.GranularityDefaulted = true
			return nil
		}
		// Date question is already pending; don't pile on.
		return nil
	case 1:
		slots.Granularity = Granularity(found[0])
		slots.GranularityDefaulted = false
		return nil
	default:
		return &Question{
			Slot:    "granularity",
			Kind:    KindAmbiguous,
			Text:    "Group results by which bucket?",
			Options: found,
		}
	}
}

func (f *Filler) fillMetric(lower string, intent Intent, slots *SlotSet) *Question {
	if intent != IntentAggregateMetric {
		return nil
	}

	fn, fnTies := matchText(lower, aggVocab)
	if len(fn) == 0 && len(fnTies) > 0 {
		return &Question{
			Slot:    "metric",
			Kind:    KindAmbiguous,
			Text:    fmt.Sprintf("%q could mean average or total. Which one?", fnTies[0].Word),
			Options: fnTies[0].Candidates,
		}
	}
	if len(fn) == 1 {
		if slots.Metric == nil {
			slots.Metric = &Metric{}
		}
		slots.Metric.Func = AggFunc(fn[0])
	}

	cols, colTies := matchText(lower, metricVocab)
	if len(cols) == 0 && len(colTies) > 0 {
		return &Question{
			Slot:    "metric",
			Kind:    KindAmbiguous,
			Text:    fmt.Sprintf("%q could mean more than one amount. Which one?", colTies[0].Word),
			Options: colTies[0].Candidates,
		}
	}
	switch len(cols) {
	case 0:
		if slots.Metric != nil && slots.Metric.Column != "" {
			return nil
		}
		return &Question{
			Slot:    "metric",
			Kind:    KindMissing,
			Text:    "Which amount: fares, tips, or totals?",
			Options: []string{"fare_amount", "tip_amount", "total_amount"},
		}
	case 1:
		if slots.Metric == nil {
			slots.Metric = &Metric{}
		}
		slots.Metric.Column = cols[0]
	default:
		// "fares and tips" names two metrics; the plan holds exactly one.
		return &Question{
			Slot:    "metric",
			Kind:    KindAmbiguous,
			Text:    "I can chart one amount at a time. Which one?",
			Options: cols,
		}
	}

	if slots.Metric.Func == "" {
		slots.Metric.Func = AggAvg
	}
	return nil
}

func (f *Filler) fillDimension(lower string, intent Intent, slots *SlotSet) {
	if intent != IntentEntityActivity {
		return
	}
	slots.Dimension = "vendor_id"
	if m := vendorRe.FindStringSubmatch(lower); m != nil {
		slots.Filter = &Predicate{Column: "vendor_id", Value: strings.ToUpper(m[1])}
	}
}

func (f *Filler) fillLimit(lower string, intent Intent, slots *SlotSet) {
	if intent != IntentSampleRows {
		return
	}
	if m := limitRe.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		slots.Limit = ClampLimit(n)
	}
	if slots.Limit == 0 {
		slots.Limit = DefaultLimit
	}
}

// ClampLimit bounds a requested row count to [1, MaxLimit].
func ClampLimit(n int) int {
	switch {
	case n < 1:
		return 1
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}

// Complete reports whether every slot the intent requires is filled.
func Complete(intent Intent, slots SlotSet) bool {
	if requiresDateRange(intent) && slots.DateRange == nil {
		return false
	}
	if requiresGranularity(intent) && slots.Granularity == GranularityNone {
		return false
	}
	if intent == IntentAggregateMetric && (slots.Metric == nil || slots.Metric.Column == "") {
		return false
	}
	return true
}

func requiresDateRange(intent Intent) bool {
	switch intent {
	case IntentCountOverTime, IntentAggregateMetric, IntentEntityActivity:
		return true
	}
	return false
}

func requiresGranularity(intent Intent) bool {
	switch intent {
	case IntentCountOverTime, IntentAggregateMetric:
		return true
	}
	return false
}

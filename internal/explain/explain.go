// Package explain turns query results into plain-language summaries and
// follow-up suggestions.
package explain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/askdb-labs/askdb/internal/executor"
	"github.com/askdb-labs/askdb/internal/nlq"
)

// Explanation is the user-facing reading of a result set.
type Explanation struct {
	Summary     string
	Suggestions []string
}

// Summarize describes what the query found, in terms of the plan that
// produced it, and proposes natural next questions.
func Summarize(plan *nlq.QueryPlan, rs *executor.ResultSet) Explanation {
	var b strings.Builder

	if len(rs.Rows) == 0 {
		b.WriteString("No matching trips were found")
		if plan.Slots.DateRange != nil {
			fmt.Fprintf(&b, " between %s", plan.Slots.DateRange)
		}
		b.WriteString(". The period may be outside the data or the filter too narrow.")
		return Explanation{Summary: b.String(), Suggestions: suggestions(plan)}
	}

	switch plan.Intent {
	case nlq.IntentCountOverTime:
		summarizeBuckets(&b, plan, rs, "trips")
	case nlq.IntentAggregateMetric:
		summarizeMetric(&b, plan, rs)
	case nlq.IntentEntityActivity:
		summarizeVendors(&b, plan, rs)
	case nlq.IntentSampleRows:
		fmt.Fprintf(&b, "Showing %d sample trips", len(rs.Rows))
		if plan.Slots.DateRange != nil {
			fmt.Fprintf(&b, " from %s", plan.Slots.DateRange)
		}
		b.WriteString(".")
	}

	if rs.Truncated {
		b.WriteString(" The result was cut at the row cap; narrow the date range to see everything.")
	}

	return Explanation{Summary: b.String(), Suggestions: suggestions(plan)}
}

// summarizeBuckets reports the bucket count plus the busiest and quietest
// bucket for time-series counts.
func summarizeBuckets(b *strings.Builder, plan *nlq.QueryPlan, rs *executor.ResultSet, noun string) {
	fmt.Fprintf(b, "Found %d %s buckets", len(rs.Rows), bucketAdjective(plan.Slots.Granularity))
	if plan.Slots.DateRange != nil {
		fmt.Fprintf(b, " between %s", plan.Slots.DateRange)
	}
	b.WriteString(".")

	if hi, lo, ok := extrema(rs); ok && len(rs.Rows) > 1 {
		fmt.Fprintf(b, " The busiest was %s with %s %s; the quietest was %s with %s.",
			label(rs.Rows[hi]), number(rs.Rows[hi]), noun,
			label(rs.Rows[lo]), number(rs.Rows[lo]))
	}
}

func summarizeMetric(b *strings.Builder, plan *nlq.QueryPlan, rs *executor.ResultSet) {
	m := plan.Slots.Metric
	what := metricPhrase(m)

	if len(rs.Rows) == 1 && len(rs.Rows[0]) == 1 {
		fmt.Fprintf(b, "The %s", what)
		if plan.Slots.DateRange != nil {
			fmt.Fprintf(b, " between %s", plan.Slots.DateRange)
		}
		fmt.Fprintf(b, " was %s.", number(rs.Rows[0]))
		return
	}

	fmt.Fprintf(b, "Computed the %s across %d %s buckets", what, len(rs.Rows), bucketAdjective(plan.Slots.Granularity))
	if plan.Slots.DateRange != nil {
		fmt.Fprintf(b, " between %s", plan.Slots.DateRange)
	}
	b.WriteString(".")

	if hi, lo, ok := extrema(rs); ok && len(rs.Rows) > 1 {
		fmt.Fprintf(b, " The highest was %s (%s) and the lowest %s (%s).",
			number(rs.Rows[hi]), label(rs.Rows[hi]),
			number(rs.Rows[lo]), label(rs.Rows[lo]))
	}
}

func summarizeVendors(b *strings.Builder, plan *nlq.QueryPlan, rs *executor.ResultSet) {
	fmt.Fprintf(b, "Found activity for %d vendor(s)", len(rs.Rows))
	if plan.Slots.DateRange != nil {
		fmt.Fprintf(b, " between %s", plan.Slots.DateRange)
	}
	b.WriteString(".")
	if len(rs.Rows) > 0 {
		fmt.Fprintf(b, " %s was the most active with %s trips.",
			label(rs.Rows[0]), number(rs.Rows[0]))
	}
}

// suggestions proposes follow-ups that pivot away from the answered intent.
func suggestions(plan *nlq.QueryPlan) []string {
	switch plan.Intent {
	case nlq.IntentCountOverTime:
		return []string{
			"What was the average fare over the same period?",
			"Which vendors were most active then?",
		}
	case nlq.IntentAggregateMetric:
		return []string{
			"How many trips were there over the same period?",
			"How did tips compare over the same period?",
		}
	case nlq.IntentEntityActivity:
		return []string{
			"How many trips per week did the busiest vendor make?",
			"What was the average fare per vendor?",
		}
	case nlq.IntentSampleRows:
		return []string{
			"How many trips were there per month?",
			"What was the average fare?",
		}
	}
	return nil
}

// extrema finds the rows with the largest and smallest numeric value in the
// last column. ok is false when the column is not numeric.
func extrema(rs *executor.ResultSet) (hi, lo int, ok bool) {
	var hiVal, loVal float64
	found := false
	for i, row := range rs.Rows {
		v, numOK := toFloat(row[len(row)-1])
		if !numOK {
			continue
		}
		if !found || v > hiVal {
			hiVal, hi = v, i
		}
		if !found || v < loVal {
			loVal, lo = v, i
		}
		found = true
	}
	return hi, lo, found
}

// label renders a row's first column, the bucket or dimension value.
func label(row []any) string {
	if len(row) == 0 {
		return "?"
	}
	return fmt.Sprintf("%v", row[0])
}

// number renders a row's last column, the measure.
func number(row []any) string {
	if len(row) == 0 {
		return "?"
	}
	if f, ok := toFloat(row[len(row)-1]); ok {
		if f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(f, 'f', 2, 64)
	}
	return fmt.Sprintf("%v", row[len(row)-1])
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case []byte:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func bucketAdjective(g nlq.Granularity) string {
	switch g {
	case nlq.GranularityDaily:
		return "daily"
	case nlq.GranularityWeekly:
		return "weekly"
	case nlq.GranularityMonthly:
		return "monthly"
	}
	return "time"
}

func metricPhrase(m *nlq.Metric) string {
	verb := "average"
	if m.Func == nlq.AggTotal {
		verb = "total"
	}
	switch m.Column {
	case "fare_amount":
		return verb + " fare"
	case "tip_amount":
		return verb + " tip"
	case "total_amount":
		return verb + " amount"
	case nlq.MetricTripCount:
		return verb + " trip count"
	}
	return verb + " " + m.Column
}

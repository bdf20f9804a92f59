package nlq

import (
	"fmt"
	"strings"
)

// QueryPlan is a complete, user-reviewable description of what will run.
// It exists so the user approves intent, not SQL text.
type QueryPlan struct {
	Intent Intent
	Slots  SlotSet
}

// NewPlan wraps a complete slot set into a plan. It is an error to plan
// with open questions remaining.
func NewPlan(intent Intent, slots SlotSet) (*QueryPlan, error) {
	if intent == IntentUnknown {
		return nil, fmt.Errorf("cannot plan an unrouted question")
	}
	if !Complete(intent, slots) {
		return nil, fmt.Errorf("cannot plan %s: required slots are still open", intent)
	}
	return &QueryPlan{Intent: intent, Slots: slots}, nil
}

// Summary renders the plan in plain language for the approval prompt.
func (p *QueryPlan) Summary() string {
	var b strings.Builder

	switch p.Intent {
	case IntentCountOverTime:
		fmt.Fprintf(&b, "Count trips per %s", bucketNoun(p.Slots.Granularity))
	case IntentAggregateMetric:
		fmt.Fprintf(&b, "%s %s per %s",
			aggVerb(p.Slots.Metric.Func), metricNoun(p.Slots.Metric.Column), bucketNoun(p.Slots.Granularity))
	case IntentEntityActivity:
		b.WriteString("Trip counts per vendor")
		if p.Slots.Filter != nil {
			fmt.Fprintf(&b, " (only %s)", p.Slots.Filter.Value)
		}
	case IntentSampleRows:
		fmt.Fprintf(&b, "Show %d sample trips", p.Slots.Limit)
	}

	if p.Slots.DateRange != nil {
		fmt.Fprintf(&b, " from %s", p.Slots.DateRange)
		if p.Slots.DateRange.Swapped {
			b.WriteString(" (dates were reordered)")
		}
	}
	if p.Slots.GranularityDefaulted && p.Slots.Granularity != GranularityNone {
		fmt.Fprintf(&b, ", grouped %s by default", p.Slots.Granularity)
	}
	b.WriteString(".")
	return b.String()
}

// EstimateRows predicts the result size so the approval prompt can warn
// about wide scans before anything runs.
func (p *QueryPlan) EstimateRows() int {
	switch p.Intent {
	case IntentSampleRows:
		return p.Slots.Limit
	case IntentEntityActivity:
		if p.Slots.Filter != nil {
			return 1
		}
		return 3 // known vendor cardinality
	}
	if p.Slots.DateRange == nil {
		return 0
	}
	days := p.Slots.DateRange.Days()
	switch p.Slots.Granularity {
	case GranularityDaily:
		return days
	case GranularityWeekly:
		return days/7 + 1
	case GranularityMonthly:
		return days/30 + 1
	}
	return 1
}

func bucketNoun(g Granularity) string {
	switch g {
	case GranularityDaily:
		return "day"
	case GranularityWeekly:
		return "week"
	case GranularityMonthly:
		return "month"
	}
	return "period"
}

func metricNoun(column string) string {
	switch column {
	case "fare_amount":
		return "fare"
	case "tip_amount":
		return "tip"
	case "total_amount":
		return "total amount"
	case MetricTripCount:
		return "trip count"
	}
	return column
}

func aggVerb(fn AggFunc) string {
	switch fn {
	case AggTotal:
		return "Total"
	default:
		return "Average"
	}
}

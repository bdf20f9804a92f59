package sqlgen

import (
	"fmt"
	"strings"

	"github.com/askdb-labs/askdb/internal/nlq"
)

const (
	table          = "taxi_trips"
	timeColumn     = "pickup_datetime"
	dimColumn      = "vendor_id"
	dateLiteralFmt = "2006-01-02"
)

// Builder renders query plans as SQL for one dialect.
type Builder struct {
	dialect Dialect
}

// NewBuilder creates a Builder for the given dialect.
func NewBuilder(d Dialect) *Builder {
	return &Builder{dialect: d}
}

// Build renders the plan as a single terminated SELECT. Every emitted
// identifier comes from the fixed schema, every literal from a validated
// slot; the question text itself never reaches the output.
func (b *Builder) Build(plan *nlq.QueryPlan) (string, error) {
	var text string
	var err error
	switch plan.Intent {
	case nlq.IntentCountOverTime:
		text = b.countOverTime(plan.Slots)
	case nlq.IntentAggregateMetric:
		text, err = b.aggregateMetric(plan.Slots)
	case nlq.IntentEntityActivity:
		text = b.entityActivity(plan.Slots)
	case nlq.IntentSampleRows:
		text = b.sampleRows(plan.Slots)
	default:
		return "", fmt.Errorf("no SQL template for intent %q", plan.Intent)
	}
	if err != nil {
		return "", err
	}
	return text + ";", nil
}

func (b *Builder) countOverTime(slots nlq.SlotSet) string {
	bucket := b.dialect.Bucket(timeColumn, string(slots.Granularity))
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s AS bucket, COUNT(*) AS trips\nFROM %s\n", bucket, table)
	sb.WriteString(whereClause(slots))
	sb.WriteString("GROUP BY bucket\nORDER BY bucket, trips")
	return sb.String()
}

func (b *Builder) aggregateMetric(slots nlq.SlotSet) (string, error) {
	if slots.Metric == nil {
		return "", fmt.Errorf("aggregate plan has no metric")
	}
	if slots.Metric.Column == nlq.MetricTripCount {
		return b.tripCountMetric(slots), nil
	}

	fn := "AVG"
	if slots.Metric.Func == nlq.AggTotal {
		fn = "SUM"
	}
	bucket := b.dialect.Bucket(timeColumn, string(slots.Granularity))

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s AS bucket, ROUND(%s(%s), 2) AS value\nFROM %s\n",
		bucket, fn, slots.Metric.Column, table)
	sb.WriteString(whereClause(slots))
	sb.WriteString("GROUP BY bucket\nORDER BY bucket, value")
	return sb.String(), nil
}

// tripCountMetric folds trip counts instead of a money column. Averaging
// counts needs the per-bucket counts first, so it nests; totalling does not.
func (b *Builder) tripCountMetric(slots nlq.SlotSet) string {
	if slots.Metric.Func == nlq.AggTotal {
		var sb strings.Builder
		fmt.Fprintf(&sb, "SELECT COUNT(*) AS trips\nFROM %s\n", table)
		sb.WriteString(strings.TrimSuffix(whereClause(slots), "\n"))
		return sb.String()
	}

	bucket := b.dialect.Bucket(timeColumn, string(slots.Granularity))
	var sb strings.Builder
	sb.WriteString("SELECT ROUND(AVG(trips), 2) AS value\nFROM (\n")
	fmt.Fprintf(&sb, "  SELECT %s AS bucket, COUNT(*) AS trips\n  FROM %s\n", bucket, table)
	sb.WriteString(indent(whereClause(slots)))
	sb.WriteString("  GROUP BY bucket\n) AS per_bucket")
	return sb.String()
}

func (b *Builder) entityActivity(slots nlq.SlotSet) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s, COUNT(*) AS trips\nFROM %s\n", dimColumn, table)
	sb.WriteString(whereClause(slots))
	fmt.Fprintf(&sb, "GROUP BY %s\nORDER BY trips DESC, %s", dimColumn, dimColumn)
	return sb.String()
}

func (b *Builder) sampleRows(slots nlq.SlotSet) string {
	limit := nlq.ClampLimit(slots.Limit)
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT id, pickup_datetime, dropoff_datetime, vendor_id, fare_amount, tip_amount, total_amount\nFROM %s\n", table)
	if w := whereClause(slots); w != "" {
		sb.WriteString(w)
	}
	fmt.Fprintf(&sb, "ORDER BY pickup_datetime, id\nLIMIT %d", limit)
	return sb.String()
}

// whereClause renders the date-range and filter predicates, ending with a
// newline, or returns "" when there are none.
func whereClause(slots nlq.SlotSet) string {
	var conds []string
	if r := slots.DateRange; r != nil {
		conds = append(conds, fmt.Sprintf("%s >= '%s' AND %s < '%s'",
			timeColumn, r.Start.Format(dateLiteralFmt),
			timeColumn, r.End.Format(dateLiteralFmt)))
	}
	if f := slots.Filter; f != nil {
		conds = append(conds, fmt.Sprintf("%s = '%s'", f.Column, escapeLiteral(f.Value)))
	}
	if len(conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(conds, " AND ") + "\n"
}

// escapeLiteral doubles single quotes in a string literal.
func escapeLiteral(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}

func indent(s string) string {
	if s == "" {
		return ""
	}
	return "  " + strings.TrimSuffix(s, "\n") + "\n"
}

package nlq

import (
	"fmt"
	"strings"
	"time"

	"github.com/askdb-labs/askdb/internal/schema"
)

// AmbiguousDateError reports a time expression matching more than one
// disjoint calendar interval with no qualifier. The pipeline never guesses
// the most recent one; it asks.
type AmbiguousDateError struct {
	Expression string
	Candidates []DateRange
}

func (e *AmbiguousDateError) Error() string {
	parts := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		parts = append(parts, c.String())
	}
	return fmt.Sprintf("ambiguous date expression %q: could mean %s", e.Expression, strings.Join(parts, " or "))
}

// OutOfRangeError reports a resolved range outside the dataset's covered span.
type OutOfRangeError struct {
	Start time.Time
	End   time.Time
	Span  schema.DateSpan
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("dates %s to %s are outside the dataset span %s",
		e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"), e.Span)
}

// InvalidDateError reports date-looking text that is not a real calendar date.
type InvalidDateError struct {
	Values []string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date(s): %s (use YYYY-MM-DD)", strings.Join(e.Values, ", "))
}

// EmptyRangeError reports a range whose end does not come after its start.
type EmptyRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *EmptyRangeError) Error() string {
	return fmt.Sprintf("end date %s must be after start date %s (end is exclusive)",
		e.End.Format("2006-01-02"), e.Start.Format("2006-01-02"))
}

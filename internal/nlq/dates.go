package nlq

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/askdb-labs/askdb/internal/schema"
)

// DateRange is a half-open interval [Start, End) over calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time

	// Granularity is the advisory bucket-size suggestion derived from the
	// expression's shape (a month suggests weekly, a quarter monthly, and so
	// on). The slot filler may override it with an explicit granularity.
	Granularity Granularity

	// Swapped is set when the user supplied explicit dates in reverse order
	// and the resolver reordered them.
	Swapped bool
}

// Valid reports the half-open invariant Start < End.
func (r DateRange) Valid() bool {
	return r.Start.Before(r.End)
}

// Days returns the number of days the range covers.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

// String renders the range as "2022-01-01 to 2022-02-01".
func (r DateRange) String() string {
	return fmt.Sprintf("%s to %s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
}

var (
	isoDateRe  = regexp.MustCompile(`\b(\d{4})[-/](\d{2})[-/](\d{2})\b`)
	quarterRe  = regexp.MustCompile(`\bq([1-4])\b`)
	bareYearRe = regexp.MustCompile(`\b(20\d{2})\b`)
)

// seasonMonths maps season names to [startMonth, endMonth) within one year.
var seasonMonths = map[string][2]time.Month{
	"spring": {time.March, time.June},
	"summer": {time.June, time.September},
	"fall":   {time.September, time.December},
	"autumn": {time.September, time.December},
	"winter": {time.January, time.March},
}

var monthVocab = vocabulary{
	"1":  {"jan", "january"},
	"2":  {"feb", "february"},
	"3":  {"mar", "march"},
	"4":  {"apr", "april"},
	"5":  {"may"},
	"6":  {"jun", "june"},
	"7":  {"jul", "july"},
	"8":  {"aug", "august"},
	"9":  {"sep", "sept", "september"},
	"10": {"oct", "october"},
	"11": {"nov", "november"},
	"12": {"dec", "december"},
}

// Resolver parses time expressions into concrete date ranges anchored to an
// injected reference time, keeping resolution deterministic and testable.
type Resolver struct {
	Span schema.DateSpan
	Now  time.Time
}

// NewResolver creates a Resolver for the given dataset span and reference time.
func NewResolver(span schema.DateSpan, now time.Time) *Resolver {
	return &Resolver{Span: span, Now: now}
}

// Resolve extracts a date range from free text.
//
// Returns exactly one range on success. Expressions matching several disjoint
// calendar intervals (a month or quarter named without a year while the span
// covers multiple years) yield an *AmbiguousDateError carrying every
// candidate; ranges outside the span yield an *OutOfRangeError rather than
// being clipped. Text containing no time expression yields (nil, nil).
func (r *Resolver) Resolve(text string) (*DateRange, error) {
	lower := lowercase(text)

	// Explicit ISO dates win over everything else.
	if rng, err, found := r.resolveISO(text); found {
		return rng, err
	}

	if rng, err, found := r.resolveRelative(lower); found {
		return rng, err
	}

	explicitYear, hasYear := r.findYear(lower)

	if m := quarterRe.FindStringSubmatch(lower); m != nil {
		q, _ := strconv.Atoi(m[1])
		startMonth := time.Month((q-1)*3 + 1)
		return r.resolveYearScoped(fmt.Sprintf("Q%d", q), startMonth, startMonth+3, GranularityMonthly, explicitYear, hasYear)
	}

	for season, months := range seasonMonths {
		if containsWord(lower, season) {
			return r.resolveYearScoped(season, months[0], months[1], GranularityMonthly, explicitYear, hasYear)
		}
	}

	months, ambMonth := findMonths(lower)
	if ambMonth != nil {
		return nil, r.ambiguousMonth(ambMonth, explicitYear, hasYear)
	}
	if len(months) > 0 {
		first := time.Month(months[0])
		last := time.Month(months[len(months)-1])
		return r.resolveYearScoped(monthExpression(first, last), first, last+1, GranularityWeekly, explicitYear, hasYear)
	}

	if hasYear {
		start := time.Date(explicitYear, 1, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(1, 0, 0)
		return r.checked(DateRange{Start: start, End: end, Granularity: GranularityMonthly})
	}

	return nil, nil
}

// resolveISO handles explicit YYYY-MM-DD dates: one date means that single
// day, two mean the half-open range between them (reordered if reversed).
func (r *Resolver) resolveISO(text string) (*DateRange, error, bool) {
	matches := isoDateRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil, nil, false
	}

	var dates []time.Time
	var invalid []string
	for _, m := range matches {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		dt := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
		// time.Date normalizes out-of-range components; round-trip to detect.
		if dt.Year() != y || int(dt.Month()) != mo || dt.Day() != d {
			invalid = append(invalid, fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3]))
			continue
		}
		dates = append(dates, dt)
	}

	if len(invalid) > 0 {
		return nil, &InvalidDateError{Values: invalid}, true
	}

	if len(dates) == 1 {
		rng, err := r.checked(DateRange{
			Start:       dates[0],
			End:         dates[0].AddDate(0, 0, 1),
			Granularity: GranularityDaily,
		})
		return rng, err, true
	}

	swapped := dates[1].Before(dates[0])
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	start, end := dates[0], dates[len(dates)-1]
	if !start.Before(end) {
		return nil, &EmptyRangeError{Start: start, End: end}, true
	}
	rng, err := r.checked(DateRange{
		Start:       start,
		End:         end,
		Granularity: recommendGranularity(start, end),
		Swapped:     swapped,
	})
	return rng, err, true
}

// resolveRelative handles expressions anchored to the reference time.
func (r *Resolver) resolveRelative(lower string) (*DateRange, error, bool) {
	now := r.Now
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)

	switch {
	case containsPhrase(lower, "last month"):
		start := monthStart.AddDate(0, -1, 0)
		rng, err := r.checked(DateRange{Start: start, End: monthStart, Granularity: GranularityWeekly})
		return rng, err, true
	case containsPhrase(lower, "this month"):
		rng, err := r.checked(DateRange{Start: monthStart, End: monthStart.AddDate(0, 1, 0), Granularity: GranularityWeekly})
		return rng, err, true
	case containsPhrase(lower, "last quarter"):
		qStart := quarterStart(monthStart)
		start := qStart.AddDate(0, -3, 0)
		rng, err := r.checked(DateRange{Start: start, End: qStart, Granularity: GranularityMonthly})
		return rng, err, true
	case containsPhrase(lower, "this quarter"):
		qStart := quarterStart(monthStart)
		rng, err := r.checked(DateRange{Start: qStart, End: qStart.AddDate(0, 3, 0), Granularity: GranularityMonthly})
		return rng, err, true
	case containsPhrase(lower, "this year"):
		rng, err := r.checked(DateRange{Start: yearStart, End: yearStart.AddDate(1, 0, 0), Granularity: GranularityMonthly})
		return rng, err, true
	case containsPhrase(lower, "last year"):
		start := yearStart.AddDate(-1, 0, 0)
		rng, err := r.checked(DateRange{Start: start, End: yearStart, Granularity: GranularityMonthly})
		return rng, err, true
	case containsPhrase(lower, "whole year"), containsPhrase(lower, "entire year"),
		containsPhrase(lower, "full year"), containsPhrase(lower, "all year"):
		// "the whole year" without a year number: unambiguous only when the
		// span covers a single year.
		return r.wholeSpanYear(lower)
	}
	return nil, nil, false
}

// wholeSpanYear resolves "the whole year" style expressions.
func (r *Resolver) wholeSpanYear(lower string) (*DateRange, error, bool) {
	years := r.Span.Years()
	if y, ok := r.findYear(lower); ok {
		start := time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
		rng, err := r.checked(DateRange{Start: start, End: start.AddDate(1, 0, 0), Granularity: GranularityMonthly})
		return rng, err, true
	}
	if len(years) == 1 {
		start := time.Date(years[0], 1, 1, 0, 0, 0, 0, time.UTC)
		rng, err := r.checked(DateRange{Start: start, End: start.AddDate(1, 0, 0), Granularity: GranularityMonthly})
		return rng, err, true
	}
	return nil, &AmbiguousDateError{
		Expression: "the whole year",
		Candidates: r.yearCandidates(years),
	}, true
}

// resolveYearScoped resolves a month-window expression ([first, last) months
// of some year). Without an explicit year, every span year that fully
// contains the window is a candidate; more than one candidate is ambiguity,
// never a silent pick of the most recent.
func (r *Resolver) resolveYearScoped(expr string, first, last time.Month, g Granularity, year int, hasYear bool) (*DateRange, error) {
	window := func(y int) DateRange {
		start := time.Date(y, first, 1, 0, 0, 0, 0, time.UTC)
		var end time.Time
		if last > 12 {
			end = time.Date(y+1, last-12, 1, 0, 0, 0, 0, time.UTC)
		} else {
			end = time.Date(y, last, 1, 0, 0, 0, 0, time.UTC)
		}
		return DateRange{Start: start, End: end, Granularity: g}
	}

	if hasYear {
		return r.checked(window(year))
	}

	var candidates []DateRange
	for _, y := range r.Span.Years() {
		w := window(y)
		if r.Span.Contains(w.Start, w.End) {
			candidates = append(candidates, w)
		}
	}

	switch len(candidates) {
	case 0:
		w := window(r.Span.Min.Year())
		return nil, &OutOfRangeError{Start: w.Start, End: w.End, Span: r.Span}
	case 1:
		rng := candidates[0]
		return &rng, nil
	default:
		return nil, &AmbiguousDateError{Expression: expr, Candidates: candidates}
	}
}

// checked validates the range invariants against the span.
func (r *Resolver) checked(rng DateRange) (*DateRange, error) {
	if !rng.Valid() {
		return nil, &EmptyRangeError{Start: rng.Start, End: rng.End}
	}
	if !r.Span.Contains(rng.Start, rng.End) {
		return nil, &OutOfRangeError{Start: rng.Start, End: rng.End, Span: r.Span}
	}
	return &rng, nil
}

// findYear extracts an explicit four-digit year from the text.
func (r *Resolver) findYear(lower string) (int, bool) {
	m := bareYearRe.FindStringSubmatch(lower)
	if m == nil {
		return 0, false
	}
	y, _ := strconv.Atoi(m[1])
	return y, true
}

func (r *Resolver) yearCandidates(years []int) []DateRange {
	out := make([]DateRange, 0, len(years))
	for _, y := range years {
		start := time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
		out = append(out, DateRange{Start: start, End: start.AddDate(1, 0, 0), Granularity: GranularityMonthly})
	}
	return out
}

// findMonths returns the month numbers named in the text, ascending.
// Month names tolerate common misspellings via the same bounded edit
// distance used for slot vocabularies. A word that ties between two months
// ("jule") is returned as ambiguous instead of being dropped.
func findMonths(lower string) (months []int, ambiguous *ambiguousWord) {
	found, ties := matchText(lower, monthVocab)
	for _, canon := range found {
		n, _ := strconv.Atoi(canon)
		if !containsInt(months, n) {
			months = append(months, n)
		}
	}
	sort.Ints(months)
	if len(ties) > 0 {
		a := ties[0]
		return months, &a
	}
	return months, nil
}

// ambiguousMonth reports a month word that ties between candidate months as
// the concrete periods it could mean, scoped to the explicit year when one
// was given and to every span year otherwise.
func (r *Resolver) ambiguousMonth(amb *ambiguousWord, year int, hasYear bool) error {
	nums := make([]int, 0, len(amb.Candidates))
	for _, c := range amb.Candidates {
		n, _ := strconv.Atoi(c)
		nums = append(nums, n)
	}
	sort.Ints(nums)

	years := r.Span.Years()
	if hasYear {
		years = []int{year}
	}

	var candidates []DateRange
	for _, n := range nums {
		for _, y := range years {
			start := time.Date(y, time.Month(n), 1, 0, 0, 0, 0, time.UTC)
			w := DateRange{Start: start, End: start.AddDate(0, 1, 0), Granularity: GranularityWeekly}
			if r.Span.Contains(w.Start, w.End) {
				candidates = append(candidates, w)
			}
		}
	}
	if len(candidates) == 0 {
		w := DateRange{
			Start: time.Date(years[0], time.Month(nums[0]), 1, 0, 0, 0, 0, time.UTC),
		}
		return &OutOfRangeError{Start: w.Start, End: w.Start.AddDate(0, 1, 0), Span: r.Span}
	}
	return &AmbiguousDateError{Expression: amb.Word, Candidates: candidates}
}

// monthExpression names a resolved month window for clarification text.
func monthExpression(first, last time.Month) string {
	if first == last {
		return strings.ToLower(first.String())
	}
	return fmt.Sprintf("%s to %s", strings.ToLower(first.String()), strings.ToLower(last.String()))
}

// recommendGranularity suggests a bucket size for a range's width: two weeks
// or less reads best daily, up to a quarter weekly, beyond that monthly.
func recommendGranularity(start, end time.Time) Granularity {
	days := int(end.Sub(start).Hours() / 24)
	switch {
	case days <= 14:
		return GranularityDaily
	case days <= 90:
		return GranularityWeekly
	default:
		return GranularityMonthly
	}
}

func quarterStart(monthStart time.Time) time.Time {
	q := (int(monthStart.Month()) - 1) / 3
	return time.Date(monthStart.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
}

func containsInt(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}

package nlq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb-labs/askdb/internal/schema"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func singleYearResolver() *Resolver {
	span := schema.DateSpan{Min: day(2022, 1, 1), Max: day(2023, 1, 1)}
	return NewResolver(span, day(2023, 3, 15))
}

func multiYearResolver() *Resolver {
	span := schema.DateSpan{Min: day(2021, 1, 1), Max: day(2023, 1, 1)}
	return NewResolver(span, day(2023, 3, 15))
}

func TestResolve_ISODates(t *testing.T) {
	r := singleYearResolver()

	rng, err := r.Resolve("trips from 2022-03-01 to 2022-03-10")
	require.NoError(t, err)
	require.NotNil(t, rng)
	assert.Equal(t, day(2022, 3, 1), rng.Start)
	assert.Equal(t, day(2022, 3, 10), rng.End)
	assert.False(t, rng.Swapped)
	assert.Equal(t, GranularityDaily, rng.Granularity)
}

func TestResolve_SingleISODateIsOneDay(t *testing.T) {
	r := singleYearResolver()

	rng, err := r.Resolve("what happened on 2022-07-04")
	require.NoError(t, err)
	require.NotNil(t, rng)
	assert.Equal(t, day(2022, 7, 4), rng.Start)
	assert.Equal(t, day(2022, 7, 5), rng.End)
}

func TestResolve_SwappedDatesReordered(t *testing.T) {
	r := singleYearResolver()

	rng, err := r.Resolve("between 2022-06-30 and 2022-06-01")
	require.NoError(t, err)
	require.NotNil(t, rng)
	assert.Equal(t, day(2022, 6, 1), rng.Start)
	assert.Equal(t, day(2022, 6, 30), rng.End)
	assert.True(t, rng.Swapped)
}

func TestResolve_InvalidCalendarDate(t *testing.T) {
	r := singleYearResolver()

	_, err := r.Resolve("trips on 2022-02-30")
	var invalid *InvalidDateError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Values, "2022-02-30")
}

func TestResolve_MonthWithYear(t *testing.T) {
	r := multiYearResolver()

	rng, err := r.Resolve("trips in June 2022")
	require.NoError(t, err)
	require.NotNil(t, rng)
	assert.Equal(t, day(2022, 6, 1), rng.Start)
	assert.Equal(t, day(2022, 7, 1), rng.End)
	assert.Equal(t, GranularityWeekly, rng.Granularity)
}

func TestResolve_MonthTypo(t *testing.T) {
	r := singleYearResolver()

	for _, text := range []string{"trips in Febuary", "trips in febrary 2022"} {
		rng, err := r.Resolve(text)
		require.NoError(t, err, text)
		require.NotNil(t, rng, text)
		assert.Equal(t, day(2022, 2, 1), rng.Start)
		assert.Equal(t, day(2022, 3, 1), rng.End)
	}
}

func TestResolve_MonthSpan(t *testing.T) {
	r := singleYearResolver()

	rng, err := r.Resolve("from March to May")
	require.NoError(t, err)
	require.NotNil(t, rng)
	assert.Equal(t, day(2022, 3, 1), rng.Start)
	assert.Equal(t, day(2022, 6, 1), rng.End)
}

func TestResolve_BareMonthSingleYearSpanIsUnambiguous(t *testing.T) {
	r := singleYearResolver()

	rng, err := r.Resolve("trips in June")
	require.NoError(t, err)
	require.NotNil(t, rng)
	assert.Equal(t, 2022, rng.Start.Year())
}

func TestResolve_BareMonthMultiYearSpanIsAmbiguous(t *testing.T) {
	r := multiYearResolver()

	_, err := r.Resolve("trips in June")
	var ambiguous *AmbiguousDateError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, "june", ambiguous.Expression)
	require.Len(t, ambiguous.Candidates, 2)
	assert.Equal(t, 2021, ambiguous.Candidates[0].Start.Year())
	assert.Equal(t, 2022, ambiguous.Candidates[1].Start.Year())
}

func TestResolve_MonthTypoTieAsksInsteadOfGuessing(t *testing.T) {
	r := singleYearResolver()

	// One edit from both june and july; neither wins, so the resolver must
	// surface both periods rather than fall back to the bare year.
	_, err := r.Resolve("trips in jule 2022")
	var ambiguous *AmbiguousDateError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, "jule", ambiguous.Expression)
	require.Len(t, ambiguous.Candidates, 2)
	assert.Equal(t, day(2022, 6, 1), ambiguous.Candidates[0].Start)
	assert.Equal(t, day(2022, 7, 1), ambiguous.Candidates[1].Start)
}

func TestResolve_SeasonWithoutYearIsAmbiguous(t *testing.T) {
	r := multiYearResolver()

	_, err := r.Resolve("how busy was last summer")
	var ambiguous *AmbiguousDateError
	require.ErrorAs(t, err, &ambiguous)
	require.Len(t, ambiguous.Candidates, 2)
	for _, c := range ambiguous.Candidates {
		assert.Equal(t, time.June, c.Start.Month())
		assert.Equal(t, time.September, c.End.Month())
	}
}

func TestResolve_SeasonWithYear(t *testing.T) {
	r := multiYearResolver()

	rng, err := r.Resolve("fall 2021")
	require.NoError(t, err)
	require.NotNil(t, rng)
	assert.Equal(t, day(2021, 9, 1), rng.Start)
	assert.Equal(t, day(2021, 12, 1), rng.End)
}

func TestResolve_QuarterWithoutYearIsAmbiguous(t *testing.T) {
	r := multiYearResolver()

	_, err := r.Resolve("fares in Q3")
	var ambiguous *AmbiguousDateError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, "Q3", ambiguous.Expression)
}

func TestResolve_QuarterWithYear(t *testing.T) {
	r := singleYearResolver()

	rng, err := r.Resolve("Q2 2022")
	require.NoError(t, err)
	require.NotNil(t, rng)
	assert.Equal(t, day(2022, 4, 1), rng.Start)
	assert.Equal(t, day(2022, 7, 1), rng.End)
	assert.Equal(t, GranularityMonthly, rng.Granularity)
}

func TestResolve_BareYear(t *testing.T) {
	r := multiYearResolver()

	rng, err := r.Resolve("all trips in 2021")
	require.NoError(t, err)
	require.NotNil(t, rng)
	assert.Equal(t, day(2021, 1, 1), rng.Start)
	assert.Equal(t, day(2022, 1, 1), rng.End)
}

func TestResolve_OutOfSpan(t *testing.T) {
	r := singleYearResolver()

	_, err := r.Resolve("trips in 2019")
	var oor *OutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, 2019, oor.Start.Year())
}

func TestResolve_RelativeAnchoredToNow(t *testing.T) {
	span := schema.DateSpan{Min: day(2022, 1, 1), Max: day(2023, 4, 1)}
	r := NewResolver(span, day(2023, 3, 15))

	rng, err := r.Resolve("trips last month")
	require.NoError(t, err)
	require.NotNil(t, rng)
	assert.Equal(t, day(2023, 2, 1), rng.Start)
	assert.Equal(t, day(2023, 3, 1), rng.End)
}

func TestResolve_WholeYearMultiYearSpanIsAmbiguous(t *testing.T) {
	r := multiYearResolver()

	_, err := r.Resolve("the whole year")
	var ambiguous *AmbiguousDateError
	require.ErrorAs(t, err, &ambiguous)
	require.Len(t, ambiguous.Candidates, 2)
}

func TestResolve_NoDateExpression(t *testing.T) {
	r := singleYearResolver()

	rng, err := r.Resolve("how many trips were there")
	require.NoError(t, err)
	assert.Nil(t, rng)
}

func TestRecommendGranularity(t *testing.T) {
	tests := []struct {
		days int
		want Granularity
	}{
		{1, GranularityDaily},
		{14, GranularityDaily},
		{15, GranularityWeekly},
		{90, GranularityWeekly},
		{91, GranularityMonthly},
		{365, GranularityMonthly},
	}
	for _, tt := range tests {
		start := day(2022, 1, 1)
		got := recommendGranularity(start, start.AddDate(0, 0, tt.days))
		assert.Equal(t, tt.want, got, "days=%d", tt.days)
	}
}

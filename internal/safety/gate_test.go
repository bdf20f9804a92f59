package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb-labs/askdb/internal/schema"
)

func newTestGate(t *testing.T) *Gate {
	t.Helper()
	return NewGate(schema.Default(), nil)
}

func TestGate_ApprovesSimpleSelect(t *testing.T) {
	g := newTestGate(t)

	v := g.Check(`SELECT vendor_id, COUNT(*) AS trips
FROM taxi_trips
WHERE pickup_datetime >= '2022-01-01'
  AND pickup_datetime < '2022-02-01'
GROUP BY vendor_id
ORDER BY trips ASC, vendor_id;`)

	assert.True(t, v.Approved, "expected approval, got %s: %s", v.Reason, v.Detail)
}

func TestGate_ApprovesAliasesInOrderBy(t *testing.T) {
	g := newTestGate(t)

	v := g.Check("SELECT DATE(pickup_datetime) AS day, COUNT(*) AS trips FROM taxi_trips GROUP BY day ORDER BY day")
	assert.True(t, v.Approved, "got %s: %s", v.Reason, v.Detail)
}

func TestGate_RejectsDropPayload(t *testing.T) {
	g := newTestGate(t)

	// Classic quote-break payload supplied directly as SQL.
	v := g.Check("'; DROP TABLE taxi_trips; --")

	require.False(t, v.Approved)
	assert.Equal(t, ReasonForbiddenKeyword, v.Reason)
}

func TestGate_RejectsForbiddenKeywordsAsWholeTokens(t *testing.T) {
	g := newTestGate(t)

	for _, sql := range []string{
		"INSERT INTO taxi_trips VALUES (1)",
		"UPDATE taxi_trips SET fare_amount = 0",
		"DELETE FROM taxi_trips",
		"ALTER TABLE taxi_trips ADD COLUMN x",
		"CREATE TABLE evil (id INTEGER)",
		"ATTACH 'other.db' AS other",
		"PRAGMA table_info(taxi_trips)",
		"EXEC something",
	} {
		v := g.Check(sql)
		assert.False(t, v.Approved, "should reject %q", sql)
		assert.Equal(t, ReasonForbiddenKeyword, v.Reason, "sql %q", sql)
	}
}

func TestGate_KeywordInsideIdentifierDoesNotTrip(t *testing.T) {
	g := NewGate(schema.New([]schema.Table{
		{Name: "updates_log", Columns: []schema.Column{{Name: "dropped_trips", Type: "INTEGER"}}},
	}, schema.Default().Span), nil)

	v := g.Check("SELECT dropped_trips FROM updates_log")
	assert.True(t, v.Approved, "identifiers containing keyword substrings must pass: %s %s", v.Reason, v.Detail)
}

func TestGate_RejectsUnionExfiltration(t *testing.T) {
	g := newTestGate(t)

	v := g.Check("UNION SELECT password FROM users")
	require.False(t, v.Approved)
	assert.Equal(t, ReasonInjectionPattern, v.Reason)

	v = g.Check("SELECT vendor_id FROM taxi_trips UNION ALL SELECT vendor_id FROM taxi_trips")
	require.False(t, v.Approved)
	assert.Equal(t, ReasonInjectionPattern, v.Reason)
}

func TestGate_UnionAsLiteralValueIsFine(t *testing.T) {
	g := newTestGate(t)

	// "union" inside a string literal is data, not a set operator.
	v := g.Check("SELECT vendor_id FROM taxi_trips WHERE vendor_id = 'union station'")
	assert.True(t, v.Approved, "got %s: %s", v.Reason, v.Detail)
}

func TestGate_RejectsTautology(t *testing.T) {
	g := newTestGate(t)

	for _, sql := range []string{
		"SELECT vendor_id FROM taxi_trips WHERE vendor_id = 'x' OR '1'='1'",
		"SELECT vendor_id FROM taxi_trips WHERE vendor_id = 'x' OR 1=1",
		"SELECT vendor_id FROM taxi_trips WHERE vendor_id = 'x' OR TRUE",
	} {
		v := g.Check(sql)
		assert.False(t, v.Approved, "should reject %q", sql)
		assert.Equal(t, ReasonInjectionPattern, v.Reason, "sql %q", sql)
	}
}

func TestGate_AllowsHonestOrPredicate(t *testing.T) {
	g := newTestGate(t)

	v := g.Check("SELECT vendor_id FROM taxi_trips WHERE vendor_id = 'VTS' OR vendor_id = 'CMT'")
	assert.True(t, v.Approved, "got %s: %s", v.Reason, v.Detail)
}

func TestGate_RejectsTrailingCommentTruncation(t *testing.T) {
	g := newTestGate(t)

	v := g.Check("SELECT vendor_id FROM taxi_trips WHERE vendor_id = 'x' --")
	require.False(t, v.Approved)
	assert.Equal(t, ReasonInjectionPattern, v.Reason)

	v = g.Check("SELECT vendor_id FROM taxi_trips /* truncated")
	require.False(t, v.Approved)
	assert.Equal(t, ReasonInjectionPattern, v.Reason)
}

func TestGate_RejectsMultiStatement(t *testing.T) {
	g := newTestGate(t)

	v := g.Check("SELECT vendor_id FROM taxi_trips; SELECT fare_amount FROM taxi_trips")
	require.False(t, v.Approved)
	assert.Equal(t, ReasonMultiStatement, v.Reason)
}

func TestGate_TrailingSemicolonIsFine(t *testing.T) {
	g := newTestGate(t)

	v := g.Check("SELECT vendor_id FROM taxi_trips;")
	assert.True(t, v.Approved, "got %s: %s", v.Reason, v.Detail)
}

func TestGate_RejectsNonSelect(t *testing.T) {
	g := newTestGate(t)

	v := g.Check("EXPLAIN SELECT vendor_id FROM taxi_trips")
	require.False(t, v.Approved)
	assert.Equal(t, ReasonMalformed, v.Reason)
}

func TestGate_RejectsEmpty(t *testing.T) {
	g := newTestGate(t)

	v := g.Check("   ")
	require.False(t, v.Approved)
	assert.Equal(t, ReasonMalformed, v.Reason)
}

func TestGate_RejectsUnknownIdentifier(t *testing.T) {
	g := newTestGate(t)

	v := g.Check("SELECT password FROM taxi_trips")
	require.False(t, v.Approved)
	assert.Equal(t, ReasonUnknownIdentifier, v.Reason)

	v = g.Check("SELECT vendor_id FROM users")
	require.False(t, v.Approved)
	assert.Equal(t, ReasonUnknownIdentifier, v.Reason)
}

func TestGate_RejectsUnknownFunction(t *testing.T) {
	g := newTestGate(t)

	v := g.Check("SELECT load_extension('evil') FROM taxi_trips")
	require.False(t, v.Approved)
	assert.Equal(t, ReasonUnknownIdentifier, v.Reason)
}

func TestGate_VerdictCarriesRuleAndDetail(t *testing.T) {
	g := newTestGate(t)

	v := g.Check("DELETE FROM taxi_trips")
	require.False(t, v.Approved)
	assert.NotEmpty(t, v.RuleID)
	assert.NotEmpty(t, v.Detail)

	err := v.Err()
	require.Error(t, err)
	var unsafeErr *UnsafeError
	require.ErrorAs(t, err, &unsafeErr)
	assert.Equal(t, ReasonForbiddenKeyword, unsafeErr.Reason)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ClassSelect, Classify("SELECT 1"))
	assert.Equal(t, ClassSelect, Classify("WITH t AS (SELECT 1) SELECT * FROM t"))
	assert.Equal(t, ClassNonSelect, Classify("DELETE FROM taxi_trips"))
	assert.Equal(t, ClassMultiStatement, Classify("SELECT 1; SELECT 2"))
	assert.Equal(t, ClassMalformed, Classify(""))
}

func TestGate_SelfAliasDoesNotLaunderIdentifiers(t *testing.T) {
	g := newTestGate(t)

	v := g.Check("SELECT password AS password FROM users AS users")
	require.False(t, v.Approved, "self-aliased unknown identifiers must not pass")
	assert.Equal(t, ReasonUnknownIdentifier, v.Reason)

	v = g.Check("SELECT secret AS s FROM taxi_trips")
	require.False(t, v.Approved, "an alias over an unknown source must not pass")
	assert.Equal(t, ReasonUnknownIdentifier, v.Reason)

	// Aliases over allow-listed sources stay usable downstream.
	v = g.Check("SELECT fare_amount AS fa FROM taxi_trips ORDER BY fa")
	assert.True(t, v.Approved, "got %s: %s", v.Reason, v.Detail)
}

func TestGate_FromPositionMustNameTable(t *testing.T) {
	g := newTestGate(t)

	// fare_amount is an allow-listed column, but not a table.
	v := g.Check("SELECT fare_amount FROM fare_amount")
	require.False(t, v.Approved)
	assert.Equal(t, ReasonUnknownIdentifier, v.Reason)
	assert.Contains(t, v.Detail, "table")
}

package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"communiserver/internal/scope"
)

var testFields = map[string]string{
	"village_id":   "a.village_id",
	"title":        "a.title",
	"description":  "a.description",
	"date":         "a.date",
	"cost":         "t.actual_cost",
	"has_evidence": "cardinality(r.evidence_urls) > 0",
}

func TestCompile_AllAndNone(t *testing.T) {
	c := newCompiler(testFields)
	where, err := c.compile(scope.All{})
	require.NoError(t, err)
	assert.Equal(t, "TRUE", where)
	assert.Empty(t, c.args)

	where, err = c.compile(scope.None{})
	require.NoError(t, err)
	assert.Equal(t, "FALSE", where)
}

func TestCompile_Equals(t *testing.T) {
	c := newCompiler(testFields)
	id := uuid.New()

	where, err := c.compile(scope.Equals{Field: "village_id", Value: id})
	require.NoError(t, err)
	assert.Equal(t, "a.village_id = $1", where)
	assert.Equal(t, []any{id}, c.args)
}

func TestCompile_EmptyInMatchesNothing(t *testing.T) {
	c := newCompiler(testFields)

	where, err := c.compile(scope.In{Field: "village_id"})
	require.NoError(t, err)
	assert.Equal(t, "FALSE", where)
	assert.Empty(t, c.args)
}

func TestCompile_InUsesArrayBinding(t *testing.T) {
	c := newCompiler(testFields)

	where, err := c.compile(scope.In{Field: "village_id", IDs: []uuid.UUID{uuid.New(), uuid.New()}})
	require.NoError(t, err)
	assert.Equal(t, "a.village_id = ANY($1)", where)
	require.Len(t, c.args, 1)
}

func TestCompile_TextMatchDisjunctionSharesArg(t *testing.T) {
	c := newCompiler(testFields)

	where, err := c.compile(scope.TextMatch{Fields: []string{"title", "description"}, Query: "umuganda"})
	require.NoError(t, err)
	assert.Equal(t, "(a.title ILIKE $1 OR a.description ILIKE $1)", where)
	assert.Equal(t, []any{"%umuganda%"}, c.args)
}

func TestCompile_TextMatchEscapesLikeMetacharacters(t *testing.T) {
	c := newCompiler(testFields)

	_, err := c.compile(scope.TextMatch{Fields: []string{"title"}, Query: "50%_done"})
	require.NoError(t, err)
	assert.Equal(t, []any{`%50\%\_done%`}, c.args)
}

func TestCompile_TimeRangeIsHalfOpen(t *testing.T) {
	c := newCompiler(testFields)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)

	where, err := c.compile(scope.TimeRange{Field: "date", From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, "a.date >= $1 AND a.date < $2", where)
}

func TestCompile_NumberRangeBoundsInclusive(t *testing.T) {
	c := newCompiler(testFields)
	min, max := 100.0, 500.0

	where, err := c.compile(scope.NumberRange{Field: "cost", Min: &min, Max: &max})
	require.NoError(t, err)
	assert.Equal(t, "t.actual_cost >= $1 AND t.actual_cost <= $2", where)
}

func TestCompile_BoolFieldExpandsToExpression(t *testing.T) {
	c := newCompiler(testFields)

	where, err := c.compile(scope.Bool{Field: "has_evidence", Value: true})
	require.NoError(t, err)
	assert.Equal(t, "cardinality(r.evidence_urls) > 0", where)

	where, err = c.compile(scope.Bool{Field: "has_evidence", Value: false})
	require.NoError(t, err)
	assert.Equal(t, "NOT cardinality(r.evidence_urls) > 0", where)
}

func TestCompile_NestedConjunction(t *testing.T) {
	c := newCompiler(testFields)
	id := uuid.New()

	where, err := c.compile(scope.And{Preds: []scope.Predicate{
		scope.Equals{Field: "village_id", Value: id},
		scope.TextMatch{Fields: []string{"title"}, Query: "clean"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "(a.village_id = $1 AND (a.title ILIKE $2))", where)
}

func TestCompile_UnknownFieldRejected(t *testing.T) {
	c := newCompiler(testFields)

	_, err := c.compile(scope.Equals{Field: "owner_id", Value: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner_id")
}

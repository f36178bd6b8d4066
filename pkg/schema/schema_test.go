package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioSchema(t *testing.T) *SecuritySchema {
	t.Helper()
	s, err := New(
		WithTable("users", TableSchema{
			Columns: map[string]ColumnSchema{
				"id":       {Access: AccessRead},
				"username": {Access: AccessRead},
				"email":    {Access: AccessDenied},
			},
			AllowedJoins: map[string]map[JoinType]bool{
				"orders": {JoinInner: true, JoinLeft: true},
			},
		}),
		WithTable("orders", TableSchema{
			Columns: map[string]ColumnSchema{
				"id": {Access: AccessRead},
				"amount": {
					Access:              AccessRead,
					AllowedAggregations: map[AggregationType]bool{AggSum: true, AggAvg: true, AggCount: true},
				},
				"user_id": {Access: AccessRead},
			},
		}),
		WithMaxJoins(2),
		WithAllowSubqueries(true),
		WithMaxQueryLength(500),
		WithSQLInjectionProtection(true),
		WithForbiddenKeywords("DROP", "DELETE", "TRUNCATE"),
	)
	require.NoError(t, err)
	return s
}

func TestSchemaTableLookupAndDefaults(t *testing.T) {
	s := scenarioSchema(t)

	tbl, ok := s.Table("users")
	assert.True(t, ok)
	assert.Equal(t, AccessDenied, tbl.Columns["email"].Access)

	_, ok = s.Table("nonexistent")
	assert.False(t, ok, "absent table with no default_table_schema must be implicitly denied")
}

func TestSchemaCaseInsensitiveTableLookup(t *testing.T) {
	s := scenarioSchema(t)
	_, ok := s.Table("USERS")
	assert.True(t, ok, "table lookup must normalize case")
}

func TestSchemaDefaultTableSchemaFallback(t *testing.T) {
	s, err := New(
		WithDefaultTableSchema(TableSchema{
			Columns: map[string]ColumnSchema{"id": {Access: AccessRead}},
		}),
	)
	require.NoError(t, err)
	tbl, ok := s.Table("anything")
	assert.True(t, ok)
	assert.Equal(t, AccessRead, tbl.Columns["id"].Access)
}

func TestSchemaJoinAllowed(t *testing.T) {
	s := scenarioSchema(t)
	users, _ := s.Table("users")
	assert.True(t, users.JoinAllowed("orders", JoinInner))
	assert.True(t, users.JoinAllowed("orders", JoinLeft))
	assert.False(t, users.JoinAllowed("orders", JoinRight), "RIGHT not in allowed_joins")
	assert.False(t, users.JoinAllowed("shipments", JoinInner), "unlisted partner with no default_allowed_join must deny")
}

func TestSchemaRejectsNegativeMaxJoins(t *testing.T) {
	_, err := New(WithMaxJoins(-1))
	assert.Error(t, err)
}

func TestSchemaRejectsUnknownJoinPartnerWithoutDefault(t *testing.T) {
	_, err := New(WithTable("a", TableSchema{
		AllowedJoins: map[string]map[JoinType]bool{"b": {JoinInner: true}},
	}))
	assert.Error(t, err)
}

func TestSchemaAllowsUnknownJoinPartnerWithDefaultTableSchema(t *testing.T) {
	_, err := New(
		WithTable("a", TableSchema{
			AllowedJoins: map[string]map[JoinType]bool{"b": {JoinInner: true}},
		}),
		WithDefaultTableSchema(TableSchema{}),
	)
	assert.NoError(t, err)
}

func TestLoadYAMLRoundTrip(t *testing.T) {
	doc := `
tables:
  users:
    columns:
      id:
        access: READ
      email:
        access: DENIED
    allowed_joins:
      orders: [INNER, LEFT]
  orders:
    columns:
      amount:
        access: READ
        allowed_aggregations: [SUM, AVG]
max_joins: 2
allow_subqueries: true
max_query_length: 500
sql_injection_protection: true
forbidden_keywords: [DROP, DELETE, TRUNCATE]
`
	s, err := LoadYAML([]byte(doc))
	require.NoError(t, err)
	tbl, ok := s.Table("users")
	require.True(t, ok)
	assert.Equal(t, AccessDenied, tbl.Columns["email"].Access)
	assert.True(t, tbl.JoinAllowed("orders", JoinLeft))
	assert.Equal(t, 2, s.MaxJoins())
	assert.True(t, s.ForbiddenKeyword("drop"))
}

func TestLoadYAMLRejectsUnknownField(t *testing.T) {
	doc := `
tables: {}
not_a_real_field: true
`
	_, err := LoadYAML([]byte(doc))
	assert.Error(t, err, "strict decoding must reject unknown keys")
}

func TestLoadYAMLRejectsInvalidAccess(t *testing.T) {
	doc := `
tables:
  users:
    columns:
      id:
        access: MAYBE
`
	_, err := LoadYAML([]byte(doc))
	assert.Error(t, err)
}

func TestPromptSummaryOmitsDeniedColumns(t *testing.T) {
	s := scenarioSchema(t)
	summary := s.PromptSummary()
	assert.True(t, strings.Contains(summary, "username"))
	assert.False(t, strings.Contains(summary, "email"), "denied columns must not leak into the prompt summary")
}

func TestTieredDefaultsDecreaseInPermissiveness(t *testing.T) {
	lowSub, lowLen, lowCol := LowSecurityDefaults()
	medSub, medLen, medCol := MediumSecurityDefaults()
	highSub, highLen, highCol := HighSecurityDefaults()

	assert.True(t, lowSub)
	assert.False(t, medSub)
	assert.False(t, highSub)

	assert.Greater(t, lowLen, medLen)
	assert.Greater(t, medLen, highLen)

	assert.True(t, lowCol.AllowsAggregation(AggMin))
	assert.False(t, medCol.AllowsAggregation(AggMin))
	assert.False(t, highCol.AllowsAggregation(AggSum))
}

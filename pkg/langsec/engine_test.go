package langsec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/langsec-ai/langsec/pkg/config"
	"github.com/langsec-ai/langsec/pkg/diagnostic"
	"github.com/langsec-ai/langsec/pkg/schema"
)

// scenarioSchema builds the §8 end-to-end scenario schema: users(id:READ,
// username:READ, email:DENIED), orders(id:READ, amount:READ+{SUM,AVG,COUNT},
// user_id:READ), users.allowed_joins = {orders: {INNER, LEFT}}, max_joins=2,
// allow_subqueries=true, max_query_length=500,
// forbidden_keywords={DROP,DELETE,TRUNCATE}.
func scenarioSchema(t *testing.T) *schema.SecuritySchema {
	t.Helper()
	s, err := schema.New(
		schema.WithTable("users", schema.TableSchema{
			Columns: map[string]schema.ColumnSchema{
				"id":       {Access: schema.AccessRead},
				"username": {Access: schema.AccessRead},
				"email":    {Access: schema.AccessDenied},
			},
			AllowedJoins: map[string]map[schema.JoinType]bool{
				"orders": {schema.JoinInner: true, schema.JoinLeft: true},
			},
		}),
		schema.WithTable("orders", schema.TableSchema{
			Columns: map[string]schema.ColumnSchema{
				"id": {Access: schema.AccessRead},
				"amount": {
					Access: schema.AccessRead,
					AllowedAggregations: map[schema.AggregationType]bool{
						schema.AggSum: true, schema.AggAvg: true, schema.AggCount: true,
					},
				},
				"user_id": {Access: schema.AccessRead},
			},
		}),
		schema.WithMaxJoins(2),
		schema.WithAllowSubqueries(true),
		schema.WithMaxQueryLength(500),
		schema.WithForbiddenKeywords("DROP", "DELETE", "TRUNCATE"),
		schema.WithSQLInjectionProtection(true),
	)
	require.NoError(t, err)
	return s
}

func TestEndToEndScenarios(t *testing.T) {
	s := scenarioSchema(t)
	guard := New(s, &config.Config{RaiseOnViolation: true}, nil)

	tests := []struct {
		name       string
		query      string
		wantPass   bool
		wantKind   diagnostic.Kind
		wantTable  string
		wantColumn string
	}{
		{
			name:     "1 simple unqualified predicate passes",
			query:    "SELECT id, username FROM users WHERE id = 1",
			wantPass: true,
		},
		{
			name:       "2 denied column rejected",
			query:      "SELECT email FROM users",
			wantKind:   diagnostic.KindColumnAccess,
			wantTable:  "users",
			wantColumn: "email",
		},
		{
			name:     "3 alias transparency",
			query:    "SELECT u.username FROM users u",
			wantPass: true,
		},
		{
			name:     "4 permitted join kind passes",
			query:    "SELECT u.username FROM users u JOIN orders o ON u.id = o.user_id",
			wantPass: true,
		},
		{
			name:     "5 disallowed join kind rejected",
			query:    "SELECT u.username FROM users u RIGHT JOIN orders o ON u.id = o.user_id",
			wantKind: diagnostic.KindJoinViolation,
		},
		{
			name:     "6 permitted aggregation passes",
			query:    "SELECT SUM(amount) FROM orders",
			wantPass: true,
		},
		{
			name:     "7 disallowed aggregation rejected",
			query:    "SELECT MIN(amount) FROM orders",
			wantKind: diagnostic.KindColumnAccess,
		},
		{
			name:     "8 forbidden keyword rejected at pre-parse",
			query:    "DROP TABLE users",
			wantKind: diagnostic.KindSQLInjection,
		},
		{
			name:     "9 tautology rejected at pre-parse",
			query:    "SELECT id FROM users WHERE 1=1 OR id = 1",
			wantKind: diagnostic.KindSQLInjection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.Validate(tt.query)
			if tt.wantPass {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			d, ok := err.(*diagnostic.Diagnostic)
			require.True(t, ok, "expected a single *diagnostic.Diagnostic, got %T", err)
			require.Equal(t, tt.wantKind, d.Kind)
			if tt.wantTable != "" {
				require.Equal(t, tt.wantTable, d.Table)
			}
			if tt.wantColumn != "" {
				require.Equal(t, tt.wantColumn, d.Column)
			}
		})
	}
}

// scenario 10 needs its own schema with allow_subqueries=false.
func TestEndToEndScenarioSubqueriesDisallowed(t *testing.T) {
	s, err := schema.New(
		schema.WithTable("users", schema.TableSchema{
			Columns: map[string]schema.ColumnSchema{"id": {Access: schema.AccessRead}},
		}),
		schema.WithAllowSubqueries(false),
	)
	require.NoError(t, err)

	guard := New(s, &config.Config{RaiseOnViolation: true}, nil)
	err = guard.Validate("SELECT id FROM (SELECT id FROM users) u")
	require.Error(t, err)
	d, ok := err.(*diagnostic.Diagnostic)
	require.True(t, ok)
	require.Equal(t, diagnostic.KindQueryComplexity, d.Kind)
}

func TestValidateQueryReturnsBoolWithoutRaising(t *testing.T) {
	s := scenarioSchema(t)
	guard := New(s, &config.Config{RaiseOnViolation: false}, nil)

	ok, err := guard.ValidateQuery("SELECT email FROM users")
	require.NoError(t, err, "RaiseOnViolation=false must not surface the diagnostic as an error")
	require.False(t, ok)

	ok, err = guard.ValidateQuery("SELECT id, username FROM users WHERE id = 1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestValidateQueryRaisesWhenConfigured(t *testing.T) {
	s := scenarioSchema(t)
	guard := New(s, &config.Config{RaiseOnViolation: true}, nil)

	ok, err := guard.ValidateQuery("SELECT email FROM users")
	require.Error(t, err)
	require.False(t, ok)
}

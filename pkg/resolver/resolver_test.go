package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langsec-ai/langsec/pkg/diagnostic"
	"github.com/langsec-ai/langsec/pkg/schema"
	"github.com/langsec-ai/langsec/pkg/sqlast"
	"github.com/langsec-ai/langsec/pkg/sqlparser"
)

func testSchema(t *testing.T) *schema.SecuritySchema {
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
					Access:              schema.AccessRead,
					AllowedAggregations: map[schema.AggregationType]bool{schema.AggSum: true, schema.AggAvg: true},
				},
				"user_id": {Access: schema.AccessRead},
			},
		}),
		schema.WithAllowSubqueries(true),
	)
	require.NoError(t, err)
	return s
}

func resolveQuery(t *testing.T, query string, s *schema.SecuritySchema) (*Resolved, *diagnostic.Diagnostic) {
	t.Helper()
	stmt, err := sqlparser.Parse(query)
	require.NoError(t, err)
	res, diag := Resolve(stmt, s)
	return res, diag
}

func TestResolveSimpleQualifiedColumn(t *testing.T) {
	res, diag := resolveQuery(t, "SELECT users.id, users.username FROM users", testSchema(t))
	require.Nil(t, diag)
	require.Len(t, res.ColumnRefs, 2)
	assert.Equal(t, "users", res.ColumnRefs[0].Table)
	assert.Equal(t, "id", res.ColumnRefs[0].Column)
	assert.Equal(t, RoleProjection, res.ColumnRefs[0].Role)
}

func TestResolveUnqualifiedColumn(t *testing.T) {
	res, diag := resolveQuery(t, "SELECT id FROM users WHERE username = 'bob'", testSchema(t))
	require.Nil(t, diag)
	require.Len(t, res.ColumnRefs, 2)
	assert.Equal(t, "users", res.ColumnRefs[0].Table)
	assert.Equal(t, RolePredicate, res.ColumnRefs[1].Role)
}

func TestResolveAliasedTable(t *testing.T) {
	res, diag := resolveQuery(t, "SELECT u.id FROM users u", testSchema(t))
	require.Nil(t, diag)
	require.Len(t, res.ColumnRefs, 1)
	assert.Equal(t, "users", res.ColumnRefs[0].Table)
}

func TestResolveAmbiguousUnqualifiedColumn(t *testing.T) {
	res, diag := resolveQuery(t, "SELECT id FROM users JOIN orders ON users.id = orders.user_id", testSchema(t))
	assert.Nil(t, res)
	require.NotNil(t, diag)
	assert.Equal(t, diagnostic.KindColumnAccess, diag.Kind)
}

func TestResolveUnresolvedColumn(t *testing.T) {
	res, diag := resolveQuery(t, "SELECT bogus FROM users", testSchema(t))
	assert.Nil(t, res)
	require.NotNil(t, diag)
}

func TestResolveUnresolvedQualifier(t *testing.T) {
	res, diag := resolveQuery(t, "SELECT o.id FROM users", testSchema(t))
	assert.Nil(t, res)
	require.NotNil(t, diag)
}

func TestResolveJoinOnClauseColumns(t *testing.T) {
	res, diag := resolveQuery(t, "SELECT u.id FROM users u JOIN orders o ON u.id = o.user_id", testSchema(t))
	require.Nil(t, diag)
	require.Len(t, res.Joins, 1)
	assert.Equal(t, []string{"users"}, res.Joins[0].Left)
	assert.Equal(t, []string{"orders"}, res.Joins[0].Right)

	var sawPredicateCols int
	for _, c := range res.ColumnRefs {
		if c.Role == RolePredicate {
			sawPredicateCols++
		}
	}
	assert.Equal(t, 2, sawPredicateCols, "both sides of the ON clause must resolve")
}

func TestResolveDerivedTableColumnPassthrough(t *testing.T) {
	query := "SELECT sub.id FROM (SELECT id FROM users) AS sub"
	res, diag := resolveQuery(t, query, testSchema(t))
	require.Nil(t, diag)
	require.Len(t, res.Children, 1)
	require.Len(t, res.ColumnRefs, 1)
	assert.Equal(t, "users", res.ColumnRefs[0].Table)
	assert.Equal(t, "id", res.ColumnRefs[0].Column)
	assert.False(t, res.ColumnRefs[0].Computed)
}

func TestResolveDerivedTableComputedColumnExempt(t *testing.T) {
	query := "SELECT sub.total FROM (SELECT amount + 1 AS total FROM orders) AS sub"
	res, diag := resolveQuery(t, query, testSchema(t))
	require.Nil(t, diag)
	require.Len(t, res.ColumnRefs, 1)
	assert.True(t, res.ColumnRefs[0].Computed)
}

func TestResolveCorrelatedSubqueryViaParentScope(t *testing.T) {
	query := "SELECT id FROM users u WHERE EXISTS (SELECT 1 FROM orders WHERE orders.user_id = u.id)"
	res, diag := resolveQuery(t, query, testSchema(t))
	require.Nil(t, diag)
	require.Len(t, res.Children, 1)
	child := res.Children[0]
	var sawUsersRef bool
	for _, c := range child.ColumnRefs {
		if c.Table == "users" {
			sawUsersRef = true
		}
	}
	assert.True(t, sawUsersRef, "correlated reference to the outer table must resolve via the parent scope")
}

func TestResolveStarExpansion(t *testing.T) {
	// users has id/username READ and email DENIED: star expands only to
	// the currently readable columns, per spec §4.3 step 4.
	res, diag := resolveQuery(t, "SELECT * FROM users", testSchema(t))
	require.Nil(t, diag)
	assert.Len(t, res.ColumnRefs, 2)
	for _, c := range res.ColumnRefs {
		assert.Equal(t, RoleProjection, c.Role)
		assert.Equal(t, "users", c.Table)
		assert.NotEqual(t, "email", c.Column)
	}
}

func TestResolveQualifiedStarExpansion(t *testing.T) {
	res, diag := resolveQuery(t, "SELECT u.* FROM users u JOIN orders o ON u.id = o.user_id", testSchema(t))
	require.Nil(t, diag)
	for _, c := range res.ColumnRefs {
		if c.Role != RoleProjection {
			continue
		}
		assert.Equal(t, "users", c.Table)
	}
}

func TestResolveAggregateArgRole(t *testing.T) {
	res, diag := resolveQuery(t, "SELECT SUM(amount) FROM orders", testSchema(t))
	require.Nil(t, diag)
	require.Len(t, res.ColumnRefs, 1)
	assert.Equal(t, RoleAggregateArg, res.ColumnRefs[0].Role)
	assert.Equal(t, "SUM", res.ColumnRefs[0].AggFunc)
}

func TestResolveCountStarProducesAggregateNotColumnRef(t *testing.T) {
	res, diag := resolveQuery(t, "SELECT COUNT(*) FROM orders", testSchema(t))
	require.Nil(t, diag)
	assert.Len(t, res.ColumnRefs, 0)
	require.Len(t, res.Aggregates, 1)
	assert.Equal(t, "COUNT", res.Aggregates[0].Func)
}

func TestResolveMixedProjectionAndAggregateRoles(t *testing.T) {
	res, diag := resolveQuery(t, "SELECT user_id, SUM(amount) FROM orders GROUP BY user_id", testSchema(t))
	require.Nil(t, diag)
	var gotProjection, gotAgg, gotGroupBy bool
	for _, c := range res.ColumnRefs {
		switch c.Role {
		case RoleProjection:
			gotProjection = true
		case RoleAggregateArg:
			gotAgg = true
		case RoleGroupBy:
			gotGroupBy = true
		}
	}
	assert.True(t, gotProjection)
	assert.True(t, gotAgg)
	assert.True(t, gotGroupBy)
}

func TestResolveInsertAssignTargetsAndValues(t *testing.T) {
	stmt, err := sqlparser.Parse("INSERT INTO users (id, username) VALUES (1, 'bob')")
	require.NoError(t, err)
	res, diag := Resolve(stmt, testSchema(t))
	require.Nil(t, diag)
	var assignCols []string
	for _, c := range res.ColumnRefs {
		if c.Role == RoleAssignTarget {
			assignCols = append(assignCols, c.Column)
		}
	}
	assert.ElementsMatch(t, []string{"id", "username"}, assignCols)
}

func TestResolveInsertSelectChildScope(t *testing.T) {
	stmt, err := sqlparser.Parse("INSERT INTO users (id) SELECT id FROM orders")
	require.NoError(t, err)
	res, diag := Resolve(stmt, testSchema(t))
	require.Nil(t, diag)
	require.Len(t, res.Children, 1)
}

func TestResolveUpdateAssignTargetAndWhere(t *testing.T) {
	stmt, err := sqlparser.Parse("UPDATE users SET username = 'x' WHERE id = 1")
	require.NoError(t, err)
	res, diag := Resolve(stmt, testSchema(t))
	require.Nil(t, diag)
	var sawAssign, sawPredicate bool
	for _, c := range res.ColumnRefs {
		if c.Role == RoleAssignTarget && c.Column == "username" {
			sawAssign = true
		}
		if c.Role == RolePredicate && c.Column == "id" {
			sawPredicate = true
		}
	}
	assert.True(t, sawAssign)
	assert.True(t, sawPredicate)
}

func TestResolveDeleteWhereSubquery(t *testing.T) {
	stmt, err := sqlparser.Parse("DELETE FROM users WHERE id IN (SELECT user_id FROM orders)")
	require.NoError(t, err)
	res, diag := Resolve(stmt, testSchema(t))
	require.Nil(t, diag)
	require.Len(t, res.Children, 1)
	assert.Equal(t, "orders", res.Children[0].ColumnRefs[0].Table)
}

func TestResolveReportsSyntaxErrorForUnsupportedStatement(t *testing.T) {
	res, diag := Resolve(sqlast.Statement(nil), testSchema(t))
	assert.Nil(t, res)
	require.NotNil(t, diag)
}

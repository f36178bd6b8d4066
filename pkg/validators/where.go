package validators

import (
	"github.com/langsec-ai/langsec/pkg/diagnostic"
	"github.com/langsec-ai/langsec/pkg/resolver"
	"github.com/langsec-ai/langsec/pkg/schema"
	"github.com/langsec-ai/langsec/pkg/sqlast"
)

// Where is validator #7 (renamed from WhereRequired per SPEC_FULL §C.2 to
// also cover the supplemented allowed_where_columns allow-list). Any table
// with require_where_clause must see a WHERE predicate in its own scope
// that isn't trivially constant (no column reference at all); separately,
// every WHERE column reference must be on that table's allow-list, if one
// is configured.
func Where(res *resolver.Resolved, s *schema.SecuritySchema) []*diagnostic.Diagnostic {
	var out []*diagnostic.Diagnostic

	trivial := !res.HasWhere || len(sqlast.ColumnRefs(res.Where)) == 0
	if trivial {
		for _, t := range res.Tables {
			table, ok := s.Table(t.Name)
			if !ok || !table.RequireWhereClause {
				continue
			}
			out = append(out, diagnostic.New(diagnostic.KindQueryComplexity, "a WHERE clause is required for this table").
				WithTable(t.Name))
		}
	}

	// Predicate-role references also come from JOIN ON, HAVING and
	// INSERT/UPDATE values; only those inside the WHERE clause are checked.
	inWhere := map[sqlast.Position]bool{}
	for _, ref := range sqlast.ColumnRefs(res.Where) {
		inWhere[ref.Pos] = true
	}
	for _, c := range res.ColumnRefs {
		if c.Role != resolver.RolePredicate || c.Computed || !inWhere[c.Pos] {
			continue
		}
		table, ok := s.Table(c.Table)
		if !ok {
			continue
		}
		if !table.WhereAllowed(c.Column) {
			out = append(out, diagnostic.New(diagnostic.KindColumnAccess, "column is not permitted in a WHERE predicate").
				WithTable(c.Table).WithColumn(c.Column).WithLocation(c.Pos.Start, c.Pos.End))
		}
	}
	return out
}

package validators

import (
	"github.com/langsec-ai/langsec/pkg/diagnostic"
	"github.com/langsec-ai/langsec/pkg/resolver"
	"github.com/langsec-ai/langsec/pkg/schema"
)

// GroupBy enforces the supplemented per-table GROUP BY column allow-list
// (original_source's allowed_group_by_columns), independent of a column's
// ordinary READ access.
func GroupBy(res *resolver.Resolved, s *schema.SecuritySchema) []*diagnostic.Diagnostic {
	var out []*diagnostic.Diagnostic
	for _, c := range res.ColumnRefs {
		if c.Role != resolver.RoleGroupBy || c.Computed {
			continue
		}
		table, ok := s.Table(c.Table)
		if !ok {
			continue
		}
		if !table.GroupByAllowed(c.Column) {
			out = append(out, diagnostic.New(diagnostic.KindColumnAccess, "column is not permitted in GROUP BY").
				WithTable(c.Table).WithColumn(c.Column).WithLocation(c.Pos.Start, c.Pos.End))
		}
	}
	return out
}

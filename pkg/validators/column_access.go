package validators

import (
	"github.com/langsec-ai/langsec/pkg/diagnostic"
	"github.com/langsec-ai/langsec/pkg/resolver"
	"github.com/langsec-ai/langsec/pkg/schema"
)

// ColumnAccess is validator #2: every non-computed column reference's
// (table, column) pair must be READ- or WRITE-permitted for its role,
// honoring allowed_operations and the column's coarse access grant. A
// column denied at the table level is caught by TableAccess first (the
// tie-break §4.4 requires), so this validator only runs for tables the
// schema does list.
func ColumnAccess(res *resolver.Resolved, s *schema.SecuritySchema) []*diagnostic.Diagnostic {
	var out []*diagnostic.Diagnostic
	op := statementOperation(res)

	for _, c := range res.ColumnRefs {
		if c.Computed {
			continue
		}
		table, ok := s.Table(c.Table)
		if !ok {
			continue // TableAccess already reports this table
		}
		colSchema, ok := table.ColumnOrDefault(c.Column, s.DefaultColumnSchema())
		if !ok {
			out = append(out, diagnostic.New(diagnostic.KindColumnAccess, "column is not permitted by the security schema").
				WithTable(c.Table).WithColumn(c.Column).WithLocation(c.Pos.Start, c.Pos.End))
			continue
		}
		if colSchema.Access == schema.AccessDenied {
			out = append(out, diagnostic.New(diagnostic.KindColumnAccess, "column access is denied").
				WithTable(c.Table).WithColumn(c.Column).WithLocation(c.Pos.Start, c.Pos.End))
			continue
		}
		if requiresRead(c.Role) {
			if colSchema.Access != schema.AccessRead {
				out = append(out, diagnostic.New(diagnostic.KindColumnAccess, "column does not grant read access").
					WithTable(c.Table).WithColumn(c.Column).WithLocation(c.Pos.Start, c.Pos.End))
				continue
			}
		} else { // RoleAssignTarget
			if colSchema.Access != schema.AccessWrite {
				out = append(out, diagnostic.New(diagnostic.KindColumnAccess, "column does not grant write access").
					WithTable(c.Table).WithColumn(c.Column).WithLocation(c.Pos.Start, c.Pos.End))
				continue
			}
		}
		if !colSchema.AllowsOperation(op) {
			out = append(out, diagnostic.New(diagnostic.KindColumnAccess, "column does not permit this operation").
				WithTable(c.Table).WithColumn(c.Column).WithLocation(c.Pos.Start, c.Pos.End))
		}
	}
	return out
}

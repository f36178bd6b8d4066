package validators

import (
	"github.com/langsec-ai/langsec/pkg/diagnostic"
	"github.com/langsec-ai/langsec/pkg/resolver"
	"github.com/langsec-ai/langsec/pkg/schema"
	"github.com/langsec-ai/langsec/pkg/sqlast"
)

// RowLimit is validator #8: an explicit LIMIT n must not exceed the
// smallest max_rows declared by any table this scope reads from. Absent a
// LIMIT, the rule does not apply — it is advisory, not a mandate to
// synthesize one.
func RowLimit(res *resolver.Resolved, s *schema.SecuritySchema) []*diagnostic.Diagnostic {
	sel, ok := res.Statement.(*sqlast.SelectStatement)
	if !ok || sel.Limit == nil {
		return nil
	}

	min := -1
	for _, t := range res.Tables {
		table, ok := s.Table(t.Name)
		if !ok || table.MaxRows == nil {
			continue
		}
		if min == -1 || *table.MaxRows < min {
			min = *table.MaxRows
		}
	}
	if min == -1 || *sel.Limit <= min {
		return nil
	}
	return []*diagnostic.Diagnostic{
		diagnostic.New(diagnostic.KindQueryComplexity, "LIMIT exceeds the lowest max_rows declared for these tables"),
	}
}

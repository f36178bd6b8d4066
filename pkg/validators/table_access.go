package validators

import (
	"github.com/langsec-ai/langsec/pkg/diagnostic"
	"github.com/langsec-ai/langsec/pkg/resolver"
	"github.com/langsec-ai/langsec/pkg/schema"
)

// TableAccess is validator #1: every base table this scope references must
// be listed in the schema, or covered by default_table_schema.
func TableAccess(res *resolver.Resolved, s *schema.SecuritySchema) []*diagnostic.Diagnostic {
	var out []*diagnostic.Diagnostic
	for _, t := range res.Tables {
		if _, ok := s.Table(t.Name); ok {
			continue
		}
		out = append(out, diagnostic.New(diagnostic.KindTableAccess, "table is not permitted by the security schema").
			WithTable(t.Name).WithLocation(t.Pos.Start, t.Pos.End))
	}
	return out
}

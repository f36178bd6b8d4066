package validators

import (
	"github.com/langsec-ai/langsec/pkg/diagnostic"
	"github.com/langsec-ai/langsec/pkg/resolver"
	"github.com/langsec-ai/langsec/pkg/schema"
)

// Subquery is validator #6: if allow_subqueries is false, any nested SELECT
// fails outright. Otherwise every nested scope is already being validated
// independently by the engine's per-scope passes, so there is nothing
// further to check here.
func Subquery(root *resolver.Resolved, s *schema.SecuritySchema) []*diagnostic.Diagnostic {
	if s.AllowSubqueries() || len(root.Children) == 0 {
		return nil
	}
	return []*diagnostic.Diagnostic{
		diagnostic.New(diagnostic.KindQueryComplexity, "subqueries are not permitted by the security schema"),
	}
}

package validators

import (
	"github.com/langsec-ai/langsec/pkg/diagnostic"
	"github.com/langsec-ai/langsec/pkg/resolver"
	"github.com/langsec-ai/langsec/pkg/schema"
)

// JoinCount is validator #4: the total number of JOIN operators across
// every scope (the top-level query and every nested subquery) must not
// exceed max_joins.
func JoinCount(scopes []*resolver.Resolved, s *schema.SecuritySchema) []*diagnostic.Diagnostic {
	total := 0
	for _, sc := range scopes {
		total += len(sc.Joins)
	}
	if total <= s.MaxJoins() {
		return nil
	}
	return []*diagnostic.Diagnostic{
		diagnostic.New(diagnostic.KindQueryComplexity, "query exceeds max_joins"),
	}
}

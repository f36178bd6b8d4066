package validators

import (
	"github.com/langsec-ai/langsec/pkg/diagnostic"
	"github.com/langsec-ai/langsec/pkg/resolver"
	"github.com/langsec-ai/langsec/pkg/schema"
)

// Join is validator #3: every JOIN(a, b, kind) in this scope must be
// permitted by at least one side's policy — a.allowed_joins[b] (or
// a.default_allowed_join), or symmetrically b's policy toward a. A
// composite side (e.g. `(a JOIN b) JOIN c`) is checked pairwise across
// every base table on each side, conservatively requiring every pair to
// clear the check.
func Join(res *resolver.Resolved, s *schema.SecuritySchema) []*diagnostic.Diagnostic {
	var out []*diagnostic.Diagnostic
	for _, j := range res.Joins {
		for _, l := range j.Left {
			for _, r := range j.Right {
				if joinPairAllowed(l, r, schema.JoinType(j.Kind.String()), s) {
					continue
				}
				out = append(out, diagnostic.New(diagnostic.KindJoinViolation, "join is not permitted between these tables").
					WithTable(l).WithLocation(j.Pos.Start, j.Pos.End))
			}
		}
	}
	return out
}

func joinPairAllowed(left, right string, kind schema.JoinType, s *schema.SecuritySchema) bool {
	lt, lok := s.Table(left)
	rt, rok := s.Table(right)
	if lok && lt.JoinAllowed(right, kind) {
		return true
	}
	if rok && rt.JoinAllowed(left, kind) {
		return true
	}
	return false
}

package validators

import (
	"github.com/langsec-ai/langsec/pkg/diagnostic"
	"github.com/langsec-ai/langsec/pkg/resolver"
	"github.com/langsec-ai/langsec/pkg/schema"
)

// Aggregation is validator #5: every aggregate call f(col) must have f in
// col's allowed_aggregations. COUNT(*) is permitted iff every table this
// scope reads from allows COUNT on at least one readable column.
func Aggregation(res *resolver.Resolved, s *schema.SecuritySchema) []*diagnostic.Diagnostic {
	var out []*diagnostic.Diagnostic

	for _, c := range res.ColumnRefs {
		if c.Role != resolver.RoleAggregateArg || c.Computed {
			continue
		}
		table, ok := s.Table(c.Table)
		if !ok {
			continue // TableAccess already reports this
		}
		colSchema, ok := table.ColumnOrDefault(c.Column, s.DefaultColumnSchema())
		if !ok {
			continue // ColumnAccess already reports this
		}
		if !colSchema.AllowsAggregation(schema.AggregationType(c.AggFunc)) {
			out = append(out, diagnostic.New(diagnostic.KindColumnAccess, c.AggFunc+" is not an allowed aggregation for this column").
				WithTable(c.Table).WithColumn(c.Column).WithLocation(c.Pos.Start, c.Pos.End))
		}
	}

	for _, agg := range res.Aggregates {
		if agg.Func != string(schema.AggCount) {
			continue
		}
		for _, t := range res.Tables {
			table, ok := s.Table(t.Name)
			if !ok {
				continue
			}
			if !tableAllowsCount(table) {
				out = append(out, diagnostic.New(diagnostic.KindColumnAccess, "COUNT(*) requires at least one column allowing COUNT").
					WithTable(t.Name).WithLocation(agg.Pos.Start, agg.Pos.End))
			}
		}
	}
	return out
}

func tableAllowsCount(t schema.TableSchema) bool {
	for _, col := range t.Columns {
		if col.Access == schema.AccessRead && col.AllowsAggregation(schema.AggCount) {
			return true
		}
	}
	return false
}

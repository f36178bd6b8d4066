package schema

// The tier functions below each return (allowSubqueries, maxQueryLength,
// defaultColumn); the With*SecurityDefaults options apply them to a schema
// under construction.

// LowSecurityDefaults returns a permissive baseline: all four operations,
// every aggregation, subqueries allowed, and a generous query-length cap.
// Suitable for trusted internal tooling layered with its own table/column
// allow-lists.
func LowSecurityDefaults() (allowSubqueries bool, maxQueryLength int, defaultColumn ColumnSchema) {
	return true, 1000, ColumnSchema{
		Access: AccessRead,
		AllowedOperations: map[Operation]bool{
			OpSelect: true, OpInsert: true, OpUpdate: true, OpDelete: true,
		},
		AllowedAggregations: map[AggregationType]bool{
			AggSum: true, AggAvg: true, AggCount: true, AggMin: true, AggMax: true,
		},
	}
}

// MediumSecurityDefaults returns a moderate baseline: read-only (SELECT),
// SUM/AVG only, no subqueries, a tighter length cap. Suitable for
// semi-trusted reporting access.
func MediumSecurityDefaults() (allowSubqueries bool, maxQueryLength int, defaultColumn ColumnSchema) {
	return false, 500, ColumnSchema{
		Access: AccessRead,
		AllowedOperations: map[Operation]bool{
			OpSelect: true,
		},
		AllowedAggregations: map[AggregationType]bool{
			AggSum: true, AggAvg: true,
		},
	}
}

// HighSecurityDefaults returns a locked-down baseline: plain SELECT only,
// no aggregations, no subqueries, a short length cap. Suitable for
// low-trust callers such as LLM-generated SQL with no further review.
func HighSecurityDefaults() (allowSubqueries bool, maxQueryLength int, defaultColumn ColumnSchema) {
	return false, 200, ColumnSchema{
		Access: AccessRead,
		AllowedOperations: map[Operation]bool{
			OpSelect: true,
		},
		AllowedAggregations: map[AggregationType]bool{},
	}
}

// WithLowSecurityDefaults applies LowSecurityDefaults' tier-wide settings
// to a schema under construction. Per-table WithTable calls still take
// precedence for anything they specify explicitly.
func WithLowSecurityDefaults() Option {
	return withTierDefaults(LowSecurityDefaults)
}

// WithMediumSecurityDefaults applies MediumSecurityDefaults' tier-wide
// settings to a schema under construction.
func WithMediumSecurityDefaults() Option {
	return withTierDefaults(MediumSecurityDefaults)
}

// WithHighSecurityDefaults applies HighSecurityDefaults' tier-wide
// settings to a schema under construction.
func WithHighSecurityDefaults() Option {
	return withTierDefaults(HighSecurityDefaults)
}

func withTierDefaults(tier func() (bool, int, ColumnSchema)) Option {
	allowSubqueries, maxQueryLength, defaultColumn := tier()
	return func(b *builder) {
		b.allowSubqueries = allowSubqueries
		b.maxQueryLength = maxQueryLength
		if b.defaultColumnSchema == nil {
			b.defaultColumnSchema = &defaultColumn
		}
	}
}

// Package schema defines the declarative security policy LangSec validates
// queries against: a SecuritySchema of TableSchemas and ColumnSchemas,
// immutable once built. Construction is the only time consistency is
// checked; validators only ever read a shared, already-frozen schema.
package schema

import (
	"sort"
	"strings"
)

// ColumnAccess is the coarse access grant for a column.
type ColumnAccess string

const (
	// AccessRead permits a column in projections, predicates, GROUP BY,
	// and ORDER BY.
	AccessRead ColumnAccess = "READ"
	// AccessWrite permits a column as an assignment target in
	// UPDATE/INSERT (see spec Open Question (d): never any other role).
	AccessWrite ColumnAccess = "WRITE"
	// AccessDenied forbids all references to the column.
	AccessDenied ColumnAccess = "DENIED"
)

// JoinType enumerates the supported JOIN kinds a schema may permit between
// two tables.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinCross JoinType = "CROSS"
)

// Operation is a SQL statement kind a column's allowed_operations may name.
type Operation string

const (
	OpSelect Operation = "SELECT"
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// AggregationType enumerates the aggregate functions a column may be
// wrapped in.
type AggregationType string

const (
	AggSum   AggregationType = "SUM"
	AggAvg   AggregationType = "AVG"
	AggCount AggregationType = "COUNT"
	AggMin   AggregationType = "MIN"
	AggMax   AggregationType = "MAX"
)

var validAggregations = map[AggregationType]bool{
	AggSum: true, AggAvg: true, AggCount: true, AggMin: true, AggMax: true,
}

// ColumnSchema is the policy attached to one column of one table.
type ColumnSchema struct {
	Access              ColumnAccess
	AllowedOperations   map[Operation]bool
	AllowedAggregations map[AggregationType]bool
}

// AllowsOperation reports whether op is permitted. An empty
// AllowedOperations set means "no extra restriction beyond Access".
func (c ColumnSchema) AllowsOperation(op Operation) bool {
	if len(c.AllowedOperations) == 0 {
		return true
	}
	return c.AllowedOperations[op]
}

// AllowsAggregation reports whether agg may wrap this column.
func (c ColumnSchema) AllowsAggregation(agg AggregationType) bool {
	return c.AllowedAggregations[agg]
}

// TableSchema is the policy attached to one table.
type TableSchema struct {
	Columns             map[string]ColumnSchema
	AllowedJoins        map[string]map[JoinType]bool // other table -> permitted kinds
	DefaultAllowedJoin  map[JoinType]bool            // nil => deny unlisted partners
	RequireWhereClause  bool
	MaxRows             *int
	// AllowedGroupByColumns, when non-nil, restricts GROUP BY to this
	// explicit column allow-list even if the column's own access is READ.
	// Supplements the base spec with a coarser per-table control used by
	// callers that want GROUP BY locked down independently of projection
	// access (see the original implementation's grouping guard).
	AllowedGroupByColumns map[string]bool
	// AllowedWhereColumns, when non-nil, restricts which columns of this
	// table may appear in a WHERE predicate, independent of their READ
	// access in projections.
	AllowedWhereColumns map[string]bool
}

// ColumnOrDefault returns the ColumnSchema for name, falling back to
// defaultColumn when the table doesn't list it explicitly. ok is false when
// neither the table nor the default has an entry, meaning the column is
// implicitly denied (spec invariant 5).
func (t TableSchema) ColumnOrDefault(name string, defaultColumn *ColumnSchema) (ColumnSchema, bool) {
	if c, ok := t.Columns[name]; ok {
		return c, true
	}
	if defaultColumn != nil {
		return *defaultColumn, true
	}
	return ColumnSchema{}, false
}

// JoinAllowed reports whether this table permits joining other under kind,
// honoring DefaultAllowedJoin for unlisted partners.
func (t TableSchema) JoinAllowed(other string, kind JoinType) bool {
	if kinds, ok := t.AllowedJoins[other]; ok {
		return kinds[kind]
	}
	if t.DefaultAllowedJoin != nil {
		return t.DefaultAllowedJoin[kind]
	}
	return false
}

// GroupByAllowed reports whether name may appear in GROUP BY under this
// table's policy. With no explicit allow-list, GROUP BY follows normal READ
// access and this always returns true (the ColumnAccess validator is the
// actual gate).
func (t TableSchema) GroupByAllowed(name string) bool {
	if t.AllowedGroupByColumns == nil {
		return true
	}
	return t.AllowedGroupByColumns[name]
}

// WhereAllowed reports whether name may appear in a WHERE predicate under
// this table's policy, analogous to GroupByAllowed.
func (t TableSchema) WhereAllowed(name string) bool {
	if t.AllowedWhereColumns == nil {
		return true
	}
	return t.AllowedWhereColumns[name]
}

// SecuritySchema is the complete, immutable policy validate_query checks a
// query against.
type SecuritySchema struct {
	tables                 map[string]TableSchema
	defaultTableSchema      *TableSchema
	defaultColumnSchema     *ColumnSchema
	maxJoins                int
	allowSubqueries         bool
	maxQueryLength          int
	sqlInjectionProtection  bool
	forbiddenKeywords       map[string]bool
}

// Table looks up the policy for a base table name, normalized to
// lower-case (spec Open Question (a)), honoring DefaultTableSchema. ok is
// false when the table is implicitly denied.
func (s *SecuritySchema) Table(name string) (TableSchema, bool) {
	norm := strings.ToLower(name)
	if t, ok := s.tables[norm]; ok {
		return t, true
	}
	if s.defaultTableSchema != nil {
		return *s.defaultTableSchema, true
	}
	return TableSchema{}, false
}

// HasExplicitTable reports whether name is listed explicitly in the
// schema, as opposed to only covered by DefaultTableSchema.
func (s *SecuritySchema) HasExplicitTable(name string) bool {
	_, ok := s.tables[strings.ToLower(name)]
	return ok
}

func (s *SecuritySchema) DefaultColumnSchema() *ColumnSchema { return s.defaultColumnSchema }
func (s *SecuritySchema) MaxJoins() int                       { return s.maxJoins }
func (s *SecuritySchema) AllowSubqueries() bool               { return s.allowSubqueries }
func (s *SecuritySchema) MaxQueryLength() int                 { return s.maxQueryLength }
func (s *SecuritySchema) SQLInjectionProtection() bool        { return s.sqlInjectionProtection }

// ForbiddenKeyword reports whether word (case-insensitive) is on the
// schema's forbidden-keyword blacklist.
func (s *SecuritySchema) ForbiddenKeyword(word string) bool {
	return s.forbiddenKeywords[strings.ToUpper(word)]
}

// PromptSummary renders a compact, human-readable description of the
// schema's table and column policy, suitable for embedding in a system
// prompt so an LLM generating SQL can see its own constraints up front
// rather than discovering them one rejected query at a time.
func (s *SecuritySchema) PromptSummary() string {
	var b strings.Builder
	b.WriteString("Allowed tables and columns:\n")
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := s.tables[name]
		b.WriteString("- ")
		b.WriteString(name)
		b.WriteString(": ")
		cols := make([]string, 0, len(t.Columns))
		for col, cs := range t.Columns {
			if cs.Access == AccessDenied {
				continue
			}
			cols = append(cols, col)
		}
		sort.Strings(cols)
		b.WriteString(strings.Join(cols, ", "))
		b.WriteString("\n")
	}
	return b.String()
}

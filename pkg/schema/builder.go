package schema

import (
	"fmt"
	"strings"
)

// Option configures a SecuritySchema under construction. Unknown fields
// cannot be expressed through this API at all — the builder only exposes
// the fields enumerated in the data model, so there is nothing to reject.
type Option func(*builder)

type builder struct {
	tables                 map[string]TableSchema
	defaultTableSchema      *TableSchema
	defaultColumnSchema     *ColumnSchema
	maxJoins                int
	allowSubqueries         bool
	maxQueryLength          int
	sqlInjectionProtection  bool
	forbiddenKeywords       map[string]bool
	err                     error
}

// WithTable registers a named table policy. Table names, column keys and
// join-partner names are normalized to lower-case for comparison (spec Open
// Question (a)); allow-list entries are kept as written.
func WithTable(name string, table TableSchema) Option {
	return func(b *builder) {
		b.tables[strings.ToLower(name)] = normalizeTable(table)
	}
}

// WithDefaultTableSchema sets the fallback policy applied to any table
// absent from the explicit table map.
func WithDefaultTableSchema(table TableSchema) Option {
	return func(b *builder) {
		t := normalizeTable(table)
		b.defaultTableSchema = &t
	}
}

// WithDefaultColumnSchema sets the fallback policy for columns not listed
// within a table's own Columns map.
func WithDefaultColumnSchema(col ColumnSchema) Option {
	return func(b *builder) {
		b.defaultColumnSchema = &col
	}
}

// WithMaxJoins sets the upper bound on JOIN operators in a single query,
// counted across all scopes.
func WithMaxJoins(n int) Option {
	return func(b *builder) {
		if n < 0 {
			b.err = appendErr(b.err, fmt.Errorf("max_joins must be >= 0, got %d", n))
			return
		}
		b.maxJoins = n
	}
}

// WithAllowSubqueries enables or disables nested SELECTs.
func WithAllowSubqueries(allow bool) Option {
	return func(b *builder) { b.allowSubqueries = allow }
}

// WithMaxQueryLength sets the character-length cap on the raw query string.
func WithMaxQueryLength(n int) Option {
	return func(b *builder) {
		if n < 0 {
			b.err = appendErr(b.err, fmt.Errorf("max_query_length must be >= 0, got %d", n))
			return
		}
		b.maxQueryLength = n
	}
}

// WithSQLInjectionProtection enables the heuristic pre-parse gate.
func WithSQLInjectionProtection(enabled bool) Option {
	return func(b *builder) { b.sqlInjectionProtection = enabled }
}

// WithForbiddenKeywords sets the case-insensitive keyword blacklist.
func WithForbiddenKeywords(keywords ...string) Option {
	return func(b *builder) {
		for _, k := range keywords {
			b.forbiddenKeywords[strings.ToUpper(k)] = true
		}
	}
}

func appendErr(existing, next error) error {
	if existing == nil {
		return next
	}
	return fmt.Errorf("%w; %w", existing, next)
}

// normalizeTable lower-cases the table's column keys and join-partner keys
// so column and JoinAllowed lookups are case-insensitive, matching the
// table-name normalization applied at the schema level. Entries of
// AllowedGroupByColumns and AllowedWhereColumns are kept as written and
// only match lower-case column names.
func normalizeTable(t TableSchema) TableSchema {
	if t.Columns != nil {
		cols := make(map[string]ColumnSchema, len(t.Columns))
		for name, c := range t.Columns {
			cols[strings.ToLower(name)] = c
		}
		t.Columns = cols
	}
	if t.AllowedJoins == nil {
		return t
	}
	normalized := make(map[string]map[JoinType]bool, len(t.AllowedJoins))
	for other, kinds := range t.AllowedJoins {
		normalized[strings.ToLower(other)] = kinds
	}
	t.AllowedJoins = normalized
	return t
}

// New builds a SecuritySchema from the given options, validating
// construction-time consistency per spec §6: max_joins/max_query_length
// non-negative (enforced by the With* options above), no column both READ
// and DENIED (meaningless by construction — Access is a single enum value,
// not a set), and join references pointing to tables present in the schema
// unless a DefaultTableSchema is set.
func New(opts ...Option) (*SecuritySchema, error) {
	b := &builder{
		tables:            make(map[string]TableSchema),
		forbiddenKeywords: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.err != nil {
		return nil, b.err
	}

	s := &SecuritySchema{
		tables:                 b.tables,
		defaultTableSchema:      b.defaultTableSchema,
		defaultColumnSchema:     b.defaultColumnSchema,
		maxJoins:                b.maxJoins,
		allowSubqueries:         b.allowSubqueries,
		maxQueryLength:          b.maxQueryLength,
		sqlInjectionProtection:  b.sqlInjectionProtection,
		forbiddenKeywords:       b.forbiddenKeywords,
	}

	if err := validateJoinReferences(s); err != nil {
		return nil, err
	}
	return s, nil
}

// validateJoinReferences ensures every AllowedJoins partner names a table
// present in the schema, unless a DefaultTableSchema covers unlisted
// tables (spec §6's schema-construction consistency check).
func validateJoinReferences(s *SecuritySchema) error {
	if s.defaultTableSchema != nil {
		return nil
	}
	for name, t := range s.tables {
		for other := range t.AllowedJoins {
			if _, ok := s.tables[other]; !ok {
				return fmt.Errorf("table %q allows joining unknown table %q and no default_table_schema is set", name, other)
			}
		}
	}
	return nil
}

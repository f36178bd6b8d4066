package schema

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the YAML-serializable form of a SecuritySchema, decoded in
// strict mode (yaml.Decoder.KnownFields(true)) so an unrecognized key is a
// load error rather than a silently ignored typo — the schema-construction
// interface's "unknown fields are rejected" guarantee (spec §6) extended
// to the file format.
type Document struct {
	Tables                 map[string]TableDocument `yaml:"tables"`
	DefaultTableSchema      *TableDocument           `yaml:"default_table_schema"`
	DefaultColumnSchema     *ColumnDocument          `yaml:"default_column_schema"`
	MaxJoins                int                      `yaml:"max_joins"`
	AllowSubqueries         bool                     `yaml:"allow_subqueries"`
	MaxQueryLength          int                      `yaml:"max_query_length"`
	SQLInjectionProtection  bool                     `yaml:"sql_injection_protection"`
	ForbiddenKeywords       []string                 `yaml:"forbidden_keywords"`
}

// TableDocument is one table entry of a Document.
type TableDocument struct {
	Columns               map[string]ColumnDocument    `yaml:"columns"`
	AllowedJoins          map[string][]string          `yaml:"allowed_joins"`
	DefaultAllowedJoin    []string                     `yaml:"default_allowed_join"`
	RequireWhereClause    bool                         `yaml:"require_where_clause"`
	MaxRows               *int                         `yaml:"max_rows"`
	AllowedGroupByColumns []string                     `yaml:"allowed_group_by_columns"`
	AllowedWhereColumns   []string                     `yaml:"allowed_where_columns"`
}

// ColumnDocument is one column entry of a TableDocument.
type ColumnDocument struct {
	Access              string   `yaml:"access"`
	AllowedOperations   []string `yaml:"allowed_operations"`
	AllowedAggregations []string `yaml:"allowed_aggregations"`
}

// LoadYAML decodes a schema Document from raw YAML bytes in strict mode
// and builds a SecuritySchema from it.
func LoadYAML(data []byte) (*SecuritySchema, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("schema: decoding YAML: %w", err)
	}
	return fromDocument(doc)
}

func fromDocument(doc Document) (*SecuritySchema, error) {
	opts := []Option{
		WithMaxJoins(doc.MaxJoins),
		WithAllowSubqueries(doc.AllowSubqueries),
		WithMaxQueryLength(doc.MaxQueryLength),
		WithSQLInjectionProtection(doc.SQLInjectionProtection),
		WithForbiddenKeywords(doc.ForbiddenKeywords...),
	}

	for name, td := range doc.Tables {
		table, err := tableFromDocument(td)
		if err != nil {
			return nil, fmt.Errorf("schema: table %q: %w", name, err)
		}
		opts = append(opts, WithTable(name, table))
	}

	if doc.DefaultTableSchema != nil {
		table, err := tableFromDocument(*doc.DefaultTableSchema)
		if err != nil {
			return nil, fmt.Errorf("schema: default_table_schema: %w", err)
		}
		opts = append(opts, WithDefaultTableSchema(table))
	}

	if doc.DefaultColumnSchema != nil {
		col, err := columnFromDocument(*doc.DefaultColumnSchema)
		if err != nil {
			return nil, fmt.Errorf("schema: default_column_schema: %w", err)
		}
		opts = append(opts, WithDefaultColumnSchema(col))
	}

	return New(opts...)
}

func tableFromDocument(td TableDocument) (TableSchema, error) {
	t := TableSchema{
		Columns:            make(map[string]ColumnSchema, len(td.Columns)),
		RequireWhereClause: td.RequireWhereClause,
		MaxRows:            td.MaxRows,
	}
	for name, cd := range td.Columns {
		col, err := columnFromDocument(cd)
		if err != nil {
			return TableSchema{}, fmt.Errorf("column %q: %w", name, err)
		}
		t.Columns[name] = col
	}
	if td.AllowedJoins != nil {
		t.AllowedJoins = make(map[string]map[JoinType]bool, len(td.AllowedJoins))
		for other, kinds := range td.AllowedJoins {
			set, err := joinTypeSet(kinds)
			if err != nil {
				return TableSchema{}, fmt.Errorf("allowed_joins[%q]: %w", other, err)
			}
			t.AllowedJoins[other] = set
		}
	}
	if td.DefaultAllowedJoin != nil {
		set, err := joinTypeSet(td.DefaultAllowedJoin)
		if err != nil {
			return TableSchema{}, fmt.Errorf("default_allowed_join: %w", err)
		}
		t.DefaultAllowedJoin = set
	}
	if td.AllowedGroupByColumns != nil {
		t.AllowedGroupByColumns = stringSet(td.AllowedGroupByColumns)
	}
	if td.AllowedWhereColumns != nil {
		t.AllowedWhereColumns = stringSet(td.AllowedWhereColumns)
	}
	return t, nil
}

func columnFromDocument(cd ColumnDocument) (ColumnSchema, error) {
	access, err := parseAccess(cd.Access)
	if err != nil {
		return ColumnSchema{}, err
	}
	col := ColumnSchema{Access: access}
	if cd.AllowedOperations != nil {
		col.AllowedOperations = make(map[Operation]bool, len(cd.AllowedOperations))
		for _, op := range cd.AllowedOperations {
			parsed, err := parseOperation(op)
			if err != nil {
				return ColumnSchema{}, err
			}
			col.AllowedOperations[parsed] = true
		}
	}
	if cd.AllowedAggregations != nil {
		col.AllowedAggregations = make(map[AggregationType]bool, len(cd.AllowedAggregations))
		for _, agg := range cd.AllowedAggregations {
			parsed, err := parseAggregation(agg)
			if err != nil {
				return ColumnSchema{}, err
			}
			col.AllowedAggregations[parsed] = true
		}
	}
	return col, nil
}

func parseAccess(s string) (ColumnAccess, error) {
	switch ColumnAccess(s) {
	case AccessRead, AccessWrite, AccessDenied:
		return ColumnAccess(s), nil
	default:
		return "", fmt.Errorf("invalid access %q: must be READ, WRITE, or DENIED", s)
	}
}

func parseOperation(s string) (Operation, error) {
	switch Operation(s) {
	case OpSelect, OpInsert, OpUpdate, OpDelete:
		return Operation(s), nil
	default:
		return "", fmt.Errorf("invalid operation %q", s)
	}
}

func parseAggregation(s string) (AggregationType, error) {
	agg := AggregationType(s)
	if !validAggregations[agg] {
		return "", fmt.Errorf("invalid aggregation %q", s)
	}
	return agg, nil
}

func joinTypeSet(kinds []string) (map[JoinType]bool, error) {
	set := make(map[JoinType]bool, len(kinds))
	for _, k := range kinds {
		switch JoinType(k) {
		case JoinInner, JoinLeft, JoinRight, JoinFull, JoinCross:
			set[JoinType(k)] = true
		default:
			return nil, fmt.Errorf("invalid join type %q", k)
		}
	}
	return set, nil
}

func stringSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

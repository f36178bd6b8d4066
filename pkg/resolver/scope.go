package resolver

import (
	"strings"

	"github.com/langsec-ai/langsec/pkg/diagnostic"
	"github.com/langsec-ai/langsec/pkg/schema"
	"github.com/langsec-ai/langsec/pkg/sqlast"
)

// binding is what an alias (or bare table name) resolves to within a
// scope: either a base table, or a derived scope exporting a subquery's
// projection columns by output name.
type binding struct {
	baseTable string
	derived   *derivedScope
}

// derivedScope captures a `(SELECT ...) AS alias` derived table: its own
// scope (for recursively resolving exported columns back to base tables)
// and the output-name -> expression map of its projection list.
type derivedScope struct {
	scope   *scope
	columns map[string]sqlast.Expr
}

// scope is the per-SELECT symbol table described in spec §4.3: local alias
// bindings plus a parent pointer so nested (correlated) subqueries can
// resolve names from an enclosing scope. Every key (alias, table name,
// column name) is stored and looked up lower-cased, per spec Open
// Question (a): identifier comparison normalizes to lower-case.
type scope struct {
	parent     *scope
	bindings   map[string]binding
	tablePos   map[string]sqlast.Position // first-use position per base table name (lower-cased)
	order      []string                   // distinct base table names in first-use order
	aliasOrder []string                   // every bound alias (or bare table name), in bind order
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, bindings: map[string]binding{}, tablePos: map[string]sqlast.Position{}}
}

func norm(s string) string { return strings.ToLower(s) }

func (s *scope) registerBaseTable(name string, pos sqlast.Position) {
	name = norm(name)
	if _, ok := s.tablePos[name]; !ok {
		s.tablePos[name] = pos
		s.order = append(s.order, name)
	}
}

func (s *scope) bind(alias string, b binding) {
	alias = norm(alias)
	if _, exists := s.bindings[alias]; !exists {
		s.aliasOrder = append(s.aliasOrder, alias)
	}
	s.bindings[alias] = b
}

// lookup searches this scope and its ancestors, nearest first, for alias.
func (s *scope) lookup(alias string) (binding, bool) {
	alias = norm(alias)
	for sc := s; sc != nil; sc = sc.parent {
		if b, ok := sc.bindings[alias]; ok {
			return b, true
		}
	}
	return binding{}, false
}

// exposingBindings returns the bindings of this single scope (not its
// ancestors) that expose a column named col, used for unqualified-reference
// resolution per spec §4.3 step 2.
func (s *scope) exposingBindings(col string, sec *schema.SecuritySchema) []binding {
	col = norm(col)
	var matches []binding
	for _, b := range s.bindings {
		if b.derived != nil {
			if _, ok := b.derived.columns[col]; ok {
				matches = append(matches, b)
			}
			continue
		}
		t, ok := sec.Table(b.baseTable)
		if !ok {
			continue
		}
		if _, ok := t.ColumnOrDefault(col, sec.DefaultColumnSchema()); ok {
			matches = append(matches, b)
		}
	}
	return matches
}

// buildFromClause walks a FROM/JOIN tree, registering alias bindings into
// sc and resolving any derived tables (recursively, via resolveSelect) into
// child Resolved scopes. It returns the flattened JoinRefs for this FROM
// clause, in source order, plus every nested Resolved scope discovered.
func buildFromClause(t sqlast.TableExpr, sc *scope, s *schema.SecuritySchema, resolveSelect func(*sqlast.SelectStatement, *scope) (*Resolved, *diagnostic.Diagnostic)) ([]JoinRef, []*Resolved, *diagnostic.Diagnostic) {
	switch n := t.(type) {
	case sqlast.TableRef:
		alias := n.Alias
		if alias == "" {
			alias = n.Name
		}
		sc.bind(alias, binding{baseTable: norm(n.Name)})
		sc.registerBaseTable(n.Name, n.Pos)
		return nil, nil, nil

	case *sqlast.DerivedTable:
		child, diag := resolveSelect(n.Select, sc)
		if diag != nil {
			return nil, nil, diag
		}
		ds := &derivedScope{
			scope:   newScope(nil),
			columns: make(map[string]sqlast.Expr, len(n.Select.Columns)),
		}
		// The derived scope's own FROM bindings let us chase an exported
		// column back through another layer of derived tables, if needed.
		if n.Select.From != nil {
			if _, _, diag := buildFromClause(n.Select.From, ds.scope, s, resolveSelect); diag != nil {
				return nil, nil, diag
			}
		}
		for _, item := range n.Select.Columns {
			if item.Alias != "" {
				ds.columns[norm(item.Alias)] = item.Expr
			}
		}
		sc.bind(n.Alias, binding{derived: ds})
		return nil, []*Resolved{child}, nil

	case *sqlast.JoinExpr:
		leftJoins, leftChildren, diag := buildFromClause(n.Left, sc, s, resolveSelect)
		if diag != nil {
			return nil, nil, diag
		}
		rightJoins, rightChildren, diag := buildFromClause(n.Right, sc, s, resolveSelect)
		if diag != nil {
			return nil, nil, diag
		}
		leftTables := sqlast.TableRefs(n.Left)
		rightTables := sqlast.TableRefs(n.Right)
		join := JoinRef{
			Kind:  n.Kind,
			Pos:   n.Pos,
			On:    n.On,
			Left:  tableNames(leftTables),
			Right: tableNames(rightTables),
		}
		joins := append(append([]JoinRef{}, leftJoins...), rightJoins...)
		joins = append(joins, join)
		children := append(append([]*Resolved{}, leftChildren...), rightChildren...)
		return joins, children, nil

	default:
		return nil, nil, diagnostic.New(diagnostic.KindQuerySyntax, "unsupported table expression")
	}
}

func tableNames(refs []sqlast.TableRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = norm(r.Name)
	}
	return out
}

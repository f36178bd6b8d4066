// Package resolver implements spec §4.3: it walks the parsed AST to build
// per-scope symbol tables, binds every column reference to a (base table,
// column) pair (or flags it ambiguous/unresolved), and hands the rule
// engine an annotated tree it can evaluate without ever looking at an
// alias again.
package resolver

import (
	"strings"

	"github.com/langsec-ai/langsec/pkg/diagnostic"
	"github.com/langsec-ai/langsec/pkg/schema"
	"github.com/langsec-ai/langsec/pkg/sqlast"
)

// Role is the syntactic position a column reference appears in.
type Role string

const (
	RoleProjection   Role = "PROJECTION"
	RolePredicate    Role = "PREDICATE"
	RoleGroupBy      Role = "GROUP_BY"
	RoleOrderBy      Role = "ORDER_BY"
	RoleAggregateArg Role = "AGGREGATE_ARG"
	RoleAssignTarget Role = "ASSIGN_TARGET"
)

// ColumnRef is a column reference annotated with its resolved base table
// and column name. Computed is true when the reference traces back to a
// derived table's computed projection expression rather than a real base
// column — the underlying columns were already checked inside that
// subquery's own validation pass, so this reference is policy-exempt here.
type ColumnRef struct {
	Table    string
	Column   string
	Role     Role
	AggFunc  string // uppercased enclosing aggregate function name, if Role == RoleAggregateArg
	Computed bool
	Pos      sqlast.Position
}

// Aggregate records a `FUNC(*)` call, which has no column reference to
// annotate but still needs to flow to the Aggregation validator.
type Aggregate struct {
	Func string
	Pos  sqlast.Position
}

// TableUse is one base table's first appearance in a scope's FROM clause.
type TableUse struct {
	Name string
	Pos  sqlast.Position
}

// JoinRef is one JOIN operator, with both sides flattened to the set of
// base tables they ultimately touch (a composite side, e.g. `(a JOIN b)`,
// yields more than one name; a derived-table side yields none).
type JoinRef struct {
	Left  []string
	Right []string
	Kind  sqlast.JoinKind
	On    sqlast.Expr
	Pos   sqlast.Position
}

// Resolved is one scope's fully annotated contents: the statement it came
// from, its directly-referenced base tables, its joins, every column
// reference and star-aggregate found in it, and the nested scopes
// (subqueries, derived tables) reachable from it.
type Resolved struct {
	Statement  sqlast.Statement
	Tables     []TableUse
	Joins      []JoinRef
	ColumnRefs []ColumnRef
	Aggregates []Aggregate
	Where      sqlast.Expr
	HasWhere   bool
	Children   []*Resolved
}

// Resolve walks stmt and produces its fully resolved scope tree, or the
// first diagnostic encountered (unresolved/ambiguous column, unsupported
// construct).
func Resolve(stmt sqlast.Statement, s *schema.SecuritySchema) (*Resolved, *diagnostic.Diagnostic) {
	switch n := stmt.(type) {
	case *sqlast.SelectStatement:
		return resolveSelect(n, nil, s)
	case *sqlast.InsertStatement:
		return resolveInsert(n, s)
	case *sqlast.UpdateStatement:
		return resolveUpdate(n, s)
	case *sqlast.DeleteStatement:
		return resolveDelete(n, s)
	default:
		return nil, diagnostic.New(diagnostic.KindQuerySyntax, "unsupported statement type")
	}
}

func resolveSelect(sel *sqlast.SelectStatement, parent *scope, s *schema.SecuritySchema) (*Resolved, *diagnostic.Diagnostic) {
	sc := newScope(parent)
	res := &Resolved{Statement: sel, Where: sel.Where, HasWhere: sel.Where != nil}

	if sel.From != nil {
		joins, children, diag := buildFromClause(sel.From, sc, s, func(inner *sqlast.SelectStatement, outer *scope) (*Resolved, *diagnostic.Diagnostic) {
			return resolveSelect(inner, outer, s)
		})
		if diag != nil {
			return nil, diag
		}
		res.Joins = joins
		res.Children = append(res.Children, children...)
	}

	for _, name := range sc.order {
		res.Tables = append(res.Tables, TableUse{Name: name, Pos: sc.tablePos[name]})
	}

	w := &walker{scope: sc, schema: s, result: res}

	for _, j := range res.Joins {
		if j.On == nil {
			continue
		}
		if diag := w.walkExpr(j.On, RolePredicate, ""); diag != nil {
			return nil, diag
		}
		if diag := w.resolveExprSubSelects(j.On, sc, s); diag != nil {
			return nil, diag
		}
	}

	for _, item := range sel.Columns {
		if item.Star != nil {
			if diag := w.expandStar(item.Star); diag != nil {
				return nil, diag
			}
			continue
		}
		if diag := w.walkExpr(item.Expr, RoleProjection, ""); diag != nil {
			return nil, diag
		}
	}
	if sel.Where != nil {
		if diag := w.walkExpr(sel.Where, RolePredicate, ""); diag != nil {
			return nil, diag
		}
	}
	for _, g := range sel.GroupBy {
		if diag := w.walkExpr(g, RoleGroupBy, ""); diag != nil {
			return nil, diag
		}
	}
	if sel.Having != nil {
		if diag := w.walkExpr(sel.Having, RolePredicate, ""); diag != nil {
			return nil, diag
		}
	}
	for _, o := range sel.OrderBy {
		if diag := w.walkExpr(o.Expr, RoleOrderBy, ""); diag != nil {
			return nil, diag
		}
	}

	if diag := w.resolveSubSelects(sel, sc, s); diag != nil {
		return nil, diag
	}

	return res, nil
}

// resolveSubSelects resolves every subquery expression (scalar, IN,
// EXISTS) reachable from stmt that buildFromClause did not already handle
// via a derived table, attaching each as a child scope with sc as parent
// so correlated references can see the enclosing scope's bindings.
func (w *walker) resolveSubSelects(stmt sqlast.Statement, sc *scope, s *schema.SecuritySchema) *diagnostic.Diagnostic {
	for _, sub := range exprSubSelects(stmt) {
		child, diag := resolveSelect(sub, sc, s)
		if diag != nil {
			return diag
		}
		w.result.Children = append(w.result.Children, child)
	}
	return nil
}

// exprSubSelects returns the subqueries reachable through expression
// position only (WHERE/HAVING/columns/GROUP BY/ORDER BY), excluding any
// already reachable through FROM (derived tables), which buildFromClause
// resolves itself to get scope-chaining right.
func exprSubSelects(stmt sqlast.Statement) []*sqlast.SelectStatement {
	sel, ok := stmt.(*sqlast.SelectStatement)
	if !ok {
		return sqlast.SubSelects(stmt)
	}
	var out []*sqlast.SelectStatement
	collect := func(e sqlast.Expr) { out = append(out, subSelectsInExpr(e)...) }
	for _, item := range sel.Columns {
		if item.Expr != nil {
			collect(item.Expr)
		}
	}
	collect(sel.Where)
	collect(sel.Having)
	for _, g := range sel.GroupBy {
		collect(g)
	}
	for _, o := range sel.OrderBy {
		collect(o.Expr)
	}
	return out
}

func subSelectsInExpr(e sqlast.Expr) []*sqlast.SelectStatement {
	var out []*sqlast.SelectStatement
	var walk func(sqlast.Expr)
	walk = func(e sqlast.Expr) {
		if e == nil {
			return
		}
		switch n := e.(type) {
		case *sqlast.SubqueryExpr:
			out = append(out, n.Select)
		case *sqlast.ExistsExpr:
			out = append(out, n.Subquery)
		case *sqlast.InExpr:
			if n.Subquery != nil {
				out = append(out, n.Subquery)
			}
			walk(n.Expr)
			for _, v := range n.List {
				walk(v)
			}
		case *sqlast.BinaryExpr:
			walk(n.Left)
			walk(n.Right)
		case *sqlast.UnaryExpr:
			walk(n.Expr)
		case *sqlast.BetweenExpr:
			walk(n.Expr)
			walk(n.Low)
			walk(n.High)
		case *sqlast.ParenExpr:
			walk(n.Expr)
		case *sqlast.FuncCall:
			for _, a := range n.Args {
				walk(a)
			}
		case *sqlast.CaseExpr:
			walk(n.Operand)
			for _, wh := range n.Whens {
				walk(wh.Cond)
				walk(wh.Result)
			}
			walk(n.ElseResult)
		case *sqlast.IsNullExpr:
			walk(n.Expr)
		}
	}
	walk(e)
	return out
}

func resolveInsert(ins *sqlast.InsertStatement, s *schema.SecuritySchema) (*Resolved, *diagnostic.Diagnostic) {
	sc := newScope(nil)
	sc.registerBaseTable(ins.Table.Name, ins.Table.Pos)
	sc.bind(ins.Table.Name, binding{baseTable: norm(ins.Table.Name)})

	res := &Resolved{Statement: ins, Tables: []TableUse{{Name: ins.Table.Name, Pos: ins.Table.Pos}}}
	for _, col := range ins.Columns {
		res.ColumnRefs = append(res.ColumnRefs, ColumnRef{Table: ins.Table.Name, Column: strings.ToLower(col), Role: RoleAssignTarget, Pos: ins.Pos})
	}

	w := &walker{scope: sc, schema: s, result: res}
	for _, row := range ins.Values {
		for _, v := range row {
			if diag := w.walkExpr(v, RolePredicate, ""); diag != nil {
				return nil, diag
			}
			if diag := w.resolveExprSubSelects(v, sc, s); diag != nil {
				return nil, diag
			}
		}
	}
	if ins.Select != nil {
		child, diag := resolveSelect(ins.Select, nil, s)
		if diag != nil {
			return nil, diag
		}
		res.Children = append(res.Children, child)
	}
	return res, nil
}

func resolveUpdate(upd *sqlast.UpdateStatement, s *schema.SecuritySchema) (*Resolved, *diagnostic.Diagnostic) {
	sc := newScope(nil)
	sc.registerBaseTable(upd.Table.Name, upd.Table.Pos)
	sc.bind(upd.Table.Name, binding{baseTable: norm(upd.Table.Name)})

	res := &Resolved{Statement: upd, Tables: []TableUse{{Name: upd.Table.Name, Pos: upd.Table.Pos}}, Where: upd.Where, HasWhere: upd.Where != nil}
	w := &walker{scope: sc, schema: s, result: res}

	for _, a := range upd.Assignments {
		res.ColumnRefs = append(res.ColumnRefs, ColumnRef{Table: upd.Table.Name, Column: strings.ToLower(a.Column), Role: RoleAssignTarget, Pos: upd.Pos})
		if diag := w.walkExpr(a.Value, RolePredicate, ""); diag != nil {
			return nil, diag
		}
		if diag := w.resolveExprSubSelects(a.Value, sc, s); diag != nil {
			return nil, diag
		}
	}
	if upd.Where != nil {
		if diag := w.walkExpr(upd.Where, RolePredicate, ""); diag != nil {
			return nil, diag
		}
		if diag := w.resolveExprSubSelects(upd.Where, sc, s); diag != nil {
			return nil, diag
		}
	}
	return res, nil
}

func resolveDelete(del *sqlast.DeleteStatement, s *schema.SecuritySchema) (*Resolved, *diagnostic.Diagnostic) {
	sc := newScope(nil)
	sc.registerBaseTable(del.Table.Name, del.Table.Pos)
	sc.bind(del.Table.Name, binding{baseTable: norm(del.Table.Name)})

	res := &Resolved{Statement: del, Tables: []TableUse{{Name: del.Table.Name, Pos: del.Table.Pos}}, Where: del.Where, HasWhere: del.Where != nil}
	w := &walker{scope: sc, schema: s, result: res}
	if del.Where != nil {
		if diag := w.walkExpr(del.Where, RolePredicate, ""); diag != nil {
			return nil, diag
		}
		if diag := w.resolveExprSubSelects(del.Where, sc, s); diag != nil {
			return nil, diag
		}
	}
	return res, nil
}

// resolveExprSubSelects resolves every subquery reachable from e as a
// child scope parented to sc, for statement kinds (INSERT/UPDATE/DELETE)
// whose VALUES/SET/WHERE expressions aren't already covered by
// resolveSubSelects's SELECT-shaped traversal.
func (w *walker) resolveExprSubSelects(e sqlast.Expr, sc *scope, s *schema.SecuritySchema) *diagnostic.Diagnostic {
	for _, sub := range subSelectsInExpr(e) {
		child, diag := resolveSelect(sub, sc, s)
		if diag != nil {
			return diag
		}
		w.result.Children = append(w.result.Children, child)
	}
	return nil
}

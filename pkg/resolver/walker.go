package resolver

import (
	"strings"

	"github.com/langsec-ai/langsec/pkg/diagnostic"
	"github.com/langsec-ai/langsec/pkg/schema"
	"github.com/langsec-ai/langsec/pkg/sqlast"
)

var aggregateFuncs = map[string]bool{
	"SUM": true, "AVG": true, "COUNT": true, "MIN": true, "MAX": true,
}

// walker threads a scope and the schema (needed for unqualified-reference
// exposure checks) through one Resolved scope's expression walk. It does
// not descend into nested SELECTs — those are resolved independently by
// resolveSelect/resolveSubSelects and attached as Resolved.Children.
type walker struct {
	scope  *scope
	schema *schema.SecuritySchema
	result *Resolved
}

func (w *walker) walkExpr(e sqlast.Expr, role Role, aggFunc string) *diagnostic.Diagnostic {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *sqlast.ColumnRef:
		return w.resolveColumnRef(n, role, aggFunc)

	case *sqlast.StarExpr, *sqlast.Literal:
		return nil

	case *sqlast.FuncCall:
		upper := strings.ToUpper(n.Name)
		if aggregateFuncs[upper] {
			if n.StarArg {
				w.result.Aggregates = append(w.result.Aggregates, Aggregate{Func: upper, Pos: n.Pos})
				return nil
			}
			for _, a := range n.Args {
				if diag := w.walkExpr(a, RoleAggregateArg, upper); diag != nil {
					return diag
				}
			}
			return nil
		}
		for _, a := range n.Args {
			if diag := w.walkExpr(a, role, aggFunc); diag != nil {
				return diag
			}
		}
		return nil

	case *sqlast.BinaryExpr:
		if diag := w.walkExpr(n.Left, role, aggFunc); diag != nil {
			return diag
		}
		return w.walkExpr(n.Right, role, aggFunc)

	case *sqlast.UnaryExpr:
		return w.walkExpr(n.Expr, role, aggFunc)

	case *sqlast.InExpr:
		if diag := w.walkExpr(n.Expr, role, aggFunc); diag != nil {
			return diag
		}
		for _, v := range n.List {
			if diag := w.walkExpr(v, role, aggFunc); diag != nil {
				return diag
			}
		}
		return nil

	case *sqlast.BetweenExpr:
		if diag := w.walkExpr(n.Expr, role, aggFunc); diag != nil {
			return diag
		}
		if diag := w.walkExpr(n.Low, role, aggFunc); diag != nil {
			return diag
		}
		return w.walkExpr(n.High, role, aggFunc)

	case *sqlast.ExistsExpr, *sqlast.SubqueryExpr:
		return nil // resolved independently as a child scope

	case *sqlast.ParenExpr:
		return w.walkExpr(n.Expr, role, aggFunc)

	case *sqlast.CaseExpr:
		if diag := w.walkExpr(n.Operand, role, aggFunc); diag != nil {
			return diag
		}
		for _, wh := range n.Whens {
			if diag := w.walkExpr(wh.Cond, role, aggFunc); diag != nil {
				return diag
			}
			if diag := w.walkExpr(wh.Result, role, aggFunc); diag != nil {
				return diag
			}
		}
		return w.walkExpr(n.ElseResult, role, aggFunc)

	case *sqlast.IsNullExpr:
		return w.walkExpr(n.Expr, role, aggFunc)

	default:
		return diagnostic.New(diagnostic.KindQuerySyntax, "unsupported expression node")
	}
}

// resolveColumnRef implements spec §4.3 step 2: qualified references
// resolve directly through the scope chain; unqualified references must
// match exactly one exposing binding across the whole chain, except that a
// reference no binding exposes is bound to a table of this scope that the
// schema does not cover, when there is one.
func (w *walker) resolveColumnRef(ref *sqlast.ColumnRef, role Role, aggFunc string) *diagnostic.Diagnostic {
	name := norm(ref.Name)

	if ref.Qualifier != "" {
		b, ok := w.scope.lookup(ref.Qualifier)
		if !ok {
			return diagnostic.New(diagnostic.KindColumnAccess, "unresolved qualifier: "+ref.Qualifier).
				WithColumn(ref.Name).WithLocation(ref.Pos.Start, ref.Pos.End)
		}
		return w.resolveBinding(b, name, role, aggFunc, ref.Pos)
	}

	var matches []binding
	for sc := w.scope; sc != nil; sc = sc.parent {
		matches = append(matches, sc.exposingBindings(name, w.schema)...)
	}
	switch len(matches) {
	case 0:
		// A table the schema does not cover exposes no known columns; bind
		// the reference to it so TableAccess reports the denied table.
		for _, alias := range w.scope.aliasOrder {
			b := w.scope.bindings[alias]
			if _, known := w.schema.Table(b.baseTable); b.derived == nil && !known {
				return w.resolveBinding(b, name, role, aggFunc, ref.Pos)
			}
		}
		return diagnostic.New(diagnostic.KindColumnAccess, "unresolved column: "+ref.Name).
			WithColumn(ref.Name).WithLocation(ref.Pos.Start, ref.Pos.End)
	case 1:
		return w.resolveBinding(matches[0], name, role, aggFunc, ref.Pos)
	default:
		return diagnostic.New(diagnostic.KindColumnAccess, "ambiguous column: "+ref.Name).
			WithColumn(ref.Name).WithLocation(ref.Pos.Start, ref.Pos.End)
	}
}

// resolveBinding chases a resolved binding down to a base table, following
// derived-scope indirection, or marks the reference Computed when the
// derived column is a non-trivial expression.
func (w *walker) resolveBinding(b binding, name string, role Role, aggFunc string, pos sqlast.Position) *diagnostic.Diagnostic {
	for {
		if b.baseTable != "" {
			w.result.ColumnRefs = append(w.result.ColumnRefs, ColumnRef{
				Table: b.baseTable, Column: name, Role: role, AggFunc: aggFunc, Pos: pos,
			})
			return nil
		}

		expr, ok := b.derived.columns[name]
		if !ok {
			return diagnostic.New(diagnostic.KindColumnAccess, "unresolved column in derived table: "+name).
				WithColumn(name).WithLocation(pos.Start, pos.End)
		}
		inner, ok := expr.(*sqlast.ColumnRef)
		if !ok {
			w.result.ColumnRefs = append(w.result.ColumnRefs, ColumnRef{
				Column: name, Role: role, AggFunc: aggFunc, Computed: true, Pos: pos,
			})
			return nil
		}
		if inner.Qualifier != "" {
			next, ok := b.derived.scope.lookup(inner.Qualifier)
			if !ok {
				return diagnostic.New(diagnostic.KindColumnAccess, "unresolved qualifier: "+inner.Qualifier).
					WithColumn(inner.Name).WithLocation(pos.Start, pos.End)
			}
			b = next
			name = norm(inner.Name)
			continue
		}
		matches := b.derived.scope.exposingBindings(norm(inner.Name), w.schema)
		switch len(matches) {
		case 1:
			b = matches[0]
			name = norm(inner.Name)
			continue
		case 0:
			return diagnostic.New(diagnostic.KindColumnAccess, "unresolved column: "+inner.Name).
				WithColumn(inner.Name).WithLocation(pos.Start, pos.End)
		default:
			return diagnostic.New(diagnostic.KindColumnAccess, "ambiguous column: "+inner.Name).
				WithColumn(inner.Name).WithLocation(pos.Start, pos.End)
		}
	}
}

// expandStar resolves `SELECT *` / `SELECT t.*` to one annotated reference
// per currently readable column of the relevant table(s), per spec §4.3
// step 4.
func (w *walker) expandStar(star *sqlast.StarExpr) *diagnostic.Diagnostic {
	if star.Qualifier != "" {
		b, ok := w.scope.lookup(star.Qualifier)
		if !ok {
			return diagnostic.New(diagnostic.KindColumnAccess, "unresolved qualifier: "+star.Qualifier).
				WithLocation(star.Pos.Start, star.Pos.End)
		}
		return w.expandBinding(b, star.Pos)
	}
	for _, alias := range w.scope.aliasOrder {
		b := w.scope.bindings[alias]
		if diag := w.expandBinding(b, star.Pos); diag != nil {
			return diag
		}
	}
	return nil
}

func (w *walker) expandBinding(b binding, pos sqlast.Position) *diagnostic.Diagnostic {
	if b.derived != nil {
		for name := range b.derived.columns {
			if diag := w.resolveBinding(b, name, RoleProjection, "", pos); diag != nil {
				return diag
			}
		}
		return nil
	}
	t, ok := w.schema.Table(b.baseTable)
	if !ok {
		// An implicitly-denied table contributes no columns to the
		// expansion; the TableAccess validator reports the real error.
		return nil
	}
	for name, cs := range t.Columns {
		if cs.Access != schema.AccessRead {
			continue
		}
		w.result.ColumnRefs = append(w.result.ColumnRefs, ColumnRef{
			Table: b.baseTable, Column: name, Role: RoleProjection, Pos: pos,
		})
	}
	return nil
}

package sqlast

// WalkExpr calls visit on e and every Expr nested within it (but does not
// descend into nested SelectStatements — callers that need those should
// walk each scope independently via SubSelects). Every current Expr variant
// is handled explicitly; a kind missing from the switch is visited but its
// children are not.
func WalkExpr(e Expr, visit func(Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch n := e.(type) {
	case *ColumnRef, *StarExpr, *Literal:
		// leaf nodes
	case *FuncCall:
		for _, a := range n.Args {
			WalkExpr(a, visit)
		}
	case *BinaryExpr:
		WalkExpr(n.Left, visit)
		WalkExpr(n.Right, visit)
	case *UnaryExpr:
		WalkExpr(n.Expr, visit)
	case *InExpr:
		WalkExpr(n.Expr, visit)
		for _, v := range n.List {
			WalkExpr(v, visit)
		}
	case *BetweenExpr:
		WalkExpr(n.Expr, visit)
		WalkExpr(n.Low, visit)
		WalkExpr(n.High, visit)
	case *ExistsExpr:
		// subquery walked separately by scope-aware callers
	case *SubqueryExpr:
		// subquery walked separately by scope-aware callers
	case *ParenExpr:
		WalkExpr(n.Expr, visit)
	case *CaseExpr:
		WalkExpr(n.Operand, visit)
		for _, w := range n.Whens {
			WalkExpr(w.Cond, visit)
			WalkExpr(w.Result, visit)
		}
		WalkExpr(n.ElseResult, visit)
	case *IsNullExpr:
		WalkExpr(n.Expr, visit)
	}
}

// ColumnRefs returns every ColumnRef nested in e, not descending into
// subqueries.
func ColumnRefs(e Expr) []*ColumnRef {
	var out []*ColumnRef
	WalkExpr(e, func(n Expr) {
		if c, ok := n.(*ColumnRef); ok {
			out = append(out, c)
		}
	})
	return out
}

// FuncCalls returns every FuncCall nested in e, not descending into
// subqueries.
func FuncCalls(e Expr) []*FuncCall {
	var out []*FuncCall
	WalkExpr(e, func(n Expr) {
		if f, ok := n.(*FuncCall); ok {
			out = append(out, f)
		}
	})
	return out
}

// TableRefs returns every base TableRef appearing in a TableExpr tree,
// in left-to-right source order.
func TableRefs(t TableExpr) []TableRef {
	var out []TableRef
	var walk func(TableExpr)
	walk = func(t TableExpr) {
		switch n := t.(type) {
		case TableRef:
			out = append(out, n)
		case *DerivedTable:
			// derived tables are not base tables
		case *JoinExpr:
			walk(n.Left)
			walk(n.Right)
		}
	}
	walk(t)
	return out
}

// Joins returns every JoinExpr appearing in a TableExpr tree.
func Joins(t TableExpr) []*JoinExpr {
	var out []*JoinExpr
	var walk func(TableExpr)
	walk = func(t TableExpr) {
		if j, ok := t.(*JoinExpr); ok {
			out = append(out, j)
			walk(j.Left)
			walk(j.Right)
		}
	}
	walk(t)
	return out
}

// SubSelects returns every SelectStatement reachable from stmt by
// descending through FROM (derived tables), WHERE/HAVING (subquery
// expressions), and INSERT ... SELECT — i.e. every nested scope, but not
// recursively into the SubSelects' own nested scopes (callers recurse).
func SubSelects(stmt Statement) []*SelectStatement {
	var out []*SelectStatement
	collectFromTable := func(t TableExpr) {
		var walk func(TableExpr)
		walk = func(t TableExpr) {
			switch n := t.(type) {
			case *DerivedTable:
				out = append(out, n.Select)
			case *JoinExpr:
				walk(n.Left)
				walk(n.Right)
			}
		}
		walk(t)
	}
	collectFromExpr := func(e Expr) {
		var walk func(Expr)
		walk = func(e Expr) {
			if e == nil {
				return
			}
			switch n := e.(type) {
			case *SubqueryExpr:
				out = append(out, n.Select)
			case *ExistsExpr:
				out = append(out, n.Subquery)
			case *InExpr:
				if n.Subquery != nil {
					out = append(out, n.Subquery)
				}
				walk(n.Expr)
				for _, v := range n.List {
					walk(v)
				}
			case *BinaryExpr:
				walk(n.Left)
				walk(n.Right)
			case *UnaryExpr:
				walk(n.Expr)
			case *BetweenExpr:
				walk(n.Expr)
				walk(n.Low)
				walk(n.High)
			case *ParenExpr:
				walk(n.Expr)
			case *FuncCall:
				for _, a := range n.Args {
					walk(a)
				}
			case *CaseExpr:
				walk(n.Operand)
				for _, w := range n.Whens {
					walk(w.Cond)
					walk(w.Result)
				}
				walk(n.ElseResult)
			case *IsNullExpr:
				walk(n.Expr)
			}
		}
		walk(e)
	}

	switch s := stmt.(type) {
	case *SelectStatement:
		if s.From != nil {
			collectFromTable(s.From)
		}
		collectFromExpr(s.Where)
		collectFromExpr(s.Having)
		for _, item := range s.Columns {
			if item.Expr != nil {
				collectFromExpr(item.Expr)
			}
		}
		for _, g := range s.GroupBy {
			collectFromExpr(g)
		}
		for _, o := range s.OrderBy {
			collectFromExpr(o.Expr)
		}
	case *InsertStatement:
		if s.Select != nil {
			out = append(out, s.Select)
		}
		for _, row := range s.Values {
			for _, v := range row {
				collectFromExpr(v)
			}
		}
	case *UpdateStatement:
		collectFromExpr(s.Where)
		for _, a := range s.Assignments {
			collectFromExpr(a.Value)
		}
	case *DeleteStatement:
		collectFromExpr(s.Where)
	}
	return out
}

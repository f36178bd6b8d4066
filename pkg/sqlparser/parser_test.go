package sqlparser

import (
	"testing"

	"github.com/langsec-ai/langsec/pkg/sqlast"
)

func TestParseSimpleSelect(t *testing.T) {
	stmt, err := Parse("SELECT id, name FROM users WHERE id = 1")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	sel, ok := stmt.(*sqlast.SelectStatement)
	if !ok {
		t.Fatalf("expected *SelectStatement, got %T", stmt)
	}
	if len(sel.Columns) != 2 {
		t.Fatalf("expected 2 select items, got %d", len(sel.Columns))
	}
	if sel.Columns[0].Alias != "id" || sel.Columns[1].Alias != "name" {
		t.Fatalf("unexpected inferred aliases: %+v", sel.Columns)
	}
	ref, ok := sel.From.(sqlast.TableRef)
	if !ok || ref.Name != "users" {
		t.Fatalf("unexpected FROM: %+v", sel.From)
	}
	where, ok := sel.Where.(*sqlast.BinaryExpr)
	if !ok || where.Op != "=" {
		t.Fatalf("unexpected WHERE: %+v", sel.Where)
	}
}

func TestParseStarAndQualifiedStar(t *testing.T) {
	stmt, err := Parse("SELECT *, u.* FROM users AS u")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	sel := stmt.(*sqlast.SelectStatement)
	if sel.Columns[0].Star == nil || sel.Columns[0].Star.Qualifier != "" {
		t.Fatalf("expected bare star, got %+v", sel.Columns[0])
	}
	if sel.Columns[1].Star == nil || sel.Columns[1].Star.Qualifier != "u" {
		t.Fatalf("expected qualified star, got %+v", sel.Columns[1])
	}
	ref := sel.From.(sqlast.TableRef)
	if ref.Alias != "u" {
		t.Fatalf("expected alias u, got %q", ref.Alias)
	}
}

func TestParseJoinChain(t *testing.T) {
	stmt, err := Parse(`SELECT o.id FROM orders o
		INNER JOIN users u ON o.user_id = u.id
		LEFT JOIN shipments s ON s.order_id = o.id`)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	sel := stmt.(*sqlast.SelectStatement)
	joins := sqlast.Joins(sel.From)
	if len(joins) != 2 {
		t.Fatalf("expected 2 joins, got %d: %+v", len(joins), joins)
	}
	if joins[0].Kind != sqlast.JoinLeft {
		t.Fatalf("expected outer join to be LEFT, got %v", joins[0].Kind)
	}
	tables := sqlast.TableRefs(sel.From)
	if len(tables) != 3 {
		t.Fatalf("expected 3 base tables, got %d", len(tables))
	}
}

func TestParseCrossJoinRejectsOnClause(t *testing.T) {
	_, err := Parse("SELECT * FROM a CROSS JOIN b ON a.id = b.id")
	if err == nil {
		t.Fatal("expected error for CROSS JOIN with ON clause")
	}
}

func TestParseSubqueryInWhere(t *testing.T) {
	stmt, err := Parse(`SELECT id FROM orders WHERE user_id IN (SELECT id FROM users WHERE active = TRUE)`)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	sel := stmt.(*sqlast.SelectStatement)
	subs := sqlast.SubSelects(sel)
	if len(subs) != 1 {
		t.Fatalf("expected 1 nested subquery, got %d", len(subs))
	}
}

func TestParseDerivedTableRequiresAlias(t *testing.T) {
	_, err := Parse("SELECT * FROM (SELECT id FROM users)")
	if err == nil {
		t.Fatal("expected error: derived table without alias")
	}
}

func TestParseExistsAndCase(t *testing.T) {
	stmt, err := Parse(`SELECT CASE WHEN active THEN 'y' ELSE 'n' END AS flag
		FROM users u WHERE EXISTS (SELECT 1 FROM orders o WHERE o.user_id = u.id)`)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	sel := stmt.(*sqlast.SelectStatement)
	if _, ok := sel.Columns[0].Expr.(*sqlast.CaseExpr); !ok {
		t.Fatalf("expected CaseExpr, got %T", sel.Columns[0].Expr)
	}
	if _, ok := sel.Where.(*sqlast.ExistsExpr); !ok {
		t.Fatalf("expected ExistsExpr, got %T", sel.Where)
	}
}

func TestParseBetweenAndIsNull(t *testing.T) {
	stmt, err := Parse("SELECT * FROM orders WHERE amount BETWEEN 10 AND 100 AND shipped_at IS NOT NULL")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	sel := stmt.(*sqlast.SelectStatement)
	and, ok := sel.Where.(*sqlast.BinaryExpr)
	if !ok || and.Op != "AND" {
		t.Fatalf("expected top-level AND, got %+v", sel.Where)
	}
	if _, ok := and.Left.(*sqlast.BetweenExpr); !ok {
		t.Fatalf("expected BetweenExpr on left, got %T", and.Left)
	}
	isNull, ok := and.Right.(*sqlast.IsNullExpr)
	if !ok || !isNull.Not {
		t.Fatalf("expected IS NOT NULL, got %+v", and.Right)
	}
}

func TestParseGroupByHavingOrderLimitOffset(t *testing.T) {
	stmt, err := Parse(`SELECT user_id, COUNT(*) AS cnt FROM orders
		GROUP BY user_id HAVING COUNT(*) > 1
		ORDER BY cnt DESC LIMIT 10 OFFSET 5`)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	sel := stmt.(*sqlast.SelectStatement)
	if len(sel.GroupBy) != 1 {
		t.Fatalf("expected 1 GROUP BY expr, got %d", len(sel.GroupBy))
	}
	if sel.Having == nil {
		t.Fatal("expected HAVING clause")
	}
	if len(sel.OrderBy) != 1 || !sel.OrderBy[0].Descending {
		t.Fatalf("expected single DESC order item, got %+v", sel.OrderBy)
	}
	if sel.Limit == nil || *sel.Limit != 10 {
		t.Fatalf("expected LIMIT 10, got %+v", sel.Limit)
	}
	if sel.Offset == nil || *sel.Offset != 5 {
		t.Fatalf("expected OFFSET 5, got %+v", sel.Offset)
	}
}

func TestParseInsertValues(t *testing.T) {
	stmt, err := Parse("INSERT INTO users (id, name) VALUES (1, 'alice')")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	ins := stmt.(*sqlast.InsertStatement)
	if ins.Table.Name != "users" {
		t.Fatalf("unexpected table: %q", ins.Table.Name)
	}
	if len(ins.Columns) != 2 || len(ins.Values) != 1 || len(ins.Values[0]) != 2 {
		t.Fatalf("unexpected insert shape: %+v", ins)
	}
}

func TestParseInsertSelect(t *testing.T) {
	stmt, err := Parse("INSERT INTO archive_orders (id) SELECT id FROM orders WHERE id < 100")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	ins := stmt.(*sqlast.InsertStatement)
	if ins.Select == nil {
		t.Fatal("expected a SELECT-sourced insert")
	}
}

func TestParseUpdate(t *testing.T) {
	stmt, err := Parse("UPDATE users SET active = TRUE, name = 'bob' WHERE id = 1")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	upd := stmt.(*sqlast.UpdateStatement)
	if upd.Table.Name != "users" || len(upd.Assignments) != 2 {
		t.Fatalf("unexpected update shape: %+v", upd)
	}
	if upd.Where == nil {
		t.Fatal("expected WHERE clause")
	}
}

func TestParseDelete(t *testing.T) {
	stmt, err := Parse("DELETE FROM orders WHERE id = 1")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	del := stmt.(*sqlast.DeleteStatement)
	if del.Table.Name != "orders" || del.Where == nil {
		t.Fatalf("unexpected delete shape: %+v", del)
	}
}

func TestParseRejectsTrailingInput(t *testing.T) {
	_, err := Parse("SELECT 1 FROM users; SELECT 2 FROM orders")
	if err == nil {
		t.Fatal("expected error for trailing statement")
	}
}

func TestParseFuncCallWithDistinctAndCountStar(t *testing.T) {
	stmt, err := Parse("SELECT COUNT(*) AS total, COUNT(DISTINCT user_id) AS uniq FROM orders")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	sel := stmt.(*sqlast.SelectStatement)
	first := sel.Columns[0].Expr.(*sqlast.FuncCall)
	if !first.StarArg {
		t.Fatalf("expected COUNT(*) StarArg, got %+v", first)
	}
	second := sel.Columns[1].Expr.(*sqlast.FuncCall)
	if !second.Distinct || len(second.Args) != 1 {
		t.Fatalf("expected COUNT(DISTINCT ...), got %+v", second)
	}
}

func TestParsePrecedenceOfAndOverOr(t *testing.T) {
	stmt, err := Parse("SELECT * FROM t WHERE a = 1 OR b = 2 AND c = 3")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	sel := stmt.(*sqlast.SelectStatement)
	or, ok := sel.Where.(*sqlast.BinaryExpr)
	if !ok || or.Op != "OR" {
		t.Fatalf("expected top-level OR, got %+v", sel.Where)
	}
	and, ok := or.Right.(*sqlast.BinaryExpr)
	if !ok || and.Op != "AND" {
		t.Fatalf("expected AND binds tighter than OR, got %+v", or.Right)
	}
}

package sqlparser

import (
	"github.com/langsec-ai/langsec/pkg/sqlast"
)

// parseInsert parses INSERT INTO table (cols...) VALUES (...), (...) or
// INSERT INTO table (cols...) SELECT ...
func (p *parser) parseInsert() (*sqlast.InsertStatement, error) {
	start := p.cur().Start
	if err := p.expectKeyword("INSERT"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}

	table, err := p.parseTableName()
	if err != nil {
		return nil, err
	}
	stmt := &sqlast.InsertStatement{Table: table}

	if p.eatPunct("(") {
		cols, err := p.parseIdentList()
		if err != nil {
			return nil, err
		}
		stmt.Columns = cols
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	}

	switch {
	case p.eatKeyword("VALUES"):
		rows, err := p.parseValuesRows()
		if err != nil {
			return nil, err
		}
		stmt.Values = rows
	case p.atKeyword("SELECT"):
		sel, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		stmt.Select = sel
	default:
		return nil, p.errorf("expected VALUES or SELECT in INSERT, got %q", p.cur().Text)
	}

	stmt.Pos = sqlast.Position{Start: start, End: p.cur().Start}
	return stmt, nil
}

func (p *parser) parseTableName() (sqlast.TableRef, error) {
	start := p.cur().Start
	name, err := p.parseIdentText()
	if err != nil {
		return sqlast.TableRef{}, err
	}
	return sqlast.TableRef{Name: name, Pos: sqlast.Position{Start: start, End: p.cur().Start}}, nil
}

func (p *parser) parseValuesRows() ([][]sqlast.Expr, error) {
	var rows [][]sqlast.Expr
	for {
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		row, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		rows = append(rows, row)
		if !p.eatPunct(",") {
			break
		}
	}
	return rows, nil
}

// parseUpdate parses UPDATE table SET col = expr, ... [WHERE expr]
func (p *parser) parseUpdate() (*sqlast.UpdateStatement, error) {
	start := p.cur().Start
	if err := p.expectKeyword("UPDATE"); err != nil {
		return nil, err
	}
	table, err := p.parseTableName()
	if err != nil {
		return nil, err
	}
	stmt := &sqlast.UpdateStatement{Table: table}

	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	assignments, err := p.parseAssignments()
	if err != nil {
		return nil, err
	}
	stmt.Assignments = assignments

	if p.eatKeyword("WHERE") {
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	stmt.Pos = sqlast.Position{Start: start, End: p.cur().Start}
	return stmt, nil
}

func (p *parser) parseAssignments() ([]sqlast.Assignment, error) {
	var out []sqlast.Assignment
	for {
		col, err := p.parseIdentText()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("="); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, sqlast.Assignment{Column: col, Value: val})
		if !p.eatPunct(",") {
			break
		}
	}
	return out, nil
}

// parseDelete parses DELETE FROM table [WHERE expr]
func (p *parser) parseDelete() (*sqlast.DeleteStatement, error) {
	start := p.cur().Start
	if err := p.expectKeyword("DELETE"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.parseTableName()
	if err != nil {
		return nil, err
	}
	stmt := &sqlast.DeleteStatement{Table: table}

	if p.eatKeyword("WHERE") {
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	stmt.Pos = sqlast.Position{Start: start, End: p.cur().Start}
	return stmt, nil
}

package sqlparser

import (
	"strings"

	"github.com/langsec-ai/langsec/pkg/sqlast"
	"github.com/langsec-ai/langsec/pkg/sqltoken"
)

// Operator precedence (low to high): OR, AND, NOT, comparison, additive,
// multiplicative, unary, primary. This mirrors standard SQL precedence
// closely enough for the predicate shapes LangSec needs to validate.

func (p *parser) parseExpr() (sqlast.Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (sqlast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.eatKeyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &sqlast.BinaryExpr{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (sqlast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.eatKeyword("AND") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &sqlast.BinaryExpr{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (sqlast.Expr, error) {
	if p.eatKeyword("NOT") {
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &sqlast.UnaryExpr{Op: "NOT", Expr: inner}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[string]bool{
	"=": true, "<>": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
}

func (p *parser) parseComparison() (sqlast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	// `expr [NOT] IN (...)`, `expr [NOT] BETWEEN a AND b`
	not := false
	if p.atKeyword("NOT") && (p.peekAhead(1).Kind == sqltoken.KindKeyword) &&
		(strings.EqualFold(p.peekAhead(1).Text, "IN") || strings.EqualFold(p.peekAhead(1).Text, "BETWEEN") || strings.EqualFold(p.peekAhead(1).Text, "LIKE")) {
		not = true
		p.advance()
	}

	switch {
	case p.eatKeyword("IN"):
		return p.parseInTail(left, not)
	case p.eatKeyword("BETWEEN"):
		return p.parseBetweenTail(left, not)
	case p.eatKeyword("LIKE"):
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		op := "LIKE"
		expr := sqlast.Expr(&sqlast.BinaryExpr{Op: op, Left: left, Right: right})
		if not {
			expr = &sqlast.UnaryExpr{Op: "NOT", Expr: expr}
		}
		return expr, nil
	case p.atKeyword("IS"):
		p.advance()
		isNot := p.eatKeyword("NOT")
		if err := p.expectKeyword("NULL"); err != nil {
			return nil, err
		}
		return &sqlast.IsNullExpr{Expr: left, Not: isNot}, nil
	}

	if not {
		return nil, p.errorf("expected IN, BETWEEN, or LIKE after NOT")
	}

	if p.at(sqltoken.KindPunct, "") && comparisonOps[p.cur().Text] {
		op := p.advance().Text
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &sqlast.BinaryExpr{Op: op, Left: left, Right: right}, nil
	}

	return left, nil
}

func (p *parser) parseInTail(left sqlast.Expr, not bool) (sqlast.Expr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	in := &sqlast.InExpr{Expr: left, Not: not}
	if p.atKeyword("SELECT") {
		sel, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		in.Subquery = sel
	} else {
		list, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		in.List = list
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return in, nil
}

func (p *parser) parseBetweenTail(left sqlast.Expr, not bool) (sqlast.Expr, error) {
	low, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("AND"); err != nil {
		return nil, err
	}
	high, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return &sqlast.BetweenExpr{Expr: left, Low: low, High: high, Not: not}, nil
}

func (p *parser) parseAdditive() (sqlast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.atPunct("+") || p.atPunct("-") || p.atPunct("||") {
		op := p.advance().Text
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &sqlast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (sqlast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.atPunct("*") || p.atPunct("/") {
		op := p.advance().Text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &sqlast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (sqlast.Expr, error) {
	if p.atPunct("-") {
		p.advance()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &sqlast.UnaryExpr{Op: "-", Expr: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (sqlast.Expr, error) {
	start := p.cur().Start

	switch {
	case p.atKeyword("EXISTS"):
		p.advance()
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		sel, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &sqlast.ExistsExpr{Subquery: sel, Pos: pos(start, p)}, nil

	case p.atKeyword("CASE"):
		return p.parseCase()

	case p.atKeyword("NULL"):
		p.advance()
		return &sqlast.Literal{Kind: sqlast.LiteralNull, Value: "NULL", Pos: pos(start, p)}, nil

	case p.atKeyword("TRUE"), p.atKeyword("FALSE"):
		tok := p.advance()
		return &sqlast.Literal{Kind: sqlast.LiteralBool, Value: tok.Text, Pos: pos(start, p)}, nil

	case p.at(sqltoken.KindNumber, ""):
		tok := p.advance()
		return &sqlast.Literal{Kind: sqlast.LiteralNumber, Value: tok.Text, Pos: pos(start, p)}, nil

	case p.at(sqltoken.KindString, ""):
		tok := p.advance()
		return &sqlast.Literal{Kind: sqlast.LiteralString, Value: unquoteString(tok.Text), Pos: pos(start, p)}, nil

	case p.atPunct("*"):
		// Only valid inside a function argument list, e.g. COUNT(*); the
		// caller (parseFuncCallTail) handles this case directly, so reaching
		// here means a bare * outside a projection/func-arg, which we
		// still accept as a StarExpr for robustness.
		p.advance()
		return &sqlast.StarExpr{Pos: pos(start, p)}, nil

	case p.atPunct("("):
		p.advance()
		if p.atKeyword("SELECT") {
			sel, err := p.parseSelect()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return &sqlast.SubqueryExpr{Select: sel, Pos: pos(start, p)}, nil
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &sqlast.ParenExpr{Expr: inner, Pos: pos(start, p)}, nil

	case p.at(sqltoken.KindIdentifier, ""), p.at(sqltoken.KindQuotedIdentifier, ""):
		return p.parseIdentOrFuncCall(start)

	default:
		return nil, p.errorf("unexpected token %q in expression", p.cur().Text)
	}
}

func pos(start int, p *parser) sqlast.Position {
	return sqlast.Position{Start: start, End: p.cur().Start}
}

func unquoteString(text string) string {
	if len(text) < 2 {
		return text
	}
	inner := text[1 : len(text)-1]
	return strings.ReplaceAll(inner, "''", "'")
}

// parseIdentOrFuncCall disambiguates `name`, `qualifier.name`, and
// `name(args...)`.
func (p *parser) parseIdentOrFuncCall(start int) (sqlast.Expr, error) {
	first, err := p.parseIdentText()
	if err != nil {
		return nil, err
	}

	if p.atPunct("(") {
		return p.parseFuncCallTail(first, start)
	}

	if p.eatPunct(".") {
		name, err := p.parseIdentText()
		if err != nil {
			return nil, err
		}
		return &sqlast.ColumnRef{Qualifier: first, Name: name, Pos: pos(start, p)}, nil
	}

	return &sqlast.ColumnRef{Name: first, Pos: pos(start, p)}, nil
}

func (p *parser) parseFuncCallTail(name string, start int) (sqlast.Expr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	call := &sqlast.FuncCall{Name: name}
	if p.eatKeyword("DISTINCT") {
		call.Distinct = true
	}
	if p.atPunct("*") {
		p.advance()
		call.StarArg = true
	} else if !p.atPunct(")") {
		args, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		call.Args = args
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	call.Pos = pos(start, p)
	return call, nil
}

func (p *parser) parseCase() (sqlast.Expr, error) {
	start := p.cur().Start
	p.advance() // CASE
	ce := &sqlast.CaseExpr{}
	if !p.atKeyword("WHEN") {
		operand, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Operand = operand
	}
	for p.eatKeyword("WHEN") {
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("THEN"); err != nil {
			return nil, err
		}
		result, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Whens = append(ce.Whens, sqlast.CaseWhen{Cond: cond, Result: result})
	}
	if len(ce.Whens) == 0 {
		return nil, p.errorf("CASE expression requires at least one WHEN clause")
	}
	if p.eatKeyword("ELSE") {
		elseResult, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.ElseResult = elseResult
	}
	if err := p.expectKeyword("END"); err != nil {
		return nil, err
	}
	ce.Pos = pos(start, p)
	return ce, nil
}

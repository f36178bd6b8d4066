package sqlparser

import (
	"github.com/langsec-ai/langsec/pkg/sqlast"
	"github.com/langsec-ai/langsec/pkg/sqltoken"
)

// parseTableExpr parses a FROM clause's table list: a base table or
// derived table followed by zero or more JOIN clauses, left-associative.
func (p *parser) parseTableExpr() (sqlast.TableExpr, error) {
	left, err := p.parseTableFactor()
	if err != nil {
		return nil, err
	}
	for {
		join, ok, err := p.tryParseJoin(left)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		left = join
	}
	return left, nil
}

func (p *parser) parseTableFactor() (sqlast.TableExpr, error) {
	start := p.cur().Start
	if p.eatPunct("(") {
		sel, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		alias, err := p.parseRequiredTableAlias()
		if err != nil {
			return nil, err
		}
		return &sqlast.DerivedTable{Select: sel, Alias: alias, Pos: sqlast.Position{Start: start, End: p.cur().Start}}, nil
	}

	name, err := p.parseIdentText()
	if err != nil {
		return nil, err
	}
	alias := p.parseOptionalTableAlias()
	return sqlast.TableRef{Name: name, Alias: alias, Pos: sqlast.Position{Start: start, End: p.cur().Start}}, nil
}

// parseOptionalTableAlias parses `[AS] alias` for a base table reference,
// where the alias itself is optional.
func (p *parser) parseOptionalTableAlias() string {
	if p.eatKeyword("AS") {
		if p.at(sqltoken.KindIdentifier, "") {
			return p.advance().Text
		}
		return ""
	}
	if p.at(sqltoken.KindIdentifier, "") {
		return p.advance().Text
	}
	return ""
}

// parseRequiredTableAlias parses a derived table's alias, which ANSI SQL
// (and this dialect) requires.
func (p *parser) parseRequiredTableAlias() (string, error) {
	if p.eatKeyword("AS") {
		return p.parseIdentText()
	}
	if p.at(sqltoken.KindIdentifier, "") {
		return p.advance().Text, nil
	}
	return "", p.errorf("derived table requires an alias")
}

var joinKindKeywords = map[string]sqlast.JoinKind{
	"INNER": sqlast.JoinInner,
	"LEFT":  sqlast.JoinLeft,
	"RIGHT": sqlast.JoinRight,
	"FULL":  sqlast.JoinFull,
	"CROSS": sqlast.JoinCross,
}

// tryParseJoin attempts to parse one `[kind] JOIN table [ON ...|USING(...)]`
// clause following left. Returns ok=false (no error) if the current token
// isn't the start of a join clause.
func (p *parser) tryParseJoin(left sqlast.TableExpr) (sqlast.TableExpr, bool, error) {
	start := p.cur().Start
	kind := sqlast.JoinInner
	matchedKindKeyword := false

	for word, k := range joinKindKeywords {
		if p.atKeyword(word) {
			kind = k
			matchedKindKeyword = true
			p.advance()
			p.eatKeyword("OUTER")
			break
		}
	}

	if !p.atKeyword("JOIN") {
		if matchedKindKeyword {
			return nil, false, p.errorf("expected JOIN, got %q", p.cur().Text)
		}
		return left, false, nil
	}
	p.advance() // JOIN

	right, err := p.parseTableFactor()
	if err != nil {
		return nil, false, err
	}

	join := &sqlast.JoinExpr{Left: left, Right: right, Kind: kind}

	switch {
	case p.eatKeyword("ON"):
		if kind == sqlast.JoinCross {
			return nil, false, p.errorf("CROSS JOIN does not take an ON clause")
		}
		on, err := p.parseExpr()
		if err != nil {
			return nil, false, err
		}
		join.On = on
	case p.eatKeyword("USING"):
		if kind == sqlast.JoinCross {
			return nil, false, p.errorf("CROSS JOIN does not take a USING clause")
		}
		if err := p.expectPunct("("); err != nil {
			return nil, false, err
		}
		cols, err := p.parseIdentList()
		if err != nil {
			return nil, false, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, false, err
		}
		join.Using = cols
	default:
		if kind != sqlast.JoinCross {
			return nil, false, p.errorf("expected ON or USING for %s JOIN", kind)
		}
	}

	join.Pos = sqlast.Position{Start: start, End: p.cur().Start}
	return join, true, nil
}

func (p *parser) parseIdentList() ([]string, error) {
	var out []string
	for {
		name, err := p.parseIdentText()
		if err != nil {
			return nil, err
		}
		out = append(out, name)
		if !p.eatPunct(",") {
			break
		}
	}
	return out, nil
}

// Package sqlparser adapts the external-parser role described in spec §4.2:
// it wraps a lexer (pkg/sqltoken) behind a small recursive-descent parser
// and converts the result into the canonical pkg/sqlast tree. Apart from
// the pre-parse gate, which scans tokens before parsing, it is the only
// component that works with token-level SQL syntax; everything downstream
// (resolver, validators) works purely in terms of pkg/sqlast.
package sqlparser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/langsec-ai/langsec/pkg/sqlast"
	"github.com/langsec-ai/langsec/pkg/sqltoken"
)

// SyntaxError is returned when the input cannot be parsed under the
// supported dialect. Pos is the byte offset the underlying tokenizer or
// parser was at when it gave up.
type SyntaxError struct {
	Pos     int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("sql syntax error at offset %d: %s", e.Pos, e.Message)
}

// Parse converts a single SQL statement into a pkg/sqlast.Statement.
// Callers are expected to have already rejected multi-statement input
// (see pkg/preparse); Parse itself only ever produces one statement and
// errors if trailing, non-comment tokens remain.
func Parse(query string) (sqlast.Statement, error) {
	tokens, err := sqltoken.Lex(query)
	if err != nil {
		if lexErr, ok := err.(*sqltoken.Error); ok {
			return nil, &SyntaxError{Pos: lexErr.Pos, Message: lexErr.Message}
		}
		return nil, &SyntaxError{Pos: 0, Message: err.Error()}
	}

	filtered := tokens[:0:0]
	for _, t := range tokens {
		if t.Kind != sqltoken.KindComment {
			filtered = append(filtered, t)
		}
	}

	p := &parser{tokens: filtered}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if !p.at(sqltoken.KindEOF, "") {
		return nil, p.errorf("unexpected trailing input %q", p.cur().Text)
	}
	return stmt, nil
}

type parser struct {
	tokens []sqltoken.Token
	pos    int
}

func (p *parser) cur() sqltoken.Token {
	if p.pos >= len(p.tokens) {
		return sqltoken.Token{Kind: sqltoken.KindEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() sqltoken.Token {
	t := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

// at reports whether the current token has the given kind and, if text is
// non-empty, matches it case-insensitively.
func (p *parser) at(kind sqltoken.Kind, text string) bool {
	t := p.cur()
	if t.Kind != kind {
		return false
	}
	if text == "" {
		return true
	}
	return strings.EqualFold(t.Text, text)
}

func (p *parser) atKeyword(word string) bool {
	return p.at(sqltoken.KindKeyword, word)
}

func (p *parser) atPunct(sym string) bool {
	return p.at(sqltoken.KindPunct, sym)
}

func (p *parser) eatKeyword(word string) bool {
	if p.atKeyword(word) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) eatPunct(sym string) bool {
	if p.atPunct(sym) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectKeyword(word string) error {
	if !p.eatKeyword(word) {
		return p.errorf("expected %q, got %q", word, p.cur().Text)
	}
	return nil
}

func (p *parser) expectPunct(sym string) error {
	if !p.eatPunct(sym) {
		return p.errorf("expected %q, got %q", sym, p.cur().Text)
	}
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Pos: p.cur().Start, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) parseStatement() (sqlast.Statement, error) {
	switch {
	case p.atKeyword("SELECT"):
		return p.parseSelect()
	case p.atKeyword("INSERT"):
		return p.parseInsert()
	case p.atKeyword("UPDATE"):
		return p.parseUpdate()
	case p.atKeyword("DELETE"):
		return p.parseDelete()
	default:
		return nil, p.errorf("expected SELECT, INSERT, UPDATE, or DELETE, got %q", p.cur().Text)
	}
}

// parseSelect parses a SELECT statement, used both at top level and for
// every nested subquery (derived tables, scalar/predicate subqueries).
func (p *parser) parseSelect() (*sqlast.SelectStatement, error) {
	start := p.cur().Start
	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}
	stmt := &sqlast.SelectStatement{}
	if p.eatKeyword("DISTINCT") {
		stmt.Distinct = true
	} else {
		p.eatKeyword("ALL")
	}

	items, err := p.parseSelectList()
	if err != nil {
		return nil, err
	}
	stmt.Columns = items

	if p.eatKeyword("FROM") {
		from, err := p.parseTableExpr()
		if err != nil {
			return nil, err
		}
		stmt.From = from
	}

	if p.eatKeyword("WHERE") {
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	if p.eatKeyword("GROUP") {
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		exprs, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		stmt.GroupBy = exprs
	}

	if p.eatKeyword("HAVING") {
		having, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Having = having
	}

	if p.eatKeyword("ORDER") {
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		items, err := p.parseOrderList()
		if err != nil {
			return nil, err
		}
		stmt.OrderBy = items
	}

	if p.eatKeyword("LIMIT") {
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		stmt.Limit = &n
	}

	if p.eatKeyword("OFFSET") {
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		stmt.Offset = &n
	}

	stmt.Pos = sqlast.Position{Start: start, End: p.cur().Start}
	return stmt, nil
}

func (p *parser) parseIntLiteral() (int, error) {
	if !p.at(sqltoken.KindNumber, "") {
		return 0, p.errorf("expected a number, got %q", p.cur().Text)
	}
	tok := p.advance()
	n, err := strconv.Atoi(tok.Text)
	if err != nil {
		return 0, &SyntaxError{Pos: tok.Start, Message: fmt.Sprintf("invalid integer literal %q", tok.Text)}
	}
	return n, nil
}

func (p *parser) parseSelectList() ([]sqlast.SelectItem, error) {
	var items []sqlast.SelectItem
	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if !p.eatPunct(",") {
			break
		}
	}
	return items, nil
}

func (p *parser) parseSelectItem() (sqlast.SelectItem, error) {
	start := p.cur().Start
	if p.atPunct("*") {
		p.advance()
		return sqlast.SelectItem{Star: &sqlast.StarExpr{Pos: sqlast.Position{Start: start, End: p.cur().Start}}}, nil
	}
	// `t.*`: lookahead for identifier '.' '*'
	if p.at(sqltoken.KindIdentifier, "") && p.peekAhead(1).Kind == sqltoken.KindPunct && p.peekAhead(1).Text == "." && p.peekAhead(2).Kind == sqltoken.KindPunct && p.peekAhead(2).Text == "*" {
		qualifier := p.advance().Text
		p.advance() // '.'
		p.advance() // '*'
		return sqlast.SelectItem{Star: &sqlast.StarExpr{Qualifier: qualifier, Pos: sqlast.Position{Start: start, End: p.cur().Start}}}, nil
	}

	expr, err := p.parseExpr()
	if err != nil {
		return sqlast.SelectItem{}, err
	}
	alias := ""
	if p.eatKeyword("AS") {
		alias, err = p.parseIdentText()
		if err != nil {
			return sqlast.SelectItem{}, err
		}
	} else if p.at(sqltoken.KindIdentifier, "") {
		alias = p.advance().Text
	} else {
		alias = inferAlias(expr)
	}
	return sqlast.SelectItem{Expr: expr, Alias: alias}, nil
}

// inferAlias derives a projection's output name when no alias is given,
// mirroring how most SQL engines expose a bare column name or a function
// name as the result column's name.
func inferAlias(e sqlast.Expr) string {
	switch n := e.(type) {
	case *sqlast.ColumnRef:
		return n.Name
	case *sqlast.FuncCall:
		return strings.ToLower(n.Name)
	default:
		return ""
	}
}

func (p *parser) peekAhead(n int) sqltoken.Token {
	idx := p.pos + n
	if idx >= len(p.tokens) {
		return sqltoken.Token{Kind: sqltoken.KindEOF}
	}
	return p.tokens[idx]
}

func (p *parser) parseIdentText() (string, error) {
	if p.at(sqltoken.KindIdentifier, "") || p.at(sqltoken.KindQuotedIdentifier, "") {
		tok := p.advance()
		return unquoteIdentifier(tok), nil
	}
	return "", p.errorf("expected an identifier, got %q", p.cur().Text)
}

func unquoteIdentifier(tok sqltoken.Token) string {
	if tok.Kind != sqltoken.KindQuotedIdentifier {
		return tok.Text
	}
	if len(tok.Text) >= 2 {
		return tok.Text[1 : len(tok.Text)-1]
	}
	return tok.Text
}

func (p *parser) parseExprList() ([]sqlast.Expr, error) {
	var exprs []sqlast.Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
		if !p.eatPunct(",") {
			break
		}
	}
	return exprs, nil
}

func (p *parser) parseOrderList() ([]sqlast.OrderItem, error) {
	var items []sqlast.OrderItem
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		item := sqlast.OrderItem{Expr: e}
		if p.eatKeyword("DESC") {
			item.Descending = true
		} else {
			p.eatKeyword("ASC")
		}
		items = append(items, item)
		if !p.eatPunct(",") {
			break
		}
	}
	return items, nil
}

// Package preparse implements the pre-parse gate described in spec §4.1:
// cheap, string-level rejections applied before the parser ever sees the
// query. It shares pkg/sqltoken with the parser adapter so both components
// agree on what counts as a string literal, a comment, and a keyword.
package preparse

import (
	"strconv"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/langsec-ai/langsec/pkg/diagnostic"
	"github.com/langsec-ai/langsec/pkg/schema"
	"github.com/langsec-ai/langsec/pkg/sqltoken"
)

// Check runs every pre-parse gate operation, in the order spec §4.1
// prescribes, and returns the first diagnostic produced, or nil if the raw
// query passes every gate.
func Check(query string, s *schema.SecuritySchema) *diagnostic.Diagnostic {
	if d := checkLength(query, s); d != nil {
		return d
	}

	tokens, lexErr := sqltoken.Lex(query)
	if lexErr != nil {
		if s.SQLInjectionProtection() {
			pos := 0
			if tokErr, ok := lexErr.(*sqltoken.Error); ok {
				pos = tokErr.Pos
			}
			return diagnostic.New(diagnostic.KindSQLInjection, "unbalanced or unterminated quoted literal").
				WithLocation(pos, pos)
		}
		// Outside injection-protection mode, let the parser adapter
		// surface the same failure as a QuerySyntaxError.
		return nil
	}

	if d := checkForbiddenKeywords(tokens, s); d != nil {
		return d
	}

	if !s.SQLInjectionProtection() {
		return nil
	}

	if d := checkMultipleStatements(tokens); d != nil {
		return d
	}
	if d := checkTautology(tokens); d != nil {
		return d
	}
	if d := checkPrematureComment(query, tokens); d != nil {
		return d
	}
	if d := checkLibinjection(tokens); d != nil {
		return d
	}
	return nil
}

func checkLength(query string, s *schema.SecuritySchema) *diagnostic.Diagnostic {
	max := s.MaxQueryLength()
	if max <= 0 {
		return nil
	}
	if len(query) > max {
		return diagnostic.New(diagnostic.KindQueryComplexity, "query exceeds max_query_length").
			WithLocation(0, len(query))
	}
	return nil
}

func checkForbiddenKeywords(tokens []sqltoken.Token, s *schema.SecuritySchema) *diagnostic.Diagnostic {
	for _, tok := range tokens {
		if tok.Kind != sqltoken.KindKeyword && tok.Kind != sqltoken.KindIdentifier {
			continue
		}
		if s.ForbiddenKeyword(tok.Text) {
			return diagnostic.New(diagnostic.KindSQLInjection, "forbidden keyword: "+strings.ToUpper(tok.Text)).
				WithLocation(tok.Start, tok.End)
		}
	}
	return nil
}

// checkMultipleStatements rejects any semicolon remaining once a single
// optional trailing one is stripped — the tokenizer has already resolved
// quoting, so any semicolon it reports as KindPunct is, by definition,
// outside a string literal.
func checkMultipleStatements(tokens []sqltoken.Token) *diagnostic.Diagnostic {
	semis := 0
	var first sqltoken.Token
	for _, tok := range tokens {
		if tok.Kind == sqltoken.KindPunct && tok.Text == ";" {
			if semis == 0 {
				first = tok
			}
			semis++
		}
	}
	if semis == 0 {
		return nil
	}
	if semis == 1 && isTrailingSemicolon(tokens) {
		return nil
	}
	return diagnostic.New(diagnostic.KindSQLInjection, "multiple SQL statements are not permitted").
		WithLocation(first.Start, first.End)
}

// isTrailingSemicolon reports whether the query's only semicolon is the
// final non-comment, non-EOF token.
func isTrailingSemicolon(tokens []sqltoken.Token) bool {
	lastIdx := -1
	for i, tok := range tokens {
		if tok.Kind == sqltoken.KindEOF || tok.Kind == sqltoken.KindComment {
			continue
		}
		lastIdx = i
	}
	return lastIdx >= 0 && tokens[lastIdx].Kind == sqltoken.KindPunct && tokens[lastIdx].Text == ";"
}

// checkTautology scans for the `'<lit>' <cmp> '<same lit>'` and
// `<int> <cmp> <same int>` shapes spec §4.1 calls out explicitly, e.g.
// `1=1` or `'a'='a'`.
func checkTautology(tokens []sqltoken.Token) *diagnostic.Diagnostic {
	significant := make([]sqltoken.Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Kind != sqltoken.KindComment {
			significant = append(significant, tok)
		}
	}
	cmpOps := map[string]bool{"=": true, "<>": true, "!=": true}
	for i := 0; i+2 < len(significant); i++ {
		a, op, b := significant[i], significant[i+1], significant[i+2]
		if op.Kind != sqltoken.KindPunct || !cmpOps[op.Text] {
			continue
		}
		if a.Kind != b.Kind {
			continue
		}
		switch a.Kind {
		case sqltoken.KindString:
			if a.Text == b.Text {
				return diagnostic.New(diagnostic.KindSQLInjection, "tautological condition "+a.Text+op.Text+b.Text).
					WithLocation(a.Start, b.End)
			}
		case sqltoken.KindNumber:
			if numEqual(a.Text, b.Text) {
				return diagnostic.New(diagnostic.KindSQLInjection, "tautological condition "+a.Text+op.Text+b.Text).
					WithLocation(a.Start, b.End)
			}
		}
	}
	return nil
}

func numEqual(a, b string) bool {
	if a == b {
		return true
	}
	af, aerr := strconv.ParseFloat(a, 64)
	bf, berr := strconv.ParseFloat(b, 64)
	return aerr == nil && berr == nil && af == bf
}

// checkPrematureComment rejects an inline comment that appears before the
// final non-comment, non-EOF token — i.e. a comment that would truncate a
// trailing clause such as a WHERE predicate or a LIMIT.
func checkPrematureComment(query string, tokens []sqltoken.Token) *diagnostic.Diagnostic {
	lastSignificant := -1
	for i, tok := range tokens {
		if tok.Kind != sqltoken.KindComment && tok.Kind != sqltoken.KindEOF {
			lastSignificant = i
		}
	}
	for i, tok := range tokens {
		if tok.Kind != sqltoken.KindComment {
			continue
		}
		if i < lastSignificant {
			return diagnostic.New(diagnostic.KindSQLInjection, "inline comment appears before the end of the statement").
				WithLocation(tok.Start, tok.End)
		}
	}
	return nil
}

// checkLibinjection applies libinjection's generic SQLi heuristic to the
// string-literal fragments recovered during tokenization — a predicate or
// assignment value is the one place a second-order injection payload could
// hide, and running the heuristic there (rather than over the whole query,
// which is itself valid, keyword-laden SQL and would trip false positives)
// keeps the catch-all scoped to what §8's own pass-case queries don't have.
func checkLibinjection(tokens []sqltoken.Token) *diagnostic.Diagnostic {
	for _, tok := range tokens {
		if tok.Kind != sqltoken.KindString {
			continue
		}
		fragment := literalValue(tok.Text)
		if fragment == "" {
			continue
		}
		isSQLi, fingerprint := libinjection.IsSQLi(fragment)
		if !isSQLi {
			continue
		}
		return diagnostic.New(diagnostic.KindSQLInjection, "literal value matches a known SQL injection pattern ("+fingerprint+")").
			WithLocation(tok.Start, tok.End)
	}
	return nil
}

// literalValue strips the surrounding quote characters from a KindString
// token's raw text, e.g. `'abc'` -> `abc`.
func literalValue(raw string) string {
	if len(raw) < 2 {
		return ""
	}
	return raw[1 : len(raw)-1]
}

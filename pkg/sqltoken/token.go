// Package sqltoken implements a coarse lexer for the SQL dialect LangSec
// validates. It is shared by the pre-parse gate and the parser adapter so
// both components agree on what counts as a string literal, a comment, and
// a statement boundary.
package sqltoken

import "strings"

// Kind classifies a token produced by Lex.
type Kind int

const (
	KindEOF Kind = iota
	KindKeyword
	KindIdentifier
	KindQuotedIdentifier
	KindNumber
	KindString
	KindComment
	KindPunct
)

func (k Kind) String() string {
	switch k {
	case KindEOF:
		return "EOF"
	case KindKeyword:
		return "keyword"
	case KindIdentifier:
		return "identifier"
	case KindQuotedIdentifier:
		return "quoted identifier"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindComment:
		return "comment"
	case KindPunct:
		return "punct"
	default:
		return "unknown"
	}
}

// Token is a single lexical unit with its source span.
type Token struct {
	Kind  Kind
	Text  string // raw source text, including quotes for strings
	Start int    // byte offset of the first rune
	End   int    // byte offset one past the last rune
}

// keywords recognized by the lexer. Identifiers matching one of these
// (case-insensitively) are classified as KindKeyword; everything else that
// looks like a name is KindIdentifier.
var keywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "GROUP": true, "BY": true,
	"HAVING": true, "ORDER": true, "LIMIT": true, "OFFSET": true,
	"JOIN": true, "INNER": true, "LEFT": true, "RIGHT": true, "FULL": true,
	"CROSS": true, "OUTER": true, "ON": true, "USING": true, "AS": true,
	"AND": true, "OR": true, "NOT": true, "IN": true, "BETWEEN": true,
	"IS": true, "NULL": true, "LIKE": true, "DISTINCT": true, "ASC": true,
	"DESC": true, "INSERT": true, "INTO": true, "VALUES": true,
	"UPDATE": true, "SET": true, "DELETE": true, "ALL": true,
	"UNION": true, "INTERSECT": true, "EXCEPT": true, "EXISTS": true,
	"CASE": true, "WHEN": true, "THEN": true, "ELSE": true, "END": true,
	"TRUE": true, "FALSE": true,
}

// IsKeyword reports whether word (case-insensitive) is a recognized SQL
// keyword of the supported dialect.
func IsKeyword(word string) bool {
	return keywords[strings.ToUpper(word)]
}

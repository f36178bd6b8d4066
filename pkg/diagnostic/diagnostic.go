// Package diagnostic defines the typed result of a failed validation. A
// Diagnostic is a value, not a control-flow exception: the pre-parse gate,
// resolver and validators return one instead of panicking or relying on
// sentinel errors from a shared pool; the parser returns a plain
// *sqlparser.SyntaxError, which the façade converts to a QuerySyntaxError
// Diagnostic.
package diagnostic

import "fmt"

// Kind classifies a Diagnostic. The set is closed and stable across
// implementations; callers may switch on it exhaustively.
type Kind string

const (
	KindTableAccess    Kind = "TableAccessError"
	KindColumnAccess   Kind = "ColumnAccessError"
	KindJoinViolation  Kind = "JoinViolationError"
	KindQueryComplexity Kind = "QueryComplexityError"
	KindQuerySyntax    Kind = "QuerySyntaxError"
	KindSQLInjection   Kind = "SQLInjectionError"
)

// Location is a half-open byte-offset span into the original query text.
type Location struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Diagnostic is the typed result of a failed validation, matching the wire
// format every collaborator (logger, façade) agrees on.
type Diagnostic struct {
	Kind     Kind      `json:"kind"`
	Message  string    `json:"message"`
	Table    string    `json:"table,omitempty"`
	Column   string    `json:"column,omitempty"`
	Location *Location `json:"location,omitempty"`
}

func (d *Diagnostic) Error() string {
	switch {
	case d.Table != "" && d.Column != "":
		return fmt.Sprintf("%s: %s (table=%s, column=%s)", d.Kind, d.Message, d.Table, d.Column)
	case d.Table != "":
		return fmt.Sprintf("%s: %s (table=%s)", d.Kind, d.Message, d.Table)
	default:
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
}

// New builds a Diagnostic with no table/column/location context.
func New(kind Kind, message string) *Diagnostic {
	return &Diagnostic{Kind: kind, Message: message}
}

// WithTable returns a copy of d with Table set.
func (d *Diagnostic) WithTable(table string) *Diagnostic {
	c := *d
	c.Table = table
	return &c
}

// WithColumn returns a copy of d with Column set.
func (d *Diagnostic) WithColumn(column string) *Diagnostic {
	c := *d
	c.Column = column
	return &c
}

// WithLocation returns a copy of d with Location set from a byte-offset span.
func (d *Diagnostic) WithLocation(start, end int) *Diagnostic {
	c := *d
	c.Location = &Location{Start: start, End: end}
	return &c
}

// Composite bundles every Diagnostic found in collect-all mode. It has no
// Kind of its own; Primary and Error report the first (highest-priority)
// finding, matching §4.4's tie-break rules so fail-fast and collect-all
// report the same primary diagnostic when only one is found.
type Composite struct {
	Findings []*Diagnostic
}

func (c *Composite) Error() string {
	if len(c.Findings) == 0 {
		return "no diagnostics"
	}
	return fmt.Sprintf("%d violation(s), first: %s", len(c.Findings), c.Findings[0].Error())
}

// Primary returns the first finding, or nil if there are none.
func (c *Composite) Primary() *Diagnostic {
	if len(c.Findings) == 0 {
		return nil
	}
	return c.Findings[0]
}

// Unwrap exposes every finding for errors.Is/errors.As traversal.
func (c *Composite) Unwrap() []error {
	errs := make([]error, len(c.Findings))
	for i, f := range c.Findings {
		errs[i] = f
	}
	return errs
}

// Package validators implements the §4.4 rule engine: a fixed-order list of
// independent checks, each asking one question of a resolved scope tree plus
// the schema. The engine runs every validator across every scope (root
// query plus every nested subquery/derived-table scope) in the order the
// spec's table lists them, either stopping at the first diagnostic
// (fail-fast) or collecting every finding (collect-all) — both modes agree
// on pass/fail.
package validators

import (
	"github.com/langsec-ai/langsec/pkg/diagnostic"
	"github.com/langsec-ai/langsec/pkg/resolver"
	"github.com/langsec-ai/langsec/pkg/schema"
)

// Mode selects the engine's failure behavior.
type Mode int

const (
	FailFast Mode = iota
	CollectAll
)

// Engine runs the fixed validator list against a resolved scope tree.
type Engine struct {
	mode Mode
}

func New(mode Mode) *Engine {
	return &Engine{mode: mode}
}

// scopeCheck is a validator that inspects one scope in isolation (every
// validator except JoinCount and Subquery, which reason about the whole
// tree at once).
type scopeCheck func(res *resolver.Resolved, s *schema.SecuritySchema) []*diagnostic.Diagnostic

// Run validates root (and every nested scope reachable from it) against s.
// It returns nil on success, a *diagnostic.Diagnostic on the first failure
// in FailFast mode, or a *diagnostic.Composite of every finding in
// CollectAll mode (nil if there were none).
func (e *Engine) Run(root *resolver.Resolved, s *schema.SecuritySchema) error {
	scopes := flatten(root)

	var findings []*diagnostic.Diagnostic
	collect := func(ds []*diagnostic.Diagnostic) bool {
		if len(ds) == 0 {
			return true
		}
		if e.mode == FailFast {
			findings = ds[:1]
			return false
		}
		findings = append(findings, ds...)
		return true
	}

	perScope := []scopeCheck{
		TableAccess,
		ColumnAccess,
		Join,
	}
	for _, check := range perScope {
		for _, sc := range scopes {
			if !collect(check(sc, s)) {
				return asError(e.mode, findings)
			}
		}
	}

	if !collect(JoinCount(scopes, s)) {
		return asError(e.mode, findings)
	}

	for _, sc := range scopes {
		if !collect(Aggregation(sc, s)) {
			return asError(e.mode, findings)
		}
	}

	if !collect(Subquery(root, s)) {
		return asError(e.mode, findings)
	}

	remaining := []scopeCheck{GroupBy, Where, RowLimit}
	for _, check := range remaining {
		for _, sc := range scopes {
			if !collect(check(sc, s)) {
				return asError(e.mode, findings)
			}
		}
	}

	if len(findings) == 0 {
		return nil
	}
	return asError(e.mode, findings)
}

func asError(mode Mode, findings []*diagnostic.Diagnostic) error {
	if len(findings) == 0 {
		return nil
	}
	if mode == FailFast {
		return findings[0]
	}
	return &diagnostic.Composite{Findings: findings}
}

// flatten returns root and every scope nested beneath it, in pre-order —
// the natural order for "table denied before column denied" diagnostic
// quality within a single scope, and outer-before-inner across scopes.
func flatten(res *resolver.Resolved) []*resolver.Resolved {
	if res == nil {
		return nil
	}
	out := []*resolver.Resolved{res}
	for _, child := range res.Children {
		out = append(out, flatten(child)...)
	}
	return out
}

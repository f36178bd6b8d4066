// Package langsec is the public façade: the outer guard a caller wires in
// front of its database dispatch path. It owns everything the core engine
// (pkg/preparse, pkg/sqlparser, pkg/resolver, pkg/validators) deliberately
// does not — logging, correlation IDs, and the raise-vs-return presentation
// choice — the same split ekaya-engine keeps between pkg/sql (pure checks)
// and its call sites (pkg/middleware, pkg/services) that decide what to do
// about a failure.
package langsec

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/langsec-ai/langsec/pkg/config"
	"github.com/langsec-ai/langsec/pkg/diagnostic"
	"github.com/langsec-ai/langsec/pkg/logsanitize"
	"github.com/langsec-ai/langsec/pkg/preparse"
	"github.com/langsec-ai/langsec/pkg/resolver"
	"github.com/langsec-ai/langsec/pkg/schema"
	"github.com/langsec-ai/langsec/pkg/sqlparser"
	"github.com/langsec-ai/langsec/pkg/validators"
)

// Guard validates SQL query strings against a SecuritySchema, the way
// core/security.py's SQLSecurityGuard does for the original implementation.
// A Guard is safe for concurrent use: validation depends only on
// (schema, query_string), per spec §5.
type Guard struct {
	schema *schema.SecuritySchema
	cfg    *config.Config
	logger *zap.Logger
}

// New builds a Guard. logger may be nil — logging is then skipped entirely,
// matching pkg/middleware.RequestLogger's nil-safe convention. cfg may be
// nil, in which case config.Load's defaults apply (RaiseOnViolation=true,
// fail-fast).
func New(s *schema.SecuritySchema, cfg *config.Config, logger *zap.Logger) *Guard {
	if cfg == nil {
		cfg = &config.Config{RaiseOnViolation: true}
	}
	return &Guard{schema: s, cfg: cfg, logger: logger}
}

// Validate runs the full pipeline — pre-parse gate, parse, resolve, rule
// engine — against query, in that order, short-circuiting at the first
// stage that produces a diagnostic. It always returns the engine's verdict;
// RaiseOnViolation only governs what ValidateQuery does with it.
func (g *Guard) Validate(query string) error {
	id := uuid.New().String()

	if d := preparse.Check(query, g.schema); d != nil {
		g.logOutcome(id, query, "rejected", d)
		return d
	}

	stmt, err := sqlparser.Parse(query)
	if err != nil {
		d := diagnostic.New(diagnostic.KindQuerySyntax, err.Error())
		g.logOutcome(id, query, "rejected", d)
		return d
	}

	resolved, d := resolver.Resolve(stmt, g.schema)
	if d != nil {
		g.logOutcome(id, query, "rejected", d)
		return d
	}

	mode := validators.FailFast
	if g.cfg.CollectAllViolations {
		mode = validators.CollectAll
	}
	if verr := validators.New(mode).Run(resolved, g.schema); verr != nil {
		g.logOutcome(id, query, "rejected", verr)
		return verr
	}

	g.logOutcome(id, query, "accepted", nil)
	return nil
}

// ValidateQuery is the presentation-layer entry point: under
// RaiseOnViolation it returns Validate's error unchanged; otherwise it
// swallows the diagnostic and reports pass/fail as a bool, per §6's façade
// configuration contract ("these toggles are the façade's, not the
// engine's").
func (g *Guard) ValidateQuery(query string) (bool, error) {
	err := g.Validate(query)
	if err == nil {
		return true, nil
	}
	if g.cfg.RaiseOnViolation {
		return false, err
	}
	return false, nil
}

// logOutcome emits the (timestamp, query_string, outcome, diagnostic) tuple
// §6 assigns to the Logger collaborator. The query text is sanitized first
// so a literal password or connection string pasted into the query never
// reaches the log sink verbatim.
func (g *Guard) logOutcome(correlationID, query, outcome string, d error) {
	if g.logger == nil || !g.cfg.LogQueries {
		return
	}
	fields := []zap.Field{
		zap.String("correlation_id", correlationID),
		zap.Time("timestamp", time.Now()),
		zap.String("query", logsanitize.Query(query)),
		zap.String("outcome", outcome),
	}
	if d != nil {
		fields = append(fields, zap.Error(d))
	}
	g.logger.Info("langsec query validation", fields...)
}

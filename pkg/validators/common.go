package validators

import (
	"github.com/langsec-ai/langsec/pkg/resolver"
	"github.com/langsec-ai/langsec/pkg/schema"
	"github.com/langsec-ai/langsec/pkg/sqlast"
)

// statementOperation maps a resolved scope's originating statement to the
// schema.Operation its column references must be permitted under.
func statementOperation(res *resolver.Resolved) schema.Operation {
	switch res.Statement.(type) {
	case *sqlast.InsertStatement:
		return schema.OpInsert
	case *sqlast.UpdateStatement:
		return schema.OpUpdate
	case *sqlast.DeleteStatement:
		return schema.OpDelete
	default:
		return schema.OpSelect
	}
}

// requiresRead returns true for every role whose column reference requires
// READ access (every role except ASSIGN_TARGET, which requires WRITE).
func requiresRead(role resolver.Role) bool {
	return role != resolver.RoleAssignTarget
}

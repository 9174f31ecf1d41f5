/**
 * @description
 * Role-based capability checks. Handlers already know the caller's role from
 * the verified token; the Authorizer maps roles to the operations they may
 * perform so the service layer does not hardcode role strings.
 */

package app

// Capabilities gated per role.
const (
	CapabilityMove = "move" // transfers and merchant payments
	CapabilityCash = "cash" // deposits and withdrawals at an agent point
)

// Authorizer answers whether a role may exercise a capability.
type Authorizer interface {
	Allowed(role, capability string) bool
}

// RoleAuthorizer is the static production policy: clients move their own
// money, agents additionally cash customers in and out.
type RoleAuthorizer struct{}

func NewRoleAuthorizer() RoleAuthorizer {
	return RoleAuthorizer{}
}

func (RoleAuthorizer) Allowed(role, capability string) bool {
	switch capability {
	case CapabilityMove:
		return role == "client" || role == "agent" || role == "admin"
	case CapabilityCash:
		return role == "agent" || role == "admin"
	default:
		return false
	}
}

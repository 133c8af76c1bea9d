// Package rbac implements the role hierarchy and management relationship
// checks consumed by every workflow service.
package rbac

import (
	"strings"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleTrainee      Role = "trainee"
	RoleCompanyAdmin Role = "company_admin"
	RoleSiteAdmin    Role = "site_admin"
)

// Actor is the authenticated caller, resolved once per request.
type Actor struct {
	ID        snowflake.ID
	Role      Role
	CompanyID *snowflake.ID
}

// ParseRole normalizes a stored role string. Unknown values map to the
// empty role, which carries level zero and is denied everywhere.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleTrainee:
		return RoleTrainee, true
	case RoleCompanyAdmin:
		return RoleCompanyAdmin, true
	case RoleSiteAdmin:
		return RoleSiteAdmin, true
	default:
		return "", false
	}
}

// Level orders the roles: trainee(1) < company_admin(2) < site_admin(3).
// An unresolvable role sits below every real role.
func Level(role Role) int {
	switch role {
	case RoleTrainee:
		return 1
	case RoleCompanyAdmin:
		return 2
	case RoleSiteAdmin:
		return 3
	default:
		return 0
	}
}

// Authorize reports whether the caller's role meets the required level.
// It fails closed: an empty or unknown caller role never passes.
func Authorize(caller, required Role) bool {
	level := Level(caller)
	if level == 0 {
		return false
	}
	return level >= Level(required)
}

// CanManage reports whether the actor may administer the target. Site
// admins manage everyone; company admins only users of their own company;
// trainees manage no one.
func CanManage(actor Actor, targetCompanyID *snowflake.ID) bool {
	switch actor.Role {
	case RoleSiteAdmin:
		return true
	case RoleCompanyAdmin:
		if actor.CompanyID == nil || targetCompanyID == nil {
			return false
		}
		return *actor.CompanyID == *targetCompanyID
	default:
		return false
	}
}

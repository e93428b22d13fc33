package guard

import (
	"context"

	"github.com/botforge/botforge/internal/access/domain"
)

// RoleChecker is the default PermissionChecker: a static role-to-grants table.
// Ownership-scoped rules belong to the authorization-rules subsystem and can
// replace this checker wholesale; resource type and id are accepted so the
// call shape stays identical.
type RoleChecker struct {
	grants map[domain.Role]map[string]bool
}

// DefaultRoleChecker builds the standard grant table. Admin holds every
// client grant, client holds every user grant.
func DefaultRoleChecker() *RoleChecker {
	user := []string{
		"sessions:read", "sessions:write",
		"chatbots:read", "conversations:read", "conversations:write",
		"messages:read", "messages:write",
		"password:write",
	}
	client := append([]string{
		"chatbots:write", "templates:read", "templates:write",
		"deployments:read", "deployments:write", "knowledge-bases:read",
		"knowledge-bases:write",
	}, user...)
	admin := append([]string{
		"sessions:admin", "alerts:read", "alerts:write", "users:read",
		"users:write",
	}, client...)

	toSet := func(perms []string) map[string]bool {
		set := make(map[string]bool, len(perms))
		for _, p := range perms {
			set[p] = true
		}
		return set
	}

	return &RoleChecker{grants: map[domain.Role]map[string]bool{
		domain.RoleUser:   toSet(user),
		domain.RoleClient: toSet(client),
		domain.RoleAdmin:  toSet(admin),
	}}
}

func (c *RoleChecker) Check(
	ctx context.Context,
	p Principal,
	permission, resourceType string,
	resourceID int64,
) (bool, error) {
	if Elevated(ctx) {
		return true, nil
	}
	if !p.Identity.IsActive {
		return false, nil
	}
	return c.grants[p.Identity.Role][permission], nil
}

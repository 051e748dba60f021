// Package authroles maps identity-provider groups onto dashboard roles.
package authroles

import (
	"strings"

	domainauth "github.com/agentqa/qa-dashboard/internal/domain/auth"
	"github.com/agentqa/qa-dashboard/internal/ports"
)

// StaticRoleMapper grants the most privileged role whose configured group the
// user belongs to. Group names compare case-insensitively; a user in no
// configured group is a VIEWER.
type StaticRoleMapper struct {
	AdminGroup   string
	ManagerGroup string
	TesterGroup  string
}

var _ ports.RoleMapper = StaticRoleMapper{}

// Map implements ports.RoleMapper.
func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	ladder := []struct {
		group string
		role  domainauth.Role
	}{
		{m.AdminGroup, domainauth.RoleAdmin},
		{m.ManagerGroup, domainauth.RoleManager},
		{m.TesterGroup, domainauth.RoleTester},
	}
	for _, rung := range ladder {
		if rung.group == "" {
			continue
		}
		for _, g := range groups {
			if strings.EqualFold(strings.TrimSpace(g), rung.group) {
				return rung.role
			}
		}
	}
	return domainauth.RoleViewer
}

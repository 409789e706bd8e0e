package models

import "fmt"

// Role is the capability a caller acts with. Admin may mutate; Viewer sees closed NCs only.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

// CanMutate returns true if the role may change findings, progress or policy
func (r Role) CanMutate() bool {
	return r == RoleAdmin
}

// ParseRole validates a role name
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleViewer:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q: expected admin or viewer", s)
}

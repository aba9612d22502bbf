package domain

// Capability is the minimum access level an endpoint requires.
type Capability uint8

const (
	CapabilityPublic Capability = iota
	CapabilityAuthenticated
	CapabilityAdmin
)

func (c Capability) String() string {
	switch c {
	case CapabilityPublic:
		return "public"
	case CapabilityAuthenticated:
		return "authenticated"
	case CapabilityAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Role is the consolidated access level of a user.
type Role uint8

const (
	RoleMember Role = iota
	RoleStaff
	RoleSuperuser
)

// RoleFromFlags maps the persisted is_staff / is_superuser flags to a Role.
func RoleFromFlags(isStaff, isSuperuser bool) Role {
	switch {
	case isSuperuser:
		return RoleSuperuser
	case isStaff:
		return RoleStaff
	default:
		return RoleMember
	}
}

// IsAdmin reports whether the role may use administrative endpoints.
func (r Role) IsAdmin() bool {
	return r == RoleStaff || r == RoleSuperuser
}

// Grants reports whether the role satisfies the capability once authenticated.
func (r Role) Grants(c Capability) bool {
	if c == CapabilityAdmin {
		return r.IsAdmin()
	}
	return true
}

func (r Role) String() string {
	switch r {
	case RoleStaff:
		return "staff"
	case RoleSuperuser:
		return "superuser"
	default:
		return "member"
	}
}

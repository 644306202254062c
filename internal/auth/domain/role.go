package domain

// Role is an administrator role. Roles are totally ordered by privilege.
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleEditor     Role = "editor"
	RoleViewer     Role = "viewer"
)

var roleRank = map[Role]int{
	RoleViewer:     1,
	RoleEditor:     2,
	RoleAdmin:      3,
	RoleSuperAdmin: 4,
}

// ParseRole returns the Role for s and whether it is known.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := roleRank[r]
	return r, ok
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Satisfies reports whether r is at least as privileged as min. Unknown
// roles satisfy nothing.
func (r Role) Satisfies(min Role) bool {
	have, ok := roleRank[r]
	if !ok {
		return false
	}
	want, ok := roleRank[min]
	if !ok {
		return false
	}
	return have >= want
}

// AtLeast returns a predicate over role names, for HTTP role gates.
func AtLeast(min Role) func(string) bool {
	return func(role string) bool { return Role(role).Satisfies(min) }
}

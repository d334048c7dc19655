package models

// Role is the closed set of user roles. Authorization decisions compare
// Role values, never raw strings from the request.
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleAdmin   Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleCitizen, RoleAdmin:
		return true
	}
	return false
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}

func AllRoles() []Role {
	return []Role{RoleCitizen, RoleAdmin}
}

// RoleFromString converts a stored or client-supplied string into a Role.
func RoleFromString(role string) (Role, bool) {
	r := Role(role)
	if r.IsValid() {
		return r, true
	}
	return "", false
}

package models

// Role identifies the kind of principal carried by an access token.
type Role string

const (
	RoleStudent     Role = "student"
	RoleCoordinator Role = "coordinator"
	RoleAdmin       Role = "admin"
)

// AdminPrincipalID is the fixed principal ID of the configured administrator.
const AdminPrincipalID int64 = 1

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleCoordinator, RoleAdmin:
		return true
	}
	return false
}

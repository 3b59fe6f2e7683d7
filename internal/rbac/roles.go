package rbac

// Role names. Keep these stable; they are part of the auth contract with
// the management backend.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

func IsAdmin(role string) bool { return role == RoleAdmin }

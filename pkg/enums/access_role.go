package enums

import "fmt"

// AccessRole is the privilege tier unlocked by an access key.
type AccessRole string

const (
	AccessRoleAdmin      AccessRole = "admin"
	AccessRoleSuperAdmin AccessRole = "superadmin"
)

var validAccessRoles = []AccessRole{
	AccessRoleAdmin,
	AccessRoleSuperAdmin,
}

// String implements fmt.Stringer.
func (r AccessRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known AccessRole.
func (r AccessRole) IsValid() bool {
	for _, candidate := range validAccessRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseAccessRole converts raw input into an AccessRole.
func ParseAccessRole(value string) (AccessRole, error) {
	for _, candidate := range validAccessRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid access role %q", value)
}

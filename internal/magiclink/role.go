package magiclink

import "fmt"

// Role identifies which protected area an account may enter.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleShareholder   Role = "shareholder"
	RoleInstitutional Role = "institutional"
)

// ParseRole validates a stored role string against the fixed enum.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleShareholder, RoleInstitutional:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

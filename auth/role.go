package auth

import (
	"fmt"
	"time"

	"github.com/warp/certdash/generic"
)

// Role is the closed set of dashboard roles. The zero value is not a role;
// ParseRole and UnmarshalText reject anything outside the set, so every
// switch over a Role that came through them handles exactly two cases.
type Role int

const (
	RoleAdmin Role = iota + 1
	RoleSOP
)

// ParseRole maps the wire form ("admin", "sop") to a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "admin":
		return RoleAdmin, nil
	case "sop":
		return RoleSOP, nil
	}
	return 0, fmt.Errorf("%q: %w", s, generic.ErrUnknownRole)
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleSOP:
		return "sop"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

func (r Role) MarshalText() ([]byte, error) {
	switch r {
	case RoleAdmin, RoleSOP:
		return []byte(r.String()), nil
	}
	return nil, fmt.Errorf("marshal %s: %w", r, generic.ErrUnknownRole)
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// User is the identity of the current session.
type User struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	Role                Role      `json:"role"`
	OrganizationID      string    `json:"organizationId,omitempty"`
	OrganizationWebsite string    `json:"organizationWebsite,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	LastLogin           time.Time `json:"lastLogin"`
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSOP
}

// validate refuses a user whose role is not in the set.
func (u User) validate() error {
	if !u.Role.Valid() {
		return fmt.Errorf("user %q has role %s: %w", u.ID, u.Role, generic.ErrUnknownRole)
	}
	return nil
}

// LandingPath is the dashboard a user lands on after signing in.
func (u User) LandingPath() string {
	switch u.Role {
	case RoleAdmin:
		return "/dashboard"
	case RoleSOP:
		return "/sop-dashboard"
	}
	panic(fmt.Sprintf("auth: unhandled role %s", u.Role))
}

// Scope returns the organization a user's views are limited to. all is true
// when the user sees every organization.
func (u User) Scope() (orgID string, all bool) {
	switch u.Role {
	case RoleAdmin:
		return "", true
	case RoleSOP:
		return u.OrganizationID, false
	}
	panic(fmt.Sprintf("auth: unhandled role %s", u.Role))
}

// CanView reports whether u may see data belonging to orgID.
func (u User) CanView(orgID string) bool {
	scope, all := u.Scope()
	return all || (scope != "" && scope == orgID)
}

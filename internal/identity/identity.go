// Package identity resolves the server-confirmed user profile for the
// current credential and classifies the outcome.
package identity

import (
	"strconv"
	"strings"

	"novusai.org/internal/api"
)

// Role is the access level confirmed by the server.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Identity is an immutable profile snapshot, fetched fresh on every
// resolution and never partially updated.
type Identity struct {
	ID               string
	Email            string
	DisplayName      string
	Role             Role
	OrganizationID   string
	OrganizationName string
}

// FromWire converts the backend's who-am-I shape. The backend calls
// non-admin accounts "employee"; the client models them as members.
func FromWire(w api.Identity) Identity {
	role := RoleMember
	if strings.EqualFold(w.Role, "admin") {
		role = RoleAdmin
	}
	return Identity{
		ID:               strconv.FormatInt(w.UserID, 10),
		Email:            w.Email,
		DisplayName:      w.Name,
		Role:             role,
		OrganizationID:   strconv.FormatInt(w.CompanyID, 10),
		OrganizationName: w.CompanyName,
	}
}

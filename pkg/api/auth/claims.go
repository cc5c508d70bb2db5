// Package auth provides JWT bearer authentication for the control API.
//
// There is no user database behind it: tokens are minted offline from
// the shared signing secret (the token command) and carry their role as
// a claim. Possession of a valid token is the whole authorization
// story, which fits a single-operator scanning tool.
package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Role grades what a token may do.
type Role string

const (
	// RoleOperator may start scans and manage detection patterns.
	RoleOperator Role = "operator"

	// RoleAdmin may additionally delete scan sessions.
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleOperator || r == RoleAdmin
}

// Claims are the JWT claims carried by API tokens.
type Claims struct {
	jwt.RegisteredClaims

	// Role is the token's role ("operator" or "admin").
	Role string `json:"role"`
}

// IsAdmin returns true if the token has the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == string(RoleAdmin)
}

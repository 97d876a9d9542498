// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Identity is the authenticated user as reported by the auth provider.
type Identity struct {
	ID    string `json:"uid"`
	Email string `json:"email"`
}

// Role classifies an identity. It is chosen once, at signup.
type Role string

// Known roles.
const (
	RoleStartup  Role = "startup"
	RoleInvestor Role = "investor"
)

// ParseRole accepts "startup" or "investor" (case-insensitive).
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleStartup:
		return RoleStartup, nil
	case RoleInvestor:
		return RoleInvestor, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleStartup || r == RoleInvestor
}

// UserRecord is written to users/{uid} at signup. Profile fields supplied at
// signup are kept verbatim next to the bookkeeping fields.
type UserRecord struct {
	Fields    map[string]any `json:"-"`
	UserType  Role           `json:"userType"`
	Email     string         `json:"email"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Flatten merges the signup fields with the bookkeeping fields. Bookkeeping wins.
func (u UserRecord) Flatten() map[string]any {
	out := make(map[string]any, len(u.Fields)+3)
	for k, v := range u.Fields {
		out[k] = v
	}
	out["userType"] = string(u.UserType)
	out["email"] = u.Email
	out["createdAt"] = u.CreatedAt.UTC().Format(time.RFC3339)
	return out
}

package models

import (
	"time"
)

// Role is the subscription tier that controls dashboard feature visibility
type Role string

const (
	RoleBasic     Role = "basic"
	RolePro       Role = "pro"
	RoleExclusive Role = "exclusive"

	// DefaultRole is assigned when sign-up does not request a role
	DefaultRole = RoleBasic
)

// Roles lists every role in ascending order of feature breadth
var Roles = []Role{RoleBasic, RolePro, RoleExclusive}

// Valid reports whether r is one of the three known roles
func (r Role) Valid() bool {
	switch r {
	case RoleBasic, RolePro, RoleExclusive:
		return true
	}
	return false
}

// ParseRole converts s to a Role. Matching is exact and case-sensitive.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// UserProfile is the application-owned record mirroring an external identity
type UserProfile struct {
	ID        string    `json:"id" db:"id"` // identity id issued by the auth provider
	Email     string    `json:"email" db:"email"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the UserProfile model
func (UserProfile) TableName() string {
	return "user_profiles"
}

// NewUserProfile creates a profile for an identity. An empty role falls back to DefaultRole.
func NewUserProfile(id, email string, role Role) *UserProfile {
	if role == "" {
		role = DefaultRole
	}
	now := time.Now().UTC()
	return &UserProfile{
		ID:        id,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Identity is the subject returned by the auth provider after a successful credential check
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Package entity defines the domain entities persisted by the forum store.
package entity

import (
	"strings"
	"time"
)

// Role is a user's permission level.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	}
	return false
}

// User represents a registered forum member.
type User struct {
	// ID is the opaque unique identifier assigned on creation.
	ID string `json:"id"`

	// Username is unique among non-deleted users and compared case-sensitively.
	Username string `json:"username"`

	// Email is unique among non-deleted users and compared lower-cased.
	Email string `json:"email"`

	Name string `json:"name"`

	// Password is always a one-way digest, never plaintext.
	Password string `json:"password"`

	Role          Role `json:"role"`
	IsActive      bool `json:"isActive"`
	EmailVerified bool `json:"emailVerified"`

	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	LastActive *time.Time `json:"lastActive"`

	// DeletedAt is set only on copies read back from the soft-delete log.
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// NormalizeEmail returns the form of email used for uniqueness checks and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewUser carries the caller-provided fields of a user to create.
// Password is plaintext here; the store hashes it before anything is persisted.
type NewUser struct {
	Username      string
	Email         string
	Name          string
	Password      string
	Role          Role
	EmailVerified bool
}

// UserPatch lists the fields to overwrite on update. Nil fields are left untouched.
type UserPatch struct {
	Username      *string
	Email         *string
	Name          *string
	Password      *string // plaintext, hashed by the store
	Role          *Role
	IsActive      *bool
	EmailVerified *bool
	LastActive    *time.Time
}

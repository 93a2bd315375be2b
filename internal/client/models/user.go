// Package models defines client-side data models used by the MindNote CLI.
package models

import "time"

// Role is fixed at registration and gates the administrator features.
type Role string

const (
	RoleUser          Role = "user"
	RoleAdministrator Role = "administrator"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdministrator
}

// User is an account as exchanged with the backend. Password is only set on
// outgoing registration requests; the backend never returns it.
type User struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	Role     Role   `json:"role"`
}

// IsAdmin reports whether the user holds the administrator role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdministrator
}

// Account is an entry of the locally cached roster shown to administrators.
type Account struct {
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"password_hash,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// LoginLock is persisted while a login lockout is active.
type LoginLock struct {
	Expiry time.Time `json:"expiry"`
}

// Active reports whether the lock is still in force at now.
func (l LoginLock) Active(now time.Time) bool {
	return l.Expiry.After(now)
}

// Remaining returns the time left until expiry, never negative.
func (l LoginLock) Remaining(now time.Time) time.Duration {
	if d := l.Expiry.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Package model defines the data structures used throughout the application.
package model

// Role is the authorization level stored with each account.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleRegular Role = "regular"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleRegular
}

// User represents a registered account in the credential store.
//
// Email is the unique key. Accounts are created once at registration and
// never deleted; the only later mutation is a password-hash upgrade when a
// legacy SHA-256 digest is replaced by a bcrypt hash on login.
type User struct {
	Email        string `json:"email"    db:"email"`
	PasswordHash string `json:"-"        db:"password"`
	Name         string `json:"name"     db:"nome"`
	Role         Role   `json:"role"     db:"role"`
}

// IsAdmin reports whether the user holds the elevated role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

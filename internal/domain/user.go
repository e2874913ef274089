package domain

import "time"

// Role distinguishes administrative accounts from regular members.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Valid reports whether the role is a known enum value.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// User is the domain model for registered accounts. ID and Email are immutable
// after creation; Password always holds ciphertext, never plaintext.
type User struct {
	ID        int64
	Email     string
	UserName  string
	Password  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WithUserName returns a copy with the display name replaced.
func (u User) WithUserName(name string) User {
	u.UserName = name
	return u
}

// WithPassword returns a copy with the encrypted password replaced.
func (u User) WithPassword(ciphertext string) User {
	u.Password = ciphertext
	return u
}

// WithRole returns a copy with the role replaced.
func (u User) WithRole(role Role) User {
	u.Role = role
	return u
}

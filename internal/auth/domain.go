package auth

import "time"

// User is the authentication view of a user account.
type User struct {
	ID           int64
	Email        string
	Name         string
	RoleName     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

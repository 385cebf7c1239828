// Package domain defines the core entities of the bookmark manager and the
// pure rules that operate on them. Persistence lives in internal/store;
// orchestration in internal/service.
package domain

import "time"

// User is an account holder. The core never mutates users beyond creation;
// registration and login belong to the host application. PasswordHash is an
// argon2id encoded string (see internal/auth).
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email,omitempty"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

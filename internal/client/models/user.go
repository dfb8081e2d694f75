package models

import (
	"strings"
	"time"
)

// User is the identity boundary's view of the signed-in account. The client
// only ever holds it as a cache of the last successful /auth/user/me call.
type User struct {
	ID        int64     `json:"id"`
	Login     string    `json:"login"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// DisplayName prefers "First Last", then the login, then the email.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	if u.Login != "" {
		return u.Login
	}
	return u.Email
}

// Registration is the body of POST /auth/register.
type Registration struct {
	Login     string `json:"login"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// RegisterResult is the created resource returned by registration.
type RegisterResult struct {
	ID int64 `json:"id"`
}

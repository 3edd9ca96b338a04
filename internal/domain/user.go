// Package domain contains core business types and interfaces.
//
// This file defines the User domain type and related types for authentication.
// Users are persisted as documents in the document store; these types are the
// decoded, validated representations used by business logic.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered ReviewDeck user.
//
// This is the authentication identity only. Business information and
// subscription standing live on the Account document (see account.go),
// which is fetched separately and may be absent for a user.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string // Never expose this in responses
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName returns the user's name or email if name is empty.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Session represents an authenticated session.
//
// Sessions are stored with a hashed token. The raw token is only given to
// the client once (at login).
type Session struct {
	UserID    uuid.UUID
	TokenHash string // SHA-256 hash of the session token
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// RegisterParams contains the validated parameters for user registration.
type RegisterParams struct {
	Email        string
	Password     string // Raw password, will be hashed by service
	Name         string
	BusinessName string // Optional, seeds the account document
}

// LoginResult contains the result of a successful login.
type LoginResult struct {
	User  *User
	Token string // Raw session token (not hashed) - only returned once
}

// BusinessProfileUpdateParams contains parameters for updating the business
// profile stored on the account document.
type BusinessProfileUpdateParams struct {
	UserID       uuid.UUID
	BusinessName string
}

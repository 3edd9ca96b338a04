// Package auth provides request context helpers for the authenticated user,
// their account, and the derived access state.
//
// This package is designed to be imported by both middleware and handler
// packages without causing import cycles.
package auth

import (
	"context"
	"net/http"

	"github.com/reviewdeck/reviewdeck/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	userContextKey    contextKey = "user"
	accountContextKey contextKey = "account"
	accessContextKey  contextKey = "access"
)

// GetUser retrieves the authenticated user from the context.
//
// Returns nil if no user is authenticated.
//
// Usage:
//
//	user := auth.GetUser(r.Context())
//	if user == nil {
//	    // Handle unauthenticated request
//	}
func GetUser(ctx context.Context) *domain.User {
	user, ok := ctx.Value(userContextKey).(*domain.User)
	if !ok {
		return nil
	}
	return user
}

// GetUserFromRequest retrieves the authenticated user from the request context.
func GetUserFromRequest(r *http.Request) *domain.User {
	return GetUser(r.Context())
}

// SetUser stores a user in the context.
//
// This is typically called by authentication middleware after validating
// a session token.
func SetUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetAccount retrieves the user's account from the context.
//
// Returns nil unless the access middleware has run for this request.
func GetAccount(ctx context.Context) *domain.Account {
	account, ok := ctx.Value(accountContextKey).(*domain.Account)
	if !ok {
		return nil
	}
	return account
}

// SetAccount stores the user's account in the context.
func SetAccount(ctx context.Context, account *domain.Account) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}

// GetAccess retrieves the derived access state from the context.
//
// Returns the zero value (everything false) if the access middleware has not
// run; callers treating that as "trial ended" fail closed.
func GetAccess(ctx context.Context) domain.AccessState {
	access, ok := ctx.Value(accessContextKey).(domain.AccessState)
	if !ok {
		return domain.AccessState{TrialEnded: true}
	}
	return access
}

// SetAccess stores the derived access state in the context.
func SetAccess(ctx context.Context, access domain.AccessState) context.Context {
	return context.WithValue(ctx, accessContextKey, access)
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Plan labels stored on the account document by the billing system.
const (
	PlanStarter      = "starter"
	PlanProfessional = "professional"
)

// Account is the business account document for a user.
//
// The document is owned and written by external systems (signup seeds the
// trial; the billing system writes subscription fields; the review link
// page increments linkClicks). ReviewDeck only reads and derives from it.
// Every field except UserID is optional in the raw document; DecodeAccount
// centralizes the defaulting rules.
type Account struct {
	UserID       uuid.UUID
	BusinessName string
	LinkClicks   int     // Cumulative review-link clicks
	ResponseRate float64 // Percentage of reviews replied to
	LogoURL      string

	TrialEndsAt        *time.Time
	SubscriptionActive bool
	SubscriptionEndsAt *time.Time
	SubscriptionPlan   string
}

// AccessState derives the account's access standing as of now.
func (a *Account) AccessState(now time.Time) AccessState {
	return DeriveAccessState(a.TrialEndsAt, a.SubscriptionActive, a.SubscriptionEndsAt, a.SubscriptionPlan, now)
}

package domain

import (
	"fmt"
	"math"
	"time"
)

// AccessState describes an account's trial/subscription standing at a point
// in time. It is derived, never stored.
//
// At most one of IsTrial and IsActive drives the access decision; an active
// subscription takes precedence over an unexpired trial when both are present.
type AccessState struct {
	IsTrial         bool
	TrialEnded      bool
	HasSubscription bool
	IsActive        bool
	DaysLeft        int // Whole days until the trial or subscription ends
	PlanName        string
}

// HasActiveAccess reports whether the account may use gated features.
func (s AccessState) HasActiveAccess() bool {
	return s.IsActive || s.IsTrial
}

// DeriveAccessState computes the access standing from raw account fields.
//
// Precedence:
//  1. subscriptionActive with an end date present: active subscription,
//     trial fields cleared.
//  2. trialEndsAt in the future: active trial.
//  3. Otherwise: trial ended, no access.
//
// The caller supplies now so derivation stays deterministic and testable.
// Both the access-guard middleware and the sidebar rendering call this one
// function; there is no second copy of these rules.
func DeriveAccessState(trialEndsAt *time.Time, subscriptionActive bool, subscriptionEndsAt *time.Time, plan string, now time.Time) AccessState {
	if subscriptionActive && subscriptionEndsAt != nil {
		return AccessState{
			HasSubscription: true,
			IsActive:        true,
			DaysLeft:        daysUntil(*subscriptionEndsAt, now),
			PlanName:        plan,
		}
	}

	if trialEndsAt != nil && trialEndsAt.After(now) {
		return AccessState{
			IsTrial:  true,
			DaysLeft: daysUntil(*trialEndsAt, now),
		}
	}

	return AccessState{TrialEnded: true}
}

// daysUntil returns the number of whole days remaining until end, rounding
// any partial day up. 36 hours from now is 2 days; 12 hours is 1 day.
func daysUntil(end, now time.Time) int {
	remaining := end.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}

// StandingLabel returns the short standing text shown in the sidebar and on
// the upgrade page. The display distinguishes three cases: more than one day
// remaining, exactly one day ("Last day" / "Renews tomorrow"), and none
// ("ends today" / "Renews today").
func (s AccessState) StandingLabel() string {
	switch {
	case s.HasSubscription && s.IsActive:
		switch {
		case s.DaysLeft > 1:
			return fmt.Sprintf("Renews in %d days", s.DaysLeft)
		case s.DaysLeft == 1:
			return "Renews tomorrow"
		default:
			return "Renews today"
		}
	case s.IsTrial:
		switch {
		case s.DaysLeft > 1:
			return fmt.Sprintf("%d days left in trial", s.DaysLeft)
		case s.DaysLeft == 1:
			return "Last day of trial"
		default:
			return "Trial ends today"
		}
	default:
		return "Trial ended"
	}
}

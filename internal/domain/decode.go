package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// This file maps raw document field maps into typed domain values.
//
// Documents arrive from the store as untyped map[string]any. Rather than
// scattering duck-typed reads with ad hoc defaults across handlers, every
// "default if missing" rule lives in exactly one decoder per entity, so the
// rules are specified once and tested once.

// DecodeAccount decodes an account document's fields.
//
// Missing or malformed fields take zero values; absent timestamps decode to
// nil so derivation can distinguish "no trial" from "trial ended".
func DecodeAccount(userID uuid.UUID, fields map[string]any) Account {
	return Account{
		UserID:             userID,
		BusinessName:       StringField(fields, "businessName"),
		LinkClicks:         IntField(fields, "linkClicks"),
		ResponseRate:       FloatField(fields, "responseRate"),
		LogoURL:            StringField(fields, "logoUrl"),
		TrialEndsAt:        TimeField(fields, "trialEndDate"),
		SubscriptionActive: BoolField(fields, "subscriptionActive"),
		SubscriptionEndsAt: TimeField(fields, "subscriptionEndDate"),
		SubscriptionPlan:   StringField(fields, "subscriptionPlan"),
	}
}

// DecodeReview decodes a review document's fields.
//
// Defaulting rules:
//   - Missing reviewer name becomes "Anonymous".
//   - The body falls back to the legacy "message" field when "review" is
//     absent (older collection pages wrote "message").
//   - A missing or malformed rating decodes to 0. It is not rejected.
//   - A missing timestamp decodes to 0 (epoch), sorting the review last.
//   - A missing status defaults to pending; any other string passes through.
func DecodeReview(id string, fields map[string]any) Review {
	name := StringField(fields, "name")
	if name == "" {
		name = "Anonymous"
	}

	body := StringField(fields, "review")
	if body == "" {
		body = StringField(fields, "message")
	}

	status := StringField(fields, "status")
	if status == "" {
		status = ReviewStatusPending
	}

	return Review{
		ID:           id,
		ReviewerName: name,
		Rating:       IntField(fields, "rating"),
		Body:         body,
		CreatedAt:    EpochField(fields, "time"),
		Status:       status,
		Branch:       StringField(fields, "branch"),
		Replied:      BoolField(fields, "replied"),
	}
}

// DecodeUser decodes a user document's fields.
func DecodeUser(id uuid.UUID, fields map[string]any) User {
	u := User{
		ID:           id,
		Email:        StringField(fields, "email"),
		PasswordHash: StringField(fields, "passwordHash"),
		Name:         StringField(fields, "name"),
	}
	if t := TimeField(fields, "createdAt"); t != nil {
		u.CreatedAt = *t
	}
	if t := TimeField(fields, "updatedAt"); t != nil {
		u.UpdatedAt = *t
	}
	return u
}

// DecodeSession decodes a session document's fields.
func DecodeSession(tokenHash string, fields map[string]any) Session {
	s := Session{TokenHash: tokenHash}
	if raw := StringField(fields, "userId"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			s.UserID = id
		}
	}
	if t := TimeField(fields, "expiresAt"); t != nil {
		s.ExpiresAt = *t
	}
	if t := TimeField(fields, "createdAt"); t != nil {
		s.CreatedAt = *t
	}
	return s
}

// =============================================================================
// Field extraction helpers
// =============================================================================

// StringField extracts a string field, or "" if missing or not a string.
func StringField(fields map[string]any, key string) string {
	if s, ok := fields[key].(string); ok {
		return s
	}
	return ""
}

// BoolField extracts a bool field, or false if missing or not a bool.
func BoolField(fields map[string]any, key string) bool {
	if b, ok := fields[key].(bool); ok {
		return b
	}
	return false
}

// IntField extracts an integer field. JSON decoding yields float64 and
// json.Number depending on the decoder, so all numeric shapes are accepted.
func IntField(fields map[string]any, key string) int {
	switch v := fields[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
	}
	return 0
}

// FloatField extracts a numeric field as float64, or 0 if missing/malformed.
func FloatField(fields map[string]any, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	}
	return 0
}

// EpochField extracts a timestamp as seconds since epoch, or 0 if absent.
// Accepts raw epoch numbers, time.Time, and RFC 3339 strings.
func EpochField(fields map[string]any, key string) int64 {
	if t := TimeField(fields, key); t != nil {
		return t.Unix()
	}
	return 0
}

// TimeField extracts a timestamp field, or nil if absent or unparseable.
//
// Upstream writers are inconsistent about timestamp representation: some
// store epoch seconds, some RFC 3339 strings, and values read through the
// store's JSONB round-trip come back as float64. All are accepted.
func TimeField(fields map[string]any, key string) *time.Time {
	switch v := fields[key].(type) {
	case time.Time:
		return &v
	case *time.Time:
		return v
	case int:
		t := time.Unix(int64(v), 0)
		return &t
	case int64:
		t := time.Unix(v, 0)
		return &t
	case float64:
		t := time.Unix(int64(v), 0)
		return &t
	case json.Number:
		if i, err := v.Int64(); err == nil {
			t := time.Unix(i, 0)
			return &t
		}
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return &t
		}
	}
	return nil
}

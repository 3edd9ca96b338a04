package domain

import "time"

// Review moderation statuses.
//
// Review documents come from external collection channels, so Status is a
// plain string: values beyond these constants pass through untouched.
const (
	ReviewStatusPending   = "pending"
	ReviewStatusPublished = "published"
	ReviewStatusRejected  = "rejected"
)

// Review is a customer review, decoded from a review document.
//
// Reviews are read-only in ReviewDeck: they are written by the public review
// collection page and only displayed and aggregated here.
type Review struct {
	ID           string
	ReviewerName string // "Anonymous" when the document carries no name
	Rating       int    // 1-5; 0 when missing or malformed
	Body         string
	CreatedAt    int64 // Seconds since epoch; 0 when absent
	Status       string
	Branch       string // Optional location label
	Replied      bool
}

// CreatedTime returns the creation timestamp as a time.Time.
func (r *Review) CreatedTime() time.Time {
	return time.Unix(r.CreatedAt, 0)
}

// IsPublished reports whether the review passed moderation.
func (r *Review) IsPublished() bool {
	return r.Status == ReviewStatusPublished
}

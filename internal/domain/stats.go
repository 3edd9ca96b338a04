package domain

import (
	"math"
	"sort"
)

// ReviewStats is the aggregated snapshot shown on the dashboard.
type ReviewStats struct {
	TotalReviews  int
	AverageRating float64 // Rounded to one decimal place
	// Distribution tallies reviews by star rating, highest first:
	// index 0 counts 5-star reviews, index 4 counts 1-star reviews.
	Distribution [5]int
	LinkClicks   int
	ResponseRate float64
}

// AggregateReviews computes a ReviewStats snapshot over the given reviews.
//
// Every review contributes its rating to the total and average, but only
// ratings in [1,5] land in a distribution bucket: a malformed or missing
// rating (decoded as 0) is counted and averaged yet appears in no bucket,
// so sum(Distribution) <= TotalReviews. That asymmetry is longstanding
// observable behavior and is pinned by tests; do not "fix" it here.
//
// LinkClicks and ResponseRate come from the account document, not from
// reviews; callers fill them in separately.
func AggregateReviews(reviews []Review) ReviewStats {
	stats := ReviewStats{TotalReviews: len(reviews)}
	if len(reviews) == 0 {
		return stats
	}

	sum := 0
	for _, rv := range reviews {
		sum += rv.Rating
		if rv.Rating >= 1 && rv.Rating <= 5 {
			stats.Distribution[5-rv.Rating]++
		}
	}

	stats.AverageRating = math.Round(float64(sum)/float64(len(reviews))*10) / 10
	return stats
}

// SortByRecency orders reviews newest first, in place. Reviews with equal
// timestamps keep their incoming order.
func SortByRecency(reviews []Review) {
	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt > reviews[j].CreatedAt
	})
}

// Percentage returns count as a whole percentage of total.
// A total of zero yields 0 for every count.
func Percentage(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}

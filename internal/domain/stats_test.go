package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ratings(rs ...int) []Review {
	reviews := make([]Review, len(rs))
	for i, r := range rs {
		reviews[i] = Review{Rating: r}
	}
	return reviews
}

func TestAggregateReviews(t *testing.T) {
	tests := []struct {
		name             string
		reviews          []Review
		wantTotal        int
		wantAverage      float64
		wantDistribution [5]int
	}{
		{
			name:    "empty input yields zero snapshot",
			reviews: nil,
		},
		{
			name:             "average rounds to one decimal",
			reviews:          ratings(5, 4, 4),
			wantTotal:        3,
			wantAverage:      4.3,
			wantDistribution: [5]int{1, 2, 0, 0, 0},
		},
		{
			name:             "buckets ordered five stars down to one",
			reviews:          ratings(1, 2, 3, 4, 5, 5),
			wantTotal:        6,
			wantAverage:      3.3,
			wantDistribution: [5]int{2, 1, 1, 1, 1},
		},
		{
			name:             "all one star",
			reviews:          ratings(1, 1, 1),
			wantTotal:        3,
			wantAverage:      1,
			wantDistribution: [5]int{0, 0, 0, 0, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AggregateReviews(tt.reviews)
			assert.Equal(t, tt.wantTotal, got.TotalReviews)
			assert.Equal(t, tt.wantAverage, got.AverageRating)
			assert.Equal(t, tt.wantDistribution, got.Distribution)
		})
	}
}

// Zero and out-of-range ratings count toward the total and average but land
// in no bucket. This asymmetry is deliberate long-standing behavior; this
// test pins it so nobody "fixes" it by accident.
func TestAggregateReviews_OutOfRangeRatings(t *testing.T) {
	got := AggregateReviews(ratings(5, 0, 0))

	assert.Equal(t, 3, got.TotalReviews)
	assert.Equal(t, 1.7, got.AverageRating) // (5+0+0)/3 rounded
	assert.Equal(t, [5]int{1, 0, 0, 0, 0}, got.Distribution)

	bucketSum := 0
	for _, n := range got.Distribution {
		bucketSum += n
	}
	assert.Less(t, bucketSum, got.TotalReviews)
}

func TestAggregateReviews_BucketSumMatchesTotalForValidRatings(t *testing.T) {
	got := AggregateReviews(ratings(5, 4, 3, 2, 1, 5, 3))

	bucketSum := 0
	for _, n := range got.Distribution {
		bucketSum += n
	}
	assert.Equal(t, got.TotalReviews, bucketSum)
}

func TestSortByRecency(t *testing.T) {
	reviews := []Review{
		{ID: "a", CreatedAt: 100},
		{ID: "b", CreatedAt: 300},
		{ID: "c", CreatedAt: 200},
	}

	SortByRecency(reviews)

	assert.Equal(t, []int64{300, 200, 100}, []int64{reviews[0].CreatedAt, reviews[1].CreatedAt, reviews[2].CreatedAt})
	assert.Equal(t, "b", reviews[0].ID)
}

func TestSortByRecency_StableOnTies(t *testing.T) {
	reviews := []Review{
		{ID: "first", CreatedAt: 100},
		{ID: "second", CreatedAt: 100},
	}

	SortByRecency(reviews)

	assert.Equal(t, "first", reviews[0].ID)
	assert.Equal(t, "second", reviews[1].ID)
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		name         string
		count, total int
		want         int
	}{
		{"zero of zero", 0, 0, 0},
		{"nonzero count of zero total", 3, 0, 0},
		{"half", 1, 2, 50},
		{"rounds up", 1, 3, 33},
		{"rounds to nearest", 2, 3, 67},
		{"full", 7, 7, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Percentage(tt.count, tt.total))
		})
	}
}

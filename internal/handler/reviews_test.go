package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewdeck/reviewdeck/internal/domain"
)

func reviewFixtures() ([]domain.Review, domain.ReviewStats) {
	reviews := []domain.Review{
		{ID: "r1", ReviewerName: "Dana", Rating: 5, Status: domain.ReviewStatusPublished, CreatedAt: 300},
		{ID: "r2", ReviewerName: "Eli", Rating: 4, Status: domain.ReviewStatusPending, CreatedAt: 200},
		{ID: "r3", ReviewerName: "Finn", Rating: 2, Status: domain.ReviewStatusPublished, CreatedAt: 100},
	}
	return reviews, domain.AggregateReviews(reviews)
}

func newTestReviewHandler(svc *mockReviewService) (*ReviewHandler, *stubRenderer) {
	renderer := &stubRenderer{}
	return NewReviewHandler(svc, renderer, testLogger()), renderer
}

func TestReviewIndex_AllReviews(t *testing.T) {
	reviews, stats := reviewFixtures()
	svc := &mockReviewService{
		ListForUserFunc: func(ctx context.Context, userID uuid.UUID) ([]domain.Review, domain.ReviewStats, error) {
			return reviews, stats, nil
		},
	}
	h, renderer := newTestReviewHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/reviews", nil)
	req = authedRequest(req, testUser(), nil, domain.AccessState{IsTrial: true, DaysLeft: 5})
	rec := httptest.NewRecorder()

	h.Index(rec, req)

	assert.Equal(t, "reviews", renderer.Name)
	data, ok := renderer.Data.(ReviewListPageData)
	require.True(t, ok)
	assert.Len(t, data.Reviews, 3)
	assert.Empty(t, data.StatusFilter)
	assert.Equal(t, 3, data.Stats.TotalReviews)
}

func TestReviewIndex_StatusFilter(t *testing.T) {
	reviews, stats := reviewFixtures()
	svc := &mockReviewService{
		ListForUserFunc: func(ctx context.Context, userID uuid.UUID) ([]domain.Review, domain.ReviewStats, error) {
			return reviews, stats, nil
		},
	}
	h, renderer := newTestReviewHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/reviews?status=published", nil)
	req = authedRequest(req, testUser(), nil, domain.AccessState{IsTrial: true})
	rec := httptest.NewRecorder()

	h.Index(rec, req)

	data, ok := renderer.Data.(ReviewListPageData)
	require.True(t, ok)
	assert.Equal(t, "published", data.StatusFilter)
	require.Len(t, data.Reviews, 2)
	assert.Equal(t, "r1", data.Reviews[0].ID)
	assert.Equal(t, "r3", data.Reviews[1].ID)

	// Stats always cover the full set, not the filtered slice.
	assert.Equal(t, 3, data.Stats.TotalReviews)
}

func TestReviewIndex_UnknownStatusIgnored(t *testing.T) {
	reviews, stats := reviewFixtures()
	svc := &mockReviewService{
		ListForUserFunc: func(ctx context.Context, userID uuid.UUID) ([]domain.Review, domain.ReviewStats, error) {
			return reviews, stats, nil
		},
	}
	h, renderer := newTestReviewHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/reviews?status=bogus", nil)
	req = authedRequest(req, testUser(), nil, domain.AccessState{IsTrial: true})
	rec := httptest.NewRecorder()

	h.Index(rec, req)

	data, ok := renderer.Data.(ReviewListPageData)
	require.True(t, ok)
	assert.Empty(t, data.StatusFilter)
	assert.Len(t, data.Reviews, 3)
}

func TestReviewIndex_ServiceError(t *testing.T) {
	svc := &mockReviewService{
		ListForUserFunc: func(ctx context.Context, userID uuid.UUID) ([]domain.Review, domain.ReviewStats, error) {
			return nil, domain.ReviewStats{}, domain.Internal(nil, "reviewService.ListForUser", "query failed")
		},
	}
	h, renderer := newTestReviewHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/reviews", nil)
	req = authedRequest(req, testUser(), nil, domain.AccessState{IsTrial: true})
	rec := httptest.NewRecorder()

	h.Index(rec, req)

	data, ok := renderer.Data.(ReviewListPageData)
	require.True(t, ok)
	require.NotNil(t, data.Flash)
	assert.Equal(t, "error", data.Flash.Type)
	assert.Empty(t, data.Reviews)
}

func TestReviewIndex_NoUserRedirects(t *testing.T) {
	h, _ := newTestReviewHandler(&mockReviewService{})

	req := httptest.NewRequest(http.MethodGet, "/reviews", nil)
	rec := httptest.NewRecorder()

	h.Index(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestDashboardShow_MergesAccountCounters(t *testing.T) {
	reviews, stats := reviewFixtures()
	svc := &mockReviewService{
		ListForUserFunc: func(ctx context.Context, userID uuid.UUID) ([]domain.Review, domain.ReviewStats, error) {
			return reviews, stats, nil
		},
	}
	renderer := &stubRenderer{}
	h := NewDashboardHandler(svc, renderer, testLogger())

	account := &domain.Account{
		UserID:       uuid.New(),
		BusinessName: "Ada's Bakery",
		LinkClicks:   42,
		ResponseRate: 87.5,
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req = authedRequest(req, testUser(), account, domain.AccessState{IsTrial: true, DaysLeft: 9})
	rec := httptest.NewRecorder()

	h.Show(rec, req)

	assert.Equal(t, "dashboard", renderer.Name)
	data, ok := renderer.Data.(DashboardPageData)
	require.True(t, ok)
	assert.Equal(t, 42, data.Stats.LinkClicks)
	assert.Equal(t, 87.5, data.Stats.ResponseRate)
	assert.Equal(t, "9 days left in trial", data.Standing)
	assert.Len(t, data.RecentReviews, 3)
	require.NotEmpty(t, data.Nav)
}

func TestDashboardShow_RecentReviewsCapped(t *testing.T) {
	var many []domain.Review
	for i := 0; i < 12; i++ {
		many = append(many, domain.Review{ID: "r", Rating: 5, CreatedAt: int64(i)})
	}
	svc := &mockReviewService{
		ListForUserFunc: func(ctx context.Context, userID uuid.UUID) ([]domain.Review, domain.ReviewStats, error) {
			return many, domain.AggregateReviews(many), nil
		},
	}
	renderer := &stubRenderer{}
	h := NewDashboardHandler(svc, renderer, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req = authedRequest(req, testUser(), nil, domain.AccessState{IsTrial: true})
	rec := httptest.NewRecorder()

	h.Show(rec, req)

	data, ok := renderer.Data.(DashboardPageData)
	require.True(t, ok)
	assert.Len(t, data.RecentReviews, recentReviewLimit)
	assert.Equal(t, 12, data.Stats.TotalReviews)
}

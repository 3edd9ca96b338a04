package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/reviewdeck/reviewdeck/internal/domain"
	"github.com/reviewdeck/reviewdeck/internal/metrics"
	"github.com/reviewdeck/reviewdeck/internal/store"
)

const (
	reviewsCollection = "reviews"

	// reviewCacheTTL bounds how stale a dashboard snapshot may be.
	reviewCacheTTL = 2 * time.Minute
)

// ReviewService defines the interface for reading a business's reviews.
type ReviewService interface {
	// ListForUser returns the user's reviews sorted newest first, together
	// with aggregate statistics over all of them.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Review, domain.ReviewStats, error)

	// InvalidateCache drops the cached snapshot for a user.
	InvalidateCache(ctx context.Context, userID uuid.UUID) error
}

// SnapshotCache is the cache surface the review service needs. Satisfied by
// *cache.Cache; a nil implementation disables caching.
type SnapshotCache interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// reviewSnapshot is the cached unit: the sorted list plus its stats, so a
// cache hit never mixes reviews from one fetch with stats from another.
type reviewSnapshot struct {
	Reviews []domain.Review    `json:"reviews"`
	Stats   domain.ReviewStats `json:"stats"`
}

type reviewService struct {
	store  store.Store
	cache  SnapshotCache
	logger *slog.Logger
}

// NewReviewService creates a ReviewService backed by the document store.
// cache may be nil, in which case every call hits the store.
func NewReviewService(st store.Store, cache SnapshotCache, logger *slog.Logger) ReviewService {
	return &reviewService{
		store:  st,
		cache:  cache,
		logger: logger,
	}
}

// ListForUser loads, decodes, aggregates, and sorts the user's reviews.
//
// The cache key is derived from the authenticated user's id, so a snapshot
// can never be served to a different user regardless of request interleaving.
// Cache failures degrade to a store read.
func (s *reviewService) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Review, domain.ReviewStats, error) {
	const op = "ReviewService.ListForUser"

	key := snapshotKey(userID)
	if s.cache != nil {
		var snap reviewSnapshot
		hit, err := s.cache.Get(ctx, key, &snap)
		if err != nil {
			s.logger.Warn("review cache read failed", "error", err, "user_id", userID)
		} else if hit {
			metrics.StatsCacheHits.Inc()
			return snap.Reviews, snap.Stats, nil
		}
		metrics.StatsCacheMisses.Inc()
	}

	docs, err := s.store.QueryWhere(ctx, reviewsCollection, "userId", userID.String())
	if err != nil {
		return nil, domain.ReviewStats{}, domain.Internal(err, op, "Failed to retrieve reviews")
	}

	reviews := make([]domain.Review, 0, len(docs))
	for _, doc := range docs {
		reviews = append(reviews, domain.DecodeReview(doc.ID(), doc.Fields))
	}

	stats := domain.AggregateReviews(reviews)
	domain.SortByRecency(reviews)
	metrics.ReviewsFetched.Add(float64(len(reviews)))

	if s.cache != nil {
		snap := reviewSnapshot{Reviews: reviews, Stats: stats}
		if err := s.cache.Set(ctx, key, snap, reviewCacheTTL); err != nil {
			s.logger.Warn("review cache write failed", "error", err, "user_id", userID)
		}
	}

	return reviews, stats, nil
}

// InvalidateCache drops the user's snapshot. No-op without a cache.
func (s *reviewService) InvalidateCache(ctx context.Context, userID uuid.UUID) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, snapshotKey(userID))
}

func snapshotKey(userID uuid.UUID) string {
	return fmt.Sprintf("reviews:snapshot:%s", userID)
}

// Package handler contains the HTTP handlers for the ReviewDeck application.
//
// This file implements the full review list page.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/reviewdeck/reviewdeck/internal/auth"
	"github.com/reviewdeck/reviewdeck/internal/domain"
	"github.com/reviewdeck/reviewdeck/internal/service"
)

// ReviewListPageData contains data for the reviews page.
type ReviewListPageData struct {
	CurrentPath  string
	User         *domain.User
	Account      *domain.Account
	Access       domain.AccessState
	Standing     string
	Nav          []NavItem
	Reviews      []domain.Review
	Stats        domain.ReviewStats
	StatusFilter string // "", "pending", "published", or "rejected"
	Flash        *Flash
}

// ReviewHandler renders the review list.
type ReviewHandler struct {
	reviewService service.ReviewService
	renderer      TemplateRenderer
	logger        *slog.Logger
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService service.ReviewService, renderer TemplateRenderer, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		renderer:      renderer,
		logger:        logger,
	}
}

// Index displays all reviews for the current user, newest first.
//
// An optional ?status= query narrows the list to one moderation status.
// Stats always cover the full set so the filter does not change the
// headline numbers.
func (h *ReviewHandler) Index(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		h.logger.Error("reviews handler called without authenticated user")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	access := auth.GetAccess(r.Context())
	account := auth.GetAccount(r.Context())

	reviews, stats, err := h.reviewService.ListForUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to list reviews", "error", err, "user_id", user.ID)
		h.renderer.RenderHTTP(w, "reviews", ReviewListPageData{
			CurrentPath: r.URL.Path,
			User:        user,
			Account:     account,
			Access:      access,
			Standing:    access.StandingLabel(),
			Nav:         BuildNav(r.URL.Path, access),
			Flash: &Flash{
				Type:    "error",
				Message: "Failed to load your reviews. Please try again.",
			},
		})
		return
	}

	statusFilter := r.URL.Query().Get("status")
	switch statusFilter {
	case domain.ReviewStatusPending, domain.ReviewStatusPublished, domain.ReviewStatusRejected:
		reviews = filterByStatus(reviews, statusFilter)
	default:
		statusFilter = ""
	}

	data := ReviewListPageData{
		CurrentPath:  r.URL.Path,
		User:         user,
		Account:      account,
		Access:       access,
		Standing:     access.StandingLabel(),
		Nav:          BuildNav(r.URL.Path, access),
		Reviews:      reviews,
		Stats:        stats,
		StatusFilter: statusFilter,
	}

	h.renderer.RenderHTTP(w, "reviews", data)
}

// filterByStatus returns the reviews matching status, preserving order.
func filterByStatus(reviews []domain.Review, status string) []domain.Review {
	filtered := make([]domain.Review, 0, len(reviews))
	for _, rv := range reviews {
		if rv.Status == status {
			filtered = append(filtered, rv)
		}
	}
	return filtered
}

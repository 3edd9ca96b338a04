// Package handler contains the HTTP handlers for the ReviewDeck application.
//
// This file implements the dashboard, the landing page for signed-in users.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/reviewdeck/reviewdeck/internal/auth"
	"github.com/reviewdeck/reviewdeck/internal/domain"
	"github.com/reviewdeck/reviewdeck/internal/metrics"
	"github.com/reviewdeck/reviewdeck/internal/service"
)

// recentReviewLimit caps the dashboard's recent-activity list.
const recentReviewLimit = 5

// DashboardPageData contains data for the dashboard page.
type DashboardPageData struct {
	CurrentPath   string
	User          *domain.User
	Account       *domain.Account
	Access        domain.AccessState
	Standing      string // Trial/subscription banner text
	Nav           []NavItem
	Stats         domain.ReviewStats
	RecentReviews []domain.Review
	Flash         *Flash
}

// DashboardHandler renders the dashboard.
type DashboardHandler struct {
	reviewService service.ReviewService
	renderer      TemplateRenderer
	logger        *slog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(reviewService service.ReviewService, renderer TemplateRenderer, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		reviewService: reviewService,
		renderer:      renderer,
		logger:        logger,
	}
}

// Show renders the dashboard: aggregate stats, the rating distribution, and
// the most recent reviews.
//
// Link clicks and response rate come from the account document, not from
// reviews, so they are merged into the stats snapshot here.
func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		h.logger.Error("dashboard handler called without authenticated user")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	access := auth.GetAccess(r.Context())
	account := auth.GetAccount(r.Context())

	reviews, stats, err := h.reviewService.ListForUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to load reviews for dashboard", "error", err, "user_id", user.ID)
		h.renderDashboardError(w, r, user, account, access)
		return
	}

	if account != nil {
		stats.LinkClicks = account.LinkClicks
		stats.ResponseRate = account.ResponseRate
	}

	recent := reviews
	if len(recent) > recentReviewLimit {
		recent = recent[:recentReviewLimit]
	}

	metrics.DashboardViews.Inc()

	data := DashboardPageData{
		CurrentPath:   r.URL.Path,
		User:          user,
		Account:       account,
		Access:        access,
		Standing:      access.StandingLabel(),
		Nav:           BuildNav(r.URL.Path, access),
		Stats:         stats,
		RecentReviews: recent,
	}

	h.renderer.RenderHTTP(w, "dashboard", data)
}

// renderDashboardError renders the dashboard shell with an error flash so
// the page stays navigable when the review store is unavailable.
func (h *DashboardHandler) renderDashboardError(w http.ResponseWriter, r *http.Request, user *domain.User, account *domain.Account, access domain.AccessState) {
	data := DashboardPageData{
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
	}
	h.renderer.RenderHTTP(w, "dashboard", data)
}

// Package handler contains the HTTP handlers for the ReviewDeck application.
//
// This file implements the plan and billing page. It stays reachable after
// the trial ends so locked-out users can upgrade.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/reviewdeck/reviewdeck/internal/auth"
	"github.com/reviewdeck/reviewdeck/internal/domain"
)

// Plan describes a purchasable subscription tier shown on the upgrade page.
type Plan struct {
	ID           string
	Name         string
	PriceMonthly int // Whole dollars
	Features     []string
	Current      bool
}

// UpgradePageData contains data for the plan and billing page.
type UpgradePageData struct {
	CurrentPath string
	User        *domain.User
	Account     *domain.Account
	Access      domain.AccessState
	Standing    string
	Nav         []NavItem
	Plans       []Plan
	Flash       *Flash
}

// UpgradeHandler renders the plan and billing page.
type UpgradeHandler struct {
	renderer TemplateRenderer
	logger   *slog.Logger
}

// NewUpgradeHandler creates a new UpgradeHandler.
func NewUpgradeHandler(renderer TemplateRenderer, logger *slog.Logger) *UpgradeHandler {
	return &UpgradeHandler{
		renderer: renderer,
		logger:   logger,
	}
}

// Show renders the available plans and the account's current standing.
// Checkout itself is handled by the external billing system; this page only
// presents the options.
func (h *UpgradeHandler) Show(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		h.logger.Error("upgrade handler called without authenticated user")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	access := auth.GetAccess(r.Context())
	account := auth.GetAccount(r.Context())

	currentPlan := ""
	if access.HasSubscription {
		currentPlan = access.PlanName
	}

	plans := []Plan{
		{
			ID:           domain.PlanStarter,
			Name:         "Starter",
			PriceMonthly: 19,
			Features: []string{
				"Unlimited review collection",
				"Dashboard and statistics",
				"Review link page",
			},
			Current: currentPlan == domain.PlanStarter,
		},
		{
			ID:           domain.PlanProfessional,
			Name:         "Professional",
			PriceMonthly: 49,
			Features: []string{
				"Everything in Starter",
				"Multiple locations",
				"Priority support",
			},
			Current: currentPlan == domain.PlanProfessional,
		},
	}

	data := UpgradePageData{
		CurrentPath: r.URL.Path,
		User:        user,
		Account:     account,
		Access:      access,
		Standing:    access.StandingLabel(),
		Nav:         BuildNav(r.URL.Path, access),
		Plans:       plans,
	}

	h.renderer.RenderHTTP(w, "upgrade", data)
}

// Package handler contains the HTTP handlers for the ReviewDeck application.
//
// This file implements the public marketing page and the health endpoint.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/reviewdeck/reviewdeck/internal/auth"
)

// HomePageData contains data for the public home page.
type HomePageData struct {
	CurrentPath string
	SignedIn    bool
}

// HomeHandler renders the public home page.
type HomeHandler struct {
	renderer TemplateRenderer
	logger   *slog.Logger
}

// NewHomeHandler creates a new HomeHandler.
func NewHomeHandler(renderer TemplateRenderer, logger *slog.Logger) *HomeHandler {
	return &HomeHandler{
		renderer: renderer,
		logger:   logger,
	}
}

// Show renders the marketing page. Signed-in visitors are sent straight to
// the dashboard.
func (h *HomeHandler) Show(w http.ResponseWriter, r *http.Request) {
	// ServeMux treats "/" as a catch-all; anything else is a 404.
	if r.URL.Path != "/" {
		NotFoundResponse(w, r, h.logger)
		return
	}

	if auth.GetUserFromRequest(r) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	data := HomePageData{CurrentPath: r.URL.Path}
	h.renderer.RenderHTTP(w, "public/home", data)
}

// Health reports service liveness for load balancers and uptime checks.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Package handler contains the HTTP handlers for the ReviewDeck application.
//
// This file implements the business profile settings page, including the
// logo upload.
package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/reviewdeck/reviewdeck/internal/auth"
	"github.com/reviewdeck/reviewdeck/internal/csrf"
	"github.com/reviewdeck/reviewdeck/internal/domain"
	"github.com/reviewdeck/reviewdeck/internal/metrics"
	"github.com/reviewdeck/reviewdeck/internal/service"
)

// SettingsPageData contains data for the business profile settings page.
type SettingsPageData struct {
	CurrentPath string
	User        *domain.User
	Account     *domain.Account
	Access      domain.AccessState
	Standing    string
	Nav         []NavItem
	CSRFToken   string
	Form        map[string]string
	Errors      map[string]string
	Flash       *Flash
}

// SettingsHandler handles the business profile settings routes.
//
// Routes:
//   - GET  /settings/profile -> ShowProfile
//   - POST /settings/profile -> UpdateProfile
//   - POST /settings/logo    -> UploadLogo
type SettingsHandler struct {
	accountService service.AccountService
	renderer       TemplateRenderer
	logger         *slog.Logger
	isSecure       bool
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(accountService service.AccountService, renderer TemplateRenderer, logger *slog.Logger, isSecure bool) *SettingsHandler {
	return &SettingsHandler{
		accountService: accountService,
		renderer:       renderer,
		logger:         logger,
		isSecure:       isSecure,
	}
}

// ShowProfile renders the business profile form.
func (h *SettingsHandler) ShowProfile(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		h.logger.Error("settings handler called without authenticated user")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	token, err := csrf.EnsureToken(w, r, h.isSecure)
	if err != nil {
		h.logger.Error("failed to issue csrf token", "error", err)
	}

	account := auth.GetAccount(r.Context())

	var flash *Flash
	switch r.URL.Query().Get("saved") {
	case "profile":
		flash = &Flash{Type: "success", Message: "Business profile updated."}
	case "logo":
		flash = &Flash{Type: "success", Message: "Logo updated."}
	}

	form := make(map[string]string)
	if account != nil {
		form["BusinessName"] = account.BusinessName
	}

	h.renderer.RenderHTTP(w, "settings/profile", h.pageData(r, user, account, token, form, nil, flash))
}

// UpdateProfile processes the business profile form.
func (h *SettingsHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse form", "error", err)
		h.renderProfileError(w, r, user, nil, "Invalid form submission. Please try again.")
		return
	}

	businessName := strings.TrimSpace(r.FormValue("business_name"))
	form := map[string]string{"BusinessName": businessName}

	if !csrf.ValidateRequest(r) {
		h.renderProfileError(w, r, user, form, "Invalid security token. Please try again.")
		return
	}

	account, err := h.accountService.UpdateBusinessProfile(r.Context(), domain.BusinessProfileUpdateParams{
		UserID:       user.ID,
		BusinessName: businessName,
	})
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.EINVALID:
			errs := map[string]string{"business_name": domain.ErrorMessage(err)}
			token := csrf.TokenFromRequest(r)
			h.renderer.RenderHTTP(w, "settings/profile", h.pageData(r, user, auth.GetAccount(r.Context()), token, form, errs, nil))
		case domain.ENOTFOUND:
			h.logger.Error("account missing on profile update", "user_id", user.ID)
			h.renderProfileError(w, r, user, form, "Your account could not be found. Please sign in again.")
		default:
			h.logger.Error("failed to update business profile", "error", err, "user_id", user.ID)
			h.renderProfileError(w, r, user, form, "Failed to save changes. Please try again.")
		}
		return
	}

	h.logger.Info("business profile updated", "user_id", user.ID, "business_name", account.BusinessName)
	http.Redirect(w, r, "/settings/profile?saved=profile", http.StatusSeeOther)
}

// UploadLogo processes a multipart logo upload.
//
// The uploaded file is resized and re-encoded by the account service; only
// the byte limit and CSRF check happen here.
func (h *SettingsHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseMultipartForm(service.MaxLogoUploadBytes); err != nil {
		h.logger.Error("failed to parse multipart form", "error", err)
		metrics.LogoUploads.WithLabelValues("error").Inc()
		h.renderProfileError(w, r, user, nil, "The uploaded file is too large or invalid.")
		return
	}

	if !csrf.ValidateRequest(r) {
		h.renderProfileError(w, r, user, nil, "Invalid security token. Please try again.")
		return
	}

	file, _, err := r.FormFile("logo")
	if err != nil {
		metrics.LogoUploads.WithLabelValues("error").Inc()
		h.renderProfileError(w, r, user, nil, "Please choose an image file to upload.")
		return
	}
	defer file.Close()

	logoURL, err := h.accountService.UploadLogo(r.Context(), user.ID, file)
	if err != nil {
		metrics.LogoUploads.WithLabelValues("error").Inc()
		switch domain.ErrorCode(err) {
		case domain.EINVALID:
			h.renderProfileError(w, r, user, nil, domain.ErrorMessage(err))
		default:
			h.logger.Error("logo upload failed", "error", err, "user_id", user.ID)
			h.renderProfileError(w, r, user, nil, "Failed to upload logo. Please try again.")
		}
		return
	}

	metrics.LogoUploads.WithLabelValues("success").Inc()
	h.logger.Info("logo uploaded", "user_id", user.ID, "url", logoURL)
	http.Redirect(w, r, "/settings/profile?saved=logo", http.StatusSeeOther)
}

func (h *SettingsHandler) pageData(
	r *http.Request,
	user *domain.User,
	account *domain.Account,
	token string,
	form map[string]string,
	errs map[string]string,
	flash *Flash,
) SettingsPageData {
	if form == nil {
		form = make(map[string]string)
	}
	if errs == nil {
		errs = make(map[string]string)
	}

	access := auth.GetAccess(r.Context())

	return SettingsPageData{
		CurrentPath: "/settings/profile",
		User:        user,
		Account:     account,
		Access:      access,
		Standing:    access.StandingLabel(),
		Nav:         BuildNav("/settings/profile", access),
		CSRFToken:   token,
		Form:        form,
		Errors:      errs,
		Flash:       flash,
	}
}

func (h *SettingsHandler) renderProfileError(w http.ResponseWriter, r *http.Request, user *domain.User, form map[string]string, message string) {
	account := auth.GetAccount(r.Context())
	if form == nil {
		form = make(map[string]string)
		if account != nil {
			form["BusinessName"] = account.BusinessName
		}
	}

	flash := &Flash{Type: "error", Message: message}
	token := csrf.TokenFromRequest(r)
	h.renderer.RenderHTTP(w, "settings/profile", h.pageData(r, user, account, token, form, nil, flash))
}

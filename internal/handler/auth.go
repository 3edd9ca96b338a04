// Package handler contains the HTTP handlers for the ReviewDeck application.
//
// This file implements registration, login, and logout.
package handler

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/reviewdeck/reviewdeck/internal/csrf"
	"github.com/reviewdeck/reviewdeck/internal/domain"
	"github.com/reviewdeck/reviewdeck/internal/service"
	"github.com/reviewdeck/reviewdeck/internal/session"
)

// TemplateRenderer is the interface handlers render pages through.
// Satisfied by *Renderer; a stub stands in for tests.
type TemplateRenderer interface {
	RenderHTTP(w http.ResponseWriter, name string, data interface{})
	RenderPartial(w http.ResponseWriter, name string, data interface{})
}

// LoginThrottle records login outcomes for the rate limiter. Satisfied by
// middleware.AuthRateLimiter; defined here to keep handler free of a
// middleware import (middleware already imports handler for error responses).
type LoginThrottle interface {
	RecordFailedLogin(ip string)
	ResetLogin(ip string)
}

// Flash is a one-shot notice rendered at the top of a page.
// Type is "success", "error", or "info" and picks the styling.
type Flash struct {
	Type    string
	Message string
}

// AuthPageData is the template data for the login and register pages.
type AuthPageData struct {
	CurrentPath string
	CSRFToken   string
	Form        map[string]string // Re-populates fields after a failed submit
	Errors      map[string]string // Field-level validation errors
	Flash       *Flash
	ReturnTo    string
}

// AuthHandler handles registration, login, and logout.
//
// Routes:
//   - GET  /register -> ShowRegister
//   - POST /register -> Register
//   - GET  /login    -> ShowLogin
//   - POST /login    -> Login
//   - POST /logout   -> Logout
type AuthHandler struct {
	userService service.UserService
	throttle    LoginThrottle
	renderer    TemplateRenderer
	logger      *slog.Logger
	isSecure    bool
}

// NewAuthHandler creates an AuthHandler. throttle may be nil to disable
// failed-login accounting.
func NewAuthHandler(
	userService service.UserService,
	throttle LoginThrottle,
	renderer TemplateRenderer,
	logger *slog.Logger,
	isSecure bool,
) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		throttle:    throttle,
		renderer:    renderer,
		logger:      logger,
		isSecure:    isSecure,
	}
}

// ShowRegister renders the registration form.
func (h *AuthHandler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	token, err := csrf.EnsureToken(w, r, h.isSecure)
	if err != nil {
		h.logger.Error("failed to issue csrf token", "error", err)
	}

	data := AuthPageData{
		CurrentPath: r.URL.Path,
		CSRFToken:   token,
		Form:        make(map[string]string),
		Errors:      make(map[string]string),
		ReturnTo:    r.URL.Query().Get("return_to"),
	}

	h.renderer.RenderHTTP(w, "auth/register", data)
}

// Register processes the registration form and logs the new user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse form", "error", err)
		h.renderRegisterError(w, r, nil, nil, &Flash{
			Type:    "error",
			Message: "Invalid form submission. Please try again.",
		})
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	businessName := strings.TrimSpace(r.FormValue("business_name"))
	password := r.FormValue("password")
	passwordConfirmation := r.FormValue("password_confirmation")
	returnTo := r.FormValue("return_to")

	// Passwords are never re-populated.
	formValues := map[string]string{
		"Name":         name,
		"Email":        email,
		"BusinessName": businessName,
	}

	if !csrf.ValidateRequest(r) {
		h.renderRegisterError(w, r, formValues, nil, &Flash{
			Type:    "error",
			Message: "Invalid security token. Please try again.",
		})
		return
	}

	errs := make(map[string]string)

	if name == "" {
		errs["name"] = "Name is required"
	}

	if email == "" {
		errs["email"] = "Email is required"
	}

	if businessName == "" {
		errs["business_name"] = "Business name is required"
	}

	if password == "" {
		errs["password"] = "Password is required"
	} else if len(password) < service.MinPasswordLength {
		errs["password"] = "Password must be at least 8 characters"
	}

	if passwordConfirmation == "" {
		errs["password_confirmation"] = "Please confirm your password"
	} else if password != passwordConfirmation {
		errs["password_confirmation"] = "Passwords do not match"
	}

	if len(errs) > 0 {
		h.renderRegisterError(w, r, formValues, errs, nil)
		return
	}

	_, err := h.userService.Register(r.Context(), domain.RegisterParams{
		Email:        email,
		Password:     password,
		Name:         name,
		BusinessName: businessName,
	})
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.ECONFLICT:
			errs["email"] = "An account with this email already exists"
			h.renderRegisterError(w, r, formValues, errs, nil)
		case domain.EINVALID:
			h.renderRegisterError(w, r, formValues, nil, &Flash{
				Type:    "error",
				Message: domain.ErrorMessage(err),
			})
		default:
			h.logger.Error("registration failed", "error", err, "email", email)
			h.renderRegisterError(w, r, formValues, nil, &Flash{
				Type:    "error",
				Message: "Registration failed. Please try again later.",
			})
		}
		return
	}

	// Log the new user in so the trial starts on the dashboard, not the
	// login form.
	loginResult, err := h.userService.Login(r.Context(), email, password)
	if err != nil {
		h.logger.Error("auto-login after registration failed", "error", err, "email", email)
		http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)
		return
	}

	session.SetCookie(w, loginResult.Token, h.isSecure)

	h.logger.Info("user registered",
		"user_id", loginResult.User.ID,
		"email", loginResult.User.Email,
	)

	http.Redirect(w, r, safeReturnTo(returnTo, "/dashboard"), http.StatusSeeOther)
}

func (h *AuthHandler) renderRegisterError(
	w http.ResponseWriter,
	r *http.Request,
	formValues map[string]string,
	errs map[string]string,
	flash *Flash,
) {
	if formValues == nil {
		formValues = make(map[string]string)
	}
	if errs == nil {
		errs = make(map[string]string)
	}

	data := AuthPageData{
		CurrentPath: "/register",
		CSRFToken:   csrf.TokenFromRequest(r),
		Form:        formValues,
		Errors:      errs,
		Flash:       flash,
		ReturnTo:    r.FormValue("return_to"),
	}

	h.renderer.RenderHTTP(w, "auth/register", data)
}

// ShowLogin renders the login form.
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	token, err := csrf.EnsureToken(w, r, h.isSecure)
	if err != nil {
		h.logger.Error("failed to issue csrf token", "error", err)
	}

	var flash *Flash
	switch {
	case r.URL.Query().Get("registered") == "1":
		flash = &Flash{Type: "success", Message: "Account created successfully! Please sign in."}
	case r.URL.Query().Get("logout") == "1":
		flash = &Flash{Type: "success", Message: "You have been signed out."}
	}

	data := AuthPageData{
		CurrentPath: r.URL.Path,
		CSRFToken:   token,
		Form:        make(map[string]string),
		Errors:      make(map[string]string),
		Flash:       flash,
		ReturnTo:    r.URL.Query().Get("return_to"),
	}

	h.renderer.RenderHTTP(w, "auth/login", data)
}

// Login authenticates the user and sets the session cookie.
//
// Invalid credentials always produce the same generic message so the form
// does not reveal whether an email is registered.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse form", "error", err)
		h.renderLoginError(w, r, nil, nil, &Flash{
			Type:    "error",
			Message: "Invalid form submission. Please try again.",
		})
		return
	}

	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	password := r.FormValue("password")
	returnTo := r.FormValue("return_to")

	formValues := map[string]string{"Email": email}

	if !csrf.ValidateRequest(r) {
		h.renderLoginError(w, r, formValues, nil, &Flash{
			Type:    "error",
			Message: "Invalid security token. Please try again.",
		})
		return
	}

	errs := make(map[string]string)
	if email == "" {
		errs["email"] = "Email is required"
	}
	if password == "" {
		errs["password"] = "Password is required"
	}
	if len(errs) > 0 {
		h.renderLoginError(w, r, formValues, errs, nil)
		return
	}

	loginResult, err := h.userService.Login(r.Context(), email, password)
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.EUNAUTHORIZED:
			if h.throttle != nil {
				h.throttle.RecordFailedLogin(clientIP(r))
			}
			h.renderLoginError(w, r, formValues, nil, &Flash{
				Type:    "error",
				Message: "Invalid email or password",
			})
		default:
			h.logger.Error("login failed", "error", err, "email", email)
			h.renderLoginError(w, r, formValues, nil, &Flash{
				Type:    "error",
				Message: "Login failed. Please try again later.",
			})
		}
		return
	}

	if h.throttle != nil {
		h.throttle.ResetLogin(clientIP(r))
	}

	session.SetCookie(w, loginResult.Token, h.isSecure)

	h.logger.Info("user logged in",
		"user_id", loginResult.User.ID,
		"email", loginResult.User.Email,
	)

	http.Redirect(w, r, safeReturnTo(returnTo, "/dashboard"), http.StatusSeeOther)
}

func (h *AuthHandler) renderLoginError(
	w http.ResponseWriter,
	r *http.Request,
	formValues map[string]string,
	errs map[string]string,
	flash *Flash,
) {
	if formValues == nil {
		formValues = make(map[string]string)
	}
	if errs == nil {
		errs = make(map[string]string)
	}

	data := AuthPageData{
		CurrentPath: "/login",
		CSRFToken:   csrf.TokenFromRequest(r),
		Form:        formValues,
		Errors:      errs,
		Flash:       flash,
		ReturnTo:    r.FormValue("return_to"),
	}

	h.renderer.RenderHTTP(w, "auth/login", data)
}

// Logout invalidates the session and clears the cookie. Idempotent: the
// cookie is cleared and the user redirected even when the database delete
// fails or no session exists.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(session.CookieName)
	if err == nil && cookie.Value != "" {
		if err := h.userService.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("failed to invalidate session", "error", err)
		}
	}

	session.ClearCookie(w, h.isSecure)
	http.Redirect(w, r, "/login?logout=1", http.StatusSeeOther)
}

// safeReturnTo returns target when it is a same-site relative path, else
// fallback. Rejects absolute URLs and protocol-relative paths so the login
// redirect cannot be used to bounce users off-site.
func safeReturnTo(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return fallback
	}
	return target
}

// clientIP extracts the client IP, preferring proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

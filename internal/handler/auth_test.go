package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewdeck/reviewdeck/internal/domain"
	"github.com/reviewdeck/reviewdeck/internal/session"
)

func newTestAuthHandler(users *mockUserService, throttle LoginThrottle) (*AuthHandler, *stubRenderer) {
	renderer := &stubRenderer{}
	return NewAuthHandler(users, throttle, renderer, testLogger(), false), renderer
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func TestLogin_Success_SetsCookieAndRedirects(t *testing.T) {
	user := testUser()
	users := &mockUserService{
		LoginFunc: func(ctx context.Context, email, password string) (*domain.LoginResult, error) {
			assert.Equal(t, "owner@example.com", email)
			return &domain.LoginResult{User: user, Token: "raw-session-token"}, nil
		},
	}
	throttle := &mockThrottle{}
	h, _ := newTestAuthHandler(users, throttle)

	req := formRequest(t, "/login", url.Values{
		"email":    {"Owner@Example.com"},
		"password": {"correct-horse-battery"},
	})
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	cookie := sessionCookie(t, rec)
	require.NotNil(t, cookie)
	assert.Equal(t, "raw-session-token", cookie.Value)
	assert.True(t, cookie.HttpOnly)

	assert.Len(t, throttle.Reset, 1)
	assert.Empty(t, throttle.Failed)
}

func TestLogin_ReturnTo(t *testing.T) {
	user := testUser()
	users := &mockUserService{
		LoginFunc: func(ctx context.Context, email, password string) (*domain.LoginResult, error) {
			return &domain.LoginResult{User: user, Token: "tok"}, nil
		},
	}
	h, _ := newTestAuthHandler(users, nil)

	tests := []struct {
		name     string
		returnTo string
		want     string
	}{
		{"relative path", "/reviews", "/reviews"},
		{"path with query", "/reviews?status=pending", "/reviews?status=pending"},
		{"absolute url rejected", "https://evil.example.com/", "/dashboard"},
		{"protocol-relative rejected", "//evil.example.com", "/dashboard"},
		{"empty", "", "/dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := formRequest(t, "/login", url.Values{
				"email":     {"owner@example.com"},
				"password":  {"pw-good-enough"},
				"return_to": {tt.returnTo},
			})
			rec := httptest.NewRecorder()

			h.Login(rec, req)

			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Location"))
		})
	}
}

func TestLogin_InvalidCredentials_GenericMessageAndThrottle(t *testing.T) {
	users := &mockUserService{
		LoginFunc: func(ctx context.Context, email, password string) (*domain.LoginResult, error) {
			return nil, domain.Unauthorized("userService.Login", "Invalid email or password")
		},
	}
	throttle := &mockThrottle{}
	h, renderer := newTestAuthHandler(users, throttle)

	req := formRequest(t, "/login", url.Values{
		"email":    {"owner@example.com"},
		"password": {"wrong"},
	})
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	assert.Equal(t, "auth/login", renderer.Name)
	data, ok := renderer.Data.(AuthPageData)
	require.True(t, ok)
	require.NotNil(t, data.Flash)
	assert.Equal(t, "Invalid email or password", data.Flash.Message)
	assert.Equal(t, "owner@example.com", data.Form["Email"])

	assert.Len(t, throttle.Failed, 1)
	assert.Nil(t, sessionCookie(t, rec))
}

func TestLogin_MissingCSRFToken(t *testing.T) {
	users := &mockUserService{
		LoginFunc: func(ctx context.Context, email, password string) (*domain.LoginResult, error) {
			t.Fatal("login must not be attempted without a csrf token")
			return nil, nil
		},
	}
	h, renderer := newTestAuthHandler(users, nil)

	// No CSRF cookie or field.
	form := url.Values{"email": {"owner@example.com"}, "password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.PostForm = form
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	data, ok := renderer.Data.(AuthPageData)
	require.True(t, ok)
	require.NotNil(t, data.Flash)
	assert.Contains(t, data.Flash.Message, "security token")
}

func TestRegister_Success_AutoLogin(t *testing.T) {
	user := testUser()
	var registered domain.RegisterParams
	users := &mockUserService{
		RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
			registered = params
			return user, nil
		},
		LoginFunc: func(ctx context.Context, email, password string) (*domain.LoginResult, error) {
			return &domain.LoginResult{User: user, Token: "fresh-token"}, nil
		},
	}
	h, _ := newTestAuthHandler(users, nil)

	req := formRequest(t, "/register", url.Values{
		"name":                  {"Ada Owner"},
		"email":                 {"Owner@Example.com"},
		"business_name":         {"Ada's Bakery"},
		"password":              {"correct-horse-battery"},
		"password_confirmation": {"correct-horse-battery"},
	})
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	assert.Equal(t, "owner@example.com", registered.Email)
	assert.Equal(t, "Ada's Bakery", registered.BusinessName)

	cookie := sessionCookie(t, rec)
	require.NotNil(t, cookie)
	assert.Equal(t, "fresh-token", cookie.Value)
}

func TestRegister_ValidationErrors(t *testing.T) {
	users := &mockUserService{
		RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
			t.Fatal("register must not be called with invalid input")
			return nil, nil
		},
	}
	h, renderer := newTestAuthHandler(users, nil)

	req := formRequest(t, "/register", url.Values{
		"name":                  {""},
		"email":                 {"owner@example.com"},
		"business_name":         {"Ada's Bakery"},
		"password":              {"short"},
		"password_confirmation": {"different"},
	})
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	assert.Equal(t, "auth/register", renderer.Name)
	data, ok := renderer.Data.(AuthPageData)
	require.True(t, ok)
	assert.Contains(t, data.Errors, "name")
	assert.Contains(t, data.Errors, "password")
	assert.Contains(t, data.Errors, "password_confirmation")
	assert.Equal(t, "owner@example.com", data.Form["Email"])
}

func TestRegister_DuplicateEmail(t *testing.T) {
	users := &mockUserService{
		RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
			return nil, domain.Conflict("userService.Register", "An account with this email already exists")
		},
	}
	h, renderer := newTestAuthHandler(users, nil)

	req := formRequest(t, "/register", url.Values{
		"name":                  {"Ada Owner"},
		"email":                 {"owner@example.com"},
		"business_name":         {"Ada's Bakery"},
		"password":              {"correct-horse-battery"},
		"password_confirmation": {"correct-horse-battery"},
	})
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	data, ok := renderer.Data.(AuthPageData)
	require.True(t, ok)
	assert.Contains(t, data.Errors["email"], "already exists")
}

func TestLogout_InvalidatesSessionAndClearsCookie(t *testing.T) {
	var loggedOut string
	users := &mockUserService{
		LogoutFunc: func(ctx context.Context, token string) error {
			loggedOut = token
			return nil
		},
	}
	h, _ := newTestAuthHandler(users, nil)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "the-session-token"})
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	assert.Equal(t, "the-session-token", loggedOut)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?logout=1", rec.Header().Get("Location"))

	cookie := sessionCookie(t, rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestLogout_WithoutSession(t *testing.T) {
	h, _ := newTestAuthHandler(&mockUserService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?logout=1", rec.Header().Get("Location"))
}

func TestShowLogin_SetsCSRFCookie(t *testing.T) {
	h, renderer := newTestAuthHandler(&mockUserService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()

	h.ShowLogin(rec, req)

	assert.Equal(t, "auth/login", renderer.Name)
	data, ok := renderer.Data.(AuthPageData)
	require.True(t, ok)
	assert.NotEmpty(t, data.CSRFToken)

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "csrf_token" && c.Value == data.CSRFToken {
			found = true
		}
	}
	assert.True(t, found, "csrf cookie must match the rendered token")
}

package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/reviewdeck/reviewdeck/internal/auth"
	"github.com/reviewdeck/reviewdeck/internal/csrf"
	"github.com/reviewdeck/reviewdeck/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubRenderer records the last template rendered and its data.
type stubRenderer struct {
	Name string
	Data interface{}
}

func (s *stubRenderer) RenderHTTP(w http.ResponseWriter, name string, data interface{}) {
	s.Name = name
	s.Data = data
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
}

func (s *stubRenderer) RenderPartial(w http.ResponseWriter, name string, data interface{}) {
	s.Name = "partial/" + name
	s.Data = data
}

// mockUserService implements service.UserService with overridable methods.
type mockUserService struct {
	RegisterFunc func(ctx context.Context, params domain.RegisterParams) (*domain.User, error)
	LoginFunc    func(ctx context.Context, email, password string) (*domain.LoginResult, error)
	LogoutFunc   func(ctx context.Context, token string) error
}

func (m *mockUserService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, params)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Logout(ctx context.Context, token string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, token)
	}
	return nil
}

func (m *mockUserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (m *mockUserService) DeleteExpiredSessions(ctx context.Context) error {
	return nil
}

// mockReviewService implements service.ReviewService.
type mockReviewService struct {
	ListForUserFunc func(ctx context.Context, userID uuid.UUID) ([]domain.Review, domain.ReviewStats, error)
}

func (m *mockReviewService) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Review, domain.ReviewStats, error) {
	if m.ListForUserFunc != nil {
		return m.ListForUserFunc(ctx, userID)
	}
	return nil, domain.ReviewStats{}, nil
}

func (m *mockReviewService) InvalidateCache(ctx context.Context, userID uuid.UUID) error {
	return nil
}

// mockAccountService implements service.AccountService.
type mockAccountService struct {
	GetAccountFunc            func(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
	UpdateBusinessProfileFunc func(ctx context.Context, params domain.BusinessProfileUpdateParams) (*domain.Account, error)
	UploadLogoFunc            func(ctx context.Context, userID uuid.UUID, r io.Reader) (string, error)
}

func (m *mockAccountService) GetAccount(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	if m.GetAccountFunc != nil {
		return m.GetAccountFunc(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAccountService) UpdateBusinessProfile(ctx context.Context, params domain.BusinessProfileUpdateParams) (*domain.Account, error) {
	if m.UpdateBusinessProfileFunc != nil {
		return m.UpdateBusinessProfileFunc(ctx, params)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAccountService) UploadLogo(ctx context.Context, userID uuid.UUID, r io.Reader) (string, error) {
	if m.UploadLogoFunc != nil {
		return m.UploadLogoFunc(ctx, userID, r)
	}
	return "", errors.New("not implemented")
}

func (m *mockAccountService) RecordLinkClick(ctx context.Context, userID uuid.UUID) error {
	return nil
}

// mockThrottle records login outcome calls.
type mockThrottle struct {
	Failed []string
	Reset  []string
}

func (m *mockThrottle) RecordFailedLogin(ip string) { m.Failed = append(m.Failed, ip) }
func (m *mockThrottle) ResetLogin(ip string)        { m.Reset = append(m.Reset, ip) }

// formRequest builds a POST request with form values and a matching CSRF
// cookie/field pair so csrf.ValidateRequest passes.
func formRequest(t *testing.T, path string, values url.Values) *http.Request {
	t.Helper()

	values.Set(csrf.FormFieldName, "test-csrf-token")
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrf.CookieName, Value: "test-csrf-token"})
	return req
}

// authedRequest attaches a user, account, and derived access state to the
// request context, mirroring what the middleware stack does.
func authedRequest(req *http.Request, user *domain.User, account *domain.Account, access domain.AccessState) *http.Request {
	ctx := auth.SetUser(req.Context(), user)
	if account != nil {
		ctx = auth.SetAccount(ctx, account)
	}
	ctx = auth.SetAccess(ctx, access)
	return req.WithContext(ctx)
}

func testUser() *domain.User {
	return &domain.User{
		ID:    uuid.New(),
		Email: "owner@example.com",
		Name:  "Ada Owner",
	}
}

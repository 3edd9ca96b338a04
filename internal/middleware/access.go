package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/reviewdeck/reviewdeck/internal/auth"
	"github.com/reviewdeck/reviewdeck/internal/domain"
	"github.com/reviewdeck/reviewdeck/internal/handler"
	"github.com/reviewdeck/reviewdeck/internal/metrics"
	"github.com/reviewdeck/reviewdeck/internal/service"
)

// AccessMiddleware derives the subscription/trial access state for the
// authenticated user and enforces it on gated routes.
type AccessMiddleware struct {
	accounts service.AccountService
	logger   *slog.Logger
	isSecure bool
	now      func() time.Time
}

// NewAccessMiddleware creates a new AccessMiddleware instance.
func NewAccessMiddleware(accounts service.AccountService, logger *slog.Logger, isSecure bool) *AccessMiddleware {
	return &AccessMiddleware{
		accounts: accounts,
		logger:   logger,
		isSecure: isSecure,
		now:      time.Now,
	}
}

// WithAccess loads the user's account, derives the access state for this
// request, and stores both in the context.
//
// Must run after RequireUser. The state is derived once per request from the
// authenticated user's own account, so it can never reflect another user's
// data. A missing account means the session points at a deleted user; the
// request is sent back to login. A store failure keeps the page readable but
// fails closed to the trial-ended state.
func (m *AccessMiddleware) WithAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUser(r.Context())
		if user == nil {
			m.logger.Error("WithAccess called without user in context")
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		ctx := r.Context()
		account, err := m.accounts.GetAccount(ctx, user.ID)
		if err != nil {
			if domain.ErrorCode(err) == domain.ENOTFOUND {
				metrics.AccessDenied.WithLabelValues("no_session").Inc()
				ClearSessionCookie(w, m.isSecure)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			m.logger.Error("failed to load account for access check",
				"error", err, "user_id", user.ID)
			ctx = auth.SetAccess(ctx, domain.AccessState{TrialEnded: true})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		ctx = auth.SetAccount(ctx, account)
		ctx = auth.SetAccess(ctx, account.AccessState(m.now()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireActiveAccess blocks users whose trial has ended and who have no
// active subscription.
//
// Must run after WithAccess. Blocked HTML requests are redirected to the
// upgrade page; API requests get a 402 JSON body.
func (m *AccessMiddleware) RequireActiveAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		access := auth.GetAccess(r.Context())
		if !access.HasActiveAccess() {
			metrics.AccessDenied.WithLabelValues("trial_ended").Inc()

			if isAPIRequest(r) {
				err := domain.Errorf(domain.EPAYMENT, "", "Active subscription required")
				handler.ErrorResponse(w, r, m.logger, err)
				return
			}

			http.Redirect(w, r, "/upgrade", http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}

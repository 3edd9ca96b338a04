// Package service contains the business logic layer.
//
// Services orchestrate interactions between the document store, the blob
// storage, and domain logic. They are responsible for:
// - Input validation
// - Business rule enforcement
// - Error translation (store errors -> domain errors)
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/reviewdeck/reviewdeck/internal/domain"
	"github.com/reviewdeck/reviewdeck/internal/store"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	// Cost 12 provides good security (~250ms on modern hardware) while being
	// fast enough for login flows.
	BcryptCost = 12

	// SessionTokenBytes is the number of random bytes for session tokens.
	// 32 bytes = 256 bits of entropy; hex-encoded to 64 characters.
	SessionTokenBytes = 32

	// SessionDuration is how long a session remains valid.
	SessionDuration = 7 * 24 * time.Hour

	// TrialDuration is the free trial granted at registration.
	TrialDuration = 14 * 24 * time.Hour

	// MinPasswordLength is the minimum password length (NIST SP 800-63B).
	MinPasswordLength = 8

	// MaxPasswordLength prevents DoS via bcrypt on very long passwords.
	// bcrypt has a 72-byte limit anyway.
	MaxPasswordLength = 72
)

// Document collections used by the auth layer. The email pointer document
// gives O(1) login lookup without a collection scan.
const (
	usersCollection    = "users"
	emailsCollection   = "user_emails"
	sessionsCollection = "sessions"
	accountsCollection = "accounts"
)

// =============================================================================
// Interface Definition
// =============================================================================

// UserService defines the interface for user and session operations.
type UserService interface {
	// Register creates a new user, seeds the account document with a trial,
	// and returns the created user.
	// Returns domain.ECONFLICT if the email is already registered.
	// Returns domain.EINVALID for validation errors.
	Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error)

	// Login authenticates a user and creates a new session.
	// Returns the user and raw session token on success.
	// Returns domain.EUNAUTHORIZED for invalid credentials.
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)

	// Logout invalidates a session by its raw token.
	// Idempotent - calling with an invalid token is not an error.
	Logout(ctx context.Context, token string) error

	// GetByID retrieves a user by ID.
	// Returns domain.ENOTFOUND if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetBySessionToken validates a session token and returns its user.
	// Returns domain.EUNAUTHORIZED if the token is invalid or expired.
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)

	// DeleteExpiredSessions removes expired session documents.
	// Called periodically from the janitor loop.
	DeleteExpiredSessions(ctx context.Context) error
}

// =============================================================================
// Implementation
// =============================================================================

type userService struct {
	store  store.Store
	logger *slog.Logger
}

// NewUserService creates a UserService backed by the document store.
//
// Users, email pointers, and sessions are all documents:
//   - users/<id>          {email, passwordHash, name, createdAt, updatedAt}
//   - user_emails/<email> {userId}
//   - sessions/<hash>     {userId, expiresAt, createdAt}
func NewUserService(st store.Store, logger *slog.Logger) UserService {
	return &userService{
		store:  st,
		logger: logger,
	}
}

// Register creates a new user account.
//
// The email pointer document is the uniqueness guard: registration checks it
// before writing. Validation failures return domain.EINVALID; a duplicate
// email returns domain.ECONFLICT. On success the account document is seeded
// with a TrialDuration trial so the new user lands on a working dashboard.
func (s *userService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	const op = "UserService.Register"

	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.Name = strings.TrimSpace(params.Name)
	params.BusinessName = strings.TrimSpace(params.BusinessName)

	if err := validateEmail(params.Email); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, "Invalid email address")
	}
	if params.Name == "" {
		return nil, domain.Invalid(op, "Name is required")
	}
	if err := validatePassword(params.Password); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, "Invalid password")
	}

	// Check the email pointer before hashing; hash anyway on conflict so
	// the duplicate path takes as long as the success path.
	_, err := s.store.Get(ctx, store.JoinPath(emailsCollection, params.Email))
	if err == nil {
		_, _ = bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
		return nil, domain.Conflict(op, "Email already registered")
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, domain.Internal(err, op, "Failed to check email availability")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to hash password")
	}

	now := time.Now()
	id := uuid.New()

	err = s.store.Put(ctx, store.JoinPath(usersCollection, id.String()), map[string]any{
		"email":        params.Email,
		"passwordHash": string(passwordHash),
		"name":         params.Name,
		"createdAt":    now.Unix(),
		"updatedAt":    now.Unix(),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create user")
	}

	err = s.store.Put(ctx, store.JoinPath(emailsCollection, params.Email), map[string]any{
		"userId": id.String(),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create user")
	}

	// Seed the account document with a trial. Subscription fields are left
	// absent; the billing system writes those.
	err = s.store.Put(ctx, store.JoinPath(accountsCollection, id.String()), map[string]any{
		"businessName": params.BusinessName,
		"linkClicks":   0,
		"responseRate": 0,
		"trialEndDate": now.Add(TrialDuration).Unix(),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create account")
	}

	s.logger.Info("user registered", "user_id", id, "email", params.Email)

	return &domain.User{
		ID:        id,
		Email:     params.Email,
		Name:      params.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Login authenticates a user and creates a new session.
//
// The raw session token is returned once and stored only as a SHA-256 hash.
// Unknown emails and wrong passwords produce the same error, and both paths
// run a bcrypt comparison so response timing does not reveal which one it was.
func (s *userService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	const op = "UserService.Login"

	email = strings.ToLower(strings.TrimSpace(email))

	pointer, err := s.store.Get(ctx, store.JoinPath(emailsCollection, email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Dummy comparison to keep constant time (bcrypt hash of "dummy").
			dummyHash := "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, domain.Unauthorized(op, "Invalid email or password")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	userID, err := uuid.Parse(domain.StringField(pointer.Fields, "userId"))
	if err != nil {
		return nil, domain.Internal(err, op, "Corrupt email pointer document")
	}

	userDoc, err := s.store.Get(ctx, store.JoinPath(usersCollection, userID.String()))
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}
	user := domain.DecodeUser(userID, userDoc.Fields)

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Unauthorized(op, "Invalid email or password")
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate session token")
	}
	tokenHash := hashSessionToken(token)

	now := time.Now()
	err = s.store.Put(ctx, store.JoinPath(sessionsCollection, tokenHash), map[string]any{
		"userId":    userID.String(),
		"expiresAt": now.Add(SessionDuration).Unix(),
		"createdAt": now.Unix(),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create session")
	}

	user.PasswordHash = ""
	s.logger.Info("user logged in", "user_id", user.ID, "email", user.Email)

	return &domain.LoginResult{
		User:  &user,
		Token: token,
	}, nil
}

// Logout invalidates a session. Idempotent.
func (s *userService) Logout(ctx context.Context, token string) error {
	if token == "" || len(token) != SessionTokenBytes*2 {
		return nil
	}

	tokenHash := hashSessionToken(token)
	if err := s.store.Delete(ctx, store.JoinPath(sessionsCollection, tokenHash)); err != nil {
		s.logger.Warn("failed to delete session", "error", err)
	}

	s.logger.Debug("session invalidated")
	return nil
}

// GetByID retrieves a user by their ID.
func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "UserService.GetByID"

	doc, err := s.store.Get(ctx, store.JoinPath(usersCollection, id.String()))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NotFound(op, "user", id.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	user := domain.DecodeUser(id, doc.Fields)
	user.PasswordHash = ""
	return &user, nil
}

// GetBySessionToken validates a session token and returns its user.
func (s *userService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "UserService.GetBySessionToken"

	if token == "" || len(token) != SessionTokenBytes*2 {
		return nil, domain.Unauthorized(op, "Invalid or expired session")
	}

	tokenHash := hashSessionToken(token)
	sessionPath := store.JoinPath(sessionsCollection, tokenHash)

	doc, err := s.store.Get(ctx, sessionPath)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.Unauthorized(op, "Invalid or expired session")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve session")
	}

	session := domain.DecodeSession(tokenHash, doc.Fields)
	if session.IsExpired() || session.UserID == uuid.Nil {
		_ = s.store.Delete(ctx, sessionPath)
		return nil, domain.Unauthorized(op, "Invalid or expired session")
	}

	return s.GetByID(ctx, session.UserID)
}

// DeleteExpiredSessions removes expired session documents.
func (s *userService) DeleteExpiredSessions(ctx context.Context) error {
	const op = "UserService.DeleteExpiredSessions"

	docs, err := s.store.Query(ctx, sessionsCollection)
	if err != nil {
		return domain.Internal(err, op, "Failed to list sessions")
	}

	removed := 0
	for _, doc := range docs {
		session := domain.DecodeSession(doc.ID(), doc.Fields)
		if !session.IsExpired() {
			continue
		}
		if err := s.store.Delete(ctx, doc.Path); err != nil {
			s.logger.Warn("failed to delete expired session", "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("expired sessions removed", "count", removed)
	}
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// generateSessionToken returns a hex-encoded random token.
func generateSessionToken() (string, error) {
	b := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashSessionToken returns the SHA-256 hex digest of a raw token.
func hashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// validateEmail performs a basic shape check. Real validation happens when
// mail is delivered; this only rejects obvious garbage.
func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || !strings.Contains(email[at:], ".") {
		return fmt.Errorf("malformed email address")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password must be at most %d characters", MaxPasswordLength)
	}
	return nil
}

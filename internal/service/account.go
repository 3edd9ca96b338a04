package service

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/reviewdeck/reviewdeck/internal/domain"
	"github.com/reviewdeck/reviewdeck/internal/storage"
	"github.com/reviewdeck/reviewdeck/internal/store"
)

const (
	// LogoSize is the square dimension logos are resized to.
	LogoSize = 256

	// MaxLogoUploadBytes caps the raw logo upload size.
	MaxLogoUploadBytes = 5 << 20 // 5 MB
)

// AccountService defines the interface for business account operations.
type AccountService interface {
	// GetAccount retrieves a user's account document.
	// Returns domain.ENOTFOUND if no account exists for the user.
	GetAccount(ctx context.Context, userID uuid.UUID) (*domain.Account, error)

	// UpdateBusinessProfile updates the account's business name.
	// Returns domain.EINVALID for validation errors.
	UpdateBusinessProfile(ctx context.Context, params domain.BusinessProfileUpdateParams) (*domain.Account, error)

	// UploadLogo processes an uploaded logo image, stores it, and records
	// its URL on the account. Returns the public URL.
	UploadLogo(ctx context.Context, userID uuid.UUID, r io.Reader) (string, error)

	// RecordLinkClick increments the account's review-link click counter.
	RecordLinkClick(ctx context.Context, userID uuid.UUID) error
}

type accountService struct {
	store   store.Store
	storage storage.Storage
	logger  *slog.Logger
}

// NewAccountService creates an AccountService backed by the document store
// and the blob storage for logo files.
func NewAccountService(st store.Store, blobs storage.Storage, logger *slog.Logger) AccountService {
	return &accountService{
		store:   st,
		storage: blobs,
		logger:  logger,
	}
}

// GetAccount retrieves the account document for a user.
func (s *accountService) GetAccount(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	const op = "AccountService.GetAccount"

	doc, err := s.store.Get(ctx, store.JoinPath(accountsCollection, userID.String()))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NotFound(op, "account", userID.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve account")
	}

	account := domain.DecodeAccount(userID, doc.Fields)
	return &account, nil
}

// UpdateBusinessProfile updates the business name on the account document.
//
// The update is a read-modify-write so fields this service does not own
// (trial dates, subscription state written by billing) are preserved.
func (s *accountService) UpdateBusinessProfile(ctx context.Context, params domain.BusinessProfileUpdateParams) (*domain.Account, error) {
	const op = "AccountService.UpdateBusinessProfile"

	if params.BusinessName == "" {
		return nil, domain.Invalid(op, "Business name is required")
	}
	if len(params.BusinessName) > 120 {
		return nil, domain.Invalid(op, "Business name must be at most 120 characters")
	}

	path := store.JoinPath(accountsCollection, params.UserID.String())
	doc, err := s.store.Get(ctx, path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.NotFound(op, "account", params.UserID.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve account")
	}

	doc.Fields["businessName"] = params.BusinessName
	if err := s.store.Put(ctx, path, doc.Fields); err != nil {
		return nil, domain.Internal(err, op, "Failed to update account")
	}

	s.logger.Info("business profile updated", "user_id", params.UserID)

	account := domain.DecodeAccount(params.UserID, doc.Fields)
	return &account, nil
}

// UploadLogo decodes the uploaded image, crops it to a centered square,
// stores it as PNG, and records the URL on the account document.
func (s *accountService) UploadLogo(ctx context.Context, userID uuid.UUID, r io.Reader) (string, error) {
	const op = "AccountService.UploadLogo"

	img, err := imaging.Decode(io.LimitReader(r, MaxLogoUploadBytes), imaging.AutoOrientation(true))
	if err != nil {
		return "", domain.Wrap(err, domain.EINVALID, op, "File is not a valid image")
	}

	logo := imaging.Fill(img, LogoSize, LogoSize, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := png.Encode(&buf, logo); err != nil {
		return "", domain.Internal(err, op, "Failed to encode logo")
	}

	key := storage.LogoKey(userID)
	err = s.storage.Put(ctx, key, &buf, storage.PutOptions{
		ContentType: "image/png",
		Overwrite:   true,
		Public:      true,
	})
	if err != nil {
		return "", domain.Internal(err, op, "Failed to store logo")
	}

	url, err := s.storage.URL(ctx, key, 0)
	if err != nil {
		return "", domain.Internal(err, op, "Failed to resolve logo URL")
	}

	path := store.JoinPath(accountsCollection, userID.String())
	doc, err := s.store.Get(ctx, path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domain.NotFound(op, "account", userID.String())
		}
		return "", domain.Internal(err, op, "Failed to retrieve account")
	}

	doc.Fields["logoUrl"] = url
	if err := s.store.Put(ctx, path, doc.Fields); err != nil {
		return "", domain.Internal(err, op, "Failed to update account")
	}

	s.logger.Info("logo uploaded", "user_id", userID, "key", key)
	return url, nil
}

// RecordLinkClick increments linkClicks on the account document.
func (s *accountService) RecordLinkClick(ctx context.Context, userID uuid.UUID) error {
	const op = "AccountService.RecordLinkClick"

	path := store.JoinPath(accountsCollection, userID.String())
	doc, err := s.store.Get(ctx, path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFound(op, "account", userID.String())
		}
		return domain.Internal(err, op, "Failed to retrieve account")
	}

	doc.Fields["linkClicks"] = domain.IntField(doc.Fields, "linkClicks") + 1
	if err := s.store.Put(ctx, path, doc.Fields); err != nil {
		return domain.Internal(err, op, "Failed to update account")
	}
	return nil
}

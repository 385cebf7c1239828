package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linkstash/linkstash-server/internal/domain"
	"github.com/linkstash/linkstash-server/internal/store"
)

// SharingService orchestrates the share grant lifecycle: issue, accept,
// permission changes, and the revoke transfer that settles contributions.
type SharingService struct {
	store  store.Store
	logger *slog.Logger
}

// NewSharingService creates a new sharing service.
func NewSharingService(store store.Store, logger *slog.Logger) *SharingService {
	return &SharingService{
		store:  store,
		logger: logger,
	}
}

// Share issues a pending grant for one of ownerID's root categories and
// returns it with the invitation token.
func (s *SharingService) Share(ctx context.Context, ownerID, categoryID string) (*domain.CategoryShare, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	share, err := s.store.CreateShare(ctx, ownerID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("create share: %w", err)
	}

	s.logger.Info("category shared",
		"share_id", share.ID,
		"category_id", categoryID,
		"owner_id", ownerID,
	)
	return share, nil
}

// Accept redeems an invitation token for userID. Accepting the same token
// twice, or a second token for the same category, returns the existing grant.
func (s *SharingService) Accept(ctx context.Context, userID, token string) (*domain.CategoryShare, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	share, err := s.store.AcceptShare(ctx, userID, token)
	if err != nil {
		return nil, fmt.Errorf("accept share: %w", err)
	}
	return share, nil
}

// Preview lists the live bookmarks behind an invitation token so a recipient
// can inspect the category before accepting.
func (s *SharingService) Preview(ctx context.Context, token string, limit int) ([]*domain.BookmarkView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.PreviewShareBookmarks(ctx, token, limit)
}

// SetWriteAccess toggles whether the grant's holder may write into the
// shared category. Owner only.
func (s *SharingService) SetWriteAccess(ctx context.Context, ownerID, shareID string, allow bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.store.SetWriteAccess(ctx, ownerID, shareID, allow); err != nil {
		return fmt.Errorf("set write access: %w", err)
	}

	s.logger.Info("share write access changed",
		"share_id", shareID, "owner_id", ownerID, "allow", allow)
	return nil
}

// Revoke deletes a grant and settles the participant's contributions: they
// move into a category owned by the participant named after the formerly
// shared one, and with archiveContributions the moved rows are additionally
// archived. Owner only.
func (s *SharingService) Revoke(ctx context.Context, ownerID, shareID string, archiveContributions bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.store.RevokeShare(ctx, ownerID, shareID, archiveContributions); err != nil {
		return fmt.Errorf("revoke share: %w", err)
	}

	s.logger.Info("share revoked",
		"share_id", shareID,
		"owner_id", ownerID,
		"archived_contributions", archiveContributions,
	)
	return nil
}

// ListForCategory returns the owner's grants on a category, pending and
// accepted alike.
func (s *SharingService) ListForCategory(ctx context.Context, ownerID, categoryID string) ([]*domain.ShareListing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListSharesForCategory(ctx, ownerID, categoryID)
}

// ListForUser returns the categories shared with userID as the participant
// sees them.
func (s *SharingService) ListForUser(ctx context.Context, userID string) ([]*domain.SharedCategoryRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListSharesForUser(ctx, userID)
}

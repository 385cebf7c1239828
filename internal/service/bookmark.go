// Package service provides the business logic layer for bookmarks,
// categories, tags, and category sharing.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linkstash/linkstash-server/internal/domain"
	"github.com/linkstash/linkstash-server/internal/store"
	"github.com/linkstash/linkstash-server/internal/util"
	"github.com/linkstash/linkstash-server/internal/validation"
)

// BookmarkService orchestrates bookmark operations.
type BookmarkService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewBookmarkService creates a new bookmark service.
func NewBookmarkService(store store.Store, validator *validation.Validator, logger *slog.Logger) *BookmarkService {
	return &BookmarkService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// CreateBookmarkInput carries the fields for creating or updating a bookmark.
// CategoryRef may name an owned category or a held share grant; NewCategoryName
// takes precedence and resolves or creates a category under ParentCategoryID.
type CreateBookmarkInput struct {
	Title            string   `json:"title" validate:"required,max=500"`
	URL              string   `json:"url" validate:"required,url"`
	Description      string   `json:"description" validate:"max=2000"`
	Favicon          string   `json:"favicon" validate:"omitempty,url"`
	Theme            string   `json:"theme" validate:"max=50"`
	CategoryRef      string   `json:"category_ref"`
	NewCategoryName  string   `json:"new_category_name" validate:"max=100"`
	ParentCategoryID string   `json:"parent_category_id"`
	Tags             []string `json:"tags" validate:"max=25"`
}

func (in CreateBookmarkInput) toWrite() store.BookmarkWrite {
	return store.BookmarkWrite{
		Title:            in.Title,
		URL:              in.URL,
		Description:      in.Description,
		Favicon:          in.Favicon,
		Theme:            in.Theme,
		CategoryRef:      in.CategoryRef,
		NewCategoryName:  in.NewCategoryName,
		ParentCategoryID: in.ParentCategoryID,
		Tags:             util.NormalizeTagNames(in.Tags),
	}
}

// Create validates the input and stores a new bookmark for userID.
func (s *BookmarkService) Create(ctx context.Context, userID string, in CreateBookmarkInput) (*domain.Bookmark, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	b, err := s.store.CreateBookmark(ctx, userID, in.toWrite())
	if err != nil {
		return nil, fmt.Errorf("create bookmark: %w", err)
	}

	s.logger.Info("bookmark created",
		"bookmark_id", b.ID,
		"user_id", userID,
		"contribution", b.IsContribution(),
	)
	return b, nil
}

// Update validates the input and rewrites an existing bookmark.
// Only the contributor may update.
func (s *BookmarkService) Update(ctx context.Context, userID, bookmarkID string, in CreateBookmarkInput) (*domain.Bookmark, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	b, err := s.store.UpdateBookmark(ctx, userID, bookmarkID, in.toWrite())
	if err != nil {
		return nil, fmt.Errorf("update bookmark: %w", err)
	}
	return b, nil
}

// Get retrieves a bookmark visible to userID.
func (s *BookmarkService) Get(ctx context.Context, userID, bookmarkID string) (*domain.Bookmark, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.GetBookmark(ctx, userID, bookmarkID)
}

// Archive soft-deletes a bookmark. The contributor archives in place; the
// owner of the shared category a foreign contribution sits in archives and
// detaches it.
func (s *BookmarkService) Archive(ctx context.Context, viewerID, bookmarkID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.ArchiveBookmark(ctx, viewerID, bookmarkID); err != nil {
		return fmt.Errorf("archive bookmark: %w", err)
	}

	s.logger.Info("bookmark archived", "bookmark_id", bookmarkID, "viewer_id", viewerID)
	return nil
}

// Restore brings an archived bookmark back. Contributor only.
func (s *BookmarkService) Restore(ctx context.Context, userID, bookmarkID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.RestoreBookmark(ctx, userID, bookmarkID); err != nil {
		return fmt.Errorf("restore bookmark: %w", err)
	}
	return nil
}

// Move retargets a bookmark's category. An empty targetRef uncategorizes.
func (s *BookmarkService) Move(ctx context.Context, userID, bookmarkID, targetRef string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.MoveBookmark(ctx, userID, bookmarkID, targetRef); err != nil {
		return fmt.Errorf("move bookmark: %w", err)
	}
	return nil
}

// Delete removes a bookmark permanently. Contributor only.
func (s *BookmarkService) Delete(ctx context.Context, userID, bookmarkID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.DeleteBookmark(ctx, userID, bookmarkID); err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}

	s.logger.Info("bookmark deleted", "bookmark_id", bookmarkID, "user_id", userID)
	return nil
}

// SetFavorite flips the favorite flag.
func (s *BookmarkService) SetFavorite(ctx context.Context, userID, bookmarkID string, favorite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.SetFavorite(ctx, userID, bookmarkID, favorite)
}

// TrackClick records a visit to the bookmark.
func (s *BookmarkService) TrackClick(ctx context.Context, userID, bookmarkID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.TrackClick(ctx, userID, bookmarkID)
}

// ListInput filters and orders a bookmark listing.
type ListInput struct {
	CategoryRef  string `json:"category_ref"`
	TagID        string `json:"tag_id"`
	FavoriteOnly bool   `json:"favorite_only"`
	Archived     bool   `json:"archived"`
	Order        string `json:"order" validate:"omitempty,oneof=date-desc date-asc clicks-desc clicks-asc"`
	Limit        int    `json:"limit" validate:"min=0,max=500"`
}

// List returns the bookmarks visible to viewerID under the given filters,
// each carrying the viewer's resolved permissions.
func (s *BookmarkService) List(ctx context.Context, viewerID string, in ListInput) ([]*domain.BookmarkView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	views, err := s.store.ListBookmarks(ctx, viewerID, store.ListOptions{
		CategoryRef:  in.CategoryRef,
		TagID:        in.TagID,
		FavoriteOnly: in.FavoriteOnly,
		Archived:     in.Archived,
		Order:        store.SortOrder(in.Order),
		Limit:        in.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return views, nil
}

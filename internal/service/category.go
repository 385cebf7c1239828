package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linkstash/linkstash-server/internal/domain"
	"github.com/linkstash/linkstash-server/internal/store"
	"github.com/linkstash/linkstash-server/internal/validation"
)

// CategoryService orchestrates category tree operations.
type CategoryService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(store store.Store, validator *validation.Validator, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// CreateCategoryInput names a category to resolve or create. ParentID, when
// set, must reference a root category owned by the same user.
type CreateCategoryInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	ParentID string `json:"parent_id"`
}

// Create resolves or creates the named category. The returned flag reports
// whether a new row was created; resolving an existing name is not an error.
func (s *CategoryService) Create(ctx context.Context, userID string, in CreateCategoryInput) (*domain.Category, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, false, err
	}

	cat, created, err := s.store.ResolveOrCreateCategory(ctx, userID, in.Name, in.ParentID)
	if err != nil {
		return nil, false, fmt.Errorf("resolve category: %w", err)
	}
	if created {
		s.logger.Info("category created",
			"category_id", cat.ID, "user_id", userID, "root", cat.IsRoot())
	}
	return cat, created, nil
}

// Get retrieves one of the user's categories.
func (s *CategoryService) Get(ctx context.Context, userID, categoryID string) (*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.GetCategory(ctx, userID, categoryID)
}

// List returns the user's categories, each flagged when share grants exist.
func (s *CategoryService) List(ctx context.Context, userID string) ([]*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListCategories(ctx, userID)
}

// DeleteCategoryInput selects what happens to the bookmarks inside a deleted
// category. Action only applies to the collection-only mode.
type DeleteCategoryInput struct {
	Mode   string `json:"mode" validate:"required,oneof=collection-only with-bookmarks"`
	Action string `json:"action" validate:"omitempty,oneof=uncategorize archive delete"`
}

// Delete removes a category. Grants on it must be revoked first.
func (s *CategoryService) Delete(ctx context.Context, userID, categoryID string, in DeleteCategoryInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.validator.Validate(in); err != nil {
		return err
	}

	mode := domain.CategoryDeleteMode(in.Mode)
	action := domain.BookmarkAction(in.Action)
	if mode == domain.DeleteCollectionOnly && action == "" {
		action = domain.ActionUncategorize
	}

	if err := s.store.DeleteCategory(ctx, userID, categoryID, mode, action); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	s.logger.Info("category deleted",
		"category_id", categoryID, "user_id", userID, "mode", in.Mode, "action", string(action))
	return nil
}

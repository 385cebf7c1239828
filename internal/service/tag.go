package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linkstash/linkstash-server/internal/domain"
	"github.com/linkstash/linkstash-server/internal/store"
	"github.com/linkstash/linkstash-server/internal/util"
)

// TagService orchestrates tag operations. Tags come into existence through
// bookmarks; the service only normalizes, resolves, and lists them.
type TagService struct {
	store  store.Store
	logger *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(store store.Store, logger *slog.Logger) *TagService {
	return &TagService{
		store:  store,
		logger: logger,
	}
}

// Resolve normalizes the raw names and maps them to the user's tag rows,
// creating missing ones. Duplicates after normalization collapse to one row.
func (s *TagService) Resolve(ctx context.Context, userID string, names []string) ([]*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	normalized := util.NormalizeTagNames(names)
	if len(normalized) == 0 {
		return nil, nil
	}

	tags, err := s.store.ResolveTags(ctx, userID, normalized)
	if err != nil {
		return nil, fmt.Errorf("resolve tags: %w", err)
	}
	return tags, nil
}

// List returns the user's tags with live bookmark counts, most used first.
func (s *TagService) List(ctx context.Context, userID string) ([]*domain.TagWithCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListTags(ctx, userID)
}

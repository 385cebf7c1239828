package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/linkstash/linkstash-server/internal/errors"
)

func TestBookmarkCreate_Validation(t *testing.T) {
	ctx := context.Background()
	_, _, bookmarks, _ := newTestServices(t)
	userID := createTestUser(t, bookmarks.store, "alice")

	tests := []struct {
		name string
		in   CreateBookmarkInput
	}{
		{"missing title", CreateBookmarkInput{URL: "https://example.com"}},
		{"missing url", CreateBookmarkInput{Title: "x"}},
		{"bad url", CreateBookmarkInput{Title: "x", URL: "not a url"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bookmarks.Create(ctx, userID, tt.in)
			require.ErrorIs(t, err, domainerrors.ErrValidation)
		})
	}
}

func TestBookmarkCreate_TagNormalization(t *testing.T) {
	ctx := context.Background()
	s, _, bookmarks, _ := newTestServices(t)
	userID := createTestUser(t, s, "alice")

	b, err := bookmarks.Create(ctx, userID, CreateBookmarkInput{
		Title: "x",
		URL:   "https://example.com/x",
		Tags:  []string{"  reading   list ", "reading list", "", "go"},
	})
	require.NoError(t, err)

	tags, err := s.ListTags(ctx, userID)
	require.NoError(t, err)
	require.Len(t, tags, 2, "whitespace variants collapse to one tag")

	names := []string{tags[0].Name, tags[1].Name}
	assert.ElementsMatch(t, []string{"reading list", "go"}, names)

	views, err := bookmarks.List(ctx, userID, ListInput{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, b.ID, views[0].ID)
	assert.Len(t, views[0].Tags, 2)
}

func TestBookmarkCreate_NewCategory(t *testing.T) {
	ctx := context.Background()
	s, _, bookmarks, categories := newTestServices(t)
	userID := createTestUser(t, s, "alice")

	b, err := bookmarks.Create(ctx, userID, CreateBookmarkInput{
		Title: "x", URL: "https://example.com/x", NewCategoryName: "dev",
	})
	require.NoError(t, err)
	require.NotEmpty(t, b.CategoryID)

	cat, err := categories.Get(ctx, userID, b.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, "dev", cat.Name)
}

func TestBookmarkList_OrderValidation(t *testing.T) {
	ctx := context.Background()
	s, _, bookmarks, _ := newTestServices(t)
	userID := createTestUser(t, s, "alice")

	_, err := bookmarks.List(ctx, userID, ListInput{Order: "alphabetical"})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = bookmarks.List(ctx, userID, ListInput{Order: "clicks-desc"})
	require.NoError(t, err)
}

func TestBookmarkArchiveRestoreDelete(t *testing.T) {
	ctx := context.Background()
	s, _, bookmarks, _ := newTestServices(t)
	userID := createTestUser(t, s, "alice")

	b, err := bookmarks.Create(ctx, userID, CreateBookmarkInput{
		Title: "x", URL: "https://example.com/x",
	})
	require.NoError(t, err)

	require.NoError(t, bookmarks.Archive(ctx, userID, b.ID))
	got, err := bookmarks.Get(ctx, userID, b.ID)
	require.NoError(t, err)
	assert.True(t, got.IsArchived())

	require.NoError(t, bookmarks.Restore(ctx, userID, b.ID))
	got, err = bookmarks.Get(ctx, userID, b.ID)
	require.NoError(t, err)
	assert.False(t, got.IsArchived())

	require.NoError(t, bookmarks.Delete(ctx, userID, b.ID))
	_, err = bookmarks.Get(ctx, userID, b.ID)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestBookmarkFavoritesAndClicks(t *testing.T) {
	ctx := context.Background()
	s, _, bookmarks, _ := newTestServices(t)
	userID := createTestUser(t, s, "alice")

	b, err := bookmarks.Create(ctx, userID, CreateBookmarkInput{
		Title: "x", URL: "https://example.com/x",
	})
	require.NoError(t, err)
	_, err = bookmarks.Create(ctx, userID, CreateBookmarkInput{
		Title: "y", URL: "https://example.com/y",
	})
	require.NoError(t, err)

	require.NoError(t, bookmarks.SetFavorite(ctx, userID, b.ID, true))
	require.NoError(t, bookmarks.TrackClick(ctx, userID, b.ID))

	views, err := bookmarks.List(ctx, userID, ListInput{FavoriteOnly: true})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, b.ID, views[0].ID)
	assert.EqualValues(t, 1, views[0].Clicks)
}

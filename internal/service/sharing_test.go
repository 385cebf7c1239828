package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkstash/linkstash-server/internal/domain"
	domainerrors "github.com/linkstash/linkstash-server/internal/errors"
	"github.com/linkstash/linkstash-server/internal/id"
	"github.com/linkstash/linkstash-server/internal/store"
	"github.com/linkstash/linkstash-server/internal/store/sqlite"
	"github.com/linkstash/linkstash-server/internal/validation"
)

// newTestStore opens a store on a temp database for service tests.
func newTestStore(t *testing.T) store.Store {
	t.Helper()

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// createTestUser inserts a user and returns its id.
func createTestUser(t *testing.T, s store.Store, username string) string {
	t.Helper()

	user := &domain.User{
		ID:           id.MustGenerate("user"),
		Username:     username,
		PasswordHash: "$argon2id$test",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.CreateUser(context.Background(), user))
	return user.ID
}

func newTestServices(t *testing.T) (store.Store, *SharingService, *BookmarkService, *CategoryService) {
	t.Helper()

	s := newTestStore(t)
	logger := slog.New(slog.DiscardHandler)
	v := validation.New()
	return s,
		NewSharingService(s, logger),
		NewBookmarkService(s, v, logger),
		NewCategoryService(s, v, logger)
}

func TestSharingLifecycle(t *testing.T) {
	ctx := context.Background()
	_, sharing, bookmarks, categories := newTestServices(t)
	s := sharing.store

	owner := createTestUser(t, s, "owner")
	participant := createTestUser(t, s, "participant")

	// The owner builds a category with one bookmark.
	cat, created, err := categories.Create(ctx, owner, CreateCategoryInput{Name: "recipes"})
	require.NoError(t, err)
	require.True(t, created)

	_, err = bookmarks.Create(ctx, owner, CreateBookmarkInput{
		Title: "Bread", URL: "https://example.com/bread", CategoryRef: cat.ID,
	})
	require.NoError(t, err)

	// Share it and let the participant preview before accepting.
	share, err := sharing.Share(ctx, owner, cat.ID)
	require.NoError(t, err)
	assert.True(t, share.IsPending())
	assert.NotEmpty(t, share.Token)

	preview, err := sharing.Preview(ctx, share.Token, 0)
	require.NoError(t, err)
	require.Len(t, preview, 1)
	assert.Equal(t, "Bread", preview[0].Title)
	assert.False(t, preview[0].Permissions.CanEdit)

	// Accept. The grant shows up in the participant's shared listing.
	accepted, err := sharing.Accept(ctx, participant, share.Token)
	require.NoError(t, err)
	assert.True(t, accepted.IsAcceptedBy(participant))

	refs, err := sharing.ListForUser(ctx, participant)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "recipes", refs[0].Name)
	assert.False(t, refs[0].AllowWriteAccess)

	// Writes are refused until the owner grants write access.
	_, err = bookmarks.Create(ctx, participant, CreateBookmarkInput{
		Title: "Cake", URL: "https://example.com/cake", CategoryRef: share.ID,
	})
	require.ErrorIs(t, err, domainerrors.ErrForbidden)

	require.NoError(t, sharing.SetWriteAccess(ctx, owner, share.ID, true))

	contributed, err := bookmarks.Create(ctx, participant, CreateBookmarkInput{
		Title: "Cake", URL: "https://example.com/cake", CategoryRef: share.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, participant, contributed.UserID)
	assert.Equal(t, share.ID, contributed.FromShareID)

	// Both sides see both bookmarks in the shared listing, with
	// per-viewer permissions.
	views, err := bookmarks.List(ctx, owner, ListInput{CategoryRef: cat.ID})
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		if v.Title == "Cake" {
			assert.False(t, v.Permissions.CanEdit, "owner must not edit a foreign contribution")
			assert.True(t, v.Permissions.CanArchive, "owner may archive anything in their category")
		}
	}

	// Revoke with the move semantics: the contribution lands in a category
	// the participant owns, named after the shared one.
	require.NoError(t, sharing.Revoke(ctx, owner, share.ID, false))

	got, err := bookmarks.Get(ctx, participant, contributed.ID)
	require.NoError(t, err)
	assert.Empty(t, got.FromShareID)
	assert.Equal(t, participant, got.UserID)

	newCat, err := categories.Get(ctx, participant, got.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, "recipes", newCat.Name)
	assert.Equal(t, participant, newCat.UserID)

	// The owner's category keeps only the owner's bookmark.
	views, err = bookmarks.List(ctx, owner, ListInput{CategoryRef: cat.ID})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Bread", views[0].Title)

	// The participant's shared listing is empty again.
	refs, err = sharing.ListForUser(ctx, participant)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestSharingRevokeArchives(t *testing.T) {
	ctx := context.Background()
	_, sharing, bookmarks, categories := newTestServices(t)
	s := sharing.store

	owner := createTestUser(t, s, "owner")
	participant := createTestUser(t, s, "participant")

	cat, _, err := categories.Create(ctx, owner, CreateCategoryInput{Name: "links"})
	require.NoError(t, err)

	share, err := sharing.Share(ctx, owner, cat.ID)
	require.NoError(t, err)
	_, err = sharing.Accept(ctx, participant, share.Token)
	require.NoError(t, err)
	require.NoError(t, sharing.SetWriteAccess(ctx, owner, share.ID, true))

	contributed, err := bookmarks.Create(ctx, participant, CreateBookmarkInput{
		Title: "x", URL: "https://example.com/x", CategoryRef: share.ID,
	})
	require.NoError(t, err)

	require.NoError(t, sharing.Revoke(ctx, owner, share.ID, true))

	// The contribution still moves into the participant's own category; the
	// archive flag only soft-deletes the moved row.
	got, err := bookmarks.Get(ctx, participant, contributed.ID)
	require.NoError(t, err)
	assert.True(t, got.IsArchived())
	assert.Empty(t, got.FromShareID)
	require.NotEmpty(t, got.CategoryID)

	home, err := s.GetCategory(ctx, participant, got.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, "links", home.Name)
	assert.True(t, home.IsRoot())

	// The archived contribution shows in the participant's archive listing.
	views, err := bookmarks.List(ctx, participant, ListInput{Archived: true})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, contributed.ID, views[0].ID)
}

func TestSharingAccessControl(t *testing.T) {
	ctx := context.Background()
	_, sharing, _, categories := newTestServices(t)
	s := sharing.store

	owner := createTestUser(t, s, "owner")
	participant := createTestUser(t, s, "participant")
	stranger := createTestUser(t, s, "stranger")

	cat, _, err := categories.Create(ctx, owner, CreateCategoryInput{Name: "links"})
	require.NoError(t, err)
	share, err := sharing.Share(ctx, owner, cat.ID)
	require.NoError(t, err)

	// Sharing someone else's category fails.
	_, err = sharing.Share(ctx, stranger, cat.ID)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	// Owner cannot accept their own invitation.
	_, err = sharing.Accept(ctx, owner, share.Token)
	require.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = sharing.Accept(ctx, participant, share.Token)
	require.NoError(t, err)

	// Non-owners can neither toggle write access nor revoke.
	require.ErrorIs(t, sharing.SetWriteAccess(ctx, participant, share.ID, true), domainerrors.ErrForbidden)
	require.ErrorIs(t, sharing.Revoke(ctx, stranger, share.ID, false), domainerrors.ErrForbidden)

	// The owner's share-management view names the participant.
	listings, err := sharing.ListForCategory(ctx, owner, cat.ID)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "participant", listings[0].Username)
}

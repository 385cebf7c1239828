package sqlite

import (
	"context"
	"errors"
	"testing"

	domainerrors "github.com/linkstash/linkstash-server/internal/errors"
	"github.com/linkstash/linkstash-server/internal/store"
)

func TestCreateBookmark_Uncategorized(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID := seedUser(t, s, "alice")

	b, err := s.CreateBookmark(ctx, userID, store.BookmarkWrite{
		Title: "Go blog", URL: "https://go.dev/blog",
	})
	if err != nil {
		t.Fatalf("CreateBookmark: %v", err)
	}
	if b.CategoryID != "" || b.FromShareID != "" {
		t.Errorf("expected uncategorized bookmark, got %+v", b)
	}
	if b.UserID != userID {
		t.Errorf("UserID: got %q, want %q", b.UserID, userID)
	}
}

func TestCreateBookmark_NewCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID := seedUser(t, s, "alice")

	b, err := s.CreateBookmark(ctx, userID, store.BookmarkWrite{
		Title: "Go blog", URL: "https://go.dev/blog", NewCategoryName: "dev",
	})
	if err != nil {
		t.Fatalf("CreateBookmark: %v", err)
	}
	if b.CategoryID == "" {
		t.Fatal("expected a category to be created")
	}

	cat, err := s.GetCategory(ctx, userID, b.CategoryID)
	if err != nil {
		t.Fatalf("GetCategory: %v", err)
	}
	if cat.Name != "dev" || !cat.IsRoot() {
		t.Errorf("expected root category dev, got %+v", cat)
	}

	// Reusing the name lands in the same category.
	b2, err := s.CreateBookmark(ctx, userID, store.BookmarkWrite{
		Title: "Go spec", URL: "https://go.dev/ref/spec", NewCategoryName: "dev",
	})
	if err != nil {
		t.Fatalf("second CreateBookmark: %v", err)
	}
	if b2.CategoryID != b.CategoryID {
		t.Errorf("expected same category, got %q and %q", b2.CategoryID, b.CategoryID)
	}
}

func TestCreateBookmark_IntoGrant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	cat, _, _ := s.ResolveOrCreateCategory(ctx, alice, "reading", "")
	share, err := s.CreateShare(ctx, alice, cat.ID)
	if err != nil {
		t.Fatalf("CreateShare: %v", err)
	}
	if _, err := s.AcceptShare(ctx, bob, share.Token); err != nil {
		t.Fatalf("AcceptShare: %v", err)
	}

	// Read-only grant refuses writes.
	_, err = s.CreateBookmark(ctx, bob, store.BookmarkWrite{
		Title: "x", URL: "https://example.com/x", CategoryRef: share.ID,
	})
	if !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden on read-only grant, got %v", err)
	}

	if err := s.SetWriteAccess(ctx, alice, share.ID, true); err != nil {
		t.Fatalf("SetWriteAccess: %v", err)
	}

	b, err := s.CreateBookmark(ctx, bob, store.BookmarkWrite{
		Title: "x", URL: "https://example.com/x", CategoryRef: share.ID,
	})
	if err != nil {
		t.Fatalf("CreateBookmark through grant: %v", err)
	}
	if b.CategoryID != cat.ID {
		t.Errorf("CategoryID: got %q, want %q", b.CategoryID, cat.ID)
	}
	if b.FromShareID != share.ID {
		t.Errorf("FromShareID: got %q, want %q", b.FromShareID, share.ID)
	}
	if b.UserID != bob {
		t.Errorf("contributor must stay %q, got %q", bob, b.UserID)
	}

	// The shared category id works as a reference too.
	b2, err := s.CreateBookmark(ctx, bob, store.BookmarkWrite{
		Title: "y", URL: "https://example.com/y", CategoryRef: cat.ID,
	})
	if err != nil {
		t.Fatalf("CreateBookmark by category id: %v", err)
	}
	if b2.FromShareID != share.ID {
		t.Errorf("FromShareID: got %q, want %q", b2.FromShareID, share.ID)
	}
}

func TestUpdateBookmark_ContributorOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	b, err := s.CreateBookmark(ctx, alice, store.BookmarkWrite{
		Title: "a", URL: "https://example.com/a",
	})
	if err != nil {
		t.Fatalf("CreateBookmark: %v", err)
	}

	// A foreign bookmark is indistinguishable from a missing one.
	_, err = s.UpdateBookmark(ctx, bob, b.ID, store.BookmarkWrite{
		Title: "hijacked", URL: "https://example.com/a",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign bookmark, got %v", err)
	}

	got, err := s.UpdateBookmark(ctx, alice, b.ID, store.BookmarkWrite{
		Title: "renamed", URL: "https://example.com/a",
	})
	if err != nil {
		t.Fatalf("UpdateBookmark: %v", err)
	}
	if got.Title != "renamed" {
		t.Errorf("Title: got %q, want %q", got.Title, "renamed")
	}
}

func TestArchiveRestore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID := seedUser(t, s, "alice")

	b, err := s.CreateBookmark(ctx, userID, store.BookmarkWrite{
		Title: "a", URL: "https://example.com/a", NewCategoryName: "dev",
	})
	if err != nil {
		t.Fatalf("CreateBookmark: %v", err)
	}

	if err := s.ArchiveBookmark(ctx, userID, b.ID); err != nil {
		t.Fatalf("ArchiveBookmark: %v", err)
	}
	got, err := s.GetBookmark(ctx, userID, b.ID)
	if err != nil {
		t.Fatalf("GetBookmark: %v", err)
	}
	if !got.IsArchived() {
		t.Fatal("expected archived bookmark")
	}
	// Archiving in place keeps the category.
	if got.CategoryID != b.CategoryID {
		t.Errorf("CategoryID: got %q, want %q", got.CategoryID, b.CategoryID)
	}

	if err := s.RestoreBookmark(ctx, userID, b.ID); err != nil {
		t.Fatalf("RestoreBookmark: %v", err)
	}
	got, err = s.GetBookmark(ctx, userID, b.ID)
	if err != nil {
		t.Fatalf("GetBookmark after restore: %v", err)
	}
	if got.IsArchived() {
		t.Fatal("expected restored bookmark")
	}
}

func TestArchiveBookmark_OwnerDetachesContribution(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	cat, _, _ := s.ResolveOrCreateCategory(ctx, alice, "reading", "")
	share, _ := s.CreateShare(ctx, alice, cat.ID)
	s.AcceptShare(ctx, bob, share.Token)
	s.SetWriteAccess(ctx, alice, share.ID, true)

	b, err := s.CreateBookmark(ctx, bob, store.BookmarkWrite{
		Title: "x", URL: "https://example.com/x", CategoryRef: share.ID,
	})
	if err != nil {
		t.Fatalf("CreateBookmark: %v", err)
	}

	// A third user may not archive at all.
	carol := seedUser(t, s, "carol")
	if err := s.ArchiveBookmark(ctx, carol, b.ID); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for third user, got %v", err)
	}

	// The category owner archives a foreign contribution: it detaches and
	// lands in the contributor's archive.
	if err := s.ArchiveBookmark(ctx, alice, b.ID); err != nil {
		t.Fatalf("owner archive: %v", err)
	}
	got, err := s.GetBookmark(ctx, bob, b.ID)
	if err != nil {
		t.Fatalf("GetBookmark: %v", err)
	}
	if !got.IsArchived() {
		t.Error("expected archived bookmark")
	}
	if got.CategoryID != "" || got.FromShareID != "" {
		t.Errorf("expected detached bookmark, got category %q share %q",
			got.CategoryID, got.FromShareID)
	}
	if got.UserID != bob {
		t.Errorf("contributor must survive the detach, got %q", got.UserID)
	}
}

func TestMoveBookmark(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	cat, _, _ := s.ResolveOrCreateCategory(ctx, alice, "reading", "")
	share, _ := s.CreateShare(ctx, alice, cat.ID)
	s.AcceptShare(ctx, bob, share.Token)
	s.SetWriteAccess(ctx, alice, share.ID, true)

	own, _, _ := s.ResolveOrCreateCategory(ctx, bob, "mine", "")
	b, err := s.CreateBookmark(ctx, bob, store.BookmarkWrite{
		Title: "x", URL: "https://example.com/x", CategoryRef: own.ID,
	})
	if err != nil {
		t.Fatalf("CreateBookmark: %v", err)
	}

	// Move into the grant records provenance.
	if err := s.MoveBookmark(ctx, bob, b.ID, share.ID); err != nil {
		t.Fatalf("move into grant: %v", err)
	}
	got, _ := s.GetBookmark(ctx, bob, b.ID)
	if got.CategoryID != cat.ID || got.FromShareID != share.ID {
		t.Errorf("expected move into shared category, got %+v", got)
	}

	// Move back home clears it.
	if err := s.MoveBookmark(ctx, bob, b.ID, own.ID); err != nil {
		t.Fatalf("move home: %v", err)
	}
	got, _ = s.GetBookmark(ctx, bob, b.ID)
	if got.CategoryID != own.ID || got.FromShareID != "" {
		t.Errorf("expected move home, got %+v", got)
	}

	// Empty target uncategorizes.
	if err := s.MoveBookmark(ctx, bob, b.ID, ""); err != nil {
		t.Fatalf("uncategorize: %v", err)
	}
	got, _ = s.GetBookmark(ctx, bob, b.ID)
	if got.CategoryID != "" {
		t.Errorf("expected uncategorized, got %q", got.CategoryID)
	}

	// Only the contributor moves.
	if err := s.MoveBookmark(ctx, alice, b.ID, cat.ID); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestDeleteBookmark_PrunesEmptyCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID := seedUser(t, s, "alice")

	b, err := s.CreateBookmark(ctx, userID, store.BookmarkWrite{
		Title: "a", URL: "https://example.com/a", NewCategoryName: "solo",
	})
	if err != nil {
		t.Fatalf("CreateBookmark: %v", err)
	}
	catID := b.CategoryID

	if err := s.DeleteBookmark(ctx, userID, b.ID); err != nil {
		t.Fatalf("DeleteBookmark: %v", err)
	}
	if _, err := s.GetCategory(ctx, userID, catID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected pruned category, got %v", err)
	}
}

func TestSetFavoriteAndTrackClick(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID := seedUser(t, s, "alice")

	b, err := s.CreateBookmark(ctx, userID, store.BookmarkWrite{
		Title: "a", URL: "https://example.com/a",
	})
	if err != nil {
		t.Fatalf("CreateBookmark: %v", err)
	}

	if err := s.SetFavorite(ctx, userID, b.ID, true); err != nil {
		t.Fatalf("SetFavorite: %v", err)
	}
	if err := s.TrackClick(ctx, userID, b.ID); err != nil {
		t.Fatalf("TrackClick: %v", err)
	}
	if err := s.TrackClick(ctx, userID, b.ID); err != nil {
		t.Fatalf("second TrackClick: %v", err)
	}

	got, err := s.GetBookmark(ctx, userID, b.ID)
	if err != nil {
		t.Fatalf("GetBookmark: %v", err)
	}
	if !got.IsFavorite {
		t.Error("expected favorite")
	}
	if got.Clicks != 2 {
		t.Errorf("Clicks: got %d, want 2", got.Clicks)
	}
	if got.LastClicked == nil {
		t.Error("expected LastClicked to be set")
	}
}

func TestListBookmarks_PersonalExcludesContributions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	cat, _, _ := s.ResolveOrCreateCategory(ctx, alice, "reading", "")
	share, _ := s.CreateShare(ctx, alice, cat.ID)
	s.AcceptShare(ctx, bob, share.Token)
	s.SetWriteAccess(ctx, alice, share.ID, true)

	if _, err := s.CreateBookmark(ctx, bob, store.BookmarkWrite{
		Title: "own", URL: "https://example.com/own",
	}); err != nil {
		t.Fatalf("create own: %v", err)
	}
	if _, err := s.CreateBookmark(ctx, bob, store.BookmarkWrite{
		Title: "contributed", URL: "https://example.com/c", CategoryRef: share.ID,
	}); err != nil {
		t.Fatalf("create contribution: %v", err)
	}

	views, err := s.ListBookmarks(ctx, bob, store.ListOptions{})
	if err != nil {
		t.Fatalf("ListBookmarks: %v", err)
	}
	if len(views) != 1 || views[0].Title != "own" {
		t.Fatalf("expected only the personal bookmark, got %d rows", len(views))
	}
}

func TestListBookmarks_SharedListingPermissions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	cat, _, _ := s.ResolveOrCreateCategory(ctx, alice, "reading", "")
	share, _ := s.CreateShare(ctx, alice, cat.ID)
	s.AcceptShare(ctx, bob, share.Token)
	s.SetWriteAccess(ctx, alice, share.ID, true)

	if _, err := s.CreateBookmark(ctx, alice, store.BookmarkWrite{
		Title: "owners", URL: "https://example.com/o", CategoryRef: cat.ID,
	}); err != nil {
		t.Fatalf("create owner bookmark: %v", err)
	}
	if _, err := s.CreateBookmark(ctx, bob, store.BookmarkWrite{
		Title: "bobs", URL: "https://example.com/b", CategoryRef: share.ID,
	}); err != nil {
		t.Fatalf("create contribution: %v", err)
	}

	// Bob lists by grant id and sees both, with flags per bookmark.
	views, err := s.ListBookmarks(ctx, bob, store.ListOptions{CategoryRef: share.ID})
	if err != nil {
		t.Fatalf("ListBookmarks by grant: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 bookmarks, got %d", len(views))
	}
	for _, v := range views {
		switch v.Title {
		case "bobs":
			if !v.Permissions.CanEdit || !v.Permissions.CanArchive {
				t.Errorf("bob should hold full rights on his contribution, got %+v", v.Permissions)
			}
		case "owners":
			if v.Permissions.CanEdit || v.Permissions.CanArchive {
				t.Errorf("bob should hold no rights on the owner's bookmark, got %+v", v.Permissions)
			}
		}
		if v.CategoryName != "reading" {
			t.Errorf("CategoryName: got %q, want reading", v.CategoryName)
		}
	}

	// Alice lists her own category: she may archive bob's contribution but
	// not edit it.
	views, err = s.ListBookmarks(ctx, alice, store.ListOptions{CategoryRef: cat.ID})
	if err != nil {
		t.Fatalf("ListBookmarks by category: %v", err)
	}
	for _, v := range views {
		if v.Title == "bobs" {
			if v.Permissions.CanEdit {
				t.Error("owner must not edit a foreign contribution")
			}
			if !v.Permissions.CanArchive {
				t.Error("owner should archive a foreign contribution")
			}
		}
	}
}

func TestListBookmarks_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID := seedUser(t, s, "alice")

	fav, err := s.CreateBookmark(ctx, userID, store.BookmarkWrite{
		Title: "fav", URL: "https://example.com/f", Tags: []string{"go"},
	})
	if err != nil {
		t.Fatalf("create fav: %v", err)
	}
	s.SetFavorite(ctx, userID, fav.ID, true)

	other, err := s.CreateBookmark(ctx, userID, store.BookmarkWrite{
		Title: "other", URL: "https://example.com/o",
	})
	if err != nil {
		t.Fatalf("create other: %v", err)
	}
	s.ArchiveBookmark(ctx, userID, other.ID)

	views, err := s.ListBookmarks(ctx, userID, store.ListOptions{FavoriteOnly: true})
	if err != nil {
		t.Fatalf("favorites: %v", err)
	}
	if len(views) != 1 || views[0].Title != "fav" {
		t.Fatalf("expected only the favorite, got %d rows", len(views))
	}

	views, err = s.ListBookmarks(ctx, userID, store.ListOptions{Archived: true})
	if err != nil {
		t.Fatalf("archived: %v", err)
	}
	if len(views) != 1 || views[0].Title != "other" {
		t.Fatalf("expected only the archived bookmark, got %d rows", len(views))
	}

	tags, _ := s.ListTags(ctx, userID)
	views, err = s.ListBookmarks(ctx, userID, store.ListOptions{TagID: tags[0].ID})
	if err != nil {
		t.Fatalf("by tag: %v", err)
	}
	if len(views) != 1 || views[0].Title != "fav" {
		t.Fatalf("expected only the tagged bookmark, got %d rows", len(views))
	}
	if len(views[0].Tags) != 1 || views[0].Tags[0].Name != "go" {
		t.Errorf("expected tag go on listing, got %v", views[0].Tags)
	}
}

func TestListBookmarks_ClickOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID := seedUser(t, s, "alice")

	a, _ := s.CreateBookmark(ctx, userID, store.BookmarkWrite{Title: "a", URL: "https://example.com/a"})
	b, _ := s.CreateBookmark(ctx, userID, store.BookmarkWrite{Title: "b", URL: "https://example.com/b"})
	_ = a
	s.TrackClick(ctx, userID, b.ID)

	views, err := s.ListBookmarks(ctx, userID, store.ListOptions{Order: store.SortClicksDesc})
	if err != nil {
		t.Fatalf("ListBookmarks: %v", err)
	}
	if len(views) != 2 || views[0].Title != "b" {
		t.Fatalf("expected b first by clicks, got %v", views[0].Title)
	}
}

func TestListBookmarks_CategoryIncludesChildren(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	userID := seedUser(t, s, "alice")

	root, _, _ := s.ResolveOrCreateCategory(ctx, userID, "dev", "")
	if _, err := s.CreateBookmark(ctx, userID, store.BookmarkWrite{
		Title: "in root", URL: "https://example.com/r", CategoryRef: root.ID,
	}); err != nil {
		t.Fatalf("create in root: %v", err)
	}
	if _, err := s.CreateBookmark(ctx, userID, store.BookmarkWrite{
		Title: "in child", URL: "https://example.com/c",
		NewCategoryName: "go", ParentCategoryID: root.ID,
	}); err != nil {
		t.Fatalf("create in child: %v", err)
	}

	views, err := s.ListBookmarks(ctx, userID, store.ListOptions{CategoryRef: root.ID})
	if err != nil {
		t.Fatalf("ListBookmarks: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected bookmarks from root and child, got %d", len(views))
	}
}

// Package store defines the persistence contract consumed by the service
// layer. The SQLite implementation lives in the sqlite subpackage.
package store

import (
	"context"

	"github.com/linkstash/linkstash-server/internal/domain"
	"github.com/linkstash/linkstash-server/internal/errors"
)

// Sentinel errors returned by store implementations. These alias the coded
// domain errors so callers can match with errors.Is either way.
var (
	ErrNotFound         = errors.ErrNotFound
	ErrAlreadyExists    = errors.ErrAlreadyExists
	ErrForbidden        = errors.ErrForbidden
	ErrConflict         = errors.ErrConflict
	ErrInvalidHierarchy = errors.ErrInvalidHierarchy
	ErrHasActiveShares  = errors.ErrHasActiveShares
)

// BookmarkWrite carries the caller-supplied fields for creating or updating
// a bookmark. CategoryRef may be a category id the user owns, or a share
// grant id (or shared category id) held by the user with write access.
// NewCategoryName, when set, takes precedence over CategoryRef and is
// resolved or created under ParentCategoryID.
type BookmarkWrite struct {
	Title            string
	URL              string
	Description      string
	Favicon          string
	Theme            string
	CategoryRef      string
	NewCategoryName  string
	ParentCategoryID string
	Tags             []string
}

// SortOrder selects bookmark listing order.
type SortOrder string

// Supported listing orders.
const (
	SortDateDesc   SortOrder = "date-desc"
	SortDateAsc    SortOrder = "date-asc"
	SortClicksDesc SortOrder = "clicks-desc"
	SortClicksAsc  SortOrder = "clicks-asc"
)

// ListOptions filters and orders a bookmark listing.
type ListOptions struct {
	// CategoryRef restricts the listing to one category (and its children).
	// It may be an owned category id, a share grant id held by the viewer,
	// or the id of a category the viewer has shared with others; the latter
	// two produce a cross-user shared listing.
	CategoryRef string
	// TagID keeps only bookmarks carrying the tag.
	TagID string
	// FavoriteOnly keeps only favorites.
	FavoriteOnly bool
	// Archived flips the listing to soft-deleted bookmarks only. The
	// default listing excludes archived rows and share contributions.
	Archived bool
	// Order defaults to SortDateDesc.
	Order SortOrder
	// Limit caps the number of rows when positive.
	Limit int
}

// Store is the transactional persistence interface of the core.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)

	// Categories
	ResolveOrCreateCategory(ctx context.Context, userID, name, parentID string) (*domain.Category, bool, error)
	GetCategory(ctx context.Context, userID, categoryID string) (*domain.Category, error)
	ListCategories(ctx context.Context, userID string) ([]*domain.Category, error)
	DeleteCategory(ctx context.Context, userID, categoryID string, mode domain.CategoryDeleteMode, action domain.BookmarkAction) error

	// Tags
	ResolveTags(ctx context.Context, userID string, names []string) ([]*domain.Tag, error)
	ListTags(ctx context.Context, userID string) ([]*domain.TagWithCount, error)

	// Bookmarks
	CreateBookmark(ctx context.Context, userID string, w BookmarkWrite) (*domain.Bookmark, error)
	UpdateBookmark(ctx context.Context, userID, bookmarkID string, w BookmarkWrite) (*domain.Bookmark, error)
	GetBookmark(ctx context.Context, userID, bookmarkID string) (*domain.Bookmark, error)
	ArchiveBookmark(ctx context.Context, viewerID, bookmarkID string) error
	RestoreBookmark(ctx context.Context, userID, bookmarkID string) error
	MoveBookmark(ctx context.Context, userID, bookmarkID, targetRef string) error
	DeleteBookmark(ctx context.Context, userID, bookmarkID string) error
	SetFavorite(ctx context.Context, userID, bookmarkID string, favorite bool) error
	TrackClick(ctx context.Context, userID, bookmarkID string) error
	ListBookmarks(ctx context.Context, viewerID string, opts ListOptions) ([]*domain.BookmarkView, error)

	// Shares
	CreateShare(ctx context.Context, ownerID, categoryID string) (*domain.CategoryShare, error)
	GetShare(ctx context.Context, shareID string) (*domain.CategoryShare, error)
	GetShareByToken(ctx context.Context, token string) (*domain.CategoryShare, error)
	AcceptShare(ctx context.Context, userID, token string) (*domain.CategoryShare, error)
	SetWriteAccess(ctx context.Context, ownerID, shareID string, allow bool) error
	RevokeShare(ctx context.Context, ownerID, shareID string, archiveContributions bool) error
	ListSharesForCategory(ctx context.Context, ownerID, categoryID string) ([]*domain.ShareListing, error)
	ListSharesForUser(ctx context.Context, userID string) ([]*domain.SharedCategoryRef, error)
	PreviewShareBookmarks(ctx context.Context, token string, limit int) ([]*domain.BookmarkView, error)
}

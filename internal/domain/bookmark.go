package domain

import "time"

// Bookmark is a stored URL. UserID is the contributor: whoever created the
// bookmark, which never changes afterwards, not even when the bookmark sits
// in (or is reclaimed from) somebody else's shared category. Category
// membership and share grants decide visibility; UserID decides authorship.
type Bookmark struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Description string     `json:"description,omitempty"`
	Favicon     string     `json:"favicon,omitempty"`
	Theme       string     `json:"theme,omitempty"`
	CategoryID  string     `json:"category_id,omitempty"` // empty = uncategorized
	UserID      string     `json:"user_id"`
	IsFavorite  bool       `json:"is_favorite"`
	Clicks      int64      `json:"clicks"`
	LastClicked *time.Time `json:"last_clicked,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`

	// FromShareID links a bookmark to the share grant it was contributed
	// through: set when a participant writes into someone else's shared
	// category. Revoking that grant uses this to return the bookmark to its
	// contributor. Empty for bookmarks created in the user's own space.
	FromShareID string `json:"from_share_id,omitempty"`
}

// IsArchived reports whether the bookmark has been soft-deleted.
func (b *Bookmark) IsArchived() bool {
	return b.DeletedAt != nil
}

// IsContribution reports whether the bookmark was written into another
// user's shared category.
func (b *Bookmark) IsContribution() bool {
	return b.FromShareID != ""
}

// Touch updates the UpdatedAt timestamp to the current time.
func (b *Bookmark) Touch() {
	b.UpdatedAt = time.Now()
}

// BookmarkView is a bookmark as presented to a specific viewer: joined with
// its tags and category name, and carrying the viewer's resolved permissions.
type BookmarkView struct {
	Bookmark
	Tags         []*Tag      `json:"tags"`
	CategoryName string      `json:"category_name,omitempty"`
	Permissions  Permissions `json:"permissions"`
}

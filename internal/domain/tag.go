package domain

import "time"

// Tag is a per-user label. Unlike categories, tags have no hierarchy and no
// sharing; they exist lazily from the first bookmark that references the
// name and are unique per (user, name).
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (t *Tag) Touch() {
	t.UpdatedAt = time.Now()
}

// TagWithCount is a tag annotated with how many live bookmarks carry it.
// Used by listings; the count is computed, not stored.
type TagWithCount struct {
	Tag
	BookmarkCount int `json:"bookmark_count"`
}

// BookmarkTag is the many-to-many junction between bookmarks and tags.
type BookmarkTag struct {
	BookmarkID string `json:"bookmark_id"`
	TagID      string `json:"tag_id"`
}

package domain

// Category is a named grouping of bookmarks owned by a single user.
// The hierarchy is at most two levels deep: a root category may have child
// categories, but a child may never be a parent itself. Names are unique per
// (user, parent) pair, so "work" can exist both at the root and under a
// different root for the same user.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	UserID   string `json:"user_id"`
	ParentID string `json:"parent_id,omitempty"` // empty for root categories

	// IsShared reports whether the owner has issued at least one share grant
	// for this category. Populated on listings, not stored.
	IsShared bool `json:"is_shared,omitempty"`
}

// IsRoot reports whether the category sits at the top level.
func (c *Category) IsRoot() bool {
	return c.ParentID == ""
}

// CanParent reports whether this category may be used as the parent of a new
// child. Only root categories qualify.
func (c *Category) CanParent() bool {
	return c.IsRoot()
}

// CategoryDeleteMode selects how a category deletion treats its bookmarks.
type CategoryDeleteMode string

const (
	// DeleteCollectionOnly removes the category row after applying a
	// BookmarkAction to the bookmarks directly inside it.
	DeleteCollectionOnly CategoryDeleteMode = "collection-only"
	// DeleteWithBookmarks removes the category and hard-deletes every
	// bookmark directly inside it.
	DeleteWithBookmarks CategoryDeleteMode = "with-bookmarks"
)

// Valid reports whether the mode is one of the known values.
func (m CategoryDeleteMode) Valid() bool {
	return m == DeleteCollectionOnly || m == DeleteWithBookmarks
}

// BookmarkAction is what DeleteCollectionOnly does to the bookmarks that were
// inside the deleted category.
type BookmarkAction string

const (
	// ActionUncategorize clears the bookmarks' category, keeping them live.
	ActionUncategorize BookmarkAction = "uncategorize"
	// ActionArchive soft-deletes the bookmarks and clears their category.
	ActionArchive BookmarkAction = "archive"
	// ActionDelete hard-deletes the bookmarks.
	ActionDelete BookmarkAction = "delete"
)

// Valid reports whether the action is one of the known values.
func (a BookmarkAction) Valid() bool {
	switch a {
	case ActionUncategorize, ActionArchive, ActionDelete:
		return true
	}
	return false
}

package domain

// Permissions are the per-viewer action flags attached to a bookmark row at
// query time. They are derived, never stored: the same bookmark yields
// different flags for different viewers.
type Permissions struct {
	CanEdit    bool `json:"can_edit"`
	CanArchive bool `json:"can_archive"`
}

// CanEdit reports whether the viewer may change a bookmark's content
// (title, url, description, tags). Only the contributor may, in both
// personal and shared contexts.
func CanEdit(b *Bookmark, viewerID string) bool {
	return b.UserID == viewerID
}

// CanArchive reports whether the viewer may archive the bookmark.
// The contributor always may. The owner of the shared category the bookmark
// currently sits in also may; archiving someone else's contribution from
// your own shared category additionally detaches it (see the store).
// shareOwnerID is the owner of the grant covering the bookmark's category,
// or empty when the listing is not a shared one.
func CanArchive(b *Bookmark, viewerID, shareOwnerID string) bool {
	if b.UserID == viewerID {
		return true
	}
	return shareOwnerID != "" && viewerID == shareOwnerID
}

// ResolvePermissions computes the viewer's flags for one bookmark.
// It is a pure function over the row and the viewer identity so that
// permission logic stays out of query construction.
func ResolvePermissions(b *Bookmark, viewerID, shareOwnerID string) Permissions {
	return Permissions{
		CanEdit:    CanEdit(b, viewerID),
		CanArchive: CanArchive(b, viewerID, shareOwnerID),
	}
}

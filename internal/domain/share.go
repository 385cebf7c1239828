package domain

import "time"

// CategoryShare is a grant giving one user access to another user's root
// category. Its lifecycle is a small state machine:
//
//	Pending:  created by the owner; UserID is empty, Token is live.
//	Accepted: a recipient redeemed the token; UserID is fixed to them.
//	Revoked:  the row is deleted (after the revoke transfer has run).
//
// A category can carry several grants, but at most one per accepting user.
type CategoryShare struct {
	ID               string    `json:"id"`
	CategoryID       string    `json:"category_id"`
	OwnerID          string    `json:"owner_id"`
	UserID           string    `json:"user_id,omitempty"` // empty until accepted
	Token            string    `json:"token"`
	AllowWriteAccess bool      `json:"allow_write_access"`
	CreatedAt        time.Time `json:"created_at"`
}

// IsPending reports whether the grant still awaits acceptance.
func (s *CategoryShare) IsPending() bool {
	return s.UserID == ""
}

// IsAcceptedBy reports whether the grant has been accepted by the given user.
func (s *CategoryShare) IsAcceptedBy(userID string) bool {
	return s.UserID != "" && s.UserID == userID
}

// ShareListing is a grant annotated for the owner's share-management view:
// the accepting user's name (empty while pending).
type ShareListing struct {
	CategoryShare
	Username string `json:"username,omitempty"`
}

// SharedCategoryRef is a grant as seen by the participant: the grant id
// doubles as the participant-side handle for the category (bookmark
// operations accept it wherever a category reference is expected).
type SharedCategoryRef struct {
	ID               string `json:"id"` // grant id
	Name             string `json:"name"`
	AllowWriteAccess bool   `json:"allow_write_access"`
}

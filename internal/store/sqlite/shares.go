package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/linkstash/linkstash-server/internal/domain"
	domainerrors "github.com/linkstash/linkstash-server/internal/errors"
	"github.com/linkstash/linkstash-server/internal/id"
	"github.com/linkstash/linkstash-server/internal/store"
)

// shareColumns is the ordered list of columns selected in share queries.
// Must match the scan order in scanShare.
const shareColumns = `id, category_id, owner_id, user_id, token, allow_write_access, created_at`

// scanShare scans a sql.Row (or sql.Rows via its Scan method) into a domain.CategoryShare.
func scanShare(scanner interface{ Scan(dest ...any) error }) (*domain.CategoryShare, error) {
	var s domain.CategoryShare

	var (
		userID    sql.NullString
		allow     int
		createdAt string
	)

	err := scanner.Scan(
		&s.ID,
		&s.CategoryID,
		&s.OwnerID,
		&userID,
		&s.Token,
		&allow,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	s.UserID = userID.String
	s.AllowWriteAccess = allow != 0
	s.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// generateShareToken returns a URL-safe random token for share invitations.
func generateShareToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CreateShare issues a pending grant for one of ownerID's root categories.
// Write access starts disabled; SetWriteAccess toggles it later.
func (s *Store) CreateShare(ctx context.Context, ownerID, categoryID string) (*domain.CategoryShare, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	cat, err := getCategoryTx(ctx, tx, ownerID, categoryID)
	if err != nil {
		return nil, err
	}
	if !cat.IsRoot() {
		return nil, domainerrors.InvalidHierarchy("only root categories can be shared")
	}

	token, err := generateShareToken()
	if err != nil {
		return nil, err
	}

	share := &domain.CategoryShare{
		ID:         id.MustGenerate("share"),
		CategoryID: cat.ID,
		OwnerID:    ownerID,
		Token:      token,
		CreatedAt:  nowUTC(),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO category_shares (
			id, category_id, owner_id, user_id, token, allow_write_access, created_at
		) VALUES (?, ?, ?, NULL, ?, 0, ?)`,
		share.ID, share.CategoryID, share.OwnerID, share.Token, formatTime(share.CreatedAt),
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("share created",
		"share_id", share.ID, "category_id", cat.ID, "owner_id", ownerID)
	return share, nil
}

// GetShare retrieves a grant by id.
func (s *Store) GetShare(ctx context.Context, shareID string) (*domain.CategoryShare, error) {
	return getShareTx(ctx, s.db, shareID)
}

func getShareTx(ctx context.Context, q querier, shareID string) (*domain.CategoryShare, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+shareColumns+` FROM category_shares WHERE id = ?`, shareID)

	share, err := scanShare(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return share, nil
}

// GetShareByToken retrieves a grant by its invitation token.
func (s *Store) GetShareByToken(ctx context.Context, token string) (*domain.CategoryShare, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+shareColumns+` FROM category_shares WHERE token = ?`, token)

	share, err := scanShare(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return share, nil
}

// AcceptShare redeems an invitation token for userID. Accepting a grant the
// user already accepted is a no-op returning the grant. When the user already
// holds a different grant on the same category, the redundant pending row is
// dropped and the existing grant returned.
func (s *Store) AcceptShare(ctx context.Context, userID, token string) (*domain.CategoryShare, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+shareColumns+` FROM category_shares WHERE token = ?`, token)
	share, err := scanShare(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if share.OwnerID == userID {
		return nil, domainerrors.Forbidden("cannot accept a share of your own category")
	}
	if share.IsAcceptedBy(userID) {
		return share, nil
	}
	if !share.IsPending() {
		// Taken by someone else. Indistinguishable from an unknown token so a
		// stale invitation leaks nothing about who redeemed it.
		return nil, store.ErrNotFound
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE category_shares SET user_id = ? WHERE id = ?`, userID, share.ID)
	if err != nil {
		if isUniqueViolation(err) {
			// The user already holds a grant on this category; keep it and
			// drop the now redundant pending row.
			existing, qerr := findShareForUserTx(ctx, tx, share.CategoryID, userID)
			if qerr != nil {
				return nil, qerr
			}
			if _, derr := tx.ExecContext(ctx,
				`DELETE FROM category_shares WHERE id = ?`, share.ID); derr != nil {
				return nil, derr
			}
			if cerr := tx.Commit(); cerr != nil {
				return nil, cerr
			}
			return existing, nil
		}
		return nil, err
	}
	share.UserID = userID

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("share accepted",
		"share_id", share.ID, "category_id", share.CategoryID, "user_id", userID)
	return share, nil
}

func findShareForUserTx(ctx context.Context, tx *sql.Tx, categoryID, userID string) (*domain.CategoryShare, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+shareColumns+` FROM category_shares WHERE category_id = ? AND user_id = ?`,
		categoryID, userID)

	share, err := scanShare(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return share, nil
}

// SetWriteAccess toggles a grant's write permission. Owner only.
func (s *Store) SetWriteAccess(ctx context.Context, ownerID, shareID string, allow bool) error {
	share, err := getShareTx(ctx, s.db, shareID)
	if err != nil {
		return err
	}
	if share.OwnerID != ownerID {
		return domainerrors.Forbidden("only the share owner may change write access")
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE category_shares SET allow_write_access = ? WHERE id = ?`,
		boolToInt(allow), shareID)
	return err
}

// RevokeShare deletes a grant and settles the participant's contributions in
// the same transaction. Contributed bookmarks move into a root category owned
// by the participant, named after the formerly shared category, created on
// demand. With archiveContributions the moved bookmarks are additionally
// soft-deleted. Either way every bookmark keeps its contributor and no longer
// references the shared category or the grant.
func (s *Store) RevokeShare(ctx context.Context, ownerID, shareID string, archiveContributions bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	share, err := getShareTx(ctx, tx, shareID)
	if err != nil {
		return err
	}
	if share.OwnerID != ownerID {
		return domainerrors.Forbidden("only the share owner may revoke it")
	}

	now := formatTime(nowUTC())
	if !share.IsPending() {
		var contributions int
		if qerr := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM bookmarks WHERE from_share_id = ?`, share.ID).
			Scan(&contributions); qerr != nil {
			return qerr
		}
		if contributions > 0 {
			var catName string
			if qerr := tx.QueryRowContext(ctx,
				`SELECT name FROM categories WHERE id = ?`, share.CategoryID).
				Scan(&catName); qerr != nil {
				return qerr
			}
			target, _, cerr := s.resolveOrCreateCategoryTx(ctx, tx, share.UserID, catName, "")
			if cerr != nil {
				return cerr
			}

			set := `category_id = ?, from_share_id = NULL, updated_at = ?`
			args := []any{target.ID, now}
			if archiveContributions {
				set += `, deleted_at = ?`
				args = append(args, now)
			}
			args = append(args, share.ID)
			if _, err := tx.ExecContext(ctx,
				`UPDATE bookmarks SET `+set+` WHERE from_share_id = ?`, args...); err != nil {
				return err
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM category_shares WHERE id = ?`, share.ID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Info("share revoked",
		"share_id", share.ID, "category_id", share.CategoryID,
		"archived_contributions", archiveContributions)
	return nil
}

// ListSharesForCategory returns the owner's grants on a category, pending and
// accepted alike, annotated with the accepting user's name.
func (s *Store) ListSharesForCategory(ctx context.Context, ownerID, categoryID string) ([]*domain.ShareListing, error) {
	if _, err := getCategoryTx(ctx, s.db, ownerID, categoryID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT cs.id, cs.category_id, cs.owner_id, cs.user_id, cs.token,
		       cs.allow_write_access, cs.created_at, COALESCE(u.username, '')
		FROM category_shares cs
		LEFT JOIN users u ON u.id = cs.user_id
		WHERE cs.category_id = ?
		ORDER BY cs.created_at`,
		categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []*domain.ShareListing
	for rows.Next() {
		var l domain.ShareListing
		var (
			userID    sql.NullString
			allow     int
			createdAt string
		)
		err := rows.Scan(&l.ID, &l.CategoryID, &l.OwnerID, &userID, &l.Token,
			&allow, &createdAt, &l.Username)
		if err != nil {
			return nil, err
		}
		l.UserID = userID.String
		l.AllowWriteAccess = allow != 0
		if l.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		listings = append(listings, &l)
	}
	return listings, rows.Err()
}

// ListSharesForUser returns the categories shared with userID, as the
// participant sees them: the grant id doubles as the category handle.
func (s *Store) ListSharesForUser(ctx context.Context, userID string) ([]*domain.SharedCategoryRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cs.id, c.name, cs.allow_write_access
		FROM category_shares cs
		JOIN categories c ON c.id = cs.category_id
		WHERE cs.user_id = ?
		ORDER BY c.name`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []*domain.SharedCategoryRef
	for rows.Next() {
		var r domain.SharedCategoryRef
		var allow int
		if err := rows.Scan(&r.ID, &r.Name, &allow); err != nil {
			return nil, err
		}
		r.AllowWriteAccess = allow != 0
		refs = append(refs, &r)
	}
	return refs, rows.Err()
}

// PreviewShareBookmarks lists the live bookmarks behind an invitation token
// so a recipient can inspect a share before accepting. Permissions are empty;
// the previewer is nobody yet.
func (s *Store) PreviewShareBookmarks(ctx context.Context, token string, limit int) ([]*domain.BookmarkView, error) {
	share, err := s.GetShareByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT b.id, b.title, b.url, b.description, b.favicon, b.theme,
		       b.category_id, b.user_id, b.is_favorite, b.clicks, b.last_clicked,
		       b.created_at, b.updated_at, b.deleted_at, b.from_share_id,
		       COALESCE(c.name, '')
		FROM bookmarks b
		LEFT JOIN categories c ON c.id = b.category_id
		WHERE b.deleted_at IS NULL
		  AND b.category_id IN (SELECT id FROM categories WHERE id = ? OR parent_id = ?)
		ORDER BY b.created_at DESC`
	args := []any{share.CategoryID, share.CategoryID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []*domain.BookmarkView
	for rows.Next() {
		v, err := scanBookmarkView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, v := range views {
		if v.Tags, err = s.loadTagsForBookmark(ctx, s.db, v.ID); err != nil {
			return nil, err
		}
	}
	return views, nil
}

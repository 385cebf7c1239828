package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linkstash/linkstash-server/internal/domain"
	domainerrors "github.com/linkstash/linkstash-server/internal/errors"
	"github.com/linkstash/linkstash-server/internal/id"
	"github.com/linkstash/linkstash-server/internal/store"
)

// bookmarkColumns is the ordered list of columns selected in bookmark queries.
// Must match the scan order in scanBookmark.
const bookmarkColumns = `id, title, url, description, favicon, theme, category_id,
	user_id, is_favorite, clicks, last_clicked, created_at, updated_at, deleted_at,
	from_share_id`

// scanBookmark scans a sql.Row (or sql.Rows via its Scan method) into a domain.Bookmark.
func scanBookmark(scanner interface{ Scan(dest ...any) error }) (*domain.Bookmark, error) {
	var b domain.Bookmark

	var (
		description sql.NullString
		favicon     sql.NullString
		theme       sql.NullString
		categoryID  sql.NullString
		isFavorite  int
		lastClicked sql.NullString
		createdAt   string
		updatedAt   string
		deletedAt   sql.NullString
		fromShareID sql.NullString
	)

	err := scanner.Scan(
		&b.ID,
		&b.Title,
		&b.URL,
		&description,
		&favicon,
		&theme,
		&categoryID,
		&b.UserID,
		&isFavorite,
		&b.Clicks,
		&lastClicked,
		&createdAt,
		&updatedAt,
		&deletedAt,
		&fromShareID,
	)
	if err != nil {
		return nil, err
	}

	b.Description = description.String
	b.Favicon = favicon.String
	b.Theme = theme.String
	b.CategoryID = categoryID.String
	b.FromShareID = fromShareID.String
	b.IsFavorite = isFavorite != 0

	b.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	b.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	if b.LastClicked, err = parseNullableTime(lastClicked); err != nil {
		return nil, err
	}
	if b.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
		return nil, err
	}

	return &b, nil
}

func getBookmarkTx(ctx context.Context, q querier, bookmarkID string) (*domain.Bookmark, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE id = ?`, bookmarkID)

	b, err := scanBookmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// resolveTargetCategoryTx maps a caller-supplied category reference to the
// concrete target. The reference may be a category the user owns, a share
// grant the user has accepted (by grant id or by shared category id), or
// empty for uncategorized. Writing through a grant requires write access and
// marks the bookmark as a contribution via fromShareID.
func resolveTargetCategoryTx(ctx context.Context, tx *sql.Tx, userID, ref string) (categoryID, fromShareID string, err error) {
	if ref == "" {
		return "", "", nil
	}

	cat, err := getCategoryTx(ctx, tx, userID, ref)
	if err == nil {
		return cat.ID, "", nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", "", err
	}

	var (
		shareID string
		catID   string
		allow   int
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, category_id, allow_write_access FROM category_shares
		WHERE user_id = ? AND (id = ? OR category_id = ?)`,
		userID, ref, ref).
		Scan(&shareID, &catID, &allow)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", store.ErrNotFound
	}
	if err != nil {
		return "", "", err
	}
	if allow == 0 {
		return "", "", domainerrors.Forbidden("share grant does not allow write access")
	}
	return catID, shareID, nil
}

func insertBookmarkTx(ctx context.Context, tx *sql.Tx, b *domain.Bookmark) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO bookmarks (
			id, title, url, description, favicon, theme, category_id,
			user_id, is_favorite, clicks, last_clicked, created_at, updated_at,
			deleted_at, from_share_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.Title,
		b.URL,
		nullString(b.Description),
		nullString(b.Favicon),
		nullString(b.Theme),
		nullString(b.CategoryID),
		b.UserID,
		boolToInt(b.IsFavorite),
		b.Clicks,
		nullTimeString(b.LastClicked),
		formatTime(b.CreatedAt),
		formatTime(b.UpdatedAt),
		nullTimeString(b.DeletedAt),
		nullString(b.FromShareID),
	)
	return err
}

// CreateBookmark inserts a bookmark for userID, resolving its category and
// tags in the same transaction. The contributor is fixed to userID for the
// lifetime of the row.
func (s *Store) CreateBookmark(ctx context.Context, userID string, w store.BookmarkWrite) (*domain.Bookmark, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var categoryID, fromShareID string
	if w.NewCategoryName != "" {
		cat, _, err := s.resolveOrCreateCategoryTx(ctx, tx, userID, w.NewCategoryName, w.ParentCategoryID)
		if err != nil {
			return nil, err
		}
		categoryID = cat.ID
	} else {
		categoryID, fromShareID, err = resolveTargetCategoryTx(ctx, tx, userID, w.CategoryRef)
		if err != nil {
			return nil, err
		}
	}

	now := nowUTC()
	b := &domain.Bookmark{
		ID:          id.MustGenerate("bm"),
		Title:       w.Title,
		URL:         w.URL,
		Description: w.Description,
		Favicon:     w.Favicon,
		Theme:       w.Theme,
		CategoryID:  categoryID,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
		FromShareID: fromShareID,
	}
	if err := insertBookmarkTx(ctx, tx, b); err != nil {
		return nil, err
	}

	tags, err := resolveTagsTx(ctx, tx, userID, w.Tags)
	if err != nil {
		return nil, err
	}
	if err := setBookmarkTagsTx(ctx, tx, b.ID, tags); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Debug("bookmark created",
		"bookmark_id", b.ID, "user_id", userID, "category_id", categoryID,
		"contribution", fromShareID != "")
	return b, nil
}

// UpdateBookmark rewrites a bookmark's content, category, and tags.
// Only the contributor may update, regardless of where the bookmark sits;
// a foreign bookmark behaves like a missing one.
func (s *Store) UpdateBookmark(ctx context.Context, userID, bookmarkID string, w store.BookmarkWrite) (*domain.Bookmark, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	b, err := getBookmarkTx(ctx, tx, bookmarkID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, store.ErrNotFound
	}

	var categoryID, fromShareID string
	if w.NewCategoryName != "" {
		cat, _, err := s.resolveOrCreateCategoryTx(ctx, tx, userID, w.NewCategoryName, w.ParentCategoryID)
		if err != nil {
			return nil, err
		}
		categoryID = cat.ID
	} else {
		categoryID, fromShareID, err = resolveTargetCategoryTx(ctx, tx, userID, w.CategoryRef)
		if err != nil {
			return nil, err
		}
	}

	b.Title = w.Title
	b.URL = w.URL
	b.Description = w.Description
	b.Favicon = w.Favicon
	b.Theme = w.Theme
	b.CategoryID = categoryID
	b.FromShareID = fromShareID
	b.Touch()

	_, err = tx.ExecContext(ctx, `
		UPDATE bookmarks
		SET title = ?, url = ?, description = ?, favicon = ?, theme = ?,
		    category_id = ?, from_share_id = ?, updated_at = ?
		WHERE id = ?`,
		b.Title,
		b.URL,
		nullString(b.Description),
		nullString(b.Favicon),
		nullString(b.Theme),
		nullString(b.CategoryID),
		nullString(b.FromShareID),
		formatTime(b.UpdatedAt),
		b.ID,
	)
	if err != nil {
		return nil, err
	}

	tags, err := resolveTagsTx(ctx, tx, userID, w.Tags)
	if err != nil {
		return nil, err
	}
	if err := setBookmarkTagsTx(ctx, tx, b.ID, tags); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return b, nil
}

// GetBookmark retrieves a bookmark visible to userID: their own, one sitting
// in a category they own, or one in a category shared with them.
func (s *Store) GetBookmark(ctx context.Context, userID, bookmarkID string) (*domain.Bookmark, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+bookmarkColumns+` FROM bookmarks b
		WHERE b.id = ? AND (
			b.user_id = ?
			OR EXISTS (SELECT 1 FROM categories c
			           WHERE c.id = b.category_id AND c.user_id = ?)
			OR EXISTS (SELECT 1 FROM category_shares cs
			           WHERE cs.category_id = b.category_id AND cs.user_id = ?)
		)`,
		bookmarkID, userID, userID, userID)

	b, err := scanBookmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ArchiveBookmark soft-deletes a bookmark. The contributor archives in
// place. The owner of the shared category a foreign contribution sits in may
// archive it too, which additionally detaches the bookmark from the category
// and its grant so it lands in the contributor's own archive.
func (s *Store) ArchiveBookmark(ctx context.Context, viewerID, bookmarkID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	b, err := getBookmarkTx(ctx, tx, bookmarkID)
	if err != nil {
		return err
	}

	var categoryOwnerID string
	if b.CategoryID != "" {
		err = tx.QueryRowContext(ctx,
			`SELECT user_id FROM categories WHERE id = ?`, b.CategoryID).
			Scan(&categoryOwnerID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
	}

	now := formatTime(nowUTC())
	switch {
	case b.UserID == viewerID:
		_, err = tx.ExecContext(ctx, `
			UPDATE bookmarks SET deleted_at = ?, updated_at = ? WHERE id = ?`,
			now, now, b.ID)
	case categoryOwnerID == viewerID && categoryOwnerID != "":
		// Foreign contribution in the viewer's shared category: archive and
		// hand the row back to its contributor.
		_, err = tx.ExecContext(ctx, `
			UPDATE bookmarks
			SET deleted_at = ?, updated_at = ?, category_id = NULL, from_share_id = NULL
			WHERE id = ?`,
			now, now, b.ID)
	default:
		return domainerrors.Forbidden("only the contributor or the category owner may archive")
	}
	if err != nil {
		return err
	}

	return tx.Commit()
}

// RestoreBookmark clears the soft-delete marker. Contributor only.
func (s *Store) RestoreBookmark(ctx context.Context, userID, bookmarkID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE bookmarks SET deleted_at = NULL, updated_at = ?
		WHERE id = ? AND user_id = ? AND deleted_at IS NOT NULL`,
		formatTime(nowUTC()), bookmarkID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// MoveBookmark retargets a bookmark's category. Contributor only. An empty
// targetRef uncategorizes. Moving into a grant target records the grant as
// the bookmark's provenance; moving into an owned category clears it.
func (s *Store) MoveBookmark(ctx context.Context, userID, bookmarkID, targetRef string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	b, err := getBookmarkTx(ctx, tx, bookmarkID)
	if err != nil {
		return err
	}
	if b.UserID != userID {
		return domainerrors.Forbidden("only the contributor may move a bookmark")
	}

	categoryID, fromShareID, err := resolveTargetCategoryTx(ctx, tx, userID, targetRef)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE bookmarks SET category_id = ?, from_share_id = ?, updated_at = ?
		WHERE id = ?`,
		nullString(categoryID), nullString(fromShareID), formatTime(nowUTC()), b.ID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteBookmark removes a bookmark permanently and prunes its category when
// that leaves the category empty. Contributor only.
func (s *Store) DeleteBookmark(ctx context.Context, userID, bookmarkID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	b, err := getBookmarkTx(ctx, tx, bookmarkID)
	if err != nil {
		return err
	}
	if b.UserID != userID {
		return domainerrors.Forbidden("only the contributor may delete a bookmark")
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE id = ?`, b.ID); err != nil {
		return err
	}
	if err := pruneCategoryIfEmptyTx(ctx, tx, b.CategoryID); err != nil {
		return err
	}

	return tx.Commit()
}

// SetFavorite flips the favorite flag. Contributor only.
func (s *Store) SetFavorite(ctx context.Context, userID, bookmarkID string, favorite bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE bookmarks SET is_favorite = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		boolToInt(favorite), formatTime(nowUTC()), bookmarkID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// TrackClick bumps the click counter and stamps last_clicked. Any viewer the
// bookmark is visible to may click it.
func (s *Store) TrackClick(ctx context.Context, userID, bookmarkID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE bookmarks SET clicks = clicks + 1, last_clicked = ?
		WHERE id = ? AND (
			user_id = ?
			OR EXISTS (SELECT 1 FROM categories c
			           WHERE c.id = bookmarks.category_id AND c.user_id = ?)
			OR EXISTS (SELECT 1 FROM category_shares cs
			           WHERE cs.category_id = bookmarks.category_id AND cs.user_id = ?)
		)`,
		formatTime(nowUTC()), bookmarkID, userID, userID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListBookmarks returns the bookmarks visible to viewerID under the given
// filters, joined with tags, category names, and per-viewer permissions.
//
// Without a CategoryRef the listing is personal: the viewer's own live
// bookmarks, excluding contributions parked in other users' categories.
// With a CategoryRef naming an owned category, a held grant, or a category
// shared with the viewer, the listing covers every live bookmark in that
// category and its children regardless of contributor.
func (s *Store) ListBookmarks(ctx context.Context, viewerID string, opts store.ListOptions) ([]*domain.BookmarkView, error) {
	var (
		conds        []string
		args         []any
		shareOwnerID string
	)

	if opts.CategoryRef != "" {
		categoryID, ownerID, err := s.resolveListingCategory(ctx, viewerID, opts.CategoryRef)
		if err != nil {
			return nil, err
		}
		shareOwnerID = ownerID
		conds = append(conds,
			`b.category_id IN (SELECT id FROM categories WHERE id = ? OR parent_id = ?)`)
		args = append(args, categoryID, categoryID)
	} else {
		conds = append(conds, `b.user_id = ?`)
		args = append(args, viewerID)
		if !opts.Archived {
			conds = append(conds, `b.from_share_id IS NULL`)
		}
	}

	if opts.Archived {
		conds = append(conds, `b.deleted_at IS NOT NULL`)
	} else {
		conds = append(conds, `b.deleted_at IS NULL`)
	}
	if opts.FavoriteOnly {
		conds = append(conds, `b.is_favorite = 1`)
	}
	if opts.TagID != "" {
		conds = append(conds,
			`EXISTS (SELECT 1 FROM bookmark_tags bt WHERE bt.bookmark_id = b.id AND bt.tag_id = ?)`)
		args = append(args, opts.TagID)
	}

	order := `b.created_at DESC`
	switch opts.Order {
	case store.SortDateAsc:
		order = `b.created_at ASC`
	case store.SortClicksDesc:
		order = `b.clicks DESC, b.created_at DESC`
	case store.SortClicksAsc:
		order = `b.clicks ASC, b.created_at DESC`
	}

	query := fmt.Sprintf(`
		SELECT b.id, b.title, b.url, b.description, b.favicon, b.theme,
		       b.category_id, b.user_id, b.is_favorite, b.clicks, b.last_clicked,
		       b.created_at, b.updated_at, b.deleted_at, b.from_share_id,
		       COALESCE(c.name, '')
		FROM bookmarks b
		LEFT JOIN categories c ON c.id = b.category_id
		WHERE %s
		ORDER BY %s`,
		joinConds(conds), order)
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
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
		v.Permissions = domain.ResolvePermissions(&v.Bookmark, viewerID, shareOwnerID)
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

// resolveListingCategory maps a listing's category reference to the concrete
// category id and the id of the user owning it. Read access suffices: owned
// categories, grants held by the viewer, and categories the viewer shared out
// all qualify.
func (s *Store) resolveListingCategory(ctx context.Context, viewerID, ref string) (categoryID, ownerID string, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT c.id, c.user_id FROM categories c
		WHERE c.id = ? AND (
			c.user_id = ?
			OR EXISTS (SELECT 1 FROM category_shares cs
			           WHERE cs.category_id = c.id AND cs.user_id = ?)
		)`,
		ref, viewerID, viewerID).
		Scan(&categoryID, &ownerID)
	if err == nil {
		return categoryID, ownerID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", "", err
	}

	// Not a category id; try a grant id held by the viewer.
	err = s.db.QueryRowContext(ctx, `
		SELECT cs.category_id, cs.owner_id FROM category_shares cs
		WHERE cs.id = ? AND cs.user_id = ?`,
		ref, viewerID).
		Scan(&categoryID, &ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", store.ErrNotFound
	}
	if err != nil {
		return "", "", err
	}
	return categoryID, ownerID, nil
}

func scanBookmarkView(scanner interface{ Scan(dest ...any) error }) (*domain.BookmarkView, error) {
	var v domain.BookmarkView

	var (
		description sql.NullString
		favicon     sql.NullString
		theme       sql.NullString
		categoryID  sql.NullString
		isFavorite  int
		lastClicked sql.NullString
		createdAt   string
		updatedAt   string
		deletedAt   sql.NullString
		fromShareID sql.NullString
	)

	err := scanner.Scan(
		&v.ID,
		&v.Title,
		&v.URL,
		&description,
		&favicon,
		&theme,
		&categoryID,
		&v.UserID,
		&isFavorite,
		&v.Clicks,
		&lastClicked,
		&createdAt,
		&updatedAt,
		&deletedAt,
		&fromShareID,
		&v.CategoryName,
	)
	if err != nil {
		return nil, err
	}

	v.Description = description.String
	v.Favicon = favicon.String
	v.Theme = theme.String
	v.CategoryID = categoryID.String
	v.FromShareID = fromShareID.String
	v.IsFavorite = isFavorite != 0

	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if v.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if v.LastClicked, err = parseNullableTime(lastClicked); err != nil {
		return nil, err
	}
	if v.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
		return nil, err
	}

	return &v, nil
}

func joinConds(conds []string) string {
	out := conds[0]
	for _, c := range conds[1:] {
		out += " AND " + c
	}
	return out
}

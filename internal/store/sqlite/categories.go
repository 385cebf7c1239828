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

// categoryColumns is the ordered list of columns selected in category queries.
// Must match the scan order in scanCategory.
const categoryColumns = `id, name, user_id, parent_id`

// scanCategory scans a sql.Row (or sql.Rows via its Scan method) into a domain.Category.
func scanCategory(scanner interface{ Scan(dest ...any) error }) (*domain.Category, error) {
	var c domain.Category
	var parentID sql.NullString

	err := scanner.Scan(&c.ID, &c.Name, &c.UserID, &parentID)
	if err != nil {
		return nil, err
	}
	c.ParentID = parentID.String
	return &c, nil
}

// ResolveOrCreateCategory finds the user's category with the given name under
// parentID (empty for root), creating it when absent. The second return value
// reports whether a new row was created. A non-empty parentID must name a
// root category owned by the same user, otherwise ErrInvalidHierarchy.
func (s *Store) ResolveOrCreateCategory(ctx context.Context, userID, name, parentID string) (*domain.Category, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	cat, created, err := s.resolveOrCreateCategoryTx(ctx, tx, userID, name, parentID)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return cat, created, nil
}

func (s *Store) resolveOrCreateCategoryTx(ctx context.Context, tx *sql.Tx, userID, name, parentID string) (*domain.Category, bool, error) {
	if parentID != "" {
		parent, err := getCategoryTx(ctx, tx, userID, parentID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, false, domainerrors.InvalidHierarchy("parent category does not exist")
		}
		if err != nil {
			return nil, false, err
		}
		if !parent.CanParent() {
			return nil, false, domainerrors.InvalidHierarchy("categories nest at most one level deep")
		}
	}

	cat, err := findCategoryByNameTx(ctx, tx, userID, name, parentID)
	if err == nil {
		return cat, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	cat = &domain.Category{
		ID:       id.MustGenerate("cat"),
		Name:     name,
		UserID:   userID,
		ParentID: parentID,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO categories (id, name, user_id, parent_id)
		VALUES (?, ?, ?, ?)`,
		cat.ID, cat.Name, cat.UserID, nullString(cat.ParentID),
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost a race with a concurrent create; the winner's row serves.
			existing, ferr := findCategoryByNameTx(ctx, tx, userID, name, parentID)
			return existing, false, ferr
		}
		return nil, false, err
	}
	return cat, true, nil
}

func findCategoryByNameTx(ctx context.Context, tx *sql.Tx, userID, name, parentID string) (*domain.Category, error) {
	var row *sql.Row
	if parentID == "" {
		row = tx.QueryRowContext(ctx,
			`SELECT `+categoryColumns+` FROM categories
			 WHERE user_id = ? AND name = ? AND parent_id IS NULL`,
			userID, name)
	} else {
		row = tx.QueryRowContext(ctx,
			`SELECT `+categoryColumns+` FROM categories
			 WHERE user_id = ? AND name = ? AND parent_id = ?`,
			userID, name, parentID)
	}

	cat, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return cat, nil
}

func getCategoryTx(ctx context.Context, q querier, userID, categoryID string) (*domain.Category, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND user_id = ?`,
		categoryID, userID)

	cat, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return cat, nil
}

// GetCategory retrieves one of the user's categories by id.
// Returns store.ErrNotFound when absent or owned by someone else.
func (s *Store) GetCategory(ctx context.Context, userID, categoryID string) (*domain.Category, error) {
	return getCategoryTx(ctx, s.db, userID, categoryID)
}

// ListCategories returns all categories owned by the user, roots before
// children, each annotated with whether it carries share grants.
func (s *Store) ListCategories(ctx context.Context, userID string) ([]*domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.user_id, c.parent_id,
		       EXISTS (SELECT 1 FROM category_shares cs WHERE cs.category_id = c.id)
		FROM categories c
		WHERE c.user_id = ?
		ORDER BY c.parent_id IS NOT NULL, c.name`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []*domain.Category
	for rows.Next() {
		var c domain.Category
		var parentID sql.NullString
		var shared int
		if err := rows.Scan(&c.ID, &c.Name, &c.UserID, &parentID, &shared); err != nil {
			return nil, err
		}
		c.ParentID = parentID.String
		c.IsShared = shared != 0
		cats = append(cats, &c)
	}
	return cats, rows.Err()
}

// DeleteCategory removes one of the user's categories. Share grants must be
// revoked first; a category with any grant returns ErrHasActiveShares.
// Child categories are promoted to roots. Bookmarks directly inside are
// handled per mode: DeleteWithBookmarks hard-deletes them, DeleteCollectionOnly
// applies the given action (uncategorize, archive, or delete).
func (s *Store) DeleteCategory(ctx context.Context, userID, categoryID string, mode domain.CategoryDeleteMode, action domain.BookmarkAction) error {
	if !mode.Valid() {
		return domainerrors.Validation(fmt.Sprintf("unknown delete mode %q", mode))
	}
	if mode == domain.DeleteCollectionOnly && !action.Valid() {
		return domainerrors.Validation(fmt.Sprintf("unknown bookmark action %q", action))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := getCategoryTx(ctx, tx, userID, categoryID); err != nil {
		return err
	}

	var shareCount int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM category_shares WHERE category_id = ?`, categoryID).
		Scan(&shareCount)
	if err != nil {
		return err
	}
	if shareCount > 0 {
		return domainerrors.HasActiveShares("revoke all shares before deleting the category")
	}

	if mode == domain.DeleteWithBookmarks {
		action = domain.ActionDelete
	}
	switch action {
	case domain.ActionDelete:
		_, err = tx.ExecContext(ctx,
			`DELETE FROM bookmarks WHERE category_id = ?`, categoryID)
	case domain.ActionArchive:
		_, err = tx.ExecContext(ctx, `
			UPDATE bookmarks SET category_id = NULL, deleted_at = ?, updated_at = ?
			WHERE category_id = ? AND deleted_at IS NULL`,
			formatTime(nowUTC()), formatTime(nowUTC()), categoryID)
	case domain.ActionUncategorize:
		_, err = tx.ExecContext(ctx, `
			UPDATE bookmarks SET category_id = NULL, updated_at = ?
			WHERE category_id = ?`,
			formatTime(nowUTC()), categoryID)
	}
	if err != nil {
		return err
	}

	// Children are promoted to roots by the FK's SET NULL, but only names
	// that stay unique at the root may move; rename conflicts fail the tx.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ?`, categoryID); err != nil {
		if isUniqueViolation(err) {
			return domainerrors.Conflict("a child category name collides with an existing root category")
		}
		return err
	}

	return tx.Commit()
}

// pruneCategoryIfEmptyTx deletes the category when no bookmarks, children, or
// share grants reference it anymore. Called after hard bookmark deletes.
func pruneCategoryIfEmptyTx(ctx context.Context, tx *sql.Tx, categoryID string) error {
	if categoryID == "" {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		DELETE FROM categories WHERE id = ?
		  AND NOT EXISTS (SELECT 1 FROM bookmarks WHERE category_id = ?)
		  AND NOT EXISTS (SELECT 1 FROM categories WHERE parent_id = ?)
		  AND NOT EXISTS (SELECT 1 FROM category_shares WHERE category_id = ?)`,
		categoryID, categoryID, categoryID, categoryID)
	return err
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/linkstash/linkstash-server/internal/domain"
	"github.com/linkstash/linkstash-server/internal/id"
	"github.com/linkstash/linkstash-server/internal/store"
)

// tagColumns is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag.
const tagColumns = `id, name, user_id, created_at, updated_at`

// scanTag scans a sql.Row (or sql.Rows via its Scan method) into a domain.Tag.
func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var t domain.Tag
	var createdAt, updatedAt string

	err := scanner.Scan(&t.ID, &t.Name, &t.UserID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ResolveTags maps normalized tag names to tag rows, creating the missing
// ones. The same name always resolves to the same row for a given user.
func (s *Store) ResolveTags(ctx context.Context, userID string, names []string) ([]*domain.Tag, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tags, err := resolveTagsTx(ctx, tx, userID, names)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return tags, nil
}

func resolveTagsTx(ctx context.Context, tx *sql.Tx, userID string, names []string) ([]*domain.Tag, error) {
	tags := make([]*domain.Tag, 0, len(names))
	for _, name := range names {
		tag, err := findOrCreateTagTx(ctx, tx, userID, name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func findOrCreateTagTx(ctx context.Context, tx *sql.Tx, userID, name string) (*domain.Tag, error) {
	tag, err := findTagByNameTx(ctx, tx, userID, name)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	now := nowUTC()
	tag = &domain.Tag{
		ID:        id.MustGenerate("tag"),
		Name:      name,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO tags (id, name, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		tag.ID, tag.Name, tag.UserID, formatTime(now), formatTime(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Concurrent create of the same name; use the winner's row.
			return findTagByNameTx(ctx, tx, userID, name)
		}
		return nil, err
	}
	return tag, nil
}

func findTagByNameTx(ctx context.Context, tx *sql.Tx, userID, name string) (*domain.Tag, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE user_id = ? AND name = ?`,
		userID, name)

	tag, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// setBookmarkTagsTx replaces the bookmark's tag set wholesale.
func setBookmarkTagsTx(ctx context.Context, tx *sql.Tx, bookmarkID string, tags []*domain.Tag) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM bookmark_tags WHERE bookmark_id = ?`, bookmarkID); err != nil {
		return err
	}
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bookmark_tags (bookmark_id, tag_id)
			VALUES (?, ?)`,
			bookmarkID, tag.ID); err != nil {
			return err
		}
	}
	return nil
}

// ListTags returns the user's tags with live bookmark counts, most used first.
// Tags whose bookmarks were all archived or deleted still appear, with a
// count of zero.
func (s *Store) ListTags(ctx context.Context, userID string) ([]*domain.TagWithCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.user_id, t.created_at, t.updated_at,
		       COUNT(b.id)
		FROM tags t
		LEFT JOIN bookmark_tags bt ON bt.tag_id = t.id
		LEFT JOIN bookmarks b ON b.id = bt.bookmark_id AND b.deleted_at IS NULL
		WHERE t.user_id = ?
		GROUP BY t.id
		ORDER BY COUNT(b.id) DESC, t.name`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*domain.TagWithCount
	for rows.Next() {
		var t domain.TagWithCount
		var createdAt, updatedAt string
		if err := rows.Scan(&t.ID, &t.Name, &t.UserID, &createdAt, &updatedAt, &t.BookmarkCount); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, &t)
	}
	return tags, rows.Err()
}

// loadTagsForBookmark loads the tags attached to one bookmark.
func (s *Store) loadTagsForBookmark(ctx context.Context, q querier, bookmarkID string) ([]*domain.Tag, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT t.id, t.name, t.user_id, t.created_at, t.updated_at
		FROM tags t
		JOIN bookmark_tags bt ON bt.tag_id = t.id
		WHERE bt.bookmark_id = ?
		ORDER BY t.name`,
		bookmarkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*domain.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

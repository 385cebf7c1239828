// Package main inspects a linkstash database: row counts, share grant
// states, and ownership consistency of contributions.
//
// Usage:
//
//	DB_PATH=~/linkstash/db go run ./cmd/dbinspect
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"

	"github.com/linkstash/linkstash-server/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("sqlite", cfg.Database.Path+"?mode=ro")
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	for _, table := range []string{"users", "categories", "tags", "bookmarks", "bookmark_tags", "category_shares"} {
		var n int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			log.Fatalf("Failed to count %s: %v", table, err)
		}
		fmt.Printf("%-16s %d\n", table, n)
	}

	fmt.Println()
	printShareStates(ctx, db)
	fmt.Println()
	printBookmarkBreakdown(ctx, db)
	fmt.Println()
	checkConsistency(ctx, db)
}

func printShareStates(ctx context.Context, db *sql.DB) {
	var pending, accepted, writable int
	err := db.QueryRowContext(ctx, `
		SELECT
			COUNT(CASE WHEN user_id IS NULL THEN 1 END),
			COUNT(CASE WHEN user_id IS NOT NULL THEN 1 END),
			COUNT(CASE WHEN allow_write_access = 1 THEN 1 END)
		FROM category_shares`).
		Scan(&pending, &accepted, &writable)
	if err != nil {
		log.Fatalf("Failed to summarize shares: %v", err)
	}
	fmt.Printf("Share grants: %d pending, %d accepted, %d with write access\n",
		pending, accepted, writable)

	rows, err := db.QueryContext(ctx, `
		SELECT cs.id, c.name, ou.username, COALESCE(pu.username, '<pending>'),
		       cs.allow_write_access
		FROM category_shares cs
		JOIN categories c ON c.id = cs.category_id
		JOIN users ou ON ou.id = cs.owner_id
		LEFT JOIN users pu ON pu.id = cs.user_id
		ORDER BY cs.created_at`)
	if err != nil {
		log.Fatalf("Failed to list shares: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var shareID, catName, owner, participant string
		var write int
		if err := rows.Scan(&shareID, &catName, &owner, &participant, &write); err != nil {
			log.Fatalf("Failed to scan share: %v", err)
		}
		access := "read"
		if write == 1 {
			access = "read/write"
		}
		fmt.Printf("  %s  %s: %s -> %s (%s)\n", shareID, catName, owner, participant, access)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("Failed iterating shares: %v", err)
	}
}

func printBookmarkBreakdown(ctx context.Context, db *sql.DB) {
	rows, err := db.QueryContext(ctx, `
		SELECT u.username,
		       COUNT(CASE WHEN b.deleted_at IS NULL THEN 1 END),
		       COUNT(CASE WHEN b.deleted_at IS NOT NULL THEN 1 END),
		       COUNT(CASE WHEN b.from_share_id IS NOT NULL THEN 1 END)
		FROM users u
		LEFT JOIN bookmarks b ON b.user_id = u.id
		GROUP BY u.id
		ORDER BY u.username`)
	if err != nil {
		log.Fatalf("Failed to summarize bookmarks: %v", err)
	}
	defer rows.Close()

	fmt.Println("Bookmarks by contributor (live / archived / contributions):")
	for rows.Next() {
		var username string
		var live, archived, contributed int
		if err := rows.Scan(&username, &live, &archived, &contributed); err != nil {
			log.Fatalf("Failed to scan breakdown: %v", err)
		}
		fmt.Printf("  %-12s %d / %d / %d\n", username, live, archived, contributed)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("Failed iterating breakdown: %v", err)
	}
}

// checkConsistency flags rows that violate the ownership rules: contributions
// whose grant no longer exists, and contributions sitting in a category not
// covered by their grant.
func checkConsistency(ctx context.Context, db *sql.DB) {
	var orphaned int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookmarks b
		WHERE b.from_share_id IS NOT NULL
		  AND NOT EXISTS (SELECT 1 FROM category_shares cs WHERE cs.id = b.from_share_id)`).
		Scan(&orphaned)
	if err != nil {
		log.Fatalf("Failed consistency check: %v", err)
	}

	var mismatched int
	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookmarks b
		JOIN category_shares cs ON cs.id = b.from_share_id
		WHERE b.category_id IS NOT NULL
		  AND b.category_id NOT IN (
			SELECT id FROM categories WHERE id = cs.category_id OR parent_id = cs.category_id
		  )`).
		Scan(&mismatched)
	if err != nil {
		log.Fatalf("Failed consistency check: %v", err)
	}

	if orphaned == 0 && mismatched == 0 {
		fmt.Println("Consistency: OK")
		return
	}
	fmt.Printf("Consistency: %d orphaned contributions, %d outside their grant's category\n",
		orphaned, mismatched)
}

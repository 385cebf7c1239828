// Package main seeds the database with demo data.
//
// It creates demo users, categories, tagged bookmarks, and walks a full
// sharing round trip (share, accept, contribute, revoke is left to the user)
// so the listing and permission features have something to show.
//
// Usage:
//
//	DB_PATH=~/linkstash/db go run ./cmd/seed
//	DB_PATH=~/linkstash/db go run ./cmd/seed --create-users  # Also create demo users
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/linkstash/linkstash-server/internal/auth"
	"github.com/linkstash/linkstash-server/internal/config"
	"github.com/linkstash/linkstash-server/internal/domain"
	"github.com/linkstash/linkstash-server/internal/id"
	"github.com/linkstash/linkstash-server/internal/logger"
	"github.com/linkstash/linkstash-server/internal/service"
	"github.com/linkstash/linkstash-server/internal/store"
	"github.com/linkstash/linkstash-server/internal/store/sqlite"
	"github.com/linkstash/linkstash-server/internal/validation"
)

var createUsers = flag.Bool("create-users", false, "Create demo users before seeding")

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Printf("Opening database at: %s\n", cfg.Database.Path)

	lg := logger.New(logger.Config{
		Format:      cfg.Logger.Format,
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	})
	s, err := sqlite.Open(cfg.Database.Path, lg.Logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	if *createUsers {
		createDemoUsers(ctx, s)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		log.Fatalf("Failed to get users: %v", err)
	}
	if len(users) == 0 {
		log.Fatal("No users found in database. Run with --create-users first.")
	}
	fmt.Printf("Found %d users\n", len(users))

	v := validation.New()
	bookmarks := service.NewBookmarkService(s, v, lg.Logger)
	categories := service.NewCategoryService(s, v, lg.Logger)
	sharing := service.NewSharingService(s, lg.Logger)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, user := range users {
		fmt.Printf("\nSeeding bookmarks for user: %s (%s)\n", user.Username, user.ID)
		seedBookmarks(ctx, bookmarks, categories, user, rng)
	}

	if len(users) >= 2 {
		seedSharing(ctx, sharing, bookmarks, categories, users[0], users[1])
	}

	fmt.Println("\nDone.")
}

func createDemoUsers(ctx context.Context, s store.Store) {
	for _, username := range []string{"alice", "bob", "carol"} {
		if _, err := s.GetUserByUsername(ctx, username); err == nil {
			fmt.Printf("User %s already exists, skipping\n", username)
			continue
		}

		hash, err := auth.HashPassword("demo-password")
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}
		u := &domain.User{
			ID:           id.MustGenerate("user"),
			Username:     username,
			Email:        username + "@example.com",
			PasswordHash: hash,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.CreateUser(ctx, u); err != nil {
			log.Fatalf("Failed to create user %s: %v", username, err)
		}
		fmt.Printf("Created user %s (%s)\n", username, u.ID)
	}
}

var demoCategories = map[string][]string{
	"dev":     {"go", "databases", "testing"},
	"reading": {"articles", "papers"},
	"cooking": {},
}

var demoTags = []string{"go", "sqlite", "reference", "later", "weekend", "deep dive"}

func seedBookmarks(ctx context.Context, bookmarks *service.BookmarkService, categories *service.CategoryService, user *domain.User, rng *rand.Rand) {
	for rootName, children := range demoCategories {
		root, _, err := categories.Create(ctx, user.ID, service.CreateCategoryInput{Name: rootName})
		if err != nil {
			log.Printf("Failed to create category %s: %v", rootName, err)
			continue
		}
		targets := []string{root.ID}
		for _, childName := range children {
			child, _, err := categories.Create(ctx, user.ID, service.CreateCategoryInput{
				Name: childName, ParentID: root.ID,
			})
			if err != nil {
				log.Printf("Failed to create category %s/%s: %v", rootName, childName, err)
				continue
			}
			targets = append(targets, child.ID)
		}

		n := 2 + rng.Intn(4)
		for i := range n {
			tags := demoTags[:1+rng.Intn(3)]
			b, err := bookmarks.Create(ctx, user.ID, service.CreateBookmarkInput{
				Title:       fmt.Sprintf("%s link %d", rootName, i+1),
				URL:         "https://example.com/" + uuid.NewString(),
				Description: "seeded bookmark",
				CategoryRef: targets[rng.Intn(len(targets))],
				Tags:        tags,
			})
			if err != nil {
				log.Printf("Failed to create bookmark: %v", err)
				continue
			}
			if rng.Intn(4) == 0 {
				bookmarks.SetFavorite(ctx, user.ID, b.ID, true)
			}
			for range rng.Intn(5) {
				bookmarks.TrackClick(ctx, user.ID, b.ID)
			}
		}
	}
}

// seedSharing shares the first user's reading category with the second user
// and contributes one bookmark back through the grant.
func seedSharing(ctx context.Context, sharing *service.SharingService, bookmarks *service.BookmarkService, categories *service.CategoryService, owner, participant *domain.User) {
	fmt.Printf("\nSharing %s's reading category with %s\n", owner.Username, participant.Username)

	cat, _, err := categories.Create(ctx, owner.ID, service.CreateCategoryInput{Name: "reading"})
	if err != nil {
		log.Printf("Failed to resolve reading category: %v", err)
		return
	}

	share, err := sharing.Share(ctx, owner.ID, cat.ID)
	if err != nil {
		log.Printf("Failed to create share: %v", err)
		return
	}
	fmt.Printf("Invitation token: %s\n", share.Token)

	if _, err := sharing.Accept(ctx, participant.ID, share.Token); err != nil {
		log.Printf("Failed to accept share: %v", err)
		return
	}
	if err := sharing.SetWriteAccess(ctx, owner.ID, share.ID, true); err != nil {
		log.Printf("Failed to enable write access: %v", err)
		return
	}

	b, err := bookmarks.Create(ctx, participant.ID, service.CreateBookmarkInput{
		Title:       "Contributed by " + participant.Username,
		URL:         "https://example.com/" + uuid.NewString(),
		CategoryRef: share.ID,
		Tags:        []string{"shared"},
	})
	if err != nil {
		log.Printf("Failed to contribute bookmark: %v", err)
		return
	}
	fmt.Printf("Contributed bookmark %s through grant %s\n", b.ID, share.ID)
}

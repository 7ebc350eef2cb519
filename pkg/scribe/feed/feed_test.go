package feed

import (
	"errors"
	"testing"
	"time"

	"github.com/mfedorov/scribe/pkg/scribe/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) models.User {
	user := models.User{Username: username, Email: username + "@example.com", PasswordHash: "hash"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return user
}

func createGroup(t *testing.T, db *gorm.DB, slug string) models.Group {
	group := models.Group{Title: slug, Slug: slug}
	if err := db.Create(&group).Error; err != nil {
		t.Fatalf("Failed to create group %s: %v", slug, err)
	}
	return group
}

func createPostAt(t *testing.T, db *gorm.DB, authorID uint, groupID *uint, text string, at time.Time) models.Post {
	post := models.Post{Text: text, AuthorID: authorID, GroupID: groupID, CreatedAt: at}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("Failed to create post %q: %v", text, err)
	}
	return post
}

func postTexts(posts []models.Post) []string {
	texts := make([]string, len(posts))
	for i, p := range posts {
		texts[i] = p.Text
	}
	return texts
}

func TestGlobalFeedOrdering(t *testing.T) {
	db := setupTestDB(t)
	queries := NewQueries(db)
	alice := createUser(t, db, "alice")

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	createPostAt(t, db, alice.ID, nil, "oldest", base)
	createPostAt(t, db, alice.ID, nil, "newest", base.Add(2*time.Hour))
	createPostAt(t, db, alice.ID, nil, "middle", base.Add(time.Hour))

	var posts []models.Post
	if err := queries.Global().Find(&posts).Error; err != nil {
		t.Fatalf("Global feed failed: %v", err)
	}

	want := []string{"newest", "middle", "oldest"}
	got := postTexts(posts)
	if len(got) != len(want) {
		t.Fatalf("Expected %d posts, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Position %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestGlobalFeedStableTieBreak(t *testing.T) {
	db := setupTestDB(t)
	queries := NewQueries(db)
	alice := createUser(t, db, "alice")

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	createPostAt(t, db, alice.ID, nil, "first", at)
	createPostAt(t, db, alice.ID, nil, "second", at)

	for i := 0; i < 3; i++ {
		var posts []models.Post
		if err := queries.Global().Find(&posts).Error; err != nil {
			t.Fatalf("Global feed failed: %v", err)
		}
		got := postTexts(posts)
		if got[0] != "second" || got[1] != "first" {
			t.Errorf("Expected stable [second first] for equal timestamps, got %v", got)
		}
	}
}

func TestGroupFeedFiltering(t *testing.T) {
	db := setupTestDB(t)
	queries := NewQueries(db)
	alice := createUser(t, db, "alice")
	g1 := createGroup(t, db, "g1")
	g2 := createGroup(t, db, "g2")

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	createPostAt(t, db, alice.ID, &g1.ID, "in g1", base)
	createPostAt(t, db, alice.ID, &g2.ID, "in g2", base.Add(time.Minute))
	createPostAt(t, db, alice.ID, nil, "no group", base.Add(2*time.Minute))

	group, query, err := queries.Group("g1")
	if err != nil {
		t.Fatalf("Group feed failed: %v", err)
	}
	if group.Slug != "g1" {
		t.Errorf("Expected group g1, got %s", group.Slug)
	}

	var posts []models.Post
	if err := query.Find(&posts).Error; err != nil {
		t.Fatalf("Group feed query failed: %v", err)
	}
	if len(posts) != 1 || posts[0].Text != "in g1" {
		t.Errorf("Expected exactly the g1 post, got %v", postTexts(posts))
	}
}

func TestGroupFeedNotFound(t *testing.T) {
	db := setupTestDB(t)
	queries := NewQueries(db)

	_, _, err := queries.Group("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown slug, got %v", err)
	}
}

func TestAuthorFeedFiltering(t *testing.T) {
	db := setupTestDB(t)
	queries := NewQueries(db)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	createPostAt(t, db, alice.ID, nil, "by alice", base)
	createPostAt(t, db, bob.ID, nil, "by bob", base.Add(time.Minute))

	author, query, err := queries.Author("alice")
	if err != nil {
		t.Fatalf("Author feed failed: %v", err)
	}
	if author.Username != "alice" {
		t.Errorf("Expected author alice, got %s", author.Username)
	}

	var posts []models.Post
	if err := query.Find(&posts).Error; err != nil {
		t.Fatalf("Author feed query failed: %v", err)
	}
	if len(posts) != 1 || posts[0].Text != "by alice" {
		t.Errorf("Expected exactly alice's post, got %v", postTexts(posts))
	}
}

func TestAuthorFeedNotFound(t *testing.T) {
	db := setupTestDB(t)
	queries := NewQueries(db)

	_, _, err := queries.Author("nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown username, got %v", err)
	}
}

func TestFollowerFeed(t *testing.T) {
	db := setupTestDB(t)
	queries := NewQueries(db)
	viewer := createUser(t, db, "viewer")
	followed := createUser(t, db, "followed")
	other := createUser(t, db, "other")

	db.Create(&models.Follow{UserID: viewer.ID, AuthorID: followed.ID})

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	createPostAt(t, db, followed.ID, nil, "from followed", base)
	createPostAt(t, db, other.ID, nil, "from other", base.Add(time.Minute))
	createPostAt(t, db, viewer.ID, nil, "own post", base.Add(2*time.Minute))

	var posts []models.Post
	if err := queries.Follower(viewer.ID).Find(&posts).Error; err != nil {
		t.Fatalf("Follower feed failed: %v", err)
	}
	if len(posts) != 1 || posts[0].Text != "from followed" {
		t.Errorf("Expected exactly the followed author's post, got %v", postTexts(posts))
	}
}

func TestFollowerFeedEmptyWhenFollowingNobody(t *testing.T) {
	db := setupTestDB(t)
	queries := NewQueries(db)
	viewer := createUser(t, db, "viewer")
	other := createUser(t, db, "other")

	createPostAt(t, db, other.ID, nil, "unseen", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	var posts []models.Post
	if err := queries.Follower(viewer.ID).Find(&posts).Error; err != nil {
		t.Fatalf("Follower feed failed: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("Expected empty feed when following nobody, got %v", postTexts(posts))
	}
}

func TestIsFollowing(t *testing.T) {
	db := setupTestDB(t)
	queries := NewQueries(db)
	viewer := createUser(t, db, "viewer")
	author := createUser(t, db, "author")

	following, err := queries.IsFollowing(viewer.ID, author.ID)
	if err != nil || following {
		t.Errorf("Expected not following before edge exists (err %v)", err)
	}

	db.Create(&models.Follow{UserID: viewer.ID, AuthorID: author.ID})

	following, err = queries.IsFollowing(viewer.ID, author.ID)
	if err != nil || !following {
		t.Errorf("Expected following after edge exists (err %v)", err)
	}

	// Unauthenticated viewer
	following, err = queries.IsFollowing(0, author.ID)
	if err != nil || following {
		t.Errorf("Expected not following for anonymous viewer (err %v)", err)
	}
}

func TestEndToEndScenario(t *testing.T) {
	db := setupTestDB(t)
	queries := NewQueries(db)
	alice := createUser(t, db, "alice")
	g1 := createGroup(t, db, "g1")

	createPostAt(t, db, alice.ID, &g1.ID, "hello", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	var global []models.Post
	queries.Global().Find(&global)
	if len(global) != 1 || global[0].Text != "hello" {
		t.Errorf("Global feed: expected [hello], got %v", postTexts(global))
	}

	_, groupQuery, err := queries.Group("g1")
	if err != nil {
		t.Fatalf("Group feed failed: %v", err)
	}
	var grouped []models.Post
	groupQuery.Find(&grouped)
	if len(grouped) != 1 || grouped[0].Text != "hello" {
		t.Errorf("Group feed: expected [hello], got %v", postTexts(grouped))
	}

	_, authorQuery, err := queries.Author("alice")
	if err != nil {
		t.Fatalf("Author feed failed: %v", err)
	}
	var authored []models.Post
	authorQuery.Find(&authored)
	if len(authored) != 1 || authored[0].Text != "hello" {
		t.Errorf("Author feed: expected [hello], got %v", postTexts(authored))
	}
}

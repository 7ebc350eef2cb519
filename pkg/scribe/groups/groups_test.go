package groups

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
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

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db, 10)
	handler.RegisterRoutes(r.Group("/api"))
	return r
}

func doGet(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestListGroups(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(db)

	db.Create(&models.Group{Title: "Travel", Slug: "travel"})
	db.Create(&models.Group{Title: "Cooking", Slug: "cooking"})

	resp := doGet(r, "/api/groups")
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var groups []GroupResponse
	json.Unmarshal(resp.Body.Bytes(), &groups)
	if len(groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(groups))
	}
	if groups[0].Title != "Cooking" || groups[1].Title != "Travel" {
		t.Errorf("Expected groups ordered by title, got %+v", groups)
	}
}

func TestGroupFeed(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(db)

	user := models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	db.Create(&user)
	group := models.Group{Title: "Go", Slug: "go", Description: "Posts about Go"}
	db.Create(&group)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	db.Create(&models.Post{Text: "in group", AuthorID: user.ID, GroupID: &group.ID, CreatedAt: base})
	db.Create(&models.Post{Text: "outside", AuthorID: user.ID, CreatedAt: base.Add(time.Minute)})

	resp := doGet(r, "/api/groups/go")
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var detail GroupDetailResponse
	json.Unmarshal(resp.Body.Bytes(), &detail)
	if detail.Slug != "go" || detail.Description != "Posts about Go" {
		t.Errorf("Expected group go, got %+v", detail.GroupResponse)
	}
	if len(detail.Feed.Posts) != 1 || detail.Feed.Posts[0].Text != "in group" {
		t.Errorf("Expected only the group's post, got %+v", detail.Feed.Posts)
	}
}

func TestGroupFeedPagination(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(db)

	user := models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	db.Create(&user)
	group := models.Group{Title: "Go", Slug: "go"}
	db.Create(&group)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 13; i++ {
		db.Create(&models.Post{
			Text: fmt.Sprintf("post %d", i), AuthorID: user.ID, GroupID: &group.ID,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	resp := doGet(r, "/api/groups/go?page=2")
	var detail GroupDetailResponse
	json.Unmarshal(resp.Body.Bytes(), &detail)
	if len(detail.Feed.Posts) != 3 || detail.Feed.Page != 2 || detail.Feed.HasNext {
		t.Errorf("Expected final page of 3, got %+v", detail.Feed)
	}
}

func TestGroupNotFound(t *testing.T) {
	db := setupTestDB(t)
	r := setupTestRouter(db)

	resp := doGet(r, "/api/groups/missing")
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

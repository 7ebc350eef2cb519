package posts

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mfedorov/scribe/pkg/scribe/auth"
	"github.com/mfedorov/scribe/pkg/scribe/feed"
	"github.com/mfedorov/scribe/pkg/scribe/feedcache"
	"github.com/mfedorov/scribe/pkg/scribe/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Handler handles post, feed, and comment requests
type Handler struct {
	db       *gorm.DB
	queries  *feed.Queries
	cache    *feedcache.Cache
	mediaDir string

	indexPageSize   int
	profilePageSize int
}

// NewHandler creates a new posts handler
func NewHandler(db *gorm.DB, cache *feedcache.Cache, mediaDir string, indexPageSize, profilePageSize int) *Handler {
	return &Handler{
		db:              db,
		queries:         feed.NewQueries(db),
		cache:           cache,
		mediaDir:        mediaDir,
		indexPageSize:   indexPageSize,
		profilePageSize: profilePageSize,
	}
}

// CreatePostRequest represents the request to create a post.
// Accepted as JSON or as a multipart form (the latter may carry an image).
type CreatePostRequest struct {
	Text    string `json:"text" form:"text" binding:"required"`
	GroupID *uint  `json:"group_id" form:"group_id"`
}

// UpdatePostRequest represents the request to update a post
type UpdatePostRequest struct {
	Text        string `json:"text" form:"text"`
	GroupID     *uint  `json:"group_id" form:"group_id"`
	RemoveGroup bool   `json:"remove_group" form:"remove_group"`
	RemoveImage bool   `json:"remove_image" form:"remove_image"`
}

// CommentRequest represents the request to add a comment
type CommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// GroupRef identifies a post's group in responses
type GroupRef struct {
	ID    uint   `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// PostResponse represents a post in API responses
type PostResponse struct {
	ID        uint      `json:"id"`
	Text      string    `json:"text"`
	AuthorID  uint      `json:"author_id"`
	Author    string    `json:"author"`
	Group     *GroupRef `json:"group,omitempty"`
	ImagePath string    `json:"image_path,omitempty"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

// CommentResponse represents a comment in API responses
type CommentResponse struct {
	ID        uint   `json:"id"`
	PostID    uint   `json:"post_id"`
	AuthorID  uint   `json:"author_id"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

// FeedResponse represents one page of a feed
type FeedResponse struct {
	Posts      []PostResponse `json:"posts"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
	TotalCount int64          `json:"total_count"`
	HasNext    bool           `json:"has_next"`
	HasPrev    bool           `json:"has_prev"`
}

func postToResponse(post models.Post) PostResponse {
	resp := PostResponse{
		ID:        post.ID,
		Text:      post.Text,
		AuthorID:  post.AuthorID,
		Author:    post.Author.Username,
		ImagePath: post.ImagePath,
		CreatedAt: post.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: post.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if post.Group != nil {
		resp.Group = &GroupRef{ID: post.Group.ID, Slug: post.Group.Slug, Title: post.Group.Title}
	}
	return resp
}

func commentToResponse(comment models.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID,
		PostID:    comment.PostID,
		AuthorID:  comment.AuthorID,
		Author:    comment.Author.Username,
		Text:      comment.Text,
		CreatedAt: comment.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// PageToResponse converts a feed page to its response form
func PageToResponse(page *feed.Page) FeedResponse {
	posts := make([]PostResponse, len(page.Posts))
	for i, post := range page.Posts {
		posts[i] = postToResponse(post)
	}
	return FeedResponse{
		Posts:      posts,
		Page:       page.Number,
		TotalPages: page.TotalPages,
		TotalCount: page.TotalCount,
		HasNext:    page.HasNext,
		HasPrev:    page.HasPrev,
	}
}

// Index returns the global feed
// @Summary Global feed
// @Description Get the paginated global feed of all posts, newest first. The rendered page is cached with a fixed TTL; new posts appear once the TTL elapses or the cache is cleared.
// @Tags feed
// @Produce json
// @Param page query int false "Page number (1-indexed, clamps to last page)"
// @Success 200 {object} FeedResponse
// @Router /feed [get]
func (h *Handler) Index(c *gin.Context) {
	query := h.queries.Global()

	// The cache is keyed by the canonical page number, never the raw query
	// parameter, so the key space is bounded by the page count.
	number := feed.ParsePage(c.Query("page"))
	totalPages, _, err := feed.PageCount(query, h.indexPageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch feed"})
		return
	}
	if number > totalPages {
		number = totalPages
	}

	body, _, err := h.cache.GetOrCompute(fmt.Sprintf("feed:page:%d", number), func() ([]byte, error) {
		page, err := feed.PaginateAt(query, h.indexPageSize, number)
		if err != nil {
			return nil, err
		}
		return json.Marshal(PageToResponse(page))
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch feed"})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// ProfileResponse represents an author profile with their feed
type ProfileResponse struct {
	ID        uint         `json:"id"`
	Username  string       `json:"username"`
	Name      string       `json:"name"`
	Bio       string       `json:"bio,omitempty"`
	Following bool         `json:"following"`
	Feed      FeedResponse `json:"feed"`
}

// Profile returns an author's profile and their feed
// @Summary Author profile
// @Description Get an author's profile with their paginated posts. For an authenticated viewer the response includes whether the viewer follows the author.
// @Tags feed
// @Produce json
// @Param username path string true "Author username"
// @Param page query int false "Page number"
// @Success 200 {object} ProfileResponse
// @Failure 404 {object} map[string]string "User not found"
// @Router /profiles/{username} [get]
func (h *Handler) Profile(c *gin.Context) {
	username := c.Param("username")

	author, query, err := h.queries.Author(username)
	if err != nil {
		if errors.Is(err, feed.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}

	page, err := feed.Paginate(query, h.profilePageSize, c.Query("page"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}

	viewerID, _ := auth.GetUserID(c)
	following, err := h.queries.IsFollowing(viewerID, author.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{
		ID:        author.ID,
		Username:  author.Username,
		Name:      author.Name,
		Bio:       author.Bio,
		Following: following,
		Feed:      PageToResponse(page),
	})
}

// PostDetailResponse represents a post with its comments
type PostDetailResponse struct {
	PostResponse
	Comments []CommentResponse `json:"comments"`
}

// Detail returns a single post with its comments
// @Summary Get a post
// @Description Get a single post with its comments
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} PostDetailResponse
// @Failure 404 {object} map[string]string "Post not found"
// @Router /posts/{id} [get]
func (h *Handler) Detail(c *gin.Context) {
	post, ok := h.findPost(c)
	if !ok {
		return
	}

	comments, ok := h.loadComments(c, post.ID)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, PostDetailResponse{
		PostResponse: postToResponse(*post),
		Comments:     comments,
	})
}

// Create creates a new post
// @Summary Create a post
// @Description Create a post, optionally classified under a group and carrying an image (multipart field "image")
// @Tags posts
// @Accept json
// @Accept mpfd
// @Produce json
// @Param request body CreatePostRequest true "Post details"
// @Success 201 {object} PostResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Group not found"
// @Security BearerAuth
// @Router /posts [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreatePostRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// A post's group reference, if present, must name an existing group
	if req.GroupID != nil {
		var group models.Group
		if err := h.db.First(&group, *req.GroupID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
			return
		}
	}

	imagePath, err := h.saveImage(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post := models.Post{
		Text:      req.Text,
		AuthorID:  userID,
		GroupID:   req.GroupID,
		ImagePath: imagePath,
	}

	if err := h.db.Create(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	// Reload with relations for the response. The feed cache is left alone:
	// expiry is TTL-only, so the post surfaces on the global feed once the
	// current rendering ages out.
	h.db.Preload("Author").Preload("Group").First(&post, post.ID)

	c.JSON(http.StatusCreated, postToResponse(post))
}

// Update updates a post. Only the author may edit.
// @Summary Update a post
// @Description Update a post's text, group, or image. Only the author may edit; anyone else gets 403.
// @Tags posts
// @Accept json
// @Accept mpfd
// @Produce json
// @Param id path int true "Post ID"
// @Param request body UpdatePostRequest true "Updated post details"
// @Success 200 {object} PostResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Only the author can edit this post"
// @Failure 404 {object} map[string]string "Post not found"
// @Security BearerAuth
// @Router /posts/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	post, ok := h.findPost(c)
	if !ok {
		return
	}

	if post.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the author can edit this post"})
		return
	}

	var req UpdatePostRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Text != "" {
		post.Text = req.Text
	}
	if req.RemoveGroup {
		post.GroupID = nil
	} else if req.GroupID != nil {
		var group models.Group
		if err := h.db.First(&group, *req.GroupID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
			return
		}
		post.GroupID = req.GroupID
	}

	if req.RemoveImage {
		post.ImagePath = ""
	}
	imagePath, err := h.saveImage(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if imagePath != "" {
		post.ImagePath = imagePath
	}

	// The loaded relations must not be written back with the post
	if err := h.db.Omit(clause.Associations).Save(post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update post"})
		return
	}

	h.db.Preload("Author").Preload("Group").First(post, post.ID)

	c.JSON(http.StatusOK, postToResponse(*post))
}

// Delete deletes a post and its comments. Only the author may delete.
// @Summary Delete a post
// @Description Delete a post; its comments are removed with it
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} map[string]string "Post deleted"
// @Failure 403 {object} map[string]string "Only the author can delete this post"
// @Failure 404 {object} map[string]string "Post not found"
// @Security BearerAuth
// @Router /posts/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	post, ok := h.findPost(c)
	if !ok {
		return
	}

	if post.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the author can delete this post"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(post).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

// ListComments returns a post's comments, oldest first
// @Summary List comments
// @Description Get all comments on a post, oldest first
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {array} CommentResponse
// @Failure 404 {object} map[string]string "Post not found"
// @Router /posts/{id}/comments [get]
func (h *Handler) ListComments(c *gin.Context) {
	post, ok := h.findPost(c)
	if !ok {
		return
	}

	comments, ok := h.loadComments(c, post.ID)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, comments)
}

// AddComment adds a comment to a post
// @Summary Add a comment
// @Description Comment on an existing post
// @Tags posts
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body CommentRequest true "Comment text"
// @Success 201 {object} CommentResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Post not found"
// @Security BearerAuth
// @Router /posts/{id}/comments [post]
func (h *Handler) AddComment(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	post, ok := h.findPost(c)
	if !ok {
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment := models.Comment{
		Text:     req.Text,
		PostID:   post.ID,
		AuthorID: userID,
	}

	if err := h.db.Create(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}

	h.db.Preload("Author").First(&comment, comment.ID)

	c.JSON(http.StatusCreated, commentToResponse(comment))
}

// findPost loads the post named by the :id route param, responding 404 on
// a bad ID or missing row.
func (h *Handler) findPost(c *gin.Context) (*models.Post, bool) {
	postID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return nil, false
	}

	var post models.Post
	if err := h.db.Preload("Author").Preload("Group").First(&post, uint(postID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return nil, false
	}
	return &post, true
}

func (h *Handler) loadComments(c *gin.Context, postID uint) ([]CommentResponse, bool) {
	var comments []models.Comment
	err := h.db.Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return nil, false
	}

	responses := make([]CommentResponse, len(comments))
	for i, comment := range comments {
		responses[i] = commentToResponse(comment)
	}
	return responses, true
}

// RegisterRoutes registers public post and feed routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/feed", h.Index)
	rg.GET("/profiles/:username", auth.OptionalAuthMiddleware(), h.Profile)
	rg.GET("/posts/:id", h.Detail)
	rg.GET("/posts/:id/comments", h.ListComments)
}

// RegisterAuthedRoutes registers routes that require authentication
func (h *Handler) RegisterAuthedRoutes(rg *gin.RouterGroup) {
	rg.POST("/posts", h.Create)
	rg.PUT("/posts/:id", h.Update)
	rg.DELETE("/posts/:id", h.Delete)
	rg.POST("/posts/:id/comments", h.AddComment)
}

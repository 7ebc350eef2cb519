package follows

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mfedorov/scribe/pkg/scribe/auth"
	"github.com/mfedorov/scribe/pkg/scribe/feed"
	"github.com/mfedorov/scribe/pkg/scribe/models"
	"github.com/mfedorov/scribe/pkg/scribe/posts"
	"gorm.io/gorm"
)

// Handler handles follow edges and the follower feed
type Handler struct {
	db       *gorm.DB
	queries  *feed.Queries
	pageSize int
}

// NewHandler creates a new follows handler
func NewHandler(db *gorm.DB, pageSize int) *Handler {
	return &Handler{
		db:       db,
		queries:  feed.NewQueries(db),
		pageSize: pageSize,
	}
}

// FollowResponse reports the state of the edge after the operation
type FollowResponse struct {
	Username  string `json:"username"`
	Following bool   `json:"following"`
}

// Follow creates a follow edge from the caller to the named author.
//
// Following yourself is rejected. A duplicate edge is not an error from the
// caller's side: the insert relies on the store's composite unique index, and
// a constraint violation is answered exactly like a fresh follow. The insert
// is a single atomic create, never a check-then-act.
// @Summary Follow an author
// @Description Subscribe to an author's posts. Idempotent: following an already-followed author succeeds.
// @Tags follows
// @Produce json
// @Param username path string true "Author username"
// @Success 200 {object} FollowResponse
// @Failure 400 {object} map[string]string "Cannot follow yourself"
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /profiles/{username}/follow [post]
func (h *Handler) Follow(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	author, ok := h.findAuthor(c)
	if !ok {
		return
	}

	if author.ID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot follow yourself"})
		return
	}

	edge := models.Follow{UserID: userID, AuthorID: author.ID}
	if err := h.db.Create(&edge).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to follow"})
			return
		}
		// Edge already exists: the outcome the caller wanted
	}

	c.JSON(http.StatusOK, FollowResponse{Username: author.Username, Following: true})
}

// Unfollow removes the follow edge from the caller to the named author.
// Removing an absent edge is not an error.
// @Summary Unfollow an author
// @Description Unsubscribe from an author's posts. Idempotent.
// @Tags follows
// @Produce json
// @Param username path string true "Author username"
// @Success 200 {object} FollowResponse
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /profiles/{username}/follow [delete]
func (h *Handler) Unfollow(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	author, ok := h.findAuthor(c)
	if !ok {
		return
	}

	err := h.db.Where("user_id = ? AND author_id = ?", userID, author.ID).
		Delete(&models.Follow{}).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unfollow"})
		return
	}

	c.JSON(http.StatusOK, FollowResponse{Username: author.Username, Following: false})
}

// FollowerFeed returns posts by the authors the caller follows.
// Never cached, unlike the global feed.
// @Summary Follower feed
// @Description Get the paginated feed of posts by followed authors. Empty when following nobody.
// @Tags feed
// @Produce json
// @Param page query int false "Page number"
// @Success 200 {object} posts.FeedResponse
// @Security BearerAuth
// @Router /feed/following [get]
func (h *Handler) FollowerFeed(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	page, err := feed.Paginate(h.queries.Follower(userID), h.pageSize, c.Query("page"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch feed"})
		return
	}

	c.JSON(http.StatusOK, posts.PageToResponse(page))
}

func (h *Handler) findAuthor(c *gin.Context) (*models.User, bool) {
	var author models.User
	if err := h.db.Where("username = ?", c.Param("username")).First(&author).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return nil, false
	}
	return &author, true
}

// RegisterRoutes registers follow routes. All require authentication.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/feed/following", h.FollowerFeed)
	rg.POST("/profiles/:username/follow", h.Follow)
	rg.DELETE("/profiles/:username/follow", h.Unfollow)
}

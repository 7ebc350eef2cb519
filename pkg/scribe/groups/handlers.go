package groups

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mfedorov/scribe/pkg/scribe/feed"
	"github.com/mfedorov/scribe/pkg/scribe/models"
	"github.com/mfedorov/scribe/pkg/scribe/posts"
	"gorm.io/gorm"
)

// Handler handles public group browsing
type Handler struct {
	db       *gorm.DB
	queries  *feed.Queries
	pageSize int
}

// NewHandler creates a new groups handler
func NewHandler(db *gorm.DB, pageSize int) *Handler {
	return &Handler{
		db:       db,
		queries:  feed.NewQueries(db),
		pageSize: pageSize,
	}
}

// GroupResponse represents a group in API responses
type GroupResponse struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// GroupDetailResponse represents a group with its feed
type GroupDetailResponse struct {
	GroupResponse
	Feed posts.FeedResponse `json:"feed"`
}

// GroupToResponse converts a group model to its response form
func GroupToResponse(group models.Group) GroupResponse {
	return GroupResponse{
		ID:          group.ID,
		Title:       group.Title,
		Slug:        group.Slug,
		Description: group.Description,
	}
}

// List returns all groups
// @Summary List groups
// @Description Get all groups, ordered by title
// @Tags groups
// @Produce json
// @Success 200 {array} GroupResponse
// @Router /groups [get]
func (h *Handler) List(c *gin.Context) {
	var groups []models.Group
	if err := h.db.Order("title ASC").Find(&groups).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
		return
	}

	responses := make([]GroupResponse, len(groups))
	for i, group := range groups {
		responses[i] = GroupToResponse(group)
	}

	c.JSON(http.StatusOK, responses)
}

// Get returns a group and its feed
// @Summary Group feed
// @Description Get a group by slug with its paginated feed of posts
// @Tags groups
// @Produce json
// @Param slug path string true "Group slug"
// @Param page query int false "Page number"
// @Success 200 {object} GroupDetailResponse
// @Failure 404 {object} map[string]string "Group not found"
// @Router /groups/{slug} [get]
func (h *Handler) Get(c *gin.Context) {
	group, query, err := h.queries.Group(c.Param("slug"))
	if err != nil {
		if errors.Is(err, feed.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch group"})
		return
	}

	page, err := feed.Paginate(query, h.pageSize, c.Query("page"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch group"})
		return
	}

	c.JSON(http.StatusOK, GroupDetailResponse{
		GroupResponse: GroupToResponse(*group),
		Feed:          posts.PageToResponse(page),
	})
}

// RegisterRoutes registers public group routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/groups", h.List)
	rg.GET("/groups/:slug", h.Get)
}

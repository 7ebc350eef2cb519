package admin

import (
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mfedorov/scribe/pkg/scribe/feedcache"
	"github.com/mfedorov/scribe/pkg/scribe/groups"
	"github.com/mfedorov/scribe/pkg/scribe/models"
	"gorm.io/gorm"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9-]+$`)

// Handler handles administrative requests
type Handler struct {
	db    *gorm.DB
	cache *feedcache.Cache
}

// NewHandler creates a new admin handler
func NewHandler(db *gorm.DB, cache *feedcache.Cache) *Handler {
	return &Handler{db: db, cache: cache}
}

// CreateGroupRequest represents the request to create a group
type CreateGroupRequest struct {
	Title       string `json:"title" binding:"required"`
	Slug        string `json:"slug" binding:"required,min=1,max=50"`
	Description string `json:"description"`
}

// UpdateGroupRequest represents the request to update a group. Pointer
// fields distinguish "absent" from "set to empty": an omitted field is left
// alone, an empty description clears it.
type UpdateGroupRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// CreateGroup creates a new group
// @Summary Create a group
// @Description Create a new topic group with a unique URL-safe slug
// @Tags admin
// @Accept json
// @Produce json
// @Param request body CreateGroupRequest true "Group details"
// @Success 201 {object} groups.GroupResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 409 {object} map[string]string "Slug already taken"
// @Security BearerAuth
// @Router /admin/groups [post]
func (h *Handler) CreateGroup(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !slugRegex.MatchString(req.Slug) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Slug must contain only lowercase letters, numbers, and hyphens"})
		return
	}

	group := models.Group{
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
	}

	if err := h.db.Create(&group).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Slug already taken"})
		return
	}

	c.JSON(http.StatusCreated, groups.GroupToResponse(group))
}

// UpdateGroup updates a group's title or description
// @Summary Update a group
// @Description Update a group's title or description. The slug is immutable.
// @Tags admin
// @Accept json
// @Produce json
// @Param slug path string true "Group slug"
// @Param request body UpdateGroupRequest true "Updated group details"
// @Success 200 {object} groups.GroupResponse
// @Failure 404 {object} map[string]string "Group not found"
// @Security BearerAuth
// @Router /admin/groups/{slug} [put]
func (h *Handler) UpdateGroup(c *gin.Context) {
	var group models.Group
	if err := h.db.Where("slug = ?", c.Param("slug")).First(&group).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Title != nil && *req.Title != "" {
		group.Title = *req.Title
	}
	if req.Description != nil {
		group.Description = *req.Description
	}

	if err := h.db.Save(&group).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update group"})
		return
	}

	c.JSON(http.StatusOK, groups.GroupToResponse(group))
}

// DeleteGroup deletes a group. Its posts are kept and declassified.
// @Summary Delete a group
// @Description Delete a group. Posts in the group are kept with their group reference cleared; a group is classification, not ownership.
// @Tags admin
// @Produce json
// @Param slug path string true "Group slug"
// @Success 200 {object} map[string]string "Group deleted"
// @Failure 404 {object} map[string]string "Group not found"
// @Security BearerAuth
// @Router /admin/groups/{slug} [delete]
func (h *Handler) DeleteGroup(c *gin.Context) {
	var group models.Group
	if err := h.db.Where("slug = ?", c.Param("slug")).First(&group).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("group_id = ?", group.ID).
			Update("group_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&group).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete group"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Group deleted"})
}

// DeleteUser deletes a user and everything they own: their posts (with those
// posts' comments), their comments elsewhere, and their follow edges in both
// directions.
// @Summary Delete a user
// @Description Delete a user account with full cascade of their posts, comments, and follow edges
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]string "User deleted"
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /admin/users/{id} [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var user models.User
	if err := h.db.First(&user, uint(userID)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		// Comments on the user's posts go first, then the posts themselves
		if err := tx.Where("post_id IN (?)",
			tx.Model(&models.Post{}).Select("id").Where("author_id = ?", user.ID),
		).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", user.ID).Delete(&models.Post{}).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", user.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? OR author_id = ?", user.ID, user.ID).
			Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// ClearCache drops the rendered global-feed cache, forcing a re-query on
// the next read.
// @Summary Clear the feed cache
// @Description Drop the cached global feed so the next read re-queries the store
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]string "Cache cleared"
// @Security BearerAuth
// @Router /admin/cache/clear [post]
func (h *Handler) ClearCache(c *gin.Context) {
	h.cache.Invalidate()
	c.JSON(http.StatusOK, gin.H{"message": "Cache cleared"})
}

// RegisterRoutes registers admin routes. Callers must wrap the group with
// auth.AuthMiddleware and auth.RequireAdmin.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/groups", h.CreateGroup)
	rg.PUT("/groups/:slug", h.UpdateGroup)
	rg.DELETE("/groups/:slug", h.DeleteGroup)
	rg.DELETE("/users/:id", h.DeleteUser)
	rg.POST("/cache/clear", h.ClearCache)
}

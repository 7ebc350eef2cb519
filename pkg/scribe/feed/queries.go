// Package feed builds the ordered post collections behind every feed view
// and chunks them into pages. All four feeds share one ordering: newest
// first by creation time, ties broken by ID descending so the order is
// stable across reads.
package feed

import (
	"errors"

	"github.com/mfedorov/scribe/pkg/scribe/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a feed's group slug or author username does
// not resolve to an existing record.
var ErrNotFound = errors.New("not found")

const feedOrder = "posts.created_at DESC, posts.id DESC"

// Queries produces ordered, filterable post collections for the four feed
// access patterns. Every method is read-only; the returned *gorm.DB is a
// deferred query that Paginate counts and slices without re-ordering.
type Queries struct {
	db *gorm.DB
}

// NewQueries creates a Queries over the given database handle
func NewQueries(db *gorm.DB) *Queries {
	return &Queries{db: db}
}

// Global returns the query for all posts, newest first
func (q *Queries) Global() *gorm.DB {
	return q.db.Model(&models.Post{}).
		Preload("Author").Preload("Group").
		Order(feedOrder)
}

// Group returns the query for posts in the group named by slug, along with
// the group itself. Returns ErrNotFound when the slug does not resolve.
func (q *Queries) Group(slug string) (*models.Group, *gorm.DB, error) {
	var group models.Group
	if err := q.db.Where("slug = ?", slug).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	query := q.db.Model(&models.Post{}).
		Preload("Author").Preload("Group").
		Where("group_id = ?", group.ID).
		Order(feedOrder)
	return &group, query, nil
}

// Author returns the query for posts written by the named user, along with
// the user. Returns ErrNotFound when the username does not resolve.
func (q *Queries) Author(username string) (*models.User, *gorm.DB, error) {
	var user models.User
	if err := q.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	query := q.db.Model(&models.Post{}).
		Preload("Author").Preload("Group").
		Where("author_id = ?", user.ID).
		Order(feedOrder)
	return &user, query, nil
}

// Follower returns the query for posts whose author is followed by the
// viewer: a semi-join of posts against the viewer's follow edges. A viewer
// following nobody gets an empty result, not an error.
func (q *Queries) Follower(viewerID uint) *gorm.DB {
	return q.db.Model(&models.Post{}).
		Preload("Author").Preload("Group").
		Joins("JOIN follows ON follows.author_id = posts.author_id AND follows.user_id = ?", viewerID).
		Order(feedOrder)
}

// IsFollowing reports whether viewerID has a follow edge to authorID.
// Used by the profile page; an unauthenticated viewer passes 0 and gets false.
func (q *Queries) IsFollowing(viewerID, authorID uint) (bool, error) {
	if viewerID == 0 {
		return false, nil
	}
	var count int64
	err := q.db.Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", viewerID, authorID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

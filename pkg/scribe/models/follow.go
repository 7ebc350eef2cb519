package models

import (
	"time"
)

// Follow represents a directed subscription edge: UserID follows AuthorID.
// The composite unique index makes duplicate edges a store-level constraint
// violation, so concurrent follow attempts cannot race past an application
// check into a double row.
type Follow struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_follower_author" json:"user_id"`
	AuthorID  uint      `gorm:"not null;uniqueIndex:idx_follower_author" json:"author_id"`

	// Relationships
	User   User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Author User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

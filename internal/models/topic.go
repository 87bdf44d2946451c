package models

import (
	"time"
)

// Topic is a named grouping for posts. The ID is a lowercased slug; rows are
// created lazily the first time a post references the slug.
type Topic struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// PostCount is not persisted; computed at query time
	PostCount int64 `gorm:"-" json:"post_count"`
}

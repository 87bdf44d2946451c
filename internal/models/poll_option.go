package models

import (
	"time"
)

// PollOption is one selectable choice on a poll post. Option voting only
// ever increments UpvotesCount; there is no retraction path.
type PollOption struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	PostID         uint      `gorm:"not null;index" json:"post_id"`
	Label          string    `gorm:"not null" json:"label"`
	UpvotesCount   int       `gorm:"not null;default:0" json:"upvotes_count"`
	DownvotesCount int       `gorm:"not null;default:0" json:"downvotes_count"`
	TotalCount     int       `gorm:"not null;default:0" json:"total_count"`
	CreatedAt      time.Time `json:"created_at"`

	// ViewerVoted reports whether the requesting user voted for this option; computed at query time
	ViewerVoted bool `gorm:"-" json:"viewer_voted"`
}

package models

import (
	"time"
)

// PostVote records a user's directional vote (+1/-1) on a post itself.
// The unique index on (user_id, post_id) is the real backstop against two
// concurrent first-votes racing past the application-level existence check.
type PostVote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_post_votes_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_votes_user_post" json:"post_id"`
	Value     int       `gorm:"not null" json:"value"` // -1 or +1
	CreatedAt time.Time `json:"created_at"`
}

// PollOptionVote records a user's vote for one poll option. Rows are
// append-only; duplicates are rejected by the unique index alone.
type PollOptionVote struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_option_votes_user_option" json:"user_id"`
	PostID       uint      `gorm:"not null;index" json:"post_id"`
	PollOptionID uint      `gorm:"not null;uniqueIndex:idx_option_votes_user_option" json:"poll_option_id"`
	CreatedAt    time.Time `json:"created_at"`
}

package models

import (
	"time"
)

// PostTypePoll is the only post type the API currently accepts.
const PostTypePoll = "poll"

// PollWindow is how long a poll stays open for option voting. EndsAt is
// fixed at creation time and never extended.
const PollWindow = 7 * 24 * time.Hour

type Post struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Title          string    `gorm:"not null" json:"title"`
	Description    string    `gorm:"type:text" json:"description"`
	Type           string    `gorm:"size:32;not null;default:'poll'" json:"type"`
	TopicID        string    `gorm:"size:64;not null;index" json:"topic_id"`
	Topic          Topic     `gorm:"foreignKey:TopicID" json:"-"`
	UserID         *uint     `gorm:"index" json:"user_id,omitempty"`
	User           *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	TotalCount     int       `gorm:"not null;default:0" json:"total_count"`
	UpvotesCount   int       `gorm:"not null;default:0" json:"upvotes_count"`
	DownvotesCount int       `gorm:"not null;default:0" json:"downvotes_count"`
	EndsAt         time.Time `gorm:"not null;index" json:"ends_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Options []PollOption `gorm:"foreignKey:PostID" json:"options"`

	// ViewerVote is the requesting user's own vote on this post (-1, 0, +1); computed at query time
	ViewerVote int `gorm:"-" json:"viewer_vote"`
	// ResultsHidden reports whether option tallies were zeroed because the poll is still open
	ResultsHidden bool `gorm:"-" json:"results_hidden"`
}

// Open reports whether the poll still accepts option votes at t.
func (p *Post) Open(t time.Time) bool {
	return t.Before(p.EndsAt)
}

// RedactLiveTallies zeroes the option tallies of a poll that has not closed
// yet, so live results are never exposed to callers. Storage is untouched;
// only the in-memory copy handed to the response is modified.
func (p *Post) RedactLiveTallies(now time.Time) {
	if !p.Open(now) {
		return
	}
	p.ResultsHidden = true
	for i := range p.Options {
		p.Options[i].UpvotesCount = 0
		p.Options[i].DownvotesCount = 0
		p.Options[i].TotalCount = 0
	}
}

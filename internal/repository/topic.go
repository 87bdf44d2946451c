package repository

import (
	"context"

	"pollboard/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TopicRepository defines the interface for topic data operations
type TopicRepository interface {
	Ensure(ctx context.Context, id string) error
	ListWithCounts(ctx context.Context) ([]*models.Topic, error)
}

type topicRepository struct {
	db *gorm.DB
}

// NewTopicRepository creates a new topic repository
func NewTopicRepository(db *gorm.DB) TopicRepository {
	return &topicRepository{db: db}
}

// Ensure creates the topic row if it does not exist yet. An explicit upsert
// (ON CONFLICT DO NOTHING) rather than create-and-swallow-duplicate, so a
// concurrent first post on the same topic cannot surface a spurious error.
func (r *topicRepository) Ensure(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Topic{ID: id}).Error
}

// ListWithCounts returns all topics with their post counts.
func (r *topicRepository) ListWithCounts(ctx context.Context) ([]*models.Topic, error) {
	var topics []*models.Topic
	if err := r.db.WithContext(ctx).Order("id").Find(&topics).Error; err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		return topics, nil
	}

	var counts []struct {
		TopicID string
		N       int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("topic_id, count(*) as n").
		Group("topic_id").
		Scan(&counts).Error; err != nil {
		return nil, err
	}

	byTopic := make(map[string]int64, len(counts))
	for _, c := range counts {
		byTopic[c.TopicID] = c.N
	}
	for _, t := range topics {
		t.PostCount = byTopic[t.ID]
	}
	return topics, nil
}

package repository

import (
	"context"
	"time"

	"pollboard/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations.
// Read methods take the viewer's user ID (0 for anonymous callers) so the
// viewer's own vote records can be joined into the result; they also redact
// option tallies of polls that have not closed yet.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	List(ctx context.Context, topicID string, limit int, viewerID uint) ([]*models.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// Create inserts the post and its options as a single nested write. GORM
// wraps the association insert in one transaction, so a poll never exists
// without its options.
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Options").
		Preload("User").
		First(&post, id).Error
	if err != nil {
		return nil, err
	}

	posts := []*models.Post{&post}
	if err := r.attachViewerVotes(ctx, posts, viewerID); err != nil {
		return nil, err
	}
	redactLiveTallies(posts)
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, topicID string, limit int, viewerID uint) ([]*models.Post, error) {
	q := r.db.WithContext(ctx).
		Preload("Options").
		Preload("User").
		Order("created_at DESC").
		Limit(limit)
	if topicID != "" {
		q = q.Where("topic_id = ?", topicID)
	}

	var posts []*models.Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, err
	}

	if err := r.attachViewerVotes(ctx, posts, viewerID); err != nil {
		return nil, err
	}
	redactLiveTallies(posts)
	return posts, nil
}

// attachViewerVotes fills the computed ViewerVote / ViewerVoted fields from
// the viewer's own vote records. Anonymous viewers get the zero values.
func (r *postRepository) attachViewerVotes(ctx context.Context, posts []*models.Post, viewerID uint) error {
	if viewerID == 0 || len(posts) == 0 {
		return nil
	}

	postIDs := make([]uint, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
	}

	var postVotes []models.PostVote
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id IN ?", viewerID, postIDs).
		Find(&postVotes).Error; err != nil {
		return err
	}
	voteByPost := make(map[uint]int, len(postVotes))
	for _, v := range postVotes {
		voteByPost[v.PostID] = v.Value
	}

	var optionVotes []models.PollOptionVote
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id IN ?", viewerID, postIDs).
		Find(&optionVotes).Error; err != nil {
		return err
	}
	votedOptions := make(map[uint]bool, len(optionVotes))
	for _, v := range optionVotes {
		votedOptions[v.PollOptionID] = true
	}

	for _, p := range posts {
		p.ViewerVote = voteByPost[p.ID]
		for i := range p.Options {
			p.Options[i].ViewerVoted = votedOptions[p.Options[i].ID]
		}
	}
	return nil
}

func redactLiveTallies(posts []*models.Post) {
	now := time.Now()
	for _, p := range posts {
		p.RedactLiveTallies(now)
	}
}

package repository

import (
	"context"
	"errors"

	"pollboard/internal/models"

	"gorm.io/gorm"
)

// VoteRepository defines the interface for vote data operations
type VoteRepository interface {
	CastPostVote(ctx context.Context, userID, postID uint, value int) error
	CastOptionVote(ctx context.Context, userID, postID, optionID uint) error
}

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

// CastPostVote applies toggle/replace semantics for a post-level vote:
//
//  1. An existing vote is always retracted first: its row is deleted and its
//     contribution rolled out of the post aggregates in one transaction.
//  2. If the new value matches the retracted one, that retraction is the
//     whole operation.
//  3. Value 0 never creates a vote.
//  4. Otherwise a new vote row is inserted and the aggregates incremented,
//     again in one transaction.
//
// Each transaction keeps the invariant that the post's counters mirror the
// PostVote set; a partial write of either half would corrupt it.
func (r *voteRepository) CastPostVote(ctx context.Context, userID, postID uint, value int) error {
	db := r.db.WithContext(ctx)

	var existing models.PostVote
	err := db.Where("user_id = ? AND post_id = ?", userID, postID).First(&existing).Error
	switch {
	case err == nil:
		if rerr := r.retractPostVote(db, &existing); rerr != nil {
			return rerr
		}
		if existing.Value == value {
			// Same direction again: net effect is a pure retraction.
			return nil
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// No prior vote.
	default:
		return err
	}

	if value == 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		vote := models.PostVote{UserID: userID, PostID: postID, Value: value}
		if cerr := tx.Create(&vote).Error; cerr != nil {
			return cerr
		}
		return tx.Model(&models.Post{}).
			Where("id = ?", postID).
			UpdateColumns(postVoteDeltas(value, 1)).Error
	})
}

// retractPostVote removes the vote row and rolls its contribution out of the
// post aggregates. The RowsAffected check guards against a concurrent
// retraction of the same row: whichever transaction loses the delete must not
// decrement the counters a second time.
func (r *voteRepository) retractPostVote(db *gorm.DB, existing *models.PostVote) error {
	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.PostVote{}, existing.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&models.Post{}).
			Where("id = ?", existing.PostID).
			UpdateColumns(postVoteDeltas(existing.Value, -1)).Error
	})
}

// postVoteDeltas builds the aggregate column updates for applying (sign=+1)
// or rolling back (sign=-1) a vote of the given value.
func postVoteDeltas(value, sign int) map[string]any {
	cols := map[string]any{
		"total_count": gorm.Expr("total_count + ?", sign*value),
	}
	switch {
	case value > 0:
		cols["upvotes_count"] = gorm.Expr("upvotes_count + ?", sign)
	case value < 0:
		cols["downvotes_count"] = gorm.Expr("downvotes_count + ?", sign)
	}
	return cols
}

// CastOptionVote inserts the option vote row and increments the option's
// upvotes counter in one transaction. Option voting is append-only: there is
// no retraction, and duplicates are left to the unique index.
func (r *voteRepository) CastOptionVote(ctx context.Context, userID, postID, optionID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vote := models.PollOptionVote{
			UserID:       userID,
			PostID:       postID,
			PollOptionID: optionID,
		}
		if err := tx.Create(&vote).Error; err != nil {
			return err
		}
		return tx.Model(&models.PollOption{}).
			Where("id = ?", optionID).
			UpdateColumn("upvotes_count", gorm.Expr("upvotes_count + 1")).Error
	})
}

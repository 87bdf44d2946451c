package repository

import (
	"context"
	"testing"
	"time"

	"pollboard/internal/database"
	"pollboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedPoll(t *testing.T, db *gorm.DB, labels ...string) *models.Post {
	t.Helper()
	require.NoError(t, NewTopicRepository(db).Ensure(context.Background(), "tech"))

	options := make([]models.PollOption, 0, len(labels))
	for _, l := range labels {
		options = append(options, models.PollOption{Label: l})
	}
	post := &models.Post{
		Title:       "poll",
		Description: "poll",
		Type:        models.PostTypePoll,
		TopicID:     "tech",
		EndsAt:      time.Now().Add(models.PollWindow),
		Options:     options,
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

func seedUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := &models.User{Username: name, Email: name + "@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

// The post aggregates must always equal the sums over the PostVote rows,
// however the votes arrive.
func TestCastPostVote_AggregatesMirrorRows(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVoteRepository(db)
	ctx := context.Background()
	post := seedPoll(t, db, "a", "b")

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")

	require.NoError(t, repo.CastPostVote(ctx, alice.ID, post.ID, 1))
	require.NoError(t, repo.CastPostVote(ctx, bob.ID, post.ID, -1))
	require.NoError(t, repo.CastPostVote(ctx, carol.ID, post.ID, 1))
	require.NoError(t, repo.CastPostVote(ctx, bob.ID, post.ID, 1))   // switch
	require.NoError(t, repo.CastPostVote(ctx, carol.ID, post.ID, 1)) // retract

	checkAggregates(t, db, post.ID)

	var stored models.Post
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Equal(t, 2, stored.TotalCount)
	assert.Equal(t, 2, stored.UpvotesCount)
	assert.Equal(t, 0, stored.DownvotesCount)
}

func checkAggregates(t *testing.T, db *gorm.DB, postID uint) {
	t.Helper()
	var votes []models.PostVote
	require.NoError(t, db.Find(&votes, "post_id = ?", postID).Error)

	total, up, down := 0, 0, 0
	for _, v := range votes {
		total += v.Value
		if v.Value > 0 {
			up++
		} else if v.Value < 0 {
			down++
		}
	}

	var post models.Post
	require.NoError(t, db.First(&post, postID).Error)
	assert.Equal(t, total, post.TotalCount)
	assert.Equal(t, up, post.UpvotesCount)
	assert.Equal(t, down, post.DownvotesCount)
}

func TestCastPostVote_OneRowPerUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVoteRepository(db)
	ctx := context.Background()
	post := seedPoll(t, db, "a", "b")
	user := seedUser(t, db, "alice")

	require.NoError(t, repo.CastPostVote(ctx, user.ID, post.ID, 1))
	require.NoError(t, repo.CastPostVote(ctx, user.ID, post.ID, -1))
	require.NoError(t, repo.CastPostVote(ctx, user.ID, post.ID, 1))

	var count int64
	require.NoError(t, db.Model(&models.PostVote{}).
		Where("user_id = ? AND post_id = ?", user.ID, post.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	checkAggregates(t, db, post.ID)
}

// Two retractions of the same vote can race: both read the row, both enter
// the transaction, but only one delete hits it. The loser must leave the
// aggregates alone.
func TestRetractPostVote_AlreadyRetracted(t *testing.T) {
	db := setupTestDB(t)
	repo := &voteRepository{db: db}
	ctx := context.Background()
	post := seedPoll(t, db, "a", "b")
	user := seedUser(t, db, "alice")

	require.NoError(t, repo.CastPostVote(ctx, user.ID, post.ID, 1))

	var vote models.PostVote
	require.NoError(t, db.First(&vote, "user_id = ? AND post_id = ?", user.ID, post.ID).Error)

	require.NoError(t, repo.retractPostVote(db, &vote))
	require.NoError(t, repo.retractPostVote(db, &vote))

	var stored models.Post
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Equal(t, 0, stored.TotalCount)
	assert.Equal(t, 0, stored.UpvotesCount)
	assert.Equal(t, 0, stored.DownvotesCount)
}

func TestCastOptionVote_DuplicateRejected(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVoteRepository(db)
	ctx := context.Background()
	post := seedPoll(t, db, "a", "b")
	user := seedUser(t, db, "alice")
	opt := post.Options[0]

	require.NoError(t, repo.CastOptionVote(ctx, user.ID, post.ID, opt.ID))

	// The unique index blocks a second vote on the same option, and the
	// transaction rolls back the counter bump.
	err := repo.CastOptionVote(ctx, user.ID, post.ID, opt.ID)
	assert.Error(t, err)

	var stored models.PollOption
	require.NoError(t, db.First(&stored, opt.ID).Error)
	assert.Equal(t, 1, stored.UpvotesCount)
}

func TestTopicEnsure_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTopicRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Ensure(ctx, "tech"))
	require.NoError(t, repo.Ensure(ctx, "tech"))

	var count int64
	require.NoError(t, db.Model(&models.Topic{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

// Package seed fills a development database with fake polls and votes.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"pollboard/internal/models"
	"pollboard/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var topics = []string{"tech", "food", "movies", "gaming", "music", "travel"}

// Run creates userCount users and pollCount polls with randomized votes.
// Votes go through the repository layer so aggregate counters stay
// consistent with the vote records.
func Run(db *gorm.DB, userCount, pollCount int) error {
	ctx := context.Background()
	topicRepo := repository.NewTopicRepository(db)
	postRepo := repository.NewPostRepository(db)
	voteRepo := repository.NewVoteRepository(db)

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	users := make([]*models.User, 0, userCount)
	for i := 0; i < userCount; i++ {
		user := &models.User{
			Username: gofakeit.Username(),
			Email:    fmt.Sprintf("seed%d_%s", i, gofakeit.Email()),
			Password: string(hash),
		}
		if err := db.Create(user).Error; err != nil {
			return fmt.Errorf("seed user: %w", err)
		}
		users = append(users, user)
	}
	log.Printf("Seeded %d users", len(users))

	for _, t := range topics {
		if err := topicRepo.Ensure(ctx, t); err != nil {
			return fmt.Errorf("seed topic %s: %w", t, err)
		}
	}

	for i := 0; i < pollCount; i++ {
		optionCount := 2 + rand.Intn(4)
		options := make([]models.PollOption, 0, optionCount)
		for j := 0; j < optionCount; j++ {
			options = append(options, models.PollOption{Label: gofakeit.ProductName()})
		}

		creator := users[rand.Intn(len(users))]
		post := &models.Post{
			Title:       strings.TrimSuffix(gofakeit.Question(), "?") + "?",
			Description: gofakeit.Sentence(12),
			Type:        models.PostTypePoll,
			TopicID:     topics[rand.Intn(len(topics))],
			UserID:      &creator.ID,
			EndsAt:      time.Now().Add(models.PollWindow),
			Options:     options,
		}
		// Close roughly a third of the polls so result hiding is visible in dev
		if rand.Intn(3) == 0 {
			post.EndsAt = time.Now().Add(-time.Hour)
		}
		if err := postRepo.Create(ctx, post); err != nil {
			return fmt.Errorf("seed poll: %w", err)
		}

		for _, u := range users {
			if rand.Intn(2) == 0 {
				continue
			}
			value := 1
			if rand.Intn(4) == 0 {
				value = -1
			}
			if err := voteRepo.CastPostVote(ctx, u.ID, post.ID, value); err != nil {
				return fmt.Errorf("seed post vote: %w", err)
			}
			if post.Open(time.Now()) && rand.Intn(2) == 0 {
				opt := post.Options[rand.Intn(len(post.Options))]
				if err := voteRepo.CastOptionVote(ctx, u.ID, post.ID, opt.ID); err != nil {
					return fmt.Errorf("seed option vote: %w", err)
				}
			}
		}
	}
	log.Printf("Seeded %d polls", pollCount)

	return nil
}

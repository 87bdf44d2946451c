package server

import (
	"errors"
	"strings"
	"time"

	"pollboard/internal/cache"
	"pollboard/internal/middleware"
	"pollboard/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	maxPollOptions = 10
	topicsCacheKey = "topics"
)

// CreatePost handles POST /api/posts. Authentication is optional: the
// creator is recorded only when a valid token is present.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.Context()

	var req struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Type        string   `json:"type"`
		TopicID     string   `json:"topic_id"`
		Options     []string `json:"options"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if req.Type == "" {
		req.Type = models.PostTypePoll
	}

	if req.Title == "" || req.Description == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Title and description are required"))
	}
	if req.Type != models.PostTypePoll {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unsupported post type"))
	}

	topicID := strings.ToLower(strings.TrimSpace(req.TopicID))
	if topicID == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Topic is required"))
	}

	options := make([]models.PollOption, 0, len(req.Options))
	for _, label := range req.Options {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		options = append(options, models.PollOption{Label: label})
	}
	if len(options) < 2 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("At least two options are required"))
	}
	if len(options) > maxPollOptions {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Too many options"))
	}

	// Lazily bootstrap the topic; the upsert makes a concurrent first post
	// on the same slug harmless.
	if err := s.topicRepo.Ensure(ctx, topicID); err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "topic bootstrap failed", "topic", topicID, "error", err)
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(errors.New("failed to create poll")))
	}

	post := &models.Post{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		TopicID:     topicID,
		EndsAt:      time.Now().Add(models.PollWindow),
		Options:     options,
	}
	if userID, ok := s.optionalUserID(c); ok {
		post.UserID = &userID
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "poll creation failed", "error", err)
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(errors.New("failed to create poll")))
	}

	// The cached topic list carries post counts, so every new poll makes it
	// stale, not just the first poll on a new slug.
	_ = cache.Delete(ctx, topicsCacheKey)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    post.ID,
		"title": post.Title,
	})
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseID(c, "id", "post ID")
	if err != nil {
		return nil
	}
	viewerID, _ := s.optionalUserID(c)

	post, err := s.postRepo.GetByID(ctx, id, viewerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("Post", id))
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(post)
}

// GetPosts handles GET /api/posts?topic=&limit=
func (s *Server) GetPosts(c *fiber.Ctx) error {
	ctx := c.Context()
	topicID := strings.ToLower(strings.TrimSpace(c.Query("topic")))
	viewerID, _ := s.optionalUserID(c)

	posts, err := s.postRepo.List(ctx, topicID, parseLimit(c), viewerID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(posts)
}

// GetTopics handles GET /api/topics. The list carries no per-user data, so
// it is safe to share one cached copy across callers.
func (s *Server) GetTopics(c *fiber.Ctx) error {
	ctx := c.Context()

	var topics []*models.Topic
	err := cache.CacheAside(ctx, topicsCacheKey, &topics, time.Minute, func() error {
		var ferr error
		topics, ferr = s.topicRepo.ListWithCounts(ctx)
		return ferr
	})
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(topics)
}

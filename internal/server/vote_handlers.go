package server

import (
	"errors"
	"time"

	"pollboard/internal/middleware"
	"pollboard/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// VotePost handles POST /api/posts/:id/vote with body {"value": -1|0|1}.
// Re-casting the same value retracts the vote; a different value replaces
// it; 0 retracts without voting again.
func (s *Server) VotePost(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id", "post ID")
	if err != nil {
		return nil
	}

	var req struct {
		Value int `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Value < -1 || req.Value > 1 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Vote value must be -1, 0, or 1"))
	}

	var post models.Post
	if err := s.db.WithContext(ctx).Select("id").First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("Post", postID))
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	if err := s.voteRepo.CastPostVote(ctx, userID, postID, req.Value); err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "post vote failed",
			"post_id", postID, "value", req.Value, "error", err)
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(errors.New("failed to record vote")))
	}
	middleware.VotesCast.WithLabelValues("post").Inc()

	return c.SendStatus(fiber.StatusNoContent)
}

// VoteOption handles POST /api/posts/:id/options/:optionId/vote. Option
// votes are only accepted while the poll is open and are never retractable.
func (s *Server) VoteOption(c *fiber.Ctx) error {
	ctx := c.Context()
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id", "post ID")
	if err != nil {
		return nil
	}
	optionID, err := s.parseID(c, "optionId", "option ID")
	if err != nil {
		return nil
	}

	var post models.Post
	if err := s.db.WithContext(ctx).Select("id", "ends_at").First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("Post", postID))
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	if !post.Open(time.Now()) {
		return models.RespondWithError(c, fiber.StatusForbidden, models.NewPollEndedError())
	}

	var option models.PollOption
	if err := s.db.WithContext(ctx).
		Where("id = ? AND post_id = ?", optionID, postID).
		First(&option).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("Poll option", optionID))
		}
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	if err := s.voteRepo.CastOptionVote(ctx, userID, postID, optionID); err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "option vote failed",
			"post_id", postID, "option_id", optionID, "error", err)
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(errors.New("failed to record vote")))
	}
	middleware.VotesCast.WithLabelValues("option").Inc()

	return c.SendStatus(fiber.StatusNoContent)
}

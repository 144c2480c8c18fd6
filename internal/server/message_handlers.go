package server

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"chirp/internal/middleware"
	"chirp/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messagesPostedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chirp_messages_posted_total",
	Help: "Number of messages posted.",
})

// Home handles GET /. Logged-in users get their feed: the latest messages
// from the accounts they follow, newest first, capped at 100. Anonymous
// visitors get the landing payload.
func (s *Server) Home(c *fiber.Ctx) error {
	ctx := c.Context()
	actingUser := middleware.ActingUser(c)

	if actingUser == nil {
		return s.render(c, fiber.StatusOK, fiber.Map{"anonymous": true})
	}

	messages, err := s.messageRepo.HomeFeed(ctx, actingUser.ID, 100)
	if err != nil {
		return s.respondError(c, err)
	}
	likedIDs, err := s.messageRepo.LikedMessageIDs(ctx, actingUser.ID)
	if err != nil {
		return s.respondError(c, err)
	}

	return s.render(c, fiber.StatusOK, fiber.Map{
		"messages": messages,
		"likes":    likedIDs,
	})
}

// NewMessageForm handles GET /messages/new
func (s *Server) NewMessageForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, fiber.Map{
		"form": fiber.Map{
			"fields": []string{"text"},
		},
	})
}

// CreateMessage handles POST /messages/new
func (s *Server) CreateMessage(c *fiber.Ctx) error {
	ctx := c.Context()
	actingUser := middleware.ActingUser(c)

	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Message text is required"))
	}
	// Length is counted in characters, not bytes.
	if utf8.RuneCountInString(text) > models.MaxMessageLength {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(fmt.Sprintf(
				"Message must be at most %d characters", models.MaxMessageLength)))
	}

	message := &models.Message{
		Text:   text,
		UserID: actingUser.ID,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return s.respondError(c, err)
	}
	messagesPostedTotal.Inc()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": message})
}

// ShowMessage handles GET /messages/:id (public).
func (s *Server) ShowMessage(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseID(c)
	if err != nil {
		return nil
	}

	message, err := s.messageRepo.GetByID(ctx, id)
	if err != nil {
		return s.respondError(c, err)
	}

	return s.render(c, fiber.StatusOK, fiber.Map{"message": message})
}

// DeleteMessage handles POST /messages/:id/delete. Only the author may
// delete a message.
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	ctx := c.Context()
	actingUser := middleware.ActingUser(c)

	id, err := s.parseID(c)
	if err != nil {
		return nil
	}

	message, err := s.messageRepo.GetByID(ctx, id)
	if err != nil {
		return s.respondError(c, err)
	}
	if message.UserID != actingUser.ID {
		return s.respondError(c,
			models.NewForbiddenError("You can only delete your own messages"))
	}

	if err := s.messageRepo.Delete(ctx, message.ID); err != nil {
		return s.respondError(c, err)
	}

	return c.Redirect(fmt.Sprintf("/users/%d", actingUser.ID), fiber.StatusFound)
}

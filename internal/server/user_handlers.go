package server

import (
	"fmt"

	"chirp/internal/auth"
	"chirp/internal/middleware"
	"chirp/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var likesToggledTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chirp_likes_toggled_total",
	Help: "Number of like toggles performed.",
})

// ListUsers handles GET /users. An optional ?q= filters by username substring.
func (s *Server) ListUsers(c *fiber.Ctx) error {
	ctx := c.Context()
	limit := c.QueryInt("limit", 100)
	offset := c.QueryInt("offset", 0)

	var (
		users []models.User
		err   error
	)
	if q := c.Query("q"); q != "" {
		users, err = s.userRepo.Search(ctx, q, limit, offset)
	} else {
		users, err = s.userRepo.List(ctx, limit, offset)
	}
	if err != nil {
		return s.respondError(c, err)
	}

	return s.render(c, fiber.StatusOK, fiber.Map{"users": users})
}

// ShowUser handles GET /users/:id: profile plus the user's last 100 messages.
func (s *Server) ShowUser(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseID(c)
	if err != nil {
		return nil
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return s.respondError(c, err)
	}

	messages, err := s.messageRepo.ByUser(ctx, user.ID, 100)
	if err != nil {
		return s.respondError(c, err)
	}

	return s.render(c, fiber.StatusOK, fiber.Map{
		"user":     user,
		"messages": messages,
	})
}

// ShowFollowing handles GET /users/:id/following
func (s *Server) ShowFollowing(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseID(c)
	if err != nil {
		return nil
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return s.respondError(c, err)
	}

	following, err := s.userRepo.Following(ctx, user.ID)
	if err != nil {
		return s.respondError(c, err)
	}

	return s.render(c, fiber.StatusOK, fiber.Map{
		"user":      user,
		"following": following,
	})
}

// ShowFollowers handles GET /users/:id/followers
func (s *Server) ShowFollowers(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseID(c)
	if err != nil {
		return nil
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return s.respondError(c, err)
	}

	followers, err := s.userRepo.Followers(ctx, user.ID)
	if err != nil {
		return s.respondError(c, err)
	}

	return s.render(c, fiber.StatusOK, fiber.Map{
		"user":      user,
		"followers": followers,
	})
}

// AddFollow handles POST /users/follow/:id for the acting user.
// Following an already-followed user (or yourself) is a no-op.
func (s *Server) AddFollow(c *fiber.Ctx) error {
	ctx := c.Context()
	actingUser := middleware.ActingUser(c)

	id, err := s.parseID(c)
	if err != nil {
		return nil
	}

	target, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return s.respondError(c, err)
	}

	if target.ID != actingUser.ID {
		if err := s.userRepo.Follow(ctx, actingUser.ID, target.ID); err != nil {
			return s.respondError(c, err)
		}
	}

	return redirectBack(c)
}

// StopFollowing handles POST /users/stop-following/:id
func (s *Server) StopFollowing(c *fiber.Ctx) error {
	ctx := c.Context()
	actingUser := middleware.ActingUser(c)

	id, err := s.parseID(c)
	if err != nil {
		return nil
	}

	target, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return s.respondError(c, err)
	}

	if err := s.userRepo.Unfollow(ctx, actingUser.ID, target.ID); err != nil {
		return s.respondError(c, err)
	}

	return redirectBack(c)
}

// ProfileForm handles GET /users/profile
func (s *Server) ProfileForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, fiber.Map{
		"user": middleware.ActingUser(c),
	})
}

// UpdateProfile handles POST /users/profile. Every change, including an
// optional password change, requires re-authentication with the current
// password; nothing is persisted unless the whole update succeeds.
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	ctx := c.Context()
	actingUser := middleware.ActingUser(c)

	var req struct {
		Username           string `json:"username"`
		Email              string `json:"email"`
		ImageURL           string `json:"image_url"`
		HeaderImageURL     string `json:"header_image_url"`
		Bio                string `json:"bio"`
		Location           string `json:"location"`
		Password           string `json:"password"`
		NewPassword        string `json:"new_password"`
		NewPasswordConfirm string `json:"new_password_confirm"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	verified, err := s.credentials.Authenticate(ctx, actingUser.Username, req.Password)
	if err != nil {
		return s.respondError(c, err)
	}
	if verified == nil {
		return s.respondError(c, models.NewWrongPasswordError())
	}

	user := verified
	if req.NewPassword != "" {
		if req.NewPassword != req.NewPasswordConfirm {
			return s.respondError(c, models.NewPasswordMismatchError())
		}
		if req.NewPassword == req.Password {
			return s.respondError(c, models.NewSamePasswordError())
		}
		hashed, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			return s.respondError(c, models.NewInternalError(err))
		}
		user.Password = hashed
	}

	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	user.ImageURL = req.ImageURL
	if user.ImageURL == "" {
		user.ImageURL = s.config.DefaultImageURL
	}
	user.HeaderImageURL = req.HeaderImageURL
	if user.HeaderImageURL == "" {
		user.HeaderImageURL = s.config.DefaultHeaderImageURL
	}
	user.Bio = req.Bio
	user.Location = req.Location

	// Single save: password and profile fields change together or not at all.
	if err := s.userRepo.Update(ctx, user); err != nil {
		return s.respondError(c, err)
	}

	return c.Redirect(fmt.Sprintf("/users/%d", user.ID), fiber.StatusFound)
}

// DeleteAccount handles POST /users/delete: log out, then remove the user and
// everything referencing them.
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	ctx := c.Context()
	actingUser := middleware.ActingUser(c)

	if err := s.sessions.Destroy(ctx, sessionToken(c)); err != nil {
		return s.respondError(c, err)
	}
	if err := s.userRepo.Delete(ctx, actingUser.ID); err != nil {
		return s.respondError(c, err)
	}

	return c.Redirect("/signup", fiber.StatusFound)
}

// ShowLikes handles GET /users/:id/likes
func (s *Server) ShowLikes(c *fiber.Ctx) error {
	ctx := c.Context()
	id, err := s.parseID(c)
	if err != nil {
		return nil
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return s.respondError(c, err)
	}

	likes, err := s.messageRepo.LikedMessages(ctx, user.ID)
	if err != nil {
		return s.respondError(c, err)
	}

	return s.render(c, fiber.StatusOK, fiber.Map{
		"user":  user,
		"likes": likes,
	})
}

// ToggleLike handles POST /users/add_like/:id. Liking your own message is
// forbidden; otherwise the like is added when absent and removed when present.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
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

	if message.UserID == actingUser.ID {
		return s.respondError(c,
			models.NewForbiddenError("You cannot like your own message"))
	}

	if _, err := s.messageRepo.ToggleLike(ctx, actingUser.ID, message.ID); err != nil {
		return s.respondError(c, err)
	}
	likesToggledTotal.Inc()

	return redirectBack(c)
}

package server

import (
	"fmt"

	"chirp/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var signupsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chirp_signups_total",
	Help: "Number of successfully created accounts.",
})

// SignupForm handles GET /signup
func (s *Server) SignupForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, fiber.Map{
		"form": fiber.Map{
			"fields": []string{"username", "email", "password", "image_url"},
		},
	})
}

// Signup handles POST /signup: create the user and log them in.
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		ImageURL string `json:"image_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username, email, and password are required"))
	}
	if len(req.Password) < 6 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Password must be at least 6 characters"))
	}

	imageURL := req.ImageURL
	if imageURL == "" {
		imageURL = s.config.DefaultImageURL
	}

	user, err := s.credentials.Signup(c.Context(), req.Username, req.Password, req.Email,
		imageURL, s.config.DefaultHeaderImageURL)
	if err != nil {
		return s.respondError(c, err)
	}

	// Auto-login
	if err := s.sessions.Login(c.Context(), sessionToken(c), user.ID); err != nil {
		return s.respondError(c, err)
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	signupsTotal.Inc()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// LoginForm handles GET /login
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, fiber.Map{
		"form": fiber.Map{
			"fields": []string{"username", "password"},
		},
	})
}

// Login handles POST /login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.credentials.Authenticate(c.Context(), req.Username, req.Password)
	if err != nil {
		return s.respondError(c, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials."))
	}

	if err := s.sessions.Login(c.Context(), sessionToken(c), user.ID); err != nil {
		return s.respondError(c, err)
	}
	s.flash(c, "success", fmt.Sprintf("Hello, %s!", user.Username))

	token, err := s.generateToken(user.ID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Logout handles GET /logout. Idempotent: logging out while anonymous only
// flashes a warning.
func (s *Server) Logout(c *fiber.Ctx) error {
	wasLoggedIn, err := s.sessions.Logout(c.Context(), sessionToken(c))
	if err != nil {
		return s.respondError(c, err)
	}

	if wasLoggedIn {
		s.flash(c, "success", "You've successfully logged out.")
	} else {
		s.flash(c, "danger", "You are not logged in.")
	}

	return c.Redirect("/login", fiber.StatusFound)
}

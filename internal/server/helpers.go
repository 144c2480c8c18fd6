package server

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"chirp/internal/middleware"
	"chirp/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// the ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts the :id route parameter as a uint. Malformed values get a
// 400; an id that parses but matches nothing becomes a 404 at lookup time.
// On failure it writes the JSON response and returns errResponseWritten.
func (s *Server) parseID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id < 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid ID"))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// sessionToken returns the opaque session token for the request.
func sessionToken(c *fiber.Ctx) string {
	token, _ := c.Locals(middleware.LocalsSessionToken).(string)
	return token
}

// render writes a page payload, attaching any pending flash messages.
func (s *Server) render(c *fiber.Ctx, status int, payload fiber.Map) error {
	if payload == nil {
		payload = fiber.Map{}
	}
	if flashes := s.sessions.Flashes(c.Context(), sessionToken(c)); len(flashes) > 0 {
		payload["flashes"] = flashes
	}
	return c.Status(status).JSON(payload)
}

// flash queues a one-shot notice for the session.
func (s *Server) flash(c *fiber.Ctx, category, text string) {
	s.sessions.Flash(c.Context(), sessionToken(c), category, text)
}

// statusForAppError maps domain error codes to HTTP statuses.
func statusForAppError(appErr *models.AppError) int {
	switch appErr.Code {
	case "NOT_FOUND":
		return fiber.StatusNotFound
	case "DUPLICATE_KEY":
		return fiber.StatusConflict
	case "FORBIDDEN":
		return fiber.StatusForbidden
	case "UNAUTHORIZED", "WRONG_PASSWORD":
		return fiber.StatusUnauthorized
	case "VALIDATION_ERROR", "PASSWORD_MISMATCH", "SAME_PASSWORD":
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes the JSON error response matching the domain error.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return models.RespondWithError(c, statusForAppError(appErr), appErr)
	}
	return models.RespondWithError(c, fiber.StatusInternalServerError,
		models.NewInternalError(err))
}

// redirectBack sends the client to the referring page, falling back to home.
func redirectBack(c *fiber.Ctx) error {
	ref := c.Get(fiber.HeaderReferer)
	if ref == "" {
		ref = "/"
	}
	return c.Redirect(ref, fiber.StatusFound)
}

// generateToken creates the bearer token issued alongside the session cookie
// for programmatic clients.
func (s *Server) generateToken(userID uint) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": middleware.TokenIssuer,
		"aud": middleware.TokenAudience,
		"exp": now.Add(time.Duration(s.config.SessionTTLHours) * time.Hour).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8]),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

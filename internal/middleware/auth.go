package middleware

import (
	"strconv"
	"strings"
	"time"

	"chirp/internal/models"
	"chirp/internal/repository"
	"chirp/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Locals keys shared between middleware and handlers.
const (
	LocalsSessionToken = "sessionToken"
	LocalsUserID       = "userID"
	LocalsUser         = "currentUser"
)

// Token claims for the secondary bearer credential.
const (
	TokenIssuer   = "chirp-api"
	TokenAudience = "chirp-client"
)

// EnsureSession guarantees every request carries a session cookie so flashes
// work for anonymous visitors too. The token is opaque; all state lives
// server-side.
func EnsureSession(manager *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(session.CookieName)
		if token == "" {
			token = session.NewToken()
			c.Cookie(&fiber.Cookie{
				Name:     session.CookieName,
				Value:    token,
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
				Expires:  time.Now().Add(manager.TTL()),
			})
		}
		c.Locals(LocalsSessionToken, token)
		return c.Next()
	}
}

// CurrentUser resolves the acting user once per request and caches it in the
// request locals; handlers receive an explicit acting user instead of
// consulting ambient state. The session cookie is the primary credential; a
// Bearer token issued at login works for cookie-less clients.
func CurrentUser(manager *session.Manager, users repository.UserRepository, jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.Context()

		token, _ := c.Locals(LocalsSessionToken).(string)
		userID, ok, err := manager.UserID(ctx, token)
		if err != nil {
			Logger.Warn("session lookup failed", "error", err.Error())
			ok = false
		}
		if !ok {
			userID, ok = bearerUserID(c, jwtSecret)
		}
		if !ok {
			return c.Next()
		}

		user, err := users.GetByID(ctx, userID)
		if err != nil {
			// Stale session (user deleted); treat as anonymous.
			return c.Next()
		}

		c.Locals(LocalsUserID, user.ID)
		c.Locals(LocalsUser, user)
		return c.Next()
	}
}

// LoginRequired rejects anonymous requests before the protected handler runs:
// flash a warning and redirect to the public landing page, side effects never
// execute.
func LoginRequired(manager *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Locals(LocalsUser) == nil {
			if token, ok := c.Locals(LocalsSessionToken).(string); ok {
				manager.Flash(c.Context(), token, "danger", "Access unauthorized.")
			}
			return c.Redirect("/", fiber.StatusFound)
		}
		return c.Next()
	}
}

// ActingUser returns the resolved acting user for the request, or nil.
func ActingUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(LocalsUser).(*models.User)
	return user
}

// bearerUserID extracts a user id from an Authorization: Bearer token.
// Invalid or absent tokens simply leave the request anonymous.
func bearerUserID(c *fiber.Ctx, secret string) (uint, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return 0, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, false
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return 0, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}
	if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != TokenIssuer {
		return 0, false
	}
	if audience, audienceOk := claims["aud"].(string); !audienceOk || audience != TokenAudience {
		return 0, false
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, false
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(userID), true
}

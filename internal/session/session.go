// Package session implements the server-tracked session manager: an opaque
// token held by the client maps to a logged-in user id and pending flash
// messages on the server side.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CookieName is the cookie carrying the opaque session token.
const CookieName = "chirp_session"

// Flash is a one-shot user-visible notice, popped on the next page render.
type Flash struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// Store persists session state keyed by opaque token.
type Store interface {
	SetUser(ctx context.Context, token string, userID uint) error
	// UserID returns the logged-in user id for the token; ok is false for
	// anonymous or expired sessions.
	UserID(ctx context.Context, token string) (userID uint, ok bool, err error)
	ClearUser(ctx context.Context, token string) error
	PushFlash(ctx context.Context, token string, flash Flash) error
	PopFlashes(ctx context.Context, token string) ([]Flash, error)
	Delete(ctx context.Context, token string) error
}

// NewToken mints a fresh opaque session token.
func NewToken() string {
	return uuid.NewString()
}

// Manager is the session component handlers talk to.
type Manager struct {
	store Store
	ttl   time.Duration
}

// NewManager creates a session manager over the given store.
func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl}
}

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Login associates the token with the user id.
func (m *Manager) Login(ctx context.Context, token string, userID uint) error {
	return m.store.SetUser(ctx, token, userID)
}

// Logout clears the logged-in user. Idempotent: returns whether a user was
// actually logged in.
func (m *Manager) Logout(ctx context.Context, token string) (bool, error) {
	_, ok, err := m.store.UserID(ctx, token)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return true, m.store.ClearUser(ctx, token)
}

// UserID resolves the token to a logged-in user id.
func (m *Manager) UserID(ctx context.Context, token string) (uint, bool, error) {
	if token == "" {
		return 0, false, nil
	}
	return m.store.UserID(ctx, token)
}

// Flash queues a one-shot notice for the session.
func (m *Manager) Flash(ctx context.Context, token, category, text string) {
	if token == "" {
		return
	}
	// Flash loss is cosmetic; never fail a request over it.
	_ = m.store.PushFlash(ctx, token, Flash{Category: category, Text: text})
}

// Flashes pops and returns all queued notices for the session.
func (m *Manager) Flashes(ctx context.Context, token string) []Flash {
	if token == "" {
		return nil
	}
	flashes, err := m.store.PopFlashes(ctx, token)
	if err != nil {
		return nil
	}
	return flashes
}

// Destroy removes all session state for the token.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	return m.store.Delete(ctx, token)
}

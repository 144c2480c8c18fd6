// Package auth implements the credential store: password hashing and
// verification, signup, authentication and password changes.
package auth

import (
	"context"

	"chirp/internal/models"
	"chirp/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// CredentialStore owns everything that touches password hashes.
type CredentialStore struct {
	users repository.UserRepository
}

// NewCredentialStore creates a credential store backed by the given user repository.
func NewCredentialStore(users repository.UserRepository) *CredentialStore {
	return &CredentialStore{users: users}
}

// HashPassword returns the bcrypt hash of a plaintext password.
func HashPassword(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword reports whether plaintext matches the stored bcrypt hash.
func CheckPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// Signup hashes the password and persists a new user. Username and email
// collisions surface as a DuplicateKey AppError from the repository.
func (s *CredentialStore) Signup(ctx context.Context, username, password, email, imageURL, headerImageURL string) (*models.User, error) {
	hashed, err := HashPassword(password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:       username,
		Email:          email,
		Password:       hashed,
		ImageURL:       imageURL,
		HeaderImageURL: headerImageURL,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate looks up a user by username and verifies the password.
// Returns (nil, nil) on unknown username or wrong password; callers cannot
// tell the two apart.
func (s *CredentialStore) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !CheckPassword(password, user.Password) {
		return nil, nil
	}
	return user, nil
}

// ChangePassword re-authenticates with the old password and replaces the
// stored hash. The new password must differ from the old one; nothing is
// persisted otherwise.
func (s *CredentialStore) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) (bool, error) {
	user, err := s.Authenticate(ctx, username, oldPassword)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	if newPassword == oldPassword {
		return false, nil
	}

	hashed, err := HashPassword(newPassword)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	user.Password = hashed
	if err := s.users.Update(ctx, user); err != nil {
		return false, err
	}
	return true, nil
}

package auth

import (
	"context"
	"errors"
	"testing"

	"chirp/internal/models"
	"chirp/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCredentialStore(t *testing.T) (*CredentialStore, repository.UserRepository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Message{}, &models.Follow{}, &models.Like{}); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	users := repository.NewUserRepository(db)
	return NewCredentialStore(users), users
}

func TestHashAndCheckPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("s3cret-password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret-password" {
		t.Fatal("password stored in plaintext")
	}

	if !CheckPassword("s3cret-password", hash) {
		t.Fatal("expected matching password to verify")
	}
	if CheckPassword("wrong-password", hash) {
		t.Fatal("expected wrong password to fail")
	}
}

func TestSignupHashesPassword(t *testing.T) {
	t.Parallel()

	store, users := setupCredentialStore(t)
	ctx := context.Background()

	user, err := store.Signup(ctx, "alice", "s3cret-password", "alice@example.com",
		"/static/images/default-pic.png", "/static/images/default-header.jpg")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	stored, err := users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if stored.Password == "s3cret-password" {
		t.Fatal("password stored in plaintext")
	}
	if !CheckPassword("s3cret-password", stored.Password) {
		t.Fatal("stored hash does not verify")
	}
	if stored.ImageURL != "/static/images/default-pic.png" {
		t.Fatalf("unexpected image url: %s", stored.ImageURL)
	}
}

func TestSignupDuplicateLeavesOriginalUntouched(t *testing.T) {
	t.Parallel()

	store, users := setupCredentialStore(t)
	ctx := context.Background()

	original, err := store.Signup(ctx, "alice", "first-password", "alice@example.com", "", "")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, err = store.Signup(ctx, "alice", "second-password", "other@example.com", "", "")
	if err == nil {
		t.Fatal("expected duplicate signup to fail")
	}
	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Code != "DUPLICATE_KEY" {
		t.Fatalf("expected DUPLICATE_KEY, got %v", err)
	}

	stored, err := users.GetByID(ctx, original.ID)
	if err != nil {
		t.Fatalf("reload original: %v", err)
	}
	if !CheckPassword("first-password", stored.Password) {
		t.Fatal("original account modified by failed signup")
	}
	if stored.Email != "alice@example.com" {
		t.Fatalf("original email modified: %s", stored.Email)
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	store, _ := setupCredentialStore(t)
	ctx := context.Background()

	if _, err := store.Signup(ctx, "alice", "s3cret-password", "alice@example.com", "", ""); err != nil {
		t.Fatalf("signup: %v", err)
	}

	user, err := store.Authenticate(ctx, "alice", "s3cret-password")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user == nil || user.Username != "alice" {
		t.Fatalf("expected alice, got %+v", user)
	}

	// Wrong password and unknown username are indistinguishable.
	user, err = store.Authenticate(ctx, "alice", "wrong-password")
	if err != nil || user != nil {
		t.Fatalf("expected nil user for wrong password, got %+v %v", user, err)
	}
	user, err = store.Authenticate(ctx, "ghost", "s3cret-password")
	if err != nil || user != nil {
		t.Fatalf("expected nil user for unknown username, got %+v %v", user, err)
	}
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	store, _ := setupCredentialStore(t)
	ctx := context.Background()

	if _, err := store.Signup(ctx, "alice", "old-password", "alice@example.com", "", ""); err != nil {
		t.Fatalf("signup: %v", err)
	}

	// Wrong old password: nothing changes.
	ok, err := store.ChangePassword(ctx, "alice", "wrong-password", "new-password")
	if err != nil || ok {
		t.Fatalf("expected change rejected, got %v %v", ok, err)
	}
	if user, _ := store.Authenticate(ctx, "alice", "old-password"); user == nil {
		t.Fatal("old password must still work after rejected change")
	}

	// New password equal to old: rejected.
	ok, err = store.ChangePassword(ctx, "alice", "old-password", "old-password")
	if err != nil || ok {
		t.Fatalf("expected same-password change rejected, got %v %v", ok, err)
	}

	// Valid change.
	ok, err = store.ChangePassword(ctx, "alice", "old-password", "new-password")
	if err != nil || !ok {
		t.Fatalf("expected change accepted, got %v %v", ok, err)
	}
	if user, _ := store.Authenticate(ctx, "alice", "new-password"); user == nil {
		t.Fatal("new password must work after change")
	}
	if user, _ := store.Authenticate(ctx, "alice", "old-password"); user != nil {
		t.Fatal("old password must stop working after change")
	}
}

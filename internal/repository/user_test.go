package repository

import (
	"context"
	"errors"
	"testing"

	"chirp/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupRepoTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Message{},
		&models.Follow{},
		&models.Like{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

func asAppError(err error, target **models.AppError) bool {
	return errors.As(err, target)
}

func createTestUser(t *testing.T, repo UserRepository, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed",
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	t.Parallel()

	db := setupRepoTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	original := createTestUser(t, repo, "alice")

	dup := &models.User{Username: "alice", Email: "other@example.com", Password: "hashed"}
	err := repo.Create(ctx, dup)
	if err == nil {
		t.Fatal("expected duplicate username to fail")
	}
	var appErr *models.AppError
	if !asAppError(err, &appErr) || appErr.Code != "DUPLICATE_KEY" {
		t.Fatalf("expected DUPLICATE_KEY, got %v", err)
	}

	// The original row is untouched.
	reloaded, err := repo.GetByID(ctx, original.ID)
	if err != nil {
		t.Fatalf("reload original: %v", err)
	}
	if reloaded.Email != "alice@example.com" {
		t.Fatalf("original user modified: %s", reloaded.Email)
	}
}

func TestUserRepository_GetByUsernameMissing(t *testing.T) {
	t.Parallel()

	db := setupRepoTestDB(t)
	repo := NewUserRepository(db)

	user, err := repo.GetByUsername(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Fatalf("expected nil user, got %+v", user)
	}
}

func TestUserRepository_GetByIDMissing(t *testing.T) {
	t.Parallel()

	db := setupRepoTestDB(t)
	repo := NewUserRepository(db)

	_, err := repo.GetByID(context.Background(), 4242)
	var appErr *models.AppError
	if !asAppError(err, &appErr) || appErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestUserRepository_FollowIsIdempotent(t *testing.T) {
	t.Parallel()

	db := setupRepoTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, repo, "alice")
	bob := createTestUser(t, repo, "bob")

	if err := repo.Follow(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("first follow: %v", err)
	}
	// Second follow must be a silent no-op, not an error.
	if err := repo.Follow(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("repeated follow: %v", err)
	}

	var count int64
	if err := db.Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", alice.ID, bob.ID).
		Count(&count).Error; err != nil {
		t.Fatalf("count follows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one follow row, got %d", count)
	}

	following, err := repo.IsFollowing(ctx, alice.ID, bob.ID)
	if err != nil || !following {
		t.Fatalf("expected alice following bob, got %v %v", following, err)
	}
	reverse, err := repo.IsFollowing(ctx, bob.ID, alice.ID)
	if err != nil || reverse {
		t.Fatalf("follow must not be symmetric, got %v %v", reverse, err)
	}
}

func TestUserRepository_UnfollowMissingIsNoop(t *testing.T) {
	t.Parallel()

	db := setupRepoTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, repo, "alice")
	bob := createTestUser(t, repo, "bob")

	if err := repo.Unfollow(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("unfollow without follow: %v", err)
	}
}

func TestUserRepository_FollowingAndFollowers(t *testing.T) {
	t.Parallel()

	db := setupRepoTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, repo, "alice")
	bob := createTestUser(t, repo, "bob")
	carol := createTestUser(t, repo, "carol")

	if err := repo.Follow(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if err := repo.Follow(ctx, carol.ID, bob.ID); err != nil {
		t.Fatalf("follow: %v", err)
	}

	following, err := repo.Following(ctx, alice.ID)
	if err != nil {
		t.Fatalf("following: %v", err)
	}
	if len(following) != 1 || following[0].ID != bob.ID {
		t.Fatalf("expected alice to follow only bob, got %+v", following)
	}

	followers, err := repo.Followers(ctx, bob.ID)
	if err != nil {
		t.Fatalf("followers: %v", err)
	}
	if len(followers) != 2 {
		t.Fatalf("expected two followers of bob, got %d", len(followers))
	}
}

func TestUserRepository_Search(t *testing.T) {
	t.Parallel()

	db := setupRepoTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	createTestUser(t, repo, "alice")
	createTestUser(t, repo, "malice")
	createTestUser(t, repo, "bob")

	users, err := repo.Search(ctx, "lic", 100, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected two matches for 'lic', got %d", len(users))
	}
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	t.Parallel()

	db := setupRepoTestDB(t)
	userRepo := NewUserRepository(db)
	messageRepo := NewMessageRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, userRepo, "alice")
	bob := createTestUser(t, userRepo, "bob")

	aliceMsg := &models.Message{Text: "hello from alice", UserID: alice.ID}
	bobMsg := &models.Message{Text: "hello from bob", UserID: bob.ID}
	if err := messageRepo.Create(ctx, aliceMsg); err != nil {
		t.Fatalf("create message: %v", err)
	}
	if err := messageRepo.Create(ctx, bobMsg); err != nil {
		t.Fatalf("create message: %v", err)
	}

	if err := userRepo.Follow(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if err := userRepo.Follow(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("follow: %v", err)
	}
	// bob likes alice's message, alice likes bob's
	if _, err := messageRepo.ToggleLike(ctx, bob.ID, aliceMsg.ID); err != nil {
		t.Fatalf("like: %v", err)
	}
	if _, err := messageRepo.ToggleLike(ctx, alice.ID, bobMsg.ID); err != nil {
		t.Fatalf("like: %v", err)
	}

	if err := userRepo.Delete(ctx, alice.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	var users, messages, follows, likes int64
	db.Model(&models.User{}).Count(&users)
	db.Model(&models.Message{}).Count(&messages)
	db.Model(&models.Follow{}).Count(&follows)
	db.Model(&models.Like{}).Count(&likes)

	if users != 1 {
		t.Fatalf("expected only bob to remain, got %d users", users)
	}
	if messages != 1 {
		t.Fatalf("expected only bob's message to remain, got %d", messages)
	}
	if follows != 0 {
		t.Fatalf("expected no follow rows, got %d", follows)
	}
	// Both alice's own like and bob's like on alice's deleted message go.
	if likes != 0 {
		t.Fatalf("expected no like rows, got %d", likes)
	}

	if _, err := userRepo.GetByID(ctx, alice.ID); err == nil {
		t.Fatal("expected deleted user to be gone")
	}
}

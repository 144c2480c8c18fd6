package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedisStore(rdb, time.Hour), mr
}

func TestRedisStore_UserRoundTrip(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()
	token := NewToken()

	_, ok, err := store.UserID(ctx, token)
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	if ok {
		t.Fatal("expected unknown token to be anonymous")
	}

	if err := store.SetUser(ctx, token, 42); err != nil {
		t.Fatalf("set user: %v", err)
	}
	userID, ok, err := store.UserID(ctx, token)
	if err != nil || !ok || userID != 42 {
		t.Fatalf("expected user 42, got %d %v %v", userID, ok, err)
	}

	if err := store.ClearUser(ctx, token); err != nil {
		t.Fatalf("clear user: %v", err)
	}
	_, ok, err = store.UserID(ctx, token)
	if err != nil || ok {
		t.Fatalf("expected cleared session anonymous, got %v %v", ok, err)
	}
}

func TestRedisStore_FlashesPopOnce(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()
	token := NewToken()

	if err := store.PushFlash(ctx, token, Flash{Category: "success", Text: "Hello, alice!"}); err != nil {
		t.Fatalf("push flash: %v", err)
	}
	if err := store.PushFlash(ctx, token, Flash{Category: "danger", Text: "Access unauthorized."}); err != nil {
		t.Fatalf("push flash: %v", err)
	}

	flashes, err := store.PopFlashes(ctx, token)
	if err != nil {
		t.Fatalf("pop flashes: %v", err)
	}
	if len(flashes) != 2 {
		t.Fatalf("expected two flashes, got %d", len(flashes))
	}
	// FIFO order
	if flashes[0].Text != "Hello, alice!" || flashes[1].Category != "danger" {
		t.Fatalf("unexpected flash order: %+v", flashes)
	}

	again, err := store.PopFlashes(ctx, token)
	if err != nil {
		t.Fatalf("second pop: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected flashes consumed, got %d", len(again))
	}
}

func TestRedisStore_SessionExpiry(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()
	token := NewToken()

	if err := store.SetUser(ctx, token, 7); err != nil {
		t.Fatalf("set user: %v", err)
	}

	mr.FastForward(2 * time.Hour)

	_, ok, err := store.UserID(ctx, token)
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	if ok {
		t.Fatal("expected expired session to be anonymous")
	}
}

func TestRedisStore_DeleteRemovesUserAndFlashes(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()
	token := NewToken()

	if err := store.SetUser(ctx, token, 9); err != nil {
		t.Fatalf("set user: %v", err)
	}
	if err := store.PushFlash(ctx, token, Flash{Category: "success", Text: "bye"}); err != nil {
		t.Fatalf("push flash: %v", err)
	}

	if err := store.Delete(ctx, token); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, ok, _ := store.UserID(ctx, token)
	if ok {
		t.Fatal("expected deleted session anonymous")
	}
	flashes, err := store.PopFlashes(ctx, token)
	if err != nil || len(flashes) != 0 {
		t.Fatalf("expected no flashes after delete, got %v (%v)", flashes, err)
	}
}

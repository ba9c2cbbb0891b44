package worker

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeStore struct {
	values map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}}
}

func (s *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, exists := s.values[key]; exists {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *fakeStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func TestRedisLockAcquireAndRelease(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	ctx := context.Background()
	lock, err := NewRedisLock(store, "gk:test:lock", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}

	ok, err := lock.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("expected first acquire to win, got ok=%v err=%v", ok, err)
	}

	other, err := NewRedisLock(store, "gk:test:lock", time.Minute)
	if err != nil {
		t.Fatalf("new second lock: %v", err)
	}
	ok, err = other.Acquire(ctx)
	if err != nil || ok {
		t.Fatalf("expected second acquire to lose, got ok=%v err=%v", ok, err)
	}

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = other.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("expected acquire after release to win, got ok=%v err=%v", ok, err)
	}
}

func TestRedisLockReleaseOnlyWhenOwner(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	ctx := context.Background()
	lock, err := NewRedisLock(store, "gk:test:lock", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	if _, err := lock.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// The TTL lapsed and another instance took over.
	store.values["gk:test:lock"] = "someone-else"
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.values["gk:test:lock"] != "someone-else" {
		t.Fatal("release must not delete another owner's lock")
	}
}

func TestRedisLockReleaseMissingKeyIsNoop(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	ctx := context.Background()
	lock, err := NewRedisLock(store, "gk:test:lock", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	if _, err := lock.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	delete(store.values, "gk:test:lock")

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release after expiry: %v", err)
	}
}

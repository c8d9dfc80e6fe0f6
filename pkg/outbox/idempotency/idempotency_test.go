package idempotency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{keys: map[string]string{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys[key], nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = "1"
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "ct:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

func TestCheckAndMarkProcessedFirstTime(t *testing.T) {
	manager, err := NewManager(newFakeStore(), time.Minute)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	eventID := uuid.New()

	already, err := manager.CheckAndMarkProcessed(context.Background(), "notify-worker", eventID)
	if err != nil {
		t.Fatalf("CheckAndMarkProcessed: %v", err)
	}
	if already {
		t.Fatal("first check should not report processed")
	}

	already, err = manager.CheckAndMarkProcessed(context.Background(), "notify-worker", eventID)
	if err != nil {
		t.Fatalf("CheckAndMarkProcessed: %v", err)
	}
	if !already {
		t.Fatal("second check should report processed")
	}
}

func TestDeleteAllowsRetry(t *testing.T) {
	manager, err := NewManager(newFakeStore(), time.Minute)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	eventID := uuid.New()

	if _, err := manager.CheckAndMarkProcessed(context.Background(), "notify-worker", eventID); err != nil {
		t.Fatalf("CheckAndMarkProcessed: %v", err)
	}
	if err := manager.Delete(context.Background(), "notify-worker", eventID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	already, err := manager.CheckAndMarkProcessed(context.Background(), "notify-worker", eventID)
	if err != nil {
		t.Fatalf("CheckAndMarkProcessed: %v", err)
	}
	if already {
		t.Fatal("event should be retryable after delete")
	}
}

func TestValidation(t *testing.T) {
	if _, err := NewManager(nil, time.Minute); err == nil {
		t.Fatal("nil store should fail")
	}
	manager, err := NewManager(newFakeStore(), time.Minute)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "", uuid.New()); err == nil {
		t.Fatal("empty consumer should fail")
	}
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "notify-worker", uuid.Nil); err == nil {
		t.Fatal("nil event id should fail")
	}
}

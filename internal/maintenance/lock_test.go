package maintenance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeRedis struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func newFakeRedis() *fakeRedis { return &fakeRedis{values: map[string]string{}} }

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeRedis) DelIfEquals(_ context.Context, key, value string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.values[key] != value {
		return false, nil
	}
	delete(f.values, key)
	return true, nil
}

func (f *fakeRedis) held(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.values[key]
	return ok
}

func TestRedisLockIsExclusiveAcrossReplicas(t *testing.T) {
	store := newFakeRedis()
	a, err := NewRedisLock(store, "chapas:lock:lot_audit", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	b, _ := NewRedisLock(store, "chapas:lock:lot_audit", time.Minute)
	ctx := context.Background()

	if ok, err := a.Acquire(ctx); err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if ok, err := b.Acquire(ctx); err != nil || ok {
		t.Fatalf("second acquire should fail: ok=%v err=%v", ok, err)
	}
	// b never owned the key, so its release must not free a's lock.
	if err := b.Release(ctx); err != nil {
		t.Fatalf("release b: %v", err)
	}
	if !store.held("chapas:lock:lot_audit") {
		t.Fatalf("lock should still be held")
	}
	if err := a.Release(ctx); err != nil {
		t.Fatalf("release a: %v", err)
	}
	if ok, err := b.Acquire(ctx); err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
}

func TestRedisLockReleaseKeepsForeignOwner(t *testing.T) {
	store := newFakeRedis()
	lock, _ := NewRedisLock(store, "k", 0)
	ctx := context.Background()
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatalf("acquire failed")
	}
	// TTL expired and another replica took the key.
	store.values["k"] = "someone-else"
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.values["k"] != "someone-else" {
		t.Fatalf("foreign lock was deleted")
	}
}

func TestNewRedisLockValidates(t *testing.T) {
	if _, err := NewRedisLock(nil, "k", time.Minute); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := NewRedisLock(newFakeRedis(), "", time.Minute); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestGuardedSkipsWhenLockHeld(t *testing.T) {
	store := newFakeRedis()
	holder, _ := NewRedisLock(store, "k", time.Minute)
	ctx := context.Background()
	if ok, _ := holder.Acquire(ctx); !ok {
		t.Fatalf("acquire failed")
	}

	job := &testJob{name: "audit"}
	lock, _ := NewRedisLock(store, "k", time.Minute)
	guarded := Guarded(job, lock)
	if guarded.Name() != "audit" {
		t.Fatalf("guarded job renamed to %q", guarded.Name())
	}
	if err := guarded.Run(ctx); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job ran without the lock")
	}

	if err := holder.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := guarded.Run(ctx); err != nil {
		t.Fatalf("guarded run: %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected one run, got %d", job.runs)
	}
	if store.held("k") {
		t.Fatalf("lock not released after run")
	}
}

func TestGuardedSurfacesStoreErrors(t *testing.T) {
	store := newFakeRedis()
	store.err = errors.New("dial tcp: connection refused")
	lock, _ := NewRedisLock(store, "k", time.Minute)
	job := &testJob{name: "audit"}
	if err := Guarded(job, lock).Run(context.Background()); err == nil || errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected store error, got %v", err)
	}
	if Guarded(job, nil) != Job(job) {
		t.Fatalf("nil lock should return the job unchanged")
	}
}

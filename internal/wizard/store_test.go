package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/brametal/chapas-backend/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionStores() map[string]SessionStore {
	return map[string]SessionStore{
		"memory": NewMemorySessions(),
		"redis":  NewRedisSessions(newFakeKV(), time.Hour),
	}
}

func TestSessionStoresRoundTrip(t *testing.T) {
	for name, store := range sessionStores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, ok, err := store.Load(ctx, "st-1")
			require.NoError(t, err)
			assert.False(t, ok)

			state := walk(t)
			require.NoError(t, store.Save(ctx, state))

			got, ok, err := store.Load(ctx, "st-1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, state.Product, got.Product)
			assert.Equal(t, state.Step, got.Step)
			assert.Equal(t, state.RealLength, got.RealLength)
			assert.True(t, state.StartedAt.Equal(got.StartedAt))

			require.NoError(t, store.Delete(ctx, "st-1"))
			_, ok, err = store.Load(ctx, "st-1")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestRedisSessionsApplyTTL(t *testing.T) {
	kv := newFakeKV()
	store := NewRedisSessions(kv, 30*time.Minute)
	require.NoError(t, store.Save(context.Background(), walk(t)))
	assert.Equal(t, 30*time.Minute, kv.ttls["chapas:wizard:st-1"])
}

func TestRedisSessionsSurfaceOutages(t *testing.T) {
	kv := newFakeKV()
	kv.err = errors.New("dial tcp: connection refused")
	store := NewRedisSessions(kv, 0)

	_, _, err := store.Load(context.Background(), "st-1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.True(t, pkgerrors.IsCode(store.Save(context.Background(), walk(t)), pkgerrors.CodeDependency))
}

type fakeKV struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeKV) WizardKey(stationID string) string { return "chapas:wizard:" + stationID }

func TestMemorySessionsSweepDropsIdle(t *testing.T) {
	store := NewMemorySessions()
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	idle := walk(t)
	require.NoError(t, store.Save(context.Background(), idle))

	store.now = func() time.Time { return base.Add(2 * time.Hour) }
	fresh := walk(t)
	fresh.StationID = "st-2"
	require.NoError(t, store.Save(context.Background(), fresh))

	removed := store.Sweep(base.Add(time.Hour))
	assert.Equal(t, []string{"st-1"}, removed)

	_, ok, err := store.Load(context.Background(), "st-1")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = store.Load(context.Background(), "st-2")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Empty(t, store.Sweep(base.Add(time.Hour)))
}

package lots

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/brametal/chapas-backend/pkg/errors"
	"github.com/brametal/chapas-backend/pkg/migrate/migratetest"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func sequencers(t *testing.T) map[string]Sequencer {
	t.Helper()
	return map[string]Sequencer{
		"memory": NewMemorySequencer(),
		"redis":  NewRedisSequencer(newFakeCounterStore()),
		"sql":    NewSQLSequencer(migratetest.NewSQLite(t).DB()),
	}
}

func TestFormatAndParseID(t *testing.T) {
	assert.Equal(t, "BRASA00001", FormatID(1))
	assert.Equal(t, "BRASA00101", FormatID(101))
	assert.Equal(t, "BRASA123456", FormatID(123456))

	for _, n := range []int64{0, 1, 99999, 100000} {
		got, err := ParseID(FormatID(n))
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
	for _, bad := range []string{"", "BRASA", "BRASA12", "LOTE00001", "BRASA0000x", "BRASA-0001"} {
		_, err := ParseID(bad)
		assert.Error(t, err, bad)
	}
}

func TestSequentialAllocation(t *testing.T) {
	for name, seq := range sequencers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := int64(1); i <= 12; i++ {
				id, err := seq.Allocate(ctx, 12345)
				require.NoError(t, err)
				assert.Equal(t, FormatID(i), id)
			}
			id, err := seq.Allocate(ctx, 777)
			require.NoError(t, err)
			assert.Equal(t, "BRASA00001", id, "counters are per product code")
		})
	}
}

func TestConcurrentAllocationHasNoDuplicates(t *testing.T) {
	const callers = 40
	for name, seq := range sequencers(t) {
		t.Run(name, func(t *testing.T) {
			var (
				mu  sync.Mutex
				ids []int64
			)
			g, ctx := errgroup.WithContext(context.Background())
			for i := 0; i < callers; i++ {
				g.Go(func() error {
					id, err := seq.Allocate(ctx, 12345)
					if err != nil {
						return err
					}
					n, err := ParseID(id)
					if err != nil {
						return err
					}
					mu.Lock()
					ids = append(ids, n)
					mu.Unlock()
					return nil
				})
			}
			require.NoError(t, g.Wait())

			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			require.Len(t, ids, callers)
			for i, n := range ids {
				assert.Equal(t, int64(i+1), n)
			}
		})
	}
}

func TestOverrideContinuesFromNewValue(t *testing.T) {
	for name, seq := range sequencers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var last string
			for i := 0; i < 7; i++ {
				id, err := seq.Allocate(ctx, 12345)
				require.NoError(t, err)
				last = id
			}
			assert.Equal(t, "BRASA00007", last)

			require.NoError(t, seq.Override(ctx, 12345, 100))
			id, err := seq.Allocate(ctx, 12345)
			require.NoError(t, err)
			assert.Equal(t, "BRASA00101", id)

			require.NoError(t, seq.Override(ctx, 12345, 3))
			id, err = seq.Allocate(ctx, 12345)
			require.NoError(t, err)
			assert.Equal(t, "BRASA00004", id)
		})
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	for name, seq := range sequencers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			next, err := seq.Peek(ctx, 555)
			require.NoError(t, err)
			assert.Equal(t, "BRASA00001", next)

			_, err = seq.Get(ctx, 555)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "peek must not create a counter")

			_, err = seq.Allocate(ctx, 555)
			require.NoError(t, err)
			for i := 0; i < 3; i++ {
				next, err = seq.Peek(ctx, 555)
				require.NoError(t, err)
				assert.Equal(t, "BRASA00002", next)
			}

			id, err := seq.Allocate(ctx, 555)
			require.NoError(t, err)
			assert.Equal(t, "BRASA00002", id)
		})
	}
}

func TestOverrideCreatesMissingCounter(t *testing.T) {
	for name, seq := range sequencers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, seq.Override(ctx, 42, 9))
			counter, err := seq.Get(ctx, 42)
			require.NoError(t, err)
			assert.Equal(t, Counter{ProductCode: 42, LastNumber: 9}, counter)
			assert.Equal(t, "BRASA00010", counter.Next())
		})
	}
}

func TestValidation(t *testing.T) {
	for name, seq := range sequencers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := seq.Allocate(ctx, 0)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
			_, err = seq.Peek(ctx, -1)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
			err = seq.Override(ctx, 10, -1)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestListAndReset(t *testing.T) {
	for name, seq := range sequencers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, code := range []int64{300, 100, 200, 100} {
				_, err := seq.Allocate(ctx, code)
				require.NoError(t, err)
			}

			counters, err := seq.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []Counter{
				{ProductCode: 100, LastNumber: 2},
				{ProductCode: 200, LastNumber: 1},
				{ProductCode: 300, LastNumber: 1},
			}, counters)

			require.NoError(t, seq.Reset(ctx))
			counters, err = seq.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, counters)

			id, err := seq.Allocate(ctx, 100)
			require.NoError(t, err)
			assert.Equal(t, "BRASA00001", id)
		})
	}
}

func TestRedisStorageErrorsAreRetryable(t *testing.T) {
	store := newFakeCounterStore()
	store.failWith = fmt.Errorf("connection refused")
	seq := NewRedisSequencer(store)

	_, err := seq.Allocate(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.True(t, pkgerrors.IsRetryable(err))
}

type fakeCounterStore struct {
	mu       sync.Mutex
	data     map[string]string
	failWith error
}

func newFakeCounterStore() *fakeCounterStore {
	return &fakeCounterStore{data: map[string]string{}}
}

func (f *fakeCounterStore) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return 0, f.failWith
	}
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (f *fakeCounterStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return "", f.failWith
	}
	v, ok := f.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeCounterStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.data[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeCounterStore) Keys(_ context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []string
	for key := range f.data {
		if ok, _ := path.Match(pattern, key); ok {
			out = append(out, key)
		}
	}
	return out, nil
}

func (f *fakeCounterStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeCounterStore) LotKey(code string) string { return "chapas:lot:" + code }
func (f *fakeCounterStore) LotKeyPattern() string     { return "chapas:lot:*" }

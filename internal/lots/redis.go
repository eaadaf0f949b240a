package lots

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/brametal/chapas-backend/pkg/redis"
)

// CounterStore is the slice of the redis client the sequencer needs.
type CounterStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Keys(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, keys ...string) error
	LotKey(productCode string) string
	LotKeyPattern() string
}

// RedisSequencer keeps one INCR counter per product code.
type RedisSequencer struct {
	store CounterStore
}

func NewRedisSequencer(store CounterStore) *RedisSequencer {
	return &RedisSequencer{store: store}
}

func (r *RedisSequencer) key(code int64) string {
	return r.store.LotKey(strconv.FormatInt(code, 10))
}

func (r *RedisSequencer) Allocate(ctx context.Context, code int64) (string, error) {
	if err := validateCode(code); err != nil {
		return "", err
	}
	next, err := r.store.Incr(ctx, r.key(code))
	if err != nil {
		return "", storageError(err, "allocate")
	}
	return FormatID(next), nil
}

func (r *RedisSequencer) Peek(ctx context.Context, code int64) (string, error) {
	if err := validateCode(code); err != nil {
		return "", err
	}
	counter, err := r.Get(ctx, code)
	if err != nil {
		if isNotFound(err) {
			return FormatID(1), nil
		}
		return "", err
	}
	return counter.Next(), nil
}

func (r *RedisSequencer) Override(ctx context.Context, code int64, lastNumber int64) error {
	if err := validateOverride(code, lastNumber); err != nil {
		return err
	}
	if err := r.store.Set(ctx, r.key(code), lastNumber, 0); err != nil {
		return storageError(err, "override")
	}
	return nil
}

func (r *RedisSequencer) Get(ctx context.Context, code int64) (Counter, error) {
	raw, err := r.store.Get(ctx, r.key(code))
	if redis.IsNil(err) {
		return Counter{}, counterNotFound(code)
	}
	if err != nil {
		return Counter{}, storageError(err, "read")
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return Counter{}, storageError(err, "decode")
	}
	return Counter{ProductCode: code, LastNumber: n}, nil
}

func (r *RedisSequencer) List(ctx context.Context) ([]Counter, error) {
	keys, err := r.store.Keys(ctx, r.store.LotKeyPattern())
	if err != nil {
		return nil, storageError(err, "list")
	}
	out := make([]Counter, 0, len(keys))
	for _, key := range keys {
		code, err := strconv.ParseInt(key[strings.LastIndex(key, ":")+1:], 10, 64)
		if err != nil {
			continue
		}
		counter, err := r.Get(ctx, code)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, counter)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductCode < out[j].ProductCode })
	return out, nil
}

func (r *RedisSequencer) Reset(ctx context.Context) error {
	keys, err := r.store.Keys(ctx, r.store.LotKeyPattern())
	if err != nil {
		return storageError(err, "reset")
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return storageError(err, "reset")
	}
	return nil
}

package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 10 * time.Minute

// ErrLockHeld is returned by a guarded job when another owner holds its lock.
var ErrLockHeld = errors.New("maintenance lock held elsewhere")

// Lock coordinates exclusive job runs.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfEquals(ctx context.Context, key, value string) (bool, error)
}

// RedisLock lets one API replica run a job per cycle. Each acquisition writes
// a fresh owner token; the TTL bounds how long a crashed owner blocks others.
type RedisLock struct {
	client redisStore
	key    string
	ttl    time.Duration

	mu    sync.Mutex
	token string
}

func NewRedisLock(client redisStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case client == nil:
		return nil, errors.New("redis client required for lock")
	case key == "":
		return nil, errors.New("lock key is required")
	case ttl <= 0:
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("lock %s: %w", l.key, err)
	}
	if ok {
		l.mu.Lock()
		l.token = token
		l.mu.Unlock()
	}
	return ok, nil
}

// Release frees the key only if it still carries this holder's token, so an
// expired holder never deletes a lock another replica has since taken.
func (l *RedisLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	if _, err := l.client.DelIfEquals(ctx, l.key, token); err != nil {
		return fmt.Errorf("unlock %s: %w", l.key, err)
	}
	return nil
}

// Guarded runs job only while lock is held. A nil lock returns job unchanged.
func Guarded(job Job, lock Lock) Job {
	if job == nil || lock == nil {
		return job
	}
	return &guardedJob{job: job, lock: lock}
}

type guardedJob struct {
	job  Job
	lock Lock
}

func (g *guardedJob) Name() string { return g.job.Name() }

func (g *guardedJob) Run(ctx context.Context) (err error) {
	ok, err := g.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire %s lock: %w", g.job.Name(), err)
	}
	if !ok {
		return ErrLockHeld
	}
	defer func() {
		if relErr := g.lock.Release(ctx); relErr != nil && err == nil {
			err = fmt.Errorf("release %s lock: %w", g.job.Name(), relErr)
		}
	}()
	return g.job.Run(ctx)
}

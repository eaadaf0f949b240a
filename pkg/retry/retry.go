package retry

import (
	"context"
	"time"

	"github.com/brametal/chapas-backend/pkg/config"
	pkgerrors "github.com/brametal/chapas-backend/pkg/errors"
	goretry "github.com/sethvargo/go-retry"
)

const (
	defaultAttempts = 3
	defaultBackoff  = 200 * time.Millisecond
)

// Policy bounds how often a storage call is attempted and how long to wait in between.
type Policy struct {
	Attempts int
	Backoff  time.Duration
}

// FromConfig builds a policy from the retry section, falling back to defaults for invalid values.
func FromConfig(cfg config.RetryConfig) Policy {
	return Policy{Attempts: cfg.Attempts, Backoff: cfg.Backoff}.normalize()
}

func (p Policy) normalize() Policy {
	if p.Attempts <= 0 {
		p.Attempts = defaultAttempts
	}
	if p.Backoff < 0 {
		p.Backoff = defaultBackoff
	}
	return p
}

// backoff retries immediately when Backoff is zero; NewConstant rejects a zero interval.
func (p Policy) backoff() goretry.Backoff {
	p = p.normalize()
	var base goretry.Backoff = goretry.BackoffFunc(func() (time.Duration, bool) { return 0, false })
	if p.Backoff > 0 {
		base = goretry.NewConstant(p.Backoff)
	}
	return goretry.WithMaxRetries(uint64(p.Attempts-1), base)
}

// Do runs fn until it succeeds, returns a non-retryable error, or the attempts run out.
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	return goretry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		return classify(fn(ctx))
	})
}

// Value is Do for calls that produce a result.
func Value[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	return goretry.DoValue(ctx, p.backoff(), func(ctx context.Context) (T, error) {
		v, err := fn(ctx)
		return v, classify(err)
	})
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if pkgerrors.IsRetryable(err) {
		return goretry.RetryableError(err)
	}
	return err
}

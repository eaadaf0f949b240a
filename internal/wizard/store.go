package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	pkgerrors "github.com/brametal/chapas-backend/pkg/errors"
	"github.com/brametal/chapas-backend/pkg/redis"
)

// SessionStore keeps one wizard per station.
type SessionStore interface {
	Load(ctx context.Context, stationID string) (State, bool, error)
	Save(ctx context.Context, state State) error
	Delete(ctx context.Context, stationID string) error
}

// MemorySessions keeps sessions in process memory. Sweep plays the role redis
// TTLs play for RedisSessions.
type MemorySessions struct {
	mu       sync.RWMutex
	sessions map[string]State
	touched  map[string]time.Time
	now      func() time.Time
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{
		sessions: map[string]State{},
		touched:  map[string]time.Time{},
		now:      time.Now,
	}
}

func (m *MemorySessions) Load(_ context.Context, stationID string) (State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[stationID]
	return s, ok, nil
}

func (m *MemorySessions) Save(_ context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[state.StationID] = state
	m.touched[state.StationID] = m.now()
	return nil
}

func (m *MemorySessions) Delete(_ context.Context, stationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, stationID)
	delete(m.touched, stationID)
	return nil
}

// Sweep drops sessions last saved before cutoff and returns the station ids removed.
func (m *MemorySessions) Sweep(cutoff time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []string
	for station, at := range m.touched {
		if at.Before(cutoff) {
			delete(m.sessions, station)
			delete(m.touched, station)
			removed = append(removed, station)
		}
	}
	sort.Strings(removed)
	return removed
}

// KV is the slice of the redis client used for sessions.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	WizardKey(stationID string) string
}

// RedisSessions stores sessions as JSON so any API replica can continue a wizard.
type RedisSessions struct {
	kv  KV
	ttl time.Duration
}

// NewRedisSessions expires idle sessions after ttl; zero keeps them forever.
func NewRedisSessions(kv KV, ttl time.Duration) *RedisSessions {
	return &RedisSessions{kv: kv, ttl: ttl}
}

func (r *RedisSessions) Load(ctx context.Context, stationID string) (State, bool, error) {
	raw, err := r.kv.Get(ctx, r.kv.WizardKey(stationID))
	if redis.IsNil(err) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wizard session")
	}
	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return State{}, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("decode wizard session for %s", stationID))
	}
	return state, true, nil
}

func (r *RedisSessions) Save(ctx context.Context, state State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode wizard session")
	}
	if err := r.kv.Set(ctx, r.kv.WizardKey(state.StationID), string(payload), r.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save wizard session")
	}
	return nil
}

func (r *RedisSessions) Delete(ctx context.Context, stationID string) error {
	if err := r.kv.Del(ctx, r.kv.WizardKey(stationID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete wizard session")
	}
	return nil
}

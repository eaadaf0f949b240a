package maintenance

import (
	"context"
	"time"

	"github.com/brametal/chapas-backend/pkg/logger"
)

const SessionSweepJobName = "session_sweep"

type sessionSweeper interface {
	Sweep(cutoff time.Time) []string
}

// SessionSweepJob drops in-memory wizard sessions idle for longer than ttl.
type SessionSweepJob struct {
	sessions sessionSweeper
	ttl      time.Duration
	now      func() time.Time
	logg     *logger.Logger
}

func NewSessionSweepJob(sessions sessionSweeper, ttl time.Duration, logg *logger.Logger) *SessionSweepJob {
	return &SessionSweepJob{sessions: sessions, ttl: ttl, now: time.Now, logg: logg}
}

func (j *SessionSweepJob) Name() string { return SessionSweepJobName }

func (j *SessionSweepJob) Run(ctx context.Context) error {
	if j.ttl <= 0 {
		return nil
	}
	removed := j.sessions.Sweep(j.now().Add(-j.ttl))
	if j.logg == nil {
		return nil
	}
	for _, station := range removed {
		j.logg.Info(j.logg.WithStationID(ctx, station), "abandoned wizard session expired")
	}
	return nil
}

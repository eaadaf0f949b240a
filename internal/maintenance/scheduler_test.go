package maintenance

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/brametal/chapas-backend/pkg/logger"
	"github.com/brametal/chapas-backend/pkg/metrics"
)

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func newTestScheduler(t *testing.T, reg prometheus.Registerer, jobs ...Job) *Scheduler {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	s, err := NewScheduler(SchedulerParams{
		Logger:   logger.New(logger.Options{ServiceName: "maintenance-test"}),
		Registry: registry,
		Metrics:  metrics.NewJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct scheduler: %v", err)
	}
	return s
}

func TestSchedulerRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "ok"}
	failing := &testJob{name: "failing", err: errors.New("boom")}
	skipped := &testJob{name: "skipped", err: ErrLockHeld}
	reg := prometheus.NewRegistry()
	s := newTestScheduler(t, reg, failing, ok, skipped)

	s.RunOnce(context.Background())

	for _, job := range []*testJob{ok, failing, skipped} {
		if job.runs != 1 {
			t.Fatalf("expected %s to run once, ran %d", job.name, job.runs)
		}
	}

	for job, outcome := range map[string]string{
		"ok":      metrics.OutcomeSuccess,
		"failing": metrics.OutcomeFailure,
		"skipped": metrics.OutcomeSkipped,
	} {
		if got := runCount(t, reg, job, outcome); got != 1 {
			t.Fatalf("expected %s=%s once, got %f", job, outcome, got)
		}
	}
}

func TestSchedulerStopsOnCanceledContext(t *testing.T) {
	job := &testJob{name: "ok"}
	s := newTestScheduler(t, nil, job)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected no runs after cancel, got %d", job.runs)
	}
}

func TestNewSchedulerRequiresLogger(t *testing.T) {
	if _, err := NewScheduler(SchedulerParams{}); err == nil {
		t.Fatalf("expected error without logger")
	}
}

func runCount(t *testing.T, reg *prometheus.Registry, job, outcome string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "chapas_maintenance_job_runs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label(m, "job") == job && label(m, "outcome") == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("no run series for job=%s outcome=%s", job, outcome)
	return 0
}

func label(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

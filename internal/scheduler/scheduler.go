package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kazz187/deadlinebot/internal/config"
)

// Job is the work the scheduler fires, normally one notification run.
type Job func(ctx context.Context) error

// Status is the scheduler state exposed on the status endpoint.
type Status struct {
	Running      bool       `json:"running"`
	Schedule     string     `json:"schedule"`
	Timezone     string     `json:"timezone"`
	NextFireTime *time.Time `json:"next_fire_time,omitempty"`
}

// Scheduler fires the job once a day at the configured local time.
type Scheduler struct {
	cron     *cron.Cron
	spec     string
	timezone string
	job      Job

	mu      sync.Mutex
	entryID cron.EntryID
	running bool
}

func New(env *config.ScheduleEnv, job Job) (*Scheduler, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(env.Location())),
		spec:     fmt.Sprintf("%d %d * * *", env.Minute, env.Hour),
		timezone: env.Timezone,
		job:      job,
	}, nil
}

// Start registers the daily entry and starts the cron loop. The job runs
// with a background context: a fired run must not die with the request that
// happened to be in flight.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	id, err := s.cron.AddFunc(s.spec, func() {
		if err := s.job(context.Background()); err != nil {
			slog.Error("scheduled notification run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register schedule %q: %w", s.spec, err)
	}
	s.entryID = id
	s.cron.Start()
	s.running = true
	slog.Info("scheduler started", "schedule", s.spec, "timezone", s.timezone)
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	slog.Info("scheduler stopped")
}

// TriggerNow runs the job immediately, outside the schedule.
func (s *Scheduler) TriggerNow(ctx context.Context) error {
	return s.job(ctx)
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Running:  s.running,
		Schedule: s.spec,
		Timezone: s.timezone,
	}
	if s.running {
		next := s.cron.Entry(s.entryID).Next
		if !next.IsZero() {
			status.NextFireTime = &next
		}
	}
	return status
}

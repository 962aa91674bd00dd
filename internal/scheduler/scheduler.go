// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

// JobStatus is the outcome of a job's most recent run
type JobStatus struct {
	Name     string        `json:"name"`
	Schedule string        `json:"schedule"`
	LastRun  time.Time     `json:"last_run"`
	Duration time.Duration `json:"duration_ns"`
	Runs     int64         `json:"runs"`
	Failures int64         `json:"failures"`
	LastErr  string        `json:"last_error,omitempty"`
}

// Scheduler manages background jobs.
// Overlapping runs of the same job are skipped, never queued.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger

	mu     sync.RWMutex
	status map[string]*JobStatus
}

// New creates a new scheduler
func New(log zerolog.Logger) *Scheduler {
	l := log.With().Str("component", "scheduler").Logger()
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cronLogger{l}), cron.SkipIfStillRunning(cronLogger{l})),
		),
		ctx:    ctx,
		cancel: cancel,
		log:    l,
		status: make(map[string]*JobStatus),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop cancels running jobs and waits for them to return, or for ctx to expire
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop()

	select {
	case <-done.Done():
		s.log.Info().Msg("Scheduler stopped")
	case <-ctx.Done():
		s.log.Warn().Msg("Scheduler stop timed out with jobs still running")
	}
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@hourly"            - Every hour
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	s.mu.Lock()
	s.status[job.Name()] = &JobStatus{Name: job.Name(), Schedule: schedule}
	s.mu.Unlock()

	if _, err := s.cron.AddFunc(schedule, func() { s.execute(job) }); err != nil {
		s.mu.Lock()
		delete(s.status, job.Name())
		s.mu.Unlock()
		return fmt.Errorf("failed to register job %s: %w", job.Name(), err)
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// Every registers a job on a fixed interval.
// cron cannot express sub-second intervals; they are rounded up to one second.
func (s *Scheduler) Every(interval time.Duration, job Job) error {
	if interval < time.Second {
		interval = time.Second
	}
	return s.AddJob(fmt.Sprintf("@every %s", interval), job)
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return s.execute(job)
}

// Status returns a snapshot of every registered job's status, in no particular order
func (s *Scheduler) Status() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobStatus, 0, len(s.status))
	for _, st := range s.status {
		out = append(out, *st)
	}
	return out
}

func (s *Scheduler) execute(job Job) (err error) {
	start := time.Now()
	s.log.Debug().Str("job", job.Name()).Msg("Running job")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
		}
		s.record(job.Name(), start, err)

		if err != nil {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("Job failed")
		} else {
			s.log.Debug().
				Str("job", job.Name()).
				Dur("duration", time.Since(start)).
				Msg("Job completed")
		}
	}()

	return job.Run(s.ctx)
}

func (s *Scheduler) record(name string, start time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.status[name]
	if !ok {
		st = &JobStatus{Name: name}
		s.status[name] = st
	}
	st.LastRun = start
	st.Duration = time.Since(start)
	st.Runs++
	st.LastErr = ""
	if err != nil {
		st.Failures++
		st.LastErr = err.Error()
	}
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

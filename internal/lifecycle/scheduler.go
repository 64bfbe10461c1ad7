package lifecycle

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/najdeno/internal/metrics"
	"github.com/erazemk/najdeno/internal/store"
)

// Job is a named task run at start and then every Interval.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Locker hands out per-job leases. ok is false when another holder has the
// lease.
type Locker interface {
	TryLock(ctx context.Context, job string) (release func(), ok bool, err error)
}

// Scheduler runs jobs in the background.
type Scheduler struct {
	jobs    []Job
	locker  Locker
	db      *sql.DB
	metrics *metrics.Metrics
	logger  *slog.Logger

	// Now is the clock passed to job bookkeeping. Defaults to time.Now.
	Now func() time.Time
	// ticker returns a tick channel and a stop func for an interval.
	ticker func(d time.Duration) (<-chan time.Time, func())

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler returns an empty scheduler. A nil locker runs every job on
// every instance; a nil db skips recording run times.
func NewScheduler(locker Locker, db *sql.DB, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		locker:  locker,
		db:      db,
		metrics: m,
		logger:  logger,
		Now:     time.Now,
		ticker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// Add registers a job. It must be called before Start.
func (s *Scheduler) Add(j Job) {
	s.jobs = append(s.jobs, j)
}

// Start launches one goroutine per job. Each runs its job immediately and
// then on every tick until Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for _, j := range s.jobs {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.loop(ctx, j)
		}()
	}
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop cancels all jobs and waits for running ones to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, j Job) {
	tick, stop := s.ticker(j.Interval)
	defer stop()

	for {
		s.RunNow(ctx, j)
		select {
		case <-ctx.Done():
			return
		case <-tick:
		}
	}
}

// RunNow runs j once under its lease.
func (s *Scheduler) RunNow(ctx context.Context, j Job) {
	if ctx.Err() != nil {
		return
	}

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, j.Name)
		switch {
		case err != nil:
			// Jobs tolerate concurrent runs.
			s.logger.Warn("job lease unavailable, running anyway", "job", j.Name, "error", err)
		case !ok:
			s.logger.Info("job running elsewhere, skipped", "job", j.Name)
			return
		default:
			defer release()
		}
	}

	start := time.Now()
	err := j.Run(ctx)
	s.metrics.JobRun(j.Name, time.Since(start).Seconds(), err)
	if err != nil {
		s.logger.Error("job failed", "job", j.Name, "error", err)
		return
	}

	if s.db != nil {
		if err := store.RecordJobRun(ctx, s.db, j.Name, s.Now()); err != nil {
			s.logger.Warn("recording job run", "job", j.Name, "error", err)
		}
	}
}

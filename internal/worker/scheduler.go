package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jmehdipour/optica-notifier/internal/config"
	"github.com/jmehdipour/optica-notifier/internal/metrics"
)

const (
	JobDispatch     = "dispatch"
	JobAppointments = "appointments"
	JobWarranties   = "warranties"
)

// Pipeline is the set of periodic operations the scheduler drives.
type Pipeline interface {
	GenerateAppointmentReminders(ctx context.Context) (int, error)
	GenerateWarrantyExpiryAlerts(ctx context.Context) (int, error)
	ProcessPendingAlerts(ctx context.Context) (int, error)
}

type job struct {
	name    string
	spec    string
	run     func(ctx context.Context) (int, error)
	running atomic.Bool
}

// Scheduler owns the cron jobs of one process. A job never overlaps with
// itself: in-process via a per-job flag and, when a Locker is set, across
// processes via a lock held for the duration of the run.
type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]*job
	locker  Locker
	lockTTL time.Duration
	log     *zap.Logger

	mu        sync.Mutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler registers the three pipeline jobs. locker may be nil.
func NewScheduler(cfg config.SchedulerConfig, loc *time.Location, p Pipeline, locker Locker, lockTTL time.Duration, log *zap.Logger) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		jobs:    make(map[string]*job, 3),
		locker:  locker,
		lockTTL: lockTTL,
		log:     log.Named("scheduler"),
		ctx:     ctx,
		cancel:  cancel,
	}

	for _, j := range []*job{
		{name: JobDispatch, spec: cfg.Dispatch, run: p.ProcessPendingAlerts},
		{name: JobAppointments, spec: cfg.Appointments, run: p.GenerateAppointmentReminders},
		{name: JobWarranties, spec: cfg.Warranties, run: p.GenerateWarrantyExpiryAlerts},
	} {
		j := j
		if _, err := s.cron.AddFunc(j.spec, func() { s.runJob(s.ctx, j) }); err != nil {
			cancel()
			return nil, fmt.Errorf("scheduler %s spec %q: %w", j.name, j.spec, err)
		}
		s.jobs[j.name] = j
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.cron.Start()
	s.isRunning = true

	for _, e := range s.cron.Entries() {
		s.log.Info("job scheduled", zap.Time("next", e.Next))
	}
}

// Stop prevents new runs and waits for in-flight ones until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// RunNow runs a job synchronously with the same overlap guards as a cron tick.
// ran is false when the run was skipped.
func (s *Scheduler) RunNow(ctx context.Context, name string) (n int, ran bool, err error) {
	j, ok := s.jobs[name]
	if !ok {
		return 0, false, fmt.Errorf("unknown job %q", name)
	}
	return s.runJob(ctx, j)
}

func (s *Scheduler) runJob(ctx context.Context, j *job) (int, bool, error) {
	log := s.log.With(zap.String("job", j.name))

	if !j.running.CompareAndSwap(false, true) {
		metrics.JobsTotal.WithLabelValues(j.name, "skipped").Inc()
		log.Warn("previous run still in progress, skipping")
		return 0, false, nil
	}
	defer j.running.Store(false)

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, "job:"+j.name, s.lockTTL)
		if err != nil {
			// redis down: fall back to the in-process guard
			log.Warn("job lock unavailable, running without it", zap.Error(err))
		} else if !ok {
			metrics.JobsTotal.WithLabelValues(j.name, "skipped").Inc()
			log.Info("job held by another instance, skipping")
			return 0, false, nil
		} else {
			defer release()
		}
	}

	start := time.Now()
	n, err := j.run(ctx)
	metrics.JobDuration.WithLabelValues(j.name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.JobsTotal.WithLabelValues(j.name, "error").Inc()
		log.Error("job failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		return n, true, err
	}
	metrics.JobsTotal.WithLabelValues(j.name, "ok").Inc()
	log.Info("job finished", zap.Int("count", n), zap.Duration("took", time.Since(start)))
	return n, true, nil
}

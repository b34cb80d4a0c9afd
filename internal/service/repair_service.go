package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/volunteer-roster-api/internal/models"
	"github.com/noah-isme/volunteer-roster-api/pkg/jobs"
)

const repairJobType = "roster.repair"

// RepairConfig tunes background replay of failed back-reference updates. A task gets
// one replay plus MaxRetries retries before it is marked FAILED.
type RepairConfig struct {
	Workers       int
	MaxRetries    int
	RetryDelay    time.Duration
	SweepInterval time.Duration
	BatchSize     int
}

// RepairService replays persisted repair tasks on a worker queue. Tasks arrive directly
// from the relationship maintainer and from a periodic sweep of the pending backlog, so
// work scheduled before a restart is eventually picked up.
type RepairService struct {
	refs    ReferenceStore
	repairs RepairStore
	queue   *jobs.Queue
	metrics *MetricsService
	cfg     RepairConfig
	logger  *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
	stop     context.CancelFunc
	sweeper  sync.WaitGroup
}

// NewRepairService constructs the service and its queue. Call Start to run workers.
func NewRepairService(refs ReferenceStore, repairs RepairStore, metrics *MetricsService, cfg RepairConfig, logger *zap.Logger) *RepairService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	s := &RepairService{
		refs:     refs,
		repairs:  repairs,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger,
		inFlight: map[string]struct{}{},
	}
	s.queue = jobs.NewQueue("repair", s.handle, jobs.QueueConfig{
		Workers:     cfg.Workers,
		MaxRetries:  cfg.MaxRetries,
		RetryDelay:  cfg.RetryDelay,
		OnExhausted: s.exhausted,
		Logger:      logger,
	})
	return s
}

// Start runs the workers and the periodic sweep until Stop or ctx cancellation.
func (s *RepairService) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.stop = cancel
	s.mu.Unlock()

	s.queue.Start(ctx)
	s.sweeper.Add(1)
	go func() {
		defer s.sweeper.Done()
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()
		s.sweepAndLog(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweepAndLog(ctx)
			}
		}
	}()
}

// Stop halts the sweep and the workers.
func (s *RepairService) Stop() {
	s.mu.Lock()
	stop := s.stop
	s.mu.Unlock()
	if stop == nil {
		return
	}
	stop()
	s.sweeper.Wait()
	s.queue.Stop()
}

// Schedule queues a persisted task for replay. A full or stopped queue leaves the task
// to the next sweep.
func (s *RepairService) Schedule(task models.RepairTask) {
	if !s.claim(task.ID) {
		return
	}
	if err := s.queue.TryEnqueue(jobs.Job{ID: task.ID, Type: repairJobType, Payload: task}); err != nil {
		s.release(task.ID)
		s.logger.Warn("repair task deferred to sweep", zap.String("task_id", task.ID), zap.Error(err))
	}
}

// Sweep schedules pending tasks from the store and returns how many were found.
func (s *RepairService) Sweep(ctx context.Context) (int, error) {
	tasks, err := s.repairs.ListPending(ctx, s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	for _, task := range tasks {
		s.Schedule(task)
	}
	return len(tasks), nil
}

// Replay applies a task's reference update once and records the outcome.
func (s *RepairService) Replay(ctx context.Context, task models.RepairTask) error {
	err := s.refs.Apply(ctx, task.Op())
	if err != nil && !(isNotFound(err) && task.Action == models.RefRemove) {
		s.metrics.RecordRepair(false)
		maxAttempts := s.cfg.MaxRetries + 1
		if isNotFound(err) {
			// the owner no longer exists, so further attempts cannot succeed
			maxAttempts = task.Attempts + 1
		}
		if recErr := s.repairs.RecordFailure(ctx, task.ID, err.Error(), maxAttempts); recErr != nil {
			s.logger.Error("record repair failure", zap.String("task_id", task.ID), zap.Error(recErr))
		}
		return err
	}

	if err := s.repairs.MarkResolved(ctx, task.ID); err != nil {
		s.logger.Error("mark repair resolved", zap.String("task_id", task.ID), zap.Error(err))
		return err
	}
	s.metrics.RecordRepair(true)
	s.logger.Info("back-reference repaired",
		zap.String("task_id", task.ID),
		zap.String("operation", task.Operation),
		zap.String("op", task.Op().String()),
	)
	return nil
}

func (s *RepairService) handle(ctx context.Context, job jobs.Job) error {
	task, ok := job.Payload.(models.RepairTask)
	if !ok {
		s.release(job.ID)
		return nil
	}
	task.Attempts += job.Attempt
	if err := s.Replay(ctx, task); err != nil {
		if isNotFound(err) {
			s.release(job.ID)
			return nil
		}
		return err
	}
	s.release(job.ID)
	return nil
}

func (s *RepairService) exhausted(job jobs.Job, err error) {
	s.release(job.ID)
	s.logger.Error("repair task failed permanently", zap.String("task_id", job.ID), zap.Error(err))
}

func (s *RepairService) sweepAndLog(ctx context.Context) {
	n, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Warn("repair sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("repair sweep scheduled tasks", zap.Int("count", n))
	}
}

func (s *RepairService) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *RepairService) release(id string) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

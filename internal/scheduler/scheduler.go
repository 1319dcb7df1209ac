package scheduler

import (
	"context"
	"fmt"
	"time"

	"anoa.com/coinexchange/pkg/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a unit of background work. An empty Schedule registers the job as on-demand.
type Job interface {
	Name() string
	Schedule() string
	Execute(ctx context.Context) error
}

type Scheduler struct {
	cron *cron.Cron
	jobs []Job
}

func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		jobs: make([]Job, 0),
	}
}

func (s *Scheduler) Register(job Job) error {
	s.jobs = append(s.jobs, job)

	schedule := job.Schedule()
	if schedule == "" {
		logger.Log.Info("registered on-demand job", zap.String("job", job.Name()))
		return nil
	}

	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.run(context.Background(), job); err != nil {
			logger.Log.Error("scheduled job failed", zap.String("job", job.Name()), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name(), err)
	}

	logger.Log.Info("scheduled job", zap.String("job", job.Name()), zap.String("cron", schedule))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Log.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	logger.Log.Info("scheduler stopped")
}

// RunByName executes a registered job immediately.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			return s.run(ctx, job)
		}
	}
	return fmt.Errorf("job %q not registered", name)
}

func (s *Scheduler) Jobs() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	started := time.Now()
	err := job.Execute(ctx)
	logger.Log.Info("job finished",
		zap.String("job", job.Name()),
		zap.Duration("took", time.Since(started)),
		zap.Bool("ok", err == nil),
	)
	return err
}

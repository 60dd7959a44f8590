package tasks

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"bizdesk/internal/config"
	"bizdesk/internal/utils/logger"
)

// Scheduler handles periodic task scheduling
type Scheduler struct {
	scheduler *asynq.Scheduler
	archive   config.ArchiveConfig
	logger    *logger.Logger
}

// NewScheduler creates a new task scheduler
func NewScheduler(redisCfg config.RedisConfig, archive config.ArchiveConfig, logger *logger.Logger) *Scheduler {
	return &Scheduler{
		scheduler: asynq.NewScheduler(RedisOpt(redisCfg), &asynq.SchedulerOpts{}),
		archive:   archive,
		logger:    logger,
	}
}

// Start registers the periodic tasks and runs the scheduler in the background.
func (s *Scheduler) Start() error {
	if err := s.registerTasks(); err != nil {
		return fmt.Errorf("failed to register tasks: %w", err)
	}

	s.logger.Info("starting task scheduler")
	return s.scheduler.Start()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Shutdown()
	s.logger.Info("task scheduler stopped")
}

// registerTasks registers all periodic tasks
func (s *Scheduler) registerTasks() error {
	if s.archive.Cron == "" {
		s.logger.Warn("invoice archival schedule is empty, not scheduling")
		return nil
	}
	if err := s.RegisterCustomTask(s.archive.Cron, TaskTypeInvoicesArchive, nil, archiveOptions()...); err != nil {
		return err
	}
	s.logger.Info("registered all periodic tasks")
	return nil
}

// RegisterCustomTask registers a custom periodic task
func (s *Scheduler) RegisterCustomTask(spec string, taskType string, payload []byte, opts ...asynq.Option) error {
	next, err := NextRun(spec, time.Now())
	if err != nil {
		return err
	}
	entryID, err := s.scheduler.Register(spec, asynq.NewTask(taskType, payload, opts...))
	if err != nil {
		return fmt.Errorf("failed to register custom task: %w", err)
	}

	s.logger.Info("registered custom task %s %s %s, next run %s", taskType, spec, entryID, next.Format(time.RFC3339))
	return nil
}

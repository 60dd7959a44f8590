package tasks

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
)

// importOptions are the enqueue options of a customer import task.
func importOptions(batchID string, maxRetry int) []asynq.Option {
	if maxRetry < RetryMin {
		maxRetry = RetryDefault
	}
	if maxRetry > RetryMax {
		maxRetry = RetryMax
	}
	return []asynq.Option{
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(TimeoutMedium),
		asynq.TaskID("import:" + batchID),
	}
}

// archiveOptions are the options of the scheduled archival task.
func archiveOptions() []asynq.Option {
	return []asynq.Option{
		asynq.Queue(QueueLow),
		asynq.MaxRetry(RetryMin),
		asynq.Timeout(TimeoutLong),
	}
}

// ParseSchedule validates a standard five field cron expression.
func ParseSchedule(spec string) (cron.Schedule, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return schedule, nil
}

// NextRun returns when spec fires next after from.
func NextRun(spec string, from time.Time) (time.Time, error) {
	schedule, err := ParseSchedule(spec)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.Next(from), nil
}

package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"bizdesk/internal/config"
	"bizdesk/internal/utils/logger"
)

// TaskClient handles task enqueuing with improved error handling and context support
type TaskClient struct {
	client      *asynq.Client
	logger      *logger.Logger
	redisClient *redis.Client
	maxRetry    int
}

func (c *TaskClient) GetClient() *asynq.Client {
	return c.client
}

// Redis returns the go-redis client sharing the task queue's connection settings.
func (c *TaskClient) Redis() *redis.Client {
	return c.redisClient
}

// RedisOpt builds the asynq connection options from config.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewTaskClient creates a new TaskClient with the given Redis configuration
func NewTaskClient(cfg config.RedisConfig, maxRetry int) *TaskClient {
	return &TaskClient{
		client: asynq.NewClient(RedisOpt(cfg)),
		redisClient: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		logger:   logger.New("TASKS"),
		maxRetry: maxRetry,
	}
}

// EnqueueImport queues a customer import batch. Enqueuing the same batch twice is a no-op.
func (c *TaskClient) EnqueueImport(ctx context.Context, batchID string) error {
	payload, err := json.Marshal(ImportPayload{BatchID: batchID})
	if err != nil {
		return fmt.Errorf("encode import payload: %w", err)
	}
	info, err := c.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeCustomerImport, payload), importOptions(batchID, c.maxRetry)...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		c.logger.Warn("Import %s is already queued", batchID)
		return nil
	}
	if err != nil {
		return c.logger.Error("Failed to enqueue import %s", err, batchID)
	}
	c.logger.Info("Enqueued %s task %s on %s", info.Type, info.ID, info.Queue)
	return nil
}

// Close closes the underlying asynq and redis clients
func (c *TaskClient) Close() error {
	return errors.Join(c.client.Close(), c.redisClient.Close())
}

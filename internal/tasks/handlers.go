package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"bizdesk/internal/errs"
	"bizdesk/internal/utils/logger"
)

// Importer processes a stored customer import batch.
type Importer interface {
	Process(ctx context.Context, batchID string) error
}

// Archiver archives paid invoices older than a cutoff.
type Archiver interface {
	ArchiveStale(ctx context.Context, before time.Time) (int64, error)
}

// TaskHandler handles task processing with improved error handling and logging
type TaskHandler struct {
	importer    Importer
	archiver    Archiver
	afterMonths int
	logger      *logger.Logger
	now         func() time.Time
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(importer Importer, archiver Archiver, archiveCfgMonths int) *TaskHandler {
	return &TaskHandler{
		importer:    importer,
		archiver:    archiver,
		afterMonths: archiveCfgMonths,
		logger:      logger.New("task_handler"),
		now:         time.Now,
	}
}

// HandleCustomerImport runs one import batch. Missing batches are not retried.
func (h *TaskHandler) HandleCustomerImport(ctx context.Context, t *asynq.Task) error {
	var p ImportPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil || p.BatchID == "" {
		return fmt.Errorf("invalid import payload: %v: %w", err, asynq.SkipRetry)
	}
	h.logger.Info("Processing import batch %s", p.BatchID)

	err := h.importer.Process(ctx, p.BatchID)
	if err != nil && errs.KindOf(err) == errs.KindNotFound {
		return fmt.Errorf("import batch %s: %v: %w", p.BatchID, err, asynq.SkipRetry)
	}
	return err
}

// HandleInvoicesArchive archives invoices paid more than the configured months ago.
func (h *TaskHandler) HandleInvoicesArchive(ctx context.Context, t *asynq.Task) error {
	months := h.afterMonths
	if len(t.Payload()) > 0 {
		var p ArchivePayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("invalid archive payload: %v: %w", err, asynq.SkipRetry)
		}
		if p.AfterMonths > 0 {
			months = p.AfterMonths
		}
	}
	if months <= 0 {
		h.logger.Warn("Invoice archival disabled, after_months is %d", months)
		return nil
	}

	cutoff := h.now().AddDate(0, -months, 0)
	n, err := h.archiver.ArchiveStale(ctx, cutoff)
	if err != nil {
		return h.logger.Error("Invoice archival failed", err)
	}
	h.logger.Success("Archived %d invoices paid before %s", n, cutoff.Format("2006-01-02"))
	return nil
}

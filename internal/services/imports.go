package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"bizdesk/internal/authz"
	"bizdesk/internal/errs"
	"bizdesk/internal/events"
	"bizdesk/internal/models"
	"bizdesk/internal/utils"
	"bizdesk/internal/utils/logger"
)

var importLog = logger.New("IMPORT")

// ImportQueue hands a pending batch to the background worker.
type ImportQueue interface {
	EnqueueImport(ctx context.Context, batchID string) error
}

// Limiter admits or rejects an action for a key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type ImportRequest struct {
	FileName string             `json:"fileName"`
	Rows     []models.ImportRow `json:"rows" validate:"required,min=1,dive"`
}

// ImportService runs bulk customer imports and their rollback.
type ImportService struct {
	Batches *ScopedService[models.ImportBatch, *models.ImportBatch]
	db      *gorm.DB
	queue   ImportQueue
	limiter Limiter
	maxRows int
}

func NewImportService(db *gorm.DB, policy *authz.Policy, bus *events.EventBus, queue ImportQueue, limiter Limiter, maxRows int) *ImportService {
	return &ImportService{
		Batches: NewScopedService[models.ImportBatch](db, policy, bus, models.ModuleCustomers).
			WithFilters("status", "file_name"),
		db:      db,
		queue:   queue,
		limiter: limiter,
		maxRows: maxRows,
	}
}

// Start stores a pending batch and enqueues it for processing.
func (s *ImportService) Start(ctx context.Context, scope Scope, req ImportRequest) (*models.ImportBatch, error) {
	if _, err := s.Batches.Authorize(ctx, scope, models.CapAdd); err != nil {
		return nil, err
	}
	if len(req.Rows) == 0 {
		return nil, errs.Validation("import has no rows")
	}
	if s.maxRows > 0 && len(req.Rows) > s.maxRows {
		return nil, errs.Validation("import has %d rows, the limit is %d", len(req.Rows), s.maxRows)
	}
	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, scope.WorkspaceID)
		if err != nil {
			return nil, errs.Internal("failed to check import rate", err)
		}
		if !ok {
			return nil, errs.RateLimited("too many imports, try again later")
		}
	}

	rows, err := utils.EncodeJSON(req.Rows)
	if err != nil {
		return nil, errs.Internal("failed to encode import rows", err)
	}
	batch := &models.ImportBatch{
		FileName: req.FileName,
		Status:   models.ImportStatusPending,
		RowCount: len(req.Rows),
		Rows:     rows,
	}
	if err := s.Batches.Create(ctx, scope, batch); err != nil {
		return nil, err
	}

	// Without a queue the batch is processed inline.
	if s.queue == nil {
		if err := s.Process(ctx, batch.ID); err != nil {
			return nil, err
		}
		return s.Batches.Find(ctx, s.db, scope.WorkspaceID, batch.ID)
	}

	if err := s.queue.EnqueueImport(ctx, batch.ID); err != nil {
		s.fail(ctx, batch.ID, err)
		return nil, errs.Internal("failed to queue import", err)
	}
	importLog.Info("Queued import %s with %d rows", batch.ID, batch.RowCount)
	return batch, nil
}

// Process inserts the customers of a pending batch. Batches that are no
// longer pending are skipped.
func (s *ImportService) Process(ctx context.Context, batchID string) error {
	var batch models.ImportBatch
	if err := s.db.WithContext(ctx).First(&batch, "id = ?", batchID).Error; err != nil {
		return errs.FromDB(err, "import batch")
	}
	if batch.Status != models.ImportStatusPending {
		importLog.Info("Skipping import %s in status %s", batch.ID, batch.Status)
		return nil
	}

	rows, err := utils.DecodeJSON[[]models.ImportRow](batch.Rows)
	if err != nil {
		s.fail(ctx, batch.ID, err)
		return fmt.Errorf("decode rows of batch %s: %w", batch.ID, err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customers := make([]models.Customer, 0, len(rows))
		for i, r := range rows {
			if r.Name == "" {
				return fmt.Errorf("row %d: name is required", i+1)
			}
			c := models.Customer{
				Name:          r.Name,
				Email:         r.Email,
				Phone:         r.Phone,
				Address:       r.Address,
				Notes:         r.Notes,
				ImportBatchID: &batch.ID,
			}
			c.WorkspaceID = batch.WorkspaceID
			c.CreatedBy = batch.CreatedBy
			customers = append(customers, c)
		}
		if len(customers) > 0 {
			if err := tx.CreateInBatches(&customers, 100).Error; err != nil {
				return err
			}
		}

		res := tx.Model(&models.ImportBatch{}).
			Where("id = ? AND status = ?", batch.ID, models.ImportStatusPending).
			Updates(map[string]interface{}{
				"status":         models.ImportStatusCompleted,
				"imported_count": len(customers),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errBatchNoLongerPending
		}
		return nil
	})
	if errors.Is(err, errBatchNoLongerPending) {
		importLog.Info("Import %s changed state while processing, discarded", batch.ID)
		return nil
	}
	if err != nil {
		s.fail(ctx, batch.ID, err)
		return importLog.Error("Import %s failed", err, batch.ID)
	}

	importLog.Success("Imported %d customers for batch %s", len(rows), batch.ID)
	s.Batches.publish(batch.WorkspaceID, "completed", batch.ID)
	return nil
}

var errBatchNoLongerPending = errors.New("import batch is no longer pending")

func (s *ImportService) fail(ctx context.Context, batchID string, cause error) {
	err := s.db.WithContext(ctx).Model(&models.ImportBatch{}).
		Where("id = ? AND status = ?", batchID, models.ImportStatusPending).
		Updates(map[string]interface{}{
			"status": models.ImportStatusFailed,
			"error":  cause.Error(),
		}).Error
	if err != nil {
		_ = importLog.Error("Failed to mark import %s as failed", err, batchID)
	}
}

// Rollback deletes every customer created by the batch, with their students
// and groups, and marks the batch rolled back. A batch can be rolled back once.
func (s *ImportService) Rollback(ctx context.Context, scope Scope, batchID string) (*models.ImportBatch, error) {
	if _, err := s.Batches.Authorize(ctx, scope, models.CapDelete); err != nil {
		return nil, err
	}

	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.Batches.Find(ctx, tx, scope.WorkspaceID, batchID); err != nil {
			return err
		}

		now := time.Now()
		res := tx.Model(&models.ImportBatch{}).
			Where("workspace_id = ? AND id = ? AND status <> ?", scope.WorkspaceID, batchID, models.ImportStatusRolledBack).
			Updates(map[string]interface{}{
				"status":         models.ImportStatusRolledBack,
				"rolled_back_at": now,
			})
		if res.Error != nil {
			return errs.Internal("failed to update import batch", res.Error)
		}
		if res.RowsAffected == 0 {
			return errs.Validation("import batch already rolled back")
		}

		var ids []string
		err := tx.Model(&models.Customer{}).
			Where("workspace_id = ? AND import_batch_id = ?", scope.WorkspaceID, batchID).
			Pluck("id", &ids).Error
		if err != nil {
			return errs.Internal("failed to load imported customers", err)
		}
		deleted, err = deleteCustomers(tx, scope.WorkspaceID, ids)
		return err
	})
	if err != nil {
		return nil, err
	}

	importLog.Info("Rolled back import %s, %d customers deleted", batchID, deleted)
	s.Batches.publish(scope.WorkspaceID, "rolled_back", batchID)
	return s.Batches.Find(ctx, s.db, scope.WorkspaceID, batchID)
}

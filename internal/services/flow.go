package services

import (
	"context"

	"gorm.io/gorm"

	"bizdesk/internal/authz"
	"bizdesk/internal/errs"
	"bizdesk/internal/events"
	"bizdesk/internal/models"
)

// FlowService manages tasks and ideas. Rows created by other members can
// only be changed with the editShared capability.
type FlowService struct {
	Tasks *ScopedService[models.Task, *models.Task]
	Ideas *ScopedService[models.Idea, *models.Idea]
	db    *gorm.DB
}

func NewFlowService(db *gorm.DB, policy *authz.Policy, bus *events.EventBus) *FlowService {
	return &FlowService{
		Tasks: NewScopedService[models.Task](db, policy, bus, models.ModuleFlow).
			WithFilters("status", "priority", "assignee_id", "shared", "due_date", "title").
			WithSharedEdits().
			WithBeforeSave(func(tx *gorm.DB, ws string, t *models.Task) error {
				if t.Status == "" {
					t.Status = models.TaskStatusTodo
				}
				if t.AssigneeID != nil && *t.AssigneeID == "" {
					t.AssigneeID = nil
				}
				if t.AssigneeID != nil {
					return requireMember(tx, ws, *t.AssigneeID)
				}
				return nil
			}),
		Ideas: NewScopedService[models.Idea](db, policy, bus, models.ModuleFlow).
			WithFilters("shared", "title").
			WithSharedEdits(),
		db: db,
	}
}

// requireMember fails unless user owns or has a permission row on the workspace.
func requireMember(tx *gorm.DB, workspaceID, userID string) error {
	var count int64
	err := tx.Model(&models.Workspace{}).Where("id = ? AND owner_id = ?", workspaceID, userID).Count(&count).Error
	if err == nil && count == 0 {
		err = tx.Model(&models.Permission{}).Where("workspace_id = ? AND user_id = ?", workspaceID, userID).Count(&count).Error
	}
	if err != nil {
		return errs.Internal("failed to check assignee", err)
	}
	if count == 0 {
		return errs.Validation("assignee is not a member of this workspace")
	}
	return nil
}

// ConvertIdea turns an idea into a todo task and removes the idea.
func (s *FlowService) ConvertIdea(ctx context.Context, scope Scope, ideaID string) (*models.Task, error) {
	if _, err := s.Tasks.Authorize(ctx, scope, models.CapAdd); err != nil {
		return nil, err
	}
	decision, err := s.Ideas.Authorize(ctx, scope, models.CapDelete)
	if err != nil {
		return nil, err
	}
	idea, err := s.Ideas.Find(ctx, s.db, scope.WorkspaceID, ideaID)
	if err != nil {
		return nil, err
	}
	if err := s.Ideas.checkShared(ctx, scope, decision, idea); err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:       idea.Title,
		Description: idea.Body,
		Status:      models.TaskStatusTodo,
		Shared:      idea.Shared,
	}
	task.WorkspaceID = scope.WorkspaceID
	task.CreatedBy = scope.Caller.UserID

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return err
		}
		return tx.Where("workspace_id = ?", scope.WorkspaceID).Delete(idea).Error
	})
	if err != nil {
		return nil, wrapWrite(err, "convert", "idea")
	}

	s.Tasks.publish(scope.WorkspaceID, "created", task.ID)
	s.Ideas.publish(scope.WorkspaceID, "deleted", idea.ID)
	return task, nil
}

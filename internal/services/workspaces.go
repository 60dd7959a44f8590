package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bizdesk/internal/authz"
	"bizdesk/internal/errs"
	"bizdesk/internal/events"
	"bizdesk/internal/models"
	"bizdesk/internal/utils/logger"
)

var workspaceLog = logger.New("WORKSPACE")

// WorkspaceAccess is a workspace as seen by one user.
type WorkspaceAccess struct {
	models.Workspace
	IsOwner    bool               `json:"isOwner"`
	Permission *models.Permission `json:"permission,omitempty"`
}

// GrantRequest gives a user access to a workspace by email.
type GrantRequest struct {
	Email         string        `json:"email" validate:"required,email"`
	Module        models.Module `json:"module" validate:"module"`
	CanView       bool          `json:"canView"`
	CanAdd        bool          `json:"canAdd"`
	CanDelete     bool          `json:"canDelete"`
	CanEditShared bool          `json:"canEditShared"`
}

// WorkspaceService manages workspaces, their permission table and purges.
type WorkspaceService struct {
	db     *gorm.DB
	policy *authz.Policy
	bus    *events.EventBus
}

func NewWorkspaceService(db *gorm.DB, policy *authz.Policy, bus *events.EventBus) *WorkspaceService {
	return &WorkspaceService{db: db, policy: policy, bus: bus}
}

// List returns the workspaces the caller owns or holds a permission on.
func (s *WorkspaceService) List(ctx context.Context, caller authz.Caller) ([]WorkspaceAccess, error) {
	if caller.Anonymous() {
		return nil, errs.Unauthenticated("authentication required")
	}
	var owned []models.Workspace
	if err := s.db.WithContext(ctx).Where("owner_id = ?", caller.UserID).Order("created_at").Find(&owned).Error; err != nil {
		return nil, errs.Internal("failed to list workspaces", err)
	}
	out := make([]WorkspaceAccess, 0, len(owned))
	seen := make(map[string]bool, len(owned))
	for _, ws := range owned {
		out = append(out, WorkspaceAccess{Workspace: ws, IsOwner: true})
		seen[ws.ID] = true
	}

	var perms []models.Permission
	if err := s.db.WithContext(ctx).Where("user_id = ?", caller.UserID).Find(&perms).Error; err != nil {
		return nil, errs.Internal("failed to list permissions", err)
	}
	for i := range perms {
		p := perms[i]
		if seen[p.WorkspaceID] {
			continue
		}
		var ws models.Workspace
		if err := s.db.WithContext(ctx).First(&ws, "id = ?", p.WorkspaceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, errs.Internal("failed to load workspace", err)
		}
		out = append(out, WorkspaceAccess{Workspace: ws, Permission: &p})
		seen[ws.ID] = true
	}
	return out, nil
}

// Create makes a workspace owned by the caller.
func (s *WorkspaceService) Create(ctx context.Context, caller authz.Caller, name string) (*models.Workspace, error) {
	if caller.Anonymous() {
		return nil, errs.Unauthenticated("authentication required")
	}
	return CreateWorkspace(ctx, s.db, caller.UserID, name)
}

// CreateWorkspace inserts a workspace and its owner grant in one transaction.
func CreateWorkspace(ctx context.Context, db *gorm.DB, ownerID, name string) (*models.Workspace, error) {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return nil, errs.Validation("workspace name must have at least 2 characters")
	}
	ws := &models.Workspace{Name: name, OwnerID: ownerID}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ws).Error; err != nil {
			return err
		}
		return tx.Create(models.OwnerPermission(ws.ID, ownerID)).Error
	})
	if err != nil {
		return nil, errs.Internal("failed to create workspace", err)
	}
	workspaceLog.Info("Created workspace %s for %s", ws.ID, ownerID)
	return ws, nil
}

func (s *WorkspaceService) Rename(ctx context.Context, caller authz.Caller, workspaceID, name string) (*models.Workspace, error) {
	ws, err := s.policy.RequireOwner(ctx, caller, workspaceID)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return nil, errs.Validation("workspace name must have at least 2 characters")
	}
	if err := s.db.WithContext(ctx).Model(ws).Update("name", name).Error; err != nil {
		return nil, errs.Internal("failed to rename workspace", err)
	}
	ws.Name = name
	return ws, nil
}

// Permissions lists the permission table of a workspace.
func (s *WorkspaceService) Permissions(ctx context.Context, caller authz.Caller, workspaceID string) ([]models.Permission, error) {
	if _, err := s.policy.RequireOwner(ctx, caller, workspaceID); err != nil {
		return nil, err
	}
	var perms []models.Permission
	err := s.db.WithContext(ctx).Preload("User").
		Where("workspace_id = ?", workspaceID).
		Order("created_at").
		Find(&perms).Error
	if err != nil {
		return nil, errs.Internal("failed to list permissions", err)
	}
	return perms, nil
}

// Grant sets the permission of an existing user, replacing any earlier grant.
func (s *WorkspaceService) Grant(ctx context.Context, caller authz.Caller, workspaceID string, req GrantRequest) (*models.Permission, error) {
	ws, err := s.policy.RequireOwner(ctx, caller, workspaceID)
	if err != nil {
		return nil, err
	}
	if req.Module == models.ModuleUnknown {
		return nil, errs.Validation("module is required")
	}

	var user models.User
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("no user with email %s, they must sign in once first", email)
		}
		return nil, errs.Internal("failed to load user", err)
	}
	if user.ID == ws.OwnerID {
		return nil, errs.Validation("the owner already has full access")
	}

	perm := &models.Permission{
		WorkspaceID:   workspaceID,
		UserID:        user.ID,
		Module:        req.Module,
		CanView:       req.CanView,
		CanAdd:        req.CanAdd,
		CanDelete:     req.CanDelete,
		CanEditShared: req.CanEditShared,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"module", "can_view", "can_add", "can_delete", "can_edit_shared", "updated_at"}),
	}).Create(perm).Error
	if err != nil {
		return nil, errs.Internal("failed to grant permission", err)
	}

	var stored models.Permission
	err = s.db.WithContext(ctx).Preload("User").
		Where("workspace_id = ? AND user_id = ?", workspaceID, user.ID).
		First(&stored).Error
	if err != nil {
		return nil, errs.FromDB(err, "permission")
	}
	workspaceLog.Info("Granted %s on %s to %s", stored.Module, workspaceID, email)
	s.publish(workspaceID, "permissions", "updated")
	return &stored, nil
}

// Revoke removes a user's access to the workspace.
func (s *WorkspaceService) Revoke(ctx context.Context, caller authz.Caller, workspaceID, userID string) error {
	ws, err := s.policy.RequireOwner(ctx, caller, workspaceID)
	if err != nil {
		return err
	}
	if userID == ws.OwnerID {
		return errs.Validation("the owner's access cannot be revoked")
	}
	res := s.db.WithContext(ctx).Where("workspace_id = ? AND user_id = ?", workspaceID, userID).Delete(&models.Permission{})
	if res.Error != nil {
		return errs.Internal("failed to revoke permission", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("permission not found")
	}
	s.publish(workspaceID, "permissions", "deleted")
	return nil
}

// Purge deletes every domain row of the workspace. confirm must equal the
// workspace name.
func (s *WorkspaceService) Purge(ctx context.Context, caller authz.Caller, workspaceID, confirm string) error {
	ws, err := s.policy.RequireOwner(ctx, caller, workspaceID)
	if err != nil {
		return err
	}
	return s.purge(ctx, ws, confirm)
}

// PurgeAsOperator is Purge for the operator CLI, without an owner check.
func (s *WorkspaceService) PurgeAsOperator(ctx context.Context, workspaceID, confirm string) error {
	var ws models.Workspace
	if err := s.db.WithContext(ctx).First(&ws, "id = ?", workspaceID).Error; err != nil {
		return errs.FromDB(err, "workspace")
	}
	return s.purge(ctx, &ws, confirm)
}

// purgeOrder lists workspace tables children first.
var purgeOrder = []interface{}{
	&models.InvoiceLine{},
	&models.Invoice{},
	&models.Student{},
	&models.StudentGroup{},
	&models.Customer{},
	&models.ImportBatch{},
	&models.OutgoingOverride{},
	&models.Outgoing{},
	&models.BudgetIncome{},
	&models.AccountBalance{},
	&models.FinanceAccount{},
	&models.Task{},
	&models.Idea{},
	&models.ShoppingItem{},
	&models.ShoppingList{},
	&models.Recipe{},
	&models.DashboardLayout{},
	&models.CompanySettings{},
}

func (s *WorkspaceService) purge(ctx context.Context, ws *models.Workspace, confirm string) error {
	if confirm != ws.Name {
		return errs.Validation("confirmation does not match the workspace name")
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range purgeOrder {
			q := tx.Where("workspace_id = ?", ws.ID)
			if _, ok := model.(*models.InvoiceLine); ok {
				q = tx.Where("invoice_id IN (?)", tx.Model(&models.Invoice{}).Select("id").Where("workspace_id = ?", ws.ID))
			}
			if err := q.Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errs.Internal("failed to purge workspace", err)
	}
	workspaceLog.Warn("Purged all data of workspace %s (%s)", ws.ID, ws.Name)
	s.publish(ws.ID, "workspaces", "purged")
	return nil
}

func (s *WorkspaceService) publish(workspaceID, table, action string) {
	s.bus.Publish(events.Change{
		WorkspaceID: workspaceID,
		Module:      models.ModuleAll,
		Table:       table,
		Action:      action,
		ID:          workspaceID,
	})
}

// Package authz decides whether a caller may act on a workspace.
//
// Every domain service goes through Policy.Authorize before touching
// workspace data; nothing else reads the permission table.
package authz

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"bizdesk/internal/errs"
	"bizdesk/internal/models"
)

// Caller is the resolved identity behind a request.
type Caller struct {
	UserID string
	Email  string
	// Admin is set for allow-list administrators.
	Admin bool
}

func (c Caller) Anonymous() bool { return c.UserID == "" }

// Decision explains why access was granted.
type Decision struct {
	Workspace  *models.Workspace
	Owner      bool
	Permission *models.Permission
}

type Policy struct {
	db *gorm.DB
}

func NewPolicy(db *gorm.DB) *Policy {
	return &Policy{db: db}
}

// Authorize grants when caller owns the workspace, or holds a permission row
// whose module covers module with the capability flag set.
func (p *Policy) Authorize(ctx context.Context, caller Caller, workspaceID string, module models.Module, capability models.Capability) (*Decision, error) {
	if caller.Anonymous() {
		return nil, errs.Unauthenticated("authentication required")
	}
	if module == models.ModuleUnknown || module == models.ModuleAll {
		return nil, errs.Internal("invalid authorization target", errors.New("module must be a concrete feature module"))
	}

	ws, err := p.workspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if ws.OwnerID == caller.UserID {
		return &Decision{Workspace: ws, Owner: true}, nil
	}

	var perm models.Permission
	err = p.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, caller.UserID).
		First(&perm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Forbidden("no access to this workspace")
	}
	if err != nil {
		return nil, errs.Internal("failed to load permissions", err)
	}

	if !perm.Allows(module, capability) {
		return nil, errs.Forbidden("missing %s permission on %s", capability, module)
	}
	return &Decision{Workspace: ws, Permission: &perm}, nil
}

// RequireOwner grants only the workspace owner.
func (p *Policy) RequireOwner(ctx context.Context, caller Caller, workspaceID string) (*models.Workspace, error) {
	if caller.Anonymous() {
		return nil, errs.Unauthenticated("authentication required")
	}
	ws, err := p.workspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if ws.OwnerID != caller.UserID {
		return nil, errs.Forbidden("only the workspace owner can do this")
	}
	return ws, nil
}

// ViewableModules lists the modules caller may view in the workspace.
func (p *Policy) ViewableModules(ctx context.Context, caller Caller, workspaceID string) ([]models.Module, error) {
	var out []models.Module
	for _, m := range models.Modules() {
		_, err := p.Authorize(ctx, caller, workspaceID, m, models.CapView)
		if err == nil {
			out = append(out, m)
			continue
		}
		if k := errs.KindOf(err); k != errs.KindForbidden {
			return nil, err
		}
	}
	if len(out) == 0 {
		return nil, errs.Forbidden("no access to this workspace")
	}
	return out, nil
}

func (p *Policy) workspace(ctx context.Context, workspaceID string) (*models.Workspace, error) {
	if workspaceID == "" {
		return nil, errs.Validation("workspace id is required")
	}
	var ws models.Workspace
	if err := p.db.WithContext(ctx).First(&ws, "id = ?", workspaceID).Error; err != nil {
		return nil, errs.FromDB(err, "workspace")
	}
	return &ws, nil
}

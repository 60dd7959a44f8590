package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bizdesk/internal/authz"
	"bizdesk/internal/errs"
	"bizdesk/internal/events"
	"bizdesk/internal/models"
	"bizdesk/internal/utils"
)

// Widget is one tile of a dashboard layout.
type Widget struct {
	Type string `json:"type"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	W    int    `json:"w"`
	H    int    `json:"h"`
}

// DefaultWidgets is shown until a user saves their own layout.
var DefaultWidgets = []Widget{
	{Type: "liquidity", X: 0, Y: 0, W: 6, H: 4},
	{Type: "budget-month", X: 6, Y: 0, W: 6, H: 4},
	{Type: "open-invoices", X: 0, Y: 4, W: 6, H: 4},
	{Type: "tasks", X: 6, Y: 4, W: 6, H: 4},
}

// DashboardService stores one widget layout per user and workspace.
type DashboardService struct {
	db     *gorm.DB
	policy *authz.Policy
	bus    *events.EventBus
}

func NewDashboardService(db *gorm.DB, policy *authz.Policy, bus *events.EventBus) *DashboardService {
	return &DashboardService{db: db, policy: policy, bus: bus}
}

func (s *DashboardService) authorize(ctx context.Context, scope Scope, capability models.Capability) error {
	_, err := s.policy.Authorize(ctx, scope.Caller, scope.WorkspaceID, models.ModuleDashboard, capability)
	return err
}

// Get returns the caller's layout, or an unsaved default layout.
func (s *DashboardService) Get(ctx context.Context, scope Scope) (*models.DashboardLayout, error) {
	if err := s.authorize(ctx, scope, models.CapView); err != nil {
		return nil, err
	}
	var layout models.DashboardLayout
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", scope.WorkspaceID, scope.Caller.UserID).
		First(&layout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		widgets, _ := utils.EncodeJSON(DefaultWidgets)
		return &models.DashboardLayout{
			WorkspaceID: scope.WorkspaceID,
			UserID:      scope.Caller.UserID,
			Widgets:     widgets,
		}, nil
	}
	if err != nil {
		return nil, errs.Internal("failed to load dashboard", err)
	}
	return &layout, nil
}

// Save replaces the caller's layout.
func (s *DashboardService) Save(ctx context.Context, scope Scope, widgets []Widget) (*models.DashboardLayout, error) {
	if err := s.authorize(ctx, scope, models.CapAdd); err != nil {
		return nil, err
	}
	for _, w := range widgets {
		if w.Type == "" {
			return nil, errs.Validation("widget type is required")
		}
		if w.W <= 0 || w.H <= 0 || w.X < 0 || w.Y < 0 {
			return nil, errs.Validation("widget %s has an invalid position", w.Type)
		}
	}
	if widgets == nil {
		widgets = []Widget{}
	}
	data, err := utils.EncodeJSON(widgets)
	if err != nil {
		return nil, errs.Internal("failed to encode widgets", err)
	}

	layout := &models.DashboardLayout{
		WorkspaceID: scope.WorkspaceID,
		UserID:      scope.Caller.UserID,
		Widgets:     data,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"widgets", "updated_at"}),
	}).Create(layout).Error
	if err != nil {
		return nil, errs.Internal("failed to save dashboard", err)
	}
	s.publish(scope, "updated")
	return s.Get(ctx, scope)
}

// Reset drops the caller's layout so the default applies again.
func (s *DashboardService) Reset(ctx context.Context, scope Scope) error {
	if err := s.authorize(ctx, scope, models.CapAdd); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", scope.WorkspaceID, scope.Caller.UserID).
		Delete(&models.DashboardLayout{}).Error
	if err != nil {
		return errs.Internal("failed to reset dashboard", err)
	}
	s.publish(scope, "deleted")
	return nil
}

func (s *DashboardService) publish(scope Scope, action string) {
	s.bus.Publish(events.Change{
		WorkspaceID: scope.WorkspaceID,
		Module:      models.ModuleDashboard,
		Table:       "dashboard_layouts",
		Action:      action,
		ID:          scope.Caller.UserID,
	})
}

package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bizdesk/internal/authz"
	"bizdesk/internal/errs"
	"bizdesk/internal/events"
	"bizdesk/internal/models"
)

// Scope identifies who is acting on which workspace.
type Scope struct {
	Caller      authz.Caller
	WorkspaceID string
}

// ListOptions controls pagination, filtering and ordering of List.
type ListOptions struct {
	Page    int
	Limit   int
	Filters map[string]string
	Sort    string
	Order   string
}

const maxListLimit = 500

// ScopedService implements tenant-filtered CRUD for one workspace-owned model.
// Every query carries a workspace_id condition and every call is authorized
// against the service's module first.
type ScopedService[T any, PT interface {
	*T
	models.ScopedEntity
}] struct {
	db          *gorm.DB
	policy      *authz.Policy
	bus         *events.EventBus
	module      models.Module
	table       string
	entity      string
	filterable  map[string]bool
	preloads    []string
	sharedEdits bool
	beforeSave  func(tx *gorm.DB, workspaceID string, entity PT) error
	afterSave   func(tx *gorm.DB, workspaceID string, entity PT) error
}

func GormTableName(db *gorm.DB, v any) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return db.NamingStrategy.TableName(t.Name())
}

// NewScopedService creates a service for T gated by module.
func NewScopedService[T any, PT interface {
	*T
	models.ScopedEntity
}](db *gorm.DB, policy *authz.Policy, bus *events.EventBus, module models.Module) *ScopedService[T, PT] {
	var zero T
	table := GormTableName(db, zero)
	return &ScopedService[T, PT]{
		db:         db,
		policy:     policy,
		bus:        bus,
		module:     module,
		table:      table,
		entity:     singular(table),
		filterable: map[string]bool{},
	}
}

// WithFilters whitelists columns accepted as List filters and sort keys.
func (s *ScopedService[T, PT]) WithFilters(columns ...string) *ScopedService[T, PT] {
	for _, c := range columns {
		s.filterable[c] = true
	}
	return s
}

// WithPreloads loads the named associations on Get and List.
func (s *ScopedService[T, PT]) WithPreloads(names ...string) *ScopedService[T, PT] {
	s.preloads = append(s.preloads, names...)
	return s
}

// WithSharedEdits requires the editShared capability to change rows created
// by another user. The workspace owner is exempt.
func (s *ScopedService[T, PT]) WithSharedEdits() *ScopedService[T, PT] {
	s.sharedEdits = true
	return s
}

// WithBeforeSave runs check inside the write transaction of Create and Update.
func (s *ScopedService[T, PT]) WithBeforeSave(check func(tx *gorm.DB, workspaceID string, entity PT) error) *ScopedService[T, PT] {
	s.beforeSave = check
	return s
}

// WithAfterSave runs write after the row is stored, in the same transaction.
func (s *ScopedService[T, PT]) WithAfterSave(write func(tx *gorm.DB, workspaceID string, entity PT) error) *ScopedService[T, PT] {
	s.afterSave = write
	return s
}

func (s *ScopedService[T, PT]) Module() models.Module { return s.module }

func (s *ScopedService[T, PT]) Table() string { return s.table }

// Authorize checks capability on the service module.
func (s *ScopedService[T, PT]) Authorize(ctx context.Context, scope Scope, capability models.Capability) (*authz.Decision, error) {
	return s.policy.Authorize(ctx, scope.Caller, scope.WorkspaceID, s.module, capability)
}

func (s *ScopedService[T, PT]) applyPreloads(query *gorm.DB) *gorm.DB {
	for _, p := range s.preloads {
		query = query.Preload(p)
	}
	return query
}

// Find loads one row of the workspace using tx. It performs no authorization.
func (s *ScopedService[T, PT]) Find(ctx context.Context, tx *gorm.DB, workspaceID, id string) (PT, error) {
	if id == "" {
		return nil, errs.Validation("%s id is required", s.entity)
	}
	entity := PT(new(T))
	err := s.applyPreloads(tx.WithContext(ctx)).
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		First(entity).Error
	if err != nil {
		return nil, errs.FromDB(err, s.entity)
	}
	return entity, nil
}

func (s *ScopedService[T, PT]) List(ctx context.Context, scope Scope, opts ListOptions) ([]T, int64, error) {
	if _, err := s.Authorize(ctx, scope, models.CapView); err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(new(T)).Where("workspace_id = ?", scope.WorkspaceID)
	for key, value := range opts.Filters {
		if !s.filterable[key] {
			return nil, 0, errs.Validation("unknown filter %q", key)
		}
		query = query.Where(clause.Eq{Column: clause.Column{Name: key}, Value: value})
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errs.Internal(fmt.Sprintf("failed to count %s", s.table), err)
	}

	order, err := s.orderBy(opts.Sort, opts.Order)
	if err != nil {
		return nil, 0, err
	}
	query = query.Order(order)

	if opts.Limit > 0 {
		limit := opts.Limit
		if limit > maxListLimit {
			limit = maxListLimit
		}
		page := opts.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * limit).Limit(limit)
	}

	var entities []T
	if err := s.applyPreloads(query).Find(&entities).Error; err != nil {
		return nil, 0, errs.Internal(fmt.Sprintf("failed to list %s", s.table), err)
	}
	return entities, total, nil
}

func (s *ScopedService[T, PT]) orderBy(sort, order string) (clause.OrderByColumn, error) {
	col := clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}
	if sort != "" {
		if !s.filterable[sort] && sort != "created_at" && sort != "updated_at" {
			return col, errs.Validation("cannot sort by %q", sort)
		}
		col.Column.Name = sort
	}
	switch strings.ToLower(order) {
	case "asc":
		col.Desc = false
	case "", "desc":
	default:
		return col, errs.Validation("order must be asc or desc")
	}
	return col, nil
}

func (s *ScopedService[T, PT]) Get(ctx context.Context, scope Scope, id string) (PT, error) {
	if _, err := s.Authorize(ctx, scope, models.CapView); err != nil {
		return nil, err
	}
	return s.Find(ctx, s.db, scope.WorkspaceID, id)
}

// Create inserts entity into the workspace. Associations are not written.
func (s *ScopedService[T, PT]) Create(ctx context.Context, scope Scope, entity PT) error {
	if _, err := s.Authorize(ctx, scope, models.CapAdd); err != nil {
		return err
	}

	sc := entity.Scope()
	sc.ID = ""
	sc.WorkspaceID = scope.WorkspaceID
	sc.CreatedBy = scope.Caller.UserID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.beforeSave != nil {
			if err := s.beforeSave(tx, scope.WorkspaceID, entity); err != nil {
				return err
			}
		}
		if err := tx.Omit(clause.Associations).Create(entity).Error; err != nil {
			return err
		}
		if s.afterSave != nil {
			return s.afterSave(tx, scope.WorkspaceID, entity)
		}
		return nil
	})
	if err != nil {
		return wrapWrite(err, "create", s.entity)
	}

	s.publish(scope.WorkspaceID, "created", sc.ID)
	return nil
}

// Update replaces the stored row with entity, keeping identity and audit columns.
func (s *ScopedService[T, PT]) Update(ctx context.Context, scope Scope, id string, entity PT) error {
	decision, err := s.Authorize(ctx, scope, models.CapAdd)
	if err != nil {
		return err
	}
	existing, err := s.Find(ctx, s.db, scope.WorkspaceID, id)
	if err != nil {
		return err
	}
	if err := s.checkShared(ctx, scope, decision, existing); err != nil {
		return err
	}

	old, sc := existing.Scope(), entity.Scope()
	sc.ID = old.ID
	sc.WorkspaceID = old.WorkspaceID
	sc.CreatedAt = old.CreatedAt
	sc.CreatedBy = old.CreatedBy

	// Only the owner and the creator decide whether a row is shared.
	if sh, ok := any(entity).(models.Shareable); ok && !decision.Owner && old.CreatedBy != scope.Caller.UserID {
		sh.SetShared(any(existing).(models.Shareable).IsShared())
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.beforeSave != nil {
			if err := s.beforeSave(tx, scope.WorkspaceID, entity); err != nil {
				return err
			}
		}
		if err := tx.Omit(clause.Associations).Save(entity).Error; err != nil {
			return err
		}
		if s.afterSave != nil {
			return s.afterSave(tx, scope.WorkspaceID, entity)
		}
		return nil
	})
	if err != nil {
		return wrapWrite(err, "update", s.entity)
	}

	s.publish(scope.WorkspaceID, "updated", id)
	return nil
}

func (s *ScopedService[T, PT]) Delete(ctx context.Context, scope Scope, id string) error {
	return s.DeleteWith(ctx, scope, id, nil)
}

// DeleteWith deletes the row after cascade has run, both in one transaction.
func (s *ScopedService[T, PT]) DeleteWith(ctx context.Context, scope Scope, id string, cascade func(tx *gorm.DB, entity PT) error) error {
	decision, err := s.Authorize(ctx, scope, models.CapDelete)
	if err != nil {
		return err
	}
	existing, err := s.Find(ctx, s.db, scope.WorkspaceID, id)
	if err != nil {
		return err
	}
	if err := s.checkShared(ctx, scope, decision, existing); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cascade != nil {
			if err := cascade(tx, existing); err != nil {
				return err
			}
		}
		return tx.Where("workspace_id = ?", scope.WorkspaceID).Delete(existing).Error
	})
	if err != nil {
		return wrapWrite(err, "delete", s.entity)
	}

	s.publish(scope.WorkspaceID, "deleted", id)
	return nil
}

// checkShared lets the owner and the creator through. Other members need the
// row to be shared and the editShared capability.
func (s *ScopedService[T, PT]) checkShared(ctx context.Context, scope Scope, decision *authz.Decision, existing PT) error {
	if !s.sharedEdits || decision.Owner || existing.Scope().CreatedBy == scope.Caller.UserID {
		return nil
	}
	if sh, ok := any(existing).(models.Shareable); ok && !sh.IsShared() {
		return errs.Forbidden("%s is private to its creator", s.entity)
	}
	_, err := s.Authorize(ctx, scope, models.CapEditShared)
	return err
}

func (s *ScopedService[T, PT]) publish(workspaceID, action, id string) {
	s.bus.Publish(events.Change{
		WorkspaceID: workspaceID,
		Module:      s.module,
		Table:       s.table,
		Action:      action,
		ID:          id,
	})
}

// wrapWrite keeps *errs.Error values and wraps anything else as internal.
func wrapWrite(err error, action, entity string) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &errs.Error{Kind: errs.KindValidation, Message: entity + " already exists", Err: err}
	}
	return errs.Internal(fmt.Sprintf("failed to %s %s", action, entity), err)
}

// singular turns a table name into the entity name used in messages.
func singular(table string) string {
	name := strings.ReplaceAll(table, "_", " ")
	switch {
	case strings.HasSuffix(name, "ches"):
		return strings.TrimSuffix(name, "es")
	case strings.HasSuffix(name, "ies"):
		return strings.TrimSuffix(name, "ies") + "y"
	default:
		return strings.TrimSuffix(name, "s")
	}
}

// requireInWorkspace fails unless a row of model with id exists in the workspace.
func requireInWorkspace(tx *gorm.DB, model any, workspaceID, id, entity string) error {
	var count int64
	err := tx.Model(model).Where("workspace_id = ? AND id = ?", workspaceID, id).Count(&count).Error
	if err != nil {
		return errs.Internal(fmt.Sprintf("failed to check %s", entity), err)
	}
	if count == 0 {
		return errs.Validation("%s %s does not exist in this workspace", entity, id)
	}
	return nil
}

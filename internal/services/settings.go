package services

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bizdesk/internal/authz"
	"bizdesk/internal/errs"
	"bizdesk/internal/events"
	"bizdesk/internal/models"
)

const defaultPaymentTermsDays = 14

// LogoUpload tells the client where to PUT the logo file.
type LogoUpload struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SettingsService keeps the single company settings row of a workspace.
type SettingsService struct {
	db     *gorm.DB
	policy *authz.Policy
	bus    *events.EventBus
	store  FileStore
	urlTTL time.Duration
}

func NewSettingsService(db *gorm.DB, policy *authz.Policy, bus *events.EventBus, store FileStore, urlTTL time.Duration) *SettingsService {
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	return &SettingsService{db: db, policy: policy, bus: bus, store: store, urlTTL: urlTTL}
}

func (s *SettingsService) authorize(ctx context.Context, scope Scope, capability models.Capability) (*authz.Decision, error) {
	return s.policy.Authorize(ctx, scope.Caller, scope.WorkspaceID, models.ModuleSettings, capability)
}

// Get returns the stored settings, or defaults named after the workspace.
func (s *SettingsService) Get(ctx context.Context, scope Scope) (*models.CompanySettings, error) {
	decision, err := s.authorize(ctx, scope, models.CapView)
	if err != nil {
		return nil, err
	}
	var settings models.CompanySettings
	err = s.db.WithContext(ctx).Where("workspace_id = ?", scope.WorkspaceID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.CompanySettings{
			WorkspaceID:      scope.WorkspaceID,
			CompanyName:      decision.Workspace.Name,
			DefaultCurrency:  "EUR",
			PaymentTermsDays: defaultPaymentTermsDays,
		}, nil
	}
	if err != nil {
		return nil, errs.Internal("failed to load company settings", err)
	}
	return &settings, nil
}

// Update writes the settings of the workspace. The logo is managed by LogoUploadURL.
func (s *SettingsService) Update(ctx context.Context, scope Scope, in *models.CompanySettings) (*models.CompanySettings, error) {
	if _, err := s.authorize(ctx, scope, models.CapAdd); err != nil {
		return nil, err
	}
	in.ID = ""
	in.WorkspaceID = scope.WorkspaceID
	in.LogoPath = ""
	in.DefaultCurrency = strings.ToUpper(in.DefaultCurrency)
	if in.DefaultCurrency == "" {
		in.DefaultCurrency = "EUR"
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "workspace_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"company_name", "address", "tax_id", "iban", "bic", "email", "phone", "website",
			"invoice_prefix", "default_currency", "payment_terms_days", "updated_at",
		}),
	}).Create(in).Error
	if err != nil {
		return nil, errs.Internal("failed to save company settings", err)
	}
	s.publish(scope)
	return s.Get(ctx, scope)
}

// LogoUploadURL presigns an upload for a new logo and records its key.
func (s *SettingsService) LogoUploadURL(ctx context.Context, scope Scope, filename, contentType string) (*LogoUpload, error) {
	if _, err := s.authorize(ctx, scope, models.CapAdd); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, errs.Validation("logo must be an image")
	}
	if s.store == nil {
		return nil, errs.Internal("file storage is not configured", nil)
	}

	key := path.Join("workspaces", scope.WorkspaceID, "logo", uuid.New().String()+strings.ToLower(filepath.Ext(filename)))
	url, err := s.store.PresignUpload(ctx, key, contentType, s.urlTTL)
	if err != nil {
		return nil, errs.Internal("failed to presign logo upload", err)
	}

	row := &models.CompanySettings{
		WorkspaceID:      scope.WorkspaceID,
		DefaultCurrency:  "EUR",
		PaymentTermsDays: defaultPaymentTermsDays,
		LogoPath:         key,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workspace_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"logo_path", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return nil, errs.Internal("failed to record logo", err)
	}
	s.publish(scope)
	return &LogoUpload{URL: url, Key: key, ExpiresAt: time.Now().Add(s.urlTTL)}, nil
}

func (s *SettingsService) publish(scope Scope) {
	s.bus.Publish(events.Change{
		WorkspaceID: scope.WorkspaceID,
		Module:      models.ModuleSettings,
		Table:       "company_settings",
		Action:      "updated",
	})
}
